// Package evaluation turns raw generative-model output into a canonical,
// always complete resume evaluation.
package evaluation

import (
	"strings"

	"github.com/spigell/skillsync/internal/utils"
)

const (
	// MaxRating and MinRating bound OverallRating.
	MaxRating = 10.0
	MinRating = 0.0

	fallbackRating         = 6.0
	fallbackRawAnalysisLen = 500
)

// Evaluation is the structured judgment for one resume. After normalization
// every field is populated and slices are non-nil.
type Evaluation struct {
	OverallRating float64  `json:"overall_rating" mapstructure:"overall_rating"`
	Strengths     []string `json:"strengths" mapstructure:"strengths"`
	Weaknesses    []string `json:"weaknesses" mapstructure:"weaknesses"`
	Suggestions   []string `json:"suggestions" mapstructure:"suggestions"`
	RawAnalysis   string   `json:"raw_analysis" mapstructure:"raw_analysis"`
}

// Fallback is the evaluation used when the model output cannot be parsed.
// RawAnalysis carries the first 500 characters of raw.
func Fallback(raw string) Evaluation {
	return Evaluation{
		OverallRating: fallbackRating,
		Strengths:     []string{"Good technical foundation", "Shows learning ability"},
		Weaknesses:    []string{"Limited professional experience", "Could improve technical depth"},
		Suggestions:   []string{"Gain more hands-on experience", "Learn modern frameworks"},
		RawAnalysis:   utils.Truncate(raw, fallbackRawAnalysisLen),
	}
}

func clampRating(r float64) float64 {
	switch {
	case r < MinRating:
		return MinRating
	case r > MaxRating:
		return MaxRating
	default:
		return r
	}
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
