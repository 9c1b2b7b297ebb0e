// Package matching computes which of an opportunity's required skills appear in resume text.
package matching

import (
	"strings"

	"github.com/spigell/skillsync/internal/catalog"
)

// Result is the outcome of matching one skill list against a resume.
type Result struct {
	// Matched keeps the order of the required list and contains only found skills.
	Matched []string
	// Percentage is floor(100 * matched / required), 0 for an empty list.
	Percentage int
}

// Matcher matches skill lists against one resume. The resume is lowercased
// once so a Matcher can be reused across a whole catalog.
type Matcher struct {
	text string
}

func NewMatcher(resumeText string) *Matcher {
	return &Matcher{text: strings.ToLower(resumeText)}
}

// Match is a shorthand for NewMatcher(resumeText).Match(required).
func Match(resumeText string, required []catalog.Skill) Result {
	return NewMatcher(resumeText).Match(required)
}

// Match reports the required skills contained in the resume, case-insensitively.
// Non-text entries are never matched but still count as required.
func (m *Matcher) Match(required []catalog.Skill) Result {
	matched := make([]string, 0, len(required))

	for _, skill := range required {
		name, ok := skill.Text()
		if !ok {
			continue
		}
		if strings.Contains(m.text, strings.ToLower(name)) {
			matched = append(matched, name)
		}
	}

	percentage := 0
	if len(required) > 0 {
		percentage = 100 * len(matched) / len(required)
	}

	return Result{Matched: matched, Percentage: percentage}
}
