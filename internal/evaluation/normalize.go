package evaluation

import (
	_ "embed"

	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/spigell/skillsync/internal/utils"
)

//go:embed evaluation.schema.json
var schemaJSON string

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
})

// Normalizer converts raw model output into an Evaluation. It never fails:
// anything that cannot be used is replaced by Fallback.
type Normalizer struct {
	logger    *zap.Logger
	maxLogLen int
}

const defaultMaxLogLength = 200

func NewNormalizer(logger *zap.Logger, maxLogLength int) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Normalizer{logger: logger, maxLogLen: maxLogLength}
}

// Normalize uses a silent Normalizer.
func Normalize(raw string) Evaluation {
	return NewNormalizer(nil, 0).Normalize(raw)
}

// Valid reports whether raw would normalize without falling back.
func Valid(raw string) bool {
	if parse(stripFences(raw)).malformed == nil {
		return true
	}
	span, ok := firstObjectSpan(raw)
	return ok && parse(span).malformed == nil
}

// outcome is either a usable evaluation or the reason the payload was malformed.
type outcome struct {
	evaluation Evaluation
	malformed  error
}

func (n *Normalizer) Normalize(raw string) Evaluation {
	res := parse(stripFences(raw))
	if res.malformed == nil {
		return res.evaluation
	}

	firstErr := res.malformed
	if span, ok := firstObjectSpan(raw); ok {
		res = parse(span)
		if res.malformed == nil {
			n.logger.Debug("evaluation recovered from embedded object",
				zap.NamedError("strict_error", firstErr),
			)
			return res.evaluation
		}
	}

	n.logger.Warn("failed to parse model response as an evaluation, using fallback",
		zap.Error(res.malformed),
		zap.Int("response_length", len([]rune(raw))),
		zap.String("response_preview", utils.TruncateForLog(raw, n.maxLogLen)),
	)

	return Fallback(raw)
}

// stripFences removes a leading ```json or ``` marker and a trailing ``` marker.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// firstObjectSpan returns the first balanced {...} span of s. Braces inside
// JSON string literals are ignored.
func firstObjectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// parse applies the strict policy: the payload must be a JSON object carrying
// every field with the expected shape.
func parse(text string) outcome {
	if text == "" {
		return outcome{malformed: errors.New("empty payload")}
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return outcome{malformed: fmt.Errorf("decode json: %w", err)}
	}

	schema, err := loadSchema()
	if err != nil {
		return outcome{malformed: fmt.Errorf("load evaluation schema: %w", err)}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return outcome{malformed: fmt.Errorf("validate payload: %w", err)}
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return outcome{malformed: fmt.Errorf("payload does not match schema: %s", strings.Join(problems, "; "))}
	}

	if rating, ok := doc["overall_rating"].(string); ok {
		rating = strings.TrimSpace(rating)
		if rating == "" {
			return outcome{malformed: errors.New("overall rating is empty")}
		}
		doc["overall_rating"] = rating
	}

	var ev Evaluation
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ev,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return outcome{malformed: err}
	}
	if err := decoder.Decode(doc); err != nil {
		return outcome{malformed: fmt.Errorf("decode evaluation: %w", err)}
	}

	if math.IsNaN(ev.OverallRating) || math.IsInf(ev.OverallRating, 0) {
		return outcome{malformed: fmt.Errorf("overall rating %v is not a finite number", doc["overall_rating"])}
	}

	ev.OverallRating = clampRating(ev.OverallRating)
	ev.Strengths = cleanLines(ev.Strengths)
	ev.Weaknesses = cleanLines(ev.Weaknesses)
	ev.Suggestions = cleanLines(ev.Suggestions)
	ev.RawAnalysis = strings.TrimSpace(ev.RawAnalysis)

	return outcome{evaluation: ev}
}
