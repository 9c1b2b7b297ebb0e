// Package gemini implements ai.Analyzer on top of the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/skillsync/internal/ai"
	"github.com/spigell/skillsync/internal/logger"
	"github.com/spigell/skillsync/internal/utils"
)

const (
	providerName        = "gemini"
	defaultMaxLogLength = 200
	suggestedSkills     = 4
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

// Analyzer asks Gemini to evaluate a resume and returns the raw answer.
type Analyzer struct {
	generator  contentGenerator
	vocabulary []string
	logger     *zap.Logger
	maxLogLen  int
}

var _ ai.Analyzer = (*Analyzer)(nil)

// NewAnalyzer builds an Analyzer whose prompt suggests skills from vocabulary.
func NewAnalyzer(generator contentGenerator, vocabulary []string, log *zap.Logger, maxLogLength int) *Analyzer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Analyzer{
		generator:  generator,
		vocabulary: append([]string(nil), vocabulary...),
		logger:     logger.WithCommonFields(log, providerName, generator.Model()),
		maxLogLen:  maxLogLength,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, resumeText string) (string, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return "", errors.New("resume text is required")
	}

	prompt := buildPrompt(resumeText, a.vocabulary)

	a.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	a.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	if strings.TrimSpace(raw) == "" {
		return "", ai.ErrEmptyResponse
	}

	return raw, nil
}

func (a *Analyzer) Provider() string { return providerName }

func (a *Analyzer) Model() string { return a.generator.Model() }

func buildPrompt(resumeText string, vocabulary []string) string {
	template := strings.TrimSpace(promptTemplate)
	if template == "" {
		template = "Evaluate this resume as JSON.\nSkills: {{SKILL_VOCABULARY}}\n\nResume:\n{{RESUME_TEXT}}"
	}

	skills := "none"
	if len(vocabulary) > 0 {
		skills = strings.Join(vocabulary, ", ")
	}

	replacer := strings.NewReplacer(
		"{{SUGGESTED_SKILLS}}", strconv.Itoa(suggestedSkills),
		"{{SKILL_VOCABULARY}}", skills,
		"{{RESUME_TEXT}}", resumeText,
	)
	return replacer.Replace(template)
}
