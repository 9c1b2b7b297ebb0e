package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/skillsync/internal/ai"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func TestAnalyzerAnalyze(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: `{"overall_rating": 7}`}
	analyzer := NewAnalyzer(stub, []string{"Go", "Docker"}, zap.NewNop(), 0)

	raw, err := analyzer.Analyze(context.Background(), "  Go developer with Kubernetes  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != stub.response {
		t.Fatalf("expected raw response to be returned unchanged, got %q", raw)
	}

	if !strings.HasSuffix(stub.lastPrompt, "Resume:\nGo developer with Kubernetes") {
		t.Fatalf("expected prompt to end with trimmed resume text, got %q", stub.lastPrompt)
	}
	if !strings.Contains(stub.lastPrompt, "Go, Docker") {
		t.Fatalf("expected skill vocabulary in prompt")
	}
	if !strings.Contains(stub.lastPrompt, "up to 4 skills") {
		t.Fatalf("expected suggested skill count in prompt")
	}
	if strings.Contains(stub.lastPrompt, "{{") {
		t.Fatalf("expected every placeholder to be replaced")
	}
}

func TestAnalyzerPropagatesErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		stub *stubGenerator
		want error
	}{
		{name: "unavailable", stub: &stubGenerator{err: ai.ErrUnavailable}, want: ai.ErrUnavailable},
		{name: "empty", stub: &stubGenerator{err: ai.ErrEmptyResponse}, want: ai.ErrEmptyResponse},
		{name: "blank output", stub: &stubGenerator{response: " \n "}, want: ai.ErrEmptyResponse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			analyzer := NewAnalyzer(tc.stub, nil, nil, 0)
			_, err := analyzer.Analyze(context.Background(), "resume")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAnalyzerRejectsEmptyResume(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: "{}"}
	analyzer := NewAnalyzer(stub, nil, nil, 0)

	if _, err := analyzer.Analyze(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty resume")
	}
	if stub.lastPrompt != "" {
		t.Fatal("expected generator not to be called")
	}
}

func TestAnalyzerLogsPreviews(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.DebugLevel)
	stub := &stubGenerator{response: strings.Repeat("r", 50)}
	analyzer := NewAnalyzer(stub, nil, zap.New(core), 10)

	if _, err := analyzer.Analyze(context.Background(), "resume"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := observed.FilterMessage("gemini generate content response").All()
	if len(entries) != 1 {
		t.Fatalf("expected one response log entry, got %d", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["response_preview"] != strings.Repeat("r", 10)+"..." {
		t.Fatalf("unexpected preview: %v", fields["response_preview"])
	}
	if fields["response_length"] != int64(50) {
		t.Fatalf("unexpected length: %v", fields["response_length"])
	}
	if fields["ai_provider"] != "gemini" || fields["ai_model"] != "stub-model" {
		t.Fatalf("expected common ai fields, got %v", fields)
	}
}

func TestBuildPromptWithoutVocabulary(t *testing.T) {
	t.Parallel()

	prompt := buildPrompt("text with {{SKILL_VOCABULARY}} inside", nil)
	if !strings.Contains(prompt, "chosen from this list:\n  none") {
		t.Fatalf("expected none placeholder, got %q", prompt)
	}
	if !strings.HasSuffix(prompt, "text with {{SKILL_VOCABULARY}} inside") {
		t.Fatal("expected resume text to be inserted verbatim")
	}
}
