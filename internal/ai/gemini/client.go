package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/skillsync/internal/ai"
	"github.com/spigell/skillsync/internal/utils"
)

const (
	defaultModel      = "gemini-2.0-flash"
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second

	// retryBackoff is multiplied by the attempt number between retries.
	retryBackoff = 2 * time.Second
	// maxQuotaDelay is the longest server-suggested delay still worth waiting for.
	maxQuotaDelay = 15 * time.Second
)

var waitFor = utils.WaitFor

var retryHint = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*(s|sec|secs|seconds?)\b`)

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options tune a Generator. Zero values select defaults.
type Options struct {
	MaxRetries int
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models     contentModels
	model      string
	maxRetries int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, opts Options) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, model, opts), nil
}

func newGenerator(models contentModels, model string, opts Options) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Generator{
		models:     models,
		model:      model,
		maxRetries: opts.MaxRetries,
		timeout:    opts.Timeout,
		logger:     opts.Logger,
	}
}

// GenerateContent sends the prompt to Gemini and returns the joined textual response.
// Transient failures are retried; the final failure wraps ai.ErrUnavailable.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		resp, err := g.generateOnce(ctx, prompt)
		if err == nil {
			return responseText(resp)
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == g.maxRetries {
			break
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := waitFor(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	return "", fmt.Errorf("%w: %w", ai.ErrUnavailable, lastErr)
}

func (g *Generator) generateOnce(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	return resp, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ai.ErrEmptyResponse
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", ai.ErrEmptyResponse
	}

	return output, nil
}

// retryDelay decides whether err is transient and how long to wait before the next attempt.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	backoff := time.Duration(attempt) * retryBackoff

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		// Transport errors carry no status; treat them as transient.
		return backoff, !errors.Is(err, context.Canceled)
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		hint, ok := quotaDelay(apiErr)
		if !ok {
			return backoff, true
		}
		if hint > maxQuotaDelay {
			return 0, false
		}
		return max(hint, backoff), true
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	default:
		return 0, false
	}
}

// quotaDelay extracts the server-suggested delay from a quota error, if any.
func quotaDelay(apiErr genai.APIError) (time.Duration, bool) {
	for _, detail := range apiErr.Details {
		raw, ok := detail["retryDelay"].(string)
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(raw); err == nil {
			return d, true
		}
	}

	match := retryHint.FindStringSubmatch(apiErr.Message)
	if match == nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
