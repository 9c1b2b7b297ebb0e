// Package ai describes the generative-language collaborator used to evaluate resumes.
package ai

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable reports that the model could not be reached or rejected the request.
	ErrUnavailable = errors.New("ai analysis service unavailable")
	// ErrEmptyResponse reports that the model answered without any usable text.
	ErrEmptyResponse = errors.New("no response from ai analysis")
)

// Analyzer sends resume text to a model and returns the raw model output.
// Implementations wrap transport failures with ErrUnavailable and blank output
// with ErrEmptyResponse.
type Analyzer interface {
	Analyze(ctx context.Context, resumeText string) (string, error)
}

// Describer is implemented by analyzers that can report their provider and model.
type Describer interface {
	Provider() string
	Model() string
}
