// Package ai talks to the hosted text-generation backends that produce assistant replies.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/models"
)

// Fixed generation parameters.
const (
	Temperature     = 0.7
	MaxOutputTokens = 500
)

// FallbackReply is returned when the backend answers without any candidate text.
const FallbackReply = "I had trouble understanding that."

// ErrUnavailable is returned by a Completer that was never configured.
var ErrUnavailable = errors.New("ai: completion backend unavailable")

// Request is one completion call: the system instruction, prior turns and the new user message.
type Request struct {
	SystemInstruction string
	History           []models.Turn
	Message           string
}

// Completer produces the assistant reply for a request. Calls are never retried.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// UpstreamError is a non-2xx answer from the backend.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Unavailable is the Completer used when no API key is configured.
type Unavailable struct{}

// Complete always fails with ErrUnavailable.
func (Unavailable) Complete(context.Context, Request) (string, error) {
	return "", ErrUnavailable
}

// New returns the Completer selected by cfg.Provider. A missing API key yields Unavailable.
func New(ctx context.Context, cfg config.AIConfig, httpClient *http.Client) (Completer, error) {
	if cfg.APIKey == "" {
		return Unavailable{}, nil
	}
	switch cfg.Provider {
	case "gemini":
		g, err := NewGemini(ctx, cfg, httpClient)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "openai":
		return NewOpenAI(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

var (
	_ Completer = Unavailable{}
	_ Completer = (*Gemini)(nil)
	_ Completer = (*OpenAI)(nil)
)
