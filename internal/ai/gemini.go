package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/models"
)

// DefaultGeminiURL is used when no base URL is configured.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com/"

// Gemini completes through the Gemini API generateContent call.
type Gemini struct {
	client  *genai.Client
	model   string
	baseURL string
}

// NewGemini creates a Gemini completer. The API key travels in the
// x-goog-api-key header. A nil httpClient uses the SDK default.
func NewGemini(ctx context.Context, cfg config.AIConfig, httpClient *http.Client) (*Gemini, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultGeminiURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model, baseURL: baseURL}, nil
}

// Complete sends the conversation and returns the first candidate's text.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, t := range req.History {
		contents = append(contents, textContent(t.Text, geminiRole(t.Role)))
	}
	contents = append(contents, textContent(req.Message, genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: textContent(req.SystemInstruction, ""),
		Temperature:       genai.Ptr[float32](Temperature),
		MaxOutputTokens:   MaxOutputTokens,
	})
	if err != nil {
		if upstream := geminiUpstream(err); upstream != nil {
			return "", upstream
		}
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return FallbackReply, nil
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return FallbackReply, nil
	}
	return content.Parts[0].Text, nil
}

func textContent(text string, role genai.Role) *genai.Content {
	return &genai.Content{Role: string(role), Parts: []*genai.Part{{Text: text}}}
}

// geminiUpstream converts an API error answer into an UpstreamError.
func geminiUpstream(err error) *UpstreamError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Provider: "gemini", StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &UpstreamError{Provider: "gemini", StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return nil
}

// geminiRole maps stored roles onto the names the API expects.
func geminiRole(r models.Role) genai.Role {
	if r == models.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}
