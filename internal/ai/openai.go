package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/models"
)

// OpenAI completes through the Responses API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI completer. The client's own retries are disabled.
func NewOpenAI(cfg config.AIConfig, httpClient *http.Client) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAI{client: openai.NewClient(opts...), model: cfg.Model}
}

// Complete sends the conversation and returns the output text.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	input := make([]responses.ResponseInputItemUnionParam, 0, len(req.History)+1)
	for _, t := range req.History {
		input = append(input, responses.ResponseInputItemParamOfMessage(t.Text, openAIRole(t.Role)))
	}
	input = append(input, responses.ResponseInputItemParamOfMessage(req.Message, responses.EasyInputMessageRoleUser))

	params := responses.ResponseNewParams{
		Model:           o.model,
		Instructions:    openai.String(req.SystemInstruction),
		Temperature:     openai.Float(Temperature),
		MaxOutputTokens: openai.Int(MaxOutputTokens),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{Provider: "openai", StatusCode: apiErr.StatusCode, Body: apiErr.Message}
		}
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	text := resp.OutputText()
	if text == "" {
		return FallbackReply, nil
	}
	return text, nil
}

func openAIRole(r models.Role) responses.EasyInputMessageRole {
	if r == models.RoleAssistant {
		return responses.EasyInputMessageRoleAssistant
	}
	return responses.EasyInputMessageRoleUser
}
