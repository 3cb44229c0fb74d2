package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/models"
)

type sentPart struct {
	Text string `json:"text"`
}

type sentContent struct {
	Role  string     `json:"role"`
	Parts []sentPart `json:"parts"`
}

// sentRequest is the generateContent body as it goes over the wire.
type sentRequest struct {
	Contents          []sentContent `json:"contents"`
	SystemInstruction sentContent   `json:"systemInstruction"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	g, err := NewGemini(context.Background(), config.AIConfig{
		Provider: "gemini",
		APIKey:   "test-key",
		Model:    "gemini-1.5-flash-latest",
		BaseURL:  server.URL,
	}, server.Client())
	require.NoError(t, err)
	return g
}

func TestGemini_Complete(t *testing.T) {
	var got sentRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash-latest:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"I'm doing well."}]}}]}`))
	})

	reply, err := g.Complete(context.Background(), Request{
		SystemInstruction: "be kind",
		History: []models.Turn{
			{Role: models.RoleUser, Text: "hello"},
			{Role: models.RoleAssistant, Text: "hi there"},
		},
		Message: "How was your day?",
	})
	require.NoError(t, err)
	assert.Equal(t, "I'm doing well.", reply)

	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "How was your day?", got.Contents[2].Parts[0].Text)
	require.Len(t, got.SystemInstruction.Parts, 1)
	assert.Equal(t, "be kind", got.SystemInstruction.Parts[0].Text)
	assert.InDelta(t, 0.7, got.GenerationConfig.Temperature, 1e-6)
	assert.Equal(t, 500, got.GenerationConfig.MaxOutputTokens)
}

func TestGemini_NoCandidates(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty list", body: `{"candidates":[]}`},
		{name: "missing field", body: `{}`},
		{name: "candidate without parts", body: `{"candidates":[{"content":{"parts":[]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			})
			reply, err := g.Complete(context.Background(), Request{Message: "hi"})
			require.NoError(t, err)
			assert.Equal(t, FallbackReply, reply)
		})
	}
}

func TestGemini_UpstreamError(t *testing.T) {
	calls := 0
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"prompt rejected","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := g.Complete(context.Background(), Request{Message: "hi"})
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, "gemini", upstream.Provider)
	assert.Equal(t, http.StatusBadRequest, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "prompt rejected")
	assert.Equal(t, 1, calls, "failed calls are not retried")
}

func TestGemini_MalformedBody(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	_, err := g.Complete(context.Background(), Request{Message: "hi"})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, config.AIConfig{Provider: "gemini"}, nil)
	require.NoError(t, err)
	assert.IsType(t, Unavailable{}, c)

	_, err = c.Complete(ctx, Request{Message: "hi"})
	assert.ErrorIs(t, err, ErrUnavailable)

	c, err = New(ctx, config.AIConfig{Provider: "gemini", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Gemini{}, c)
	assert.Equal(t, DefaultGeminiURL, c.(*Gemini).baseURL)

	c, err = New(ctx, config.AIConfig{Provider: "openai", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, c)

	_, err = New(ctx, config.AIConfig{Provider: "llama", APIKey: "k"}, nil)
	assert.Error(t, err)
}
