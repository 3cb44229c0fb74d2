package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (c *fakeCounter) IncrWithExpire(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int64)
	}
	c.counts[key]++
	return c.counts[key], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit(t *testing.T) {
	counter := &fakeCounter{}
	h := RateLimit(counter, RateLimitConfig{RequestsPerMinute: 2, BurstSize: 1}, nil, discardLogger())(okHandler())

	var codes []int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)

		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "Too many requests. Please try again later.", body["error"])
		}
	}
	assert.Equal(t, []int{200, 200, 200, 429}, codes)
}

func TestRateLimit_KeyFunc(t *testing.T) {
	counter := &fakeCounter{}
	keyFn := func(r *http.Request) string { return r.Header.Get("X-User") }
	h := RateLimit(counter, RateLimitConfig{RequestsPerMinute: 1}, keyFn, discardLogger())(okHandler())

	for _, user := range []string{"a", "b", "a"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User", user)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, int64(2), counter.counts["ratelimit:a"])
	assert.Equal(t, int64(1), counter.counts["ratelimit:b"])
}

func TestRateLimit_CounterFailureAllows(t *testing.T) {
	counter := &fakeCounter{err: errors.New("redis down")}
	h := RateLimit(counter, RateLimitConfig{RequestsPerMinute: 0}, nil, discardLogger())(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := chimiddleware.RequestID(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/diary", strings.NewReader(`{"text":"private"}`)))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "/api/diary", entry["path"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.NotEmpty(t, entry["request_id"])
	assert.NotContains(t, buf.String(), "private")
}

func TestMetrics(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/api/diary", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/diary", "500"))
	serverErrors := testutil.ToFloat64(errorsTotal.WithLabelValues("server_error"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/diary", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/diary", "500")))
	assert.Equal(t, serverErrors+1, testutil.ToFloat64(errorsTotal.WithLabelValues("server_error")))
}

func TestObserveChat(t *testing.T) {
	before := testutil.ToFloat64(chatRepliesTotal.WithLabelValues(ChatOutcomeCrisis))
	ObserveChat(ChatOutcomeCrisis)
	assert.Equal(t, before+1, testutil.ToFloat64(chatRepliesTotal.WithLabelValues(ChatOutcomeCrisis)))
}

func TestCompress(t *testing.T) {
	payload := strings.Repeat(`{"audio_clips":["AAAA"]}`, 200)
	h := Compress()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Less(t, rec.Body.Len(), len(payload))

	plain := httptest.NewRecorder()
	h.ServeHTTP(plain, httptest.NewRequest(http.MethodPost, "/api/chat", nil))
	assert.Empty(t, plain.Header().Get("Content-Encoding"))
	assert.Equal(t, payload, plain.Body.String())
}

func TestCORS(t *testing.T) {
	h := CORS(nil)(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
