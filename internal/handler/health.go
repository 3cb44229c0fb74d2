package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/response"
)

// Check is one readiness dependency.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// Ready returns the GET /ready handler. It fails on the first check that does not answer.
func Ready(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				response.JSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":    "error",
					"component": c.Name,
				})
				return
			}
			status[c.Name] = "connected"
		}
		response.OK(w, status)
	}
}
