// Package handler provides the HTTP handlers for the companion web app.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	apierrors "github.com/HeadupandFace/cbt-companion-app/internal/pkg/errors"
	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/response"
	"github.com/HeadupandFace/cbt-companion-app/internal/service"
)

type contextKey string

// ContextKeyUser is the context key for the authenticated user.
const ContextKeyUser contextKey = "user"

// Services groups the business services the handlers call.
type Services struct {
	Auth          service.AuthService
	Users         service.UserService
	Diary         service.DiaryService
	Conversations service.ConversationService
	Chat          service.ChatService
}

// Handler serves the pages and the JSON API.
type Handler struct {
	svc      Services
	sessions *Sessions
	validate *validator.Validate
	logger   *slog.Logger
}

// New creates a new Handler.
func New(svc Services, sessions *Sessions, logger *slog.Logger) *Handler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return &Handler{
		svc:      svc,
		sessions: sessions,
		validate: validate,
		logger:   logger,
	}
}

// Middleware is a standard net/http middleware.
type Middleware = func(http.Handler) http.Handler

// Routes returns the router for every page and API route. apiMiddleware runs
// on /api/* after the session user is resolved.
func (h *Handler) Routes(apiMiddleware ...Middleware) chi.Router {
	r := chi.NewRouter()

	// Public
	r.Group(func(r chi.Router) {
		r.Get("/", h.Home)
		r.Get("/privacy", h.Privacy)
		r.Get("/register", h.RegisterPage)
		r.Post("/register", h.Register)
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.Login)
	})

	// Pages
	r.Group(func(r chi.Router) {
		r.Use(h.RequirePageUser)

		r.Get("/logout", h.Logout)
		r.Get("/chat", h.ChatPage)
		r.Get("/onboarding", h.OnboardingPage)
		r.Post("/onboarding", h.Onboarding)
		r.Get("/onboarding/consent", h.ConsentPage)
		r.Get("/onboarding/assessment", h.AssessmentPage)
		r.Post("/onboarding/assessment", h.Assessment)
		r.Get("/crisis_support", h.CrisisSupportPage)
		r.Post("/crisis_support", h.CrisisSupport)
	})

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Use(h.RequireAPIUser)
		r.Use(apiMiddleware...)

		r.Post("/save_consent", h.SaveConsent)
		r.Get("/diary", h.ListDiary)
		r.Post("/diary", h.SaveDiary)
		r.Get("/chat_history", h.ChatHistory)
		r.Post("/clear_chat_history", h.ClearChatHistory)
		r.Get("/user_data", h.UserData)
		r.Post("/chat", h.Chat)
	})

	return r
}

// RequireAPIUser rejects requests without a session with a 401 JSON body.
func (h *Handler) RequireAPIUser(next http.Handler) http.Handler {
	return h.requireUser(next, func(w http.ResponseWriter, r *http.Request) {
		response.Unauthorized(w)
	})
}

// RequirePageUser redirects requests without a session to the login page.
func (h *Handler) RequirePageUser(next http.Handler) http.Handler {
	return h.requireUser(next, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
}

func (h *Handler) requireUser(next http.Handler, deny http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, email, ok := h.sessions.Identity(r)
		if !ok {
			deny(w, r)
			return
		}

		user := h.svc.Auth.CurrentUser(r.Context(), id, email)
		ctx := context.WithValue(r.Context(), ContextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the user set by RequireAPIUser or RequirePageUser.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(ContextKeyUser).(*models.User)
	return user, ok
}

// RateLimitKey keys rate limiting by the session user.
func RateLimitKey(r *http.Request) string {
	if user, ok := UserFromContext(r.Context()); ok {
		return "user:" + user.ID
	}
	return ""
}

// decode reads a JSON body. A malformed or missing body is a 400.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierrors.ErrBadRequest
	}
	return nil
}

// check validates v. A missing required field reports missing when it is set.
func (h *Handler) check(v any, missing string) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apierrors.ErrBadRequest
	}
	fe := fieldErrs[0]
	if fe.Tag() == "required" && missing != "" {
		return apierrors.ErrBadRequest.WithMessage(missing)
	}
	return apierrors.NewValidationError(fe.Field(), validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

// fail logs err and writes its API error. Server errors are logged at error
// level with the underlying cause; user text is never logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	apiErr := apierrors.AsAPIError(err)
	level := slog.LevelInfo
	if apiErr.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("op", op),
		slog.Int("status", apiErr.StatusCode),
		slog.String("code", apiErr.Code),
		slog.String("error", err.Error()),
	}
	if user, ok := UserFromContext(r.Context()); ok {
		attrs = append(attrs, slog.String("user_id", user.ID))
	}
	h.logger.LogAttrs(r.Context(), level, "request failed", attrs...)

	response.Error(w, apiErr)
}
