package handler

import (
	"log/slog"
	"net/http"

	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/response"
	"github.com/HeadupandFace/cbt-companion-app/internal/service"
)

// Register handles POST /register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "register", err)
		return
	}
	if err := h.check(req, "Missing required fields."); err != nil {
		h.fail(w, r, "register", err)
		return
	}

	user, err := h.svc.Auth.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}
	if err := h.sessions.Start(w, r, user.ID, user.Email); err != nil {
		response.InternalError(w, "An internal error occurred during registration.")
		return
	}

	response.OK(w, response.Message{Message: "Registration successful", Redirect: service.RedirectOnboarding})
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "login", err)
		return
	}
	if err := h.check(req, "ID token missing"); err != nil {
		h.fail(w, r, "login", err)
		return
	}

	res, err := h.svc.Auth.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}
	if err := h.sessions.Start(w, r, res.User.ID, res.User.Email); err != nil {
		response.InternalError(w, "An internal authentication error occurred.")
		return
	}

	response.OK(w, response.Message{Message: "Login successful", Redirect: res.Redirect})
}

// Logout handles GET /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(w, r); err != nil {
		h.logger.Warn("failed to clear session", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}
