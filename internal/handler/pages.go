package handler

import (
	"net/http"

	"github.com/a-h/templ"

	"github.com/HeadupandFace/cbt-companion-app/internal/service"
	"github.com/HeadupandFace/cbt-companion-app/templates/pages"
)

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

// Home redirects signed-in users to the chat and shows the welcome page otherwise.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.sessions.Identity(r); ok {
		http.Redirect(w, r, service.RedirectChat, http.StatusFound)
		return
	}
	render(w, r, http.StatusOK, pages.Welcome())
}

// Privacy renders the privacy notice.
func (h *Handler) Privacy(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, pages.Privacy())
}

// RegisterPage renders the registration page. The identity sign-up runs in
// the browser, which then posts the ID token to /register.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, pages.Register())
}

// LoginPage renders the login page.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, pages.Login())
}

// ChatPage renders the chat UI once onboarding is complete.
func (h *Handler) ChatPage(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	if !user.OnboardingComplete {
		http.Redirect(w, r, service.RedirectOnboarding, http.StatusFound)
		return
	}
	render(w, r, http.StatusOK, pages.Chat(string(user.PreferredAssistant)))
}
