package handler

import (
	"log/slog"
	"net/http"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/response"
	"github.com/HeadupandFace/cbt-companion-app/internal/service"
)

// ListDiary handles GET /api/diary.
func (h *Handler) ListDiary(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	entries, err := h.svc.Diary.List(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, "list diary", err)
		return
	}
	if entries == nil {
		entries = []models.DiaryEntry{}
	}
	response.OK(w, entries)
}

// SaveDiary handles POST /api/diary.
func (h *Handler) SaveDiary(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req service.DiaryRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "save diary", err)
		return
	}
	if err := h.check(req, ""); err != nil {
		h.fail(w, r, "save diary", err)
		return
	}

	if _, err := h.svc.Diary.Save(r.Context(), user.ID, req); err != nil {
		h.fail(w, r, "save diary", err)
		return
	}
	response.OKMessage(w, "Diary entry saved successfully.")
}

// ChatHistory handles GET /api/chat_history.
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	turns, err := h.svc.Conversations.History(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, "chat history", err)
		return
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	response.OK(w, turns)
}

// ClearChatHistory handles POST /api/clear_chat_history.
func (h *Handler) ClearChatHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	if err := h.svc.Conversations.Clear(r.Context(), user.ID); err != nil {
		h.fail(w, r, "clear chat history", err)
		return
	}
	h.logger.Info("chat history cleared", slog.String("user_id", user.ID))
	response.OKMessage(w, "Chat history cleared successfully.")
}

// UserDataResponse is the body of GET /api/user_data.
type UserDataResponse struct {
	UserID             string         `json:"user_id"`
	Username           string         `json:"username"`
	DisplayName        string         `json:"display_name"`
	PreferredAssistant models.Persona `json:"preferred_assistant"`
}

// UserData handles GET /api/user_data.
func (h *Handler) UserData(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	response.OK(w, UserDataResponse{
		UserID:             user.ID,
		Username:           user.Username,
		DisplayName:        user.DisplayName,
		PreferredAssistant: user.PreferredAssistant,
	})
}
