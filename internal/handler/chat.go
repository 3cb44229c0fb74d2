package handler

import (
	"net/http"

	"github.com/HeadupandFace/cbt-companion-app/internal/middleware"
	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/response"
	"github.com/HeadupandFace/cbt-companion-app/internal/service"
)

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req service.ChatRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "chat", err)
		return
	}

	reply, err := h.svc.Chat.Respond(r.Context(), user, req)
	if err != nil {
		middleware.ObserveChat(middleware.ChatOutcomeError)
		h.fail(w, r, "chat", err)
		return
	}

	if reply.CrisisAlert {
		middleware.ObserveChat(middleware.ChatOutcomeCrisis)
	} else {
		middleware.ObserveChat(middleware.ChatOutcomeReply)
	}
	response.OK(w, reply)
}
