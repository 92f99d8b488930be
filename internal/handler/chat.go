package handler

import (
	"encoding/json"
	"net/http"

	"github.com/neristhub/campushub/internal/chatbot"
)

// ChatHandler serves POST /api/chat. The bot never fails, so neither does
// this endpoint: even a dead upstream answers 200 with a canned reply.
type ChatHandler struct {
	bot *chatbot.Bot
}

func NewChatHandler(bot *chatbot.Bot) *ChatHandler {
	return &ChatHandler{bot: bot}
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	// A malformed body is treated like an empty question.
	_ = json.NewDecoder(r.Body).Decode(&req)

	reply := h.bot.Reply(r.Context(), req.Message)
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}
