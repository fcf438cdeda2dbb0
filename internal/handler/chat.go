package handler

import (
	"github.com/gin-gonic/gin"

	"yieldhunter/internal/apperr"
	"yieldhunter/internal/chat"
	"yieldhunter/internal/session"
	"yieldhunter/internal/wallet"
)

type ChatHandler struct {
	Chat    *chat.Manager
	Wallets *wallet.Manager
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *ChatHandler) Register(r *gin.Engine) {
	g := r.Group("/api/chat")
	g.POST("", h.send)
	g.DELETE("", h.clear)
}

// @Summary Ask the assistant
// @Tags chat
// @Accept json
// @Param body body chatRequest true "message"
// @Success 200 {object} chat.Reply
// @Failure 401 {object} errorResponse
// @Router /api/chat [post]
func (h *ChatHandler) send(c *gin.Context) {
	sid := session.ID(c)
	if !h.Wallets.Connected(c.Request.Context(), sid) {
		fail(c, apperr.NotConnected("Not authenticated"))
		return
	}
	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}
	reply, err := h.Chat.Process(c.Request.Context(), sid, req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, reply)
}

// @Summary Clear the chat history
// @Tags chat
// @Success 200 {object} map[string]bool
// @Router /api/chat [delete]
func (h *ChatHandler) clear(c *gin.Context) {
	if err := h.Chat.Clear(c.Request.Context(), session.ID(c)); err != nil {
		fail(c, err)
		return
	}
	Ok(c, gin.H{"success": true})
}
