package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"syncroom-service/internal/assistant"
	"syncroom-service/internal/chat"
	"syncroom-service/internal/telemetry"
)

// AssistantHandler serves the direct assistant channel.
type AssistantHandler struct {
	relay *assistant.Relay
	audit *telemetry.AuditEmitter
}

// NewAssistantHandler constructs an AssistantHandler.
func NewAssistantHandler(relay *assistant.Relay, audit *telemetry.AuditEmitter) *AssistantHandler {
	return &AssistantHandler{relay: relay, audit: audit}
}

// Chat handles one turn of the caller's private assistant conversation.
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	reply, err := h.relay.DirectChat(c.Request.Context(), userID, req.Body)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyBody) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty body"})
			return
		}
		h.emitAudit(c, "ERROR", "assistant completion failed")
		c.JSON(http.StatusOK, gin.H{"reply": assistant.FailureReply})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// History returns the caller's recent assistant turns, oldest first.
func (h *AssistantHandler) History(c *gin.Context) {
	userID := c.GetInt("userID")
	turns, err := h.relay.History(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"turns": turns})
}

func (h *AssistantHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
