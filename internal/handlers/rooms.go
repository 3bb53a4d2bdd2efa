package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"syncroom-service/internal/auth"
	"syncroom-service/internal/chat"
	"syncroom-service/internal/models"
	"syncroom-service/internal/repositories"
	"syncroom-service/internal/telemetry"
	"syncroom-service/internal/ws"
)

// RoomHandler serves the room administration and history endpoints.
type RoomHandler struct {
	members   repositories.MembershipRepository
	messages  repositories.MessageRepository
	reactions repositories.ReactionRepository
	files     repositories.FileRepository
	gate      *auth.Gate
	router    *chat.Router
	hub       *ws.Hub
	audit     *telemetry.AuditEmitter
}

// NewRoomHandler constructs a RoomHandler.
func NewRoomHandler(
	members repositories.MembershipRepository,
	messages repositories.MessageRepository,
	reactions repositories.ReactionRepository,
	files repositories.FileRepository,
	gate *auth.Gate,
	router *chat.Router,
	hub *ws.Hub,
	audit *telemetry.AuditEmitter,
) *RoomHandler {
	return &RoomHandler{
		members:   members,
		messages:  messages,
		reactions: reactions,
		files:     files,
		gate:      gate,
		router:    router,
		hub:       hub,
		audit:     audit,
	}
}

// GetMessages returns the room's message history with reactions and
// denormalized author names.
func (h *RoomHandler) GetMessages(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if _, err := h.gate.RequireMember(c.Request.Context(), roomID, userID); err != nil {
		h.denied(c, err)
		return
	}

	msgs, err := h.messages.ListForRoom(c.Request.Context(), roomID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	reactions, err := h.reactions.ListForRoom(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reactions"})
		return
	}
	reactionsByMessage := lo.GroupBy(reactions, func(r models.Reaction) int { return r.MessageID })

	roomMembers, err := h.members.ListMembers(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}
	nameByID := lo.SliceToMap(roomMembers, func(m models.Member) (int, string) {
		return m.UserID, m.Username
	})

	type messageResponse struct {
		models.Message
		AuthorName string            `json:"author_name"`
		Reactions  []models.Reaction `json:"reactions"`
	}

	resp := lo.Map(msgs, func(m models.Message, _ int) messageResponse {
		name := models.AssistantName
		if m.AuthorID != nil {
			name = nameByID[*m.AuthorID]
		}
		return messageResponse{
			Message:    m,
			AuthorName: name,
			Reactions:  reactionsByMessage[m.ID],
		}
	})

	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

// DeleteMessage removes a message through the same authorized pipeline the
// websocket path uses, so the room sees the deletion event either way.
func (h *RoomHandler) DeleteMessage(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := c.GetInt("userID")
	if err := h.router.DeleteMessage(c.Request.Context(), roomID, userID, messageID); err != nil {
		h.denied(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Message deleted")
	c.Status(http.StatusNoContent)
}

// ListMembers returns the room's membership roster.
func (h *RoomHandler) ListMembers(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if _, err := h.gate.RequireMember(c.Request.Context(), roomID, userID); err != nil {
		h.denied(c, err)
		return
	}

	roomMembers, err := h.members.ListMembers(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": roomMembers})
}

// KickMember removes a member and drops their live sessions.
func (h *RoomHandler) KickMember(c *gin.Context) {
	roomID, targetID, ok := parseRoomAndUserID(c)
	if !ok {
		return
	}

	actorID := c.GetInt("userID")
	if _, err := h.gate.AuthorizeKick(c.Request.Context(), roomID, actorID, targetID); err != nil {
		h.emitAudit(c, "ERROR", "not allowed")
		h.denied(c, err)
		return
	}

	if err := h.members.RemoveMember(c.Request.Context(), roomID, targetID); err != nil {
		if errors.Is(err, repositories.ErrNotAMember) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove member"})
		return
	}

	h.hub.KickUser(roomID, targetID)
	h.emitAudit(c, "INFO", "Member removed")
	c.Status(http.StatusNoContent)
}

// UpdateMemberRole promotes or demotes a member. Owner only.
func (h *RoomHandler) UpdateMemberRole(c *gin.Context) {
	roomID, targetID, ok := parseRoomAndUserID(c)
	if !ok {
		return
	}

	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Role.Valid() || req.Role == models.RoleOwner {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	actorID := c.GetInt("userID")
	if _, err := h.gate.AuthorizeRoleChange(c.Request.Context(), roomID, actorID, targetID); err != nil {
		h.emitAudit(c, "ERROR", "not allowed")
		h.denied(c, err)
		return
	}

	if err := h.members.UpdateRole(c.Request.Context(), roomID, targetID, req.Role); err != nil {
		if errors.Is(err, repositories.ErrNotAMember) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update role"})
		return
	}

	h.emitAudit(c, "INFO", "Member role updated")
	c.Status(http.StatusNoContent)
}

// DeleteRoom tears down the room. Owner only; live sessions are closed.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	actorID := c.GetInt("userID")
	if _, err := h.gate.AuthorizeRoomDelete(c.Request.Context(), roomID, actorID); err != nil {
		h.emitAudit(c, "ERROR", "not allowed")
		h.denied(c, err)
		return
	}

	if err := h.members.DeleteRoom(c.Request.Context(), roomID); err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete room"})
		return
	}

	h.hub.CloseRoom(roomID)
	h.emitAudit(c, "INFO", "Room deleted")
	c.Status(http.StatusNoContent)
}

// ListFiles returns the room's uploaded file metadata.
func (h *RoomHandler) ListFiles(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if _, err := h.gate.RequireMember(c.Request.Context(), roomID, userID); err != nil {
		h.denied(c, err)
		return
	}

	files, err := h.files.ListForRoom(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load files"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// DeleteFile removes file metadata. Uploaders may delete their own files;
// otherwise admin or owner is required.
func (h *RoomHandler) DeleteFile(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	fileID, err := strconv.Atoi(c.Param("file_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	file, err := h.files.Get(c.Request.Context(), fileID)
	if err != nil || file.RoomID != roomID {
		// Absence and wrong-room look like any other denial to non-admins.
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	actorID := c.GetInt("userID")
	uploaderID := file.UploaderID
	if _, err := h.gate.AuthorizeDelete(c.Request.Context(), roomID, actorID, &uploaderID); err != nil {
		h.emitAudit(c, "ERROR", "not allowed")
		h.denied(c, err)
		return
	}

	if err := h.files.Delete(c.Request.Context(), fileID); err != nil && !errors.Is(err, repositories.ErrFileNotFound) {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete file"})
		return
	}

	h.emitAudit(c, "INFO", "File deleted")
	c.Status(http.StatusNoContent)
}

func (h *RoomHandler) denied(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrNotAMember):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
	case errors.Is(err, auth.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	default:
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *RoomHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func parseRoomID(c *gin.Context) (int, bool) {
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return 0, false
	}
	return roomID, true
}

func parseRoomAndUserID(c *gin.Context) (int, int, bool) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return 0, 0, false
	}
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, 0, false
	}
	return roomID, userID, true
}
