package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"workshop-chat-service/internal/auth"
	"workshop-chat-service/internal/chat"
	"workshop-chat-service/internal/middleware"
	"workshop-chat-service/internal/models"
	"workshop-chat-service/internal/repositories"
)

// RoomsHandler serves room listings, history pages, read receipts and the
// administrative room delete.
type RoomsHandler struct {
	rooms    *chat.RoomService
	messages *chat.MessageService
	adminKey string
}

// NewRoomsHandler builds a RoomsHandler.
func NewRoomsHandler(rooms *chat.RoomService, messages *chat.MessageService, adminKey string) *RoomsHandler {
	return &RoomsHandler{rooms: rooms, messages: messages, adminKey: adminKey}
}

// ListRooms returns the ids of every room the caller participates in.
func (h *RoomsHandler) ListRooms(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	ids, err := h.rooms.RoomIDsFor(c.Request.Context(), identity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}
	if ids == nil {
		ids = []int{}
	}
	c.JSON(http.StatusOK, gin.H{"room_ids": ids})
}

// GetMessages returns a descending history window for a room the caller
// belongs to.
func (h *RoomsHandler) GetMessages(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	room, err := h.roomForParticipant(c, identity, roomID)
	if err != nil {
		return
	}

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	msgs, err := h.messages.Page(c.Request.Context(), room.ID, offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// MarkRead stamps every unread message from the opposite role as read.
func (h *RoomsHandler) MarkRead(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	room, err := h.roomForParticipant(c, identity, roomID)
	if err != nil {
		return
	}

	count, err := h.messages.MarkReadForRole(c.Request.Context(), room.ID, identity.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}

// DeleteRoom removes a room and its messages. This is an administrative
// action gated by the admin key, not a participant operation.
func (h *RoomsHandler) DeleteRoom(c *gin.Context) {
	if h.adminKey == "" || c.GetHeader("X-Admin-Key") != h.adminKey {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin key required"})
		return
	}
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	if err := h.rooms.Delete(c.Request.Context(), roomID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		case errors.Is(err, repositories.ErrRoomConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "room concurrently modified"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete room"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// roomForParticipant loads the room and enforces membership, writing the
// response itself on failure.
func (h *RoomsHandler) roomForParticipant(c *gin.Context, identity auth.Identity, roomID int) (models.Room, error) {
	room, err := h.rooms.GetByID(c.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return models.Room{}, err
	}

	if err := h.rooms.ValidateParticipant(c.Request.Context(), identity, room); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chat.ErrNotParticipant) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": "not a room participant"})
		return models.Room{}, err
	}
	return room, nil
}
