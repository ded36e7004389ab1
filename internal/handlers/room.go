package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/chatify/internal/handlers/dto"
	"github.com/thereayou/chatify/internal/middleware"
	"github.com/thereayou/chatify/internal/models"
	"github.com/thereayou/chatify/internal/services"
	"github.com/thereayou/chatify/internal/websocket"
)

type RoomHandler struct {
	rooms *services.RoomService
	hub   *websocket.Hub
}

func NewRoomHandler(rooms *services.RoomService, hub *websocket.Hub) *RoomHandler {
	return &RoomHandler{rooms: rooms, hub: hub}
}

// CreateRoom создает комнату; создатель сразу участник
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.Create(c.Request.Context(), req.Name, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, formatRoomResponse(room))
}

// GetMyRooms возвращает комнаты, созданные пользователем
func (h *RoomHandler) GetMyRooms(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)

	rooms, err := h.rooms.RoomsByCreator(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get rooms"})
		return
	}

	response := make([]gin.H, len(rooms))
	for i := range rooms {
		r := formatRoomResponse(&rooms[i])
		r["online_count"] = len(h.hub.RoomSubscribers(rooms[i].Key))
		response[i] = r
	}

	c.JSON(http.StatusOK, gin.H{"rooms": response})
}

// JoinRoom добавляет пользователя в комнату по её ключу; повторный
// join того же пользователя — no-op
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)

	var req dto.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.rooms.Join(c.Request.Context(), req.Key, userID); err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid room key"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join room"})
		return
	}

	room, err := h.rooms.RoomByKey(c.Request.Context(), req.Key)
	if err != nil || room == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join room"})
		return
	}

	c.JSON(http.StatusOK, formatRoomResponse(room))
}

// GetRoom показывает комнату только её участникам
func (h *RoomHandler) GetRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)
	key := c.Param("key")

	room, err := h.rooms.RoomByKey(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}
	if room == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	if !room.HasMember(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this room"})
		return
	}

	response := formatRoomResponse(room)
	response["online_users"] = h.hub.RoomSubscribers(key)

	c.JSON(http.StatusOK, response)
}

// LeaveRoom убирает пользователя из комнаты; создатель выйти не может
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)
	key := c.Param("key")

	if err := h.rooms.Leave(c.Request.Context(), key, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		case errors.Is(err, services.ErrCreatorLeave):
			c.JSON(http.StatusBadRequest, gin.H{"error": "room creator cannot leave room"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to leave room"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left room successfully"})
}

// DeleteRoom удаляет комнату; только для создателя. Подписанные
// соединения не отключаются, но события по этому ключу дальше
// резолвятся как room not found.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)
	key := c.Param("key")

	if err := h.rooms.Delete(c.Request.Context(), key, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		case errors.Is(err, services.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "only room creator can delete room"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete room"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "room deleted successfully"})
}

func formatRoomResponse(room *models.Room) gin.H {
	return gin.H{
		"id":         room.ID,
		"name":       room.Name,
		"key":        room.Key,
		"created_by": room.CreatedBy,
		"created_at": room.CreatedAt,
		"members":    room.Members,
	}
}
