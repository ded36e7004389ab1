package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/chatify/internal/handlers/dto"
	"github.com/thereayou/chatify/internal/middleware"
	"github.com/thereayou/chatify/internal/storage"
)

type UserHandler struct {
	store storage.Store
}

func NewUserHandler(store storage.Store) *UserHandler {
	return &UserHandler{store: store}
}

// GetMe возвращает профиль текущего пользователя
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)

	user, err := h.store.FindUser(c.Request.Context(), storage.UserFilter{ID: userID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"created_at": user.CreatedAt,
	})
}

// UpdateProfile меняет одно поле профиля. Для username и email —
// та же проверка уникальности запросом перед записью, что и при
// регистрации, с исключением самого пользователя.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(string)

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var patch storage.UserPatch

	switch req.Field {
	case "username":
		existing, err := h.store.FindUser(ctx, storage.UserFilter{Username: req.Value})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
			return
		}
		if existing != nil && existing.ID != userID {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
			return
		}
		patch.Username = req.Value

	case "email":
		existing, err := h.store.FindUser(ctx, storage.UserFilter{Email: req.Value})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
			return
		}
		if existing != nil && existing.ID != userID {
			c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
			return
		}
		patch.Email = req.Value

	case "password":
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Value), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot hash password"})
			return
		}
		patch.PasswordHash = string(hash)
	}

	if err := h.store.UpdateUser(ctx, userID, patch); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "profile updated successfully"})
}
