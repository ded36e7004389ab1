package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/chatify/internal/config"
	"github.com/thereayou/chatify/internal/handlers/dto"
	"github.com/thereayou/chatify/internal/middleware"
	"github.com/thereayou/chatify/internal/models"
	"github.com/thereayou/chatify/internal/storage"
	"github.com/thereayou/chatify/pkg/auth"
)

type AuthHandler struct {
	store      storage.Store
	jwtManager *auth.JWTManager
	redis      *redis.Client
	session    config.Session
}

func NewAuthHandler(store storage.Store, jwtMgr *auth.JWTManager, rdb *redis.Client, session config.Session) *AuthHandler {
	return &AuthHandler{store: store, jwtManager: jwtMgr, redis: rdb, session: session}
}

// Register создает пользователя и сразу выдаёт сессию.
// Уникальность username/email проверяется запросом перед вставкой;
// бэкенд её не гарантирует, гонка одновременных регистраций возможна.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	byUsername, err := h.store.FindUser(ctx, storage.UserFilter{Username: req.Username})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}
	byEmail, err := h.store.FindUser(ctx, storage.UserFilter{Email: req.Email})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}
	if byUsername != nil || byEmail != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username or email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot hash password"})
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	id, err := h.store.CreateUser(ctx, user)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to create user"})
		return
	}
	user.ID = id

	if err := h.issueSession(c, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// Login проверяет пароль и выдаёт сессионный cookie
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.FindUser(c.Request.Context(), storage.UserFilter{Username: req.Username})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	if err := h.issueSession(c, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
	})
}

// Logout гасит cookie и ставит токен в черный список до истечения
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := auth.ExtractToken(c.Request, h.session.CookieName)
	if err == nil && h.redis != nil {
		if exp, err := h.jwtManager.Expiry(token); err == nil {
			ttl := time.Until(exp)
			if ttl > 0 {
				if err := h.redis.Set(c.Request.Context(), "blacklist:"+token, 1, ttl).Err(); err != nil {
					log.Warn().Err(err).Msg("failed to blacklist token")
				}
			}
		}
	}

	c.SetCookie(h.session.CookieName, "", -1, h.session.CookiePath, "", false, true)
	if h.session.CSRFProtect {
		c.SetCookie(middleware.CSRFCookieName, "", -1, h.session.CookiePath, "", false, false)
	}
	c.Status(http.StatusOK)
}

func (h *AuthHandler) issueSession(c *gin.Context, userID string) error {
	token, err := h.jwtManager.Generate(userID)
	if err != nil {
		return err
	}

	maxAge := int(h.jwtManager.TokenDuration() / time.Second)
	c.SetCookie(h.session.CookieName, token, maxAge, h.session.CookiePath, "", false, true)

	// CSRF cookie читается скриптом клиента, поэтому не HttpOnly
	if h.session.CSRFProtect {
		csrf, err := randomToken()
		if err != nil {
			return err
		}
		c.SetCookie(middleware.CSRFCookieName, csrf, maxAge, h.session.CookiePath, "", false, false)
	}
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
