package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/chatify/internal/config"
	"github.com/thereayou/chatify/internal/models"
	"github.com/thereayou/chatify/internal/storage"
	"github.com/thereayou/chatify/pkg/auth"
)

var testSession = config.Session{
	CookieName: "access_token_cookie",
	CookiePath: "/",
}

type authFixture struct {
	store  storage.Store
	jwtMgr *auth.JWTManager
	router *gin.Engine
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStore()
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)
	h := NewAuthHandler(store, jwtMgr, nil, testSession)
	uh := NewUserHandler(store)

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
	r.PATCH("/api/me", asUser("self"), uh.UpdateProfile)

	return &authFixture{store: store, jwtMgr: jwtMgr, router: r}
}

func sessionCookie(w interface{ Result() *http.Response }) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == testSession.CookieName {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Register(t *testing.T) {
	req := require.New(t)
	f := newAuthFixture(t)

	w := doJSON(t, f.router, http.MethodPost, "/auth/register", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	req.Equal(http.StatusCreated, w.Code)

	cookie := sessionCookie(w)
	req.NotNil(cookie)
	req.True(cookie.HttpOnly)

	claims, err := f.jwtMgr.Verify(cookie.Value)
	req.NoError(err)

	user, err := f.store.FindUser(context.Background(), storage.UserFilter{Username: "alice"})
	req.NoError(err)
	req.NotNil(user)
	req.Equal(user.ID, claims.Subject)
	req.NotEqual("password123", user.PasswordHash)
}

func TestAuthHandler_Register_DuplicateUsername(t *testing.T) {
	req := require.New(t)
	f := newAuthFixture(t)

	payload := gin.H{"username": "alice", "email": "alice@example.com", "password": "password123"}
	w := doJSON(t, f.router, http.MethodPost, "/auth/register", payload)
	req.Equal(http.StatusCreated, w.Code)

	// Повтор и по username, и по email отклоняется до вставки
	w = doJSON(t, f.router, http.MethodPost, "/auth/register", payload)
	req.Equal(http.StatusConflict, w.Code)

	w = doJSON(t, f.router, http.MethodPost, "/auth/register", gin.H{
		"username": "alice2", "email": "alice@example.com", "password": "password123",
	})
	req.Equal(http.StatusConflict, w.Code)
}

func TestAuthHandler_Login(t *testing.T) {
	req := require.New(t)
	f := newAuthFixture(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	req.NoError(err)
	_, err = f.store.CreateUser(context.Background(), &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
	})
	req.NoError(err)

	w := doJSON(t, f.router, http.MethodPost, "/auth/login", gin.H{
		"username": "alice", "password": "password123",
	})
	req.Equal(http.StatusOK, w.Code)
	req.NotNil(sessionCookie(w))

	w = doJSON(t, f.router, http.MethodPost, "/auth/login", gin.H{
		"username": "alice", "password": "wrong",
	})
	req.Equal(http.StatusUnauthorized, w.Code)

	w = doJSON(t, f.router, http.MethodPost, "/auth/login", gin.H{
		"username": "nobody", "password": "password123",
	})
	req.Equal(http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	req := require.New(t)
	f := newAuthFixture(t)

	w := doJSON(t, f.router, http.MethodPost, "/auth/logout", nil)
	req.Equal(http.StatusOK, w.Code)

	cookie := sessionCookie(w)
	req.NotNil(cookie)
	req.Empty(cookie.Value)
	req.Negative(cookie.MaxAge)
}

func TestUserHandler_UpdateProfile_UniquenessCheck(t *testing.T) {
	req := require.New(t)
	f := newAuthFixture(t)

	_, err := f.store.CreateUser(context.Background(), &models.User{
		Username: "taken", Email: "taken@example.com",
	})
	req.NoError(err)

	w := doJSON(t, f.router, http.MethodPatch, "/api/me", gin.H{
		"field": "username", "value": "taken",
	})
	req.Equal(http.StatusConflict, w.Code)

	w = doJSON(t, f.router, http.MethodPatch, "/api/me", gin.H{
		"field": "email", "value": "taken@example.com",
	})
	req.Equal(http.StatusConflict, w.Code)
}
