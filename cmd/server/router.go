package main

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/thereayou/chatify/internal/config"
	"github.com/thereayou/chatify/internal/handlers"
	"github.com/thereayou/chatify/internal/middleware"
	"github.com/thereayou/chatify/pkg/auth"
)

func APIEndpoints(
	r *gin.Engine,
	cfg *config.Config,
	jwtMgr *auth.JWTManager,
	rdb *redis.Client,
	authH *handlers.AuthHandler,
	userH *handlers.UserHandler,
	roomH *handlers.RoomHandler,
	wsH *handlers.WebSocketHandler,
) {
	guard := middleware.AuthMiddleware(jwtMgr, rdb, cfg.Session)

	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/login", authH.Login)
		authGroup.POST("/logout", guard, authH.Logout)
	}

	// API endpoints
	api := r.Group("/api", guard)
	{
		api.GET("/me", userH.GetMe)
		api.PATCH("/me", userH.UpdateProfile)

		api.GET("/rooms", roomH.GetMyRooms)
		api.POST("/rooms", roomH.CreateRoom)
		api.POST("/rooms/join", roomH.JoinRoom)
		api.GET("/rooms/:key", roomH.GetRoom)
		api.POST("/rooms/:key/leave", roomH.LeaveRoom)
		api.DELETE("/rooms/:key", roomH.DeleteRoom)
	}

	// Realtime endpoint
	r.GET("/ws", guard, wsH.HandleWebSocket)
}
