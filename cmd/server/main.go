package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thereayou/chatify/internal/config"
	"github.com/thereayou/chatify/internal/handlers"
	"github.com/thereayou/chatify/internal/services"
	"github.com/thereayou/chatify/internal/storage"
	ws "github.com/thereayou/chatify/internal/websocket"
	"github.com/thereayou/chatify/pkg/auth"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store := selectStore(cfg)
	defer store.Close(context.Background())

	rdb := connectRedis(cfg.RedisURL)

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	hub := ws.NewHub()
	go hub.Run()

	roomSvc := services.NewRoomService(store)

	authH := handlers.NewAuthHandler(store, jwtMgr, rdb, cfg.Session)
	userH := handlers.NewUserHandler(store)
	roomH := handlers.NewRoomHandler(roomSvc, hub)
	eventH := handlers.NewEventHandler(store, roomSvc, hub)
	wsH := handlers.NewWebSocketHandler(hub, eventH, cfg.AllowedOrigins)

	router := gin.Default()
	APIEndpoints(router, cfg, jwtMgr, rdb, authH, userH, roomH, wsH)

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server run error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	hub.Stop()
}

// selectStore выбирает бэкенд один раз на старте процесса. Недоступный
// Mongo — не фатальная ошибка: процесс деградирует на in-memory
// хранилище с постоянным предупреждением в логе.
func selectStore(cfg *config.Config) storage.Store {
	if cfg.MongoURI == "" {
		log.Warn().Msg("MONGODB_URI is not set, using in-memory storage - data will be lost on restart")
		return storage.NewMemoryStore()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := storage.ConnectMongo(ctx, cfg.MongoURI, cfg.DatabaseName, cfg.UsersCollection, cfg.RoomsCollection)
	if err != nil {
		log.Warn().Err(err).Msg("mongodb connection failed, falling back to in-memory storage - data will be lost on restart")
		return storage.NewMemoryStore()
	}

	log.Info().Str("database", cfg.DatabaseName).Msg("connected to mongodb")
	return store
}

// connectRedis подключает Redis для черного списка токенов; без него
// logout деградирует до простого сброса cookie
func connectRedis(url string) *redis.Client {
	if url == "" {
		log.Warn().Msg("REDIS_URL is not set, token blacklist disabled")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Warn().Err(err).Msg("invalid REDIS_URL, token blacklist disabled")
		return nil
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn().Err(err).Msg("redis connection failed, token blacklist disabled")
		return nil
	}
	return rdb
}
