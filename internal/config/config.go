package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port string `envconfig:"PORT" default:"8080"`

	// Пустой URI сразу включает in-memory хранилище
	MongoURI        string `envconfig:"MONGODB_URI"`
	DatabaseName    string `envconfig:"DATABASE_NAME" default:"chatify_db"`
	UsersCollection string `envconfig:"USERS_COLLECTION" default:"users"`
	RoomsCollection string `envconfig:"ROOMS_COLLECTION" default:"rooms"`

	RedisURL string `envconfig:"REDIS_URL"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:"jwt-secret-key-change-this"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	Session Session

	// Разрешённые Origin для websocket-подключений, "*" — любой
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

type Session struct {
	CookieName string `envconfig:"SESSION_COOKIE_NAME" default:"access_token_cookie"`
	CookiePath string `envconfig:"SESSION_COOKIE_PATH" default:"/"`

	// CSRF-защита по схеме double submit; выключена по умолчанию —
	// осознанный выбор конфигурации, совместимый с cookie-клиентами
	CSRFProtect bool `envconfig:"SESSION_CSRF_PROTECT" default:"false"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
