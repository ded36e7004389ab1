package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/thereayou/chatify/internal/config"
	"github.com/thereayou/chatify/pkg/auth"
)

const UserIDKey = "userID"

// CSRFCookieName — cookie для схемы double submit
const CSRFCookieName = "csrf_token"

// CSRFHeaderName — заголовок, обязанный повторить значение cookie
const CSRFHeaderName = "X-CSRF-Token"

// LoginRedirect — куда клиенту идти после отказа в авторизации
const LoginRedirect = "/auth/login"

// AuthMiddleware проверяет токен сессии из cookie (или заголовка для
// не-браузерных клиентов) и кладёт id пользователя в контекст. Один и
// тот же guard стоит и перед страничными маршрутами, и перед
// websocket-апгрейдом.
func AuthMiddleware(jwtManager *auth.JWTManager, redisClient *redis.Client, session config.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractToken(c.Request, session.CookieName)
		if err != nil {
			deny(c, "authentication required")
			return
		}

		// Токены, отозванные через logout, лежат в черном списке до
		// их естественного истечения. Без Redis проверка пропускается.
		if redisClient != nil {
			exists, err := redisClient.Exists(c.Request.Context(), "blacklist:"+token).Result()
			if err != nil {
				log.Warn().Err(err).Msg("token blacklist check failed")
			} else if exists > 0 {
				deny(c, "token is revoked")
				return
			}
		}

		claims, err := jwtManager.Verify(token)
		if err != nil {
			deny(c, "invalid or expired token")
			return
		}

		if session.CSRFProtect && c.Request.Method != http.MethodGet {
			cookie, err := c.Cookie(CSRFCookieName)
			if err != nil || cookie == "" || c.GetHeader(CSRFHeaderName) != cookie {
				c.JSON(http.StatusForbidden, gin.H{"error": "csrf token mismatch"})
				c.Abort()
				return
			}
		}

		c.Set(UserIDKey, claims.Subject)
		c.Next()
	}
}

// deny — типизированный отказ: 401 и подсказка о редиректе на логин
// вместо серверного рендера страницы
func deny(c *gin.Context, reason string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":    reason,
		"redirect": LoginRedirect,
	})
	c.Abort()
}
