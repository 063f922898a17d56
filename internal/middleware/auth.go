package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sparkcoin-backend/internal/services"
	"sparkcoin-backend/internal/store"
)

// AuthMiddleware guards the admin group with the JWTs issued by
// /auth/telegram.
func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Query("token")
			if tokenString == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				c.Abort()
				return
			}
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("telegram_id", claims.TelegramID)

		c.Next()
	}
}

// RateLimitMiddleware throttles the write endpoints per client address.
func RateLimitMiddleware(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		var limit int
		var window time.Duration

		switch {
		case strings.Contains(path, "/sync/unified") && c.Request.Method == http.MethodPost:
			limit = 60 // the client syncs every few seconds
			window = time.Minute
		case strings.Contains(path, "/transfer"):
			limit = 10
			window = time.Minute
		case strings.Contains(path, "/session/check"):
			limit = 60
			window = time.Minute
		default:
			c.Next()
			return
		}

		allowed, err := s.CheckRateLimit(c.Request.Context(), c.ClientIP(), path, limit, window)
		if err != nil || !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
