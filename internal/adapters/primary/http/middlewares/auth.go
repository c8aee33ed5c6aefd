package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/admin/astro-agent/internal/ports/usecase"
	"github.com/admin/astro-agent/internal/services/auth"
)

const userIDKey = "user_id"

// JWTAuth проверяет Bearer токен и кладёт идентификатор пользователя в контекст
func JWTAuth(tokens usecase.ITokenValidator, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		userID, err := tokens.Validate(token)
		if err != nil {
			log.Debug("rejected token", "error", err, "path", c.Request.URL.Path)
			if errors.Is(err, auth.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID идентификатор пользователя, положенный JWTAuth
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
