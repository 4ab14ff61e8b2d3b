package middleware

import (
	"net/http"
	"strings"

	"liargame_backend/internal/service"

	"github.com/gin-gonic/gin"
)

// JWT проверяет Authorization: Bearer и кладёт user_id/nickname в контекст
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required", "code": "UNAUTHORIZED"})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required", "code": "UNAUTHORIZED"})
			return
		}

		userID, nickname, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "UNAUTHORIZED"})
			return
		}

		c.Set("user_id", userID)
		c.Set("nickname", nickname)
		c.Next()
	}
}
