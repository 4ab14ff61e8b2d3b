package handlers

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"liargame_backend/internal/service"
	"liargame_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WS подключает клиента к топику игры: token и game в query,
// дальше только broadcast и присутствие
func (h *Handler) WS(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required", "code": "UNAUTHORIZED"})
			return
		}
		userID, nickname, err := service.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "UNAUTHORIZED"})
			return
		}

		gameNumber, err := strconv.Atoi(c.Query("game"))
		if err != nil || gameNumber <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "game number required", "code": "BAD_REQUEST"})
			return
		}

		allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("ws upgrade error:", err)
			return
		}

		client := ws.NewClient(userID, nickname, gameNumber, conn, hub)
		go client.Run()
	}
}
