package http

import (
	"liargame_backend/internal/config"
	"liargame_backend/internal/engine"
	"liargame_backend/internal/http/handlers"
	"liargame_backend/internal/http/middleware"
	"liargame_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

func RegisterRoutes(r *gin.Engine, cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client, eng *engine.Engine, hub *ws.Hub, version string) {
	h := handlers.NewHandler(db, eng)
	healthHandler := handlers.NewHealthHandler(db, rdb, version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))

	rooms := v1.Group("/rooms")
	rooms.Use(middleware.JWT())
	{
		rooms.POST("", h.CreateRoom)
		rooms.POST("/:number/join", h.JoinRoom)
		rooms.POST("/:number/leave", h.LeaveRoom)
		rooms.POST("/:number/start", h.StartGame)
	}

	games := v1.Group("/games")
	games.Use(middleware.JWT())
	{
		games.GET("/:number", h.GetGame)
		games.GET("/:number/result", h.GetResult)
		games.GET("/:number/connections", h.GetConnections)

		games.POST("/:number/hint", h.SubmitHint)
		games.POST("/:number/vote", h.CastVote)
		games.POST("/:number/defense", h.SubmitDefense)
		games.POST("/:number/final-vote", h.CastFinalVote)
		games.POST("/:number/guess", h.SubmitGuess)
	}

	// WebSocket: подписка на топик игры
	r.GET("/ws", h.WS(hub))
}
