package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"liargame_backend/internal/config"
	"liargame_backend/internal/db"
	"liargame_backend/internal/engine"
	httpServer "liargame_backend/internal/http"
	"liargame_backend/internal/http/middleware"
	"liargame_backend/internal/logger"
	"liargame_backend/internal/repository"
	"liargame_backend/internal/service"
	"liargame_backend/internal/store"
	"liargame_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")

	cfg := config.Load()
	service.InitJWT(cfg.JWTSecret)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	// редис опционален: без него раунд живёт на памяти одного инстанса
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, running memory-only", "error", err)
			rdb = nil
		}
		cancel()
	}
	middleware.SetRedisClient(rdb)

	hub := ws.NewHub()
	eng := engine.New(cfg,
		repository.NewGameRepository(dbPool),
		repository.NewPlayerRepository(dbPool),
		repository.NewScoreRepository(dbPool),
		repository.NewConnectionLogRepository(dbPool),
		store.New(rdb, time.Duration(cfg.RoundStateTTLHours)*time.Hour),
		hub,
	)
	hub.SetPresence(eng)

	// таймеры фаз живут в памяти процесса: после рестарта застрявшие
	// за дедлайном игры прогоняются до приёма трафика
	if err := eng.RecoverStaleGames(context.Background()); err != nil {
		logger.Error("stale game recovery failed", "error", err)
	}

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, cfg, dbPool, rdb, eng, hub, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
