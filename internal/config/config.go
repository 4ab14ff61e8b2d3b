package config

import (
	"os"
	"strconv"
	"time"

	"liargame_backend/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Phase timings
	HintTurnSeconds    int
	VotingSeconds      int
	DefenseSeconds     int
	FinalVotingSeconds int
	GuessSeconds       int

	// Connection resilience
	GracePeriodSeconds int

	// Ephemeral round state
	RoundStateTTLHours int
	LockTTLSeconds     int

	// Post-round chat window
	PostRoundChatSeconds int

	// Rate limits
	APIRateLimit  int
	APIRateWindow time.Duration
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	apiRateWindow := time.Minute
	if v := os.Getenv("API_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			apiRateWindow = time.Duration(n) * time.Second
		}
	}

	return &Config{
		AppPort:     port,
		DatabaseURL: dbURL,
		JWTSecret:   jwtSecret,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		HintTurnSeconds:    envInt("HINT_TURN_SECONDS", 30),
		VotingSeconds:      envInt("VOTING_SECONDS", 60),
		DefenseSeconds:     envInt("DEFENSE_SECONDS", 45),
		FinalVotingSeconds: envInt("FINAL_VOTING_SECONDS", 30),
		GuessSeconds:       envInt("GUESS_SECONDS", 30),

		GracePeriodSeconds: envInt("GRACE_PERIOD_SECONDS", 30),

		RoundStateTTLHours: envInt("ROUND_STATE_TTL_HOURS", 2),
		LockTTLSeconds:     envInt("LOCK_TTL_SECONDS", 30),

		PostRoundChatSeconds: envInt("POST_ROUND_CHAT_SECONDS", 60),

		APIRateLimit:  envInt("API_RATE_LIMIT", 60),
		APIRateWindow: apiRateWindow,
	}
}

// envInt читает int из env, иначе дефолт
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
