package handlers

import (
	"errors"
	"net/http"

	"liargame_backend/internal/engine"
	"liargame_backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	DB        *pgxpool.Pool
	Engine    *engine.Engine
	ScoreRepo *repository.ScoreRepository
	ConnRepo  *repository.ConnectionLogRepository
}

func NewHandler(db *pgxpool.Pool, eng *engine.Engine) *Handler {
	return &Handler{
		DB:        db,
		Engine:    eng,
		ScoreRepo: repository.NewScoreRepository(db),
		ConnRepo:  repository.NewConnectionLogRepository(db),
	}
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func getNickname(c *gin.Context) string {
	v, ok := c.Get("nickname")
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// reject превращает ошибку движка в ответ с кодом причины.
// Никакой мутации состояния за отклонённым действием не стоит.
func reject(c *gin.Context, action string, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, engine.ErrGameNotFound):
		status, code = http.StatusNotFound, "GAME_NOT_FOUND"
	case errors.Is(err, engine.ErrNotParticipant):
		status, code = http.StatusForbidden, "NOT_PARTICIPANT"
	case errors.Is(err, engine.ErrInvalidPhase):
		status, code = http.StatusConflict, "INVALID_PHASE"
	case errors.Is(err, engine.ErrDuplicateSubmission):
		status, code = http.StatusConflict, "DUPLICATE_SUBMISSION"
	case errors.Is(err, engine.ErrNotYourTurn):
		status, code = http.StatusConflict, "NOT_YOUR_TURN"
	case errors.Is(err, engine.ErrNotOwner):
		status, code = http.StatusForbidden, "NOT_OWNER"
	case errors.Is(err, engine.ErrGameNotJoinable):
		status, code = http.StatusConflict, "GAME_NOT_JOINABLE"
	case errors.Is(err, engine.ErrAlreadyJoined):
		status, code = http.StatusConflict, "ALREADY_JOINED"
	case errors.Is(err, engine.ErrRoomFull):
		status, code = http.StatusConflict, "ROOM_FULL"
	case errors.Is(err, engine.ErrCannotStart):
		status, code = http.StatusConflict, "CANNOT_START"
	case errors.Is(err, engine.ErrInvalidTarget):
		status, code = http.StatusBadRequest, "INVALID_TARGET"
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	engine.ActionsRejected.WithLabelValues(action, code).Inc()
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
