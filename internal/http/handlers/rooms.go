package handlers

import (
	"net/http"
	"strconv"

	"liargame_backend/internal/domain"
	"liargame_backend/internal/engine"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	TotalRounds int    `json:"total_rounds"`
	LiarCount   int    `json:"liar_count"`
	Mode        string `json:"mode"`
	CitizenWord string `json:"citizen_word"`
	LiarWord    string `json:"liar_word"`
}

func (h *Handler) CreateRoom(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}

	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "BAD_REQUEST"})
		return
	}
	mode := domain.GameMode(req.Mode)
	if mode != "" && mode != domain.ModeLiarsSameWord && mode != domain.ModeLiarsDifferentWord {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown game mode", "code": "BAD_REQUEST"})
		return
	}

	g, err := h.Engine.CreateRoom(c.Request.Context(), userID, getNickname(c), engine.CreateRoomParams{
		TotalRounds: req.TotalRounds,
		LiarCount:   req.LiarCount,
		Mode:        mode,
		CitizenWord: req.CitizenWord,
		LiarWord:    req.LiarWord,
	})
	if err != nil {
		reject(c, "create_room", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"game_number": g.GameNumber})
}

func gameNumberParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game number", "code": "BAD_REQUEST"})
		return 0, false
	}
	return n, true
}

func (h *Handler) JoinRoom(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}
	n, ok := gameNumberParam(c)
	if !ok {
		return
	}

	p, err := h.Engine.JoinRoom(c.Request.Context(), n, userID, getNickname(c))
	if err != nil {
		reject(c, "join_room", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game_number": n, "nickname": p.Nickname})
}

func (h *Handler) LeaveRoom(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}
	n, ok := gameNumberParam(c)
	if !ok {
		return
	}

	if err := h.Engine.LeaveRoom(c.Request.Context(), n, userID); err != nil {
		reject(c, "leave_room", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) StartGame(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}
	n, ok := gameNumberParam(c)
	if !ok {
		return
	}

	if err := h.Engine.StartGame(c.Request.Context(), n, userID); err != nil {
		reject(c, "start_game", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
