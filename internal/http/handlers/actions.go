package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Действия раунда: по одной операции на фазу. Валидация тела здесь,
// игровые проверки в движке.

type textRequest struct {
	Text string `json:"text"`
}

type voteRequest struct {
	TargetID int64 `json:"target_id" binding:"required"`
}

type finalVoteRequest struct {
	Verdict *bool `json:"verdict" binding:"required"`
}

func (h *Handler) SubmitHint(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}
	n, ok := gameNumberParam(c)
	if !ok {
		return
	}
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "BAD_REQUEST"})
		return
	}

	if err := h.Engine.SubmitHint(c.Request.Context(), n, userID, req.Text); err != nil {
		reject(c, "submit_hint", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) CastVote(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}
	n, ok := gameNumberParam(c)
	if !ok {
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_id required", "code": "BAD_REQUEST"})
		return
	}

	if err := h.Engine.CastVote(c.Request.Context(), n, userID, req.TargetID); err != nil {
		reject(c, "cast_vote", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) SubmitDefense(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}
	n, ok := gameNumberParam(c)
	if !ok {
		return
	}
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "BAD_REQUEST"})
		return
	}

	if err := h.Engine.SubmitDefense(c.Request.Context(), n, userID, req.Text); err != nil {
		reject(c, "submit_defense", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) CastFinalVote(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}
	n, ok := gameNumberParam(c)
	if !ok {
		return
	}
	var req finalVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Verdict == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "verdict required", "code": "BAD_REQUEST"})
		return
	}

	if err := h.Engine.CastFinalVote(c.Request.Context(), n, userID, *req.Verdict); err != nil {
		reject(c, "cast_final_vote", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) SubmitGuess(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}
	n, ok := gameNumberParam(c)
	if !ok {
		return
	}
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "BAD_REQUEST"})
		return
	}

	if err := h.Engine.SubmitGuess(c.Request.Context(), n, userID, req.Text); err != nil {
		reject(c, "submit_guess", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
