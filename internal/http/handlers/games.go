package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetGame отдаёт снимок игры, персонализированный для вызывающего:
// публичная часть общая, в секции you - собственная роль и слово.
// Чтение вне лока: снимок цельный, до- или после-переходный.
func (h *Handler) GetGame(c *gin.Context) {
	n, ok := gameNumberParam(c)
	if !ok {
		return
	}
	userID, _ := getUserID(c)
	snap, self, err := h.Engine.SnapshotFor(c.Request.Context(), n, userID)
	if err != nil {
		reject(c, "get_game", err)
		return
	}
	resp := gin.H{"game": snap}
	if self != nil {
		resp["you"] = self
	}
	c.JSON(http.StatusOK, resp)
}

// GetResult отдаёт журнал начислений завершённой (или идущей) игры
func (h *Handler) GetResult(c *gin.Context) {
	n, ok := gameNumberParam(c)
	if !ok {
		return
	}
	snap, err := h.Engine.Snapshot(c.Request.Context(), n)
	if err != nil {
		reject(c, "get_result", err)
		return
	}

	ledger, err := h.ScoreRepo.LedgerByGame(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game_number":  snap.GameNumber,
		"state":        snap.State,
		"winning_team": snap.WinningTeam,
		"end_reason":   snap.EndReason,
		"players":      snap.Players,
		"ledger":       ledger,
	})
}

// GetConnections - диагностика стабильности соединений игроков
func (h *Handler) GetConnections(c *gin.Context) {
	n, ok := gameNumberParam(c)
	if !ok {
		return
	}
	statuses, err := h.Engine.ConnectionStatus(c.Request.Context(), n)
	if err != nil {
		reject(c, "get_connections", err)
		return
	}
	recent, err := h.ConnRepo.ListByGame(c.Request.Context(), n, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"game_number": n, "players": statuses, "recent_events": recent})
}
