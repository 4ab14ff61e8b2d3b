package engine

import (
	"context"
	"time"

	"liargame_backend/internal/domain"
	"liargame_backend/internal/logger"
	"liargame_backend/internal/ws"
)

// PlayerView - публичная проекция игрока (роль и слово не раскрываются)
type PlayerView struct {
	UserID        int64  `json:"user_id"`
	Nickname      string `json:"nickname"`
	Alive         bool   `json:"alive"`
	Connected     bool   `json:"connected"`
	VotesReceived int    `json:"votes_received"`
	HasSubmitted  bool   `json:"has_submitted"`
	Score         int    `json:"score"`
	IsWinner      bool   `json:"is_winner"`
}

// GameSnapshot - цельный снимок игры для клиентов. Публикуется только
// после освобождения лока, чтобы никто не увидел полусобранное состояние.
type GameSnapshot struct {
	GameNumber    int                 `json:"game_number"`
	Owner         string              `json:"owner"`
	State         domain.GameState    `json:"state"`
	Mode          domain.GameMode     `json:"mode"`
	TotalRounds   int                 `json:"total_rounds"`
	CurrentRound  int                 `json:"current_round"`
	CurrentPhase  domain.Phase        `json:"current_phase"`
	TimeRemaining int                 `json:"time_remaining"`
	CurrentTurnID *int64              `json:"current_turn_id,omitempty"`
	AccusedID     *int64              `json:"accused_id,omitempty"`
	WinningTeam   *domain.WinningTeam `json:"winning_team,omitempty"`
	EndReason     string              `json:"end_reason,omitempty"`
	Players       []PlayerView        `json:"players"`
}

// SelfView - личная секция вызывающего: собственная роль и слово.
// Наружу не вещается, отдаётся только автору запроса.
type SelfView struct {
	UserID           int64       `json:"user_id"`
	Role             domain.Role `json:"role"`
	Word             string      `json:"word"`
	Alive            bool        `json:"alive"`
	GuessSecondsLeft *int        `json:"guess_seconds_left,omitempty"`
}

func BuildSnapshot(g *domain.Game, players []*domain.Player, now time.Time) GameSnapshot {
	snap := GameSnapshot{
		GameNumber:   g.GameNumber,
		Owner:        g.Owner,
		State:        g.State,
		Mode:         g.Mode,
		TotalRounds:  g.TotalRounds,
		CurrentRound: g.CurrentRound,
		CurrentPhase: g.CurrentPhase,
		AccusedID:    g.AccusedPlayerID,
		WinningTeam:  g.WinningTeam,
		EndReason:    g.EndReason,
	}
	if g.PhaseDeadline != nil {
		if rem := int(g.PhaseDeadline.Sub(now).Seconds()); rem > 0 {
			snap.TimeRemaining = rem
		}
	}
	if g.CurrentPhase == domain.PhaseSpeech {
		order := g.TurnOrderIDs()
		if g.CurrentTurnIndex >= 0 && g.CurrentTurnIndex < len(order) {
			id := order[g.CurrentTurnIndex]
			snap.CurrentTurnID = &id
		}
	}
	for _, p := range players {
		snap.Players = append(snap.Players, PlayerView{
			UserID:        p.UserID,
			Nickname:      p.Nickname,
			Alive:         p.Alive,
			Connected:     p.Connected,
			VotesReceived: p.VotesReceived,
			HasSubmitted:  p.HasSubmitted,
			Score:         p.Score,
			IsWinner:      p.IsWinner,
		})
	}
	return snap
}

// Snapshot читает игру вне лока; допустимо увидеть состояние до или
// после перехода, но не смесь.
func (e *Engine) Snapshot(ctx context.Context, gameNumber int) (*GameSnapshot, error) {
	g, err := e.games.GetByNumber(ctx, gameNumber)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGameNotFound
	}
	players, err := e.players.ListByGame(ctx, gameNumber)
	if err != nil {
		return nil, err
	}
	snap := BuildSnapshot(g, players, time.Now())
	return &snap, nil
}

// SnapshotFor - снимок, дополненный личной секцией участника: публичная
// проекция та же, но вызывающий видит свою роль и своё слово. До старта
// игры роли не розданы, секция пустая.
func (e *Engine) SnapshotFor(ctx context.Context, gameNumber int, userID int64) (*GameSnapshot, *SelfView, error) {
	g, err := e.games.GetByNumber(ctx, gameNumber)
	if err != nil {
		return nil, nil, err
	}
	if g == nil {
		return nil, nil, ErrGameNotFound
	}
	players, err := e.players.ListByGame(ctx, gameNumber)
	if err != nil {
		return nil, nil, err
	}
	snap := BuildSnapshot(g, players, time.Now())

	p := findPlayer(players, userID)
	if p == nil || g.State == domain.StateWaiting {
		return &snap, nil, nil
	}
	self := &SelfView{
		UserID: p.UserID,
		Role:   p.Role,
		Word:   p.Word(g),
		Alive:  p.Alive,
	}
	if g.CurrentPhase == domain.PhaseGuessingWord {
		if gs, ok := e.rounds.GetGuess(ctx, gameNumber); ok && gs.LiarUserID == userID {
			left := gs.RemainingTime(time.Now())
			self.GuessSecondsLeft = &left
		}
	}
	return &snap, self, nil
}

func (e *Engine) broadcastSnapshot(ctx context.Context, g *domain.Game) {
	players, err := e.players.ListByGame(ctx, g.GameNumber)
	if err != nil {
		logger.Error("snapshot broadcast failed", "game", g.GameNumber, "error", err)
		return
	}
	e.bcast.BroadcastGame(g.GameNumber, ws.Message{
		Type:    ws.MsgSnapshot,
		Payload: BuildSnapshot(g, players, time.Now()),
	})
}
