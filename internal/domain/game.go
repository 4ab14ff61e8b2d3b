package domain

import (
	"strconv"
	"strings"
	"time"
)

// GameMode - режим раздачи слов лжецам
type GameMode string

const (
	ModeLiarsSameWord      GameMode = "LIARS_SAME_WORD"
	ModeLiarsDifferentWord GameMode = "LIARS_DIFFERENT_WORD"
)

// GameState - жизненный цикл комнаты
type GameState string

const (
	StateWaiting    GameState = "WAITING"
	StateInProgress GameState = "IN_PROGRESS"
	StateEnded      GameState = "ENDED"
)

// WinningTeam - победившая сторона
type WinningTeam string

const (
	TeamCitizens WinningTeam = "CITIZENS"
	TeamLiars    WinningTeam = "LIARS"
)

// Game - агрегат игровой комнаты
type Game struct {
	GameNumber    int        `db:"game_number" json:"game_number"`
	Owner         string     `db:"owner" json:"owner"`
	TotalRounds   int        `db:"total_rounds" json:"total_rounds"`
	LiarCount     int        `db:"liar_count" json:"liar_count"`
	Mode          GameMode   `db:"mode" json:"mode"`
	State         GameState  `db:"state" json:"state"`
	CurrentRound  int        `db:"current_round" json:"current_round"`
	CurrentPhase  Phase      `db:"current_phase" json:"current_phase"`
	PhaseDeadline *time.Time `db:"phase_deadline" json:"phase_deadline,omitempty"`

	// Turn rotation inside SPEECH: csv of user ids, index into it.
	TurnOrder        string `db:"turn_order" json:"-"`
	CurrentTurnIndex int    `db:"current_turn_index" json:"current_turn_index"`

	AccusedPlayerID *int64 `db:"accused_player_id" json:"accused_player_id,omitempty"`

	CitizenWord string `db:"citizen_word" json:"-"`
	LiarWord    string `db:"liar_word" json:"-"`

	WinningTeam *WinningTeam `db:"winning_team" json:"winning_team,omitempty"`
	EndReason   string       `db:"end_reason" json:"end_reason,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TurnOrderIDs parses the csv turn order into user ids.
func (g *Game) TurnOrderIDs() []int64 {
	if g.TurnOrder == "" {
		return nil
	}
	parts := strings.Split(g.TurnOrder, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if id, err := strconv.ParseInt(p, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// SetTurnOrder serializes user ids into the csv column.
func (g *Game) SetTurnOrder(ids []int64) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	g.TurnOrder = strings.Join(parts, ",")
}

// CanStart reports whether the room can leave WAITING.
func (g *Game) CanStart(playerCount int) bool {
	return g.State == StateWaiting && playerCount >= 3 && playerCount <= 15 && g.LiarCount < playerCount
}

// LastRound reports whether the configured round count is exhausted.
func (g *Game) LastRound() bool {
	return g.CurrentRound >= g.TotalRounds
}
