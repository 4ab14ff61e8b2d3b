package domain

import "time"

// Role - роль игрока
type Role string

const (
	RoleCitizen Role = "CITIZEN"
	RoleLiar    Role = "LIAR"
)

// Player - участие игрока в конкретной игре
type Player struct {
	GameNumber    int    `db:"game_number" json:"game_number"`
	UserID        int64  `db:"user_id" json:"user_id"`
	Nickname      string `db:"nickname" json:"nickname"`
	Role          Role   `db:"role" json:"-"`
	Alive         bool   `db:"alive" json:"alive"`
	Connected     bool   `db:"connected" json:"connected"`
	VotesReceived int    `db:"votes_received" json:"votes_received"`
	VotedFor      *int64 `db:"voted_for" json:"-"`
	HasSubmitted  bool   `db:"has_submitted" json:"has_submitted"`
	Score         int    `db:"score" json:"score"`
	IsWinner      bool   `db:"is_winner" json:"is_winner"`

	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// Word returns the secret word this player should see.
func (p *Player) Word(g *Game) string {
	if p.Role == RoleLiar && g.Mode == ModeLiarsDifferentWord {
		return g.LiarWord
	}
	return g.CitizenWord
}

// ResetForRound clears per-round voting and submission state.
func (p *Player) ResetForRound() {
	p.VotesReceived = 0
	p.VotedFor = nil
	p.HasSubmitted = false
}
