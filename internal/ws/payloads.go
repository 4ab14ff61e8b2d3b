package ws

// Типы сообщений, уходящих клиентам по топику игры.
const (
	MsgSnapshot           = "GAME_SNAPSHOT"
	MsgPhaseChanged       = "PHASE_CHANGED"
	MsgPlayerDisconnected = "PLAYER_DISCONNECTED"
	MsgGracePeriodStarted = "GRACE_PERIOD_STARTED"
	MsgPlayerReconnected  = "PLAYER_RECONNECTED"
	MsgGracePeriodExpired = "GRACE_PERIOD_EXPIRED"
	MsgScoreSettlement    = "SCORE_SETTLEMENT"
	MsgGameEnded          = "GAME_ENDED"
	MsgPlayerJoined       = "PLAYER_JOINED"
	MsgPlayerLeft         = "PLAYER_LEFT"
)

// Message - конверт любого исходящего сообщения
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type PhaseChangedPayload struct {
	Phase         string `json:"phase"`
	Round         int    `json:"round"`
	TimeRemaining int    `json:"time_remaining"`
	CurrentTurnID *int64 `json:"current_turn_id,omitempty"`
}

type PlayerDisconnectedPayload struct {
	UserID         int64  `json:"user_id"`
	Nickname       string `json:"nickname"`
	HasGracePeriod bool   `json:"has_grace_period"`
}

type GracePeriodPayload struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Seconds  int    `json:"seconds,omitempty"`
}

type PlayerPresencePayload struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
}

type ScoreSettlementPayload struct {
	Round  int          `json:"round"`
	Deltas []ScoreDelta `json:"deltas"`
}

type ScoreDelta struct {
	UserID int64  `json:"user_id"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type GameEndedPayload struct {
	WinningTeam string `json:"winning_team"`
	Reason      string `json:"reason"`
}
