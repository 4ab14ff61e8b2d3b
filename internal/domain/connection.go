package domain

import "time"

// ConnectionAction - вид события соединения
type ConnectionAction string

const (
	ActionDisconnect         ConnectionAction = "DISCONNECT"
	ActionReconnect          ConnectionAction = "RECONNECT"
	ActionGracePeriodStarted ConnectionAction = "GRACE_PERIOD_STARTED"
	ActionGracePeriodExpired ConnectionAction = "GRACE_PERIOD_EXPIRED"
)

// ConnectionLogEntry - append-only запись журнала соединений
type ConnectionLogEntry struct {
	ID                 string           `db:"id" json:"id"`
	UserID             int64            `db:"user_id" json:"user_id"`
	GameNumber         int              `db:"game_number" json:"game_number"`
	Action             ConnectionAction `db:"action" json:"action"`
	GracePeriodSeconds *int             `db:"grace_period_seconds" json:"grace_period_seconds,omitempty"`
	Timestamp          time.Time        `db:"timestamp" json:"timestamp"`
}

// ConnectionStability - диагностическая классификация за последний час
type ConnectionStability string

const (
	StabilityStable   ConnectionStability = "STABLE"
	StabilityUnstable ConnectionStability = "UNSTABLE"
	StabilityPoor     ConnectionStability = "POOR"
)

// ClassifyStability maps a trailing-hour disconnect count to a bucket.
func ClassifyStability(disconnects int) ConnectionStability {
	switch {
	case disconnects == 0:
		return StabilityStable
	case disconnects < 3:
		return StabilityUnstable
	default:
		return StabilityPoor
	}
}

// PlayerConnectionStatus - сводка по игроку для диагностики
type PlayerConnectionStatus struct {
	UserID         int64               `json:"user_id"`
	Nickname       string              `json:"nickname"`
	Connected      bool                `json:"connected"`
	HasGracePeriod bool                `json:"has_grace_period"`
	LastSeenAt     time.Time           `json:"last_seen_at"`
	Stability      ConnectionStability `json:"stability"`
}
