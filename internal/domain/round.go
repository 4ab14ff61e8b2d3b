package domain

import "time"

// Outcome - классификация завершения раунда
type Outcome string

const (
	OutcomeLiarEliminated     Outcome = "LIAR_ELIMINATED"
	OutcomeInnocentEliminated Outcome = "INNOCENT_ELIMINATED"
	OutcomeLiarSurvived       Outcome = "LIAR_SURVIVED"
	OutcomeLiarGuessedTopic   Outcome = "LIAR_GUESSED_TOPIC"
)

// ScoreDelta - начисление очков одному игроку за раунд
type ScoreDelta struct {
	UserID int64   `json:"user_id"`
	Delta  int     `json:"delta"`
	Reason Outcome `json:"reason"`
}

// RoundEventKind - вид факта раунда
type RoundEventKind string

const (
	EventHint      RoundEventKind = "HINT"
	EventVote      RoundEventKind = "VOTE"
	EventDefense   RoundEventKind = "DEFENSE"
	EventFinalVote RoundEventKind = "FINAL_VOTE"
	EventGuess     RoundEventKind = "GUESS"
)

// RoundEvent - неизменяемый факт, добавленный во время фазы
type RoundEvent struct {
	Kind      RoundEventKind `json:"kind"`
	UserID    int64          `json:"user_id"`
	TargetID  *int64         `json:"target_id,omitempty"`
	Text      string         `json:"text,omitempty"`
	Verdict   *bool          `json:"verdict,omitempty"`
	Correct   *bool          `json:"correct,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// DefenseStatus - эфемерное состояние фазы защиты
type DefenseStatus struct {
	AccusedUserID int64  `json:"accused_user_id"`
	DefenseText   string `json:"defense_text"`
	Submitted     bool   `json:"submitted"`
}

// LiarGuessStatus - эфемерное состояние фазы угадывания слова
type LiarGuessStatus struct {
	LiarUserID     int64     `json:"liar_user_id"`
	GuessTimeLimit int       `json:"guess_time_limit"`
	StartTime      time.Time `json:"start_time"`
	Submitted      bool      `json:"submitted"`
	GuessText      string    `json:"guess_text"`
	Correct        *bool     `json:"correct,omitempty"`
	TimedOut       bool      `json:"timed_out"`
}

// RemainingTime returns whole seconds left on the guess clock.
func (s *LiarGuessStatus) RemainingTime(now time.Time) int {
	elapsed := int(now.Sub(s.StartTime).Seconds())
	if remaining := s.GuessTimeLimit - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// ScoreLedgerEntry - строка журнала начислений
type ScoreLedgerEntry struct {
	ID         int64     `db:"id" json:"id"`
	GameNumber int       `db:"game_number" json:"game_number"`
	Round      int       `db:"round" json:"round"`
	UserID     int64     `db:"user_id" json:"user_id"`
	Delta      int       `db:"delta" json:"delta"`
	Reason     Outcome   `db:"reason" json:"reason"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
