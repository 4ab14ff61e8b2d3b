package repository

import (
	"context"
	"time"

	"liargame_backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConnectionLogRepository struct {
	db *pgxpool.Pool
}

func NewConnectionLogRepository(db *pgxpool.Pool) *ConnectionLogRepository {
	return &ConnectionLogRepository{db: db}
}

// Append пишет событие соединения. Журнал только растёт, записи не правятся.
func (r *ConnectionLogRepository) Append(ctx context.Context, e *domain.ConnectionLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO connection_log (id, user_id, game_number, action, grace_period_seconds, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.UserID, e.GameNumber, e.Action, e.GracePeriodSeconds, e.Timestamp)
	return err
}

// CountDisconnects - число дисконнектов игрока в игре начиная с since
func (r *ConnectionLogRepository) CountDisconnects(ctx context.Context, gameNumber int, userID int64, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM connection_log
		WHERE game_number = $1 AND user_id = $2 AND action = $3 AND ts >= $4
	`, gameNumber, userID, domain.ActionDisconnect, since).Scan(&n)
	return n, err
}

// LastAction - последнее событие игрока в игре, nil если событий не было
func (r *ConnectionLogRepository) LastAction(ctx context.Context, gameNumber int, userID int64) (*domain.ConnectionLogEntry, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, game_number, action, grace_period_seconds, ts
		FROM connection_log
		WHERE game_number = $1 AND user_id = $2
		ORDER BY ts DESC, id DESC
		LIMIT 1
	`, gameNumber, userID)

	var e domain.ConnectionLogEntry
	if err := row.Scan(&e.ID, &e.UserID, &e.GameNumber, &e.Action, &e.GracePeriodSeconds, &e.Timestamp); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *ConnectionLogRepository) ListByGame(ctx context.Context, gameNumber int, limit int) ([]domain.ConnectionLogEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, game_number, action, grace_period_seconds, ts
		FROM connection_log
		WHERE game_number = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2
	`, gameNumber, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.ConnectionLogEntry
	for rows.Next() {
		var e domain.ConnectionLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.GameNumber, &e.Action, &e.GracePeriodSeconds, &e.Timestamp); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
