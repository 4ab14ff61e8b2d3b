package repository

import (
	"context"
	"errors"

	"liargame_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScoreRepository struct {
	db *pgxpool.Pool
}

func NewScoreRepository(db *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// ApplyDeltas записывает дельты раунда в журнал и двигает счёт игроков одной транзакцией.
// Уникальный индекс (game_number, round, user_id, reason) делает повтор безвредным:
// конфликтующая строка пропускается вместе со своим апдейтом счёта.
func (r *ScoreRepository) ApplyDeltas(ctx context.Context, gameNumber, round int, deltas []domain.ScoreDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, d := range deltas {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO score_ledger (game_number, round, user_id, delta, reason)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (game_number, round, user_id, reason) DO NOTHING
			RETURNING id
		`, gameNumber, round, d.UserID, d.Delta, d.Reason).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // уже начислено
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE players SET score = score + $3
			WHERE game_number = $1 AND user_id = $2
		`, gameNumber, d.UserID, d.Delta); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *ScoreRepository) LedgerByGame(ctx context.Context, gameNumber int) ([]domain.ScoreLedgerEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, game_number, round, user_id, delta, reason, created_at
		FROM score_ledger
		WHERE game_number = $1
		ORDER BY created_at, id
	`, gameNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.ScoreLedgerEntry
	for rows.Next() {
		var e domain.ScoreLedgerEntry
		if err := rows.Scan(&e.ID, &e.GameNumber, &e.Round, &e.UserID, &e.Delta, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
