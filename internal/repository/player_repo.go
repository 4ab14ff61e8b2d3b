package repository

import (
	"context"

	"liargame_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlayerRepository struct {
	db *pgxpool.Pool
}

func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

const playerColumns = `game_number, user_id, nickname, role, alive, connected,
	votes_received, voted_for, has_submitted, score, is_winner, joined_at`

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	if err := row.Scan(
		&p.GameNumber, &p.UserID, &p.Nickname, &p.Role, &p.Alive, &p.Connected,
		&p.VotesReceived, &p.VotedFor, &p.HasSubmitted, &p.Score, &p.IsWinner, &p.JoinedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PlayerRepository) Add(ctx context.Context, p *domain.Player) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO players (game_number, user_id, nickname, role, alive, connected)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING joined_at
	`, p.GameNumber, p.UserID, p.Nickname, p.Role, p.Alive, p.Connected).Scan(&p.JoinedAt)
}

func (r *PlayerRepository) Get(ctx context.Context, gameNumber int, userID int64) (*domain.Player, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+playerColumns+` FROM players WHERE game_number = $1 AND user_id = $2
	`, gameNumber, userID)
	return scanPlayer(row)
}

func (r *PlayerRepository) ListByGame(ctx context.Context, gameNumber int) ([]*domain.Player, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+playerColumns+` FROM players WHERE game_number = $1 ORDER BY joined_at
	`, gameNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *PlayerRepository) Update(ctx context.Context, p *domain.Player) error {
	_, err := r.db.Exec(ctx, `
		UPDATE players
		SET role = $3, alive = $4, connected = $5, votes_received = $6,
			voted_for = $7, has_submitted = $8, score = $9, is_winner = $10
		WHERE game_number = $1 AND user_id = $2
	`,
		p.GameNumber, p.UserID, p.Role, p.Alive, p.Connected, p.VotesReceived,
		p.VotedFor, p.HasSubmitted, p.Score, p.IsWinner,
	)
	return err
}

func (r *PlayerRepository) Remove(ctx context.Context, gameNumber int, userID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM players WHERE game_number = $1 AND user_id = $2
	`, gameNumber, userID)
	return err
}

// ResetForRound сбрасывает раундовые поля у всех игроков комнаты
func (r *PlayerRepository) ResetForRound(ctx context.Context, gameNumber int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE players
		SET votes_received = 0, voted_for = NULL, has_submitted = FALSE
		WHERE game_number = $1
	`, gameNumber)
	return err
}
