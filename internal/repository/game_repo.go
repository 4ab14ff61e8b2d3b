package repository

import (
	"context"
	"time"

	"liargame_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GameRepository struct {
	db *pgxpool.Pool
}

func NewGameRepository(db *pgxpool.Pool) *GameRepository {
	return &GameRepository{db: db}
}

const gameColumns = `game_number, owner_nickname, total_rounds, liar_count, mode, state,
	current_round, current_phase, phase_deadline, turn_order, current_turn_index,
	accused_player_id, citizen_word, liar_word, winning_team, end_reason, created_at`

func scanGame(row pgx.Row) (*domain.Game, error) {
	var g domain.Game
	var winningTeam *string
	var endReason *string
	if err := row.Scan(
		&g.GameNumber, &g.Owner, &g.TotalRounds, &g.LiarCount, &g.Mode, &g.State,
		&g.CurrentRound, &g.CurrentPhase, &g.PhaseDeadline, &g.TurnOrder, &g.CurrentTurnIndex,
		&g.AccusedPlayerID, &g.CitizenWord, &g.LiarWord, &winningTeam, &endReason, &g.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if winningTeam != nil {
		t := domain.WinningTeam(*winningTeam)
		g.WinningTeam = &t
	}
	if endReason != nil {
		g.EndReason = *endReason
	}
	return &g, nil
}

// Create выдаёт следующий свободный номер комнаты и вставляет игру
func (r *GameRepository) Create(ctx context.Context, g *domain.Game) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO games (game_number, owner_nickname, total_rounds, liar_count, mode, state,
			current_round, current_phase, turn_order, current_turn_index, citizen_word, liar_word)
		VALUES (
			(SELECT COALESCE(MAX(game_number), 0) + 1 FROM games),
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING game_number, created_at
	`,
		g.Owner, g.TotalRounds, g.LiarCount, g.Mode, g.State,
		g.CurrentRound, g.CurrentPhase, g.TurnOrder, g.CurrentTurnIndex, g.CitizenWord, g.LiarWord,
	).Scan(&g.GameNumber, &g.CreatedAt)
}

func (r *GameRepository) GetByNumber(ctx context.Context, gameNumber int) (*domain.Game, error) {
	row := r.db.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE game_number = $1`, gameNumber)
	return scanGame(row)
}

// Update перезаписывает изменяемую часть агрегата
func (r *GameRepository) Update(ctx context.Context, g *domain.Game) error {
	var winningTeam *string
	if g.WinningTeam != nil {
		s := string(*g.WinningTeam)
		winningTeam = &s
	}
	var endReason *string
	if g.EndReason != "" {
		endReason = &g.EndReason
	}
	_, err := r.db.Exec(ctx, `
		UPDATE games
		SET state = $2, current_round = $3, current_phase = $4, phase_deadline = $5,
			turn_order = $6, current_turn_index = $7, accused_player_id = $8,
			citizen_word = $9, liar_word = $10, winning_team = $11, end_reason = $12
		WHERE game_number = $1
	`,
		g.GameNumber, g.State, g.CurrentRound, g.CurrentPhase, g.PhaseDeadline,
		g.TurnOrder, g.CurrentTurnIndex, g.AccusedPlayerID,
		g.CitizenWord, g.LiarWord, winningTeam, endReason,
	)
	return err
}

// ListStale - игры в процессе с прошедшим дедлайном фазы: их таймеры
// потерялись при рестарте, движок прогоняет им переходы заново
func (r *GameRepository) ListStale(ctx context.Context, olderThan time.Time) ([]*domain.Game, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE state = $1 AND phase_deadline IS NOT NULL AND phase_deadline < $2
	`, domain.StateInProgress, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}
