package engine

import (
	"context"
	"sync"
	"time"

	"liargame_backend/internal/config"
	"liargame_backend/internal/domain"
	"liargame_backend/internal/logger"
	"liargame_backend/internal/store"
)

// GameStore - персистентные игры (pg в проде, фейк в тестах)
type GameStore interface {
	Create(ctx context.Context, g *domain.Game) error
	GetByNumber(ctx context.Context, gameNumber int) (*domain.Game, error)
	Update(ctx context.Context, g *domain.Game) error
	ListStale(ctx context.Context, olderThan time.Time) ([]*domain.Game, error)
}

// PlayerStore - персистентные участники
type PlayerStore interface {
	Add(ctx context.Context, p *domain.Player) error
	Get(ctx context.Context, gameNumber int, userID int64) (*domain.Player, error)
	ListByGame(ctx context.Context, gameNumber int) ([]*domain.Player, error)
	Update(ctx context.Context, p *domain.Player) error
	Remove(ctx context.Context, gameNumber int, userID int64) error
	ResetForRound(ctx context.Context, gameNumber int) error
}

// ScoreStore применяет дельты раунда ровно один раз
type ScoreStore interface {
	ApplyDeltas(ctx context.Context, gameNumber, round int, deltas []domain.ScoreDelta) error
}

// ConnectionLog - append-only журнал событий соединений
type ConnectionLog interface {
	Append(ctx context.Context, e *domain.ConnectionLogEntry) error
	CountDisconnects(ctx context.Context, gameNumber int, userID int64, since time.Time) (int, error)
	LastAction(ctx context.Context, gameNumber int, userID int64) (*domain.ConnectionLogEntry, error)
}

// Broadcaster доставляет сообщение всем подписчикам топика игры
type Broadcaster interface {
	BroadcastGame(gameNumber int, v any)
}

// Engine - машина фаз. Единственная точка, мутирующая Game/Player;
// переходы фаз сериализуются распределённым локом, а не мьютексом.
type Engine struct {
	cfg     *config.Config
	games   GameStore
	players PlayerStore
	scores  ScoreStore
	connLog ConnectionLog
	rounds  *store.RoundStore
	bcast   Broadcaster

	mu      sync.Mutex
	runtime map[int]*gameRuntime
}

// gameRuntime - таймеры одной игры на этом инстансе
type gameRuntime struct {
	phaseTimer  *time.Timer
	graceTimers map[int64]*time.Timer
}

func New(cfg *config.Config, games GameStore, players PlayerStore, scores ScoreStore, connLog ConnectionLog, rounds *store.RoundStore, bcast Broadcaster) *Engine {
	return &Engine{
		cfg:     cfg,
		games:   games,
		players: players,
		scores:  scores,
		connLog: connLog,
		rounds:  rounds,
		bcast:   bcast,
		runtime: make(map[int]*gameRuntime),
	}
}

func (e *Engine) lockTTL() time.Duration {
	return time.Duration(e.cfg.LockTTLSeconds) * time.Second
}

func (e *Engine) gracePeriod() time.Duration {
	return time.Duration(e.cfg.GracePeriodSeconds) * time.Second
}

func (e *Engine) getRuntime(gameNumber int) *gameRuntime {
	e.mu.Lock()
	defer e.mu.Unlock()
	rt, ok := e.runtime[gameNumber]
	if !ok {
		rt = &gameRuntime{graceTimers: make(map[int64]*time.Timer)}
		e.runtime[gameNumber] = rt
	}
	return rt
}

// schedulePhaseTimer взводит дедлайн фазы; прежний таймер гасится,
// чтобы не стрелял по уже ушедшей фазе.
func (e *Engine) schedulePhaseTimer(gameNumber int, phase domain.Phase, turnIndex int, d time.Duration) {
	rt := e.getRuntime(gameNumber)
	e.mu.Lock()
	if rt.phaseTimer != nil {
		rt.phaseTimer.Stop()
	}
	rt.phaseTimer = time.AfterFunc(d, func() {
		logger.Debug("phase deadline fired", "game", gameNumber, "phase", phase, "turn", turnIndex)
		e.advance(context.Background(), gameNumber, phase, turnIndex)
	})
	e.mu.Unlock()
}

func (e *Engine) cancelPhaseTimer(gameNumber int) {
	e.mu.Lock()
	if rt, ok := e.runtime[gameNumber]; ok && rt.phaseTimer != nil {
		rt.phaseTimer.Stop()
		rt.phaseTimer = nil
	}
	e.mu.Unlock()
}

// RecoverStaleGames прогоняет просроченные фазы игр, потерявших таймеры
// при рестарте: дедлайны лежат в pg, сами таймеры живут только в памяти
// процесса. Зовётся один раз при старте, до приёма трафика.
func (e *Engine) RecoverStaleGames(ctx context.Context) error {
	stale, err := e.games.ListStale(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, g := range stale {
		logger.Info("recovering stale game", "game", g.GameNumber, "phase", g.CurrentPhase, "deadline", g.PhaseDeadline)
		e.advance(ctx, g.GameNumber, g.CurrentPhase, g.CurrentTurnIndex)
	}
	return nil
}

// dropRuntime гасит все таймеры игры и убирает её из реестра
func (e *Engine) dropRuntime(gameNumber int) {
	e.mu.Lock()
	if rt, ok := e.runtime[gameNumber]; ok {
		if rt.phaseTimer != nil {
			rt.phaseTimer.Stop()
		}
		for _, t := range rt.graceTimers {
			t.Stop()
		}
		delete(e.runtime, gameNumber)
	}
	e.mu.Unlock()
}

// alivePlayers фильтрует живых
func alivePlayers(players []*domain.Player) []*domain.Player {
	var out []*domain.Player
	for _, p := range players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

func aliveByRole(players []*domain.Player, role domain.Role) []int64 {
	var out []int64
	for _, p := range players {
		if p.Alive && p.Role == role {
			out = append(out, p.UserID)
		}
	}
	return out
}

func findPlayer(players []*domain.Player, userID int64) *domain.Player {
	for _, p := range players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}
