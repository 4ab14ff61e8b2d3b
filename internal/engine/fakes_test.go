package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"liargame_backend/internal/config"
	"liargame_backend/internal/domain"
	"liargame_backend/internal/store"
	"liargame_backend/internal/ws"
)

// In-memory фейки персистентных хранилищ для тестов движка.

type memGames struct {
	mu   sync.Mutex
	next int
	byID map[int]*domain.Game
}

func newMemGames() *memGames { return &memGames{byID: make(map[int]*domain.Game)} }

func cloneGame(g *domain.Game) *domain.Game {
	c := *g
	if g.PhaseDeadline != nil {
		d := *g.PhaseDeadline
		c.PhaseDeadline = &d
	}
	if g.AccusedPlayerID != nil {
		a := *g.AccusedPlayerID
		c.AccusedPlayerID = &a
	}
	if g.WinningTeam != nil {
		w := *g.WinningTeam
		c.WinningTeam = &w
	}
	return &c
}

func (m *memGames) Create(_ context.Context, g *domain.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	g.GameNumber = m.next
	g.CreatedAt = time.Now()
	m.byID[g.GameNumber] = cloneGame(g)
	return nil
}

func (m *memGames) GetByNumber(_ context.Context, n int) (*domain.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byID[n]
	if !ok {
		return nil, nil
	}
	return cloneGame(g), nil
}

func (m *memGames) Update(_ context.Context, g *domain.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[g.GameNumber]; !ok {
		return fmt.Errorf("game %d not found", g.GameNumber)
	}
	m.byID[g.GameNumber] = cloneGame(g)
	return nil
}

func (m *memGames) ListStale(_ context.Context, olderThan time.Time) ([]*domain.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Game
	for _, g := range m.byID {
		if g.State == domain.StateInProgress && g.PhaseDeadline != nil && g.PhaseDeadline.Before(olderThan) {
			out = append(out, cloneGame(g))
		}
	}
	return out, nil
}

type memPlayers struct {
	mu     sync.Mutex
	byGame map[int][]*domain.Player
}

func newMemPlayers() *memPlayers { return &memPlayers{byGame: make(map[int][]*domain.Player)} }

func clonePlayer(p *domain.Player) *domain.Player {
	c := *p
	if p.VotedFor != nil {
		v := *p.VotedFor
		c.VotedFor = &v
	}
	return &c
}

func (m *memPlayers) Add(_ context.Context, p *domain.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.JoinedAt = time.Now()
	m.byGame[p.GameNumber] = append(m.byGame[p.GameNumber], clonePlayer(p))
	return nil
}

func (m *memPlayers) Get(_ context.Context, game int, userID int64) (*domain.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byGame[game] {
		if p.UserID == userID {
			return clonePlayer(p), nil
		}
	}
	return nil, nil
}

func (m *memPlayers) ListByGame(_ context.Context, game int) ([]*domain.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Player, 0, len(m.byGame[game]))
	for _, p := range m.byGame[game] {
		out = append(out, clonePlayer(p))
	}
	return out, nil
}

func (m *memPlayers) Update(_ context.Context, p *domain.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, old := range m.byGame[p.GameNumber] {
		if old.UserID == p.UserID {
			m.byGame[p.GameNumber][i] = clonePlayer(p)
			return nil
		}
	}
	return fmt.Errorf("player %d not in game %d", p.UserID, p.GameNumber)
}

func (m *memPlayers) Remove(_ context.Context, game int, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byGame[game]
	for i, p := range list {
		if p.UserID == userID {
			m.byGame[game] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memPlayers) ResetForRound(_ context.Context, game int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byGame[game] {
		p.ResetForRound()
	}
	return nil
}

type appliedDelta struct {
	Round int
	domain.ScoreDelta
}

type memScores struct {
	mu      sync.Mutex
	applied []appliedDelta
	seen    map[string]bool
	totals  map[int64]int
}

func newMemScores() *memScores {
	return &memScores{seen: make(map[string]bool), totals: make(map[int64]int)}
}

func (m *memScores) ApplyDeltas(_ context.Context, game, round int, deltas []domain.ScoreDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range deltas {
		key := fmt.Sprintf("%d/%d/%d/%s", game, round, d.UserID, d.Reason)
		if m.seen[key] {
			continue
		}
		m.seen[key] = true
		m.applied = append(m.applied, appliedDelta{Round: round, ScoreDelta: d})
		m.totals[d.UserID] += d.Delta
	}
	return nil
}

func (m *memScores) total(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals[userID]
}

type memConnLog struct {
	mu      sync.Mutex
	entries []domain.ConnectionLogEntry
}

func (m *memConnLog) Append(_ context.Context, e *domain.ConnectionLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memConnLog) CountDisconnects(_ context.Context, game int, userID int64, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.GameNumber == game && e.UserID == userID && e.Action == domain.ActionDisconnect && !e.Timestamp.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memConnLog) LastAction(_ context.Context, game int, userID int64) (*domain.ConnectionLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].GameNumber == game && m.entries[i].UserID == userID {
			e := m.entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (m *memConnLog) actions(game int, userID int64) []domain.ConnectionAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ConnectionAction
	for _, e := range m.entries {
		if e.GameNumber == game && e.UserID == userID {
			out = append(out, e.Action)
		}
	}
	return out
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []ws.Message
}

func (b *fakeBroadcaster) BroadcastGame(_ int, v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if msg, ok := v.(ws.Message); ok {
		b.messages = append(b.messages, msg)
	}
}

func (b *fakeBroadcaster) byType(t string) []ws.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []ws.Message
	for _, m := range b.messages {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

type testEnv struct {
	engine  *Engine
	games   *memGames
	players *memPlayers
	scores  *memScores
	connLog *memConnLog
	bcast   *fakeBroadcaster
}

func newTestEnv() *testEnv {
	cfg := &config.Config{
		HintTurnSeconds:      30,
		VotingSeconds:        60,
		DefenseSeconds:       45,
		FinalVotingSeconds:   30,
		GuessSeconds:         30,
		GracePeriodSeconds:   30,
		LockTTLSeconds:       30,
		PostRoundChatSeconds: 60,
	}
	env := &testEnv{
		games:   newMemGames(),
		players: newMemPlayers(),
		scores:  newMemScores(),
		connLog: &memConnLog{},
		bcast:   &fakeBroadcaster{},
	}
	env.engine = New(cfg, env.games, env.players, env.scores, env.connLog, store.New(nil, 0), env.bcast)
	return env
}

// seedRound строит игру из трёх игроков (1 - лжец) в фазе речей первого
// раунда, минуя случайную раздачу ролей.
func (env *testEnv) seedRound(t interface{ Fatalf(string, ...any) }) *domain.Game {
	ctx := context.Background()
	g := &domain.Game{
		Owner:        "liar-one",
		TotalRounds:  3,
		LiarCount:    1,
		Mode:         domain.ModeLiarsSameWord,
		State:        domain.StateInProgress,
		CurrentRound: 1,
		CurrentPhase: domain.PhaseSpeech,
		CitizenWord:  "lighthouse",
	}
	if err := env.games.Create(ctx, g); err != nil {
		t.Fatalf("create game: %v", err)
	}
	g.SetTurnOrder([]int64{1, 2, 3})
	if err := env.games.Update(ctx, g); err != nil {
		t.Fatalf("update game: %v", err)
	}

	seed := []struct {
		id   int64
		nick string
		role domain.Role
	}{
		{1, "liar-one", domain.RoleLiar},
		{2, "citizen-one", domain.RoleCitizen},
		{3, "citizen-two", domain.RoleCitizen},
	}
	for _, s := range seed {
		p := &domain.Player{
			GameNumber: g.GameNumber,
			UserID:     s.id,
			Nickname:   s.nick,
			Role:       s.role,
			Alive:      true,
			Connected:  true,
		}
		if err := env.players.Add(ctx, p); err != nil {
			t.Fatalf("add player: %v", err)
		}
	}
	return g
}

func (env *testEnv) game(t interface{ Fatalf(string, ...any) }, n int) *domain.Game {
	g, err := env.games.GetByNumber(context.Background(), n)
	if err != nil || g == nil {
		t.Fatalf("game %d not found: %v", n, err)
	}
	return g
}

func (env *testEnv) player(t interface{ Fatalf(string, ...any) }, game int, userID int64) *domain.Player {
	p, err := env.players.Get(context.Background(), game, userID)
	if err != nil || p == nil {
		t.Fatalf("player %d not found in game %d: %v", userID, game, err)
	}
	return p
}
