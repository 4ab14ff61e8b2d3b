package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"liargame_backend/internal/domain"
	"liargame_backend/internal/logger"
)

const (
	defaultStateTTL = 2 * time.Hour
	terminationTTL  = 24 * time.Hour
)

// RoundStore держит эфемерное состояние раунда: редис + in-memory фолбэк.
// Запись идёт в оба слоя, чтение сначала из редиса, при недоступности - из памяти.
type RoundStore struct {
	rdb      *redis.Client // nil в тестах и при обрыве редиса
	stateTTL time.Duration

	mu          sync.RWMutex
	events      map[int]memEntry[[]domain.RoundEvent]
	defenses    map[int]memEntry[domain.DefenseStatus]
	finalVotes  map[int]memEntry[map[int64]*bool]
	guesses     map[int]memEntry[domain.LiarGuessStatus]
	termination map[int]memEntry[string]
	chatWindows map[int]memEntry[time.Time]
	locks       map[int]time.Time // game number -> expiry
}

type memEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e memEntry[T]) alive(now time.Time) bool { return now.Before(e.expiresAt) }

func New(rdb *redis.Client, stateTTL time.Duration) *RoundStore {
	if stateTTL <= 0 {
		stateTTL = defaultStateTTL
	}
	return &RoundStore{
		rdb:         rdb,
		stateTTL:    stateTTL,
		events:      make(map[int]memEntry[[]domain.RoundEvent]),
		defenses:    make(map[int]memEntry[domain.DefenseStatus]),
		finalVotes:  make(map[int]memEntry[map[int64]*bool]),
		guesses:     make(map[int]memEntry[domain.LiarGuessStatus]),
		termination: make(map[int]memEntry[string]),
		chatWindows: make(map[int]memEntry[time.Time]),
		locks:       make(map[int]time.Time),
	}
}

func eventsKey(game int) string      { return fmt.Sprintf("game:%d:round:events", game) }
func defenseKey(game int) string     { return fmt.Sprintf("game:%d:defense:status", game) }
func finalVotesKey(game int) string  { return fmt.Sprintf("game:%d:final:votes", game) }
func guessKey(game int) string       { return fmt.Sprintf("game:%d:guess:status", game) }
func terminationKey(game int) string { return fmt.Sprintf("game:%d:termination", game) }
func chatWindowKey(game int) string  { return fmt.Sprintf("game:%d:chat:window", game) }
func lockKey(game int) string        { return fmt.Sprintf("game:%d:advance:lock", game) }

// setJSON пишет в редис с TTL, ошибки не фатальны - память остаётся источником
func (s *RoundStore) setJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("round store marshal failed", "key", key, "error", err)
		return
	}
	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Warn("round store redis set failed, memory only", "key", key, "error", err)
	}
}

// getJSON читает из редиса; (false, nil) если ключа нет или редис недоступен
func (s *RoundStore) getJSON(ctx context.Context, key string, out any) bool {
	if s.rdb == nil {
		return false
	}
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("round store redis get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Error("round store unmarshal failed", "key", key, "error", err)
		return false
	}
	return true
}

func (s *RoundStore) del(ctx context.Context, key string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		logger.Warn("round store redis del failed", "key", key, "error", err)
	}
}

// --- Round events (append-only, сбрасываются на ролловере) ---

func (s *RoundStore) AppendEvent(ctx context.Context, game int, ev domain.RoundEvent) {
	if s.rdb != nil {
		if data, err := json.Marshal(ev); err == nil {
			pipe := s.rdb.Pipeline()
			pipe.RPush(ctx, eventsKey(game), data)
			pipe.Expire(ctx, eventsKey(game), s.stateTTL)
			if _, err := pipe.Exec(ctx); err != nil {
				logger.Warn("round store event push failed, memory only", "game", game, "error", err)
			}
		}
	}
	s.mu.Lock()
	e := s.events[game]
	if !e.alive(time.Now()) {
		e.value = nil
	}
	e.value = append(e.value, ev)
	e.expiresAt = time.Now().Add(s.stateTTL)
	s.events[game] = e
	s.mu.Unlock()
}

func (s *RoundStore) Events(ctx context.Context, game int) []domain.RoundEvent {
	if s.rdb != nil {
		items, err := s.rdb.LRange(ctx, eventsKey(game), 0, -1).Result()
		if err == nil && len(items) > 0 {
			out := make([]domain.RoundEvent, 0, len(items))
			for _, it := range items {
				var ev domain.RoundEvent
				if err := json.Unmarshal([]byte(it), &ev); err == nil {
					out = append(out, ev)
				}
			}
			return out
		}
		if err != nil && err != redis.Nil {
			logger.Warn("round store event read failed", "game", game, "error", err)
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.events[game]; ok && e.alive(time.Now()) {
		out := make([]domain.RoundEvent, len(e.value))
		copy(out, e.value)
		return out
	}
	return nil
}

// --- Defense ---

func (s *RoundStore) SetDefense(ctx context.Context, game int, st domain.DefenseStatus) {
	s.setJSON(ctx, defenseKey(game), st, s.stateTTL)
	s.mu.Lock()
	s.defenses[game] = memEntry[domain.DefenseStatus]{value: st, expiresAt: time.Now().Add(s.stateTTL)}
	s.mu.Unlock()
}

func (s *RoundStore) GetDefense(ctx context.Context, game int) (domain.DefenseStatus, bool) {
	var st domain.DefenseStatus
	if s.getJSON(ctx, defenseKey(game), &st) {
		return st, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.defenses[game]; ok && e.alive(time.Now()) {
		return e.value, true
	}
	return domain.DefenseStatus{}, false
}

// --- Final votes (nil = ещё не голосовал, или воздержался после дедлайна) ---

func (s *RoundStore) SetFinalVotes(ctx context.Context, game int, votes map[int64]*bool) {
	s.setJSON(ctx, finalVotesKey(game), votes, s.stateTTL)
	s.mu.Lock()
	s.finalVotes[game] = memEntry[map[int64]*bool]{value: votes, expiresAt: time.Now().Add(s.stateTTL)}
	s.mu.Unlock()
}

func (s *RoundStore) GetFinalVotes(ctx context.Context, game int) (map[int64]*bool, bool) {
	votes := make(map[int64]*bool)
	if s.getJSON(ctx, finalVotesKey(game), &votes) {
		return votes, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.finalVotes[game]; ok && e.alive(time.Now()) {
		// копия, чтобы вызывающий не трогал кэш
		out := make(map[int64]*bool, len(e.value))
		for k, v := range e.value {
			out[k] = v
		}
		return out, true
	}
	return nil, false
}

// --- Liar guess ---

func (s *RoundStore) SetGuess(ctx context.Context, game int, st domain.LiarGuessStatus) {
	s.setJSON(ctx, guessKey(game), st, s.stateTTL)
	s.mu.Lock()
	s.guesses[game] = memEntry[domain.LiarGuessStatus]{value: st, expiresAt: time.Now().Add(s.stateTTL)}
	s.mu.Unlock()
}

func (s *RoundStore) GetGuess(ctx context.Context, game int) (domain.LiarGuessStatus, bool) {
	var st domain.LiarGuessStatus
	if s.getJSON(ctx, guessKey(game), &st) {
		return st, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.guesses[game]; ok && e.alive(time.Now()) {
		return e.value, true
	}
	return domain.LiarGuessStatus{}, false
}

// --- Termination reason (живёт дольше самого раунда) ---

func (s *RoundStore) SetTerminationReason(ctx context.Context, game int, reason string) {
	s.setJSON(ctx, terminationKey(game), reason, terminationTTL)
	s.mu.Lock()
	s.termination[game] = memEntry[string]{value: reason, expiresAt: time.Now().Add(terminationTTL)}
	s.mu.Unlock()
}

func (s *RoundStore) GetTerminationReason(ctx context.Context, game int) (string, bool) {
	var reason string
	if s.getJSON(ctx, terminationKey(game), &reason) {
		return reason, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.termination[game]; ok && e.alive(time.Now()) {
		return e.value, true
	}
	return "", false
}

// --- Post-round chat window ---

func (s *RoundStore) SetChatWindow(ctx context.Context, game int, until time.Time) {
	s.setJSON(ctx, chatWindowKey(game), until, s.stateTTL)
	s.mu.Lock()
	s.chatWindows[game] = memEntry[time.Time]{value: until, expiresAt: time.Now().Add(s.stateTTL)}
	s.mu.Unlock()
}

func (s *RoundStore) GetChatWindow(ctx context.Context, game int) (time.Time, bool) {
	var until time.Time
	if s.getJSON(ctx, chatWindowKey(game), &until) {
		return until, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.chatWindows[game]; ok && e.alive(time.Now()) {
		return e.value, true
	}
	return time.Time{}, false
}

// Cleanup удаляет всё раундовое состояние игры. Причина завершения остаётся.
func (s *RoundStore) Cleanup(ctx context.Context, game int) {
	s.del(ctx, eventsKey(game))
	s.del(ctx, defenseKey(game))
	s.del(ctx, finalVotesKey(game))
	s.del(ctx, guessKey(game))
	s.del(ctx, chatWindowKey(game))
	s.mu.Lock()
	delete(s.events, game)
	delete(s.defenses, game)
	delete(s.finalVotes, game)
	delete(s.guesses, game)
	delete(s.chatWindows, game)
	s.mu.Unlock()
}

// --- Advance lock ---

// AcquireLock - неблокирующая попытка взять лок на переход фазы.
// Проигравший просто бросает свою попытку, победитель выполнит её сам.
func (s *RoundStore) AcquireLock(ctx context.Context, game int, ttl time.Duration) bool {
	if s.rdb != nil {
		ok, err := s.rdb.SetNX(ctx, lockKey(game), "1", ttl).Result()
		if err == nil {
			return ok
		}
		logger.Warn("advance lock redis failed, falling back to memory", "game", game, "error", err)
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if exp, held := s.locks[game]; held && now.Before(exp) {
		return false
	}
	s.locks[game] = now.Add(ttl)
	return true
}

func (s *RoundStore) ReleaseLock(ctx context.Context, game int) {
	s.del(ctx, lockKey(game))
	s.mu.Lock()
	delete(s.locks, game)
	s.mu.Unlock()
}
