package engine

import (
	"context"
	"time"

	"liargame_backend/internal/domain"
	"liargame_backend/internal/logger"
	"liargame_backend/internal/ws"
)

// HandleDisconnect фиксирует обрыв. В ожидании место освобождается сразу,
// в раунде игрок получает грейс-период на возвращение.
func (e *Engine) HandleDisconnect(ctx context.Context, gameNumber int, userID int64) error {
	g, err := e.loadGame(ctx, gameNumber)
	if err != nil {
		return err
	}
	players, err := e.players.ListByGame(ctx, gameNumber)
	if err != nil {
		return err
	}
	p := findPlayer(players, userID)
	if p == nil {
		return ErrNotParticipant
	}

	p.Connected = false
	if err := e.players.Update(ctx, p); err != nil {
		return err
	}
	if err := e.connLog.Append(ctx, &domain.ConnectionLogEntry{
		UserID: userID, GameNumber: gameNumber, Action: domain.ActionDisconnect,
	}); err != nil {
		logger.Error("connection log append failed", "game", gameNumber, "user", userID, "error", err)
	}

	// в лобби раундовое состояние не под угрозой - просто выход
	if g.State == domain.StateWaiting {
		e.bcast.BroadcastGame(gameNumber, ws.Message{
			Type:    ws.MsgPlayerDisconnected,
			Payload: ws.PlayerDisconnectedPayload{UserID: userID, Nickname: p.Nickname, HasGracePeriod: false},
		})
		return e.LeaveRoom(ctx, gameNumber, userID)
	}
	if g.State == domain.StateEnded || !p.Alive {
		return nil
	}

	seconds := e.cfg.GracePeriodSeconds
	if err := e.connLog.Append(ctx, &domain.ConnectionLogEntry{
		UserID: userID, GameNumber: gameNumber,
		Action: domain.ActionGracePeriodStarted, GracePeriodSeconds: &seconds,
	}); err != nil {
		logger.Error("connection log append failed", "game", gameNumber, "user", userID, "error", err)
	}

	rt := e.getRuntime(gameNumber)
	e.mu.Lock()
	if t, ok := rt.graceTimers[userID]; ok {
		t.Stop()
	}
	rt.graceTimers[userID] = time.AfterFunc(e.gracePeriod(), func() {
		e.graceExpired(context.Background(), gameNumber, userID)
	})
	e.mu.Unlock()
	GracePeriodsStarted.Inc()

	e.bcast.BroadcastGame(gameNumber, ws.Message{
		Type:    ws.MsgPlayerDisconnected,
		Payload: ws.PlayerDisconnectedPayload{UserID: userID, Nickname: p.Nickname, HasGracePeriod: true},
	})
	e.bcast.BroadcastGame(gameNumber, ws.Message{
		Type:    ws.MsgGracePeriodStarted,
		Payload: ws.GracePeriodPayload{UserID: userID, Nickname: p.Nickname, Seconds: seconds},
	})
	logger.Info("grace period started", "game", gameNumber, "user", userID, "seconds", seconds)
	return nil
}

// HandleReconnect гасит грейс-таймер, место остаётся за игроком
func (e *Engine) HandleReconnect(ctx context.Context, gameNumber int, userID int64) error {
	players, err := e.players.ListByGame(ctx, gameNumber)
	if err != nil {
		return err
	}
	p := findPlayer(players, userID)
	if p == nil {
		return ErrNotParticipant
	}

	e.mu.Lock()
	if rt, ok := e.runtime[gameNumber]; ok {
		if t, held := rt.graceTimers[userID]; held {
			t.Stop()
			delete(rt.graceTimers, userID)
		}
	}
	e.mu.Unlock()

	p.Connected = true
	if err := e.players.Update(ctx, p); err != nil {
		return err
	}
	if err := e.connLog.Append(ctx, &domain.ConnectionLogEntry{
		UserID: userID, GameNumber: gameNumber, Action: domain.ActionReconnect,
	}); err != nil {
		logger.Error("connection log append failed", "game", gameNumber, "user", userID, "error", err)
	}

	e.bcast.BroadcastGame(gameNumber, ws.Message{
		Type:    ws.MsgPlayerReconnected,
		Payload: ws.PlayerPresencePayload{UserID: userID, Nickname: p.Nickname},
	})
	logger.Info("player reconnected", "game", gameNumber, "user", userID)
	return nil
}

// graceExpired - принудительное устранение по истечении грейс-периода
func (e *Engine) graceExpired(ctx context.Context, gameNumber int, userID int64) {
	e.mu.Lock()
	if rt, ok := e.runtime[gameNumber]; ok {
		delete(rt.graceTimers, userID)
	}
	e.mu.Unlock()

	GracePeriodsExpired.Inc()
	if err := e.connLog.Append(ctx, &domain.ConnectionLogEntry{
		UserID: userID, GameNumber: gameNumber, Action: domain.ActionGracePeriodExpired,
	}); err != nil {
		logger.Error("connection log append failed", "game", gameNumber, "user", userID, "error", err)
	}
	e.bcast.BroadcastGame(gameNumber, ws.Message{
		Type:    ws.MsgGracePeriodExpired,
		Payload: ws.GracePeriodPayload{UserID: userID},
	})

	if err := e.removeFromRound(ctx, gameNumber, userID); err != nil {
		logger.Error("forced removal failed", "game", gameNumber, "user", userID, "error", err)
	}
}

// removeFromRound устраняет игрока посреди раунда и, если его ввод был
// последним недостающим, двигает фазу так, будто он прислал пустое действие.
func (e *Engine) removeFromRound(ctx context.Context, gameNumber int, userID int64) error {
	if !e.rounds.AcquireLock(ctx, gameNumber, e.lockTTL()) {
		// лок занят текущим переходом; повторим после него
		time.AfterFunc(time.Second, func() {
			if err := e.removeFromRound(context.Background(), gameNumber, userID); err != nil {
				logger.Error("forced removal retry failed", "game", gameNumber, "user", userID, "error", err)
			}
		})
		return nil
	}
	defer e.rounds.ReleaseLock(ctx, gameNumber)

	g, err := e.loadGame(ctx, gameNumber)
	if err != nil {
		return err
	}
	if g.State != domain.StateInProgress {
		return nil
	}
	players, err := e.players.ListByGame(ctx, gameNumber)
	if err != nil {
		return err
	}
	p := findPlayer(players, userID)
	if p == nil || !p.Alive {
		return nil
	}

	p.Alive = false
	p.Connected = false
	if err := e.players.Update(ctx, p); err != nil {
		return err
	}
	logger.Info("player removed from round", "game", gameNumber, "user", userID, "phase", g.CurrentPhase)

	// устранение могло решить игру досрочно
	if team, reason, over := gameOverCheck(g, players); over && g.CurrentPhase != domain.PhaseGameOver {
		return e.endGame(ctx, g, players, team, reason)
	}

	switch g.CurrentPhase {
	case domain.PhaseSpeech:
		order := g.TurnOrderIDs()
		if g.CurrentTurnIndex < len(order) && order[g.CurrentTurnIndex] == userID {
			return e.finishSpeechTurn(ctx, g)
		}

	case domain.PhaseVotingForLiar:
		alive := alivePlayers(players)
		for _, ap := range alive {
			if ap.VotedFor == nil {
				e.broadcastSnapshot(ctx, g)
				return nil
			}
		}
		return e.tallyAccusation(ctx, g)

	case domain.PhaseDefending:
		if g.AccusedPlayerID != nil && *g.AccusedPlayerID == userID {
			return e.finishDefense(ctx, g)
		}

	case domain.PhaseVotingForSurvival:
		if g.AccusedPlayerID != nil && *g.AccusedPlayerID == userID {
			// обвиняемый выбыл сам - вердикт не нужен
			return e.tallySurvival(ctx, g)
		}
		ballots, ok := e.rounds.GetFinalVotes(ctx, gameNumber)
		if ok {
			// ключи бюллетеней - всегда подмножество живых
			delete(ballots, userID)
			e.rounds.SetFinalVotes(ctx, gameNumber, ballots)
			complete := len(ballots) > 0
			for _, b := range ballots {
				if b == nil {
					complete = false
					break
				}
			}
			if complete {
				return e.tallySurvival(ctx, g)
			}
		}

	case domain.PhaseGuessingWord:
		if gs, ok := e.rounds.GetGuess(ctx, gameNumber); ok && gs.LiarUserID == userID {
			return e.finishGuess(ctx, g)
		}
	}

	e.broadcastSnapshot(ctx, g)
	return nil
}

// ConnectionStatus - диагностическая сводка стабильности за последний час
func (e *Engine) ConnectionStatus(ctx context.Context, gameNumber int) ([]domain.PlayerConnectionStatus, error) {
	players, err := e.players.ListByGame(ctx, gameNumber)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, ErrGameNotFound
	}

	since := time.Now().Add(-time.Hour)
	out := make([]domain.PlayerConnectionStatus, 0, len(players))

	e.mu.Lock()
	rt := e.runtime[gameNumber]
	e.mu.Unlock()

	for _, p := range players {
		n, err := e.connLog.CountDisconnects(ctx, gameNumber, p.UserID, since)
		if err != nil {
			return nil, err
		}
		hasGrace := false
		if rt != nil {
			e.mu.Lock()
			_, hasGrace = rt.graceTimers[p.UserID]
			e.mu.Unlock()
		}
		// последнее событие журнала точнее, чем момент входа в комнату
		lastSeen := p.JoinedAt
		if last, err := e.connLog.LastAction(ctx, gameNumber, p.UserID); err == nil && last != nil {
			lastSeen = last.Timestamp
		}
		out = append(out, domain.PlayerConnectionStatus{
			UserID:         p.UserID,
			Nickname:       p.Nickname,
			Connected:      p.Connected,
			HasGracePeriod: hasGrace,
			LastSeenAt:     lastSeen,
			Stability:      domain.ClassifyStability(n),
		})
	}
	return out, nil
}
