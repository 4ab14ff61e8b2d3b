package engine

import (
	"context"
	"fmt"
	"time"

	"liargame_backend/internal/domain"
	"liargame_backend/internal/logger"
	"liargame_backend/internal/ws"
)

// enterPhase переводит игру в фазу, взводит дедлайн и публикует переход.
// Вызывается только держателем лока (или до старта гонок, из StartGame).
func (e *Engine) enterPhase(ctx context.Context, g *domain.Game, to domain.Phase, d time.Duration) error {
	from := g.CurrentPhase
	// ход внутри речей - та же фаза; всё остальное сверяется с порядком раунда
	if to != from && !from.CanTransitionTo(to) {
		return fmt.Errorf("illegal phase transition %s -> %s", from, to)
	}
	g.CurrentPhase = to
	if d > 0 {
		deadline := time.Now().Add(d)
		g.PhaseDeadline = &deadline
	} else {
		g.PhaseDeadline = nil
	}
	if err := e.games.Update(ctx, g); err != nil {
		return err
	}

	PhaseTransitions.WithLabelValues(from.String(), to.String()).Inc()
	if d > 0 {
		e.schedulePhaseTimer(g.GameNumber, to, g.CurrentTurnIndex, d)
	} else {
		e.cancelPhaseTimer(g.GameNumber)
	}

	payload := ws.PhaseChangedPayload{
		Phase:         to.String(),
		Round:         g.CurrentRound,
		TimeRemaining: int(d.Seconds()),
	}
	if to == domain.PhaseSpeech {
		order := g.TurnOrderIDs()
		if g.CurrentTurnIndex < len(order) {
			id := order[g.CurrentTurnIndex]
			payload.CurrentTurnID = &id
		}
	}
	e.bcast.BroadcastGame(g.GameNumber, ws.Message{Type: ws.MsgPhaseChanged, Payload: payload})
	e.broadcastSnapshot(ctx, g)
	return nil
}

// advance - единственная операция перехода. Её зовут и действие клиента,
// завершившее фазу, и таймер дедлайна; лок гарантирует, что переход
// выполнит ровно один из них, проигравший молча бросает попытку.
func (e *Engine) advance(ctx context.Context, gameNumber int, from domain.Phase, turnIndex int) {
	if !e.rounds.AcquireLock(ctx, gameNumber, e.lockTTL()) {
		LockContention.Inc()
		logger.Debug("advance dropped, lock held elsewhere", "game", gameNumber, "from", from)
		return
	}
	defer e.rounds.ReleaseLock(ctx, gameNumber)
	e.advanceLocked(ctx, gameNumber, from, turnIndex)
}

func (e *Engine) advanceLocked(ctx context.Context, gameNumber int, from domain.Phase, turnIndex int) {
	g, err := e.games.GetByNumber(ctx, gameNumber)
	if err != nil || g == nil {
		logger.Error("advance reload failed", "game", gameNumber, "error", err)
		return
	}
	// фаза уже ушла вперёд - кто-то успел раньше, это не ошибка
	if g.State != domain.StateInProgress || g.CurrentPhase != from {
		return
	}
	if from == domain.PhaseSpeech && g.CurrentTurnIndex != turnIndex {
		return
	}

	switch from {
	case domain.PhaseSpeech:
		err = e.finishSpeechTurn(ctx, g)
	case domain.PhaseVotingForLiar:
		err = e.tallyAccusation(ctx, g)
	case domain.PhaseDefending:
		err = e.finishDefense(ctx, g)
	case domain.PhaseVotingForSurvival:
		err = e.tallySurvival(ctx, g)
	case domain.PhaseGuessingWord:
		err = e.finishGuess(ctx, g)
	case domain.PhaseGameOver:
		err = e.finishRoundBreak(ctx, g)
	}
	if err != nil {
		logger.Error("phase advance failed", "game", gameNumber, "from", from, "error", err)
	}
}

// finishSpeechTurn закрывает ход текущего игрока (дописывая пустую
// подсказку при таймауте) и двигает очередь либо открывает голосование.
func (e *Engine) finishSpeechTurn(ctx context.Context, g *domain.Game) error {
	players, err := e.players.ListByGame(ctx, g.GameNumber)
	if err != nil {
		return err
	}
	order := g.TurnOrderIDs()

	if g.CurrentTurnIndex < len(order) {
		if p := findPlayer(players, order[g.CurrentTurnIndex]); p != nil && p.Alive && !p.HasSubmitted {
			e.rounds.AppendEvent(ctx, g.GameNumber, domain.RoundEvent{
				Kind:      domain.EventHint,
				UserID:    p.UserID,
				Text:      "",
				Timestamp: time.Now(),
			})
			p.HasSubmitted = true
			if err := e.players.Update(ctx, p); err != nil {
				return err
			}
		}
	}

	// следующий живой в порядке ходов
	next := g.CurrentTurnIndex + 1
	for next < len(order) {
		if p := findPlayer(players, order[next]); p != nil && p.Alive {
			break
		}
		next++
	}

	if next < len(order) {
		g.CurrentTurnIndex = next
		return e.enterPhase(ctx, g, domain.PhaseSpeech, time.Duration(e.cfg.HintTurnSeconds)*time.Second)
	}
	return e.enterPhase(ctx, g, domain.PhaseVotingForLiar, time.Duration(e.cfg.VotingSeconds)*time.Second)
}

// tallyAccusation считает голоса обвинения. Большинство от поданных
// голосов; ничья или ноль голосов - раунд закрывается без устранения.
func (e *Engine) tallyAccusation(ctx context.Context, g *domain.Game) error {
	players, err := e.players.ListByGame(ctx, g.GameNumber)
	if err != nil {
		return err
	}

	counts := make(map[int64]int)
	for _, p := range alivePlayers(players) {
		if p.VotedFor != nil {
			counts[*p.VotedFor]++
		}
	}
	if len(counts) == 0 {
		logger.Info("no accusation votes cast", "game", g.GameNumber, "round", g.CurrentRound)
		return e.concludeRound(ctx, g, players, nil, nil, nil, nil)
	}

	var accused int64
	best, tied := -1, false
	for target, n := range counts {
		switch {
		case n > best:
			accused, best, tied = target, n, false
		case n == best:
			tied = true
		}
	}
	if tied {
		logger.Info("accusation vote tied, nobody eliminated", "game", g.GameNumber, "round", g.CurrentRound)
		return e.concludeRound(ctx, g, players, nil, nil, nil, nil)
	}

	g.AccusedPlayerID = &accused
	e.rounds.SetDefense(ctx, g.GameNumber, domain.DefenseStatus{AccusedUserID: accused})
	return e.enterPhase(ctx, g, domain.PhaseDefending, time.Duration(e.cfg.DefenseSeconds)*time.Second)
}

// finishDefense синтезирует пустую защиту при таймауте и открывает
// голосование о выживании: бюллетени всех живых, кроме обвиняемого.
func (e *Engine) finishDefense(ctx context.Context, g *domain.Game) error {
	if g.AccusedPlayerID == nil {
		return e.enterPhase(ctx, g, domain.PhaseGameOver, time.Duration(e.cfg.PostRoundChatSeconds)*time.Second)
	}

	ds, ok := e.rounds.GetDefense(ctx, g.GameNumber)
	if !ok || !ds.Submitted {
		ds = domain.DefenseStatus{AccusedUserID: *g.AccusedPlayerID, DefenseText: "", Submitted: true}
		e.rounds.SetDefense(ctx, g.GameNumber, ds)
		e.rounds.AppendEvent(ctx, g.GameNumber, domain.RoundEvent{
			Kind:      domain.EventDefense,
			UserID:    *g.AccusedPlayerID,
			Text:      "",
			Timestamp: time.Now(),
		})
	}

	players, err := e.players.ListByGame(ctx, g.GameNumber)
	if err != nil {
		return err
	}
	ballots := make(map[int64]*bool)
	for _, p := range alivePlayers(players) {
		if p.UserID != *g.AccusedPlayerID {
			ballots[p.UserID] = nil
		}
	}
	e.rounds.SetFinalVotes(ctx, g.GameNumber, ballots)
	return e.enterPhase(ctx, g, domain.PhaseVotingForSurvival, time.Duration(e.cfg.FinalVotingSeconds)*time.Second)
}

// tallySurvival решает судьбу обвиняемого большинством поданных вердиктов.
// Непроголосовавшие к дедлайну считаются воздержавшимися; ничья щадит.
func (e *Engine) tallySurvival(ctx context.Context, g *domain.Game) error {
	players, err := e.players.ListByGame(ctx, g.GameNumber)
	if err != nil {
		return err
	}
	if g.AccusedPlayerID == nil {
		return e.concludeRound(ctx, g, players, nil, nil, nil, nil)
	}
	accused := findPlayer(players, *g.AccusedPlayerID)
	if accused == nil {
		return e.concludeRound(ctx, g, players, nil, nil, nil, nil)
	}

	ballots, _ := e.rounds.GetFinalVotes(ctx, g.GameNumber)
	eliminate, spare := 0, 0
	for _, verdict := range ballots {
		if verdict == nil {
			continue
		}
		if *verdict {
			eliminate++
		} else {
			spare++
		}
	}
	// выбывший во время вердикта обвиняемый считается устранённым
	executed := eliminate > spare || !accused.Alive

	liarSet := make(map[int64]bool)
	for _, p := range players {
		if p.Role == domain.RoleLiar {
			liarSet[p.UserID] = true
		}
	}
	// LIAR_ELIMINATED награждает только граждан; подельник, голосовавший
	// за лжеца, очков не получает. В INNOCENT_ELIMINATED +1/-1 идут
	// каждому голосовавшему независимо от роли.
	var correctVoters, correctCitizens, incorrectVoters []int64
	for _, p := range alivePlayers(players) {
		if p.VotedFor == nil || p.UserID == accused.UserID {
			continue
		}
		if liarSet[*p.VotedFor] {
			correctVoters = append(correctVoters, p.UserID)
			if p.Role == domain.RoleCitizen {
				correctCitizens = append(correctCitizens, p.UserID)
			}
		} else if *p.VotedFor == accused.UserID {
			incorrectVoters = append(incorrectVoters, p.UserID)
		}
	}

	if executed {
		accused.Alive = false
		if err := e.players.Update(ctx, accused); err != nil {
			return err
		}
		if accused.Role == domain.RoleLiar {
			return e.concludeRound(ctx, g, players,
				[]domain.Outcome{domain.OutcomeLiarEliminated}, correctCitizens, nil, nil)
		}
		return e.concludeRound(ctx, g, players,
			[]domain.Outcome{domain.OutcomeInnocentEliminated}, correctVoters, incorrectVoters, nil)
	}

	if accused.Role == domain.RoleLiar {
		e.rounds.SetGuess(ctx, g.GameNumber, domain.LiarGuessStatus{
			LiarUserID:     accused.UserID,
			GuessTimeLimit: e.cfg.GuessSeconds,
			StartTime:      time.Now(),
		})
		return e.enterPhase(ctx, g, domain.PhaseGuessingWord, time.Duration(e.cfg.GuessSeconds)*time.Second)
	}
	// пощажённый гражданин: раунд закрывается без начислений
	return e.concludeRound(ctx, g, players, nil, nil, nil, nil)
}

// finishGuess закрывает попытку лжеца (таймаут = неверно) и проводит
// единое начисление раунда: +6 за выживание и +3 за угаданное слово.
func (e *Engine) finishGuess(ctx context.Context, g *domain.Game) error {
	players, err := e.players.ListByGame(ctx, g.GameNumber)
	if err != nil {
		return err
	}

	gs, ok := e.rounds.GetGuess(ctx, g.GameNumber)
	if !ok {
		return e.concludeRound(ctx, g, players, []domain.Outcome{domain.OutcomeLiarSurvived}, nil, nil, nil)
	}
	if !gs.Submitted {
		wrong := false
		gs.TimedOut = true
		gs.Correct = &wrong
		e.rounds.SetGuess(ctx, g.GameNumber, gs)
	}

	outcomes := []domain.Outcome{domain.OutcomeLiarSurvived}
	var guesser *int64
	if gs.Correct != nil && *gs.Correct {
		outcomes = append(outcomes, domain.OutcomeLiarGuessedTopic)
		guesser = &gs.LiarUserID
	}
	return e.concludeRound(ctx, g, players, outcomes, nil, nil, guesser)
}

// concludeRound - единая точка расчёта раунда: дельты считаются чистой
// функцией, применяются одной транзакцией и публикуются, затем открывается
// послераундовое окно чата.
func (e *Engine) concludeRound(ctx context.Context, g *domain.Game, players []*domain.Player,
	outcomes []domain.Outcome, correctVoters, incorrectVoters []int64, guesser *int64) error {

	liars := aliveByRole(players, domain.RoleLiar)

	var deltas []domain.ScoreDelta
	for _, outcome := range outcomes {
		deltas = append(deltas, ComputeDeltas(outcome, liars, correctVoters, incorrectVoters, guesser)...)
	}
	if len(deltas) > 0 {
		if err := e.scores.ApplyDeltas(ctx, g.GameNumber, g.CurrentRound, deltas); err != nil {
			return err
		}
		payload := ws.ScoreSettlementPayload{Round: g.CurrentRound}
		for _, d := range deltas {
			payload.Deltas = append(payload.Deltas, ws.ScoreDelta{
				UserID: d.UserID, Delta: d.Delta, Reason: string(d.Reason),
			})
		}
		e.bcast.BroadcastGame(g.GameNumber, ws.Message{Type: ws.MsgScoreSettlement, Payload: payload})
	}

	chatWindow := time.Duration(e.cfg.PostRoundChatSeconds) * time.Second
	e.rounds.SetChatWindow(ctx, g.GameNumber, time.Now().Add(chatWindow))
	return e.enterPhase(ctx, g, domain.PhaseGameOver, chatWindow)
}

// finishRoundBreak закрывает послераундовую паузу: либо игра окончена,
// либо открывается следующий раунд.
func (e *Engine) finishRoundBreak(ctx context.Context, g *domain.Game) error {
	players, err := e.players.ListByGame(ctx, g.GameNumber)
	if err != nil {
		return err
	}

	if team, reason, over := gameOverCheck(g, players); over {
		return e.endGame(ctx, g, players, team, reason)
	}

	g.CurrentRound++
	g.AccusedPlayerID = nil
	g.CurrentTurnIndex = 0

	// порядок ходов следующего раунда - прежний, без выбывших
	var order []int64
	for _, id := range g.TurnOrderIDs() {
		if p := findPlayer(players, id); p != nil && p.Alive {
			order = append(order, id)
		}
	}
	g.SetTurnOrder(order)

	if err := e.players.ResetForRound(ctx, g.GameNumber); err != nil {
		return err
	}
	e.rounds.Cleanup(ctx, g.GameNumber)
	return e.enterPhase(ctx, g, domain.PhaseSpeech, time.Duration(e.cfg.HintTurnSeconds)*time.Second)
}

// gameOverCheck - условия конца игры в порядке приоритета
func gameOverCheck(g *domain.Game, players []*domain.Player) (domain.WinningTeam, string, bool) {
	liars := len(aliveByRole(players, domain.RoleLiar))
	citizens := len(aliveByRole(players, domain.RoleCitizen))

	switch {
	case liars == 0:
		return domain.TeamCitizens, "ALL_LIARS_ELIMINATED", true
	case citizens <= liars:
		return domain.TeamLiars, "LIARS_OUTNUMBER_CITIZENS", true
	case g.LastRound():
		return domain.TeamLiars, "LIARS_SURVIVED_ALL_ROUNDS", true
	}
	return "", "", false
}

func (e *Engine) endGame(ctx context.Context, g *domain.Game, players []*domain.Player, team domain.WinningTeam, reason string) error {
	g.State = domain.StateEnded
	g.CurrentPhase = domain.PhaseGameOver
	g.PhaseDeadline = nil
	g.WinningTeam = &team
	g.EndReason = reason
	if err := e.games.Update(ctx, g); err != nil {
		return err
	}

	winnerRole := domain.RoleCitizen
	if team == domain.TeamLiars {
		winnerRole = domain.RoleLiar
	}
	for _, p := range players {
		p.IsWinner = p.Role == winnerRole
		if err := e.players.Update(ctx, p); err != nil {
			return err
		}
	}

	e.rounds.SetTerminationReason(ctx, g.GameNumber, reason)
	e.rounds.Cleanup(ctx, g.GameNumber)
	e.dropRuntime(g.GameNumber)

	e.bcast.BroadcastGame(g.GameNumber, ws.Message{
		Type:    ws.MsgGameEnded,
		Payload: ws.GameEndedPayload{WinningTeam: string(team), Reason: reason},
	})
	e.broadcastSnapshot(ctx, g)
	logger.Info("game ended", "game", g.GameNumber, "winner", team, "reason", reason)
	return nil
}
