package engine

import (
	"context"
	"time"

	"liargame_backend/internal/domain"
)

// Валидация действий едина: игра существует, вызывающий - живой участник,
// фаза совпадает. Дальше эффект действия пишется долговечно ДО попытки
// перехода, поэтому проигрыш гонки за лок ничего не теряет.
func (e *Engine) loadForAction(ctx context.Context, gameNumber int, userID int64, phase domain.Phase) (*domain.Game, *domain.Player, []*domain.Player, error) {
	g, err := e.loadGame(ctx, gameNumber)
	if err != nil {
		return nil, nil, nil, err
	}
	if g.State != domain.StateInProgress || g.CurrentPhase != phase {
		return nil, nil, nil, ErrInvalidPhase
	}
	players, err := e.players.ListByGame(ctx, gameNumber)
	if err != nil {
		return nil, nil, nil, err
	}
	p := findPlayer(players, userID)
	if p == nil || !p.Alive {
		return nil, nil, nil, ErrNotParticipant
	}
	return g, p, players, nil
}

// SubmitHint принимает подсказку игрока, чей ход сейчас идёт
func (e *Engine) SubmitHint(ctx context.Context, gameNumber int, userID int64, text string) error {
	g, p, _, err := e.loadForAction(ctx, gameNumber, userID, domain.PhaseSpeech)
	if err != nil {
		return err
	}
	order := g.TurnOrderIDs()
	if g.CurrentTurnIndex >= len(order) || order[g.CurrentTurnIndex] != userID {
		return ErrNotYourTurn
	}
	if p.HasSubmitted {
		return ErrDuplicateSubmission
	}

	e.rounds.AppendEvent(ctx, gameNumber, domain.RoundEvent{
		Kind:      domain.EventHint,
		UserID:    userID,
		Text:      text,
		Timestamp: time.Now(),
	})
	p.HasSubmitted = true
	if err := e.players.Update(ctx, p); err != nil {
		return err
	}

	e.advance(ctx, gameNumber, domain.PhaseSpeech, g.CurrentTurnIndex)
	return nil
}

// CastVote принимает голос обвинения; повторный голос переписывает прежний
func (e *Engine) CastVote(ctx context.Context, gameNumber int, userID, targetID int64) error {
	g, p, players, err := e.loadForAction(ctx, gameNumber, userID, domain.PhaseVotingForLiar)
	if err != nil {
		return err
	}
	target := findPlayer(players, targetID)
	if target == nil || !target.Alive {
		return ErrInvalidTarget
	}

	if p.VotedFor != nil && *p.VotedFor == targetID {
		return nil // тот же голос, ничего не меняется
	}
	if p.VotedFor != nil {
		if prev := findPlayer(players, *p.VotedFor); prev != nil && prev.VotesReceived > 0 {
			prev.VotesReceived--
			if err := e.players.Update(ctx, prev); err != nil {
				return err
			}
		}
	}
	target.VotesReceived++
	if err := e.players.Update(ctx, target); err != nil {
		return err
	}
	p.VotedFor = &targetID
	if err := e.players.Update(ctx, p); err != nil {
		return err
	}
	e.rounds.AppendEvent(ctx, gameNumber, domain.RoundEvent{
		Kind:      domain.EventVote,
		UserID:    userID,
		TargetID:  &targetID,
		Timestamp: time.Now(),
	})

	// все живые проголосовали - фаза завершена досрочно
	voted := 0
	alive := alivePlayers(players)
	for _, ap := range alive {
		if ap.VotedFor != nil {
			voted++
		}
	}
	if voted == len(alive) {
		e.advance(ctx, gameNumber, domain.PhaseVotingForLiar, g.CurrentTurnIndex)
	}
	return nil
}

// SubmitDefense принимает единственную защитную речь обвиняемого
func (e *Engine) SubmitDefense(ctx context.Context, gameNumber int, userID int64, text string) error {
	g, _, _, err := e.loadForAction(ctx, gameNumber, userID, domain.PhaseDefending)
	if err != nil {
		return err
	}
	if g.AccusedPlayerID == nil || *g.AccusedPlayerID != userID {
		return ErrNotParticipant
	}
	if ds, ok := e.rounds.GetDefense(ctx, gameNumber); ok && ds.Submitted {
		return ErrDuplicateSubmission
	}

	e.rounds.SetDefense(ctx, gameNumber, domain.DefenseStatus{
		AccusedUserID: userID,
		DefenseText:   text,
		Submitted:     true,
	})
	e.rounds.AppendEvent(ctx, gameNumber, domain.RoundEvent{
		Kind:      domain.EventDefense,
		UserID:    userID,
		Text:      text,
		Timestamp: time.Now(),
	})

	e.advance(ctx, gameNumber, domain.PhaseDefending, g.CurrentTurnIndex)
	return nil
}

// CastFinalVote принимает вердикт о судьбе обвиняемого
func (e *Engine) CastFinalVote(ctx context.Context, gameNumber int, userID int64, verdict bool) error {
	g, _, _, err := e.loadForAction(ctx, gameNumber, userID, domain.PhaseVotingForSurvival)
	if err != nil {
		return err
	}
	if g.AccusedPlayerID != nil && *g.AccusedPlayerID == userID {
		return ErrNotParticipant
	}

	ballots, ok := e.rounds.GetFinalVotes(ctx, gameNumber)
	if !ok {
		ballots = make(map[int64]*bool)
	}
	if _, eligible := ballots[userID]; !eligible {
		return ErrNotParticipant
	}
	v := verdict
	ballots[userID] = &v
	e.rounds.SetFinalVotes(ctx, gameNumber, ballots)
	e.rounds.AppendEvent(ctx, gameNumber, domain.RoundEvent{
		Kind:      domain.EventFinalVote,
		UserID:    userID,
		Verdict:   &v,
		Timestamp: time.Now(),
	})

	complete := true
	for _, b := range ballots {
		if b == nil {
			complete = false
			break
		}
	}
	if complete {
		e.advance(ctx, gameNumber, domain.PhaseVotingForSurvival, g.CurrentTurnIndex)
	}
	return nil
}

// SubmitGuess принимает единственную попытку лжеца угадать слово
func (e *Engine) SubmitGuess(ctx context.Context, gameNumber int, userID int64, text string) error {
	g, _, _, err := e.loadForAction(ctx, gameNumber, userID, domain.PhaseGuessingWord)
	if err != nil {
		return err
	}
	gs, ok := e.rounds.GetGuess(ctx, gameNumber)
	if !ok || gs.LiarUserID != userID {
		return ErrNotParticipant
	}
	if gs.Submitted {
		return ErrDuplicateSubmission
	}

	correct := ValidateGuess(text, g.CitizenWord)
	gs.Submitted = true
	gs.GuessText = text
	gs.Correct = &correct
	e.rounds.SetGuess(ctx, gameNumber, gs)
	e.rounds.AppendEvent(ctx, gameNumber, domain.RoundEvent{
		Kind:      domain.EventGuess,
		UserID:    userID,
		Text:      text,
		Correct:   &correct,
		Timestamp: time.Now(),
	})

	e.advance(ctx, gameNumber, domain.PhaseGuessingWord, g.CurrentTurnIndex)
	return nil
}
