package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"liargame_backend/internal/domain"
	"liargame_backend/internal/ws"
)

// Полный раунд по сценарию: три игрока дают подсказки по очереди, оба
// гражданина обвиняют лжеца, вердикт - устранить. Граждане получают по
// +3, лжец ничего.
func TestFullRoundLiarEliminated(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	g := env.seedRound(t)
	n := g.GameNumber

	for _, id := range []int64{1, 2, 3} {
		if err := env.engine.SubmitHint(ctx, n, id, "hint"); err != nil {
			t.Fatalf("hint from %d: %v", id, err)
		}
	}
	if got := env.game(t, n).CurrentPhase; got != domain.PhaseVotingForLiar {
		t.Fatalf("after all hints phase = %s, want VOTING_FOR_LIAR", got)
	}

	for _, id := range []int64{1, 2, 3} {
		target := int64(1)
		if id == 1 {
			target = 2 // лжец уводит подозрение
		}
		if err := env.engine.CastVote(ctx, n, id, target); err != nil {
			t.Fatalf("vote from %d: %v", id, err)
		}
	}
	g = env.game(t, n)
	if g.CurrentPhase != domain.PhaseDefending {
		t.Fatalf("after votes phase = %s, want DEFENDING", g.CurrentPhase)
	}
	if g.AccusedPlayerID == nil || *g.AccusedPlayerID != 1 {
		t.Fatalf("accused = %v, want liar 1", g.AccusedPlayerID)
	}

	if err := env.engine.SubmitDefense(ctx, n, 1, "это не я"); err != nil {
		t.Fatalf("defense: %v", err)
	}
	if got := env.game(t, n).CurrentPhase; got != domain.PhaseVotingForSurvival {
		t.Fatalf("after defense phase = %s, want VOTING_FOR_SURVIVAL", got)
	}

	for _, id := range []int64{2, 3} {
		if err := env.engine.CastFinalVote(ctx, n, id, true); err != nil {
			t.Fatalf("final vote from %d: %v", id, err)
		}
	}

	g = env.game(t, n)
	if g.CurrentPhase != domain.PhaseGameOver {
		t.Fatalf("after execution phase = %s, want GAME_OVER", g.CurrentPhase)
	}
	if env.player(t, n, 1).Alive {
		t.Fatal("executed liar must be eliminated")
	}
	if env.scores.total(2) != 3 || env.scores.total(3) != 3 {
		t.Fatalf("correct voters must get +3 each, got %d and %d", env.scores.total(2), env.scores.total(3))
	}
	if env.scores.total(1) != 0 {
		t.Fatalf("eliminated liar score must be unchanged, got %d", env.scores.total(1))
	}

	// лжецов не осталось - пауза закрывает игру победой граждан
	env.engine.advance(ctx, n, domain.PhaseGameOver, 0)
	g = env.game(t, n)
	if g.State != domain.StateEnded || g.WinningTeam == nil || *g.WinningTeam != domain.TeamCitizens {
		t.Fatalf("citizens must win after the last liar falls: state=%s team=%v", g.State, g.WinningTeam)
	}
}

// Пощажённый лжец угадывает слово: +6 за выживание и +3 за догадку
// двумя независимыми начислениями одного раунда.
func TestSparedLiarGuessesWord(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	g := env.seedRound(t)
	n := g.GameNumber

	for _, id := range []int64{1, 2, 3} {
		if err := env.engine.SubmitHint(ctx, n, id, "hint"); err != nil {
			t.Fatalf("hint from %d: %v", id, err)
		}
	}
	for _, id := range []int64{2, 3} {
		if err := env.engine.CastVote(ctx, n, id, 1); err != nil {
			t.Fatalf("vote from %d: %v", id, err)
		}
	}
	if err := env.engine.CastVote(ctx, n, 1, 3); err != nil {
		t.Fatalf("vote from liar: %v", err)
	}
	if err := env.engine.SubmitDefense(ctx, n, 1, "поверьте мне"); err != nil {
		t.Fatalf("defense: %v", err)
	}
	// вердикты расходятся: 1 за устранение, 1 против - ничья щадит
	if err := env.engine.CastFinalVote(ctx, n, 2, true); err != nil {
		t.Fatalf("final vote: %v", err)
	}
	if err := env.engine.CastFinalVote(ctx, n, 3, false); err != nil {
		t.Fatalf("final vote: %v", err)
	}

	g = env.game(t, n)
	if g.CurrentPhase != domain.PhaseGuessingWord {
		t.Fatalf("spared liar must enter GUESSING_WORD, got %s", g.CurrentPhase)
	}
	if !env.player(t, n, 1).Alive {
		t.Fatal("spared liar must stay alive")
	}

	if err := env.engine.SubmitGuess(ctx, n, 1, "Lighthouse"); err != nil {
		t.Fatalf("guess: %v", err)
	}
	if env.scores.total(1) != 9 {
		t.Fatalf("surviving guessing liar must total +9, got %d", env.scores.total(1))
	}
	if got := env.game(t, n).CurrentPhase; got != domain.PhaseGameOver {
		t.Fatalf("after guess phase = %s, want GAME_OVER", got)
	}
}

// Гонка позднего голоса и таймера: повтор advance для той же фазы
// должен быть no-op.
func TestAdvanceIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	g := env.seedRound(t)
	n := g.GameNumber

	for _, id := range []int64{1, 2, 3} {
		if err := env.engine.SubmitHint(ctx, n, id, "hint"); err != nil {
			t.Fatalf("hint from %d: %v", id, err)
		}
	}
	for _, id := range []int64{1, 2, 3} {
		target := int64(1)
		if id == 1 {
			target = 2
		}
		if err := env.engine.CastVote(ctx, n, id, target); err != nil {
			t.Fatalf("vote from %d: %v", id, err)
		}
	}
	if got := env.game(t, n).CurrentPhase; got != domain.PhaseDefending {
		t.Fatalf("phase = %s, want DEFENDING", got)
	}

	// опоздавший таймер голосования стреляет после перехода
	env.engine.advance(ctx, n, domain.PhaseVotingForLiar, 0)

	g = env.game(t, n)
	if g.CurrentPhase != domain.PhaseDefending {
		t.Fatalf("late timer must be a no-op, phase = %s", g.CurrentPhase)
	}
	if g.AccusedPlayerID == nil || *g.AccusedPlayerID != 1 {
		t.Fatalf("accused must stand, got %v", g.AccusedPlayerID)
	}
}

// N живых игроков, N событий (подсказка или таймаут) - каждый ходит
// ровно один раз, затем голосование.
func TestTurnRotationVisitsEveryoneOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	g := env.seedRound(t)
	n := g.GameNumber

	// 1 говорит, у 2 истекает время, 3 говорит
	if err := env.engine.SubmitHint(ctx, n, 1, "first"); err != nil {
		t.Fatalf("hint: %v", err)
	}
	g = env.game(t, n)
	if g.CurrentTurnIndex != 1 {
		t.Fatalf("turn index = %d, want 1", g.CurrentTurnIndex)
	}
	env.engine.advance(ctx, n, domain.PhaseSpeech, 1) // таймаут хода игрока 2
	g = env.game(t, n)
	if g.CurrentTurnIndex != 2 {
		t.Fatalf("turn index = %d, want 2", g.CurrentTurnIndex)
	}
	if !env.player(t, n, 2).HasSubmitted {
		t.Fatal("timed-out player must get a synthetic empty hint")
	}
	if err := env.engine.SubmitHint(ctx, n, 3, "last"); err != nil {
		t.Fatalf("hint: %v", err)
	}

	if got := env.game(t, n).CurrentPhase; got != domain.PhaseVotingForLiar {
		t.Fatalf("after the last turn phase = %s, want VOTING_FOR_LIAR", got)
	}

	events := env.engine.rounds.Events(ctx, n)
	hints := 0
	for _, ev := range events {
		if ev.Kind == domain.EventHint {
			hints++
		}
	}
	if hints != 3 {
		t.Fatalf("expected exactly 3 hint events, got %d", hints)
	}
}

// Ничья в голосовании обвинения - никто не устранён, раунд закрывается.
func TestAccusationTieEliminatesNobody(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	g := env.seedRound(t)
	n := g.GameNumber

	for _, id := range []int64{1, 2, 3} {
		if err := env.engine.SubmitHint(ctx, n, id, "hint"); err != nil {
			t.Fatalf("hint from %d: %v", id, err)
		}
	}
	// 1→2, 2→1, 3 молчит: ничья 1:1 по поданным голосам
	if err := env.engine.CastVote(ctx, n, 1, 2); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := env.engine.CastVote(ctx, n, 2, 1); err != nil {
		t.Fatalf("vote: %v", err)
	}
	env.engine.advance(ctx, n, domain.PhaseVotingForLiar, 0) // дедлайн

	g = env.game(t, n)
	if g.CurrentPhase != domain.PhaseGameOver {
		t.Fatalf("tie must skip to round end, phase = %s", g.CurrentPhase)
	}
	if g.AccusedPlayerID != nil {
		t.Fatalf("tie must not accuse anyone, got %v", g.AccusedPlayerID)
	}
	for _, id := range []int64{1, 2, 3} {
		if !env.player(t, n, id).Alive {
			t.Fatalf("player %d eliminated on a tie", id)
		}
	}
	if len(env.scores.applied) != 0 {
		t.Fatalf("tie round must settle no scores, got %+v", env.scores.applied)
	}

	// пауза закрыта - второй раунд открывается речами
	env.engine.advance(ctx, n, domain.PhaseGameOver, 0)
	g = env.game(t, n)
	if g.CurrentRound != 2 || g.CurrentPhase != domain.PhaseSpeech {
		t.Fatalf("expected round 2 SPEECH, got round %d %s", g.CurrentRound, g.CurrentPhase)
	}
}

// Ноль голосов: фаза истекает без обвинения, раунд закрывается.
func TestNoVotesSkipsToNextRound(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	g := env.seedRound(t)
	n := g.GameNumber

	for _, id := range []int64{1, 2, 3} {
		if err := env.engine.SubmitHint(ctx, n, id, "hint"); err != nil {
			t.Fatalf("hint from %d: %v", id, err)
		}
	}
	env.engine.advance(ctx, n, domain.PhaseVotingForLiar, 0)

	g = env.game(t, n)
	if g.CurrentPhase != domain.PhaseGameOver || g.AccusedPlayerID != nil {
		t.Fatalf("zero votes must close the round without accusation, phase=%s accused=%v",
			g.CurrentPhase, g.AccusedPlayerID)
	}
}

// Повторный голос переписывает прежний, счётчики целей сходятся.
func TestRevoteOverwrites(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	g := env.seedRound(t)
	n := g.GameNumber

	for _, id := range []int64{1, 2, 3} {
		if err := env.engine.SubmitHint(ctx, n, id, "hint"); err != nil {
			t.Fatalf("hint from %d: %v", id, err)
		}
	}
	if err := env.engine.CastVote(ctx, n, 2, 3); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := env.engine.CastVote(ctx, n, 2, 1); err != nil {
		t.Fatalf("re-vote: %v", err)
	}

	if got := env.player(t, n, 3).VotesReceived; got != 0 {
		t.Fatalf("old target must lose the vote, votes_received = %d", got)
	}
	if got := env.player(t, n, 1).VotesReceived; got != 1 {
		t.Fatalf("new target must gain the vote, votes_received = %d", got)
	}
}

// Валидация действий: чужая фаза, чужой ход, дубль, не участник.
func TestActionValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	g := env.seedRound(t)
	n := g.GameNumber

	if err := env.engine.CastVote(ctx, n, 2, 1); err != ErrInvalidPhase {
		t.Fatalf("vote during SPEECH: want ErrInvalidPhase, got %v", err)
	}
	if err := env.engine.SubmitHint(ctx, n, 2, "not my turn"); err != ErrNotYourTurn {
		t.Fatalf("hint out of turn: want ErrNotYourTurn, got %v", err)
	}
	if err := env.engine.SubmitHint(ctx, n, 99, "stranger"); err != ErrNotParticipant {
		t.Fatalf("hint from stranger: want ErrNotParticipant, got %v", err)
	}
	if err := env.engine.SubmitHint(ctx, 404, 1, "no game"); err != ErrGameNotFound {
		t.Fatalf("hint to missing game: want ErrGameNotFound, got %v", err)
	}

	if err := env.engine.SubmitHint(ctx, n, 1, "ok"); err != nil {
		t.Fatalf("hint: %v", err)
	}
	// ход уже у игрока 2, повторная подсказка от 1 бьётся о проверку хода
	if err := env.engine.SubmitHint(ctx, n, 1, "again"); err != ErrNotYourTurn {
		t.Fatalf("second hint: want ErrNotYourTurn, got %v", err)
	}
}

// Переходы фаз публикуются: PHASE_CHANGED и снапшоты уходят в топик.
func TestTransitionsBroadcast(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	g := env.seedRound(t)
	n := g.GameNumber

	for _, id := range []int64{1, 2, 3} {
		if err := env.engine.SubmitHint(ctx, n, id, "hint"); err != nil {
			t.Fatalf("hint from %d: %v", id, err)
		}
	}

	changed := env.bcast.byType(ws.MsgPhaseChanged)
	if len(changed) == 0 {
		t.Fatal("expected PHASE_CHANGED broadcasts")
	}
	if snaps := env.bcast.byType(ws.MsgSnapshot); len(snaps) == 0 {
		t.Fatal("expected snapshot broadcasts")
	}
	last := changed[len(changed)-1].Payload.(ws.PhaseChangedPayload)
	if last.Phase != domain.PhaseVotingForLiar.String() {
		t.Fatalf("last PHASE_CHANGED = %s, want VOTING_FOR_LIAR", last.Phase)
	}
}

// Устранение лжеца при двух лжецах: +3 получают только граждане;
// подельник, голосовавший за обвиняемого лжеца, остаётся при нуле.
func TestAccompliceVoteEarnsNothing(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	g := &domain.Game{
		Owner:        "liar-one",
		TotalRounds:  3,
		LiarCount:    2,
		Mode:         domain.ModeLiarsSameWord,
		State:        domain.StateInProgress,
		CurrentRound: 1,
		CurrentPhase: domain.PhaseVotingForSurvival,
		CitizenWord:  "lighthouse",
	}
	if err := env.games.Create(ctx, g); err != nil {
		t.Fatalf("create game: %v", err)
	}
	accused := int64(1)
	g.AccusedPlayerID = &accused
	g.SetTurnOrder([]int64{1, 2, 3, 4})
	if err := env.games.Update(ctx, g); err != nil {
		t.Fatalf("update game: %v", err)
	}

	seed := []struct {
		id   int64
		role domain.Role
	}{
		{1, domain.RoleLiar},
		{2, domain.RoleLiar},
		{3, domain.RoleCitizen},
		{4, domain.RoleCitizen},
	}
	for _, s := range seed {
		p := &domain.Player{
			GameNumber: g.GameNumber,
			UserID:     s.id,
			Nickname:   fmt.Sprintf("p%d", s.id),
			Role:       s.role,
			Alive:      true,
			Connected:  true,
		}
		if s.id != 1 {
			p.VotedFor = &accused
		}
		if err := env.players.Add(ctx, p); err != nil {
			t.Fatalf("add player: %v", err)
		}
	}

	yes := true
	env.engine.rounds.SetFinalVotes(ctx, g.GameNumber, map[int64]*bool{
		2: &yes, 3: &yes, 4: &yes,
	})
	env.engine.advance(ctx, g.GameNumber, domain.PhaseVotingForSurvival, 0)

	if p := env.player(t, g.GameNumber, 1); p.Alive {
		t.Fatal("accused liar must be eliminated")
	}
	for _, id := range []int64{3, 4} {
		if got := env.scores.total(id); got != 3 {
			t.Fatalf("citizen %d total = %d, want +3", id, got)
		}
	}
	if got := env.scores.total(2); got != 0 {
		t.Fatalf("accomplice liar total = %d, want 0", got)
	}
}

// Рестарт процесса теряет таймеры: прогон застрявших игр закрывает
// просроченный ход так, будто таймер выстрелил.
func TestRecoverStaleGamesAdvances(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	g := env.seedRound(t)
	n := g.GameNumber

	past := time.Now().Add(-time.Minute)
	g.PhaseDeadline = &past
	if err := env.games.Update(ctx, g); err != nil {
		t.Fatalf("update game: %v", err)
	}

	if err := env.engine.RecoverStaleGames(ctx); err != nil {
		t.Fatalf("recover: %v", err)
	}

	g = env.game(t, n)
	if g.CurrentPhase != domain.PhaseSpeech || g.CurrentTurnIndex != 1 {
		t.Fatalf("stale speech turn must advance: phase=%s turn=%d", g.CurrentPhase, g.CurrentTurnIndex)
	}
	if p := env.player(t, n, 1); !p.HasSubmitted {
		t.Fatal("expired turn must be closed with a synthetic empty hint")
	}
	if g.PhaseDeadline == nil || !g.PhaseDeadline.After(time.Now()) {
		t.Fatal("recovered game must get a fresh deadline")
	}
}
