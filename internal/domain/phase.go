package domain

// Phase - стадия раунда
type Phase string

const (
	PhaseWaiting           Phase = "WAITING"
	PhaseSpeech            Phase = "SPEECH"
	PhaseVotingForLiar     Phase = "VOTING_FOR_LIAR"
	PhaseDefending         Phase = "DEFENDING"
	PhaseVotingForSurvival Phase = "VOTING_FOR_SURVIVAL"
	PhaseGuessingWord      Phase = "GUESSING_WORD"
	PhaseGameOver          Phase = "GAME_OVER"
)

func (p Phase) String() string {
	return string(p)
}

// Next returns the successor in the fixed cyclic order of a round.
// Skips (no accusation, spared citizen, eliminated liar) are decided
// by the engine, not here.
func (p Phase) Next() Phase {
	switch p {
	case PhaseWaiting:
		return PhaseSpeech
	case PhaseSpeech:
		return PhaseVotingForLiar
	case PhaseVotingForLiar:
		return PhaseDefending
	case PhaseDefending:
		return PhaseVotingForSurvival
	case PhaseVotingForSurvival:
		return PhaseGuessingWord
	case PhaseGuessingWord:
		return PhaseGameOver
	case PhaseGameOver:
		return PhaseSpeech
	default:
		return PhaseWaiting
	}
}

// CanTransitionTo checks whether a direct transition is legal: the
// successor in the cyclic order, or one of the engine-driven skips
// straight to GAME_OVER (no accusation, vanished accused, spared or
// executed verdict).
func (p Phase) CanTransitionTo(target Phase) bool {
	if target == p.Next() {
		return true
	}
	switch p {
	case PhaseVotingForLiar, PhaseDefending, PhaseVotingForSurvival:
		return target == PhaseGameOver
	}
	return false
}
