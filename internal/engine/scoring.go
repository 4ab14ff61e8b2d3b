package engine

import "liargame_backend/internal/domain"

// Очки за исходы раунда.
const (
	awardCorrectVote      = 3  // LIAR_ELIMINATED: угадавшие голосующие
	awardLiarOnInnocent   = 4  // INNOCENT_ELIMINATED: выжившие лжецы
	penaltyWrongVote      = -1 // INNOCENT_ELIMINATED: голос за невиновного
	awardCorrectVoteMinor = 1  // INNOCENT_ELIMINATED: голос всё же за лжеца
	awardLiarSurvived     = 6
	awardLiarGuessedTopic = 3
)

// ComputeDeltas - чистая функция начисления очков за исход раунда.
// Никакого I/O: машина фаз вызывает её под локом и сама применяет дельты.
func ComputeDeltas(
	outcome domain.Outcome,
	liars []int64,
	correctVoters []int64,
	incorrectVoters []int64,
	guesser *int64,
) []domain.ScoreDelta {
	var deltas []domain.ScoreDelta

	switch outcome {
	case domain.OutcomeLiarEliminated:
		for _, v := range correctVoters {
			deltas = append(deltas, domain.ScoreDelta{UserID: v, Delta: awardCorrectVote, Reason: outcome})
		}

	case domain.OutcomeInnocentEliminated:
		for _, l := range liars {
			deltas = append(deltas, domain.ScoreDelta{UserID: l, Delta: awardLiarOnInnocent, Reason: outcome})
		}
		for _, v := range incorrectVoters {
			deltas = append(deltas, domain.ScoreDelta{UserID: v, Delta: penaltyWrongVote, Reason: outcome})
		}
		for _, v := range correctVoters {
			deltas = append(deltas, domain.ScoreDelta{UserID: v, Delta: awardCorrectVoteMinor, Reason: outcome})
		}

	case domain.OutcomeLiarSurvived:
		for _, l := range liars {
			deltas = append(deltas, domain.ScoreDelta{UserID: l, Delta: awardLiarSurvived, Reason: outcome})
		}

	case domain.OutcomeLiarGuessedTopic:
		if guesser != nil {
			deltas = append(deltas, domain.ScoreDelta{UserID: *guesser, Delta: awardLiarGuessedTopic, Reason: outcome})
		}
	}

	return deltas
}
