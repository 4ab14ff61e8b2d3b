package engine

import "errors"

var (
	ErrGameNotFound        = errors.New("game not found")
	ErrNotParticipant      = errors.New("caller is not an alive participant")
	ErrInvalidPhase        = errors.New("action not valid in current phase")
	ErrDuplicateSubmission = errors.New("already submitted for this phase")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrNotOwner            = errors.New("only the room owner may do this")
	ErrGameNotJoinable     = errors.New("game is not accepting players")
	ErrAlreadyJoined       = errors.New("already joined this game")
	ErrRoomFull            = errors.New("room is full")
	ErrCannotStart         = errors.New("not enough players to start")
	ErrInvalidTarget       = errors.New("vote target is not an alive participant")
)
