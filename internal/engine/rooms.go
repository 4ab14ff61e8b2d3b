package engine

import (
	"context"
	"math/rand"
	"time"

	"liargame_backend/internal/domain"
	"liargame_backend/internal/logger"
	"liargame_backend/internal/ws"
)

// CreateRoomParams - настройки новой комнаты
type CreateRoomParams struct {
	TotalRounds int
	LiarCount   int
	Mode        domain.GameMode
	CitizenWord string
	LiarWord    string
}

func (e *Engine) CreateRoom(ctx context.Context, ownerID int64, nickname string, params CreateRoomParams) (*domain.Game, error) {
	if params.TotalRounds <= 0 {
		params.TotalRounds = 3
	}
	if params.LiarCount <= 0 {
		params.LiarCount = 1
	}
	if params.Mode == "" {
		params.Mode = domain.ModeLiarsSameWord
	}
	if params.CitizenWord == "" {
		params.CitizenWord, params.LiarWord = randomWordPair()
	} else if params.LiarWord == "" && params.Mode == domain.ModeLiarsDifferentWord {
		// своё слово граждан, но слово лжеца не задано - подбираем отличное
		params.LiarWord = randomWordExcept(params.CitizenWord)
	}

	g := &domain.Game{
		Owner:        nickname,
		TotalRounds:  params.TotalRounds,
		LiarCount:    params.LiarCount,
		Mode:         params.Mode,
		State:        domain.StateWaiting,
		CurrentRound: 0,
		CurrentPhase: domain.PhaseWaiting,
		CitizenWord:  params.CitizenWord,
		LiarWord:     params.LiarWord,
	}
	if err := e.games.Create(ctx, g); err != nil {
		return nil, err
	}

	owner := &domain.Player{
		GameNumber: g.GameNumber,
		UserID:     ownerID,
		Nickname:   nickname,
		Role:       domain.RoleCitizen,
		Alive:      true,
		Connected:  true,
	}
	if err := e.players.Add(ctx, owner); err != nil {
		return nil, err
	}

	logger.Info("room created", "game", g.GameNumber, "owner", nickname)
	return g, nil
}

func (e *Engine) JoinRoom(ctx context.Context, gameNumber int, userID int64, nickname string) (*domain.Player, error) {
	g, err := e.loadGame(ctx, gameNumber)
	if err != nil {
		return nil, err
	}
	if g.State != domain.StateWaiting {
		return nil, ErrGameNotJoinable
	}

	players, err := e.players.ListByGame(ctx, gameNumber)
	if err != nil {
		return nil, err
	}
	if findPlayer(players, userID) != nil {
		return nil, ErrAlreadyJoined
	}
	if len(players) >= 15 {
		return nil, ErrRoomFull
	}

	p := &domain.Player{
		GameNumber: gameNumber,
		UserID:     userID,
		Nickname:   nickname,
		Role:       domain.RoleCitizen,
		Alive:      true,
		Connected:  true,
	}
	if err := e.players.Add(ctx, p); err != nil {
		return nil, err
	}

	e.bcast.BroadcastGame(gameNumber, ws.Message{
		Type:    ws.MsgPlayerJoined,
		Payload: ws.PlayerPresencePayload{UserID: userID, Nickname: nickname},
	})
	return p, nil
}

// LeaveRoom - явный выход. В ожидании место просто освобождается;
// уход владельца закрывает комнату. В активной игре выход равен
// немедленному устранению без грейс-периода.
func (e *Engine) LeaveRoom(ctx context.Context, gameNumber int, userID int64) error {
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

	if g.State == domain.StateWaiting {
		if err := e.players.Remove(ctx, gameNumber, userID); err != nil {
			return err
		}
		e.bcast.BroadcastGame(gameNumber, ws.Message{
			Type:    ws.MsgPlayerLeft,
			Payload: ws.PlayerPresencePayload{UserID: userID, Nickname: p.Nickname},
		})
		if p.Nickname == g.Owner {
			return e.terminate(ctx, g, "OWNER_LEFT")
		}
		return nil
	}

	if g.State == domain.StateEnded {
		return nil
	}
	return e.removeFromRound(ctx, gameNumber, userID)
}

// StartGame раздаёт роли, фиксирует порядок ходов и открывает первый раунд
func (e *Engine) StartGame(ctx context.Context, gameNumber int, userID int64) error {
	g, err := e.loadGame(ctx, gameNumber)
	if err != nil {
		return err
	}
	players, err := e.players.ListByGame(ctx, gameNumber)
	if err != nil {
		return err
	}
	caller := findPlayer(players, userID)
	if caller == nil {
		return ErrNotParticipant
	}
	if caller.Nickname != g.Owner {
		return ErrNotOwner
	}
	if !g.CanStart(len(players)) {
		return ErrCannotStart
	}

	// случайные роли: первые liar_count перетасованного списка - лжецы
	shuffled := make([]*domain.Player, len(players))
	copy(shuffled, players)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	order := make([]int64, 0, len(shuffled))
	for i, p := range shuffled {
		if i < g.LiarCount {
			p.Role = domain.RoleLiar
		} else {
			p.Role = domain.RoleCitizen
		}
		p.Alive = true
		p.ResetForRound()
		if err := e.players.Update(ctx, p); err != nil {
			return err
		}
		order = append(order, p.UserID)
	}

	g.State = domain.StateInProgress
	g.CurrentRound = 1
	g.SetTurnOrder(order)
	g.CurrentTurnIndex = 0
	if err := e.enterPhase(ctx, g, domain.PhaseSpeech, time.Duration(e.cfg.HintTurnSeconds)*time.Second); err != nil {
		return err
	}

	logger.Info("game started", "game", gameNumber, "players", len(players), "liars", g.LiarCount)
	return nil
}

func (e *Engine) loadGame(ctx context.Context, gameNumber int) (*domain.Game, error) {
	g, err := e.games.GetByNumber(ctx, gameNumber)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// terminate закрывает игру без определения победителя
func (e *Engine) terminate(ctx context.Context, g *domain.Game, reason string) error {
	g.State = domain.StateEnded
	g.EndReason = reason
	if err := e.games.Update(ctx, g); err != nil {
		return err
	}
	e.rounds.SetTerminationReason(ctx, g.GameNumber, reason)
	e.rounds.Cleanup(ctx, g.GameNumber)
	e.dropRuntime(g.GameNumber)
	e.bcast.BroadcastGame(g.GameNumber, ws.Message{
		Type:    ws.MsgGameEnded,
		Payload: ws.GameEndedPayload{Reason: reason},
	})
	return nil
}
