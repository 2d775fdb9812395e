package game

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/model"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/reject"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
)

const (
	errorAlreadyJoined = "error.game.already-joined"
	errorGameClosed    = "error.game.closed-for-joining"
)

type gameService struct {
	store store.Store
	now   func() time.Time
}

func (gs *gameService) getGames(ctx context.Context) ([]model.Game, *reject.ProblemWithTrace) {
	snaps, err := gs.store.Query(ctx, store.Games, store.Query{
		OrderBy: "createdAt",
		Desc:    true,
	})
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	games := make([]model.Game, 0, len(snaps))
	for _, snap := range snaps {
		var game model.Game
		if err := snap.DataTo(&game); err != nil {
			return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
		}
		game.Id = snap.ID()
		games = append(games, game)
	}
	return games, nil
}

func (gs *gameService) getGame(ctx context.Context, gameId string) (*model.Game, *reject.ProblemWithTrace) {
	var game model.Game
	if err := gs.store.Get(ctx, store.Games, gameId, &game); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &reject.ProblemWithTrace{Problem: reject.NotFoundProblem("Game not found"), Cause: err}
		}
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	game.Id = gameId
	return &game, nil
}

// joinGame creates the caller's participant document with the budget seeded
// from the game config. Slipstream participants start with zeroed totals so
// the scoring engine can increment nested fields unconditionally.
func (gs *gameService) joinGame(ctx context.Context, gameId, userId string) (*model.GameParticipant, *reject.ProblemWithTrace) {
	game, problem := gs.getGame(ctx, gameId)
	if problem != nil {
		return nil, problem
	}

	if game.Status == model.GameFinished {
		return nil, &reject.ProblemWithTrace{
			Problem: reject.ValidationProblem("Game is closed for joining", errorGameClosed,
				fmt.Sprintf("game status is %q", game.Status)),
			Cause: fmt.Errorf("join rejected, game %s is %s", gameId, game.Status),
		}
	}

	var user model.User
	if err := gs.store.Get(ctx, store.Users, userId, &user); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &reject.ProblemWithTrace{Problem: reject.NotFoundProblem("User not found"), Cause: err}
		}
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	existing, err := gs.store.Query(ctx, store.GameParticipants, store.Query{
		Filters: []store.Filter{
			{Field: "gameId", Op: "==", Value: gameId},
			{Field: "userId", Op: "==", Value: userId},
			{Field: "status", Op: "==", Value: model.ParticipantActive},
		},
		Limit: 1,
	})
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	if len(existing) > 0 {
		return nil, &reject.ProblemWithTrace{
			Problem: reject.NewProblem().
				WithTitle("Already joined this game").
				WithStatus(http.StatusConflict).
				WithCode(errorAlreadyJoined).
				Build(),
			Cause: fmt.Errorf("user %s already participates in game %s", userId, gameId),
		}
	}

	participant := model.GameParticipant{
		GameId:     gameId,
		UserId:     userId,
		Playername: user.Playername,
		Budget:     game.Config.Budget,
		Status:     model.ParticipantActive,
		JoinedAt:   gs.now(),
	}
	if game.GameType == model.GameTypeSlipstream {
		participant.SlipstreamData = &model.SlipstreamData{UsedRiders: []string{}}
	}

	id, err := gs.store.Add(ctx, store.GameParticipants, participant)
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	participant.Id = id

	return &participant, nil
}

func (gs *gameService) getParticipants(ctx context.Context, gameId string) ([]model.GameParticipant, *reject.ProblemWithTrace) {
	snaps, err := gs.store.Query(ctx, store.GameParticipants, store.Query{
		Filters: []store.Filter{
			{Field: "gameId", Op: "==", Value: gameId},
			{Field: "status", Op: "==", Value: model.ParticipantActive},
		},
	})
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	participants := make([]model.GameParticipant, 0, len(snaps))
	for _, snap := range snaps {
		var participant model.GameParticipant
		if err := snap.DataTo(&participant); err != nil {
			return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
		}
		participant.Id = snap.ID()
		participants = append(participants, participant)
	}
	return participants, nil
}
