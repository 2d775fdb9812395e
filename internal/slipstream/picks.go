package slipstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/model"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/reject"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
)

type savePickCommand struct {
	GameId    string
	UserId    string
	RaceSlug  string
	RiderId   string
	RiderName string
}

// savePick creates or replaces the caller's pick for an open race. Each rider
// can be used once per game; changing a pick frees the previously chosen
// rider. Picks become immutable once the scoring engine has locked them.
func (ss *slipstreamService) savePick(ctx context.Context, cmd savePickCommand) (*model.StagePick, *reject.ProblemWithTrace) {
	var game model.Game
	if err := ss.store.Get(ctx, store.Games, cmd.GameId, &game); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &reject.ProblemWithTrace{Problem: reject.NotFoundProblem("Game not found"), Cause: err}
		}
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	if game.GameType != model.GameTypeSlipstream {
		return nil, validationProblem("Not a Slipstream game", errorNotSlipstreamGame,
			fmt.Sprintf("game type is %q", game.GameType))
	}

	var race *model.CountingRace
	for i := range game.Config.CountingRaces {
		if game.Config.CountingRaces[i].Slug == cmd.RaceSlug {
			race = &game.Config.CountingRaces[i]
			break
		}
	}
	if race == nil {
		return nil, validationProblem("Race is not part of this game", errorRaceNotInGame, cmd.RaceSlug)
	}
	if race.Status == model.RaceFinished {
		return nil, validationProblem("Race results are already processed", errorRaceLocked, cmd.RaceSlug)
	}

	participant, err := ss.participant(ctx, cmd.GameId, cmd.UserId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundParticipantProblem()
		}
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	existing, err := ss.userRacePick(ctx, cmd.GameId, cmd.UserId, cmd.RaceSlug)
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	if existing != nil && existing.Locked {
		return nil, validationProblem("Pick is locked", errorPickLocked, cmd.RaceSlug)
	}

	// Rebuild usedRiders: the replaced pick's rider is released, the new one
	// claimed. Claiming a rider already used in another race is rejected.
	var releasedRider string
	if existing != nil && existing.RiderId != nil {
		releasedRider = *existing.RiderId
	}

	usedRiders := make([]string, 0)
	if participant.SlipstreamData != nil {
		for _, rider := range participant.SlipstreamData.UsedRiders {
			if rider == releasedRider {
				continue
			}
			if rider == cmd.RiderId {
				return nil, validationProblem("Rider already used in this game", errorRiderAlreadyUsed, cmd.RiderId)
			}
			usedRiders = append(usedRiders, rider)
		}
	}
	usedRiders = append(usedRiders, cmd.RiderId)

	riderId := cmd.RiderId
	pick := model.StagePick{
		GameId:    cmd.GameId,
		UserId:    cmd.UserId,
		RaceSlug:  cmd.RaceSlug,
		RiderId:   &riderId,
		RiderName: cmd.RiderName,
	}

	batch := ss.store.Batch()
	if existing != nil {
		batch.Set(store.StagePicks, existing.Id, pick)
		pick.Id = existing.Id
	} else {
		pick.Id = batch.Create(store.StagePicks, pick)
	}
	batch.Update(store.GameParticipants, participant.Id, []store.Update{
		{Field: "slipstreamData.usedRiders", Value: usedRiders},
	})
	if err := batch.Commit(ctx); err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	return &pick, nil
}

func (ss *slipstreamService) listPicks(ctx context.Context, gameId, raceSlug, userId string) ([]model.StagePick, *reject.ProblemWithTrace) {
	filters := []store.Filter{
		{Field: "gameId", Op: "==", Value: gameId},
	}
	if raceSlug != "" {
		filters = append(filters, store.Filter{Field: "raceSlug", Op: "==", Value: raceSlug})
	}
	if userId != "" {
		filters = append(filters, store.Filter{Field: "userId", Op: "==", Value: userId})
	}

	snaps, err := ss.store.Query(ctx, store.StagePicks, store.Query{Filters: filters})
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	picks := make([]model.StagePick, 0, len(snaps))
	for _, snap := range snaps {
		var pick model.StagePick
		if err := snap.DataTo(&pick); err != nil {
			return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
		}
		pick.Id = snap.ID()
		picks = append(picks, pick)
	}
	return picks, nil
}

func (ss *slipstreamService) participant(ctx context.Context, gameId, userId string) (*model.GameParticipant, error) {
	snaps, err := ss.store.Query(ctx, store.GameParticipants, store.Query{
		Filters: []store.Filter{
			{Field: "gameId", Op: "==", Value: gameId},
			{Field: "userId", Op: "==", Value: userId},
			{Field: "status", Op: "==", Value: model.ParticipantActive},
		},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, store.ErrNotFound
	}

	var participant model.GameParticipant
	if err := snaps[0].DataTo(&participant); err != nil {
		return nil, err
	}
	participant.Id = snaps[0].ID()
	return &participant, nil
}

func (ss *slipstreamService) userRacePick(ctx context.Context, gameId, userId, raceSlug string) (*model.StagePick, error) {
	snaps, err := ss.store.Query(ctx, store.StagePicks, store.Query{
		Filters: []store.Filter{
			{Field: "gameId", Op: "==", Value: gameId},
			{Field: "userId", Op: "==", Value: userId},
			{Field: "raceSlug", Op: "==", Value: raceSlug},
		},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	var pick model.StagePick
	if err := snaps[0].DataTo(&pick); err != nil {
		return nil, err
	}
	pick.Id = snaps[0].ID()
	return &pick, nil
}
