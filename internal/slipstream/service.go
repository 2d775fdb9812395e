package slipstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/activity"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/model"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/pubsub"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/reject"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
)

const (
	errorNotSlipstreamGame = "error.slipstream.not-a-slipstream-game"
	errorRaceNotInGame     = "error.slipstream.race-not-in-game"
	errorNoParticipants    = "error.slipstream.no-participants"
	errorEmptyResults      = "error.slipstream.empty-results"
	errorRaceLocked        = "error.slipstream.race-locked"
	errorRiderAlreadyUsed  = "error.slipstream.rider-already-used"
	errorPickLocked        = "error.slipstream.pick-locked"
	errorNotAParticipant   = "error.slipstream.not-a-participant"
)

// StageResult is one row of a finished race's result list.
type StageResult struct {
	Place      int
	RiderId    string
	RiderName  string
	GapSeconds int64
	Marker     string // "" for finishers, otherwise DNF/DNS/DSQ
}

type ParticipantResult struct {
	UserId              string              `json:"userId"`
	Playername          string              `json:"playername"`
	RiderId             *string             `json:"riderId"`
	RiderName           string              `json:"riderName"`
	TimeLostSeconds     int64               `json:"timeLostSeconds"`
	TimeLostFormatted   string              `json:"timeLostFormatted"`
	GreenJerseyPoints   int64               `json:"greenJerseyPoints"`
	RiderFinishPosition *int                `json:"riderFinishPosition"`
	IsPenalty           bool                `json:"isPenalty"`
	PenaltyReason       model.PenaltyReason `json:"penaltyReason,omitempty"`
}

type ResultsSummary struct {
	ParticipantsProcessed int `json:"participantsProcessed"`
	PicksWithResults      int `json:"picksWithResults"`
	MissedPicks           int `json:"missedPicks"`
	DnfPenalties          int `json:"dnfPenalties"`
}

type CalculationOutcome struct {
	ProcessedAt time.Time
	Summary     ResultsSummary
	Results     []ParticipantResult
}

type slipstreamService struct {
	store    store.Store
	activity *activity.Logger
	publish  func(message pubsub.Publishable, options ...map[string]any)
	now      func() time.Time
}

// calculateResults scores one finished race for every active participant and
// commits picks, aggregates and the race-status flip as a single batch. It is
// safe to re-run with corrected results: aggregates move by the delta between
// the new and previously recorded values.
func (ss *slipstreamService) calculateResults(ctx context.Context, gameId, raceSlug string, results []StageResult) (*CalculationOutcome, *reject.ProblemWithTrace) {
	var game model.Game
	if err := ss.store.Get(ctx, store.Games, gameId, &game); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &reject.ProblemWithTrace{Problem: reject.NotFoundProblem("Game not found"), Cause: err}
		}
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	game.Id = gameId

	if game.GameType != model.GameTypeSlipstream {
		return nil, validationProblem("Not a Slipstream game", errorNotSlipstreamGame,
			fmt.Sprintf("game type is %q", game.GameType))
	}

	raceIndex := -1
	for i, race := range game.Config.CountingRaces {
		if race.Slug == raceSlug {
			raceIndex = i
			break
		}
	}
	if raceIndex == -1 {
		return nil, validationProblem("Race is not part of this game", errorRaceNotInGame, raceSlug)
	}
	race := game.Config.CountingRaces[raceIndex]

	if len(results) == 0 {
		return nil, validationProblem("Stage results are empty", errorEmptyResults, raceSlug)
	}

	participants, err := ss.activeParticipants(ctx, gameId)
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	if len(participants) == 0 {
		return nil, validationProblem("Game has no active participants", errorNoParticipants, gameId)
	}

	finishers := make(map[string]StageResult)
	nonFinishers := make(map[string]StageResult)
	var lastFinisherGap int64
	for _, row := range results {
		if row.Marker == "" {
			finishers[row.RiderId] = row
			if row.GapSeconds > lastFinisherGap {
				lastFinisherGap = row.GapSeconds
			}
		} else {
			nonFinishers[row.RiderId] = row
		}
	}

	picks, err := ss.racePicks(ctx, gameId, raceSlug)
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	// Pass 1: classify. Valid picks get their gap and points immediately;
	// everyone else is deferred so the penalty can reference the worst valid
	// time among the other participants.
	type pendingPenalty struct {
		participant model.GameParticipant
		pick        *model.StagePick
		reason      model.PenaltyReason
	}
	type validPick struct {
		userId   string
		timeLost int64
	}

	var validTimes []validPick
	var penalties []pendingPenalty
	outcomes := make(map[string]ParticipantResult)

	for _, participant := range participants {
		pick, hasPick := picks[participant.UserId]

		if !hasPick || pick.RiderId == nil {
			penalties = append(penalties, pendingPenalty{participant: participant, pick: pick, reason: model.PenaltyMissedPick})
			continue
		}

		riderId := *pick.RiderId
		if row, finished := finishers[riderId]; finished {
			position := row.Place
			outcomes[participant.UserId] = ParticipantResult{
				UserId:              participant.UserId,
				Playername:          participant.Playername,
				RiderId:             pick.RiderId,
				RiderName:           pick.RiderName,
				TimeLostSeconds:     row.GapSeconds,
				TimeLostFormatted:   FormatTimeLost(row.GapSeconds),
				GreenJerseyPoints:   greenJerseyPoints(race, position),
				RiderFinishPosition: &position,
			}
			validTimes = append(validTimes, validPick{userId: participant.UserId, timeLost: row.GapSeconds})
			continue
		}

		reason := model.PenaltyDNF
		if row, marked := nonFinishers[riderId]; marked {
			switch row.Marker {
			case "DNS":
				reason = model.PenaltyDNS
			case "DSQ":
				reason = model.PenaltyDSQ
			}
		}
		penalties = append(penalties, pendingPenalty{participant: participant, pick: pick, reason: reason})
	}

	// Pass 2: penalty time is the worst valid time among the other
	// participants plus the configured penalty. With no valid picks at all the
	// race's own last finisher sets the baseline.
	penaltySeconds := race.PenaltyMinutes * 60
	for _, pending := range penalties {
		var baseline int64
		found := false
		for _, valid := range validTimes {
			if valid.userId == pending.participant.UserId {
				continue
			}
			if !found || valid.timeLost > baseline {
				baseline = valid.timeLost
			}
			found = true
		}
		if !found {
			baseline = lastFinisherGap
		}

		timeLost := baseline + penaltySeconds
		result := ParticipantResult{
			UserId:            pending.participant.UserId,
			Playername:        pending.participant.Playername,
			TimeLostSeconds:   timeLost,
			TimeLostFormatted: FormatTimeLost(timeLost),
			IsPenalty:         true,
			PenaltyReason:     pending.reason,
		}
		if pending.pick != nil && pending.pick.RiderId != nil {
			result.RiderId = pending.pick.RiderId
			result.RiderName = pending.pick.RiderName
		}
		outcomes[pending.participant.UserId] = result
	}

	// Commit everything in one batch: pick documents, participant aggregates
	// and the counting-race status flip.
	processedAt := ss.now()
	batch := ss.store.Batch()
	summary := ResultsSummary{ParticipantsProcessed: len(participants)}

	for _, participant := range participants {
		result := outcomes[participant.UserId]
		pick := picks[participant.UserId]

		newPick := model.StagePick{
			GameId:              gameId,
			UserId:              participant.UserId,
			RaceSlug:            raceSlug,
			RiderId:             result.RiderId,
			RiderName:           result.RiderName,
			TimeLostSeconds:     result.TimeLostSeconds,
			TimeLostFormatted:   result.TimeLostFormatted,
			GreenJerseyPoints:   result.GreenJerseyPoints,
			RiderFinishPosition: result.RiderFinishPosition,
			IsPenalty:           result.IsPenalty,
			PenaltyReason:       result.PenaltyReason,
			ProcessedAt:         &processedAt,
			Locked:              true,
		}

		timeDelta := result.TimeLostSeconds
		pointsDelta := result.GreenJerseyPoints
		firstRun := true
		if pick != nil && pick.ProcessedAt != nil {
			timeDelta = result.TimeLostSeconds - pick.TimeLostSeconds
			pointsDelta = result.GreenJerseyPoints - pick.GreenJerseyPoints
			firstRun = false
		}

		if pick != nil {
			batch.Set(store.StagePicks, pick.Id, newPick)
		} else {
			batch.Create(store.StagePicks, newPick)
		}

		updates := []store.Update{
			{Field: "slipstreamData.totalTimeLostSeconds", Value: store.Increment(timeDelta)},
			{Field: "slipstreamData.totalGreenJerseyPoints", Value: store.Increment(pointsDelta)},
		}
		if firstRun {
			if result.IsPenalty && result.PenaltyReason == model.PenaltyMissedPick {
				updates = append(updates, store.Update{Field: "slipstreamData.missedPicksCount", Value: store.Increment(1)})
			} else {
				updates = append(updates, store.Update{Field: "slipstreamData.picksCount", Value: store.Increment(1)})
			}
		}
		batch.Update(store.GameParticipants, participant.Id, updates)

		switch {
		case !result.IsPenalty:
			summary.PicksWithResults++
		case result.PenaltyReason == model.PenaltyMissedPick:
			summary.MissedPicks++
		default:
			summary.DnfPenalties++
		}
	}

	countingRaces := make([]model.CountingRace, len(game.Config.CountingRaces))
	copy(countingRaces, game.Config.CountingRaces)
	countingRaces[raceIndex].Status = model.RaceFinished
	batch.Update(store.Games, gameId, []store.Update{
		{Field: "config.countingRaces", Value: countingRaces},
	})

	if err := batch.Commit(ctx); err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	sorted := make([]ParticipantResult, 0, len(outcomes))
	for _, participant := range participants {
		sorted = append(sorted, outcomes[participant.UserId])
	}
	sortResults(sorted)

	ss.activity.Log(ctx, model.ActivityLog{
		Type:   model.ActivityResultsProcessed,
		GameId: gameId,
		Details: map[string]any{
			"raceSlug":              raceSlug,
			"participantsProcessed": summary.ParticipantsProcessed,
			"picksWithResults":      summary.PicksWithResults,
			"missedPicks":           summary.MissedPicks,
			"dnfPenalties":          summary.DnfPenalties,
		},
	})
	ss.publish(resultsNotification{
		GameId:   gameId,
		RaceSlug: raceSlug,
		Summary:  summary,
	})

	return &CalculationOutcome{ProcessedAt: processedAt, Summary: summary, Results: sorted}, nil
}

func greenJerseyPoints(race model.CountingRace, position int) int64 {
	if position < 1 || position > len(race.GreenJerseyPoints) {
		return 0
	}
	return race.GreenJerseyPoints[position-1]
}

func sortResults(results []ParticipantResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TimeLostSeconds < results[j].TimeLostSeconds
	})
}

func (ss *slipstreamService) activeParticipants(ctx context.Context, gameId string) ([]model.GameParticipant, error) {
	snaps, err := ss.store.Query(ctx, store.GameParticipants, store.Query{
		Filters: []store.Filter{
			{Field: "gameId", Op: "==", Value: gameId},
			{Field: "status", Op: "==", Value: model.ParticipantActive},
		},
	})
	if err != nil {
		return nil, err
	}

	participants := make([]model.GameParticipant, 0, len(snaps))
	for _, snap := range snaps {
		var participant model.GameParticipant
		if err := snap.DataTo(&participant); err != nil {
			return nil, err
		}
		participant.Id = snap.ID()
		participants = append(participants, participant)
	}
	return participants, nil
}

func (ss *slipstreamService) racePicks(ctx context.Context, gameId, raceSlug string) (map[string]*model.StagePick, error) {
	snaps, err := ss.store.Query(ctx, store.StagePicks, store.Query{
		Filters: []store.Filter{
			{Field: "gameId", Op: "==", Value: gameId},
			{Field: "raceSlug", Op: "==", Value: raceSlug},
		},
	})
	if err != nil {
		return nil, err
	}

	picks := make(map[string]*model.StagePick, len(snaps))
	for _, snap := range snaps {
		var pick model.StagePick
		if err := snap.DataTo(&pick); err != nil {
			return nil, err
		}
		pick.Id = snap.ID()
		picks[pick.UserId] = &pick
	}
	return picks, nil
}

type resultsNotification struct {
	GameId   string         `json:"gameId"`
	RaceSlug string         `json:"raceSlug"`
	Summary  ResultsSummary `json:"summary"`
}

func (resultsNotification) GetEventTopicName() string {
	return "oracle-games.notifications.commands"
}

func validationProblem(title, code, detail string) *reject.ProblemWithTrace {
	return &reject.ProblemWithTrace{
		Problem: reject.ValidationProblem(title, code, detail),
		Cause:   errors.New(detail),
	}
}

func notFoundParticipantProblem() *reject.ProblemWithTrace {
	return &reject.ProblemWithTrace{
		Problem: reject.NewProblem().
			WithTitle("Not an active participant of this game").
			WithStatus(http.StatusBadRequest).
			WithCode(errorNotAParticipant).
			Build(),
		Cause: errors.New("caller is not an active participant"),
	}
}
