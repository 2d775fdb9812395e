package slipstream

import (
	"context"
	"testing"
	"time"

	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/activity"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/model"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/pubsub"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
)

var testTime = time.Date(2025, 7, 14, 18, 0, 0, 0, time.UTC)

func newTestService(mem *store.MemoryStore) (*slipstreamService, *[]pubsub.Publishable) {
	published := &[]pubsub.Publishable{}
	return &slipstreamService{
		store:    mem,
		activity: &activity.Logger{Store: mem, Now: func() time.Time { return testTime }},
		publish: func(message pubsub.Publishable, options ...map[string]any) {
			*published = append(*published, message)
		},
		now: func() time.Time { return testTime },
	}, published
}

func seedSlipstreamGame(t *testing.T, mem *store.MemoryStore) {
	t.Helper()
	err := mem.Set(context.Background(), store.Games, "game-1", model.Game{
		Name:     "Slipstream Tour",
		GameType: model.GameTypeSlipstream,
		Status:   model.GameActive,
		Config: model.GameConfig{
			CountingRaces: []model.CountingRace{
				{
					Slug:              "stage-1",
					Name:              "Stage 1",
					PenaltyMinutes:    1,
					GreenJerseyPoints: []int64{50, 30, 20},
					Status:            model.RaceOpen,
				},
				{
					Slug:           "stage-2",
					Name:           "Stage 2",
					PenaltyMinutes: 2,
					Status:         model.RaceOpen,
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("seeding game: %v", err)
	}
}

func seedParticipant(t *testing.T, mem *store.MemoryStore, id, userId, playername string, usedRiders ...string) {
	t.Helper()
	if usedRiders == nil {
		usedRiders = []string{}
	}
	err := mem.Set(context.Background(), store.GameParticipants, id, model.GameParticipant{
		GameId:         "game-1",
		UserId:         userId,
		Playername:     playername,
		Status:         model.ParticipantActive,
		JoinedAt:       testTime,
		SlipstreamData: &model.SlipstreamData{UsedRiders: usedRiders},
	})
	if err != nil {
		t.Fatalf("seeding participant: %v", err)
	}
}

func seedPick(t *testing.T, mem *store.MemoryStore, id, userId, raceSlug, riderId, riderName string) {
	t.Helper()
	err := mem.Set(context.Background(), store.StagePicks, id, model.StagePick{
		GameId:    "game-1",
		UserId:    userId,
		RaceSlug:  raceSlug,
		RiderId:   &riderId,
		RiderName: riderName,
	})
	if err != nil {
		t.Fatalf("seeding pick: %v", err)
	}
}

func getParticipant(t *testing.T, mem *store.MemoryStore, id string) model.GameParticipant {
	t.Helper()
	var participant model.GameParticipant
	if err := mem.Get(context.Background(), store.GameParticipants, id, &participant); err != nil {
		t.Fatalf("loading participant %s: %v", id, err)
	}
	return participant
}

func resultFor(t *testing.T, outcome *CalculationOutcome, userId string) ParticipantResult {
	t.Helper()
	for _, result := range outcome.Results {
		if result.UserId == userId {
			return result
		}
	}
	t.Fatalf("no result for user %s", userId)
	return ParticipantResult{}
}

func TestCalculateResultsScoresAndPenalizes(t *testing.T) {
	mem := store.NewMemory()
	svc, published := newTestService(mem)
	seedSlipstreamGame(t, mem)
	seedParticipant(t, mem, "p1", "user-1", "eddy", "pogacar")
	seedParticipant(t, mem, "p2", "user-2", "fausto", "cavendish")
	seedParticipant(t, mem, "p3", "user-3", "jacques")

	seedPick(t, mem, "pick-1", "user-1", "stage-1", "pogacar", "Tadej Pogacar")
	seedPick(t, mem, "pick-2", "user-2", "stage-1", "cavendish", "Mark Cavendish")
	// user-3 never picked.

	results := []StageResult{
		{Place: 1, RiderId: "vingegaard", RiderName: "Jonas Vingegaard", GapSeconds: 0},
		{Place: 2, RiderId: "pogacar", RiderName: "Tadej Pogacar", GapSeconds: 600},
		{Place: 3, RiderId: "roglic", RiderName: "Primoz Roglic", GapSeconds: 720},
		{RiderId: "cavendish", RiderName: "Mark Cavendish", Marker: "DNF"},
	}

	outcome, problem := svc.calculateResults(context.Background(), "game-1", "stage-1", results)
	if problem != nil {
		t.Fatalf("unexpected problem: %+v", problem.Problem)
	}

	if outcome.Summary.ParticipantsProcessed != 3 {
		t.Errorf("expected 3 participants processed, got %d", outcome.Summary.ParticipantsProcessed)
	}
	if outcome.Summary.PicksWithResults != 1 || outcome.Summary.DnfPenalties != 1 || outcome.Summary.MissedPicks != 1 {
		t.Errorf("unexpected summary: %+v", outcome.Summary)
	}

	// user-1's rider finished 2nd: 600s behind, 30 green jersey points.
	scored := resultFor(t, outcome, "user-1")
	if scored.TimeLostSeconds != 600 {
		t.Errorf("expected 600s for finisher, got %d", scored.TimeLostSeconds)
	}
	if scored.GreenJerseyPoints != 30 {
		t.Errorf("expected 30 points for 2nd place, got %d", scored.GreenJerseyPoints)
	}
	if scored.RiderFinishPosition == nil || *scored.RiderFinishPosition != 2 {
		t.Errorf("expected finish position 2, got %v", scored.RiderFinishPosition)
	}

	// Penalties build on the worst valid time among the others (600s) plus the
	// configured minute.
	dnf := resultFor(t, outcome, "user-2")
	if dnf.TimeLostSeconds != 660 {
		t.Errorf("expected 660s DNF penalty, got %d", dnf.TimeLostSeconds)
	}
	if !dnf.IsPenalty || dnf.PenaltyReason != model.PenaltyDNF {
		t.Errorf("expected DNF penalty, got %+v", dnf)
	}

	missed := resultFor(t, outcome, "user-3")
	if missed.TimeLostSeconds != 660 {
		t.Errorf("expected 660s missed-pick penalty, got %d", missed.TimeLostSeconds)
	}
	if missed.PenaltyReason != model.PenaltyMissedPick {
		t.Errorf("expected missed_pick reason, got %q", missed.PenaltyReason)
	}

	// Results sorted best first.
	if outcome.Results[0].UserId != "user-1" {
		t.Errorf("expected user-1 first in standings, got %s", outcome.Results[0].UserId)
	}

	// Aggregates committed atomically with the picks.
	p1 := getParticipant(t, mem, "p1")
	if p1.SlipstreamData.TotalTimeLostSeconds != 600 || p1.SlipstreamData.TotalGreenJerseyPoints != 30 {
		t.Errorf("unexpected p1 aggregates: %+v", p1.SlipstreamData)
	}
	if p1.SlipstreamData.PicksCount != 1 || p1.SlipstreamData.MissedPicksCount != 0 {
		t.Errorf("unexpected p1 counts: %+v", p1.SlipstreamData)
	}
	p3 := getParticipant(t, mem, "p3")
	if p3.SlipstreamData.MissedPicksCount != 1 || p3.SlipstreamData.PicksCount != 0 {
		t.Errorf("unexpected p3 counts: %+v", p3.SlipstreamData)
	}

	// Race flipped to finished, the other race untouched.
	var game model.Game
	if err := mem.Get(context.Background(), store.Games, "game-1", &game); err != nil {
		t.Fatal(err)
	}
	if game.Config.CountingRaces[0].Status != model.RaceFinished {
		t.Errorf("expected stage-1 finished, got %q", game.Config.CountingRaces[0].Status)
	}
	if game.Config.CountingRaces[1].Status != model.RaceOpen {
		t.Errorf("expected stage-2 untouched, got %q", game.Config.CountingRaces[1].Status)
	}

	// Picks locked with the processing timestamp.
	var pick model.StagePick
	if err := mem.Get(context.Background(), store.StagePicks, "pick-1", &pick); err != nil {
		t.Fatal(err)
	}
	if !pick.Locked || pick.ProcessedAt == nil {
		t.Errorf("expected locked processed pick, got %+v", pick)
	}
	if !outcome.ProcessedAt.Equal(testTime) {
		t.Errorf("expected outcome timestamp from the service clock, got %v", outcome.ProcessedAt)
	}
	if pick.ProcessedAt != nil && !pick.ProcessedAt.Equal(outcome.ProcessedAt) {
		t.Errorf("expected stored and reported timestamps to match: %v vs %v", pick.ProcessedAt, outcome.ProcessedAt)
	}

	if len(*published) != 1 {
		t.Errorf("expected 1 results notification, got %d", len(*published))
	}
}

func TestCalculateResultsRerunAppliesDelta(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(mem)
	seedSlipstreamGame(t, mem)
	seedParticipant(t, mem, "p1", "user-1", "eddy", "pogacar")
	seedParticipant(t, mem, "p2", "user-2", "fausto", "vingegaard")
	seedPick(t, mem, "pick-1", "user-1", "stage-1", "pogacar", "Tadej Pogacar")
	seedPick(t, mem, "pick-2", "user-2", "stage-1", "vingegaard", "Jonas Vingegaard")

	results := []StageResult{
		{Place: 1, RiderId: "vingegaard", GapSeconds: 0},
		{Place: 2, RiderId: "pogacar", GapSeconds: 120},
	}

	ctx := context.Background()
	if _, problem := svc.calculateResults(ctx, "game-1", "stage-1", results); problem != nil {
		t.Fatalf("first run failed: %+v", problem.Problem)
	}

	// Identical re-run must not move the totals.
	if _, problem := svc.calculateResults(ctx, "game-1", "stage-1", results); problem != nil {
		t.Fatalf("re-run failed: %+v", problem.Problem)
	}
	p1 := getParticipant(t, mem, "p1")
	if p1.SlipstreamData.TotalTimeLostSeconds != 120 {
		t.Errorf("expected total unchanged at 120 after re-run, got %d", p1.SlipstreamData.TotalTimeLostSeconds)
	}
	if p1.SlipstreamData.PicksCount != 1 {
		t.Errorf("expected picksCount unchanged at 1, got %d", p1.SlipstreamData.PicksCount)
	}

	// Corrected results move the aggregate by the delta only.
	corrected := []StageResult{
		{Place: 1, RiderId: "vingegaard", GapSeconds: 0},
		{Place: 2, RiderId: "pogacar", GapSeconds: 90},
	}
	if _, problem := svc.calculateResults(ctx, "game-1", "stage-1", corrected); problem != nil {
		t.Fatalf("corrected run failed: %+v", problem.Problem)
	}
	p1 = getParticipant(t, mem, "p1")
	if p1.SlipstreamData.TotalTimeLostSeconds != 90 {
		t.Errorf("expected corrected total 90, got %d", p1.SlipstreamData.TotalTimeLostSeconds)
	}
}

func TestCalculateResultsAllPenalizedUsesLastFinisherGap(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(mem)
	seedSlipstreamGame(t, mem)
	seedParticipant(t, mem, "p1", "user-1", "eddy")
	seedParticipant(t, mem, "p2", "user-2", "fausto")

	// Nobody picked; the baseline falls back to the last finisher's gap.
	results := []StageResult{
		{Place: 1, RiderId: "vingegaard", GapSeconds: 0},
		{Place: 2, RiderId: "pogacar", GapSeconds: 300},
	}

	outcome, problem := svc.calculateResults(context.Background(), "game-1", "stage-1", results)
	if problem != nil {
		t.Fatalf("unexpected problem: %+v", problem.Problem)
	}
	for _, result := range outcome.Results {
		if result.TimeLostSeconds != 360 {
			t.Errorf("expected 360s penalty for %s, got %d", result.UserId, result.TimeLostSeconds)
		}
	}
}

func TestCalculateResultsValidation(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(mem)
	seedSlipstreamGame(t, mem)
	ctx := context.Background()

	results := []StageResult{{Place: 1, RiderId: "pogacar", GapSeconds: 0}}

	if _, problem := svc.calculateResults(ctx, "missing", "stage-1", results); problem == nil || problem.Problem.Status != 404 {
		t.Error("expected 404 for unknown game")
	}

	if _, problem := svc.calculateResults(ctx, "game-1", "stage-99", results); problem == nil || problem.Problem.Code != errorRaceNotInGame {
		t.Error("expected race-not-in-game rejection")
	}

	if _, problem := svc.calculateResults(ctx, "game-1", "stage-1", nil); problem == nil || problem.Problem.Code != errorEmptyResults {
		t.Error("expected empty-results rejection")
	}

	if _, problem := svc.calculateResults(ctx, "game-1", "stage-1", results); problem == nil || problem.Problem.Code != errorNoParticipants {
		t.Error("expected no-participants rejection")
	}

	if err := mem.Set(ctx, store.Games, "game-2", model.Game{
		GameType: model.GameTypeAuctioneer,
		Status:   model.GameActive,
	}); err != nil {
		t.Fatal(err)
	}
	if _, problem := svc.calculateResults(ctx, "game-2", "stage-1", results); problem == nil || problem.Problem.Code != errorNotSlipstreamGame {
		t.Error("expected not-a-slipstream-game rejection")
	}
}

func TestGreenJerseyPointsTable(t *testing.T) {
	race := model.CountingRace{GreenJerseyPoints: []int64{50, 30, 20}}

	cases := []struct {
		position int
		want     int64
	}{
		{1, 50},
		{2, 30},
		{3, 20},
		{4, 0},
		{0, 0},
		{-1, 0},
	}
	for _, tc := range cases {
		if got := greenJerseyPoints(race, tc.position); got != tc.want {
			t.Errorf("position %d: expected %d points, got %d", tc.position, tc.want, got)
		}
	}
}

func TestSavePick(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(mem)
	seedSlipstreamGame(t, mem)
	seedParticipant(t, mem, "p1", "user-1", "eddy")

	ctx := context.Background()
	pick, problem := svc.savePick(ctx, savePickCommand{
		GameId: "game-1", UserId: "user-1", RaceSlug: "stage-1", RiderId: "pogacar", RiderName: "Tadej Pogacar",
	})
	if problem != nil {
		t.Fatalf("save failed: %+v", problem.Problem)
	}
	if pick.RiderId == nil || *pick.RiderId != "pogacar" {
		t.Errorf("unexpected pick rider: %+v", pick)
	}

	p1 := getParticipant(t, mem, "p1")
	if len(p1.SlipstreamData.UsedRiders) != 1 || p1.SlipstreamData.UsedRiders[0] != "pogacar" {
		t.Errorf("expected pogacar claimed, got %v", p1.SlipstreamData.UsedRiders)
	}

	// Changing the pick frees the previous rider.
	if _, problem := svc.savePick(ctx, savePickCommand{
		GameId: "game-1", UserId: "user-1", RaceSlug: "stage-1", RiderId: "vingegaard", RiderName: "Jonas Vingegaard",
	}); problem != nil {
		t.Fatalf("pick change failed: %+v", problem.Problem)
	}
	p1 = getParticipant(t, mem, "p1")
	if len(p1.SlipstreamData.UsedRiders) != 1 || p1.SlipstreamData.UsedRiders[0] != "vingegaard" {
		t.Errorf("expected pogacar released, got %v", p1.SlipstreamData.UsedRiders)
	}

	// The released rider is claimable again in another race; a claimed one is
	// not.
	if _, problem := svc.savePick(ctx, savePickCommand{
		GameId: "game-1", UserId: "user-1", RaceSlug: "stage-2", RiderId: "vingegaard", RiderName: "Jonas Vingegaard",
	}); problem == nil || problem.Problem.Code != errorRiderAlreadyUsed {
		t.Error("expected rider-already-used rejection")
	}
	if _, problem := svc.savePick(ctx, savePickCommand{
		GameId: "game-1", UserId: "user-1", RaceSlug: "stage-2", RiderId: "pogacar", RiderName: "Tadej Pogacar",
	}); problem != nil {
		t.Fatalf("released rider not claimable: %+v", problem.Problem)
	}
}

func TestSavePickRejectsProcessedRace(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(mem)
	seedSlipstreamGame(t, mem)
	seedParticipant(t, mem, "p1", "user-1", "eddy")
	seedPick(t, mem, "pick-1", "user-1", "stage-1", "pogacar", "Tadej Pogacar")

	ctx := context.Background()
	if _, problem := svc.calculateResults(ctx, "game-1", "stage-1", []StageResult{
		{Place: 1, RiderId: "pogacar", GapSeconds: 0},
	}); problem != nil {
		t.Fatalf("scoring failed: %+v", problem.Problem)
	}

	_, problem := svc.savePick(ctx, savePickCommand{
		GameId: "game-1", UserId: "user-1", RaceSlug: "stage-1", RiderId: "vingegaard", RiderName: "Jonas Vingegaard",
	})
	if problem == nil || problem.Problem.Code != errorRaceLocked {
		t.Fatalf("expected race-locked rejection, got %+v", problem)
	}
}

func TestSavePickRequiresParticipant(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(mem)
	seedSlipstreamGame(t, mem)

	_, problem := svc.savePick(context.Background(), savePickCommand{
		GameId: "game-1", UserId: "user-1", RaceSlug: "stage-1", RiderId: "pogacar",
	})
	if problem == nil || problem.Problem.Code != errorNotAParticipant {
		t.Fatalf("expected participant rejection, got %+v", problem)
	}
}
