package bid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/activity"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/model"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/reject"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/ws"
	"github.com/rs/zerolog/log"
)

const (
	errorAuctionNotActive    = "error.bid.auction-not-active"
	errorMaxRidersLimit      = "error.bid.max-riders-limit"
	errorInsufficientBudget  = "error.bid.insufficient-budget"
	errorGameTypeUnsupported = "error.bid.game-type-unsupported"
	errorNotAParticipant     = "error.bid.not-a-participant"
	errorBidNotFound         = "error.bid.not-found"
	errorBidNotOwned         = "error.bid.not-owned"
)

type placeBidCommand struct {
	GameId      string
	UserId      string
	RiderNameId string
	Amount      int64
	RiderName   string
	RiderTeam   string
	JerseyImage string
}

type bidService struct {
	store    store.Store
	activity *activity.Logger
	bridge   *notificationBridge
	feed     *ws.BidFeedHub
	locks    *gameLocks
	now      func() time.Time
}

// placeBid reconciles a bid request against the caller's existing bid on the
// rider, other bids, budget and roster limits, then persists a single
// canonical active bid per (user, rider). The whole read-decide-write span
// runs under the game's lock.
func (bs *bidService) placeBid(ctx context.Context, cmd placeBidCommand) (*model.Bid, *reject.ProblemWithTrace) {
	bs.locks.Lock(cmd.GameId)
	defer bs.locks.Unlock(cmd.GameId)

	var user model.User
	if err := bs.store.Get(ctx, store.Users, cmd.UserId, &user); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &reject.ProblemWithTrace{Problem: reject.NotFoundProblem("User not found"), Cause: err}
		}
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	user.Id = cmd.UserId

	var game model.Game
	if err := bs.store.Get(ctx, store.Games, cmd.GameId, &game); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &reject.ProblemWithTrace{Problem: reject.NotFoundProblem("Game not found"), Cause: err}
		}
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	game.Id = cmd.GameId

	if !game.GameType.SupportsBidding() {
		bs.activity.ValidationFailed(ctx, cmd.GameId, cmd.UserId, model.ValidationGameTypeUnsupported, map[string]any{
			"gameType": game.GameType,
		})
		return nil, validationProblem("Game type does not support bidding", errorGameTypeUnsupported,
			fmt.Sprintf("game type %q has no bidding", game.GameType))
	}

	if game.Status != model.GameBidding {
		bs.activity.ValidationFailed(ctx, cmd.GameId, cmd.UserId, model.ValidationAuctionNotActive, map[string]any{
			"currentStatus": game.Status,
			"riderNameId":   cmd.RiderNameId,
		})
		return nil, validationProblem("Auction is not active", errorAuctionNotActive,
			fmt.Sprintf("game status is %q, bidding requires %q", game.Status, model.GameBidding))
	}

	if _, err := bs.activeParticipant(ctx, cmd.GameId, cmd.UserId); err != nil {
		bs.activity.ValidationFailed(ctx, cmd.GameId, cmd.UserId, model.ValidationNotAParticipant, nil)
		return nil, validationProblem("Not an active participant of this game", errorNotAParticipant, "")
	}

	// Own-bid detection: the caller holding either an existing active bid on
	// this rider or the current top bid turns the placement into an update.
	ownRiderBids, err := bs.queryBids(ctx,
		filterEq("gameId", cmd.GameId),
		filterEq("userId", cmd.UserId),
		filterEq("riderNameId", cmd.RiderNameId),
		filterEq("status", model.BidActive))
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	highest, err := bs.highestActiveBid(ctx, cmd.GameId, cmd.RiderNameId)
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	var existing *model.Bid
	if len(ownRiderBids) > 0 {
		existing = &ownRiderBids[0]
	} else if highest != nil && highest.UserId == cmd.UserId {
		existing = highest
	}
	isUpdatingOwnBid := existing != nil

	var previousAmount int64
	if existing != nil {
		previousAmount = existing.Amount
	}

	activeBids, err := bs.queryBids(ctx,
		filterEq("gameId", cmd.GameId),
		filterEq("userId", cmd.UserId),
		filterEq("status", model.BidActive))
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	wonBids, err := bs.queryBids(ctx,
		filterEq("gameId", cmd.GameId),
		filterEq("userId", cmd.UserId),
		filterEq("status", model.BidWon))
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	// Roster check counts unique riders across active and won bids. Updates
	// may proceed over the limit: lowering maxRiders after bids exist must not
	// wedge them.
	if game.Config.MaxRiders > 0 && !isUpdatingOwnBid {
		riders := make(map[string]struct{})
		for _, b := range activeBids {
			riders[b.RiderNameId] = struct{}{}
		}
		for _, b := range wonBids {
			riders[b.RiderNameId] = struct{}{}
		}
		if len(riders) >= game.Config.MaxRiders {
			bs.activity.ValidationFailed(ctx, cmd.GameId, cmd.UserId, model.ValidationMaxRidersLimit, map[string]any{
				"maxRiders":   game.Config.MaxRiders,
				"riderCount":  len(riders),
				"riderNameId": cmd.RiderNameId,
			})
			return nil, validationProblem("Maximum rider count reached", errorMaxRidersLimit,
				fmt.Sprintf("roster holds %d of %d riders", len(riders), game.Config.MaxRiders))
		}
	}

	availableBudget := int64(0)
	if game.GameType.HasBudgetSystem() {
		// spentBudget is recomputed from won bids rather than read from the
		// participant document: when a game cycles from active back to bidding
		// the stored field would double-count.
		var spentBudget int64
		for _, b := range wonBids {
			spentBudget += b.Amount
		}
		// Exclude every active bid on the rider being bid on, not just the one
		// being replaced, so duplicate bids cannot inflate the committed sum.
		var totalActiveBids int64
		for _, b := range activeBids {
			if b.RiderNameId == cmd.RiderNameId {
				continue
			}
			totalActiveBids += b.Amount
		}
		availableBudget = game.Config.Budget - spentBudget - totalActiveBids

		if cmd.Amount > availableBudget {
			bs.activity.ValidationFailed(ctx, cmd.GameId, cmd.UserId, model.ValidationInsufficientBudget, map[string]any{
				"amount":          cmd.Amount,
				"availableBudget": availableBudget,
				"spentBudget":     spentBudget,
				"totalActiveBids": totalActiveBids,
				"riderNameId":     cmd.RiderNameId,
			})
			return nil, validationProblem("Insufficient budget", errorInsufficientBudget,
				fmt.Sprintf("bid of %d exceeds available budget of %d", cmd.Amount, availableBudget))
		}
	}

	newBid := model.Bid{
		GameId:      cmd.GameId,
		UserId:      cmd.UserId,
		Playername:  user.Playername,
		RiderNameId: cmd.RiderNameId,
		Amount:      cmd.Amount,
		BidAt:       bs.now(),
		Status:      model.BidActive,
		RiderName:   cmd.RiderName,
		RiderTeam:   cmd.RiderTeam,
		JerseyImage: cmd.JerseyImage,
	}
	if existing != nil {
		if newBid.RiderName == "" {
			newBid.RiderName = existing.RiderName
		}
		if newBid.RiderTeam == "" {
			newBid.RiderTeam = existing.RiderTeam
		}
		if newBid.JerseyImage == "" {
			newBid.JerseyImage = existing.JerseyImage
		}
	}

	// Commit: delete the replaced bid, then create the new one. There is no
	// cross-document transaction here; the restore below is the safety net
	// for a failed create.
	var retained *model.Bid
	if existing != nil {
		retainedCopy := *existing
		retained = &retainedCopy
		if err := bs.store.Delete(ctx, store.Bids, existing.Id); err != nil {
			return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
		}
	}

	bidId, createErr := bs.store.Add(ctx, store.Bids, newBid)
	if createErr != nil {
		bs.restoreBid(ctx, retained, cmd)
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(createErr), Cause: createErr}
	}
	newBid.Id = bidId

	bs.activity.Log(ctx, model.ActivityLog{
		Type:   model.ActivityBidPlaced,
		GameId: cmd.GameId,
		UserId: cmd.UserId,
		Details: map[string]any{
			"bidId":                 bidId,
			"riderNameId":           cmd.RiderNameId,
			"amount":                cmd.Amount,
			"previousAmount":        previousAmount,
			"isUpdate":              isUpdatingOwnBid,
			"availableBudgetBefore": availableBudget,
			"availableBudgetAfter":  availableBudget - cmd.Amount,
		},
	})

	bs.feed.Publish(cmd.GameId, map[string]any{
		"type": model.ActivityBidPlaced,
		"bid":  newBid,
	})
	bs.bridge.sendBidPlaced(&newBid, isUpdatingOwnBid, previousAmount)

	return &newBid, nil
}

// restoreBid recreates the deleted bid verbatim after a failed create. When
// the compensating write also fails the old bid is unrecoverably lost, which
// is the one place this system can silently drop user state: logged critical
// with dataLoss set.
func (bs *bidService) restoreBid(ctx context.Context, retained *model.Bid, cmd placeBidCommand) {
	if retained == nil {
		return
	}

	if err := bs.store.Set(ctx, store.Bids, retained.Id, retained); err != nil {
		log.Error().Err(err).
			Str("gameId", cmd.GameId).
			Str("userId", cmd.UserId).
			Str("riderNameId", cmd.RiderNameId).
			Msg("Bid restore failed, previous bid lost")
		bs.activity.Log(ctx, model.ActivityLog{
			Type:     model.ActivityBidRestoreFailed,
			GameId:   cmd.GameId,
			UserId:   cmd.UserId,
			Severity: activity.SeverityCritical,
			DataLoss: true,
			Details: map[string]any{
				"riderNameId":  cmd.RiderNameId,
				"lostAmount":   retained.Amount,
				"lostBidId":    retained.Id,
				"restoreError": err.Error(),
			},
		})
		bs.bridge.sendBidRestoreFailed(cmd.GameId, cmd.UserId, cmd.RiderNameId)
		return
	}

	bs.activity.Log(ctx, model.ActivityLog{
		Type:     model.ActivityBidRestoreSuccess,
		GameId:   cmd.GameId,
		UserId:   cmd.UserId,
		Severity: activity.SeverityWarning,
		Details: map[string]any{
			"riderNameId":    cmd.RiderNameId,
			"restoredAmount": retained.Amount,
			"restoredBidId":  retained.Id,
		},
	})
}

func (bs *bidService) cancelBid(ctx context.Context, gameId, userId, bidId string) *reject.ProblemWithTrace {
	bs.locks.Lock(gameId)
	defer bs.locks.Unlock(gameId)

	var bid model.Bid
	if err := bs.store.Get(ctx, store.Bids, bidId, &bid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &reject.ProblemWithTrace{Problem: reject.NotFoundProblem("Bid not found"), Cause: err}
		}
		return &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	if bid.GameId != gameId || bid.UserId != userId {
		return &reject.ProblemWithTrace{
			Problem: reject.NewProblem().
				WithTitle("Bid does not belong to caller").
				WithStatus(http.StatusForbidden).
				WithCode(errorBidNotOwned).
				Build(),
			Cause: fmt.Errorf("bid %s not owned by user %s in game %s", bidId, userId, gameId),
		}
	}

	if bid.Status != model.BidActive {
		return &reject.ProblemWithTrace{
			Problem: validationProblemValue("Only active bids can be cancelled", errorBidNotFound,
				fmt.Sprintf("bid status is %q", bid.Status)),
			Cause: fmt.Errorf("cancel of non-active bid %s", bidId),
		}
	}

	if err := bs.store.Delete(ctx, store.Bids, bidId); err != nil {
		return &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	bs.activity.Log(ctx, model.ActivityLog{
		Type:   model.ActivityBidCancelled,
		GameId: gameId,
		UserId: userId,
		Details: map[string]any{
			"bidId":       bidId,
			"riderNameId": bid.RiderNameId,
			"amount":      bid.Amount,
		},
	})

	return nil
}

func (bs *bidService) gameBids(ctx context.Context, gameId string) ([]model.Bid, *reject.ProblemWithTrace) {
	bids, err := bs.queryBids(ctx,
		filterEq("gameId", gameId),
		filterEq("status", model.BidActive))
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	return bids, nil
}

func (bs *bidService) userGameBids(ctx context.Context, gameId, userId string) ([]model.Bid, *reject.ProblemWithTrace) {
	bids, err := bs.queryBids(ctx,
		filterEq("gameId", gameId),
		filterEq("userId", userId))
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	return bids, nil
}

func (bs *bidService) activeParticipant(ctx context.Context, gameId, userId string) (*model.GameParticipant, error) {
	snaps, err := bs.store.Query(ctx, store.GameParticipants, store.Query{
		Filters: []store.Filter{
			filterEq("gameId", gameId),
			filterEq("userId", userId),
			filterEq("status", model.ParticipantActive),
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

func (bs *bidService) highestActiveBid(ctx context.Context, gameId, riderNameId string) (*model.Bid, error) {
	snaps, err := bs.store.Query(ctx, store.Bids, store.Query{
		Filters: []store.Filter{
			filterEq("gameId", gameId),
			filterEq("riderNameId", riderNameId),
			filterEq("status", model.BidActive),
		},
		OrderBy: "amount",
		Desc:    true,
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	var bid model.Bid
	if err := snaps[0].DataTo(&bid); err != nil {
		return nil, err
	}
	bid.Id = snaps[0].ID()
	return &bid, nil
}

func (bs *bidService) queryBids(ctx context.Context, filters ...store.Filter) ([]model.Bid, error) {
	snaps, err := bs.store.Query(ctx, store.Bids, store.Query{Filters: filters})
	if err != nil {
		return nil, err
	}

	bids := make([]model.Bid, 0, len(snaps))
	for _, snap := range snaps {
		var bid model.Bid
		if err := snap.DataTo(&bid); err != nil {
			return nil, err
		}
		bid.Id = snap.ID()
		bids = append(bids, bid)
	}
	return bids, nil
}

func filterEq(field string, value any) store.Filter {
	return store.Filter{Field: field, Op: "==", Value: value}
}

func validationProblem(title, code, detail string) *reject.ProblemWithTrace {
	return &reject.ProblemWithTrace{
		Problem: validationProblemValue(title, code, detail),
		Cause:   errors.New(detail),
	}
}

func validationProblemValue(title, code, detail string) reject.Problem {
	return reject.ValidationProblem(title, code, detail)
}
