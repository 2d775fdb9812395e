package model

import (
	"time"
)

const (
	ActivityBidPlaced           = "BID_PLACED"
	ActivityBidValidationFailed = "BID_VALIDATION_FAILED"
	ActivityBidRestoreSuccess   = "BID_RESTORE_SUCCESS"
	ActivityBidRestoreFailed    = "BID_RESTORE_FAILED"
	ActivityBidCancelled        = "BID_CANCELLED"
	ActivityResultsProcessed    = "SLIPSTREAM_RESULTS_PROCESSED"
	ActivityNotificationFailed  = "NOTIFICATION_DELIVERY_FAILED"
)

const (
	ValidationAuctionNotActive    = "AUCTION_NOT_ACTIVE"
	ValidationMaxRidersLimit      = "MAX_RIDERS_LIMIT"
	ValidationInsufficientBudget  = "INSUFFICIENT_BUDGET"
	ValidationGameTypeUnsupported = "GAME_TYPE_UNSUPPORTED"
	ValidationNotAParticipant     = "NOT_A_PARTICIPANT"
)

// ActivityLog entries are append-only and never read back by the engines.
type ActivityLog struct {
	Id             string         `json:"id" firestore:"-"`
	Type           string         `json:"type" firestore:"type"`
	GameId         string         `json:"gameId" firestore:"gameId"`
	UserId         string         `json:"userId" firestore:"userId"`
	Severity       string         `json:"severity" firestore:"severity"`
	ValidationType string         `json:"validationType,omitempty" firestore:"validationType"`
	DataLoss       bool           `json:"dataLoss,omitempty" firestore:"dataLoss"`
	Details        map[string]any `json:"details,omitempty" firestore:"details"`
	CreatedAt      time.Time      `json:"createdAt" firestore:"createdAt"`
}
