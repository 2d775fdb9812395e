package model

import (
	"time"
)

type PenaltyReason string

const (
	PenaltyDNF        PenaltyReason = "dnf"
	PenaltyDNS        PenaltyReason = "dns"
	PenaltyDSQ        PenaltyReason = "dsq"
	PenaltyMissedPick PenaltyReason = "missed_pick"
)

type StagePick struct {
	Id                  string        `json:"id" firestore:"-"`
	GameId              string        `json:"gameId" firestore:"gameId"`
	UserId              string        `json:"userId" firestore:"userId"`
	RaceSlug            string        `json:"raceSlug" firestore:"raceSlug"`
	RiderId             *string       `json:"riderId" firestore:"riderId"`
	RiderName           string        `json:"riderName" firestore:"riderName"`
	TimeLostSeconds     int64         `json:"timeLostSeconds" firestore:"timeLostSeconds"`
	TimeLostFormatted   string        `json:"timeLostFormatted" firestore:"timeLostFormatted"`
	GreenJerseyPoints   int64         `json:"greenJerseyPoints" firestore:"greenJerseyPoints"`
	RiderFinishPosition *int          `json:"riderFinishPosition" firestore:"riderFinishPosition"`
	IsPenalty           bool          `json:"isPenalty" firestore:"isPenalty"`
	PenaltyReason       PenaltyReason `json:"penaltyReason,omitempty" firestore:"penaltyReason"`
	ProcessedAt         *time.Time    `json:"processedAt" firestore:"processedAt"`
	Locked              bool          `json:"locked" firestore:"locked"`
}
