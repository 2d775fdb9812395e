package model

import (
	"time"
)

type ParticipantStatus string

const (
	ParticipantActive ParticipantStatus = "active"
	ParticipantLeft   ParticipantStatus = "left"
)

type GameParticipant struct {
	Id             string            `json:"id" firestore:"-"`
	GameId         string            `json:"gameId" firestore:"gameId"`
	UserId         string            `json:"userId" firestore:"userId"`
	Playername     string            `json:"playername" firestore:"playername"`
	Budget         int64             `json:"budget" firestore:"budget"`
	SpentBudget    int64             `json:"spentBudget" firestore:"spentBudget"`
	Status         ParticipantStatus `json:"status" firestore:"status"`
	JoinedAt       time.Time         `json:"joinedAt" firestore:"joinedAt"`
	SlipstreamData *SlipstreamData   `json:"slipstreamData,omitempty" firestore:"slipstreamData"`
}

// SlipstreamData holds the running totals the scoring engine maintains per
// participant. The two totals are only ever mutated through atomic increments.
type SlipstreamData struct {
	TotalTimeLostSeconds   int64    `json:"totalTimeLostSeconds" firestore:"totalTimeLostSeconds"`
	TotalGreenJerseyPoints int64    `json:"totalGreenJerseyPoints" firestore:"totalGreenJerseyPoints"`
	UsedRiders             []string `json:"usedRiders" firestore:"usedRiders"`
	PicksCount             int64    `json:"picksCount" firestore:"picksCount"`
	MissedPicksCount       int64    `json:"missedPicksCount" firestore:"missedPicksCount"`
}
