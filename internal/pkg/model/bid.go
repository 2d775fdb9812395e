package model

import (
	"time"
)

type BidStatus string

const (
	BidActive BidStatus = "active"
	BidOutbid BidStatus = "outbid"
	BidWon    BidStatus = "won"
	BidLost   BidStatus = "lost"
)

// Bid is the canonical placement of a user on a rider. At most one active bid
// exists per (game, user, rider); updates replace the document rather than
// mutating it.
type Bid struct {
	Id          string    `json:"id" firestore:"-"`
	GameId      string    `json:"gameId" firestore:"gameId"`
	UserId      string    `json:"userId" firestore:"userId"`
	Playername  string    `json:"playername" firestore:"playername"`
	RiderNameId string    `json:"riderNameId" firestore:"riderNameId"`
	Amount      int64     `json:"amount" firestore:"amount"`
	BidAt       time.Time `json:"bidAt" firestore:"bidAt"`
	Status      BidStatus `json:"status" firestore:"status"`
	RiderName   string    `json:"riderName,omitempty" firestore:"riderName"`
	RiderTeam   string    `json:"riderTeam,omitempty" firestore:"riderTeam"`
	JerseyImage string    `json:"jerseyImage,omitempty" firestore:"jerseyImage"`
}
