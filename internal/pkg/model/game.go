package model

import (
	"time"
)

type Game struct {
	Id          string     `json:"id" firestore:"-"`
	Name        string     `json:"name" firestore:"name"`
	GameType    GameType   `json:"gameType" firestore:"gameType"`
	Status      GameStatus `json:"status" firestore:"status"`
	Config      GameConfig `json:"config" firestore:"config"`
	CreatedAt   time.Time  `json:"createdAt" firestore:"createdAt"`
	CreatedBy   string     `json:"createdBy" firestore:"createdBy"`
	Description string     `json:"description,omitempty" firestore:"description"`
}

type GameConfig struct {
	Budget        int64          `json:"budget" firestore:"budget"`
	MaxRiders     int            `json:"maxRiders" firestore:"maxRiders"`
	CountingRaces []CountingRace `json:"countingRaces,omitempty" firestore:"countingRaces"`
}

// CountingRace is one scored race of a Slipstream game. GreenJerseyPoints is
// indexed by finish position minus one; positions beyond the table score zero.
type CountingRace struct {
	Slug              string     `json:"slug" firestore:"slug"`
	Name              string     `json:"name" firestore:"name"`
	PenaltyMinutes    int64      `json:"penaltyMinutes" firestore:"penaltyMinutes"`
	GreenJerseyPoints []int64    `json:"greenJerseyPoints" firestore:"greenJerseyPoints"`
	Status            RaceStatus `json:"status" firestore:"status"`
}
