package model

type GameStatus string

const (
	GameRegistration GameStatus = "registration"
	GameBidding      GameStatus = "bidding"
	GameActive       GameStatus = "active"
	GameFinished     GameStatus = "finished"
)

type GameType string

const (
	GameTypeAuctioneer       GameType = "auctioneer"
	GameTypeWorldtourManager GameType = "worldtour-manager"
	GameTypeMarginalGains    GameType = "marginal-gains"
	GameTypeSlipstream       GameType = "slipstream"
)

// BiddingGameTypes are the game types that accept bid placements. Marginal
// gains bids carry no budget, only a stake amount.
var BiddingGameTypes = []GameType{
	GameTypeAuctioneer,
	GameTypeWorldtourManager,
	GameTypeMarginalGains,
}

func (t GameType) SupportsBidding() bool {
	for _, bt := range BiddingGameTypes {
		if t == bt {
			return true
		}
	}
	return false
}

// HasBudgetSystem reports whether placements against this game type are
// constrained by the configured budget.
func (t GameType) HasBudgetSystem() bool {
	return t != GameTypeMarginalGains
}

type RaceStatus string

const (
	RaceUpcoming RaceStatus = "upcoming"
	RaceOpen     RaceStatus = "open"
	RaceFinished RaceStatus = "finished"
)
