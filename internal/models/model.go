package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	StatusScheduled AuctionStatus = "scheduled"
	StatusActive    AuctionStatus = "active"
	StatusEnded     AuctionStatus = "ended"
	StatusCancelled AuctionStatus = "cancelled"
)

// Terminal reports whether no further status transition is allowed.
func (s AuctionStatus) Terminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// BidOrigin distinguishes manual submissions from proxy counter-bids.
type BidOrigin string

const (
	OriginManual BidOrigin = "manual"
	OriginProxy  BidOrigin = "proxy"
)

// Auction holds the canonical state of a single auction. Bids are kept in
// acceptance order; CurrentPrice always equals the amount of the last accepted
// bid, or BasePrice when no bid has been accepted yet.
type Auction struct {
	AuctionID    string          `json:"auction_id"`
	Title        string          `json:"title"`
	BasePrice    decimal.Decimal `json:"base_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	MinIncrement decimal.Decimal `json:"min_increment"`
	EndTime      time.Time       `json:"end_time"`
	Status       AuctionStatus   `json:"status"`
	Bids         []Bid           `json:"bids"`
}

// MinNextAmount returns the lowest amount the next bid must reach.
func (a Auction) MinNextAmount() decimal.Decimal {
	return a.CurrentPrice.Add(a.MinIncrement)
}

// Bid is a single accepted bid. History is append-only: a bid is never edited
// or deleted once accepted.
type Bid struct {
	BidID       string          `json:"bid_id"`
	AuctionID   string          `json:"auction_id"`
	BidderID    string          `json:"bidder_id"`
	Amount      decimal.Decimal `json:"amount"`
	Origin      BidOrigin       `json:"origin"`
	SubmittedAt time.Time       `json:"submitted_at"`
	AcceptedAt  time.Time       `json:"accepted_at"`
}

// ProxyState is the lifecycle state of a proxy-bid configuration.
type ProxyState string

const (
	ProxyActive    ProxyState = "active"
	ProxyInactive  ProxyState = "inactive"
	ProxyExhausted ProxyState = "exhausted"
)

// ProxyBidConfig is a sealed-ceiling auto-bid authorization: the engine bids
// on the bidder's behalf, one increment at a time, never past Ceiling and
// never revealing it. At most one config exists per (auction, bidder) pair.
type ProxyBidConfig struct {
	AuctionID    string          `json:"auction_id"`
	BidderID     string          `json:"bidder_id"`
	Ceiling      decimal.Decimal `json:"ceiling"`
	Increment    decimal.Decimal `json:"increment"`
	State        ProxyState      `json:"state"`
	RegisteredAt time.Time       `json:"registered_at"`
}
