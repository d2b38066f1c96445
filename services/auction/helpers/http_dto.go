package helpers

// Request/Response DTOs. Money fields travel as strings and are parsed into
// decimals at the boundary.
type PublishAuctionRequest struct {
	AuctionID    string `json:"auction_id"`
	Title        string `json:"title" binding:"required"`
	BasePrice    string `json:"base_price" binding:"required"`
	MinIncrement string `json:"min_increment" binding:"required"`
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
}

type SubmitBidRequest struct {
	AuctionID      string `json:"auction_id" binding:"required"`
	BidderID       string `json:"bidder_id" binding:"required"`
	Amount         string `json:"amount" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

type ConfigureProxyRequest struct {
	BidderID  string `json:"bidder_id" binding:"required"`
	Ceiling   string `json:"ceiling" binding:"required"`
	Increment string `json:"increment" binding:"required"`
}

type BidResponse struct {
	BidID       string `json:"bid_id"`
	AuctionID   string `json:"auction_id"`
	BidderID    string `json:"bidder_id"`
	Amount      string `json:"amount"`
	Origin      string `json:"origin"`
	SubmittedAt string `json:"submitted_at"`
	AcceptedAt  string `json:"accepted_at"`
}

type AuctionResponse struct {
	AuctionID    string        `json:"auction_id"`
	Title        string        `json:"title"`
	BasePrice    string        `json:"base_price"`
	CurrentPrice string        `json:"current_price"`
	MinIncrement string        `json:"min_increment"`
	EndTime      string        `json:"end_time,omitempty"`
	Status       string        `json:"status"`
	Bids         []BidResponse `json:"bids"`
}

type SubmitBidResponse struct {
	Auction AuctionResponse `json:"auction"`
	Bid     BidResponse     `json:"bid"`
}

type ProxyConfigResponse struct {
	AuctionID    string `json:"auction_id"`
	BidderID     string `json:"bidder_id"`
	Ceiling      string `json:"ceiling"`
	Increment    string `json:"increment"`
	State        string `json:"state"`
	RegisteredAt string `json:"registered_at"`
}
