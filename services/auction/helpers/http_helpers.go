package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"auction-bid-engine/internal/auctionerrors"
	model "auction-bid-engine/internal/models"
	"auction-bid-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// ParseAmount converts a money string from a request into a positive decimal.
func ParseAmount(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w - %s is not a valid amount: %v", auctionerrors.ErrInvalidBid, field, err)
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, fmt.Errorf("%w - %s must be positive", auctionerrors.ErrInvalidBid, field)
	}
	return d, nil
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrProxyNotFound):
		return http.StatusNotFound, "proxy configuration not found"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		return http.StatusConflict, "auction is not open for bidding"
	case errors.Is(err, auctionerrors.ErrProxyCeilingInvalid):
		return http.StatusUnprocessableEntity, "proxy ceiling below required minimum"
	case errors.Is(err, auctionerrors.ErrAuctionExists):
		return http.StatusConflict, "auction already exists"
	case errors.Is(err, auctionerrors.ErrInvalidState):
		return http.StatusConflict, "invalid auction state"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// ToBidResponse converts a bid record into its wire shape.
func ToBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:       bid.BidID,
		AuctionID:   bid.AuctionID,
		BidderID:    bid.BidderID,
		Amount:      bid.Amount.String(),
		Origin:      string(bid.Origin),
		SubmittedAt: bid.SubmittedAt.UTC().Format(time.RFC3339),
		AcceptedAt:  bid.AcceptedAt.UTC().Format(time.RFC3339),
	}
}

// ToAuctionResponse converts an auction snapshot into its wire shape.
func ToAuctionResponse(auction model.Auction) AuctionResponse {
	bids := make([]BidResponse, 0, len(auction.Bids))
	for _, b := range auction.Bids {
		bids = append(bids, ToBidResponse(b))
	}

	resp := AuctionResponse{
		AuctionID:    auction.AuctionID,
		Title:        auction.Title,
		BasePrice:    auction.BasePrice.String(),
		CurrentPrice: auction.CurrentPrice.String(),
		MinIncrement: auction.MinIncrement.String(),
		Status:       string(auction.Status),
		Bids:         bids,
	}
	if !auction.EndTime.IsZero() {
		resp.EndTime = auction.EndTime.UTC().Format(time.RFC3339)
	}
	return resp
}

// ToProxyConfigResponse converts a proxy config snapshot into its wire shape.
// The ceiling is deliberately included: the owning bidder is the only caller
// allowed to fetch their own config.
func ToProxyConfigResponse(cfg model.ProxyBidConfig) ProxyConfigResponse {
	return ProxyConfigResponse{
		AuctionID:    cfg.AuctionID,
		BidderID:     cfg.BidderID,
		Ceiling:      cfg.Ceiling.String(),
		Increment:    cfg.Increment.String(),
		State:        string(cfg.State),
		RegisteredAt: cfg.RegisteredAt.UTC().Format(time.RFC3339),
	}
}
