package bidengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auction-bid-engine/internal/auctionerrors"
	"auction-bid-engine/internal/events"
	model "auction-bid-engine/internal/models"
	"auction-bid-engine/internal/store"
	"auction-bid-engine/utils"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// BidRequest is a candidate bid entering the validation path, whether from a
// manual submission or a proxy counter-bid. SubmittedAt may carry the
// client-reported submission time; it is recorded but never used for
// ordering, acceptance order is authoritative.
type BidRequest struct {
	AuctionID      string
	BidderID       string
	Amount         decimal.Decimal
	Origin         model.BidOrigin
	IdempotencyKey string
	SubmittedAt    time.Time
}

// BidSource is an inbound feed of candidate bids, decoupled from any
// particular transport.
type BidSource interface {
	Bids() <-chan BidRequest
}

// submitResult caches the outcome of an accepted submission for idempotent
// replays.
type submitResult struct {
	auction model.Auction
	bid     model.Bid
}

// Engine is the single gatekeeper for all bid attempts. It validates a
// candidate against current auction state, commits accepted bids through the
// store's per-auction lock, and publishes BidAccepted strictly after the
// commit succeeded.
type Engine struct {
	store store.AuctionStore
	bus   *events.Bus

	flight singleflight.Group
	mu     sync.Mutex
	idem   map[string]submitResult
}

// NewEngine creates a new Engine instance
func NewEngine(st store.AuctionStore, bus *events.Bus) *Engine {
	return &Engine{
		store: st,
		bus:   bus,
		idem:  make(map[string]submitResult),
	}
}

// SubmitBid validates and applies a candidate bid. On acceptance it returns
// the updated auction snapshot and the created bid record; replaying the same
// (auction, bidder, idempotency key) returns the original result without a
// second history entry.
func (e *Engine) SubmitBid(req BidRequest) (model.Auction, model.Bid, error) {
	if err := validateRequest(req); err != nil {
		return model.Auction{}, model.Bid{}, err
	}

	if req.IdempotencyKey == "" {
		return e.apply(req)
	}

	key := fmt.Sprintf("%s|%s|%s", req.AuctionID, req.BidderID, req.IdempotencyKey)

	// Concurrent submissions of the same key collapse into one application;
	// later replays hit the cache.
	v, err, _ := e.flight.Do(key, func() (any, error) {
		e.mu.Lock()
		cached, ok := e.idem[key]
		e.mu.Unlock()
		if ok {
			return cached, nil
		}

		auction, bid, err := e.apply(req)
		if err != nil {
			return nil, err
		}

		res := submitResult{auction: auction, bid: bid}
		e.mu.Lock()
		e.idem[key] = res
		e.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return model.Auction{}, model.Bid{}, err
	}

	res := v.(submitResult)
	return res.auction, res.bid, nil
}

// apply builds the bid record and commits it. The price check itself runs
// inside CommitBid under the per-auction lock.
func (e *Engine) apply(req BidRequest) (model.Auction, model.Bid, error) {
	submittedAt := req.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now().UTC()
	}

	bid := model.Bid{
		BidID:       utils.GenerateID(),
		AuctionID:   req.AuctionID,
		BidderID:    req.BidderID,
		Amount:      req.Amount,
		Origin:      req.Origin,
		SubmittedAt: submittedAt,
		AcceptedAt:  time.Now().UTC(),
	}

	auction, err := e.store.CommitBid(req.AuctionID, bid)
	if err != nil {
		return model.Auction{}, model.Bid{}, fmt.Errorf("engine: failed to commit bid for auction %s by bidder %s: %w",
			req.AuctionID, req.BidderID, err)
	}

	e.bus.Publish(events.Event{
		Kind:      events.BidAccepted,
		AuctionID: req.AuctionID,
		Bid:       &bid,
	})

	return auction, bid, nil
}

// validateRequest checks input validity before any state is touched
func validateRequest(req BidRequest) error {
	if req.AuctionID == "" || req.BidderID == "" {
		return fmt.Errorf("engine: %w - missing auction ID or bidder ID", auctionerrors.ErrInvalidBid)
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("engine: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}
	if req.Origin != model.OriginManual && req.Origin != model.OriginProxy {
		return fmt.Errorf("engine: %w - unknown bid origin %q", auctionerrors.ErrInvalidBid, req.Origin)
	}
	return nil
}

// GetAuctionSnapshot returns the current state of an auction.
func (e *Engine) GetAuctionSnapshot(auctionID string) (model.Auction, error) {
	if auctionID == "" {
		return model.Auction{}, fmt.Errorf("engine: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}
	auction, err := e.store.GetAuction(auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("engine: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// ListAuctions returns snapshots of all known auctions.
func (e *Engine) ListAuctions() []model.Auction {
	return e.store.ListAuctions()
}

// PublishAuction registers a new auction with the store.
func (e *Engine) PublishAuction(auction model.Auction) (model.Auction, error) {
	created, err := e.store.CreateAuction(auction)
	if err != nil {
		return model.Auction{}, fmt.Errorf("engine: failed to publish auction %s: %w", auction.AuctionID, err)
	}
	return created, nil
}

// ActivateAuction transitions a scheduled auction to active.
func (e *Engine) ActivateAuction(auctionID string) (model.Auction, error) {
	auction, err := e.store.SetStatus(auctionID, model.StatusActive)
	if err != nil {
		return model.Auction{}, fmt.Errorf("engine: failed to activate auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// CloseAuction transitions an auction into a terminal status and publishes
// AuctionClosed so that pending proxy work and live streams are torn down.
func (e *Engine) CloseAuction(auctionID string, status model.AuctionStatus) (model.Auction, error) {
	if !status.Terminal() {
		return model.Auction{}, fmt.Errorf("engine: %w - close requires a terminal status, got %s",
			auctionerrors.ErrInvalidState, status)
	}
	auction, err := e.store.SetStatus(auctionID, status)
	if err != nil {
		return model.Auction{}, fmt.Errorf("engine: failed to close auction %s: %w", auctionID, err)
	}

	e.bus.Publish(events.Event{
		Kind:      events.AuctionClosed,
		AuctionID: auctionID,
	})

	return auction, nil
}

// Consume drains an inbound bid source until the context is done or the
// source channel closes. Rejections are logged and dropped; the feed is not
// a synchronous caller that could be answered.
func (e *Engine) Consume(ctx context.Context, src BidSource) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-src.Bids():
			if !ok {
				return
			}
			if _, _, err := e.SubmitBid(req); err != nil {
				utils.Warn("engine: feed bid rejected", map[string]any{
					"auction_id": req.AuctionID,
					"bidder_id":  req.BidderID,
					"amount":     req.Amount.String(),
					"error":      err.Error(),
				})
			}
		}
	}
}
