package store

import (
	"fmt"
	"sort"
	"sync"

	"auction-bid-engine/internal/auctionerrors"
	model "auction-bid-engine/internal/models"
)

// AuctionStore defines the auction state storage interface. CommitBid is the
// only writer of current price and bid history; everything else reads
// snapshots.
type AuctionStore interface {
	CreateAuction(auction model.Auction) (model.Auction, error)
	GetAuction(auctionID string) (model.Auction, error)
	ListAuctions() []model.Auction
	CommitBid(auctionID string, bid model.Bid) (model.Auction, error)
	SetStatus(auctionID string, status model.AuctionStatus) (model.Auction, error)
}

// entry pairs an auction with its own lock so that contention on one auction
// never serializes traffic on another.
type entry struct {
	mu      sync.Mutex
	auction model.Auction
}

// MemoryStore is a concurrency-safe in-memory implementation of AuctionStore.
// The registry lock only guards the auction map; all per-auction reads and
// writes go through the entry lock, making "read price, validate, append"
// atomic per auction.
type MemoryStore struct {
	mu       sync.RWMutex
	auctions map[string]*entry
}

// NewMemoryStore creates a new in-memory store instance
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions: make(map[string]*entry),
	}
}

func (s *MemoryStore) lookup(auctionID string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return e, nil
}

// CreateAuction registers a newly published auction. Current price starts at
// the base price and history starts empty regardless of what the caller set.
func (s *MemoryStore) CreateAuction(auction model.Auction) (model.Auction, error) {
	if auction.AuctionID == "" {
		return model.Auction{}, fmt.Errorf("create auction: %w - missing auction ID", auctionerrors.ErrInvalidState)
	}
	if auction.Status == "" {
		auction.Status = model.StatusScheduled
	}
	if auction.Status.Terminal() {
		return model.Auction{}, fmt.Errorf("create auction %s: %w - cannot create in terminal status %s",
			auction.AuctionID, auctionerrors.ErrInvalidState, auction.Status)
	}
	auction.CurrentPrice = auction.BasePrice
	auction.Bids = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[auction.AuctionID]; ok {
		return model.Auction{}, fmt.Errorf("create auction %s: %w", auction.AuctionID, auctionerrors.ErrAuctionExists)
	}
	s.auctions[auction.AuctionID] = &entry{auction: auction}
	return snapshot(auction), nil
}

// GetAuction returns a snapshot of the auction state.
func (s *MemoryStore) GetAuction(auctionID string) (model.Auction, error) {
	e, err := s.lookup(auctionID)
	if err != nil {
		return model.Auction{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.auction), nil
}

// ListAuctions returns snapshots of all known auctions, ordered by ID.
func (s *MemoryStore) ListAuctions() []model.Auction {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.auctions))
	for _, e := range s.auctions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]model.Auction, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, snapshot(e.auction))
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AuctionID < out[j].AuctionID })
	return out
}

// CommitBid appends an accepted bid under the per-auction lock. The price
// check happens here, against the price the lock guarantees is current, so
// two concurrent bids can never both be accepted against the same stale
// price.
func (s *MemoryStore) CommitBid(auctionID string, bid model.Bid) (model.Auction, error) {
	e, err := s.lookup(auctionID)
	if err != nil {
		return model.Auction{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a := &e.auction
	if a.Status != model.StatusActive {
		return model.Auction{}, fmt.Errorf("commit bid for auction %s: %w", auctionID, auctionerrors.ErrAuctionClosed)
	}
	if bid.Amount.LessThan(a.MinNextAmount()) {
		return model.Auction{}, fmt.Errorf("commit bid for auction %s: %w - minimum acceptable amount is %s",
			auctionID, auctionerrors.ErrBidTooLow, a.MinNextAmount())
	}

	a.Bids = append(a.Bids, bid)
	a.CurrentPrice = bid.Amount
	return snapshot(*a), nil
}

// SetStatus transitions the auction lifecycle. Allowed transitions are
// scheduled -> active -> ended, plus any non-terminal state -> cancelled.
func (s *MemoryStore) SetStatus(auctionID string, status model.AuctionStatus) (model.Auction, error) {
	e, err := s.lookup(auctionID)
	if err != nil {
		return model.Auction{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a := &e.auction
	if !validTransition(a.Status, status) {
		return model.Auction{}, fmt.Errorf("auction %s: %w - %s -> %s",
			auctionID, auctionerrors.ErrInvalidState, a.Status, status)
	}
	a.Status = status
	return snapshot(*a), nil
}

func validTransition(from, to model.AuctionStatus) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case model.StatusActive:
		return from == model.StatusScheduled
	case model.StatusEnded:
		return from == model.StatusActive
	case model.StatusCancelled:
		return true
	default:
		return false
	}
}

// snapshot copies the auction with its own bid slice so callers never alias
// store-owned history.
func snapshot(a model.Auction) model.Auction {
	a.Bids = append([]model.Bid(nil), a.Bids...)
	return a
}
