package proxy

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"auction-bid-engine/internal/auctionerrors"
	"auction-bid-engine/internal/bidengine"
	"auction-bid-engine/internal/events"
	model "auction-bid-engine/internal/models"
	"auction-bid-engine/utils"

	"github.com/shopspring/decimal"
)

// Submitter is the slice of the bid engine the reconciler re-enters through.
type Submitter interface {
	SubmitBid(req bidengine.BidRequest) (model.Auction, model.Bid, error)
	GetAuctionSnapshot(auctionID string) (model.Auction, error)
}

// Reconciler implements sealed-ceiling proxy bidding: each watching bidder
// pre-commits a ceiling, and on every accepted bid the reconciler decides
// whether a counter-bid is due, schedules it after a deliberation delay, and
// re-enters the engine through the normal validation path. Evaluation runs on
// a single worker goroutine fed by the event bus, so proxy-triggers-proxy
// chains are an iterative queue, never recursion.
type Reconciler struct {
	submitter Submitter
	bus       *events.Bus
	delay     time.Duration

	mu      sync.Mutex
	configs map[string]map[string]*model.ProxyBidConfig // auctionID -> bidderID
	timers  map[string]map[string]*time.Timer           // pending counter-bids per auction

	eventsCh <-chan events.Event
	cancel   func()
	done     chan struct{}
}

// NewReconciler creates a reconciler that counter-bids through submitter
// after the given deliberation delay.
func NewReconciler(submitter Submitter, bus *events.Bus, delay time.Duration) *Reconciler {
	return &Reconciler{
		submitter: submitter,
		bus:       bus,
		delay:     delay,
		configs:   make(map[string]map[string]*model.ProxyBidConfig),
		timers:    make(map[string]map[string]*time.Timer),
		done:      make(chan struct{}),
	}
}

// Start subscribes to the event bus and launches the evaluation worker.
func (r *Reconciler) Start() {
	r.eventsCh, r.cancel = r.bus.Subscribe()
	go r.run()
}

// Stop unsubscribes, cancels all pending counter-bids and waits for the
// worker to drain.
func (r *Reconciler) Stop() {
	r.cancel()
	<-r.done

	r.mu.Lock()
	defer r.mu.Unlock()
	for auctionID := range r.timers {
		r.cancelPendingLocked(auctionID)
	}
}

func (r *Reconciler) run() {
	defer close(r.done)
	for ev := range r.eventsCh {
		switch ev.Kind {
		case events.BidAccepted:
			if ev.Bid != nil {
				r.evaluate(ev.AuctionID, *ev.Bid)
			}
		case events.AuctionClosed:
			r.onAuctionClosed(ev.AuctionID)
		}
	}
}

// Configure creates or replaces the proxy config for (auction, bidder). The
// ceiling must cover at least one counter-bid at the moment of activation.
func (r *Reconciler) Configure(auctionID, bidderID string, ceiling, increment decimal.Decimal) (model.ProxyBidConfig, error) {
	if auctionID == "" || bidderID == "" {
		return model.ProxyBidConfig{}, fmt.Errorf("proxy: %w - missing auction ID or bidder ID", auctionerrors.ErrInvalidBid)
	}
	if increment.LessThanOrEqual(decimal.Zero) {
		return model.ProxyBidConfig{}, fmt.Errorf("proxy: %w - non-positive increment", auctionerrors.ErrInvalidBid)
	}

	auction, err := r.submitter.GetAuctionSnapshot(auctionID)
	if err != nil {
		return model.ProxyBidConfig{}, err
	}
	if auction.Status != model.StatusActive {
		return model.ProxyBidConfig{}, fmt.Errorf("proxy: auction %s: %w", auctionID, auctionerrors.ErrAuctionClosed)
	}
	if increment.LessThan(auction.MinIncrement) {
		return model.ProxyBidConfig{}, fmt.Errorf("proxy: %w - increment %s below auction minimum %s",
			auctionerrors.ErrInvalidBid, increment, auction.MinIncrement)
	}
	if ceiling.LessThan(auction.CurrentPrice.Add(increment)) {
		return model.ProxyBidConfig{}, fmt.Errorf("proxy: %w - ceiling %s cannot cover current price %s plus increment %s",
			auctionerrors.ErrProxyCeilingInvalid, ceiling, auction.CurrentPrice, increment)
	}

	cfg := model.ProxyBidConfig{
		AuctionID:    auctionID,
		BidderID:     bidderID,
		Ceiling:      ceiling,
		Increment:    increment,
		State:        model.ProxyActive,
		RegisteredAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.configs[auctionID] == nil {
		r.configs[auctionID] = make(map[string]*model.ProxyBidConfig)
	}
	// A counter-bid decided under the old config must not fire with the old
	// amount; the next accepted bid re-evaluates under the new one.
	r.cancelTimerLocked(auctionID, bidderID)
	stored := cfg
	r.configs[auctionID][bidderID] = &stored

	utils.Info("proxy: config activated", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  bidderID,
	})
	return cfg, nil
}

// Disable deactivates the proxy config for (auction, bidder), cancelling any
// pending counter-bid it has in flight.
func (r *Reconciler) Disable(auctionID, bidderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[auctionID][bidderID]
	if !ok {
		return fmt.Errorf("proxy: auction %s bidder %s: %w", auctionID, bidderID, auctionerrors.ErrProxyNotFound)
	}
	cfg.State = model.ProxyInactive
	r.cancelTimerLocked(auctionID, bidderID)
	return nil
}

// GetConfig returns a snapshot of the proxy config for (auction, bidder).
func (r *Reconciler) GetConfig(auctionID, bidderID string) (model.ProxyBidConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[auctionID][bidderID]
	if !ok {
		return model.ProxyBidConfig{}, fmt.Errorf("proxy: auction %s bidder %s: %w", auctionID, bidderID, auctionerrors.ErrProxyNotFound)
	}
	return *cfg, nil
}

// evaluate reacts to one accepted bid: exhaust configs that can no longer
// out-bid, pick the single responding config, and schedule its counter-bid.
// Only the decision runs under the reconciler lock; the deliberation delay
// and the submission itself never hold it.
func (r *Reconciler) evaluate(auctionID string, bid model.Bid) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var responder *model.ProxyBidConfig
	var candidate decimal.Decimal

	for _, cfg := range r.configs[auctionID] {
		if cfg.State != model.ProxyActive {
			continue
		}
		// A proxy never counters its own accepted bid.
		if cfg.BidderID == bid.BidderID {
			continue
		}

		amount := decimal.Min(bid.Amount.Add(cfg.Increment), cfg.Ceiling)
		if amount.LessThanOrEqual(bid.Amount) {
			r.exhaustLocked(cfg)
			continue
		}

		if responder == nil || outranks(cfg, responder) {
			responder, candidate = cfg, amount
		}
	}

	if responder == nil {
		return
	}

	// Exact-ceiling peers of the responder can never out-bid it: the
	// first-registered config wins the tie, the rest are spent.
	for _, cfg := range r.configs[auctionID] {
		if cfg != responder && cfg.State == model.ProxyActive &&
			cfg.BidderID != bid.BidderID && cfg.Ceiling.Equal(responder.Ceiling) {
			r.exhaustLocked(cfg)
		}
	}

	r.scheduleLocked(auctionID, responder.BidderID, candidate)
}

// outranks reports whether a should respond in preference to b: higher
// ceiling first, earliest registration on an exact tie.
func outranks(a, b *model.ProxyBidConfig) bool {
	switch a.Ceiling.Cmp(b.Ceiling) {
	case 1:
		return true
	case -1:
		return false
	default:
		return a.RegisteredAt.Before(b.RegisteredAt)
	}
}

// scheduleLocked arms the deliberation timer for one counter-bid. A newer
// decision for the same bidder replaces any older pending one.
func (r *Reconciler) scheduleLocked(auctionID, bidderID string, amount decimal.Decimal) {
	r.cancelTimerLocked(auctionID, bidderID)

	if r.timers[auctionID] == nil {
		r.timers[auctionID] = make(map[string]*time.Timer)
	}
	r.timers[auctionID][bidderID] = time.AfterFunc(r.delay, func() {
		r.fire(auctionID, bidderID, amount)
	})
}

// fire submits a scheduled counter-bid. Validation failures are expected
// races, surfaced only as config state, never as an error to anyone.
func (r *Reconciler) fire(auctionID, bidderID string, amount decimal.Decimal) {
	r.mu.Lock()
	cfg, ok := r.configs[auctionID][bidderID]
	if !ok || cfg.State != model.ProxyActive {
		r.mu.Unlock()
		return
	}
	// The timer may have fired just as the owner reconfigured; the current
	// ceiling always bounds what goes out.
	if amount.GreaterThan(cfg.Ceiling) {
		amount = cfg.Ceiling
	}
	delete(r.timers[auctionID], bidderID)
	r.mu.Unlock()

	_, _, err := r.submitter.SubmitBid(bidengine.BidRequest{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		Origin:    model.OriginProxy,
	})
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		// Someone out-bid us mid-flight; the accepted bid's own event
		// re-evaluates this config, so it stays active.
		utils.Info("proxy: counter-bid superseded", map[string]any{
			"auction_id": auctionID,
			"bidder_id":  bidderID,
			"amount":     amount.String(),
		})
	default:
		r.mu.Lock()
		if cfg, ok := r.configs[auctionID][bidderID]; ok && cfg.State == model.ProxyActive {
			cfg.State = model.ProxyInactive
		}
		r.mu.Unlock()
		utils.Warn("proxy: counter-bid dropped, config deactivated", map[string]any{
			"auction_id": auctionID,
			"bidder_id":  bidderID,
			"amount":     amount.String(),
			"error":      err.Error(),
		})
	}
}

// onAuctionClosed drops all pending counter-bids for the auction and
// deactivates its remaining active configs. Exhausted configs keep their
// state, it is the observable outcome of the proxy war.
func (r *Reconciler) onAuctionClosed(auctionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelPendingLocked(auctionID)
	for _, cfg := range r.configs[auctionID] {
		if cfg.State == model.ProxyActive {
			cfg.State = model.ProxyInactive
		}
	}
}

// exhaustLocked marks a config as spent and announces it.
func (r *Reconciler) exhaustLocked(cfg *model.ProxyBidConfig) {
	cfg.State = model.ProxyExhausted
	r.cancelTimerLocked(cfg.AuctionID, cfg.BidderID)
	r.bus.Publish(events.Event{
		Kind:      events.ProxyExhausted,
		AuctionID: cfg.AuctionID,
		BidderID:  cfg.BidderID,
	})
}

func (r *Reconciler) cancelTimerLocked(auctionID, bidderID string) {
	if t, ok := r.timers[auctionID][bidderID]; ok {
		t.Stop()
		delete(r.timers[auctionID], bidderID)
	}
}

func (r *Reconciler) cancelPendingLocked(auctionID string) {
	for bidderID, t := range r.timers[auctionID] {
		t.Stop()
		delete(r.timers[auctionID], bidderID)
	}
	delete(r.timers, auctionID)
}
