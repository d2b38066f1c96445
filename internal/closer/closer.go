package closer

import (
	"sync"
	"time"

	model "auction-bid-engine/internal/models"
	"auction-bid-engine/utils"
)

// Ender is the slice of the engine the closer drives.
type Ender interface {
	CloseAuction(auctionID string, status model.AuctionStatus) (model.Auction, error)
}

// Closer ends auctions when their scheduled end time is reached. One timer is
// armed per watched auction; closing an auction by other means just makes the
// timer's close attempt a no-op.
type Closer struct {
	ender Ender

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewCloser creates a new Closer instance
func NewCloser(ender Ender) *Closer {
	return &Closer{
		ender:  ender,
		timers: make(map[string]*time.Timer),
	}
}

// Watch arms the end-time timer for an auction. An already-passed end time
// closes the auction on the spot.
func (c *Closer) Watch(auction model.Auction) {
	if auction.Status.Terminal() || auction.EndTime.IsZero() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[auction.AuctionID]; ok {
		t.Stop()
	}
	c.timers[auction.AuctionID] = time.AfterFunc(time.Until(auction.EndTime), func() {
		c.end(auction.AuctionID)
	})
}

// Unwatch drops the timer for an auction, e.g. after an administrative close.
func (c *Closer) Unwatch(auctionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[auctionID]; ok {
		t.Stop()
		delete(c.timers, auctionID)
	}
}

// Stop cancels every armed timer.
func (c *Closer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *Closer) end(auctionID string) {
	c.mu.Lock()
	delete(c.timers, auctionID)
	c.mu.Unlock()

	if _, err := c.ender.CloseAuction(auctionID, model.StatusEnded); err != nil {
		// Already closed or cancelled by someone else; nothing to do.
		utils.Info("closer: end-time close skipped", map[string]any{
			"auction_id": auctionID,
			"reason":     err.Error(),
		})
		return
	}
	utils.Info("closer: auction ended at scheduled time", map[string]any{
		"auction_id": auctionID,
	})
}
