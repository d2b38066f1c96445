package events

import (
	"sync"
	"time"

	model "auction-bid-engine/internal/models"
	"auction-bid-engine/utils"
)

// Kind identifies the type of an engine event.
type Kind string

const (
	BidAccepted    Kind = "bid_accepted"
	ProxyExhausted Kind = "proxy_exhausted"
	AuctionClosed  Kind = "auction_closed"
)

// Event is a single engine notification. Bid is set for BidAccepted,
// BidderID for ProxyExhausted; AuctionID is always set.
type Event struct {
	Kind      Kind       `json:"kind"`
	AuctionID string     `json:"auction_id"`
	Bid       *model.Bid `json:"bid,omitempty"`
	BidderID  string     `json:"bidder_id,omitempty"`
	At        time.Time  `json:"at"`
}

// Bus is a small in-process pub/sub fan-out. Publish never blocks: each
// subscriber gets a buffered channel and slow subscribers lose events rather
// than stalling the bid path.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
	closed bool
}

// NewBus creates a bus whose subscriber channels hold up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber and returns its channel along with a
// cancel function that unsubscribes and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish fans the event out to all subscribers without blocking.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			utils.Warn("event dropped: subscriber buffer full", map[string]any{
				"kind":       string(e.Kind),
				"auction_id": e.AuctionID,
			})
		}
	}
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
