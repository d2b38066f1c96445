package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBus_PublishFanOut(t *testing.T) {
	t.Parallel()

	bus := NewBus(4)
	ch1, cancel1 := bus.Subscribe()
	ch2, cancel2 := bus.Subscribe()
	defer cancel1()
	defer cancel2()

	bus.Publish(Event{Kind: BidAccepted, AuctionID: "auction1"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			require.Equal(t, BidAccepted, ev.Kind)
			require.Equal(t, "auction1", ev.AuctionID)
			require.False(t, ev.At.IsZero(), "publish must stamp the event")
		case <-time.After(time.Second):
			t.Fatal("expected the event on every subscriber")
		}
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	bus := NewBus(4)
	ch, cancel := bus.Subscribe()
	cancel()

	// The channel is closed; publish must not panic or deliver.
	bus.Publish(Event{Kind: AuctionClosed, AuctionID: "auction1"})

	_, ok := <-ch
	require.False(t, ok, "cancelled subscriber channel must be closed")
}

func TestBus_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	t.Parallel()

	bus := NewBus(1)
	_, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Nobody drains; buffer is 1, the rest must be dropped, not block.
		for i := 0; i < 10; i++ {
			bus.Publish(Event{Kind: BidAccepted, AuctionID: "auction1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestBus_Close(t *testing.T) {
	t.Parallel()

	bus := NewBus(4)
	ch, _ := bus.Subscribe()
	bus.Close()

	_, ok := <-ch
	require.False(t, ok)

	// Publishing and subscribing after close are no-ops.
	bus.Publish(Event{Kind: BidAccepted, AuctionID: "auction1"})
	late, _ := bus.Subscribe()
	_, ok = <-late
	require.False(t, ok)
}
