package closer

import (
	"testing"
	"time"

	"auction-bid-engine/internal/bidengine"
	"auction-bid-engine/internal/events"
	model "auction-bid-engine/internal/models"
	"auction-bid-engine/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*store.MemoryStore, *bidengine.Engine, *events.Bus, *Closer) {
	t.Helper()
	bus := events.NewBus(16)
	st := store.NewMemoryStore()
	engine := bidengine.NewEngine(st, bus)
	c := NewCloser(engine)
	t.Cleanup(c.Stop)
	return st, engine, bus, c
}

func testAuction(auctionID string, endTime time.Time) model.Auction {
	return model.Auction{
		AuctionID:    auctionID,
		Title:        "test auction",
		BasePrice:    decimal.NewFromInt(100),
		MinIncrement: decimal.NewFromInt(10),
		EndTime:      endTime,
		Status:       model.StatusActive,
	}
}

func TestCloser_EndsAuctionAtEndTime(t *testing.T) {
	t.Parallel()

	st, _, bus, c := setup(t)

	auction, err := st.CreateAuction(testAuction("auction1", time.Now().Add(30*time.Millisecond)))
	require.NoError(t, err)

	eventsCh, cancel := bus.Subscribe()
	defer cancel()

	c.Watch(auction)

	require.Eventually(t, func() bool {
		snap, err := st.GetAuction("auction1")
		return err == nil && snap.Status == model.StatusEnded
	}, 3*time.Second, 5*time.Millisecond)

	select {
	case ev := <-eventsCh:
		require.Equal(t, events.AuctionClosed, ev.Kind)
		require.Equal(t, "auction1", ev.AuctionID)
	case <-time.After(time.Second):
		t.Fatal("expected an AuctionClosed event")
	}
}

func TestCloser_UnwatchCancelsTimer(t *testing.T) {
	t.Parallel()

	st, _, _, c := setup(t)

	auction, err := st.CreateAuction(testAuction("auction1", time.Now().Add(30*time.Millisecond)))
	require.NoError(t, err)

	c.Watch(auction)
	c.Unwatch("auction1")

	time.Sleep(100 * time.Millisecond)

	snap, err := st.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, snap.Status)
}

func TestCloser_AlreadyClosedIsANoOp(t *testing.T) {
	t.Parallel()

	st, engine, _, c := setup(t)

	auction, err := st.CreateAuction(testAuction("auction1", time.Now().Add(30*time.Millisecond)))
	require.NoError(t, err)

	c.Watch(auction)
	_, err = engine.CloseAuction("auction1", model.StatusCancelled)
	require.NoError(t, err)

	// The timer still fires; its close attempt must leave cancelled alone.
	time.Sleep(100 * time.Millisecond)

	snap, err := st.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, snap.Status)
}

func TestCloser_IgnoresUnboundedOrTerminalAuctions(t *testing.T) {
	t.Parallel()

	st, _, _, c := setup(t)

	noEnd := testAuction("auction1", time.Time{})
	_, err := st.CreateAuction(noEnd)
	require.NoError(t, err)
	c.Watch(noEnd)

	time.Sleep(50 * time.Millisecond)

	snap, err := st.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, snap.Status)
}
