package handler

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"auction-bid-engine/internal/events"
	model "auction-bid-engine/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newStreamServer(t *testing.T, bus *events.Bus) *httptest.Server {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/auctions/:auction_id/stream", NewStreamHandler(bus).StreamAuctionHandler)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dialStream(t *testing.T, srv *httptest.Server, auctionID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/auctions/" + auctionID + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// Test StreamAuctionHandler
func TestStreamAuctionHandler(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()

	srv := newStreamServer(t, bus)
	conn := dialStream(t, srv, "auction1")

	// The handshake returns before the handler subscribes; give it a beat.
	time.Sleep(100 * time.Millisecond)

	// Events for other auctions must never reach this client.
	bus.Publish(events.Event{Kind: events.BidAccepted, AuctionID: "auction2"})

	bid := model.Bid{
		BidID:     "bid1",
		AuctionID: "auction1",
		BidderID:  "bidderA",
		Amount:    decimal.NewFromInt(110),
		Origin:    model.OriginManual,
	}
	bus.Publish(events.Event{Kind: events.BidAccepted, AuctionID: "auction1", Bid: &bid})

	var got events.Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))

	// WebSocket frames arrive in write order, so receiving the auction1
	// event first proves the auction2 event was filtered out.
	require.Equal(t, events.BidAccepted, got.Kind)
	require.Equal(t, "auction1", got.AuctionID)
	require.NotNil(t, got.Bid)
	require.Equal(t, "bidderA", got.Bid.BidderID)
	require.True(t, got.Bid.Amount.Equal(decimal.NewFromInt(110)))

	bus.Publish(events.Event{Kind: events.AuctionClosed, AuctionID: "auction1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, events.AuctionClosed, got.Kind)
	require.Equal(t, "auction1", got.AuctionID)

	// With only foreign-auction traffic the stream stays silent.
	bus.Publish(events.Event{Kind: events.BidAccepted, AuctionID: "auction2"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	require.Error(t, conn.ReadJSON(&got), "expected no frame for another auction")
}

// Two clients on different auctions each see only their own events.
func TestStreamAuctionHandler_PerAuctionFanout(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()

	srv := newStreamServer(t, bus)
	conn1 := dialStream(t, srv, "auction1")
	conn2 := dialStream(t, srv, "auction2")

	time.Sleep(100 * time.Millisecond)

	bus.Publish(events.Event{Kind: events.BidAccepted, AuctionID: "auction1"})
	bus.Publish(events.Event{Kind: events.BidAccepted, AuctionID: "auction2"})

	var got1, got2 events.Event
	require.NoError(t, conn1.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn1.ReadJSON(&got1))
	require.Equal(t, "auction1", got1.AuctionID)

	require.NoError(t, conn2.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn2.ReadJSON(&got2))
	require.Equal(t, "auction2", got2.AuctionID)
}
