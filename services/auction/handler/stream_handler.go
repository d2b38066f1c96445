package handler

import (
	"net/http"
	"time"

	"auction-bid-engine/internal/events"
	"auction-bid-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// StreamHandler pushes engine events to WebSocket clients. Each connection is
// its own bus subscriber filtered down to one auction, so a slow client can
// lose events but can never stall the bid path or other clients.
type StreamHandler struct {
	bus      *events.Bus
	upgrader websocket.Upgrader
}

func NewStreamHandler(bus *events.Bus) *StreamHandler {
	return &StreamHandler{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The surrounding system owns authentication and origin policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// StreamAuctionHandler handles GET /auctions/:auction_id/stream
func (h *StreamHandler) StreamAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Warn("StreamAuctionHandler: upgrade failed", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}

	eventsCh, cancel := h.bus.Subscribe()

	utils.Info("StreamAuctionHandler: client connected", map[string]any{
		"auction_id": auctionID,
		"remote":     conn.RemoteAddr().String(),
	})

	// Reader exists only to observe the close handshake.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		cancel()
		conn.Close()
		utils.Info("StreamAuctionHandler: client disconnected", map[string]any{
			"auction_id": auctionID,
		})
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-eventsCh:
			if !ok {
				return
			}
			if ev.AuctionID != auctionID {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
