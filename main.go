package main

import (
	"fmt"
	"os"
	"time"

	"auction-bid-engine/internal/bidengine"
	"auction-bid-engine/internal/closer"
	"auction-bid-engine/internal/config"
	"auction-bid-engine/internal/events"
	model "auction-bid-engine/internal/models"
	"auction-bid-engine/internal/proxy"
	"auction-bid-engine/internal/server"
	"auction-bid-engine/internal/store"
	"auction-bid-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.Load()
	utils.SetLogLevel(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	bus := events.NewBus(cfg.EventBufferSize)
	auctionStore := store.NewMemoryStore()
	engine := bidengine.NewEngine(auctionStore, bus)

	reconciler := proxy.NewReconciler(engine, bus, cfg.ProxyDelay)
	reconciler.Start()
	defer reconciler.Stop()

	endWatcher := closer.NewCloser(engine)
	defer endWatcher.Stop()

	prepopulateAuctions(engine, endWatcher)

	router := server.SetupRouter(engine, reconciler, endWatcher, bus)

	fmt.Printf("Starting auction bid engine on %s...\n", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

// prepopulateAuctions adds sample auctions for local runs
func prepopulateAuctions(engine *bidengine.Engine, endWatcher *closer.Closer) {
	auctions := []model.Auction{
		{
			AuctionID:    "auction1",
			Title:        "Vintage camera",
			BasePrice:    decimal.NewFromInt(100),
			MinIncrement: decimal.NewFromInt(10),
			EndTime:      time.Now().Add(24 * time.Hour),
			Status:       model.StatusActive,
		},
		{
			AuctionID:    "auction2",
			Title:        "Mechanical watch",
			BasePrice:    decimal.NewFromInt(250),
			MinIncrement: decimal.NewFromInt(25),
			EndTime:      time.Now().Add(48 * time.Hour),
			Status:       model.StatusActive,
		},
		{
			AuctionID:    "auction3",
			Title:        "First edition print",
			BasePrice:    decimal.NewFromInt(500),
			MinIncrement: decimal.NewFromInt(50),
			Status:       model.StatusScheduled,
		},
	}

	for _, a := range auctions {
		created, err := engine.PublishAuction(a)
		if err != nil {
			utils.Warn("failed to prepopulate auction", map[string]any{
				"auction_id": a.AuctionID,
				"error":      err.Error(),
			})
			continue
		}
		endWatcher.Watch(created)
	}
}
