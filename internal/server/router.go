package server

import (
	"auction-bid-engine/internal/events"
	handler "auction-bid-engine/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(engine handler.EngineInterface, proxies handler.ProxyInterface, watcher handler.EndTimeWatcher, bus *events.Bus) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(engine, proxies, watcher)
	streamHandler := handler.NewStreamHandler(bus)

	bids := router.Group("/bids")
	{
		bids.POST("", auctionHandler.SubmitBidHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.POST("", auctionHandler.PublishAuctionHandler)
		auctions.GET("", auctionHandler.ListAuctionsHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctions.GET("/:auction_id/bids", auctionHandler.GetBidsHandler)
		auctions.POST("/:auction_id/activate", auctionHandler.ActivateAuctionHandler)
		auctions.POST("/:auction_id/close", auctionHandler.CloseAuctionHandler)
		auctions.PUT("/:auction_id/proxy", auctionHandler.ConfigureProxyHandler)
		auctions.GET("/:auction_id/proxy/:bidder_id", auctionHandler.GetProxyHandler)
		auctions.DELETE("/:auction_id/proxy/:bidder_id", auctionHandler.DisableProxyHandler)
		auctions.GET("/:auction_id/stream", streamHandler.StreamAuctionHandler)
	}

	return router
}
