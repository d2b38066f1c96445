package handler

import (
	"fmt"
	"net/http"
	"time"

	"auction-bid-engine/internal/bidengine"
	model "auction-bid-engine/internal/models"
	"auction-bid-engine/services/auction/helpers"
	"auction-bid-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type EngineInterface interface {
	SubmitBid(req bidengine.BidRequest) (model.Auction, model.Bid, error)
	GetAuctionSnapshot(auctionID string) (model.Auction, error)
	ListAuctions() []model.Auction
	PublishAuction(auction model.Auction) (model.Auction, error)
	ActivateAuction(auctionID string) (model.Auction, error)
	CloseAuction(auctionID string, status model.AuctionStatus) (model.Auction, error)
}

type ProxyInterface interface {
	Configure(auctionID, bidderID string, ceiling, increment decimal.Decimal) (model.ProxyBidConfig, error)
	Disable(auctionID, bidderID string) error
	GetConfig(auctionID, bidderID string) (model.ProxyBidConfig, error)
}

// EndTimeWatcher arms and disarms the end-of-auction timer.
type EndTimeWatcher interface {
	Watch(auction model.Auction)
	Unwatch(auctionID string)
}

type AuctionHandler struct {
	engine  EngineInterface
	proxies ProxyInterface
	watcher EndTimeWatcher
}

func NewAuctionHandler(engine EngineInterface, proxies ProxyInterface, watcher EndTimeWatcher) *AuctionHandler {
	return &AuctionHandler{engine: engine, proxies: proxies, watcher: watcher}
}

// respondError maps a domain error and logs it in one place.
func respondError(c *gin.Context, handlerName string, err error, ctx map[string]any) {
	status, message := helpers.MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
	if ctx == nil {
		ctx = map[string]any{}
	}
	ctx["error"] = err.Error()
	utils.Warn(handlerName+": request failed", ctx)
}

// PublishAuctionHandler handles POST /auctions
func (h *AuctionHandler) PublishAuctionHandler(c *gin.Context) {
	var req helpers.PublishAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PublishAuctionHandler", err)
		return
	}

	basePrice, err := helpers.ParseAmount("base_price", req.BasePrice)
	if err != nil {
		respondError(c, "PublishAuctionHandler", err, nil)
		return
	}
	minIncrement, err := helpers.ParseAmount("min_increment", req.MinIncrement)
	if err != nil {
		respondError(c, "PublishAuctionHandler", err, nil)
		return
	}

	var endTime time.Time
	if req.EndTime != "" {
		endTime, err = time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			helpers.HandleBindError(c, "PublishAuctionHandler", fmt.Errorf("end_time: %w", err))
			return
		}
	}

	auctionID := req.AuctionID
	if auctionID == "" {
		auctionID = utils.GenerateID()
	}
	// The prototype API publishes straight into active unless the caller
	// asks for a scheduled auction.
	status := model.StatusActive
	if req.Status != "" {
		status = model.AuctionStatus(req.Status)
	}

	auction, err := h.engine.PublishAuction(model.Auction{
		AuctionID:    auctionID,
		Title:        req.Title,
		BasePrice:    basePrice,
		MinIncrement: minIncrement,
		EndTime:      endTime,
		Status:       status,
	})
	if err != nil {
		respondError(c, "PublishAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	h.watcher.Watch(auction)

	utils.JSONResponse(c, http.StatusCreated, helpers.ToAuctionResponse(auction), "auction published successfully")
	helpers.LogSuccess("PublishAuctionHandler", "auction published successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"status":     string(auction.Status),
	})
}

// SubmitBidHandler handles POST /bids
func (h *AuctionHandler) SubmitBidHandler(c *gin.Context) {
	var req helpers.SubmitBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SubmitBidHandler", err)
		return
	}

	amount, err := helpers.ParseAmount("amount", req.Amount)
	if err != nil {
		respondError(c, "SubmitBidHandler", err, nil)
		return
	}

	auction, bid, err := h.engine.SubmitBid(bidengine.BidRequest{
		AuctionID:      req.AuctionID,
		BidderID:       req.BidderID,
		Amount:         amount,
		Origin:         model.OriginManual,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		respondError(c, "SubmitBidHandler", err, map[string]any{
			"auction_id": req.AuctionID,
			"bidder_id":  req.BidderID,
		})
		return
	}

	resp := helpers.SubmitBidResponse{
		Auction: helpers.ToAuctionResponse(auction),
		Bid:     helpers.ToBidResponse(bid),
	}

	utils.JSONResponse(c, http.StatusCreated, resp, "bid accepted successfully")
	helpers.LogSuccess("SubmitBidHandler", "bid accepted successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder_id":  bid.BidderID,
		"amount":     bid.Amount.String(),
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.engine.GetAuctionSnapshot(auctionID)
	if err != nil {
		respondError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponse(auction), "auction retrieved successfully")
}

// ListAuctionsHandler handles GET /auctions
func (h *AuctionHandler) ListAuctionsHandler(c *gin.Context) {
	auctions := h.engine.ListAuctions()
	resp := make([]helpers.AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		resp = append(resp, helpers.ToAuctionResponse(a))
	}
	utils.JSONResponse(c, http.StatusOK, resp, "auctions retrieved successfully")
}

// GetBidsHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.engine.GetAuctionSnapshot(auctionID)
	if err != nil {
		respondError(c, "GetBidsHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	bids := make([]helpers.BidResponse, 0, len(auction.Bids))
	for _, b := range auction.Bids {
		bids = append(bids, helpers.ToBidResponse(b))
	}

	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// ActivateAuctionHandler handles POST /auctions/:auction_id/activate
func (h *AuctionHandler) ActivateAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.engine.ActivateAuction(auctionID)
	if err != nil {
		respondError(c, "ActivateAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	h.watcher.Watch(auction)

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponse(auction), "auction activated successfully")
	helpers.LogSuccess("ActivateAuctionHandler", "auction activated successfully", map[string]any{
		"auction_id": auctionID,
	})
}

// CloseAuctionHandler handles POST /auctions/:auction_id/close
func (h *AuctionHandler) CloseAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	status := model.StatusEnded
	if c.Query("cancel") == "true" {
		status = model.StatusCancelled
	}

	auction, err := h.engine.CloseAuction(auctionID, status)
	if err != nil {
		respondError(c, "CloseAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	h.watcher.Unwatch(auctionID)

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponse(auction), "auction closed successfully")
	helpers.LogSuccess("CloseAuctionHandler", "auction closed successfully", map[string]any{
		"auction_id": auctionID,
		"status":     string(auction.Status),
	})
}

// ConfigureProxyHandler handles PUT /auctions/:auction_id/proxy
func (h *AuctionHandler) ConfigureProxyHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.ConfigureProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ConfigureProxyHandler", err)
		return
	}

	ceiling, err := helpers.ParseAmount("ceiling", req.Ceiling)
	if err != nil {
		respondError(c, "ConfigureProxyHandler", err, nil)
		return
	}
	increment, err := helpers.ParseAmount("increment", req.Increment)
	if err != nil {
		respondError(c, "ConfigureProxyHandler", err, nil)
		return
	}

	cfg, err := h.proxies.Configure(auctionID, req.BidderID, ceiling, increment)
	if err != nil {
		respondError(c, "ConfigureProxyHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToProxyConfigResponse(cfg), "proxy bid configured successfully")
	helpers.LogSuccess("ConfigureProxyHandler", "proxy bid configured successfully", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  req.BidderID,
	})
}

// GetProxyHandler handles GET /auctions/:auction_id/proxy/:bidder_id
func (h *AuctionHandler) GetProxyHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bidderID := c.Param("bidder_id")

	cfg, err := h.proxies.GetConfig(auctionID, bidderID)
	if err != nil {
		respondError(c, "GetProxyHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  bidderID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToProxyConfigResponse(cfg), "proxy configuration retrieved successfully")
}

// DisableProxyHandler handles DELETE /auctions/:auction_id/proxy/:bidder_id
func (h *AuctionHandler) DisableProxyHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bidderID := c.Param("bidder_id")

	if err := h.proxies.Disable(auctionID, bidderID); err != nil {
		respondError(c, "DisableProxyHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  bidderID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, nil, "proxy bid disabled successfully")
	helpers.LogSuccess("DisableProxyHandler", "proxy bid disabled successfully", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  bidderID,
	})
}
