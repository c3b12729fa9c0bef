package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"auction-house/internal/auction"
	"auction-house/services/auction/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

type AuctionServiceInterface interface {
	CreateAuction(ctx context.Context, p auction.ListingParams) (*auction.AuctionedItem, error)
	Bid(ctx context.Context, msgID, bidderID string, amount, maxAmount int64) error
	Claim(ctx context.Context, msgID, userID string) error
	Lot(msgID string) (*auction.AuctionedItem, bool)
	EscrowOf(playerID string) int64
}

type AuctionHandler struct {
	service AuctionServiceInterface
}

func NewAuctionHandler(service AuctionServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service}
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	item, err := h.service.CreateAuction(c.Request.Context(), auction.ListingParams{
		MsgID:             req.MsgID,
		AuthorID:          req.AuthorID,
		SystemAuction:     req.SystemAuction,
		ItemID:            req.ItemID,
		UniqueID:          req.UniqueID,
		Quantity:          req.Quantity,
		MinimumBid:        req.MinimumBid,
		MinimumIncrement:  req.MinimumIncrement,
		Duration:          time.Duration(req.DurationHours * float64(time.Hour)),
		RemainingLifespan: time.Duration(req.RemainingLifespanSeconds) * time.Second,
	})
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("CreateAuctionHandler: failed to create auction", map[string]any{
			"author_id": req.AuthorID,
			"item_id":   req.ItemID,
			"error":     err.Error(),
		})
		return
	}

	snap := item.SnapshotAt(time.Now().UTC())
	utils.JSONResponse(c, http.StatusCreated, snap, "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": snap.ID,
		"msg_id":     snap.MsgID,
		"author_id":  snap.AuthorID,
	})
}

// PlaceBidHandler handles POST /auctions/:msg_id/bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	msgID := c.Param("msg_id")
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	if err := h.service.Bid(c.Request.Context(), msgID, req.BidderID, req.Amount, req.MaxAmount); err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("PlaceBidHandler: bid rejected", map[string]any{
			"msg_id":    msgID,
			"bidder_id": req.BidderID,
			"error":     err.Error(),
		})
		return
	}

	var snap any
	if item, ok := h.service.Lot(msgID); ok {
		snap = item.SnapshotAt(time.Now().UTC())
	}
	utils.JSONResponse(c, http.StatusOK, snap, "bid accepted")
	helpers.LogSuccess("PlaceBidHandler", "bid accepted", map[string]any{
		"msg_id":    msgID,
		"bidder_id": req.BidderID,
		"amount":    req.Amount,
	})
}

// ClaimHandler handles POST /auctions/:msg_id/claim
func (h *AuctionHandler) ClaimHandler(c *gin.Context) {
	msgID := c.Param("msg_id")
	var req helpers.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ClaimHandler", err)
		return
	}

	if err := h.service.Claim(c.Request.Context(), msgID, req.UserID); err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ClaimHandler: claim rejected", map[string]any{
			"msg_id":  msgID,
			"user_id": req.UserID,
			"error":   err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, nil, "item claimed successfully")
	helpers.LogSuccess("ClaimHandler", "item claimed successfully", map[string]any{
		"msg_id":  msgID,
		"user_id": req.UserID,
	})
}

// GetAuctionHandler handles GET /auctions/:msg_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	msgID := c.Param("msg_id")
	item, ok := h.service.Lot(msgID)
	if !ok {
		utils.JSONError(c, http.StatusNotFound, fmt.Errorf("no auction for handle %s", msgID), "auction not found")
		return
	}

	snap := item.SnapshotAt(time.Now().UTC())
	utils.JSONResponse(c, http.StatusOK, snap, "auction retrieved successfully")
}

// GetEscrowHandler handles GET /users/:user_id/escrow
func (h *AuctionHandler) GetEscrowHandler(c *gin.Context) {
	userID := c.Param("user_id")
	resp := helpers.EscrowResponse{
		PlayerID: userID,
		Escrowed: h.service.EscrowOf(userID),
	}
	utils.JSONResponse(c, http.StatusOK, resp, "escrow retrieved successfully")
}
