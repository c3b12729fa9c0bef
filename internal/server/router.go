package server

import (
	handler "auction-house/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(service handler.AuctionServiceInterface) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(service)

	auctions := router.Group("/auctions")
	{
		auctions.POST("", auctionHandler.CreateAuctionHandler)
		auctions.GET("/:msg_id", auctionHandler.GetAuctionHandler)
		auctions.POST("/:msg_id/bids", auctionHandler.PlaceBidHandler)
		auctions.POST("/:msg_id/claim", auctionHandler.ClaimHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/escrow", auctionHandler.GetEscrowHandler)
	}

	return router
}
