package helpers

// Request/Response DTOs
type CreateAuctionRequest struct {
	MsgID                    string  `json:"msg_id"`
	AuthorID                 string  `json:"author_id" binding:"required"`
	SystemAuction            bool    `json:"system_auction"`
	ItemID                   string  `json:"item_id" binding:"required"`
	UniqueID                 string  `json:"unique_id"`
	Quantity                 int     `json:"quantity" binding:"required,gt=0"`
	MinimumBid               int64   `json:"minimum_bid" binding:"required,gt=0"`
	MinimumIncrement         int64   `json:"minimum_increment" binding:"required,gt=0"`
	DurationHours            float64 `json:"duration_hours" binding:"required,gt=0"`
	RemainingLifespanSeconds int64   `json:"remaining_lifespan_seconds"`
}

type PlaceBidRequest struct {
	BidderID  string `json:"bidder_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	MaxAmount int64  `json:"max_amount"`
}

type ClaimRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type EscrowResponse struct {
	PlayerID string `json:"player_id"`
	Escrowed int64  `json:"escrowed"`
}
