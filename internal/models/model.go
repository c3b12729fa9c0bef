package models

import "time"

// TaxInfo is a player's market standing as computed by the market-tier service.
// Percentages are whole-number-friendly floats (e.g. 5 means 5%).
type TaxInfo struct {
	ListingTaxPct float64 `json:"listing_tax_pct"`
	SellTaxPct    float64 `json:"sell_tax_pct"`
	BuyTaxPct     float64 `json:"buy_tax_pct"`
	ItemLimit     int     `json:"item_limit"`
	Points        int     `json:"points"`
	Tier          string  `json:"tier"`
}

// AuctionRow is the durable shape of one auction lot. It round-trips exactly
// through the repository: every field written is read back unchanged on load.
// Winning* columns are null when the lot has never received a bid.
type AuctionRow struct {
	ID                           int64
	MsgID                        string
	UserID                       string
	SystemAuction                bool
	ItemID                       string
	UniqueID                     string
	Quantity                     int
	MinimumBid                   int64
	MinimumIncrement             int64
	StartTime                    time.Time
	Duration                     time.Duration
	ItemRemainingLifespanSeconds int64
	CountdownStartTime           *time.Time
	EndTime                      *time.Time
	ItemRetrieved                bool
	WinningUserID                *string
	WinningCurrentAmount         *int64
	WinningMaximumAmount         *int64
	WinningReservedAmount        *int64
	WinningTaxRate               *float64
	WinningBidTime               *time.Time
}
