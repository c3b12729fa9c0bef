package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrUnknownItem     = errors.New("unknown item")
)

// business logic errors
var (
	ErrInvalidBid        = errors.New("invalid bid")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrListingLimit      = errors.New("listing limit reached")
	ErrAlreadyClaimed    = errors.New("item already claimed")
	ErrAuctionExpired    = errors.New("auction expired")
)
