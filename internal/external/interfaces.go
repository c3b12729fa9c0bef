package external

import (
	"context"

	"auction-house/internal/models"
)

// Wallet is the player ledger. The auction engine never reads balances; it
// only issues reserve/release/deposit/deduct requests and relies on each call
// being atomic on the wallet side.
type Wallet interface {
	// ReserveFunds withholds amount+tax from the player's balance. Returns
	// auctionerrors.ErrInsufficientFunds when the balance cannot cover it.
	ReserveFunds(ctx context.Context, playerID string, amount, tax int64) error
	// ReleaseFunds returns previously reserved funds. Always succeeds.
	ReleaseFunds(ctx context.Context, playerID string, amount int64)
	// Deposit credits the player's balance.
	Deposit(ctx context.Context, playerID string, amount int64)
	// Deduct debits the player's balance outside of any reservation. Returns
	// auctionerrors.ErrInsufficientFunds when the balance cannot cover it.
	Deduct(ctx context.Context, playerID string, amount int64) error
}

// MarketTier computes a player's tax rates and tracks market reputation.
type MarketTier interface {
	ComputeTaxInfo(ctx context.Context, playerID string) models.TaxInfo
	AwardPoints(ctx context.Context, playerID string, points int)
}

// Notifier delivers fire-and-forget whispers to players.
type Notifier interface {
	Whisper(playerID, message string)
}

// Inventory is consulted only at claim time.
type Inventory interface {
	// HasRoom reports whether the player can receive the item. ringID names
	// the container slot the item would land in; addCheck reports whether the
	// add needs a follow-up confirmation on the inventory side.
	HasRoom(ctx context.Context, playerID, itemID string, quantity int) (ok bool, ringID string, addCheck bool)
	// AddToInventory grants the item. lifespanSeconds <= 0 means no timer
	// (or an already-expired one, which is granted as-is).
	AddToInventory(ctx context.Context, playerID, ringID, itemID string, quantity int, lifespanSeconds int64) error
	// DestroyCraftedItem removes a unique catalog instance permanently.
	DestroyCraftedItem(ctx context.Context, uniqueID string) bool
}

// Presenter is the presentation layer's refresh hook. The engine calls
// Refresh on every externally visible state change of a lot and stops once
// the lot is terminal.
type Presenter interface {
	Refresh(msgID string)
}
