package auction

import (
	"context"
	"fmt"
	"math"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/external"
)

// TaxOn returns the tax due on amount at a percentage rate, rounded to the
// nearest currency unit.
func TaxOn(amount int64, ratePct float64) int64 {
	return int64(math.Round(float64(amount) * ratePct / 100))
}

// Bid is the current winning commitment on one auction. CurrentAmount is the
// publicly visible price; MaximumAmount is the bidder's private ceiling (the
// proxy bid). ReservedAmount is the escrow withheld from the bidder's wallet:
// always MaximumAmount plus the buy tax on MaximumAmount at the snapshotted
// rate. The tax rate is fixed at first-commitment time for a given
// bidder/auction and never re-looked-up.
type Bid struct {
	AuctionID      int64
	BidderID       string
	CurrentAmount  int64
	MaximumAmount  int64
	ReservedAmount int64
	TaxRate        float64
	BidTime        time.Time
}

// NewBid builds a bid commitment. It does not reserve funds; the caller
// reserves ReservedAmount before installing the bid as a lot's winner.
func NewBid(auctionID int64, bidderID string, amount, maxAmount int64, taxRate float64, now time.Time) *Bid {
	return &Bid{
		AuctionID:      auctionID,
		BidderID:       bidderID,
		CurrentAmount:  amount,
		MaximumAmount:  maxAmount,
		ReservedAmount: maxAmount + TaxOn(maxAmount, taxRate),
		TaxRate:        taxRate,
		BidTime:        now,
	}
}

// UpdateCurrentAmount moves the visible price. The price can never exceed the
// bidder's ceiling. Returns whether anything changed so the caller can skip
// persistence on a no-op.
func (b *Bid) UpdateCurrentAmount(newAmount int64, now time.Time) (bool, error) {
	if newAmount > b.MaximumAmount {
		return false, fmt.Errorf("bid: %w - amount %d exceeds maximum %d", auctionerrors.ErrInvalidBid, newAmount, b.MaximumAmount)
	}
	if newAmount == b.CurrentAmount {
		return false, nil
	}
	b.CurrentAmount = newAmount
	b.BidTime = now
	return true, nil
}

// UpdateMaximumAmount raises or lowers the bidder's ceiling. Raising reserves
// the incremental escrow from the wallet first; no field changes on a failed
// reservation. Lowering releases the delta back immediately. The reservation
// is always recomputed from the tax rate snapshotted on the bid.
func (b *Bid) UpdateMaximumAmount(ctx context.Context, wallet external.Wallet, newMaximum int64, now time.Time) error {
	if newMaximum < b.CurrentAmount {
		return fmt.Errorf("bid: %w - maximum %d below current price %d", auctionerrors.ErrInvalidBid, newMaximum, b.CurrentAmount)
	}

	newReserved := newMaximum + TaxOn(newMaximum, b.TaxRate)
	switch {
	case newReserved > b.ReservedAmount:
		amountDelta := newMaximum - b.MaximumAmount
		taxDelta := (newReserved - b.ReservedAmount) - amountDelta
		if err := wallet.ReserveFunds(ctx, b.BidderID, amountDelta, taxDelta); err != nil {
			return fmt.Errorf("bid: raise maximum to %d: %w", newMaximum, err)
		}
	case newReserved < b.ReservedAmount:
		wallet.ReleaseFunds(ctx, b.BidderID, b.ReservedAmount-newReserved)
	}

	b.MaximumAmount = newMaximum
	b.ReservedAmount = newReserved
	b.BidTime = now
	return nil
}
