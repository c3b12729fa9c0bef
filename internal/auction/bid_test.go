package auction

import (
	"context"
	"errors"
	"testing"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/external"

	"github.com/stretchr/testify/require"
)

func TestTaxOn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		amount  int64
		ratePct float64
		want    int64
	}{
		{name: "five_percent", amount: 100_000_000, ratePct: 5, want: 5_000_000},
		{name: "zero_rate", amount: 100_000_000, ratePct: 0, want: 0},
		{name: "rounds_half_up", amount: 10, ratePct: 5, want: 1}, // 0.5 rounds away from zero
		{name: "fractional_rate", amount: 1_000, ratePct: 2.5, want: 25},
		{name: "zero_amount", amount: 0, ratePct: 5, want: 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, TaxOn(tc.amount, tc.ratePct))
		})
	}
}

// The escrow invariant: reservedAmount == maximumAmount + tax(maximumAmount)
// must hold at creation and across every maximum-amount update.
func TestBid_EscrowInvariant(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	wallet := external.NewLocalWallet()
	wallet.SetBalance("bidder", 1_000_000_000)

	bid := NewBid(1, "bidder", 100_000_000, 150_000_000, 5, time.Now().UTC())
	require.Equal(t, bid.MaximumAmount+TaxOn(bid.MaximumAmount, bid.TaxRate), bid.ReservedAmount)

	require.NoError(t, wallet.ReserveFunds(ctx, "bidder", bid.MaximumAmount, bid.ReservedAmount-bid.MaximumAmount))

	// Raise, then lower; the invariant holds after each step.
	require.NoError(t, bid.UpdateMaximumAmount(ctx, wallet, 200_000_000, time.Now().UTC()))
	require.Equal(t, bid.MaximumAmount+TaxOn(bid.MaximumAmount, bid.TaxRate), bid.ReservedAmount)

	require.NoError(t, bid.UpdateMaximumAmount(ctx, wallet, 120_000_000, time.Now().UTC()))
	require.Equal(t, bid.MaximumAmount+TaxOn(bid.MaximumAmount, bid.TaxRate), bid.ReservedAmount)

	// Everything not escrowed is back in the wallet.
	require.Equal(t, 1_000_000_000-bid.ReservedAmount, wallet.Balance("bidder"))
}

func TestBid_UpdateCurrentAmount(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	bid := NewBid(1, "bidder", 100, 200, 5, now)

	t.Run("exceeds_maximum", func(t *testing.T) {
		changed, err := bid.UpdateCurrentAmount(250, now)
		require.False(t, changed)
		require.ErrorIs(t, err, auctionerrors.ErrInvalidBid)
		require.Equal(t, int64(100), bid.CurrentAmount)
	})

	t.Run("noop_when_unchanged", func(t *testing.T) {
		changed, err := bid.UpdateCurrentAmount(100, now.Add(time.Minute))
		require.NoError(t, err)
		require.False(t, changed)
		require.Equal(t, now, bid.BidTime)
	})

	t.Run("raises_price_and_bid_time", func(t *testing.T) {
		later := now.Add(time.Minute)
		changed, err := bid.UpdateCurrentAmount(150, later)
		require.NoError(t, err)
		require.True(t, changed)
		require.Equal(t, int64(150), bid.CurrentAmount)
		require.Equal(t, later, bid.BidTime)
	})
}

func TestBid_UpdateMaximumAmount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("below_current_price", func(t *testing.T) {
		t.Parallel()
		wallet := external.NewLocalWallet()
		bid := NewBid(1, "bidder", 100, 200, 5, now)
		err := bid.UpdateMaximumAmount(ctx, wallet, 50, now)
		require.ErrorIs(t, err, auctionerrors.ErrInvalidBid)
	})

	t.Run("raise_fails_without_funds_no_partial_state", func(t *testing.T) {
		t.Parallel()
		wallet := external.NewLocalWallet()
		wallet.SetBalance("bidder", 0)
		bid := NewBid(1, "bidder", 100, 200, 5, now)
		before := *bid

		err := bid.UpdateMaximumAmount(ctx, wallet, 400, now.Add(time.Minute))
		require.True(t, errors.Is(err, auctionerrors.ErrInsufficientFunds))
		require.Equal(t, before, *bid)
	})

	t.Run("raise_reserves_only_the_delta", func(t *testing.T) {
		t.Parallel()
		wallet := external.NewLocalWallet()
		wallet.SetBalance("bidder", 1_000)
		bid := NewBid(1, "bidder", 100, 200, 5, now)
		oldReserved := bid.ReservedAmount

		require.NoError(t, bid.UpdateMaximumAmount(ctx, wallet, 400, now))
		require.Equal(t, int64(400)+TaxOn(400, 5), bid.ReservedAmount)
		require.Equal(t, int64(1_000)-(bid.ReservedAmount-oldReserved), wallet.Balance("bidder"))
	})

	t.Run("lower_releases_the_delta", func(t *testing.T) {
		t.Parallel()
		wallet := external.NewLocalWallet()
		bid := NewBid(1, "bidder", 100, 400, 5, now)
		oldReserved := bid.ReservedAmount

		require.NoError(t, bid.UpdateMaximumAmount(ctx, wallet, 200, now))
		require.Equal(t, int64(200)+TaxOn(200, 5), bid.ReservedAmount)
		require.Equal(t, oldReserved-bid.ReservedAmount, wallet.Balance("bidder"))
	})
}
