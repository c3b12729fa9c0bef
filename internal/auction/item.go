package auction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/external"
	"auction-house/internal/models"
	"auction-house/internal/repository"
)

// Phase is the lifecycle state of a lot, derived from its timestamps.
type Phase int

const (
	PhaseActiveMain Phase = iota
	PhaseActiveCountdown
	PhaseEndedUnclaimed
	PhaseCompleted
	PhaseExpired
)

func (p Phase) String() string {
	switch p {
	case PhaseActiveMain:
		return "active"
	case PhaseActiveCountdown:
		return "countdown"
	case PhaseEndedUnclaimed:
		return "ended"
	case PhaseCompleted:
		return "completed"
	case PhaseExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Env bundles the collaborators and tuning every lot needs. One Env is shared
// by all lots of an auction house.
type Env struct {
	DB        repository.AuctionDB
	Wallet    external.Wallet
	Market    external.MarketTier
	Notifier  external.Notifier
	Inventory external.Inventory

	// CountdownWindow is the length of the anti-snipe phase at the end of
	// every auction. MaxClaimWindow bounds how long an ended lot waits to be
	// claimed before it expires.
	CountdownWindow time.Duration
	MaxClaimWindow  time.Duration
}

// AuctionedItem is one lot: its terms, phase and, if any, winning bid.
// All mutation goes through methods; the lot's mutex is held for the full
// duration of a bid, settlement or claim call, including wallet and
// persistence calls, so two racing operations on the same lot can never both
// observe the same pre-state. Lots are independent of each other.
type AuctionedItem struct {
	ID                 int64 // 0 until persisted
	MsgID              string
	AuthorID           string
	SystemAuction      bool
	ItemID             string
	UniqueID           string
	Quantity           int
	MinimumBid         int64
	MinimumIncrement   int64
	StartTime          time.Time
	Duration           time.Duration
	RemainingLifespan  time.Duration // 0 = non-perishable, measured from auction end
	CountdownStartTime *time.Time
	EndTime            *time.Time
	ItemRetrieved      bool
	Winning            *Bid

	env *Env
	mu  sync.Mutex
}

// ListingParams are the terms of a new lot.
type ListingParams struct {
	MsgID             string
	AuthorID          string
	SystemAuction     bool
	ItemID            string
	UniqueID          string
	Quantity          int
	MinimumBid        int64
	MinimumIncrement  int64
	Duration          time.Duration
	RemainingLifespan time.Duration
}

// NewAuctionedItem builds an unpersisted lot starting now.
func NewAuctionedItem(env *Env, p ListingParams, now time.Time) *AuctionedItem {
	return &AuctionedItem{
		MsgID:             p.MsgID,
		AuthorID:          p.AuthorID,
		SystemAuction:     p.SystemAuction,
		ItemID:            p.ItemID,
		UniqueID:          p.UniqueID,
		Quantity:          p.Quantity,
		MinimumBid:        p.MinimumBid,
		MinimumIncrement:  p.MinimumIncrement,
		StartTime:         now,
		Duration:          p.Duration,
		RemainingLifespan: p.RemainingLifespan,
		env:               env,
	}
}

// FromRow reconstructs a lot from its durable row.
func FromRow(env *Env, row models.AuctionRow) *AuctionedItem {
	a := &AuctionedItem{
		ID:                 row.ID,
		MsgID:              row.MsgID,
		AuthorID:           row.UserID,
		SystemAuction:      row.SystemAuction,
		ItemID:             row.ItemID,
		UniqueID:           row.UniqueID,
		Quantity:           row.Quantity,
		MinimumBid:         row.MinimumBid,
		MinimumIncrement:   row.MinimumIncrement,
		StartTime:          row.StartTime,
		Duration:           row.Duration,
		RemainingLifespan:  time.Duration(row.ItemRemainingLifespanSeconds) * time.Second,
		CountdownStartTime: row.CountdownStartTime,
		EndTime:            row.EndTime,
		ItemRetrieved:      row.ItemRetrieved,
		env:                env,
	}
	if row.WinningUserID != nil {
		a.Winning = &Bid{
			AuctionID:      row.ID,
			BidderID:       *row.WinningUserID,
			CurrentAmount:  *row.WinningCurrentAmount,
			MaximumAmount:  *row.WinningMaximumAmount,
			ReservedAmount: *row.WinningReservedAmount,
			TaxRate:        *row.WinningTaxRate,
			BidTime:        *row.WinningBidTime,
		}
	}
	return a
}

// row converts the lot to its durable shape. Caller holds the lock.
func (a *AuctionedItem) row() models.AuctionRow {
	row := models.AuctionRow{
		ID:                           a.ID,
		MsgID:                        a.MsgID,
		UserID:                       a.AuthorID,
		SystemAuction:                a.SystemAuction,
		ItemID:                       a.ItemID,
		UniqueID:                     a.UniqueID,
		Quantity:                     a.Quantity,
		MinimumBid:                   a.MinimumBid,
		MinimumIncrement:             a.MinimumIncrement,
		StartTime:                    a.StartTime,
		Duration:                     a.Duration,
		ItemRemainingLifespanSeconds: int64(a.RemainingLifespan / time.Second),
		CountdownStartTime:           a.CountdownStartTime,
		EndTime:                      a.EndTime,
		ItemRetrieved:                a.ItemRetrieved,
	}
	if a.Winning != nil {
		row.WinningUserID = &a.Winning.BidderID
		row.WinningCurrentAmount = &a.Winning.CurrentAmount
		row.WinningMaximumAmount = &a.Winning.MaximumAmount
		row.WinningReservedAmount = &a.Winning.ReservedAmount
		row.WinningTaxRate = &a.Winning.TaxRate
		row.WinningBidTime = &a.Winning.BidTime
	}
	return row
}

// Row returns the lot's durable shape.
func (a *AuctionedItem) Row() models.AuctionRow {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.row()
}

func (a *AuctionedItem) persist(ctx context.Context) error {
	if err := a.env.DB.UpdateAuction(ctx, a.row()); err != nil {
		return fmt.Errorf("auction %d: persist: %w", a.ID, err)
	}
	return nil
}

// expectedCountdownStart is when the anti-snipe phase is scheduled to begin.
func (a *AuctionedItem) expectedCountdownStart() time.Time {
	return a.StartTime.Add(a.Duration - a.env.CountdownWindow)
}

// effectiveEndTime is when the auction actually closes: every bid placed
// during countdown pushes the deadline to bidTime+countdownWindow, strictly
// non-decreasing.
func (a *AuctionedItem) effectiveEndTime() time.Time {
	anchor := a.expectedCountdownStart()
	if a.Winning != nil && a.Winning.BidTime.After(anchor) {
		anchor = a.Winning.BidTime
	}
	return anchor.Add(a.env.CountdownWindow)
}

func (a *AuctionedItem) hasEnded(now time.Time) bool {
	if a.EndTime != nil {
		return true
	}
	return !now.Before(a.effectiveEndTime())
}

// claimDeadline is the instant past which an ended, unclaimed lot expires.
// Perishables are controlled by their remaining lifespan when that is the
// tighter bound.
func (a *AuctionedItem) claimDeadline() time.Time {
	window := a.env.MaxClaimWindow
	if a.RemainingLifespan > 0 && a.RemainingLifespan < window {
		window = a.RemainingLifespan
	}
	return a.EndTime.Add(window)
}

// PhaseAt reports the lot's phase at the given instant.
func (a *AuctionedItem) PhaseAt(now time.Time) Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phaseAt(now)
}

func (a *AuctionedItem) phaseAt(now time.Time) Phase {
	if a.EndTime != nil {
		switch {
		case a.ItemRetrieved:
			return PhaseCompleted
		case now.After(a.claimDeadline()):
			return PhaseExpired
		default:
			return PhaseEndedUnclaimed
		}
	}
	if a.CountdownStartTime != nil || !now.Before(a.expectedCountdownStart()) {
		return PhaseActiveCountdown
	}
	return PhaseActiveMain
}

// Bid places or updates a bid on the lot. amount is the bidder's starting
// (visible) commitment; maxAmount their proxy ceiling, coerced up to amount
// when lower. The lot's lock is held for the whole call so a concurrent bid
// or phase timeout cannot interleave with the wallet and persistence calls.
func (a *AuctionedItem) Bid(ctx context.Context, bidderID string, amount, maxAmount int64) error {
	if amount <= 0 {
		return fmt.Errorf("auction %d: %w - bid amount must be positive", a.ID, auctionerrors.ErrInvalidBid)
	}
	if maxAmount < amount {
		maxAmount = amount
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now().UTC()
	if bidderID == a.AuthorID {
		return fmt.Errorf("auction %d: %w - cannot bid on your own auction", a.ID, auctionerrors.ErrInvalidBid)
	}
	if a.hasEnded(now) {
		return fmt.Errorf("auction %d: %w - auction has already ended", a.ID, auctionerrors.ErrInvalidBid)
	}

	if a.Winning == nil {
		return a.acceptFirstBid(ctx, bidderID, amount, maxAmount, now)
	}
	if a.Winning.BidderID == bidderID {
		return a.raiseOwnCeiling(ctx, amount, maxAmount, now)
	}
	return a.challenge(ctx, bidderID, amount, maxAmount, now)
}

// acceptFirstBid handles a bid on a lot with no winner yet.
func (a *AuctionedItem) acceptFirstBid(ctx context.Context, bidderID string, amount, maxAmount int64, now time.Time) error {
	if amount < a.MinimumBid {
		return fmt.Errorf("auction %d: %w - bid %d below minimum %d", a.ID, auctionerrors.ErrInvalidBid, amount, a.MinimumBid)
	}

	info := a.env.Market.ComputeTaxInfo(ctx, bidderID)
	bid := NewBid(a.ID, bidderID, amount, maxAmount, info.BuyTaxPct, now)
	if err := a.env.Wallet.ReserveFunds(ctx, bidderID, bid.MaximumAmount, bid.ReservedAmount-bid.MaximumAmount); err != nil {
		return fmt.Errorf("auction %d: reserve first bid: %w", a.ID, err)
	}

	a.Winning = bid
	if err := a.persist(ctx); err != nil {
		return err
	}
	a.env.Notifier.Whisper(bidderID, fmt.Sprintf("You are the highest bidder at %d.", amount))
	return nil
}

// raiseOwnCeiling handles the current winner re-bidding: only a maximum-amount
// update is permitted.
func (a *AuctionedItem) raiseOwnCeiling(ctx context.Context, amount, maxAmount int64, now time.Time) error {
	if amount > a.Winning.CurrentAmount {
		return fmt.Errorf("auction %d: %w - you cannot outbid yourself", a.ID, auctionerrors.ErrInvalidBid)
	}
	if err := a.Winning.UpdateMaximumAmount(ctx, a.env.Wallet, maxAmount, now); err != nil {
		return err
	}
	return a.persist(ctx)
}

// challenge handles a bid from someone other than the current winner. The
// challenger's escrow is reserved before the contest is decided, closing the
// window where an unrelated concurrent spend could drain the balance between
// decision and reservation. The loser's reservation is released in full.
func (a *AuctionedItem) challenge(ctx context.Context, bidderID string, amount, maxAmount int64, now time.Time) error {
	minNewBid := a.Winning.CurrentAmount + a.MinimumIncrement
	if amount < minNewBid {
		if maxAmount < minNewBid {
			return fmt.Errorf("auction %d: %w - bid must be at least %d", a.ID, auctionerrors.ErrInvalidBid, minNewBid)
		}
		amount = minNewBid
	}

	info := a.env.Market.ComputeTaxInfo(ctx, bidderID)
	challenger := NewBid(a.ID, bidderID, amount, maxAmount, info.BuyTaxPct, now)
	if err := a.env.Wallet.ReserveFunds(ctx, bidderID, challenger.MaximumAmount, challenger.ReservedAmount-challenger.MaximumAmount); err != nil {
		return fmt.Errorf("auction %d: reserve challenger bid: %w", a.ID, err)
	}

	incumbent := a.Winning
	challengerWins, price := ResolveContest(incumbent.MaximumAmount, challenger.MaximumAmount, amount, a.MinimumIncrement)

	if challengerWins {
		a.env.Wallet.ReleaseFunds(ctx, incumbent.BidderID, incumbent.ReservedAmount)
		challenger.CurrentAmount = price
		a.Winning = challenger
		if err := a.persist(ctx); err != nil {
			return err
		}
		a.env.Notifier.Whisper(incumbent.BidderID, fmt.Sprintf("You have been outbid on auction %d. The price is now %d and your escrow was returned.", a.ID, price))
		a.env.Notifier.Whisper(challenger.BidderID, fmt.Sprintf("You are the highest bidder at %d.", price))
		return nil
	}

	a.env.Wallet.ReleaseFunds(ctx, challenger.BidderID, challenger.ReservedAmount)
	changed, err := incumbent.UpdateCurrentAmount(price, now)
	if err != nil {
		return err
	}
	if changed {
		if err := a.persist(ctx); err != nil {
			return err
		}
		a.env.Notifier.Whisper(incumbent.BidderID, fmt.Sprintf("Your proxy bid defended auction %d. The price is now %d.", a.ID, price))
	}
	a.env.Notifier.Whisper(bidderID, fmt.Sprintf("Your bid of %d was beaten by the current winner's maximum. The price is now %d.", amount, price))
	return nil
}

// ResolveContest decides a bidding war between the incumbent winner and a
// challenger. Deterministic: the visible price only ever rises to the minimum
// necessary to beat the second-highest ceiling by one increment. A challenger
// whose starting bid cannot be beaten by the incumbent's ceiling plus one
// increment wins outright at that starting bid.
func ResolveContest(incumbentMax, challengerMax, challengerStart, minIncrement int64) (challengerWins bool, price int64) {
	if incumbentMax < challengerStart+minIncrement {
		return true, challengerStart
	}
	if incumbentMax >= challengerMax {
		return false, min(incumbentMax, challengerMax+minIncrement)
	}
	return true, min(challengerMax, incumbentMax+minIncrement)
}

// CheckState advances the lot's phase if a transition condition is met.
// Idempotent: when nothing fires it performs no field writes and no
// persistence I/O. Returns whether anything externally visible changed.
func (a *AuctionedItem) CheckState(ctx context.Context, now time.Time) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.EndTime != nil {
		// Terminal transitions (claimed, expired) are derived from time and
		// the retrieved flag; nothing to write here.
		return false, nil
	}

	changed := false
	if a.CountdownStartTime == nil && !now.Before(a.expectedCountdownStart()) {
		cs := a.expectedCountdownStart()
		a.CountdownStartTime = &cs
		changed = true
	}

	if a.CountdownStartTime != nil {
		end := a.effectiveEndTime()
		if !now.Before(end) {
			if err := a.end(ctx, end); err != nil {
				return true, err
			}
			return true, nil
		}
	}

	if changed {
		if err := a.persist(ctx); err != nil {
			return true, err
		}
	}
	return changed, nil
}

// end settles the auction: freezes the end time, transfers funds, notifies
// the parties. Runs exactly once per lot, under the lot's lock.
func (a *AuctionedItem) end(ctx context.Context, endTime time.Time) error {
	a.EndTime = &endTime

	if a.Winning == nil {
		if a.SystemAuction {
			// NPC lot that drew no bids: the catalog instance is destroyed
			// immediately, no claim possible.
			a.env.Inventory.DestroyCraftedItem(ctx, a.instanceKey())
			a.ItemRetrieved = true
			return a.persist(ctx)
		}
		info := a.env.Market.ComputeTaxInfo(ctx, a.AuthorID)
		tax := TaxOn(a.MinimumBid, info.ListingTaxPct) + TaxOn(a.MinimumBid, info.SellTaxPct)
		a.env.Notifier.Whisper(a.AuthorID, fmt.Sprintf("Your auction %d ended with no bids. Reclaiming the item costs %d in tax.", a.ID, tax))
		return a.persist(ctx)
	}

	salePrice := a.Winning.CurrentAmount
	buyerTax := TaxOn(salePrice, a.Winning.TaxRate)
	finalCost := salePrice + buyerTax
	if leftover := a.Winning.ReservedAmount - finalCost; leftover > 0 {
		a.env.Wallet.ReleaseFunds(ctx, a.Winning.BidderID, leftover)
	}

	if !a.SystemAuction {
		// Seller tax uses the seller's current rate, unlike the buyer's
		// snapshotted one.
		info := a.env.Market.ComputeTaxInfo(ctx, a.AuthorID)
		sellerTax := TaxOn(salePrice, info.SellTaxPct)
		a.env.Wallet.Deposit(ctx, a.AuthorID, salePrice-sellerTax)
		a.env.Market.AwardPoints(ctx, a.AuthorID, 1)
		a.env.Notifier.Whisper(a.AuthorID, fmt.Sprintf("Your auction %d sold for %d. You received %d after tax.", a.ID, salePrice, salePrice-sellerTax))
	}
	a.env.Notifier.Whisper(a.Winning.BidderID, fmt.Sprintf("You won auction %d at %d. Claim the item before it expires.", a.ID, salePrice))

	return a.persist(ctx)
}

// Claim hands the lot's item to the eligible party: the winning bidder when
// one exists, otherwise the author reclaiming an unsold lot against a
// retrieval tax on the minimum bid.
func (a *AuctionedItem) Claim(ctx context.Context, userID string, now time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.EndTime == nil {
		return fmt.Errorf("auction %d: %w - auction is still running", a.ID, auctionerrors.ErrInvalidBid)
	}
	if a.ItemRetrieved {
		return fmt.Errorf("auction %d: %w", a.ID, auctionerrors.ErrAlreadyClaimed)
	}
	if now.After(a.claimDeadline()) {
		return fmt.Errorf("auction %d: %w - the claim window has closed", a.ID, auctionerrors.ErrAuctionExpired)
	}

	var retrievalTax int64
	if a.Winning != nil {
		if userID != a.Winning.BidderID {
			return fmt.Errorf("auction %d: %w - only the winning bidder may claim", a.ID, auctionerrors.ErrInvalidBid)
		}
	} else {
		if userID != a.AuthorID {
			return fmt.Errorf("auction %d: %w - only the author may reclaim an unsold lot", a.ID, auctionerrors.ErrInvalidBid)
		}
		info := a.env.Market.ComputeTaxInfo(ctx, userID)
		retrievalTax = TaxOn(a.MinimumBid, info.ListingTaxPct) + TaxOn(a.MinimumBid, info.SellTaxPct)
	}

	ok, ringID, _ := a.env.Inventory.HasRoom(ctx, userID, a.ItemID, a.Quantity)
	if !ok {
		return fmt.Errorf("auction %d: %w - no room in inventory", a.ID, auctionerrors.ErrInvalidBid)
	}

	if retrievalTax > 0 {
		if err := a.env.Wallet.Deduct(ctx, userID, retrievalTax); err != nil {
			return fmt.Errorf("auction %d: retrieval tax: %w", a.ID, err)
		}
	}

	// Perishables carry whatever lifespan is left, counted from the auction
	// end; a very late claim yields a zero or already-expired timer, granted
	// as-is.
	var lifespanSecs int64
	if a.RemainingLifespan > 0 {
		lifespanSecs = int64((a.RemainingLifespan - now.Sub(*a.EndTime)) / time.Second)
	}

	if err := a.env.Inventory.AddToInventory(ctx, userID, ringID, a.ItemID, a.Quantity, lifespanSecs); err != nil {
		if retrievalTax > 0 {
			a.env.Wallet.Deposit(ctx, userID, retrievalTax)
		}
		return fmt.Errorf("auction %d: add to inventory: %w", a.ID, err)
	}

	a.ItemRetrieved = true
	if err := a.persist(ctx); err != nil {
		return err
	}
	a.env.Notifier.Whisper(userID, fmt.Sprintf("You received %dx %s from auction %d.", a.Quantity, a.ItemID, a.ID))
	return nil
}

// instanceKey names the catalog instance to destroy for a unique item.
func (a *AuctionedItem) instanceKey() string {
	if a.UniqueID != "" {
		return a.UniqueID
	}
	return a.ItemID
}

// ReservedFor returns the escrow the given player has locked on this lot:
// their winning reservation while the auction is still live, zero otherwise.
func (a *AuctionedItem) ReservedFor(playerID string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.EndTime == nil && a.Winning != nil && a.Winning.BidderID == playerID {
		return a.Winning.ReservedAmount
	}
	return 0
}

// Snapshot is a consistent read-only view of a lot for display.
type Snapshot struct {
	ID               int64      `json:"id"`
	MsgID            string     `json:"msg_id"`
	AuthorID         string     `json:"author_id"`
	SystemAuction    bool       `json:"system_auction"`
	ItemID           string     `json:"item_id"`
	Quantity         int        `json:"quantity"`
	MinimumBid       int64      `json:"minimum_bid"`
	MinimumIncrement int64      `json:"minimum_increment"`
	Phase            string     `json:"phase"`
	StartTime        time.Time  `json:"start_time"`
	ExpectedEndTime  time.Time  `json:"expected_end_time"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	CurrentAmount    *int64     `json:"current_amount,omitempty"`
	WinningBidderID  *string    `json:"winning_bidder_id,omitempty"`
}

// SnapshotAt captures the lot's visible state at the given instant.
func (a *AuctionedItem) SnapshotAt(now time.Time) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		ID:               a.ID,
		MsgID:            a.MsgID,
		AuthorID:         a.AuthorID,
		SystemAuction:    a.SystemAuction,
		ItemID:           a.ItemID,
		Quantity:         a.Quantity,
		MinimumBid:       a.MinimumBid,
		MinimumIncrement: a.MinimumIncrement,
		Phase:            a.phaseAt(now).String(),
		StartTime:        a.StartTime,
		ExpectedEndTime:  a.effectiveEndTime(),
		EndTime:          a.EndTime,
	}
	if a.EndTime != nil {
		s.ExpectedEndTime = *a.EndTime
	}
	if a.Winning != nil {
		s.CurrentAmount = &a.Winning.CurrentAmount
		s.WinningBidderID = &a.Winning.BidderID
	}
	return s
}
