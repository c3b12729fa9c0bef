package auctionhouse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auction-house/internal/auction"
	"auction-house/internal/auctionerrors"
	"auction-house/internal/external"
	"auction-house/utils"
)

// AuctionHouse is the process-wide registry of all non-finalized lots,
// indexed by auction id and by external message handle. It is constructed
// explicitly with its collaborators and populated once, at startup, from
// durable storage.
type AuctionHouse struct {
	env       *auction.Env
	presenter external.Presenter

	// mu guards the index maps only; it is never held across a lot
	// operation, so bids on different lots proceed fully in parallel.
	mu        sync.Mutex
	byID      map[int64]*auction.AuctionedItem
	byMsgID   map[string]*auction.AuctionedItem
	active    map[int64]*auction.AuctionedItem
	countdown map[int64]*auction.AuctionedItem
}

// New creates an empty auction house.
func New(env *auction.Env, presenter external.Presenter) *AuctionHouse {
	return &AuctionHouse{
		env:       env,
		presenter: presenter,
		byID:      make(map[int64]*auction.AuctionedItem),
		byMsgID:   make(map[string]*auction.AuctionedItem),
		active:    make(map[int64]*auction.AuctionedItem),
		countdown: make(map[int64]*auction.AuctionedItem),
	}
}

// Load populates the registry from all non-retrieved rows. Lots that ended in
// a previous run are kept claimable but excluded from the sweep sets.
func (h *AuctionHouse) Load(ctx context.Context) error {
	rows, err := h.env.DB.LoadOpenAuctions(ctx)
	if err != nil {
		return fmt.Errorf("auction house: load: %w", err)
	}

	now := time.Now().UTC()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, row := range rows {
		item := auction.FromRow(h.env, row)
		h.byID[item.ID] = item
		h.byMsgID[item.MsgID] = item
		switch item.PhaseAt(now) {
		case auction.PhaseActiveMain:
			h.active[item.ID] = item
		case auction.PhaseActiveCountdown:
			h.active[item.ID] = item
			h.countdown[item.ID] = item
		}
	}

	utils.Info("auction house loaded", map[string]any{
		"lots":   len(h.byID),
		"active": len(h.active),
	})
	return nil
}

// CreateAuction builds a new lot, persists it and registers it.
func (h *AuctionHouse) CreateAuction(ctx context.Context, p auction.ListingParams) (*auction.AuctionedItem, error) {
	if p.Quantity <= 0 || p.MinimumBid <= 0 || p.MinimumIncrement <= 0 || p.Duration <= 0 {
		return nil, fmt.Errorf("auction house: %w - quantity, minimum bid, increment and duration must be positive", auctionerrors.ErrInvalidBid)
	}
	if p.MsgID == "" {
		p.MsgID = utils.GenerateMsgID()
	}

	if !p.SystemAuction {
		info := h.env.Market.ComputeTaxInfo(ctx, p.AuthorID)
		if info.ItemLimit > 0 && h.activeListings(p.AuthorID) >= info.ItemLimit {
			return nil, fmt.Errorf("auction house: %w - at most %d concurrent listings for tier %s", auctionerrors.ErrListingLimit, info.ItemLimit, info.Tier)
		}
	}

	item := auction.NewAuctionedItem(h.env, p, time.Now().UTC())
	id, err := h.env.DB.InsertAuction(ctx, item.Row())
	if err != nil {
		return nil, fmt.Errorf("auction house: create auction: %w", err)
	}
	item.ID = id

	h.mu.Lock()
	h.byID[id] = item
	h.byMsgID[item.MsgID] = item
	h.active[id] = item
	h.mu.Unlock()

	utils.Info("auction created", map[string]any{
		"auction_id": id,
		"author_id":  p.AuthorID,
		"item_id":    p.ItemID,
	})
	h.presenter.Refresh(item.MsgID)
	return item, nil
}

// activeListings counts the author's live non-system lots.
func (h *AuctionHouse) activeListings(authorID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, item := range h.active {
		if item.AuthorID == authorID && !item.SystemAuction {
			n++
		}
	}
	return n
}

// Lot looks up a lot by its external message handle.
func (h *AuctionHouse) Lot(msgID string) (*auction.AuctionedItem, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	item, ok := h.byMsgID[msgID]
	return item, ok
}

// Bid places a bid on the lot behind the given handle.
func (h *AuctionHouse) Bid(ctx context.Context, msgID, bidderID string, amount, maxAmount int64) error {
	item, ok := h.Lot(msgID)
	if !ok {
		return fmt.Errorf("auction house: %w - no auction for handle %s", auctionerrors.ErrAuctionNotFound, msgID)
	}

	if err := item.Bid(ctx, bidderID, amount, maxAmount); err != nil {
		utils.Warn("bid rejected", map[string]any{
			"auction_id": item.ID,
			"bidder_id":  bidderID,
			"error":      err.Error(),
		})
		return err
	}
	h.presenter.Refresh(msgID)
	return nil
}

// Claim hands the lot's item to the eligible party and, on success, drops the
// finalized lot from the in-memory indices. The durable row persists for
// audit history.
func (h *AuctionHouse) Claim(ctx context.Context, msgID, userID string) error {
	item, ok := h.Lot(msgID)
	if !ok {
		return fmt.Errorf("auction house: %w - no auction for handle %s", auctionerrors.ErrAuctionNotFound, msgID)
	}

	if err := item.Claim(ctx, userID, time.Now().UTC()); err != nil {
		return err
	}
	h.remove(item)
	utils.Info("auction claimed", map[string]any{
		"auction_id": item.ID,
		"user_id":    userID,
	})
	h.presenter.Refresh(msgID)
	return nil
}

// EscrowOf sums the reservations the player currently holds across all live
// lots they are winning. Used by external net-worth displays.
func (h *AuctionHouse) EscrowOf(playerID string) int64 {
	h.mu.Lock()
	items := make([]*auction.AuctionedItem, 0, len(h.byID))
	for _, item := range h.byID {
		items = append(items, item)
	}
	h.mu.Unlock()

	var total int64
	for _, item := range items {
		total += item.ReservedFor(playerID)
	}
	return total
}

// SweepActive drives phase transitions across all active lots. It iterates a
// snapshot copy of the set so concurrent insertion and removal are tolerated
// without holding the registry lock across lot operations; a lot added
// mid-sweep is picked up next cycle.
func (h *AuctionHouse) SweepActive(ctx context.Context, now time.Time) {
	h.sweep(ctx, now, h.snapshot(h.active))
}

// SweepCountdown drives only the lots currently in their anti-snipe
// countdown, on a much faster cadence than the full sweep.
func (h *AuctionHouse) SweepCountdown(ctx context.Context, now time.Time) {
	h.sweep(ctx, now, h.snapshot(h.countdown))
}

func (h *AuctionHouse) snapshot(set map[int64]*auction.AuctionedItem) []*auction.AuctionedItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	items := make([]*auction.AuctionedItem, 0, len(set))
	for _, item := range set {
		items = append(items, item)
	}
	return items
}

func (h *AuctionHouse) sweep(ctx context.Context, now time.Time, items []*auction.AuctionedItem) {
	for _, item := range items {
		changed, err := item.CheckState(ctx, now)
		if err != nil {
			utils.Error("sweep: state check failed", map[string]any{
				"auction_id": item.ID,
				"error":      err.Error(),
			})
			continue
		}

		switch item.PhaseAt(now) {
		case auction.PhaseActiveCountdown:
			h.mu.Lock()
			h.countdown[item.ID] = item
			h.mu.Unlock()
		case auction.PhaseEndedUnclaimed:
			h.mu.Lock()
			delete(h.countdown, item.ID)
			h.mu.Unlock()
		case auction.PhaseCompleted, auction.PhaseExpired:
			h.remove(item)
		}

		if changed {
			h.presenter.Refresh(item.MsgID)
		}
	}
}

// remove drops a terminal lot from every index.
func (h *AuctionHouse) remove(item *auction.AuctionedItem) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byID, item.ID)
	delete(h.byMsgID, item.MsgID)
	delete(h.active, item.ID)
	delete(h.countdown, item.ID)
}
