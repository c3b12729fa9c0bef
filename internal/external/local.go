package external

import (
	"context"
	"fmt"
	"sync"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/utils"
)

// LocalWallet is an in-memory Wallet keeping one balance per player. Every
// operation is atomic under the wallet's own lock, which is the contract the
// auction engine relies on.
type LocalWallet struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewLocalWallet creates an empty wallet ledger.
func NewLocalWallet() *LocalWallet {
	return &LocalWallet{balances: make(map[string]int64)}
}

// SetBalance overwrites a player's balance. Intended for seeding and tests.
func (w *LocalWallet) SetBalance(playerID string, amount int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[playerID] = amount
}

// Balance returns a player's current free balance.
func (w *LocalWallet) Balance(playerID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[playerID]
}

// ReserveFunds withholds amount+tax from the player's balance.
func (w *LocalWallet) ReserveFunds(_ context.Context, playerID string, amount, tax int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := amount + tax
	if w.balances[playerID] < total {
		return fmt.Errorf("wallet: reserve %d for %s: %w", total, playerID, auctionerrors.ErrInsufficientFunds)
	}
	w.balances[playerID] -= total
	return nil
}

// ReleaseFunds returns previously reserved funds. Always succeeds.
func (w *LocalWallet) ReleaseFunds(_ context.Context, playerID string, amount int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[playerID] += amount
}

// Deposit credits the player's balance.
func (w *LocalWallet) Deposit(_ context.Context, playerID string, amount int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[playerID] += amount
}

// Deduct debits the player's balance outside of any reservation.
func (w *LocalWallet) Deduct(_ context.Context, playerID string, amount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balances[playerID] < amount {
		return fmt.Errorf("wallet: deduct %d from %s: %w", amount, playerID, auctionerrors.ErrInsufficientFunds)
	}
	w.balances[playerID] -= amount
	return nil
}

var _ Wallet = (*LocalWallet)(nil)

// FlatMarketTier applies the same tax rates to every player and tracks
// reputation points in memory.
type FlatMarketTier struct {
	Rates models.TaxInfo

	mu     sync.Mutex
	points map[string]int
}

// NewFlatMarketTier creates a market-tier service with fixed rates.
func NewFlatMarketTier(rates models.TaxInfo) *FlatMarketTier {
	return &FlatMarketTier{Rates: rates, points: make(map[string]int)}
}

// ComputeTaxInfo returns the flat rates plus the player's current standing.
func (m *FlatMarketTier) ComputeTaxInfo(_ context.Context, playerID string) models.TaxInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := m.Rates
	info.Points = m.points[playerID]
	info.Tier = tierFor(info.Points)
	return info
}

// AwardPoints credits market-reputation points.
func (m *FlatMarketTier) AwardPoints(_ context.Context, playerID string, points int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[playerID] += points
}

func tierFor(points int) string {
	switch {
	case points >= 100:
		return "gold"
	case points >= 10:
		return "silver"
	default:
		return "bronze"
	}
}

var _ MarketTier = (*FlatMarketTier)(nil)

// LogNotifier writes whispers to the application log. Stands in for the
// chat-platform delivery channel.
type LogNotifier struct{}

func (LogNotifier) Whisper(playerID, message string) {
	utils.Info("whisper", map[string]any{
		"player_id": playerID,
		"message":   message,
	})
}

var _ Notifier = LogNotifier{}

// MemoryInventory is an in-memory Inventory with unbounded room.
type MemoryInventory struct {
	mu        sync.Mutex
	granted   map[string][]GrantedItem
	destroyed map[string]bool
}

// GrantedItem records one inventory grant.
type GrantedItem struct {
	ItemID          string
	Quantity        int
	LifespanSeconds int64
}

// NewMemoryInventory creates an empty inventory.
func NewMemoryInventory() *MemoryInventory {
	return &MemoryInventory{
		granted:   make(map[string][]GrantedItem),
		destroyed: make(map[string]bool),
	}
}

// HasRoom always has room.
func (i *MemoryInventory) HasRoom(_ context.Context, _, _ string, _ int) (bool, string, bool) {
	return true, "ring-0", false
}

// AddToInventory grants the item to the player.
func (i *MemoryInventory) AddToInventory(_ context.Context, playerID, _, itemID string, quantity int, lifespanSeconds int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.granted[playerID] = append(i.granted[playerID], GrantedItem{
		ItemID:          itemID,
		Quantity:        quantity,
		LifespanSeconds: lifespanSeconds,
	})
	return nil
}

// DestroyCraftedItem marks a unique catalog instance as gone.
func (i *MemoryInventory) DestroyCraftedItem(_ context.Context, uniqueID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed[uniqueID] {
		return false
	}
	i.destroyed[uniqueID] = true
	return true
}

// Granted returns the items handed to a player. Intended for tests.
func (i *MemoryInventory) Granted(playerID string) []GrantedItem {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]GrantedItem(nil), i.granted[playerID]...)
}

// Destroyed reports whether a unique instance was destroyed. Intended for tests.
func (i *MemoryInventory) Destroyed(uniqueID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.destroyed[uniqueID]
}

var _ Inventory = (*MemoryInventory)(nil)

// LogPresenter logs refresh requests. Stands in for the presentation layer's
// message-edit hook.
type LogPresenter struct{}

func (LogPresenter) Refresh(msgID string) {
	utils.Info("presentation refresh", map[string]any{"msg_id": msgID})
}

var _ Presenter = LogPresenter{}
