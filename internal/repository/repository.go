package repository

import (
	"context"
	"fmt"
	"sync"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
)

// AuctionDB defines the durable storage interface for auction lots.
// The engine writes through on every mutation and reads the full open set
// exactly once, at startup.
type AuctionDB interface {
	InsertAuction(ctx context.Context, row models.AuctionRow) (int64, error)
	UpdateAuction(ctx context.Context, row models.AuctionRow) error
	LoadOpenAuctions(ctx context.Context) ([]models.AuctionRow, error)
	Close() error
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB,
// used in tests and as a fallback when no database path is configured.
type MemoryRepo struct {
	mu      sync.RWMutex
	nextID  int64
	rows    map[int64]models.AuctionRow // key: auction id
	updates int
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		nextID: 1,
		rows:   make(map[int64]models.AuctionRow),
	}
}

// InsertAuction stores a new lot and assigns its id
func (r *MemoryRepo) InsertAuction(_ context.Context, row models.AuctionRow) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row.ID = r.nextID
	r.nextID++
	r.rows[row.ID] = row
	return row.ID, nil
}

// UpdateAuction overwrites the stored row for an existing lot
func (r *MemoryRepo) UpdateAuction(_ context.Context, row models.AuctionRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[row.ID]; !ok {
		return fmt.Errorf("update auction %d: %w", row.ID, auctionerrors.ErrAuctionNotFound)
	}
	r.rows[row.ID] = row
	r.updates++
	return nil
}

// LoadOpenAuctions returns all rows whose item has not been retrieved
func (r *MemoryRepo) LoadOpenAuctions(_ context.Context) ([]models.AuctionRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]models.AuctionRow, 0, len(r.rows))
	for _, row := range r.rows {
		if !row.ItemRetrieved {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// Close is a no-op for the in-memory repository
func (r *MemoryRepo) Close() error { return nil }

// Row returns the stored row for an auction id. Intended for tests.
func (r *MemoryRepo) Row(id int64) (models.AuctionRow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	return row, ok
}

// UpdateCount returns how many updates have been applied. Intended for tests
// asserting that an operation performed no persistence I/O.
func (r *MemoryRepo) UpdateCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updates
}

// Ensure MemoryRepo implements AuctionDB
var _ AuctionDB = (*MemoryRepo)(nil)
