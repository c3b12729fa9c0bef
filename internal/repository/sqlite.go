package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"auction-house/internal/models"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteAuctionRepo implements AuctionDB using SQLite.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteAuctionRepo struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteAuctionRepo creates a new SQLite auction repository.
// dbPath is the path to the SQLite database file (e.g., "./data/auctions.db")
func NewSQLiteAuctionRepo(dbPath string) (*SQLiteAuctionRepo, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteAuctionRepo{db: db}, nil
}

// createTables creates the auctions table.
func createTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS auctioned_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		msg_id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		system_auction INTEGER NOT NULL DEFAULT 0,
		item_id TEXT NOT NULL,
		unique_id TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL,
		minimum_bid INTEGER NOT NULL,
		minimum_increment INTEGER NOT NULL,
		start_time INTEGER NOT NULL,
		duration INTEGER NOT NULL,
		item_remaining_lifespan_seconds INTEGER NOT NULL DEFAULT 0,
		countdown_start_time INTEGER,
		end_time INTEGER,
		item_retrieved INTEGER NOT NULL DEFAULT 0,
		winning_user_id TEXT,
		winning_current_amount INTEGER,
		winning_maximum_amount INTEGER,
		winning_reserved_amount INTEGER,
		winning_tax_rate REAL,
		winning_bid_time INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_item_retrieved ON auctioned_items(item_retrieved);
	CREATE INDEX IF NOT EXISTS idx_msg_id ON auctioned_items(msg_id);
	`
	_, err := db.Exec(query)
	return err
}

// InsertAuction persists a new lot and returns its assigned id.
func (r *SQLiteAuctionRepo) InsertAuction(ctx context.Context, row models.AuctionRow) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO auctioned_items (
			msg_id, user_id, system_auction, item_id, unique_id, quantity,
			minimum_bid, minimum_increment, start_time, duration,
			item_remaining_lifespan_seconds, countdown_start_time, end_time,
			item_retrieved, winning_user_id, winning_current_amount,
			winning_maximum_amount, winning_reserved_amount, winning_tax_rate,
			winning_bid_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		row.MsgID, row.UserID, boolToInt(row.SystemAuction), row.ItemID,
		row.UniqueID, row.Quantity, row.MinimumBid, row.MinimumIncrement,
		row.StartTime.Unix(), int64(row.Duration/time.Second),
		row.ItemRemainingLifespanSeconds, unixOrNil(row.CountdownStartTime),
		unixOrNil(row.EndTime), boolToInt(row.ItemRetrieved),
		row.WinningUserID, row.WinningCurrentAmount, row.WinningMaximumAmount,
		row.WinningReservedAmount, row.WinningTaxRate, unixOrNil(row.WinningBidTime))
	if err != nil {
		return 0, fmt.Errorf("failed to insert auction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted auction id: %w", err)
	}
	return id, nil
}

// UpdateAuction writes through the full row for an existing lot.
func (r *SQLiteAuctionRepo) UpdateAuction(ctx context.Context, row models.AuctionRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE auctioned_items SET
			msg_id = ?, user_id = ?, system_auction = ?, item_id = ?,
			unique_id = ?, quantity = ?, minimum_bid = ?, minimum_increment = ?,
			start_time = ?, duration = ?, item_remaining_lifespan_seconds = ?,
			countdown_start_time = ?, end_time = ?, item_retrieved = ?,
			winning_user_id = ?, winning_current_amount = ?,
			winning_maximum_amount = ?, winning_reserved_amount = ?,
			winning_tax_rate = ?, winning_bid_time = ?
		WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query,
		row.MsgID, row.UserID, boolToInt(row.SystemAuction), row.ItemID,
		row.UniqueID, row.Quantity, row.MinimumBid, row.MinimumIncrement,
		row.StartTime.Unix(), int64(row.Duration/time.Second),
		row.ItemRemainingLifespanSeconds, unixOrNil(row.CountdownStartTime),
		unixOrNil(row.EndTime), boolToInt(row.ItemRetrieved),
		row.WinningUserID, row.WinningCurrentAmount, row.WinningMaximumAmount,
		row.WinningReservedAmount, row.WinningTaxRate, unixOrNil(row.WinningBidTime),
		row.ID)
	if err != nil {
		return fmt.Errorf("failed to update auction %d: %w", row.ID, err)
	}
	return nil
}

// LoadOpenAuctions returns all rows whose item has not been retrieved.
func (r *SQLiteAuctionRepo) LoadOpenAuctions(ctx context.Context) ([]models.AuctionRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, msg_id, user_id, system_auction, item_id, unique_id,
			quantity, minimum_bid, minimum_increment, start_time, duration,
			item_remaining_lifespan_seconds, countdown_start_time, end_time,
			item_retrieved, winning_user_id, winning_current_amount,
			winning_maximum_amount, winning_reserved_amount, winning_tax_rate,
			winning_bid_time
		FROM auctioned_items WHERE item_retrieved = 0`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load open auctions: %w", err)
	}
	defer rows.Close()

	var out []models.AuctionRow
	for rows.Next() {
		var (
			row                             models.AuctionRow
			systemAuction, itemRetrieved    int
			startUnix, durationSecs         int64
			countdownUnix, endUnix, bidUnix sql.NullInt64
			winUserID                       sql.NullString
			winCurrent, winMax, winReserved sql.NullInt64
			winTaxRate                      sql.NullFloat64
		)

		err := rows.Scan(&row.ID, &row.MsgID, &row.UserID, &systemAuction,
			&row.ItemID, &row.UniqueID, &row.Quantity, &row.MinimumBid,
			&row.MinimumIncrement, &startUnix, &durationSecs,
			&row.ItemRemainingLifespanSeconds, &countdownUnix, &endUnix,
			&itemRetrieved, &winUserID, &winCurrent, &winMax, &winReserved,
			&winTaxRate, &bidUnix)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction row: %w", err)
		}

		row.SystemAuction = systemAuction != 0
		row.ItemRetrieved = itemRetrieved != 0
		row.StartTime = time.Unix(startUnix, 0).UTC()
		row.Duration = time.Duration(durationSecs) * time.Second
		row.CountdownStartTime = timeOrNil(countdownUnix)
		row.EndTime = timeOrNil(endUnix)
		row.WinningBidTime = timeOrNil(bidUnix)
		if winUserID.Valid {
			row.WinningUserID = &winUserID.String
			row.WinningCurrentAmount = &winCurrent.Int64
			row.WinningMaximumAmount = &winMax.Int64
			row.WinningReservedAmount = &winReserved.Int64
			row.WinningTaxRate = &winTaxRate.Float64
		}

		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auction rows: %w", err)
	}
	return out, nil
}

// Close closes the database connection.
func (r *SQLiteAuctionRepo) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timeOrNil(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

// Ensure SQLiteAuctionRepo implements AuctionDB
var _ AuctionDB = (*SQLiteAuctionRepo)(nil)
