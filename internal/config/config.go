package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server  ServerConfig
	Auction AuctionConfig
	Market  MarketConfig
	DB      DBConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AuctionConfig holds the auction engine tuning.
type AuctionConfig struct {
	// CountdownWindow is the length of the anti-snipe phase.
	CountdownWindow time.Duration `envconfig:"AUCTION_COUNTDOWN_WINDOW" default:"10m"`
	// MaxClaimWindow bounds how long an ended lot waits to be claimed.
	MaxClaimWindow time.Duration `envconfig:"AUCTION_MAX_CLAIM_WINDOW" default:"168h"`
	// SlowSweepInterval drives the full sweep over active lots.
	SlowSweepInterval time.Duration `envconfig:"AUCTION_SLOW_SWEEP_INTERVAL" default:"50s"`
	// FastSweepInterval drives the countdown-only sweep.
	FastSweepInterval time.Duration `envconfig:"AUCTION_FAST_SWEEP_INTERVAL" default:"3s"`
}

// MarketConfig holds the flat tax rates of the built-in market-tier service.
type MarketConfig struct {
	ListingTaxPct float64 `envconfig:"MARKET_LISTING_TAX_PCT" default:"2"`
	SellTaxPct    float64 `envconfig:"MARKET_SELL_TAX_PCT" default:"5"`
	BuyTaxPct     float64 `envconfig:"MARKET_BUY_TAX_PCT" default:"5"`
	ItemLimit     int     `envconfig:"MARKET_ITEM_LIMIT" default:"5"`
}

// DBConfig holds the durable store settings.
type DBConfig struct {
	// Path is the SQLite database file; empty selects the in-memory store.
	Path string `envconfig:"AUCTION_DB_PATH" default:"./data/auctions.db"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
