package auctionhouse

import (
	"context"
	"sync"
	"time"

	"auction-house/utils"
)

// SweepConfig holds the tick cadence of the two sweep drivers.
type SweepConfig struct {
	// SlowInterval is how often every active lot is checked.
	SlowInterval time.Duration
	// FastInterval is how often lots already in their anti-snipe countdown
	// are checked, so an auction closes promptly after its deadline.
	FastInterval time.Duration
}

// DefaultSweepConfig returns the default tick cadence.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		SlowInterval: 50 * time.Second,
		FastInterval: 3 * time.Second,
	}
}

// SweepScheduler runs the periodic phase sweeps over an auction house.
type SweepScheduler struct {
	house     *AuctionHouse
	config    SweepConfig
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewSweepScheduler creates a scheduler for the given house.
func NewSweepScheduler(house *AuctionHouse, config SweepConfig) *SweepScheduler {
	if config.SlowInterval == 0 {
		config.SlowInterval = 50 * time.Second
	}
	if config.FastInterval == 0 {
		config.FastInterval = 3 * time.Second
	}
	return &SweepScheduler{
		house:  house,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start begins both sweep loops.
func (s *SweepScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	utils.Info("sweep scheduler started", map[string]any{
		"slow_interval": s.config.SlowInterval.String(),
		"fast_interval": s.config.FastInterval.String(),
	})
	go s.run()
}

// run is the main sweep loop.
func (s *SweepScheduler) run() {
	slow := time.NewTicker(s.config.SlowInterval)
	fast := time.NewTicker(s.config.FastInterval)
	defer slow.Stop()
	defer fast.Stop()

	for {
		select {
		case <-slow.C:
			s.house.SweepActive(context.Background(), time.Now().UTC())
		case <-fast.C:
			s.house.SweepCountdown(context.Background(), time.Now().UTC())
		case <-s.stopCh:
			utils.Info("sweep scheduler stopped", nil)
			return
		}
	}
}

// Stop stops both sweep loops.
func (s *SweepScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		close(s.stopCh)
		s.isRunning = false
	})
}
