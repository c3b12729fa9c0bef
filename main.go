package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"auction-house/internal/auction"
	"auction-house/internal/auctionhouse"
	"auction-house/internal/config"
	"auction-house/internal/external"
	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/internal/server"
	"auction-house/utils"
)

func main() {
	cfg := config.MustLoad()

	// Durable auction store
	var repo repository.AuctionDB
	if cfg.DB.Path != "" {
		sqliteRepo, err := repository.NewSQLiteAuctionRepo(cfg.DB.Path)
		if err != nil {
			utils.Fatal("failed to open auction store", map[string]any{"path": cfg.DB.Path, "error": err.Error()})
		}
		repo = sqliteRepo
		utils.Info("SQLite auction store initialized", map[string]any{"path": cfg.DB.Path})
	} else {
		repo = repository.NewMemoryRepo()
		utils.Warn("no database path configured, auctions will not survive restarts", nil)
	}
	defer repo.Close()

	// External collaborators. In a full deployment these adapt the real
	// wallet, market and chat services; the local implementations keep the
	// engine self-contained.
	wallet := external.NewLocalWallet()
	market := external.NewFlatMarketTier(models.TaxInfo{
		ListingTaxPct: cfg.Market.ListingTaxPct,
		SellTaxPct:    cfg.Market.SellTaxPct,
		BuyTaxPct:     cfg.Market.BuyTaxPct,
		ItemLimit:     cfg.Market.ItemLimit,
	})

	env := &auction.Env{
		DB:              repo,
		Wallet:          wallet,
		Market:          market,
		Notifier:        external.LogNotifier{},
		Inventory:       external.NewMemoryInventory(),
		CountdownWindow: cfg.Auction.CountdownWindow,
		MaxClaimWindow:  cfg.Auction.MaxClaimWindow,
	}

	house := auctionhouse.New(env, external.LogPresenter{})
	if err := house.Load(context.Background()); err != nil {
		utils.Fatal("failed to load auctions", map[string]any{"error": err.Error()})
	}

	scheduler := auctionhouse.NewSweepScheduler(house, auctionhouse.SweepConfig{
		SlowInterval: cfg.Auction.SlowSweepInterval,
		FastInterval: cfg.Auction.FastSweepInterval,
	})
	scheduler.Start()
	defer scheduler.Stop()

	router := server.SetupRouter(house)
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		utils.Info("auction house listening", map[string]any{"addr": cfg.Server.Address()})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Fatal("server error", map[string]any{"error": err.Error()})
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Info("shutting down", nil)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Error("server shutdown error", map[string]any{"error": err.Error()})
	}
}
