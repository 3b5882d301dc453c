package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"quantcore/internal/api"
	"quantcore/internal/engine"
	"quantcore/internal/events"
	"quantcore/internal/market"
	"quantcore/internal/risk"
	"quantcore/pkg/config"
	"quantcore/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Debug)
	defer logger.Sync()

	strategies, err := config.LoadStrategies(cfg.StrategiesPath)
	if err != nil {
		logger.Fatal("load strategies", zap.Error(err))
	}

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer store.Close()

	bus := events.NewBus()
	riskMgr := risk.NewManager(strategies.Risk, logger)
	provider := newProvider(cfg, logger)

	// The strategies file wins over the WATCHLIST env default.
	watchlist := strategies.Watchlist
	if len(watchlist) == 0 {
		watchlist = cfg.Watchlist
	}

	server := api.NewServer(
		bus,
		store,
		riskMgr,
		provider,
		engine.Settings{
			Watchlist:    watchlist,
			Strategy:     strategies.DefaultConfig(),
			Interval:     cfg.CycleInterval,
			ErrorBackoff: cfg.ErrorBackoff,
			LookbackDays: cfg.LookbackDays,
			InitialCash:  cfg.InitialCash,
		},
		logger,
		api.Options{RateLimitRPS: cfg.RateLimitRPS},
	)

	go func() {
		logger.Info("api listening", zap.String("port", cfg.Port))
		if err := server.Start(":" + cfg.Port); err != nil {
			logger.Fatal("api server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	server.StopSession()
}

func newLogger(debug bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func newProvider(cfg *config.Config, logger *zap.Logger) market.Provider {
	if cfg.UseMockData {
		logger.Info("using mock market data")
		return &market.MockProvider{}
	}
	return market.NewClient(cfg.DataBaseURL, cfg.DataAPIKey, cfg.RateLimitRPS, logger)
}
