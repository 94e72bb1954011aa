package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewired-gh/lottosmart/internal/api"
	"github.com/rewired-gh/lottosmart/internal/cache"
	"github.com/rewired-gh/lottosmart/internal/caixa"
	"github.com/rewired-gh/lottosmart/internal/config"
	"github.com/rewired-gh/lottosmart/internal/generator"
	"github.com/rewired-gh/lottosmart/internal/history"
	"github.com/rewired-gh/lottosmart/internal/ledger"
	"github.com/rewired-gh/lottosmart/internal/logger"
	"github.com/rewired-gh/lottosmart/internal/lottery"
	"github.com/rewired-gh/lottosmart/internal/models"
	"github.com/rewired-gh/lottosmart/internal/storage"
	"github.com/rewired-gh/lottosmart/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := models.DefaultCatalog()
	source := caixa.NewClient(cfg.Caixa.BaseURL, cfg.Caixa.Timeout, cfg.Caixa.UserAgent)

	// Assigned only when connected; a typed nil would defeat the nil check in lottery.
	var statsCache lottery.StatsCache
	if cfg.Redis.Enabled {
		c, err := cache.Connect(ctx, cfg.Redis.URL, cfg.Redis.StatsTTL)
		if err != nil {
			logger.Fatal("Failed to initialize statistics cache: %v", err)
		}
		defer c.Close()
		statsCache = c
		logger.Info("Statistics cache enabled (ttl: %v)", cfg.Redis.StatsTTL)
	} else {
		logger.Debug("Statistics cache disabled")
	}

	var telegramClient *telegram.Client
	var notifier ledger.Notifier
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		notifier = telegramClient
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	strategy, err := generator.ParseStrategy(cfg.Generator.DefaultStrategy)
	if err != nil {
		logger.Fatal("Invalid default strategy: %v", err)
	}

	svc := lottery.New(
		catalog,
		source,
		store,
		history.New(source, store, cfg.History.MaxFetch, cfg.History.Workers),
		statsCache,
		generator.NewRandom(),
		lottery.Options{
			StatsWindow:     cfg.History.StatsWindow,
			DefaultLimit:    cfg.History.DefaultLimit,
			MaxLimit:        cfg.History.MaxLimit,
			MaxCount:        cfg.Generator.MaxCount,
			DefaultStrategy: strategy,
		},
	)
	bets := ledger.New(catalog, source, store, notifier)
	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx, bets)
	}

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewRouter(api.NewHandler(svc, bets, store), api.RouterOptions{
			CORSOrigins:    cfg.Server.CORSOrigins,
			RequestTimeout: cfg.Server.RequestTimeout,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if cfg.Checker.Enabled {
		go runChecker(ctx, bets, telegramClient, cfg.Checker.Interval)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, cleaning up...")
	case err := <-serverErr:
		logger.Error("HTTP server failed: %v", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed: %v", err)
	}
	logger.Info("Service stopped")
}

// runChecker runs check-all on every tick until ctx is done. Only the first
// failure of a consecutive run and the recovery after it are notified.
func runChecker(ctx context.Context, bets *ledger.Ledger, telegramClient *telegram.Client, interval time.Duration) {
	logger.Info("Starting bet checker (interval: %v)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Bet check cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			return
		}
		if consecutiveFailures > 0 && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		consecutiveFailures = 0
	}

	handleCycleResult(runCheckCycle(ctx, bets))

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Bet checker stopped")
			return
		case <-ticker.C:
			logger.Debug("Starting scheduled bet check")
			handleCycleResult(runCheckCycle(ctx, bets))
		}
	}
}

// runCheckCycle fails when the store errors or when no pending bet could be checked.
func runCheckCycle(ctx context.Context, bets *ledger.Ledger) error {
	startTime := time.Now()
	summary, err := bets.CheckAll(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to check bets: %w", err)
	}
	if summary.Failed > 0 && summary.Checked == 0 {
		return fmt.Errorf("all %d pending bets failed to check", summary.Failed)
	}
	logger.Info("Bet check cycle completed in %v", time.Since(startTime))
	return nil
}
