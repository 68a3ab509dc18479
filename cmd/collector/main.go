package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/intraday-data/internal/backfill"
	"github.com/rickgao/intraday-data/internal/barstore"
	"github.com/rickgao/intraday-data/internal/chart"
	"github.com/rickgao/intraday-data/internal/config"
	"github.com/rickgao/intraday-data/internal/database"
	"github.com/rickgao/intraday-data/internal/history"
	"github.com/rickgao/intraday-data/internal/hours"
	"github.com/rickgao/intraday-data/internal/poller"
	"github.com/rickgao/intraday-data/internal/registry"
	"github.com/rickgao/intraday-data/internal/updater"
	"github.com/rickgao/intraday-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/collector.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting collector",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"api_url", cfg.API.BaseURL,
		"store_dir", cfg.Store.Dir,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Bar Store
	store, err := barstore.New(barstore.Config{
		Dir:          cfg.Store.Dir,
		MinDailyRows: cfg.Store.MinDailyRows,
	}, logger)
	if err != nil {
		logger.Error("failed to open bar store", "error", err)
		os.Exit(1)
	}

	// Chart client
	chartClient := chart.NewClient(
		cfg.API.BaseURL,
		cfg.API.AppKey,
		cfg.API.AppSecret,
		cfg.API.Token,
		chart.WithLogger(logger),
		chart.WithTimeout(cfg.API.Timeout),
		chart.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
		chart.WithMarketDiv(cfg.API.MarketDiv),
	)

	// Session hours
	sessions := hours.New(cfg.Market.NXTSymbols)

	// Working-set registry
	reg := registry.New(registry.Config{
		Capacity:    cfg.Registry.Capacity,
		HistorySize: cfg.Registry.HistorySize,
	}, logger)

	// Optional history recorder
	var pool *pgxpool.Pool
	var recorder *history.Recorder
	if cfg.History.Enabled {
		logger.Info("connecting to history database",
			"host", cfg.History.Database.Host,
			"database", cfg.History.Database.Name,
		)
		pool, err = database.Connect(ctx, cfg.History.Database)
		if err != nil {
			logger.Error("failed to connect to history database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		recorder = history.New(history.Config{
			BatchSize:     cfg.History.BatchSize,
			FlushInterval: cfg.History.FlushInterval,
		}, pool, logger)
		if err := recorder.Start(ctx); err != nil {
			logger.Error("failed to start history recorder", "error", err)
			os.Exit(1)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			recorder.Stop(stopCtx)
		}()

		reg.SetSelectionHook(recorder.RecordSelection)
	}

	// Collectors
	collector := backfill.New(backfill.Config{
		DailyDays: cfg.Backfill.DailyDays,
	}, chartClient, sessions, reg, store, nil, logger)

	upd := updater.New(updater.Config{
		MinBars:       cfg.Updater.MinBars,
		OpenSlack:     cfg.Updater.OpenSlack,
		ReselectAfter: cfg.Updater.ReselectAfter,
		EarlyWindow:   cfg.Updater.EarlyWindow,
	}, chartClient, sessions, reg, collector, logger)

	// Poller
	flush := poller.FlusherFunc(func() error {
		if err := reg.FlushTo(store); err != nil {
			return err
		}
		if recorder != nil {
			for _, symbol := range reg.Tracked() {
				if bars, ok := reg.CombinedBars(symbol); ok {
					recorder.RecordBars(symbol, bars)
				}
			}
		}
		// Working sets do not survive the session.
		reg.Clear()
		return nil
	})

	p := poller.New(poller.Config{
		Interval:    cfg.Poller.Interval,
		Concurrency: cfg.Poller.Concurrency,
		Timeout:     cfg.Poller.Timeout,
	}, reg, upd, flush, sessions, logger)

	if err := p.Start(ctx); err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		p.Stop(stopCtx)
	}()

	// Health and admin server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: newHandler(cfg.Health.Path, reg, pool, collector, logger),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("collector running",
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("collector stopped")
}

// newHandler serves health checks and the symbol admin endpoints.
func newHandler(healthPath string, reg *registry.Registry, pool *pgxpool.Pool, collector *backfill.Collector, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "degraded"
				health.Components["history"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["history"] = "connected"
			}
		}

		health.Components["registry"] = map[string]any{
			"tracked": len(reg.Tracked()),
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/track", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		name := r.URL.Query().Get("name")
		reason := r.URL.Query().Get("reason")

		if err := reg.Track(symbol, name, reason); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		// Backfill runs detached; the poller picks the symbol up on the
		// next round either way.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if !collector.Collect(ctx, symbol) {
				logger.Warn("initial backfill failed", "symbol", symbol)
			}
		}()

		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("/untrack", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		reg.Untrack(symbol)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/debug/symbols", func(w http.ResponseWriter, r *http.Request) {
		type symbolInfo struct {
			Symbol   string `json:"symbol"`
			Bars     int    `json:"bars"`
			Complete bool   `json:"complete"`
		}

		var out []symbolInfo
		for _, symbol := range reg.Tracked() {
			bars, _ := reg.CombinedBars(symbol)
			out = append(out, symbolInfo{
				Symbol:   symbol,
				Bars:     len(bars),
				Complete: reg.Complete(symbol),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"count":   len(out),
			"symbols": out,
		})
	})

	return mux
}
