package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emilio-cliff/stockledger/internal/config"
	"github.com/emilio-cliff/stockledger/internal/handler"
	"github.com/emilio-cliff/stockledger/internal/logging"
	"github.com/emilio-cliff/stockledger/internal/middleware"
	"github.com/emilio-cliff/stockledger/internal/report"
	"github.com/emilio-cliff/stockledger/internal/repository"
	"github.com/emilio-cliff/stockledger/internal/stock"
	"github.com/emilio-cliff/stockledger/internal/valuation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("stockledger-api", cfg.LogLevel, cfg.AppEnv)

	store, cleanup, err := openLedgerStore(cfg)
	if err != nil {
		slog.Error("failed to open ledger store", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	defer cleanup()

	engine := valuation.NewEngine(store, cfg.CheckpointMinReplay)
	reports := report.NewService(store, engine)
	processor := stock.NewService(store, engine, stock.Policy{
		AllowNegativeStock: cfg.AllowNegativeStock,
	})

	stockHandler := handler.NewStockHandler(processor)
	balanceHandler := handler.NewBalanceHandler(reports)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("POST /api/v1/stock/receipts", stockHandler.CreateReceipt)
	mux.HandleFunc("POST /api/v1/stock/issues", stockHandler.CreateIssue)
	mux.HandleFunc("POST /api/v1/stock/transfers", stockHandler.CreateTransfer)
	mux.HandleFunc("GET /api/v1/stock/balance", balanceHandler.GetBalance)
	mux.HandleFunc("GET /api/v1/stock/snapshot", balanceHandler.GetSnapshot)

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func openLedgerStore(cfg *config.Config) (repository.LedgerStore, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
			MaxOpenConns:     cfg.DBMaxOpenConns,
			MaxIdleConns:     cfg.DBMaxIdleConns,
			ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
			ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openLedgerStore: %w", err)
		}
		return repository.NewPostgresLedgerStore(db), func() { db.Close() }, nil

	case "sqlite":
		store, err := repository.NewSQLiteLedgerStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("openLedgerStore: %w", err)
		}
		return store, func() { store.Close() }, nil

	case "memory":
		return repository.NewMemoryLedgerStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("openLedgerStore: unknown store driver %q", cfg.StoreDriver)
	}
}
