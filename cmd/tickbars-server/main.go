// tickbars-server serves one-second historical bars over HTTP, with a gRPC
// health endpoint alongside.
//
// Usage:
//
//	TICKBARS_CONFIG=config/tickbars.yaml go run ./cmd/tickbars-server
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tickbars/internal/api"
	"tickbars/internal/config"
	"tickbars/internal/gather/us"
	"tickbars/internal/history"
	"tickbars/internal/httpapi"
	"tickbars/internal/store"
	"tickbars/internal/util"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred closers always execute.
func run() int {
	cfgPath := "config/tickbars.yaml"
	if p := os.Getenv("TICKBARS_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, logCloser := util.NewLogger(cfg.Logging)
	defer logCloser.Close()
	util.SetDefault(logger)

	cal, err := util.NewTradingCalendar()
	if err != nil {
		logger.Error("calendar", "error", err)
		return 1
	}

	source := us.NewTradeSource(cfg, logger)
	opts := []history.Option{history.WithLogger(logger)}
	if days := us.NewTradingDays(cfg); days != nil {
		opts = append(opts, history.WithTradingDays(days))
	}

	var journal store.RequestJournal
	if cfg.Storage.SQLitePath != "" {
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			logger.Error("opening request journal", "error", err)
			return 1
		}
		defer db.Close()
		journal = db
		opts = append(opts, history.WithJournal(db))
	}

	svc := history.New(cal, source, opts...)
	handler := httpapi.NewHistoricalServer(svc, journal, logger).Handler()
	srv := api.NewServer(cfg.Server, handler, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("tickbars-server starting",
		"addr", cfg.Server.Addr(),
		"grpc_port", cfg.Server.GRPCPort,
		"source", source.Name(),
		"journal", journal != nil,
	)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		return 1
	}
	logger.Info("tickbars-server stopped")
	return 0
}
