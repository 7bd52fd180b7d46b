// One-shot tool: build one-second bars for a ticker, date and session,
// print a summary and optionally write them to Parquet.
//
// Usage:
//
//	go run ./cmd/us-second-bars -ticker AAPL -date 2024-07-01 -session regular [-out]
//	go run ./cmd/us-second-bars -ticker AAPL -date 2024-07-01 -session pre -path /tmp/aapl.parquet
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickbars/internal/config"
	"tickbars/internal/domain"
	"tickbars/internal/gather/us"
	"tickbars/internal/history"
	"tickbars/internal/store"
	"tickbars/internal/util"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred closers always execute.
func run() int {
	ticker := flag.String("ticker", "", "ticker symbol (required)")
	date := flag.String("date", "", "trading date YYYY-MM-DD (required)")
	sessionFlag := flag.String("session", "regular", "session: "+domain.SessionNames())
	out := flag.Bool("out", false, "write bars under <data_dir>/us/second-bars")
	path := flag.String("path", "", "write bars to this Parquet file instead")
	flag.Parse()

	if *ticker == "" || *date == "" {
		flag.Usage()
		return 2
	}
	session, err := domain.ParseSession(*sessionFlag)
	if err != nil {
		log.Fatal(err)
	}

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
	opts := []history.Option{history.WithLogger(logger)}
	if days := us.NewTradingDays(cfg); days != nil {
		opts = append(opts, history.WithTradingDays(days))
	}
	svc := history.New(cal, us.NewTradeSource(cfg, logger), opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := svc.SecondBars(ctx, *ticker, *date, session)
	if err != nil {
		logger.Error("second bars failed", "error", err)
		return 1
	}

	fmt.Printf("%s %s %s: %d trades -> %d bars\n", res.Ticker, res.Date, res.Session, res.Trades, len(res.Bars))
	if res.Message != "" {
		fmt.Println(res.Message)
		return 0
	}
	first, last := res.Bars[0], res.Bars[len(res.Bars)-1]
	fmt.Printf("first %s open %.4f | last %s close %.4f\n",
		first.Time().Format(time.RFC3339), first.Open,
		last.Time().Format(time.RFC3339), last.Price)

	switch {
	case *path != "":
		if err := store.WriteSecondBarFile(*path, res.Ticker, session, res.Bars); err != nil {
			logger.Error("writing second bars", "error", err)
			return 1
		}
		logger.Info("second bars written", "path", *path, "bars", len(res.Bars))
	case *out:
		ps := store.NewParquetStore(cfg.Storage.DataDir)
		written, err := ps.WriteSecondBars(ctx, res.Ticker, res.Date, session, res.Bars)
		if err != nil {
			logger.Error("writing second bars", "error", err)
			return 1
		}
		logger.Info("second bars written", "path", written, "bars", len(res.Bars))
	}
	return 0
}
