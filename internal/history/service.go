// Package history runs the historical second-bar pipeline: resolve the
// session window, fetch trades, aggregate, and journal the outcome.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tickbars/internal/bars"
	"tickbars/internal/domain"
	"tickbars/internal/gather"
	"tickbars/internal/store"
	"tickbars/internal/util"
)

// Result is the outcome of one pipeline run. Message is set only when Bars
// is empty.
type Result struct {
	Ticker  string
	Date    string
	Session domain.Session
	Window  domain.Window
	Trades  int
	Bars    []domain.SecondBar
	Message string
}

// Service builds second bars for a ticker, date and session.
type Service struct {
	calendar *util.TradingCalendar
	source   gather.TradeSource
	days     gather.TradingDays
	journal  store.RequestJournal
	log      *slog.Logger

	aggregate func([]domain.RawTrade) []domain.SecondBar
}

// Option configures a Service.
type Option func(*Service)

// WithTradingDays adds a market calendar used to explain empty results.
func WithTradingDays(days gather.TradingDays) Option {
	return func(s *Service) { s.days = days }
}

// WithJournal records every run in journal.
func WithJournal(journal store.RequestJournal) Option {
	return func(s *Service) { s.journal = journal }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.log = logger }
}

// New creates a Service.
func New(calendar *util.TradingCalendar, source gather.TradeSource, opts ...Option) *Service {
	s := &Service{
		calendar:  calendar,
		source:    source,
		log:       slog.Default(),
		aggregate: bars.AggregateSecondBars,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "history")
	return s
}

// Source returns the name of the configured trade source.
func (s *Service) Source() string { return s.source.Name() }

// Window resolves the UTC nanosecond bounds of session on date.
func (s *Service) Window(date string, session domain.Session) (domain.Window, error) {
	return s.calendar.SessionWindow(date, session)
}

// SecondBars runs the pipeline. Errors are wrapped with the ticker, date and
// session being processed; an *domain.InputError stays reachable through
// errors.As.
func (s *Service) SecondBars(ctx context.Context, ticker, date string, session domain.Session) (*Result, error) {
	started := time.Now()
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	res, err := s.run(ctx, ticker, date, session)
	if err != nil {
		err = fmt.Errorf("failed to build second bars for %s on %s (%s session): %w", ticker, date, session, err)
	}
	s.record(ctx, ticker, date, session, res, err, time.Since(started))
	return res, err
}

func (s *Service) run(ctx context.Context, ticker, date string, session domain.Session) (*Result, error) {
	window, err := s.calendar.SessionWindow(date, session)
	if err != nil {
		return nil, err
	}

	trades, err := s.source.FetchTrades(ctx, ticker, window)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Ticker:  ticker,
		Date:    date,
		Session: session,
		Window:  window,
		Trades:  len(trades),
		Bars:    s.aggregate(trades),
	}

	switch {
	case len(trades) == 0:
		res.Message = s.emptyMessage(ctx, ticker, date, session)
	case len(res.Bars) == 0:
		res.Message = fmt.Sprintf("Found %d trades for %s on %s during the %s session but could not build any second bars",
			len(trades), ticker, date, session)
		s.log.Warn("trades produced no bars",
			"ticker", ticker,
			"date", date,
			"session", session,
			"trades", len(trades),
		)
	}
	return res, nil
}

// emptyMessage describes a run that found no trades, naming a market
// closure when the trading calendar knows about one.
func (s *Service) emptyMessage(ctx context.Context, ticker, date string, session domain.Session) string {
	msg := fmt.Sprintf("No trades found for %s on %s during the %s session", ticker, date, session)
	if s.days == nil {
		return msg
	}

	open, err := s.days.IsTradingDay(ctx, date)
	if err != nil {
		s.log.Warn("trading day lookup failed", "date", date, "error", err)
		return msg
	}
	if !open {
		return msg + "; the market was closed that day"
	}
	return msg
}

func (s *Service) record(ctx context.Context, ticker, date string, session domain.Session, res *Result, runErr error, elapsed time.Duration) {
	if s.journal == nil {
		return
	}
	var inputErr *domain.InputError
	if errors.As(runErr, &inputErr) {
		return
	}

	entry := &domain.RequestLog{
		Ticker:     ticker,
		Date:       date,
		Session:    session,
		Source:     s.source.Name(),
		DurationMs: elapsed.Milliseconds(),
	}
	switch {
	case runErr != nil:
		entry.Status = domain.StatusError
		entry.Error = runErr.Error()
	case len(res.Bars) == 0:
		entry.Status = domain.StatusEmpty
		entry.Trades = res.Trades
	default:
		entry.Status = domain.StatusOK
		entry.Trades = res.Trades
		entry.Bars = len(res.Bars)
	}

	// A cancelled request still gets journaled.
	if err := s.journal.RecordRequest(context.WithoutCancel(ctx), entry); err != nil {
		s.log.Warn("journal write failed", "ticker", ticker, "error", err)
	}
}
