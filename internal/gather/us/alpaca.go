package us

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tickbars/internal/domain"
	"tickbars/internal/gather"
)

var _ gather.TradeSource = (*AlpacaSource)(nil)

// alpacaTrades is the subset of marketdata.Client used by AlpacaSource.
type alpacaTrades interface {
	GetTrades(symbol string, req marketdata.GetTradesRequest) ([]marketdata.Trade, error)
}

// AlpacaSource fetches historical trades through the Alpaca market-data API.
// The SDK follows page tokens itself; a failed page fails the whole call.
//
// Alpaca reports a single timestamp per trade, which is mapped to the
// participant timestamp. SIPTimestamp is left zero.
//
// The SDK call takes no context, so ctx is only checked before the request
// starts; an in-flight fetch runs to completion or failure.
type AlpacaSource struct {
	client alpacaTrades
	feed   string
	log    *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource. An empty dataURL selects the SDK
// default endpoint.
func NewAlpacaSource(apiKey, apiSecret, dataURL, feed string, log *slog.Logger) *AlpacaSource {
	// A zero RetryLimit means ten retries with 1s sleeps in the SDK; -1 is a
	// single attempt.
	opts := marketdata.ClientOpts{
		APIKey:     apiKey,
		APISecret:  apiSecret,
		RetryLimit: -1,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if log == nil {
		log = slog.Default()
	}

	return &AlpacaSource{
		client: marketdata.NewClient(opts),
		feed:   feed,
		log:    log.With("source", "alpaca"),
	}
}

// Name returns the provider identifier.
func (s *AlpacaSource) Name() string { return "alpaca" }

// FetchTrades returns all trades for ticker inside the inclusive window.
func (s *AlpacaSource) FetchTrades(ctx context.Context, ticker string, window domain.Window) ([]domain.RawTrade, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	start, err := parseNanos(window.StartNanos)
	if err != nil {
		return nil, err
	}
	end, err := parseNanos(window.EndNanos)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	raw, err := s.client.GetTrades(strings.ToUpper(ticker), marketdata.GetTradesRequest{
		Start: start,
		End:   end,
		Feed:  marketdata.Feed(s.feed),
	})
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) {
			return nil, &UpstreamError{StatusCode: apiErr.StatusCode, Message: apiErr.Message}
		}
		return nil, fmt.Errorf("GetTrades: %w", err)
	}

	trades := make([]domain.RawTrade, 0, len(raw))
	for i := range raw {
		trades = append(trades, alpacaToDomain(&raw[i]))
	}

	s.log.Info("trades fetched",
		"ticker", ticker,
		"trades", len(trades),
		"elapsed", time.Since(began).Round(time.Millisecond),
	)
	return trades, nil
}

// alpacaTapes maps Alpaca tape letters onto the numeric tape ids used by the
// Polygon feed.
var alpacaTapes = map[string]int{"A": 1, "B": 2, "C": 3}

func alpacaToDomain(t *marketdata.Trade) domain.RawTrade {
	return domain.RawTrade{
		ID:                   strconv.FormatInt(t.ID, 10),
		Exchange:             t.Exchange,
		Price:                t.Price,
		Size:                 float64(t.Size),
		ParticipantTimestamp: t.Timestamp.UnixNano(),
		Conditions:           t.Conditions,
		Tape:                 alpacaTapes[t.Tape],
	}
}

func parseNanos(s string) (time.Time, error) {
	ns, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing window bound %q: %w", s, err)
	}
	return time.Unix(0, ns).UTC(), nil
}
