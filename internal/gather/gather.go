// Package gather defines the interfaces implemented by upstream market-data
// providers.
package gather

import (
	"context"

	"tickbars/internal/domain"
)

// TradeSource retrieves raw trades from an upstream provider.
type TradeSource interface {
	// Name returns the provider identifier.
	Name() string
	// FetchTrades returns every trade for ticker inside the inclusive window,
	// or an error. It never returns a partial result.
	FetchTrades(ctx context.Context, ticker string, window domain.Window) ([]domain.RawTrade, error)
}

// TradingDays reports whether the exchange was open on a calendar date.
type TradingDays interface {
	IsTradingDay(ctx context.Context, date string) (bool, error)
}
