package us

import (
	"log/slog"
	"net/http"

	"tickbars/internal/config"
	"tickbars/internal/gather"
)

// NewTradeSource builds the trade source selected by cfg.Upstream.Provider.
func NewTradeSource(cfg *config.Config, log *slog.Logger) gather.TradeSource {
	if cfg.Upstream.Provider == config.ProviderAlpaca {
		return NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.Feed, log)
	}
	return NewPolygonSource(cfg.Upstream.BaseURL, cfg.Upstream.APIKey,
		WithHTTPClient(&http.Client{Timeout: cfg.Upstream.Timeout}),
		WithPageLimit(cfg.Upstream.PageLimit),
		WithRateLimit(cfg.Upstream.RateLimitPerMin),
		WithLogger(log),
	)
}

// NewTradingDays returns the Alpaca calendar when credentials are
// configured, otherwise nil.
func NewTradingDays(cfg *config.Config) gather.TradingDays {
	if !cfg.Alpaca.Enabled() {
		return nil
	}
	return NewAlpacaCalendar(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
}
