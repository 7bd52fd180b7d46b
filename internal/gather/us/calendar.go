package us

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"tickbars/internal/domain"
	"tickbars/internal/gather"
	"tickbars/internal/util"
)

const (
	calendarAttempts  = 3
	calendarBaseDelay = 200 * time.Millisecond
)

var _ gather.TradingDays = (*AlpacaCalendar)(nil)

// calendarAPI is the subset of alpaca.Client used by AlpacaCalendar.
type calendarAPI interface {
	GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error)
}

// AlpacaCalendar answers trading-day questions from the Alpaca trading
// calendar, which already accounts for exchange holidays.
type AlpacaCalendar struct {
	client calendarAPI
}

// NewAlpacaCalendar creates a calendar backed by the Alpaca trading API.
func NewAlpacaCalendar(apiKey, apiSecret, baseURL string) *AlpacaCalendar {
	return &AlpacaCalendar{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
	}
}

// IsTradingDay reports whether date (YYYY-MM-DD) is a session day. Network
// and 5xx failures are retried; client errors are not.
func (c *AlpacaCalendar) IsTradingDay(ctx context.Context, date string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return false, fmt.Errorf("parsing date %q: %w", date, err)
	}

	var days []alpaca.CalendarDay
	err = util.Retry(ctx, calendarAttempts, calendarBaseDelay, func(context.Context) error {
		var err error
		days, err = c.client.GetCalendar(alpaca.GetCalendarRequest{Start: d, End: d})
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			return util.Permanent(err)
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("GetCalendar: %w", err)
	}
	for _, day := range days {
		if day.Date == date {
			return true, nil
		}
	}
	return false, nil
}
