package util

import (
	"fmt"
	"strconv"
	"time"
	_ "time/tzdata" // Guarantees America/New_York on hosts without zoneinfo.

	"tickbars/internal/domain"
)

// wallClock is an ET clock reading with millisecond precision.
type wallClock struct {
	hour, min, sec, ms int
}

func (w wallClock) on(date time.Time, zone *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), w.hour, w.min, w.sec, w.ms*int(time.Millisecond), zone)
}

// sessionBounds are the fixed ET start/end readings of each session. Both
// ends are inclusive.
var sessionBounds = map[domain.Session][2]wallClock{
	domain.SessionPre:     {{4, 0, 0, 0}, {9, 29, 59, 999}},
	domain.SessionRegular: {{9, 30, 0, 0}, {16, 0, 0, 0}},
	domain.SessionAfter:   {{16, 1, 0, 0}, {20, 0, 0, 0}},
}

// TradingCalendar resolves US equity session windows in Eastern Time.
type TradingCalendar struct {
	loc *time.Location
}

// NewTradingCalendar creates a TradingCalendar backed by the America/New_York
// zone from the tz database.
func NewTradingCalendar() (*TradingCalendar, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("loading ET timezone: %w", err)
	}
	return &TradingCalendar{loc: loc}, nil
}

// Location returns the Eastern Time location.
func (tc *TradingCalendar) Location() *time.Location {
	return tc.loc
}

// UTCOffset returns the ET offset from UTC in effect on the given calendar
// date, sampled at local noon so DST transition hours never matter.
func (tc *TradingCalendar) UTCOffset(date time.Time) time.Duration {
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, tc.loc)
	_, off := noon.Zone()
	return time.Duration(off) * time.Second
}

// SessionWindow returns the UTC nanosecond bounds of session on date
// (YYYY-MM-DD). Invalid input yields a *domain.InputError.
func (tc *TradingCalendar) SessionWindow(date string, session domain.Session) (domain.Window, error) {
	d, err := domain.ParseDate(date)
	if err != nil {
		return domain.Window{}, err
	}
	bounds, ok := sessionBounds[session]
	if !ok {
		_, err := domain.ParseSession(string(session))
		return domain.Window{}, err
	}

	zone := time.FixedZone("ET", int(tc.UTCOffset(d)/time.Second))
	return domain.Window{
		StartNanos: epochNanos(bounds[0].on(d, zone)),
		EndNanos:   epochNanos(bounds[1].on(d, zone)),
	}, nil
}

// epochNanos renders t as milliseconds scaled to nanoseconds.
func epochNanos(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli()*int64(time.Millisecond), 10)
}
