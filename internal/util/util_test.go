package util

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"tickbars/internal/config"
	"tickbars/internal/domain"
)

func mustCalendar(t *testing.T) *TradingCalendar {
	t.Helper()
	cal, err := NewTradingCalendar()
	if err != nil {
		t.Fatalf("NewTradingCalendar: %v", err)
	}
	return cal
}

func nanosOf(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func TestUTCOffset(t *testing.T) {
	cal := mustCalendar(t)

	tests := []struct {
		date string
		want time.Duration
	}{
		{"2024-07-01", -4 * time.Hour},
		{"2024-01-01", -5 * time.Hour},
		{"2024-03-10", -4 * time.Hour}, // DST starts at 02:00 that morning
		{"2024-03-09", -5 * time.Hour},
		{"2024-11-03", -5 * time.Hour}, // DST ends at 02:00 that morning
		{"2024-11-02", -4 * time.Hour},
	}
	for _, tt := range tests {
		d, _ := time.Parse(domain.DateLayout, tt.date)
		if got := cal.UTCOffset(d); got != tt.want {
			t.Errorf("UTCOffset(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestSessionWindow(t *testing.T) {
	cal := mustCalendar(t)

	tests := []struct {
		date      string
		session   domain.Session
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			"2024-07-01", domain.SessionRegular,
			time.Date(2024, 7, 1, 13, 30, 0, 0, time.UTC),
			time.Date(2024, 7, 1, 20, 0, 0, 0, time.UTC),
		},
		{
			"2024-01-01", domain.SessionPre,
			time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 1, 14, 29, 59, 999_000_000, time.UTC),
		},
		{
			"2024-07-01", domain.SessionAfter,
			time.Date(2024, 7, 1, 20, 1, 0, 0, time.UTC),
			time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			"2024-03-10", domain.SessionPre,
			time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 10, 13, 29, 59, 999_000_000, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.date+"/"+string(tt.session), func(t *testing.T) {
			w, err := cal.SessionWindow(tt.date, tt.session)
			if err != nil {
				t.Fatalf("SessionWindow: %v", err)
			}
			if w.StartNanos != nanosOf(tt.wantStart) {
				t.Errorf("StartNanos = %s, want %s", w.StartNanos, nanosOf(tt.wantStart))
			}
			if w.EndNanos != nanosOf(tt.wantEnd) {
				t.Errorf("EndNanos = %s, want %s", w.EndNanos, nanosOf(tt.wantEnd))
			}
		})
	}
}

func TestRegularSessionLength(t *testing.T) {
	cal := mustCalendar(t)
	want := int64(6*time.Hour + 30*time.Minute)

	for _, date := range []string{"2024-01-02", "2024-07-01", "2024-03-11", "2024-11-04"} {
		w, err := cal.SessionWindow(date, domain.SessionRegular)
		if err != nil {
			t.Fatalf("SessionWindow(%s): %v", date, err)
		}
		start, _ := strconv.ParseInt(w.StartNanos, 10, 64)
		end, _ := strconv.ParseInt(w.EndNanos, 10, 64)
		if end-start != want {
			t.Errorf("%s regular length = %d ns, want %d", date, end-start, want)
		}
	}
}

func TestSessionWindowDeterministic(t *testing.T) {
	cal := mustCalendar(t)
	a, err := cal.SessionWindow("2024-11-03", domain.SessionAfter)
	if err != nil {
		t.Fatalf("SessionWindow: %v", err)
	}
	b, _ := cal.SessionWindow("2024-11-03", domain.SessionAfter)
	if a != b {
		t.Errorf("SessionWindow not deterministic: %+v vs %+v", a, b)
	}
}

func TestSessionWindowInvalidInput(t *testing.T) {
	cal := mustCalendar(t)

	_, err := cal.SessionWindow("2024-07-01", domain.Session("evening"))
	var inErr *domain.InputError
	if !errors.As(err, &inErr) || inErr.Field != "session" {
		t.Errorf("invalid session error = %v, want session InputError", err)
	}

	_, err = cal.SessionWindow("07/01/2024", domain.SessionRegular)
	if !errors.As(err, &inErr) || inErr.Field != "date" {
		t.Errorf("invalid date error = %v, want date InputError", err)
	}
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickbars.log")
	logger, closer := NewLogger(config.Logging{Level: "debug", Format: "text", File: path, MaxSizeMB: 1})
	logger.Debug("hello", "k", "v")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty, want the debug record")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	logger, closer := NewLogger(config.Logging{Level: "warn"})
	defer closer.Close()
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := Retry(ctx, 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("Retry = %v after %d calls, want nil after 3", err, calls)
	}

	calls = 0
	err = Retry(ctx, 3, time.Millisecond, func(context.Context) error {
		calls++
		return errors.New("always")
	})
	if err == nil || err.Error() != "always" || calls != 3 {
		t.Errorf("Retry = %v after %d calls, want last error after 3", err, calls)
	}

	sentinel := errors.New("forbidden")
	calls = 0
	err = Retry(ctx, 5, time.Millisecond, func(context.Context) error {
		calls++
		return Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) || calls != 1 {
		t.Errorf("Retry = %v after %d calls, want sentinel after 1", err, calls)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err = Retry(cctx, 3, time.Hour, func(context.Context) error { return errors.New("x") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry with cancelled ctx = %v, want context.Canceled", err)
	}

	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
