// Package store defines storage interfaces for persisting second bars and
// the request journal.
package store

import (
	"context"

	"tickbars/internal/domain"
)

// SecondBarStore persists and retrieves one session's second bars.
type SecondBarStore interface {
	// WriteSecondBars replaces the stored bars for ticker/date/session and
	// returns the file path written.
	WriteSecondBars(ctx context.Context, ticker, date string, session domain.Session, bars []domain.SecondBar) (string, error)

	// ReadSecondBars returns the stored bars for ticker/date/session, in
	// timestamp order.
	ReadSecondBars(ctx context.Context, ticker, date string, session domain.Session) ([]domain.SecondBar, error)
}

// RequestJournal records served aggregation requests.
type RequestJournal interface {
	// RecordRequest inserts entry and sets its ID.
	RecordRequest(ctx context.Context, entry *domain.RequestLog) error

	// ListRequests returns the newest entries first, up to limit.
	ListRequests(ctx context.Context, limit int) ([]domain.RequestLog, error)
}
