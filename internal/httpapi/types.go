// Package httpapi provides the HTTP REST API that serves historical
// one-second bars, session windows and the request journal as JSON.
package httpapi

import (
	"tickbars/internal/domain"
)

// HistoricalDataJSON is the 200 response of GET /api/historical-data.
// Message is present only when Data is empty.
type HistoricalDataJSON struct {
	Status        string             `json:"status"`
	Data          []domain.SecondBar `json:"data"`
	Ticker        string             `json:"ticker"`
	RequestedDate string             `json:"requestedDate"`
	Session       domain.Session     `json:"session"`
	Message       string             `json:"message,omitempty"`
}

// ServerErrorJSON is the 500 response body. Data is always an empty array.
type ServerErrorJSON struct {
	Error string             `json:"error"`
	Data  []domain.SecondBar `json:"data"`
}

// SessionWindowJSON is the response of GET /api/session-window.
type SessionWindowJSON struct {
	Date       string         `json:"date"`
	Session    domain.Session `json:"session"`
	StartNanos string         `json:"startNanos"`
	EndNanos   string         `json:"endNanos"`
}

// RequestsJSON is the response of GET /api/requests.
type RequestsJSON struct {
	Requests []domain.RequestLog `json:"requests"`
}
