// Package tickbars is a Go client for the tickbars HTTP API.
package tickbars

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Bar is a one-second OHLCV bar. Price is the close.
type Bar struct {
	Timestamp int64   `json:"timestamp"` // start of second, Unix ms
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
}

// Time returns the bar's start as a UTC time.
func (b Bar) Time() time.Time {
	return time.UnixMilli(b.Timestamp).UTC()
}

// HistoricalData is the response of a bars query. Message explains an
// empty Data.
type HistoricalData struct {
	Status        string `json:"status"`
	Data          []Bar  `json:"data"`
	Ticker        string `json:"ticker"`
	RequestedDate string `json:"requestedDate"`
	Session       string `json:"session"`
	Message       string `json:"message,omitempty"`
}

// SessionWindow is the UTC nanosecond range of a session.
type SessionWindow struct {
	Date       string `json:"date"`
	Session    string `json:"session"`
	StartNanos string `json:"startNanos"`
	EndNanos   string `json:"endNanos"`
}

// RequestLog is one served request from the server journal.
type RequestLog struct {
	ID         int64     `json:"id"`
	Ticker     string    `json:"ticker"`
	Date       string    `json:"date"`
	Session    string    `json:"session"`
	Source     string    `json:"source"`
	Trades     int       `json:"trades"`
	Bars       int       `json:"bars"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tickbars API error %d: %s", e.StatusCode, e.Message)
}

// Client provides a Go SDK for interacting with the tickbars-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new tickbars API client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HistoricalData retrieves second bars for ticker on date (YYYY-MM-DD)
// during session (pre, regular or after).
func (c *Client) HistoricalData(ctx context.Context, ticker, date, session string) (*HistoricalData, error) {
	q := url.Values{"ticker": {ticker}, "date": {date}, "session": {session}}
	var out HistoricalData
	if err := c.get(ctx, "/api/historical-data", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SessionWindow retrieves the UTC bounds of session on date.
func (c *Client) SessionWindow(ctx context.Context, date, session string) (*SessionWindow, error) {
	q := url.Values{"date": {date}, "session": {session}}
	var out SessionWindow
	if err := c.get(ctx, "/api/session-window", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Requests lists recently served requests, newest first. limit <= 0 uses
// the server default.
func (c *Client) Requests(ctx context.Context, limit int) ([]RequestLog, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Requests []RequestLog `json:"requests"`
	}
	if err := c.get(ctx, "/api/requests", q, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
