package us

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tickbars/internal/domain"
	"tickbars/internal/gather"
)

var _ gather.TradeSource = (*PolygonSource)(nil)

// DefaultPageLimit is the largest page size the trades endpoint accepts.
const DefaultPageLimit = 50000

// UpstreamError is returned when any trades page answers with a non-2xx
// status. The whole fetch is abandoned.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream trades API returned %d: %s", e.StatusCode, e.Message)
}

// PolygonSource fetches trades from a Polygon-compatible /v3/trades endpoint,
// following next_url cursors until the range is exhausted.
type PolygonSource struct {
	baseURL    string
	apiKey     string
	pageLimit  int
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

// PolygonOption configures a PolygonSource.
type PolygonOption func(*PolygonSource)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) PolygonOption {
	return func(s *PolygonSource) {
		s.httpClient = hc
	}
}

// WithPageLimit sets the per-page result limit.
func WithPageLimit(n int) PolygonOption {
	return func(s *PolygonSource) {
		if n > 0 {
			s.pageLimit = n
		}
	}
}

// WithRateLimit caps page requests per minute. Zero leaves requests
// unthrottled.
func WithRateLimit(perMinute int) PolygonOption {
	return func(s *PolygonSource) {
		if perMinute > 0 {
			s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PolygonOption {
	return func(s *PolygonSource) {
		if logger != nil {
			s.log = logger
		}
	}
}

// NewPolygonSource creates a trade source rooted at baseURL
// (e.g. https://api.polygon.io).
func NewPolygonSource(baseURL, apiKey string, opts ...PolygonOption) *PolygonSource {
	s := &PolygonSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		pageLimit:  DefaultPageLimit,
		httpClient: &http.Client{},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("source", s.Name())
	return s
}

// Name returns the provider identifier.
func (s *PolygonSource) Name() string { return "polygon" }

// polygonTrade is the wire shape of one /v3/trades result.
type polygonTrade struct {
	ID                   string  `json:"id"`
	Exchange             int     `json:"exchange"`
	Price                float64 `json:"price"`
	Size                 float64 `json:"size"`
	ParticipantTimestamp int64   `json:"participant_timestamp"`
	SIPTimestamp         int64   `json:"sip_timestamp"`
	SequenceNumber       int64   `json:"sequence_number"`
	Conditions           []int   `json:"conditions,omitempty"`
	Correction           int     `json:"correction,omitempty"`
	Tape                 int     `json:"tape,omitempty"`
}

func (p polygonTrade) toDomain() domain.RawTrade {
	var conds []string
	if len(p.Conditions) > 0 {
		conds = make([]string, len(p.Conditions))
		for i, c := range p.Conditions {
			conds[i] = strconv.Itoa(c)
		}
	}
	return domain.RawTrade{
		ID:                   p.ID,
		Exchange:             strconv.Itoa(p.Exchange),
		Price:                p.Price,
		Size:                 p.Size,
		ParticipantTimestamp: p.ParticipantTimestamp,
		SIPTimestamp:         p.SIPTimestamp,
		SequenceNumber:       p.SequenceNumber,
		Conditions:           conds,
		Correction:           p.Correction,
		Tape:                 p.Tape,
	}
}

// tradesPage is the envelope of each page.
type tradesPage struct {
	Results []polygonTrade `json:"results"`
	NextURL string         `json:"next_url"`
	Status  string         `json:"status"`
	Message string         `json:"message"`
}

// FetchTrades returns all trades for ticker with timestamps in the inclusive
// window, in upstream (ascending) order.
func (s *PolygonSource) FetchTrades(ctx context.Context, ticker string, window domain.Window) ([]domain.RawTrade, error) {
	next := s.firstPageURL(ticker, window)

	var (
		trades []domain.RawTrade
		pages  int
		start  = time.Now()
	)
	for next != "" {
		page, err := s.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		pages++

		for i := range page.Results {
			trades = append(trades, page.Results[i].toDomain())
		}
		s.log.Debug("trades page fetched",
			"ticker", ticker,
			"page", pages,
			"results", len(page.Results),
		)

		next = ""
		if page.NextURL != "" {
			next, err = s.withAPIKey(page.NextURL)
			if err != nil {
				return nil, err
			}
		}
	}

	s.log.Info("trades fetched",
		"ticker", ticker,
		"pages", pages,
		"trades", len(trades),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return trades, nil
}

func (s *PolygonSource) firstPageURL(ticker string, window domain.Window) string {
	query := url.Values{}
	query.Set("timestamp.gte", window.StartNanos)
	query.Set("timestamp.lte", window.EndNanos)
	query.Set("limit", strconv.Itoa(s.pageLimit))
	query.Set("sort", "timestamp")
	query.Set("order", "asc")
	query.Set("apiKey", s.apiKey)
	return s.baseURL + "/v3/trades/" + url.PathEscape(strings.ToUpper(ticker)) + "?" + query.Encode()
}

// withAPIKey appends the API key to a cursor URL, which upstream returns
// without credentials.
func (s *PolygonSource) withAPIKey(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing next_url %q: %w", raw, err)
	}
	q := u.Query()
	if q.Get("apiKey") == "" {
		q.Set("apiKey", s.apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (s *PolygonSource) fetchPage(ctx context.Context, pageURL string) (*tradesPage, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(resp.StatusCode, body),
		}
	}

	var page tradesPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decoding trades page: %w", err)
	}
	return &page, nil
}

// upstreamMessage extracts the best available error text from a failed
// response: the JSON "error" or "message" field, else the raw body, else the
// status text.
func upstreamMessage(status int, body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return http.StatusText(status)
}
