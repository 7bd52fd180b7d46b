// Package domain defines the core types shared across tickbars: trading
// sessions, raw trades, second bars, and the input error taxonomy.
package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format accepted on every surface.
const DateLayout = "2006-01-02"

// Session is a named US equity trading window.
type Session string

const (
	SessionPre     Session = "pre"
	SessionRegular Session = "regular"
	SessionAfter   Session = "after"
)

// Sessions lists the valid sessions in chronological order.
var Sessions = []Session{SessionPre, SessionRegular, SessionAfter}

// SessionNames returns the valid session values joined for messages.
func SessionNames() string {
	names := make([]string, len(Sessions))
	for i, s := range Sessions {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// ParseSession validates s and returns the matching Session.
func ParseSession(s string) (Session, error) {
	for _, v := range Sessions {
		if string(v) == s {
			return v, nil
		}
	}
	return "", &InputError{
		Field:   "session",
		Message: "Invalid session parameter. Must be one of: " + SessionNames(),
	}
}

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &InputError{
			Field:   "date",
			Message: "Date parameter must be in YYYY-MM-DD format",
		}
	}
	return t, nil
}

// Window is the inclusive UTC bound of a session, in nanoseconds since the
// epoch. Both ends are decimal strings so they survive JSON consumers that
// store numbers as float64.
type Window struct {
	StartNanos string `json:"startNanos"`
	EndNanos   string `json:"endNanos"`
}

// RawTrade is a single upstream trade print.
type RawTrade struct {
	ID                   string
	Exchange             string
	Price                float64
	Size                 float64
	ParticipantTimestamp int64 // ns since epoch
	SIPTimestamp         int64 // ns since epoch
	SequenceNumber       int64
	Conditions           []string
	Correction           int
	Tape                 int
}

// ExecutionNanos returns the timestamp used for ordering and bucketing: the
// participant timestamp, or the SIP timestamp when the participant did not
// report one. The fallback applies only when upstream omits the participant
// timestamp (zero); SIP time never overrides a reported participant time.
func (t RawTrade) ExecutionNanos() int64 {
	if t.ParticipantTimestamp != 0 {
		return t.ParticipantTimestamp
	}
	return t.SIPTimestamp
}

// SecondBar is a one-second OHLCV aggregate. Price is the close.
type SecondBar struct {
	Timestamp int64   `json:"timestamp"` // start of second, Unix ms
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
}

// Time returns the start of the bar's second in UTC.
func (b SecondBar) Time() time.Time {
	return time.UnixMilli(b.Timestamp).UTC()
}

// InputError reports a missing or malformed request parameter.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// RequestStatus classifies the outcome of one aggregation request.
type RequestStatus string

const (
	StatusOK    RequestStatus = "ok"
	StatusEmpty RequestStatus = "empty"
	StatusError RequestStatus = "error"
)

// RequestLog is one journal entry describing a served aggregation.
type RequestLog struct {
	ID         int64         `json:"id"`
	Ticker     string        `json:"ticker"`
	Date       string        `json:"date"`
	Session    Session       `json:"session"`
	Source     string        `json:"source"`
	Trades     int           `json:"trades"`
	Bars       int           `json:"bars"`
	Status     RequestStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
	DurationMs int64         `json:"durationMs"`
	CreatedAt  time.Time     `json:"createdAt"`
}

