package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tickbars/internal/domain"
	"tickbars/internal/history"
	"tickbars/internal/store"
)

const (
	defaultRequestsLimit = 50
	statusSuccess        = "success"
)

// HistoricalServer serves the historical bars HTTP API.
type HistoricalServer struct {
	svc     *history.Service
	journal store.RequestJournal // nil disables GET /api/requests
	log     *slog.Logger
}

// NewHistoricalServer creates a new HTTP server over svc. journal may be nil.
func NewHistoricalServer(svc *history.Service, journal store.RequestJournal, log *slog.Logger) *HistoricalServer {
	if log == nil {
		log = slog.Default()
	}
	return &HistoricalServer{
		svc:     svc,
		journal: journal,
		log:     log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *HistoricalServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/historical-data", s.handleHistoricalData)
	mux.HandleFunc("GET /api/session-window", s.handleSessionWindow)
	mux.HandleFunc("GET /api/requests", s.handleRequests)
}

// Handler returns an http.Handler with request-id, logging and CORS
// middleware.
func (s *HistoricalServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return requestIDMiddleware(loggingMiddleware(s.log, corsMiddleware(mux)))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseSessionQuery validates the date and session query parameters shared
// by the bar and window endpoints.
func parseSessionQuery(r *http.Request) (string, domain.Session, error) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		return "", "", &domain.InputError{Field: "date", Message: "Date parameter is required"}
	}
	if _, err := domain.ParseDate(date); err != nil {
		return "", "", err
	}
	session, err := domain.ParseSession(strings.TrimSpace(r.URL.Query().Get("session")))
	if err != nil {
		return "", "", err
	}
	return date, session, nil
}

func (s *HistoricalServer) handleHistoricalData(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "Ticker parameter is required")
		return
	}
	date, session, err := parseSessionQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.SecondBars(r.Context(), ticker, date, session)
	if err != nil {
		var inputErr *domain.InputError
		if errors.As(err, &inputErr) {
			writeError(w, http.StatusBadRequest, inputErr.Message)
			return
		}
		s.log.Error("historical data failed",
			"ticker", ticker,
			"date", date,
			"session", session,
			"request_id", requestIDFrom(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, ServerErrorJSON{
			Error: err.Error(),
			Data:  []domain.SecondBar{},
		})
		return
	}

	resp := HistoricalDataJSON{
		Status:        statusSuccess,
		Data:          res.Bars,
		Ticker:        res.Ticker,
		RequestedDate: date,
		Session:       session,
		Message:       res.Message,
	}
	if resp.Data == nil {
		resp.Data = []domain.SecondBar{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HistoricalServer) handleSessionWindow(w http.ResponseWriter, r *http.Request) {
	date, session, err := parseSessionQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	win, err := s.svc.Window(date, session)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SessionWindowJSON{
		Date:       date,
		Session:    session,
		StartNanos: win.StartNanos,
		EndNanos:   win.EndNanos,
	})
}

func (s *HistoricalServer) handleRequests(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, "request journal is disabled")
		return
	}

	limit := defaultRequestsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Limit parameter must be a positive integer")
			return
		}
		limit = min(n, store.MaxListLimit)
	}

	entries, err := s.journal.ListRequests(r.Context(), limit)
	if err != nil {
		s.log.Error("listing requests", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list requests: "+err.Error())
		return
	}
	if entries == nil {
		entries = []domain.RequestLog{}
	}
	writeJSON(w, http.StatusOK, RequestsJSON{Requests: entries})
}
