package store

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/parquet-go/parquet-go"

	"tickbars/internal/domain"
)

var _ SecondBarStore = (*ParquetStore)(nil)

// ParquetStore implements SecondBarStore with one Parquet file per
// ticker/date/session.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// SecondBarRecord is the on-disk schema for a second bar.
type SecondBarRecord struct {
	Ticker    string  `parquet:"ticker"`
	Session   string  `parquet:"session"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // start of second, Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// WriteSecondBars writes bars to
//
//	<DataDir>/us/second-bars/<TICKER>/<YYYY-MM-DD>-<session>.parquet
//
// replacing any previous file. Bars sharing a timestamp keep the last one.
func (s *ParquetStore) WriteSecondBars(_ context.Context, ticker, date string, session domain.Session, bars []domain.SecondBar) (string, error) {
	path := s.SecondBarPath(ticker, date, session)
	if err := WriteSecondBarFile(path, ticker, session, bars); err != nil {
		return "", err
	}
	return path, nil
}

// ReadSecondBars reads the bars stored for ticker/date/session. A missing
// file yields no bars and no error.
func (s *ParquetStore) ReadSecondBars(_ context.Context, ticker, date string, session domain.Session) ([]domain.SecondBar, error) {
	path := s.SecondBarPath(ticker, date, session)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return ReadSecondBarFile(path)
}

// SecondBarPath returns the filesystem path for a session's bar file.
func (s *ParquetStore) SecondBarPath(ticker, date string, session domain.Session) string {
	return filepath.Join(s.DataDir, "us", "second-bars", strings.ToUpper(ticker), date+"-"+string(session)+".parquet")
}

// WriteSecondBarFile writes bars to an explicit path, creating parent
// directories as needed.
func WriteSecondBarFile(path, ticker string, session domain.Session, bars []domain.SecondBar) error {
	records := make([]SecondBarRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, SecondBarRecord{
			Ticker:    strings.ToUpper(ticker),
			Session:   string(session),
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Price,
			Volume:    b.Volume,
		})
	}
	if err := writeParquetFile(path, dedupeSecondBars(records)); err != nil {
		return fmt.Errorf("writing second bars to %s: %w", path, err)
	}
	return nil
}

// ReadSecondBarFile reads bars from an explicit path.
func ReadSecondBarFile(path string) ([]domain.SecondBar, error) {
	records, err := readParquetFile[SecondBarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading second bars from %s: %w", path, err)
	}
	bars := make([]domain.SecondBar, 0, len(records))
	for _, r := range records {
		bars = append(bars, domain.SecondBar{
			Timestamp: r.Timestamp,
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Price:     r.Close,
			Volume:    r.Volume,
		})
	}
	slices.SortFunc(bars, func(a, b domain.SecondBar) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return bars, nil
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// dedupeSecondBars keeps the last record per timestamp and sorts by
// timestamp.
func dedupeSecondBars(records []SecondBarRecord) []SecondBarRecord {
	seen := make(map[int64]SecondBarRecord, len(records))
	for _, r := range records {
		seen[r.Timestamp] = r
	}

	merged := make([]SecondBarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	slices.SortFunc(merged, func(a, b SecondBarRecord) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return merged
}
