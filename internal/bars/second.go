// Package bars reduces raw trade prints into fixed one-second OHLCV bars.
package bars

import (
	"slices"

	"tickbars/internal/domain"
)

// SecondKey returns the start of the second containing ns (Unix nanoseconds)
// as Unix milliseconds. Nanoseconds are first truncated to milliseconds, then
// floored to the containing second.
func SecondKey(ns int64) int64 {
	ms := floorDiv(ns, 1_000_000)
	return floorDiv(ms, 1000) * 1000
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// AggregateSecondBars sorts trades by execution time and folds them into one
// bar per second. The output is strictly increasing by Timestamp. Empty input
// returns an empty, non-nil slice.
//
// The input slice is not modified.
func AggregateSecondBars(trades []domain.RawTrade) []domain.SecondBar {
	if len(trades) == 0 {
		return []domain.SecondBar{}
	}

	sorted := slices.Clone(trades)
	slices.SortStableFunc(sorted, func(a, b domain.RawTrade) int {
		ta, tb := a.ExecutionNanos(), b.ExecutionNanos()
		switch {
		case ta < tb:
			return -1
		case ta > tb:
			return 1
		}
		return 0
	})

	// Keys arrive in non-decreasing order after the sort, so the open bar is
	// always the last element.
	out := make([]domain.SecondBar, 0, len(sorted)/4+1)
	for i := range sorted {
		tr := &sorted[i]
		key := SecondKey(tr.ExecutionNanos())

		if n := len(out); n > 0 && out[n-1].Timestamp == key {
			b := &out[n-1]
			b.High = max(b.High, tr.Price)
			b.Low = min(b.Low, tr.Price)
			b.Price = tr.Price
			b.Volume += tr.Size
			continue
		}

		out = append(out, domain.SecondBar{
			Timestamp: key,
			Open:      tr.Price,
			High:      tr.Price,
			Low:       tr.Price,
			Price:     tr.Price,
			Volume:    tr.Size,
		})
	}
	return out
}
