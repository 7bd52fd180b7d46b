package bars

import (
	"math/rand/v2"
	"testing"

	"tickbars/internal/domain"
)

func TestSecondKey(t *testing.T) {
	tests := []struct {
		ns   int64
		want int64
	}{
		{0, 0},
		{999_999_999, 0},
		{1_000_000_000, 1000},
		{1_500_000_000, 1000},
		{1_999_999_999, 1000},
		{1_719_840_600_123_456_789, 1_719_840_600_000},
		{-1, -1000},
	}
	for _, tt := range tests {
		if got := SecondKey(tt.ns); got != tt.want {
			t.Errorf("SecondKey(%d) = %d, want %d", tt.ns, got, tt.want)
		}
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := AggregateSecondBars(nil)
	if got == nil {
		t.Fatal("AggregateSecondBars(nil) returned nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("AggregateSecondBars(nil) returned %d bars, want 0", len(got))
	}
}

func TestAggregateSameSecond(t *testing.T) {
	trades := []domain.RawTrade{
		{ParticipantTimestamp: 1_000_000_000, Price: 100, Size: 10},
		{ParticipantTimestamp: 1_500_000_000, Price: 105, Size: 5},
	}

	got := AggregateSecondBars(trades)
	if len(got) != 1 {
		t.Fatalf("got %d bars, want 1", len(got))
	}
	want := domain.SecondBar{Timestamp: 1000, Open: 100, High: 105, Low: 100, Price: 105, Volume: 15}
	if got[0] != want {
		t.Errorf("bar = %+v, want %+v", got[0], want)
	}
}

func TestAggregateOrdersByParticipantTimestamp(t *testing.T) {
	// Delivered out of order; SIP order disagrees with participant order.
	trades := []domain.RawTrade{
		{ParticipantTimestamp: 2_300_000_000, SIPTimestamp: 2_000_000_000, Price: 12, Size: 1},
		{ParticipantTimestamp: 2_100_000_000, SIPTimestamp: 2_900_000_000, Price: 10, Size: 2},
		{ParticipantTimestamp: 1_100_000_000, SIPTimestamp: 1_100_000_000, Price: 9, Size: 3},
		{ParticipantTimestamp: 2_200_000_000, SIPTimestamp: 2_100_000_000, Price: 14, Size: 4},
	}

	got := AggregateSecondBars(trades)
	want := []domain.SecondBar{
		{Timestamp: 1000, Open: 9, High: 9, Low: 9, Price: 9, Volume: 3},
		{Timestamp: 2000, Open: 10, High: 14, Low: 10, Price: 12, Volume: 7},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d bars, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bar[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	// Input must be left untouched.
	if trades[0].Price != 12 {
		t.Error("AggregateSecondBars reordered its input")
	}
}

func TestAggregateFallsBackToSIPTimestamp(t *testing.T) {
	trades := []domain.RawTrade{
		{SIPTimestamp: 5_250_000_000, Price: 50, Size: 1},
	}
	got := AggregateSecondBars(trades)
	if len(got) != 1 || got[0].Timestamp != 5000 {
		t.Errorf("bars = %+v, want one bar at 5000", got)
	}
}

func TestAggregateEqualTimestampsKeepArrivalOrder(t *testing.T) {
	trades := []domain.RawTrade{
		{ParticipantTimestamp: 3_000_000_000, Price: 30, Size: 1},
		{ParticipantTimestamp: 3_000_000_000, Price: 31, Size: 1},
	}
	got := AggregateSecondBars(trades)
	if got[0].Open != 30 || got[0].Price != 31 {
		t.Errorf("bar = %+v, want open 30 close 31", got[0])
	}
}

func TestAggregateInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	base := int64(1_719_840_600_000_000_000)

	trades := make([]domain.RawTrade, 5000)
	sizes := make(map[int64]float64)
	for i := range trades {
		ts := base + rng.Int64N(int64(120e9))
		size := float64(1 + rng.IntN(500))
		trades[i] = domain.RawTrade{
			ParticipantTimestamp: ts,
			Price:                100 + rng.Float64()*5,
			Size:                 size,
		}
		sizes[SecondKey(ts)] += size
	}

	got := AggregateSecondBars(trades)
	if len(got) != len(sizes) {
		t.Fatalf("got %d bars, want %d distinct seconds", len(got), len(sizes))
	}

	for i, b := range got {
		if i > 0 && b.Timestamp <= got[i-1].Timestamp {
			t.Fatalf("bar[%d].Timestamp %d not after %d", i, b.Timestamp, got[i-1].Timestamp)
		}
		if b.Low > b.Open || b.Low > b.Price || b.High < b.Open || b.High < b.Price || b.Low > b.High {
			t.Errorf("bar[%d] violates OHLC bounds: %+v", i, b)
		}
		if b.Volume != sizes[b.Timestamp] {
			t.Errorf("bar[%d].Volume = %v, want %v", i, b.Volume, sizes[b.Timestamp])
		}
	}
}
