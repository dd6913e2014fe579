package store

import (
	"fmt"
	"testing"
	"time"

	"ticksim/internal/domain"
)

func newTrade(id, instrument string, at time.Time) *domain.Trade {
	return &domain.Trade{
		TradeID:      id,
		SystemID:     "000000000001",
		InstrumentID: instrument,
		Direction:    domain.DirectionBuy,
		Price:        2341,
		Volume:       11,
		ExecutedAt:   at,
	}
}

func TestTradeStore_Chronological(t *testing.T) {
	s := NewTradeStore()
	base := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	// Insert out of order; reads come back chronological.
	s.Append(newTrade("t3", "X0001", base.Add(2*time.Second)))
	s.Append(newTrade("t1", "X0001", base))
	s.Append(newTrade("t2", "X0001", base.Add(time.Second)))
	s.Append(newTrade("t9", "X0002", base))

	trades := s.ByInstrument("X0001")
	if len(trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(trades))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		if trades[i].TradeID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, trades[i].TradeID)
		}
	}

	if got := s.ByInstrument("X0003"); len(got) != 0 {
		t.Errorf("expected no trades for X0003, got %d", len(got))
	}
	if s.Len() != 4 {
		t.Errorf("expected 4 trades total, got %d", s.Len())
	}
}

func TestTradeStore_Range(t *testing.T) {
	s := NewTradeStore()
	base := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		s.Append(newTrade(fmt.Sprintf("t%d", i), "X0001", base.Add(time.Duration(i)*time.Second)))
	}

	got := s.Range("X0001", base.Add(2*time.Second), base.Add(5*time.Second))
	if len(got) != 3 {
		t.Fatalf("expected 3 trades in [2s, 5s), got %d", len(got))
	}
	if got[0].TradeID != "t2" || got[2].TradeID != "t4" {
		t.Errorf("unexpected range contents: %s..%s", got[0].TradeID, got[2].TradeID)
	}

	// Open bounds.
	if got := s.Range("X0001", time.Time{}, time.Time{}); len(got) != 10 {
		t.Errorf("expected all 10 with open bounds, got %d", len(got))
	}
	if got := s.Range("X0001", base.Add(8*time.Second), time.Time{}); len(got) != 2 {
		t.Errorf("expected 2 with open to, got %d", len(got))
	}
	if got := s.Range("X0001", time.Time{}, base.Add(1*time.Second)); len(got) != 1 {
		t.Errorf("expected 1 with open from, got %d", len(got))
	}
	if got := s.Range("X0009", time.Time{}, time.Time{}); len(got) != 0 {
		t.Errorf("expected none for unknown instrument, got %d", len(got))
	}
}
