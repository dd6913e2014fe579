package refdata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ticksim/internal/domain"
)

func TestBuiltins(t *testing.T) {
	s := NewStore()

	ids := s.IDs()
	if len(ids) != 3 {
		t.Fatalf("expected 3 built-in instruments, got %d", len(ids))
	}

	ref, err := s.Lookup("X0002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.PriceTick != 0.5 {
		t.Errorf("expected X0002 tick 0.5, got %v", ref.PriceTick)
	}
	if ref.VolumeMultiple != 100 {
		t.Errorf("expected X0002 multiple 100, got %d", ref.VolumeMultiple)
	}
	if ref.LimitRatio != DefaultLimitRatio {
		t.Errorf("expected default limit ratio, got %v", ref.LimitRatio)
	}

	if _, err := s.Commission("X0001"); err != nil {
		t.Errorf("expected commission for X0001: %v", err)
	}
	if _, err := s.Margin("X0003"); err != nil {
		t.Errorf("expected margin for X0003: %v", err)
	}
}

func TestLookupUnknown(t *testing.T) {
	s := NewStore()
	if _, err := s.Lookup("nope"); !errors.Is(err, domain.ErrUnknownInstrument) {
		t.Errorf("expected ErrUnknownInstrument, got %v", err)
	}
	if _, err := s.SeedDepth("nope"); !errors.Is(err, domain.ErrUnknownInstrument) {
		t.Errorf("expected ErrUnknownInstrument, got %v", err)
	}
}

func TestSeedDepth(t *testing.T) {
	s := NewStore()

	d, err := s.SeedDepth("X0001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.LastPrice != 1340 {
		t.Errorf("expected last 1340, got %v", d.LastPrice)
	}
	if d.BidPrice != 1340 || d.AskPrice != 1341 {
		t.Errorf("expected bid/ask 1340/1341, got %v/%v", d.BidPrice, d.AskPrice)
	}
	if d.UpperLimitPrice != 1330*1.05 {
		t.Errorf("expected upper limit %v, got %v", 1330*1.05, d.UpperLimitPrice)
	}
	if d.LowerLimitPrice != 1330*0.95 {
		t.Errorf("expected lower limit %v, got %v", 1330*0.95, d.LowerLimitPrice)
	}

	// Each call hands out an independent copy.
	d.LastPrice = 1
	d2, _ := s.SeedDepth("X0001")
	if d2.LastPrice != 1340 {
		t.Error("SeedDepth returned a shared snapshot")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instruments.yaml")
	content := `instruments:
  - instrument_id: Y1000
    name: test contract
    price_tick: 0.25
    volume_multiple: 5
    last_price: 100.0
    pre_settlement_price: 98.0
    open_interest: 500
  - instrument_id: X0001
    price_tick: 2.0
    last_price: 1500.0
    pre_settlement_price: 1490.0
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewStore()
	if err := s.Load(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// New instrument added.
	ref, err := s.Lookup("Y1000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.PriceTick != 0.25 || ref.VolumeMultiple != 5 {
		t.Errorf("unexpected Y1000 ref: %+v", ref)
	}
	d, _ := s.SeedDepth("Y1000")
	if d.LastPrice != 100.0 || d.OpenInterest != 500 {
		t.Errorf("unexpected Y1000 seed: %+v", d)
	}

	// Built-in overridden.
	ref, _ = s.Lookup("X0001")
	if ref.PriceTick != 2.0 {
		t.Errorf("expected X0001 tick overridden to 2.0, got %v", ref.PriceTick)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing id", "instruments:\n  - price_tick: 1.0\n    last_price: 1\n    pre_settlement_price: 1\n"},
		{"bad tick", "instruments:\n  - instrument_id: A\n    price_tick: -1\n    last_price: 1\n    pre_settlement_price: 1\n"},
		{"bad seed", "instruments:\n  - instrument_id: A\n    price_tick: 1\n    last_price: 0\n    pre_settlement_price: 1\n"},
		{"negative limit ratio", "instruments:\n  - instrument_id: A\n    price_tick: 1\n    limit_ratio: -0.05\n    last_price: 1\n    pre_settlement_price: 1\n"},
		{"negative multiple", "instruments:\n  - instrument_id: A\n    price_tick: 1\n    volume_multiple: -10\n    last_price: 1\n    pre_settlement_price: 1\n"},
		{"negative bid volume", "instruments:\n  - instrument_id: A\n    price_tick: 1\n    bid_volume: -1\n    last_price: 1\n    pre_settlement_price: 1\n"},
		{"not yaml", "::::"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if err := NewStore().Load(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if err := NewStore().Load("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
