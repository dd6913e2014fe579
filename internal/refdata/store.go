// Package refdata provides read-only reference data for the simulated
// exchange: instruments, commission and margin rates, and the seed
// market-depth snapshot each price process starts from.
package refdata

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"ticksim/internal/domain"
)

// DefaultLimitRatio is the daily price-limit band relative to the
// pre-settlement price, applied when an instrument doesn't override it.
const DefaultLimitRatio = 0.05

// Store is a read-only lookup of reference data by instrument id.
// All maps are populated before the store is shared, so reads need no lock;
// Load is guarded for the rare case of a reload at runtime.
type Store struct {
	mu          sync.RWMutex
	instruments map[string]*domain.InstrumentRef
	commissions map[string]*domain.CommissionRate
	margins     map[string]*domain.MarginRate
	seeds       map[string]*domain.MarketDepthSnapshot
}

// NewStore creates a Store populated with the built-in simulation
// instruments.
func NewStore() *Store {
	s := &Store{
		instruments: make(map[string]*domain.InstrumentRef),
		commissions: make(map[string]*domain.CommissionRate),
		margins:     make(map[string]*domain.MarginRate),
		seeds:       make(map[string]*domain.MarketDepthSnapshot),
	}
	for _, b := range builtins() {
		s.put(b)
	}
	return s
}

// Lookup returns the instrument reference for the given id, or
// domain.ErrUnknownInstrument.
func (s *Store) Lookup(instrumentID string) (*domain.InstrumentRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.instruments[instrumentID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", instrumentID, domain.ErrUnknownInstrument)
	}
	return ref, nil
}

// Commission returns the commission rate for the given instrument id.
func (s *Store) Commission(instrumentID string) (*domain.CommissionRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.commissions[instrumentID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", instrumentID, domain.ErrUnknownInstrument)
	}
	return c, nil
}

// Margin returns the margin rate for the given instrument id.
func (s *Store) Margin(instrumentID string) (*domain.MarginRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.margins[instrumentID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", instrumentID, domain.ErrUnknownInstrument)
	}
	return m, nil
}

// SeedDepth returns a copy of the seed market-depth snapshot the
// instrument's price process starts from.
func (s *Store) SeedDepth(instrumentID string) (*domain.MarketDepthSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.seeds[instrumentID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", instrumentID, domain.ErrUnknownInstrument)
	}
	return d.Clone(), nil
}

// IDs returns all known instrument ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.instruments))
	for id := range s.instruments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// fileInstrument is the YAML shape of one instrument definition.
type fileInstrument struct {
	InstrumentID   string  `yaml:"instrument_id"`
	Name           string  `yaml:"name"`
	PriceTick      float64 `yaml:"price_tick"`
	LimitRatio     float64 `yaml:"limit_ratio"`
	VolumeMultiple int64   `yaml:"volume_multiple"`
	MaxOrderVolume int64   `yaml:"max_order_volume"`
	MinOrderVolume int64   `yaml:"min_order_volume"`

	LastPrice          float64 `yaml:"last_price"`
	PreSettlementPrice float64 `yaml:"pre_settlement_price"`
	OpenInterest       int64   `yaml:"open_interest"`
	BidVolume          int64   `yaml:"bid_volume"`
	AskVolume          int64   `yaml:"ask_volume"`

	OpenRatioByMoney         float64 `yaml:"open_ratio_by_money"`
	OpenRatioByVolume        float64 `yaml:"open_ratio_by_volume"`
	CloseRatioByMoney        float64 `yaml:"close_ratio_by_money"`
	CloseRatioByVolume       float64 `yaml:"close_ratio_by_volume"`
	LongMarginRatioByMoney   float64 `yaml:"long_margin_ratio_by_money"`
	LongMarginRatioByVolume  float64 `yaml:"long_margin_ratio_by_volume"`
	ShortMarginRatioByMoney  float64 `yaml:"short_margin_ratio_by_money"`
	ShortMarginRatioByVolume float64 `yaml:"short_margin_ratio_by_volume"`
}

type fileRoot struct {
	Instruments []fileInstrument `yaml:"instruments"`
}

// Load reads instrument definitions from a YAML file, adding to or
// overriding the built-ins. Instruments with a missing id, non-positive
// tick, or non-positive seed prices are rejected.
func (s *Store) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read instruments file: %w", err)
	}
	var root fileRoot
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return fmt.Errorf("parse instruments file: %w", err)
	}

	for i, fi := range root.Instruments {
		if fi.InstrumentID == "" {
			return fmt.Errorf("instruments[%d]: missing instrument_id", i)
		}
		if fi.PriceTick <= 0 {
			return fmt.Errorf("instrument %s: price_tick must be > 0", fi.InstrumentID)
		}
		if fi.LastPrice <= 0 || fi.PreSettlementPrice <= 0 {
			return fmt.Errorf("instrument %s: seed prices must be > 0", fi.InstrumentID)
		}
		// A negative ratio would invert the limit band.
		if fi.LimitRatio < 0 {
			return fmt.Errorf("instrument %s: limit_ratio must be >= 0", fi.InstrumentID)
		}
		if fi.VolumeMultiple < 0 || fi.MaxOrderVolume < 0 || fi.MinOrderVolume < 0 {
			return fmt.Errorf("instrument %s: volume fields must be >= 0", fi.InstrumentID)
		}
		if fi.BidVolume < 0 || fi.AskVolume < 0 || fi.OpenInterest < 0 {
			return fmt.Errorf("instrument %s: seed volumes must be >= 0", fi.InstrumentID)
		}
		s.put(fi.bundle())
	}
	return nil
}

// bundle groups one instrument's reference records.
type bundle struct {
	ref        *domain.InstrumentRef
	commission *domain.CommissionRate
	margin     *domain.MarginRate
	seed       *domain.MarketDepthSnapshot
}

func (s *Store) put(b bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := b.ref.InstrumentID
	s.instruments[id] = b.ref
	s.commissions[id] = b.commission
	s.margins[id] = b.margin
	s.seeds[id] = b.seed
}

func (fi fileInstrument) bundle() bundle {
	limitRatio := fi.LimitRatio
	if limitRatio == 0 {
		limitRatio = DefaultLimitRatio
	}
	maxVol := fi.MaxOrderVolume
	if maxVol == 0 {
		maxVol = 10000
	}
	minVol := fi.MinOrderVolume
	if minVol == 0 {
		minVol = 1
	}
	multiple := fi.VolumeMultiple
	if multiple == 0 {
		multiple = 1
	}
	bidVol := fi.BidVolume
	if bidVol == 0 {
		bidVol = 1000
	}
	askVol := fi.AskVolume
	if askVol == 0 {
		askVol = 1000
	}

	ref := &domain.InstrumentRef{
		InstrumentID:   fi.InstrumentID,
		Name:           fi.Name,
		PriceTick:      fi.PriceTick,
		LimitRatio:     limitRatio,
		VolumeMultiple: multiple,
		MaxOrderVolume: maxVol,
		MinOrderVolume: minVol,
	}
	return bundle{
		ref: ref,
		commission: &domain.CommissionRate{
			InstrumentID:       fi.InstrumentID,
			OpenRatioByMoney:   fi.OpenRatioByMoney,
			OpenRatioByVolume:  fi.OpenRatioByVolume,
			CloseRatioByMoney:  fi.CloseRatioByMoney,
			CloseRatioByVolume: fi.CloseRatioByVolume,
		},
		margin: &domain.MarginRate{
			InstrumentID:             fi.InstrumentID,
			LongMarginRatioByMoney:   fi.LongMarginRatioByMoney,
			LongMarginRatioByVolume:  fi.LongMarginRatioByVolume,
			ShortMarginRatioByMoney:  fi.ShortMarginRatioByMoney,
			ShortMarginRatioByVolume: fi.ShortMarginRatioByVolume,
		},
		seed: seedDepth(ref, fi.LastPrice, fi.PreSettlementPrice, fi.OpenInterest, bidVol, askVol),
	}
}

// seedDepth builds the initial snapshot for an instrument: last price on
// the bid, one tick of spread, and limit bounds derived from the
// pre-settlement price.
func seedDepth(ref *domain.InstrumentRef, last, preSettlement float64, openInterest, bidVol, askVol int64) *domain.MarketDepthSnapshot {
	return &domain.MarketDepthSnapshot{
		InstrumentID:       ref.InstrumentID,
		LastPrice:          last,
		OpenPrice:          last,
		HighestPrice:       last,
		LowestPrice:        last,
		PreClosePrice:      last,
		PreSettlementPrice: preSettlement,
		UpperLimitPrice:    ref.UpperLimit(preSettlement),
		LowerLimitPrice:    ref.LowerLimit(preSettlement),
		BidPrice:           last,
		BidVolume:          bidVol,
		AskPrice:           last + ref.PriceTick,
		AskVolume:          askVol,
		OpenInterest:       openInterest,
		AveragePrice:       last,
	}
}

// builtins returns the three stock simulation instruments the exchange
// ships with.
func builtins() []bundle {
	return []bundle{
		fileInstrument{
			InstrumentID:            "X0001",
			Name:                    "immortal grass",
			PriceTick:               1.0,
			VolumeMultiple:          10,
			LastPrice:               1340.0,
			PreSettlementPrice:      1330.0,
			OpenInterest:            3252,
			OpenRatioByVolume:       1.5,
			CloseRatioByVolume:      0,
			LongMarginRatioByMoney:  0.005,
			ShortMarginRatioByMoney: 0.05,
		}.bundle(),
		fileInstrument{
			InstrumentID:             "X0002",
			Name:                     "towering timber",
			PriceTick:                0.5,
			VolumeMultiple:           100,
			LastPrice:                2340.0,
			PreSettlementPrice:       2330.0,
			OpenInterest:             4151,
			OpenRatioByMoney:         0.00005,
			LongMarginRatioByVolume:  1000.0,
			ShortMarginRatioByVolume: 1000.0,
		}.bundle(),
		fileInstrument{
			InstrumentID:            "X0003",
			Name:                    "everlasting bloom",
			PriceTick:               2.0,
			VolumeMultiple:          10,
			LastPrice:               3340.0,
			PreSettlementPrice:      3330.0,
			OpenInterest:            5353,
			OpenRatioByMoney:        0.00005,
			CloseRatioByMoney:       0.00005,
			LongMarginRatioByMoney:  0.07,
			ShortMarginRatioByMoney: 0.07,
		}.bundle(),
	}
}
