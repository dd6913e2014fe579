// Package service provides request validation and orchestration over the
// engine, scheduler, and stores for the facade layer.
package service

import (
	"sync"

	"go.uber.org/zap"

	"ticksim/internal/domain"
	"ticksim/internal/market"
	"ticksim/internal/refdata"
)

// DepthCache retains the latest snapshot per instrument for queries. It is
// wired as its own scheduler subscriber, independent of the engine's.
type DepthCache struct {
	depths sync.Map // instrument id → *domain.MarketDepthSnapshot
}

// NewDepthCache creates an empty DepthCache.
func NewDepthCache() *DepthCache {
	return &DepthCache{}
}

// OnSnapshot implements the scheduler subscriber contract.
func (c *DepthCache) OnSnapshot(snap *domain.MarketDepthSnapshot) {
	c.depths.Store(snap.InstrumentID, snap)
}

// Latest returns the most recent snapshot for an instrument, if any.
func (c *DepthCache) Latest(instrumentID string) (*domain.MarketDepthSnapshot, bool) {
	v, ok := c.depths.Load(instrumentID)
	if !ok {
		return nil, false
	}
	return v.(*domain.MarketDepthSnapshot), true
}

// MarketService exposes instrument and market-depth queries and manages
// the scheduler's instrument registrations.
type MarketService struct {
	log   *zap.Logger
	ref   *refdata.Store
	sched *market.Scheduler
	cache *DepthCache
}

// NewMarketService creates a MarketService.
func NewMarketService(log *zap.Logger, ref *refdata.Store, sched *market.Scheduler) *MarketService {
	return &MarketService{
		log:   log.Named("market"),
		ref:   ref,
		sched: sched,
		cache: NewDepthCache(),
	}
}

// Bootstrap registers every reference-data instrument with the scheduler,
// seeded from its reference snapshot, and subscribes the depth cache.
func (s *MarketService) Bootstrap() error {
	if err := s.sched.Subscribe(s.cache); err != nil {
		return err
	}
	for _, id := range s.ref.IDs() {
		seed, err := s.ref.SeedDepth(id)
		if err != nil {
			return err
		}
		if err := s.sched.Initialize(id, seed); err != nil {
			return err
		}
	}
	return nil
}

// Instruments returns the reference data of every known instrument.
func (s *MarketService) Instruments() []*domain.InstrumentRef {
	ids := s.ref.IDs()
	out := make([]*domain.InstrumentRef, 0, len(ids))
	for _, id := range ids {
		ref, err := s.ref.Lookup(id)
		if err != nil {
			continue
		}
		out = append(out, ref)
	}
	return out
}

// Depth returns the latest market depth for an instrument. Before the
// first tick it falls back to the seed snapshot, so a known instrument
// always has a depth.
func (s *MarketService) Depth(instrumentID string) (*domain.MarketDepthSnapshot, error) {
	if _, err := s.ref.Lookup(instrumentID); err != nil {
		return nil, err
	}
	if snap, ok := s.cache.Latest(instrumentID); ok {
		return snap, nil
	}
	return s.ref.SeedDepth(instrumentID)
}

// Subscribe attaches a subscriber to the market feed.
func (s *MarketService) Subscribe(sub market.Subscriber) error {
	return s.sched.Subscribe(sub)
}

// Unsubscribe detaches a subscriber from the market feed.
func (s *MarketService) Unsubscribe(sub market.Subscriber) {
	s.sched.Unsubscribe(sub)
}
