// Package market generates the synthetic market data feed: one price
// process per instrument evolving a market-depth snapshot, and a scheduler
// that drives the processes on a fixed cadence and fans snapshots out to
// subscribers.
package market

import (
	"math/rand"
	"time"

	"ticksim/internal/domain"
)

const (
	// maxCrossVolume bounds the simulated volume crossing on one refresh.
	maxCrossVolume = 200
	// maxLevelVolume bounds the fresh liquidity shown at each book level.
	maxLevelVolume = 1500
)

// PriceProcess owns one instrument's evolving market-depth snapshot and
// advances it one step per Refresh call. State is mutated exclusively by
// the scheduler's timer goroutine; snapshots handed out are clones.
type PriceProcess struct {
	ref       *domain.InstrumentRef
	depth     *domain.MarketDepthSnapshot
	buyChance float64
	rng       *rand.Rand
}

// NewPriceProcess creates a price process seeded from the given snapshot.
// Limit bounds are derived from the pre-settlement price so the process
// can never emit a price outside the instrument's daily band. The random
// source is injected: a fixed source and fixed prior state make Refresh
// reproducible.
func NewPriceProcess(ref *domain.InstrumentRef, seed *domain.MarketDepthSnapshot, rng *rand.Rand) *PriceProcess {
	d := seed.Clone()
	d.UpperLimitPrice = ref.UpperLimit(d.PreSettlementPrice)
	d.LowerLimitPrice = ref.LowerLimit(d.PreSettlementPrice)
	return &PriceProcess{
		ref:       ref,
		depth:     d,
		buyChance: 0.5,
		rng:       rng,
	}
}

// BuyChance returns the current directional bias.
func (p *PriceProcess) BuyChance() float64 {
	return p.buyChance
}

// SetBuyChance sets the directional bias, clamped into [0,1]. Used to
// simulate regime changes.
func (p *PriceProcess) SetBuyChance(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	p.buyChance = v
}

// Refresh advances the snapshot one step: picks a direction biased by the
// buy chance, shifts the top of book by one tick with fresh randomized
// volume at each level, derives the last price from the simulated cross,
// updates the running high/low/volume/turnover/open-interest figures, and
// clamps every price into the instrument's limit band. Returns an
// immutable clone of the new state. No I/O, no blocking.
func (p *PriceProcess) Refresh() *domain.MarketDepthSnapshot {
	d := p.depth
	tick := p.ref.PriceTick

	crossed := 1 + p.rng.Int63n(maxCrossVolume)
	if p.rng.Float64() < p.buyChance {
		// Buyer lifts the offer: trade at the ask, ladder shifts up.
		d.LastPrice = d.AskPrice
		d.BidPrice = d.AskPrice
		d.AskPrice = d.BidPrice + tick
	} else {
		// Seller hits the bid: trade at the bid, ladder shifts down.
		d.LastPrice = d.BidPrice
		d.AskPrice = d.BidPrice
		d.BidPrice = d.AskPrice - tick
	}
	d.BidVolume = 1 + p.rng.Int63n(maxLevelVolume)
	d.AskVolume = 1 + p.rng.Int63n(maxLevelVolume)

	p.clamp(d, tick)

	if d.LastPrice > d.HighestPrice {
		d.HighestPrice = d.LastPrice
	}
	if d.LastPrice < d.LowestPrice {
		d.LowestPrice = d.LastPrice
	}

	d.Volume += crossed
	d.Turnover += d.LastPrice * float64(crossed*p.ref.VolumeMultiple)
	if d.Volume > 0 {
		d.AveragePrice = d.Turnover / float64(d.Volume*p.ref.VolumeMultiple)
	}
	// Open interest drifts by at most the crossed volume in either direction.
	d.OpenInterest += p.rng.Int63n(2*crossed+1) - crossed
	if d.OpenInterest < 0 {
		d.OpenInterest = 0
	}
	d.UpdatedAt = time.Now()

	return d.Clone()
}

// clamp forces last/bid/ask into [lower, upper]. The one-tick spread is
// rebuilt where the band allows it; at the band edge the spread may
// collapse rather than breach a limit.
func (p *PriceProcess) clamp(d *domain.MarketDepthSnapshot, tick float64) {
	if d.AskPrice > d.UpperLimitPrice {
		d.AskPrice = d.UpperLimitPrice
		d.BidPrice = d.AskPrice - tick
	}
	if d.BidPrice < d.LowerLimitPrice {
		d.BidPrice = d.LowerLimitPrice
		if d.AskPrice < d.BidPrice {
			d.AskPrice = d.BidPrice
		}
	}
	if d.AskPrice > d.UpperLimitPrice {
		d.AskPrice = d.UpperLimitPrice
	}
	if d.BidPrice > d.UpperLimitPrice {
		d.BidPrice = d.UpperLimitPrice
	}
	if d.LastPrice > d.UpperLimitPrice {
		d.LastPrice = d.UpperLimitPrice
	}
	if d.LastPrice < d.LowerLimitPrice {
		d.LastPrice = d.LowerLimitPrice
	}
}
