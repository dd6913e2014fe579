package domain

import "time"

// MarketDepthSnapshot is one market-depth reading for an instrument at a
// point in time. Snapshots are immutable once handed out: a newer snapshot
// supersedes but never mutates a prior one, so recipients may retain old
// copies safely.
type MarketDepthSnapshot struct {
	InstrumentID string

	LastPrice          float64
	OpenPrice          float64
	HighestPrice       float64
	LowestPrice        float64
	PreClosePrice      float64
	PreSettlementPrice float64
	UpperLimitPrice    float64
	LowerLimitPrice    float64

	BidPrice  float64
	BidVolume int64
	AskPrice  float64
	AskVolume int64

	Volume       int64   // cumulative traded volume
	Turnover     float64 // cumulative turnover (price × volume × multiple)
	OpenInterest int64
	AveragePrice float64

	UpdatedAt time.Time
}

// Clone returns an independent copy of the snapshot.
func (s *MarketDepthSnapshot) Clone() *MarketDepthSnapshot {
	c := *s
	return &c
}
