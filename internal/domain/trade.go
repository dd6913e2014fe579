package domain

import "time"

// Trade represents a single fill of an order against the simulated market.
// Immutable; trade ids are unique per process lifetime.
type Trade struct {
	TradeID      string
	SystemID     string
	OrderRef     string
	InstrumentID string
	Direction    Direction
	Price        float64
	Volume       int64
	ExecutedAt   time.Time
}
