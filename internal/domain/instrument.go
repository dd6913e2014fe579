package domain

// InstrumentRef holds the static reference data for one tradable
// instrument. Immutable after loading.
type InstrumentRef struct {
	InstrumentID   string
	Name           string
	PriceTick      float64 // minimum price increment
	LimitRatio     float64 // daily limit band relative to pre-settlement price
	VolumeMultiple int64   // contract size used for turnover
	MaxOrderVolume int64
	MinOrderVolume int64
}

// UpperLimit returns the highest tradable price given a pre-settlement price.
func (r *InstrumentRef) UpperLimit(preSettlement float64) float64 {
	return preSettlement * (1 + r.LimitRatio)
}

// LowerLimit returns the lowest tradable price given a pre-settlement price.
func (r *InstrumentRef) LowerLimit(preSettlement float64) float64 {
	return preSettlement * (1 - r.LimitRatio)
}

// CommissionRate holds per-instrument commission ratios.
type CommissionRate struct {
	InstrumentID       string
	OpenRatioByMoney   float64
	OpenRatioByVolume  float64
	CloseRatioByMoney  float64
	CloseRatioByVolume float64
}

// MarginRate holds per-instrument margin ratios for long and short positions.
type MarginRate struct {
	InstrumentID             string
	LongMarginRatioByMoney   float64
	LongMarginRatioByVolume  float64
	ShortMarginRatioByMoney  float64
	ShortMarginRatioByVolume float64
}
