package handler

import (
	"time"

	"ticksim/internal/domain"
)

// orderStatusView is the JSON shape of one status history entry.
type orderStatusView struct {
	Status          string    `json:"status"`
	TradedVolume    int64     `json:"traded_volume"`
	RemainingVolume int64     `json:"remaining_volume"`
	Message         string    `json:"message"`
	Timestamp       time.Time `json:"timestamp"`
}

// orderView is the JSON shape of an order, current state plus history.
type orderView struct {
	SystemID     string            `json:"system_id"`
	OrderRef     string            `json:"order_ref"`
	FrontID      int               `json:"front_id"`
	SessionID    int               `json:"session_id"`
	InstrumentID string            `json:"instrument_id"`
	Direction    string            `json:"direction"`
	LimitPrice   float64           `json:"limit_price"`
	Volume       int64             `json:"volume"`
	ClientID     string            `json:"client_id"`
	InvestorID   string            `json:"investor_id"`
	CreatedAt    time.Time         `json:"created_at"`
	Status       string            `json:"status"`
	History      []orderStatusView `json:"history"`
}

func newOrderView(o *domain.Order) orderView {
	// Copied entries: the matching sweep may append while we render.
	entries := o.Entries()
	history := make([]orderStatusView, 0, len(entries))
	status := ""
	for _, e := range entries {
		history = append(history, orderStatusView{
			Status:          string(e.Status),
			TradedVolume:    e.TradedVolume,
			RemainingVolume: e.RemainingVolume,
			Message:         e.Message,
			Timestamp:       e.Timestamp,
		})
		status = string(e.Status)
	}
	return orderView{
		SystemID:     o.SystemID,
		OrderRef:     o.ClientKey.OrderRef,
		FrontID:      o.ClientKey.FrontID,
		SessionID:    o.ClientKey.SessionID,
		InstrumentID: o.InstrumentID,
		Direction:    string(o.Direction),
		LimitPrice:   o.LimitPrice,
		Volume:       o.Volume,
		ClientID:     o.ClientID,
		InvestorID:   o.InvestorID,
		CreatedAt:    o.CreatedAt,
		Status:       status,
		History:      history,
	}
}

// tradeView is the JSON shape of a fill.
type tradeView struct {
	TradeID      string    `json:"trade_id"`
	SystemID     string    `json:"system_id"`
	OrderRef     string    `json:"order_ref"`
	InstrumentID string    `json:"instrument_id"`
	Direction    string    `json:"direction"`
	Price        float64   `json:"price"`
	Volume       int64     `json:"volume"`
	ExecutedAt   time.Time `json:"executed_at"`
}

func newTradeView(t *domain.Trade) tradeView {
	return tradeView{
		TradeID:      t.TradeID,
		SystemID:     t.SystemID,
		OrderRef:     t.OrderRef,
		InstrumentID: t.InstrumentID,
		Direction:    string(t.Direction),
		Price:        t.Price,
		Volume:       t.Volume,
		ExecutedAt:   t.ExecutedAt,
	}
}

// depthView is the JSON shape of a market-depth snapshot.
type depthView struct {
	InstrumentID       string    `json:"instrument_id"`
	LastPrice          float64   `json:"last_price"`
	OpenPrice          float64   `json:"open_price"`
	HighestPrice       float64   `json:"highest_price"`
	LowestPrice        float64   `json:"lowest_price"`
	PreClosePrice      float64   `json:"pre_close_price"`
	PreSettlementPrice float64   `json:"pre_settlement_price"`
	UpperLimitPrice    float64   `json:"upper_limit_price"`
	LowerLimitPrice    float64   `json:"lower_limit_price"`
	BidPrice           float64   `json:"bid_price"`
	BidVolume          int64     `json:"bid_volume"`
	AskPrice           float64   `json:"ask_price"`
	AskVolume          int64     `json:"ask_volume"`
	Volume             int64     `json:"volume"`
	Turnover           float64   `json:"turnover"`
	OpenInterest       int64     `json:"open_interest"`
	AveragePrice       float64   `json:"average_price"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func newDepthView(s *domain.MarketDepthSnapshot) depthView {
	return depthView{
		InstrumentID:       s.InstrumentID,
		LastPrice:          s.LastPrice,
		OpenPrice:          s.OpenPrice,
		HighestPrice:       s.HighestPrice,
		LowestPrice:        s.LowestPrice,
		PreClosePrice:      s.PreClosePrice,
		PreSettlementPrice: s.PreSettlementPrice,
		UpperLimitPrice:    s.UpperLimitPrice,
		LowerLimitPrice:    s.LowerLimitPrice,
		BidPrice:           s.BidPrice,
		BidVolume:          s.BidVolume,
		AskPrice:           s.AskPrice,
		AskVolume:          s.AskVolume,
		Volume:             s.Volume,
		Turnover:           s.Turnover,
		OpenInterest:       s.OpenInterest,
		AveragePrice:       s.AveragePrice,
		UpdatedAt:          s.UpdatedAt,
	}
}

// instrumentView is the JSON shape of instrument reference data.
type instrumentView struct {
	InstrumentID   string  `json:"instrument_id"`
	Name           string  `json:"name"`
	PriceTick      float64 `json:"price_tick"`
	LimitRatio     float64 `json:"limit_ratio"`
	VolumeMultiple int64   `json:"volume_multiple"`
	MaxOrderVolume int64   `json:"max_order_volume"`
	MinOrderVolume int64   `json:"min_order_volume"`
}

func newInstrumentView(r *domain.InstrumentRef) instrumentView {
	return instrumentView{
		InstrumentID:   r.InstrumentID,
		Name:           r.Name,
		PriceTick:      r.PriceTick,
		LimitRatio:     r.LimitRatio,
		VolumeMultiple: r.VolumeMultiple,
		MaxOrderVolume: r.MaxOrderVolume,
		MinOrderVolume: r.MinOrderVolume,
	}
}
