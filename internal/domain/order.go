package domain

import (
	"fmt"
	"sync"
	"time"
)

// Direction indicates whether an order buys or sells.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusAccepted        OrderStatus = "accepted"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCanceled
}

// ClientKey is the caller-assigned identity of an order. Together with the
// engine-assigned system id it must always resolve to the same order record.
type ClientKey struct {
	OrderRef  string
	FrontID   int
	SessionID int
}

// String renders the key in ref_front_session form for map keys and log lines.
func (k ClientKey) String() string {
	return fmt.Sprintf("%s_%d_%d", k.OrderRef, k.FrontID, k.SessionID)
}

// OrderStatusEntry is one step in an order's status history.
type OrderStatusEntry struct {
	Status          OrderStatus
	TradedVolume    int64
	RemainingVolume int64
	Message         string
	Timestamp       time.Time
}

// Order pairs the immutable submitted terms of an order with its
// append-only status history. The current state of the order is the last
// history entry; the history is never empty once the order exists.
// The matching sweep appends on its own goroutine while callers read, so
// all access after the order is shared goes through Append, Last, and
// Entries; History is written directly only while constructing the order.
type Order struct {
	SystemID     string
	ClientKey    ClientKey
	InstrumentID string
	Direction    Direction
	LimitPrice   float64
	Volume       int64
	ClientID     string
	InvestorID   string
	CreatedAt    time.Time

	mu      sync.RWMutex
	History []*OrderStatusEntry
}

// Append adds a status entry to the history.
func (o *Order) Append(e *OrderStatusEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.History = append(o.History, e)
}

// Last returns the most recent status entry. An order with an empty
// history is a defect; Last surfaces it as ErrEmptyHistory so the caller
// can abort the offending operation without touching other orders.
func (o *Order) Last() (*OrderStatusEntry, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.History) == 0 {
		return nil, fmt.Errorf("order %s: %w", o.SystemID, ErrEmptyHistory)
	}
	return o.History[len(o.History)-1], nil
}

// Entries returns a copy of the status history, safe to range over while
// the matching sweep keeps appending. Entries are immutable once appended,
// so sharing the pointers is fine.
func (o *Order) Entries() []*OrderStatusEntry {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*OrderStatusEntry, len(o.History))
	copy(out, o.History)
	return out
}

// Done reports whether the order has reached a terminal status.
func (o *Order) Done() (bool, error) {
	last, err := o.Last()
	if err != nil {
		return false, err
	}
	return last.Status.Terminal(), nil
}
