// Package engine implements the order lifecycle and the matching of
// resting orders against the latest market-depth snapshot.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ticksim/internal/domain"
	"ticksim/internal/store"
)

// DefaultFillCap is the maximum volume an order trades in a single match
// event, modeling finite liquidity per tick. Large orders fill across
// multiple ticks.
const DefaultFillCap = 11

// Requester receives the asynchronous events an order produces: fills and
// status transitions. Methods are invoked synchronously by the goroutine
// performing the submit, cancel, or matching sweep. Rejections are not
// delivered here; they are the structured errors returned by Submit and
// Cancel.
type Requester interface {
	OnTrade(*domain.Trade)
	OnOrderStatus(*domain.OrderStatusEntry)
}

// Submission carries the caller-supplied terms of a new order.
type Submission struct {
	ClientKey    domain.ClientKey
	InstrumentID string
	Direction    domain.Direction
	LimitPrice   float64
	Volume       int64
	ClientID     string
	InvestorID   string
}

// CancelAction identifies the order to cancel, by system id when supplied,
// otherwise by client key.
type CancelAction struct {
	SystemID  string
	ClientKey domain.ClientKey
}

// MatchingEngine accepts and cancels orders and fills them against the
// latest snapshot per instrument. It consumes snapshots as a scheduler
// subscriber; Submit and Cancel run on caller goroutines concurrently with
// the sweep, so the snapshot cache and order indices use per-key
// thread-safe operations and status transitions are serialized by a single
// short-lived mutex.
type MatchingEngine struct {
	log     *zap.Logger
	orders  *store.OrderStore
	trades  *store.TradeStore
	fillCap int64

	seq        atomic.Uint64
	depths     sync.Map // instrument id → *domain.MarketDepthSnapshot
	requesters sync.Map // system id → Requester

	// mu serializes the read-check-append transitions on order histories;
	// the order's own lock makes individual reads safe off this mutex.
	// mu is never held while requester callbacks run, so a callback may
	// safely call back into the engine.
	mu sync.Mutex
}

// NewMatchingEngine creates an engine writing into the given stores.
// A non-positive fillCap falls back to DefaultFillCap.
func NewMatchingEngine(log *zap.Logger, orders *store.OrderStore, trades *store.TradeStore, fillCap int64) *MatchingEngine {
	if fillCap <= 0 {
		fillCap = DefaultFillCap
	}
	return &MatchingEngine{
		log:     log.Named("engine"),
		orders:  orders,
		trades:  trades,
		fillCap: fillCap,
	}
}

// event is one fill's outgoing notification pair, dispatched after locks
// are released.
type event struct {
	req   Requester
	trade *domain.Trade
	entry *domain.OrderStatusEntry
}

// Submit accepts a new order. A client key already present rejects with
// domain.ErrDuplicateOrderRef and mutates nothing. On acceptance the order
// enters both indices with an initial accepted entry, and is immediately
// matched against the cached snapshot for its instrument if one exists.
// The returned entry is the order's current state after the submit,
// including any immediate fills.
func (e *MatchingEngine) Submit(sub Submission, req Requester) (*domain.OrderStatusEntry, error) {
	now := time.Now()
	accepted := &domain.OrderStatusEntry{
		Status:          domain.OrderStatusAccepted,
		TradedVolume:    0,
		RemainingVolume: sub.Volume,
		Message:         "order accepted",
		Timestamp:       now,
	}
	order := &domain.Order{
		SystemID:     e.nextSystemID(),
		ClientKey:    sub.ClientKey,
		InstrumentID: sub.InstrumentID,
		Direction:    sub.Direction,
		LimitPrice:   sub.LimitPrice,
		Volume:       sub.Volume,
		ClientID:     sub.ClientID,
		InvestorID:   sub.InvestorID,
		CreatedAt:    now,
		History:      []*domain.OrderStatusEntry{accepted},
	}

	if err := e.orders.PutIfAbsent(order); err != nil {
		return nil, err
	}
	if req != nil {
		e.requesters.Store(order.SystemID, req)
		req.OnOrderStatus(accepted)
	}
	e.log.Info("order accepted",
		zap.String("system_id", order.SystemID),
		zap.String("client_key", order.ClientKey.String()),
		zap.String("instrument", order.InstrumentID))

	// Trade right away if the market already allows it.
	if snap, ok := e.depths.Load(order.InstrumentID); ok {
		e.mu.Lock()
		events := e.matchOrder(order, snap.(*domain.MarketDepthSnapshot))
		e.mu.Unlock()
		e.dispatch(events)
	}

	last, err := order.Last()
	if err != nil {
		return nil, err
	}
	return last, nil
}

// Cancel resolves the target order and appends a canceled entry unless the
// order is already terminal. The canceled entry keeps the traded and
// remaining volumes of the last state, so volume conservation holds across
// the whole history.
func (e *MatchingEngine) Cancel(act CancelAction) (*domain.OrderStatusEntry, error) {
	var (
		order *domain.Order
		err   error
	)
	if act.SystemID != "" {
		order, err = e.orders.BySystemID(act.SystemID)
	} else {
		order, err = e.orders.ByClientKey(act.ClientKey)
	}
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	last, err := order.Last()
	if err != nil {
		e.mu.Unlock()
		e.log.Error("order has empty status history", zap.String("system_id", order.SystemID))
		return nil, err
	}
	if last.Status.Terminal() {
		e.mu.Unlock()
		return nil, fmt.Errorf("order %s is %s: %w",
			order.SystemID, last.Status, domain.ErrInvalidOrderStatus)
	}
	entry := &domain.OrderStatusEntry{
		Status:          domain.OrderStatusCanceled,
		TradedVolume:    last.TradedVolume,
		RemainingVolume: last.RemainingVolume,
		Message:         "order canceled",
		Timestamp:       time.Now(),
	}
	order.Append(entry)
	e.mu.Unlock()

	e.log.Info("order canceled", zap.String("system_id", order.SystemID))
	if req, ok := e.requesters.Load(order.SystemID); ok {
		req.(Requester).OnOrderStatus(entry)
	}
	return entry, nil
}

// Order resolves an order by system id when supplied, else by client key.
func (e *MatchingEngine) Order(act CancelAction) (*domain.Order, error) {
	if act.SystemID != "" {
		return e.orders.BySystemID(act.SystemID)
	}
	return e.orders.ByClientKey(act.ClientKey)
}

// OnSnapshot caches the snapshot as the instrument's latest market state
// and sweeps all non-terminal orders for that instrument. Implements the
// scheduler's subscriber contract; runs on the engine's worker goroutine.
func (e *MatchingEngine) OnSnapshot(snap *domain.MarketDepthSnapshot) {
	e.depths.Store(snap.InstrumentID, snap)

	var events []event
	e.mu.Lock()
	for _, order := range e.orders.Snapshot() {
		if order.InstrumentID != snap.InstrumentID {
			continue
		}
		events = append(events, e.matchOrder(order, snap)...)
	}
	e.mu.Unlock()
	e.dispatch(events)
}

// Depth returns the latest cached snapshot for an instrument, if any.
func (e *MatchingEngine) Depth(instrumentID string) (*domain.MarketDepthSnapshot, bool) {
	v, ok := e.depths.Load(instrumentID)
	if !ok {
		return nil, false
	}
	return v.(*domain.MarketDepthSnapshot), true
}

// matchOrder attempts one match event for the order against the snapshot's
// top of book. Caller holds e.mu. A buy matches when its limit reaches the
// best ask and fills at the ask; a sell matches when its limit reaches the
// best bid and fills at the bid. Fill volume is capped so large orders
// fill across ticks. Every resting order matches independently against top
// of book; orders never compete for the same liquidity.
func (e *MatchingEngine) matchOrder(order *domain.Order, snap *domain.MarketDepthSnapshot) []event {
	last, err := order.Last()
	if err != nil {
		// Defect in this one record; skip it without touching others.
		e.log.Error("order has empty status history, skipping",
			zap.String("system_id", order.SystemID))
		return nil
	}
	if last.Status.Terminal() {
		return nil
	}
	if last.RemainingVolume <= 0 {
		panic(fmt.Sprintf("engine: non-terminal order %s has remaining volume %d",
			order.SystemID, last.RemainingVolume))
	}

	var price float64
	switch order.Direction {
	case domain.DirectionBuy:
		if order.LimitPrice < snap.AskPrice {
			return nil
		}
		price = snap.AskPrice
	default:
		if order.LimitPrice > snap.BidPrice {
			return nil
		}
		price = snap.BidPrice
	}

	volume := last.RemainingVolume
	if volume > e.fillCap {
		volume = e.fillCap
	}
	now := time.Now()
	trade := &domain.Trade{
		TradeID:      uuid.New().String(),
		SystemID:     order.SystemID,
		OrderRef:     order.ClientKey.OrderRef,
		InstrumentID: order.InstrumentID,
		Direction:    order.Direction,
		Price:        price,
		Volume:       volume,
		ExecutedAt:   now,
	}
	entry := &domain.OrderStatusEntry{
		TradedVolume:    last.TradedVolume + volume,
		RemainingVolume: last.RemainingVolume - volume,
		Timestamp:       now,
	}
	if entry.RemainingVolume > 0 {
		entry.Status = domain.OrderStatusPartiallyFilled
		entry.Message = "partially filled"
	} else {
		entry.Status = domain.OrderStatusFilled
		entry.Message = "fully filled"
	}
	order.Append(entry)
	e.trades.Append(trade)

	e.log.Debug("order filled",
		zap.String("system_id", order.SystemID),
		zap.Float64("price", price),
		zap.Int64("volume", volume),
		zap.String("status", string(entry.Status)))

	var req Requester
	if v, ok := e.requesters.Load(order.SystemID); ok {
		req = v.(Requester)
	}
	return []event{{req: req, trade: trade, entry: entry}}
}

// dispatch delivers each fill's trade then status entry, in that order, to
// the order's originating requester. Runs outside the engine mutex.
func (e *MatchingEngine) dispatch(events []event) {
	for _, ev := range events {
		if ev.req == nil {
			continue
		}
		ev.req.OnTrade(ev.trade)
		ev.req.OnOrderStatus(ev.entry)
	}
}

// nextSystemID returns the next order system id from a process-wide
// monotonic counter.
func (e *MatchingEngine) nextSystemID() string {
	return fmt.Sprintf("%012d", e.seq.Add(1))
}
