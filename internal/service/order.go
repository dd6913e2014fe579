package service

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"go.uber.org/zap"

	"ticksim/internal/domain"
	"ticksim/internal/engine"
	"ticksim/internal/notify"
	"ticksim/internal/refdata"
	"ticksim/internal/store"
)

var (
	orderRefRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,32}$`)
	clientIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
)

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	OrderRef     string
	FrontID      int
	SessionID    int
	InstrumentID string
	Direction    domain.Direction
	LimitPrice   float64
	Volume       int64
	ClientID     string
	InvestorID   string
}

// CancelOrderRequest identifies an order to cancel by system id or by
// client key.
type CancelOrderRequest struct {
	SystemID  string
	OrderRef  string
	FrontID   int
	SessionID int
}

// OrderService handles order submission, cancellation, and queries.
type OrderService struct {
	log      *zap.Logger
	eng      *engine.MatchingEngine
	ref      *refdata.Store
	orders   *store.OrderStore
	trades   *store.TradeStore
	dispatch *notify.Dispatcher
}

// NewOrderService creates an OrderService with the given dependencies.
func NewOrderService(
	log *zap.Logger,
	eng *engine.MatchingEngine,
	ref *refdata.Store,
	orders *store.OrderStore,
	trades *store.TradeStore,
	dispatch *notify.Dispatcher,
) *OrderService {
	return &OrderService{
		log:      log.Named("orders"),
		eng:      eng,
		ref:      ref,
		orders:   orders,
		trades:   trades,
		dispatch: dispatch,
	}
}

// Submit validates the request and hands the order to the matching engine.
// The order's events go to the client's registered listener, if any.
func (s *OrderService) Submit(req SubmitOrderRequest) (*domain.Order, error) {
	if req.Direction != domain.DirectionBuy && req.Direction != domain.DirectionSell {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("unknown direction: %q, must be one of: buy, sell", req.Direction),
		}
	}
	if !orderRefRegex.MatchString(req.OrderRef) {
		return nil, &domain.ValidationError{Message: "order_ref must match ^[a-zA-Z0-9_-]{1,32}$"}
	}
	if !clientIDRegex.MatchString(req.ClientID) {
		return nil, &domain.ValidationError{Message: "client_id must match ^[a-zA-Z0-9_-]{1,64}$"}
	}

	ref, err := s.ref.Lookup(req.InstrumentID)
	if err != nil {
		return nil, err
	}
	if req.Volume < ref.MinOrderVolume || req.Volume > ref.MaxOrderVolume {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("volume must be within [%d, %d]", ref.MinOrderVolume, ref.MaxOrderVolume),
		}
	}
	if req.LimitPrice <= 0 {
		return nil, &domain.ValidationError{Message: "limit_price must be > 0"}
	}
	if !tickAligned(req.LimitPrice, ref.PriceTick) {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("limit_price must be a multiple of the price tick %g", ref.PriceTick),
		}
	}

	key := domain.ClientKey{OrderRef: req.OrderRef, FrontID: req.FrontID, SessionID: req.SessionID}
	_, err = s.eng.Submit(engine.Submission{
		ClientKey:    key,
		InstrumentID: req.InstrumentID,
		Direction:    req.Direction,
		LimitPrice:   req.LimitPrice,
		Volume:       req.Volume,
		ClientID:     req.ClientID,
		InvestorID:   req.InvestorID,
	}, s.dispatch.Requester(req.ClientID))
	if err != nil {
		return nil, err
	}
	return s.orders.ByClientKey(key)
}

// Cancel validates the request and cancels the target order.
func (s *OrderService) Cancel(req CancelOrderRequest) (*domain.Order, error) {
	if req.SystemID == "" && req.OrderRef == "" {
		return nil, &domain.ValidationError{Message: "either system_id or order_ref is required"}
	}
	act := engine.CancelAction{
		SystemID:  req.SystemID,
		ClientKey: domain.ClientKey{OrderRef: req.OrderRef, FrontID: req.FrontID, SessionID: req.SessionID},
	}
	if _, err := s.eng.Cancel(act); err != nil {
		return nil, err
	}
	return s.eng.Order(act)
}

// Order retrieves an order by system id.
func (s *OrderService) Order(systemID string) (*domain.Order, error) {
	return s.orders.BySystemID(systemID)
}

// OrdersByClient lists the orders a client has submitted.
func (s *OrderService) OrdersByClient(clientID string) []*domain.Order {
	return s.orders.ByClient(clientID)
}

// Trades returns the instrument's fills executed in [from, to); zero
// bounds are open.
func (s *OrderService) Trades(instrumentID string, from, to time.Time) ([]*domain.Trade, error) {
	if _, err := s.ref.Lookup(instrumentID); err != nil {
		return nil, err
	}
	return s.trades.Range(instrumentID, from, to), nil
}

// tickAligned reports whether price is a whole number of ticks, within a
// small tolerance for float representation.
func tickAligned(price, tick float64) bool {
	if tick <= 0 {
		return true
	}
	steps := price / tick
	return math.Abs(steps-math.Round(steps)) < 1e-9
}
