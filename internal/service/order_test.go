package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"ticksim/internal/domain"
	"ticksim/internal/engine"
	"ticksim/internal/notify"
	"ticksim/internal/refdata"
	"ticksim/internal/store"
)

func newOrderService(t *testing.T) (*OrderService, *engine.MatchingEngine) {
	t.Helper()
	log := zap.NewNop()
	ref := refdata.NewStore()
	orders := store.NewOrderStore()
	trades := store.NewTradeStore()
	eng := engine.NewMatchingEngine(log, orders, trades, engine.DefaultFillCap)
	dispatch := notify.NewDispatcher(log, notify.NewRegistry(), time.Second)
	return NewOrderService(log, eng, ref, orders, trades, dispatch), eng
}

func validSubmit() SubmitOrderRequest {
	return SubmitOrderRequest{
		OrderRef:     "ref1",
		FrontID:      1,
		SessionID:    1,
		InstrumentID: "X0001",
		Direction:    domain.DirectionBuy,
		LimitPrice:   1339,
		Volume:       10,
		ClientID:     "client-1",
	}
}

func TestSubmitHappyPath(t *testing.T) {
	svc, _ := newOrderService(t)

	order, err := svc.Submit(validSubmit())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.SystemID == "" {
		t.Error("expected a system id")
	}
	last, err := order.Last()
	if err != nil {
		t.Fatal(err)
	}
	if last.Status != domain.OrderStatusAccepted {
		t.Errorf("expected accepted, got %s", last.Status)
	}

	got, err := svc.Order(order.SystemID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != order {
		t.Error("Order returned a different record")
	}
	if list := svc.OrdersByClient("client-1"); len(list) != 1 {
		t.Errorf("expected 1 order for client, got %d", len(list))
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _ := newOrderService(t)

	tests := []struct {
		name   string
		mutate func(*SubmitOrderRequest)
		want   string
	}{
		{"bad direction", func(r *SubmitOrderRequest) { r.Direction = "hold" }, "direction"},
		{"empty ref", func(r *SubmitOrderRequest) { r.OrderRef = "" }, "order_ref"},
		{"ref too long", func(r *SubmitOrderRequest) { r.OrderRef = strings.Repeat("a", 33) }, "order_ref"},
		{"ref bad chars", func(r *SubmitOrderRequest) { r.OrderRef = "has space" }, "order_ref"},
		{"empty client", func(r *SubmitOrderRequest) { r.ClientID = "" }, "client_id"},
		{"zero volume", func(r *SubmitOrderRequest) { r.Volume = 0 }, "volume"},
		{"huge volume", func(r *SubmitOrderRequest) { r.Volume = 1000000 }, "volume"},
		{"zero price", func(r *SubmitOrderRequest) { r.LimitPrice = 0 }, "limit_price"},
		{"negative price", func(r *SubmitOrderRequest) { r.LimitPrice = -5 }, "limit_price"},
		{"off-tick price", func(r *SubmitOrderRequest) { r.LimitPrice = 1339.3 }, "price tick"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSubmit()
			tt.mutate(&req)
			_, err := svc.Submit(req)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !strings.Contains(verr.Message, tt.want) {
				t.Errorf("expected message mentioning %q, got %q", tt.want, verr.Message)
			}
		})
	}

	req := validSubmit()
	req.InstrumentID = "nope"
	if _, err := svc.Submit(req); !errors.Is(err, domain.ErrUnknownInstrument) {
		t.Errorf("expected ErrUnknownInstrument, got %v", err)
	}
}

func TestSubmitTickAlignmentPerInstrument(t *testing.T) {
	svc, _ := newOrderService(t)

	// X0002 has a 0.5 tick: 2340.5 is aligned, 2340.3 is not.
	req := validSubmit()
	req.InstrumentID = "X0002"
	req.LimitPrice = 2340.5
	if _, err := svc.Submit(req); err != nil {
		t.Errorf("expected half-tick price accepted: %v", err)
	}

	req.OrderRef = "ref2"
	req.LimitPrice = 2340.3
	var verr *domain.ValidationError
	if _, err := svc.Submit(req); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for off-tick price, got %v", err)
	}
}

func TestSubmitDuplicate(t *testing.T) {
	svc, _ := newOrderService(t)

	if _, err := svc.Submit(validSubmit()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Submit(validSubmit()); !errors.Is(err, domain.ErrDuplicateOrderRef) {
		t.Errorf("expected ErrDuplicateOrderRef, got %v", err)
	}
}

func TestCancelRequests(t *testing.T) {
	svc, _ := newOrderService(t)

	order, err := svc.Submit(validSubmit())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Cancel(CancelOrderRequest{}); err == nil {
		t.Error("expected validation error for empty cancel request")
	}

	got, err := svc.Cancel(CancelOrderRequest{SystemID: order.SystemID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last, _ := got.Last()
	if last.Status != domain.OrderStatusCanceled {
		t.Errorf("expected canceled, got %s", last.Status)
	}

	// Terminal now; a second cancel is rejected.
	if _, err := svc.Cancel(CancelOrderRequest{SystemID: order.SystemID}); !errors.Is(err, domain.ErrInvalidOrderStatus) {
		t.Errorf("expected ErrInvalidOrderStatus, got %v", err)
	}
}

func TestCancelByRef(t *testing.T) {
	svc, _ := newOrderService(t)

	if _, err := svc.Submit(validSubmit()); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Cancel(CancelOrderRequest{OrderRef: "ref1", FrontID: 1, SessionID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last, _ := got.Last()
	if last.Status != domain.OrderStatusCanceled {
		t.Errorf("expected canceled, got %s", last.Status)
	}
}

func TestTrades(t *testing.T) {
	svc, eng := newOrderService(t)

	if _, err := svc.Trades("nope", time.Time{}, time.Time{}); !errors.Is(err, domain.ErrUnknownInstrument) {
		t.Fatalf("expected ErrUnknownInstrument, got %v", err)
	}

	// Seed a market and fill an order to produce a trade.
	eng.OnSnapshot(&domain.MarketDepthSnapshot{InstrumentID: "X0001", BidPrice: 1340, AskPrice: 1341})
	req := validSubmit()
	req.LimitPrice = 1341
	if _, err := svc.Submit(req); err != nil {
		t.Fatal(err)
	}

	trades, err := svc.Trades("X0001", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].Price != 1341 {
		t.Errorf("expected fill at 1341, got %v", trades[0].Price)
	}
}

func TestTickAligned(t *testing.T) {
	tests := []struct {
		price, tick float64
		want        bool
	}{
		{1340, 1.0, true},
		{1340.5, 1.0, false},
		{2340.5, 0.5, true},
		{2340.3, 0.5, false},
		{100.25, 0.25, true},
		{7, 0, true},
	}
	for _, tt := range tests {
		if got := tickAligned(tt.price, tt.tick); got != tt.want {
			t.Errorf("tickAligned(%v, %v) = %v, want %v", tt.price, tt.tick, got, tt.want)
		}
	}
}
