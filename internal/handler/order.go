package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ticksim/internal/domain"
	"ticksim/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /orders.
type submitOrderRequest struct {
	OrderRef     string  `json:"order_ref"`
	FrontID      int     `json:"front_id"`
	SessionID    int     `json:"session_id"`
	InstrumentID string  `json:"instrument_id"`
	Direction    string  `json:"direction"`
	LimitPrice   float64 `json:"limit_price"`
	Volume       int64   `json:"volume"`
	ClientID     string  `json:"client_id"`
	InvestorID   string  `json:"investor_id"`
}

// Submit handles POST /orders.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := h.orderSvc.Submit(service.SubmitOrderRequest{
		OrderRef:     req.OrderRef,
		FrontID:      req.FrontID,
		SessionID:    req.SessionID,
		InstrumentID: req.InstrumentID,
		Direction:    domain.Direction(req.Direction),
		LimitPrice:   req.LimitPrice,
		Volume:       req.Volume,
		ClientID:     req.ClientID,
		InvestorID:   req.InvestorID,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, newOrderView(order))
}

// Get handles GET /orders/{system_id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.Order(chi.URLParam(r, "system_id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, newOrderView(order))
}

// List handles GET /orders?client_id=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "client_id query parameter is required")
		return
	}
	orders := h.orderSvc.OrdersByClient(clientID)
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"orders": views})
}

// Cancel handles DELETE /orders/{system_id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.Cancel(service.CancelOrderRequest{
		SystemID: chi.URLParam(r, "system_id"),
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, newOrderView(order))
}

// cancelByRefRequest is the JSON request body for POST /orders/cancel,
// cancelling by caller-assigned client key instead of system id.
type cancelByRefRequest struct {
	OrderRef  string `json:"order_ref"`
	FrontID   int    `json:"front_id"`
	SessionID int    `json:"session_id"`
}

// CancelByRef handles POST /orders/cancel.
func (h *OrderHandler) CancelByRef(w http.ResponseWriter, r *http.Request) {
	var req cancelByRefRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	order, err := h.orderSvc.Cancel(service.CancelOrderRequest{
		OrderRef:  req.OrderRef,
		FrontID:   req.FrontID,
		SessionID: req.SessionID,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, newOrderView(order))
}

// Trades handles GET /instruments/{instrument_id}/trades?from=&to= with
// RFC 3339 time bounds.
func (h *OrderHandler) Trades(w http.ResponseWriter, r *http.Request) {
	instrumentID := chi.URLParam(r, "instrument_id")

	var from, to time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", "from must be an RFC 3339 timestamp")
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", "to must be an RFC 3339 timestamp")
			return
		}
		to = t
	}

	trades, err := h.orderSvc.Trades(instrumentID, from, to)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	views := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, newTradeView(t))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"trades": views})
}
