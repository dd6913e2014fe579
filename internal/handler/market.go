package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ticksim/internal/service"
)

// MarketHandler handles HTTP requests for instrument and depth endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// Instruments handles GET /instruments.
func (h *MarketHandler) Instruments(w http.ResponseWriter, r *http.Request) {
	refs := h.marketSvc.Instruments()
	views := make([]instrumentView, 0, len(refs))
	for _, ref := range refs {
		views = append(views, newInstrumentView(ref))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"instruments": views})
}

// Depth handles GET /instruments/{instrument_id}/depth.
func (h *MarketHandler) Depth(w http.ResponseWriter, r *http.Request) {
	snap, err := h.marketSvc.Depth(chi.URLParam(r, "instrument_id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, newDepthView(snap))
}
