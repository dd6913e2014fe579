package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ticksim/internal/notify"
)

// ListenerHandler handles HTTP requests for order-event listener
// registration.
type ListenerHandler struct {
	registry *notify.Registry
}

// NewListenerHandler creates a new ListenerHandler.
func NewListenerHandler(registry *notify.Registry) *ListenerHandler {
	return &ListenerHandler{registry: registry}
}

type registerListenerRequest struct {
	ClientID string `json:"client_id"`
	URL      string `json:"url"`
}

type listenerView struct {
	ClientID  string    `json:"client_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Register handles POST /listeners.
func (h *ListenerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerListenerRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	l, err := h.registry.Register(req.ClientID, req.URL)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, listenerView{
		ClientID:  l.ClientID,
		URL:       l.URL,
		CreatedAt: l.CreatedAt,
	})
}

// List handles GET /listeners.
func (h *ListenerHandler) List(w http.ResponseWriter, r *http.Request) {
	listeners := h.registry.List()
	views := make([]listenerView, 0, len(listeners))
	for _, l := range listeners {
		views = append(views, listenerView{
			ClientID:  l.ClientID,
			URL:       l.URL,
			CreatedAt: l.CreatedAt,
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"listeners": views})
}

// Delete handles DELETE /listeners/{client_id}.
func (h *ListenerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Remove(chi.URLParam(r, "client_id")); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
