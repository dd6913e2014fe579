// Package notify delivers order events (trades and status transitions) to
// HTTP listeners registered per client id. It is the callback transport
// behind the engine's requester contract for orders submitted over the
// REST facade.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"ticksim/internal/domain"
)

// Listener is one registered callback endpoint.
type Listener struct {
	ClientID  string
	URL       string
	CreatedAt time.Time
}

// Registry is a thread-safe map of client id → listener.
type Registry struct {
	mu        sync.RWMutex
	listeners map[string]*Listener
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{listeners: make(map[string]*Listener)}
}

// Register creates or replaces the listener for a client. The URL must be
// absolute http(s).
func (r *Registry) Register(clientID, rawURL string) (*Listener, error) {
	if clientID == "" {
		return nil, &domain.ValidationError{Message: "client_id is required"}
	}
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, &domain.ValidationError{Message: "url must be a valid absolute http(s) URL"}
	}
	l := &Listener{ClientID: clientID, URL: rawURL, CreatedAt: time.Now()}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[clientID] = l
	return l, nil
}

// Remove deletes the listener for a client.
func (r *Registry) Remove(clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listeners[clientID]; !ok {
		return fmt.Errorf("%s: %w", clientID, domain.ErrListenerNotFound)
	}
	delete(r.listeners, clientID)
	return nil
}

// Get returns the listener for a client, if registered.
func (r *Registry) Get(clientID string) (*Listener, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listeners[clientID]
	return l, ok
}

// List returns all registered listeners.
func (r *Registry) List() []*Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		out = append(out, l)
	}
	return out
}

// Dispatcher posts order events to registered listeners. Delivery failures
// are logged and never propagated into the engine.
type Dispatcher struct {
	log      *zap.Logger
	registry *Registry
	client   *http.Client
}

// NewDispatcher creates a Dispatcher with the given request timeout.
func NewDispatcher(log *zap.Logger, registry *Registry, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		log:      log.Named("notify"),
		registry: registry,
		client:   &http.Client{Timeout: timeout},
	}
}

// Requester returns an engine requester that forwards this client's order
// events to its registered listener. Clients without a listener produce no
// traffic.
func (d *Dispatcher) Requester(clientID string) *ClientRequester {
	return &ClientRequester{d: d, clientID: clientID}
}

// ClientRequester adapts the dispatcher to the engine's requester contract
// for one client.
type ClientRequester struct {
	d        *Dispatcher
	clientID string
}

// OnTrade posts a trade.executed event.
func (c *ClientRequester) OnTrade(t *domain.Trade) {
	c.d.post(c.clientID, "trade.executed", t)
}

// OnOrderStatus posts an order.status event.
func (c *ClientRequester) OnOrderStatus(e *domain.OrderStatusEntry) {
	c.d.post(c.clientID, "order.status", e)
}

type eventPayload struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func (d *Dispatcher) post(clientID, event string, data any) {
	l, ok := d.registry.Get(clientID)
	if !ok {
		return
	}
	body, err := json.Marshal(eventPayload{Event: event, Data: data})
	if err != nil {
		d.log.Error("marshal event", zap.String("event", event), zap.Error(err))
		return
	}
	resp, err := d.client.Post(l.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		d.log.Warn("listener delivery failed",
			zap.String("client_id", clientID),
			zap.String("event", event),
			zap.Error(err))
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		d.log.Warn("listener rejected event",
			zap.String("client_id", clientID),
			zap.String("event", event),
			zap.Int("status", resp.StatusCode))
	}
}
