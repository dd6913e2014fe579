package notify

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"ticksim/internal/domain"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	l, err := r.Register("client-1", "http://localhost:9000/hook")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.ClientID != "client-1" {
		t.Errorf("unexpected listener: %+v", l)
	}

	// Re-registering replaces the endpoint.
	if _, err := r.Register("client-1", "https://example.com/hook"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := r.Get("client-1")
	if !ok || got.URL != "https://example.com/hook" {
		t.Errorf("expected replaced URL, got %+v", got)
	}
	if len(r.List()) != 1 {
		t.Errorf("expected 1 listener, got %d", len(r.List()))
	}
}

func TestRegistryRegisterInvalid(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name     string
		clientID string
		url      string
	}{
		{"empty client", "", "http://localhost/hook"},
		{"relative url", "c", "/hook"},
		{"bad scheme", "c", "ftp://host/hook"},
		{"not a url", "c", "::::"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Register(tt.clientID, tt.url)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Register("client-1", "http://localhost/hook"); err != nil {
		t.Fatal(err)
	}
	if err := r.Remove("client-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Remove("client-1"); !errors.Is(err, domain.ErrListenerNotFound) {
		t.Errorf("expected ErrListenerNotFound, got %v", err)
	}
}

func TestDispatcherPostsEvents(t *testing.T) {
	var (
		mu       sync.Mutex
		received []eventPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		var p eventPayload
		if err := json.Unmarshal(body, &p); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	registry := NewRegistry()
	if _, err := registry.Register("client-1", srv.URL); err != nil {
		t.Fatal(err)
	}
	d := NewDispatcher(zap.NewNop(), registry, time.Second)

	req := d.Requester("client-1")
	req.OnTrade(&domain.Trade{TradeID: "t1", InstrumentID: "X0001", Volume: 11})
	req.OnOrderStatus(&domain.OrderStatusEntry{Status: domain.OrderStatusPartiallyFilled})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	if received[0].Event != "trade.executed" {
		t.Errorf("expected trade.executed first, got %s", received[0].Event)
	}
	if received[1].Event != "order.status" {
		t.Errorf("expected order.status second, got %s", received[1].Event)
	}
}

func TestDispatcherNoListenerNoTraffic(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits++
	}))
	defer srv.Close()

	d := NewDispatcher(zap.NewNop(), NewRegistry(), time.Second)
	d.Requester("nobody").OnTrade(&domain.Trade{TradeID: "t1"})
	if hits != 0 {
		t.Errorf("expected no delivery, got %d", hits)
	}
}

func TestDispatcherSurvivesDeadListener(t *testing.T) {
	registry := NewRegistry()
	// Nothing listens here; delivery fails and is swallowed.
	if _, err := registry.Register("client-1", "http://127.0.0.1:1/hook"); err != nil {
		t.Fatal(err)
	}
	d := NewDispatcher(zap.NewNop(), registry, 100*time.Millisecond)
	d.Requester("client-1").OnTrade(&domain.Trade{TradeID: "t1"})
}
