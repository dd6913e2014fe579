// Package store holds the in-memory stores for orders and trades. Nothing
// is persisted: the simulated exchange starts empty on every run.
package store

import (
	"fmt"
	"sync"

	"ticksim/internal/domain"
)

// OrderStore is a thread-safe store for orders with a primary index by
// system id and a secondary index by client key. Both keys always resolve
// to the same record. Terminal orders are retained; nothing is evicted.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order    // system id → order
	refs   map[domain.ClientKey]string // client key → system id
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[string]*domain.Order),
		refs:   make(map[domain.ClientKey]string),
	}
}

// PutIfAbsent inserts the order into both indices. The check and insert
// happen under one lock, so the first submission with a given client key
// wins and a duplicate returns domain.ErrDuplicateOrderRef with no state
// change.
func (s *OrderStore) PutIfAbsent(o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refs[o.ClientKey]; ok {
		return fmt.Errorf("%s: %w", o.ClientKey, domain.ErrDuplicateOrderRef)
	}
	s.refs[o.ClientKey] = o.SystemID
	s.orders[o.SystemID] = o
	return nil
}

// BySystemID retrieves an order by its engine-assigned system id.
func (s *OrderStore) BySystemID(systemID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[systemID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", systemID, domain.ErrOrderNotFound)
	}
	return o, nil
}

// ByClientKey retrieves an order by its caller-assigned key.
func (s *OrderStore) ByClientKey(key domain.ClientKey) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sysID, ok := s.refs[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrOrderNotFound)
	}
	return s.orders[sysID], nil
}

// Snapshot returns a copied slice of all orders. Callers may range over it
// while submissions continue concurrently; orders inserted after the call
// are simply not part of this sweep.
func (s *OrderStore) Snapshot() []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out
}

// ByClient returns all orders submitted under the given client id.
func (s *OrderStore) ByClient(clientID string) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Order, 0)
	for _, o := range s.orders {
		if o.ClientID == clientID {
			out = append(out, o)
		}
	}
	return out
}

// Len returns the number of stored orders.
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
