package store

import (
	"sync"
	"time"

	"github.com/google/btree"

	"ticksim/internal/domain"
)

// tradeLess orders trades by execution time ascending, then trade id, so
// Ascend walks the fill history chronologically and range queries by time
// are O(log n) seeks.
func tradeLess(a, b *domain.Trade) bool {
	if !a.ExecutedAt.Equal(b.ExecutedAt) {
		return a.ExecutedAt.Before(b.ExecutedAt)
	}
	return a.TradeID < b.TradeID
}

// TradeStore is a thread-safe store of fills, indexed per instrument in
// B-trees ordered by execution time.
type TradeStore struct {
	mu    sync.RWMutex
	trees map[string]*btree.BTreeG[*domain.Trade]
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		trees: make(map[string]*btree.BTreeG[*domain.Trade]),
	}
}

// Append records a fill for its instrument.
func (s *TradeStore) Append(t *domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, ok := s.trees[t.InstrumentID]
	if !ok {
		const degree = 32
		tree = btree.NewG[*domain.Trade](degree, tradeLess)
		s.trees[t.InstrumentID] = tree
	}
	tree.ReplaceOrInsert(t)
}

// ByInstrument returns all trades for an instrument in chronological order.
func (s *TradeStore) ByInstrument(instrumentID string) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree, ok := s.trees[instrumentID]
	if !ok {
		return []*domain.Trade{}
	}
	out := make([]*domain.Trade, 0, tree.Len())
	tree.Ascend(func(t *domain.Trade) bool {
		out = append(out, t)
		return true
	})
	return out
}

// Range returns trades for an instrument executed in [from, to), in
// chronological order. Zero bounds are open: a zero from starts at the
// beginning, a zero to runs to the end.
func (s *TradeStore) Range(instrumentID string, from, to time.Time) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree, ok := s.trees[instrumentID]
	if !ok {
		return []*domain.Trade{}
	}

	out := make([]*domain.Trade, 0)
	collect := func(t *domain.Trade) bool {
		if !to.IsZero() && !t.ExecutedAt.Before(to) {
			return false
		}
		out = append(out, t)
		return true
	}
	if from.IsZero() {
		tree.Ascend(collect)
	} else {
		pivot := &domain.Trade{ExecutedAt: from}
		tree.AscendGreaterOrEqual(pivot, collect)
	}
	return out
}

// Len returns the total number of stored trades across instruments.
func (s *TradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, tree := range s.trees {
		n += tree.Len()
	}
	return n
}
