// Package memory provides in-memory Store and NumberSequence
// implementations (for testing/dev).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/invoice-engine/invoice"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu      sync.RWMutex
	ledgers map[string]*invoice.Ledger
	numbers map[string]string // number -> ledger id
}

var (
	_ invoice.Store          = (*Store)(nil)
	_ invoice.NumberSequence = (*Sequence)(nil)
)

func NewStore() *Store {
	return &Store{
		ledgers: make(map[string]*invoice.Ledger),
		numbers: make(map[string]string),
	}
}

// Load returns a deep copy so callers can never mutate stored state
// without going through Save.
func (s *Store) Load(_ context.Context, id string) (*invoice.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.ledgers[id]
	if !ok {
		return nil, invoice.ErrNotFound
	}
	out := clone(l)
	out.Recompute()
	return out, nil
}

// Save inserts (Version 0) or updates with an optimistic version check.
func (s *Store) Save(_ context.Context, l *invoice.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.ledgers[l.ID]
	if l.Version == 0 {
		if ok {
			return invoice.ErrConflict
		}
		if _, taken := s.numbers[l.Number]; taken {
			return invoice.ErrDuplicateNumber
		}
		l.Version = 1
	} else {
		if !ok {
			return invoice.ErrNotFound
		}
		if existing.Version != l.Version {
			return invoice.ErrConflict
		}
		l.Version++
	}

	s.ledgers[l.ID] = clone(l)
	s.numbers[l.Number] = l.ID
	return nil
}

// List returns matching ledgers ordered by number.
func (s *Store) List(_ context.Context, filter invoice.ListFilter) ([]*invoice.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*invoice.Ledger
	for _, l := range s.ledgers {
		if filter.Matches(l) {
			out := clone(l)
			out.Recompute()
			result = append(result, out)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func clone(l *invoice.Ledger) *invoice.Ledger {
	out := *l
	out.Items = append([]invoice.LineItem(nil), l.Items...)
	out.Payments = append([]invoice.Payment(nil), l.Payments...)
	return &out
}

// =============================================================================
// NUMBER SEQUENCE
// =============================================================================

// Sequence issues invoice numbers like "INV-0001".
type Sequence struct {
	mu     sync.Mutex
	Prefix string
	next   int64
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{Prefix: prefix}
}

func (q *Sequence) Next(_ context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	prefix := q.Prefix
	if prefix == "" {
		prefix = "INV"
	}
	return fmt.Sprintf("%s-%04d", prefix, q.next), nil
}
