/*
service.go - Orchestration over Store with per-ledger serialization

PURPOSE:
  Service wires the engine to its collaborators: it loads a ledger,
  applies exactly one mutation, and saves it back. All state-changing
  operations on a given ledger id execute under a per-id mutex, so two
  concurrent payments can never both compute amountDue from a stale
  snapshot and double-credit a paid transition.

CONCURRENCY MODEL:
  - Same ledger id: serialized (per-id lock in-process, optimistic
    version check at the store for cross-process races).
  - Different ledger ids: fully independent, proceed in parallel.
  - ErrConflict from Save propagates to the caller, who reloads and
    retries; in-process callers won't see it thanks to the lock.

SEE ALSO:
  - store.go: The collaborator contracts
  - ledger.go: The mutations being orchestrated
*/
package invoice

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUTS
// =============================================================================

// ItemInput is a line item before the engine assigns its id.
type ItemInput struct {
	Description string
	Quantity    int64
	UnitPrice   Money
	VATRate     decimal.Decimal
}

// PaymentInput is a payment before the engine assigns its id.
type PaymentInput struct {
	Amount    Money
	Date      time.Time
	Method    PaymentMethod
	Reference string
}

// =============================================================================
// SERVICE
// =============================================================================

// Service orchestrates ledger mutations against a Store.
type Service struct {
	Store   Store
	IDs     IDGenerator
	Numbers NumberSequence

	// Now is the clock used for issue dates, overdue checks, and reversal
	// timestamps. Defaults to time.Now; tests inject a fixed clock.
	Now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a service with the given collaborators.
func NewService(store Store, ids IDGenerator, numbers NumberSequence) *Service {
	return &Service{
		Store:   store,
		IDs:     ids,
		Numbers: numbers,
		Now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Service) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// mutate runs fn on a freshly loaded ledger under the per-id lock and
// saves the result. If fn fails, nothing is saved.
func (s *Service) mutate(ctx context.Context, id string, fn func(*Ledger) error) (*Ledger, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	l, err := s.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(l); err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Create opens an empty draft ledger with a number from the numbering
// collaborator.
func (s *Service) Create(ctx context.Context, currency string, dueDate time.Time) (*Ledger, error) {
	number, err := s.Numbers.Next(ctx)
	if err != nil {
		return nil, err
	}
	l := NewLedger(s.IDs.NewID(), number, currency, dueDate)
	if err := s.Store.Save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Get returns a ledger by id.
func (s *Service) Get(ctx context.Context, id string) (*Ledger, error) {
	return s.Store.Load(ctx, id)
}

// List returns ledgers matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Ledger, error) {
	return s.Store.List(ctx, filter)
}

// AddItem appends a line item to a draft ledger.
func (s *Service) AddItem(ctx context.Context, ledgerID string, in ItemInput) (*Ledger, error) {
	item, err := NewLineItem(s.IDs.NewID(), in.Description, in.Quantity, in.UnitPrice, in.VATRate)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, ledgerID, func(l *Ledger) error {
		return l.AddItem(item)
	})
}

// RemoveItem deletes a line item from a draft ledger.
func (s *Service) RemoveItem(ctx context.Context, ledgerID, itemID string) (*Ledger, error) {
	return s.mutate(ctx, ledgerID, func(l *Ledger) error {
		return l.RemoveItem(itemID)
	})
}

// Finalize issues a draft ledger, recording the acting user.
func (s *Service) Finalize(ctx context.Context, ledgerID, actor string) (*Ledger, error) {
	return s.mutate(ctx, ledgerID, func(l *Ledger) error {
		return l.Finalize(s.Now(), actor)
	})
}

// Cancel cancels a draft or sent ledger, recording the acting user.
func (s *Service) Cancel(ctx context.Context, ledgerID, actor string) (*Ledger, error) {
	return s.mutate(ctx, ledgerID, func(l *Ledger) error {
		return l.Cancel(actor)
	})
}

// RecordPayment applies a payment to a sent or overdue ledger.
func (s *Service) RecordPayment(ctx context.Context, ledgerID string, in PaymentInput) (*Ledger, error) {
	p := Payment{
		ID:        s.IDs.NewID(),
		Amount:    in.Amount,
		Date:      in.Date,
		Method:    in.Method,
		Reference: in.Reference,
	}
	if p.Date.IsZero() {
		p.Date = s.Now()
	}
	return s.mutate(ctx, ledgerID, func(l *Ledger) error {
		return l.RecordPayment(p)
	})
}

// ReversePayment appends a reversal entry undoing an earlier payment.
func (s *Service) ReversePayment(ctx context.Context, ledgerID, paymentID string) (*Ledger, error) {
	reversalID := s.IDs.NewID()
	return s.mutate(ctx, ledgerID, func(l *Ledger) error {
		return (PaymentRecorder{}).Reverse(l, reversalID, paymentID, s.Now())
	})
}

// MarkOverdue applies the past-due check to one ledger.
func (s *Service) MarkOverdue(ctx context.Context, ledgerID string) (*Ledger, error) {
	return s.mutate(ctx, ledgerID, func(l *Ledger) error {
		return l.MarkOverdueIfPastDue(s.Now())
	})
}

// SweepOverdue applies the past-due check to every sent ledger and
// returns how many transitioned to overdue.
func (s *Service) SweepOverdue(ctx context.Context) (int, error) {
	open, err := s.Store.List(ctx, ListFilter{Statuses: []Status{StatusSent}})
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, l := range open {
		updated, err := s.MarkOverdue(ctx, l.ID)
		if err != nil {
			return moved, err
		}
		if updated.Status == StatusOverdue {
			moved++
		}
	}
	return moved, nil
}
