/*
store.go - Collaborator contracts at the engine boundary

PURPOSE:
  The engine is a library-level domain core: it owns no wire format, file
  format, or transport. These narrow interfaces are everything it consumes
  from the surrounding system.

CONTRACTS:
  Store:          Load/Save/List with optimistic concurrency. Save fails
                  with ErrConflict when a concurrent write raced this one;
                  the caller reloads and retries. Never silently overwrites.
  IDGenerator:    Injected id source for ledgers, items, and payments, so
                  tests can supply deterministic ids.
  NumberSequence: Supplies unique invoice numbers at creation time. The
                  engine only enforces immutability after assignment, not
                  a generation strategy.
  Notifier:       Consumes ReminderPolicy output; the engine never calls
                  email/SMS/social APIs directly.

APPEND-ONLY PAYMENTS:
  Implementations persist payments append-only: existing entries are never
  updated or deleted, new entries are only added at the end. The sqlite
  store enforces this with an insert-only payments table.

IMPLEMENTATIONS:
  - store/memory: In-memory store for tests and development
  - store/sqlite: Production SQLite store

SEE ALSO:
  - service.go: Orchestration built on these contracts
*/
package invoice

import "context"

// =============================================================================
// PERSISTENCE
// =============================================================================

// ListFilter narrows a Store.List call.
type ListFilter struct {
	// Statuses restricts results to these statuses. Empty means all.
	Statuses []Status
}

// Matches reports whether a ledger passes the filter.
func (f ListFilter) Matches(l *Ledger) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if l.Status == s {
			return true
		}
	}
	return false
}

// Store persists ledgers with optimistic concurrency.
type Store interface {
	// Load returns the ledger with the given id, or ErrNotFound.
	// The returned ledger has freshly recomputed aggregates.
	Load(ctx context.Context, id string) (*Ledger, error)

	// Save persists the ledger. A ledger with Version 0 is inserted
	// (ErrDuplicateNumber if the number is taken); otherwise the stored
	// version must match or Save fails with ErrConflict. On success the
	// ledger's Version is advanced.
	Save(ctx context.Context, l *Ledger) error

	// List returns ledgers matching the filter, ordered by number.
	List(ctx context.Context, filter ListFilter) ([]*Ledger, error)
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// IDGenerator supplies ids for ledgers and their sub-entities.
type IDGenerator interface {
	NewID() string
}

// NumberSequence supplies unique invoice numbers.
type NumberSequence interface {
	Next(ctx context.Context) (string, error)
}

// Notifier delivers payment reminders decided by ReminderPolicy.
type Notifier interface {
	PaymentReminder(ctx context.Context, l *Ledger) error
}
