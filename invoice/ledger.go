/*
ledger.go - The invoice ledger aggregate

PURPOSE:
  Ledger owns an ordered collection of line items and an append-only
  sequence of payments, derives the aggregate totals, and exposes the
  status lifecycle. It is the only type with cross-cutting invariants.

CRITICAL INVARIANTS:
  1. SINGLE RECOMPUTE PATH: every mutator ends in recompute(). Totals can
     never drift from items because no code path rewrites them ad hoc.
  2. TABLE-DRIVEN LIFECYCLE: status only changes through transition().
     No handler or store assigns a status string directly.
  3. ONE CURRENCY: every item and payment shares the ledger currency.
  4. ALL-OR-NOTHING: mutators validate before touching any field. On
     error the ledger is bit-for-bit what it was before the call.
  5. NUMBER IMMUTABILITY: the invoice number is assigned at creation and
     never reassigned.

OVERPAYMENT:
  amountDue is not floored at zero. A negative amountDue is a valid
  credit-balance signal, not an error.

EXAMPLE FLOW:
  led := invoice.NewLedger("led-1", "INV-0001", "EUR", due)
  led.AddItem(item)                 // draft only
  led.Finalize(now, "user-7")       // draft -> sent
  led.RecordPayment(payment)        // sent -> paid when amountDue <= 0
  led.MarkOverdueIfPastDue(now)     // sent -> overdue when past due

SEE ALSO:
  - status.go: The transition table
  - recorder.go: PaymentRecorder, the only path into StatusPaid
  - store.go: Persistence and collaborator contracts
*/
package invoice

import "time"

// =============================================================================
// TOTALS - Derived aggregates, recomputed on every mutation
// =============================================================================

// Totals are the ledger-level derived amounts. They are never edited
// directly; recompute() is the only writer.
type Totals struct {
	Subtotal   Money `json:"subtotal"`
	VATTotal   Money `json:"vat_total"`
	GrandTotal Money `json:"grand_total"`
	AmountPaid Money `json:"amount_paid"`
	AmountDue  Money `json:"amount_due"`
}

// =============================================================================
// LEDGER - Aggregate root
// =============================================================================

// Ledger is the aggregate root representing one invoice: its items,
// payments, and lifecycle status.
type Ledger struct {
	ID       string `json:"id"`
	Number   string `json:"number"` // immutable after assignment
	Currency string `json:"currency"`
	Status   Status `json:"status"`

	IssueDate time.Time `json:"issue_date"` // zero until finalized
	DueDate   time.Time `json:"due_date"`

	Items    []LineItem `json:"items"`
	Payments []Payment  `json:"payments"`
	Totals   Totals     `json:"totals"`

	// Actor ids supplied by the identity collaborator. The engine records
	// them; it performs no authorization checks itself.
	IssuedBy    string `json:"issued_by,omitempty"`
	CancelledBy string `json:"cancelled_by,omitempty"`

	// Version supports optimistic concurrency at the persistence boundary.
	// Zero means the ledger has never been saved.
	Version int64 `json:"version"`
}

// NewLedger creates an empty draft ledger. The number comes from the
// numbering collaborator and is never reassigned.
func NewLedger(id, number, currency string, dueDate time.Time) *Ledger {
	l := &Ledger{
		ID:       id,
		Number:   number,
		Currency: currency,
		Status:   StatusDraft,
		DueDate:  dueDate,
	}
	l.recompute()
	return l
}

// =============================================================================
// ITEM MUTATION - Draft only
// =============================================================================

// AddItem appends a line item. Permitted only in draft; any other status
// fails with ErrLedgerLocked. Aggregates are recomputed synchronously.
func (l *Ledger) AddItem(item LineItem) error {
	if l.Status != StatusDraft {
		return ErrLedgerLocked
	}
	if err := item.validate(); err != nil {
		return err
	}
	if item.UnitPrice.Currency != l.Currency {
		return &CurrencyMismatchError{Want: l.Currency, Got: item.UnitPrice.Currency}
	}
	item.derive()
	l.Items = append(l.Items, item)
	l.recompute()
	return nil
}

// RemoveItem deletes the item with the given id. Permitted only in draft.
func (l *Ledger) RemoveItem(itemID string) error {
	if l.Status != StatusDraft {
		return ErrLedgerLocked
	}
	for i, item := range l.Items {
		if item.ID == itemID {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			l.recompute()
			return nil
		}
	}
	return ErrNotFound
}

// =============================================================================
// LIFECYCLE EVENTS
// =============================================================================

// Finalize moves the ledger from draft to sent, assigning the issue date
// if unset and recording the issuing actor. A ledger with no items fails
// with ErrEmptyInvoice.
func (l *Ledger) Finalize(now time.Time, actor string) error {
	next, err := transition(l.Status, EventFinalize)
	if err != nil {
		return err
	}
	if len(l.Items) == 0 {
		return ErrEmptyInvoice
	}
	if l.IssueDate.IsZero() {
		l.IssueDate = now
	}
	l.IssuedBy = actor
	l.Status = next
	return nil
}

// Cancel moves the ledger to cancelled. Permitted only from draft or sent.
func (l *Ledger) Cancel(actor string) error {
	next, err := transition(l.Status, EventCancel)
	if err != nil {
		return err
	}
	l.CancelledBy = actor
	l.Status = next
	return nil
}

// RecordPayment validates and appends a payment, settling the ledger to
// paid when the open balance reaches zero or below. Delegates to
// PaymentRecorder, the single mutation point for StatusPaid.
func (l *Ledger) RecordPayment(p Payment) error {
	return (PaymentRecorder{}).Record(l, p)
}

// MarkOverdueIfPastDue moves a sent ledger past its due date with an open
// balance to overdue. Idempotent: repeated calls while already overdue, or
// while not yet past due, are no-ops, never errors. Terminal ledgers
// reject the call like any other mutating event.
func (l *Ledger) MarkOverdueIfPastDue(now time.Time) error {
	if l.Status.Terminal() {
		return &TransitionError{From: l.Status, Event: EventPastDue}
	}
	if l.Status != StatusSent {
		return nil
	}
	if !now.After(l.DueDate) || !l.Totals.AmountDue.IsPositive() {
		return nil
	}
	next, err := transition(l.Status, EventPastDue)
	if err != nil {
		return err
	}
	l.Status = next
	return nil
}

// =============================================================================
// RECOMPUTE - The single aggregate derivation path
// =============================================================================

// Recompute re-derives every line item and the ledger totals from first
// inputs. Stores call this after hydration so persisted derived fields can
// never be served stale; mutators call it through recompute().
func (l *Ledger) Recompute() { l.recompute() }

func (l *Ledger) recompute() {
	subtotal := Zero(l.Currency)
	vatTotal := Zero(l.Currency)
	for i := range l.Items {
		l.Items[i].derive()
		subtotal.Amount += l.Items[i].Subtotal.Amount
		vatTotal.Amount += l.Items[i].VATAmount.Amount
	}

	paid := Zero(l.Currency)
	for _, p := range l.Payments {
		paid.Amount += p.Applied()
	}

	grand := Money{Amount: subtotal.Amount + vatTotal.Amount, Currency: l.Currency}
	l.Totals = Totals{
		Subtotal:   subtotal,
		VATTotal:   vatTotal,
		GrandTotal: grand,
		AmountPaid: paid,
		AmountDue:  Money{Amount: grand.Amount - paid.Amount, Currency: l.Currency},
	}
}

// PaymentByID returns the payment with the given id, if present.
func (l *Ledger) PaymentByID(id string) (Payment, bool) {
	for _, p := range l.Payments {
		if p.ID == id {
			return p, true
		}
	}
	return Payment{}, false
}
