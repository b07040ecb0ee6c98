/*
errors.go - Centralized error types for the invoice engine

PURPOSE:
  All domain errors in one place for consistency and discoverability.
  Every error here is a recoverable, caller-facing failure - never a crash.
  On any error a ledger's in-memory fields are left exactly as they were
  before the call: validation always precedes mutation.

ERROR CATEGORIES:
  1. Input errors    - Malformed items, rates, payments
  2. Lifecycle errors - Operations attempted in the wrong status
  3. Boundary errors  - Persistence-level not-found/conflict signals

USAGE:
  The surrounding system translates these into user-facing responses:

    if invoice.IsClientError(err) {
        // 4xx, ledger unchanged, safe to re-submit corrected input
    }

SEE ALSO:
  - ledger.go: Returns lifecycle errors from mutators
  - recorder.go: Returns payment validation errors
  - store.go: Persistence boundary contracts using ErrNotFound/ErrConflict
*/
package invoice

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidLineItem is returned for a line item with a non-positive
	// quantity or a negative unit price. Rejected before any mutation.
	ErrInvalidLineItem = errors.New("invalid line item")

	// ErrInvalidVATRate is returned when a VAT rate falls outside [0, 100].
	ErrInvalidVATRate = errors.New("invalid vat rate")

	// ErrInvalidPayment is returned for a payment with a non-positive amount,
	// or a reversal that does not reference a reversible payment.
	ErrInvalidPayment = errors.New("invalid payment")

	// ErrCurrencyMismatch is returned when an operation mixes currencies:
	// Money arithmetic, or adding an item/payment whose currency differs
	// from the ledger's.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrEmptyInvoice is returned when finalizing a ledger with no items.
	ErrEmptyInvoice = errors.New("invoice has no line items")

	// ErrLedgerLocked is returned when item mutation is attempted outside draft.
	ErrLedgerLocked = errors.New("ledger is locked: items can only change in draft")

	// ErrLedgerNotPayable is returned when a payment is attempted while the
	// ledger is not in sent or overdue.
	ErrLedgerNotPayable = errors.New("ledger is not payable")

	// ErrInvalidTransition is returned for any undefined lifecycle edge,
	// including every mutating event on a terminal (paid, cancelled) ledger.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound is returned when a ledger, item, or payment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by stores when a concurrent write raced this
	// one. The caller must reload and retry; stores never silently overwrite.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrDuplicateNumber is returned by stores when an invoice number is
	// already taken. Numbers are unique by construction.
	ErrDuplicateNumber = errors.New("duplicate invoice number")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CurrencyMismatchError reports the two currency codes that were mixed.
type CurrencyMismatchError struct {
	Want string
	Got  string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: want %s, got %s", e.Want, e.Got)
}

func (e *CurrencyMismatchError) Unwrap() error { return ErrCurrencyMismatch }

// TransitionError reports a rejected lifecycle edge.
type TransitionError struct {
	From  Status
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s not permitted from %s", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// InvalidLineItemError reports which field of a line item was rejected.
type InvalidLineItemError struct {
	Field  string
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("invalid line item: %s %s", e.Field, e.Reason)
}

func (e *InvalidLineItemError) Unwrap() error { return ErrInvalidLineItem }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input or
// an operation not permitted in the ledger's current status.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidLineItem) ||
		errors.Is(err, ErrInvalidVATRate) ||
		errors.Is(err, ErrInvalidPayment) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrEmptyInvoice) ||
		errors.Is(err, ErrLedgerLocked) ||
		errors.Is(err, ErrLedgerNotPayable) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsRetryable returns true if the error might succeed on retry after a reload.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
