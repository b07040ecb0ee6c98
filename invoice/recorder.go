/*
recorder.go - Payment application against a ledger

PURPOSE:
  PaymentRecorder validates and appends payments, and is the single code
  path that can move a ledger into the terminal paid state. No other code
  assigns StatusPaid, so a ledger can never be marked paid without a
  corresponding payment record in its sequence.

APPEND-ONLY:
  Payments are never edited or reordered. A mistaken payment is undone by
  Reverse(), which appends a reversal entry referencing the original;
  both remain in the sequence and the net effect is the correction.

SEE ALSO:
  - ledger.go: RecordPayment delegates here
  - payment.go: Payment and reversal semantics
*/
package invoice

import "time"

// =============================================================================
// PAYMENT RECORDER
// =============================================================================

// PaymentRecorder applies payments to ledgers.
type PaymentRecorder struct{}

// Record validates p and appends it to the ledger's payment sequence,
// recomputing amountPaid/amountDue and settling the ledger to paid when
// amountDue drops to zero or below. Overpayment is valid: the resulting
// negative amountDue is a credit balance, not an error.
func (PaymentRecorder) Record(l *Ledger, p Payment) error {
	if !l.Status.Payable() {
		return ErrLedgerNotPayable
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidPayment
	}
	if p.IsReversal() {
		return ErrInvalidPayment
	}
	if p.Amount.Currency != l.Currency {
		return &CurrencyMismatchError{Want: l.Currency, Got: p.Amount.Currency}
	}

	l.Payments = append(l.Payments, p)
	l.recompute()

	if !l.Totals.AmountDue.IsPositive() {
		next, err := transition(l.Status, EventSettle)
		if err != nil {
			// Undefined settle edge would mean a payable status missing from
			// the table; restore the sequence and surface it.
			l.Payments = l.Payments[:len(l.Payments)-1]
			l.recompute()
			return err
		}
		l.Status = next
	}
	return nil
}

// Reverse appends a reversal entry undoing the payment with the given id.
// Allowed only while the ledger is payable; a payment can be reversed at
// most once, and a reversal itself cannot be reversed.
func (PaymentRecorder) Reverse(l *Ledger, reversalID, paymentID string, now time.Time) error {
	if !l.Status.Payable() {
		return ErrLedgerNotPayable
	}
	original, ok := l.PaymentByID(paymentID)
	if !ok {
		return ErrNotFound
	}
	if original.IsReversal() {
		return ErrInvalidPayment
	}
	for _, p := range l.Payments {
		if p.Reverses == paymentID {
			return ErrInvalidPayment
		}
	}

	l.Payments = append(l.Payments, Payment{
		ID:       reversalID,
		Amount:   original.Amount,
		Date:     now,
		Method:   original.Method,
		Reverses: original.ID,
	})
	l.recompute()
	return nil
}
