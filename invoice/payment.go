package invoice

import "time"

// =============================================================================
// PAYMENT - Immutable once recorded
// =============================================================================

// PaymentMethod identifies how a payment was made.
type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCard         PaymentMethod = "card"
	MethodCash         PaymentMethod = "cash"
	MethodDirectDebit  PaymentMethod = "direct_debit"
)

// Payment is one entry in a ledger's payment sequence. Payments are never
// edited or reordered after recording; a mistaken payment is undone by
// appending a reversal entry that references it.
type Payment struct {
	ID        string        `json:"id"`
	Amount    Money         `json:"amount"`
	Date      time.Time     `json:"date"`
	Method    PaymentMethod `json:"method"`
	Reference string        `json:"reference,omitempty"`

	// Reverses holds the id of the payment this entry undoes. Empty for
	// regular payments. A reversal subtracts its amount from amountPaid.
	Reverses string `json:"reverses,omitempty"`
}

// IsReversal reports whether p undoes an earlier payment.
func (p Payment) IsReversal() bool { return p.Reverses != "" }

// Applied returns the signed minor-unit effect of p on amountPaid.
func (p Payment) Applied() int64 {
	if p.IsReversal() {
		return -p.Amount.Amount
	}
	return p.Amount.Amount
}
