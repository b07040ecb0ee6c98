package invoice

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// LINE ITEM - A single billable item with derived monetary fields
// =============================================================================

// LineItem is one billable position on a ledger. Subtotal, VATAmount and
// Total are derived from Quantity, UnitPrice and VATRate; they are
// recomputed together whenever any input changes, never patched in place.
type LineItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   Money           `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"` // percent, 0-100

	// Derived fields. Invariant: Total == Subtotal + VATAmount, always.
	Subtotal  Money `json:"subtotal"`
	VATAmount Money `json:"vat_amount"`
	Total     Money `json:"total"`
}

// NewLineItem validates the inputs and returns an item with derived
// fields populated.
func NewLineItem(id, description string, quantity int64, unitPrice Money, vatRate decimal.Decimal) (LineItem, error) {
	item := LineItem{
		ID:          id,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		VATRate:     vatRate,
	}
	if err := item.validate(); err != nil {
		return LineItem{}, err
	}
	item.derive()
	return item, nil
}

func (li *LineItem) validate() error {
	if li.Quantity <= 0 {
		return &InvalidLineItemError{Field: "quantity", Reason: "must be positive"}
	}
	if li.UnitPrice.IsNegative() {
		return &InvalidLineItemError{Field: "unit_price", Reason: "must not be negative"}
	}
	if li.VATRate.IsNegative() || li.VATRate.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidVATRate
	}
	return nil
}

// derive recomputes all derived fields from the inputs. The three fields
// change together or not at all.
func (li *LineItem) derive() {
	li.Subtotal = MultiplyByQuantity(li.UnitPrice, li.Quantity)
	li.VATAmount = PercentageOf(li.Subtotal, li.VATRate)
	li.Total = Money{
		Amount:   li.Subtotal.Amount + li.VATAmount.Amount,
		Currency: li.Subtotal.Currency,
	}
}
