/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external contract: money travels as both a
  formatted string ("242.00") and exact minor units, so clients never
  parse currency strings themselves.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the domain, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/invoice-engine/invoice"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// MoneyDTO carries a monetary amount in both representations.
type MoneyDTO struct {
	Amount     string `json:"amount"` // "242.00"
	Currency   string `json:"currency"`
	MinorUnits int64  `json:"minor_units"`
}

func toMoneyDTO(m invoice.Money) MoneyDTO {
	return MoneyDTO{Amount: m.Format(), Currency: m.Currency, MinorUnits: m.Amount}
}

// LineItemDTO represents a line item with its derived amounts.
type LineItemDTO struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Quantity    int64    `json:"quantity"`
	UnitPrice   MoneyDTO `json:"unit_price"`
	VATRate     string   `json:"vat_rate"`
	Subtotal    MoneyDTO `json:"subtotal"`
	VATAmount   MoneyDTO `json:"vat_amount"`
	Total       MoneyDTO `json:"total"`
}

// PaymentDTO represents one entry in the payment sequence.
type PaymentDTO struct {
	ID        string   `json:"id"`
	Amount    MoneyDTO `json:"amount"`
	Date      string   `json:"date"`
	Method    string   `json:"method"`
	Reference string   `json:"reference,omitempty"`
	Reverses  string   `json:"reverses,omitempty"`
}

// TotalsDTO carries the derived aggregates.
type TotalsDTO struct {
	Subtotal   MoneyDTO `json:"subtotal"`
	VATTotal   MoneyDTO `json:"vat_total"`
	GrandTotal MoneyDTO `json:"grand_total"`
	AmountPaid MoneyDTO `json:"amount_paid"`
	AmountDue  MoneyDTO `json:"amount_due"`
}

// LedgerDTO represents a full ledger in API responses.
type LedgerDTO struct {
	ID          string        `json:"id"`
	Number      string        `json:"number"`
	Currency    string        `json:"currency"`
	Status      string        `json:"status"`
	IssueDate   string        `json:"issue_date,omitempty"`
	DueDate     string        `json:"due_date"`
	Items       []LineItemDTO `json:"items"`
	Payments    []PaymentDTO  `json:"payments"`
	Totals      TotalsDTO     `json:"totals"`
	IssuedBy    string        `json:"issued_by,omitempty"`
	CancelledBy string        `json:"cancelled_by,omitempty"`
	Version     int64         `json:"version"`
}

func toLedgerDTO(l *invoice.Ledger) LedgerDTO {
	dto := LedgerDTO{
		ID:          l.ID,
		Number:      l.Number,
		Currency:    l.Currency,
		Status:      string(l.Status),
		DueDate:     l.DueDate.Format("2006-01-02"),
		Items:       make([]LineItemDTO, 0, len(l.Items)),
		Payments:    make([]PaymentDTO, 0, len(l.Payments)),
		IssuedBy:    l.IssuedBy,
		CancelledBy: l.CancelledBy,
		Version:     l.Version,
		Totals: TotalsDTO{
			Subtotal:   toMoneyDTO(l.Totals.Subtotal),
			VATTotal:   toMoneyDTO(l.Totals.VATTotal),
			GrandTotal: toMoneyDTO(l.Totals.GrandTotal),
			AmountPaid: toMoneyDTO(l.Totals.AmountPaid),
			AmountDue:  toMoneyDTO(l.Totals.AmountDue),
		},
	}
	if !l.IssueDate.IsZero() {
		dto.IssueDate = l.IssueDate.Format("2006-01-02")
	}
	for _, item := range l.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   toMoneyDTO(item.UnitPrice),
			VATRate:     item.VATRate.String(),
			Subtotal:    toMoneyDTO(item.Subtotal),
			VATAmount:   toMoneyDTO(item.VATAmount),
			Total:       toMoneyDTO(item.Total),
		})
	}
	for _, p := range l.Payments {
		dto.Payments = append(dto.Payments, PaymentDTO{
			ID:        p.ID,
			Amount:    toMoneyDTO(p.Amount),
			Date:      p.Date.Format(time.RFC3339),
			Method:    string(p.Method),
			Reference: p.Reference,
			Reverses:  p.Reverses,
		})
	}
	return dto
}

// CreateLedgerRequest opens a new draft ledger.
type CreateLedgerRequest struct {
	Currency string `json:"currency"`
	DueDate  string `json:"due_date"` // "2006-01-02"
}

// AddItemRequest appends a line item to a draft ledger.
type AddItemRequest struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   string `json:"unit_price"` // "100.00", in the ledger currency
	VATRate     string `json:"vat_rate"`   // "21"
}

// RecordPaymentRequest applies a payment.
type RecordPaymentRequest struct {
	Amount    string `json:"amount"` // "242.00", in the ledger currency
	Date      string `json:"date,omitempty"`
	Method    string `json:"method"`
	Reference string `json:"reference,omitempty"`
}

// ReminderDTO is the reminder eligibility answer.
type ReminderDTO struct {
	Due bool `json:"due"`
}

// SweepResponse reports an overdue sweep result.
type SweepResponse struct {
	MarkedOverdue int `json:"marked_overdue"`
}

// ErrorResponse is the error envelope for all non-2xx replies.
type ErrorResponse struct {
	Error string `json:"error"`
}
