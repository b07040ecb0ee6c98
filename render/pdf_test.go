package render_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/invoice-engine/invoice"
	"github.com/warp/invoice-engine/render"
)

func buildLedger(t *testing.T) *invoice.Ledger {
	t.Helper()
	due := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	l := invoice.NewLedger("led-1", "INV-0001", "EUR", due)
	item, err := invoice.NewLineItem("item-1", "Consulting", 2, invoice.NewMoney(10000, "EUR"), decimal.RequireFromString("21"))
	require.NoError(t, err)
	require.NoError(t, l.AddItem(item))
	require.NoError(t, l.Finalize(due.Add(-30*24*time.Hour), "user-1"))
	require.NoError(t, l.RecordPayment(invoice.Payment{
		ID:     "pay-1",
		Amount: invoice.NewMoney(10000, "EUR"),
		Date:   due.Add(-24 * time.Hour),
		Method: invoice.MethodBankTransfer,
	}))
	return l
}

func TestPDF_RendersDocument(t *testing.T) {
	r := render.PDF{CompanyName: "Acme GmbH"}

	doc, err := r.Render(buildLedger(t))

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
	assert.Greater(t, len(doc), 1000)
}

func TestPDF_RendersEmptyDraft(t *testing.T) {
	// A draft with no items still renders; the document just has an
	// empty item table.
	due := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	l := invoice.NewLedger("led-1", "INV-0001", "EUR", due)

	doc, err := render.PDF{}.Render(l)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestPDF_IncludesReversals(t *testing.T) {
	l := buildLedger(t)
	require.NoError(t, invoice.PaymentRecorder{}.Reverse(l, "rev-1", "pay-1", l.DueDate))

	doc, err := render.PDF{}.Render(l)

	require.NoError(t, err)
	assert.NotEmpty(t, doc)
}
