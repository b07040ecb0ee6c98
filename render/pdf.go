// Package render produces invoice documents from ledger snapshots.
// It reads the ledger's derived fields and never mutates it.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/warp/invoice-engine/invoice"
)

// PDF holds document options.
type PDF struct {
	// CompanyName is printed in the document header.
	CompanyName string
}

// Render produces an A4 PDF for the ledger.
func (r PDF) Render(l *invoice.Ledger) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	title := "Invoice " + l.Number
	if r.CompanyName != "" {
		title = r.CompanyName + " - " + title
	}
	pdf.Cell(0, 10, title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Status: "+strings.ToUpper(string(l.Status)))
	pdf.Ln(6)
	if !l.IssueDate.IsZero() {
		pdf.Cell(0, 6, "Issue date: "+l.IssueDate.Format("2006-01-02"))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, "Due date: "+l.DueDate.Format("2006-01-02"))
	pdf.Ln(10)

	// Item table
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(80, 7, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(15, 7, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Unit price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(20, 7, "VAT %", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range l.Items {
		pdf.CellFormat(80, 7, item.Description, "", 0, "L", false, 0, "")
		pdf.CellFormat(15, 7, fmt.Sprintf("%d", item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, item.UnitPrice.Format(), "", 0, "R", false, 0, "")
		pdf.CellFormat(20, 7, item.VATRate.String(), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, item.Total.Format(), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Totals block
	totals := []struct {
		label string
		value invoice.Money
	}{
		{"Subtotal", l.Totals.Subtotal},
		{"VAT", l.Totals.VATTotal},
		{"Grand total", l.Totals.GrandTotal},
		{"Amount paid", l.Totals.AmountPaid},
		{"Amount due", l.Totals.AmountDue},
	}
	for _, row := range totals {
		pdf.CellFormat(125, 6, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, row.value.Format()+" "+l.Currency, "", 1, "R", false, 0, "")
	}

	if len(l.Payments) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 7, "Payments")
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 10)
		for _, p := range l.Payments {
			line := fmt.Sprintf("%s  %s %s  (%s)",
				p.Date.Format("2006-01-02"), p.Amount.Format(), p.Amount.Currency, p.Method)
			if p.IsReversal() {
				line += "  reversal of " + p.Reverses
			}
			pdf.Cell(0, 6, line)
			pdf.Ln(6)
		}
	}

	pdf.SetY(-20)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.Cell(0, 6, "Generated "+time.Now().Format("2006-01-02"))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
