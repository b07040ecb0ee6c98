package invoice_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/invoice-engine/invoice"
)

func vatRate(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	rate, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return rate
}

func TestNewLineItem_DerivesAmounts(t *testing.T) {
	// GIVEN: 2 units at 100.00 EUR with 21% VAT
	// WHEN: constructing the line item
	// THEN: subtotal, VAT amount and total are derived from the inputs

	item, err := invoice.NewLineItem("item-1", "Consulting", 2, invoice.NewMoney(10000, "EUR"), vatRate(t, "21"))
	require.NoError(t, err)

	assert.Equal(t, invoice.NewMoney(20000, "EUR"), item.Subtotal)
	assert.Equal(t, invoice.NewMoney(4200, "EUR"), item.VATAmount)
	assert.Equal(t, invoice.NewMoney(24200, "EUR"), item.Total)
}

func TestNewLineItem_TotalIsSubtotalPlusVAT(t *testing.T) {
	cases := []struct {
		qty   int64
		price int64
		rate  string
	}{
		{1, 1, "21"},
		{3, 999, "19"},
		{7, 12345, "12.5"},
		{100, 1, "0"},
		{2, 50, "100"},
	}

	for _, tc := range cases {
		item, err := invoice.NewLineItem("item-1", "x", tc.qty, invoice.NewMoney(tc.price, "EUR"), vatRate(t, tc.rate))
		require.NoError(t, err)
		assert.Equal(t, item.Subtotal.Amount+item.VATAmount.Amount, item.Total.Amount,
			"qty=%d price=%d rate=%s", tc.qty, tc.price, tc.rate)
	}
}

func TestNewLineItem_RejectsNonPositiveQuantity(t *testing.T) {
	for _, qty := range []int64{0, -1} {
		_, err := invoice.NewLineItem("item-1", "x", qty, invoice.NewMoney(100, "EUR"), vatRate(t, "21"))
		require.Error(t, err)
		assert.ErrorIs(t, err, invoice.ErrInvalidLineItem)

		var invalid *invoice.InvalidLineItemError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "quantity", invalid.Field)
	}
}

func TestNewLineItem_RejectsNegativeUnitPrice(t *testing.T) {
	_, err := invoice.NewLineItem("item-1", "x", 1, invoice.NewMoney(-100, "EUR"), vatRate(t, "21"))
	assert.ErrorIs(t, err, invoice.ErrInvalidLineItem)
}

func TestNewLineItem_ZeroUnitPriceIsValid(t *testing.T) {
	// Free-of-charge lines are legitimate (samples, goodwill credits).
	item, err := invoice.NewLineItem("item-1", "Sample", 1, invoice.NewMoney(0, "EUR"), vatRate(t, "21"))
	require.NoError(t, err)
	assert.True(t, item.Total.IsZero())
}

func TestNewLineItem_RejectsVATRateOutOfRange(t *testing.T) {
	for _, rate := range []string{"-1", "100.01", "101"} {
		_, err := invoice.NewLineItem("item-1", "x", 1, invoice.NewMoney(100, "EUR"), vatRate(t, rate))
		assert.ErrorIs(t, err, invoice.ErrInvalidVATRate, "rate=%s", rate)
	}
}

func TestNewLineItem_BoundaryVATRates(t *testing.T) {
	for _, rate := range []string{"0", "100"} {
		_, err := invoice.NewLineItem("item-1", "x", 1, invoice.NewMoney(100, "EUR"), vatRate(t, rate))
		assert.NoError(t, err, "rate=%s", rate)
	}
}
