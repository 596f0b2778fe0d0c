package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func item(price string, qty int, discount string, rate *int) InvoiceItem {
	return InvoiceItem{
		Product: Product{
			Name:     "Widget",
			Price:    decimal.RequireFromString(price),
			TaxRate:  rate,
			Currency: "USD",
		},
		Quantity:     qty,
		DiscountRate: decimal.RequireFromString(discount),
	}
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name        string
		items       []InvoiceItem
		companyRate int
		subtotal    string
		tax         string
		total       string
	}{
		{
			name:        "no items",
			companyRate: 20,
			subtotal:    "0",
			tax:         "0",
			total:       "0",
		},
		{
			name:        "company rate applies without override",
			items:       []InvoiceItem{item("100", 2, "0", nil)},
			companyRate: 20,
			subtotal:    "200",
			tax:         "40",
			total:       "240",
		},
		{
			name:        "product override wins",
			items:       []InvoiceItem{item("100", 1, "0", IntPtr(7))},
			companyRate: 20,
			subtotal:    "100",
			tax:         "7",
			total:       "107",
		},
		{
			name:        "zero override is respected",
			items:       []InvoiceItem{item("50", 1, "0", IntPtr(0))},
			companyRate: 19,
			subtotal:    "50",
			tax:         "0",
			total:       "50",
		},
		{
			name:        "discount reduces base before tax",
			items:       []InvoiceItem{item("100", 3, "0.1", nil)},
			companyRate: 10,
			subtotal:    "270",
			tax:         "27",
			total:       "297",
		},
		{
			name: "mixed lines",
			items: []InvoiceItem{
				item("19.99", 3, "0", nil),
				item("5.5", 2, "0.25", IntPtr(5)),
			},
			companyRate: 19,
			subtotal:    "68.22",
			tax:         "11.8068",
			total:       "80.0268",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(tt.items, tt.companyRate)
			assert.True(t, dec(t, tt.subtotal).Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.Equal(t, FormatAmount(dec(t, tt.tax)), FormatAmount(got.Tax))
			assert.Equal(t, FormatAmount(dec(t, tt.total)), FormatAmount(got.Total))
			assert.True(t, got.Total.Equal(got.Subtotal.Add(got.Tax)))
		})
	}
}

func TestComputeTotalsMissingProductContributesZero(t *testing.T) {
	items := []InvoiceItem{
		{Quantity: 4, DiscountRate: decimal.Zero},
		item("10", 1, "0", nil),
	}

	got := ComputeTotals(items, 10)

	assert.Equal(t, "10.00", FormatAmount(got.Subtotal))
	assert.Equal(t, "1.00", FormatAmount(got.Tax))
	assert.Equal(t, "11.00", FormatAmount(got.Total))
}

func TestInvoiceAmountsDelegateToComputeTotals(t *testing.T) {
	inv := &Invoice{
		CompanyInfo: &CompanyInfo{TaxRate: 20},
		Items:       []InvoiceItem{item("12.50", 4, "0.2", nil)},
	}

	assert.Equal(t, "40.00", FormatAmount(inv.Subtotal()))
	assert.Equal(t, "8.00", FormatAmount(inv.TaxAmount()))
	assert.Equal(t, "48.00", FormatAmount(inv.TotalAmount()))

	line := inv.Items[0]
	assert.Equal(t, "48.00", FormatAmount(line.LineTotal(20)))
	assert.Equal(t, 20, line.EffectiveTaxRate(20))
}

func TestInvoiceWithoutCompanyUsesZeroRate(t *testing.T) {
	inv := &Invoice{Items: []InvoiceItem{item("10", 1, "0", nil)}}

	assert.Equal(t, 0, inv.CompanyTaxRate())
	assert.True(t, inv.TaxAmount().IsZero())
}

func TestFormatAmountRoundsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "2.68", FormatAmount(dec(t, "2.675")))
	assert.Equal(t, "-2.68", FormatAmount(dec(t, "-2.675")))
	assert.Equal(t, "0.00", FormatAmount(decimal.Zero))
}

func TestDueDateAndStatus(t *testing.T) {
	date := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"Net 10", time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)},
		{"Net 30", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)},
		{"Net 60", time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)},
		{"Net 90", time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC)},
		{"Other", date},
		{"net 60", time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)},
		{"Net 45", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)},
		{"", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			inv := &Invoice{Date: date, PaymentTermsRaw: tt.raw}
			assert.True(t, tt.want.Equal(inv.DueDate()), "got %s", inv.DueDate())
		})
	}
}

func TestIsOverdue(t *testing.T) {
	date := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	inv := &Invoice{Date: date, PaymentTermsRaw: string(TermsNet10)}

	assert.False(t, inv.IsOverdue(date.AddDate(0, 0, 10)))
	assert.True(t, inv.IsOverdue(date.AddDate(0, 0, 11)))
	assert.Equal(t, StatusOutstanding, inv.Status())

	inv.IsPaid = true
	assert.False(t, inv.IsOverdue(date.AddDate(1, 0, 0)))
	assert.Equal(t, StatusPaid, inv.Status())
}

func TestTermsForDays(t *testing.T) {
	assert.Equal(t, TermsNet10, TermsForDays(10))
	assert.Equal(t, TermsNet90, TermsForDays(90))
	assert.Equal(t, TermsOther, TermsForDays(0))
	assert.Equal(t, TermsOther, TermsForDays(14))
	assert.True(t, TermsOther.Valid())
	assert.False(t, PaymentTerms("Net 45").Valid())
}
