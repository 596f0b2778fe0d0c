package importer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"invoicer/pkg/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAmountCheck(t *testing.T) {
	computed := models.Totals{Subtotal: d("100"), Tax: d("19"), Total: d("119")}

	tests := []struct {
		name         string
		inv          ImportedInvoice
		wantWarnings int
		wantMax      float64
	}{
		{
			name: "matching",
			inv:  ImportedInvoice{NetAmount: d("100"), TaxAmount: d("19"), TotalAmount: d("119")},
		},
		{
			name:    "within tolerance",
			inv:     ImportedInvoice{TotalAmount: d("119.50")},
			wantMax: 0.4184,
		},
		{
			name:         "gross off by more than one percent",
			inv:          ImportedInvoice{TotalAmount: d("125")},
			wantWarnings: 1,
			wantMax:      4.8,
		},
		{
			name:         "stated totals inconsistent",
			inv:          ImportedInvoice{NetAmount: d("100"), TaxAmount: d("19"), TotalAmount: d("119.10")},
			wantWarnings: 1,
			wantMax:      0.0840,
		},
		{
			name: "nothing stated",
			inv:  ImportedInvoice{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewAmountCheck().Check(&tt.inv, computed)
			assert.Len(t, result.Warnings, tt.wantWarnings)
			assert.Equal(t, tt.wantWarnings > 0, result.HasDiscrepancy)
			assert.InDelta(t, tt.wantMax, result.MaxDiscrepancy, 0.001)
		})
	}
}

func TestAmountCheckWarningText(t *testing.T) {
	computed := models.Totals{Subtotal: d("10"), Tax: d("0"), Total: d("10")}
	result := NewAmountCheck().Check(&ImportedInvoice{NetAmount: d("20")}, computed)
	assert.Equal(t, []string{"net amount discrepancy: document=20.00, computed=10.00 (50.0% difference)"}, result.Warnings)
}

func TestDiscrepancyPct(t *testing.T) {
	assert.Zero(t, discrepancyPct(d("0"), d("0")))
	assert.InDelta(t, 100.0, discrepancyPct(d("5"), d("0")), 0.0001)
	assert.InDelta(t, 10.0, discrepancyPct(d("90"), d("100")), 0.0001)
}
