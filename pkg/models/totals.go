package models

import "github.com/shopspring/decimal"

// Totals holds the aggregated amounts of an invoice.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals sums the base and tax of every item. Items without a loaded
// product contribute zero. Total is always exactly Subtotal + Tax.
func ComputeTotals(items []InvoiceItem, companyTaxRate int) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for i := range items {
		subtotal = subtotal.Add(items[i].BaseAmount())
		tax = tax.Add(items[i].TaxAmount(companyTaxRate))
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
