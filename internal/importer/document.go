// Package importer migrates existing invoices into the store from scanned
// documents.
//
// Google Document AI's invoice parser extracts the header fields and line
// items. When the invoice number, date or lines are missing the document is
// OCR'd with Cloud Vision and an OpenAI model fills in only the empty
// fields. The invoice is saved as outstanding and its stated totals are
// checked against the totals of the saved invoice.
package importer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field names reported by MissingFields.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldInvoiceDate   = "invoice_date"
	FieldLineItems     = "line_items"
)

// ImportedItem is one line read from a document.
type ImportedItem struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	// StatedQuantity is the printed quantity when it was rounded to whole
	// units, empty otherwise.
	StatedQuantity string
	// Amount is the stated line total, zero when not printed.
	Amount decimal.Decimal
}

// ImportedInvoice is the raw data read from a document before it is
// matched against the catalog.
type ImportedInvoice struct {
	InvoiceNumber   string
	Date            time.Time
	DueDate         time.Time
	CustomerName    string
	CustomerEmail   string
	CustomerAddress string
	Currency        string

	// Stated totals, zero when not printed.
	NetAmount   decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal

	Items []ImportedItem

	// Confidence per extracted field, 0.0 to 1.0.
	Confidence map[string]float32
}

// MissingFields lists the fields an invoice cannot be created without.
func (inv *ImportedInvoice) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		missing = append(missing, FieldInvoiceNumber)
	}
	if inv.Date.IsZero() {
		missing = append(missing, FieldInvoiceDate)
	}
	if len(inv.usableItems()) == 0 {
		missing = append(missing, FieldLineItems)
	}
	return missing
}

// usableItems drops lines without a description.
func (inv *ImportedInvoice) usableItems() []ImportedItem {
	var items []ImportedItem
	for _, item := range inv.Items {
		if strings.TrimSpace(item.Description) != "" {
			items = append(items, item)
		}
	}
	return items
}

// setConfidence records a field's confidence, creating the map on first use.
func (inv *ImportedInvoice) setConfidence(field string, value float32) {
	if inv.Confidence == nil {
		inv.Confidence = make(map[string]float32)
	}
	inv.Confidence[field] = value
}

// parseAmount reads an amount printed in either English or German notation.
func parseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	for _, noise := range []string{" ", "€", "$", "£", "EUR", "USD", "GBP"} {
		cleaned = strings.ReplaceAll(cleaned, noise, "")
	}

	switch {
	case strings.Contains(cleaned, ".") && strings.Contains(cleaned, ","):
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			// 7.303,08
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			// 7,303.08
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Contains(cleaned, ","):
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	return decimal.NewFromString(cleaned)
}

// dateLayouts are tried in order when a date has no normalized value.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"01/02/2006",
	"1/2/06",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// wholeQuantity rounds q to whole units, at least one. The printed value is
// returned when rounding changed it.
func wholeQuantity(q decimal.Decimal) (int, string) {
	whole := q.Round(0).IntPart()
	if whole < 1 {
		whole = 1
	}
	if q.Equal(decimal.NewFromInt(whole)) {
		return int(whole), ""
	}
	return int(whole), q.String()
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
