package models

import "strings"

// PaymentTerms is the agreed payment window of an invoice.
type PaymentTerms string

const (
	TermsNet10 PaymentTerms = "Net 10"
	TermsNet30 PaymentTerms = "Net 30"
	TermsNet60 PaymentTerms = "Net 60"
	TermsNet90 PaymentTerms = "Net 90"
	TermsOther PaymentTerms = "Other"
)

// DefaultPaymentTerms is used for new invoices and for unknown raw values.
const DefaultPaymentTerms = TermsNet30

// AllPaymentTerms lists the terms in display order.
var AllPaymentTerms = []PaymentTerms{TermsNet10, TermsNet30, TermsNet60, TermsNet90, TermsOther}

// Days returns the number of days between the invoice date and the due date.
func (t PaymentTerms) Days() int {
	switch t {
	case TermsNet10:
		return 10
	case TermsNet30:
		return 30
	case TermsNet60:
		return 60
	case TermsNet90:
		return 90
	default:
		return 0
	}
}

// Valid reports whether t is one of the named terms.
func (t PaymentTerms) Valid() bool {
	for _, known := range AllPaymentTerms {
		if t == known {
			return true
		}
	}
	return false
}

func (t PaymentTerms) String() string {
	return string(t)
}

// ParsePaymentTerms resolves a stored raw value. Matching ignores case and
// surrounding whitespace; anything unrecognised is Net 30.
func ParsePaymentTerms(raw string) PaymentTerms {
	raw = strings.TrimSpace(raw)
	for _, known := range AllPaymentTerms {
		if strings.EqualFold(raw, string(known)) {
			return known
		}
	}
	return DefaultPaymentTerms
}

// TermsForDays returns the named term spanning exactly days, or Other.
func TermsForDays(days int) PaymentTerms {
	for _, known := range AllPaymentTerms {
		if known != TermsOther && known.Days() == days {
			return known
		}
	}
	return TermsOther
}
