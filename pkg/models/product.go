package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is assigned to products created without a currency.
const DefaultCurrency = "USD"

// Product is a catalog entry that invoice items point at.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string          `gorm:"size:255;not null;index" json:"name" validate:"required"`
	Price    decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"price" validate:"gte=0"`
	TaxRate  *int            `json:"tax_rate,omitempty" validate:"omitempty,min=0,max=100"` // nil falls back to the company rate
	Currency string          `gorm:"size:10;not null" json:"currency" validate:"required,max=10"`
}

// EffectiveTaxRate returns the product override or the company rate.
func (p *Product) EffectiveTaxRate(companyRate int) int {
	if p.TaxRate != nil {
		return *p.TaxRate
	}
	return companyRate
}

// NormalizeCurrency upper-cases a currency code, maps the usual symbols to
// ISO codes and falls back to USD when blank.
func NormalizeCurrency(currency string) string {
	normalized := strings.ToUpper(strings.TrimSpace(currency))
	switch normalized {
	case "":
		return DefaultCurrency
	case "€", "EURO", "EUROS":
		return "EUR"
	case "$", "US$", "DOLLAR", "DOLLARS":
		return "USD"
	case "£", "POUND", "POUNDS":
		return "GBP"
	case "¥", "YEN":
		return "JPY"
	default:
		return normalized
	}
}

// ParsePrice parses a user supplied price. Thousands separators are not
// accepted; a comma is read as the decimal point.
func ParsePrice(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	if strings.Count(cleaned, ",") == 1 && !strings.Contains(cleaned, ".") {
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}
	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	return price, nil
}

// IntPtr returns a pointer to v, for optional tax overrides.
func IntPtr(v int) *int {
	return &v
}
