package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice statuses as shown to the user.
const (
	StatusPaid        = "Paid"
	StatusOutstanding = "Outstanding"
)

// Date layouts used on the page and in exports.
const (
	MediumDateLayout = "Jan 2, 2006"
	ShortDateLayout  = "1/2/06"
)

// Invoice is a bill issued by the company, optionally to a customer.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UUID            uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"uuid"`
	InvoiceNumber   string    `gorm:"size:64;not null;uniqueIndex" json:"invoice_number" validate:"required,max=64"`
	Date            time.Time `gorm:"not null;index" json:"date" validate:"required"`
	IsPaid          bool      `gorm:"not null" json:"is_paid"`
	PaymentTermsRaw string    `gorm:"size:32;not null" json:"payment_terms"`

	CompanyInfoID uint         `gorm:"not null;index" json:"company_info_id"`
	CompanyInfo   *CompanyInfo `gorm:"foreignKey:CompanyInfoID" json:"company_info,omitempty" validate:"-"`

	CustomerID *uint     `gorm:"index" json:"customer_id,omitempty"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty" validate:"-"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items" validate:"dive"`
}

// InvoiceItem is one billed product line.
type InvoiceItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	InvoiceID uint    `gorm:"not null;index" json:"invoice_id"`
	ProductID uint    `gorm:"not null;index" json:"product_id"`
	Product   Product `gorm:"foreignKey:ProductID" json:"product" validate:"-"`

	Quantity     int             `gorm:"not null" json:"quantity" validate:"min=1"`
	DiscountRate decimal.Decimal `gorm:"type:numeric(7,4);not null" json:"discount_rate" validate:"gte=0,lte=1"` // fraction, 0.1 is 10%
}

// BaseAmount is price * (1 - discount) * quantity, before tax.
func (i *InvoiceItem) BaseAmount() decimal.Decimal {
	return i.Product.Price.
		Mul(decimal.NewFromInt(1).Sub(i.DiscountRate)).
		Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// EffectiveTaxRate is the product override or the company rate.
func (i *InvoiceItem) EffectiveTaxRate(companyRate int) int {
	return i.Product.EffectiveTaxRate(companyRate)
}

// TaxAmount is the tax charged on this line.
func (i *InvoiceItem) TaxAmount(companyRate int) decimal.Decimal {
	return i.BaseAmount().
		Mul(decimal.NewFromInt(int64(i.EffectiveTaxRate(companyRate)))).
		Div(decimal.NewFromInt(100))
}

// LineTotal is the line base plus its tax.
func (i *InvoiceItem) LineTotal(companyRate int) decimal.Decimal {
	return i.BaseAmount().Add(i.TaxAmount(companyRate))
}

// PaymentTerms resolves the stored raw terms.
func (inv *Invoice) PaymentTerms() PaymentTerms {
	return ParsePaymentTerms(inv.PaymentTermsRaw)
}

// DueDate is the invoice date plus the term days.
func (inv *Invoice) DueDate() time.Time {
	days := inv.PaymentTerms().Days()
	if days == 0 {
		return inv.Date
	}
	return inv.Date.AddDate(0, 0, days)
}

// CompanyTaxRate is the default rate of the issuing company, 0 when the
// company was not loaded.
func (inv *Invoice) CompanyTaxRate() int {
	if inv.CompanyInfo == nil {
		return 0
	}
	return inv.CompanyInfo.TaxRate
}

// Totals computes subtotal, tax and total in one pass.
func (inv *Invoice) Totals() Totals {
	return ComputeTotals(inv.Items, inv.CompanyTaxRate())
}

func (inv *Invoice) Subtotal() decimal.Decimal {
	return inv.Totals().Subtotal
}

func (inv *Invoice) TaxAmount() decimal.Decimal {
	return inv.Totals().Tax
}

func (inv *Invoice) TotalAmount() decimal.Decimal {
	return inv.Totals().Total
}

// Status returns StatusPaid or StatusOutstanding.
func (inv *Invoice) Status() string {
	if inv.IsPaid {
		return StatusPaid
	}
	return StatusOutstanding
}

// IsOverdue reports an unpaid invoice whose due date has passed.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	return !inv.IsPaid && inv.DueDate().Before(now)
}

// CustomerName returns the customer's name or the empty string.
func (inv *Invoice) CustomerName() string {
	if inv.Customer == nil {
		return ""
	}
	return inv.Customer.Name
}

// FormatAmount renders money with two decimals, rounding half away from zero.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
