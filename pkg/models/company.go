package models

import (
	"strings"
	"time"
)

// Appearance defaults and limits.
const (
	DefaultTaxLabel            = "VAT"
	DefaultFontName            = "Helvetica"
	DefaultFontSize            = 12
	MinFontSize                = 8
	MaxFontSize                = 36
	DefaultPaymentInstructions = "Please pay to {bankAccount} referencing invoice {invoiceNumber}"

	placeholderBankAccount   = "{bankAccount}"
	placeholderInvoiceNumber = "{invoiceNumber}"
)

// FontNames lists the selectable invoice fonts.
var FontNames = []string{"Helvetica", "Times New Roman", "Courier New", "Avenir"}

// CompanyInfo is the issuing company. There is a single row per database.
type CompanyInfo struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name          string `gorm:"size:255" json:"name"`
	StreetAddress string `gorm:"size:255" json:"street_address"`
	PostCode      string `gorm:"size:32" json:"post_code"`
	City          string `gorm:"size:128" json:"city"`
	Country       string `gorm:"size:128" json:"country"`
	TaxID         string `gorm:"size:64" json:"tax_id"`

	TaxLabel string `gorm:"size:32;not null" json:"tax_label" validate:"required,max=32"`
	TaxRate  int    `gorm:"not null" json:"tax_rate" validate:"min=0,max=100"` // whole percent

	LogoData []byte `json:"-"`

	FooterText string `gorm:"type:text" json:"footer_text"`
	FontName   string `gorm:"size:64;not null" json:"font_name" validate:"fontname"`
	FontSize   int    `gorm:"not null" json:"font_size" validate:"min=8,max=36"`

	BankAccount         string `gorm:"size:128" json:"bank_account"`
	PaymentInstructions string `gorm:"type:text" json:"payment_instructions"`
	CCEmail             string `gorm:"size:255" json:"cc_email" validate:"omitempty,email"`
}

// NewCompanyInfo returns a company with the default label, font and
// instruction template filled in.
func NewCompanyInfo() *CompanyInfo {
	return &CompanyInfo{
		TaxLabel:            DefaultTaxLabel,
		FontName:            DefaultFontName,
		FontSize:            DefaultFontSize,
		PaymentInstructions: DefaultPaymentInstructions,
	}
}

// ApplyDefaults fills blank appearance fields.
func (c *CompanyInfo) ApplyDefaults() {
	if strings.TrimSpace(c.TaxLabel) == "" {
		c.TaxLabel = DefaultTaxLabel
	}
	if c.FontName == "" {
		c.FontName = DefaultFontName
	}
	if c.FontSize == 0 {
		c.FontSize = DefaultFontSize
	}
	if c.PaymentInstructions == "" {
		c.PaymentInstructions = DefaultPaymentInstructions
	}
}

// HasLogo reports whether logo bytes are stored.
func (c *CompanyInfo) HasLogo() bool {
	return len(c.LogoData) > 0
}

// RenderPaymentInstructions fills the instruction template for one invoice.
func (c *CompanyInfo) RenderPaymentInstructions(invoiceNumber string) string {
	return strings.NewReplacer(
		placeholderBankAccount, c.BankAccount,
		placeholderInvoiceNumber, invoiceNumber,
	).Replace(c.PaymentInstructions)
}

// FooterBlock is the text printed at the bottom of the page: the footer,
// a blank line and the payment instruction. It is empty when neither a
// footer nor a bank account is set.
func (c *CompanyInfo) FooterBlock(invoiceNumber string) string {
	if c.FooterText == "" && c.BankAccount == "" {
		return ""
	}
	instruction := c.RenderPaymentInstructions(invoiceNumber)
	if c.FooterText == "" {
		return instruction
	}
	return c.FooterText + "\n\n" + instruction
}

// IsValidFontName reports whether name is one of FontNames.
func IsValidFontName(name string) bool {
	for _, f := range FontNames {
		if f == name {
			return true
		}
	}
	return false
}
