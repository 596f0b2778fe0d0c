package pdf

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicer/pkg/models"
)

func sampleInvoice(items int) *models.Invoice {
	company := models.NewCompanyInfo()
	company.Name = "Acme GmbH"
	company.StreetAddress = "Hauptstr. 1"
	company.PostCode = "10115"
	company.City = "Berlin"
	company.Country = "Germany"
	company.TaxID = "DE123456789"
	company.TaxRate = 19
	company.BankAccount = "DE89 3704"

	inv := &models.Invoice{
		InvoiceNumber:   "INV-4711",
		Date:            time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC),
		PaymentTermsRaw: "Net 30",
		CompanyInfo:     company,
		Customer: &models.Customer{
			Name:    "Globex",
			Address: "1 Loop Rd",
			Email:   "ap@globex.test",
			Phone:   "555-0100",
		},
	}
	for i := 0; i < items; i++ {
		inv.Items = append(inv.Items, models.InvoiceItem{
			Product: models.Product{
				Name:     fmt.Sprintf("Item %d", i+1),
				Price:    decimal.RequireFromString("10.5"),
				Currency: "EUR",
			},
			Quantity:     2,
			DiscountRate: decimal.Zero,
		})
	}
	return inv
}

func textsAt(page Page, x float64) []DrawCommand {
	var out []DrawCommand
	for _, cmd := range page.Commands {
		if cmd.Kind == KindText && cmd.X == x {
			out = append(out, cmd)
		}
	}
	return out
}

func findText(t *testing.T, page Page, prefix string) DrawCommand {
	t.Helper()
	for _, cmd := range page.Commands {
		if cmd.Kind == KindText && strings.HasPrefix(cmd.Text, prefix) {
			return cmd
		}
	}
	require.FailNow(t, "text not found", prefix)
	return DrawCommand{}
}

func lines(page Page) []DrawCommand {
	var out []DrawCommand
	for _, cmd := range page.Commands {
		if cmd.Kind == KindLine {
			out = append(out, cmd)
		}
	}
	return out
}

func TestLayoutInvoicePageStructure(t *testing.T) {
	page := LayoutInvoicePage(sampleInvoice(2))

	assert.Equal(t, PageWidth, page.Width)
	assert.Equal(t, PageHeight, page.Height)
	assert.Equal(t, Metadata{Creator: "InvoiceApp", Author: "Acme GmbH", Title: "Invoice INV-4711"}, page.Metadata)
	assert.Equal(t, Font{Name: "Helvetica", Size: 12}, page.Font)

	company := findText(t, page, "Acme GmbH")
	assert.Equal(t, 40.0, company.X)
	assert.Equal(t, 40.0, company.Y)
	assert.Equal(t, WeightBold, company.Weight)
	assert.Equal(t, "Acme GmbH\nHauptstr. 1\n10115 Berlin\nGermany\nTax ID: DE123456789", company.Text)

	customer := findText(t, page, "Customer:")
	assert.Equal(t, 400.0, customer.X)
	assert.Equal(t, "Customer:\nGlobex\n1 Loop Rd\nEmail: ap@globex.test\nPhone: 555-0100", customer.Text)

	info := findText(t, page, "Invoice Number:")
	assert.Equal(t, 160.0, info.Y)
	assert.Equal(t, "Invoice Number: INV-4711\nDate: Feb 5, 2024\nDue Date: Mar 6, 2024\nStatus: Outstanding\nTerms: Net 30", info.Text)

	rules := lines(page)
	require.Len(t, rules, 5)
	for _, l := range rules {
		assert.Equal(t, 40.0, l.X)
		assert.Equal(t, 572.0, l.X2)
		assert.Equal(t, l.Y, l.Y2)
	}
	assert.Equal(t, []float64{140, 260, 290, 350, 700}, []float64{rules[0].Y, rules[1].Y, rules[2].Y, rules[3].Y, rules[4].Y})

	var rect DrawCommand
	for _, cmd := range page.Commands {
		if cmd.Kind == KindFillRect {
			rect = cmd
		}
	}
	assert.Equal(t, DrawCommand{Kind: KindFillRect, X: 40, Y: 270, W: 492, H: 20, Gray: 0.9}, rect)

	for i, label := range []string{"Item", "Qty", "Price", "Tax%", "Line Total", "Curr."} {
		header := findText(t, page, label)
		assert.Equal(t, 40+columnOffsets[i], header.X, label)
		assert.Equal(t, 270.0, header.Y, label)
		assert.Equal(t, WeightSemibold, header.Weight, label)
	}
}

func TestLayoutInvoicePageItemRows(t *testing.T) {
	page := LayoutInvoicePage(sampleInvoice(3))

	var rows []DrawCommand
	for _, cmd := range textsAt(page, 40) {
		if strings.HasPrefix(cmd.Text, "Item ") {
			rows = append(rows, cmd)
		}
	}
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, 300.0+float64(i)*20, row.Y)
	}

	first := findText(t, page, "Item 1")
	row := []string{}
	for _, cmd := range page.Commands {
		if cmd.Kind == KindText && cmd.Y == first.Y {
			row = append(row, cmd.Text)
		}
	}
	assert.Equal(t, []string{"Item 1", "2", "10.50", "19%", "24.99", "EUR"}, row)

	subtotal := findText(t, page, "Subtotal:")
	assert.Equal(t, 400.0, subtotal.X)
	assert.Equal(t, "Subtotal: 63.00", subtotal.Text)
	assert.Equal(t, "VAT Total: 11.97", findText(t, page, "VAT Total:").Text)
	total := findText(t, page, "Total: ")
	assert.Equal(t, "Total: 74.97", total.Text)
	assert.Equal(t, WeightBold, total.Weight)
	assert.Equal(t, subtotal.Y+40, total.Y)
}

func TestLayoutInvoicePageFooter(t *testing.T) {
	t.Run("clamped to 700", func(t *testing.T) {
		page := LayoutInvoicePage(sampleInvoice(1))
		footer := findText(t, page, "Please pay to")
		assert.Equal(t, 720.0, footer.Y)
		assert.Equal(t, "Please pay to DE89 3704 referencing invoice INV-4711", footer.Text)
	})

	t.Run("follows long tables", func(t *testing.T) {
		page := LayoutInvoicePage(sampleInvoice(25))
		rules := lines(page)
		last := rules[len(rules)-1]
		assert.Equal(t, 880.0, last.Y)
		assert.Equal(t, 900.0, findText(t, page, "Please pay to").Y)
	})

	t.Run("footer text and instruction", func(t *testing.T) {
		inv := sampleInvoice(0)
		inv.CompanyInfo.FooterText = "Thank you for your business"
		page := LayoutInvoicePage(inv)
		footer := findText(t, page, "Thank you")
		assert.Equal(t, "Thank you for your business\n\nPlease pay to DE89 3704 referencing invoice INV-4711", footer.Text)
	})

	t.Run("omitted without footer and bank account", func(t *testing.T) {
		inv := sampleInvoice(1)
		inv.CompanyInfo.BankAccount = ""
		page := LayoutInvoicePage(inv)
		assert.Len(t, lines(page), 4)
		for _, cmd := range page.Commands {
			assert.False(t, cmd.Kind == KindText && cmd.Y >= 700, "unexpected text at %v: %q", cmd.Y, cmd.Text)
		}
	})
}

func TestLayoutInvoicePageLogoAndMissingFields(t *testing.T) {
	inv := sampleInvoice(0)
	inv.Customer = nil
	inv.IsPaid = true
	inv.PaymentTermsRaw = "Other"
	inv.CompanyInfo.LogoData = []byte("logo")

	page := LayoutInvoicePage(inv)

	require.Equal(t, KindImage, page.Commands[0].Kind)
	assert.Equal(t, 40.0, page.Commands[0].X)
	assert.Equal(t, 40.0, page.Commands[0].Y)
	assert.Equal(t, 100.0, page.Commands[0].W)
	assert.Equal(t, 100.0, page.Commands[0].H)

	assert.Equal(t, 160.0, findText(t, page, "Acme GmbH").Y)
	assert.Equal(t, "Customer:\nN/A", findText(t, page, "Customer:").Text)

	info := findText(t, page, "Invoice Number:")
	assert.Contains(t, info.Text, "Date: Feb 5, 2024\nDue Date: Feb 5, 2024")
	assert.Contains(t, info.Text, "Status: Paid")
	assert.Contains(t, info.Text, "Terms: Other")
}

func TestLayoutInvoicePageWithoutCompany(t *testing.T) {
	inv := &models.Invoice{InvoiceNumber: "INV-1"}

	page := LayoutInvoicePage(inv)

	assert.Equal(t, "\n\n \n\nTax ID: ", page.Commands[0].Text)
	assert.Equal(t, "", page.Metadata.Author)
	assert.Equal(t, Font{Name: "Helvetica", Size: 12}, page.Font)
}
