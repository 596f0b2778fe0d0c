package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicer/pkg/models"
)

func invoices() []models.Invoice {
	company := &models.CompanyInfo{TaxRate: 10}
	return []models.Invoice{
		{
			InvoiceNumber:   "INV-1001",
			Date:            time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC),
			PaymentTermsRaw: "Net 10",
			CompanyInfo:     company,
			Customer:        &models.Customer{Name: "Smith, Jones & Co"},
			Items: []models.InvoiceItem{{
				Product:      models.Product{Name: "Widget", Price: decimal.RequireFromString("19.99")},
				Quantity:     3,
				DiscountRate: decimal.Zero,
			}},
		},
		{
			InvoiceNumber:   "INV-1002",
			Date:            time.Date(2024, time.December, 25, 0, 0, 0, 0, time.UTC),
			PaymentTermsRaw: "Other",
			IsPaid:          true,
			CompanyInfo:     company,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, invoices()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "InvoiceNumber,Date,DueDate,Status,Customer,Subtotal,Tax,Total", lines[0])
	assert.Equal(t, "INV-1001,3/9/24,3/19/24,Outstanding,Smith Jones & Co,59.97,6.00,65.97", lines[1])
	assert.Equal(t, "INV-1002,12/25/24,12/25/24,Paid,,0.00,0.00,0.00", lines[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "InvoiceNumber,Date,DueDate,Status,Customer,Subtotal,Tax,Total\n", buf.String())
}

func TestExportCSVFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")

	path, err := ExportCSVFile(dir, invoices())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, CSVFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestRowValuesFollowHeader(t *testing.T) {
	row := RowFor(&invoices()[0])
	assert.Len(t, row.Values(), len(Header))
	assert.Equal(t, "INV-1001", row.Values()[0])
	assert.Equal(t, "65.97", row.Values()[7])
}
