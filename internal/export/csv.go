// Package export turns invoice lists into tabular rows for CSV files and
// spreadsheets.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// CSVFileName is the name ExportCSVFile writes.
const CSVFileName = "invoices_export.csv"

// Header is the column order of every export.
var Header = []string{"InvoiceNumber", "Date", "DueDate", "Status", "Customer", "Subtotal", "Tax", "Total"}

// Row is one exported invoice, already formatted.
type Row struct {
	InvoiceNumber string
	Date          string
	DueDate       string
	Status        string
	Customer      string
	Subtotal      string
	Tax           string
	Total         string
}

// Values returns the row in Header order.
func (r Row) Values() []string {
	return []string{r.InvoiceNumber, r.Date, r.DueDate, r.Status, r.Customer, r.Subtotal, r.Tax, r.Total}
}

// RowFor formats one invoice. Dates use the short style and commas are
// removed from the customer name.
func RowFor(inv *models.Invoice) Row {
	totals := inv.Totals()
	return Row{
		InvoiceNumber: inv.InvoiceNumber,
		Date:          inv.Date.Format(models.ShortDateLayout),
		DueDate:       inv.DueDate().Format(models.ShortDateLayout),
		Status:        inv.Status(),
		Customer:      strings.ReplaceAll(inv.CustomerName(), ",", ""),
		Subtotal:      models.FormatAmount(totals.Subtotal),
		Tax:           models.FormatAmount(totals.Tax),
		Total:         models.FormatAmount(totals.Total),
	}
}

// Rows formats every invoice in order.
func Rows(invoices []models.Invoice) []Row {
	rows := make([]Row, 0, len(invoices))
	for i := range invoices {
		rows = append(rows, RowFor(&invoices[i]))
	}
	return rows
}

// WriteCSV writes the header and one row per invoice.
func WriteCSV(w io.Writer, invoices []models.Invoice) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, row := range Rows(invoices) {
		if err := writer.Write(row.Values()); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportCSVFile writes invoices_export.csv into dir and returns its path.
func ExportCSVFile(dir string, invoices []models.Invoice) (string, error) {
	const op = "ExportCSVFile"
	log := logger.WithComponent("export")

	var buf bytes.Buffer
	if err := WriteCSV(&buf, invoices); err != nil {
		return "", fmt.Errorf("%s: encode: %w", op, err)
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%s: create %s: %w", op, dir, err)
	}
	path := filepath.Join(dir, CSVFileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("%s: write %s: %w", op, path, err)
	}

	log.Info().
		Str("path", path).
		Int("rows", len(invoices)).
		Msg("Invoices exported to CSV")
	return path, nil
}
