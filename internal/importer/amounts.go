package importer

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// DefaultTolerancePct is the relative difference accepted between a stated
// and a recomputed total.
const DefaultTolerancePct = 1.0

// AmountCheck compares the totals printed on a document with the totals
// recomputed from its imported lines.
type AmountCheck struct {
	TolerancePct float64
	log          zerolog.Logger
}

// NewAmountCheck creates a check with DefaultTolerancePct.
func NewAmountCheck() *AmountCheck {
	return &AmountCheck{
		TolerancePct: DefaultTolerancePct,
		log:          logger.WithComponent("amount-check"),
	}
}

// AmountCheckResult reports discrepancies. They never block an import.
type AmountCheckResult struct {
	Warnings       []string
	HasDiscrepancy bool
	MaxDiscrepancy float64 // percentage
}

// Check compares each stated amount present on inv with its computed
// counterpart and verifies that net plus tax equals gross.
func (c *AmountCheck) Check(inv *ImportedInvoice, computed models.Totals) *AmountCheckResult {
	result := &AmountCheckResult{Warnings: []string{}}

	c.compare("net", inv.NetAmount, computed.Subtotal, result)
	c.compare("tax", inv.TaxAmount, computed.Tax, result)
	c.compare("gross", inv.TotalAmount, computed.Total, result)
	c.crossValidate(inv, result)

	event := c.log.Info()
	if result.HasDiscrepancy {
		event = c.log.Warn()
	}
	event.
		Str("invoice_number", inv.InvoiceNumber).
		Str("computed_total", models.FormatAmount(computed.Total)).
		Bool("has_discrepancy", result.HasDiscrepancy).
		Float64("max_discrepancy_pct", result.MaxDiscrepancy).
		Strs("warnings", result.Warnings).
		Msg("Amount check completed")

	return result
}

// compare skips amounts the document did not state.
func (c *AmountCheck) compare(kind string, stated, computed decimal.Decimal, result *AmountCheckResult) {
	if stated.IsZero() {
		return
	}

	discrepancy := discrepancyPct(stated, computed)
	if discrepancy > result.MaxDiscrepancy {
		result.MaxDiscrepancy = discrepancy
	}
	if discrepancy <= c.TolerancePct {
		return
	}

	result.HasDiscrepancy = true
	result.Warnings = append(result.Warnings, fmt.Sprintf(
		"%s amount discrepancy: document=%s, computed=%s (%.1f%% difference)",
		kind, models.FormatAmount(stated), models.FormatAmount(computed), discrepancy))
}

// crossValidate checks net + tax against gross within two cents.
func (c *AmountCheck) crossValidate(inv *ImportedInvoice, result *AmountCheckResult) {
	if inv.NetAmount.IsZero() || inv.TaxAmount.IsZero() || inv.TotalAmount.IsZero() {
		return
	}

	calculated := inv.NetAmount.Add(inv.TaxAmount)
	difference := calculated.Sub(inv.TotalAmount).Abs()
	if difference.LessThanOrEqual(decimal.New(2, -2)) {
		return
	}

	result.HasDiscrepancy = true
	result.Warnings = append(result.Warnings, fmt.Sprintf(
		"Amount calculation error: Net(%s) + Tax(%s) = %s, but Gross=%s (difference: %s)",
		models.FormatAmount(inv.NetAmount),
		models.FormatAmount(inv.TaxAmount),
		models.FormatAmount(calculated),
		models.FormatAmount(inv.TotalAmount),
		models.FormatAmount(difference)))
}

// discrepancyPct is the difference relative to the larger absolute amount.
func discrepancyPct(a, b decimal.Decimal) float64 {
	if a.Equal(b) {
		return 0
	}
	larger := decimal.Max(a.Abs(), b.Abs())
	if larger.IsZero() {
		return 0
	}
	return a.Sub(b).Abs().Div(larger).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
