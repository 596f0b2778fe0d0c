package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// Generator lays out invoices and stores the rendered documents.
type Generator struct {
	renderer  Renderer
	outputDir string
	log       zerolog.Logger
}

// NewGenerator returns a generator writing into outputDir. A nil renderer
// selects GofpdfRenderer.
func NewGenerator(renderer Renderer, outputDir string) *Generator {
	if renderer == nil {
		renderer = NewGofpdfRenderer()
	}
	if outputDir == "" {
		outputDir = "."
	}
	return &Generator{
		renderer:  renderer,
		outputDir: outputDir,
		log:       logger.WithComponent("pdf"),
	}
}

// FileName is the document name for an invoice, "Invoice-<number>.pdf".
func FileName(invoiceNumber string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, invoiceNumber)
	return "Invoice-" + safe + ".pdf"
}

// Write renders inv and streams the document to w.
func (g *Generator) Write(inv *models.Invoice, w io.Writer) error {
	const op = "Write"

	page := LayoutInvoicePage(inv)
	if err := g.renderer.Render(page, w); err != nil {
		return NewRenderError(op, err, inv.InvoiceNumber)
	}
	return nil
}

// Generate renders inv into the output directory and returns the path.
func (g *Generator) Generate(inv *models.Invoice) (string, error) {
	const op = "Generate"

	log := g.log.With().Str("invoice_number", inv.InvoiceNumber).Logger()
	log.Info().Int("items", len(inv.Items)).Msg("Generating invoice PDF")

	var buf bytes.Buffer
	if err := g.Write(inv, &buf); err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", NewRenderError(op, fmt.Errorf("%w: %v", ErrWriteFailed, err), inv.InvoiceNumber)
	}
	path := filepath.Join(g.outputDir, FileName(inv.InvoiceNumber))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", NewRenderError(op, fmt.Errorf("%w: %v", ErrWriteFailed, err), inv.InvoiceNumber)
	}

	log.Info().
		Str("path", path).
		Int("bytes", buf.Len()).
		Msg("Invoice PDF written")
	return path, nil
}
