package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoicer/internal/logger"
	"invoicer/internal/store"
	"invoicer/pkg/models"
)

// Store is the persistence the importer needs.
type Store interface {
	GetCompany(ctx context.Context) (*models.CompanyInfo, error)
	FindCustomerByName(ctx context.Context, name string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, c *models.Customer) error
	FindProductByName(ctx context.Context, name string) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	CreateInvoice(ctx context.Context, in store.NewInvoice) (*models.Invoice, error)
}

// Service runs the import pipeline.
type Service struct {
	store     Store
	extractor Extractor
	completer Completer
	check     *AmountCheck
	log       zerolog.Logger
}

// NewService wires an import pipeline. completer may be nil, in which case
// documents with missing fields are rejected.
func NewService(st Store, extractor Extractor, completer Completer) *Service {
	return &Service{
		store:     st,
		extractor: extractor,
		completer: completer,
		check:     NewAmountCheck(),
		log:       logger.WithComponent("importer"),
	}
}

// Result describes one imported document.
type Result struct {
	Invoice         *models.Invoice
	Imported        *ImportedInvoice
	Amounts         *AmountCheckResult
	CreatedCustomer bool
	CreatedProducts []string
	Warnings        []string
}

// Import reads a PDF or image, completes and checks it, and saves it as an
// outstanding invoice. Customers and products are matched by name and
// created when unknown.
func (s *Service) Import(ctx context.Context, source string, data io.Reader) (*Result, error) {
	const op = "Import"

	content, err := io.ReadAll(io.LimitReader(data, MaxDocumentSizeBytes+1))
	if err != nil {
		return nil, s.fail(op, source, err, "failed to read document")
	}
	if len(content) > MaxDocumentSizeBytes {
		return nil, s.fail(op, source, ErrDocumentTooLarge, "")
	}

	s.log.Info().Str("source", source).Int("bytes", len(content)).Msg("Importing invoice")

	imported, err := s.extractor.Extract(ctx, content)
	if err != nil {
		return nil, s.fail(op, source, err, "")
	}

	if len(imported.MissingFields()) > 0 && s.completer != nil {
		imported, err = s.completer.Complete(ctx, imported, content)
		if err != nil {
			return nil, s.fail(op, source, err, "")
		}
	}
	if missing := imported.MissingFields(); len(missing) > 0 {
		return nil, s.fail(op, source, &MissingFieldsError{Fields: missing}, "")
	}

	if _, err := s.store.GetCompany(ctx); err != nil {
		return nil, s.fail(op, source, err, "")
	}

	result := &Result{Imported: imported}
	items := imported.usableItems()

	customerID, err := s.resolveCustomer(ctx, imported, result)
	if err != nil {
		return nil, s.fail(op, source, err, "")
	}

	newItems := make([]store.NewItem, 0, len(items))
	for _, item := range items {
		product, created, err := s.resolveProduct(ctx, item, imported.Currency)
		if err != nil {
			return nil, s.fail(op, source, err, fmt.Sprintf("product %q", item.Description))
		}
		if created {
			result.CreatedProducts = append(result.CreatedProducts, product.Name)
		} else if !item.UnitPrice.IsZero() && !product.Price.Equal(item.UnitPrice) {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"line %q: catalog price %s used instead of document price %s",
				item.Description, models.FormatAmount(product.Price), models.FormatAmount(item.UnitPrice)))
		}
		if item.StatedQuantity != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"line %q: quantity %s rounded to %d", item.Description, item.StatedQuantity, item.Quantity))
		}
		newItems = append(newItems, store.NewItem{
			ProductID:    product.ID,
			Quantity:     item.Quantity,
			DiscountRate: decimal.Zero,
		})
	}

	inv, err := s.store.CreateInvoice(ctx, store.NewInvoice{
		Number:     imported.InvoiceNumber,
		Date:       imported.Date,
		Terms:      TermsFor(imported),
		CustomerID: customerID,
		Items:      newItems,
	})
	if err != nil {
		return nil, s.fail(op, source, err, "")
	}
	result.Invoice = inv

	// Checked against what was stored: matched products bring their own
	// price and tax rate.
	result.Amounts = s.check.Check(imported, inv.Totals())
	result.Warnings = append(result.Warnings, result.Amounts.Warnings...)

	s.log.Info().
		Str("source", source).
		Str("invoice_number", inv.InvoiceNumber).
		Str("total", models.FormatAmount(inv.TotalAmount())).
		Bool("created_customer", result.CreatedCustomer).
		Strs("created_products", result.CreatedProducts).
		Int("warnings", len(result.Warnings)).
		Msg("Invoice imported")

	return result, nil
}

func (s *Service) fail(op, source string, err error, details string) error {
	wrapped := WrapImportError(op, err, details)
	var importErr *ImportError
	if errors.As(wrapped, &importErr) && importErr.Source == "" {
		importErr.Source = source
	}
	s.log.Error().Err(wrapped).Str("source", source).Msg("Import failed")
	return wrapped
}

// resolveCustomer matches the customer by name or creates it. A customer
// without contact details cannot be stored; the invoice is then imported
// without one and a warning is recorded.
func (s *Service) resolveCustomer(ctx context.Context, imported *ImportedInvoice, result *Result) (*uint, error) {
	name := strings.TrimSpace(imported.CustomerName)
	if name == "" {
		return nil, nil
	}

	existing, err := s.store.FindCustomerByName(ctx, name)
	if err == nil {
		return &existing.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	customer := &models.Customer{
		Name:    name,
		Email:   imported.CustomerEmail,
		Address: imported.CustomerAddress,
	}
	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		if errors.Is(err, models.ErrInvalid) {
			warning := fmt.Sprintf("customer %q not created (%v); invoice imported without customer", name, err)
			result.Warnings = append(result.Warnings, warning)
			s.log.Warn().Err(err).Str("customer", name).Msg("Skipping imported customer")
			return nil, nil
		}
		return nil, err
	}
	result.CreatedCustomer = true
	return &customer.ID, nil
}

// resolveProduct matches a catalog product by the line description or
// creates one at the line's unit price with no tax override.
func (s *Service) resolveProduct(ctx context.Context, item ImportedItem, currency string) (*models.Product, bool, error) {
	name := strings.TrimSpace(item.Description)

	existing, err := s.store.FindProductByName(ctx, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	product := &models.Product{
		Name:     name,
		Price:    item.UnitPrice,
		Currency: currency,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, false, err
	}
	return product, true, nil
}

// TermsFor picks the named payment term matching the gap between invoice
// and due date, or Other. Without a due date the default term applies.
func TermsFor(imported *ImportedInvoice) models.PaymentTerms {
	if imported.DueDate.IsZero() || imported.Date.IsZero() {
		return models.DefaultPaymentTerms
	}
	days := int(math.Round(imported.DueDate.Sub(imported.Date).Hours() / 24))
	return models.TermsForDays(days)
}
