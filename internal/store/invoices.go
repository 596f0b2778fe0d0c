package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"invoicer/pkg/models"
)

// NewInvoice describes an invoice to create. The company is attached
// automatically.
type NewInvoice struct {
	Number     string              // generated when empty
	Date       time.Time           // now when zero
	Terms      models.PaymentTerms // Net 30 when empty
	CustomerID *uint
	IsPaid     bool
	Items      []NewItem
}

// NewItem is one line of a NewInvoice.
type NewItem struct {
	ProductID    uint
	Quantity     int
	DiscountRate decimal.Decimal
}

// InvoiceFilter narrows ListInvoices. Zero values do not filter.
type InvoiceFilter struct {
	Paid       *bool
	CustomerID *uint
	From       time.Time // inclusive, on the invoice date
	To         time.Time // exclusive
}

// CreateInvoice inserts an invoice and its items in one transaction and
// returns it fully loaded.
func (s *Store) CreateInvoice(ctx context.Context, in NewInvoice) (*models.Invoice, error) {
	const op = "CreateInvoice"

	number := strings.TrimSpace(in.Number)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := firstCompany(tx)
		if err != nil {
			return err
		}

		if number == "" {
			if number, err = s.nextNumber(tx); err != nil {
				return err
			}
		} else {
			taken, err := numberTaken(tx, number)
			if err != nil {
				return err
			}
			if taken {
				return ErrDuplicateNumber
			}
		}

		if in.CustomerID != nil {
			if err := tx.First(&models.Customer{}, *in.CustomerID).Error; err != nil {
				return notFound(err)
			}
		}

		date := in.Date
		if date.IsZero() {
			date = time.Now()
		}
		terms := in.Terms
		if terms == "" {
			terms = models.DefaultPaymentTerms
		}

		inv := models.Invoice{
			UUID:            uuid.New(),
			InvoiceNumber:   number,
			Date:            date,
			IsPaid:          in.IsPaid,
			PaymentTermsRaw: terms.String(),
			CompanyInfoID:   company.ID,
			CustomerID:      in.CustomerID,
		}
		if err := models.Validate(&inv); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&inv).Error; err != nil {
			return translateDuplicate(err)
		}

		for _, item := range in.Items {
			if err := insertItem(tx, inv.ID, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrap(op, number, err)
	}

	s.log.Info().
		Str("invoice_number", number).
		Int("items", len(in.Items)).
		Msg("Invoice created")

	return s.GetInvoice(ctx, number)
}

// AddItem appends a line to an existing invoice.
func (s *Store) AddItem(ctx context.Context, number string, item NewItem) (*models.Invoice, error) {
	const op = "AddItem"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := invoiceID(tx, number)
		if err != nil {
			return err
		}
		return insertItem(tx, inv, item)
	})
	if err != nil {
		return nil, wrap(op, number, err)
	}

	s.log.Info().
		Str("invoice_number", number).
		Uint("product_id", item.ProductID).
		Int("quantity", item.Quantity).
		Msg("Invoice item added")

	return s.GetInvoice(ctx, number)
}

// RemoveItem deletes one line of an invoice.
func (s *Store) RemoveItem(ctx context.Context, number string, itemID uint) (*models.Invoice, error) {
	const op = "RemoveItem"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := invoiceID(tx, number)
		if err != nil {
			return err
		}
		res := tx.Where("invoice_id = ?", inv).Delete(&models.InvoiceItem{}, itemID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, wrap(op, number, err)
	}

	s.log.Info().
		Str("invoice_number", number).
		Uint("item_id", itemID).
		Msg("Invoice item removed")

	return s.GetInvoice(ctx, number)
}

// GetInvoice loads an invoice by number with items, products, customer
// and company.
func (s *Store) GetInvoice(ctx context.Context, number string) (*models.Invoice, error) {
	var inv models.Invoice
	err := preloadInvoice(s.db.WithContext(ctx)).
		Where("invoice_number = ?", strings.TrimSpace(number)).
		First(&inv).Error
	if err != nil {
		return nil, wrap("GetInvoice", number, notFound(err))
	}
	return &inv, nil
}

// ListInvoices returns matching invoices, newest first.
func (s *Store) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]models.Invoice, error) {
	q := preloadInvoice(s.db.WithContext(ctx))
	if filter.Paid != nil {
		q = q.Where("is_paid = ?", *filter.Paid)
	}
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	if !filter.From.IsZero() {
		q = q.Where("date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("date < ?", filter.To)
	}

	var invoices []models.Invoice
	if err := q.Order("date DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, wrap("ListInvoices", "", err)
	}
	return invoices, nil
}

// MarkPaid sets or clears the paid flag.
func (s *Store) MarkPaid(ctx context.Context, number string, paid bool) error {
	const op = "MarkPaid"

	res := s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("invoice_number = ?", number).
		Update("is_paid", paid)
	if res.Error != nil {
		return wrap(op, number, res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap(op, number, ErrNotFound)
	}

	s.log.Info().
		Str("invoice_number", number).
		Bool("paid", paid).
		Msg("Invoice payment status updated")
	return nil
}

// DeleteInvoice removes an invoice together with its items.
func (s *Store) DeleteInvoice(ctx context.Context, number string) error {
	const op = "DeleteInvoice"

	var removedItems int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := invoiceID(tx, number)
		if err != nil {
			return err
		}
		res := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{})
		if res.Error != nil {
			return res.Error
		}
		removedItems = res.RowsAffected
		return tx.Delete(&models.Invoice{}, id).Error
	})
	if err != nil {
		return wrap(op, number, err)
	}

	s.log.Info().
		Str("invoice_number", number).
		Int64("items", removedItems).
		Msg("Invoice deleted")
	return nil
}

func preloadInvoice(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Product").
		Preload("Customer").
		Preload("CompanyInfo")
}

func insertItem(tx *gorm.DB, invoiceID uint, in NewItem) error {
	if err := tx.First(&models.Product{}, in.ProductID).Error; err != nil {
		return notFound(err)
	}
	item := models.InvoiceItem{
		InvoiceID:    invoiceID,
		ProductID:    in.ProductID,
		Quantity:     in.Quantity,
		DiscountRate: in.DiscountRate,
	}
	if err := models.Validate(&item); err != nil {
		return err
	}
	return tx.Omit(clause.Associations).Create(&item).Error
}

func invoiceID(tx *gorm.DB, number string) (uint, error) {
	var inv models.Invoice
	if err := tx.Select("id").Where("invoice_number = ?", number).First(&inv).Error; err != nil {
		return 0, notFound(err)
	}
	return inv.ID, nil
}

func translateDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateNumber
	}
	return err
}
