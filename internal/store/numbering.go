package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"invoicer/pkg/models"
)

const (
	invoiceNumberPrefix = "INV-"
	invoiceNumberMin    = 1000
	invoiceNumberSpan   = 9000 // 1000..9999
	maxNumberAttempts   = 64
)

// NewInvoiceNumber returns an unused "INV-nnnn" number.
func (s *Store) NewInvoiceNumber(ctx context.Context) (string, error) {
	number, err := s.nextNumber(s.db.WithContext(ctx))
	if err != nil {
		return "", wrap("NewInvoiceNumber", "", err)
	}
	return number, nil
}

func (s *Store) nextNumber(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		candidate := fmt.Sprintf("%s%d", invoiceNumberPrefix, invoiceNumberMin+s.randIntn(invoiceNumberSpan))
		taken, err := numberTaken(tx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		s.log.Debug().
			Str("invoice_number", candidate).
			Int("attempt", attempt+1).
			Msg("Generated invoice number collides, retrying")
	}
	return "", ErrNumberSpaceExhausted
}

func numberTaken(tx *gorm.DB, number string) (bool, error) {
	var count int64
	if err := tx.Model(&models.Invoice{}).Where("invoice_number = ?", number).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
