package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"invoicer/pkg/models"
)

// GetCompany returns the single company row.
func (s *Store) GetCompany(ctx context.Context) (*models.CompanyInfo, error) {
	const op = "GetCompany"

	company, err := firstCompany(s.db.WithContext(ctx))
	if err != nil {
		return nil, wrap(op, "", err)
	}
	return company, nil
}

// SaveCompany creates the company on first use and updates it afterwards.
// Stored logo bytes and appearance survive when c leaves them empty.
func (s *Store) SaveCompany(ctx context.Context, c *models.CompanyInfo) error {
	const op = "SaveCompany"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := firstCompany(tx)
		switch {
		case errors.Is(err, ErrCompanyNotConfigured):
			c.ID = 0
		case err != nil:
			return err
		default:
			c.ID = existing.ID
			c.CreatedAt = existing.CreatedAt
			if len(c.LogoData) == 0 {
				c.LogoData = existing.LogoData
			}
			if c.FontName == "" {
				c.FontName = existing.FontName
			}
			if c.FontSize == 0 {
				c.FontSize = existing.FontSize
			}
		}

		c.ApplyDefaults()
		if err := models.Validate(c); err != nil {
			return err
		}
		return tx.Save(c).Error
	})
	if err != nil {
		return wrap(op, c.Name, err)
	}

	s.log.Info().
		Uint("company_id", c.ID).
		Str("name", c.Name).
		Msg("Company info saved")
	return nil
}

// SaveAppearance updates the invoice font settings.
func (s *Store) SaveAppearance(ctx context.Context, fontName string, fontSize int) (*models.CompanyInfo, error) {
	const op = "SaveAppearance"

	var company *models.CompanyInfo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		company, err = firstCompany(tx)
		if err != nil {
			return err
		}
		company.FontName = fontName
		company.FontSize = fontSize
		if err := models.Validate(company); err != nil {
			return err
		}
		return tx.Model(company).Select("FontName", "FontSize").Updates(company).Error
	})
	if err != nil {
		return nil, wrap(op, fontName, err)
	}

	s.log.Info().
		Str("font_name", fontName).
		Int("font_size", fontSize).
		Msg("Appearance saved")
	return company, nil
}

// SetLogo stores new logo bytes. Empty data removes the logo.
func (s *Store) SetLogo(ctx context.Context, data []byte) error {
	const op = "SetLogo"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := firstCompany(tx)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			data = nil
		}
		return tx.Model(company).Update("logo_data", data).Error
	})
	if err != nil {
		return wrap(op, "", err)
	}

	s.log.Info().Int("bytes", len(data)).Msg("Company logo updated")
	return nil
}

func firstCompany(tx *gorm.DB) (*models.CompanyInfo, error) {
	var company models.CompanyInfo
	if err := tx.Order("id").First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotConfigured
		}
		return nil, err
	}
	return &company, nil
}
