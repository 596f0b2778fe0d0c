package store

import (
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"invoicer/pkg/models"
)

// CreateProduct validates and inserts a product. The currency is
// normalised before saving.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	const op = "CreateProduct"

	p.Name = strings.TrimSpace(p.Name)
	p.Currency = models.NormalizeCurrency(p.Currency)
	if err := models.Validate(p); err != nil {
		return wrap(op, p.Name, err)
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return wrap(op, p.Name, err)
	}

	s.log.Info().
		Uint("product_id", p.ID).
		Str("name", p.Name).
		Str("price", p.Price.String()).
		Str("currency", p.Currency).
		Msg("Product created")
	return nil
}

// ListProducts returns the catalog ordered by name.
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("name, id").Find(&products).Error; err != nil {
		return nil, wrap("ListProducts", "", err)
	}
	return products, nil
}

// GetProduct loads one product by id.
func (s *Store) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, wrap("GetProduct", idKey(id), notFound(err))
	}
	return &p, nil
}

// FindProductByName matches a product name case-insensitively.
func (s *Store) FindProductByName(ctx context.Context, name string) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Order("id").
		First(&p).Error
	if err != nil {
		return nil, wrap("FindProductByName", name, notFound(err))
	}
	return &p, nil
}

// DeleteProduct removes a product no invoice item references.
func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	const op = "DeleteProduct"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&models.InvoiceItem{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrProductInUse
		}
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return wrap(op, idKey(id), err)
	}

	s.log.Info().Uint("product_id", id).Msg("Product deleted")
	return nil
}

// CreateCustomer validates and inserts a customer.
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	const op = "CreateCustomer"

	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	if err := models.Validate(c); err != nil {
		return wrap(op, c.Name, err)
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return wrap(op, c.Name, err)
	}

	s.log.Info().
		Uint("customer_id", c.ID).
		Str("name", c.Name).
		Msg("Customer created")
	return nil
}

// ListCustomers returns all customers ordered by name.
func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	if err := s.db.WithContext(ctx).Order("name, id").Find(&customers).Error; err != nil {
		return nil, wrap("ListCustomers", "", err)
	}
	return customers, nil
}

// GetCustomer loads one customer by id.
func (s *Store) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, wrap("GetCustomer", idKey(id), notFound(err))
	}
	return &c, nil
}

// FindCustomerByName matches a customer name case-insensitively.
func (s *Store) FindCustomerByName(ctx context.Context, name string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Order("id").
		First(&c).Error
	if err != nil {
		return nil, wrap("FindCustomerByName", name, notFound(err))
	}
	return &c, nil
}

// DeleteCustomer removes a customer. Its invoices are kept and lose the
// customer reference.
func (s *Store) DeleteCustomer(ctx context.Context, id uint) error {
	const op = "DeleteCustomer"

	var detached int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invoice{}).Where("customer_id = ?", id).Update("customer_id", nil)
		if res.Error != nil {
			return res.Error
		}
		detached = res.RowsAffected

		res = tx.Delete(&models.Customer{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return wrap(op, idKey(id), err)
	}

	s.log.Info().
		Uint("customer_id", id).
		Int64("invoices_detached", detached).
		Msg("Customer deleted")
	return nil
}

func idKey(id uint) string {
	return "#" + strconv.FormatUint(uint64(id), 10)
}
