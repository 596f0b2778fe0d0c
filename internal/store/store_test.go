package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicer/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedCompany(t *testing.T, s *Store, taxRate int) *models.CompanyInfo {
	t.Helper()
	c := models.NewCompanyInfo()
	c.Name = "Acme GmbH"
	c.TaxRate = taxRate
	c.BankAccount = "DE89 3704 0044 0532 0130 00"
	require.NoError(t, s.SaveCompany(context.Background(), c))
	return c
}

func seedProduct(t *testing.T, s *Store, name, price string, rate *int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), TaxRate: rate}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func seedCustomer(t *testing.T, s *Store, name string) *models.Customer {
	t.Helper()
	c := &models.Customer{Name: name, Email: "billing@example.com"}
	require.NoError(t, s.CreateCustomer(context.Background(), c))
	return c
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Options{Driver: "mysql", DSN: "x"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestCompanyUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetCompany(ctx)
	require.ErrorIs(t, err, ErrCompanyNotConfigured)

	first := seedCompany(t, s, 19)
	require.NoError(t, s.SetLogo(ctx, []byte{0x89, 'P', 'N', 'G'}))

	second := &models.CompanyInfo{Name: "Acme AG", TaxRate: 7}
	require.NoError(t, s.SaveCompany(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	got, err := s.GetCompany(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme AG", got.Name)
	assert.Equal(t, 7, got.TaxRate)
	assert.Equal(t, models.DefaultTaxLabel, got.TaxLabel)
	assert.True(t, got.HasLogo(), "logo kept when no new bytes are given")

	var count int64
	require.NoError(t, s.db.Model(&models.CompanyInfo{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSaveAppearance(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.SaveAppearance(ctx, "Courier New", 10)
	require.ErrorIs(t, err, ErrCompanyNotConfigured)

	seedCompany(t, s, 0)
	c, err := s.SaveAppearance(ctx, "Courier New", 10)
	require.NoError(t, err)
	assert.Equal(t, "Courier New", c.FontName)

	_, err = s.SaveAppearance(ctx, "Courier New", 99)
	assert.ErrorIs(t, err, models.ErrInvalid)

	got, err := s.GetCompany(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, got.FontSize)
}

func TestProductRules(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := seedProduct(t, s, "  Design hour ", "80", nil)
	assert.Equal(t, "Design hour", p.Name)
	assert.Equal(t, "USD", p.Currency)

	err := s.CreateProduct(ctx, &models.Product{Name: "", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, models.ErrInvalid)

	found, err := s.FindProductByName(ctx, "design HOUR")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	loaded, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(80).Equal(loaded.Price))

	_, err = s.GetProduct(ctx, 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProductInUse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCompany(t, s, 20)
	p := seedProduct(t, s, "Widget", "10", nil)

	inv, err := s.CreateInvoice(ctx, NewInvoice{
		Items: []NewItem{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	err = s.DeleteProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductInUse)

	require.NoError(t, s.DeleteInvoice(ctx, inv.InvoiceNumber))
	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	assert.ErrorIs(t, s.DeleteProduct(ctx, p.ID), ErrNotFound)
}

func TestDeleteCustomerDetachesInvoices(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCompany(t, s, 0)
	c := seedCustomer(t, s, "Globex")

	inv, err := s.CreateInvoice(ctx, NewInvoice{CustomerID: &c.ID})
	require.NoError(t, err)
	require.NotNil(t, inv.Customer)

	require.NoError(t, s.DeleteCustomer(ctx, c.ID))

	got, err := s.GetInvoice(ctx, inv.InvoiceNumber)
	require.NoError(t, err)
	assert.Nil(t, got.CustomerID)
	assert.Nil(t, got.Customer)
}

func TestCreateInvoiceRequiresCompany(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateInvoice(context.Background(), NewInvoice{})
	assert.ErrorIs(t, err, ErrCompanyNotConfigured)
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCompany(t, s, 20)
	standard := seedProduct(t, s, "Consulting", "100", nil)
	reduced := seedProduct(t, s, "Book", "19.99", models.IntPtr(7))
	c := seedCustomer(t, s, "Initech")

	date := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	inv, err := s.CreateInvoice(ctx, NewInvoice{
		Number:     "INV-0001",
		Date:       date,
		Terms:      models.TermsNet10,
		CustomerID: &c.ID,
		Items: []NewItem{
			{ProductID: standard.ID, Quantity: 2, DiscountRate: decimal.RequireFromString("0.1")},
			{ProductID: reduced.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, inv.UUID)
	require.NotNil(t, inv.CompanyInfo)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "Consulting", inv.Items[0].Product.Name)
	assert.Equal(t, "239.97", models.FormatAmount(inv.Subtotal()))
	assert.Equal(t, "40.20", models.FormatAmount(inv.TaxAmount()))
	assert.Equal(t, "280.17", models.FormatAmount(inv.TotalAmount()))
	assert.True(t, date.AddDate(0, 0, 10).Equal(inv.DueDate()))
	assert.Equal(t, models.StatusOutstanding, inv.Status())
}

func TestCreateInvoiceRejectsBadItems(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCompany(t, s, 0)
	p := seedProduct(t, s, "Widget", "1", nil)

	_, err := s.CreateInvoice(ctx, NewInvoice{Items: []NewItem{{ProductID: p.ID, Quantity: 0}}})
	assert.ErrorIs(t, err, models.ErrInvalid)

	_, err = s.CreateInvoice(ctx, NewInvoice{Items: []NewItem{{ProductID: 999, Quantity: 1}}})
	assert.ErrorIs(t, err, ErrNotFound)

	invoices, err := s.ListInvoices(ctx, InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices, "failed creates roll back")
}

func TestDuplicateInvoiceNumber(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCompany(t, s, 0)

	_, err := s.CreateInvoice(ctx, NewInvoice{Number: "INV-5555"})
	require.NoError(t, err)

	_, err = s.CreateInvoice(ctx, NewInvoice{Number: "INV-5555"})
	assert.ErrorIs(t, err, ErrDuplicateNumber)

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "CreateInvoice", storeErr.Op)
}

func TestGeneratedNumbers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCompany(t, s, 0)

	draws := []int{234, 234, 8999}
	s.randIntn = func(n int) int {
		require.Equal(t, invoiceNumberSpan, n)
		v := draws[0]
		draws = draws[1:]
		return v
	}

	first, err := s.CreateInvoice(ctx, NewInvoice{})
	require.NoError(t, err)
	assert.Equal(t, "INV-1234", first.InvoiceNumber)

	second, err := s.CreateInvoice(ctx, NewInvoice{})
	require.NoError(t, err)
	assert.Equal(t, "INV-9999", second.InvoiceNumber)

	s.randIntn = func(int) int { return 234 }
	_, err = s.NewInvoiceNumber(ctx)
	assert.ErrorIs(t, err, ErrNumberSpaceExhausted)
}

func TestItemLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCompany(t, s, 10)
	p := seedProduct(t, s, "Widget", "5", nil)

	inv, err := s.CreateInvoice(ctx, NewInvoice{Number: "INV-2000"})
	require.NoError(t, err)
	assert.Empty(t, inv.Items)

	inv, err = s.AddItem(ctx, "INV-2000", NewItem{ProductID: p.ID, Quantity: 4})
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "22.00", models.FormatAmount(inv.TotalAmount()))

	_, err = s.RemoveItem(ctx, "INV-2000", inv.Items[0].ID+100)
	assert.ErrorIs(t, err, ErrNotFound)

	inv, err = s.RemoveItem(ctx, "INV-2000", inv.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, inv.Items)

	_, err = s.AddItem(ctx, "INV-missing", NewItem{ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListInvoicesAndMarkPaid(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCompany(t, s, 0)
	c := seedCustomer(t, s, "Umbrella")

	base := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	for i, number := range []string{"INV-1001", "INV-1002", "INV-1003"} {
		in := NewInvoice{Number: number, Date: base.AddDate(0, 0, i)}
		if i == 1 {
			in.CustomerID = &c.ID
		}
		_, err := s.CreateInvoice(ctx, in)
		require.NoError(t, err)
	}

	require.NoError(t, s.MarkPaid(ctx, "INV-1001", true))
	assert.ErrorIs(t, s.MarkPaid(ctx, "INV-0000", true), ErrNotFound)

	all, err := s.ListInvoices(ctx, InvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "INV-1003", all[0].InvoiceNumber, "newest first")

	unpaid := false
	open, err := s.ListInvoices(ctx, InvoiceFilter{Paid: &unpaid})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	mine, err := s.ListInvoices(ctx, InvoiceFilter{CustomerID: &c.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "INV-1002", mine[0].InvoiceNumber)

	window, err := s.ListInvoices(ctx, InvoiceFilter{From: base, To: base.AddDate(0, 0, 2)})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	paid, err := s.GetInvoice(ctx, "INV-1001")
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
}

func TestDeleteInvoiceCascadesItems(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCompany(t, s, 0)
	p := seedProduct(t, s, "Widget", "1", nil)

	inv, err := s.CreateInvoice(ctx, NewInvoice{Items: []NewItem{
		{ProductID: p.ID, Quantity: 1},
		{ProductID: p.ID, Quantity: 2},
	}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteInvoice(ctx, inv.InvoiceNumber))

	var items int64
	require.NoError(t, s.db.Model(&models.InvoiceItem{}).Count(&items).Error)
	assert.Zero(t, items)

	_, err = s.GetInvoice(ctx, inv.InvoiceNumber)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteInvoice(ctx, inv.InvoiceNumber), ErrNotFound)
}
