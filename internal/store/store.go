// Package store persists companies, catalog entries and invoices with gorm.
//
// The default backend is an embedded sqlite file; postgres is selected with
// INVOICER_DB_DRIVER=postgres. The schema is created with AutoMigrate when
// the store is opened.
package store

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// Options configures Open.
type Options struct {
	Driver string // sqlite or postgres
	DSN    string
	Debug  bool // log every SQL statement
}

// Store is the repository used by every command.
type Store struct {
	db       *gorm.DB
	log      zerolog.Logger
	randIntn func(n int) int
}

// Open connects to the configured database and migrates the schema.
func Open(opts Options) (*Store, error) {
	const op = "Open"

	dialector, err := dialectorFor(opts.Driver, opts.DSN)
	if err != nil {
		return nil, wrap(op, opts.Driver, err)
	}

	level := gormlogger.Silent
	if opts.Debug {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, wrap(op, opts.Driver, fmt.Errorf("connect: %w", err))
	}

	return New(db)
}

// New wraps an open gorm handle and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	const op = "Migrate"

	modelsToMigrate := []interface{}{
		&models.CompanyInfo{},
		&models.Customer{},
		&models.Product{},
		&models.Invoice{},
		&models.InvoiceItem{},
	}
	for _, m := range modelsToMigrate {
		if err := db.AutoMigrate(m); err != nil {
			return nil, wrap(op, fmt.Sprintf("%T", m), err)
		}
	}

	return &Store{
		db:       db,
		log:      logger.WithComponent("store"),
		randIntn: rand.IntN,
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrap("Close", "", err)
	}
	return wrap("Close", "", sqlDB.Close())
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("empty DSN")
	}
	switch strings.ToLower(driver) {
	case "", "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
}

// notFound maps gorm's missing-record error to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
