package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a looked up record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrCompanyNotConfigured is returned when an operation needs the
	// company row and none has been saved yet.
	ErrCompanyNotConfigured = errors.New("company info not configured")

	// ErrDuplicateNumber is returned when an invoice number is already taken.
	ErrDuplicateNumber = errors.New("invoice number already exists")

	// ErrProductInUse is returned when deleting a product that invoice items
	// still reference.
	ErrProductInUse = errors.New("product is referenced by invoice items")

	// ErrNumberSpaceExhausted is returned when no free generated invoice
	// number was found within the attempt limit.
	ErrNumberSpaceExhausted = errors.New("no free invoice number found")

	// ErrUnsupportedDriver is returned for database drivers other than
	// sqlite and postgres.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// StoreError records which store operation failed and on what.
type StoreError struct {
	// Op is the store method, e.g. "CreateInvoice".
	Op string

	// Err is the underlying error.
	Err error

	// Key identifies the record involved (invoice number, product id, ...).
	Key string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store: %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &StoreError{Op: op, Err: err, Key: key}
}
