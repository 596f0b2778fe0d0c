package pdf

import (
	"errors"
	"fmt"
)

var (
	// ErrRenderFailed is returned when the PDF backend reports an error.
	ErrRenderFailed = errors.New("pdf rendering failed")

	// ErrUnsupportedImage is returned for logo bytes that are not PNG, JPEG or GIF.
	ErrUnsupportedImage = errors.New("unsupported logo image format")

	// ErrWriteFailed is returned when the rendered document cannot be stored.
	ErrWriteFailed = errors.New("pdf write failed")
)

// RenderError wraps errors with the invoice being rendered.
type RenderError struct {
	// Op is the operation that failed (e.g., "Render", "Generate").
	Op string

	// Err is the underlying error.
	Err error

	// InvoiceNumber identifies the document (if available).
	InvoiceNumber string
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.InvoiceNumber != "" {
		return fmt.Sprintf("pdf: %s failed for invoice %s: %v", e.Op, e.InvoiceNumber, e.Err)
	}
	return fmt.Sprintf("pdf: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *RenderError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRenderError creates a new RenderError.
func NewRenderError(op string, err error, invoiceNumber string) *RenderError {
	return &RenderError{
		Op:            op,
		Err:           err,
		InvoiceNumber: invoiceNumber,
	}
}
