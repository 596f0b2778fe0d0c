package importer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDocument = errors.New("invalid or corrupted document")

	ErrProcessingFailed = errors.New("document AI processing failed")

	// ErrMissingRequiredField is returned when an invoice cannot be completed.
	ErrMissingRequiredField = errors.New("missing required invoice field")

	ErrInvalidCredentials = errors.New("invalid Google Cloud credentials")

	ErrInvalidConfiguration = errors.New("invalid Document AI configuration")

	ErrProcessorNotFound = errors.New("Document AI processor not found")

	ErrQuotaExceeded = errors.New("Document AI API quota exceeded")

	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")

	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrCompletionFailed is returned when the language model gives no usable answer.
	ErrCompletionFailed = errors.New("invoice completion failed")
)

// ImportError wraps errors with the failing operation and the source file.
type ImportError struct {
	Op      string
	Err     error
	Details string
	Source  string
}

func (e *ImportError) Error() string {
	msg := fmt.Sprintf("import: %s failed", e.Op)
	if e.Source != "" {
		msg += fmt.Sprintf(" (%s)", e.Source)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

func (e *ImportError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewImportError creates a new ImportError.
func NewImportError(op string, err error, details string) *ImportError {
	return &ImportError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapImportError wraps err as an ImportError unless it already is one.
func WrapImportError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var importErr *ImportError
	if errors.As(err, &importErr) {
		return err
	}

	return NewImportError(op, err, details)
}

// MissingFieldsError lists the fields still empty after completion.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%v: %v", ErrMissingRequiredField, e.Fields)
}

func (e *MissingFieldsError) Unwrap() error {
	return ErrMissingRequiredField
}
