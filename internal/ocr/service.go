// Package ocr extracts plain text from scanned invoices with the Google Cloud
// Vision API.
//
// PDFs go through synchronous file annotation and are limited to 5 pages.
// PNG, JPEG, GIF, TIFF and WebP images are sent as a single document text
// detection request. The input is sniffed, so callers pass raw bytes without
// a content type.
//
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS (key file) or
// GOOGLE_CREDENTIALS (inline JSON).
package ocr

import (
	"context"
	"io"
	"time"
)

// Service extracts text from a scanned document.
type Service interface {
	// ExtractText returns the text of every page in reading order.
	ExtractText(ctx context.Context, data io.Reader) (*Result, error)
}

// Result contains the recognized text with metadata.
type Result struct {
	// Text is the text of all pages, separated by page markers.
	Text string `json:"text"`

	// MimeType is the detected type of the input.
	MimeType string `json:"mime_type"`

	PageCount int `json:"page_count"`

	// Confidence is the average page confidence (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	LanguageCodes []string `json:"language_codes,omitempty"`

	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}
