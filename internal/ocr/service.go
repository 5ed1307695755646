// Package ocr reads the text of scanned claim documents.
//
// Two Google Cloud backends are available. DocumentAIService runs a form
// parser processor and returns the raw text together with rendered tables and
// key-value pairs. GoogleVisionOCRService returns raw text only.
//
// Credentials come from GOOGLE_CREDENTIALS (inline JSON) or
// GOOGLE_APPLICATION_CREDENTIALS (file path), falling back to application
// default credentials.
//
// Synchronous processing limits:
//   - Maximum file size: 20MB
//   - Vision: at most 5 pages per request
//   - Supported input: PDF
package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/api/option"
)

// OCRService extracts text from a PDF document.
type OCRService interface {
	// ProcessPDF returns the concatenated text of all pages.
	ProcessPDF(ctx context.Context, pdfData io.Reader) (string, error)

	// ProcessPDFWithMetadata returns the text together with layout and
	// processing details.
	ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*OCRResult, error)
}

// OCRResult contains the results of OCR processing with metadata.
type OCRResult struct {
	// Text is the extracted text content from all pages, in reading order.
	Text string `json:"text"`

	// TableText renders every detected table, one per line. Empty when the
	// backend does not detect tables.
	TableText string `json:"table_text,omitempty"`

	// KeyValueText lists detected form fields, one "Key: k, Value: v" per line.
	KeyValueText string `json:"key_value_text,omitempty"`

	PageCount int `json:"page_count"`

	// Confidence is the average detection confidence (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	ProcessedAt        time.Time     `json:"processed_at"`
	LanguageCodes      []string      `json:"language_codes,omitempty"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of pages for synchronous Vision processing
	MaxPagesSync = 5
)

// readPDF reads and sanity checks a PDF.
func readPDF(op string, pdfData io.Reader) ([]byte, error) {
	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read PDF data")
	}
	if len(pdfBytes) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrPDFTooLarge, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, WrapOCRError(op, ErrInvalidPDF, "missing PDF header")
	}
	return pdfBytes, nil
}

// credentialOptions picks credentials from the environment. ok is false when
// neither variable is set.
func credentialOptions() (opts []option.ClientOption, ok bool) {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}, true
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}, true
	}
	return nil, false
}
