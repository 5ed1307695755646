package ocr

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrPDFTooLarge is returned when the PDF exceeds the 20MB synchronous limit.
	ErrPDFTooLarge = errors.New("PDF file size exceeds the maximum limit (20MB)")

	// ErrInvalidPDF is returned when the provided data is not a valid PDF document.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrOCRFailed is returned when the Google Cloud API fails to process the document.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when no Google Cloud credentials are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrInvalidConfiguration is returned when required processor settings are missing.
	ErrInvalidConfiguration = errors.New("invalid OCR configuration")

	// ErrTooManyPages is returned when the PDF has too many pages for synchronous processing.
	ErrTooManyPages = errors.New("PDF has too many pages (maximum 5 pages for synchronous processing)")

	// ErrEmptyDocument is returned when the PDF contains no readable text.
	ErrEmptyDocument = errors.New("document contains no readable text")

	// ErrPermissionDenied is returned when the credentials may not use the processor.
	ErrPermissionDenied = errors.New("insufficient permissions for OCR processor")

	// ErrQuotaExceeded is returned when the API quota is exhausted.
	ErrQuotaExceeded = errors.New("OCR API quota exceeded")

	// ErrProcessorNotFound is returned when the configured processor does not exist.
	ErrProcessorNotFound = errors.New("OCR processor not found")

	// ErrContextCanceled is returned when the context is canceled during processing.
	ErrContextCanceled = errors.New("OCR processing was canceled")
)

// OCRError wraps errors with additional context about the OCR processing failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "ProcessPDF", "LoadCredentials").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return NewOCRError(op, err, details)
}

// classifyAPIError maps a Google API call failure onto the package sentinels.
func classifyAPIError(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return WrapOCRError(op, context.DeadlineExceeded, "processing timeout")
	case errors.Is(err, context.Canceled):
		return WrapOCRError(op, ErrContextCanceled, "processing was canceled")
	}

	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return WrapOCRError(op, ErrPermissionDenied, err.Error())
	case codes.ResourceExhausted:
		return WrapOCRError(op, ErrQuotaExceeded, err.Error())
	case codes.NotFound:
		return WrapOCRError(op, ErrProcessorNotFound, err.Error())
	case codes.InvalidArgument:
		return WrapOCRError(op, ErrInvalidPDF, "document format not supported or corrupted")
	case codes.DeadlineExceeded:
		return WrapOCRError(op, context.DeadlineExceeded, "processing timeout")
	case codes.Canceled:
		return WrapOCRError(op, ErrContextCanceled, "processing was canceled")
	}
	return WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("API call failed: %v", err))
}
