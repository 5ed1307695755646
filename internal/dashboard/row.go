// Package dashboard exports document records as dashboard rows, either to a
// spreadsheet file or to a Google Sheet.
package dashboard

import "claimassist/internal/store"

// Row is one dashboard line.
type Row struct {
	DocID                  string
	DocumentName           string
	Source                 string
	IndexID                string
	Classification         string
	Language               string
	DocStatus              string
	ExtractionStatus       string
	ClassificationStatus   string
	EntityExtractionStatus string
	ConfidenceScoreStatus  string
	DocumentConfScore      string
	ClaimNumber            string
	TotalKeys              int
	EmptyKeysCount         int
	EmptyKeyPerc           string
	MarkForReview          string
	FailureReason          string
	UpdatedAt              string
}

// Headers are the column titles, in Values order.
var Headers = []string{
	"Document ID",
	"Document Name",
	"Source",
	"Index ID",
	"Classification",
	"Language",
	"Status",
	"OCR",
	"Classification Status",
	"Entity Extraction",
	"Confidence Scoring",
	"Confidence Score",
	"Claim Number",
	"Total Keys",
	"Empty Keys",
	"Empty Key %",
	"Review",
	"Failure Reason",
	"Updated",
}

const updatedLayout = "2006-01-02 15:04:05"

// FromDocument builds a row from a stored record.
func FromDocument(d store.Document) Row {
	r := Row{
		DocID:                  d.DocID,
		DocumentName:           d.DocumentName,
		Source:                 d.DocSource,
		IndexID:                d.IndexID,
		Classification:         d.Classification,
		Language:               d.DocLanguage,
		DocStatus:              d.DocStatus,
		ExtractionStatus:       d.ExtractionStatus,
		ClassificationStatus:   d.ClassificationStatus,
		EntityExtractionStatus: d.EntityExtractionStatus,
		ConfidenceScoreStatus:  d.ConfidenceScoreStatus,
		DocumentConfScore:      d.DocumentConfScore,
		ClaimNumber:            d.GWClaimID,
		TotalKeys:              d.TotalKeys,
		EmptyKeysCount:         d.EmptyKeysCount,
		EmptyKeyPerc:           d.EmptyKeyPerc,
		MarkForReview:          d.MarkForReview,
		FailureReason:          d.FailureReason,
	}
	if !d.UpdatedAt.IsZero() {
		r.UpdatedAt = d.UpdatedAt.UTC().Format(updatedLayout)
	}
	return r
}

// FromDocuments builds rows for a list of records.
func FromDocuments(docs []store.Document) []Row {
	rows := make([]Row, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, FromDocument(d))
	}
	return rows
}

// Values returns the cells of r in Headers order.
func (r Row) Values() []any {
	return []any{
		r.DocID,
		r.DocumentName,
		r.Source,
		r.IndexID,
		r.Classification,
		r.Language,
		r.DocStatus,
		r.ExtractionStatus,
		r.ClassificationStatus,
		r.EntityExtractionStatus,
		r.ConfidenceScoreStatus,
		r.DocumentConfScore,
		r.ClaimNumber,
		r.TotalKeys,
		r.EmptyKeysCount,
		r.EmptyKeyPerc,
		r.MarkForReview,
		r.FailureReason,
		r.UpdatedAt,
	}
}
