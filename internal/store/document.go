package store

import "time"

// Stage and document statuses shown on the dashboard.
const (
	StatusToBeProcessed = "To Be Processed"
	StatusCompleted     = "Completed"
	StatusFailed        = "Failed"
)

// Review flag values.
const (
	ReviewYes = "Yes"
	ReviewNo  = "No"
)

// Column names accepted by Persist.
const (
	ColIndexID                = "index_id"
	ColDocumentName           = "document_name"
	ColFileRef                = "file_ref"
	ColDocSource              = "doc_source"
	ColRawText                = "raw_text"
	ColTableText              = "table_text"
	ColKeyValuesText          = "key_values_text"
	ColTranslatedText         = "translated_text"
	ColDocLanguage            = "doc_language"
	ColClassification         = "classification"
	ColExtractedEntities      = "extracted_entities"
	ColTotalKeys              = "total_keys"
	ColEmptyKeysCount         = "empty_keys_count"
	ColEmptyKeys              = "empty_keys"
	ColEmptyKeyPerc           = "empty_key_perc"
	ColDocumentConfScore      = "document_conf_score"
	ColGWClaimID              = "gw_claim_id"
	ColMarkForReview          = "mark_for_review"
	ColExtractionStatus       = "extraction_status"
	ColClassificationStatus   = "classification_status"
	ColEntityExtractionStatus = "entity_extraction_status"
	ColConfidenceScoreStatus  = "confidence_score_status"
	ColDocStatus              = "doc_status"
	ColFailureReason          = "failure_reason"
)

type columnKind int

const (
	kindText columnKind = iota
	kindInt
	kindList
)

var columns = map[string]columnKind{
	ColIndexID:                kindText,
	ColDocumentName:           kindText,
	ColFileRef:                kindText,
	ColDocSource:              kindText,
	ColRawText:                kindText,
	ColTableText:              kindText,
	ColKeyValuesText:          kindText,
	ColTranslatedText:         kindText,
	ColDocLanguage:            kindText,
	ColClassification:         kindText,
	ColExtractedEntities:      kindText,
	ColTotalKeys:              kindInt,
	ColEmptyKeysCount:         kindInt,
	ColEmptyKeys:              kindList,
	ColEmptyKeyPerc:           kindText,
	ColDocumentConfScore:      kindText,
	ColGWClaimID:              kindText,
	ColMarkForReview:          kindText,
	ColExtractionStatus:       kindText,
	ColClassificationStatus:   kindText,
	ColEntityExtractionStatus: kindText,
	ColConfidenceScoreStatus:  kindText,
	ColDocStatus:              kindText,
	ColFailureReason:          kindText,
}

// Fields is a partial update of a document record keyed by column name.
// Text columns take a string, count columns an int and empty_keys a []string.
type Fields map[string]any

// Document is one stored record.
type Document struct {
	DocID                  string    `json:"doc_id"`
	IndexID                string    `json:"index_id"`
	DocumentName           string    `json:"document_name"`
	FileRef                string    `json:"file_ref"`
	DocSource              string    `json:"doc_source"`
	RawText                string    `json:"raw_text"`
	TableText              string    `json:"table_text"`
	KeyValuesText          string    `json:"key_values_text"`
	TranslatedText         string    `json:"translated_text"`
	DocLanguage            string    `json:"doc_language"`
	Classification         string    `json:"classification"`
	ExtractedEntities      string    `json:"extracted_entities"`
	TotalKeys              int       `json:"total_keys"`
	EmptyKeysCount         int       `json:"empty_keys_count"`
	EmptyKeys              []string  `json:"empty_keys"`
	EmptyKeyPerc           string    `json:"empty_key_perc"`
	DocumentConfScore      string    `json:"document_conf_score"`
	GWClaimID              string    `json:"gw_claim_id"`
	MarkForReview          string    `json:"mark_for_review"`
	ExtractionStatus       string    `json:"extraction_status"`
	ClassificationStatus   string    `json:"classification_status"`
	EntityExtractionStatus string    `json:"entity_extraction_status"`
	ConfidenceScoreStatus  string    `json:"confidence_score_status"`
	DocStatus              string    `json:"doc_status"`
	FailureReason          string    `json:"failure_reason"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// ClassificationText returns the text classification and extraction should
// read: the English translation when one was stored, otherwise the raw text.
func (d *Document) ClassificationText() (raw, table, keyValues string) {
	if d.TranslatedText != "" {
		return d.TranslatedText, "", ""
	}
	return d.RawText, d.TableText, d.KeyValuesText
}
