package queue

import (
	"fmt"
	"time"
)

// Stage names the pipeline step a message triggers.
type Stage string

const (
	StageClassification Stage = "classification"
	StageExtraction     Stage = "extraction"
	StageConfidence     Stage = "confidence"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageClassification, StageExtraction, StageConfidence:
		return true
	}
	return false
}

// Next returns the stage that follows s, or "" after the last one.
func (s Stage) Next() Stage {
	switch s {
	case StageClassification:
		return StageExtraction
	case StageExtraction:
		return StageConfidence
	}
	return ""
}

// DefaultSource tags documents uploaded by hand.
const DefaultSource = "ManualUpload"

// Message hands a document to a pipeline stage.
type Message struct {
	ID           string    `json:"id"`
	Stage        Stage     `json:"stage"`
	DocID        string    `json:"docid"`
	FileRef      string    `json:"s3filename"`
	IndexID      string    `json:"indexid"`
	Source       string    `json:"source"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
	ReceiveCount int       `json:"receive_count,omitempty"`
}

// FollowUp returns the message for the next stage of the same document.
func (m Message) FollowUp(stage Stage) Message {
	return Message{
		Stage:   stage,
		DocID:   m.DocID,
		FileRef: m.FileRef,
		IndexID: m.IndexID,
		Source:  m.Source,
	}
}

func (m Message) validate() error {
	if !m.Stage.Valid() {
		return fmt.Errorf("unknown stage %q", m.Stage)
	}
	if m.DocID == "" {
		return fmt.Errorf("docid is required")
	}
	return nil
}
