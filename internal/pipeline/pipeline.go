// Package pipeline runs a document through OCR, classification, entity
// extraction and confidence scoring.
//
// Each stage reads the document record, does its work, writes its results
// back and enqueues the next stage. A stage that fails marks its own status
// and the document status Failed and records the reason; results written by
// earlier stages are left untouched.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"claimassist/internal/classify"
	"claimassist/internal/entity"
	"claimassist/internal/extract"
	"claimassist/internal/language"
	"claimassist/internal/logger"
	"claimassist/internal/ocr"
	"claimassist/internal/queue"
	"claimassist/internal/schema"
	"claimassist/internal/scoring"
	"claimassist/internal/store"
)

// StageOCR names the text extraction step, which runs before any queue stage.
const StageOCR = "ocr"

// ErrUnknownStage is returned by Handle for a message with no matching stage.
var ErrUnknownStage = errors.New("unknown pipeline stage")

// StageError is a stage failure that has been recorded on the document.
type StageError struct {
	Stage string
	DocID string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s stage failed for %s: %v", e.Stage, e.DocID, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Records is the document store as the pipeline uses it.
type Records interface {
	Get(ctx context.Context, docID string) (*store.Document, error)
	Persist(ctx context.Context, docID string, fields store.Fields) error
}

// Publisher sends a stage message.
type Publisher interface {
	Enqueue(ctx context.Context, msg queue.Message) (queue.Message, error)
}

// Classifier assigns a document type.
type Classifier interface {
	Dispatch(ctx context.Context, doc classify.Document) (classify.Outcome, error)
}

// Extractor pulls entities out of a classified document.
type Extractor interface {
	Extract(ctx context.Context, in extract.Input) (*extract.Result, error)
}

// Scorer annotates an entity tree with confidences.
type Scorer interface {
	Run(ctx context.Context, text string, tree *entity.Tree, label schema.Label) (*scoring.Result, error)
}

// Deps are the collaborators of a Pipeline. OCR is only needed by Ingest.
type Deps struct {
	Records    Records
	Publisher  Publisher
	OCR        ocr.OCRService
	Classifier Classifier
	Extractor  Extractor
	Scorer     Scorer
}

// Pipeline runs stages against stored documents.
type Pipeline struct {
	records    Records
	publisher  Publisher
	ocr        ocr.OCRService
	classifier Classifier
	extractor  Extractor
	scorer     Scorer
	log        zerolog.Logger
}

// New creates a pipeline.
func New(deps Deps) *Pipeline {
	return &Pipeline{
		records:    deps.Records,
		publisher:  deps.Publisher,
		ocr:        deps.OCR,
		classifier: deps.Classifier,
		extractor:  deps.Extractor,
		scorer:     deps.Scorer,
		log:        logger.WithComponent("pipeline"),
	}
}

// Handle runs the stage named by msg. It implements queue.Handler.
func (p *Pipeline) Handle(ctx context.Context, msg queue.Message) error {
	switch msg.Stage {
	case queue.StageClassification:
		return p.Classify(ctx, msg)
	case queue.StageExtraction:
		return p.Extract(ctx, msg)
	case queue.StageConfidence:
		return p.Score(ctx, msg)
	}
	return fmt.Errorf("pipeline.Handle: %w: %q", ErrUnknownStage, msg.Stage)
}

// IngestRequest describes a new source document.
type IngestRequest struct {
	DocID        string
	DocumentName string
	FileRef      string
	IndexID      string
	Source       string
	PDF          io.Reader
}

// Ingest reads the text of a PDF, creates the document record and enqueues
// classification.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) error {
	const op = "pipeline.Ingest"

	if req.DocID == "" {
		return fmt.Errorf("%s: document id is required", op)
	}
	if p.ocr == nil {
		return fmt.Errorf("%s: no OCR service configured", op)
	}
	if req.Source == "" {
		req.Source = queue.DefaultSource
	}

	log := logger.WithDocument(p.log, req.DocID)
	log.Info().Str("file", req.FileRef).Str("source", req.Source).Msg("Ingesting document")

	base := store.Fields{
		store.ColDocumentName: req.DocumentName,
		store.ColFileRef:      req.FileRef,
		store.ColIndexID:      req.IndexID,
		store.ColDocSource:    req.Source,
	}

	res, err := p.ocr.ProcessPDFWithMetadata(ctx, req.PDF)
	if err != nil {
		if perr := p.records.Persist(ctx, req.DocID, base); perr != nil {
			log.Error().Err(perr).Msg("Could not create record for failed document")
		}
		return p.fail(ctx, StageOCR, req.DocID, store.ColExtractionStatus, err)
	}

	fields := store.Fields{
		store.ColRawText:                res.Text,
		store.ColTableText:              res.TableText,
		store.ColKeyValuesText:          res.KeyValueText,
		store.ColExtractionStatus:       store.StatusCompleted,
		store.ColClassificationStatus:   store.StatusToBeProcessed,
		store.ColEntityExtractionStatus: store.StatusToBeProcessed,
		store.ColConfidenceScoreStatus:  store.StatusToBeProcessed,
		store.ColDocStatus:              store.StatusToBeProcessed,
		store.ColFailureReason:          "",
	}
	for k, v := range base {
		fields[k] = v
	}
	if err := p.records.Persist(ctx, req.DocID, fields); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info().
		Int("pages", res.PageCount).
		Int("text_length", len(res.Text)).
		Msg("Document text stored")

	next := queue.Message{
		Stage:   queue.StageClassification,
		DocID:   req.DocID,
		FileRef: req.FileRef,
		IndexID: req.IndexID,
		Source:  req.Source,
	}
	if _, err := p.publisher.Enqueue(ctx, next); err != nil {
		return p.fail(ctx, StageOCR, req.DocID, "", fmt.Errorf("enqueue classification: %w", err))
	}
	return nil
}

// Classify assigns a document type and enqueues extraction.
func (p *Pipeline) Classify(ctx context.Context, msg queue.Message) error {
	const stage = string(queue.StageClassification)
	log := logger.WithDocument(p.log, msg.DocID)
	log.Info().Msg("Classification started")

	doc, err := p.records.Get(ctx, msg.DocID)
	if err != nil {
		return p.fail(ctx, stage, msg.DocID, store.ColClassificationStatus, err)
	}

	out, err := p.classifier.Dispatch(ctx, classify.Document{
		ID:           doc.DocID,
		RawText:      doc.RawText,
		TableText:    doc.TableText,
		KeyValueText: doc.KeyValuesText,
	})
	if err != nil {
		return p.fail(ctx, stage, msg.DocID, store.ColClassificationStatus, err)
	}

	err = p.records.Persist(ctx, msg.DocID, store.Fields{
		store.ColClassification:       out.Label.String(),
		store.ColDocLanguage:          out.Language.Name,
		store.ColClassificationStatus: store.StatusCompleted,
	})
	if err != nil {
		return p.fail(ctx, stage, msg.DocID, store.ColClassificationStatus, err)
	}

	log.Info().Str("classification", out.Label.String()).Msg("Classification finished")
	return p.forward(ctx, stage, msg, queue.StageExtraction)
}

// Extract runs schema-driven extraction and enqueues confidence scoring.
func (p *Pipeline) Extract(ctx context.Context, msg queue.Message) error {
	const stage = string(queue.StageExtraction)
	log := logger.WithDocument(p.log, msg.DocID)
	log.Info().Msg("Entity extraction started")

	doc, err := p.records.Get(ctx, msg.DocID)
	if err != nil {
		return p.fail(ctx, stage, msg.DocID, store.ColEntityExtractionStatus, err)
	}

	label, ok := schema.ParseLabel(doc.Classification)
	if !ok {
		label = schema.Unidentified
	}
	raw, table, kv := doc.ClassificationText()

	res, err := p.extractor.Extract(ctx, extract.Input{
		DocID:        doc.DocID,
		Label:        label,
		RawText:      raw,
		TableText:    table,
		KeyValueText: kv,
	})
	if err != nil {
		if errors.Is(err, schema.ErrUnsupportedClassification) {
			// nothing to extract; a person has to look at it
			if rerr := p.records.Persist(ctx, msg.DocID, store.Fields{store.ColMarkForReview: store.ReviewYes}); rerr != nil {
				log.Error().Err(rerr).Msg("Could not flag document for review")
			}
		}
		return p.fail(ctx, stage, msg.DocID, store.ColEntityExtractionStatus, err)
	}

	err = p.records.Persist(ctx, msg.DocID, store.Fields{
		store.ColExtractedEntities:      res.Tree.String(),
		store.ColTotalKeys:              res.Stats.TotalKeys,
		store.ColEmptyKeysCount:         res.Stats.EmptyKeysCount,
		store.ColEmptyKeys:              res.Stats.EmptyKeys,
		store.ColEmptyKeyPerc:           res.Stats.EmptyKeyPerc,
		store.ColGWClaimID:              res.ClaimNumber,
		store.ColEntityExtractionStatus: store.StatusCompleted,
	})
	if err != nil {
		return p.fail(ctx, stage, msg.DocID, store.ColEntityExtractionStatus, err)
	}

	log.Info().Int("total_keys", res.Stats.TotalKeys).Msg("Entity extraction finished")
	return p.forward(ctx, stage, msg, queue.StageConfidence)
}

// Score annotates the stored entities with confidences and completes the document.
func (p *Pipeline) Score(ctx context.Context, msg queue.Message) error {
	const stage = string(queue.StageConfidence)
	log := logger.WithDocument(p.log, msg.DocID)
	log.Info().Msg("Confidence scoring started")

	doc, err := p.records.Get(ctx, msg.DocID)
	if err != nil {
		return p.fail(ctx, stage, msg.DocID, store.ColConfidenceScoreStatus, err)
	}
	if doc.ExtractedEntities == "" {
		return p.fail(ctx, stage, msg.DocID, store.ColConfidenceScoreStatus, errors.New("no extracted entities stored"))
	}

	tree, err := entity.Parse([]byte(doc.ExtractedEntities))
	if err != nil {
		return p.fail(ctx, stage, msg.DocID, store.ColConfidenceScoreStatus, err)
	}
	label, ok := schema.ParseLabel(doc.Classification)
	if !ok {
		label = schema.Unidentified
	}
	text, _, _ := doc.ClassificationText()

	res, err := p.scorer.Run(ctx, text, tree, label)
	if err != nil {
		return p.fail(ctx, stage, msg.DocID, store.ColConfidenceScoreStatus, err)
	}

	err = p.records.Persist(ctx, msg.DocID, store.Fields{
		store.ColExtractedEntities:     res.Tree.String(),
		store.ColDocumentConfScore:     res.DocumentScore,
		store.ColConfidenceScoreStatus: store.StatusCompleted,
		store.ColDocStatus:             store.StatusCompleted,
		store.ColFailureReason:         "",
	})
	if err != nil {
		return p.fail(ctx, stage, msg.DocID, store.ColConfidenceScoreStatus, err)
	}

	log.Info().
		Str("document_score", res.DocumentScore).
		Int("failed_batches", res.FailedBatches).
		Msg("Confidence scoring finished")
	return nil
}

// MarkForReview flags a document for manual review.
func (p *Pipeline) MarkForReview(ctx context.Context, docID string) error {
	const op = "pipeline.MarkForReview"

	if _, err := p.records.Get(ctx, docID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := p.records.Persist(ctx, docID, store.Fields{store.ColMarkForReview: store.ReviewYes}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log := logger.WithDocument(p.log, docID)
	log.Info().Msg("Document marked for review")
	return nil
}

// TranslationRecorder stores a translation ahead of classification. It
// implements classify.Recorder.
type TranslationRecorder struct {
	Records Records
}

// RecordTranslation implements classify.Recorder.
func (r TranslationRecorder) RecordTranslation(ctx context.Context, docID, translatedText string, lang language.Detection) error {
	return r.Records.Persist(ctx, docID, store.Fields{
		store.ColTranslatedText: translatedText,
		store.ColDocLanguage:    lang.Name,
	})
}

func (p *Pipeline) forward(ctx context.Context, stage string, msg queue.Message, next queue.Stage) error {
	if _, err := p.publisher.Enqueue(ctx, msg.FollowUp(next)); err != nil {
		return p.fail(ctx, stage, msg.DocID, "", fmt.Errorf("enqueue %s: %w", next, err))
	}
	return nil
}

// fail records err against the document and returns it as a StageError.
// statusCol names the stage status column to set, or "" to leave it.
func (p *Pipeline) fail(ctx context.Context, stage, docID, statusCol string, err error) error {
	serr := &StageError{Stage: stage, DocID: docID, Err: err}
	log := logger.WithDocument(p.log, docID)
	log.Error().Err(err).Str("stage", stage).Msg("Stage failed")

	if errors.Is(err, store.ErrNotFound) {
		return serr
	}

	fields := store.Fields{
		store.ColDocStatus:     store.StatusFailed,
		store.ColFailureReason: err.Error(),
	}
	if statusCol != "" {
		fields[statusCol] = store.StatusFailed
	}

	// the stage context may already be spent
	pctx := ctx
	if ctx.Err() != nil {
		pctx = context.WithoutCancel(ctx)
	}
	if perr := p.records.Persist(pctx, docID, fields); perr != nil {
		log.Error().Err(perr).Str("stage", stage).Msg("Could not record stage failure")
	}
	return serr
}
