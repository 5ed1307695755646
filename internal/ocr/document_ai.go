package ocr

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"claimassist/internal/logger"
)

// DocumentAIConfig identifies a Document AI form parser processor.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string // "us" or "eu"
	ProcessorID      string
	ProcessorVersion string // optional
	Timeout          time.Duration
}

func (c DocumentAIConfig) processorName() string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
	if c.ProcessorVersion != "" {
		name += "/processorVersions/" + c.ProcessorVersion
	}
	return name
}

type documentProcessor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
	Close() error
}

// DocumentAIService implements OCRService with a Document AI form parser.
type DocumentAIService struct {
	client documentProcessor
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIService creates a form parser backed service with credentials from the environment.
func NewDocumentAIService(ctx context.Context, cfg DocumentAIConfig) (*DocumentAIService, error) {
	const op = "NewDocumentAIService"

	if cfg.ProjectID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "GOOGLE_CLOUD_PROJECT is required")
	}
	if cfg.ProcessorID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}

	opts, haveCreds := credentialOptions()
	if cfg.Location != "us" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		if !haveCreds {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", cfg.Location))
	}
	return NewDocumentAIServiceWithClient(cfg, client), nil
}

// NewDocumentAIServiceWithClient creates a service with an explicit client (for testing).
func NewDocumentAIServiceWithClient(cfg DocumentAIConfig, client documentProcessor) *DocumentAIService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &DocumentAIService{
		client: client,
		config: cfg,
		log:    logger.WithComponent("document-ai"),
	}
}

// ProcessPDF extracts text from a PDF document.
func (s *DocumentAIService) ProcessPDF(ctx context.Context, pdfData io.Reader) (string, error) {
	res, err := s.ProcessPDFWithMetadata(ctx, pdfData)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// ProcessPDFWithMetadata extracts text, tables and form fields.
func (s *DocumentAIService) ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*OCRResult, error) {
	const op = "ProcessPDFWithMetadata"
	startTime := time.Now()

	pdfBytes, err := readPDF(op, pdfData)
	if err != nil {
		return nil, err
	}

	processCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: s.config.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	}

	s.log.Debug().Str("processor", req.Name).Int("bytes", len(pdfBytes)).Msg("Calling Document AI")
	resp, err := s.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, classifyAPIError(op, err)
	}
	if resp.Document == nil {
		return nil, WrapOCRError(op, ErrOCRFailed, "no document in response")
	}

	result := documentResult(resp.Document)
	if strings.TrimSpace(result.Text) == "" {
		return nil, WrapOCRError(op, ErrEmptyDocument, "")
	}

	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	s.log.Info().
		Int("pages", result.PageCount).
		Int("table_text_length", len(result.TableText)).
		Int("key_value_length", len(result.KeyValueText)).
		Dur("duration", result.ProcessingDuration).
		Msg("Document AI OCR completed")
	return result, nil
}

// Close closes the underlying Document AI client.
func (s *DocumentAIService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// documentResult renders a processed document.
func documentResult(doc *documentaipb.Document) *OCRResult {
	text := []rune(doc.GetText())

	var (
		tables          []string
		keyValues       []string
		confidenceSum   float32
		confidenceCount int
		languageSet     = map[string]bool{}
	)

	for _, page := range doc.GetPages() {
		if c := page.GetLayout().GetConfidence(); c > 0 {
			confidenceSum += c
			confidenceCount++
		}
		for _, lang := range page.GetDetectedLanguages() {
			if lang.GetLanguageCode() != "" {
				languageSet[lang.GetLanguageCode()] = true
			}
		}
		for _, field := range page.GetFormFields() {
			keyValues = append(keyValues, fmt.Sprintf("Key: %s, Value: %s",
				layoutText(text, field.GetFieldName()), layoutText(text, field.GetFieldValue())))
		}
		for _, table := range page.GetTables() {
			tables = append(tables, renderTable(text, table))
		}
	}

	languages := make([]string, 0, len(languageSet))
	for lang := range languageSet {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	res := &OCRResult{
		Text:          string(text),
		TableText:     strings.Join(tables, "\n"),
		KeyValueText:  strings.Join(keyValues, "\n"),
		PageCount:     len(doc.GetPages()),
		LanguageCodes: languages,
	}
	if confidenceCount > 0 {
		res.Confidence = confidenceSum / float32(confidenceCount)
	}
	return res
}

// emptyHeader names a column whose header cell is blank.
const emptyHeader = "description:-"

// renderTable writes each body row as "header value," pairs closed by ";".
// Without a detected header row the first body row serves as the header.
func renderTable(text []rune, table *documentaipb.Document_Page_Table) string {
	header := table.GetHeaderRows()
	body := table.GetBodyRows()
	if len(header) == 0 && len(body) > 0 {
		header, body = body[:1], body[1:]
	}

	var columns []string
	if len(header) > 0 {
		for _, cell := range header[0].GetCells() {
			name := layoutText(text, cell.GetLayout())
			if name == "" {
				name = emptyHeader
			}
			columns = append(columns, name)
		}
	}

	var b strings.Builder
	for _, row := range body {
		for i, cell := range row.GetCells() {
			name := emptyHeader
			if i < len(columns) {
				name = columns[i]
			}
			b.WriteString(name)
			b.WriteByte(' ')
			b.WriteString(layoutText(text, cell.GetLayout()))
			b.WriteByte(',')
		}
		b.WriteByte(';')
	}
	return b.String()
}

// layoutText resolves a layout's text anchor against the document text.
func layoutText(text []rune, layout *documentaipb.Document_Page_Layout) string {
	var b strings.Builder
	for _, seg := range layout.GetTextAnchor().GetTextSegments() {
		start, end := int(seg.GetStartIndex()), int(seg.GetEndIndex())
		if start < 0 {
			start = 0
		}
		if end > len(text) {
			end = len(text)
		}
		if start >= end {
			continue
		}
		b.WriteString(string(text[start:end]))
	}
	return strings.TrimSpace(b.String())
}
