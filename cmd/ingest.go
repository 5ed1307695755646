package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"claimassist/internal/logger"
	"claimassist/internal/pipeline"
	"claimassist/internal/queue"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf-file]",
	Short: "OCR a PDF, store its record and queue it for classification",
	Long: `Read a PDF with the configured OCR provider, create the document record
and enqueue the classification stage. Run "claimassist worker" to process
the queued stages.`,
	Example: `  # Ingest a claim form with a generated document id
  claimassist ingest claim.pdf

  # Ingest with an explicit id and index
  claimassist ingest claim.pdf --doc-id 7f1c --index-id IDX-42 --source Email`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("doc-id", "", "Document id (default: random UUID)")
	ingestCmd.Flags().String("index-id", "", "External index id")
	ingestCmd.Flags().String("source", queue.DefaultSource, "Document source")
	ingestCmd.Flags().String("file-ref", "", "Stored file reference (default: the file path)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ingest")

	docID, _ := cmd.Flags().GetString("doc-id")
	indexID, _ := cmd.Flags().GetString("index-id")
	source, _ := cmd.Flags().GetString("source")
	fileRef, _ := cmd.Flags().GetString("file-ref")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]
	if docID == "" {
		docID = uuid.NewString()
	}
	if fileRef == "" {
		fileRef = pdfPath
	}

	if _, err := validatePDFFile(pdfPath, log); err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	a, err := newApp(ctx, appOptions{ocr: true}, log)
	if err != nil {
		return err
	}
	defer a.Close()

	pdfFile, err := os.Open(pdfPath)
	if err != nil {
		return fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer pdfFile.Close()

	err = a.pipeline.Ingest(ctx, pipeline.IngestRequest{
		DocID:        docID,
		DocumentName: filepath.Base(pdfPath),
		FileRef:      fileRef,
		IndexID:      indexID,
		Source:       source,
		PDF:          pdfFile,
	})
	if err != nil {
		var serr *pipeline.StageError
		if errors.As(err, &serr) && serr.Stage == pipeline.StageOCR {
			return handleOCRError(err, log)
		}
		return err
	}

	log.Info().Str("doc_id", docID).Msg("Document queued for classification")
	fmt.Println(docID)
	return nil
}
