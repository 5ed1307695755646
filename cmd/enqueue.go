package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"claimassist/internal/logger"
	"claimassist/internal/queue"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue a stage for an existing document",
	Long: `Put a stage message on the queue for a document that is already stored,
for example to retry a failed stage.`,
	Example: `  # Retry extraction
  claimassist enqueue --doc-id 7f1c --stage extraction`,
	Args: cobra.NoArgs,
	RunE: runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().String("doc-id", "", "Document id")
	enqueueCmd.Flags().String("stage", string(queue.StageClassification), "Stage: classification, extraction or confidence")
	enqueueCmd.Flags().String("file-ref", "", "Stored file reference")
	enqueueCmd.Flags().String("index-id", "", "External index id")
	enqueueCmd.Flags().String("source", queue.DefaultSource, "Document source")
	_ = enqueueCmd.MarkFlagRequired("doc-id")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("enqueue")

	docID, _ := cmd.Flags().GetString("doc-id")
	stage, _ := cmd.Flags().GetString("stage")
	fileRef, _ := cmd.Flags().GetString("file-ref")
	indexID, _ := cmd.Flags().GetString("index-id")
	source, _ := cmd.Flags().GetString("source")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	a, err := newApp(ctx, appOptions{}, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.store.Get(ctx, docID); err != nil {
		return fmt.Errorf("cannot enqueue %s: %w", docID, err)
	}

	msg, err := a.queue.Enqueue(ctx, queue.Message{
		Stage:   queue.Stage(stage),
		DocID:   docID,
		FileRef: fileRef,
		IndexID: indexID,
		Source:  source,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("message_id", msg.ID).
		Str("doc_id", docID).
		Str("stage", stage).
		Msg("Message enqueued")
	fmt.Println(msg.ID)
	return nil
}
