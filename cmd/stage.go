package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"claimassist/internal/logger"
	"claimassist/internal/queue"
)

// stageCommand runs one stage for a document in the foreground. The next
// stage is still enqueued.
func stageCommand(stage queue.Stage, short string) *cobra.Command {
	c := &cobra.Command{
		Use:   string(stage) + " [doc-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.WithComponent(string(stage))
			timeoutSecs, _ := cmd.Flags().GetInt("timeout")

			ctx, cancel := createContextWithTimeout(timeoutSecs, log)
			defer cancel()

			a, err := newApp(ctx, appOptions{models: true}, log)
			if err != nil {
				return err
			}
			defer a.Close()

			return runStage(ctx, a, queue.Message{Stage: stage, DocID: args[0], Source: queue.DefaultSource})
		},
	}
	return c
}

func runStage(ctx context.Context, a *app, msg queue.Message) error {
	if err := a.pipeline.Handle(ctx, msg); err != nil {
		return err
	}
	a.log.Info().Str("doc_id", msg.DocID).Str("stage", string(msg.Stage)).Msg("Stage completed")
	return nil
}

func init() {
	rootCmd.AddCommand(
		stageCommand(queue.StageClassification, "Classify a stored document"),
		stageCommand(queue.StageExtraction, "Extract entities from a classified document"),
		stageCommand(queue.StageConfidence, "Score the extracted entities of a document"),
	)
}
