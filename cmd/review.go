package cmd

import (
	"github.com/spf13/cobra"

	"claimassist/internal/logger"
)

var reviewCmd = &cobra.Command{
	Use:   "review [doc-id]",
	Short: "Flag a document for manual review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("review")
		timeoutSecs, _ := cmd.Flags().GetInt("timeout")

		ctx, cancel := createContextWithTimeout(timeoutSecs, log)
		defer cancel()

		a, err := newApp(ctx, appOptions{}, log)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.pipeline.MarkForReview(ctx, args[0])
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}
