package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"claimassist/internal/logger"
)

var statusCmd = &cobra.Command{
	Use:   "status [doc-id]",
	Short: "Print a document record, or queue counts without an id",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("text", false, "Include the OCR and translated text")
}

func runStatus(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("status")
	withText, _ := cmd.Flags().GetBool("text")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	a, err := newApp(ctx, appOptions{}, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var out any
	if len(args) == 0 {
		counts, err := a.queue.Counts(ctx)
		if err != nil {
			return err
		}
		out = counts
	} else {
		doc, err := a.store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if !withText {
			doc.RawText, doc.TableText, doc.KeyValuesText, doc.TranslatedText = "", "", "", ""
		}
		out = doc
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
