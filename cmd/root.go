package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"claimassist/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "claimassist",
	Short: "claimassist - document intake for insurance claims",
	Long: `claimassist turns scanned claim documents into structured records.

Each document is read with OCR, classified, has its entities extracted
against the schema of its document type and finally receives a confidence
score. Stages run from a persistent queue so they can be retried and
processed by a pool of workers.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("claimassist executed")

		fmt.Println("Welcome to claimassist!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
	rootCmd.PersistentFlags().Int("timeout", 300, "Processing timeout in seconds")
}
