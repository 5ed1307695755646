package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"claimassist/internal/dashboard"
	"claimassist/internal/logger"
	"claimassist/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the document dashboard",
	Long: `Write one dashboard row per stored document, most recently updated
first, either to an XLSX file or to a Google Sheet.

Google Sheets export needs GOOGLE_SHEET_URL (or --sheet) and service
account credentials in GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.`,
	Example: `  # Write dashboard.xlsx
  claimassist export --xlsx dashboard.xlsx

  # Replace the rows of the configured Google Sheet
  claimassist export --sheet https://docs.google.com/spreadsheets/d/<id>/edit

  # Only failed documents
  claimassist export --xlsx failed.xlsx --status Failed`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("xlsx", "", "Write the dashboard to this XLSX file")
	exportCmd.Flags().String("sheet", "", "Google Sheet URL (default: GOOGLE_SHEET_URL)")
	exportCmd.Flags().String("worksheet", "", "Worksheet name (default: GOOGLE_SHEET_WORKSHEET)")
	exportCmd.Flags().String("status", "", "Only export documents with this doc_status")
	exportCmd.Flags().Int("limit", 0, "Maximum number of rows (0 for all)")
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export")

	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	sheetURL, _ := cmd.Flags().GetString("sheet")
	worksheet, _ := cmd.Flags().GetString("worksheet")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	a, err := newApp(ctx, appOptions{}, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if sheetURL == "" && xlsxPath == "" {
		sheetURL = a.cfg.GoogleSheetURL
	}
	if worksheet == "" {
		worksheet = a.cfg.GoogleSheetWorksheet
	}
	if sheetURL == "" && xlsxPath == "" {
		return fmt.Errorf("nothing to export to: pass --xlsx or --sheet, or set GOOGLE_SHEET_URL")
	}

	docs, err := a.store.List(ctx, store.ListOptions{DocStatus: status, Limit: limit})
	if err != nil {
		return err
	}
	rows := dashboard.FromDocuments(docs)
	log.Info().Int("rows", len(rows)).Msg("Exporting dashboard")

	if xlsxPath != "" {
		var buf bytes.Buffer
		if err := dashboard.WriteXLSX(&buf, rows); err != nil {
			return err
		}
		if err := writeOutput(xlsxPath, buf.Bytes(), log); err != nil {
			return err
		}
	}

	if sheetURL != "" {
		exporter, err := dashboard.NewSheetsExporter(ctx, sheetURL, worksheet)
		if err != nil {
			return err
		}
		if err := exporter.Write(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}
