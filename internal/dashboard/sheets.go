package dashboard

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"claimassist/internal/logger"
)

// SheetsExporter mirrors the dashboard into a Google Sheet worksheet.
type SheetsExporter struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
	log           zerolog.Logger
}

// NewSheetsExporter connects to the spreadsheet at sheetURL using service
// account credentials from GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.
func NewSheetsExporter(ctx context.Context, sheetURL, worksheet string) (*SheetsExporter, error) {
	const op = "NewSheetsExporter"

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}
	return NewSheetsExporterWithService(svc, spreadsheetID, worksheet), nil
}

// NewSheetsExporterWithService creates an exporter with an explicit service (for testing).
func NewSheetsExporterWithService(svc *sheets.Service, spreadsheetID, worksheet string) *SheetsExporter {
	if worksheet == "" {
		worksheet = SheetName
	}
	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
		log:           logger.WithComponent("sheets"),
	}
}

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
func extractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}
	return matches[1], nil
}

// Write replaces the worksheet's data rows with rows.
func (e *SheetsExporter) Write(ctx context.Context, rows []Row) error {
	const op = "SheetsExporter.Write"

	e.log.Info().Str("sheet", e.worksheet).Int("rows", len(rows)).Msg("Writing dashboard to Google Sheet")

	if err := e.ensureSheetWithHeaders(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(Headers))
	dataRange := fmt.Sprintf("%s!A2:%s", e.worksheet, lastCol)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, dataRange, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%s: failed to clear rows: %w", op, err)
	}
	if len(rows) == 0 {
		return nil
	}

	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, r.Values())
	}
	_, err := e.svc.Spreadsheets.Values.Update(
		e.spreadsheetID,
		fmt.Sprintf("%s!A2", e.worksheet),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to write rows: %w", op, err)
	}

	e.log.Info().Int("rows_written", len(values)).Msg("Dashboard written to Google Sheet")
	return nil
}

// ensureSheetWithHeaders creates the worksheet and its header line if missing.
func (e *SheetsExporter) ensureSheetWithHeaders(ctx context.Context) error {
	const op = "ensureSheetWithHeaders"

	spreadsheet, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	var (
		sheetExists bool
		sheetID     int64
	)
	for _, sh := range spreadsheet.Sheets {
		if sh.Properties != nil && sh.Properties.Title == e.worksheet {
			sheetExists = true
			sheetID = sh.Properties.SheetId
			break
		}
	}

	if !sheetExists {
		e.log.Info().Str("sheet", e.worksheet).Msg("Creating new sheet")
		resp, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: e.worksheet}}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}
		if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
			sheetID = resp.Replies[0].AddSheet.Properties.SheetId
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(Headers))
	headerRange := fmt.Sprintf("%s!A1:%s1", e.worksheet, lastCol)
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	e.log.Info().Str("sheet", e.worksheet).Msg("Adding headers to sheet")
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, headerRange, &sheets.ValueRange{
		Values: [][]any{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to add headers: %w", op, err)
	}

	if err := e.formatHeaders(ctx, sheetID); err != nil {
		e.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
	}
	return nil
}

// formatHeaders makes the header row bold and sizes the columns.
func (e *SheetsExporter) formatHeaders(ctx context.Context, sheetID int64) error {
	cols := int64(len(Headers))
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   cols,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   cols,
				},
			},
		},
	}

	_, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("formatHeaders: %w", err)
	}
	return nil
}
