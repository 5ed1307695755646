package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"claimassist/internal/store"
)

func sampleDocs() []store.Document {
	return []store.Document{
		{
			DocID:                 "doc-1",
			DocumentName:          "claim.pdf",
			DocSource:             "ManualUpload",
			Classification:        "ClaimForm",
			DocLanguage:           "English",
			DocStatus:             store.StatusCompleted,
			ConfidenceScoreStatus: store.StatusCompleted,
			DocumentConfScore:     "85%",
			GWClaimID:             "WC-1234",
			TotalKeys:             17,
			EmptyKeysCount:        2,
			EmptyKeyPerc:          "12%",
			MarkForReview:         store.ReviewNo,
			UpdatedAt:             time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			DocID:         "doc-2",
			DocStatus:     store.StatusFailed,
			FailureReason: "malformed model output",
			MarkForReview: store.ReviewYes,
		},
	}
}

func TestFromDocument(t *testing.T) {
	rows := FromDocuments(sampleDocs())
	require.Len(t, rows, 2)

	r := rows[0]
	assert.Equal(t, "WC-1234", r.ClaimNumber)
	assert.Equal(t, "85%", r.DocumentConfScore)
	assert.Equal(t, "2024-05-01 12:30:00", r.UpdatedAt)
	assert.Len(t, r.Values(), len(Headers))

	assert.Empty(t, rows[1].UpdatedAt)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, FromDocuments(sampleDocs())))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, "doc-1", rows[1][0])
	assert.Equal(t, "85%", rows[1][11])
	assert.Equal(t, "17", rows[1][13])
	assert.Equal(t, "doc-2", rows[2][0])
	assert.Equal(t, "malformed model output", rows[2][17])
}

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_9", id)

	_, err = extractSpreadsheetID("https://example.com/nope")
	assert.Error(t, err)
}

type sheetsCall struct {
	method string
	path   string
	body   string
}

func fakeSheetsServer(t *testing.T, existing bool) (*httptest.Server, *[]sheetsCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []sheetsCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, sheetsCall{r.Method, r.URL.Path, string(body)})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/spreadsheets/sheet-id"):
			resp := sheets.Spreadsheet{}
			if existing {
				resp.Sheets = []*sheets.Sheet{{Properties: &sheets.SheetProperties{Title: SheetName, SheetId: 3}}}
			}
			_ = json.NewEncoder(w).Encode(resp)
		case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
			_, _ = io.WriteString(w, `{"replies":[{"addSheet":{"properties":{"sheetId":7,"title":"Dashboard"}}}]}`)
		case r.Method == http.MethodGet:
			if existing {
				_, _ = io.WriteString(w, `{"values":[["Document ID"]]}`)
				return
			}
			_, _ = io.WriteString(w, `{}`)
		default:
			_, _ = io.WriteString(w, `{}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestExporter(t *testing.T, srv *httptest.Server) *SheetsExporter {
	t.Helper()
	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewSheetsExporterWithService(svc, "sheet-id", "")
}

func TestSheetsExporterCreatesSheet(t *testing.T) {
	srv, calls := fakeSheetsServer(t, false)
	exp := newTestExporter(t, srv)

	require.NoError(t, exp.Write(context.Background(), FromDocuments(sampleDocs())))

	var seen []string
	for _, c := range *calls {
		seen = append(seen, c.method+" "+c.path)
	}
	assert.Equal(t, []string{
		"GET /v4/spreadsheets/sheet-id",
		"POST /v4/spreadsheets/sheet-id:batchUpdate",
		"GET /v4/spreadsheets/sheet-id/values/Dashboard!A1:S1",
		"PUT /v4/spreadsheets/sheet-id/values/Dashboard!A1:S1",
		"POST /v4/spreadsheets/sheet-id:batchUpdate",
		"POST /v4/spreadsheets/sheet-id/values/Dashboard!A2:S:clear",
		"PUT /v4/spreadsheets/sheet-id/values/Dashboard!A2",
	}, seen)

	last := (*calls)[len(*calls)-1]
	assert.Contains(t, last.body, "WC-1234")
	assert.Contains(t, last.body, "malformed model output")
}

func TestSheetsExporterReusesSheet(t *testing.T) {
	srv, calls := fakeSheetsServer(t, true)
	exp := newTestExporter(t, srv)

	require.NoError(t, exp.Write(context.Background(), nil))

	var seen []string
	for _, c := range *calls {
		seen = append(seen, c.method+" "+c.path)
	}
	assert.Equal(t, []string{
		"GET /v4/spreadsheets/sheet-id",
		"GET /v4/spreadsheets/sheet-id/values/Dashboard!A1:S1",
		"POST /v4/spreadsheets/sheet-id/values/Dashboard!A2:S:clear",
	}, seen)
}
