package roster

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	domain "directory/internal/domain/roster"
)

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// ErrSpreadsheetURL is returned when no spreadsheet ID can be read from the configured URL.
var ErrSpreadsheetURL = errors.New("spreadsheet URL does not contain a spreadsheet id")

// SpreadsheetID extracts the document ID from a Google Sheets URL.
// A bare ID is returned unchanged.
func SpreadsheetID(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if m := spreadsheetIDPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}
	if rawURL != "" && !strings.ContainsAny(rawURL, "/:?") {
		return rawURL, nil
	}
	return "", ErrSpreadsheetURL
}

// SheetsConfig locates the roster worksheet.
type SheetsConfig struct {
	SpreadsheetURL  string
	CredentialsFile string
	// Sheet is the worksheet title; empty selects the first worksheet.
	Sheet string
}

// SheetsSource reads and writes the roster through the Google Sheets API.
type SheetsSource struct {
	svc           *sheets.Service
	spreadsheetID string

	mu    sync.Mutex
	title string
}

var _ Source = (*SheetsSource)(nil)

// NewSheetsSource authenticates with a service-account credentials file.
// PRE: cfg.CredentialsFile names a readable service-account JSON file
// POST: Returns a source; no API call is made until first use
func NewSheetsSource(ctx context.Context, cfg SheetsConfig, opts ...option.ClientOption) (*SheetsSource, error) {
	id, err := SpreadsheetID(cfg.SpreadsheetURL)
	if err != nil {
		return nil, err
	}
	if cfg.CredentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}, opts...)
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, &domain.DataSourceError{Op: "connect", Err: err}
	}
	return &SheetsSource{svc: svc, spreadsheetID: id, title: cfg.Sheet}, nil
}

// sheetTitle returns the configured worksheet, resolving the first one on demand.
func (s *SheetsSource) sheetTitle(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.title != "" {
		return s.title, nil
	}
	doc, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(doc.Sheets) == 0 || doc.Sheets[0].Properties == nil {
		return "", errors.New("spreadsheet has no worksheets")
	}
	s.title = doc.Sheets[0].Properties.Title
	return s.title, nil
}

// Rows fetches every value of the worksheet as displayed text.
func (s *SheetsSource) Rows(ctx context.Context) ([][]string, error) {
	title, err := s.sheetTitle(ctx)
	if err != nil {
		return nil, &domain.DataSourceError{Op: "rows", Err: err}
	}
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, quoteSheet(title)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, &domain.DataSourceError{Op: "rows", Err: err}
	}
	return padRows(toStrings(resp.Values)), nil
}

// WriteRow overwrites one row, columns A through the width of values.
func (s *SheetsSource) WriteRow(ctx context.Context, rowIndex int, values []string) error {
	if rowIndex < 2 {
		return ErrInvalidRow
	}
	title, err := s.sheetTitle(ctx)
	if err != nil {
		return &domain.DataSourceError{Op: "write", Err: err}
	}
	rng, err := rowRange(title, rowIndex, len(values))
	if err != nil {
		return err
	}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &sheets.ValueRange{
		Values: [][]interface{}{toCells(values)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return &domain.DataSourceError{Op: "write", Err: err}
	}
	return nil
}

// AppendRow inserts one row after the last populated row of the worksheet.
func (s *SheetsSource) AppendRow(ctx context.Context, values []string) error {
	title, err := s.sheetTitle(ctx)
	if err != nil {
		return &domain.DataSourceError{Op: "append", Err: err}
	}
	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, quoteSheet(title), &sheets.ValueRange{
		Values: [][]interface{}{toCells(values)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return &domain.DataSourceError{Op: "append", Err: err}
	}
	return nil
}

// quoteSheet wraps a worksheet title for use in A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// rowRange returns the A1 range covering width cells of one row, e.g. 'Staff'!A5:I5.
func rowRange(title string, rowIndex, width int) (string, error) {
	if width < 1 {
		return "", errors.New("row has no values")
	}
	last, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(title), rowIndex, last, rowIndex), nil
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		out := make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				out[j] = fmt.Sprint(cell)
			}
		}
		rows[i] = out
	}
	return rows
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
