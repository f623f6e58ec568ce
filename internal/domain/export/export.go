// Package export turns a filtered roster into a table for download.
package export

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"directory/internal/domain/roster"
)

// Format constants for export file format.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrUnsupportedFormat is returned for output paths that are neither .csv nor .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Table is the exported header row and data rows.
type Table struct {
	Headers []string
	Rows    [][]string
	// Metadata describes the export itself and is written where the format allows.
	Metadata Metadata
}

// Metadata contains information about the export itself.
type Metadata struct {
	ExportDate  time.Time
	Format      string
	Version     string
	RecordCount int
}

// FormatForPath picks the format from the file extension.
// PRE: none
// POST: Returns FormatCSV or FormatXLSX, or ErrUnsupportedFormat
func FormatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Build projects records onto the exported columns.
// PRE: records are aligned to headers
// POST: Sensitive columns are dropped unless includeSensitive; column order follows headers
func Build(headers roster.Headers, records []roster.Record, includeSensitive bool) Table {
	var cols []int
	t := Table{}
	for i, h := range headers {
		if !includeSensitive && roster.IsSensitive(h) {
			continue
		}
		cols = append(cols, i)
		t.Headers = append(t.Headers, h)
	}
	t.Rows = make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(cols))
		for j, i := range cols {
			if i < len(rec) {
				row[j] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	t.Metadata.RecordCount = len(t.Rows)
	return t
}
