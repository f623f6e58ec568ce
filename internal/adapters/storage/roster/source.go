// Package roster holds the adapters that read and write the staff sheet.
package roster

import (
	"context"
	"errors"
)

// Source is the external spreadsheet holding the roster.
// Row 1 is the header row; data rows start at row 2.
type Source interface {
	// Rows returns every row of the sheet, header row first.
	// PRE: none
	// POST: Rows shorter than the header row are padded with empty cells
	Rows(ctx context.Context) ([][]string, error)

	// WriteRow overwrites the cells of one row starting at column A.
	// PRE: rowIndex >= 2, values aligned to the header row
	// POST: The row holds exactly values, or is unchanged on error
	WriteRow(ctx context.Context, rowIndex int, values []string) error

	// AppendRow adds a row after the last non-empty row.
	// PRE: values aligned to the header row
	// POST: One new row exists, or none on error
	AppendRow(ctx context.Context, values []string) error
}

// ErrReadOnly is returned by sources that cannot be written, such as legacy .xls files.
var ErrReadOnly = errors.New("roster source is read-only")

// ErrInvalidRow is returned for write targets above the first data row.
var ErrInvalidRow = errors.New("row index must address a data row")

// padRows extends rows shorter than the header row. Longer rows are left as they
// are so the store can reject them.
func padRows(rows [][]string) [][]string {
	if len(rows) == 0 {
		return rows
	}
	width := len(rows[0])
	for i, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		}
	}
	return rows
}

// trimBlankTail drops trailing rows where every cell is empty.
func trimBlankTail(rows [][]string) [][]string {
	for len(rows) > 0 {
		last := rows[len(rows)-1]
		blank := true
		for _, c := range last {
			if c != "" {
				blank = false
				break
			}
		}
		if !blank {
			break
		}
		rows = rows[:len(rows)-1]
	}
	return rows
}
