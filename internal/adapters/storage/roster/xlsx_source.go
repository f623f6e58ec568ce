package roster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	domain "directory/internal/domain/roster"
)

// maxXLSRows bounds how many rows are read from a legacy workbook.
const maxXLSRows = 100000

// XLSXSource reads and writes a roster kept in a local workbook.
// .xlsx files are read-write; legacy .xls files are read-only.
type XLSXSource struct {
	path  string
	sheet string
	mu    sync.Mutex
}

var _ Source = (*XLSXSource)(nil)

// NewXLSXSource opens nothing until first use; sheet "" selects the first worksheet.
// PRE: path names a .xlsx or .xls file
func NewXLSXSource(path, sheet string) (*XLSXSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
	default:
		return nil, fmt.Errorf("unsupported workbook extension %q", filepath.Ext(path))
	}
	return &XLSXSource{path: path, sheet: sheet}, nil
}

func (x *XLSXSource) legacy() bool {
	return strings.ToLower(filepath.Ext(x.path)) == ".xls"
}

// Rows reads every row of the worksheet.
func (x *XLSXSource) Rows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.legacy() {
		rows, err := x.readXLS()
		if err != nil {
			return nil, &domain.DataSourceError{Op: "rows", Err: err}
		}
		return padRows(trimBlankTail(rows)), nil
	}

	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return nil, &domain.DataSourceError{Op: "rows", Err: err}
	}
	defer func() { _ = f.Close() }()

	sheet, err := x.sheetName(f)
	if err != nil {
		return nil, &domain.DataSourceError{Op: "rows", Err: err}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &domain.DataSourceError{Op: "rows", Err: err}
	}
	return padRows(trimBlankTail(rows)), nil
}

func (x *XLSXSource) readXLS() ([][]string, error) {
	file, err := os.Open(x.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	workbook, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook.NumSheets() == 0 {
		return nil, errors.New("no worksheet found")
	}
	return workbook.ReadAllCells(maxXLSRows), nil
}

func (x *XLSXSource) sheetName(f *excelize.File) (string, error) {
	if x.sheet != "" {
		if idx, err := f.GetSheetIndex(x.sheet); err != nil || idx < 0 {
			return "", fmt.Errorf("worksheet %q not found", x.sheet)
		}
		return x.sheet, nil
	}
	name := f.GetSheetName(0)
	if name == "" {
		return "", errors.New("no worksheet found")
	}
	return name, nil
}

// WriteRow overwrites one row and saves the workbook.
func (x *XLSXSource) WriteRow(ctx context.Context, rowIndex int, values []string) error {
	if rowIndex < 2 {
		return ErrInvalidRow
	}
	return x.edit(ctx, "write", func(f *excelize.File, sheet string) (int, error) {
		return rowIndex, nil
	}, values)
}

// AppendRow writes values one row below the last non-blank row and saves the workbook.
func (x *XLSXSource) AppendRow(ctx context.Context, values []string) error {
	return x.edit(ctx, "append", func(f *excelize.File, sheet string) (int, error) {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return 0, err
		}
		return len(trimBlankTail(rows)) + 1, nil
	}, values)
}

// edit opens the workbook, writes values at the row chosen by target and saves.
// Nothing reaches disk unless every cell was set.
func (x *XLSXSource) edit(ctx context.Context, op string, target func(*excelize.File, string) (int, error), values []string) error {
	if x.legacy() {
		return ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return &domain.DataSourceError{Op: op, Err: err}
	}
	defer func() { _ = f.Close() }()

	sheet, err := x.sheetName(f)
	if err != nil {
		return &domain.DataSourceError{Op: op, Err: err}
	}
	row, err := target(f, sheet)
	if err != nil {
		return &domain.DataSourceError{Op: op, Err: err}
	}
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, v); err != nil {
			return &domain.DataSourceError{Op: op, Err: err}
		}
	}
	if err := f.Save(); err != nil {
		return &domain.DataSourceError{Op: op, Err: err}
	}
	return nil
}
