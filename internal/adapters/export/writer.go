// Package export writes roster tables as CSV or Excel workbooks.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	domain "directory/internal/domain/export"
)

// SheetName is the worksheet title used in exported workbooks.
const SheetName = "Staff"

// Write renders t to w in format.
// PRE: format is domain.FormatCSV or domain.FormatXLSX
// POST: w holds the header row followed by every data row, or an error is returned
func Write(w io.Writer, format string, t domain.Table) error {
	switch format {
	case domain.FormatCSV:
		return writeCSV(w, t)
	case domain.FormatXLSX:
		return writeXLSX(w, t)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
}

func writeCSV(w io.Writer, t domain.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeXLSX(w io.Writer, t domain.Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	if err := setRow(f, 1, t.Headers); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}
	if len(t.Headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return err
		}
		if err := f.AutoFilter(SheetName, "A1:"+last, nil); err != nil {
			return err
		}
	}
	created := t.Metadata.ExportDate
	if created.IsZero() {
		created = time.Now()
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       "Staff directory export",
		Created:     created.UTC().Format(time.RFC3339),
		Description: fmt.Sprintf("%d records, settings %s", t.Metadata.RecordCount, t.Metadata.Version),
	}); err != nil {
		return err
	}
	return f.Write(w)
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(SheetName, cell, &cells)
}
