package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	domain "directory/internal/domain/export"
)

func sampleTable() domain.Table {
	return domain.Table{
		Headers:  []string{"Clinicians Name", "Specialty"},
		Rows:     [][]string{{"Ann", "Autism, Feeding"}, {"Ben", ""}},
		Metadata: domain.Metadata{RecordCount: 2, Version: "V2.0.14"},
	}
}

// TestWrite_CSV verifies quoting and row order survive a CSV export.
func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, domain.FormatCSV, sampleTable()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[1][1] != "Autism, Feeding" {
		t.Errorf("rows=%v want header plus 2", rows)
	}
}

// TestWrite_XLSX verifies the workbook holds the header and data rows on the Staff sheet.
func TestWrite_XLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, domain.FormatXLSX, sampleTable()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][0] != "Clinicians Name" || rows[2][0] != "Ben" {
		t.Errorf("rows=%v", rows)
	}
}

// TestWrite_UnknownFormat verifies unsupported formats are rejected.
func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "pdf", sampleTable())
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Errorf("err=%v want ErrUnsupportedFormat", err)
	}
}
