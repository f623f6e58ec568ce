package directory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	domain "directory/internal/domain/roster"
)

// mockSource is an in-memory roster source.
type mockSource struct {
	rows     [][]string
	rowsErr  error
	writeErr error
	writes   map[int][]string
	appended [][]string
}

// Rows returns a copy of the seeded rows.
// PRE: none
// POST: Returns rowsErr if set
func (m *mockSource) Rows(_ context.Context) ([][]string, error) {
	if m.rowsErr != nil {
		return nil, m.rowsErr
	}
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

// WriteRow records the write and applies it to the seeded rows.
// PRE: rowIndex >= 2
// POST: rows[rowIndex-1] == values unless writeErr is set
func (m *mockSource) WriteRow(_ context.Context, rowIndex int, values []string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.writes == nil {
		m.writes = map[int][]string{}
	}
	m.writes[rowIndex] = values
	m.rows[rowIndex-1] = values
	return nil
}

// AppendRow records the appended row.
// PRE: none
// POST: values is the last row unless writeErr is set
func (m *mockSource) AppendRow(_ context.Context, values []string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.appended = append(m.appended, values)
	m.rows = append(m.rows, values)
	return nil
}

func seeded() *mockSource {
	return &mockSource{rows: [][]string{
		{"Clinicians Name", "Location", "Role"},
		{"Ann", "NPD", "SLP"},
		{"Ben", "CDC", "OT"},
		{"Ann", "NPS", "Psych"},
	}}
}

// TestLoad verifies a load publishes headers and records in source order.
func TestLoad(t *testing.T) {
	s := NewStore(seeded(), "")
	if _, ok := s.Current(); ok {
		t.Fatal("store must be empty before Load")
	}
	snap, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Records) != 3 || snap.LoadedAt.IsZero() {
		t.Fatalf("snapshot=%+v", snap)
	}
	if idx, err := s.FieldIndex("Role"); err != nil || idx != 2 {
		t.Errorf("FieldIndex(Role)=%d,%v", idx, err)
	}
}

// TestLoad_FailureKeepsPreviousSnapshot verifies a failed refresh leaves the old data visible.
func TestLoad_FailureKeepsPreviousSnapshot(t *testing.T) {
	src := seeded()
	s := NewStore(src, "")
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	src.rowsErr = errors.New("network down")
	_, err := s.Load(context.Background())
	var dse *domain.DataSourceError
	if !errors.As(err, &dse) {
		t.Fatalf("err=%v want DataSourceError", err)
	}
	snap, ok := s.Current()
	if !ok || len(snap.Records) != 3 {
		t.Errorf("previous snapshot lost: %+v", snap)
	}
}

// TestLoad_EmptyAndMalformed verifies empty and ragged sheets fail the load.
func TestLoad_EmptyAndMalformed(t *testing.T) {
	s := NewStore(&mockSource{}, "")
	if _, err := s.Load(context.Background()); !errors.Is(err, domain.ErrEmptySource) {
		t.Errorf("empty: err=%v want ErrEmptySource", err)
	}
	s = NewStore(&mockSource{rows: [][]string{{"Clinicians Name", "Location", "Role"}}}, "")
	if _, err := s.Load(context.Background()); !errors.Is(err, domain.ErrEmptySource) {
		t.Errorf("header only: err=%v want ErrEmptySource", err)
	}
	if _, ok := s.Current(); ok {
		t.Error("header-only load published a snapshot")
	}
	ragged := seeded()
	ragged.rows[2] = append(ragged.rows[2], "extra")
	s = NewStore(ragged, "")
	var mre *domain.MalformedRowError
	if _, err := s.Load(context.Background()); !errors.As(err, &mre) {
		t.Errorf("ragged: err=%v want MalformedRowError", err)
	}
}

// TestUpdateOne_FirstMatchRowIndex verifies the first matching record is written at position+2.
func TestUpdateOne_FirstMatchRowIndex(t *testing.T) {
	src := seeded()
	s := NewStore(src, "")
	_, _ = s.Load(context.Background())

	rec := domain.Record{"Ann", "NPD", "Lead SLP"}
	row, err := s.UpdateOne(context.Background(), "Ann", rec)
	if err != nil {
		t.Fatalf("UpdateOne: %v", err)
	}
	if row != 2 {
		t.Errorf("row=%d want 2", row)
	}
	if !reflect.DeepEqual(src.writes[2], []string(rec)) {
		t.Errorf("writes=%v", src.writes)
	}
	// no implicit reload
	snap, _ := s.Current()
	if snap.Records[0][2] != "SLP" {
		t.Errorf("snapshot changed without reload: %v", snap.Records[0])
	}
}

// TestUpdateOne_SecondRow verifies the row index for a later record.
func TestUpdateOne_SecondRow(t *testing.T) {
	s := NewStore(seeded(), "")
	_, _ = s.Load(context.Background())
	row, err := s.UpdateOne(context.Background(), "Ben", domain.Record{"Ben", "CDC", "OT"})
	if err != nil || row != 3 {
		t.Errorf("row=%d err=%v want 3", row, err)
	}
}

// TestUpdateOne_NotFound verifies a missing identity writes nothing.
func TestUpdateOne_NotFound(t *testing.T) {
	src := seeded()
	s := NewStore(src, "")
	_, _ = s.Load(context.Background())
	before, _ := s.Current()

	_, err := s.UpdateOne(context.Background(), "Zed", domain.Record{"Zed", "", ""})
	var nfe *domain.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("err=%v want NotFoundError", err)
	}
	if len(src.writes) != 0 {
		t.Errorf("unexpected writes: %v", src.writes)
	}
	after, _ := s.Current()
	if !reflect.DeepEqual(before.Records, after.Records) {
		t.Error("records changed after failed update")
	}
}

// TestUpdateOne_WriteFailure verifies source errors surface as DataSourceError.
func TestUpdateOne_WriteFailure(t *testing.T) {
	src := seeded()
	s := NewStore(src, "")
	_, _ = s.Load(context.Background())
	src.writeErr = errors.New("quota exceeded")

	_, err := s.UpdateOne(context.Background(), "Ann", domain.Record{"Ann", "NPD", "SLP"})
	var dse *domain.DataSourceError
	if !errors.As(err, &dse) {
		t.Fatalf("err=%v want DataSourceError", err)
	}
}

// TestUpdateOne_Misaligned verifies records of the wrong width are rejected before writing.
func TestUpdateOne_Misaligned(t *testing.T) {
	src := seeded()
	s := NewStore(src, "")
	_, _ = s.Load(context.Background())
	var mre *domain.MalformedRowError
	if _, err := s.UpdateOne(context.Background(), "Ann", domain.Record{"Ann"}); !errors.As(err, &mre) {
		t.Errorf("err=%v want MalformedRowError", err)
	}
	if len(src.writes) != 0 {
		t.Error("misaligned record was written")
	}
}

// TestWritesRequireLoad verifies writes before the first load fail.
func TestWritesRequireLoad(t *testing.T) {
	s := NewStore(seeded(), "")
	if _, err := s.UpdateOne(context.Background(), "Ann", nil); !errors.Is(err, domain.ErrNotLoaded) {
		t.Errorf("update err=%v", err)
	}
	if err := s.AppendOne(context.Background(), nil); !errors.Is(err, domain.ErrNotLoaded) {
		t.Errorf("append err=%v", err)
	}
}

// TestAppendOne verifies the record reaches the source and appears after reload.
func TestAppendOne(t *testing.T) {
	src := seeded()
	s := NewStore(src, "")
	_, _ = s.Load(context.Background())

	if err := s.AppendOne(context.Background(), domain.Record{"Ann", "CDC", "OT"}); err != nil {
		t.Fatalf("AppendOne: %v", err)
	}
	snap, _ := s.Load(context.Background())
	if len(snap.Records) != 4 || snap.Records[3][1] != "CDC" {
		t.Errorf("records=%v", snap.Records)
	}
}

// TestNewStore_CustomIdentity verifies write-back can key on another field.
func TestNewStore_CustomIdentity(t *testing.T) {
	s := NewStore(seeded(), "Location")
	_, _ = s.Load(context.Background())
	row, err := s.UpdateOne(context.Background(), "CDC", domain.Record{"Ben", "CDC", "OT"})
	if err != nil || row != 3 {
		t.Errorf("row=%d err=%v", row, err)
	}
}
