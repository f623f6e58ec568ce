package roster

import (
	"strings"
)

// Well-known field names of the staff sheet.
const (
	FieldName          = "Clinicians Name"
	FieldLocation      = "Location"
	FieldRole          = "Role"
	FieldEmail         = "Email Address"
	FieldDays          = "Days Available"
	FieldAgeGroup      = "Age Group Seen"
	FieldSpecialty     = "Specialty Areas"
	FieldLanguages     = "Languages Spoken"
	FieldPhoto         = "Photo"
	FieldContactNumber = "Contact Number"
	FieldContactExtn   = "Contact (Extn)"
)

// DefaultIdentityField is the field used to locate a record for write-back.
const DefaultIdentityField = FieldName

// FirstDataRow is the 1-based sheet row of the first record; row 1 holds headers.
const FirstDataRow = 2

// SensitiveFields are never shown in list views.
var SensitiveFields = []string{FieldPhoto, FieldContactNumber, FieldContactExtn}

// Headers is the ordered field list read from the first row of the source.
// Order is significant for display and write-back.
type Headers []string

// Index returns the position of name in h.
// PRE: none
// POST: Returns the index of the first exact, case-sensitive match or UnknownFieldError
func (h Headers) Index(name string) (int, error) {
	for i, field := range h {
		if field == name {
			return i, nil
		}
	}
	return -1, &UnknownFieldError{Field: name}
}

// Has reports whether name is one of the headers.
func (h Headers) Has(name string) bool {
	_, err := h.Index(name)
	return err == nil
}

// FieldIndex resolves a field name to its position in headers.
// All by-name lookups go through here.
func FieldIndex(headers Headers, name string) (int, error) {
	return headers.Index(name)
}

// Record holds one staff row. Values are aligned positionally to Headers.
// INVARIANT: len(Record) == len(Headers) for every record of a Roster
type Record []string

// Get returns the value of the named field.
// PRE: r is aligned to h
// POST: Returns the value or UnknownFieldError
func (r Record) Get(h Headers, name string) (string, error) {
	i, err := h.Index(name)
	if err != nil {
		return "", err
	}
	if i >= len(r) {
		return "", nil
	}
	return r[i], nil
}

// Value returns the named field or "" when the field is unknown.
func (r Record) Value(h Headers, name string) string {
	v, _ := r.Get(h, name)
	return v
}

// Map returns the record as a field-name keyed map.
func (r Record) Map(h Headers) map[string]string {
	m := make(map[string]string, len(h))
	for i, field := range h {
		if i < len(r) {
			m[field] = r[i]
		} else {
			m[field] = ""
		}
	}
	return m
}

// With returns a copy of r with the named field replaced.
// PRE: r is aligned to h
// POST: r is not modified
func (r Record) With(h Headers, name, value string) (Record, error) {
	i, err := h.Index(name)
	if err != nil {
		return nil, err
	}
	out := make(Record, len(h))
	copy(out, r)
	out[i] = value
	return out, nil
}

// FromMap builds a record aligned to h. Fields absent from values are empty.
// Keys that are not headers are rejected with UnknownFieldError.
func FromMap(h Headers, values map[string]string) (Record, error) {
	for name := range values {
		if !h.Has(name) {
			return nil, &UnknownFieldError{Field: name}
		}
	}
	out := make(Record, len(h))
	for i, field := range h {
		out[i] = values[field]
	}
	return out, nil
}

// Roster is the header schema and records of one full load.
type Roster struct {
	Headers Headers
	Records []Record
}

// Parse builds a Roster from raw rows where rows[0] is the header row.
// PRE: none
// POST: Returns ErrEmptySource when rows holds no data row (header-only included)
// or the header row is blank, MalformedRowError when a data row does not match
// the header width
func Parse(rows [][]string) (Roster, error) {
	if len(rows) < 2 {
		return Roster{}, ErrEmptySource
	}
	headers := make(Headers, len(rows[0]))
	blank := true
	for i, h := range rows[0] {
		headers[i] = h
		if strings.TrimSpace(h) != "" {
			blank = false
		}
	}
	if blank {
		return Roster{}, ErrEmptySource
	}
	if err := headers.validate(); err != nil {
		return Roster{}, err
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(headers) {
			return Roster{}, &MalformedRowError{Row: i + FirstDataRow, Got: len(row), Want: len(headers)}
		}
		rec := make(Record, len(row))
		copy(rec, row)
		records = append(records, rec)
	}
	return Roster{Headers: headers, Records: records}, nil
}

// validate rejects duplicate header names, which would make by-name lookup ambiguous.
func (h Headers) validate() error {
	seen := make(map[string]bool, len(h))
	for _, field := range h {
		if field == "" {
			continue
		}
		if seen[field] {
			return &SchemaError{Field: field, Reason: "duplicate header"}
		}
		seen[field] = true
	}
	return nil
}

// Find returns the position of the first record whose field equals value.
// PRE: r was produced by Parse
// POST: Returns the 0-based position or NotFoundError
func (r Roster) Find(field, value string) (int, error) {
	i, err := r.Headers.Index(field)
	if err != nil {
		return -1, err
	}
	for pos, rec := range r.Records {
		if rec[i] == value {
			return pos, nil
		}
	}
	return -1, &NotFoundError{Field: field, Value: value}
}

// Lookup returns the first record whose field equals value together with its sheet row.
// POST: Returns UnknownFieldError or NotFoundError when nothing is found
func (r Roster) Lookup(field, value string) (Record, int, error) {
	pos, err := r.Find(field, value)
	if err != nil {
		return nil, 0, err
	}
	return r.Records[pos], RowIndex(pos), nil
}

// Align checks that rec matches the header width.
func (r Roster) Align(rec Record) error {
	if len(rec) != len(r.Headers) {
		return &MalformedRowError{Got: len(rec), Want: len(r.Headers)}
	}
	return nil
}

// RowIndex converts a 0-based record position to the 1-based sheet row.
func RowIndex(position int) int {
	return position + FirstDataRow
}

// IsSensitive reports whether field is hidden from list views.
func IsSensitive(field string) bool {
	for _, f := range SensitiveFields {
		if f == field {
			return true
		}
	}
	return false
}
