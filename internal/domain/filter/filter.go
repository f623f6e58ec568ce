// Package filter narrows a loaded roster to the records matching a set of criteria.
//
// Apply is a pure function of its inputs: it never mutates records, keeps the
// relative order of the records it returns, and treats inactive criteria as
// matching everything.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"directory/internal/domain/roster"
)

// Kind selects how a criterion compares against its field.
type Kind uint8

const (
	// KindAnyOf matches when the field contains any selected choice as a substring.
	KindAnyOf Kind = iota
	// KindContains matches when the field contains the trimmed query, case-insensitively.
	KindContains
	// KindEquals matches on exact equality; AllChoice or empty is inactive.
	KindEquals
)

// AllChoice is the exact-choice sentinel that disables the filter.
const AllChoice = "All"

// Filter names understood by the standard engine.
const (
	Location  = "location"
	Role      = "role"
	Name      = "name"
	Days      = "days"
	Specialty = "specialty"
	Languages = "languages"
	AgeGroup  = "age_group"
)

// LocationChoices are the site codes offered by the dashboard.
var LocationChoices = []string{"NPD", "NPS", "CDC"}

// ErrUnknownFilter is returned for criteria naming a filter the engine does not define.
var ErrUnknownFilter = errors.New("unknown filter")

// Definition binds a filter name to the field it reads and how it compares.
type Definition struct {
	Name  string
	Field string
	Kind  Kind
}

// Value is the current value of one filter: free text, or a set of choices.
type Value struct {
	Text    string
	Choices []string
}

// Text returns a free-text or exact-choice value.
func Text(s string) Value {
	return Value{Text: s}
}

// Choices returns a multi-choice value.
func Choices(c ...string) Value {
	return Value{Choices: c}
}

// Criteria maps filter names to their current values.
type Criteria map[string]Value

// Engine evaluates criteria against a fixed set of definitions.
type Engine struct {
	defs  map[string]Definition
	order []string
}

// NewEngine builds an engine from definitions. Later definitions with the same
// name replace earlier ones.
func NewEngine(defs ...Definition) *Engine {
	e := &Engine{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if _, ok := e.defs[d.Name]; !ok {
			e.order = append(e.order, d.Name)
		}
		e.defs[d.Name] = d
	}
	return e
}

// Standard is the engine for the staff sheet.
var Standard = NewEngine(
	Definition{Name: Location, Field: roster.FieldLocation, Kind: KindAnyOf},
	Definition{Name: Role, Field: roster.FieldRole, Kind: KindContains},
	Definition{Name: Name, Field: roster.FieldName, Kind: KindContains},
	Definition{Name: Days, Field: roster.FieldDays, Kind: KindContains},
	Definition{Name: Specialty, Field: roster.FieldSpecialty, Kind: KindContains},
	Definition{Name: Languages, Field: roster.FieldLanguages, Kind: KindContains},
	Definition{Name: AgeGroup, Field: roster.FieldAgeGroup, Kind: KindEquals},
)

// Apply filters records with the standard engine.
func Apply(records []roster.Record, headers roster.Headers, c Criteria) ([]roster.Record, error) {
	return Standard.Apply(records, headers, c)
}

// Active reports whether any criterion in c would exclude records under the standard engine.
func Active(c Criteria) bool {
	return Standard.Active(c)
}

// Names returns the filter names in definition order.
func (e *Engine) Names() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Definition returns the definition registered under name.
func (e *Engine) Definition(name string) (Definition, bool) {
	d, ok := e.defs[name]
	return d, ok
}

// Active reports whether any criterion in c is active.
// Unknown filter names are ignored here; Apply reports them.
func (e *Engine) Active(c Criteria) bool {
	for name, v := range c {
		d, ok := e.defs[name]
		if !ok {
			continue
		}
		if _, active := compile(d, v); active {
			return true
		}
	}
	return false
}

// predicate is one compiled, active criterion.
type predicate struct {
	index int
	kind  Kind
	text  string
	any   []string
}

func (p predicate) match(rec roster.Record) bool {
	var field string
	if p.index < len(rec) {
		field = rec[p.index]
	}
	switch p.kind {
	case KindAnyOf:
		lf := asciiLower(field)
		for _, choice := range p.any {
			if strings.Contains(lf, choice) {
				return true
			}
		}
		return false
	case KindContains:
		return strings.Contains(asciiLower(field), p.text)
	case KindEquals:
		return field == p.text
	}
	return false
}

// compile normalises v for d and reports whether it is active.
func compile(d Definition, v Value) (predicate, bool) {
	p := predicate{kind: d.Kind}
	switch d.Kind {
	case KindAnyOf:
		for _, c := range v.Choices {
			c = strings.TrimSpace(c)
			if c != "" {
				p.any = append(p.any, asciiLower(c))
			}
		}
		return p, len(p.any) > 0
	case KindContains:
		p.text = asciiLower(strings.TrimSpace(v.Text))
		return p, p.text != ""
	case KindEquals:
		p.text = v.Text
		return p, p.text != "" && p.text != AllChoice
	}
	return p, false
}

// Apply returns the records that satisfy every active criterion, in their original order.
// PRE: every record is aligned to headers
// POST: result is a subsequence of records; records and c are not modified
// INVARIANT: inactive criteria never resolve fields and never exclude records
func (e *Engine) Apply(records []roster.Record, headers roster.Headers, c Criteria) ([]roster.Record, error) {
	preds := make([]predicate, 0, len(c))
	for _, name := range e.sortedNames(c) {
		d, ok := e.defs[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
		}
		p, active := compile(d, c[name])
		if !active {
			continue
		}
		idx, err := roster.FieldIndex(headers, d.Field)
		if err != nil {
			return nil, err
		}
		p.index = idx
		preds = append(preds, p)
	}

	out := make([]roster.Record, 0, len(records))
	for _, rec := range records {
		if matchAll(preds, rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// sortedNames orders criteria by definition order so errors are deterministic.
// Unknown names follow in map order.
func (e *Engine) sortedNames(c Criteria) []string {
	names := make([]string, 0, len(c))
	for _, name := range e.order {
		if _, ok := c[name]; ok {
			names = append(names, name)
		}
	}
	for name := range c {
		if _, ok := e.defs[name]; !ok {
			names = append(names, name)
		}
	}
	return names
}

func matchAll(preds []predicate, rec roster.Record) bool {
	for _, p := range preds {
		if !p.match(rec) {
			return false
		}
	}
	return true
}

// asciiLower lowercases A-Z only. Non-ASCII bytes pass through untouched.
func asciiLower(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}
