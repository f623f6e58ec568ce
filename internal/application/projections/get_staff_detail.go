package projections

import (
	"context"
	"strings"

	photoAdapter "directory/internal/adapters/photo"
	domainRoster "directory/internal/domain/roster"
)

// StaffDetailQuery carries query parameters.
type StaffDetailQuery struct {
	Identity string
}

// DetailField is one labelled value in the detail panel.
type DetailField struct {
	Name      string
	Value     string
	Sensitive bool
}

// StaffDetailResult carries the query result.
type StaffDetailResult struct {
	Identity  string
	Row       int
	Fields    []DetailField
	PhotoURL  string
	HasPhoto  bool
	Specialty string
}

// StaffDetailDeps holds dependencies for StaffDetail.
type StaffDetailDeps struct {
	Roster RosterReader
}

// QueryStaffDetail returns every field of one record, in header order.
// PRE: Identity is non-empty
// POST: Returns NotFoundError when no record has that identity; HasPhoto is true only for
// an http or https photo URL
func QueryStaffDetail(_ context.Context, query StaffDetailQuery, deps StaffDetailDeps) (StaffDetailResult, error) {
	snap, ok := deps.Roster.Current()
	if !ok {
		return StaffDetailResult{}, domainRoster.ErrNotLoaded
	}
	rec, row, err := snap.Lookup(deps.Roster.IdentityField(), query.Identity)
	if err != nil {
		return StaffDetailResult{}, err
	}

	result := StaffDetailResult{
		Identity: query.Identity,
		Row:      row,
		Fields:   make([]DetailField, 0, len(snap.Headers)),
	}
	for i, h := range snap.Headers {
		result.Fields = append(result.Fields, DetailField{
			Name:      h,
			Value:     cell(rec, i),
			Sensitive: domainRoster.IsSensitive(h),
		})
	}
	result.PhotoURL = strings.TrimSpace(rec.Value(snap.Headers, domainRoster.FieldPhoto))
	result.HasPhoto = photoAdapter.Fetchable(result.PhotoURL)
	result.Specialty = rec.Value(snap.Headers, domainRoster.FieldSpecialty)
	return result, nil
}
