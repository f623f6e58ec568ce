package projections

import (
	"context"
	"sort"
	"strings"
	"time"

	"directory/internal/application/listutil"
	"directory/internal/domain/filter"
	domainRoster "directory/internal/domain/roster"
)

// ListState tells the view which body to render.
type ListState string

const (
	ListStateRows    ListState = "rows"
	ListStatePrompt  ListState = "prompt"
	ListStateNoMatch ListState = "no_match"
)

// StaffListQuery carries query parameters.
type StaffListQuery struct {
	Criteria filter.Criteria
	Page     listutil.PageParams
	// RequireFilter hides the table until at least one filter is active.
	RequireFilter bool
	// Engine defaults to filter.Standard.
	Engine *filter.Engine
}

// StaffRow is one visible table row.
type StaffRow struct {
	Identity string
	Cells    []string
}

// StaffListResult carries the query result.
type StaffListResult struct {
	State     ListState
	Columns   []string
	Rows      []StaffRow
	AgeGroups []string
	Page      listutil.PageInfo
	Matched   int
	Total     int
	LoadedAt  time.Time
}

// StaffListDeps holds dependencies for StaffList.
type StaffListDeps struct {
	Roster RosterReader
}

// QueryStaffList filters the loaded roster and pages the visible columns.
// PRE: none
// POST: Returns ErrNotLoaded before the first load. Sensitive columns never appear in Columns or Cells
// INVARIANT: Rows keep the roster order
func QueryStaffList(_ context.Context, query StaffListQuery, deps StaffListDeps) (StaffListResult, error) {
	snap, ok := deps.Roster.Current()
	if !ok {
		return StaffListResult{}, domainRoster.ErrNotLoaded
	}
	engine := query.Engine
	if engine == nil {
		engine = filter.Standard
	}

	visible := visibleColumns(snap.Headers)
	result := StaffListResult{
		Total:     len(snap.Records),
		LoadedAt:  snap.LoadedAt,
		AgeGroups: ageGroupOptions(snap.Roster),
		Columns:   make([]string, 0, len(visible)),
	}
	for _, i := range visible {
		result.Columns = append(result.Columns, snap.Headers[i])
	}

	if query.RequireFilter && !engine.Active(query.Criteria) {
		result.State = ListStatePrompt
		result.Page = listutil.NewPageInfo(1, query.Page.PerPage, 0)
		return result, nil
	}

	matched, err := engine.Apply(snap.Records, snap.Headers, query.Criteria)
	if err != nil {
		return StaffListResult{}, err
	}
	result.Matched = len(matched)
	result.Page = listutil.NewPageInfo(query.Page.Page, query.Page.PerPage, len(matched))
	if len(matched) == 0 {
		result.State = ListStateNoMatch
		return result, nil
	}

	idIdx, _ := snap.Headers.Index(deps.Roster.IdentityField())
	page := listutil.Window(matched, result.Page)
	result.Rows = make([]StaffRow, 0, len(page))
	for _, rec := range page {
		row := StaffRow{Cells: make([]string, 0, len(visible))}
		if idIdx >= 0 {
			row.Identity = cell(rec, idIdx)
		}
		for _, i := range visible {
			row.Cells = append(row.Cells, cell(rec, i))
		}
		result.Rows = append(result.Rows, row)
	}
	result.State = ListStateRows
	return result, nil
}

func visibleColumns(headers domainRoster.Headers) []int {
	idx := make([]int, 0, len(headers))
	for i, h := range headers {
		if !domainRoster.IsSensitive(h) {
			idx = append(idx, i)
		}
	}
	return idx
}

// ageGroupOptions returns "All" followed by the sorted distinct age groups.
// Values are offered exactly as stored, since the age-group filter compares exactly.
func ageGroupOptions(r domainRoster.Roster) []string {
	opts := []string{filter.AllChoice}
	i, err := r.Headers.Index(domainRoster.FieldAgeGroup)
	if err != nil {
		return opts
	}
	seen := make(map[string]bool)
	var values []string
	for _, rec := range r.Records {
		v := cell(rec, i)
		if strings.TrimSpace(v) == "" || v == filter.AllChoice || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Strings(values)
	return append(opts, values...)
}

func cell(rec domainRoster.Record, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
