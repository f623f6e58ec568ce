package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"directory/internal/domain/filter"
)

// PageParams carries pagination parameters parsed from a request.
type PageParams struct {
	Page    int // 1-indexed page number
	PerPage int // rows per page
}

// PageInfo carries pagination metadata for rendering.
type PageInfo struct {
	Page       int // current page (1-indexed)
	PerPage    int // rows per page
	Total      int // total matching rows
	TotalPages int // ceil(Total / PerPage)
}

// ListParams combines the paging and filter parameters of a staff list request.
type ListParams struct {
	PageParams
	Criteria filter.Criteria
	// Selected is the identity of the record shown in the detail panel.
	Selected string
}

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 20

// PerPageOptions are the allowed rows-per-page values.
var PerPageOptions = []int{10, 20, 50, 100, 200}

// ParsePageParams extracts page and per_page from URL query values.
// PRE: none
// POST: returns valid PageParams with defaults applied
func ParsePageParams(q url.Values) PageParams {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if !slices.Contains(PerPageOptions, perPage) {
		perPage = DefaultPerPage
	}
	return PageParams{Page: page, PerPage: perPage}
}

// ParseCriteria extracts filter criteria for the names the engine knows.
// Choice filters read every repeated value (location=NPD&location=CDC); text filters
// read the first value. Blank values and the "All" choice are dropped. Exact-choice
// values are kept untrimmed so they compare equal to the option that was offered.
// PRE: engine is non-nil
// POST: returns Criteria holding only active, recognised filters
func ParseCriteria(q url.Values, engine *filter.Engine) filter.Criteria {
	c := filter.Criteria{}
	for _, name := range engine.Names() {
		def, _ := engine.Definition(name)
		switch def.Kind {
		case filter.KindAnyOf:
			var choices []string
			for _, v := range q[name] {
				for _, part := range strings.Split(v, ",") {
					if part = strings.TrimSpace(part); part != "" {
						choices = append(choices, part)
					}
				}
			}
			if len(choices) > 0 {
				c[name] = filter.Choices(choices...)
			}
		case filter.KindEquals:
			v := q.Get(name)
			if strings.TrimSpace(v) == "" || v == filter.AllChoice {
				continue
			}
			c[name] = filter.Text(v)
		default:
			if v := strings.TrimSpace(q.Get(name)); v != "" {
				c[name] = filter.Text(v)
			}
		}
	}
	return c
}

// EncodeCriteria renders criteria back into query values, the inverse of ParseCriteria.
// PRE: none
// POST: every criterion with a value appears under its name
func EncodeCriteria(c filter.Criteria) url.Values {
	q := url.Values{}
	for name, v := range c {
		if len(v.Choices) > 0 {
			q[name] = append([]string(nil), v.Choices...)
			continue
		}
		if v.Text != "" {
			q.Set(name, v.Text)
		}
	}
	return q
}

// ParseListParams parses paging, criteria and the selected record from URL query values.
func ParseListParams(q url.Values, engine *filter.Engine) ListParams {
	return ListParams{
		PageParams: ParsePageParams(q),
		Criteria:   ParseCriteria(q, engine),
		Selected:   strings.TrimSpace(q.Get("selected")),
	}
}

// NewPageInfo computes pagination metadata, clamping page into range.
// PRE: total >= 0
// POST: 1 <= Page <= TotalPages; TotalPages >= 1 even when total is 0
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	pages := max(1, (total+perPage-1)/perPage)
	return PageInfo{
		Page:       min(max(page, 1), pages),
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
	}
}

// Offset is the index of the first record on the page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// StartRow is the 1-indexed first row shown, or 0 when nothing matched.
func (p PageInfo) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow is the 1-indexed last row shown.
func (p PageInfo) EndRow() int {
	return min(p.Offset()+p.PerPage, p.Total)
}

// pageWindow is how many page links the dashboard shows at once.
const pageWindow = 5

// PageNumbers returns up to pageWindow page numbers centred on the current page.
// POST: numbers are ascending and within [1, TotalPages]
func (p PageInfo) PageNumbers() []int {
	first := max(1, p.Page-pageWindow/2)
	last := min(p.TotalPages, first+pageWindow-1)
	first = max(1, last-pageWindow+1)
	pages := make([]int, 0, last-first+1)
	for n := first; n <= last; n++ {
		pages = append(pages, n)
	}
	return pages
}

// ShowPagination reports whether more than one page of rows matched.
func (p PageInfo) ShowPagination() bool {
	return p.Total > p.PerPage
}

// Window returns the slice of items on the page.
// PRE: len(items) == p.Total
func Window[T any](items []T, p PageInfo) []T {
	lo := min(p.Offset(), len(items))
	hi := min(lo+p.PerPage, len(items))
	return items[lo:hi]
}
