package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"directory/internal/application/listutil"
	"directory/internal/application/orchestrators"
	"directory/internal/application/projections"
	"directory/internal/domain/filter"
	domainRoster "directory/internal/domain/roster"
)

// fieldPrefix marks form keys that carry record fields, e.g. "f.Role".
const fieldPrefix = "f."

// dashboardPage is the data of dashboard.html.
type dashboardPage struct {
	List            projections.StaffListResult
	Detail          *projections.StaffDetailResult
	Query           url.Values
	Criteria        filter.Criteria
	Locations       []string
	SelectedLoc     []string
	AgeGroup        string
	Headers         []string
	IdentityField   string
	AddEnabled      bool
	LoadedAt        time.Time
	LoadFailed      bool
	MissingSelected bool
}

// handleDashboard renders the filter form, the staff table and the detail panel (GET /)
// PRE: none
// POST: Renders 503 until the first roster load has succeeded
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	params := listutil.ParseListParams(q, s.deps.Engine)
	sess := sessionFrom(r)

	list, err := projections.QueryStaffList(ctx, projections.StaffListQuery{
		Criteria:      params.Criteria,
		Page:          params.PageParams,
		RequireFilter: s.deps.RequireFilter,
		Engine:        s.deps.Engine,
	}, projections.StaffListDeps{Roster: s.deps.Roster})
	if err != nil {
		if errors.Is(err, domainRoster.ErrNotLoaded) {
			s.renderTemplate(w, r, "dashboard.html", "Staff Directory", http.StatusServiceUnavailable, dashboardPage{LoadFailed: true})
			return
		}
		writeError(w, r, err)
		return
	}

	selected := params.Selected
	if selected == "" {
		selected = sess.Selected
	}
	page := dashboardPage{
		List:          list,
		Query:         listutil.EncodeCriteria(params.Criteria),
		Criteria:      params.Criteria,
		Locations:     filter.LocationChoices,
		SelectedLoc:   params.Criteria[filter.Location].Choices,
		AgeGroup:      params.Criteria[filter.AgeGroup].Text,
		IdentityField: s.deps.Roster.IdentityField(),
		AddEnabled:    s.deps.Gate != nil && s.deps.Gate.Enabled(),
		LoadedAt:      list.LoadedAt,
	}
	if snap, ok := s.deps.Roster.Current(); ok {
		page.Headers = snap.Headers
	}
	if selected != "" {
		detail, err := projections.QueryStaffDetail(ctx, projections.StaffDetailQuery{Identity: selected},
			projections.StaffDetailDeps{Roster: s.deps.Roster})
		switch {
		case err == nil:
			page.Detail = &detail
			if sess.ID != "" {
				s.sessions.SetSelected(sess.ID, selected)
			}
		case errors.As(err, new(*domainRoster.NotFoundError)):
			page.MissingSelected = params.Selected != ""
			if sess.ID != "" {
				s.sessions.SetSelected(sess.ID, "")
			}
		default:
			writeError(w, r, err)
			return
		}
	}
	s.renderTemplate(w, r, "dashboard.html", "Staff Directory", http.StatusOK, page)
}

type staffListResponse struct {
	State     string              `json:"state"`
	Columns   []string            `json:"columns"`
	Rows      []map[string]string `json:"rows"`
	AgeGroups []string            `json:"age_groups"`
	Matched   int                 `json:"matched"`
	Total     int                 `json:"total"`
	Page      int                 `json:"page"`
	PerPage   int                 `json:"per_page"`
	Pages     int                 `json:"pages"`
	LoadedAt  time.Time           `json:"loaded_at"`
}

// handleAPIStaff returns the filtered staff list as JSON (GET /api/staff)
// PRE: none
// POST: Rows are keyed by visible column name, in roster order
func (s *Server) handleAPIStaff(w http.ResponseWriter, r *http.Request) {
	params := listutil.ParseListParams(r.URL.Query(), s.deps.Engine)
	list, err := projections.QueryStaffList(r.Context(), projections.StaffListQuery{
		Criteria:      params.Criteria,
		Page:          params.PageParams,
		RequireFilter: s.deps.RequireFilter,
		Engine:        s.deps.Engine,
	}, projections.StaffListDeps{Roster: s.deps.Roster})
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := staffListResponse{
		State:     string(list.State),
		Columns:   list.Columns,
		Rows:      make([]map[string]string, 0, len(list.Rows)),
		AgeGroups: list.AgeGroups,
		Matched:   list.Matched,
		Total:     list.Total,
		Page:      list.Page.Page,
		PerPage:   list.Page.PerPage,
		Pages:     list.Page.TotalPages,
		LoadedAt:  list.LoadedAt,
	}
	for _, row := range list.Rows {
		m := make(map[string]string, len(list.Columns))
		for i, col := range list.Columns {
			m[col] = row.Cells[i]
		}
		resp.Rows = append(resp.Rows, m)
	}
	writeJSON(w, http.StatusOK, resp)
}

type detailField struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Sensitive bool   `json:"sensitive,omitempty"`
}

type staffDetailResponse struct {
	Identity string        `json:"identity"`
	Row      int           `json:"row"`
	Fields   []detailField `json:"fields"`
	HasPhoto bool          `json:"has_photo"`
	PhotoURL string        `json:"photo_url,omitempty"`
}

// handleAPIStaffDetail returns every field of one record (GET /api/staff/detail?name=)
// PRE: name is the identity-field value
// POST: 404 when no record matches
func (s *Server) handleAPIStaffDetail(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	detail, err := projections.QueryStaffDetail(r.Context(), projections.StaffDetailQuery{Identity: name},
		projections.StaffDetailDeps{Roster: s.deps.Roster})
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := staffDetailResponse{Identity: detail.Identity, Row: detail.Row, HasPhoto: detail.HasPhoto}
	if detail.HasPhoto {
		resp.PhotoURL = "/photo?" + url.Values{"name": {detail.Identity}}.Encode()
	}
	for _, f := range detail.Fields {
		resp.Fields = append(resp.Fields, detailField{Name: f.Name, Value: f.Value, Sensitive: f.Sensitive})
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeRequest is the JSON body of /staff/update and /staff/add.
type writeRequest struct {
	Identity string            `json:"identity"`
	Password string            `json:"password"`
	Fields   map[string]string `json:"fields"`
}

// decodeWrite reads a JSON body or the form, where record fields use the "f." prefix.
func decodeWrite(r *http.Request) (writeRequest, error) {
	if isJSONRequest(r) {
		var req writeRequest
		err := strictDecode(r, &req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return writeRequest{}, err
	}
	req := writeRequest{
		Identity: r.PostForm.Get("identity"),
		Password: r.PostForm.Get("password"),
		Fields:   make(map[string]string),
	}
	for key, values := range r.PostForm {
		if name, ok := strings.CutPrefix(key, fieldPrefix); ok && len(values) > 0 {
			req.Fields[name] = values[0]
		}
	}
	return req, nil
}

// handleStaffUpdate writes an edited record back to the source (POST /staff/update)
// PRE: identity names a loaded record
// POST: Form posts redirect to the dashboard with the record selected; JSON posts get the result
func (s *Server) handleStaffUpdate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeWrite(r)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	res, err := orchestrators.ExecuteUpdateStaff(r.Context(), orchestrators.UpdateStaffInput{
		Identity: req.Identity,
		Fields:   req.Fields,
		Actor:    actorFrom(r),
	}, orchestrators.UpdateStaffDeps{
		Roster:    s.deps.Roster,
		Revisions: s.deps.Settings,
		Audit:     s.deps.Audit,
		Notify:    s.deps.Notify,
		Observer:  s.observer(),
	})
	if err != nil && !errors.Is(err, orchestrators.ErrReloadAfterWrite) {
		writeError(w, r, err)
		return
	}
	identity := req.Identity
	if v, ok := req.Fields[s.deps.Roster.IdentityField()]; ok && v != "" {
		identity = v
	}
	if isJSONRequest(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"row":      res.Row,
			"revision": res.Revision,
			"reloaded": res.Reloaded,
		})
		return
	}
	notice := "updated"
	if !res.Reloaded {
		notice = "reload_pending"
	}
	redirectTo(w, r, url.Values{"selected": {identity}, "notice": {notice}})
}

// handleStaffAdd appends a new record once the add-staff password checks out (POST /staff/add)
// PRE: the password gate is configured
// POST: Wrong passwords get 403 (JSON) or a denied notice (form); nothing is written
func (s *Server) handleStaffAdd(w http.ResponseWriter, r *http.Request) {
	req, err := decodeWrite(r)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	var gate orchestrators.Gate = deniedGate{}
	if s.deps.Gate != nil && s.deps.Gate.Enabled() {
		gate = s.deps.Gate
	}
	res, err := orchestrators.ExecuteAddStaff(r.Context(), orchestrators.AddStaffInput{
		Password: req.Password,
		Fields:   req.Fields,
		Actor:    actorFrom(r),
	}, orchestrators.AddStaffDeps{
		Roster:    s.deps.Roster,
		Gate:      gate,
		Revisions: s.deps.Settings,
		Audit:     s.deps.Audit,
		Notify:    s.deps.Notify,
		Observer:  s.observer(),
	})
	if errors.Is(err, orchestrators.ErrAccessDenied) && !isJSONRequest(r) {
		redirectTo(w, r, url.Values{"notice": {"denied"}})
		return
	}
	if err != nil && !errors.Is(err, orchestrators.ErrReloadAfterWrite) {
		writeError(w, r, err)
		return
	}
	identity := req.Fields[s.deps.Roster.IdentityField()]
	if isJSONRequest(r) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"identity": identity,
			"revision": res.Revision,
			"reloaded": res.Reloaded,
		})
		return
	}
	notice := "added"
	if !res.Reloaded {
		notice = "reload_pending"
	}
	redirectTo(w, r, url.Values{"selected": {identity}, "notice": {notice}})
}

// deniedGate rejects every password; used when no add-staff hash is configured.
type deniedGate struct{}

// Verify always fails.
func (deniedGate) Verify(string) error { return errors.New("add-staff password not configured") }

// handleRefresh reloads the roster from the source (POST /refresh)
// PRE: none
// POST: On failure the previous snapshot keeps serving
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := orchestrators.ExecuteRefreshRoster(r.Context(), orchestrators.RefreshRosterInput{Actor: actorFrom(r)},
		orchestrators.RefreshRosterDeps{Roster: s.deps.Roster, Audit: s.deps.Audit, Observer: s.observer()})
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("roster_refreshed", "records", res.Records)
	if isJSONRequest(r) {
		writeJSON(w, http.StatusOK, map[string]any{"records": res.Records, "fields": res.Fields, "loaded_at": res.LoadedAt})
		return
	}
	q := url.Values{"notice": {"refreshed"}}
	if sel := sessionFrom(r).Selected; sel != "" {
		q.Set("selected", sel)
	}
	redirectTo(w, r, q)
}
