package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"directory/internal/adapters/auth"
	"directory/internal/adapters/http/perf"
	"directory/internal/adapters/metrics"
	photoAdapter "directory/internal/adapters/photo"
	"directory/internal/adapters/storage"
	auditStore "directory/internal/adapters/storage/audit"
	rosterStore "directory/internal/adapters/storage/roster"
	settingsStore "directory/internal/adapters/storage/settings"
	"directory/internal/application/directory"
)

const testPassword = "letmein-please"

type testEnv struct {
	server   *Server
	source   *rosterStore.MemorySource
	settings *settingsStore.SQLiteStore
	audit    *auditStore.SQLiteStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	photos := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(img.Bytes())
	}))
	t.Cleanup(photos.Close)

	src := rosterStore.NewMemorySource([][]string{
		{"Clinicians Name", "Location", "Role", "Contact Number", "Specialty", "Photo"},
		{"Ann", "NPD", "SLP", "555-0101", "Autism\nFeeding", photos.URL + "/ann.png"},
		{"Ben", "CDC", "OT", "555-0102", "", ""},
	})
	store := directory.NewStore(src, "")
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	settings := settingsStore.NewSQLiteStore(db)
	audit := auditStore.NewSQLiteStore(db)

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatal(err)
	}
	gate, err := auth.NewBcryptGate(hash)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv, err := NewServer(ctx, Deps{
		Roster:     store,
		Settings:   settings,
		Audit:      audit,
		Gate:       gate,
		Photos:     photoAdapter.NewLoader(photoAdapter.NewHTTPFetcher(photoAdapter.HTTPOptions{}), 0),
		Metrics:    metrics.New(),
		Collector:  perf.NewCollector(100),
		SourceName: "memory",
	}, Options{CSRFKey: bytes.Repeat([]byte{3}, 32), RateLimitPerSecond: 1000})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return &testEnv{server: srv, source: src, settings: settings, audit: audit}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		req = httptest.NewRequest(method, target, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}

// TestDashboard_HidesSensitiveColumns verifies the table omits phone and photo columns.
func TestDashboard_HidesSensitiveColumns(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Ann") || !strings.Contains(body, "Ben") {
		t.Error("staff rows missing")
	}
	if strings.Contains(body, "555-0101") || strings.Contains(body, "<th>Photo</th>") {
		t.Error("sensitive column rendered in the table")
	}
}

// TestDashboard_SelectedShowsDetail verifies the detail panel includes every field and the photo link.
func TestDashboard_SelectedShowsDetail(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/?selected=Ann", nil)
	body := rr.Body.String()
	if !strings.Contains(body, "555-0101") {
		t.Error("detail panel missing contact number")
	}
	if !strings.Contains(body, "/photo?name=Ann") {
		t.Error("photo link missing")
	}
	if !strings.Contains(body, "Autism<br>") {
		t.Errorf("specialty not rendered with line breaks")
	}
}

// TestAPIStaff_Filters verifies query criteria reach the filter engine.
func TestAPIStaff_Filters(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/api/staff?location=cdc", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp staffListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Matched != 1 || resp.Rows[0]["Clinicians Name"] != "Ben" {
		t.Errorf("resp=%+v", resp)
	}
	if _, ok := resp.Rows[0]["Contact Number"]; ok {
		t.Error("sensitive column in API rows")
	}
}

// TestAPIStaffDetail verifies lookup by identity and the 404 for unknown names.
func TestAPIStaffDetail(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/api/staff/detail?name=Ann", nil)
	var resp staffDetailResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Row != 2 || !resp.HasPhoto || len(resp.Fields) != 6 {
		t.Errorf("resp=%+v", resp)
	}
	if rr := env.do(t, "GET", "/api/staff/detail?name=Zed", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown name status=%d want 404", rr.Code)
	}
}

// TestStaffUpdate_JSON verifies a write-back reaches the source and bumps the revision.
func TestStaffUpdate_JSON(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/staff/update", writeRequest{Identity: "Ben", Fields: map[string]string{"Role": "Senior OT"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	rows, _ := env.source.Rows(context.Background())
	if rows[2][2] != "Senior OT" || rows[2][3] != "555-0102" {
		t.Errorf("row 3=%v", rows[2])
	}
	st, _ := env.settings.Load(context.Background())
	if st.Revision != 15 {
		t.Errorf("revision=%d want 15", st.Revision)
	}
}

// TestStaffUpdate_Errors verifies unknown records, unknown fields and source failures map to statuses.
func TestStaffUpdate_Errors(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.do(t, "POST", "/staff/update", writeRequest{Identity: "Zed", Fields: map[string]string{"Role": "x"}}); rr.Code != http.StatusNotFound {
		t.Errorf("unknown identity status=%d want 404", rr.Code)
	}
	if rr := env.do(t, "POST", "/staff/update", writeRequest{Identity: "Ann", Fields: map[string]string{"Pager": "1"}}); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown field status=%d want 400", rr.Code)
	}
	env.source.FailNext = errors.New("quota exceeded")
	rr := env.do(t, "POST", "/staff/update", writeRequest{Identity: "Ann", Fields: map[string]string{"Role": "Lead"}})
	if rr.Code != http.StatusBadGateway {
		t.Errorf("source failure status=%d want 502", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "quota") {
		t.Error("source error detail leaked to client")
	}
}

// TestStaffAdd_PasswordGate verifies wrong passwords are refused and the right one appends.
func TestStaffAdd_PasswordGate(t *testing.T) {
	env := newTestEnv(t)
	fields := map[string]string{"Clinicians Name": "Cy", "Location": "NPS"}
	if rr := env.do(t, "POST", "/staff/add", writeRequest{Password: "wrong-password", Fields: fields}); rr.Code != http.StatusForbidden {
		t.Fatalf("wrong password status=%d want 403", rr.Code)
	}
	rr := env.do(t, "POST", "/staff/add", writeRequest{Password: testPassword, Fields: fields})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	rows, _ := env.source.Rows(context.Background())
	if len(rows) != 4 || rows[3][0] != "Cy" || rows[3][2] != "" {
		t.Errorf("rows=%v", rows)
	}
}

// TestRefresh_KeepsSnapshotOnFailure verifies a failed reload still serves the old roster.
func TestRefresh_KeepsSnapshotOnFailure(t *testing.T) {
	env := newTestEnv(t)
	env.source.FailNext = errors.New("timeout")
	if rr := env.do(t, "POST", "/refresh", map[string]string{}); rr.Code != http.StatusBadGateway {
		t.Errorf("status=%d want 502", rr.Code)
	}
	if rr := env.do(t, "GET", "/api/staff", nil); rr.Code != http.StatusOK {
		t.Errorf("list after failed refresh status=%d", rr.Code)
	}
}

// TestPhoto verifies the proxy serves images and 404s records without one.
func TestPhoto(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/photo?name=Ann", nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" {
		t.Errorf("status=%d type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if rr := env.do(t, "GET", "/photo?name=Ben", nil); rr.Code != http.StatusNotFound {
		t.Errorf("no photo status=%d want 404", rr.Code)
	}
}

// TestSettingsForm_CSRF verifies a form post needs the page's token and persists the choice.
func TestSettingsForm_CSRF(t *testing.T) {
	env := newTestEnv(t)
	h := env.server.Handler()

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest("GET", "/settings", nil))
	m := regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`).FindStringSubmatch(get.Body.String())
	if m == nil {
		t.Fatal("csrf token not rendered")
	}
	token := html.UnescapeString(m[1])

	post := func(withToken bool) *httptest.ResponseRecorder {
		form := url.Values{"font": {"Arial"}, "font_size": {"14"}, "theme": {"Dark"}}
		if withToken {
			form.Set("gorilla.csrf.Token", token)
		}
		req := httptest.NewRequest("POST", "/settings", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		for _, c := range get.Result().Cookies() {
			req.AddCookie(c)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	if rr := post(false); rr.Code != http.StatusForbidden {
		t.Errorf("without token status=%d want 403", rr.Code)
	}
	if rr := post(true); rr.Code != http.StatusSeeOther {
		t.Fatalf("with token status=%d want 303", rr.Code)
	}
	st, _ := env.settings.Load(context.Background())
	if st.Theme != "Dark" || st.FontSize != 14 || st.Revision != 14 {
		t.Errorf("settings=%+v", st)
	}
}

// TestSettings_JSONInvalid verifies out-of-range sizes are rejected.
func TestSettings_JSONInvalid(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.do(t, "POST", "/settings", settingsRequest{Font: "Arial", FontSize: 40, Theme: "Dark"}); rr.Code != http.StatusBadRequest {
		t.Errorf("status=%d want 400", rr.Code)
	}
}

// TestAbout verifies the version string follows the revision counter.
func TestAbout(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/about", nil)
	if !strings.Contains(rr.Body.String(), "V2.0.14") {
		t.Errorf("version missing from about page")
	}
}

// TestAdminEndpoints_RequirePassword verifies basic auth on the audit and perf endpoints.
func TestAdminEndpoints_RequirePassword(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/staff/update", writeRequest{Identity: "Ann", Fields: map[string]string{"Role": "Lead"}})

	for _, path := range []string{"/api/audit", "/admin/perf"} {
		if rr := env.do(t, "GET", path, nil); rr.Code != http.StatusUnauthorized {
			t.Errorf("%s without auth status=%d want 401", path, rr.Code)
		}
	}

	req := httptest.NewRequest("GET", "/api/audit?action=update", nil)
	req.SetBasicAuth("admin", testPassword)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var events []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0]["identity"] != "Ann" {
		t.Errorf("events=%v", events)
	}
}

// TestHealthzAndMetrics verifies the probe and the Prometheus endpoint.
func TestHealthzAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.do(t, "GET", "/healthz", nil); rr.Code != http.StatusOK {
		t.Errorf("healthz status=%d", rr.Code)
	}
	env.do(t, "POST", "/staff/update", writeRequest{Identity: "Ann", Fields: map[string]string{"Role": "Lead"}})
	rr := env.do(t, "GET", "/metrics", nil)
	if !strings.Contains(rr.Body.String(), "directory_write_backs_total") {
		t.Errorf("metrics missing write-back counter")
	}
}

// TestStatusFor verifies domain errors map to deliberate statuses.
func TestStatusFor(t *testing.T) {
	if got := statusFor(rosterStore.ErrReadOnly); got != http.StatusConflict {
		t.Errorf("read-only=%d want 409", got)
	}
	if got := statusFor(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("unknown=%d want 500", got)
	}
}
