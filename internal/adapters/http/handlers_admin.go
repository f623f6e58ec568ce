package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	auditStore "directory/internal/adapters/storage/audit"
	domainAudit "directory/internal/domain/audit"
)

// requireAdmin checks HTTP basic auth against the shared password.
// The user name is ignored. Returns false after writing the response.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.deps.Gate == nil || !s.deps.Gate.Enabled() {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return false
	}
	_, password, ok := r.BasicAuth()
	if !ok || s.deps.Gate.Verify(password) != nil {
		w.Header().Set("WWW-Authenticate", `Basic realm="directory admin"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

// handleAPIAudit lists audit events (GET /api/audit)
// PRE: caller passes the admin password via basic auth
// POST: Events are newest first; limit defaults to 100 and is capped at 1000
func (s *Server) handleAPIAudit(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if s.deps.Audit == nil {
		writeJSON(w, http.StatusOK, []domainAudit.Event{})
		return
	}
	q := r.URL.Query()
	filter := auditStore.Filter{
		Action:   domainAudit.Action(q.Get("action")),
		Identity: strings.TrimSpace(q.Get("identity")),
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be an RFC 3339 time"})
			return
		}
		filter.Since = t
	}
	limit := 100
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}
	events, err := s.deps.Audit.List(r.Context(), filter, limit)
	if err != nil {
		internalError(w, err)
		return
	}
	if events == nil {
		events = []domainAudit.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// handleAdminPerf returns request, query and source timings (GET /admin/perf)
// PRE: caller passes the admin password via basic auth
// POST: Covers the last `minutes` minutes, default 60
func (s *Server) handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if s.deps.Collector == nil {
		http.NotFound(w, r)
		return
	}
	minutes := 60
	if m, err := strconv.Atoi(r.URL.Query().Get("minutes")); err == nil && m > 0 {
		minutes = m
	}
	snap := s.deps.Collector.Snapshot(time.Now().Add(-time.Duration(minutes)*time.Minute), 10)
	writeJSON(w, http.StatusOK, snap)
}

// handleHealthz reports whether a roster snapshot is being served (GET /healthz)
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.deps.Roster.Current()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"records":   len(snap.Records),
		"loaded_at": snap.LoadedAt,
		"sessions":  s.sessions.Len(),
	})
}
