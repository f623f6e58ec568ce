package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	photoAdapter "directory/internal/adapters/photo"
	domainRoster "directory/internal/domain/roster"
)

// handlePhoto proxies the selected clinician's photo (GET /photo?name=)
// PRE: name is the identity-field value
// POST: Only the viewer's newest photo request answers with the image; an older one
// still in flight gets 204. Records without an http(s) photo get 404
func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	if s.deps.Photos == nil {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	snap, ok := s.deps.Roster.Current()
	if !ok {
		writeError(w, r, domainRoster.ErrNotLoaded)
		return
	}
	rec, _, err := snap.Lookup(s.deps.Roster.IdentityField(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	target := sessionFrom(r).ID
	if target == "" {
		target = "anonymous"
	}

	p, err := s.deps.Photos.Load(r.Context(), target, rec.Value(snap.Headers, domainRoster.FieldPhoto))
	switch {
	case err == nil:
		s.observePhoto("ok")
		w.Header().Set("Content-Type", p.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(p.Data)))
		w.Header().Set("Cache-Control", "private, max-age=300")
		_, _ = w.Write(p.Data)
	case errors.Is(err, photoAdapter.ErrSuperseded):
		s.observePhoto("superseded")
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, photoAdapter.ErrNoPhoto):
		s.observePhoto("none")
		http.NotFound(w, r)
	default:
		s.observePhoto("error")
		http.Error(w, "photo unavailable", http.StatusBadGateway)
	}
}

func (s *Server) observePhoto(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObservePhoto(outcome)
	}
}
