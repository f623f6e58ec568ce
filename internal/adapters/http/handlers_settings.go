package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"directory/internal/application/orchestrators"
	domainSettings "directory/internal/domain/settings"
	"directory/internal/domain/theme"
)

// FontChoices are offered on the settings page; any other non-empty family is accepted too.
var FontChoices = []string{"Roboto", "Arial", "Helvetica", "Georgia", "Verdana", "Times New Roman"}

type settingsPage struct {
	Current  domainSettings.Settings
	Fonts    []string
	Themes   []string
	MinSize  int
	MaxSize  int
	ErrorMsg string
}

// handleSettingsPage renders the preferences form (GET /settings)
func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	s.renderSettings(w, r, http.StatusOK, s.currentSettings(r), "")
}

func (s *Server) renderSettings(w http.ResponseWriter, r *http.Request, status int, current domainSettings.Settings, msg string) {
	s.renderTemplate(w, r, "settings.html", "Settings", status, settingsPage{
		Current:  current,
		Fonts:    FontChoices,
		Themes:   theme.Names(),
		MinSize:  domainSettings.MinFontSize,
		MaxSize:  domainSettings.MaxFontSize,
		ErrorMsg: msg,
	})
}

type settingsRequest struct {
	Font     string `json:"font"`
	FontSize int    `json:"font_size"`
	Theme    string `json:"theme"`
}

// handleSettingsSave validates and stores font, size and theme (POST /settings)
// PRE: none
// POST: The revision counter is never changed here
func (s *Server) handleSettingsSave(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if isJSONRequest(r) {
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		size, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("font_size")))
		if err != nil {
			size = 0
		}
		req = settingsRequest{
			Font:     strings.TrimSpace(r.PostForm.Get("font")),
			FontSize: size,
			Theme:    r.PostForm.Get("theme"),
		}
	}

	st, err := orchestrators.ExecuteSaveSettings(r.Context(), orchestrators.SaveSettingsInput{
		Font:     req.Font,
		FontSize: req.FontSize,
		Theme:    req.Theme,
		Actor:    actorFrom(r),
	}, orchestrators.SaveSettingsDeps{Settings: s.deps.Settings, Audit: s.deps.Audit})
	if err != nil {
		if isJSONRequest(r) {
			writeError(w, r, err)
			return
		}
		if statusFor(err) == http.StatusBadRequest {
			s.renderSettings(w, r, http.StatusBadRequest, st, err.Error())
			return
		}
		writeError(w, r, err)
		return
	}
	if isJSONRequest(r) {
		writeJSON(w, http.StatusOK, st)
		return
	}
	http.Redirect(w, r, "/settings?notice=settings_saved", http.StatusSeeOther)
}

type aboutPage struct {
	Version    string
	AppVersion string
	Source     string
	Records    int
	Fields     int
	LoadedAt   time.Time
	Loaded     bool
}

// handleAbout shows the directory version and roster source (GET /about)
func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	page := aboutPage{
		Version:    s.currentSettings(r).Version(),
		AppVersion: s.deps.AppVersion,
		Source:     s.deps.SourceName,
	}
	if snap, ok := s.deps.Roster.Current(); ok {
		page.Loaded = true
		page.Records = len(snap.Records)
		page.Fields = len(snap.Headers)
		page.LoadedAt = snap.LoadedAt
	}
	s.renderTemplate(w, r, "about.html", "About", http.StatusOK, page)
}
