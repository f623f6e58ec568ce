package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"directory/internal/adapters/http/middleware"
	domainSettings "directory/internal/domain/settings"
	"directory/internal/domain/theme"
)

//go:embed templates/*.html
var templatesFS embed.FS

// pageNames are the templates rendered inside layout.html.
var pageNames = []string{"dashboard.html", "settings.html", "about.html"}

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in the input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// renderMarkdown renders multi-line sheet text, keeping single line breaks.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// baseFuncs are replaced per request where they depend on the request.
var baseFuncs = template.FuncMap{
	"csrfToken":      func() string { return "" },
	"renderMarkdown": renderMarkdown,
	"add":            func(a, b int) int { return a + b },
	"sub":            func(a, b int) int { return a - b },
	"contains": func(list []string, s string) bool {
		for _, v := range list {
			if strings.EqualFold(v, s) {
				return true
			}
		}
		return false
	},
	"pageQuery": func(q url.Values, page int) template.URL {
		next := url.Values{}
		for k, v := range q {
			next[k] = v
		}
		next.Set("page", strconv.Itoa(page))
		return template.URL("?" + next.Encode())
	},
	"selectQuery": func(q url.Values, identity string) template.URL {
		next := url.Values{}
		for k, v := range q {
			next[k] = v
		}
		next.Set("selected", identity)
		return template.URL("?" + next.Encode())
	},
	"photoURL": func(identity string) string {
		return "/photo?" + url.Values{"name": {identity}}.Encode()
	},
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tpl, err := template.New("layout.html").Funcs(baseFuncs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, err
		}
		pages[name] = tpl
	}
	return pages, nil
}

// layoutData is what layout.html reads; Page carries the page's own data.
type layoutData struct {
	Title    string
	ThemeCSS template.CSS
	Font     string
	FontSize int
	Version  string
	Notice   string
	Page     any
}

func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, name, title string, status int, page any) {
	base, ok := s.pages[name]
	if !ok {
		internalError(w, errUnknownTemplate(name))
		return
	}
	tpl, err := base.Clone()
	if err != nil {
		internalError(w, err)
		return
	}
	tpl.Funcs(template.FuncMap{"csrfToken": func() string { return csrf.Token(r) }})

	st := s.currentSettings(r)
	data := layoutData{
		Title:    title,
		ThemeCSS: template.CSS(theme.Resolve(st.Theme).CSSVariables()),
		Font:     st.Font,
		FontSize: st.FontSize,
		Version:  st.Version(),
		Notice:   noticeText(r.URL.Query().Get("notice")),
		Page:     page,
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) currentSettings(r *http.Request) domainSettings.Settings {
	st, err := s.deps.Settings.Load(r.Context())
	if err != nil {
		slog.Warn("settings_load_failed", "error", err.Error())
		return domainSettings.Defaults()
	}
	return st
}

// notices are the fixed banner messages a redirect can select.
var notices = map[string]string{
	"updated":        "Changes saved.",
	"added":          "Staff member added.",
	"refreshed":      "Directory refreshed.",
	"reload_pending": "Changes saved, but the directory could not be reloaded. Refresh to see them.",
	"denied":         "Incorrect add-staff password.",
	"settings_saved": "Settings saved.",
	"missing":        "That staff member is no longer in the directory.",
}

func noticeText(key string) string {
	return notices[key]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_failed", "error", err.Error())
	}
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func redirectTo(w http.ResponseWriter, r *http.Request, q url.Values) {
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}

func sessionFrom(r *http.Request) middleware.Session {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	return sess
}
