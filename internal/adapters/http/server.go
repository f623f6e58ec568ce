package web

import (
	"context"
	"crypto/rand"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"directory/internal/adapters/http/middleware"
	"directory/internal/adapters/http/perf"
	"directory/internal/adapters/metrics"
	photoAdapter "directory/internal/adapters/photo"
	auditStore "directory/internal/adapters/storage/audit"
	"directory/internal/application/orchestrators"
	"directory/internal/domain/filter"
	domainSettings "directory/internal/domain/settings"
)

// SettingsStore is the settings persistence the dashboard needs.
type SettingsStore interface {
	Load(ctx context.Context) (domainSettings.Settings, error)
	Save(ctx context.Context, s domainSettings.Settings) error
	BumpRevision(ctx context.Context) (domainSettings.Settings, error)
}

// AdminGate verifies the shared password. It guards adding staff and the admin endpoints.
type AdminGate interface {
	Enabled() bool
	Verify(password string) error
}

// Deps holds everything the handlers read or write.
type Deps struct {
	Roster    orchestrators.RosterStore
	Settings  SettingsStore
	Audit     auditStore.Store
	Gate      AdminGate
	Photos    *photoAdapter.Loader
	Metrics   *metrics.Metrics
	Collector *perf.Collector
	Notify    orchestrators.Notify
	Engine    *filter.Engine
	// RequireFilter hides the staff table until a filter is set.
	RequireFilter bool
	// SourceName describes the roster source on the About page.
	SourceName string
	// AppVersion is the build version.
	AppVersion string
}

// Options tunes the middleware chain.
type Options struct {
	// CSRFKey must be 32 bytes; nil generates a per-process key.
	CSRFKey            []byte
	SecureCookies      bool
	TrustedOrigins     []string
	RateLimitPerSecond int
	SlowRequestMs      int
	SessionIdle        time.Duration
}

// Server is the staff directory dashboard.
type Server struct {
	deps     Deps
	opts     Options
	sessions *middleware.SessionStore
	pages    map[string]*template.Template
	handler  http.Handler
}

// NewServer wires routes and middleware. Background sweepers stop when ctx is done.
// PRE: deps.Roster and deps.Settings are non-nil
// POST: Returns a ready server or an error if templates fail to parse
func NewServer(ctx context.Context, deps Deps, opts Options) (*Server, error) {
	if deps.Engine == nil {
		deps.Engine = filter.Standard
	}
	if opts.RateLimitPerSecond <= 0 {
		opts.RateLimitPerSecond = 20
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	s := &Server{deps: deps, opts: opts, pages: pages}

	var onExpire func(string)
	if deps.Photos != nil {
		onExpire = deps.Photos.Forget
	}
	s.sessions = middleware.NewSessionStore(opts.SessionIdle, onExpire)
	go s.sessions.RunSweeper(ctx, 10*time.Minute)
	middleware.SecureCookies = opts.SecureCookies

	csrfKey := opts.CSRFKey
	if len(csrfKey) == 0 {
		csrfKey = make([]byte, 32)
		if _, err := rand.Read(csrfKey); err != nil {
			return nil, err
		}
		slog.Warn("csrf_key_generated", "detail", "form tokens will not survive a restart")
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	limiter := middleware.NewRateLimiter(ctx, opts.RateLimitPerSecond, time.Second)

	// Request order: Timing -> Recover -> RateLimit -> Viewer -> CSRF -> SecurityHeaders -> mux
	s.handler = middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, opts.SecureCookies, opts.TrustedOrigins),
		middleware.Viewer(s.sessions),
		middleware.RateLimit(limiter),
		middleware.Recover,
		middleware.Timing(deps.Collector, opts.SlowRequestMs),
	)
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Sessions returns the viewer session store.
func (s *Server) Sessions() *middleware.SessionStore {
	return s.sessions
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /api/staff", s.handleAPIStaff)
	mux.HandleFunc("GET /api/staff/detail", s.handleAPIStaffDetail)
	mux.HandleFunc("POST /staff/update", s.handleStaffUpdate)
	mux.HandleFunc("POST /staff/add", s.handleStaffAdd)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("GET /settings", s.handleSettingsPage)
	mux.HandleFunc("POST /settings", s.handleSettingsSave)
	mux.HandleFunc("GET /about", s.handleAbout)
	mux.HandleFunc("GET /photo", s.handlePhoto)
	mux.HandleFunc("GET /api/audit", s.handleAPIAudit)
	mux.HandleFunc("GET /admin/perf", s.handleAdminPerf)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}
}

func (s *Server) observer() orchestrators.WriteObserver {
	if s.deps.Metrics == nil {
		return nil
	}
	return s.deps.Metrics
}

func actorFrom(r *http.Request) orchestrators.Actor {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	return orchestrators.Actor{SessionID: sess.ID, IP: middleware.ClientIP(r)}
}
