package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "viewer_session"

// SessionCookieName names the viewer session cookie.
const SessionCookieName = "directory_session"

// DefaultSessionIdle is how long an unused viewer session survives.
const DefaultSessionIdle = 12 * time.Hour

// SecureCookies marks cookies Secure; set in production.
var SecureCookies = false

// Session is one viewer of the dashboard. Its ID doubles as the photo display target.
type Session struct {
	ID        string
	CreatedAt time.Time
	LastSeen  time.Time
	// Selected is the identity last opened in the detail panel.
	Selected string
}

// SessionStore is an in-memory viewer session store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	idle     time.Duration
	now      func() time.Time
	onExpire func(id string)
}

// NewSessionStore creates a store that drops sessions idle longer than idle.
// onExpire, if non-nil, is called with the session id after it is removed.
func NewSessionStore(idle time.Duration, onExpire func(id string)) *SessionStore {
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	return &SessionStore{
		sessions: make(map[string]Session),
		idle:     idle,
		now:      time.Now,
		onExpire: onExpire,
	}
}

// Create stores a new session and returns it.
// PRE: none
// POST: Session is stored under a fresh random id
func (ss *SessionStore) Create() Session {
	now := ss.now()
	s := Session{ID: uuid.NewString(), CreatedAt: now, LastSeen: now}
	ss.mu.Lock()
	ss.sessions[s.ID] = s
	ss.mu.Unlock()
	return s
}

// Touch returns the session for id and refreshes its idle timer.
// PRE: none
// POST: ok is false for unknown or expired ids; expired sessions are removed
func (ss *SessionStore) Touch(id string) (Session, bool) {
	ss.mu.Lock()
	s, ok := ss.sessions[id]
	if !ok {
		ss.mu.Unlock()
		return Session{}, false
	}
	now := ss.now()
	if now.Sub(s.LastSeen) > ss.idle {
		delete(ss.sessions, id)
		ss.mu.Unlock()
		ss.expired(id)
		return Session{}, false
	}
	s.LastSeen = now
	ss.sessions[id] = s
	ss.mu.Unlock()
	return s, true
}

// SetSelected records the identity shown in the viewer's detail panel.
// PRE: none
// POST: Returns false if the session no longer exists
func (ss *SessionStore) SetSelected(id, identity string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s, ok := ss.sessions[id]
	if !ok {
		return false
	}
	s.Selected = identity
	ss.sessions[id] = s
	return true
}

// Delete removes a session.
func (ss *SessionStore) Delete(id string) {
	ss.mu.Lock()
	_, ok := ss.sessions[id]
	delete(ss.sessions, id)
	ss.mu.Unlock()
	if ok {
		ss.expired(id)
	}
}

// Sweep removes every idle session and returns how many were dropped.
func (ss *SessionStore) Sweep() int {
	now := ss.now()
	var dropped []string
	ss.mu.Lock()
	for id, s := range ss.sessions {
		if now.Sub(s.LastSeen) > ss.idle {
			delete(ss.sessions, id)
			dropped = append(dropped, id)
		}
	}
	ss.mu.Unlock()
	for _, id := range dropped {
		ss.expired(id)
	}
	return len(dropped)
}

// Len returns the number of live sessions.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

func (ss *SessionStore) expired(id string) {
	if ss.onExpire != nil {
		ss.onExpire(id)
	}
}

// RunSweeper sweeps every interval until ctx is done.
func (ss *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ss.Sweep()
		}
	}
}

// Viewer returns middleware that attaches a viewer session, creating one when the
// cookie is missing or stale. It never blocks a request.
func Viewer(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess Session
			ok := false
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				sess, ok = sessions.Touch(cookie.Value)
			}
			if !ok {
				sess = sessions.Create()
				SetSessionCookie(w, sess.ID)
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}

// ContextWithSession returns a context with the given session set.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(DefaultSessionIdle / time.Second),
	})
}
