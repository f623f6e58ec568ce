package photo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrSuperseded is returned to a request that was replaced by a newer request
// for the same display target before it completed.
var ErrSuperseded = errors.New("photo request superseded")

// Result is what a display target currently shows.
type Result struct {
	URL   string
	Photo Photo
	Err   error
	// Generation identifies the request that produced the result. It is unique
	// within the Loader.
	Generation uint64
}

// target tracks the newest request for one display target.
type target struct {
	generation uint64
	cancel     context.CancelFunc
	shown      Result
	hasShown   bool
}

// Loader runs photo fetches on behalf of display targets such as a viewer session.
// Per target, the last request wins: a new request cancels the one in flight, and
// a completion whose generation is no longer current is discarded.
type Loader struct {
	fetcher Fetcher
	timeout time.Duration

	mu      sync.Mutex
	targets map[string]*target
	// seq numbers requests across all targets so a generation is never reused,
	// even after Forget drops a target.
	seq uint64
}

// NewLoader creates a loader. timeout <= 0 selects DefaultTimeout.
func NewLoader(fetcher Fetcher, timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Loader{fetcher: fetcher, timeout: timeout, targets: make(map[string]*target)}
}

// begin registers a new request for targetID and cancels the previous one.
func (l *Loader) begin(ctx context.Context, targetID string) (context.Context, context.CancelFunc, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.targets[targetID]
	if !ok {
		t = &target{}
		l.targets[targetID] = t
	}
	if t.cancel != nil {
		t.cancel()
	}
	l.seq++
	t.generation = l.seq
	fctx, cancel := context.WithTimeout(ctx, l.timeout)
	t.cancel = cancel
	return fctx, cancel, t.generation
}

// finish publishes res if gen is still the target's newest request.
func (l *Loader) finish(targetID string, gen uint64, res Result) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.targets[targetID]
	if !ok || t.generation != gen {
		return false
	}
	t.cancel = nil
	t.shown = res
	t.hasShown = true
	return true
}

// Load fetches rawURL for targetID and blocks until it completes.
// PRE: targetID is non-empty
// POST: Returns the photo if this request is still the newest for targetID when it
// completes; otherwise ErrSuperseded and the target's shown result is untouched.
// Non-http(s) URLs resolve to ErrNoPhoto and still supersede older requests
func (l *Loader) Load(ctx context.Context, targetID, rawURL string) (Photo, error) {
	fctx, cancel, gen := l.begin(ctx, targetID)
	defer cancel()

	var (
		p   Photo
		err error
	)
	if !Fetchable(rawURL) {
		err = ErrNoPhoto
	} else {
		p, err = l.fetcher.Fetch(fctx, rawURL)
	}

	if !l.finish(targetID, gen, Result{URL: rawURL, Photo: p, Err: err, Generation: gen}) {
		slog.Debug("photo_result_discarded", "target", targetID, "generation", gen)
		return Photo{}, ErrSuperseded
	}
	if err != nil && !errors.Is(err, ErrNoPhoto) {
		slog.Warn("photo_fetch_failed", "target", targetID, "url", rawURL, "error", err.Error())
	}
	return p, err
}

// Start launches Load in the background. done, if non-nil, receives the outcome.
func (l *Loader) Start(ctx context.Context, targetID, rawURL string, done func(Photo, error)) {
	go func() {
		p, err := l.Load(ctx, targetID, rawURL)
		if done != nil {
			done(p, err)
		}
	}()
}

// Current returns the result the target is showing.
// POST: ok is false until a request for targetID has completed
func (l *Loader) Current(targetID string) (Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.targets[targetID]
	if !ok || !t.hasShown {
		return Result{}, false
	}
	return t.shown, true
}

// Forget cancels any request in flight for targetID and drops its state.
func (l *Loader) Forget(targetID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.targets[targetID]; ok {
		if t.cancel != nil {
			t.cancel()
		}
		delete(l.targets, targetID)
	}
}

// Targets returns how many display targets are tracked.
func (l *Loader) Targets() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.targets)
}
