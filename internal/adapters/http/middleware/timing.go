package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"directory/internal/adapters/http/perf"
)

// DefaultSlowRequestMs is the default threshold for slow request warnings.
const DefaultSlowRequestMs = 200

var requestSeq atomic.Uint64

// statusWriter records the status code and body size of a response.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += n
	return n, err
}

var statusWriterPool = sync.Pool{
	New: func() any { return &statusWriter{} },
}

// untimed reports paths that are not worth recording.
func untimed(path string) bool {
	return strings.HasPrefix(path, "/static/") || path == "/metrics"
}

// routeName names a request for aggregation. The mux fills r.Pattern while routing,
// so "GET /photo" groups every photo request regardless of its query.
func routeName(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.Method + " " + r.URL.Path
}

// Timing logs each request and records it in collector when non-nil.
// Requests at or above slowMs log slow_request at WARN, the rest log at DEBUG.
// slowMs <= 0 selects DefaultSlowRequestMs.
func Timing(collector *perf.Collector, slowMs int) func(http.Handler) http.Handler {
	if slowMs <= 0 {
		slowMs = DefaultSlowRequestMs
	}
	threshold := float64(slowMs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if untimed(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			sw := statusWriterPool.Get().(*statusWriter)
			*sw = statusWriter{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				durationMs := float64(time.Since(start).Microseconds()) / 1000.0
				route := routeName(r)
				attrs := []any{
					"request_id", requestSeq.Add(1),
					"route", route,
					"path", r.URL.Path,
					"status", sw.status,
					"bytes", sw.bytes,
					"duration_ms", durationMs,
				}
				if durationMs >= threshold {
					slog.Warn("slow_request", attrs...)
				} else {
					slog.Debug("request", attrs...)
				}
				if collector != nil {
					collector.Record(perf.Entry{
						Kind:       perf.KindRequest,
						Path:       route,
						StatusCode: sw.status,
						DurationMs: durationMs,
						Failed:     sw.status >= http.StatusInternalServerError,
						Timestamp:  start,
					})
				}
				*sw = statusWriter{}
				statusWriterPool.Put(sw)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
