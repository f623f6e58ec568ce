package roster

import (
	"context"
	"log/slog"
	"time"

	"directory/internal/adapters/http/perf"
)

// DefaultSlowSourceMs is the default threshold for slow source call warnings.
const DefaultSlowSourceMs = 1500

// Observer receives the outcome of each source call. The metrics adapter implements it.
type Observer interface {
	ObserveSourceCall(op string, d time.Duration, err error)
}

// TimedSource wraps a Source to log slow calls and record them to a collector.
type TimedSource struct {
	next      Source
	collector *perf.Collector
	observer  Observer
	threshold float64
}

var _ Source = (*TimedSource)(nil)

// NewTimedSource wraps next with timing instrumentation.
// PRE: next is non-nil; slowMs <= 0 selects DefaultSlowSourceMs; collector and observer may be nil
// POST: Returns a Source with identical behaviour plus timing side effects
func NewTimedSource(next Source, collector *perf.Collector, observer Observer, slowMs int) *TimedSource {
	if slowMs <= 0 {
		slowMs = DefaultSlowSourceMs
	}
	return &TimedSource{next: next, collector: collector, observer: observer, threshold: float64(slowMs)}
}

func (t *TimedSource) record(op string, start time.Time, err error) {
	elapsed := time.Since(start)
	durationMs := float64(elapsed.Microseconds()) / 1000.0

	attrs := []any{"op", op, "duration_ms", durationMs}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	if durationMs >= t.threshold {
		slog.Warn("slow_source_call", attrs...)
	} else {
		slog.Debug("source_call", attrs...)
	}

	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindSource,
			Path:       "source." + op,
			DurationMs: durationMs,
			Failed:     err != nil,
			Timestamp:  start,
		})
	}
	if t.observer != nil {
		t.observer.ObserveSourceCall(op, elapsed, err)
	}
}

// Rows wraps Source.Rows with timing.
func (t *TimedSource) Rows(ctx context.Context) ([][]string, error) {
	start := time.Now()
	rows, err := t.next.Rows(ctx)
	t.record("Rows", start, err)
	return rows, err
}

// WriteRow wraps Source.WriteRow with timing.
func (t *TimedSource) WriteRow(ctx context.Context, rowIndex int, values []string) error {
	start := time.Now()
	err := t.next.WriteRow(ctx, rowIndex, values)
	t.record("WriteRow", start, err)
	return err
}

// AppendRow wraps Source.AppendRow with timing.
func (t *TimedSource) AppendRow(ctx context.Context, values []string) error {
	start := time.Now()
	err := t.next.AppendRow(ctx, values)
	t.record("AppendRow", start, err)
	return err
}
