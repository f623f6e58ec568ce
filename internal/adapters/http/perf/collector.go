// Package perf keeps recent request, query and roster source timings in memory
// for the admin perf view.
package perf

import (
	"cmp"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// EntryKind distinguishes HTTP requests, local SQLite queries and roster source calls.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
	KindSource
)

// Entry is a single timing record stored in the ring buffer.
type Entry struct {
	Kind       EntryKind
	Path       string // "GET /", "sqlite.Method" or "source.Method"
	StatusCode int    // HTTP status (0 for queries and source calls)
	DurationMs float64
	Failed     bool
	Timestamp  time.Time
}

// Collector is a fixed-size ring buffer of timing entries.
// When full, the oldest entry is overwritten. Aggregation happens only in Snapshot.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	written atomic.Int64
}

// NewCollector creates a collector holding the last size entries.
// POST: size <= 0 selects DefaultRingSize
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{entries: make([]Entry, size)}
}

// Record stores e, overwriting the oldest entry when the ring is full.
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.entries[c.next] = e
	c.next = (c.next + 1) % len(c.entries)
	c.mu.Unlock()
	c.written.Add(1)
}

// TotalRecorded returns how many entries were ever recorded.
func (c *Collector) TotalRecorded() int64 {
	return c.written.Load()
}

// Snapshot holds aggregated performance data computed on read.
type Snapshot struct {
	TotalRequests  int64
	RequestP50Ms   float64
	RequestP95Ms   float64
	RequestP99Ms   float64
	SourceP95Ms    float64
	SourceErrors   int
	SlowestPaths   []PathStat
	SlowestQueries []PathStat
	SourceCalls    []PathStat
}

// PathStat aggregates timing for one route, query or source operation.
type PathStat struct {
	Path    string
	AvgMs   float64
	MaxMs   float64
	Count   int
	Errors  int
	TotalMs float64
}

// group accumulates one entry kind.
type group struct {
	paths     map[string]*PathStat
	durations []float64
	errors    int
}

func (g *group) add(e Entry) {
	if g.paths == nil {
		g.paths = make(map[string]*PathStat)
	}
	s, ok := g.paths[e.Path]
	if !ok {
		s = &PathStat{Path: e.Path}
		g.paths[e.Path] = s
	}
	s.Count++
	s.TotalMs += e.DurationMs
	s.MaxMs = max(s.MaxMs, e.DurationMs)
	if e.Failed {
		s.Errors++
		g.errors++
	}
	g.durations = append(g.durations, e.DurationMs)
}

// top returns the n paths with the highest average duration.
func (g *group) top(n int) []PathStat {
	list := make([]PathStat, 0, len(g.paths))
	for _, s := range g.paths {
		s.AvgMs = s.TotalMs / float64(s.Count)
		list = append(list, *s)
	}
	slices.SortFunc(list, func(a, b PathStat) int {
		if c := cmp.Compare(b.AvgMs, a.AvgMs); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}

// Snapshot aggregates the entries recorded at or after since.
// PRE: topN > 0
// POST: each top-N list is ordered by average duration, slowest first
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := slices.Clone(c.entries)
	c.mu.Unlock()

	var requests, queries, sources group
	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		switch e.Kind {
		case KindRequest:
			requests.add(e)
		case KindQuery:
			queries.add(e)
		case KindSource:
			sources.add(e)
		}
	}

	slices.Sort(requests.durations)
	slices.Sort(sources.durations)
	return Snapshot{
		TotalRequests:  c.TotalRecorded(),
		RequestP50Ms:   percentile(requests.durations, 50),
		RequestP95Ms:   percentile(requests.durations, 95),
		RequestP99Ms:   percentile(requests.durations, 99),
		SourceP95Ms:    percentile(sources.durations, 95),
		SourceErrors:   sources.errors,
		SlowestPaths:   requests.top(topN),
		SlowestQueries: queries.top(topN),
		SourceCalls:    sources.top(topN),
	}
}

// percentile interpolates the p-th percentile of sorted; empty input yields 0.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo, hi := int(math.Floor(rank)), int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
