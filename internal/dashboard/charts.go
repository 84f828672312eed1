package dashboard

import (
	"sync"

	"io.winapps.healthjournal/internal/aggregator"
	models "io.winapps.healthjournal/internal/models/entry"
)

// Chart is one rendered trend chart. Dispose releases whatever the renderer
// attached to it and is called at most once.
type Chart struct {
	Category models.Category     `json:"category"`
	Version  int                 `json:"version"`
	Series   []aggregator.Series `json:"series"`

	dispose  func()
	disposed bool
}

// ChartRegistry owns at most one live chart per category. Replacing a chart
// disposes the previous one.
type ChartRegistry struct {
	mu      sync.Mutex
	charts  map[models.Category]*Chart
	version int
}

func NewChartRegistry() *ChartRegistry {
	return &ChartRegistry{charts: make(map[models.Category]*Chart)}
}

// Replace installs a new chart for c, disposing the old one, and returns it.
func (r *ChartRegistry) Replace(c models.Category, series []aggregator.Series, dispose func()) *Chart {
	r.mu.Lock()
	r.version++
	next := &Chart{Category: c, Version: r.version, Series: series, dispose: dispose}
	prev := r.charts[c]
	r.charts[c] = next
	r.mu.Unlock()

	prev.release()
	return next
}

// Get returns the live chart of c, if any.
func (r *ChartRegistry) Get(c models.Category) (*Chart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.charts[c]
	return ch, ok
}

// Len is the number of live charts.
func (r *ChartRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.charts)
}

// Close disposes every live chart.
func (r *ChartRegistry) Close() {
	r.mu.Lock()
	charts := r.charts
	r.charts = make(map[models.Category]*Chart)
	r.mu.Unlock()

	for _, ch := range charts {
		ch.release()
	}
}

func (ch *Chart) release() {
	if ch == nil || ch.disposed {
		return
	}
	ch.disposed = true
	if ch.dispose != nil {
		ch.dispose()
	}
}
