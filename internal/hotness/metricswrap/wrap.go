// Package metricswrap reports hotspot tracker size and logs cells crossing a threshold.
package metricswrap

import (
	xx "github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/incident-router/internal/core/observability"
	"github.com/mohammed-shakir/incident-router/internal/hotness"
)

type Sizer interface{ Size() int }

type WithMetrics struct {
	inner     hotness.Interface
	threshold float64
	sample    float64
	log       zerolog.Logger
}

type Option func(*WithMetrics)

// WithThreshold logs a sampled event whenever a cell's score reaches min.
func WithThreshold(minScore, sample float64, l zerolog.Logger) Option {
	return func(w *WithMetrics) {
		w.threshold = minScore
		w.sample = sample
		w.log = l
	}
}

func New(inner hotness.Interface, opts ...Option) *WithMetrics {
	w := &WithMetrics{inner: inner, log: zerolog.Nop()}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *WithMetrics) Inc(cell string) {
	w.inner.Inc(cell)
	if w.threshold > 0 {
		score := w.inner.Score(cell)
		if score >= w.threshold && shouldLog(w.sample, cell) {
			w.log.Info().
				Str("event", "hotspot_threshold").
				Float64("score", score).
				Str("cell", cell).
				Msg("incident hotspot above threshold")
		}
	}
	w.report()
}

func (w *WithMetrics) Score(cell string) float64 {
	return w.inner.Score(cell)
}

func (w *WithMetrics) Reset(cells ...string) {
	w.inner.Reset(cells...)
	w.report()
}

// Top delegates to the wrapped tracker when it can rank cells.
func (w *WithMetrics) Top(n int) []hotness.Hotspot {
	if r, ok := w.inner.(hotness.Ranker); ok {
		return r.Top(n)
	}
	return nil
}

// Prune delegates to the wrapped tracker when it can forget cells.
func (w *WithMetrics) Prune(minScore float64) int {
	p, ok := w.inner.(hotness.Pruner)
	if !ok {
		return 0
	}
	n := p.Prune(minScore)
	w.report()
	return n
}

func (w *WithMetrics) report() {
	if s, ok := w.inner.(Sizer); ok {
		observability.SetHotCells(s.Size())
	}
}

func shouldLog(sample float64, key string) bool {
	if sample <= 0 {
		return false
	}
	if sample >= 1 {
		return true
	}
	const denom = 10000 // 0.01 => 100/10000
	threshold := uint64(sample*denom + 0.5)
	if threshold == 0 {
		return false
	}
	h := xx.Sum64String(key)
	return (h % denom) < threshold
}
