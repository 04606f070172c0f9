// Package dispatch serves route queries for the HTTP layer. It puts the route
// cache in front of the engine and, after every answer, records the incident
// cell in the hotspot tracker and emits a dispatch event.
package dispatch

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/mohammed-shakir/incident-router/internal/cache/keys"
	"github.com/mohammed-shakir/incident-router/internal/cache/routecache"
	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/core/observability"
	"github.com/mohammed-shakir/incident-router/internal/dispatchevents"
	"github.com/mohammed-shakir/incident-router/internal/hotness"
	mylog "github.com/mohammed-shakir/incident-router/internal/logger"
	"github.com/mohammed-shakir/incident-router/internal/mapper"
	"github.com/mohammed-shakir/incident-router/internal/route"
)

type Service struct {
	engine *route.Engine
	cache  *routecache.Cache
	mapr   mapper.Interface
	res    int
	hot    hotness.Interface
	events dispatchevents.Sink
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithCache(c *routecache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithHotspots maps each incident to an H3 cell at res and counts it in hot.
func WithHotspots(hot hotness.Interface, m mapper.Interface, res int) Option {
	return func(s *Service) {
		s.hot = hot
		s.mapr = m
		s.res = res
	}
}

func WithEvents(sink dispatchevents.Sink) Option {
	return func(s *Service) { s.events = sink }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(engine *route.Engine, opts ...Option) *Service {
	s := &Service{engine: engine, logger: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Engine() *route.Engine { return s.engine }

// Route answers one query. Errors come only from the engine (unknown category,
// empty graph); cache, tracker and event failures are logged and ignored.
func (s *Service) Route(ctx context.Context, cat model.Category, incident model.Point) (model.RouteResult, error) {
	ctx = mylog.WithCategory(ctx, cat.String())
	key := keys.RouteKey(cat.String(), s.engine.Graph().Policy().String(), incident, s.engine.Fingerprint())

	res, hit := model.RouteResult{}, false
	if s.cache != nil && cat.Valid() {
		res, hit = s.cache.Get(ctx, key)
	}
	if !hit {
		start := time.Now()
		var err error
		res, err = s.engine.Route(cat, incident)
		if err != nil {
			return model.RouteResult{}, err
		}
		observability.ObserveRoute(cat.String(), string(res.Status), time.Since(start).Seconds(), len(res.Path))
		if s.cache != nil {
			s.cache.Put(ctx, key, res)
		}
	}

	s.record(ctx, res)
	return res, nil
}

// DropStale removes cached results computed for a different road graph or
// facility catalog than the one this service answers from.
func (s *Service) DropStale(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.Sweep(ctx, keys.RoutePattern(), keys.StaleRoute(s.engine.Fingerprint()))
}

func (s *Service) record(ctx context.Context, res model.RouteResult) {
	var cell string
	if s.mapr != nil {
		c, err := s.mapr.CellForPoint(res.Incident, s.res)
		if err != nil {
			s.logger.DebugContext(ctx, "incident outside h3 domain", "incident", res.Incident.String(), "err", err)
		} else {
			cell = c
		}
	}
	if s.hot != nil && cell != "" {
		s.hot.Inc(cell)
	}
	if s.events != nil {
		s.events.Publish(dispatchevents.FromResult(res, cell, s.now()))
	}
}

// Facilities lists the records of one category.
func (s *Service) Facilities(cat model.Category) []model.FacilityRecord {
	return s.engine.Facilities(cat)
}

// Hotspots returns the n hottest incident cells. A res coarser than the
// tracking resolution rolls cells up to their parents and sums the scores.
func (s *Service) Hotspots(n, res int) ([]hotness.Hotspot, error) {
	r, ok := s.hot.(hotness.Ranker)
	if !ok {
		return []hotness.Hotspot{}, nil
	}
	if res < 0 || res >= s.res {
		return r.Top(n), nil
	}

	sums := make(map[string]float64)
	for _, h := range r.Top(0) {
		parent, err := s.mapr.ToParent(h.Cell, res)
		if err != nil {
			return nil, fmt.Errorf("roll up %s: %w", h.Cell, err)
		}
		sums[parent] += h.Score
	}
	out := make([]hotness.Hotspot, 0, len(sums))
	for cell, score := range sums {
		out = append(out, hotness.Hotspot{Cell: cell, Score: score})
	}
	slices.SortFunc(out, func(a, b hotness.Hotspot) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Cell, b.Cell)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// RunPruner forgets hotspot cells whose score dropped below minScore, every
// interval, until ctx is done.
func (s *Service) RunPruner(ctx context.Context, interval time.Duration, minScore float64) {
	p, ok := s.hot.(hotness.Pruner)
	if !ok || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := p.Prune(minScore); n > 0 {
				s.logger.Debug("pruned cold hotspot cells", "removed", n)
			}
		}
	}
}
