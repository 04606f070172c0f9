package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/incident-router/internal/cache/redisstore"
	"github.com/mohammed-shakir/incident-router/internal/cache/routecache"
	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/dispatchevents"
	"github.com/mohammed-shakir/incident-router/internal/graph"
	"github.com/mohammed-shakir/incident-router/internal/hotness/expdecay"
	"github.com/mohammed-shakir/incident-router/internal/locate"
	h3mapper "github.com/mohammed-shakir/incident-router/internal/mapper/h3"
	"github.com/mohammed-shakir/incident-router/internal/route"
)

func pt(x, y float64) model.Point { return model.Point{X: x, Y: y} }

// small road network around Nairobi CBD
func testEngine(t *testing.T) *route.Engine {
	t.Helper()
	return engineWith(t, model.FacilityRecord{ID: "fire-1", Category: model.CategoryFire, Label: "Central", Location: pt(36.7905, -1.2870)})
}

func engineWith(t *testing.T, facilities ...model.FacilityRecord) *route.Engine {
	t.Helper()
	g, _ := graph.Build([]model.LineGeometry{
		{pt(36.780, -1.292), pt(36.785, -1.292), pt(36.785, -1.287), pt(36.790, -1.287)},
	})
	cat, _ := route.NewCatalog(facilities)
	return route.New(g, cat)
}

func sharedRedis(t *testing.T) (*miniredis.Miniredis, *redisstore.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rc, err := redisstore.New(ctx, mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func redisBackedService(t *testing.T, e *route.Engine, rc *redisstore.Client) *Service {
	t.Helper()
	c, err := routecache.New(16, time.Minute, routecache.WithRemote(rc))
	require.NoError(t, err)
	return New(e, WithCache(c))
}

type recordingSink struct {
	mu     sync.Mutex
	events []dispatchevents.Event
}

func (r *recordingSink) Publish(ev dispatchevents.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestRoute_RecordsHotspotAndEvent(t *testing.T) {
	sink := &recordingSink{}
	tr := expdecay.New(time.Minute)
	s := New(testEngine(t), WithHotspots(tr, h3mapper.New(), 8), WithEvents(sink))

	res, err := s.Route(context.Background(), model.CategoryFire, pt(36.7801, -1.2921))
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Len(t, res.Path, 4)

	cell, err := h3mapper.New().CellForPoint(pt(36.7801, -1.2921), 8)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, tr.Score(cell), 1e-3)

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.Equal(t, "fire", ev.Category)
	assert.Equal(t, "ok", ev.Status)
	assert.Equal(t, "fire-1", ev.FacilityID)
	assert.Equal(t, cell, ev.Cell)
}

func TestRoute_ServesRepeatFromCache(t *testing.T) {
	c, err := routecache.New(16, time.Minute)
	require.NoError(t, err)
	s := New(testEngine(t), WithCache(c))

	first, err := s.Route(context.Background(), model.CategoryFire, pt(36.7801, -1.2921))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	second, err := s.Route(context.Background(), model.CategoryFire, pt(36.7801, -1.2921))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, c.Len())

	_, err = s.Route(context.Background(), model.CategoryFire, pt(36.7802, -1.2921))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len(), "distinct incident must not reuse a cached route")
}

func TestRoute_EngineErrorsPropagateAndSkipSideEffects(t *testing.T) {
	sink := &recordingSink{}
	empty, _ := graph.Build(nil)
	cat, _ := route.NewCatalog([]model.FacilityRecord{
		{ID: "h", Category: model.CategoryHealth, Location: pt(1, 1)},
	})
	s := New(route.New(empty, cat), WithEvents(sink))

	_, err := s.Route(context.Background(), model.CategoryHealth, pt(1, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, locate.ErrEmptyGraph))

	_, err = s.Route(context.Background(), model.Category(99), pt(1, 1))
	assert.True(t, errors.Is(err, model.ErrUnknownCategory))
	assert.Empty(t, sink.events)
}

func TestRoute_NoFacilityStillEmitsEvent(t *testing.T) {
	sink := &recordingSink{}
	s := New(testEngine(t), WithEvents(sink))

	res, err := s.Route(context.Background(), model.CategoryRelief, pt(36.78, -1.29))
	require.NoError(t, err)
	assert.Equal(t, model.StatusNoFacility, res.Status)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "no_facility", sink.events[0].Status)
	assert.Empty(t, sink.events[0].FacilityID)
}

func TestHotspots_RollUpToParent(t *testing.T) {
	m := h3mapper.New()
	tr := expdecay.New(time.Hour)
	s := New(testEngine(t), WithHotspots(tr, m, 9))

	ctx := context.Background()
	for range 3 {
		_, err := s.Route(ctx, model.CategoryFire, pt(36.7801, -1.2921))
		require.NoError(t, err)
	}
	_, err := s.Route(ctx, model.CategoryFire, pt(37.5, -1.0))
	require.NoError(t, err)

	fine, err := s.Hotspots(10, 9)
	require.NoError(t, err)
	require.Len(t, fine, 2)
	assert.InDelta(t, 3.0, fine[0].Score, 1e-3)

	coarse, err := s.Hotspots(1, 4)
	require.NoError(t, err)
	require.Len(t, coarse, 1)
	parent, err := m.ToParent(fine[0].Cell, 4)
	require.NoError(t, err)
	assert.Equal(t, parent, coarse[0].Cell)
	assert.InDelta(t, 3.0, coarse[0].Score, 1e-3)
}

func TestHotspots_DisabledReturnsEmpty(t *testing.T) {
	s := New(testEngine(t))
	got, err := s.Hotspots(5, 8)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRoute_SharedRedisDoesNotServeOtherCatalog(t *testing.T) {
	_, rc := sharedRedis(t)
	incident := pt(36.7801, -1.2921)

	before := redisBackedService(t, engineWith(t,
		model.FacilityRecord{ID: "old-station", Category: model.CategoryFire, Location: pt(36.7905, -1.2870)},
	), rc)
	after := redisBackedService(t, engineWith(t,
		model.FacilityRecord{ID: "new-station", Category: model.CategoryFire, Location: pt(36.7805, -1.2920)},
	), rc)
	require.NotEqual(t, before.Engine().Fingerprint(), after.Engine().Fingerprint())

	res, err := before.Route(context.Background(), model.CategoryFire, incident)
	require.NoError(t, err)
	require.Equal(t, "old-station", res.Facility.ID)

	res, err = after.Route(context.Background(), model.CategoryFire, incident)
	require.NoError(t, err)
	require.NotNil(t, res.Facility)
	assert.Equal(t, "new-station", res.Facility.ID)
}

func TestRoute_SameNetworkSharesRedis(t *testing.T) {
	mr, rc := sharedRedis(t)
	incident := pt(36.7801, -1.2921)

	a := redisBackedService(t, testEngine(t), rc)
	b := redisBackedService(t, testEngine(t), rc)

	first, err := a.Route(context.Background(), model.CategoryFire, incident)
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 1)

	second, err := b.Route(context.Background(), model.CategoryFire, incident)
	require.NoError(t, err)
	assert.Equal(t, first.Facility.ID, second.Facility.ID)
	assert.Equal(t, first.Path, second.Path)
	assert.Len(t, mr.Keys(), 1)
}

func TestDropStale_RemovesOtherNetworksOnly(t *testing.T) {
	mr, rc := sharedRedis(t)
	ctx := context.Background()

	old := redisBackedService(t, engineWith(t,
		model.FacilityRecord{ID: "old-station", Category: model.CategoryFire, Location: pt(36.7905, -1.2870)},
	), rc)
	cur := redisBackedService(t, testEngine(t), rc)

	_, err := old.Route(ctx, model.CategoryFire, pt(36.7801, -1.2921))
	require.NoError(t, err)
	_, err = cur.Route(ctx, model.CategoryFire, pt(36.7801, -1.2921))
	require.NoError(t, err)
	require.NoError(t, mr.Set("unrelated", "x"))
	require.Len(t, mr.Keys(), 3)

	n, err := cur.DropStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, mr.Keys(), 2)
	assert.True(t, mr.Exists("unrelated"))
}

func TestDropStale_NoCache(t *testing.T) {
	n, err := New(testEngine(t)).DropStale(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
