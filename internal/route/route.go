// Package route answers "which facility of a category is reachable fastest from
// this incident, and along which road path". An Engine holds the road graph and
// facility catalog, both read-only, so one Engine serves concurrent queries
// without locking.
package route

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/graph"
	"github.com/mohammed-shakir/incident-router/internal/locate"
	"github.com/mohammed-shakir/incident-router/internal/pathfind"
)

const NoPathMessage = "A direct path from the specified location to the selected facility could not be determined."

type Engine struct {
	g       *graph.Graph
	catalog *Catalog
	nodes   locate.NodeLocator
}

type Option func(*Engine)

// WithSpatialIndex answers nearest-node lookups from an R-tree instead of a scan.
func WithSpatialIndex() Option {
	return func(e *Engine) {
		if e.g != nil {
			e.nodes = locate.NewNodeIndex(e.g)
		}
	}
}

func New(g *graph.Graph, catalog *Catalog, opts ...Option) *Engine {
	e := &Engine{g: g, catalog: catalog, nodes: locate.Scan{G: g}}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Graph() *graph.Graph { return e.g }

func (e *Engine) Catalog() *Catalog { return e.catalog }

// Fingerprint identifies everything a route answer depends on: the graph
// (nodes, edges, weights, policy) and the facility catalog.
func (e *Engine) Fingerprint() uint64 {
	var buf [16]byte
	if e.g != nil {
		binary.LittleEndian.PutUint64(buf[:8], e.g.Fingerprint())
	}
	binary.LittleEndian.PutUint64(buf[8:], e.catalog.Fingerprint())
	return xxhash.Sum64(buf[:])
}

// Facilities returns a copy of the records for a category.
func (e *Engine) Facilities(cat model.Category) []model.FacilityRecord {
	src := e.catalog.For(cat)
	out := make([]model.FacilityRecord, len(src))
	copy(out, src)
	return out
}

// Route finds the nearest facility of cat to incident and the shortest road path
// between the graph nodes nearest to each. Missing facilities and unreachable
// facilities are reported through the result status; the error is reserved for
// an invalid category and an empty graph.
func (e *Engine) Route(cat model.Category, incident model.Point) (model.RouteResult, error) {
	if !cat.Valid() {
		return model.RouteResult{}, fmt.Errorf("%w: %d", model.ErrUnknownCategory, int(cat))
	}
	res := model.RouteResult{Category: cat, Incident: incident}

	facility, dist, err := locate.NearestFacility(incident, e.catalog.For(cat))
	if errors.Is(err, locate.ErrNotFound) {
		res.Status = model.StatusNoFacility
		res.Message = fmt.Sprintf("no %s available", cat.Label())
		return res, nil
	}
	res.Facility = &facility
	res.FacilityDistance = dist

	src, err := e.nodes.Nearest(incident)
	if err != nil {
		return model.RouteResult{}, fmt.Errorf("locate incident node: %w", err)
	}
	dst, err := e.nodes.Nearest(facility.Location)
	if err != nil {
		return model.RouteResult{}, fmt.Errorf("locate facility node: %w", err)
	}

	p, err := pathfind.ShortestPath(e.g, src, dst)
	if errors.Is(err, pathfind.ErrNoPath) {
		res.Status = model.StatusNoPath
		res.Message = NoPathMessage
		return res, nil
	}
	if err != nil {
		return model.RouteResult{}, fmt.Errorf("shortest path: %w", err)
	}

	res.Status = model.StatusOK
	res.Path = e.g.PathPoints(p.Nodes)
	res.Weight = p.Weight
	res.LengthMeters = LengthMeters(res.Path)
	return res, nil
}

// LengthMeters is the geodesic length of a lon/lat polyline.
func LengthMeters(path []model.Point) float64 {
	if len(path) < 2 {
		return 0
	}
	ls := make(orb.LineString, len(path))
	for i, p := range path {
		ls[i] = orb.Point{p.X, p.Y}
	}
	return geo.Length(ls)
}
