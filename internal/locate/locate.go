// Package locate answers nearest-point questions: the road graph node closest
// to a point, and the closest facility of a collection. Every search resolves
// exact ties to the first candidate in a fixed order, so repeated calls with the
// same input return the same answer.
package locate

import (
	"errors"
	"math"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/graph"
)

var (
	ErrEmptyGraph = errors.New("graph has no nodes")
	ErrNotFound   = errors.New("no facility available")
)

// Distance is the planar Euclidean distance in coordinate units.
func Distance(a, b model.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// NearestNode scans every node in canonical order and returns the first one at
// minimum distance from p.
func NearestNode(g *graph.Graph, p model.Point) (graph.NodeID, error) {
	if g == nil || g.NodeCount() == 0 {
		return 0, ErrEmptyGraph
	}
	best := graph.NodeID(0)
	bestDist := math.Inf(1)
	for i := 0; i < g.NodeCount(); i++ {
		id := graph.NodeID(i)
		if d := Distance(p, g.Point(id)); d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, nil
}

// NearestFacility returns the first record at minimum distance from p, and that distance.
func NearestFacility(p model.Point, facilities []model.FacilityRecord) (model.FacilityRecord, float64, error) {
	if len(facilities) == 0 {
		return model.FacilityRecord{}, 0, ErrNotFound
	}
	best := 0
	bestDist := math.Inf(1)
	for i, f := range facilities {
		if d := Distance(p, f.Location); d < bestDist {
			best, bestDist = i, d
		}
	}
	return facilities[best], bestDist, nil
}

// NodeLocator is satisfied by the linear scan and by NodeIndex.
type NodeLocator interface {
	Nearest(p model.Point) (graph.NodeID, error)
}

// Scan adapts NearestNode to NodeLocator.
type Scan struct {
	G *graph.Graph
}

func (s Scan) Nearest(p model.Point) (graph.NodeID, error) {
	return NearestNode(s.G, p)
}
