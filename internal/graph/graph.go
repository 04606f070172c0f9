// Package graph holds the road network graph: an undirected, simple, weighted
// graph over exact road coordinates. A Graph is immutable once Build returns and
// may be shared by any number of concurrent readers.
package graph

import (
	"github.com/mohammed-shakir/incident-router/internal/core/model"
)

// NodeID is the position of a node in the canonical node order.
type NodeID int

// Edge is one adjacency entry; the reverse entry carries the same weight.
type Edge struct {
	To     NodeID
	Weight float64
}

type Graph struct {
	points      []model.Point
	index       map[model.Point]NodeID
	adj         [][]Edge
	edges       int
	policy      WeightPolicy
	fingerprint uint64
}

func (g *Graph) NodeCount() int { return len(g.points) }

func (g *Graph) EdgeCount() int { return g.edges }

func (g *Graph) Policy() WeightPolicy { return g.policy }

// Fingerprint identifies the node set, edge set and weights. Two graphs built
// from the same roads with the same policy share a fingerprint.
func (g *Graph) Fingerprint() uint64 { return g.fingerprint }

// Has reports whether id names a node of g.
func (g *Graph) Has(id NodeID) bool {
	return id >= 0 && int(id) < len(g.points)
}

// Point returns the coordinate of a node. It panics on an unknown id.
func (g *Graph) Point(id NodeID) model.Point {
	return g.points[id]
}

// Lookup finds the node at exactly p.
func (g *Graph) Lookup(p model.Point) (NodeID, bool) {
	id, ok := g.index[p]
	return id, ok
}

// Nodes returns node coordinates in canonical order (ascending X, then Y).
// The slice is a copy.
func (g *Graph) Nodes() []model.Point {
	out := make([]model.Point, len(g.points))
	copy(out, g.points)
	return out
}

// Neighbors returns the adjacency of id sorted by neighbour id. The returned
// slice is shared and must not be modified.
func (g *Graph) Neighbors(id NodeID) []Edge {
	if !g.Has(id) {
		return nil
	}
	return g.adj[id]
}

func (g *Graph) Degree(id NodeID) int {
	return len(g.Neighbors(id))
}

// Weight returns the weight of edge (u, v) in either direction.
func (g *Graph) Weight(u, v NodeID) (float64, bool) {
	for _, e := range g.Neighbors(u) {
		if e.To == v {
			return e.Weight, true
		}
		if e.To > v {
			break
		}
	}
	return 0, false
}

func (g *Graph) HasEdge(u, v NodeID) bool {
	_, ok := g.Weight(u, v)
	return ok
}

// PathPoints maps node ids to their coordinates.
func (g *Graph) PathPoints(ids []NodeID) []model.Point {
	out := make([]model.Point, len(ids))
	for i, id := range ids {
		out[i] = g.points[id]
	}
	return out
}
