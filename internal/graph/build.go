package graph

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
)

// WeightPolicy decides the length cost assigned to an edge.
type WeightPolicy int

const (
	// WeightPerSegment weights each edge by the planar length of its own segment.
	// Weights do not depend on input order.
	WeightPerSegment WeightPolicy = iota
	// WeightWholeLine weights every edge of a line by the planar length of the
	// whole line. A segment shared by several lines takes the shortest of their
	// lengths, so weights do not depend on input order either.
	WeightWholeLine
)

func (p WeightPolicy) String() string {
	switch p {
	case WeightPerSegment:
		return "segment"
	case WeightWholeLine:
		return "line"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func ParseWeightPolicy(s string) (WeightPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "segment", "per-segment", "per_segment":
		return WeightPerSegment, nil
	case "line", "whole-line", "whole_line":
		return WeightWholeLine, nil
	default:
		return 0, fmt.Errorf("unknown weight policy %q (want segment|line)", s)
	}
}

type options struct {
	policy WeightPolicy
}

type Option func(*options)

func WithWeightPolicy(p WeightPolicy) Option {
	return func(o *options) { o.policy = p }
}

// BuildStats counts what Build did with its input.
type BuildStats struct {
	Lines      int // linear geometries consumed
	Skipped    int // geometries with fewer than two points
	Segments   int // consecutive pairs seen
	Duplicates int // pairs whose edge already existed
	SelfLoops  int // pairs with identical endpoints
}

type pairKey struct {
	a, b model.Point
}

func lessPoint(a, b model.Point) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

func cmpPoint(a, b model.Point) int {
	switch {
	case lessPoint(a, b):
		return -1
	case lessPoint(b, a):
		return 1
	default:
		return 0
	}
}

func orderedPair(u, v model.Point) pairKey {
	if lessPoint(v, u) {
		return pairKey{a: v, b: u}
	}
	return pairKey{a: u, b: v}
}

func toOrb(p model.Point) orb.Point { return orb.Point{p.X, p.Y} }

func lineLength(line model.LineGeometry) float64 {
	ls := make(orb.LineString, len(line))
	for i, p := range line {
		ls[i] = toOrb(p)
	}
	return planar.Length(ls)
}

// Build turns road lines into a graph. Every consecutive pair of points in a
// line becomes an undirected edge unless that pair is already present.
// A pair of identical points adds its point as a node but no edge.
// Lines with fewer than two points are skipped and counted.
func Build(lines []model.LineGeometry, opts ...Option) (*Graph, BuildStats) {
	cfg := options{policy: WeightPerSegment}
	for _, o := range opts {
		o(&cfg)
	}

	var stats BuildStats
	weights := make(map[pairKey]float64)
	// pairs in first-seen order
	order := make([]pairKey, 0)
	var loops []model.Point

	for _, line := range lines {
		if len(line) < 2 {
			stats.Skipped++
			continue
		}
		stats.Lines++

		whole := 0.0
		if cfg.policy == WeightWholeLine {
			whole = lineLength(line)
		}

		for i := 0; i+1 < len(line); i++ {
			u, v := line[i], line[i+1]
			stats.Segments++
			if u == v {
				stats.SelfLoops++
				loops = append(loops, u)
				continue
			}
			k := orderedPair(u, v)
			if prev, ok := weights[k]; ok {
				stats.Duplicates++
				if cfg.policy == WeightWholeLine && whole < prev {
					weights[k] = whole
				}
				continue
			}
			w := whole
			if cfg.policy == WeightPerSegment {
				w = planar.Distance(toOrb(u), toOrb(v))
			}
			weights[k] = w
			order = append(order, k)
		}
	}

	return assemble(weights, order, loops, cfg.policy), stats
}

func assemble(weights map[pairKey]float64, order []pairKey, loops []model.Point, policy WeightPolicy) *Graph {
	seen := make(map[model.Point]struct{}, len(order)*2+len(loops))
	points := make([]model.Point, 0, len(order)*2+len(loops))
	add := func(p model.Point) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		points = append(points, p)
	}
	for _, k := range order {
		add(k.a)
		add(k.b)
	}
	for _, p := range loops {
		add(p)
	}
	slices.SortFunc(points, cmpPoint)

	index := make(map[model.Point]NodeID, len(points))
	for i, p := range points {
		index[p] = NodeID(i)
	}

	adj := make([][]Edge, len(points))
	for _, k := range order {
		u, v := index[k.a], index[k.b]
		w := weights[k]
		adj[u] = append(adj[u], Edge{To: v, Weight: w})
		adj[v] = append(adj[v], Edge{To: u, Weight: w})
	}
	for i := range adj {
		slices.SortFunc(adj[i], func(x, y Edge) int { return int(x.To) - int(y.To) })
	}

	g := &Graph{
		points: points,
		index:  index,
		adj:    adj,
		edges:  len(order),
		policy: policy,
	}
	g.fingerprint = fingerprint(g)
	return g
}

// hashes nodes and edges in canonical order
func fingerprint(g *Graph) uint64 {
	d := xxhash.New()
	var buf [8]byte
	put := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = d.Write(buf[:])
	}
	put(float64(g.policy))
	for i, p := range g.points {
		put(p.X)
		put(p.Y)
		for _, e := range g.adj[i] {
			if e.To < NodeID(i) {
				continue
			}
			put(float64(e.To))
			put(e.Weight)
		}
	}
	return d.Sum64()
}
