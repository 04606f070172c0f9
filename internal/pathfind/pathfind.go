// Package pathfind computes minimum-weight paths over the road graph with
// Dijkstra's algorithm.
//
// The search uses a binary heap with lazy decrease-key: improved distances are
// pushed as new entries and stale entries are skipped when popped. Heap ties are
// broken by node id and neighbours are relaxed in id order, so equal-cost
// alternatives always resolve to the same path.
//
// Complexity: O((V + E) log V) time, O(V + E) space.
package pathfind

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/mohammed-shakir/incident-router/internal/graph"
)

var (
	ErrNoPath       = errors.New("no path between nodes")
	ErrNodeNotFound = errors.New("node not found in graph")
)

// Path is an ordered node sequence from source to target. Weight is the sum of
// the traversed edge weights, accumulated in path order.
type Path struct {
	Nodes  []graph.NodeID
	Weight float64
}

// ShortestPath returns the minimum-weight path from source to target.
// A source equal to target yields the single-node path with weight 0.
func ShortestPath(g *graph.Graph, source, target graph.NodeID) (Path, error) {
	if g == nil {
		return Path{}, fmt.Errorf("%w: nil graph", ErrNodeNotFound)
	}
	if !g.Has(source) {
		return Path{}, fmt.Errorf("%w: source %d", ErrNodeNotFound, source)
	}
	if !g.Has(target) {
		return Path{}, fmt.Errorf("%w: target %d", ErrNodeNotFound, target)
	}
	if source == target {
		return Path{Nodes: []graph.NodeID{source}, Weight: 0}, nil
	}

	r := newRunner(g, source)
	r.run(target)

	if !r.visited[target] {
		return Path{}, fmt.Errorf("%w: %d -> %d", ErrNoPath, source, target)
	}
	return Path{Nodes: r.pathTo(target), Weight: r.dist[target]}, nil
}

// Distances returns the shortest distance from source to every node; unreachable
// nodes hold +Inf.
func Distances(g *graph.Graph, source graph.NodeID) ([]float64, error) {
	if g == nil || !g.Has(source) {
		return nil, fmt.Errorf("%w: source %d", ErrNodeNotFound, source)
	}
	r := newRunner(g, source)
	r.run(-1)
	return r.dist, nil
}

type runner struct {
	g       *graph.Graph
	dist    []float64
	prev    []graph.NodeID
	visited []bool
	pq      nodePQ
}

func newRunner(g *graph.Graph, source graph.NodeID) *runner {
	n := g.NodeCount()
	r := &runner{
		g:       g,
		dist:    make([]float64, n),
		prev:    make([]graph.NodeID, n),
		visited: make([]bool, n),
		pq:      make(nodePQ, 0, 16),
	}
	for i := range r.dist {
		r.dist[i] = math.Inf(1)
		r.prev[i] = -1
	}
	r.dist[source] = 0
	heap.Push(&r.pq, nodeItem{id: source, dist: 0})
	return r
}

// run settles nodes until the heap drains or target is settled (target < 0 never stops early)
func (r *runner) run(target graph.NodeID) {
	for r.pq.Len() > 0 {
		item := heap.Pop(&r.pq).(nodeItem)
		u := item.id
		if r.visited[u] {
			continue
		}
		r.visited[u] = true
		if u == target {
			return
		}
		for _, e := range r.g.Neighbors(u) {
			if r.visited[e.To] {
				continue
			}
			nd := r.dist[u] + e.Weight
			if nd < r.dist[e.To] {
				r.dist[e.To] = nd
				r.prev[e.To] = u
				heap.Push(&r.pq, nodeItem{id: e.To, dist: nd})
			}
		}
	}
}

func (r *runner) pathTo(target graph.NodeID) []graph.NodeID {
	var rev []graph.NodeID
	for v := target; v >= 0; v = r.prev[v] {
		rev = append(rev, v)
	}
	out := make([]graph.NodeID, len(rev))
	for i, v := range rev {
		out[len(rev)-1-i] = v
	}
	return out
}

type nodeItem struct {
	id   graph.NodeID
	dist float64
}

type nodePQ []nodeItem

func (pq nodePQ) Len() int { return len(pq) }

func (pq nodePQ) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return pq[i].id < pq[j].id
}

func (pq nodePQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *nodePQ) Push(x any) { *pq = append(*pq, x.(nodeItem)) }

func (pq *nodePQ) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
