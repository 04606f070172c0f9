package pathfind

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/graph"
)

func pt(x, y float64) model.Point { return model.Point{X: x, Y: y} }

func node(t *testing.T, g *graph.Graph, p model.Point) graph.NodeID {
	t.Helper()
	id, ok := g.Lookup(p)
	require.Truef(t, ok, "node %v missing", p)
	return id
}

// sums edge weights left to right along the path
func pathWeight(t *testing.T, g *graph.Graph, nodes []graph.NodeID) float64 {
	t.Helper()
	sum := 0.0
	for i := 0; i+1 < len(nodes); i++ {
		w, ok := g.Weight(nodes[i], nodes[i+1])
		require.Truef(t, ok, "path uses missing edge %d-%d", nodes[i], nodes[i+1])
		sum += w
	}
	return sum
}

func TestShortestPath_Chain(t *testing.T) {
	g, _ := graph.Build([]model.LineGeometry{{pt(0, 0), pt(1, 0), pt(1, 1), pt(2, 1)}})

	p, err := ShortestPath(g, node(t, g, pt(0, 0)), node(t, g, pt(2, 1)))
	require.NoError(t, err)
	assert.Equal(t, []model.Point{pt(0, 0), pt(1, 0), pt(1, 1), pt(2, 1)}, g.PathPoints(p.Nodes))
	assert.Equal(t, 3.0, p.Weight)
}

func TestShortestPath_DisconnectedComponent(t *testing.T) {
	g, _ := graph.Build([]model.LineGeometry{
		{pt(0, 0), pt(1, 0), pt(1, 1), pt(2, 1)},
		{pt(5, 5), pt(6, 6)},
	})

	_, err := ShortestPath(g, node(t, g, pt(0, 0)), node(t, g, pt(5, 5)))
	assert.True(t, errors.Is(err, ErrNoPath))
}

func TestShortestPath_SourceEqualsTarget(t *testing.T) {
	g, _ := graph.Build([]model.LineGeometry{{pt(0, 0), pt(1, 0)}})
	a := node(t, g, pt(1, 0))

	p, err := ShortestPath(g, a, a)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{a}, p.Nodes)
	assert.Equal(t, 0.0, p.Weight)
}

func TestShortestPath_UnknownNode(t *testing.T) {
	g, _ := graph.Build([]model.LineGeometry{{pt(0, 0), pt(1, 0)}})

	_, err := ShortestPath(g, 0, 99)
	assert.True(t, errors.Is(err, ErrNodeNotFound))
	_, err = ShortestPath(g, -1, 0)
	assert.True(t, errors.Is(err, ErrNodeNotFound))
	_, err = ShortestPath(nil, 0, 0)
	assert.True(t, errors.Is(err, ErrNodeNotFound))
}

func TestShortestPath_PicksCheaperOfTwoRoutes(t *testing.T) {
	g, _ := graph.Build([]model.LineGeometry{
		{pt(0, 0), pt(10, 0)},
		{pt(0, 0), pt(1, 1), pt(2, 1), pt(10, 0.5), pt(10, 0)},
	}, graph.WithWeightPolicy(graph.WeightPerSegment))

	p, err := ShortestPath(g, node(t, g, pt(0, 0)), node(t, g, pt(10, 0)))
	require.NoError(t, err)
	assert.Equal(t, []model.Point{pt(0, 0), pt(10, 0)}, g.PathPoints(p.Nodes))
}

func TestShortestPath_EqualCostTieIsDeterministic(t *testing.T) {
	// two unit-square routes from (0,0) to (1,1)
	g, _ := graph.Build([]model.LineGeometry{
		{pt(0, 0), pt(1, 0), pt(1, 1)},
		{pt(0, 0), pt(0, 1), pt(1, 1)},
	})
	src, dst := node(t, g, pt(0, 0)), node(t, g, pt(1, 1))

	first, err := ShortestPath(g, src, dst)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := ShortestPath(g, src, dst)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	// lowest id is relaxed first: (0,1) sorts before (1,0)
	assert.Equal(t, pt(0, 1), g.Point(first.Nodes[1]))
}

func TestShortestPath_RandomGraphsWeightAndOptimality(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	for round := 0; round < 20; round++ {
		var lines []model.LineGeometry
		for i := 0; i < 30; i++ {
			lines = append(lines, model.LineGeometry{
				pt(float64(r.Intn(8)), float64(r.Intn(8))),
				pt(float64(r.Intn(8)), float64(r.Intn(8))),
				pt(float64(r.Intn(8)), float64(r.Intn(8))),
			})
		}
		g, _ := graph.Build(lines)
		ref := floydWarshall(g)

		for q := 0; q < 20; q++ {
			s := graph.NodeID(r.Intn(g.NodeCount()))
			d := graph.NodeID(r.Intn(g.NodeCount()))
			p, err := ShortestPath(g, s, d)
			if math.IsInf(ref[s][d], 1) {
				require.True(t, errors.Is(err, ErrNoPath))
				continue
			}
			require.NoError(t, err)
			require.Equal(t, s, p.Nodes[0])
			require.Equal(t, d, p.Nodes[len(p.Nodes)-1])
			require.Equal(t, pathWeight(t, g, p.Nodes), p.Weight)
			require.InDelta(t, ref[s][d], p.Weight, 1e-9)
		}
	}
}

func TestDistances_UnreachableIsInf(t *testing.T) {
	g, _ := graph.Build([]model.LineGeometry{
		{pt(0, 0), pt(1, 0)},
		{pt(5, 5), pt(6, 6)},
	})
	dist, err := Distances(g, node(t, g, pt(0, 0)))
	require.NoError(t, err)
	assert.Equal(t, 1.0, dist[node(t, g, pt(1, 0))])
	assert.True(t, math.IsInf(dist[node(t, g, pt(6, 6))], 1))
}

func floydWarshall(g *graph.Graph) [][]float64 {
	n := g.NodeCount()
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		for j := range d[i] {
			d[i][j] = math.Inf(1)
		}
		d[i][i] = 0
		for _, e := range g.Neighbors(graph.NodeID(i)) {
			d[i][e.To] = e.Weight
		}
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if d[i][k]+d[k][j] < d[i][j] {
					d[i][j] = d[i][k] + d[k][j]
				}
			}
		}
	}
	return d
}
