package graph

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
)

func pt(x, y float64) model.Point { return model.Point{X: x, Y: y} }

func mustNode(t *testing.T, g *Graph, p model.Point) NodeID {
	t.Helper()
	id, ok := g.Lookup(p)
	require.Truef(t, ok, "node %v missing", p)
	return id
}

func TestBuild_ChainProducesNodesAndEdges(t *testing.T) {
	g, stats := Build([]model.LineGeometry{
		{pt(0, 0), pt(1, 0), pt(1, 1), pt(2, 1)},
	})

	require.Equal(t, 4, g.NodeCount())
	require.Equal(t, 3, g.EdgeCount())
	assert.Equal(t, BuildStats{Lines: 1, Segments: 3}, stats)

	a := mustNode(t, g, pt(0, 0))
	b := mustNode(t, g, pt(1, 0))
	w, ok := g.Weight(a, b)
	require.True(t, ok)
	assert.Equal(t, 1.0, w)
}

func TestBuild_SymmetricAdjacency(t *testing.T) {
	g, _ := Build([]model.LineGeometry{
		{pt(0, 0), pt(3, 4), pt(6, 0)},
		{pt(3, 4), pt(3, 10)},
	})

	for u := NodeID(0); int(u) < g.NodeCount(); u++ {
		for _, e := range g.Neighbors(u) {
			back, ok := g.Weight(e.To, u)
			require.Truef(t, ok, "edge %d-%d has no reverse", u, e.To)
			assert.Equal(t, e.Weight, back)
		}
	}
}

func TestBuild_DuplicatePairsAreNoOps(t *testing.T) {
	g, stats := Build([]model.LineGeometry{
		{pt(0, 0), pt(1, 0)},
		{pt(0, 0), pt(1, 0)},
		{pt(1, 0), pt(0, 0)},
	})

	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 2, stats.Duplicates)
	assert.Equal(t, 1, g.Degree(mustNode(t, g, pt(0, 0))))
}

func TestBuild_SkipsNonLinearAndSelfLoops(t *testing.T) {
	g, stats := Build([]model.LineGeometry{
		{pt(5, 5)},
		{},
		{pt(0, 0), pt(0, 0), pt(1, 0)},
	})

	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, stats.SelfLoops)
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 2, g.NodeCount())
	for u := NodeID(0); int(u) < g.NodeCount(); u++ {
		assert.False(t, g.HasEdge(u, u))
	}
}

func TestBuild_DegenerateLineKeepsIsolatedNode(t *testing.T) {
	g, stats := Build([]model.LineGeometry{
		{pt(4, 4), pt(4, 4)},
		{pt(0, 0), pt(1, 0)},
	})

	assert.Equal(t, 1, stats.SelfLoops)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
	id := mustNode(t, g, pt(4, 4))
	assert.Equal(t, 0, g.Degree(id))
	assert.Equal(t, []model.Point{pt(0, 0), pt(1, 0), pt(4, 4)}, g.Nodes())
}

func TestBuild_NoSnappingOfNearbyCoordinates(t *testing.T) {
	g, _ := Build([]model.LineGeometry{
		{pt(0, 0), pt(1, 0)},
		{pt(1.0000001, 0), pt(2, 0)},
	})
	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())
}

func TestBuild_PerSegmentWeights(t *testing.T) {
	g, _ := Build([]model.LineGeometry{{pt(0, 0), pt(3, 4), pt(3, 6)}})
	a, b, c := mustNode(t, g, pt(0, 0)), mustNode(t, g, pt(3, 4)), mustNode(t, g, pt(3, 6))

	w1, _ := g.Weight(a, b)
	w2, _ := g.Weight(b, c)
	assert.InDelta(t, 5.0, w1, 1e-12)
	assert.InDelta(t, 2.0, w2, 1e-12)
}

func TestBuild_WholeLineWeights(t *testing.T) {
	g, _ := Build([]model.LineGeometry{{pt(0, 0), pt(3, 4), pt(3, 6)}}, WithWeightPolicy(WeightWholeLine))
	a, b, c := mustNode(t, g, pt(0, 0)), mustNode(t, g, pt(3, 4)), mustNode(t, g, pt(3, 6))

	w1, _ := g.Weight(a, b)
	w2, _ := g.Weight(b, c)
	assert.InDelta(t, 7.0, w1, 1e-12)
	assert.InDelta(t, 7.0, w2, 1e-12)
	assert.Equal(t, WeightWholeLine, g.Policy())
}

func TestBuild_WholeLineSharedSegmentIgnoresInputOrder(t *testing.T) {
	short := model.LineGeometry{pt(0, 0), pt(1, 0)}
	long := model.LineGeometry{pt(1, 0), pt(0, 0), pt(0, 5)}

	g1, _ := Build([]model.LineGeometry{short, long}, WithWeightPolicy(WeightWholeLine))
	g2, _ := Build([]model.LineGeometry{long, short}, WithWeightPolicy(WeightWholeLine))

	a, b := mustNode(t, g1, pt(0, 0)), mustNode(t, g1, pt(1, 0))
	w1, _ := g1.Weight(a, b)
	w2, _ := g2.Weight(a, b)
	assert.InDelta(t, 1.0, w1, 1e-12)
	assert.Equal(t, w1, w2)
	assert.Equal(t, g1.Fingerprint(), g2.Fingerprint())

	c := mustNode(t, g1, pt(0, 5))
	w3, _ := g2.Weight(a, c)
	assert.InDelta(t, 6.0, w3, 1e-12)
}

func TestBuild_CanonicalOrderIndependentOfInputOrder(t *testing.T) {
	lines := []model.LineGeometry{
		{pt(2, 1), pt(1, 1), pt(1, 0)},
		{pt(0, 0), pt(1, 0)},
		{pt(9, 9), pt(-3, 4)},
		{pt(1, 1), pt(0, 0)},
	}
	g1, _ := Build(lines)

	r := rand.New(rand.NewSource(7))
	shuffled := make([]model.LineGeometry, len(lines))
	copy(shuffled, lines)
	for i := 0; i < 10; i++ {
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		g2, _ := Build(shuffled)
		require.Equal(t, g1.Nodes(), g2.Nodes())
		require.Equal(t, g1.EdgeCount(), g2.EdgeCount())
		require.Equal(t, g1.Fingerprint(), g2.Fingerprint())
		for u := NodeID(0); int(u) < g1.NodeCount(); u++ {
			require.Equal(t, g1.Neighbors(u), g2.Neighbors(u))
		}
	}
}

func TestBuild_NodesSortedAndWeightsNonNegative(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	var lines []model.LineGeometry
	for i := 0; i < 50; i++ {
		n := 2 + r.Intn(4)
		line := make(model.LineGeometry, n)
		for j := range line {
			line[j] = pt(float64(r.Intn(10)), float64(r.Intn(10)))
		}
		lines = append(lines, line)
	}
	g, _ := Build(lines)

	nodes := g.Nodes()
	for i := 1; i < len(nodes); i++ {
		require.True(t, lessPoint(nodes[i-1], nodes[i]), "nodes not strictly ascending at %d", i)
	}
	for u := NodeID(0); int(u) < g.NodeCount(); u++ {
		for _, e := range g.Neighbors(u) {
			require.False(t, math.IsNaN(e.Weight))
			require.GreaterOrEqual(t, e.Weight, 0.0)
		}
	}
}

func TestParseWeightPolicy(t *testing.T) {
	p, err := ParseWeightPolicy("")
	require.NoError(t, err)
	assert.Equal(t, WeightPerSegment, p)

	p, err = ParseWeightPolicy("whole-line")
	require.NoError(t, err)
	assert.Equal(t, WeightWholeLine, p)

	_, err = ParseWeightPolicy("traffic")
	assert.Error(t, err)
}

func TestGraph_EmptyBuild(t *testing.T) {
	g, stats := Build(nil)
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Equal(t, BuildStats{}, stats)
	assert.Nil(t, g.Neighbors(0))
}
