package locate

import (
	"github.com/dhconnelly/rtreego"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/graph"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50
)

type indexedNode struct {
	id   graph.NodeID
	rect rtreego.Rect
}

func (n *indexedNode) Bounds() rtreego.Rect { return n.rect }

// NodeIndex is an R-tree over graph nodes. It returns the same node as
// NearestNode, including on exact ties, in sub-linear time for large graphs.
// It is read-only after NewNodeIndex and safe for concurrent use.
type NodeIndex struct {
	g    *graph.Graph
	tree *rtreego.Rtree
}

func NewNodeIndex(g *graph.Graph) *NodeIndex {
	items := make([]rtreego.Spatial, 0, g.NodeCount())
	for i := 0; i < g.NodeCount(); i++ {
		id := graph.NodeID(i)
		p := g.Point(id)
		items = append(items, &indexedNode{id: id, rect: rtreego.Point{p.X, p.Y}.ToRect(0)})
	}
	// bulk load
	tree := rtreego.NewTree(dimensions, minChildren, maxChildren, items...)
	return &NodeIndex{g: g, tree: tree}
}

func (ix *NodeIndex) Size() int { return ix.tree.Size() }

func (ix *NodeIndex) Nearest(p model.Point) (graph.NodeID, error) {
	if ix.g == nil || ix.g.NodeCount() == 0 {
		return 0, ErrEmptyGraph
	}
	q := rtreego.Point{p.X, p.Y}
	nn, ok := ix.tree.NearestNeighbor(q).(*indexedNode)
	if !ok || nn == nil {
		return NearestNode(ix.g, p)
	}

	// every node at least as close as the tree's answer lies inside this box
	reach := Distance(p, ix.g.Point(nn.id))
	pad := reach*1e-9 + 1e-12
	half := reach + pad
	box, err := rtreego.NewRect(rtreego.Point{p.X - half, p.Y - half}, []float64{2 * half, 2 * half})
	if err != nil {
		return NearestNode(ix.g, p)
	}

	best := nn.id
	bestDist := reach
	for _, s := range ix.tree.SearchIntersect(box) {
		c, ok := s.(*indexedNode)
		if !ok {
			continue
		}
		d := Distance(p, ix.g.Point(c.id))
		if d < bestDist || (d == bestDist && c.id < best) {
			best, bestDist = c.id, d
		}
	}
	return best, nil
}
