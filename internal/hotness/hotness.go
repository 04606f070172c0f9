// Package hotness tracks where incidents cluster, keyed by H3 cell.
package hotness

type Interface interface {
	Inc(cell string)
	Score(cell string) float64
	Reset(cells ...string)
}

// Hotspot is one cell and its decayed incident score.
type Hotspot struct {
	Cell  string  `json:"cell"`
	Score float64 `json:"score"`
}

// Ranker is implemented by trackers that can list their hottest cells.
type Ranker interface {
	Top(n int) []Hotspot
}

// Pruner is implemented by trackers that can forget cold cells.
type Pruner interface {
	Prune(minScore float64) int
}
