// Package mapper converts incident coordinates to H3 cells.
package mapper

import (
	"github.com/mohammed-shakir/incident-router/internal/core/model"
)

type Interface interface {
	CellForPoint(p model.Point, res int) (string, error)
	CellsForPath(path []model.Point, res int) ([]string, error)
	ToParent(cell string, parentRes int) (string, error)
}
