package h3mapper

import (
	"errors"
	"fmt"
	"math"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/mapper"
)

type Mapper struct{}

var _ mapper.Interface = (*Mapper)(nil)

func New() *Mapper { return &Mapper{} }

// CellForPoint returns the cell containing p (X = lon, Y = lat, degrees).
func (m *Mapper) CellForPoint(p model.Point, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	if err := validatePoint(p); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Y, Lng: p.X}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell for %s: %w", p, err)
	}
	return c.String(), nil
}

// CellsForPath returns the cells visited by the path vertices, in path order,
// without consecutive or repeated entries.
func (m *Mapper) CellsForPath(path []model.Point, res int) ([]string, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(path))
	out := make([]string, 0, len(path))
	for i, p := range path {
		cell, err := m.CellForPoint(p, res)
		if err != nil {
			return nil, fmt.Errorf("path vertex %d: %w", i, err)
		}
		if _, ok := seen[cell]; ok {
			continue
		}
		seen[cell] = struct{}{}
		out = append(out, cell)
	}
	return out, nil
}

// --- helpers ---

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

func validatePoint(p model.Point) error {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return errors.New("coordinate is NaN")
	}
	if p.X < -180 || p.X > 180 {
		return fmt.Errorf("longitude %g out of [-180,180]", p.X)
	}
	if p.Y < -90 || p.Y > 90 {
		return fmt.Errorf("latitude %g out of [-90,90]", p.Y)
	}
	return nil
}
