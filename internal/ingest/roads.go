// Package ingest reads road geometry and facility records from files.
package ingest

import (
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
)

// RoadStats counts features that produced no line.
type RoadStats struct {
	Features    int
	Lines       int
	NonLinear   int            // features whose geometry is not a (multi)linestring
	SkippedType map[string]int // geometry type -> count
}

// ReadRoads decodes a GeoJSON FeatureCollection. LineString features become one
// line each, MultiLineString features one line per member; every other geometry
// is skipped and counted.
func ReadRoads(r io.Reader) ([]model.LineGeometry, RoadStats, error) {
	stats := RoadStats{SkippedType: map[string]int{}}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, stats, fmt.Errorf("read roads: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, stats, fmt.Errorf("parse roads geojson: %w", err)
	}

	var lines []model.LineGeometry
	for _, f := range fc.Features {
		stats.Features++
		if f == nil || f.Geometry == nil {
			stats.NonLinear++
			stats.SkippedType["null"]++
			continue
		}
		switch g := f.Geometry.(type) {
		case orb.LineString:
			lines = append(lines, fromLineString(g))
		case orb.MultiLineString:
			for _, ls := range g {
				lines = append(lines, fromLineString(ls))
			}
		default:
			stats.NonLinear++
			stats.SkippedType[g.GeoJSONType()]++
		}
	}
	stats.Lines = len(lines)
	return lines, stats, nil
}

// LoadRoads reads a GeoJSON road file from disk.
func LoadRoads(path string) ([]model.LineGeometry, RoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, RoadStats{}, fmt.Errorf("open roads %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	lines, stats, err := ReadRoads(f)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", path, err)
	}
	return lines, stats, nil
}

func fromLineString(ls orb.LineString) model.LineGeometry {
	out := make(model.LineGeometry, len(ls))
	for i, p := range ls {
		out[i] = model.Point{X: p.X(), Y: p.Y()}
	}
	return out
}
