package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var ErrNoBoundary = errors.New("no polygon features")

// ReadBoundary decodes the study area from a GeoJSON FeatureCollection. Polygon
// and MultiPolygon features are merged into one MultiPolygon in file order; any
// other geometry is an error.
func ReadBoundary(r io.Reader) (orb.MultiPolygon, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read boundary: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse boundary geojson: %w", err)
	}

	var out orb.MultiPolygon
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			out = append(out, g)
		case orb.MultiPolygon:
			out = append(out, g...)
		default:
			return nil, fmt.Errorf("feature %d: boundary geometry must be Polygon or MultiPolygon, got %s", i, g.GeoJSONType())
		}
	}
	if len(out) == 0 {
		return nil, ErrNoBoundary
	}
	return out, nil
}

// LoadBoundary reads a GeoJSON study area file from disk.
func LoadBoundary(path string) (orb.MultiPolygon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open boundary %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	mp, err := ReadBoundary(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mp, nil
}
