// Package export renders route results for map overlays and results files.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
)

const (
	incidentColor = "black"
	boundaryColor = "black"
)

var csvHeader = []string{"Facility", "Distance (meters)"}

func toOrb(p model.Point) orb.Point { return orb.Point{p.X, p.Y} }

type overlayOptions struct {
	boundary orb.Geometry
}

type OverlayOption func(*overlayOptions)

// WithBoundary adds the study area outline as the first feature of the overlay.
// A nil or empty geometry is ignored.
func WithBoundary(g orb.Geometry) OverlayOption {
	return func(o *overlayOptions) {
		if !emptyGeometry(g) {
			o.boundary = g
		}
	}
}

func emptyGeometry(g orb.Geometry) bool {
	switch t := g.(type) {
	case nil:
		return true
	case orb.MultiPolygon:
		return len(t) == 0
	case orb.Polygon:
		return len(t) == 0
	case orb.Collection:
		return len(t) == 0
	default:
		return false
	}
}

// Overlay builds the map layer for one result: the study area outline (when
// configured), the route line (when there is one), the facility marker (when
// one was matched) and the incident marker.
func Overlay(res model.RouteResult, opts ...OverlayOption) *geojson.FeatureCollection {
	var o overlayOptions
	for _, opt := range opts {
		opt(&o)
	}
	fc := geojson.NewFeatureCollection()
	color := res.Category.Color()

	if o.boundary != nil {
		f := geojson.NewFeature(o.boundary)
		f.Properties["kind"] = "boundary"
		f.Properties["color"] = boundaryColor
		f.Properties["fill"] = false
		fc.Append(f)
	}

	if len(res.Path) >= 2 {
		ls := make(orb.LineString, len(res.Path))
		for i, p := range res.Path {
			ls[i] = toOrb(p)
		}
		f := geojson.NewFeature(ls)
		f.Properties["kind"] = "route"
		f.Properties["color"] = color
		f.Properties["weight"] = res.Weight
		f.Properties["length_m"] = res.LengthMeters
		fc.Append(f)
	}

	if res.Facility != nil {
		f := geojson.NewFeature(toOrb(res.Facility.Location))
		f.ID = res.Facility.ID
		f.Properties["kind"] = "facility"
		f.Properties["color"] = color
		f.Properties["label"] = res.Facility.Label
		f.Properties["category"] = res.Category.String()
		fc.Append(f)
	}

	inc := geojson.NewFeature(toOrb(res.Incident))
	inc.Properties["kind"] = "incident"
	inc.Properties["color"] = incidentColor
	inc.Properties["label"] = "Event Location"
	inc.Properties["status"] = string(res.Status)
	if res.Message != "" {
		inc.Properties["message"] = res.Message
	}
	fc.Append(inc)

	return fc
}

func WriteOverlay(w io.Writer, res model.RouteResult, opts ...OverlayOption) error {
	b, err := Overlay(res, opts...).MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal overlay: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write overlay: %w", err)
	}
	return nil
}

// DistanceMeters is the route length for routed results, otherwise the
// straight-line distance to the matched facility. No facility gives 0.
func DistanceMeters(res model.RouteResult) float64 {
	switch {
	case res.OK():
		return res.LengthMeters
	case res.Facility != nil:
		return geo.Distance(toOrb(res.Incident), toOrb(res.Facility.Location))
	default:
		return 0
	}
}

// WriteResultsCSV writes the header and one row per result: the facility kind
// and the distance in metres.
func WriteResultsCSV(w io.Writer, results ...model.RouteResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, res := range results {
		row := []string{
			res.Category.Label(),
			strconv.FormatFloat(DistanceMeters(res), 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// SaveFile writes through a temp file in the target directory and renames it
// into place.
func SaveFile(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if werr := write(tmp); werr != nil {
		_ = tmp.Close()
		return werr
	}
	if cerr := tmp.Close(); cerr != nil {
		return fmt.Errorf("close temp: %w", cerr)
	}
	if rerr := os.Rename(tmp.Name(), path); rerr != nil {
		return errors.Join(fmt.Errorf("rename into %q", path), rerr)
	}
	return nil
}
