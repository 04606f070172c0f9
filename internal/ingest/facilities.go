package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
)

var (
	lonColumns   = []string{"longitude", "lon", "lng", "x"}
	latColumns   = []string{"latitude", "lat", "y"}
	labelColumns = []string{"title", "name", "label"}
	idColumns    = []string{"id", "fid", "objectid"}
)

// ReadFacilitiesCSV reads one facility per row. The header must name a
// longitude and a latitude column; label and id columns are optional. Ids
// default to "<category>-<row>".
func ReadFacilitiesCSV(r io.Reader, cat model.Category) ([]model.FacilityRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	lonIdx, latIdx := findColumn(cols, lonColumns), findColumn(cols, latColumns)
	if lonIdx < 0 || latIdx < 0 {
		return nil, errors.New("header must contain longitude and latitude columns")
	}
	labelIdx, idIdx := findColumn(cols, labelColumns), findColumn(cols, idColumns)

	var out []model.FacilityRecord
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		lon, err := parseCoord(rec, lonIdx)
		if err != nil {
			return nil, fmt.Errorf("row %d longitude: %w", row, err)
		}
		lat, err := parseCoord(rec, latIdx)
		if err != nil {
			return nil, fmt.Errorf("row %d latitude: %w", row, err)
		}
		f := model.FacilityRecord{
			ID:       fmt.Sprintf("%s-%d", cat, row),
			Category: cat,
			Location: model.Point{X: lon, Y: lat},
		}
		if v := field(rec, idIdx); v != "" {
			f.ID = v
		}
		f.Label = field(rec, labelIdx)
		if f.Label == "" {
			f.Label = cat.Label()
		}
		out = append(out, f)
	}
	return out, nil
}

// ReadFacilitiesGeoJSON reads Point features; other geometries are rejected.
func ReadFacilitiesGeoJSON(r io.Reader, cat model.Category) ([]model.FacilityRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read facilities: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse facilities geojson: %w", err)
	}
	out := make([]model.FacilityRecord, 0, len(fc.Features))
	for i, feat := range fc.Features {
		p, ok := feat.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("feature %d: geometry must be Point", i)
		}
		if !finite(p.X()) || !finite(p.Y()) {
			return nil, fmt.Errorf("feature %d: coordinates must be finite, got %v", i, p)
		}
		f := model.FacilityRecord{
			ID:       fmt.Sprintf("%s-%d", cat, i+1),
			Category: cat,
			Location: model.Point{X: p.X(), Y: p.Y()},
			Label:    cat.Label(),
		}
		if feat.ID != nil {
			f.ID = fmt.Sprint(feat.ID)
		} else if v := feat.Properties.MustString("id", ""); v != "" {
			f.ID = v
		}
		for _, k := range labelColumns {
			if v := feat.Properties.MustString(k, ""); v != "" {
				f.Label = v
				break
			}
		}
		out = append(out, f)
	}
	return out, nil
}

// LoadFacilities picks the decoder from the file extension (.csv, .geojson, .json).
func LoadFacilities(path string, cat model.Category) ([]model.FacilityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open facilities %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var out []model.FacilityRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		out, err = ReadFacilitiesCSV(f, cat)
	case ".geojson", ".json":
		out, err = ReadFacilitiesGeoJSON(f, cat)
	default:
		return nil, fmt.Errorf("facilities %q: unsupported extension", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func findColumn(cols map[string]int, names []string) int {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i
		}
	}
	return -1
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func parseCoord(rec []string, idx int) (float64, error) {
	v := field(rec, idx)
	if v == "" {
		return 0, errors.New("missing value")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	if !finite(f) {
		return 0, fmt.Errorf("value %q is not finite", v)
	}
	return f, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
