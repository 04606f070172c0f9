package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/graph"
)

const roadsGeoJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[36.780,-1.292],[36.785,-1.292],[36.790,-1.287]]}},
 {"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[36.0,-1.0]}}
]}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestLoad_BuildsEngineFromFiles(t *testing.T) {
	dir := t.TempDir()
	roads := writeFile(t, dir, "roads.geojson", roadsGeoJSON)
	fire := writeFile(t, dir, "fire.csv", "title,longitude,latitude\nCentral,36.7901,-1.2871\n")

	n, err := Load(quiet(), Sources{
		RoadsPath: roads,
		FacilityPaths: map[string]string{
			"Fire Station": fire,
			"health":       filepath.Join(dir, "missing.csv"),
		},
		Policy:       graph.WeightPerSegment,
		SpatialIndex: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, n.Graph().NodeCount())
	assert.Equal(t, 2, n.Graph().EdgeCount())
	assert.Equal(t, 1, n.Roads.NonLinear)
	assert.Equal(t, 1, n.Engine.Catalog().Count(model.CategoryFire))
	assert.Equal(t, 0, n.Engine.Catalog().Count(model.CategoryHealth))

	res, err := n.Engine.Route(model.CategoryFire, model.Point{X: 36.7801, Y: -1.2921})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "Central", res.Facility.Label)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	roads := writeFile(t, dir, "roads.geojson", roadsGeoJSON)

	_, err := Load(quiet(), Sources{RoadsPath: filepath.Join(dir, "nope.geojson")})
	assert.Error(t, err, "missing roads must fail")

	_, err = Load(quiet(), Sources{RoadsPath: roads, FacilityPaths: map[string]string{"police": "x.csv"}})
	assert.ErrorIs(t, err, model.ErrUnknownCategory)

	bad := writeFile(t, dir, "bad.csv", "name,lon\nx,1\n")
	_, err = Load(quiet(), Sources{RoadsPath: roads, FacilityPaths: map[string]string{"fire": bad}})
	assert.Error(t, err, "malformed facility file must fail")
}

const studyAreaGeoJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"name":"Kilimani"},"geometry":{"type":"Polygon","coordinates":[[[36.77,-1.30],[36.80,-1.30],[36.80,-1.28],[36.77,-1.28],[36.77,-1.30]]]}}
]}`

func TestLoad_Boundary(t *testing.T) {
	dir := t.TempDir()
	roads := writeFile(t, dir, "roads.geojson", roadsGeoJSON)
	area := writeFile(t, dir, "study_area.geojson", studyAreaGeoJSON)

	n, err := Load(quiet(), Sources{RoadsPath: roads, BoundaryPath: area})
	require.NoError(t, err)
	require.Len(t, n.Boundary, 1)
	assert.Len(t, n.OverlayOptions(), 1)

	n, err = Load(quiet(), Sources{RoadsPath: roads, BoundaryPath: filepath.Join(dir, "missing.geojson")})
	require.NoError(t, err, "missing boundary is not fatal")
	assert.Nil(t, n.Boundary)
	assert.Empty(t, n.OverlayOptions())

	bad := writeFile(t, dir, "bad_area.geojson", `{"type":"FeatureCollection","features":[]}`)
	_, err = Load(quiet(), Sources{RoadsPath: roads, BoundaryPath: bad})
	assert.Error(t, err, "boundary without polygons must fail")
}
