package ingest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const kilimaniJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"name":"Kilimani"},"geometry":{"type":"Polygon","coordinates":[[[36.77,-1.30],[36.80,-1.30],[36.80,-1.28],[36.77,-1.28],[36.77,-1.30]]]}},
 {"type":"Feature","properties":{},"geometry":{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]],[[[2,2],[3,2],[3,3],[2,2]]]]}}
]}`

func TestReadBoundary_MergesPolygons(t *testing.T) {
	mp, err := ReadBoundary(strings.NewReader(kilimaniJSON))
	if err != nil {
		t.Fatalf("ReadBoundary: %v", err)
	}
	if len(mp) != 3 {
		t.Fatalf("polygons=%d want 3", len(mp))
	}
	if got := mp[0][0][1]; got.X() != 36.80 || got.Y() != -1.30 {
		t.Fatalf("first ring vertex=%v", got)
	}
}

func TestReadBoundary_Errors(t *testing.T) {
	cases := map[string]string{
		"line":  `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}}]}`,
		"empty": `{"type":"FeatureCollection","features":[]}`,
		"junk":  `{not geojson`,
	}
	for name, in := range cases {
		if _, err := ReadBoundary(strings.NewReader(in)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := ReadBoundary(strings.NewReader(cases["empty"])); !errors.Is(err, ErrNoBoundary) {
		t.Fatalf("empty: err=%v want ErrNoBoundary", err)
	}
}

func TestLoadBoundary_File(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "study_area.geojson")
	if err := os.WriteFile(p, []byte(kilimaniJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	mp, err := LoadBoundary(p)
	if err != nil || len(mp) != 3 {
		t.Fatalf("LoadBoundary: %v %d", err, len(mp))
	}
	if _, err := LoadBoundary(filepath.Join(dir, "missing.geojson")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing file err=%v want fs.ErrNotExist", err)
	}
}
