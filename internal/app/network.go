// Package app loads road and facility files into a ready routing engine. The
// service binary and the CLI share it.
package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"slices"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/core/observability"
	"github.com/mohammed-shakir/incident-router/internal/export"
	"github.com/mohammed-shakir/incident-router/internal/graph"
	"github.com/mohammed-shakir/incident-router/internal/ingest"
	"github.com/mohammed-shakir/incident-router/internal/route"
)

type Sources struct {
	RoadsPath     string
	FacilityPaths map[string]string // category name or label -> file
	BoundaryPath  string            // optional study area outline
	Policy        graph.WeightPolicy
	SpatialIndex  bool
}

type Network struct {
	Engine            *route.Engine
	Build             graph.BuildStats
	Roads             ingest.RoadStats
	DroppedFacilities int
	Boundary          orb.MultiPolygon // nil when none was loaded
}

func (n *Network) Graph() *graph.Graph { return n.Engine.Graph() }

// OverlayOptions are the map layers every exported overlay carries.
func (n *Network) OverlayOptions() []export.OverlayOption {
	if len(n.Boundary) == 0 {
		return nil
	}
	return []export.OverlayOption{export.WithBoundary(n.Boundary)}
}

// Load reads roads, facilities and the optional boundary, builds the graph and
// the engine. A missing facility or boundary file is logged and skipped; a
// missing roads file is an error.
func Load(logger *slog.Logger, src Sources) (*Network, error) {
	lines, rs, err := ingest.LoadRoads(src.RoadsPath)
	if err != nil {
		return nil, err
	}
	if rs.NonLinear > 0 {
		logger.Warn("skipped non-linear road features", "count", rs.NonLinear, "types", rs.SkippedType)
	}

	g, bs := graph.Build(lines, graph.WithWeightPolicy(src.Policy))
	if bs.Skipped > 0 {
		logger.Warn("skipped degenerate road lines", "count", bs.Skipped)
	}
	logger.Info("road graph built",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"lines", bs.Lines,
		"duplicates", bs.Duplicates,
		"self_loops", bs.SelfLoops,
		"policy", g.Policy().String(),
		"fingerprint", fmt.Sprintf("%016x", g.Fingerprint()))
	observability.SetGraphStats(g.NodeCount(), g.EdgeCount(), map[string]int{
		"non_linear": rs.NonLinear,
		"short_line": bs.Skipped,
		"duplicate":  bs.Duplicates,
		"self_loop":  bs.SelfLoops,
	})

	var records []model.FacilityRecord
	for _, name := range slices.Sorted(maps.Keys(src.FacilityPaths)) {
		path := src.FacilityPaths[name]
		cat, err := model.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("facility source %q: %w", name, err)
		}
		recs, err := ingest.LoadFacilities(path, cat)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("facility file missing; category will have no facilities", "category", cat.String(), "path", path)
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}

	catalog, dropped := route.NewCatalog(records)
	if dropped > 0 {
		logger.Warn("dropped facility records without a valid category", "count", dropped)
	}
	for _, c := range model.Categories() {
		observability.SetFacilitiesLoaded(c.String(), catalog.Count(c))
	}

	var boundary orb.MultiPolygon
	if src.BoundaryPath != "" {
		boundary, err = ingest.LoadBoundary(src.BoundaryPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("boundary file missing; overlays will have no study area", "path", src.BoundaryPath)
		case err != nil:
			return nil, err
		default:
			logger.Info("study area loaded", "polygons", len(boundary))
		}
	}

	var opts []route.Option
	if src.SpatialIndex {
		opts = append(opts, route.WithSpatialIndex())
	}
	return &Network{
		Engine:            route.New(g, catalog, opts...),
		Build:             bs,
		Roads:             rs,
		DroppedFacilities: dropped,
		Boundary:          boundary,
	}, nil
}
