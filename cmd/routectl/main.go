package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/incident-router/internal/app"
	"github.com/mohammed-shakir/incident-router/internal/graph"
	"github.com/mohammed-shakir/incident-router/internal/logger"
)

type rootOptions struct {
	roads        string
	fire         string
	health       string
	relief       string
	boundary     string
	policy       string
	spatialIndex bool
	verbose      bool
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:           "routectl",
		Short:         "Offline incident routing against local road and facility files",
		Long:          `Load a road network and facility lists, then route an incident to the nearest facility of a category.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.roads, "roads", "data/roads.geojson", "Road network GeoJSON")
	pf.StringVar(&o.fire, "fire", "", "Fire station file (CSV or GeoJSON)")
	pf.StringVar(&o.health, "health", "", "Health facility file (CSV or GeoJSON)")
	pf.StringVar(&o.relief, "relief", "", "Red Cross file (CSV or GeoJSON)")
	pf.StringVar(&o.boundary, "boundary", "", "Study area GeoJSON drawn on exported overlays")
	pf.StringVar(&o.policy, "policy", "segment", "Edge weight policy: segment|line")
	pf.BoolVar(&o.spatialIndex, "index", true, "Use the R-tree for nearest node lookups")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "Log loading details to stderr")

	root.AddCommand(newRouteCmd(o), newGraphCmd(o), newFacilitiesCmd(o))
	return root
}

func (o *rootOptions) logger(stderr io.Writer) *slog.Logger {
	if !o.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	zl := logger.Build(logger.Config{Level: "debug", Console: true, Component: "routectl"}, stderr)
	return logger.NewSlog(&zl)
}

func (o *rootOptions) load(cmd *cobra.Command) (*app.Network, error) {
	policy, err := graph.ParseWeightPolicy(o.policy)
	if err != nil {
		return nil, err
	}
	paths := map[string]string{}
	for name, p := range map[string]string{"fire": o.fire, "health": o.health, "relief": o.relief} {
		if p != "" {
			paths[name] = p
		}
	}
	return app.Load(o.logger(cmd.ErrOrStderr()), app.Sources{
		RoadsPath:     o.roads,
		FacilityPaths: paths,
		BoundaryPath:  o.boundary,
		Policy:        policy,
		SpatialIndex:  o.spatialIndex,
	})
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
