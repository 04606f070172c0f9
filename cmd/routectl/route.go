package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/export"
)

type routeOptions struct {
	category string
	lon      float64
	lat      float64
	geojson  string
	csv      string
}

func newRouteCmd(root *rootOptions) *cobra.Command {
	o := &routeOptions{}
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Route an incident to the nearest facility of a category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := model.ParseCategory(o.category)
			if err != nil {
				return err
			}
			n, err := root.load(cmd)
			if err != nil {
				return err
			}
			res, err := n.Engine.Route(cat, model.Point{X: o.lon, Y: o.lat})
			if err != nil {
				return err
			}
			if o.geojson != "" {
				if err := export.SaveFile(o.geojson, func(w io.Writer) error { return export.WriteOverlay(w, res, n.OverlayOptions()...) }); err != nil {
					return err
				}
			}
			if o.csv != "" {
				if err := export.SaveFile(o.csv, func(w io.Writer) error { return export.WriteResultsCSV(w, res) }); err != nil {
					return err
				}
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.category, "category", "c", "fire", "Facility category: fire|health|relief")
	f.Float64Var(&o.lon, "lon", 36.7805, "Incident longitude")
	f.Float64Var(&o.lat, "lat", -1.2920, "Incident latitude")
	f.StringVar(&o.geojson, "geojson", "", "Write the map overlay to this file")
	f.StringVar(&o.csv, "csv", "", "Write the results CSV to this file")
	return cmd
}

func printResult(w io.Writer, res model.RouteResult) error {
	switch res.Status {
	case model.StatusOK:
		fmt.Fprintf(w, "%s: %s (%s)\n", res.Category.Label(), res.Facility.Label, res.Facility.ID)
		fmt.Fprintf(w, "route: %d nodes, weight %.6f, %.1f m\n", len(res.Path), res.Weight, res.LengthMeters)
	default:
		fmt.Fprintf(w, "%s: %s\n", res.Status, res.Message)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
