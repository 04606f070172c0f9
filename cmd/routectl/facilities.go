package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
)

func newFacilitiesCmd(root *rootOptions) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "facilities",
		Short: "List loaded facilities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats := model.Categories()
			if category != "" {
				c, err := model.ParseCategory(category)
				if err != nil {
					return err
				}
				cats = []model.Category{c}
			}
			n, err := root.load(cmd)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tID\tNAME\tLON\tLAT")
			for _, c := range cats {
				for _, f := range n.Engine.Facilities(c) {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%.6f\t%.6f\n", c, f.ID, f.Label, f.Location.X, f.Location.Y)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only list this category")
	return cmd
}
