package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGraphCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Build the road graph and print its statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := root.load(cmd)
			if err != nil {
				return err
			}
			g := n.Graph()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "nodes:       %d\n", g.NodeCount())
			fmt.Fprintf(w, "edges:       %d\n", g.EdgeCount())
			fmt.Fprintf(w, "policy:      %s\n", g.Policy())
			fmt.Fprintf(w, "fingerprint: %016x\n", g.Fingerprint())
			fmt.Fprintf(w, "lines:       %d (skipped %d short, %d non-linear)\n", n.Build.Lines, n.Build.Skipped, n.Roads.NonLinear)
			fmt.Fprintf(w, "segments:    %d (duplicates %d, self-loops %d)\n", n.Build.Segments, n.Build.Duplicates, n.Build.SelfLoops)
			return nil
		},
	}
}
