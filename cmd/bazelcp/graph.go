package main

import (
	"fmt"

	"bazelcp/internal/engine/graph"
	"bazelcp/internal/engine/label"

	"github.com/spf13/cobra"
)

func newGraphCommand(root *rootOptions) *cobra.Command {
	var ignoreExternal bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect the package dependency graph of the configured units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withGraph(cmd, root, func(g *graph.Graph) error {
				return renderGraphSummary(cmd.OutOrStdout(), g, ignoreExternal)
			})
		},
	}
	cmd.Flags().BoolVar(&ignoreExternal, "ignore-external", false, "Do not report external repositories as leaves")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "cycles",
			Short: "List package dependency cycles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withGraph(cmd, root, func(g *graph.Graph) error {
					cycles, err := g.Cycles()
					if err != nil {
						return err
					}
					return renderCycles(cmd.OutOrStdout(), cycles)
				})
			},
		},
		&cobra.Command{
			Use:   "path <from> <to>",
			Short: "Show the shortest dependency chain between two packages",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				from, err := label.Parse(args[0])
				if err != nil {
					return err
				}
				to, err := label.Parse(args[1])
				if err != nil {
					return err
				}
				return withGraph(cmd, root, func(g *graph.Graph) error {
					path, ok := g.Path(from.PackageLabel(), to.PackageLabel())
					if !ok {
						return fmt.Errorf("%s does not depend on %s", from.PackageLabel(), to.PackageLabel())
					}
					return renderLines(cmd.OutOrStdout(), label.Strings(path))
				})
			},
		},
	)
	return cmd
}

func withGraph(cmd *cobra.Command, root *rootOptions, fn func(*graph.Graph) error) error {
	a, err := root.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	g, err := a.Coordinator.DependencyGraph(cmd.Context(), a.Coordinator.Units())
	if err != nil {
		return err
	}
	return fn(g)
}
