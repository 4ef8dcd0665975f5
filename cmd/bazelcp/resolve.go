package main

import (
	"bytes"
	"fmt"

	"bazelcp/internal/shared/util"

	"github.com/spf13/cobra"
)

func newResolveCommand(root *rootOptions) *cobra.Command {
	format := formatText
	var output string

	cmd := &cobra.Command{
		Use:   "resolve [unit...]",
		Short: "Print the classpath of build units",
		Long:  "Resolve the classpath of the named build units, or of every configured unit when none are named.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatText && format != formatJSON {
				return fmt.Errorf("unknown format: %s (valid options: %s)", format, supportedFormats())
			}
			a, err := root.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			results := a.ResolveAll(cmd.Context(), args)
			var buf bytes.Buffer
			if err := renderClasspaths(&buf, format, results); err != nil {
				return err
			}
			if output != "" {
				if err := util.WriteFileWithDirs(output, buf.Bytes(), 0o644); err != nil {
					return err
				}
			} else if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d build units failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", format, fmt.Sprintf("Output format (%s)", supportedFormats()))
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the classpaths to this file instead of stdout")
	return cmd
}

func newOrderCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "order [unit...]",
		Short: "Print build units in import order",
		Long:  "Print the named build units, or every configured unit, so that each unit follows the units it depends on.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			units := args
			if len(units) == 0 {
				units = a.Coordinator.Units()
			}
			ordered, err := a.Coordinator.OrderForImport(cmd.Context(), units)
			if err != nil {
				return err
			}
			return renderLines(cmd.OutOrStdout(), ordered)
		},
	}
}
