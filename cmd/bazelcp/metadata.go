package main

import (
	"fmt"

	"bazelcp/internal/data/metastore"
	"bazelcp/internal/engine/label"

	"github.com/spf13/cobra"
)

func newMetadataCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Inspect the last good metadata store",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List labels with remembered metadata",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, root, func(store *metastore.Store) error {
					labels, err := store.Labels(cmd.Context())
					if err != nil {
						return err
					}
					return renderLines(cmd.OutOrStdout(), label.Strings(labels))
				})
			},
		},
		&cobra.Command{
			Use:   "forget <label>...",
			Short: "Drop remembered metadata for labels",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				labels, err := label.ParseAll(args)
				if err != nil {
					return err
				}
				return withStore(cmd, root, func(store *metastore.Store) error {
					for _, l := range labels {
						if err := store.Forget(cmd.Context(), l); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func withStore(cmd *cobra.Command, root *rootOptions, fn func(*metastore.Store) error) error {
	a, err := root.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	store := a.Store()
	if store == nil {
		return fmt.Errorf("metadata store is disabled")
	}
	return fn(store)
}
