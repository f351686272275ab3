package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cognitive-core/internal/archive"
)

// #region snapshot-cmd

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "manage archived snapshots",
	}
	cmd.AddCommand(newSnapshotExportCmd())
	return cmd
}

func newSnapshotExportCmd() *cobra.Command {
	var (
		dbPath  string
		id      string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "write a snapshot payload to a file",
		Long:  `Exports the named snapshot, or the latest one when --id is omitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := archive.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			var payload []byte
			if id != "" {
				payload, err = store.LoadSnapshot(id)
			} else {
				var meta archive.SnapshotMeta
				meta, payload, err = store.Latest()
				if err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "exporting %s (tick %d)\n", meta.ID, meta.Tick)
				}
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, payload, 0o644); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "archive database path")
	cmd.Flags().StringVar(&id, "id", "", "snapshot id (latest when empty)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file")
	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("out")
	return cmd
}

// #endregion snapshot-cmd
