package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cognitive-core/internal/archive"
)

// #region inspect-cmd

func newInspectCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "list archived snapshots and recent decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := archive.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			metas, err := store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "snapshots: %d\n", len(metas))
			for _, m := range metas {
				note := m.Note
				if note == "" {
					note = "-"
				}
				fmt.Fprintf(out, "  %s  tick=%d  %s  %s\n",
					m.ID, m.Tick, m.CreatedAt.Format(time.RFC3339), note)
			}

			decs, err := store.Decisions(limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "decisions (newest %d):\n", len(decs))
			for _, d := range decs {
				id := d.CandidateID
				if id == "" {
					id = "-"
				}
				fmt.Fprintf(out, "  tick=%-6d %-8s candidate=%-12s conf=%.3f surprise=%.3f %s\n",
					d.Tick, d.Verdict, id, d.Confidence, d.Surprise, d.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "archive database path")
	cmd.Flags().IntVar(&limit, "limit", 20, "max decisions to show")
	cmd.MarkFlagRequired("db")
	return cmd
}

// #endregion inspect-cmd
