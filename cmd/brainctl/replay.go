package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cognitive-core/internal/replay"
)

// #region replay-cmd

func newReplayCmd() *cobra.Command {
	var fixturePath string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "replay a recorded fixture and check its expectations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fixture, err := replay.LoadFixture(fixturePath)
			if err != nil {
				return err
			}
			sum, err := replay.Run(cmd.Context(), cfg, fixture)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(sum); err != nil {
				return err
			}
			if sum.Mismatches > 0 {
				return fmt.Errorf("%d of %d expectations failed", sum.Mismatches, sum.Checked)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&fixturePath, "fixture", "f", "", "fixture JSON path")
	cmd.MarkFlagRequired("fixture")
	return cmd
}

// #endregion replay-cmd
