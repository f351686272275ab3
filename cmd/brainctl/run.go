package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/cognitive-core/internal/archive"
	"github.com/danielpatrickdp/cognitive-core/internal/brain"
)

// #region run-cmd

func newRunCmd() *cobra.Command {
	var (
		inputPath string
		dbPath    string
		note      string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the core over a stream of tick inputs",
		Long: `Reads one JSON tick input per line (stdin by default), feeds each
through the core, and prints one JSON tick output per line. With --db the
decisions are logged to the archive and a final snapshot is stored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			b, err := brain.New(cfg, logger, nil)
			if err != nil {
				return err
			}

			var store *archive.Store
			if dbPath != "" {
				store, err = archive.Open(dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
			}

			in := io.Reader(os.Stdin)
			if inputPath != "" {
				f, err := os.Open(inputPath)
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			scanner := bufio.NewScanner(in)
			scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
			line := 0
			for scanner.Scan() {
				line++
				if len(scanner.Bytes()) == 0 {
					continue
				}
				var tick brain.TickInput
				if err := json.Unmarshal(scanner.Bytes(), &tick); err != nil {
					return fmt.Errorf("input line %d: %w", line, err)
				}
				out, err := b.Tick(cmd.Context(), tick)
				if err != nil {
					return fmt.Errorf("tick at line %d: %w", line, err)
				}
				if err := enc.Encode(out); err != nil {
					return err
				}
				if store != nil && out.Verdict != "" {
					dec := archive.Decision{
						Tick:       out.Tick,
						Verdict:    string(out.Verdict),
						Confidence: out.Confidence,
						Surprise:   out.Telemetry.Surprise,
					}
					if out.Decision != nil {
						dec.CandidateID = out.Decision.CandidateID
					}
					if err := store.LogDecision(dec); err != nil {
						logger.Warn("provenance write failed", zap.Error(err))
					}
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			if store != nil {
				blob, err := b.Export()
				if err != nil {
					return err
				}
				id, err := store.SaveSnapshot(blob, b.Telemetry().Tick, note)
				if err != nil {
					return err
				}
				logger.Info("snapshot stored", zap.String("id", id))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSONL tick input file (default stdin)")
	cmd.Flags().StringVar(&dbPath, "db", "", "archive database path")
	cmd.Flags().StringVar(&note, "note", "", "note for the final snapshot")
	return cmd
}

// #endregion run-cmd
