package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/assetharvest/grfkit/baseline"
	"github.com/assetharvest/grfkit/fingerprint"
)

var (
	baselinePath    string
	baselineWorkers int
	compareJSON     bool
	compareAll      bool
)

var baselineCmd = &cobra.Command{
	Use:   "baseline <dir | archive...>",
	Short: "Build a fingerprint baseline from a trusted asset tree",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, closeTree, err := openTree(args)
		if err != nil {
			return err
		}
		defer closeTree()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine := fingerprint.NewEngine(
			fingerprint.WithWorkers(baselineWorkers),
			fingerprint.WithLogger(libLogger()),
		)
		records, issues, err := engine.BuildBaseline(ctx, tree)
		if err != nil {
			return err
		}
		for _, iss := range issues {
			log.Warn().Str("path", iss.Path).Str("status", iss.Status.String()).
				Str("reason", iss.Reason).Msg("entry not baselined")
		}

		store, err := baseline.OpenFile(baselinePath)
		if err != nil {
			return err
		}
		if err := store.Replace(records); err != nil {
			return err
		}
		log.Info().Int("records", len(records)).Int("issues", len(issues)).
			Str("file", baselinePath).Msg("baseline written")
		return nil
	},
}

// compareLine is the JSON shape of one comparison result.
type compareLine struct {
	Path     string `json:"path"`
	Status   string `json:"status"`
	Digest   string `json:"digest,omitempty"`
	Size     int64  `json:"size"`
	Baseline string `json:"baseline,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

var compareCmd = &cobra.Command{
	Use:   "compare <dir | archive...>",
	Short: "Compare an asset tree against a baseline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := baseline.OpenFile(baselinePath)
		if err != nil {
			return err
		}
		if store.Len() == 0 {
			return fmt.Errorf("baseline %s is empty, build it first", baselinePath)
		}

		tree, closeTree, err := openTree(args)
		if err != nil {
			return err
		}
		defer closeTree()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine := fingerprint.NewEngine(
			fingerprint.WithWorkers(baselineWorkers),
			fingerprint.WithLogger(libLogger()),
		)
		results, err := engine.Compare(ctx, tree, store)
		if err != nil {
			return err
		}

		runID := uuid.NewString()
		out := cmd.OutOrStdout()
		var identical, modified, added, failed, skipped int
		enc := json.NewEncoder(out)
		for _, r := range results {
			switch r.Status {
			case fingerprint.StatusIdentical:
				identical++
			case fingerprint.StatusModified:
				modified++
			case fingerprint.StatusNew:
				added++
			case fingerprint.StatusFailed:
				failed++
			case fingerprint.StatusSkipped:
				skipped++
			}
			if r.Status == fingerprint.StatusIdentical && !compareAll {
				continue
			}
			if compareJSON {
				line := compareLine{
					Path:   r.Path,
					Status: r.Status.String(),
					Size:   r.Size,
					Reason: r.Reason,
				}
				if r.Digest != "" {
					line.Digest = r.Digest.String()
				}
				if r.Baseline != "" {
					line.Baseline = r.Baseline.String()
				}
				if err := enc.Encode(line); err != nil {
					return err
				}
			} else if r.Reason != "" {
				fmt.Fprintf(out, "%-9s %s (%s)\n", r.Status, r.Path, r.Reason)
			} else {
				fmt.Fprintf(out, "%-9s %s\n", r.Status, r.Path)
			}
		}

		log.Info().
			Str("run_id", runID).
			Int("identical", identical).
			Int("modified", modified).
			Int("new", added).
			Int("failed", failed).
			Int("skipped", skipped).
			Msg("comparison finished")
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{baselineCmd, compareCmd} {
		cmd.Flags().StringVarP(&baselinePath, "baseline", "b", "audit.baseline", "baseline file")
		cmd.Flags().IntVarP(&baselineWorkers, "workers", "w", 0, "concurrent hashing workers (default: CPU count)")
	}
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "emit one JSON object per result")
	compareCmd.Flags().BoolVarP(&compareAll, "all", "a", false, "include identical paths in the output")
}
