package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/assetharvest/grfkit/grf"
)

var listPrefix string

var listCmd = &cobra.Command{
	Use:   "list <archive>",
	Short: "List archive entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := grf.Open(args[0], grf.WithLogger(libLogger()))
		if err != nil {
			return err
		}
		defer a.Close()

		for _, w := range a.Warnings() {
			log.Warn().Str("archive", args[0]).Msg(w)
		}

		entries := a.Entries()
		if listPrefix != "" {
			entries = a.EntriesWithPrefix(listPrefix)
		}
		for e := range entries {
			flags := ""
			if e.Type == grf.EntryDirectory {
				flags = " [dir]"
			} else if e.Encrypted() {
				flags = " [encrypted]"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%10d  %-7s %s%s\n", e.Size, e.Method(), e.Path, flags)
		}
		log.Info().Int("entries", a.Len()).Int("declared", a.DeclaredCount()).Msg("archive listed")
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <archive> <path>",
	Short: "Write one entry's content to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := grf.Open(args[0], grf.WithLogger(libLogger()))
		if err != nil {
			return err
		}
		defer a.Close()

		data, err := a.ReadFile(args[1])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var (
	extractOut     string
	extractWorkers int
)

var extractCmd = &cobra.Command{
	Use:   "extract <archive>",
	Short: "Extract every recoverable entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := grf.Open(args[0], grf.WithLogger(libLogger()))
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := a.ExtractAll(ctx, extractOut, grf.WithWorkers(extractWorkers))
		if report != nil {
			for _, o := range report.Outcomes() {
				if o.Status == grf.StatusFailed {
					log.Warn().Str("path", o.Path).Str("reason", o.Reason).Msg("entry failed")
				}
			}
			log.Info().
				Str("run_id", report.RunID).
				Int("extracted", report.Extracted()).
				Int("failed", report.Failed()).
				Int("skipped", report.Skipped()).
				Msg("extraction finished")
		}
		return err
	},
}

func init() {
	listCmd.Flags().StringVarP(&listPrefix, "prefix", "p", "", "only list entries under this path prefix")
	extractCmd.Flags().StringVarP(&extractOut, "output", "o", ".", "destination directory")
	extractCmd.Flags().IntVarP(&extractWorkers, "workers", "w", 0, "concurrent extraction workers (default: CPU count)")
}
