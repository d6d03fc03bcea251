package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/jacknotify/internal/config"
	"github.com/jmylchreest/jacknotify/internal/history"
)

var pruneOpts struct {
	olderThan string
	dryRun    bool
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old notifications from the event log",
	Long: `Remove old notifications from the event log. Without --older-than the
configured history.max_age is used.

Examples:
  # Remove notifications older than 7 days
  jacknotify prune --older-than 7d

  # Preview what would be removed
  jacknotify prune --older-than 48h --dry-run`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().StringVar(&pruneOpts.olderThan, "older-than", "",
		"Remove notifications older than this duration (e.g., 48h, 7d, 1w)")
	pruneCmd.Flags().BoolVar(&pruneOpts.dryRun, "dry-run", false,
		"Show what would be removed without actually removing")
}

func runPrune(cmd *cobra.Command, args []string) error {
	maxAge := cfg.History.MaxAge.Duration()
	if pruneOpts.olderThan != "" {
		d, err := config.ParseDuration(pruneOpts.olderThan)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		maxAge = d
	}
	if maxAge <= 0 {
		return fmt.Errorf("specify --older-than or set history.max_age")
	}

	l, err := openHistory()
	if err != nil {
		return err
	}
	defer l.Close()

	out := cmd.OutOrStdout()
	now := time.Now()

	if pruneOpts.dryRun {
		records, err := l.Load()
		if err != nil {
			return err
		}
		kept := history.Filter(records, history.FilterOptions{Since: maxAge, Now: now})
		fmt.Fprintf(out, "Would remove %d of %d notification(s)\n", len(records)-len(kept), len(records))
		return nil
	}

	removed, err := history.Prune(l, maxAge, now)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}
	fmt.Fprintf(out, "Removed %d notification(s)\n", removed)
	return nil
}
