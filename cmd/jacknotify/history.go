package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/jacknotify/internal/config"
	"github.com/jmylchreest/jacknotify/internal/history"
	"github.com/jmylchreest/jacknotify/internal/output"
)

var historyOpts struct {
	since    string
	kinds    []string
	client   string
	limit    int
	format   string
	template string
	noTime   bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded JACK notifications",
	Long: `Show notifications recorded by "jacknotify watch" in the event log.

Examples:
  # Everything from the last hour
  jacknotify history --since 1h

  # The last 20 xruns as JSON
  jacknotify history --kind xrun --limit 20 --format json

  # Custom line format
  jacknotify history --template '{{.Kind}} {{.RelativeTime}}'`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyOpts.since, "since", "",
		"Only show notifications newer than this (e.g., 30m, 48h, 7d)")
	historyCmd.Flags().StringSliceVarP(&historyOpts.kinds, "kind", "k", nil,
		"Only show these notification kinds (repeatable)")
	historyCmd.Flags().StringVar(&historyOpts.client, "client", "",
		"Only show notifications received by this client name")
	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "l", 0,
		"Show only the N most recent notifications (0=unlimited)")
	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", "plain",
		"Output format: plain, json, yaml")
	historyCmd.Flags().StringVar(&historyOpts.template, "template", "",
		"Go template for plain output")
	historyCmd.Flags().BoolVar(&historyOpts.noTime, "no-time", false,
		"Omit the receive time in plain output")
}

func runHistory(cmd *cobra.Command, args []string) error {
	since, err := config.ParseDuration(historyOpts.since)
	if err != nil {
		return fmt.Errorf("invalid --since: %w", err)
	}
	kinds, err := config.ParseKinds(historyOpts.kinds)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(output.FormatType(historyOpts.format), output.FormatterOptions{
		Template:   historyOpts.template,
		ShowTime:   !historyOpts.noTime,
		ShowClient: historyOpts.client == "",
	})
	if err != nil {
		return err
	}

	if _, err := os.Stat(historyPath()); os.IsNotExist(err) {
		logger.Debug("event log does not exist", "path", historyPath())
		return formatter.Format(cmd.OutOrStdout(), nil)
	}

	l, err := openHistory()
	if err != nil {
		return err
	}
	defer l.Close()

	records, err := l.Load()
	if err != nil {
		return fmt.Errorf("failed to load event log: %w", err)
	}

	records = history.Filter(records, history.FilterOptions{
		Since:  since,
		Kinds:  kinds,
		Client: historyOpts.client,
		Limit:  historyOpts.limit,
	})
	return formatter.Format(cmd.OutOrStdout(), records)
}
