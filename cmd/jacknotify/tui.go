package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/jacknotify/internal/daemon"
	"github.com/jmylchreest/jacknotify/internal/history"
	"github.com/jmylchreest/jacknotify/internal/tui"
)

const tuiBacklog = 200

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Live terminal view of JACK notifications",
	Long: `Connect to the JACK server and show notifications in an interactive
list with per-kind counts. Recent events from the event log are shown first.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	addWatchFlags(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initial := recentRecords(tuiBacklog)

	records := make(chan []history.Record, 16)
	done := make(chan struct{})

	s, err := startSession(daemon.Options{
		OnRecords: func(rs []history.Record) {
			select {
			case records <- rs:
			case <-done:
			}
		},
	})
	if err != nil {
		return activationHint(err)
	}

	runErr := make(chan error, 1)
	go func() {
		err := s.run(ctx)
		close(records)
		runErr <- err
	}()

	err = tui.Run(ctx, tui.RunOptions{
		Client:  s.client.Name(),
		Records: records,
		Initial: initial,
	})

	close(done)
	s.closeClient()
	if werr := <-runErr; err == nil {
		err = werr
	}
	return err
}
