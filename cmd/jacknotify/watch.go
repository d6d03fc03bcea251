package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/jacknotify/internal/config"
	"github.com/jmylchreest/jacknotify/internal/daemon"
	"github.com/jmylchreest/jacknotify/internal/desktop"
	"github.com/jmylchreest/jacknotify/internal/history"
	"github.com/jmylchreest/jacknotify/internal/jack"
	"github.com/jmylchreest/jacknotify/internal/metrics"
	"github.com/jmylchreest/jacknotify/internal/output"
)

var watchOpts struct {
	name      string
	server    string
	format    string
	kinds     []string
	noHistory bool
	desktop   bool
	metrics   string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print JACK notifications as they arrive",
	Long: `Connect to the JACK server and print one line per notification until
interrupted. The JACK server is never started on demand.

Examples:
  # Watch with the default client name
  jacknotify watch

  # Only xruns and shutdowns, as JSON lines
  jacknotify watch --kind xrun --kind shutdown --format json

  # Expose Prometheus metrics
  jacknotify watch --metrics 127.0.0.1:9187`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addWatchFlags(watchCmd)
}

// addWatchFlags registers the watch flags on cmd. The root command gets them
// too since it runs watch by default.
func addWatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&watchOpts.name, "name", "n", "",
		"JACK client name (default: config client.name, then the executable name)")
	cmd.Flags().StringVar(&watchOpts.server, "server", "",
		"JACK server name (default: config client.server_name)")
	cmd.Flags().StringVarP(&watchOpts.format, "format", "f", "",
		"Output format: plain, json, yaml (default: config watch.format)")
	cmd.Flags().StringSliceVarP(&watchOpts.kinds, "kind", "k", nil,
		"Only print these notification kinds (repeatable)")
	cmd.Flags().BoolVar(&watchOpts.noHistory, "no-history", false,
		"Do not append notifications to the event log")
	cmd.Flags().BoolVar(&watchOpts.desktop, "desktop", false,
		"Forward selected kinds as desktop notifications")
	cmd.Flags().StringVar(&watchOpts.metrics, "metrics", "",
		"Serve Prometheus metrics on this address")
}

// session is an activated JACK client together with its consumer.
type session struct {
	client  *jack.ActiveClient
	watcher *daemon.Watcher
	closers []func() error
}

// close releases everything except the JACK client.
func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("cleanup failed", "error", err)
		}
	}
}

// startSession activates the JACK client and builds a watcher draining it.
// opts provides the sinks; the event log, desktop notifier, metrics server
// and config reloader are added here from cfg and the watch flags.
func startSession(opts daemon.Options) (*session, error) {
	s := &session{}

	serverName := cfg.Client.ServerName
	if watchOpts.server != "" {
		serverName = watchOpts.server
	}

	kinds := cfg.Watch.Kinds
	if len(watchOpts.kinds) > 0 {
		kinds = watchOpts.kinds
	}
	parsed, err := config.ParseKinds(kinds)
	if err != nil {
		return nil, err
	}
	opts.Kinds = parsed

	if cfg.History.Enabled && !watchOpts.noHistory {
		l, err := openHistory()
		if err != nil {
			return nil, err
		}
		opts.Log = l
		s.closers = append(s.closers, l.Close)
	}

	if cfg.Desktop.Enabled || watchOpts.desktop {
		desktopKinds, err := config.ParseKinds(cfg.Desktop.Kinds)
		if err != nil {
			s.close()
			return nil, err
		}
		n, err := desktop.Connect(desktopKinds, cfg.Desktop.Timeout.Duration(), logger)
		if err != nil {
			// Desktop notifications are optional; keep watching without them.
			logger.Warn("desktop notifications disabled", "error", err)
		} else {
			opts.Desktop = n
			s.closers = append(s.closers, n.Close)
		}
	}

	listen := cfg.Metrics.Listen
	if watchOpts.metrics != "" {
		listen = watchOpts.metrics
	}
	if listen != "" {
		opts.Services = append(opts.Services, metrics.NewServer(listen, logger).Run)
	}

	client, rx, err := jack.Activate(cfg.ClientName(watchOpts.name),
		jack.WithLogger(logger),
		jack.WithDropHook(metrics.RecordDrop),
		jack.WithServerName(serverName),
	)
	if err != nil {
		s.close()
		return nil, err
	}
	s.client = client
	metrics.SetClientActive(true)

	opts.Client = client.Name()
	opts.PollInterval = cfg.Watch.PollInterval.Duration()
	opts.Logger = logger
	s.watcher = daemon.New(rx, opts)

	if cw, err := config.NewWatcher(globalOpts.configPath, logger, s.reload); err != nil {
		logger.Warn("config hot reload disabled", "error", err)
	} else {
		s.watcher.AddService(func(ctx context.Context) error {
			if err := cw.Start(); err != nil {
				// Usually the config directory does not exist.
				logger.Debug("config hot reload disabled", "error", err)
				return cw.Stop()
			}
			<-ctx.Done()
			return cw.Stop()
		})
	}

	return s, nil
}

// reload applies a changed config file. Command-line flags keep precedence.
func (s *session) reload(c *config.Config) {
	if len(watchOpts.kinds) > 0 {
		c.Watch.Kinds = watchOpts.kinds
	}
	if watchOpts.desktop {
		c.Desktop.Enabled = true
	}
	s.watcher.ApplyConfig(c)
}

// run drives the watcher until a signal arrives or the client goes away.
// On signal the client is closed first so the watcher drains everything the
// server delivered before it stops.
func (s *session) run(ctx context.Context) error {
	defer s.close()

	go func() {
		<-ctx.Done()
		s.closeClient()
	}()

	err := s.watcher.Run(context.Background())
	s.closeClient()
	return err
}

func (s *session) closeClient() {
	if err := s.client.Close(); err != nil {
		logger.Warn("failed to close JACK client", "error", err)
	}
	metrics.SetClientActive(false)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format := cfg.Watch.Format
	if watchOpts.format != "" {
		format = watchOpts.format
	}
	formatter, err := output.NewFormatter(output.FormatType(format), output.FormatterOptions{Stream: true})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := startSession(daemon.Options{
		Formatter: formatter,
		Out:       os.Stdout,
	})
	if err != nil {
		return activationHint(err)
	}
	return s.run(ctx)
}

// activationHint adds a hint for the common case of no running server.
func activationHint(err error) error {
	if errors.Is(err, jack.ErrConnection) && !errors.Is(err, jack.ErrUnsupported) {
		return fmt.Errorf("%w (is the JACK server running?)", err)
	}
	return err
}

// recentRecords loads the newest n records from the event log for display.
func recentRecords(n int) []history.Record {
	if !cfg.History.Enabled {
		return nil
	}
	l, err := openHistory()
	if err != nil {
		logger.Debug("no event log", "error", err)
		return nil
	}
	defer l.Close()

	records, err := l.Load()
	if err != nil {
		logger.Warn("failed to load event log", "error", err)
		return nil
	}
	return history.Filter(records, history.FilterOptions{Limit: n})
}

var _ daemon.DesktopSink = (*desktop.Notifier)(nil)
