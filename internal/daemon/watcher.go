package daemon

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/jacknotify/internal/config"
	"github.com/jmylchreest/jacknotify/internal/history"
	"github.com/jmylchreest/jacknotify/internal/metrics"
	"github.com/jmylchreest/jacknotify/internal/notify"
	"github.com/jmylchreest/jacknotify/internal/output"
)

// DefaultPollInterval is used when Options.PollInterval is zero.
const DefaultPollInterval = 100 * time.Millisecond

// DesktopSink receives records for desktop notification.
type DesktopSink interface {
	Send(r history.Record) (uint32, error)
	SetKinds(kinds []notify.Kind, timeout time.Duration)
}

// Service is an auxiliary task run alongside the poll loop, such as the
// metrics server. It must return when ctx is done.
type Service func(ctx context.Context) error

// Options configures a Watcher.
type Options struct {
	Client       string        // Client name stamped into records
	PollInterval time.Duration // Receiver poll period
	Kinds        []notify.Kind // Kinds written to Out (empty = all)

	Formatter output.Formatter // Nil disables terminal output
	Out       io.Writer

	Log      history.Log // Nil disables the event log
	Desktop  DesktopSink // Nil disables desktop notifications
	Services []Service

	// OnRecords is called after every non-empty poll with the new records.
	OnRecords func([]history.Record)

	Logger *slog.Logger
}

// Watcher owns the receiving end of a notification channel.
type Watcher struct {
	rx     *notify.Receiver
	opts   Options
	logger *slog.Logger

	mu    sync.RWMutex
	kinds []notify.Kind

	now func() time.Time
}

// New creates a Watcher draining rx.
func New(rx *notify.Receiver, opts Options) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		rx:     rx,
		opts:   opts,
		logger: logger,
		kinds:  slices.Clone(opts.Kinds),
		now:    time.Now,
	}
}

// AddService registers an auxiliary task. It must be called before Run.
func (w *Watcher) AddService(svc Service) {
	w.opts.Services = append(w.opts.Services, svc)
}

// SetKinds replaces the terminal output filter.
func (w *Watcher) SetKinds(kinds []notify.Kind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.kinds = slices.Clone(kinds)
}

// ApplyConfig applies the hot-reloadable parts of cfg: the output kind
// filter and the desktop kinds. Invalid kind lists are logged and ignored.
func (w *Watcher) ApplyConfig(cfg *config.Config) {
	kinds, err := config.ParseKinds(cfg.Watch.Kinds)
	if err != nil {
		w.logger.Warn("ignoring watch.kinds from reloaded config", "error", err)
	} else {
		w.SetKinds(kinds)
	}

	if w.opts.Desktop == nil {
		return
	}
	desktopKinds, err := config.ParseKinds(cfg.Desktop.Kinds)
	if err != nil {
		w.logger.Warn("ignoring desktop.kinds from reloaded config", "error", err)
		return
	}
	if !cfg.Desktop.Enabled {
		desktopKinds = nil
	}
	w.opts.Desktop.SetKinds(desktopKinds, cfg.Desktop.Timeout.Duration())
}

// Run polls until ctx is done or the sending side disconnects. Buffered
// events are always drained before returning, then the receiver is closed so
// later callbacks are dropped instead of queued. Services run for as long as
// the poll loop does; the first service error stops the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		w.loop(gctx)
		return nil
	})
	for _, svc := range w.opts.Services {
		g.Go(func() error { return svc(gctx) })
	}
	return g.Wait()
}

func (w *Watcher) loop(ctx context.Context) {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()
	defer w.rx.Close()

	w.logger.Debug("watcher started", "interval", w.opts.PollInterval)
	for {
		select {
		case <-ctx.Done():
			w.Poll()
			w.logger.Debug("watcher stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			if w.Poll() {
				w.logger.Debug("watcher stopped", "reason", "sender disconnected")
				return
			}
		}
	}
}

// Poll drains the receiver once and dispatches every event. It reports
// whether the sending side has disconnected, in which case no further events
// can arrive.
func (w *Watcher) Poll() (disconnected bool) {
	disconnected = w.rx.Disconnected()
	metrics.SetQueueDepth(w.rx.Len())

	events := w.rx.Drain()
	if len(events) == 0 {
		return disconnected
	}

	at := w.now()
	records := make([]history.Record, 0, len(events))
	for _, n := range events {
		metrics.RecordEvent(n)
		r, err := history.NewRecord(n, w.opts.Client, at)
		if err != nil {
			w.logger.Error("failed to stamp notification", "kind", n.Kind(), "error", err)
			continue
		}
		records = append(records, r)
	}

	w.write(records)
	w.persist(records)
	w.forward(records)

	if w.opts.OnRecords != nil {
		w.opts.OnRecords(records)
	}
	return disconnected
}

func (w *Watcher) write(records []history.Record) {
	if w.opts.Formatter == nil {
		return
	}

	w.mu.RLock()
	kinds := w.kinds
	w.mu.RUnlock()

	selected := records
	if len(kinds) > 0 {
		selected = make([]history.Record, 0, len(records))
		for _, r := range records {
			if slices.Contains(kinds, r.Kind) {
				selected = append(selected, r)
			}
		}
	}
	if len(selected) == 0 {
		return
	}
	if err := w.opts.Formatter.Format(w.opts.Out, selected); err != nil {
		w.logger.Warn("failed to write notifications", "error", err)
	}
}

func (w *Watcher) persist(records []history.Record) {
	if w.opts.Log == nil {
		return
	}
	if err := w.opts.Log.AppendBatch(records); err != nil {
		w.logger.Warn("failed to append to event log", "error", err)
	}
}

func (w *Watcher) forward(records []history.Record) {
	if w.opts.Desktop == nil {
		return
	}
	for _, r := range records {
		if _, err := w.opts.Desktop.Send(r); err != nil {
			w.logger.Debug("desktop notification failed", "kind", r.Kind, "error", err)
		}
	}
}
