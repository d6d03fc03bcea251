package daemon

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jmylchreest/jacknotify/internal/config"
	"github.com/jmylchreest/jacknotify/internal/history"
	"github.com/jmylchreest/jacknotify/internal/notify"
	"github.com/jmylchreest/jacknotify/internal/output"
)

type memLog struct {
	mu      sync.Mutex
	records []history.Record
	err     error
}

func (m *memLog) Load() ([]history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Record(nil), m.records...), nil
}

func (m *memLog) Append(r history.Record) error { return m.AppendBatch([]history.Record{r}) }

func (m *memLog) AppendBatch(rs []history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rs...)
	return nil
}

func (m *memLog) Rewrite(rs []history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = rs
	return nil
}

func (m *memLog) Close() error { return nil }

type fakeDesktop struct {
	mu      sync.Mutex
	sent    []notify.Kind
	kinds   []notify.Kind
	timeout time.Duration
}

func (f *fakeDesktop) Send(r history.Record) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, r.Kind)
	return uint32(len(f.sent)), nil
}

func (f *fakeDesktop) SetKinds(kinds []notify.Kind, timeout time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = kinds
	f.timeout = timeout
}

func sendAll(t *testing.T, tx *notify.Sender, events ...notify.Notification) {
	t.Helper()
	for _, n := range events {
		require.NoError(t, tx.Send(n))
	}
}

func TestWatcher_PollDispatches(t *testing.T) {
	tx, rx := notify.NewChannel()
	var out bytes.Buffer
	log := &memLog{}
	desk := &fakeDesktop{}
	var batches [][]history.Record

	w := New(rx, Options{
		Client:    "monitor",
		Formatter: output.NewPlainFormatter(output.FormatterOptions{}),
		Out:       &out,
		Log:       log,
		Desktop:   desk,
		OnRecords: func(rs []history.Record) { batches = append(batches, rs) },
	})

	events := []notify.Notification{
		notify.XRun{},
		notify.SampleRate{Rate: 48000},
		notify.PortRegistration{Port: 3, Registered: true},
	}
	sendAll(t, tx, events...)

	assert.False(t, w.Poll())

	var want string
	for _, n := range events {
		want += notify.Render(n)
	}
	assert.Equal(t, want, out.String())

	stored, err := log.Load()
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for i, r := range stored {
		assert.Equal(t, events[i].Kind(), r.Kind)
		assert.Equal(t, "monitor", r.Client)
	}

	assert.Equal(t, []notify.Kind{notify.KindXRun, notify.KindSampleRate, notify.KindPortRegistration}, desk.sent)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)

	// Nothing buffered: no output, no callback.
	assert.False(t, w.Poll())
	assert.Len(t, batches, 1)
}

func TestWatcher_KindFilterOnlyAffectsOutput(t *testing.T) {
	tx, rx := notify.NewChannel()
	var out bytes.Buffer
	log := &memLog{}

	w := New(rx, Options{
		Formatter: output.NewPlainFormatter(output.FormatterOptions{}),
		Out:       &out,
		Log:       log,
		Kinds:     []notify.Kind{notify.KindXRun},
	})

	sendAll(t, tx, notify.GraphReorder{}, notify.XRun{}, notify.GraphReorder{})
	w.Poll()

	assert.Equal(t, "JACK: xrun occurred\n", out.String())
	stored, _ := log.Load()
	assert.Len(t, stored, 3)

	out.Reset()
	w.SetKinds(nil)
	sendAll(t, tx, notify.GraphReorder{})
	w.Poll()
	assert.Equal(t, "JACK: graph reordered\n", out.String())
}

func TestWatcher_LogFailureDoesNotStopOutput(t *testing.T) {
	tx, rx := notify.NewChannel()
	var out bytes.Buffer

	w := New(rx, Options{
		Formatter: output.NewPlainFormatter(output.FormatterOptions{}),
		Out:       &out,
		Log:       &memLog{err: errors.New("disk full")},
	})

	sendAll(t, tx, notify.XRun{})
	w.Poll()
	assert.Equal(t, "JACK: xrun occurred\n", out.String())
}

func TestWatcher_RunStopsOnDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t)

	tx, rx := notify.NewChannel()
	var out bytes.Buffer
	w := New(rx, Options{
		PollInterval: time.Millisecond,
		Formatter:    output.NewPlainFormatter(output.FormatterOptions{}),
		Out:          &out,
	})

	sendAll(t, tx, notify.ThreadInit{}, notify.XRun{})
	tx.Close()

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, "JACK: thread init\nJACK: xrun occurred\n", out.String())
}

func TestWatcher_RunDrainsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	tx, rx := notify.NewChannel()
	var out bytes.Buffer
	w := New(rx, Options{
		PollInterval: time.Hour,
		Formatter:    output.NewPlainFormatter(output.FormatterOptions{}),
		Out:          &out,
	})

	sendAll(t, tx, notify.Freewheel{Enabled: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	assert.Equal(t, "JACK: freewheel mode is on\n", out.String())
}

func TestWatcher_ServiceErrorStopsRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, rx := notify.NewChannel()
	boom := errors.New("listen failed")
	w := New(rx, Options{
		PollInterval: time.Millisecond,
		Services: []Service{
			func(context.Context) error { return boom },
		},
	})

	assert.ErrorIs(t, w.Run(context.Background()), boom)
}

func TestWatcher_StoppedWatcherDropsLateEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	tx, rx := notify.NewChannel()
	var dropped []notify.Kind
	h := notify.NewChannelHandler(tx, notify.WithDropHook(func(k notify.Kind) {
		dropped = append(dropped, k)
	}))

	boom := errors.New("listen failed")
	w := New(rx, Options{
		PollInterval: time.Hour,
		Services: []Service{
			func(context.Context) error { return boom },
		},
	})
	require.ErrorIs(t, w.Run(context.Background()), boom)

	assert.Equal(t, notify.Quit, h.XRun())
	assert.Equal(t, []notify.Kind{notify.KindXRun}, dropped)
	assert.ErrorIs(t, tx.Send(notify.GraphReorder{}), notify.ErrDisconnected)
}

func TestWatcher_ServicesStopWithLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	tx, rx := notify.NewChannel()
	stopped := make(chan struct{})
	w := New(rx, Options{
		PollInterval: time.Millisecond,
		Services: []Service{
			func(ctx context.Context) error {
				<-ctx.Done()
				close(stopped)
				return nil
			},
		},
	})

	tx.Close()
	require.NoError(t, w.Run(context.Background()))
	select {
	case <-stopped:
	default:
		t.Fatal("service was not stopped")
	}
}

func TestWatcher_ApplyConfig(t *testing.T) {
	_, rx := notify.NewChannel()
	desk := &fakeDesktop{}
	w := New(rx, Options{Desktop: desk})

	cfg := config.DefaultConfig()
	cfg.Watch.Kinds = []string{"xrun", "shutdown"}
	cfg.Desktop.Enabled = true
	cfg.Desktop.Kinds = []string{"sample_rate"}
	cfg.Desktop.Timeout = config.Duration(2 * time.Second)

	w.ApplyConfig(cfg)
	assert.Equal(t, []notify.Kind{notify.KindXRun, notify.KindShutdown}, w.kinds)
	assert.Equal(t, []notify.Kind{notify.KindSampleRate}, desk.kinds)
	assert.Equal(t, 2*time.Second, desk.timeout)

	cfg.Desktop.Enabled = false
	cfg.Watch.Kinds = []string{"bogus"}
	w.ApplyConfig(cfg)
	assert.Equal(t, []notify.Kind{notify.KindXRun, notify.KindShutdown}, w.kinds, "invalid kinds are ignored")
	assert.Empty(t, desk.kinds)
}
