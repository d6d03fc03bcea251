package desktop

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/jacknotify/internal/history"
	"github.com/jmylchreest/jacknotify/internal/notify"
)

type fakeBus struct {
	mu    sync.Mutex
	calls [][]any
	err   error
	id    uint32
}

func (f *fakeBus) Call(method string, _ dbus.Flags, args ...any) *dbus.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]any{method}, args...))
	if f.err != nil {
		return &dbus.Call{Err: f.err}
	}
	return &dbus.Call{Body: []any{f.id}}
}

func record(t *testing.T, n notify.Notification) history.Record {
	t.Helper()
	r, err := history.NewRecord(n, "test", time.Now())
	require.NoError(t, err)
	return r
}

func TestNotifier_SendsSelectedKinds(t *testing.T) {
	bus := &fakeBus{id: 17}
	n := newNotifier(bus, []notify.Kind{notify.KindXRun, notify.KindShutdown}, 5*time.Second, nil)

	id, err := n.Send(record(t, notify.XRun{}))
	require.NoError(t, err)
	assert.Equal(t, uint32(17), id)

	id, err = n.Send(record(t, notify.GraphReorder{}))
	require.NoError(t, err)
	assert.Zero(t, id)

	require.Len(t, bus.calls, 1)
	call := bus.calls[0]
	assert.Equal(t, "org.freedesktop.Notifications.Notify", call[0])
	assert.Equal(t, "jacknotify", call[1])
	assert.Equal(t, "JACK xrun", call[4])
	assert.Equal(t, int32(5000), call[8])

	hints := call[7].(map[string]dbus.Variant)
	assert.Equal(t, UrgencyNormal, hints["urgency"].Value())
	assert.Equal(t, true, hints["transient"].Value())
}

func TestNotifier_ShutdownIsCritical(t *testing.T) {
	bus := &fakeBus{id: 1}
	n := newNotifier(bus, []notify.Kind{notify.KindShutdown}, 0, nil)

	_, err := n.Send(record(t, notify.Shutdown{Status: notify.StatusServerError, Reason: "server died"}))
	require.NoError(t, err)

	require.Len(t, bus.calls, 1)
	hints := bus.calls[0][7].(map[string]dbus.Variant)
	assert.Equal(t, UrgencyCritical, hints["urgency"].Value())
	assert.Equal(t, "device.error", hints["category"].Value())
	_, transient := hints["transient"]
	assert.False(t, transient)
	assert.Contains(t, bus.calls[0][5], "server died")
}

func TestNotifier_CallError(t *testing.T) {
	bus := &fakeBus{err: errors.New("no service")}
	n := newNotifier(bus, []notify.Kind{notify.KindXRun}, time.Second, nil)

	_, err := n.Send(record(t, notify.XRun{}))
	assert.ErrorContains(t, err, "no service")
}

func TestNotifier_SetKinds(t *testing.T) {
	n := newNotifier(&fakeBus{}, nil, time.Second, nil)
	assert.False(t, n.Wants(notify.KindSampleRate))

	n.SetKinds([]notify.Kind{notify.KindSampleRate}, time.Second)
	assert.True(t, n.Wants(notify.KindSampleRate))
	assert.False(t, n.Wants(notify.KindXRun))
	assert.NoError(t, n.Close())
}

func TestMessage(t *testing.T) {
	tests := []struct {
		n           notify.Notification
		wantSummary string
		wantBody    string
	}{
		{notify.SampleRate{Rate: 44100}, "JACK sample rate changed", "44100 Hz"},
		{notify.Freewheel{Enabled: true}, "JACK freewheel", "Freewheel mode is on"},
		{notify.Freewheel{}, "JACK freewheel", "Freewheel mode is off"},
		{notify.PortRegistration{Port: 3, Registered: true}, "JACK port_registration", "JACK: registered port with id 3"},
	}
	for _, tt := range tests {
		t.Run(tt.n.Kind().String(), func(t *testing.T) {
			summary, body := Message(record(t, tt.n))
			assert.Equal(t, tt.wantSummary, summary)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestNotifier_RateLimitsPerKind(t *testing.T) {
	bus := &fakeBus{id: 2}
	n := newNotifier(bus, []notify.Kind{notify.KindXRun, notify.KindSampleRate}, time.Second, nil)
	clock := time.Unix(1000, 0)
	n.now = func() time.Time { return clock }

	for range 10 {
		_, err := n.Send(record(t, notify.XRun{}))
		require.NoError(t, err)
	}
	_, err := n.Send(record(t, notify.SampleRate{Rate: 48000}))
	require.NoError(t, err)
	assert.Len(t, bus.calls, 2)

	clock = clock.Add(DefaultMinInterval)
	id, err := n.Send(record(t, notify.XRun{}))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), id)
	assert.Len(t, bus.calls, 3)
}
