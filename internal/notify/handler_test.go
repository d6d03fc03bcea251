package notify

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelHandler_OneEventPerCallback(t *testing.T) {
	tests := []struct {
		name   string
		invoke func(h *ChannelHandler) (Control, bool)
		want   Notification
	}{
		{"thread init", func(h *ChannelHandler) (Control, bool) { h.ThreadInit(); return 0, false }, ThreadInit{}},
		{"shutdown", func(h *ChannelHandler) (Control, bool) {
			h.Shutdown(StatusServerError, "server stopped")
			return 0, false
		}, Shutdown{Status: StatusServerError, Reason: "server stopped"}},
		{"freewheel", func(h *ChannelHandler) (Control, bool) { h.Freewheel(true); return 0, false }, Freewheel{Enabled: true}},
		{"sample rate", func(h *ChannelHandler) (Control, bool) { return h.SampleRate(44100), true }, SampleRate{Rate: 44100}},
		{"client registration", func(h *ChannelHandler) (Control, bool) {
			h.ClientRegistration("qjackctl", false)
			return 0, false
		}, ClientRegistration{Name: "qjackctl", Registered: false}},
		{"port registration", func(h *ChannelHandler) (Control, bool) {
			h.PortRegistration(3, true)
			return 0, false
		}, PortRegistration{Port: 3, Registered: true}},
		{"port rename", func(h *ChannelHandler) (Control, bool) {
			return h.PortRename(12, "capture_1", "vocals"), true
		}, PortRename{Port: 12, OldName: "capture_1", NewName: "vocals"}},
		{"ports connected", func(h *ChannelHandler) (Control, bool) {
			h.PortsConnected(4, 5, true)
			return 0, false
		}, PortsConnected{PortA: 4, PortB: 5, Connected: true}},
		{"graph reorder", func(h *ChannelHandler) (Control, bool) { return h.GraphReorder(), true }, GraphReorder{}},
		{"xrun", func(h *ChannelHandler) (Control, bool) { return h.XRun(), true }, XRun{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, rx := NewChannel()
			h := NewChannelHandler(tx)

			ctl, hasControl := tt.invoke(h)
			if hasControl {
				assert.Equal(t, Continue, ctl)
			}

			got := rx.Drain()
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
			assert.Equal(t, tt.want.Kind(), got[0].Kind())
		})
	}
}

func TestChannelHandler_StringsAreIndependentCopies(t *testing.T) {
	tx, rx := NewChannel()
	h := NewChannelHandler(tx)

	buf := []byte("system:capture_1")
	h.ClientRegistration(string(buf), true)
	copy(buf, "XXXXXXXXXXXXXXXX")

	n, err := rx.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, "system:capture_1", n.(ClientRegistration).Name)
}

func TestChannelHandler_XRunControl(t *testing.T) {
	tx, rx := NewChannel()
	h := NewChannelHandler(tx)

	assert.Equal(t, Continue, h.XRun())

	rx.Close()
	assert.Equal(t, Quit, h.XRun())
}

func TestChannelHandler_ReceiverGone(t *testing.T) {
	tx, rx := NewChannel()
	var drops atomic.Int32
	h := NewChannelHandler(tx, WithDropHook(func(Kind) { drops.Add(1) }))
	rx.Close()

	assert.NotPanics(t, func() {
		h.ThreadInit()
		h.Shutdown(StatusFailure, "gone")
		h.Freewheel(false)
		h.ClientRegistration("a", true)
		h.PortRegistration(1, true)
		h.PortsConnected(1, 2, false)
	})

	assert.Equal(t, Quit, h.SampleRate(48000))
	assert.Equal(t, Quit, h.PortRename(1, "a", "b"))
	assert.Equal(t, Quit, h.GraphReorder())
	assert.Equal(t, Quit, h.XRun())
	assert.Equal(t, int32(10), drops.Load())
}

func TestChannelHandler_PanickingDropHook(t *testing.T) {
	tx, rx := NewChannel()
	h := NewChannelHandler(tx, WithDropHook(func(Kind) { panic("boom") }))
	rx.Close()

	assert.NotPanics(t, func() {
		assert.Equal(t, Quit, h.GraphReorder())
	})
}

func TestNopProcessHandler(t *testing.T) {
	var p ProcessHandler = NopProcessHandler{}
	assert.Equal(t, Continue, p.Process(256))
	assert.Equal(t, Continue, p.BufferSize(1024))
}

func TestControl_String(t *testing.T) {
	assert.Equal(t, "continue", Continue.String())
	assert.Equal(t, "quit", Quit.String())
}
