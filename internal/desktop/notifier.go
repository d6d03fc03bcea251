// Package desktop forwards JACK notifications to the freedesktop notification
// service over the session bus.
package desktop

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/jacknotify/internal/history"
	"github.com/jmylchreest/jacknotify/internal/notify"
)

const (
	// DBusInterface is the notification interface name.
	DBusInterface = "org.freedesktop.Notifications"
	// DBusPath is the notification object path.
	DBusPath = "/org/freedesktop/Notifications"
	// DBusDestination is the well-known bus name of the notification service.
	DBusDestination = "org.freedesktop.Notifications"

	notifyMethod = DBusInterface + ".Notify"
	appName      = "jacknotify"

	// DefaultMinInterval suppresses repeats of the same kind, so an xrun
	// storm yields one popup rather than hundreds.
	DefaultMinInterval = 5 * time.Second
)

// Urgency hint values understood by notification servers.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// caller is the subset of dbus.BusObject used to send notifications.
type caller interface {
	Call(method string, flags dbus.Flags, args ...any) *dbus.Call
}

// Notifier sends desktop notifications for a configurable set of kinds.
type Notifier struct {
	obj     caller
	conn    *dbus.Conn
	logger  *slog.Logger
	mu      sync.RWMutex
	kinds   []notify.Kind
	timeout time.Duration

	// Rate limiting
	minInterval time.Duration
	lastSent    map[notify.Kind]time.Time
	now         func() time.Time
}

// Connect opens a private session bus connection for sending notifications.
func Connect(kinds []notify.Kind, timeout time.Duration, logger *slog.Logger) (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	n := newNotifier(conn.Object(DBusDestination, dbus.ObjectPath(DBusPath)), kinds, timeout, logger)
	n.conn = conn
	return n, nil
}

func newNotifier(obj caller, kinds []notify.Kind, timeout time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		obj:         obj,
		logger:      logger,
		kinds:       slices.Clone(kinds),
		timeout:     timeout,
		minInterval: DefaultMinInterval,
		lastSent:    make(map[notify.Kind]time.Time),
		now:         time.Now,
	}
}

// SetKinds replaces the forwarded kinds.
func (n *Notifier) SetKinds(kinds []notify.Kind, timeout time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = slices.Clone(kinds)
	n.timeout = timeout
}

// Wants reports whether records of kind k are forwarded.
func (n *Notifier) Wants(k notify.Kind) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Contains(n.kinds, k)
}

// Send forwards r if its kind is selected and returns the server-assigned id.
// Unselected or rate-limited records return 0 and no error.
func (n *Notifier) Send(r history.Record) (uint32, error) {
	if !n.Wants(r.Kind) {
		return 0, nil
	}

	n.mu.Lock()
	timeout := n.timeout
	now := n.now()
	if last, ok := n.lastSent[r.Kind]; ok && now.Sub(last) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("rate limited desktop notification", "kind", r.Kind)
		return 0, nil
	}
	n.lastSent[r.Kind] = now
	n.mu.Unlock()

	summary, body := Message(r)
	urgency := Urgency(r.Kind)
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(urgency),
		"category":      dbus.MakeVariant(category(urgency)),
		"desktop-entry": dbus.MakeVariant(appName),
	}
	if urgency != UrgencyCritical {
		hints["transient"] = dbus.MakeVariant(true)
	}

	call := n.obj.Call(notifyMethod, 0,
		appName,
		uint32(0),
		"audio-card",
		summary,
		body,
		[]string{},
		hints,
		int32(timeout.Milliseconds()),
	)
	if call.Err != nil {
		return 0, fmt.Errorf("notify %s: %w", r.Kind, call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("notify %s: %w", r.Kind, err)
	}
	n.logger.Debug("sent desktop notification", "kind", r.Kind, "id", id)
	return id, nil
}

// Close closes the bus connection if Connect opened one.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}

// Message builds the notification summary and body for a record.
func Message(r history.Record) (summary, body string) {
	switch r.Kind {
	case notify.KindXRun:
		return "JACK xrun", "An xrun occurred"
	case notify.KindShutdown:
		return "JACK server shut down", fmt.Sprintf("%s (status %s)", r.Reason, r.Status)
	case notify.KindSampleRate:
		return "JACK sample rate changed", fmt.Sprintf("%d Hz", r.Rate)
	case notify.KindFreewheel:
		if r.Enabled {
			return "JACK freewheel", "Freewheel mode is on"
		}
		return "JACK freewheel", "Freewheel mode is off"
	default:
		return "JACK " + r.Kind.String(), r.Text
	}
}

// Urgency maps a kind to a notification urgency.
func Urgency(k notify.Kind) byte {
	switch k {
	case notify.KindShutdown:
		return UrgencyCritical
	case notify.KindXRun, notify.KindSampleRate:
		return UrgencyNormal
	default:
		return UrgencyLow
	}
}

func category(urgency byte) string {
	if urgency == UrgencyCritical {
		return "device.error"
	}
	return "device"
}
