package notify

import (
	"fmt"
	"strings"
)

// Frames is a frame count as reported by the server (jack_nframes_t).
type Frames uint32

// PortID identifies a port for the lifetime of the server (jack_port_id_t).
type PortID uint32

// Kind identifies the variant of a Notification.
type Kind int

const (
	KindThreadInit Kind = iota
	KindShutdown
	KindFreewheel
	KindSampleRate
	KindClientRegistration
	KindPortRegistration
	KindPortRename
	KindPortsConnected
	KindGraphReorder
	KindXRun
)

var kindNames = [...]string{
	KindThreadInit:         "thread_init",
	KindShutdown:           "shutdown",
	KindFreewheel:          "freewheel",
	KindSampleRate:         "sample_rate",
	KindClientRegistration: "client_registration",
	KindPortRegistration:   "port_registration",
	KindPortRename:         "port_rename",
	KindPortsConnected:     "ports_connected",
	KindGraphReorder:       "graph_reorder",
	KindXRun:               "xrun",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a kind name. Matching is case-insensitive and accepts
// dashes in place of underscores ("sample-rate").
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range kindNames {
		if name == norm {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown notification kind %q", s)
}

// AllKinds returns every kind in declaration order.
func AllKinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kindNames {
		kinds[i] = Kind(i)
	}
	return kinds
}

// Notification is a single event reported by the server.
// The set of implementations is closed: only the types in this package
// satisfy it. All implementations are comparable, so two notifications are
// equal when they have the same variant and payload.
type Notification interface {
	// Kind reports the variant.
	Kind() Kind
	// String renders the event as one line of text without a trailing newline.
	String() string

	notification()
}

// ThreadInit is sent when a server thread for this client was initialized.
type ThreadInit struct{}

// Shutdown is sent when the server shut the client down.
type Shutdown struct {
	Status ClientStatus
	Reason string
}

// Freewheel is sent when freewheel mode is toggled.
type Freewheel struct {
	Enabled bool
}

// SampleRate is sent when the server sample rate changed.
type SampleRate struct {
	Rate Frames
}

// ClientRegistration is sent when a client appears or disappears.
type ClientRegistration struct {
	Name       string
	Registered bool
}

// PortRegistration is sent when a port appears or disappears.
type PortRegistration struct {
	Port       PortID
	Registered bool
}

// PortRename is sent when a port was renamed.
type PortRename struct {
	Port    PortID
	OldName string
	NewName string
}

// PortsConnected is sent when a connection between two ports changed.
type PortsConnected struct {
	PortA     PortID
	PortB     PortID
	Connected bool
}

// GraphReorder is sent when the processing graph was reordered.
type GraphReorder struct{}

// XRun is sent on a buffer overrun or underrun.
type XRun struct{}

func (ThreadInit) Kind() Kind         { return KindThreadInit }
func (Shutdown) Kind() Kind           { return KindShutdown }
func (Freewheel) Kind() Kind          { return KindFreewheel }
func (SampleRate) Kind() Kind         { return KindSampleRate }
func (ClientRegistration) Kind() Kind { return KindClientRegistration }
func (PortRegistration) Kind() Kind   { return KindPortRegistration }
func (PortRename) Kind() Kind         { return KindPortRename }
func (PortsConnected) Kind() Kind     { return KindPortsConnected }
func (GraphReorder) Kind() Kind       { return KindGraphReorder }
func (XRun) Kind() Kind               { return KindXRun }

func (ThreadInit) notification()         {}
func (Shutdown) notification()           {}
func (Freewheel) notification()          {}
func (SampleRate) notification()         {}
func (ClientRegistration) notification() {}
func (PortRegistration) notification()   {}
func (PortRename) notification()         {}
func (PortsConnected) notification()     {}
func (GraphReorder) notification()       {}
func (XRun) notification()               {}

const prefix = "JACK: "

func (ThreadInit) String() string {
	return prefix + "thread init"
}

func (n Shutdown) String() string {
	return fmt.Sprintf("%sshutdown with status %s because %s", prefix, n.Status, n.Reason)
}

func (n Freewheel) String() string {
	return prefix + "freewheel mode is " + onOff(n.Enabled)
}

func (n SampleRate) String() string {
	return fmt.Sprintf("%ssample rate changed to %d", prefix, n.Rate)
}

func (n ClientRegistration) String() string {
	return fmt.Sprintf("%s%s client with name %q", prefix, registered(n.Registered), n.Name)
}

func (n PortRegistration) String() string {
	return fmt.Sprintf("%s%s port with id %d", prefix, registered(n.Registered), n.Port)
}

func (n PortRename) String() string {
	return fmt.Sprintf("%sport with id %d renamed from %s to %s", prefix, n.Port, n.OldName, n.NewName)
}

func (n PortsConnected) String() string {
	state := "disconnected"
	if n.Connected {
		state = "connected"
	}
	return fmt.Sprintf("%sports with id %d and %d are %s", prefix, n.PortA, n.PortB, state)
}

func (GraphReorder) String() string {
	return prefix + "graph reordered"
}

func (XRun) String() string {
	return prefix + "xrun occurred"
}

// Render returns the human-readable form of n: exactly one line terminated
// by a single newline.
func Render(n Notification) string {
	return n.String() + "\n"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func registered(b bool) string {
	if b {
		return "registered"
	}
	return "unregistered"
}
