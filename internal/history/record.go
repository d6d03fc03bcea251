// Package history records received notifications and keeps them in a JSONL
// event log.
package history

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/jacknotify/internal/notify"
)

// Record is a notification stamped with an ID and the time it was received.
// Payload fields are flattened; fields that do not apply to Kind are zero.
type Record struct {
	ID        string      `json:"id" yaml:"id"`
	Timestamp int64       `json:"timestamp" yaml:"timestamp"` // Unix milliseconds
	Client    string      `json:"client,omitempty" yaml:"client,omitempty"`
	Kind      notify.Kind `json:"kind" yaml:"kind"`
	Text      string      `json:"text" yaml:"text"`

	StatusCode uint32 `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Status     string `json:"status,omitempty" yaml:"status,omitempty"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Enabled    bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Rate       uint32 `json:"rate,omitempty" yaml:"rate,omitempty"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Registered bool   `json:"registered,omitempty" yaml:"registered,omitempty"`
	Port       uint32 `json:"port,omitempty" yaml:"port,omitempty"`
	PortB      uint32 `json:"port_b,omitempty" yaml:"port_b,omitempty"`
	OldName    string `json:"old_name,omitempty" yaml:"old_name,omitempty"`
	NewName    string `json:"new_name,omitempty" yaml:"new_name,omitempty"`
	Connected  bool   `json:"connected,omitempty" yaml:"connected,omitempty"`
}

// Validation errors.
var (
	ErrEmptyID          = errors.New("id cannot be empty")
	ErrInvalidTimestamp = errors.New("timestamp must be greater than 0")
	ErrUnknownKind      = errors.New("unknown notification kind")
)

// NewRecord stamps n with a fresh ULID and the time at.
func NewRecord(n notify.Notification, client string, at time.Time) (Record, error) {
	id, err := ulid.New(ulid.Timestamp(at), rand.Reader)
	if err != nil {
		return Record{}, fmt.Errorf("failed to generate ULID: %w", err)
	}

	r := Record{
		ID:        id.String(),
		Timestamp: at.UnixMilli(),
		Client:    client,
		Kind:      n.Kind(),
		Text:      n.String(),
	}

	switch v := n.(type) {
	case notify.Shutdown:
		r.StatusCode = uint32(v.Status)
		r.Status = v.Status.String()
		r.Reason = v.Reason
	case notify.Freewheel:
		r.Enabled = v.Enabled
	case notify.SampleRate:
		r.Rate = uint32(v.Rate)
	case notify.ClientRegistration:
		r.Name = v.Name
		r.Registered = v.Registered
	case notify.PortRegistration:
		r.Port = uint32(v.Port)
		r.Registered = v.Registered
	case notify.PortRename:
		r.Port = uint32(v.Port)
		r.OldName = v.OldName
		r.NewName = v.NewName
	case notify.PortsConnected:
		r.Port = uint32(v.PortA)
		r.PortB = uint32(v.PortB)
		r.Connected = v.Connected
	}

	return r, nil
}

// Notification rebuilds the event the record was created from.
func (r *Record) Notification() (notify.Notification, error) {
	switch r.Kind {
	case notify.KindThreadInit:
		return notify.ThreadInit{}, nil
	case notify.KindShutdown:
		return notify.Shutdown{Status: notify.ClientStatus(r.StatusCode), Reason: r.Reason}, nil
	case notify.KindFreewheel:
		return notify.Freewheel{Enabled: r.Enabled}, nil
	case notify.KindSampleRate:
		return notify.SampleRate{Rate: notify.Frames(r.Rate)}, nil
	case notify.KindClientRegistration:
		return notify.ClientRegistration{Name: r.Name, Registered: r.Registered}, nil
	case notify.KindPortRegistration:
		return notify.PortRegistration{Port: notify.PortID(r.Port), Registered: r.Registered}, nil
	case notify.KindPortRename:
		return notify.PortRename{Port: notify.PortID(r.Port), OldName: r.OldName, NewName: r.NewName}, nil
	case notify.KindPortsConnected:
		return notify.PortsConnected{
			PortA:     notify.PortID(r.Port),
			PortB:     notify.PortID(r.PortB),
			Connected: r.Connected,
		}, nil
	case notify.KindGraphReorder:
		return notify.GraphReorder{}, nil
	case notify.KindXRun:
		return notify.XRun{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(r.Kind))
	}
}

// Validate checks that the record has all required fields.
func (r *Record) Validate() error {
	if r.ID == "" {
		return ErrEmptyID
	}
	if r.Timestamp <= 0 {
		return ErrInvalidTimestamp
	}
	if _, err := r.Notification(); err != nil {
		return err
	}
	return nil
}

// Time returns the receive time.
func (r *Record) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// RelativeTime returns a human-readable relative time such as "3 minutes ago".
func (r *Record) RelativeTime() string {
	return humanize.Time(r.Time())
}
