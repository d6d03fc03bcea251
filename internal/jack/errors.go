package jack

import (
	"errors"
	"fmt"

	"github.com/jmylchreest/jacknotify/internal/notify"
)

var (
	// ErrConnection matches every *ConnectionError.
	ErrConnection = errors.New("jack: connection failed")
	// ErrActivation matches every *ActivationError.
	ErrActivation = errors.New("jack: activation failed")

	// ErrEmptyName is wrapped by a ConnectionError when no client name was given.
	ErrEmptyName = errors.New("client name cannot be empty")
	// ErrUnsupported is wrapped by a ConnectionError when the binary was
	// built without libjack.
	ErrUnsupported = errors.New("built without JACK support")
	// ErrServerUnavailable is wrapped when the server refused or could not
	// be reached.
	ErrServerUnavailable = errors.New("server unavailable")
)

// ConnectionError reports that no client could be opened.
type ConnectionError struct {
	Name   string
	Status notify.ClientStatus
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("jack: cannot open client %q (status %s): %v", e.Name, e.Status, e.Err)
	}
	return fmt.Sprintf("jack: cannot open client %q: %v", e.Name, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConnection) true.
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// ActivationError reports that a client was opened but could not be activated.
type ActivationError struct {
	Name string
	Err  error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("jack: cannot activate client %q: %v", e.Name, e.Err)
}

func (e *ActivationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrActivation) true.
func (e *ActivationError) Is(target error) bool { return target == ErrActivation }
