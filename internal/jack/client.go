package jack

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/jmylchreest/jacknotify/internal/notify"
)

// conn is an opened, not yet activated client as seen by Activate.
type conn interface {
	Name() string
	SampleRate() notify.Frames
	BufferSize() notify.Frames
	// Activate registers both handlers and starts callback delivery.
	Activate(n notify.NotificationHandler, p notify.ProcessHandler) error
	Deactivate() error
	Close() error
}

// openOptions are passed to the backend when opening a client.
type openOptions struct {
	// ServerName selects a named server; empty means the default server.
	ServerName string
}

// openClient is the backend entry point. It is replaced in tests.
var openClient = openBackend

type options struct {
	logger     *slog.Logger
	dropHook   func(notify.Kind)
	serverName string
}

// Option configures Activate.
type Option func(*options)

// WithLogger sets the logger used for connection lifecycle messages.
// Callbacks never log.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDropHook is called on the callback thread whenever an event is
// dropped because the receiver is gone. It must not block.
func WithDropHook(fn func(notify.Kind)) Option {
	return func(o *options) {
		o.dropHook = fn
	}
}

// WithServerName connects to a named server instead of the default one.
func WithServerName(name string) Option {
	return func(o *options) {
		o.serverName = name
	}
}

// ActiveClient is a live, activated client. Callbacks keep firing until Close.
type ActiveClient struct {
	conn    conn
	sender  *notify.Sender
	handler *notify.ChannelHandler
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Activate opens a client called name on the JACK server, wires a channel
// handler and a no-op process handler, and activates it. The server is never
// auto-started.
//
// On failure it returns a *ConnectionError or an *ActivationError and no
// receiver.
func Activate(name string, opts ...Option) (*ActiveClient, *notify.Receiver, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if name == "" {
		return nil, nil, &ConnectionError{Err: ErrEmptyName}
	}

	c, status, err := openClient(name, openOptions{ServerName: o.serverName})
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, nil, err
		}
		return nil, nil, &ConnectionError{Name: name, Status: status, Err: err}
	}
	o.logger.Debug("opened jack client", "requested", name, "name", c.Name(), "status", status.String())

	sender, receiver := notify.NewChannel()
	var hopts []notify.HandlerOption
	if o.dropHook != nil {
		hopts = append(hopts, notify.WithDropHook(o.dropHook))
	}
	handler := notify.NewChannelHandler(sender, hopts...)

	if err := c.Activate(handler, notify.NopProcessHandler{}); err != nil {
		sender.Close()
		if cerr := c.Close(); cerr != nil {
			o.logger.Warn("failed to close client after activation failure", "name", name, "error", cerr)
		}
		return nil, nil, &ActivationError{Name: name, Err: err}
	}

	o.logger.Info("jack client active",
		"name", c.Name(),
		"sample_rate", c.SampleRate(),
		"buffer_size", c.BufferSize())

	return &ActiveClient{
		conn:    c,
		sender:  sender,
		handler: handler,
		logger:  o.logger,
	}, receiver, nil
}

// Name returns the name the server assigned, which may differ from the
// requested one when it was not unique.
func (a *ActiveClient) Name() string {
	return a.conn.Name()
}

// SampleRate returns the current server sample rate.
func (a *ActiveClient) SampleRate() notify.Frames {
	return a.conn.SampleRate()
}

// BufferSize returns the current server buffer size.
func (a *ActiveClient) BufferSize() notify.Frames {
	return a.conn.BufferSize()
}

// Close deactivates and closes the client, then closes the sending side of
// the channel. Events already buffered stay readable. Close is idempotent.
func (a *ActiveClient) Close() error {
	a.closeOnce.Do(func() {
		if err := a.conn.Deactivate(); err != nil {
			a.logger.Warn("failed to deactivate jack client", "error", err)
		}
		a.closeErr = a.conn.Close()
		a.sender.Close()
		a.logger.Debug("jack client closed")
	})
	return a.closeErr
}
