package notify

// Control is returned by callbacks that may ask the server to stop the client.
type Control int

const (
	// Continue keeps the client running.
	Continue Control = iota
	// Quit asks the server to shut the client down.
	Quit
)

func (c Control) String() string {
	if c == Quit {
		return "quit"
	}
	return "continue"
}

// NotificationHandler receives the server's notification callbacks.
//
// Methods are invoked on threads owned by the server, possibly several at
// once and some of them realtime: implementations must be safe for
// concurrent use, must not block and must not panic.
type NotificationHandler interface {
	ThreadInit()
	// Shutdown is called when the server tears the client down. The client
	// must not be used from inside this call.
	Shutdown(status ClientStatus, reason string)
	Freewheel(enabled bool)
	SampleRate(rate Frames) Control
	ClientRegistration(name string, registered bool)
	PortRegistration(port PortID, registered bool)
	PortRename(port PortID, oldName, newName string) Control
	PortsConnected(a, b PortID, connected bool)
	GraphReorder() Control
	XRun() Control
}

// ProcessHandler receives the realtime processing callbacks.
type ProcessHandler interface {
	Process(frames Frames) Control
	BufferSize(frames Frames) Control
}

// NopProcessHandler does no audio work and always continues. The server
// requires a process handler to be registered next to the notification
// handler.
type NopProcessHandler struct{}

// Process implements ProcessHandler.
func (NopProcessHandler) Process(Frames) Control { return Continue }

// BufferSize implements ProcessHandler.
func (NopProcessHandler) BufferSize(Frames) Control { return Continue }

// ChannelHandler is a NotificationHandler that forwards every callback as a
// Notification on a channel. Failed sends drop the event silently; callbacks
// that return a Control answer Quit in that case, since nobody is listening.
type ChannelHandler struct {
	sender *Sender
	onDrop func(Kind)
}

// HandlerOption configures a ChannelHandler.
type HandlerOption func(*ChannelHandler)

// WithDropHook registers fn to be called, on the callback thread, whenever an
// event could not be delivered. fn must not block.
func WithDropHook(fn func(Kind)) HandlerOption {
	return func(h *ChannelHandler) {
		h.onDrop = fn
	}
}

// NewChannelHandler returns a handler forwarding to sender.
func NewChannelHandler(sender *Sender, opts ...HandlerOption) *ChannelHandler {
	h := &ChannelHandler{sender: sender}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// send never lets a panic escape onto the server's thread.
func (h *ChannelHandler) send(n Notification) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if err := h.sender.Send(n); err != nil {
		if h.onDrop != nil {
			h.onDrop(n.Kind())
		}
		return false
	}
	return true
}

func (h *ChannelHandler) control(n Notification) Control {
	if h.send(n) {
		return Continue
	}
	return Quit
}

// ThreadInit implements NotificationHandler.
func (h *ChannelHandler) ThreadInit() {
	h.send(ThreadInit{})
}

// Shutdown implements NotificationHandler. It only builds and sends the event.
func (h *ChannelHandler) Shutdown(status ClientStatus, reason string) {
	h.send(Shutdown{Status: status, Reason: reason})
}

// Freewheel implements NotificationHandler.
func (h *ChannelHandler) Freewheel(enabled bool) {
	h.send(Freewheel{Enabled: enabled})
}

// SampleRate implements NotificationHandler.
func (h *ChannelHandler) SampleRate(rate Frames) Control {
	return h.control(SampleRate{Rate: rate})
}

// ClientRegistration implements NotificationHandler.
func (h *ChannelHandler) ClientRegistration(name string, registered bool) {
	h.send(ClientRegistration{Name: name, Registered: registered})
}

// PortRegistration implements NotificationHandler.
func (h *ChannelHandler) PortRegistration(port PortID, registered bool) {
	h.send(PortRegistration{Port: port, Registered: registered})
}

// PortRename implements NotificationHandler.
func (h *ChannelHandler) PortRename(port PortID, oldName, newName string) Control {
	return h.control(PortRename{Port: port, OldName: oldName, NewName: newName})
}

// PortsConnected implements NotificationHandler.
func (h *ChannelHandler) PortsConnected(a, b PortID, connected bool) {
	h.send(PortsConnected{PortA: a, PortB: b, Connected: connected})
}

// GraphReorder implements NotificationHandler.
func (h *ChannelHandler) GraphReorder() Control {
	return h.control(GraphReorder{})
}

// XRun implements NotificationHandler.
func (h *ChannelHandler) XRun() Control {
	return h.control(XRun{})
}

var (
	_ NotificationHandler = (*ChannelHandler)(nil)
	_ ProcessHandler      = NopProcessHandler{}
)
