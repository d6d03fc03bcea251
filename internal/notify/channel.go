package notify

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrEmpty is returned by TryRecv when no event is buffered but the
	// sending side is still alive.
	ErrEmpty = errors.New("notify: channel empty")

	// ErrDisconnected is returned by Send once the receiving side is closed,
	// and by the receive methods once the sending side is closed and every
	// buffered event has been consumed.
	ErrDisconnected = errors.New("notify: channel disconnected")
)

// queue is the state shared by a Sender and its Receiver.
// items[head:] holds the pending events in arrival order.
type queue struct {
	mu             sync.Mutex
	items          []Notification
	head           int
	senderClosed   bool
	receiverClosed bool

	// ready holds at most one wakeup token for a blocked Recv.
	ready chan struct{}
}

// NewChannel creates an unbounded channel of notifications.
// Sends never wait for the consumer: the buffer grows as needed.
func NewChannel() (*Sender, *Receiver) {
	q := &queue{ready: make(chan struct{}, 1)}
	return &Sender{q: q}, &Receiver{q: q}
}

func (q *queue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Sender is the producing end of a channel. It is safe for concurrent use.
type Sender struct {
	q *queue
}

// Send enqueues n. It never blocks on the consumer and returns
// ErrDisconnected when the receiver was closed or the sender itself was
// closed; the event is dropped in that case.
func (s *Sender) Send(n Notification) error {
	q := s.q
	q.mu.Lock()
	if q.receiverClosed || q.senderClosed {
		q.mu.Unlock()
		return ErrDisconnected
	}
	q.items = append(q.items, n)
	q.mu.Unlock()
	q.wake()
	return nil
}

// Close marks the sending side as gone. Events already buffered stay
// readable. Close is idempotent.
func (s *Sender) Close() {
	q := s.q
	q.mu.Lock()
	q.senderClosed = true
	q.mu.Unlock()
	q.wake()
}

// Receiver is the consuming end of a channel. It is meant to be read from a
// single goroutine.
type Receiver struct {
	q *queue
}

// TryRecv removes and returns the oldest buffered event without blocking.
func (r *Receiver) TryRecv() (Notification, error) {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *queue) popLocked() (Notification, error) {
	if q.head < len(q.items) {
		n := q.items[q.head]
		q.items[q.head] = nil
		q.head++
		switch {
		case q.head == len(q.items):
			q.items = q.items[:0]
			q.head = 0
		case q.head >= 1024 && q.head*2 >= len(q.items):
			// Reclaim the consumed prefix after a burst.
			m := copy(q.items, q.items[q.head:])
			clear(q.items[m:])
			q.items = q.items[:m]
			q.head = 0
		}
		return n, nil
	}
	if q.senderClosed || q.receiverClosed {
		return nil, ErrDisconnected
	}
	return nil, ErrEmpty
}

// Recv blocks until an event is available, the channel is disconnected or
// ctx is done.
func (r *Receiver) Recv(ctx context.Context) (Notification, error) {
	for {
		n, err := r.TryRecv()
		if !errors.Is(err, ErrEmpty) {
			return n, err
		}
		select {
		case <-r.q.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Drain removes and returns every currently buffered event in order.
// It returns nil when nothing is buffered.
func (r *Receiver) Drain() []Notification {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := len(q.items) - q.head
	if pending == 0 {
		return nil
	}
	out := make([]Notification, pending)
	copy(out, q.items[q.head:])
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
	return out
}

// Len reports the number of buffered events.
func (r *Receiver) Len() int {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Disconnected reports whether the sender was closed. Buffered events may
// still be pending.
func (r *Receiver) Disconnected() bool {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.senderClosed
}

// Close drops the receiving end: buffered events are discarded and every
// later Send fails with ErrDisconnected.
func (r *Receiver) Close() {
	q := r.q
	q.mu.Lock()
	q.receiverClosed = true
	clear(q.items)
	q.items = nil
	q.head = 0
	q.mu.Unlock()
	q.wake()
}
