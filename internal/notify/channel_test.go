package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestChannel_Empty(t *testing.T) {
	_, rx := NewChannel()

	n, err := rx.TryRecv()
	assert.Nil(t, n)
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Nil(t, rx.Drain())
	assert.Equal(t, 0, rx.Len())
}

func TestChannel_OrderPreserved(t *testing.T) {
	for _, count := range []int{0, 1, 10, 10000} {
		tx, rx := NewChannel()

		want := make([]Notification, 0, count)
		for i := 0; i < count; i++ {
			n := PortRegistration{Port: PortID(i), Registered: i%2 == 0}
			require.NoError(t, tx.Send(n))
			want = append(want, n)
		}
		assert.Equal(t, count, rx.Len())

		got := make([]Notification, 0, count)
		for {
			n, err := rx.TryRecv()
			if err != nil {
				require.ErrorIs(t, err, ErrEmpty)
				break
			}
			got = append(got, n)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("count=%d: received events differ (-want +got):\n%s", count, diff)
		}
	}
}

func TestChannel_InterleavedSendRecv(t *testing.T) {
	tx, rx := NewChannel()

	// Crosses the compaction threshold while the buffer is never empty.
	var want, got []Notification
	for i := 0; i < 5000; i++ {
		a, b := SampleRate{Rate: Frames(i)}, SampleRate{Rate: Frames(i) + 100000}
		require.NoError(t, tx.Send(a))
		require.NoError(t, tx.Send(b))
		want = append(want, a, b)

		n, err := rx.TryRecv()
		require.NoError(t, err)
		got = append(got, n)
	}
	assert.Equal(t, 5000, rx.Len())

	got = append(got, rx.Drain()...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("received events differ (-want +got):\n%s", diff)
	}
}

func TestChannel_Drain(t *testing.T) {
	tx, rx := NewChannel()
	require.NoError(t, tx.Send(XRun{}))
	require.NoError(t, tx.Send(GraphReorder{}))

	assert.Equal(t, []Notification{XRun{}, GraphReorder{}}, rx.Drain())
	assert.Nil(t, rx.Drain())

	_, err := rx.TryRecv()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestChannel_SenderClosedKeepsBuffered(t *testing.T) {
	tx, rx := NewChannel()
	require.NoError(t, tx.Send(ThreadInit{}))
	tx.Close()
	tx.Close()

	assert.True(t, rx.Disconnected())
	assert.ErrorIs(t, tx.Send(XRun{}), ErrDisconnected)

	n, err := rx.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, Notification(ThreadInit{}), n)

	_, err = rx.TryRecv()
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestChannel_ReceiverClosed(t *testing.T) {
	tx, rx := NewChannel()
	require.NoError(t, tx.Send(XRun{}))
	rx.Close()

	assert.ErrorIs(t, tx.Send(XRun{}), ErrDisconnected)
	assert.Equal(t, 0, rx.Len())
	_, err := rx.TryRecv()
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestChannel_RecvBlocksUntilSend(t *testing.T) {
	defer goleak.VerifyNone(t)

	tx, rx := NewChannel()
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = tx.Send(Freewheel{Enabled: true})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := rx.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, Notification(Freewheel{Enabled: true}), n)
}

func TestChannel_RecvUnblocksOnSenderClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	tx, rx := NewChannel()
	go func() {
		time.Sleep(20 * time.Millisecond)
		tx.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := rx.Recv(ctx)
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestChannel_RecvContextCancel(t *testing.T) {
	_, rx := NewChannel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rx.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChannel_ConcurrentProducers(t *testing.T) {
	defer goleak.VerifyNone(t)

	const producers = 8
	const perProducer = 2000

	tx, rx := NewChannel()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = tx.Send(PortsConnected{PortA: PortID(p), PortB: PortID(i), Connected: true})
			}
		}(p)
	}
	wg.Wait()

	// Each producer's events must arrive in its own send order.
	last := make(map[PortID]int)
	total := 0
	for _, n := range rx.Drain() {
		pc, ok := n.(PortsConnected)
		require.True(t, ok)
		prev, seen := last[pc.PortA]
		if seen {
			require.Equal(t, prev+1, int(pc.PortB), "producer %d out of order", pc.PortA)
		} else {
			require.Equal(t, 0, int(pc.PortB))
		}
		last[pc.PortA] = int(pc.PortB)
		total++
	}
	assert.Equal(t, producers*perProducer, total)
}
