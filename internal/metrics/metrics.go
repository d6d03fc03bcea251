// Package metrics exposes Prometheus counters for the notification stream.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jmylchreest/jacknotify/internal/notify"
)

var (
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jacknotify_events_total",
		Help: "Total number of JACK notifications received, by kind",
	}, []string{"kind"})

	DroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jacknotify_events_dropped_total",
		Help: "Total number of JACK notifications dropped because the watcher had stopped while the client was still active",
	}, []string{"kind"})

	XRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jacknotify_xruns_total",
		Help: "Total number of xruns reported by the JACK server",
	})

	SampleRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jacknotify_sample_rate_hz",
		Help: "Last sample rate reported by the JACK server",
	})

	Freewheel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jacknotify_freewheel",
		Help: "1 while the JACK server is in freewheel mode",
	})

	ClientActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jacknotify_client_active",
		Help: "1 while the JACK client is activated",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jacknotify_queue_depth",
		Help: "Notifications buffered in the channel at the last poll",
	})
)

// droppedByKind holds the DroppedTotal child of every kind so RecordDrop,
// which runs on the JACK callback thread, never hashes labels or allocates.
var droppedByKind = func() []prometheus.Counter {
	kinds := notify.AllKinds()
	counters := make([]prometheus.Counter, len(kinds))
	for _, k := range kinds {
		counters[k] = DroppedTotal.WithLabelValues(k.String())
	}
	return counters
}()

// RecordEvent counts a received notification and updates the gauges it affects.
func RecordEvent(n notify.Notification) {
	EventsTotal.WithLabelValues(n.Kind().String()).Inc()

	switch v := n.(type) {
	case notify.XRun:
		XRunsTotal.Inc()
	case notify.SampleRate:
		SampleRate.Set(float64(v.Rate))
	case notify.Freewheel:
		Freewheel.Set(boolGauge(v.Enabled))
	case notify.Shutdown:
		ClientActive.Set(0)
	}
}

// RecordDrop counts a notification that could not be delivered.
// It is safe to call from the JACK callback thread.
func RecordDrop(kind notify.Kind) {
	if kind < 0 || int(kind) >= len(droppedByKind) {
		return
	}
	droppedByKind[kind].Inc()
}

// SetClientActive records whether the JACK client is running.
func SetClientActive(active bool) {
	ClientActive.Set(boolGauge(active))
}

// SetQueueDepth records the receiver backlog.
func SetQueueDepth(n int) {
	QueueDepth.Set(float64(n))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
