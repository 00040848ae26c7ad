package stream

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/tickwire/decoder"
)

// Metrics holds the Prometheus collectors updated by controllers.
//
// One Metrics value may be shared by any number of controllers. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	chunksReceived   prometheus.Counter
	bytesReceived    prometheus.Counter
	valuesDecoded    *prometheus.CounterVec
	valuesDropped    *prometheus.CounterVec
	heartbeats       prometheus.Counter
	incomplete       prometheus.Counter
	tensorsCompleted prometheus.Counter
	abortsTotal      *prometheus.CounterVec
	bufferedBytes    prometheus.Gauge
	activeSessions   prometheus.Gauge
	decodedPerChunk  prometheus.Histogram
}

// NewMetrics creates the stream collectors and registers them with registry.
//
// Parameters:
//   - registry: Registerer receiving the collectors, nil to skip registration
//
// Returns:
//   - *Metrics: The collectors
//   - error: The first registration error
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		chunksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tickwire",
			Subsystem: "stream",
			Name:      "chunks_received_total",
			Help:      "Total transport chunks fed to controllers",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tickwire",
			Subsystem: "stream",
			Name:      "bytes_received_total",
			Help:      "Total transport bytes fed to controllers",
		}),
		valuesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickwire",
			Subsystem: "stream",
			Name:      "values_decoded_total",
			Help:      "Total top-level values decoded, by type tag",
		}, []string{"tag"}),
		valuesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickwire",
			Subsystem: "stream",
			Name:      "values_dropped_total",
			Help:      "Total values skipped because of an unknown tag or a malformed tensor",
		}, []string{"tag"}),
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tickwire",
			Subsystem: "stream",
			Name:      "heartbeats_total",
			Help:      "Total keep-alive values received",
		}),
		incomplete: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tickwire",
			Subsystem: "stream",
			Name:      "incomplete_attempts_total",
			Help:      "Total decode attempts rolled back for lack of data",
		}),
		tensorsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tickwire",
			Subsystem: "stream",
			Name:      "tensors_completed_total",
			Help:      "Total tensors fully assembled",
		}),
		abortsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickwire",
			Subsystem: "stream",
			Name:      "aborts_total",
			Help:      "Total streams stopped by a fatal condition, by reason",
		}, []string{"reason"}),
		bufferedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tickwire",
			Subsystem: "stream",
			Name:      "buffered_bytes",
			Help:      "Bytes held by the most recently fed controller",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tickwire",
			Subsystem: "stream",
			Name:      "active_sessions",
			Help:      "Controllers created and not yet closed",
		}),
		decodedPerChunk: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tickwire",
			Subsystem: "stream",
			Name:      "values_per_chunk",
			Help:      "Top-level values decoded per fed chunk",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}

	if registry == nil {
		return m, nil
	}

	for _, c := range m.collectors() {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.chunksReceived,
		m.bytesReceived,
		m.valuesDecoded,
		m.valuesDropped,
		m.heartbeats,
		m.incomplete,
		m.tensorsCompleted,
		m.abortsTotal,
		m.bufferedBytes,
		m.activeSessions,
		m.decodedPerChunk,
	}
}

func (m *Metrics) chunk(n int) {
	if m == nil {
		return
	}
	m.chunksReceived.Inc()
	m.bytesReceived.Add(float64(n))
}

func (m *Metrics) decoded(d decoder.Decoded) {
	if m == nil {
		return
	}

	tag := d.Tag.String()
	switch {
	case d.Dropped:
		m.valuesDropped.WithLabelValues(tag).Inc()
	case d.Heartbeat:
		m.heartbeats.Inc()
	default:
		m.valuesDecoded.WithLabelValues(tag).Inc()
	}
}

func (m *Metrics) tensorCompleted() {
	if m == nil {
		return
	}
	m.tensorsCompleted.Inc()
}

func (m *Metrics) attemptIncomplete(buffered, values int) {
	if m == nil {
		return
	}
	m.incomplete.Inc()
	m.bufferedBytes.Set(float64(buffered))
	m.decodedPerChunk.Observe(float64(values))
}

func (m *Metrics) aborted(reason string) {
	if m == nil {
		return
	}
	m.abortsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
