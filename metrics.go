package thumbcache

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meigma/thumbcache/internal/index"
)

var (
	hitLabels  = prometheus.Labels{"result": "hit"}
	missLabels = prometheus.Labels{"result": "miss"}
)

// metrics is a nil-safe set of cache collectors. A nil *metrics records
// nothing.
type metrics struct {
	lookups       *prometheus.CounterVec
	inserts       prometheus.Counter
	evictions     prometheus.Counter
	invalidations prometheus.Counter
	entries       prometheus.Gauge
	bytes         prometheus.Gauge
	maxBytes      prometheus.Gauge
	loadSeconds   prometheus.Histogram
}

func newMetrics(namespace string, reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, errors.New("thumbcache: metrics registerer is nil")
	}
	m := &metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Thumbnail lookups by result.",
		}, []string{"result"}),
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inserts_total",
			Help:      "Thumbnails written to the cache.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Thumbnails evicted to respect the byte budget.",
		}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidations_total",
			Help:      "Thumbnails removed by explicit invalidation.",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Thumbnails currently indexed.",
		}),
		bytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bytes",
			Help:      "Total size of indexed thumbnails.",
		}),
		maxBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_bytes",
			Help:      "Configured byte budget.",
		}),
		loadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time spent rebuilding the index from disk.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	var errs []error
	for _, col := range []prometheus.Collector{
		m.lookups, m.inserts, m.evictions, m.invalidations,
		m.entries, m.bytes, m.maxBytes, m.loadSeconds,
	} {
		if err := reg.Register(col); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metrics) lookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.lookups.With(hitLabels).Inc()
	} else {
		m.lookups.With(missLabels).Inc()
	}
}

func (m *metrics) insert() {
	if m != nil {
		m.inserts.Inc()
	}
}

func (m *metrics) evict() {
	if m != nil {
		m.evictions.Inc()
	}
}

func (m *metrics) invalidate() {
	if m != nil {
		m.invalidations.Inc()
	}
}

func (m *metrics) loaded(d time.Duration) {
	if m != nil {
		m.loadSeconds.Observe(d.Seconds())
	}
}

func (m *metrics) setMaxBytes(n int64) {
	if m != nil {
		m.maxBytes.Set(float64(n))
	}
}

func (m *metrics) observe(ix *index.Index) {
	if m == nil {
		return
	}
	m.entries.Set(float64(ix.Len()))
	m.bytes.Set(float64(ix.TotalSize()))
}
