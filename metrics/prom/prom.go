// Package prom exports cache events as Prometheus metrics.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jodogne/OrthancMirror-sub012/cache"
)

// Adapter implements cache.Metrics over Prometheus counters and gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	sizeBytes prometheus.Gauge
}

var _ cache.Metrics = (*Adapter)(nil)

// New constructs an adapter and registers its metrics.
//   - reg: registry to register with (nil => prometheus.DefaultRegisterer)
//   - ns, sub: Prometheus namespace and subsystem
func New(reg prometheus.Registerer, ns, sub string) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "hits_total",
			Help:      "Cache hits",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "misses_total",
			Help:      "Cache misses",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "evictions_total",
			Help:      "Entries evicted under budget pressure",
		}),
		sizeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "size_bytes",
			Help:      "Resident byte total",
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evictions, a.sizeBytes)
	return a
}

func (a *Adapter) Hit()   { a.hits.Inc() }
func (a *Adapter) Miss()  { a.misses.Inc() }
func (a *Adapter) Evict() { a.evictions.Inc() }

func (a *Adapter) SizeBytes(n int64) { a.sizeBytes.Set(float64(n)) }
