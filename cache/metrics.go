package cache

// Metrics receives cache events. Implementations must be goroutine-safe and
// non-blocking: SizeBytes runs under the cache monitor lock.
type Metrics interface {
	Hit()
	Miss()
	Evict()
	SizeBytes(n int64)
}

// NoopMetrics discards all events. It is the default.
type NoopMetrics struct{}

func (NoopMetrics) Hit()            {}
func (NoopMetrics) Miss()           {}
func (NoopMetrics) Evict()          {}
func (NoopMetrics) SizeBytes(int64) {}

var _ Metrics = NoopMetrics{}
