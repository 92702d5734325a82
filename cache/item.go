package cache

import "time"

// Cacheable is any value with a self-reported in-memory footprint, suitable
// as a cache payload. The estimate must stay stable for the lifetime of the
// value; MemoryUsage runs under the cache monitor lock and must not block.
//
// Ownership transfers to the cache on Acquire. If the value also implements
// io.Closer, Close is called when the value leaves the cache.
type Cacheable interface {
	MemoryUsage() int64
}

// StringValue adapts a string blob to Cacheable. Its footprint is its length.
type StringValue string

func (s StringValue) MemoryUsage() int64 { return int64(len(s)) }

// item wraps one resident cacheable with its insertion time.
// The time is set once at insertion and never mutated.
type item struct {
	value Cacheable
	time  time.Time
}
