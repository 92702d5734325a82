package cache

import (
	"io"
	"sync"
	"time"

	"github.com/facebookgo/stackerr"

	"github.com/jodogne/OrthancMirror-sub012/log"
)

// DefaultMaxBudget is the byte budget of caches constructed with a zero
// Options.MaxBudget.
const DefaultMaxBudget = 100 << 20 // 100 MiB

// Options configure ObjectCache and StringCache construction. Zero fields
// get defaults: DefaultMaxBudget, NoopMetrics, the system clock.
type Options struct {
	MaxBudget int64
	Metrics   Metrics
	Clock     Clock
}

func (o Options) withDefaults() Options {
	if o.MaxBudget <= 0 {
		o.MaxBudget = DefaultMaxBudget
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	return o
}

// ObjectCache maps keys to opaque cacheables under a byte budget, evicting
// the exact least recently used entries when the budget would overflow.
//
// Two locks are involved, always taken in the order content before monitor:
//   - content (reader/writer) protects the bodies of resident items.
//     Accessors hold it for their lifetime; size-changing operations take
//     it exclusively, so they wait for open accessors and never destroy an
//     item under a reader.
//   - monitor (exclusive, short) protects the structural state: the LRU
//     index and the byte accounting.
type ObjectCache struct {
	log     log.Logger
	metrics Metrics
	clock   Clock

	content sync.RWMutex

	monitor     sync.Mutex
	maxSize     int64
	currentSize int64
	index       *LRUIndex[string, *item]
}

func NewObjectCache(l log.Logger, opt Options) *ObjectCache {
	opt = opt.withDefaults()
	return &ObjectCache{
		log:     l,
		metrics: opt.Metrics,
		clock:   opt.Clock,
		maxSize: opt.MaxBudget,
		index:   NewLRUIndex[string, *item](),
	}
}

// MaxBudget returns the current byte budget.
func (c *ObjectCache) MaxBudget() int64 {
	c.monitor.Lock()
	defer c.monitor.Unlock()
	return c.maxSize
}

// CurrentSize returns the resident byte total.
func (c *ObjectCache) CurrentSize() int64 {
	c.monitor.Lock()
	defer c.monitor.Unlock()
	return c.currentSize
}

// Len returns the number of resident items.
func (c *ObjectCache) Len() int {
	c.monitor.Lock()
	defer c.monitor.Unlock()
	return c.index.Len()
}

// SetMaxBudget shrinks or grows the byte budget, evicting the oldest items
// until the resident total fits. It waits for all open accessors.
func (c *ObjectCache) SetMaxBudget(size int64) error {
	if size <= 0 {
		return stackerr.Wrap(ErrInvalidArgument)
	}
	// No accessor may stay open: recycling may destroy the item it reads.
	c.content.Lock()
	defer c.content.Unlock()
	c.monitor.Lock()
	defer c.monitor.Unlock()
	defer c.checkInvariants()

	c.recycle(size)
	c.maxSize = size
	return nil
}

// Acquire transfers ownership of value to the cache under the given key.
//
// A value larger than the whole budget is silently discarded: it could
// never fit. If the key is already resident the old value is kept and
// promoted, and the new value is discarded.
func (c *ObjectCache) Acquire(key string, value Cacheable) error {
	if value == nil {
		return stackerr.Wrap(ErrNullValue)
	}
	c.content.Lock()
	defer c.content.Unlock()
	c.monitor.Lock()
	defer c.monitor.Unlock()
	defer c.checkInvariants()

	size := value.MemoryUsage()
	switch {
	case size > c.maxSize:
		c.log.Tracef("Discard %q: %v bytes exceeds budget %v.", key, size, c.maxSize)
		c.destroy(key, value)
	case c.index.Contains(key):
		// Keep the resident value, just promote it.
		c.destroy(key, value)
		if err := c.index.MakeMostRecent(key); err != nil {
			c.log.Panic("resident key not in index: ", err)
		}
	default:
		c.recycle(c.maxSize - size)
		if err := c.index.Add(key, &item{value: value, time: c.clock.Now()}); err != nil {
			c.log.Panic("add of absent key failed: ", err)
		}
		c.currentSize += size
		c.metrics.SizeBytes(c.currentSize)
	}
	return nil
}

// Invalidate removes the key if resident; absent keys are a no-op.
// It waits for all open accessors.
func (c *ObjectCache) Invalidate(key string) {
	c.content.Lock()
	defer c.content.Unlock()
	c.monitor.Lock()
	defer c.monitor.Unlock()
	defer c.checkInvariants()

	it, err := c.index.Invalidate(key)
	if err != nil {
		return
	}
	size := it.value.MemoryUsage()
	c.destroy(key, it.value)
	c.currentSize -= size
	c.metrics.SizeBytes(c.currentSize)
}

// Clear evicts everything. It waits for all open accessors.
func (c *ObjectCache) Clear() {
	c.content.Lock()
	defer c.content.Unlock()
	c.monitor.Lock()
	defer c.monitor.Unlock()
	defer c.checkInvariants()

	c.recycle(0)
}

// recycle evicts oldest items until currentSize <= targetSize.
// The monitor lock must be held.
func (c *ObjectCache) recycle(targetSize int64) {
	for c.currentSize > targetSize {
		key, it, err := c.index.RemoveOldest()
		if err != nil {
			c.log.Panic("byte accounting out of sync with index: ", err)
		}
		size := it.value.MemoryUsage()
		c.destroy(key, it.value)
		c.currentSize -= size
		c.metrics.Evict()
		c.log.Infof("Evicted %q (%v bytes), %v bytes resident.", key, size, c.currentSize)
	}
	c.metrics.SizeBytes(c.currentSize)
}

// destroy releases a value leaving the cache. Close failures are swallowed
// and logged: destruction never propagates an error out of the cache.
func (c *ObjectCache) destroy(key string, value Cacheable) {
	closer, ok := value.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		c.log.Errorf("Close of %q failed: %v", key, err)
	}
}

// Accessor is a scoped handle on one ObjectCache entry. A valid accessor
// pins the entry by holding the content lock (shared, or exclusive when
// opened with unique) until Release.
type Accessor struct {
	cache    *ObjectCache
	item     *item
	unique   bool
	released bool
}

// Access opens an accessor on key, promoting the entry on a hit. On a miss
// the returned accessor is invalid and holds no locks. A valid accessor
// must be Released.
func (c *ObjectCache) Access(key string, unique bool) *Accessor {
	a := &Accessor{cache: c, unique: unique}
	if unique {
		c.content.Lock()
	} else {
		c.content.RLock()
	}

	// The monitor lock must be taken after the content lock.
	c.monitor.Lock()
	if it, ok := c.index.Payload(key); ok {
		a.item = it
		if err := c.index.MakeMostRecent(key); err != nil {
			c.monitor.Unlock()
			c.log.Panic("resident key not in index: ", err)
		}
		c.metrics.Hit()
	} else {
		c.metrics.Miss()
	}
	c.monitor.Unlock()

	if a.item == nil {
		// This key is not resident, no reason to keep the content lock.
		a.unlockContent()
		a.released = true
	}
	return a
}

// IsValid reports whether the accessor refers to a resident entry.
func (a *Accessor) IsValid() bool { return a.item != nil }

// Value returns the cached value. The reference must not outlive Release.
func (a *Accessor) Value() (Cacheable, error) {
	if !a.IsValid() {
		return nil, stackerr.Wrap(ErrBadSequenceOfCalls)
	}
	return a.item.value, nil
}

// InsertionTime returns when the entry was acquired.
func (a *Accessor) InsertionTime() (time.Time, error) {
	if !a.IsValid() {
		return time.Time{}, stackerr.Wrap(ErrBadSequenceOfCalls)
	}
	return a.item.time, nil
}

// Release drops the locks held by a valid accessor. Idempotent.
func (a *Accessor) Release() {
	if a.released {
		return
	}
	a.released = true
	a.item = nil
	a.unlockContent()
}

func (a *Accessor) unlockContent() {
	if a.unique {
		a.cache.content.Unlock()
	} else {
		a.cache.content.RUnlock()
	}
}
