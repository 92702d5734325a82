package cache

import (
	"sync"

	"github.com/facebookgo/stackerr"

	"github.com/jodogne/OrthancMirror-sub012/log"
)

// StringCache caches string blobs on top of an ObjectCache and coordinates
// concurrent producers so that at most one loader runs per absent key.
//
// When several accessors Fetch the same absent key, exactly one of them is
// told to load (Fetch reports a miss) and the others block on the condition
// variable. They wake either to observe the loaded value, or, when the
// loader released without adding, to race for the loader role again.
//
// The monitor mutex below is the cache's only externally observable lock;
// the inner ObjectCache locks nest strictly inside it.
type StringCache struct {
	inner *ObjectCache

	monitor sync.Mutex
	cond    *sync.Cond
	// loading holds keys some accessor has taken charge of producing.
	// A key is never simultaneously in loading and resident in inner.
	loading map[string]struct{}
}

func NewStringCache(l log.Logger, opt Options) *StringCache {
	c := &StringCache{
		inner:   NewObjectCache(l, opt),
		loading: make(map[string]struct{}),
	}
	c.cond = sync.NewCond(&c.monitor)
	return c
}

// MaxBudget returns the byte budget of the underlying cache.
func (c *StringCache) MaxBudget() int64 { return c.inner.MaxBudget() }

// SetMaxBudget mirrors ObjectCache.SetMaxBudget.
func (c *StringCache) SetMaxBudget(size int64) error {
	c.monitor.Lock()
	defer c.monitor.Unlock()
	return c.inner.SetMaxBudget(size)
}

// CurrentSize returns the resident byte total of the underlying cache.
func (c *StringCache) CurrentSize() int64 { return c.inner.CurrentSize() }

// Invalidate removes the key, revokes any in-flight loader claim on it and
// wakes all waiters.
func (c *StringCache) Invalidate(key string) {
	c.monitor.Lock()
	defer c.monitor.Unlock()
	defer c.checkInvariants()

	c.inner.Invalidate(key)
	delete(c.loading, key)
	c.cond.Broadcast()
}

// Access opens a new accessor. Accessors are not goroutine-safe; each
// concurrent reader opens its own.
func (c *StringCache) Access() *StringAccessor {
	return &StringAccessor{cache: c}
}

// lookup reads and promotes key in the inner cache.
// The monitor lock must be held.
func (c *StringCache) lookup(key string) (string, bool) {
	acc := c.inner.Access(key, false)
	defer acc.Release()
	if !acc.IsValid() {
		return "", false
	}
	value, _ := acc.Value()
	return string(value.(StringValue)), true
}

// StringAccessor represents one ongoing access to the string cache. After a
// Fetch miss it is the designated loader for that key and must either Add
// the value or Release so a waiter can take over.
type StringAccessor struct {
	cache     *StringCache
	loaderKey string
	loader    bool
}

// Fetch returns the cached value for key. ok == false means the key is
// absent and this accessor has become its loader.
func (a *StringAccessor) Fetch(key string) (value string, ok bool) {
	c := a.cache
	c.monitor.Lock()
	defer c.monitor.Unlock()

	if a.loader {
		// A previous Fetch miss was never followed by Add. Give up that
		// claim so the old key does not stay loading forever.
		delete(c.loading, a.loaderKey)
		a.loader = false
		c.cond.Broadcast()
	}

	for {
		if v, found := c.lookup(key); found {
			return v, true
		}
		if _, busy := c.loading[key]; !busy {
			break
		}
		// Another accessor is loading this key. Wait for it to either
		// publish the value or give up.
		c.cond.Wait()
	}

	c.loading[key] = struct{}{}
	a.loader = true
	a.loaderKey = key
	c.checkInvariants()
	return "", false
}

// Add publishes the loaded value and wakes all waiters. Only the designated
// loader may call it, at most once per Fetch miss.
//
// A value larger than the budget is accepted and discarded by the
// underlying cache; waiters then observe a miss and one takes over loading.
func (a *StringAccessor) Add(key, value string) error {
	c := a.cache
	c.monitor.Lock()
	defer c.monitor.Unlock()
	defer c.checkInvariants()

	if !a.loader || a.loaderKey != key {
		return stackerr.Wrap(ErrBadSequenceOfCalls)
	}
	if err := c.inner.Acquire(key, StringValue(value)); err != nil {
		return err
	}
	delete(c.loading, key)
	a.loader = false
	c.cond.Broadcast()
	return nil
}

// Release gives up the loader claim if Add was never called, waking waiters
// so one of them can retry loading. Idempotent, safe on non-loaders.
func (a *StringAccessor) Release() {
	if !a.loader {
		return
	}
	c := a.cache
	c.monitor.Lock()
	defer c.monitor.Unlock()

	delete(c.loading, a.loaderKey)
	a.loader = false
	c.cond.Broadcast()
}
