// Package testutil holds ginkgo helpers and deterministic fakes for the
// cache collaborator interfaces.
package testutil

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/onsi/ginkgo"
)

func Byf(format string, args ...interface{}) {
	ginkgo.By(fmt.Sprintf(format, args...))
	fmt.Fprintln(ginkgo.GinkgoWriter)
}

// FakeClock is a manually advanced cache.Clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SequentialIDs is a cache.IDGenerator producing "id-1", "id-2", ...
type SequentialIDs struct {
	mu sync.Mutex
	n  int
}

func (g *SequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "id-" + strconv.Itoa(g.n)
}
