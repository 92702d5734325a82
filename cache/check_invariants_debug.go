//go:build debug

// Gomega should not be a dependency in non-debug builds.

package cache

import (
	"errors"
	"log"

	"github.com/facebookgo/stackerr"
	. "github.com/onsi/gomega"
)

var _ = func() (_ struct{}) {
	RegisterFailHandler(invariantFailHandler)
	return
}()

func invariantFailHandler(message string, callerSkip ...int) {
	skip := callerSkip[0] + 1
	log.Fatal("FATAL: invariants are broken:", stackerr.WrapSkip(errors.New(message), skip))
}

func (l *LRUIndex[K, P]) checkInvariants() {
	Expect(l.front.prev).To(BeNil())
	Expect(l.back.next).To(BeNil())
	var walked int
	for n := l.front.next; n != l.back; n = n.next {
		walked++
		Expect(n.prev.next).To(BeIdenticalTo(n))
		Expect(l.index[n.key]).To(BeIdenticalTo(n), "index entry refs another node")
	}
	Expect(l.back.prev.next).To(BeIdenticalTo(l.back))
	Expect(walked).To(Equal(len(l.index)), "index and list disagree on length")
}

// The monitor lock must be held.
func (c *ObjectCache) checkInvariants() {
	c.index.checkInvariants()
	var total int64
	for n := c.index.front.next; n != c.index.back; n = n.next {
		total += n.payload.value.MemoryUsage()
	}
	Expect(total).To(Equal(c.currentSize), "byte accounting out of sync")
	Expect(c.currentSize).To(BeNumerically("<=", c.maxSize), "budget overflow")
}

// The StringCache monitor lock must be held.
func (c *StringCache) checkInvariants() {
	for key := range c.loading {
		c.inner.monitor.Lock()
		resident := c.inner.index.Contains(key)
		c.inner.monitor.Unlock()
		Expect(resident).To(BeFalse(), "key both loading and resident: "+key)
	}
}
