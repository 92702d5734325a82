package cache

import (
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/jodogne/OrthancMirror-sub012/internal/util"
	"github.com/jodogne/OrthancMirror-sub012/testutil"
)

var _ = Describe("StringCache", func() {
	var c *StringCache

	BeforeEach(func() {
		c = NewStringCache(testLogger(), Options{MaxBudget: 2})
	})

	// load stores key->value through the full accessor protocol.
	load := func(key, value string) {
		acc := c.Access()
		defer acc.Release()
		_, ok := acc.Fetch(key)
		ExpectWithOffset(1, ok).To(BeFalse())
		ExpectWithOffset(1, acc.Add(key, value)).To(Succeed())
	}

	// get fetches key, releasing any loader claim taken on a miss.
	get := func(key string) (string, bool) {
		acc := c.Access()
		defer acc.Release()
		return acc.Fetch(key)
	}

	It("rejects a zero budget", func() {
		err := c.SetMaxBudget(0)
		Expect(util.Unwrap(err)).To(MatchError(ErrInvalidArgument))
	})

	It("stores and recycles one-byte blobs in a two-byte budget", func() {
		_, ok := get("hello")
		Expect(ok).To(BeFalse())

		load("hello", "a")
		v, ok := get("hello")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("a"))
		_, ok = get("hello2")
		Expect(ok).To(BeFalse())

		load("hello2", "b")
		v, _ = get("hello")
		Expect(v).To(Equal("a"))
		v, _ = get("hello2")
		Expect(v).To(Equal("b"))

		By("admit-and-discard of a too-large value")
		load("hello3", "too large value")
		_, ok = get("hello3")
		Expect(ok).To(BeFalse())
		v, _ = get("hello")
		Expect(v).To(Equal("a"))

		By("eviction of the oldest on a fitting value")
		load("hello3", "c")
		_, ok = get("hello2") // recycled, "hello2" was oldest
		Expect(ok).To(BeFalse())
		v, _ = get("hello")
		Expect(v).To(Equal("a"))
		v, _ = get("hello3")
		Expect(v).To(Equal("c"))
	})

	It("invalidates single keys", func() {
		load("hello", "a")
		load("hello2", "b")

		c.Invalidate("hello")
		_, ok := get("hello")
		Expect(ok).To(BeFalse())
		v, ok := get("hello2")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("b"))
	})

	It("rejects Add from a non-loader", func() {
		acc := c.Access()
		defer acc.Release()
		err := acc.Add("k", "v")
		Expect(util.Unwrap(err)).To(MatchError(ErrBadSequenceOfCalls))
	})

	It("rejects a second Add after success", func() {
		acc := c.Access()
		defer acc.Release()
		_, ok := acc.Fetch("k")
		Expect(ok).To(BeFalse())
		Expect(acc.Add("k", "v")).To(Succeed())

		err := acc.Add("k", "w")
		Expect(util.Unwrap(err)).To(MatchError(ErrBadSequenceOfCalls))
	})

	Describe("single-flight", func() {
		It("blocks the second fetcher until the loader adds", func() {
			loader := c.Access()
			defer loader.Release()
			_, ok := loader.Fetch("k")
			Expect(ok).To(BeFalse())

			type result struct {
				value string
				ok    bool
			}
			results := make(chan result)
			go func() {
				defer GinkgoRecover()
				acc := c.Access()
				defer acc.Release()
				v, ok := acc.Fetch("k")
				results <- result{v, ok}
			}()
			Consistently(results).ShouldNot(Receive())

			Expect(loader.Add("k", "v")).To(Succeed())
			var r result
			Eventually(results).Should(Receive(&r))
			Expect(r.ok).To(BeTrue())
			Expect(r.value).To(Equal("v"))
		})

		It("promotes a waiter when the loader gives up", func() {
			loader := c.Access()
			_, ok := loader.Fetch("k")
			Expect(ok).To(BeFalse())

			type result struct {
				value string
				ok    bool
			}
			results := make(chan result)
			go func() {
				defer GinkgoRecover()
				acc := c.Access()
				defer acc.Release()
				v, ok := acc.Fetch("k")
				if !ok {
					// This accessor took over loading.
					Expect(acc.Add("k", "v2")).To(Succeed())
					v, ok = acc.Fetch("k")
				}
				results <- result{v, ok}
			}()
			Consistently(results).ShouldNot(Receive())

			loader.Release()
			var r result
			Eventually(results).Should(Receive(&r))
			Expect(r.ok).To(BeTrue())
			Expect(r.value).To(Equal("v2"))

			v, ok := get("k")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("v2"))
		})

		It("runs exactly one load among many racing fetchers", func() {
			const workers = 32
			var loads int32
			var wg sync.WaitGroup
			values := make(chan string, workers)

			wg.Add(workers)
			for i := 0; i < workers; i++ {
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					acc := c.Access()
					defer acc.Release()
					v, ok := acc.Fetch("k")
					if !ok {
						atomic.AddInt32(&loads, 1)
						Expect(acc.Add("k", "v")).To(Succeed())
						v, ok = acc.Fetch("k")
						Expect(ok).To(BeTrue())
					}
					values <- v
				}()
			}
			wg.Wait()

			Expect(loads).To(Equal(int32(1)))
			close(values)
			for v := range values {
				Expect(v).To(Equal("v"))
			}
		})
	})

	It("exposes the byte accounting of the inner cache", func() {
		Expect(c.SetMaxBudget(100)).To(Succeed())
		Expect(c.MaxBudget()).To(Equal(int64(100)))
		load("k", "four")
		Expect(c.CurrentSize()).To(Equal(int64(4)))
	})

	It("works with ginkgo helpers under load", func() {
		testutil.Byf("loading %v keys", 3)
		Expect(c.SetMaxBudget(100)).To(Succeed())
		for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
			load(kv[0], kv[1])
		}
		v, ok := get("b")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("2"))
	})
})
