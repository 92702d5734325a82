package cache

import (
	fuzz "github.com/google/gofuzz"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("LRUIndex", func() {
	var l *LRUIndex[string, int]
	BeforeEach(func() {
		l = NewLRUIndex[string, int]()
	})

	It("orders removals oldest first", func() {
		for _, k := range []string{"d", "a", "c", "b"} {
			Expect(l.Add(k, 0)).To(Succeed())
		}
		for _, k := range []string{"a", "d", "b", "c", "d", "c"} {
			Expect(l.MakeMostRecent(k)).To(Succeed())
		}

		for _, want := range []string{"a", "b", "d", "c"} {
			k, _, err := l.PeekOldest()
			Expect(err).NotTo(HaveOccurred())
			Expect(k).To(Equal(want))
			k, _, err = l.RemoveOldest()
			Expect(err).NotTo(HaveOccurred())
			Expect(k).To(Equal(want))
		}
		Expect(l.IsEmpty()).To(BeTrue())

		_, _, err := l.PeekOldest()
		Expect(err).To(MatchError(ErrEmpty))
		_, _, err = l.RemoveOldest()
		Expect(err).To(MatchError(ErrEmpty))
	})

	It("carries payloads", func() {
		Expect(l.Add("a", 420)).To(Succeed())
		Expect(l.Add("b", 421)).To(Succeed())
		Expect(l.Add("c", 422)).To(Succeed())
		Expect(l.Add("d", 423)).To(Succeed())
		for _, k := range []string{"a", "d", "b", "c", "d", "c"} {
			Expect(l.MakeMostRecent(k)).To(Succeed())
		}

		Expect(l.Contains("b")).To(BeTrue())
		p, err := l.Invalidate("b")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(421))
		Expect(l.Contains("b")).To(BeFalse())

		for k, want := range map[string]int{"a": 420, "c": 422, "d": 423} {
			p, ok := l.Payload(k)
			Expect(ok).To(BeTrue())
			Expect(p).To(Equal(want))
		}

		for _, want := range []struct {
			key     string
			payload int
		}{{"a", 420}, {"d", 423}, {"c", 422}} {
			_, p, err := l.PeekOldest()
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(want.payload))
			k, p, err := l.RemoveOldest()
			Expect(err).NotTo(HaveOccurred())
			Expect(k).To(Equal(want.key))
			Expect(p).To(Equal(want.payload))
		}
		Expect(l.IsEmpty()).To(BeTrue())
	})

	It("updates payload on promote", func() {
		Expect(l.Add("a", 420)).To(Succeed())
		Expect(l.Add("b", 421)).To(Succeed())
		Expect(l.Add("d", 423)).To(Succeed())
		Expect(l.MakeMostRecentWithPayload("a", 424)).To(Succeed())
		Expect(l.MakeMostRecentWithPayload("d", 421)).To(Succeed())

		for _, want := range []struct {
			key     string
			payload int
		}{{"b", 421}, {"a", 424}, {"d", 421}} {
			k, p, err := l.RemoveOldest()
			Expect(err).NotTo(HaveOccurred())
			Expect(k).To(Equal(want.key))
			Expect(p).To(Equal(want.payload))
		}
		Expect(l.IsEmpty()).To(BeTrue())
	})

	It("upserts with AddOrMakeMostRecent", func() {
		l.AddOrMakeMostRecent("a", 420)
		l.AddOrMakeMostRecent("b", 421)
		l.AddOrMakeMostRecent("d", 423)
		l.AddOrMakeMostRecent("a", 424)
		l.AddOrMakeMostRecent("d", 421)

		for _, want := range []struct {
			key     string
			payload int
		}{{"b", 421}, {"a", 424}, {"d", 421}} {
			k, p, err := l.RemoveOldest()
			Expect(err).NotTo(HaveOccurred())
			Expect(k).To(Equal(want.key))
			Expect(p).To(Equal(want.payload))
		}
		Expect(l.IsEmpty()).To(BeTrue())
	})

	It("rejects duplicates and missing keys", func() {
		Expect(l.Add("a", 1)).To(Succeed())
		Expect(l.Add("a", 2)).To(MatchError(ErrDuplicateKey))
		Expect(l.MakeMostRecent("nope")).To(MatchError(ErrMissing))
		Expect(l.MakeMostRecentWithPayload("nope", 3)).To(MatchError(ErrMissing))
		_, err := l.Invalidate("nope")
		Expect(err).To(MatchError(ErrMissing))
	})

	It("snapshots keys", func() {
		Expect(l.Keys()).To(BeEmpty())
		Expect(l.Add("a", 1)).To(Succeed())
		Expect(l.Add("b", 2)).To(Succeed())
		Expect(l.Keys()).To(ConsistOf("a", "b"))
		Expect(l.Len()).To(Equal(2))
	})

	It("stays consistent with a reference model under random operations", func() {
		// Reference model: ordered slice of keys, front = most recent.
		var model []string
		modelIndex := func(k string) int {
			for i, mk := range model {
				if mk == k {
					return i
				}
			}
			return -1
		}

		f := fuzz.New().NilChance(0)
		var opCode uint8
		var keyByte uint8
		for op := 0; op < 5000; op++ {
			f.Fuzz(&opCode)
			f.Fuzz(&keyByte)
			k := string(rune('a' + keyByte%16))
			switch opCode % 5 {
			case 0:
				err := l.Add(k, op)
				if i := modelIndex(k); i >= 0 {
					Expect(err).To(MatchError(ErrDuplicateKey))
				} else {
					Expect(err).To(Succeed())
					model = append([]string{k}, model...)
				}
			case 1:
				err := l.MakeMostRecent(k)
				if i := modelIndex(k); i >= 0 {
					Expect(err).To(Succeed())
					model = append(model[:i], model[i+1:]...)
					model = append([]string{k}, model...)
				} else {
					Expect(err).To(MatchError(ErrMissing))
				}
			case 2:
				l.AddOrMakeMostRecent(k, op)
				if i := modelIndex(k); i >= 0 {
					model = append(model[:i], model[i+1:]...)
				}
				model = append([]string{k}, model...)
			case 3:
				_, err := l.Invalidate(k)
				if i := modelIndex(k); i >= 0 {
					Expect(err).To(Succeed())
					model = append(model[:i], model[i+1:]...)
				} else {
					Expect(err).To(MatchError(ErrMissing))
				}
			case 4:
				k, _, err := l.RemoveOldest()
				if len(model) > 0 {
					Expect(err).To(Succeed())
					Expect(k).To(Equal(model[len(model)-1]))
					model = model[:len(model)-1]
				} else {
					Expect(err).To(MatchError(ErrEmpty))
				}
			}
			Expect(l.Len()).To(Equal(len(model)))
		}
	})
})
