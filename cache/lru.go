package cache

import "github.com/jodogne/OrthancMirror-sub012/internal/tag"

// Invariants of LRUIndex, checked after every mutation in debug builds:
// * index and list hold exactly the same keys.
// * {front sentinel, all nodes, back sentinel} form a correct doubly
//   linked list.
// * every index entry points to the node carrying its own key.
type lruNode[K comparable, P any] struct {
	key     K
	payload P
	prev    *lruNode[K, P]
	next    *lruNode[K, P]
}

// LRUIndex is an exact, totally ordered LRU container of key/payload pairs.
// The front is the most recently used element, the back the oldest.
// All operations are O(1). It performs no synchronization of its own.
type LRUIndex[K comparable, P any] struct {
	index map[K]*lruNode[K, P]

	// Sentinel nodes. Real nodes live between them:
	// nil <- front <-> node_0 <-> ... <-> node_(n-1) <-> back -> nil
	// Such structure prevents nil checks in list code.
	front *lruNode[K, P]
	back  *lruNode[K, P]
}

func NewLRUIndex[K comparable, P any]() *LRUIndex[K, P] {
	l := &LRUIndex[K, P]{index: make(map[K]*lruNode[K, P])}
	l.front, l.back = &lruNode[K, P]{}, &lruNode[K, P]{}
	link(l.front, l.back)
	return l
}

// Add pushes a new pair to the front. The key must not be present.
func (l *LRUIndex[K, P]) Add(key K, payload P) error {
	if _, ok := l.index[key]; ok {
		return ErrDuplicateKey
	}
	n := &lruNode[K, P]{key: key, payload: payload}
	l.index[key] = n
	l.attachFront(n)
	l.checkInvariants()
	return nil
}

// MakeMostRecent moves the key's node to the front, preserving its payload.
func (l *LRUIndex[K, P]) MakeMostRecent(key K) error {
	n, ok := l.index[key]
	if !ok {
		return ErrMissing
	}
	detach(n)
	l.attachFront(n)
	l.checkInvariants()
	return nil
}

// MakeMostRecentWithPayload is MakeMostRecent with an atomic payload update.
func (l *LRUIndex[K, P]) MakeMostRecentWithPayload(key K, payload P) error {
	n, ok := l.index[key]
	if !ok {
		return ErrMissing
	}
	n.payload = payload
	detach(n)
	l.attachFront(n)
	l.checkInvariants()
	return nil
}

// AddOrMakeMostRecent updates the payload and promotes the key when present,
// otherwise adds it at the front.
func (l *LRUIndex[K, P]) AddOrMakeMostRecent(key K, payload P) {
	if n, ok := l.index[key]; ok {
		n.payload = payload
		detach(n)
		l.attachFront(n)
	} else {
		n = &lruNode[K, P]{key: key, payload: payload}
		l.index[key] = n
		l.attachFront(n)
	}
	l.checkInvariants()
}

// Invalidate removes the key and returns its payload.
func (l *LRUIndex[K, P]) Invalidate(key K) (P, error) {
	n, ok := l.index[key]
	if !ok {
		var zero P
		return zero, ErrMissing
	}
	detach(n)
	delete(l.index, key)
	if tag.Debug {
		n.prev = nil
		n.next = nil
	}
	l.checkInvariants()
	return n.payload, nil
}

// RemoveOldest removes and returns the back pair.
func (l *LRUIndex[K, P]) RemoveOldest() (K, P, error) {
	if l.IsEmpty() {
		var zeroK K
		var zeroP P
		return zeroK, zeroP, ErrEmpty
	}
	n := l.back.prev
	detach(n)
	delete(l.index, n.key)
	if tag.Debug {
		n.prev = nil
		n.next = nil
	}
	l.checkInvariants()
	return n.key, n.payload, nil
}

// PeekOldest returns the back pair without removing it.
func (l *LRUIndex[K, P]) PeekOldest() (K, P, error) {
	if l.IsEmpty() {
		var zeroK K
		var zeroP P
		return zeroK, zeroP, ErrEmpty
	}
	n := l.back.prev
	return n.key, n.payload, nil
}

func (l *LRUIndex[K, P]) Contains(key K) bool {
	_, ok := l.index[key]
	return ok
}

// Payload returns the payload stored for key, without promoting it.
func (l *LRUIndex[K, P]) Payload(key K) (P, bool) {
	n, ok := l.index[key]
	if !ok {
		var zero P
		return zero, false
	}
	return n.payload, true
}

func (l *LRUIndex[K, P]) Len() int      { return len(l.index) }
func (l *LRUIndex[K, P]) IsEmpty() bool { return l.front.next == l.back }

// Keys returns a snapshot of all keys; order is unspecified.
func (l *LRUIndex[K, P]) Keys() []K {
	keys := make([]K, 0, len(l.index))
	for k := range l.index {
		keys = append(keys, k)
	}
	return keys
}

func (l *LRUIndex[K, P]) attachFront(n *lruNode[K, P]) {
	first := l.front.next
	link(l.front, n)
	link(n, first)
}

func link[K comparable, P any](a, b *lruNode[K, P]) { a.next, b.prev = b, a }

func detach[K comparable, P any](n *lruNode[K, P]) { link(n.prev, n.next) }
