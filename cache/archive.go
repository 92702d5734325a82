package cache

import (
	"io"
	"sync"

	"github.com/facebookgo/stackerr"

	"github.com/jodogne/OrthancMirror-sub012/log"
)

// SharedArchive owns a bounded number of live session handles (for example
// prepared downloads), indexed by freshly generated unique ids. Inserting
// into a full archive drops the oldest handle.
//
// Opening an accessor marks its entry most recent, so any actively touched
// handle stays alive across subsequent insertions.
type SharedArchive[T any] struct {
	log log.Logger
	ids IDGenerator

	mu      sync.Mutex
	maxSize int
	index   *LRUIndex[string, T]
}

// NewSharedArchive creates an archive holding at most maxSize handles,
// identified by random UUIDs.
func NewSharedArchive[T any](l log.Logger, maxSize int) (*SharedArchive[T], error) {
	return NewSharedArchiveIDs[T](l, maxSize, UUIDGenerator())
}

// NewSharedArchiveIDs is NewSharedArchive with a custom id generator.
// Generated ids must be collision-free over the archive's lifetime.
func NewSharedArchiveIDs[T any](l log.Logger, maxSize int, ids IDGenerator) (*SharedArchive[T], error) {
	if maxSize <= 0 {
		return nil, stackerr.Wrap(ErrInvalidArgument)
	}
	return &SharedArchive[T]{
		log:     l,
		ids:     ids,
		maxSize: maxSize,
		index:   NewLRUIndex[string, T](),
	}, nil
}

// Add takes ownership of obj and returns its fresh id.
func (a *SharedArchive[T]) Add(obj T) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.index.Len() == a.maxSize {
		a.evictOldest()
	}
	id := a.ids.NewID()
	if err := a.index.Add(id, obj); err != nil {
		a.log.Panic("generated id collides: ", err)
	}
	return id
}

// Remove drops the handle if present; absent ids are a no-op.
func (a *SharedArchive[T]) Remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	handle, err := a.index.Invalidate(id)
	if err != nil {
		return
	}
	a.drop(id, handle)
}

// List returns a snapshot of the resident ids; order is unspecified.
func (a *SharedArchive[T]) List() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.index.Keys()
}

// Len returns the number of resident handles.
func (a *SharedArchive[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.index.Len()
}

// SetMaxSize re-applies the capacity at runtime, dropping oldest handles
// as needed.
func (a *SharedArchive[T]) SetMaxSize(size int) error {
	if size <= 0 {
		return stackerr.Wrap(ErrInvalidArgument)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	for a.index.Len() > size {
		a.evictOldest()
	}
	a.maxSize = size
	return nil
}

// The archive mutex must be held.
func (a *SharedArchive[T]) evictOldest() {
	id, handle, err := a.index.RemoveOldest()
	if err != nil {
		a.log.Panic("evict on empty archive: ", err)
	}
	a.drop(id, handle)
	a.log.Infof("Archive entry %s evicted.", id)
}

// drop releases an owned handle. Close failures are swallowed and logged.
func (a *SharedArchive[T]) drop(id string, handle T) {
	closer, ok := any(handle).(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		a.log.Errorf("Close of archive entry %s failed: %v", id, err)
	}
}

// Open looks up id, promotes its entry and keeps the whole archive locked
// until Release, so the borrowed handle cannot be dropped meanwhile.
// Release must be called even on an invalid accessor.
func (a *SharedArchive[T]) Open(id string) *ArchiveAccessor[T] {
	a.mu.Lock()
	acc := &ArchiveAccessor[T]{archive: a}
	if handle, ok := a.index.Payload(id); ok {
		acc.handle = handle
		acc.valid = true
		if err := a.index.MakeMostRecent(id); err != nil {
			a.log.Panic("resident id not in index: ", err)
		}
	}
	return acc
}

// ArchiveAccessor borrows one archive handle. It holds the archive mutex
// for its whole lifetime, so it must stay short-lived.
type ArchiveAccessor[T any] struct {
	archive  *SharedArchive[T]
	handle   T
	valid    bool
	released bool
}

// IsValid reports whether the id was found.
func (a *ArchiveAccessor[T]) IsValid() bool { return a.valid }

// Get returns the borrowed handle. It must not be used after Release.
func (a *ArchiveAccessor[T]) Get() (T, error) {
	if !a.valid {
		var zero T
		return zero, stackerr.Wrap(ErrBadSequenceOfCalls)
	}
	return a.handle, nil
}

// Release unlocks the archive. Idempotent.
func (a *ArchiveAccessor[T]) Release() {
	if a.released {
		return
	}
	a.released = true
	a.valid = false
	a.archive.mu.Unlock()
}
