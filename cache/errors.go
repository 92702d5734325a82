package cache

import "errors"

var (
	// ErrInvalidArgument is returned for zero budgets and zero archive sizes.
	ErrInvalidArgument = errors.New("cache: invalid argument")
	// ErrNullValue is returned when a nil Cacheable is acquired.
	ErrNullValue = errors.New("cache: null value")
	// ErrDuplicateKey is returned by LRUIndex.Add on an already-present key.
	ErrDuplicateKey = errors.New("cache: duplicate key")
	// ErrMissing is returned by LRUIndex operations on an absent key.
	// It surfacing out of a cache means a caller bug.
	ErrMissing = errors.New("cache: missing key")
	// ErrEmpty is returned when removing or peeking the oldest element
	// of an empty index.
	ErrEmpty = errors.New("cache: empty index")
	// ErrBadSequenceOfCalls is returned on accessor misuse: reading an
	// invalid accessor, or Add outside the loader contract.
	ErrBadSequenceOfCalls = errors.New("cache: bad sequence of calls")
)
