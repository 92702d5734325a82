package cache

import (
	"time"

	"github.com/google/uuid"
)

// Clock observes wall-clock time for Accessor.InsertionTime.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// IDGenerator produces collision-free tokens for SharedArchive entries.
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

// UUIDGenerator returns a generator of random v4 UUID strings.
func UUIDGenerator() IDGenerator { return uuidGenerator{} }
