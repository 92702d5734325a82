// Package cache provides the in-process caching core of the DICOM store:
// an exact LRU index, a byte-budgeted object cache, a string cache with
// single-flight load coordination, and a capacity-bounded shared archive
// for live session handles.
//
// All caches are safe for concurrent use. Eviction is size-driven and
// explicit-invalidation-driven only; there is no TTL and no persistence.
// Values are owned by the cache once admitted and are destroyed (Close is
// called when implemented) on eviction, invalidation or Clear.
package cache
