//go:build !debug

package cache

func (l *LRUIndex[K, P]) checkInvariants() {}

func (c *ObjectCache) checkInvariants() {}

func (c *StringCache) checkInvariants() {}
