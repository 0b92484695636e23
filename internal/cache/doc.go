// Package cache provides a bounded, thread-safe LRU cache.
//
//	c := cache.New[string, []uint32](16)
//	code, err := c.GetOrCreate(src, func() ([]uint32, error) { return compile(src) })
package cache
