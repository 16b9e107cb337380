// Package cache provides the generic recency primitives used by the
// texture cache and the backends.
//
// # Cache[K, V]
//
// A thread-safe map with a soft limit. When the limit is exceeded the
// least recently accessed 25% of entries are evicted and handed to an
// optional eviction callback, which backends use to destroy host objects
// such as samplers and pipelines:
//
//	samplers := cache.NewWithEvict[samplerKey, hal.Sampler](256, destroy)
//	s := samplers.GetOrCreate(key, create)
//
// # List[K]
//
// An intrusive doubly-linked recency list. It is not synchronized; the
// texture cache keeps one to walk textures from least to most recently
// used submission when it frees memory.
package cache
