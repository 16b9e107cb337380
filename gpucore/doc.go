// Package gpucore provides the shared host GPU abstractions used by the
// texture cache and its backends.
//
// Host resources are referenced through opaque IDs ([TextureID],
// [BufferID], [HeapID]) so the cache logic never depends on a concrete
// graphics API. Each backend keeps the mapping between IDs and its own
// objects.
//
//	               +-----------------+
//	               |     texture     |
//	               |  (Cache logic)  |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|  wgpu backend   |          | software backend|
//	|  (hal.Device)   |          |  (Go slices)    |
//	+-----------------+          +-----------------+
//
// # Barriers
//
// Resource states are expressed with gputypes usage flags. The cache
// records transitions and aliasing barriers through the [Barriers] sink
// implemented by the command processor, in the exact order it computes
// them.
package gpucore
