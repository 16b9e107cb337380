// Package descriptor allocates shader-visible texture descriptor indices.
//
// Two schemes are provided, matching the two host binding models:
//
//   - [Arena] is a fixed-size global array used with bindless binding.
//     Indices are persistent for the lifetime of a texture view and are
//     returned to a free stack when the view is destroyed. The first
//     indices can be reserved for null descriptors.
//   - [PagedHeap] is used with bindful binding. It grows by fixed-size
//     pages created on demand and recycles released slots through a
//     freelist. It is exhausted only when a new page cannot be created.
//
// Both implement [Allocator]. Neither is safe for concurrent use; the
// texture cache mutates them from the thread recording commands.
package descriptor
