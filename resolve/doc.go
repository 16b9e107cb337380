// Package resolve manages the draw-resolution-scaled copy of guest
// memory.
//
// With a resolution scale of sx*sy > 1, render target resolves write
// sx*sy times more bytes than the guest address space holds. The scaled
// space is split into 1GB regions and addressed through sparse buffers of
// up to 2GB, buffer i starting at region i. Device memory is committed
// lazily in heap-sized chunks and mapped into every buffer whose window
// covers the chunk, so each region is visible through two buffers.
//
// Only one buffer may own a region at a time. Moving ownership records an
// aliasing barrier, which the host treats as a full memory barrier.
//
//	m, err := resolve.NewManager(resolve.Config{ScaleX: 2, ScaleY: 2}, host, barriers)
//	if m.EnsureScaledResolveMemoryCommitted(start, length, 0) &&
//		m.MakeScaledResolveRangeCurrent(start, length, 0) {
//		buf, offset, _ := m.CurrentBuffer()
//		...
//	}
package resolve
