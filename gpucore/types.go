package gpucore

import "fmt"

// Resource IDs
//
// These opaque IDs represent host GPU resources. Each backend maintains a
// mapping between IDs and actual backend resources. IDs are uint64 to
// accommodate various backend handle sizes.

// BufferID is an opaque handle to a host buffer.
type BufferID uint64

// TextureID is an opaque handle to a host texture.
type TextureID uint64

// HeapID is an opaque handle to a block of device memory that can be
// mapped into sparse buffers.
type HeapID uint64

// DescriptorPageID is an opaque handle to a page of shader-visible
// descriptors.
type DescriptorPageID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// DescriptorHandle addresses one descriptor slot in a backend heap.
type DescriptorHandle struct {
	Page  DescriptorPageID
	Index uint32
}

func (h DescriptorHandle) String() string {
	return fmt.Sprintf("page %d slot %d", h.Page, h.Index)
}

// BufferSlice is a byte range of a buffer, used for constant uploads.
type BufferSlice struct {
	Buffer BufferID
	Offset uint64
	Size   uint64
}

// IDAllocator hands out increasing non-zero IDs. It is not safe for
// concurrent use.
type IDAllocator struct {
	next uint64
}

// Next returns a fresh ID.
func (a *IDAllocator) Next() uint64 {
	a.next++
	return a.next
}
