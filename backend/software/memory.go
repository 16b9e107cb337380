package software

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/texcache/gpucore"
)

// buffer is a linear byte buffer, or a sparse one whose heap-sized pages
// are backed by heaps.
type buffer struct {
	size uint64
	data []byte

	sparse   bool
	heapSize uint64
	pages    map[uint64]gpucore.HeapID
}

// span returns n bytes of the buffer at off, or nil when the range is out
// of bounds or, for sparse buffers, not backed by a heap. A sparse span
// never crosses a heap boundary.
func (b *Backend) span(buf *buffer, off, n uint64) []byte {
	if off+n > buf.size || off+n < off {
		return nil
	}
	if !buf.sparse {
		return buf.data[off : off+n]
	}
	if buf.heapSize == 0 {
		return nil
	}
	page := off / buf.heapSize
	if (off+n-1)/buf.heapSize != page {
		return nil
	}
	heap, ok := buf.pages[page]
	if !ok {
		return nil
	}
	in := off - page*buf.heapSize
	return b.heaps[heap][in : in+n]
}

// CreateBuffer creates a zeroed linear buffer.
func (b *Backend) CreateBuffer(size uint64) gpucore.BufferID {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := gpucore.BufferID(b.ids.Next())
	b.buffers[id] = &buffer{size: size, data: make([]byte, size)}
	return id
}

// DestroyBuffer releases a linear buffer.
func (b *Backend) DestroyBuffer(id gpucore.BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.buffers, id)
}

// BufferBytes returns the storage of a linear buffer, nil for sparse or
// unknown buffers.
func (b *Backend) BufferBytes(id gpucore.BufferID) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[id]
	if !ok || buf.sparse {
		return nil
	}
	return buf.data
}

// WriteBuffer copies data into a buffer at offset. Sparse writes must
// stay inside one committed heap.
func (b *Backend) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", ErrUnknownResource, id)
	}
	dst := b.span(buf, offset, uint64(len(data)))
	if dst == nil {
		return fmt.Errorf("%w: buffer %d [%d, +%d)", ErrOutOfRange, id, offset, len(data))
	}
	copy(dst, data)
	return nil
}

// ReadBuffer copies len(dst) bytes of a buffer at offset into dst.
func (b *Backend) ReadBuffer(id gpucore.BufferID, offset uint64, dst []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", ErrUnknownResource, id)
	}
	src := b.span(buf, offset, uint64(len(dst)))
	if src == nil {
		return fmt.Errorf("%w: buffer %d [%d, +%d)", ErrOutOfRange, id, offset, len(dst))
	}
	copy(dst, src)
	return nil
}

// === resolve.SparseHost ===

// CreateSparseBuffer implements resolve.SparseHost.
func (b *Backend) CreateSparseBuffer(size uint64) (gpucore.BufferID, error) {
	if !b.caps.SparseBuffers {
		return gpucore.InvalidID, ErrSparseUnsupported
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := gpucore.BufferID(b.ids.Next())
	b.buffers[id] = &buffer{size: size, sparse: true, pages: make(map[uint64]gpucore.HeapID)}
	slogger().Debug("software: sparse buffer created", "id", id, "size", size)
	return id, nil
}

// DestroySparseBuffer implements resolve.SparseHost.
func (b *Backend) DestroySparseBuffer(id gpucore.BufferID) {
	b.DestroyBuffer(id)
}

// CreateHeap implements resolve.SparseHost.
func (b *Backend) CreateHeap(size uint64) (gpucore.HeapID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := gpucore.HeapID(b.ids.Next())
	b.heaps[id] = make([]byte, size)
	b.stats.HeapBytes += size
	return id, nil
}

// DestroyHeap implements resolve.SparseHost. Mappings of the heap become
// unbacked.
func (b *Backend) DestroyHeap(id gpucore.HeapID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	heap, ok := b.heaps[id]
	if !ok {
		return
	}
	b.stats.HeapBytes -= uint64(len(heap))
	delete(b.heaps, id)
	for _, buf := range b.buffers {
		for page, h := range buf.pages {
			if h == id {
				delete(buf.pages, page)
			}
		}
	}
}

// MapHeap implements resolve.SparseHost. All heaps mapped into one buffer
// must have the same size, and offset must be a multiple of it.
func (b *Backend) MapHeap(id gpucore.BufferID, offset uint64, heap gpucore.HeapID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[id]
	if !ok || !buf.sparse {
		return fmt.Errorf("%w: sparse buffer %d", ErrUnknownResource, id)
	}
	mem, ok := b.heaps[heap]
	if !ok {
		return fmt.Errorf("%w: heap %d", ErrUnknownResource, heap)
	}
	size := uint64(len(mem))
	if buf.heapSize == 0 {
		buf.heapSize = size
	}
	if size != buf.heapSize || offset%size != 0 || offset+size > buf.size {
		return fmt.Errorf("%w: heap of %d bytes at %d in buffer %d", ErrOutOfRange, size, offset, id)
	}
	buf.pages[offset/size] = heap
	return nil
}

// GuestMemory is resident guest memory in one linear buffer. It
// implements texture.SharedMemory.
type GuestMemory struct {
	b    *Backend
	id   gpucore.BufferID
	data []byte
}

// NewGuestMemory creates size bytes of guest memory on b.
func NewGuestMemory(b *Backend, size uint32) *GuestMemory {
	id := b.CreateBuffer(uint64(size))
	return &GuestMemory{b: b, id: id, data: b.BufferBytes(id)}
}

// RequestRange implements texture.SharedMemory. All of guest memory is
// always resident.
func (m *GuestMemory) RequestRange(start, length uint32) bool {
	return uint64(start)+uint64(length) <= uint64(len(m.data))
}

// Buffer implements texture.SharedMemory.
func (m *GuestMemory) Buffer() gpucore.BufferID { return m.id }

// Bytes returns guest memory.
func (m *GuestMemory) Bytes() []byte { return m.data }

// Write copies p to guest address addr.
func (m *GuestMemory) Write(addr uint32, p []byte) error {
	if uint64(addr)+uint64(len(p)) > uint64(len(m.data)) {
		return fmt.Errorf("%w: guest [%#x, +%d)", ErrOutOfRange, addr, len(p))
	}
	copy(m.data[addr:], p)
	return nil
}

// PutUint32 stores v at guest address addr in the given byte order.
func (m *GuestMemory) PutUint32(addr uint32, v uint32, order binary.ByteOrder) error {
	var b [4]byte
	order.PutUint32(b[:], v)
	return m.Write(addr, b[:])
}
