package wgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/texture"
)

var _ texture.SharedMemory = (*GuestMemory)(nil)

// GuestMemory is resident guest memory in one storage buffer. Guest
// writes are uploaded through the queue; the GPU copy is always complete.
type GuestMemory struct {
	b    *Backend
	id   gpucore.BufferID
	size uint64
}

// NewGuestMemory creates size bytes of zeroed guest memory on b.
func NewGuestMemory(b *Backend, size uint32) (*GuestMemory, error) {
	id, err := b.CreateBuffer(uint64(size), gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst|gputypes.BufferUsageCopySrc)
	if err != nil {
		return nil, fmt.Errorf("wgpu: guest memory: %w", err)
	}
	return &GuestMemory{b: b, id: id, size: uint64(size)}, nil
}

// RequestRange implements texture.SharedMemory.
func (m *GuestMemory) RequestRange(start, length uint32) bool {
	return uint64(start)+uint64(length) <= m.size
}

// Buffer implements texture.SharedMemory.
func (m *GuestMemory) Buffer() gpucore.BufferID { return m.id }

// Size returns the size of guest memory in bytes.
func (m *GuestMemory) Size() uint64 { return m.size }

// Write uploads p to guest address addr. Unaligned edges are padded with
// zeros to whole words, so callers write word-aligned ranges.
func (m *GuestMemory) Write(addr uint32, p []byte) error {
	if uint64(addr)+uint64(len(p)) > m.size {
		return fmt.Errorf("%w: guest [%#x, +%d)", ErrOutOfRange, addr, len(p))
	}
	if addr&3 != 0 || len(p)&3 != 0 {
		start := addr &^ 3
		padded := make([]byte, (uint64(addr-start)+uint64(len(p))+3)&^3)
		copy(padded[addr-start:], p)
		addr, p = start, padded
	}
	return m.b.WriteBuffer(m.id, uint64(addr), p)
}

// PutUint32 stores v at guest address addr in the given byte order.
func (m *GuestMemory) PutUint32(addr uint32, v uint32, order binary.ByteOrder) error {
	var b [4]byte
	order.PutUint32(b[:], v)
	return m.Write(addr, b[:])
}

// Release destroys the guest memory buffer.
func (m *GuestMemory) Release() {
	m.b.DestroyBuffer(m.id)
}
