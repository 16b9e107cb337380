package resolve

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/xenos"
)

// Address space geometry.
const (
	// RegionSizeLog2 is log2 of the ownership granularity, 1GB.
	RegionSizeLog2 = 30

	// BufferSizeLog2 is log2 of the largest virtual buffer, 2GB.
	BufferSizeLog2 = 31

	// DefaultPhysicalMemorySize is the guest physical address space.
	DefaultPhysicalMemorySize = 512 << 20

	// DefaultHeapSizeLog2 commits device memory in 16MB chunks.
	DefaultHeapSizeLog2 = 24
)

// Buffer states for the two roles of the scaled space.
const (
	// StateLoadSource is the state while texture loads read the buffer.
	StateLoadSource = gputypes.BufferUsageStorage

	// StateResolveTarget is the state while resolves write the buffer.
	StateResolveTarget = gputypes.BufferUsageCopyDst
)

var (
	// ErrDisabled is returned when the scale is 1x1 or the host has no
	// sparse buffers.
	ErrDisabled = errors.New("resolve: draw-resolution scaling disabled")

	// ErrRangeOutOfBounds is returned for ranges past the physical
	// address space.
	ErrRangeOutOfBounds = errors.New("resolve: range outside physical memory")

	// ErrRangeNotAddressable is returned when no single buffer covers a
	// range.
	ErrRangeNotAddressable = errors.New("resolve: range not addressable by one buffer")
)

// SparseHost creates reserved buffers and the heaps backing them.
type SparseHost interface {
	// CreateSparseBuffer reserves address space without backing memory.
	CreateSparseBuffer(size uint64) (gpucore.BufferID, error)
	DestroySparseBuffer(buf gpucore.BufferID)

	// CreateHeap allocates size bytes of device memory.
	CreateHeap(size uint64) (gpucore.HeapID, error)
	DestroyHeap(heap gpucore.HeapID)

	// MapHeap backs [offset, offset+heap size) of buf with heap.
	MapHeap(buf gpucore.BufferID, offset uint64, heap gpucore.HeapID) error
}

// Config configures the scaled address space.
type Config struct {
	// ScaleX and ScaleY are the draw-resolution scale factors. Zero means 1.
	ScaleX, ScaleY uint32

	// PhysicalMemorySize is the unscaled guest address space in bytes.
	// Zero means DefaultPhysicalMemorySize.
	PhysicalMemorySize uint64

	// HeapSizeLog2 is log2 of the commit granularity. Zero means
	// DefaultHeapSizeLog2. Clamped to [16, RegionSizeLog2].
	HeapSizeLog2 uint32
}

func (c Config) withDefaults() Config {
	c.ScaleX = max(c.ScaleX, 1)
	c.ScaleY = max(c.ScaleY, 1)
	if c.PhysicalMemorySize == 0 {
		c.PhysicalMemorySize = DefaultPhysicalMemorySize
	}
	if c.HeapSizeLog2 == 0 {
		c.HeapSizeLog2 = DefaultHeapSizeLog2
	}
	c.HeapSizeLog2 = min(max(c.HeapSizeLog2, 16), RegionSizeLog2)
	return c
}

// VirtualBuffer is one sparse window into the scaled space.
type VirtualBuffer struct {
	ID    gpucore.BufferID
	Index int
	Base  uint64 // scaled address of the first byte
	Size  uint64
	State gputypes.BufferUsage
}

// Covers reports whether the buffer addresses [start, end).
func (b *VirtualBuffer) Covers(start, end uint64) bool {
	return start >= b.Base && end <= b.Base+b.Size
}

// Manager owns the scaled-resolve buffers and heaps.
type Manager struct {
	cfg      Config
	host     SparseHost
	barriers gpucore.Barriers

	scale     uint64
	totalSize uint64
	buffers   []*VirtualBuffer // nil until created
	heaps     []gpucore.HeapID // InvalidID until committed
	owners    []int            // per region, -1 when unowned

	current       int
	currentOffset uint64
}

// NewManager creates a manager. It returns ErrDisabled when the scale is
// 1x1, the caller then leaves scaling off.
func NewManager(cfg Config, host SparseHost, barriers gpucore.Barriers) (*Manager, error) {
	cfg = cfg.withDefaults()
	scale := uint64(cfg.ScaleX) * uint64(cfg.ScaleY)
	if scale <= 1 || host == nil {
		return nil, ErrDisabled
	}
	total := cfg.PhysicalMemorySize * scale
	regions := int(xenos.DivRoundUp(total, 1<<RegionSizeLog2))
	m := &Manager{
		cfg:       cfg,
		host:      host,
		barriers:  barriers,
		scale:     scale,
		totalSize: total,
		buffers:   make([]*VirtualBuffer, max(regions-1, 1)),
		heaps:     make([]gpucore.HeapID, xenos.DivRoundUp(total, uint64(1)<<cfg.HeapSizeLog2)),
		owners:    make([]int, regions),
		current:   -1,
	}
	for i := range m.owners {
		m.owners[i] = -1
	}
	slogger().Info("resolve: scaled address space",
		"scale_x", cfg.ScaleX, "scale_y", cfg.ScaleY,
		"size", total, "regions", regions, "buffers", len(m.buffers))
	return m, nil
}

// Scale returns the area scale factor.
func (m *Manager) Scale() uint64 { return m.scale }

// RegionCount returns the number of 1GB regions.
func (m *Manager) RegionCount() int { return len(m.owners) }

// BufferCount returns the number of buffer slots.
func (m *Manager) BufferCount() int { return len(m.buffers) }

// Buffer returns buffer i or nil if it was not created yet.
func (m *Manager) Buffer(i int) *VirtualBuffer {
	if i < 0 || i >= len(m.buffers) {
		return nil
	}
	return m.buffers[i]
}

// RegionOwner returns the index of the buffer owning region r, or -1.
func (m *Manager) RegionOwner(r int) int {
	if r < 0 || r >= len(m.owners) {
		return -1
	}
	return m.owners[r]
}

// CommittedHeaps returns the number of committed heaps.
func (m *Manager) CommittedHeaps() int {
	n := 0
	for _, h := range m.heaps {
		if h != gpucore.InvalidID {
			n++
		}
	}
	return n
}

// scaledRange converts an unscaled guest range into an aligned scaled
// range.
func (m *Manager) scaledRange(start, length, alignmentLog2 uint32) (uint64, uint64, error) {
	end := uint64(start) + uint64(length)
	if end > m.cfg.PhysicalMemorySize {
		return 0, 0, fmt.Errorf("%w: [%#x, %#x)", ErrRangeOutOfBounds, start, end)
	}
	align := uint64(1) << min(alignmentLog2, 31)
	s := xenos.AlignDown(uint64(start)*m.scale, align)
	e := min(xenos.AlignUp(end*m.scale, align), m.totalSize)
	return s, e, nil
}

// EnsureScaledResolveMemoryCommitted creates the buffers that may address
// the scaled equivalent of [start, start+length) and commits its memory.
func (m *Manager) EnsureScaledResolveMemoryCommitted(start, length, alignmentLog2 uint32) bool {
	if length == 0 {
		return true
	}
	if err := m.ensureCommitted(start, length, alignmentLog2); err != nil {
		slogger().Warn("resolve: commit failed", "start", start, "length", length, "err", err)
		return false
	}
	return true
}

func (m *Manager) ensureCommitted(start, length, alignmentLog2 uint32) error {
	s, e, err := m.scaledRange(start, length, alignmentLog2)
	if err != nil {
		return err
	}
	r0 := int(s >> RegionSizeLog2)
	r1 := int((e - 1) >> RegionSizeLog2)

	for i := max(r0-1, 0); i <= min(r1, len(m.buffers)-1); i++ {
		if err := m.createBuffer(i); err != nil {
			return err
		}
	}

	heapLog2 := m.cfg.HeapSizeLog2
	for h := s >> heapLog2; h <= (e-1)>>heapLog2; h++ {
		if m.heaps[h] != gpucore.InvalidID {
			continue
		}
		heap, err := m.host.CreateHeap(uint64(1) << heapLog2)
		if err != nil {
			return fmt.Errorf("resolve: create heap %d: %w", h, err)
		}
		m.heaps[h] = heap
		if err := m.mapHeapEverywhere(h); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) createBuffer(i int) error {
	if m.buffers[i] != nil {
		return nil
	}
	base := uint64(i) << RegionSizeLog2
	size := min(uint64(1)<<BufferSizeLog2, m.totalSize-base)
	id, err := m.host.CreateSparseBuffer(size)
	if err != nil {
		return fmt.Errorf("resolve: create buffer %d: %w", i, err)
	}
	b := &VirtualBuffer{ID: id, Index: i, Base: base, Size: size, State: StateLoadSource}
	m.buffers[i] = b
	slogger().Debug("resolve: buffer created", "index", i, "base", base, "size", size)

	// Back the new window with memory committed through its neighbors.
	heapLog2 := m.cfg.HeapSizeLog2
	for h := base >> heapLog2; h < (base+size)>>heapLog2 && h < uint64(len(m.heaps)); h++ {
		if m.heaps[h] == gpucore.InvalidID {
			continue
		}
		if err := m.host.MapHeap(id, h<<heapLog2-base, m.heaps[h]); err != nil {
			return fmt.Errorf("resolve: map heap %d into buffer %d: %w", h, i, err)
		}
	}
	return nil
}

// mapHeapEverywhere maps heap h into every created buffer covering it.
func (m *Manager) mapHeapEverywhere(h uint64) error {
	addr := h << m.cfg.HeapSizeLog2
	r := int(addr >> RegionSizeLog2)
	for i := r - 1; i <= r; i++ {
		b := m.Buffer(i)
		if b == nil || !b.Covers(addr, addr+1) {
			continue
		}
		if err := m.host.MapHeap(b.ID, addr-b.Base, m.heaps[h]); err != nil {
			return fmt.Errorf("resolve: map heap %d into buffer %d: %w", h, i, err)
		}
	}
	return nil
}

// MakeScaledResolveRangeCurrent selects the buffer through which the
// scaled equivalent of [start, start+length) is accessed, moving region
// ownership to it with aliasing barriers where needed.
func (m *Manager) MakeScaledResolveRangeCurrent(start, length, alignmentLog2 uint32) bool {
	if err := m.makeCurrent(start, length, alignmentLog2); err != nil {
		slogger().Warn("resolve: range not current", "start", start, "length", length, "err", err)
		return false
	}
	return true
}

func (m *Manager) makeCurrent(start, length, alignmentLog2 uint32) error {
	s, e, err := m.scaledRange(start, max(length, 1), alignmentLog2)
	if err != nil {
		return err
	}
	r0 := int(s >> RegionSizeLog2)
	r1 := int((e - 1) >> RegionSizeLog2)
	if r1-r0 > 1 {
		return fmt.Errorf("%w: spans %d regions", ErrRangeNotAddressable, r1-r0+1)
	}

	best, bestOwned := -1, -1
	// The buffer starting at the first region wins ties.
	for _, i := range [2]int{r0, r0 - 1} {
		b := m.Buffer(i)
		if b == nil || !b.Covers(s, e) {
			continue
		}
		owned := 0
		for r := r0; r <= r1; r++ {
			if m.owners[r] == i {
				owned++
			}
		}
		if owned > bestOwned {
			best, bestOwned = i, owned
		}
	}
	if best < 0 {
		return fmt.Errorf("%w: scaled [%#x, %#x)", ErrRangeNotAddressable, s, e)
	}

	chosen := m.buffers[best]
	for r := r0; r <= r1; r++ {
		prev := m.owners[r]
		if prev == best {
			continue
		}
		before := gpucore.BufferID(gpucore.InvalidID)
		if prev >= 0 {
			before = m.buffers[prev].ID
		}
		m.barriers.PushAliasingBarrier(before, chosen.ID)
		m.owners[r] = best
	}
	m.current = best
	m.currentOffset = s - chosen.Base
	return nil
}

// CurrentBuffer returns the buffer made current last and the offset of the
// current range inside it.
func (m *Manager) CurrentBuffer() (gpucore.BufferID, uint64, bool) {
	if m.current < 0 {
		return gpucore.InvalidID, 0, false
	}
	return m.buffers[m.current].ID, m.currentOffset, true
}

// TransitionCurrentBuffer moves the current buffer to state.
func (m *Manager) TransitionCurrentBuffer(state gputypes.BufferUsage) {
	if m.current < 0 {
		return
	}
	b := m.buffers[m.current]
	if m.barriers.PushBufferTransition(b.ID, b.State, state) {
		b.State = state
	}
}

// Shutdown destroys every buffer and heap.
func (m *Manager) Shutdown() {
	for i, b := range m.buffers {
		if b != nil {
			m.host.DestroySparseBuffer(b.ID)
			m.buffers[i] = nil
		}
	}
	for i, h := range m.heaps {
		if h != gpucore.InvalidID {
			m.host.DestroyHeap(h)
			m.heaps[i] = gpucore.InvalidID
		}
	}
	for i := range m.owners {
		m.owners[i] = -1
	}
	m.current = -1
}
