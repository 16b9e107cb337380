package descriptor

import (
	"errors"
	"fmt"

	"github.com/gogpu/texcache/gpucore"
)

// Invalid is the index returned when no descriptor could be allocated.
const Invalid = ^uint32(0)

// Errors returned by allocators.
var (
	// ErrExhausted is returned when no descriptor index is available.
	ErrExhausted = errors.New("descriptor: exhausted")

	// ErrNotAllocated is returned when releasing an index that is not live.
	ErrNotAllocated = errors.New("descriptor: index not allocated")
)

// Allocator hands out descriptor indices.
type Allocator interface {
	// Allocate returns a free index or an error wrapping ErrExhausted.
	Allocate() (uint32, error)

	// Release returns an index obtained from Allocate.
	Release(index uint32) error

	// Handle returns the backend slot addressed by index.
	Handle(index uint32) gpucore.DescriptorHandle

	// Live returns the number of allocated indices.
	Live() int
}

// Arena is the bindless global descriptor array.
type Arena struct {
	page     gpucore.DescriptorPageID
	capacity uint32
	reserved uint32
	next     uint32
	free     []uint32
	live     map[uint32]struct{}
}

// NewArena creates an arena of capacity descriptors on page, with the
// first reserved indices never handed out.
func NewArena(page gpucore.DescriptorPageID, capacity, reserved uint32) *Arena {
	if reserved > capacity {
		reserved = capacity
	}
	return &Arena{
		page:     page,
		capacity: capacity,
		reserved: reserved,
		next:     reserved,
		live:     make(map[uint32]struct{}),
	}
}

// Allocate implements Allocator.
func (a *Arena) Allocate() (uint32, error) {
	var i uint32
	if n := len(a.free); n > 0 {
		i = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		if a.next >= a.capacity {
			return Invalid, fmt.Errorf("%w: bindless arena of %d", ErrExhausted, a.capacity)
		}
		i = a.next
		a.next++
	}
	a.live[i] = struct{}{}
	return i, nil
}

// Release implements Allocator.
func (a *Arena) Release(index uint32) error {
	if _, ok := a.live[index]; !ok {
		return fmt.Errorf("%w: %d", ErrNotAllocated, index)
	}
	delete(a.live, index)
	a.free = append(a.free, index)
	return nil
}

// Handle implements Allocator.
func (a *Arena) Handle(index uint32) gpucore.DescriptorHandle {
	return gpucore.DescriptorHandle{Page: a.page, Index: index}
}

// Live implements Allocator.
func (a *Arena) Live() int {
	return len(a.live)
}

// Reset releases every index.
func (a *Arena) Reset() {
	a.next = a.reserved
	a.free = a.free[:0]
	clear(a.live)
}

// PageFactory creates a descriptor page of the given size.
type PageFactory func(size uint32) (gpucore.DescriptorPageID, error)

// PagedHeap is the bindful descriptor heap.
type PagedHeap struct {
	pageSize uint32
	maxPages int
	create   PageFactory
	pages    []gpucore.DescriptorPageID
	used     []uint32 // bump pointer per page
	free     []uint32
	live     map[uint32]struct{}
}

// NewPagedHeap creates a heap that grows by pageSize descriptors through
// create. maxPages of 0 means unlimited.
func NewPagedHeap(pageSize uint32, maxPages int, create PageFactory) *PagedHeap {
	return &PagedHeap{
		pageSize: max(pageSize, 1),
		maxPages: maxPages,
		create:   create,
		live:     make(map[uint32]struct{}),
	}
}

// Allocate implements Allocator.
func (h *PagedHeap) Allocate() (uint32, error) {
	if n := len(h.free); n > 0 {
		i := h.free[n-1]
		h.free = h.free[:n-1]
		h.live[i] = struct{}{}
		return i, nil
	}
	last := len(h.pages) - 1
	if last < 0 || h.used[last] >= h.pageSize {
		if err := h.grow(); err != nil {
			return Invalid, err
		}
		last++
	}
	i := uint32(last)*h.pageSize + h.used[last]
	h.used[last]++
	h.live[i] = struct{}{}
	return i, nil
}

func (h *PagedHeap) grow() error {
	if h.maxPages > 0 && len(h.pages) >= h.maxPages {
		return fmt.Errorf("%w: %d pages of %d", ErrExhausted, len(h.pages), h.pageSize)
	}
	page, err := h.create(h.pageSize)
	if err != nil {
		return fmt.Errorf("%w: create page: %w", ErrExhausted, err)
	}
	h.pages = append(h.pages, page)
	h.used = append(h.used, 0)
	slogger().Debug("descriptor: heap page added", "pages", len(h.pages), "page_size", h.pageSize)
	return nil
}

// Release implements Allocator.
func (h *PagedHeap) Release(index uint32) error {
	if _, ok := h.live[index]; !ok {
		return fmt.Errorf("%w: %d", ErrNotAllocated, index)
	}
	delete(h.live, index)
	h.free = append(h.free, index)
	return nil
}

// Handle implements Allocator.
func (h *PagedHeap) Handle(index uint32) gpucore.DescriptorHandle {
	p := index / h.pageSize
	if int(p) >= len(h.pages) {
		return gpucore.DescriptorHandle{Index: index}
	}
	return gpucore.DescriptorHandle{Page: h.pages[p], Index: index % h.pageSize}
}

// Live implements Allocator.
func (h *PagedHeap) Live() int {
	return len(h.live)
}

// Pages returns the created pages in allocation order.
func (h *PagedHeap) Pages() []gpucore.DescriptorPageID {
	return h.pages
}

// Reset releases every index but keeps the pages for reuse.
func (h *PagedHeap) Reset() {
	for i := range h.used {
		h.used[i] = 0
	}
	h.free = h.free[:0]
	clear(h.live)
}
