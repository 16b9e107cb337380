package texture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/xenos"
)

// fakeBackend records every call made by the cache.
type fakeBackend struct {
	ids  gpucore.IDAllocator
	caps gpucore.Capabilities

	textures   map[gpucore.TextureID]gputypes.TextureDescriptor
	pages      map[gpucore.DescriptorPageID]uint32
	views      map[gpucore.DescriptorHandle]ViewDesc
	nullViews  map[gpucore.DescriptorHandle]gputypes.TextureViewDimension
	copiedDesc []gpucore.DescriptorHandle
	dispatches []LoadCommand
	copies     [][]CopyRegion
	samplers   map[gpucore.DescriptorHandle]SamplerParameters

	created   int
	destroyed int

	failCreate   bool
	failDispatch bool
	missing      map[LoadShaderIndex]bool
}

func newFakeBackend(caps gpucore.Capabilities) *fakeBackend {
	return &fakeBackend{
		caps:      caps,
		textures:  make(map[gpucore.TextureID]gputypes.TextureDescriptor),
		pages:     make(map[gpucore.DescriptorPageID]uint32),
		views:     make(map[gpucore.DescriptorHandle]ViewDesc),
		nullViews: make(map[gpucore.DescriptorHandle]gputypes.TextureViewDimension),
		samplers:  make(map[gpucore.DescriptorHandle]SamplerParameters),
		missing:   make(map[LoadShaderIndex]bool),
	}
}

func (b *fakeBackend) Capabilities() gpucore.Capabilities { return b.caps }

func (b *fakeBackend) LoadShaderAvailable(s LoadShaderIndex) bool {
	return s != LoadShaderUnknown && !b.missing[s]
}

func (b *fakeBackend) CreateTexture(desc *gputypes.TextureDescriptor) (gpucore.TextureID, error) {
	if b.failCreate {
		return gpucore.InvalidID, errors.New("out of memory")
	}
	id := gpucore.TextureID(b.ids.Next())
	b.textures[id] = *desc
	b.created++
	return id, nil
}

func (b *fakeBackend) DestroyTexture(id gpucore.TextureID) {
	delete(b.textures, id)
	b.destroyed++
}

func (b *fakeBackend) CreateDescriptorPage(size uint32) (gpucore.DescriptorPageID, error) {
	id := gpucore.DescriptorPageID(b.ids.Next())
	b.pages[id] = size
	return id, nil
}

func (b *fakeBackend) DestroyDescriptorPage(page gpucore.DescriptorPageID) {
	delete(b.pages, page)
}

func (b *fakeBackend) WriteTextureSRV(tex gpucore.TextureID, view *ViewDesc, dst gpucore.DescriptorHandle) error {
	if _, ok := b.textures[tex]; !ok {
		return errors.New("unknown texture")
	}
	b.views[dst] = *view
	return nil
}

func (b *fakeBackend) WriteNullSRV(dim gputypes.TextureViewDimension, dst gpucore.DescriptorHandle) {
	b.nullViews[dst] = dim
}

func (b *fakeBackend) CopyDescriptor(src, dst gpucore.DescriptorHandle) {
	b.copiedDesc = append(b.copiedDesc, src, dst)
}

func (b *fakeBackend) WriteSampler(p SamplerParameters, dst gpucore.DescriptorHandle) error {
	b.samplers[dst] = p
	return nil
}

func (b *fakeBackend) DispatchLoadShader(cmd *LoadCommand) error {
	if b.failDispatch {
		return errors.New("device lost")
	}
	b.dispatches = append(b.dispatches, *cmd)
	return nil
}

func (b *fakeBackend) CopyBufferToTexture(src gpucore.BufferID, dst gpucore.TextureID, regions []CopyRegion) error {
	b.copies = append(b.copies, append([]CopyRegion(nil), regions...))
	return nil
}

// fakeSparseBackend adds sparse buffers to fakeBackend.
type fakeSparseBackend struct {
	*fakeBackend
	buffers int
	heaps   int
}

func (b *fakeSparseBackend) CreateSparseBuffer(size uint64) (gpucore.BufferID, error) {
	b.buffers++
	return gpucore.BufferID(b.ids.Next()), nil
}

func (b *fakeSparseBackend) DestroySparseBuffer(gpucore.BufferID) { b.buffers-- }

func (b *fakeSparseBackend) CreateHeap(size uint64) (gpucore.HeapID, error) {
	b.heaps++
	return gpucore.HeapID(b.ids.Next()), nil
}

func (b *fakeSparseBackend) DestroyHeap(gpucore.HeapID) { b.heaps-- }

func (b *fakeSparseBackend) MapHeap(gpucore.BufferID, uint64, gpucore.HeapID) error { return nil }

// fakeCP is a command processor that records barriers and hands out
// scratch, descriptors and constants from unlimited pools.
type fakeCP struct {
	*gpucore.BarrierQueue
	ids       gpucore.IDAllocator
	submitted []gpucore.Barrier

	current   uint64
	completed uint64

	scratchOut  int
	scratchSize uint64
	released    []gputypes.BufferUsage
	constants   [][]byte

	noScratch   bool
	noConstants bool
}

func newFakeCP() *fakeCP {
	cp := &fakeCP{current: 1}
	cp.BarrierQueue = gpucore.NewBarrierQueue(func(b []gpucore.Barrier) {
		cp.submitted = append(cp.submitted, b...)
	})
	return cp
}

func (cp *fakeCP) CurrentSubmission() uint64   { return cp.current }
func (cp *fakeCP) CompletedSubmission() uint64 { return cp.completed }

func (cp *fakeCP) RequestScratchBuffer(size uint64, state gputypes.BufferUsage) (gpucore.BufferID, bool) {
	if cp.noScratch {
		return gpucore.InvalidID, false
	}
	cp.scratchOut++
	cp.scratchSize = size
	return gpucore.BufferID(1000 + cp.ids.Next()), true
}

func (cp *fakeCP) ReleaseScratchBuffer(buf gpucore.BufferID, state gputypes.BufferUsage) {
	cp.scratchOut--
	cp.released = append(cp.released, state)
}

func (cp *fakeCP) RequestOneUseSingleViewDescriptors(count int) ([]gpucore.DescriptorHandle, bool) {
	out := make([]gpucore.DescriptorHandle, count)
	for i := range out {
		out[i] = gpucore.DescriptorHandle{Page: 999, Index: uint32(cp.ids.Next())}
	}
	return out, true
}

func (cp *fakeCP) RequestConstants(size, alignment uint64) ([]byte, gpucore.BufferSlice, bool) {
	if cp.noConstants {
		return nil, gpucore.BufferSlice{}, false
	}
	b := make([]byte, size)
	cp.constants = append(cp.constants, b)
	return b, gpucore.BufferSlice{Buffer: 500, Offset: uint64(len(cp.constants)-1) * alignment, Size: size}, true
}

// textureTransitions returns the submitted transitions of tex.
func (cp *fakeCP) textureTransitions(tex gpucore.TextureID) []gputypes.TextureUsage {
	var out []gputypes.TextureUsage
	for _, b := range cp.submitted {
		if b.Kind == gpucore.BarrierTextureTransition && b.Texture == tex {
			out = append(out, b.NewTexture)
		}
	}
	for _, b := range cp.Pending() {
		if b.Kind == gpucore.BarrierTextureTransition && b.Texture == tex {
			out = append(out, b.NewTexture)
		}
	}
	return out
}

// fakeShared is resident guest memory of a fixed size.
type fakeShared struct {
	size      uint32
	requested [][2]uint32
}

func (s *fakeShared) RequestRange(start, length uint32) bool {
	s.requested = append(s.requested, [2]uint32{start, length})
	return uint64(start)+uint64(length) <= uint64(s.size)
}

func (s *fakeShared) Buffer() gpucore.BufferID { return 77 }

// testRig bundles a cache and its fakes.
type testRig struct {
	backend *fakeBackend
	cp      *fakeCP
	shared  *fakeShared
	regs    *xenos.RegisterArray
	cache   *Cache
}

func defaultCaps() gpucore.Capabilities {
	return gpucore.Capabilities{
		BCTextures:          true,
		UnalignedBCTextures: true,
		Unorm16:             true,
		Snorm16:             true,
	}
}

func newRig(tb testing.TB, cfg Config, caps gpucore.Capabilities) *testRig {
	tb.Helper()
	r := &testRig{
		backend: newFakeBackend(caps),
		cp:      newFakeCP(),
		shared:  &fakeShared{size: 512 << 20},
		regs:    xenos.NewRegisterArray(),
	}
	c, err := New(cfg, r.backend, r.cp, r.shared, r.regs)
	if err != nil {
		tb.Fatalf("New: %v", err)
	}
	r.cache = c
	return r
}

// setFetch writes a fetch constant and notifies the cache.
func (r *testRig) setFetch(i uint32, b xenos.FetchBuilder) {
	r.regs.SetFetch(i, b.Build())
	r.cache.OnFetchConstantWritten(i)
}

// captureHandler collects log records.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) count(level slog.Level, msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level && r.Message == msg {
			n++
		}
	}
	return n
}
