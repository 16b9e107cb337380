package software

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/internal/parallel"
	"github.com/gogpu/texcache/resolve"
	"github.com/gogpu/texcache/texture"
)

// Errors returned by the software backend.
var (
	ErrUnknownResource    = errors.New("software: unknown resource")
	ErrOutOfRange         = errors.New("software: range out of bounds")
	ErrUnsupportedFormat  = errors.New("software: unsupported texture format")
	ErrSparseUnsupported  = errors.New("software: sparse buffers disabled")
	ErrNoKernel           = errors.New("software: no kernel for load shader")
	ErrInvalidDescriptor  = errors.New("software: invalid descriptor handle")
	ErrMissingScratchData = errors.New("software: copy source outside buffer")
)

var (
	_ texture.Backend    = (*Backend)(nil)
	_ resolve.SparseHost = (*Backend)(nil)
)

// DefaultCapabilities are the capabilities of New without options. BC
// textures are decompressed on load so every decoding kernel is used.
var DefaultCapabilities = gpucore.Capabilities{
	UnalignedBCTextures: true,
	SparseBuffers:       true,
	Bindless:            true,
	Unorm16:             true,
	Snorm16:             true,
}.WithDefaults()

// Option configures a Backend.
type Option func(*Backend)

// WithCapabilities overrides the reported capabilities.
func WithCapabilities(caps gpucore.Capabilities) Option {
	return func(b *Backend) { b.caps = caps.WithDefaults() }
}

// WithWorkers runs load shaders on n goroutines, GOMAXPROCS when n <= 0.
// Without it loads run on the calling goroutine.
func WithWorkers(n int) Option {
	return func(b *Backend) { b.pool = parallel.NewWorkerPool(n) }
}

// Stats counts the work a Backend executed.
type Stats struct {
	Textures     int
	TextureBytes uint64
	HeapBytes    uint64
	Dispatches   int
	Copies       int
}

// Backend is a CPU texture cache backend. It is safe for concurrent use.
type Backend struct {
	mu   sync.Mutex
	caps gpucore.Capabilities
	ids  gpucore.IDAllocator

	textures map[gpucore.TextureID]*Texture
	buffers  map[gpucore.BufferID]*buffer
	heaps    map[gpucore.HeapID][]byte
	pages    map[gpucore.DescriptorPageID][]Descriptor

	pool  *parallel.WorkerPool
	stats Stats
}

// New creates a software backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		caps:     DefaultCapabilities,
		textures: make(map[gpucore.TextureID]*Texture),
		buffers:  make(map[gpucore.BufferID]*buffer),
		heaps:    make(map[gpucore.HeapID][]byte),
		pages:    make(map[gpucore.DescriptorPageID][]Descriptor),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Close stops the load workers. Resources stay readable.
func (b *Backend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

// Stats returns a snapshot of the work counters.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.Textures = len(b.textures)
	return s
}

// === Capabilities ===

// Capabilities implements texture.Backend.
func (b *Backend) Capabilities() gpucore.Capabilities { return b.caps }

// LoadShaderAvailable implements texture.Backend.
func (b *Backend) LoadShaderAvailable(shader texture.LoadShaderIndex) bool {
	return shader < texture.LoadShaderCount && kernels[shader] != nil
}

// === Textures ===

// CreateTexture implements texture.Backend.
func (b *Backend) CreateTexture(desc *gputypes.TextureDescriptor) (gpucore.TextureID, error) {
	t, err := newTexture(desc)
	if err != nil {
		return gpucore.InvalidID, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := gpucore.TextureID(b.ids.Next())
	b.textures[id] = t
	b.stats.TextureBytes += t.bytes()
	return id, nil
}

// DestroyTexture implements texture.Backend.
func (b *Backend) DestroyTexture(id gpucore.TextureID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.textures[id]; ok {
		b.stats.TextureBytes -= t.bytes()
		delete(b.textures, id)
	}
}

// Texture returns a host texture, nil when id is unknown.
func (b *Backend) Texture(id gpucore.TextureID) *Texture {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.textures[id]
}

// === Descriptors ===

// DescriptorKind identifies what a descriptor slot holds.
type DescriptorKind uint8

// Descriptor kinds.
const (
	DescriptorEmpty DescriptorKind = iota
	DescriptorNull
	DescriptorTexture
	DescriptorSampler
)

// Descriptor is one slot of a descriptor page.
type Descriptor struct {
	Kind      DescriptorKind
	Texture   gpucore.TextureID
	View      texture.ViewDesc
	Dimension gputypes.TextureViewDimension
	Sampler   texture.SamplerParameters
}

// CreateDescriptorPage implements texture.Backend.
func (b *Backend) CreateDescriptorPage(size uint32) (gpucore.DescriptorPageID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := gpucore.DescriptorPageID(b.ids.Next())
	b.pages[id] = make([]Descriptor, size)
	return id, nil
}

// DestroyDescriptorPage implements texture.Backend.
func (b *Backend) DestroyDescriptorPage(page gpucore.DescriptorPageID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pages, page)
}

func (b *Backend) slot(h gpucore.DescriptorHandle) *Descriptor {
	page, ok := b.pages[h.Page]
	if !ok || h.Index >= uint32(len(page)) {
		return nil
	}
	return &page[h.Index]
}

// Descriptor returns the content of a descriptor slot.
func (b *Backend) Descriptor(h gpucore.DescriptorHandle) (Descriptor, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.slot(h)
	if d == nil {
		return Descriptor{}, false
	}
	return *d, true
}

// WriteTextureSRV implements texture.Backend.
func (b *Backend) WriteTextureSRV(tex gpucore.TextureID, view *texture.ViewDesc, dst gpucore.DescriptorHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.textures[tex]; !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownResource, tex)
	}
	d := b.slot(dst)
	if d == nil {
		return fmt.Errorf("%w: %s", ErrInvalidDescriptor, dst)
	}
	*d = Descriptor{Kind: DescriptorTexture, Texture: tex, View: *view, Dimension: view.Dimension}
	return nil
}

// WriteNullSRV implements texture.Backend.
func (b *Backend) WriteNullSRV(dim gputypes.TextureViewDimension, dst gpucore.DescriptorHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d := b.slot(dst); d != nil {
		*d = Descriptor{Kind: DescriptorNull, Dimension: dim}
	}
}

// CopyDescriptor implements texture.Backend.
func (b *Backend) CopyDescriptor(src, dst gpucore.DescriptorHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, d := b.slot(src), b.slot(dst)
	if s == nil || d == nil {
		slogger().Error("software: descriptor copy out of range", "src", src.String(), "dst", dst.String())
		return
	}
	*d = *s
}

// WriteSampler implements texture.Backend.
func (b *Backend) WriteSampler(params texture.SamplerParameters, dst gpucore.DescriptorHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.slot(dst)
	if d == nil {
		return fmt.Errorf("%w: %s", ErrInvalidDescriptor, dst)
	}
	*d = Descriptor{Kind: DescriptorSampler, Sampler: params}
	return nil
}

// === Loading ===

// DispatchLoadShader implements texture.Backend. The kernel runs
// immediately; its constants are read back from the uploaded block when
// the command carries one.
func (b *Backend) DispatchLoadShader(cmd *texture.LoadCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.LoadShaderAvailable(cmd.Shader) {
		return fmt.Errorf("%w: %s", ErrNoKernel, cmd.Shader)
	}
	params := &cmd.Params
	if cmd.Constants.Buffer != gpucore.InvalidID {
		buf, ok := b.buffers[cmd.Constants.Buffer]
		if !ok {
			return fmt.Errorf("%w: constants buffer %d", ErrUnknownResource, cmd.Constants.Buffer)
		}
		raw := b.span(buf, cmd.Constants.Offset, cmd.Constants.Size)
		if raw == nil || uintptr(len(raw)) < unsafe.Sizeof(texture.LoadConstants{}) {
			return fmt.Errorf("%w: constants %+v", ErrOutOfRange, cmd.Constants)
		}
		params = fromBytes[texture.LoadConstants](raw)
	}
	src, ok := b.buffers[cmd.Source]
	if !ok {
		return fmt.Errorf("%w: source buffer %d", ErrUnknownResource, cmd.Source)
	}
	dst, ok := b.buffers[cmd.Dest]
	if !ok || dst.sparse {
		return fmt.Errorf("%w: scratch buffer %d", ErrUnknownResource, cmd.Dest)
	}
	b.runLoad(cmd.Shader, params, src, dst.data)
	b.stats.Dispatches++
	return nil
}

// CopyBufferToTexture implements texture.Backend.
func (b *Backend) CopyBufferToTexture(src gpucore.BufferID, dst gpucore.TextureID, regions []texture.CopyRegion) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[src]
	if !ok || buf.sparse {
		return fmt.Errorf("%w: buffer %d", ErrUnknownResource, src)
	}
	t, ok := b.textures[dst]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownResource, dst)
	}
	for i := range regions {
		if err := t.copyRegion(buf.data, &regions[i]); err != nil {
			return fmt.Errorf("software: copy region %d to texture %d: %w", i, dst, err)
		}
		b.stats.Copies++
	}
	return nil
}
