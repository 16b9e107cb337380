package wgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/internal/cache"
	"github.com/gogpu/texcache/resolve"
	"github.com/gogpu/texcache/texture"
	"github.com/gogpu/wgpu/hal"
)

// Errors returned by the wgpu backend.
var (
	ErrUnknownResource   = errors.New("wgpu: unknown resource")
	ErrOutOfRange        = errors.New("wgpu: range out of bounds")
	ErrUnsupportedFormat = errors.New("wgpu: unsupported texture format")
	ErrSparseUnsupported = errors.New("wgpu: sparse buffers are not available")
	ErrNoKernel          = errors.New("wgpu: no kernel for load shader")
	ErrInvalidDescriptor = errors.New("wgpu: invalid descriptor handle")
	ErrNotRecording      = errors.New("wgpu: no command processor attached")
	ErrNoHALDevice       = errors.New("wgpu: provider does not expose HAL types")
	ErrClosed            = errors.New("wgpu: backend closed")
)

var (
	_ texture.Backend    = (*Backend)(nil)
	_ resolve.SparseHost = (*Backend)(nil)
)

// Stats counts the objects a Backend owns and the work it recorded.
type Stats struct {
	Textures     int
	TextureBytes uint64
	Buffers      int
	Samplers     int
	Pipelines    int
	// Sampler cache lookups.
	SamplerHits      uint64
	SamplerMisses    uint64
	SamplerEvictions uint64
	Dispatches   int
	Copies       int
	Retired      int
}

type hostTexture struct {
	tex   hal.Texture
	desc  gputypes.TextureDescriptor
	bytes uint64
	views map[gputypes.TextureViewDescriptor]hal.TextureView
}

type hostBuffer struct {
	buf   hal.Buffer
	size  uint64
	usage gputypes.BufferUsage
}

type nullTexture struct {
	tex  hal.Texture
	view hal.TextureView
}

// retired is a host object destroyed once submission has completed.
type retired struct {
	submission uint64
	destroy    func()
}

// Backend records texture cache work on a WebGPU HAL device. Its methods
// are safe for concurrent use; the CommandProcessor recording into it is
// not.
type Backend struct {
	mu     sync.Mutex
	device hal.Device
	queue  hal.Queue
	cfg    config
	caps   gpucore.Capabilities
	ids    gpucore.IDAllocator

	textures map[gpucore.TextureID]*hostTexture
	buffers  map[gpucore.BufferID]*hostBuffer
	pages    map[gpucore.DescriptorPageID][]Descriptor
	nulls    map[gputypes.TextureViewDimension]nullTexture
	samplers *cache.Cache[texture.SamplerParameters, hal.Sampler]
	pipes    pipelines

	cp      *CommandProcessor
	retired []retired
	stats   Stats
	closed  bool

	// Set by Open when the backend owns the device.
	instance hal.Instance
}

// New creates a backend on an open device. The options describe the
// features, limits and alignments the device was opened with.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Backend, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: nil device or queue")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	b := &Backend{
		device:   device,
		queue:    queue,
		cfg:      cfg,
		caps:     cfg.capabilities(),
		textures: make(map[gpucore.TextureID]*hostTexture),
		buffers:  make(map[gpucore.BufferID]*hostBuffer),
		pages:    make(map[gpucore.DescriptorPageID][]Descriptor),
		nulls:    make(map[gputypes.TextureViewDimension]nullTexture),
		pipes:    newPipelines(device),
	}
	b.samplers = cache.NewWithEvict(cfg.samplerCacheSize, func(_ texture.SamplerParameters, s hal.Sampler) {
		b.retireLocked(func() { b.device.DestroySampler(s) })
	})
	slogger().Debug("wgpu: backend created",
		"bc", b.caps.BCTextures,
		"pitch_alignment", b.caps.TextureDataPitchAlignment,
		"max_2d", b.caps.MaxTextureDimension2D)
	return b, nil
}

// Device returns the HAL device.
func (b *Backend) Device() hal.Device { return b.device }

// Queue returns the HAL queue.
func (b *Backend) Queue() hal.Queue { return b.queue }

// Stats returns a snapshot of the counters.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.Textures = len(b.textures)
	s.Buffers = len(b.buffers)
	cs := b.samplers.Stats()
	s.Samplers = cs.Len
	s.SamplerHits, s.SamplerMisses, s.SamplerEvictions = cs.Hits, cs.Misses, cs.Evictions
	s.Pipelines = b.pipes.count()
	s.Retired = len(b.retired)
	return s
}

// Close waits for the device to go idle and destroys every object the
// backend created. A device opened by Open is destroyed too.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if err := b.device.WaitIdle(); err != nil {
		slogger().Warn("wgpu: wait idle on close", "err", err)
	}
	if b.cp != nil {
		b.cp.releaseLocked()
	}
	b.samplers.Clear()
	for _, r := range b.retired {
		r.destroy()
	}
	b.retired = nil
	b.pipes.destroy(b.device)
	for id, t := range b.textures {
		b.destroyTextureNow(t)
		delete(b.textures, id)
	}
	for dim, n := range b.nulls {
		b.device.DestroyTextureView(n.view)
		b.device.DestroyTexture(n.tex)
		delete(b.nulls, dim)
	}
	for id, buf := range b.buffers {
		b.device.DestroyBuffer(buf.buf)
		delete(b.buffers, id)
	}
	clear(b.pages)
	if b.instance != nil {
		b.device.Destroy()
		b.instance.Destroy()
		b.instance = nil
	}
	slogger().Debug("wgpu: backend closed")
}

// retireLocked destroys an object once the submission being recorded has
// completed, or immediately when nothing is recording.
func (b *Backend) retireLocked(destroy func()) {
	if b.cp == nil || b.closed {
		destroy()
		return
	}
	b.retired = append(b.retired, retired{submission: b.cp.current, destroy: destroy})
}

// collectLocked destroys retired objects of completed submissions.
func (b *Backend) collectLocked(completed uint64) {
	n := 0
	for _, r := range b.retired {
		if r.submission <= completed {
			r.destroy()
			continue
		}
		b.retired[n] = r
		n++
	}
	clear(b.retired[n:])
	b.retired = b.retired[:n]
}

// === Capabilities ===

// Capabilities implements texture.Backend.
func (b *Backend) Capabilities() gpucore.Capabilities { return b.caps }

// LoadShaderAvailable implements texture.Backend.
func (b *Backend) LoadShaderAvailable(shader texture.LoadShaderIndex) bool {
	return hasKernel(shader)
}

// === Textures ===

func textureBytes(desc *gputypes.TextureDescriptor) (uint64, bool) {
	bw, bh, bpb, ok := texture.HostFormatBlock(desc.Format)
	if !ok {
		return 0, false
	}
	var total uint64
	for level := range max(desc.MipLevelCount, 1) {
		w := max(desc.Size.Width>>level, 1)
		h := max(desc.Size.Height>>level, 1)
		d := max(desc.Size.DepthOrArrayLayers, 1)
		if desc.Dimension == gputypes.TextureDimension3D {
			d = max(d>>level, 1)
		}
		total += uint64((w+bw-1)/bw) * uint64((h+bh-1)/bh) * uint64(bpb) * uint64(d)
	}
	return total, true
}

// CreateTexture implements texture.Backend.
func (b *Backend) CreateTexture(desc *gputypes.TextureDescriptor) (gpucore.TextureID, error) {
	size, ok := textureBytes(desc)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: %v", ErrUnsupportedFormat, desc.Format)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return gpucore.InvalidID, ErrClosed
	}
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label: b.cfg.label + "_texture",
		Size: hal.Extent3D{
			Width:              desc.Size.Width,
			Height:             desc.Size.Height,
			DepthOrArrayLayers: max(desc.Size.DepthOrArrayLayers, 1),
		},
		MipLevelCount: max(desc.MipLevelCount, 1),
		SampleCount:   max(desc.SampleCount, 1),
		Dimension:     desc.Dimension,
		Format:        desc.Format,
		Usage:         desc.Usage | gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding,
		ViewFormats:   desc.ViewFormats,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create texture %dx%dx%d %v: %w",
			desc.Size.Width, desc.Size.Height, desc.Size.DepthOrArrayLayers, desc.Format, err)
	}
	id := gpucore.TextureID(b.ids.Next())
	b.textures[id] = &hostTexture{
		tex:   tex,
		desc:  *desc,
		bytes: size,
		views: make(map[gputypes.TextureViewDescriptor]hal.TextureView),
	}
	b.stats.TextureBytes += size
	return id, nil
}

// DestroyTexture implements texture.Backend. The host texture and its
// views live until work recorded in the current submission completes.
func (b *Backend) DestroyTexture(id gpucore.TextureID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.textures[id]
	if !ok {
		return
	}
	delete(b.textures, id)
	b.stats.TextureBytes -= t.bytes
	b.retireLocked(func() { b.destroyTextureNow(t) })
}

func (b *Backend) destroyTextureNow(t *hostTexture) {
	for _, v := range t.views {
		b.device.DestroyTextureView(v)
	}
	clear(t.views)
	b.device.DestroyTexture(t.tex)
}

// HALTexture returns the host texture of id, nil when id is unknown.
func (b *Backend) HALTexture(id gpucore.TextureID) hal.Texture {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.textures[id]; ok {
		return t.tex
	}
	return nil
}

// TextureDescriptor returns the descriptor a texture was created with.
func (b *Backend) TextureDescriptor(id gpucore.TextureID) (gputypes.TextureDescriptor, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.textures[id]
	if !ok {
		return gputypes.TextureDescriptor{}, false
	}
	return t.desc, true
}

func halViewDescriptor(label string, v *gputypes.TextureViewDescriptor) *hal.TextureViewDescriptor {
	aspect := v.Aspect
	if aspect == 0 {
		aspect = gputypes.TextureAspectAll
	}
	return &hal.TextureViewDescriptor{
		Label:           label,
		Format:          v.Format,
		Dimension:       v.Dimension,
		Aspect:          aspect,
		BaseMipLevel:    v.BaseMipLevel,
		MipLevelCount:   v.MipLevelCount,
		BaseArrayLayer:  v.BaseArrayLayer,
		ArrayLayerCount: v.ArrayLayerCount,
	}
}

// viewLocked returns a view of t, creating it on first use.
func (b *Backend) viewLocked(t *hostTexture, v *gputypes.TextureViewDescriptor) (hal.TextureView, error) {
	key := *v
	key.Label = ""
	if view, ok := t.views[key]; ok {
		return view, nil
	}
	view, err := b.device.CreateTextureView(t.tex, halViewDescriptor(b.cfg.label+"_view", v))
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture view: %w", err)
	}
	t.views[key] = view
	return view, nil
}

// nullViewLocked returns a view of a zeroed 1x1 texture of dimension dim.
func (b *Backend) nullViewLocked(dim gputypes.TextureViewDimension) (hal.TextureView, error) {
	if n, ok := b.nulls[dim]; ok {
		return n.view, nil
	}
	size := hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1}
	texDim := gputypes.TextureDimension2D
	switch dim {
	case gputypes.TextureViewDimension1D:
		texDim = gputypes.TextureDimension1D
	case gputypes.TextureViewDimension3D:
		texDim = gputypes.TextureDimension3D
	case gputypes.TextureViewDimensionCube, gputypes.TextureViewDimensionCubeArray:
		size.DepthOrArrayLayers = 6
	}
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         b.cfg.label + "_null",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     texDim,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create null texture: %w", err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:     b.cfg.label + "_null_view",
		Dimension: dim,
		Aspect:    gputypes.TextureAspectAll,
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return nil, fmt.Errorf("wgpu: create null view: %w", err)
	}
	b.nulls[dim] = nullTexture{tex: tex, view: view}
	return view, nil
}

// === Buffers ===

// CreateBuffer creates a device buffer. Storage, copy and uniform usages
// are always included so scratch and guest memory buffers can be bound by
// load kernels.
func (b *Backend) CreateBuffer(size uint64, usage gputypes.BufferUsage) (gpucore.BufferID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createBufferLocked(size, usage)
}

func (b *Backend) createBufferLocked(size uint64, usage gputypes.BufferUsage) (gpucore.BufferID, error) {
	if b.closed {
		return gpucore.InvalidID, ErrClosed
	}
	size = max((size+3)&^3, 4)
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.cfg.label + "_buffer",
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create buffer of %d bytes: %w", size, err)
	}
	id := gpucore.BufferID(b.ids.Next())
	b.buffers[id] = &hostBuffer{buf: buf, size: size, usage: usage}
	return id, nil
}

// DestroyBuffer releases a buffer once the current submission completes.
func (b *Backend) DestroyBuffer(id gpucore.BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyBufferLocked(id)
}

func (b *Backend) destroyBufferLocked(id gpucore.BufferID) {
	buf, ok := b.buffers[id]
	if !ok {
		return
	}
	delete(b.buffers, id)
	b.retireLocked(func() { b.device.DestroyBuffer(buf.buf) })
}

// WriteBuffer uploads data to a buffer through the queue.
func (b *Backend) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeBufferLocked(id, offset, data)
}

func (b *Backend) writeBufferLocked(id gpucore.BufferID, offset uint64, data []byte) error {
	buf, ok := b.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", ErrUnknownResource, id)
	}
	end := offset + uint64(len(data))
	if end > buf.size || end < offset {
		return fmt.Errorf("%w: buffer %d [%d, +%d)", ErrOutOfRange, id, offset, len(data))
	}
	if err := b.queue.WriteBuffer(buf.buf, offset, data); err != nil {
		return fmt.Errorf("wgpu: write buffer %d: %w", id, err)
	}
	return nil
}

// HALBuffer returns the host buffer of id, nil when id is unknown.
func (b *Backend) HALBuffer(id gpucore.BufferID) hal.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if buf, ok := b.buffers[id]; ok {
		return buf.buf
	}
	return nil
}

// BufferSize returns the size of a buffer, 0 when id is unknown.
func (b *Backend) BufferSize(id gpucore.BufferID) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if buf, ok := b.buffers[id]; ok {
		return buf.size
	}
	return 0
}

// === resolve.SparseHost ===

// WebGPU has no reserved buffers, so draw-resolution scaling is not
// available and the sparse calls always fail.

// CreateSparseBuffer implements resolve.SparseHost.
func (b *Backend) CreateSparseBuffer(uint64) (gpucore.BufferID, error) {
	return gpucore.InvalidID, ErrSparseUnsupported
}

// DestroySparseBuffer implements resolve.SparseHost.
func (b *Backend) DestroySparseBuffer(gpucore.BufferID) {}

// CreateHeap implements resolve.SparseHost.
func (b *Backend) CreateHeap(uint64) (gpucore.HeapID, error) {
	return gpucore.InvalidID, ErrSparseUnsupported
}

// DestroyHeap implements resolve.SparseHost.
func (b *Backend) DestroyHeap(gpucore.HeapID) {}

// MapHeap implements resolve.SparseHost.
func (b *Backend) MapHeap(gpucore.BufferID, uint64, gpucore.HeapID) error {
	return ErrSparseUnsupported
}
