package texture

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/descriptor"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/internal/cache"
	"github.com/gogpu/texcache/resolve"
	"github.com/gogpu/texcache/xenos"
)

// InvalidDescriptor is returned when no view descriptor is available.
const InvalidDescriptor = descriptor.Invalid

// Null view descriptors occupy the first indices of the bindless arena.
// Bindful bindings write a null view into their own slot instead.
const (
	nullDescriptor2DArray = iota
	nullDescriptor3D
	nullDescriptorCube
	nullDescriptorCount
)

// Stats holds cache counters.
type Stats struct {
	Textures    int
	HostBytes   uint64
	BudgetBytes uint64
	Evictions   uint64
	Descriptors int
	Bindless    bool
	Scaled      bool
}

func (s Stats) String() string {
	return fmt.Sprintf("Textures[%d, %d/%d MB, %d evictions, %d descriptors]",
		s.Textures, s.HostBytes>>20, s.BudgetBytes>>20, s.Evictions, s.Descriptors)
}

// Cache maps guest texture keys to host textures. It is not safe for
// concurrent use; all calls come from the goroutine recording commands.
type Cache struct {
	cfg     Config
	backend Backend
	cp      CommandProcessor
	shared  SharedMemory
	regs    xenos.RegisterFile
	caps    gpucore.Capabilities
	scale   Scale

	textures  map[Key]*Texture
	lru       *cache.List[*Texture]
	usedBytes uint64
	evictions uint64

	bindless  bool
	arenaPage gpucore.DescriptorPageID
	arena     *descriptor.Arena
	heap      *descriptor.PagedHeap
	views     descriptor.Allocator

	scaled         *resolve.Manager
	scaledResolved []uint64 // one bit per 4KB guest page

	bindings       [xenos.FetchConstantCount]Binding
	bindingsInSync uint32

	unsupported [xenos.FormatCount]UnsupportedFeature
	submission  uint64
}

// New creates a texture cache. shared may be nil when every texture comes
// from scaled resolves, which only tests do.
func New(cfg Config, backend Backend, cp CommandProcessor, shared SharedMemory, regs xenos.RegisterFile) (*Cache, error) {
	cfg = cfg.withDefaults()
	caps := backend.Capabilities().WithDefaults()
	c := &Cache{
		cfg:      cfg,
		backend:  backend,
		cp:       cp,
		shared:   shared,
		regs:     regs,
		caps:     caps,
		scale:    Scale{1, 1},
		textures: make(map[Key]*Texture),
		lru:      cache.NewList[*Texture](),
		bindless: cfg.Bindless && caps.Bindless,
	}

	if c.bindless {
		page, err := backend.CreateDescriptorPage(cfg.DescriptorArenaSize)
		if err != nil {
			return nil, fmt.Errorf("texture: bindless arena: %w", err)
		}
		c.arenaPage = page
		c.arena = descriptor.NewArena(page, cfg.DescriptorArenaSize, nullDescriptorCount)
		c.views = c.arena
		for i := uint32(0); i < nullDescriptorCount; i++ {
			backend.WriteNullSRV(nullDescriptorDimension(i), c.arena.Handle(i))
		}
	} else {
		c.heap = descriptor.NewPagedHeap(cfg.DescriptorPageSize, cfg.MaxDescriptorPages, backend.CreateDescriptorPage)
		c.views = c.heap
	}

	if cfg.ScaleX*cfg.ScaleY > 1 {
		c.initScaledResolve()
	}

	slogger().Info("texture: cache created",
		"bindless", c.bindless,
		"scale_x", c.scale.X,
		"scale_y", c.scale.Y,
		"budget_mb", cfg.MemoryBudgetMB)
	return c, nil
}

func (c *Cache) initScaledResolve() {
	host, ok := c.backend.(resolve.SparseHost)
	if !ok || !c.caps.SparseBuffers {
		slogger().Warn("texture: draw-resolution scaling needs sparse buffers, disabled")
		return
	}
	m, err := resolve.NewManager(resolve.Config{ScaleX: c.cfg.ScaleX, ScaleY: c.cfg.ScaleY}, host, c.cp)
	if err != nil {
		slogger().Warn("texture: draw-resolution scaling disabled", "err", err)
		return
	}
	c.scaled = m
	c.scale = Scale{c.cfg.ScaleX, c.cfg.ScaleY}
	c.scaledResolved = make([]uint64, resolve.DefaultPhysicalMemorySize>>12/64)
}

func nullDescriptorDimension(i uint32) gputypes.TextureViewDimension {
	switch i {
	case nullDescriptor3D:
		return gputypes.TextureViewDimension3D
	case nullDescriptorCube:
		return gputypes.TextureViewDimensionCube
	default:
		return gputypes.TextureViewDimension2DArray
	}
}

func nullDescriptorIndex(d xenos.DataDimension) uint32 {
	switch d {
	case xenos.Dimension3D:
		return nullDescriptor3D
	case xenos.DimensionCube:
		return nullDescriptorCube
	default:
		return nullDescriptor2DArray
	}
}

// Capabilities returns the backend capabilities the cache works with.
func (c *Cache) Capabilities() gpucore.Capabilities { return c.caps }

// Scale returns the active draw-resolution scale, 1x1 when scaling is off.
func (c *Cache) Scale() Scale { return c.scale }

// ScaledResolve returns the scaled-resolve manager, nil when scaling is
// off.
func (c *Cache) ScaledResolve() *resolve.Manager { return c.scaled }

// Bindless reports whether views come from the bindless arena.
func (c *Cache) Bindless() bool { return c.bindless }

// DescriptorHandle returns the backend slot of a view descriptor index.
func (c *Cache) DescriptorHandle(index uint32) gpucore.DescriptorHandle {
	return c.views.Handle(index)
}

// Texture returns the texture for key without creating it.
func (c *Cache) Texture(key Key) (*Texture, bool) {
	t, ok := c.textures[key]
	return t, ok
}

// FindOrCreateTexture returns the texture for key, creating the host
// texture on first use. It returns nil when the format has no host storage
// or host creation fails; both are recorded as unsupported resources.
func (c *Cache) FindOrCreateTexture(key Key) *Texture {
	if !key.IsValid() {
		return nil
	}
	if t, ok := c.textures[key]; ok {
		return t
	}
	t, err := c.createTexture(key)
	if err != nil {
		c.recordUnsupported(key.Format, UnsupportedResource)
		slogger().Debug("texture: create failed", "key", key.String(), "err", err)
		return nil
	}
	return t
}

func (c *Cache) createTexture(key Key) (*Texture, error) {
	format, shader := hostStorage(key, c.caps)
	if format == undef {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, key.Format)
	}
	scale := Scale{1, 1}
	if key.ScaledResolve {
		scale = c.scale
	}
	w, h, d := HostLevelSize(key, 0, scale)
	if max(w, h) > c.caps.MaxTextureDimension2D {
		return nil, fmt.Errorf("%w: %dx%d exceeds host limit %d", ErrUnsupportedFormat, w, h, c.caps.MaxTextureDimension2D)
	}

	desc := gputypes.TextureDescriptor{
		Label:         key.String(),
		Size:          gputypes.Extent3D{Width: w, Height: h, DepthOrArrayLayers: key.DepthOrArraySize()},
		MipLevelCount: key.LevelCount(),
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding,
	}
	if key.Dimension == xenos.Dimension3D {
		desc.Dimension = gputypes.TextureDimension3D
		desc.Size.DepthOrArrayLayers = d
	}
	id, err := c.backend.CreateTexture(&desc)
	if err != nil {
		return nil, fmt.Errorf("texture: create %s: %w", key, err)
	}

	t := &Texture{
		key:          key,
		id:           id,
		format:       format,
		layout:       GuestLayoutFor(key),
		scale:        scale,
		state:        StateCopyDest,
		lastUsed:     c.submission,
		baseOutdated: true,
		mipsOutdated: key.MipMaxLevel > 0,
		descriptors:  make(map[viewKey]uint32),
	}
	t.hostBytes = hostTextureBytes(key, format, shader.Info(), scale)
	t.node = c.lru.PushFront(t)
	c.textures[key] = t
	c.usedBytes += t.hostBytes
	slogger().Debug("texture: created", "key", key.String(), "format", format, "bytes", t.hostBytes)
	return t, nil
}

// FindOrCreateTextureDescriptor returns the view descriptor of tex for a
// signedness and host swizzle, creating it on first use. It returns
// InvalidDescriptor when no descriptor can be allocated.
func (c *Cache) FindOrCreateTextureDescriptor(tex *Texture, signed bool, swizzle uint32) uint32 {
	vk := viewKey{signed: signed, swizzle: swizzle}
	if i, ok := tex.descriptors[vk]; ok {
		return i
	}
	index, err := c.createDescriptor(tex, swizzle)
	if err != nil {
		slogger().Warn("texture: no view descriptor", "key", tex.key.String(), "err", err)
		return InvalidDescriptor
	}
	tex.descriptors[vk] = index
	return index
}

func (c *Cache) createDescriptor(tex *Texture, swizzle uint32) (uint32, error) {
	index, err := c.views.Allocate()
	if err != nil {
		return InvalidDescriptor, fmt.Errorf("%w: %w", ErrDescriptorsExhausted, err)
	}
	view := ViewDesc{
		TextureViewDescriptor: gputypes.TextureViewDescriptor{
			Label:         tex.key.String(),
			Format:        tex.format,
			Dimension:     viewDimension(tex.key.Dimension),
			MipLevelCount: tex.key.LevelCount(),
		},
		Swizzle: swizzle,
	}
	if tex.key.Dimension != xenos.Dimension3D {
		view.ArrayLayerCount = tex.key.DepthOrArraySize()
	}
	if err := c.backend.WriteTextureSRV(tex.id, &view, c.views.Handle(index)); err != nil {
		c.ReleaseTextureDescriptor(index)
		return InvalidDescriptor, fmt.Errorf("texture: write view: %w", err)
	}
	return index, nil
}

// ReleaseTextureDescriptor returns a descriptor index to the scheme that
// issued it.
func (c *Cache) ReleaseTextureDescriptor(index uint32) {
	if err := c.views.Release(index); err != nil {
		slogger().Error("texture: descriptor release", "index", index, "err", err)
	}
}

// destroyTexture releases the host texture and its descriptors and drops
// every binding that points at it.
func (c *Cache) destroyTexture(t *Texture) {
	for _, index := range t.descriptors {
		c.ReleaseTextureDescriptor(index)
	}
	clear(t.descriptors)
	c.backend.DestroyTexture(t.id)
	c.lru.Remove(t.node)
	delete(c.textures, t.key)
	c.usedBytes -= t.hostBytes

	for i := range c.bindings {
		b := &c.bindings[i]
		if b.Texture == t || b.TextureSigned == t {
			b.reset()
			c.bindingsInSync &^= 1 << i
		}
	}
}

// DestroyAllTextures destroys the cached textures. Without force, textures
// used by submissions the GPU has not completed are kept.
func (c *Cache) DestroyAllTextures(force bool) {
	completed := c.cp.CompletedSubmission()
	destroyed := 0
	for _, t := range c.snapshot() {
		if !force && t.lastUsed > completed {
			continue
		}
		c.destroyTexture(t)
		destroyed++
	}
	slogger().Debug("texture: destroyed textures", "count", destroyed, "kept", len(c.textures))
}

// snapshot returns the textures from least to most recently used.
func (c *Cache) snapshot() []*Texture {
	out := make([]*Texture, 0, c.lru.Len())
	for n := c.lru.Oldest(); n != nil; n = n.Newer() {
		out = append(out, n.Value)
	}
	return out
}

// EvictUnused destroys least recently used textures while host memory
// exceeds the eviction threshold. Textures used by submissions the GPU has
// not completed are never destroyed.
func (c *Cache) EvictUnused() int {
	limit := c.cfg.evictionLimit()
	if c.usedBytes <= limit {
		return 0
	}
	completed := c.cp.CompletedSubmission()
	evicted := 0
	for c.usedBytes > limit {
		n := c.lru.Oldest()
		if n == nil || n.Value.lastUsed > completed {
			break
		}
		c.destroyTexture(n.Value)
		evicted++
	}
	c.evictions += uint64(evicted)
	if evicted > 0 {
		slogger().Debug("texture: evicted", "count", evicted, "bytes", c.usedBytes, "limit", limit)
	}
	return evicted
}

// Stats returns cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Textures:    len(c.textures),
		HostBytes:   c.usedBytes,
		BudgetBytes: uint64(c.cfg.MemoryBudgetMB) << 20,
		Evictions:   c.evictions,
		Descriptors: c.views.Live(),
		Bindless:    c.bindless,
		Scaled:      c.scaled != nil,
	}
}

// markUsed stamps the texture with the current submission.
func (c *Cache) markUsed(t *Texture) {
	t.lastUsed = c.submission
	c.lru.MoveToFront(t.node)
}

// InvalidateRange marks textures overlapping guest memory
// [start, start+length) as outdated, and clears the scaled-resolved state
// of the range.
func (c *Cache) InvalidateRange(start, length uint32) {
	if length == 0 {
		return
	}
	end := uint64(start) + uint64(length)
	for _, t := range c.textures {
		base, mips := t.overlaps(uint64(start), end)
		if base {
			t.baseOutdated = true
		}
		if mips && t.key.MipMaxLevel > 0 {
			t.mipsOutdated = true
		}
	}
	c.setScaledResolved(start, length, false)
	// Keys may change their scaled-resolve flag.
	c.bindingsInSync = 0
}

// MarkRangeScaledResolved records that [start, start+length) was written
// by a scaled resolve. Textures created from the range afterwards use
// scaled keys.
func (c *Cache) MarkRangeScaledResolved(start, length uint32) {
	if c.scaled == nil || length == 0 {
		return
	}
	c.setScaledResolved(start, length, true)
	c.bindingsInSync = 0
}

// IsRangeScaledResolved reports whether every page of the range was
// written by scaled resolves.
func (c *Cache) IsRangeScaledResolved(start, length uint32) bool {
	if c.scaled == nil || length == 0 {
		return false
	}
	first, last, ok := c.pageRange(start, length)
	if !ok {
		return false
	}
	for p := first; p <= last; p++ {
		if c.scaledResolved[p>>6]&(1<<(p&63)) == 0 {
			return false
		}
	}
	return true
}

func (c *Cache) pageRange(start, length uint32) (first, last uint32, ok bool) {
	pages := uint32(len(c.scaledResolved) * 64)
	first = start >> 12
	if first >= pages {
		return 0, 0, false
	}
	end := uint64(start) + uint64(length)
	last = uint32(min((end-1)>>12, uint64(pages-1)))
	return first, last, true
}

func (c *Cache) setScaledResolved(start, length uint32, v bool) {
	if c.scaledResolved == nil {
		return
	}
	first, last, ok := c.pageRange(start, length)
	if !ok {
		return
	}
	for p := first; p <= last; p++ {
		if v {
			c.scaledResolved[p>>6] |= 1 << (p & 63)
		} else {
			c.scaledResolved[p>>6] &^= 1 << (p & 63)
		}
	}
}

// ClearCache destroys every texture and forgets all bindings.
func (c *Cache) ClearCache() {
	c.DestroyAllTextures(true)
	for i := range c.bindings {
		c.bindings[i].reset()
	}
	c.bindingsInSync = 0
	if c.scaledResolved != nil {
		clear(c.scaledResolved)
	}
}

// Shutdown destroys every texture, descriptor page and scaled-resolve
// resource. The cache must not be used afterwards.
func (c *Cache) Shutdown() {
	c.ClearCache()
	if c.bindless {
		c.backend.DestroyDescriptorPage(c.arenaPage)
	} else {
		for _, p := range c.heap.Pages() {
			c.backend.DestroyDescriptorPage(p)
		}
	}
	if c.scaled != nil {
		c.scaled.Shutdown()
	}
}
