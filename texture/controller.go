package texture

import (
	"math/bits"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/xenos"
)

// BeginSubmission starts recording submission index and evicts textures
// over the memory budget.
func (c *Cache) BeginSubmission(index uint64) {
	c.submission = index
	c.EvictUnused()
}

// BeginFrame starts a guest frame.
func (c *Cache) BeginFrame() {
	clear(c.unsupported[:])
}

// EndFrame ends a guest frame and reports the unsupported guest formats
// used during it, one log line per format.
func (c *Cache) EndFrame() {
	c.reportUnsupported()
}

// Binding returns the cached state of fetch constant slot i, nil when i is
// out of range.
func (c *Cache) Binding(i uint32) *Binding {
	if i >= xenos.FetchConstantCount {
		return nil
	}
	return &c.bindings[i]
}

// OnFetchConstantWritten marks fetch constant slot i as changed.
func (c *Cache) OnFetchConstantWritten(i uint32) {
	if i >= xenos.FetchConstantCount {
		return
	}
	c.bindingsInSync &^= 1 << i
}

// RequestTextures makes the textures of the fetch constants in mask ready
// for sampling: bindings are refreshed from the registers, textures are
// created and loaded when outdated, and moved to the shader-resource
// state.
func (c *Cache) RequestTextures(mask uint32) {
	stale := mask &^ c.bindingsInSync
	for m := stale; m != 0; m &= m - 1 {
		i := uint32(bits.TrailingZeros32(m))
		c.updateBinding(i)
		c.bindingsInSync |= 1 << i
	}
	for m := mask; m != 0; m &= m - 1 {
		b := &c.bindings[bits.TrailingZeros32(m)]
		c.prepareForSampling(b.Texture)
		if b.TextureSigned != b.Texture {
			c.prepareForSampling(b.TextureSigned)
		}
	}
}

func (c *Cache) prepareForSampling(t *Texture) {
	if t == nil {
		return
	}
	c.markUsed(t)
	if !t.IsLoaded() {
		c.LoadTextureData(t)
	}
	if c.cp.PushTextureTransition(t.id, t.state, StateShaderResource) {
		t.state = StateShaderResource
	}
}

// bindingKey derives the key of fetch, flagging it scaled when its base
// range was written by scaled resolves.
func (c *Cache) bindingKey(fetch *xenos.TextureFetch) (Key, bool) {
	key, ok := KeyFromFetch(fetch)
	if !ok {
		return Key{}, false
	}
	if c.scaled != nil && key.BasePage != 0 {
		l := GuestLayoutFor(key)
		key.ScaledResolve = c.IsRangeScaledResolved(key.BasePage<<12, l.BaseSize)
	}
	return key, true
}

func (c *Cache) updateBinding(i uint32) {
	b := &c.bindings[i]
	b.reset()
	b.fetch = xenos.ReadTextureFetch(c.regs, i)
	key, ok := c.bindingKey(&b.fetch)
	if !ok {
		return
	}
	b.Key = key
	b.HostSwizzle = xenos.ComposeSwizzle(GetHostFormatSwizzle(key.Format), b.fetch.Swizzle)
	b.SwizzledSigns = SwizzleSigns(b.fetch.Swizzle, b.fetch.Signs())

	host := HostFormatFor(key.Format).ForCaps(c.caps)
	if b.AnyUnsigned() {
		if host.Unsigned == undef {
			c.recordUnsupported(key.Format, UnsupportedUnorm)
		}
		b.Texture = c.FindOrCreateTexture(key)
	}
	if !b.AnySigned() {
		return
	}
	switch {
	case host.Signed == undef:
		c.recordUnsupported(key.Format, UnsupportedSnorm)
	case IsSignedVersionSeparate(key.Format):
		b.SignedKey = key.Signed()
		b.TextureSigned = c.FindOrCreateTexture(b.SignedKey)
	default:
		if b.Texture == nil {
			b.Texture = c.FindOrCreateTexture(key)
		}
		b.TextureSigned = b.Texture
	}
}

// srvTexture returns the texture a shader binding samples, nil when the
// slot has none or the dimensions disagree.
func (c *Cache) srvTexture(srv TextureSRV) *Texture {
	if srv.FetchConstant >= xenos.FetchConstantCount {
		return nil
	}
	b := &c.bindings[srv.FetchConstant]
	t := b.Texture
	if srv.IsSigned {
		t = b.TextureSigned
	}
	if t == nil || viewDimension(t.key.Dimension) != viewDimension(srv.Dimension) {
		return nil
	}
	return t
}

func (c *Cache) srvDescriptor(srv TextureSRV) uint32 {
	t := c.srvTexture(srv)
	if t == nil {
		return InvalidDescriptor
	}
	return c.FindOrCreateTextureDescriptor(t, srv.IsSigned, c.bindings[srv.FetchConstant].HostSwizzle)
}

// WriteActiveTextureBindfulSRV writes the view of a shader texture binding
// into dst, or a null view when the binding has no usable texture.
func (c *Cache) WriteActiveTextureBindfulSRV(srv TextureSRV, dst gpucore.DescriptorHandle) {
	if index := c.srvDescriptor(srv); index != InvalidDescriptor {
		c.backend.CopyDescriptor(c.views.Handle(index), dst)
		return
	}
	c.backend.WriteNullSRV(viewDimension(srv.Dimension), dst)
}

// GetActiveTextureBindlessSRVIndex returns the bindless arena index of the
// view of a shader texture binding, or the null view of the binding's
// dimension.
func (c *Cache) GetActiveTextureBindlessSRVIndex(srv TextureSRV) uint32 {
	if index := c.srvDescriptor(srv); index != InvalidDescriptor {
		return index
	}
	return nullDescriptorIndex(srv.Dimension)
}

func (c *Cache) srvKey(srv TextureSRV) SRVKey {
	if srv.FetchConstant >= xenos.FetchConstantCount {
		return SRVKey{}
	}
	b := &c.bindings[srv.FetchConstant]
	return SRVKey{Key: b.Key, HostSwizzle: b.HostSwizzle, SwizzledSigns: b.SwizzledSigns}
}

// AreActiveTextureSRVKeysUpToDate reports whether keys still describe the
// views srvs would receive.
func (c *Cache) AreActiveTextureSRVKeysUpToDate(keys []SRVKey, srvs []TextureSRV) bool {
	if len(keys) != len(srvs) {
		return false
	}
	for i, srv := range srvs {
		if keys[i] != c.srvKey(srv) {
			return false
		}
	}
	return true
}

// WriteActiveTextureSRVKeys stores the current key of each of srvs into
// keys, which must be at least as long.
func (c *Cache) WriteActiveTextureSRVKeys(keys []SRVKey, srvs []TextureSRV) {
	for i, srv := range srvs {
		keys[i] = c.srvKey(srv)
	}
}

// SwapTexture is the texture presented at the end of a frame.
type SwapTexture struct {
	tex     *Texture
	swizzle uint32
}

var _ gpucontext.Texture = (*SwapTexture)(nil)

// Width implements gpucontext.Texture.
func (s *SwapTexture) Width() int {
	w, _ := s.tex.Size()
	return int(w)
}

// Height implements gpucontext.Texture.
func (s *SwapTexture) Height() int {
	_, h := s.tex.Size()
	return int(h)
}

// Texture returns the cache texture being presented.
func (s *SwapTexture) Texture() *Texture { return s.tex }

// Swizzle returns the host swizzle to apply when presenting.
func (s *SwapTexture) Swizzle() uint32 { return s.swizzle }

// RequestSwapTexture returns the texture described by fetch constant 0
// as a single-level 2D image, loaded and ready for sampling.
func (c *Cache) RequestSwapTexture() (*SwapTexture, bool) {
	fetch := xenos.ReadTextureFetch(c.regs, 0)
	key, ok := c.bindingKey(&fetch)
	if !ok {
		return nil, false
	}
	key.Dimension = xenos.Dimension2DOrStacked
	key.DepthOrArraySizeMinus1 = 0
	key.MipMaxLevel = 0
	key.MipPage = 0
	key.PackedMips = false
	if !key.IsValid() {
		return nil, false
	}
	t := c.FindOrCreateTexture(key)
	if t == nil {
		return nil, false
	}
	c.markUsed(t)
	if !c.LoadTextureData(t) {
		return nil, false
	}
	if c.cp.PushTextureTransition(t.id, t.state, StateShaderResource) {
		t.state = StateShaderResource
	}
	swizzle := xenos.ComposeSwizzle(GetHostFormatSwizzle(key.Format), fetch.Swizzle)
	return &SwapTexture{tex: t, swizzle: swizzle}, true
}
