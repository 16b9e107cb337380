package texture

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/internal/cache"
	"github.com/gogpu/texcache/xenos"
)

// viewKey identifies one cached view of a texture.
type viewKey struct {
	signed  bool
	swizzle uint32
}

// Texture is a host texture holding the data of one Key.
type Texture struct {
	key       Key
	id        gpucore.TextureID
	format    gputypes.TextureFormat
	layout    GuestLayout
	scale     Scale
	state     gputypes.TextureUsage
	lastUsed  uint64
	hostBytes uint64

	baseOutdated bool
	mipsOutdated bool

	descriptors map[viewKey]uint32
	node        *cache.Node[*Texture]
}

// Key returns the key the texture was created for.
func (t *Texture) Key() Key { return t.key }

// ID returns the host texture.
func (t *Texture) ID() gpucore.TextureID { return t.id }

// Format returns the host texture format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// ResourceState returns the state the texture was last transitioned to.
func (t *Texture) ResourceState() gputypes.TextureUsage { return t.state }

// LastUsedSubmission returns the last submission that referenced the
// texture.
func (t *Texture) LastUsedSubmission() uint64 { return t.lastUsed }

// Layout returns the guest layout of the texture data.
func (t *Texture) Layout() *GuestLayout { return &t.layout }

// HostBytes returns the estimated host memory used by the texture.
func (t *Texture) HostBytes() uint64 { return t.hostBytes }

// IsLoaded reports whether both the base level and the mips hold current
// guest data.
func (t *Texture) IsLoaded() bool { return !t.baseOutdated && !t.mipsOutdated }

// Size returns the host size of level 0.
func (t *Texture) Size() (width, height uint32) {
	w, h, _ := HostLevelSize(t.key, 0, t.scale)
	return w, h
}

// DescriptorCount returns the number of cached views.
func (t *Texture) DescriptorCount() int { return len(t.descriptors) }

func (t *Texture) overlaps(start, end uint64) (base, mips bool) {
	if t.key.BasePage != 0 && t.layout.BaseSize != 0 {
		s := uint64(t.key.BasePage) << 12
		base = start < s+uint64(t.layout.BaseSize) && s < end
	}
	if t.key.MipPage != 0 && t.layout.MipsSize != 0 {
		s := uint64(t.key.MipPage) << 12
		mips = start < s+uint64(t.layout.MipsSize) && s < end
	}
	if t.layout.TailInBase && base {
		mips = true
	}
	return base, mips
}

// hostTextureBytes estimates the memory of a host texture.
func hostTextureBytes(key Key, format gputypes.TextureFormat, info LoadShaderInfo, scale Scale) uint64 {
	bw, bh := HostBlockSize(format)
	layers := uint64(1)
	if key.Dimension != xenos.Dimension3D {
		layers = uint64(key.DepthOrArraySize())
	}
	var total uint64
	for level := uint32(0); level < key.LevelCount(); level++ {
		w, h, d := HostLevelSize(key, level, scale)
		blocks := uint64((w+bw-1)/bw) * uint64((h+bh-1)/bh) * uint64(d) * layers
		total += blocks << info.HostBytesPerBlockLog2
	}
	return total
}
