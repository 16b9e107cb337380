package texture

import "github.com/gogpu/texcache/xenos"

// SamplerBinding is one sampler slot of a shader. Filters set to
// xenos.FilterUseFetchConst and aniso set to xenos.AnisoUseFetchConst take
// the value from the fetch constant.
type SamplerBinding struct {
	FetchConstant uint32
	MagFilter     xenos.TextureFilter
	MinFilter     xenos.TextureFilter
	MipFilter     xenos.TextureFilter
	AnisoFilter   xenos.AnisoFilter
}

// SamplerParameters is the host-relevant state of a guest sampler. It is
// comparable and used as the key of backend sampler caches.
type SamplerParameters struct {
	// Clamp modes after normalization: ClampToHalfway and the mirrored
	// halfway and border variants are never present.
	ClampX, ClampY, ClampZ xenos.ClampMode

	// BorderColor is only meaningful when some axis uses ClampToBorder,
	// otherwise it is zero.
	BorderColor xenos.BorderColor

	MagLinear bool
	MinLinear bool
	MipLinear bool

	// MipBaseMap samples only MipMinLevel.
	MipBaseMap bool

	// Aniso is disabled or a ratio; when set all filters are linear.
	Aniso xenos.AnisoFilter

	MipMinLevel uint32
	MipMaxLevel uint32

	// LODBias is in 1/32 units.
	LODBias int32
}

// LODBiasFloat returns the LOD bias in levels.
func (p SamplerParameters) LODBiasFloat() float32 {
	return float32(p.LODBias) / 32
}

// UsesBorder reports whether any axis samples the border color.
func (p SamplerParameters) UsesBorder() bool {
	return p.ClampX.UsesBorder() || p.ClampY.UsesBorder() || p.ClampZ.UsesBorder()
}

// normalizeClamp maps guest clamp modes to ones every host has.
func normalizeClamp(m xenos.ClampMode) xenos.ClampMode {
	switch m {
	case xenos.ClampToHalfway:
		return xenos.ClampToEdge
	case xenos.ClampMirrorClampToHalfway, xenos.ClampMirrorClampToBorder:
		return xenos.ClampMirrorClampToEdge
	}
	return m
}

// GetSamplerParameters builds the sampler state of a shader sampler slot
// from the current fetch constant.
func (c *Cache) GetSamplerParameters(binding SamplerBinding) SamplerParameters {
	fetch := xenos.ReadTextureFetch(c.regs, binding.FetchConstant)
	return SamplerParametersFor(&fetch, binding)
}

// SamplerParametersFor builds sampler state from a decoded fetch constant.
func SamplerParametersFor(fetch *xenos.TextureFetch, binding SamplerBinding) SamplerParameters {
	p := SamplerParameters{
		ClampX:  normalizeClamp(fetch.ClampX),
		ClampY:  normalizeClamp(fetch.ClampY),
		ClampZ:  normalizeClamp(fetch.ClampZ),
		LODBias: fetch.LODBias,
	}
	if p.UsesBorder() {
		p.BorderColor = fetch.BorderColor
	}

	mag := binding.MagFilter
	if mag == xenos.FilterUseFetchConst {
		mag = fetch.MagFilter
	}
	minf := binding.MinFilter
	if minf == xenos.FilterUseFetchConst {
		minf = fetch.MinFilter
	}
	mip := binding.MipFilter
	if mip == xenos.FilterUseFetchConst {
		mip = fetch.MipFilter
	}
	p.MagLinear = mag == xenos.FilterLinear
	p.MinLinear = minf == xenos.FilterLinear
	p.MipLinear = mip == xenos.FilterLinear
	p.MipBaseMap = mip == xenos.FilterBaseMap

	aniso := binding.AnisoFilter
	if aniso == xenos.AnisoUseFetchConst {
		aniso = fetch.AnisoFilter
	}
	if aniso.MaxAnisotropy() != 0 {
		p.Aniso = aniso
		p.MagLinear, p.MinLinear, p.MipLinear = true, true, true
	}

	p.MipMinLevel, p.MipMaxLevel = fetch.MipLevels()
	return p
}

var borderColors = [4][4]float32{
	xenos.BorderABGRBlack:   {0, 0, 0, 0},
	xenos.BorderABGRWhite:   {1, 1, 1, 1},
	xenos.BorderACBYCRBlack: {0.5, 0, 0.5, 0},
	xenos.BorderACBCRYBlack: {0, 0.5, 0.5, 0},
}

// BorderColorRGBA returns the host RGBA value of a guest border color.
// The YCbCr blacks have chroma at one half.
func BorderColorRGBA(b xenos.BorderColor) [4]float32 {
	return borderColors[b&3]
}
