package texture

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/xenos"
)

// Binding is the cached state of one fetch constant slot.
type Binding struct {
	// Key is the unsigned key, the zero Key when the slot holds no valid
	// texture.
	Key Key

	// SignedKey is the key of the separate signed resource. Only valid
	// when some component is sampled as signed and the format needs a
	// separate resource for it.
	SignedKey Key

	// HostSwizzle is the guest fetch swizzle composed with the host format
	// swizzle.
	HostSwizzle uint32

	// SwizzledSigns holds the sign of each output component after the
	// swizzle, 2 bits each.
	SwizzledSigns uint8

	Texture       *Texture
	TextureSigned *Texture

	fetch xenos.TextureFetch
}

// Fetch returns the decoded fetch constant the binding was built from.
func (b *Binding) Fetch() *xenos.TextureFetch { return &b.fetch }

// AnySigned reports whether any output component samples the signed view.
func (b *Binding) AnySigned() bool { return swizzledSignsAny(b.SwizzledSigns, xenos.SignSigned) }

// AnyUnsigned reports whether any output component samples the unsigned
// view.
func (b *Binding) AnyUnsigned() bool {
	for i := 0; i < 4; i++ {
		if xenos.TextureSign(b.SwizzledSigns>>(2*i))&3 != xenos.SignSigned {
			return true
		}
	}
	return false
}

func (b *Binding) reset() {
	*b = Binding{}
}

// SwizzleSigns permutes the four component signs by a fetch swizzle.
// Constant components count as unsigned.
func SwizzleSigns(swizzle uint32, signs uint8) uint8 {
	var out uint8
	for i := 0; i < 4; i++ {
		sel := xenos.SwizzleComponent(swizzle, i)
		s := uint8(xenos.SignUnsigned)
		if sel < xenos.SwizzleZero {
			s = (signs >> (2 * sel)) & 3
		}
		out |= s << (2 * i)
	}
	return out
}

func swizzledSignsAny(signs uint8, s xenos.TextureSign) bool {
	for i := 0; i < 4; i++ {
		if xenos.TextureSign(signs>>(2*i))&3 == s {
			return true
		}
	}
	return false
}

// SRVKey is the part of a binding that decides which view a shader
// binding slot receives. Shader binding layers cache one per slot.
type SRVKey struct {
	Key           Key
	HostSwizzle   uint32
	SwizzledSigns uint8
}

// TextureSRV describes one texture binding slot of a shader.
type TextureSRV struct {
	FetchConstant uint32
	Dimension     xenos.DataDimension
	IsSigned      bool
}

// viewDimension maps a guest dimension to the host view dimension. 1D and
// 2D textures are stored as 2D arrays.
func viewDimension(d xenos.DataDimension) gputypes.TextureViewDimension {
	switch d {
	case xenos.Dimension3D:
		return gputypes.TextureViewDimension3D
	case xenos.DimensionCube:
		return gputypes.TextureViewDimensionCube
	default:
		return gputypes.TextureViewDimension2DArray
	}
}
