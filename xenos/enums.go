package xenos

// DataDimension is the dimension field of a texture fetch constant.
type DataDimension uint8

// Texture data dimensions.
const (
	Dimension1D DataDimension = iota
	Dimension2DOrStacked
	Dimension3D
	DimensionCube
)

func (d DataDimension) String() string {
	switch d {
	case Dimension1D:
		return "1D"
	case Dimension2DOrStacked:
		return "2D"
	case Dimension3D:
		return "3D"
	case DimensionCube:
		return "Cube"
	default:
		return "Unknown"
	}
}

// ClampMode is the per-axis addressing mode of a texture fetch.
type ClampMode uint8

// Clamp modes.
const (
	ClampRepeat ClampMode = iota
	ClampMirroredRepeat
	ClampToEdge
	ClampMirrorClampToEdge
	ClampToHalfway
	ClampMirrorClampToHalfway
	ClampToBorder
	ClampMirrorClampToBorder
)

// UsesBorder reports whether the mode samples the border color.
func (m ClampMode) UsesBorder() bool {
	return m == ClampToBorder || m == ClampMirrorClampToBorder
}

func (m ClampMode) String() string {
	switch m {
	case ClampRepeat:
		return "Repeat"
	case ClampMirroredRepeat:
		return "MirroredRepeat"
	case ClampToEdge:
		return "ClampToEdge"
	case ClampMirrorClampToEdge:
		return "MirrorClampToEdge"
	case ClampToHalfway:
		return "ClampToHalfway"
	case ClampMirrorClampToHalfway:
		return "MirrorClampToHalfway"
	case ClampToBorder:
		return "ClampToBorder"
	case ClampMirrorClampToBorder:
		return "MirrorClampToBorder"
	default:
		return "Unknown"
	}
}

// TextureFilter is a min/mag/mip filter selection.
type TextureFilter uint8

// Texture filters. FilterUseFetchConst is only meaningful in a shader
// sampler binding and defers to the fetch constant.
const (
	FilterPoint TextureFilter = iota
	FilterLinear
	FilterBaseMap
	FilterUseFetchConst
)

func (f TextureFilter) String() string {
	switch f {
	case FilterPoint:
		return "Point"
	case FilterLinear:
		return "Linear"
	case FilterBaseMap:
		return "BaseMap"
	case FilterUseFetchConst:
		return "UseFetchConst"
	default:
		return "Unknown"
	}
}

// AnisoFilter is the anisotropic filtering ratio.
type AnisoFilter uint8

// Anisotropic filter ratios.
const (
	AnisoDisabled AnisoFilter = iota
	Aniso1To1
	Aniso2To1
	Aniso4To1
	Aniso8To1
	Aniso16To1
	_
	AnisoUseFetchConst
)

// MaxAnisotropy returns the host anisotropy clamp for the ratio, 0 when
// anisotropic filtering is disabled.
func (a AnisoFilter) MaxAnisotropy() uint16 {
	switch a {
	case Aniso1To1, Aniso2To1, Aniso4To1, Aniso8To1, Aniso16To1:
		return 1 << (a - Aniso1To1)
	default:
		return 0
	}
}

// BorderColor selects one of the fixed guest border colors.
type BorderColor uint8

// Border colors.
const (
	BorderABGRBlack BorderColor = iota
	BorderABGRWhite
	BorderACBYCRBlack
	BorderACBCRYBlack
)

// Endian is a guest memory swap mode applied per 32-bit word.
type Endian uint8

// Endian swap modes.
const (
	EndianNone Endian = iota
	Endian8In16
	Endian8In32
	Endian16In32
)

func (e Endian) String() string {
	switch e {
	case EndianNone:
		return "None"
	case Endian8In16:
		return "8in16"
	case Endian8In32:
		return "8in32"
	case Endian16In32:
		return "16in32"
	default:
		return "Unknown"
	}
}

// TextureSign is the per-component signedness of a fetch.
type TextureSign uint8

// Component signedness.
const (
	SignUnsigned TextureSign = iota
	SignSigned
	SignUnsignedBiased
	SignGamma
)

// Swizzle component selectors, 3 bits each.
const (
	SwizzleX uint32 = iota
	SwizzleY
	SwizzleZ
	SwizzleW
	SwizzleZero
	SwizzleOne
)

// SwizzleXYZW is the identity swizzle.
const SwizzleXYZW = SwizzleX | SwizzleY<<3 | SwizzleZ<<6 | SwizzleW<<9

// SwizzleComponent returns the selector for component i (0..3).
func SwizzleComponent(swizzle uint32, i int) uint32 {
	return (swizzle >> (3 * i)) & 7
}

// ComposeSwizzle applies the guest fetch swizzle on top of a host format
// swizzle. Constant selectors (0 and 1) pass through unchanged.
func ComposeSwizzle(host, fetch uint32) uint32 {
	var out uint32
	for i := 0; i < 4; i++ {
		sel := SwizzleComponent(fetch, i)
		if sel < SwizzleZero {
			sel = SwizzleComponent(host, int(sel))
		}
		out |= sel << (3 * i)
	}
	return out
}
