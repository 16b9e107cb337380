package xenos

// FetchConstantBase is the register index of texture fetch constant 0.
const FetchConstantBase = 0x4800

// FetchConstantStride is the number of 32-bit registers per texture fetch
// constant.
const FetchConstantStride = 6

// FetchConstantCount is the number of texture fetch constants.
const FetchConstantCount = 32

// FetchType is the constant type stored in the low bits of dword 0.
type FetchType uint8

// Fetch constant types. Only FetchTypeTexture describes a texture.
const (
	FetchTypeInvalid FetchType = iota
	FetchTypeInvalid1
	FetchTypeTexture
	FetchTypeVertex
)

// RegisterFile gives indexed read access to guest GPU registers.
type RegisterFile interface {
	Register(index uint32) uint32
}

// RegisterArray is a flat register file covering all fetch constants.
// It is used by tools and tests; emulators pass their own RegisterFile.
type RegisterArray struct {
	regs [FetchConstantCount * FetchConstantStride]uint32
}

// NewRegisterArray creates a zeroed register array.
func NewRegisterArray() *RegisterArray {
	return &RegisterArray{}
}

// Register implements RegisterFile. Registers outside the fetch constant
// range read as zero.
func (r *RegisterArray) Register(index uint32) uint32 {
	i := index - FetchConstantBase
	if index < FetchConstantBase || i >= uint32(len(r.regs)) {
		return 0
	}
	return r.regs[i]
}

// SetFetch stores the six dwords of fetch constant index.
func (r *RegisterArray) SetFetch(index uint32, dwords [FetchConstantStride]uint32) {
	copy(r.regs[index*FetchConstantStride:], dwords[:])
}

// TextureFetch is a decoded texture fetch constant.
type TextureFetch struct {
	Type         FetchType
	SignX        TextureSign
	SignY        TextureSign
	SignZ        TextureSign
	SignW        TextureSign
	ClampX       ClampMode
	ClampY       ClampMode
	ClampZ       ClampMode
	SignedRFMode bool
	Pitch        uint32 // texels, base level
	Tiled        bool
	Format       TextureFormat
	Endianness   Endian
	RequestSize  uint8
	Stacked      bool
	ClampPolicy  bool
	BaseAddress  uint32 // 4KB pages
	SizeRaw      uint32
	NumFormat    bool
	Swizzle      uint32
	ExpAdjust    int32
	MagFilter    TextureFilter
	MinFilter    TextureFilter
	MipFilter    TextureFilter
	AnisoFilter  AnisoFilter
	BorderSize   bool
	VolMagFilter TextureFilter
	VolMinFilter TextureFilter
	MipMinLevel  uint32
	MipMaxLevel  uint32
	LODBias      int32 // 5.5 fixed point
	BorderColor  BorderColor
	TriClamp     uint8
	AnisoBias    int32
	Dimension    DataDimension
	PackedMips   bool
	MipAddress   uint32 // 4KB pages
	Raw          [FetchConstantStride]uint32
}

func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

// DecodeTextureFetch decodes six fetch constant dwords.
func DecodeTextureFetch(d [FetchConstantStride]uint32) TextureFetch {
	f := TextureFetch{Raw: d}

	f.Type = FetchType(d[0] & 3)
	f.SignX = TextureSign((d[0] >> 2) & 3)
	f.SignY = TextureSign((d[0] >> 4) & 3)
	f.SignZ = TextureSign((d[0] >> 6) & 3)
	f.SignW = TextureSign((d[0] >> 8) & 3)
	f.ClampX = ClampMode((d[0] >> 10) & 7)
	f.ClampY = ClampMode((d[0] >> 13) & 7)
	f.ClampZ = ClampMode((d[0] >> 16) & 7)
	f.SignedRFMode = (d[0]>>19)&1 != 0
	f.Pitch = ((d[0] >> 22) & 0x1FF) << 5
	f.Tiled = d[0]>>31 != 0

	f.Format = TextureFormat(d[1] & 0x3F)
	f.Endianness = Endian((d[1] >> 6) & 3)
	f.RequestSize = uint8((d[1] >> 8) & 3)
	f.Stacked = (d[1]>>10)&1 != 0
	f.ClampPolicy = (d[1]>>11)&1 != 0
	f.BaseAddress = d[1] >> 12

	f.SizeRaw = d[2]

	f.NumFormat = d[3]&1 != 0
	f.Swizzle = (d[3] >> 1) & 0xFFF
	f.ExpAdjust = signExtend((d[3]>>13)&0x3F, 6)
	f.MagFilter = TextureFilter((d[3] >> 19) & 3)
	f.MinFilter = TextureFilter((d[3] >> 21) & 3)
	f.MipFilter = TextureFilter((d[3] >> 23) & 3)
	f.AnisoFilter = AnisoFilter((d[3] >> 25) & 7)
	f.BorderSize = d[3]>>31 != 0

	f.VolMagFilter = TextureFilter(d[4] & 1)
	f.VolMinFilter = TextureFilter((d[4] >> 1) & 1)
	f.MipMinLevel = (d[4] >> 2) & 0xF
	f.MipMaxLevel = (d[4] >> 6) & 0xF
	f.LODBias = signExtend((d[4]>>12)&0x3FF, 10)

	f.BorderColor = BorderColor(d[5] & 3)
	f.TriClamp = uint8((d[5] >> 3) & 3)
	f.AnisoBias = signExtend((d[5]>>5)&0xF, 4)
	f.Dimension = DataDimension((d[5] >> 9) & 3)
	f.PackedMips = (d[5]>>11)&1 != 0
	f.MipAddress = d[5] >> 12

	return f
}

// ReadTextureFetch reads and decodes fetch constant index from regs.
func ReadTextureFetch(regs RegisterFile, index uint32) TextureFetch {
	var d [FetchConstantStride]uint32
	base := uint32(FetchConstantBase) + index*FetchConstantStride
	for i := range d {
		d[i] = regs.Register(base + uint32(i))
	}
	return DecodeTextureFetch(d)
}

// Size returns the texture width, height and depth (or array size) in
// texels, decoded according to the dimension.
func (f *TextureFetch) Size() (width, height, depth uint32) {
	s := f.SizeRaw
	switch f.Dimension {
	case Dimension1D:
		return (s & 0xFFFFFF) + 1, 1, 1
	case Dimension2DOrStacked:
		width = (s & 0x1FFF) + 1
		height = ((s >> 13) & 0x1FFF) + 1
		depth = 1
		if f.Stacked {
			depth = ((s >> 26) & 0x3F) + 1
		}
		return width, height, depth
	case Dimension3D:
		return (s & 0x7FF) + 1, ((s >> 11) & 0x7FF) + 1, ((s >> 22) & 0x3FF) + 1
	case DimensionCube:
		return (s & 0x1FFF) + 1, ((s >> 13) & 0x1FFF) + 1, 6
	}
	return 1, 1, 1
}

// MipLevels returns the clamped [min, max] mip range, never exceeding the
// full chain of the base size.
func (f *TextureFetch) MipLevels() (minLevel, maxLevel uint32) {
	w, h, d := f.Size()
	if f.Dimension != Dimension3D {
		d = 1
	}
	full := Log2Floor(max(w, h, d))
	maxLevel = min(f.MipMaxLevel, full)
	minLevel = min(f.MipMinLevel, maxLevel)
	return minLevel, maxLevel
}

// IsSigned reports whether any component uses signed sampling.
func (f *TextureFetch) IsSigned() bool {
	return f.SignX == SignSigned || f.SignY == SignSigned ||
		f.SignZ == SignSigned || f.SignW == SignSigned
}

// Signs returns the four component signs packed 2 bits each.
func (f *TextureFetch) Signs() uint8 {
	return uint8(f.SignX) | uint8(f.SignY)<<2 | uint8(f.SignZ)<<4 | uint8(f.SignW)<<6
}

// FetchBuilder encodes the fetch constant fields most tools need. Unset
// fields encode as zero, except Pitch (defaults to Width) and Swizzle
// (defaults to SwizzleXYZW).
type FetchBuilder struct {
	Format      TextureFormat
	Dimension   DataDimension
	Width       uint32
	Height      uint32
	Depth       uint32
	Pitch       uint32
	Tiled       bool
	Stacked     bool
	Endianness  Endian
	BaseAddress uint32
	MipAddress  uint32
	MipMaxLevel uint32
	PackedMips  bool
	Signs       [4]TextureSign
	Clamp       [3]ClampMode
	Swizzle     uint32
	MagFilter   TextureFilter
	MinFilter   TextureFilter
	MipFilter   TextureFilter
	Aniso       AnisoFilter
	Border      BorderColor
}

// Build returns the six fetch constant dwords.
func (b FetchBuilder) Build() [FetchConstantStride]uint32 {
	var d [FetchConstantStride]uint32
	w, h, depth := max(b.Width, 1)-1, max(b.Height, 1)-1, max(b.Depth, 1)-1

	d[0] = uint32(FetchTypeTexture)
	for i, s := range b.Signs {
		d[0] |= uint32(s&3) << (2 + 2*i)
	}
	for i, c := range b.Clamp {
		d[0] |= uint32(c&7) << (10 + 3*i)
	}
	pitch := b.Pitch
	if pitch == 0 {
		pitch = b.Width
	}
	d[0] |= ((pitch >> 5) & 0x1FF) << 22
	if b.Tiled {
		d[0] |= 1 << 31
	}

	d[1] = uint32(b.Format&0x3F) | uint32(b.Endianness&3)<<6 | (b.BaseAddress&0xFFFFF)<<12
	if b.Stacked {
		d[1] |= 1 << 10
	}

	switch b.Dimension {
	case Dimension1D:
		d[2] = w & 0xFFFFFF
	case Dimension3D:
		d[2] = w&0x7FF | (h&0x7FF)<<11 | (depth&0x3FF)<<22
	default:
		d[2] = w&0x1FFF | (h&0x1FFF)<<13 | (depth&0x3F)<<26
	}

	swizzle := b.Swizzle
	if swizzle == 0 {
		swizzle = SwizzleXYZW
	}
	d[3] = (swizzle&0xFFF)<<1 | uint32(b.MagFilter&3)<<19 | uint32(b.MinFilter&3)<<21 |
		uint32(b.MipFilter&3)<<23 | uint32(b.Aniso&7)<<25

	d[4] = (b.MipMaxLevel & 0xF) << 6

	d[5] = uint32(b.Border&3) | uint32(b.Dimension&3)<<9 | (b.MipAddress&0xFFFFF)<<12
	if b.PackedMips {
		d[5] |= 1 << 11
	}
	return d
}
