package texture

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/xenos"
)

// LoadShaderIndex selects the untile-and-convert kernel for a texture.
type LoadShaderIndex uint8

// Load shaders. The plain Nbpb kernels untile and endian-swap without
// changing the data; the rest convert to a host format.
const (
	LoadShaderUnknown LoadShaderIndex = iota
	LoadShader8bpb
	LoadShader16bpb
	LoadShader32bpb
	LoadShader64bpb
	LoadShader128bpb
	LoadShaderR5G5B5A1ToRGBA8
	LoadShaderR5G6B5ToRGBA8
	LoadShaderR6G5B5ToRGBA8
	LoadShaderRGBA4ToRGBA8
	LoadShaderGBGR8ToRGBA8
	LoadShaderBGRG8ToRGBA8
	LoadShaderR10G11B11ToRGBA16
	LoadShaderR10G11B11ToRGBA16SNorm
	LoadShaderR11G11B10ToRGBA16
	LoadShaderR11G11B10ToRGBA16SNorm
	LoadShaderR16UNormToFloat
	LoadShaderR16SNormToFloat
	LoadShaderRG16UNormToFloat
	LoadShaderRG16SNormToFloat
	LoadShaderRGBA16UNormToFloat
	LoadShaderRGBA16SNormToFloat
	LoadShaderDXT1ToRGBA8
	LoadShaderDXT3ToRGBA8
	LoadShaderDXT5ToRGBA8
	LoadShaderDXNToRG8
	LoadShaderDXT3A
	LoadShaderDXT3AAs1111ToRGBA8
	LoadShaderDXT5AToR8
	LoadShaderCTX1
	LoadShaderDepthUnorm
	LoadShaderDepthFloat

	// LoadShaderCount is the number of load shaders.
	LoadShaderCount
)

var loadShaderNames = [LoadShaderCount]string{
	LoadShaderUnknown:                "unknown",
	LoadShader8bpb:                   "8bpb",
	LoadShader16bpb:                  "16bpb",
	LoadShader32bpb:                  "32bpb",
	LoadShader64bpb:                  "64bpb",
	LoadShader128bpb:                 "128bpb",
	LoadShaderR5G5B5A1ToRGBA8:        "r5g5b5a1_rgba8",
	LoadShaderR5G6B5ToRGBA8:          "r5g6b5_rgba8",
	LoadShaderR6G5B5ToRGBA8:          "r6g5b5_rgba8",
	LoadShaderRGBA4ToRGBA8:           "rgba4_rgba8",
	LoadShaderGBGR8ToRGBA8:           "gbgr8_rgba8",
	LoadShaderBGRG8ToRGBA8:           "bgrg8_rgba8",
	LoadShaderR10G11B11ToRGBA16:      "r10g11b11_rgba16",
	LoadShaderR10G11B11ToRGBA16SNorm: "r10g11b11_rgba16_snorm",
	LoadShaderR11G11B10ToRGBA16:      "r11g11b10_rgba16",
	LoadShaderR11G11B10ToRGBA16SNorm: "r11g11b10_rgba16_snorm",
	LoadShaderR16UNormToFloat:        "r16_unorm_float",
	LoadShaderR16SNormToFloat:        "r16_snorm_float",
	LoadShaderRG16UNormToFloat:       "rg16_unorm_float",
	LoadShaderRG16SNormToFloat:       "rg16_snorm_float",
	LoadShaderRGBA16UNormToFloat:     "rgba16_unorm_float",
	LoadShaderRGBA16SNormToFloat:     "rgba16_snorm_float",
	LoadShaderDXT1ToRGBA8:            "dxt1_rgba8",
	LoadShaderDXT3ToRGBA8:            "dxt3_rgba8",
	LoadShaderDXT5ToRGBA8:            "dxt5_rgba8",
	LoadShaderDXNToRG8:               "dxn_rg8",
	LoadShaderDXT3A:                  "dxt3a",
	LoadShaderDXT3AAs1111ToRGBA8:     "dxt3aas1111_rgba8",
	LoadShaderDXT5AToR8:              "dxt5a_r8",
	LoadShaderCTX1:                   "ctx1",
	LoadShaderDepthUnorm:             "depth_unorm",
	LoadShaderDepthFloat:             "depth_float",
}

func (i LoadShaderIndex) String() string {
	if i >= LoadShaderCount {
		return "invalid"
	}
	return loadShaderNames[i]
}

// LoadShaderInfo describes the data a load shader moves.
type LoadShaderInfo struct {
	// GuestBytesPerBlockLog2 is log2 of the guest block size in bytes.
	GuestBytesPerBlockLog2 uint32

	// HostBytesPerBlockLog2 is log2 of the host block size in bytes.
	HostBytesPerBlockLog2 uint32

	// GuestBlocksPerThreadLog2 is log2 of the guest blocks one invocation
	// handles along X.
	GuestBlocksPerThreadLog2 uint32

	// HostBlockWidthLog2 and HostBlockHeightLog2 are log2 of the host
	// blocks written per guest block: 2 when a 4x4 block decompresses to
	// texels, 1 for 2-texel packed YUV, 0 otherwise.
	HostBlockWidthLog2  uint32
	HostBlockHeightLog2 uint32
}

var loadShaderInfos = [LoadShaderCount]LoadShaderInfo{
	LoadShader8bpb:                   {0, 0, 4, 0, 0},
	LoadShader16bpb:                  {1, 1, 3, 0, 0},
	LoadShader32bpb:                  {2, 2, 2, 0, 0},
	LoadShader64bpb:                  {3, 3, 1, 0, 0},
	LoadShader128bpb:                 {4, 4, 0, 0, 0},
	LoadShaderR5G5B5A1ToRGBA8:        {1, 2, 3, 0, 0},
	LoadShaderR5G6B5ToRGBA8:          {1, 2, 3, 0, 0},
	LoadShaderR6G5B5ToRGBA8:          {1, 2, 3, 0, 0},
	LoadShaderRGBA4ToRGBA8:           {1, 2, 3, 0, 0},
	LoadShaderGBGR8ToRGBA8:           {2, 2, 1, 1, 0},
	LoadShaderBGRG8ToRGBA8:           {2, 2, 1, 1, 0},
	LoadShaderR10G11B11ToRGBA16:      {2, 3, 2, 0, 0},
	LoadShaderR10G11B11ToRGBA16SNorm: {2, 3, 2, 0, 0},
	LoadShaderR11G11B10ToRGBA16:      {2, 3, 2, 0, 0},
	LoadShaderR11G11B10ToRGBA16SNorm: {2, 3, 2, 0, 0},
	LoadShaderR16UNormToFloat:        {1, 1, 3, 0, 0},
	LoadShaderR16SNormToFloat:        {1, 1, 3, 0, 0},
	LoadShaderRG16UNormToFloat:       {2, 2, 2, 0, 0},
	LoadShaderRG16SNormToFloat:       {2, 2, 2, 0, 0},
	LoadShaderRGBA16UNormToFloat:     {3, 3, 1, 0, 0},
	LoadShaderRGBA16SNormToFloat:     {3, 3, 1, 0, 0},
	LoadShaderDXT1ToRGBA8:            {3, 2, 1, 2, 2},
	LoadShaderDXT3ToRGBA8:            {4, 2, 0, 2, 2},
	LoadShaderDXT5ToRGBA8:            {4, 2, 0, 2, 2},
	LoadShaderDXNToRG8:               {4, 1, 0, 2, 2},
	LoadShaderDXT3A:                  {3, 0, 1, 2, 2},
	LoadShaderDXT3AAs1111ToRGBA8:     {3, 2, 1, 2, 2},
	LoadShaderDXT5AToR8:              {3, 0, 1, 2, 2},
	LoadShaderCTX1:                   {3, 1, 1, 2, 2},
	LoadShaderDepthUnorm:             {2, 2, 2, 0, 0},
	LoadShaderDepthFloat:             {2, 2, 2, 0, 0},
}

// Info returns the static description of the load shader.
func (i LoadShaderIndex) Info() LoadShaderInfo {
	if i >= LoadShaderCount {
		return LoadShaderInfo{}
	}
	return loadShaderInfos[i]
}

// Host swizzles of the format table.
const (
	swizzleXYZW = xenos.SwizzleXYZW
	swizzleXYZ1 = xenos.SwizzleX | xenos.SwizzleY<<3 | xenos.SwizzleZ<<6 | xenos.SwizzleOne<<9
	swizzleXXXX = xenos.SwizzleX | xenos.SwizzleX<<3 | xenos.SwizzleX<<6 | xenos.SwizzleX<<9
	swizzleXYYY = xenos.SwizzleX | xenos.SwizzleY<<3 | xenos.SwizzleY<<6 | xenos.SwizzleY<<9
)

// HostFormat is the host storage of one guest format.
type HostFormat struct {
	Unsigned     gputypes.TextureFormat
	LoadUnsigned LoadShaderIndex

	// Signed is Undefined when signed sampling is not supported, and equal
	// to Unsigned when the same resource serves both.
	Signed     gputypes.TextureFormat
	LoadSigned LoadShaderIndex

	// Uncompressed is used when the host cannot sample the compressed
	// layout directly.
	Uncompressed     gputypes.TextureFormat
	LoadUncompressed LoadShaderIndex

	Swizzle uint32

	// Norm16 marks 16-bit normalized host formats. Hosts without them
	// store float and convert while loading.
	Norm16 bool
}

func hf(unsigned gputypes.TextureFormat, load LoadShaderIndex, signed gputypes.TextureFormat, loadSigned LoadShaderIndex, swizzle uint32) HostFormat {
	return HostFormat{Unsigned: unsigned, LoadUnsigned: load, Signed: signed, LoadSigned: loadSigned, Swizzle: swizzle}
}

func bc(native gputypes.TextureFormat, load LoadShaderIndex, signed gputypes.TextureFormat, uncompressed gputypes.TextureFormat, loadUncompressed LoadShaderIndex, swizzle uint32) HostFormat {
	h := HostFormat{
		Unsigned:         native,
		LoadUnsigned:     load,
		Uncompressed:     uncompressed,
		LoadUncompressed: loadUncompressed,
		Swizzle:          swizzle,
	}
	if signed != gputypes.TextureFormatUndefined {
		h.Signed, h.LoadSigned = signed, load
	}
	return h
}

func norm16(unsigned, signed gputypes.TextureFormat, load LoadShaderIndex, swizzle uint32) HostFormat {
	h := hf(unsigned, load, signed, load, swizzle)
	h.Norm16 = true
	return h
}

const undef = gputypes.TextureFormatUndefined

var hostFormats = func() [xenos.FormatCount]HostFormat {
	var t [xenos.FormatCount]HostFormat

	r8 := hf(gputypes.TextureFormatR8Unorm, LoadShader8bpb, gputypes.TextureFormatR8Snorm, LoadShader8bpb, swizzleXXXX)
	rg8 := hf(gputypes.TextureFormatRG8Unorm, LoadShader16bpb, gputypes.TextureFormatRG8Snorm, LoadShader16bpb, swizzleXYYY)
	rgba8 := hf(gputypes.TextureFormatRGBA8Unorm, LoadShader32bpb, gputypes.TextureFormatRGBA8Snorm, LoadShader32bpb, swizzleXYZW)
	rgb10a2 := hf(gputypes.TextureFormatRGB10A2Unorm, LoadShader32bpb, undef, LoadShaderUnknown, swizzleXYZW)
	r16 := norm16(gputypes.TextureFormatR16Unorm, gputypes.TextureFormatR16Snorm, LoadShader16bpb, swizzleXXXX)
	rg16 := norm16(gputypes.TextureFormatRG16Unorm, gputypes.TextureFormatRG16Snorm, LoadShader32bpb, swizzleXYYY)
	rgba16 := norm16(gputypes.TextureFormatRGBA16Unorm, gputypes.TextureFormatRGBA16Snorm, LoadShader64bpb, swizzleXYZW)

	r10g11b11 := hf(gputypes.TextureFormatRGBA16Unorm, LoadShaderR10G11B11ToRGBA16,
		gputypes.TextureFormatRGBA16Snorm, LoadShaderR10G11B11ToRGBA16SNorm, swizzleXYZ1)
	r10g11b11.Norm16 = true
	r11g11b10 := hf(gputypes.TextureFormatRGBA16Unorm, LoadShaderR11G11B10ToRGBA16,
		gputypes.TextureFormatRGBA16Snorm, LoadShaderR11G11B10ToRGBA16SNorm, swizzleXYZ1)
	r11g11b10.Norm16 = true

	dxt1 := bc(gputypes.TextureFormatBC1RGBAUnorm, LoadShader64bpb, undef,
		gputypes.TextureFormatRGBA8Unorm, LoadShaderDXT1ToRGBA8, swizzleXYZW)
	dxt23 := bc(gputypes.TextureFormatBC2RGBAUnorm, LoadShader128bpb, undef,
		gputypes.TextureFormatRGBA8Unorm, LoadShaderDXT3ToRGBA8, swizzleXYZW)
	dxt45 := bc(gputypes.TextureFormatBC3RGBAUnorm, LoadShader128bpb, undef,
		gputypes.TextureFormatRGBA8Unorm, LoadShaderDXT5ToRGBA8, swizzleXYZW)

	t[xenos.Format8] = r8
	t[xenos.Format8A] = r8
	t[xenos.Format8B] = r8
	t[xenos.Format8Interlaced] = r8
	t[xenos.Format1_5_5_5] = hf(gputypes.TextureFormatRGBA8Unorm, LoadShaderR5G5B5A1ToRGBA8, undef, LoadShaderUnknown, swizzleXYZW)
	t[xenos.Format5_6_5] = hf(gputypes.TextureFormatRGBA8Unorm, LoadShaderR5G6B5ToRGBA8, undef, LoadShaderUnknown, swizzleXYZ1)
	t[xenos.Format6_5_5] = hf(gputypes.TextureFormatRGBA8Unorm, LoadShaderR6G5B5ToRGBA8, undef, LoadShaderUnknown, swizzleXYZ1)
	t[xenos.Format8_8_8_8] = rgba8
	t[xenos.Format8_8_8_8A] = rgba8
	t[xenos.Format8_8_8_8As16_16_16_16] = rgba8
	t[xenos.Format2_10_10_10] = rgb10a2
	t[xenos.Format2_10_10_10As16_16_16_16] = rgb10a2
	t[xenos.Format8_8] = rg8
	t[xenos.FormatCrY1CbY0Rep] = hf(gputypes.TextureFormatRGBA8Unorm, LoadShaderGBGR8ToRGBA8, undef, LoadShaderUnknown, swizzleXYZ1)
	t[xenos.FormatY1CrY0CbRep] = hf(gputypes.TextureFormatRGBA8Unorm, LoadShaderBGRG8ToRGBA8, undef, LoadShaderUnknown, swizzleXYZ1)
	t[xenos.Format4_4_4_4] = hf(gputypes.TextureFormatRGBA8Unorm, LoadShaderRGBA4ToRGBA8, undef, LoadShaderUnknown, swizzleXYZW)
	t[xenos.Format10_11_11] = r10g11b11
	t[xenos.Format10_11_11As16_16_16_16] = r10g11b11
	t[xenos.Format11_11_10] = r11g11b10
	t[xenos.Format11_11_10As16_16_16_16] = r11g11b10
	t[xenos.FormatDXT1] = dxt1
	t[xenos.FormatDXT1As16_16_16_16] = dxt1
	t[xenos.FormatDXT2_3] = dxt23
	t[xenos.FormatDXT2_3As16_16_16_16] = dxt23
	t[xenos.FormatDXT4_5] = dxt45
	t[xenos.FormatDXT4_5As16_16_16_16] = dxt45
	t[xenos.FormatDXN] = bc(gputypes.TextureFormatBC5RGUnorm, LoadShader128bpb, gputypes.TextureFormatBC5RGSnorm,
		gputypes.TextureFormatRG8Unorm, LoadShaderDXNToRG8, swizzleXYYY)
	t[xenos.FormatDXT5A] = bc(gputypes.TextureFormatBC4RUnorm, LoadShader64bpb, gputypes.TextureFormatBC4RSnorm,
		gputypes.TextureFormatR8Unorm, LoadShaderDXT5AToR8, swizzleXXXX)
	t[xenos.FormatDXT3A] = hf(gputypes.TextureFormatR8Unorm, LoadShaderDXT3A, undef, LoadShaderUnknown, swizzleXXXX)
	t[xenos.FormatDXT3AAs1_1_1_1] = hf(gputypes.TextureFormatRGBA8Unorm, LoadShaderDXT3AAs1111ToRGBA8, undef, LoadShaderUnknown, swizzleXYZW)
	t[xenos.FormatCTX1] = hf(gputypes.TextureFormatRG8Unorm, LoadShaderCTX1, undef, LoadShaderUnknown, swizzleXYYY)
	t[xenos.Format24_8] = hf(gputypes.TextureFormatR32Float, LoadShaderDepthUnorm, undef, LoadShaderUnknown, swizzleXXXX)
	t[xenos.Format24_8Float] = hf(gputypes.TextureFormatR32Float, LoadShaderDepthFloat, undef, LoadShaderUnknown, swizzleXXXX)
	t[xenos.Format16] = r16
	t[xenos.Format16MPEG] = r16
	t[xenos.Format16Interlaced] = r16
	t[xenos.Format16MPEGInterlaced] = r16
	t[xenos.Format16_16] = rg16
	t[xenos.Format16_16MPEG] = rg16
	t[xenos.Format16_16MPEGInterlaced] = rg16
	t[xenos.Format16_16_16_16] = rgba16
	t[xenos.Format16Expand] = hf(gputypes.TextureFormatR16Float, LoadShader16bpb, gputypes.TextureFormatR16Float, LoadShader16bpb, swizzleXXXX)
	t[xenos.Format16_16Expand] = hf(gputypes.TextureFormatRG16Float, LoadShader32bpb, gputypes.TextureFormatRG16Float, LoadShader32bpb, swizzleXYYY)
	t[xenos.Format16_16_16_16Expand] = hf(gputypes.TextureFormatRGBA16Float, LoadShader64bpb, gputypes.TextureFormatRGBA16Float, LoadShader64bpb, swizzleXYZW)
	t[xenos.Format16Float] = hf(gputypes.TextureFormatR16Float, LoadShader16bpb, gputypes.TextureFormatR16Float, LoadShader16bpb, swizzleXXXX)
	t[xenos.Format16_16Float] = hf(gputypes.TextureFormatRG16Float, LoadShader32bpb, gputypes.TextureFormatRG16Float, LoadShader32bpb, swizzleXYYY)
	t[xenos.Format16_16_16_16Float] = hf(gputypes.TextureFormatRGBA16Float, LoadShader64bpb, gputypes.TextureFormatRGBA16Float, LoadShader64bpb, swizzleXYZW)
	t[xenos.Format32Float] = hf(gputypes.TextureFormatR32Float, LoadShader32bpb, gputypes.TextureFormatR32Float, LoadShader32bpb, swizzleXXXX)
	t[xenos.Format32_32Float] = hf(gputypes.TextureFormatRG32Float, LoadShader64bpb, gputypes.TextureFormatRG32Float, LoadShader64bpb, swizzleXYYY)
	t[xenos.Format32_32_32_32Float] = hf(gputypes.TextureFormatRGBA32Float, LoadShader128bpb, gputypes.TextureFormatRGBA32Float, LoadShader128bpb, swizzleXYZW)
	return t
}()

// HostFormatFor returns the host storage of a guest format, assuming the
// host supports 16-bit normalized formats. Formats without host storage
// return a HostFormat with an Undefined Unsigned format.
func HostFormatFor(format xenos.TextureFormat) HostFormat {
	if !format.IsValid() {
		return HostFormat{}
	}
	return hostFormats[format]
}

// ForCaps replaces 16-bit normalized storage by float storage on hosts
// that lack it.
func (h HostFormat) ForCaps(caps gpucore.Capabilities) HostFormat {
	if !h.Norm16 {
		return h
	}
	if !caps.Unorm16 {
		h.Unsigned, h.LoadUnsigned = norm16ToFloat(h.Unsigned, h.LoadUnsigned, false)
	}
	if !caps.Snorm16 {
		h.Signed, h.LoadSigned = norm16ToFloat(h.Signed, h.LoadSigned, true)
	}
	return h
}

func norm16ToFloat(f gputypes.TextureFormat, load LoadShaderIndex, signed bool) (gputypes.TextureFormat, LoadShaderIndex) {
	pick := func(u, s LoadShaderIndex) LoadShaderIndex {
		if signed {
			return s
		}
		return u
	}
	switch load {
	case LoadShader16bpb:
		return gputypes.TextureFormatR16Float, pick(LoadShaderR16UNormToFloat, LoadShaderR16SNormToFloat)
	case LoadShader32bpb:
		return gputypes.TextureFormatRG16Float, pick(LoadShaderRG16UNormToFloat, LoadShaderRG16SNormToFloat)
	case LoadShader64bpb:
		return gputypes.TextureFormatRGBA16Float, pick(LoadShaderRGBA16UNormToFloat, LoadShaderRGBA16SNormToFloat)
	}
	// Packed formats expanded to 16-bit normalized have no float variant.
	return undef, LoadShaderUnknown
}

// IsDecompressionNeeded reports whether a texture of the given base size
// must be decompressed while loading: the host cannot sample the block
// format at all, or cannot sample it at a size that is not a multiple of
// the block size.
func IsDecompressionNeeded(format xenos.TextureFormat, width, height uint32, caps gpucore.Capabilities) bool {
	h := HostFormatFor(format)
	if h.Uncompressed == undef {
		return false
	}
	if !caps.BCTextures {
		return true
	}
	fi := format.Info()
	if !caps.UnalignedBCTextures && (width%fi.BlockWidth != 0 || height%fi.BlockHeight != 0) {
		return true
	}
	return false
}

// GetHostFormatSwizzle returns the swizzle that maps host channels to
// guest channels.
func GetHostFormatSwizzle(format xenos.TextureFormat) uint32 {
	return HostFormatFor(format).Swizzle
}

// IsSignedVersionSeparate reports whether signed sampling of the format
// needs its own resource.
func IsSignedVersionSeparate(format xenos.TextureFormat) bool {
	h := HostFormatFor(format)
	return h.Signed != undef && h.Signed != h.Unsigned
}

// hostStorage returns the host format and load shader for a key.
func hostStorage(key Key, caps gpucore.Capabilities) (gputypes.TextureFormat, LoadShaderIndex) {
	h := HostFormatFor(key.Format).ForCaps(caps)
	if IsDecompressionNeeded(key.Format, key.Width(), key.Height(), caps) {
		if key.SignedSeparate {
			return undef, LoadShaderUnknown
		}
		return h.Uncompressed, h.LoadUncompressed
	}
	if key.SignedSeparate {
		return h.Signed, h.LoadSigned
	}
	return h.Unsigned, h.LoadUnsigned
}

// GetLoadShaderIndex returns the load shader for a key, LoadShaderUnknown
// when the format has no host storage.
func GetLoadShaderIndex(key Key, caps gpucore.Capabilities) LoadShaderIndex {
	_, load := hostStorage(key, caps)
	return load
}

// HostTextureFormat returns the format of the host resource for a key.
func HostTextureFormat(key Key, caps gpucore.Capabilities) gputypes.TextureFormat {
	f, _ := hostStorage(key, caps)
	return f
}
