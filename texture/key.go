package texture

import (
	"fmt"

	"github.com/gogpu/texcache/xenos"
)

// Key identifies one host texture. Two fetch constants that differ in any
// field here get different textures; Go equality is the lookup equality.
type Key struct {
	BasePage               uint32 // 4KB page of level 0
	MipPage                uint32 // 4KB page of level 1, 0 without mips
	Dimension              xenos.DataDimension
	WidthMinus1            uint32
	HeightMinus1           uint32
	DepthOrArraySizeMinus1 uint32
	Pitch                  uint32 // base level row pitch in texels
	MipMaxLevel            uint32
	Tiled                  bool
	PackedMips             bool
	Format                 xenos.TextureFormat
	Endianness             xenos.Endian
	SignedSeparate         bool
	ScaledResolve          bool
}

// IsValid reports whether the key names guest memory. The zero key is
// invalid.
func (k Key) IsValid() bool {
	return k.BasePage != 0 || k.MipPage != 0
}

// Width returns the base level width in texels.
func (k Key) Width() uint32 { return k.WidthMinus1 + 1 }

// Height returns the base level height in texels.
func (k Key) Height() uint32 { return k.HeightMinus1 + 1 }

// DepthOrArraySize returns the 3D depth, the stacked array size, or 6 for
// cubes.
func (k Key) DepthOrArraySize() uint32 { return k.DepthOrArraySizeMinus1 + 1 }

// LevelCount returns the number of mip levels the texture stores.
func (k Key) LevelCount() uint32 { return k.MipMaxLevel + 1 }

// Signed returns the key of the separate signed resource.
func (k Key) Signed() Key {
	k.SignedSeparate = true
	return k
}

// Bits packs the key into two words.
//
//	word 0: base page (20) | mip page (20) | width-1 (24)
//	word 1: height-1 (13) | depth-1 (10) | pitch/32 (9) | mip max (4) |
//	        dimension (2) | tiled | packed | format (6) | endian (2) |
//	        signed separate | scaled resolve
func (k Key) Bits() [2]uint64 {
	w0 := uint64(k.BasePage&0xFFFFF) |
		uint64(k.MipPage&0xFFFFF)<<20 |
		uint64(k.WidthMinus1&0xFFFFFF)<<40
	w1 := uint64(k.HeightMinus1&0x1FFF) |
		uint64(k.DepthOrArraySizeMinus1&0x3FF)<<13 |
		uint64((k.Pitch>>5)&0x1FF)<<23 |
		uint64(k.MipMaxLevel&0xF)<<32 |
		uint64(k.Dimension&3)<<36 |
		uint64(k.Format&0x3F)<<40 |
		uint64(k.Endianness&3)<<46
	if k.Tiled {
		w1 |= 1 << 38
	}
	if k.PackedMips {
		w1 |= 1 << 39
	}
	if k.SignedSeparate {
		w1 |= 1 << 48
	}
	if k.ScaledResolve {
		w1 |= 1 << 49
	}
	return [2]uint64{w0, w1}
}

func (k Key) String() string {
	tiled := "linear"
	if k.Tiled {
		tiled = "tiled"
	}
	return fmt.Sprintf("%s %s %dx%dx%d mips %d %s base 0x%08X mip 0x%08X",
		k.Format, k.Dimension, k.Width(), k.Height(), k.DepthOrArraySize(),
		k.LevelCount(), tiled, k.BasePage<<12, k.MipPage<<12)
}

// KeyFromFetch derives the unsigned key of a texture fetch constant. It
// reports false for fetch constants that do not describe a texture.
func KeyFromFetch(f *xenos.TextureFetch) (Key, bool) {
	if f.Type != xenos.FetchTypeTexture {
		return Key{}, false
	}
	w, h, d := f.Size()
	_, maxLevel := f.MipLevels()

	k := Key{
		BasePage:    f.BaseAddress,
		MipPage:     f.MipAddress,
		Dimension:   f.Dimension,
		Tiled:       f.Tiled,
		PackedMips:  f.PackedMips,
		Format:      f.Format,
		Endianness:  f.Endianness,
		MipMaxLevel: maxLevel,
	}
	if k.MipMaxLevel == 0 || k.MipPage == 0 {
		k.MipMaxLevel = 0
		k.MipPage = 0
	}
	if !k.IsValid() {
		return Key{}, false
	}

	switch f.Dimension {
	case xenos.Dimension1D:
		h, d = 1, 1
	case xenos.Dimension2DOrStacked, xenos.Dimension3D:
	case xenos.DimensionCube:
		d = 6
	}
	k.WidthMinus1 = w - 1
	k.HeightMinus1 = h - 1
	k.DepthOrArraySizeMinus1 = d - 1

	k.Pitch = f.Pitch
	if k.Pitch == 0 {
		k.Pitch = xenos.AlignUp(w, 32)
	}
	return k, true
}
