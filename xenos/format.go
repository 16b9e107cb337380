package xenos

import "fmt"

// TextureFormat is the 6-bit guest texture format stored in dword 1 of a
// texture fetch constant.
type TextureFormat uint8

// Guest texture formats.
const (
	Format1Reverse TextureFormat = iota
	Format1
	Format8
	Format1_5_5_5
	Format5_6_5
	Format6_5_5
	Format8_8_8_8
	Format2_10_10_10
	Format8A
	Format8B
	Format8_8
	FormatCrY1CbY0Rep
	FormatY1CrY0CbRep
	Format16_16EDRAM
	Format8_8_8_8A
	Format4_4_4_4
	Format10_11_11
	Format11_11_10
	FormatDXT1
	FormatDXT2_3
	FormatDXT4_5
	Format16_16_16_16EDRAM
	Format24_8
	Format24_8Float
	Format16
	Format16_16
	Format16_16_16_16
	Format16Expand
	Format16_16Expand
	Format16_16_16_16Expand
	Format16Float
	Format16_16Float
	Format16_16_16_16Float
	Format32
	Format32_32
	Format32_32_32_32
	Format32Float
	Format32_32Float
	Format32_32_32_32Float
	Format32As8
	Format32As8_8
	Format16MPEG
	Format16_16MPEG
	Format8Interlaced
	Format32As8Interlaced
	Format32As8_8Interlaced
	Format16Interlaced
	Format16MPEGInterlaced
	Format16_16MPEGInterlaced
	FormatDXN
	Format8_8_8_8As16_16_16_16
	FormatDXT1As16_16_16_16
	FormatDXT2_3As16_16_16_16
	FormatDXT4_5As16_16_16_16
	Format2_10_10_10As16_16_16_16
	Format10_11_11As16_16_16_16
	Format11_11_10As16_16_16_16
	Format32_32_32Float
	FormatDXT3A
	FormatDXT5A
	FormatCTX1
	FormatDXT3AAs1_1_1_1
	Format8_8_8_8GammaEDRAM
	Format2_10_10_10FloatEDRAM

	// FormatCount is the number of encodable guest formats.
	FormatCount = 64
)

// FormatInfo describes the storage geometry of a guest texture format.
type FormatInfo struct {
	Name         string
	BlockWidth   uint32
	BlockHeight  uint32
	BitsPerBlock uint32
	Compressed   bool
}

// BytesPerBlock returns the size of one block in bytes, rounded up.
func (fi FormatInfo) BytesPerBlock() uint32 {
	return (fi.BitsPerBlock + 7) / 8
}

// BytesPerBlockLog2 returns log2 of BytesPerBlock for power-of-two block
// sizes. Formats with a non power-of-two block (96-bit, 1-bit) report the
// log2 of the next power of two.
func (fi FormatInfo) BytesPerBlockLog2() uint32 {
	return Log2Ceil(fi.BytesPerBlock())
}

// WidthInBlocks returns the number of blocks covering width texels.
func (fi FormatInfo) WidthInBlocks(width uint32) uint32 {
	return DivRoundUp(width, fi.BlockWidth)
}

// HeightInBlocks returns the number of blocks covering height texels.
func (fi FormatInfo) HeightInBlocks(height uint32) uint32 {
	return DivRoundUp(height, fi.BlockHeight)
}

func uncompressed(name string, bits uint32) FormatInfo {
	return FormatInfo{Name: name, BlockWidth: 1, BlockHeight: 1, BitsPerBlock: bits}
}

func packed(name string, w, bits uint32) FormatInfo {
	return FormatInfo{Name: name, BlockWidth: w, BlockHeight: 1, BitsPerBlock: bits}
}

func compressed(name string, bits uint32) FormatInfo {
	return FormatInfo{Name: name, BlockWidth: 4, BlockHeight: 4, BitsPerBlock: bits, Compressed: true}
}

var formatInfos = [FormatCount]FormatInfo{
	Format1Reverse:                uncompressed("k_1_REVERSE", 1),
	Format1:                       uncompressed("k_1", 1),
	Format8:                       uncompressed("k_8", 8),
	Format1_5_5_5:                 uncompressed("k_1_5_5_5", 16),
	Format5_6_5:                   uncompressed("k_5_6_5", 16),
	Format6_5_5:                   uncompressed("k_6_5_5", 16),
	Format8_8_8_8:                 uncompressed("k_8_8_8_8", 32),
	Format2_10_10_10:              uncompressed("k_2_10_10_10", 32),
	Format8A:                      uncompressed("k_8_A", 8),
	Format8B:                      uncompressed("k_8_B", 8),
	Format8_8:                     uncompressed("k_8_8", 16),
	FormatCrY1CbY0Rep:             packed("k_Cr_Y1_Cb_Y0_REP", 2, 32),
	FormatY1CrY0CbRep:             packed("k_Y1_Cr_Y0_Cb_REP", 2, 32),
	Format16_16EDRAM:              uncompressed("k_16_16_EDRAM", 32),
	Format8_8_8_8A:                uncompressed("k_8_8_8_8_A", 32),
	Format4_4_4_4:                 uncompressed("k_4_4_4_4", 16),
	Format10_11_11:                uncompressed("k_10_11_11", 32),
	Format11_11_10:                uncompressed("k_11_11_10", 32),
	FormatDXT1:                    compressed("k_DXT1", 64),
	FormatDXT2_3:                  compressed("k_DXT2_3", 128),
	FormatDXT4_5:                  compressed("k_DXT4_5", 128),
	Format16_16_16_16EDRAM:        uncompressed("k_16_16_16_16_EDRAM", 64),
	Format24_8:                    uncompressed("k_24_8", 32),
	Format24_8Float:               uncompressed("k_24_8_FLOAT", 32),
	Format16:                      uncompressed("k_16", 16),
	Format16_16:                   uncompressed("k_16_16", 32),
	Format16_16_16_16:             uncompressed("k_16_16_16_16", 64),
	Format16Expand:                uncompressed("k_16_EXPAND", 16),
	Format16_16Expand:             uncompressed("k_16_16_EXPAND", 32),
	Format16_16_16_16Expand:       uncompressed("k_16_16_16_16_EXPAND", 64),
	Format16Float:                 uncompressed("k_16_FLOAT", 16),
	Format16_16Float:              uncompressed("k_16_16_FLOAT", 32),
	Format16_16_16_16Float:        uncompressed("k_16_16_16_16_FLOAT", 64),
	Format32:                      uncompressed("k_32", 32),
	Format32_32:                   uncompressed("k_32_32", 64),
	Format32_32_32_32:             uncompressed("k_32_32_32_32", 128),
	Format32Float:                 uncompressed("k_32_FLOAT", 32),
	Format32_32Float:              uncompressed("k_32_32_FLOAT", 64),
	Format32_32_32_32Float:        uncompressed("k_32_32_32_32_FLOAT", 128),
	Format32As8:                   packed("k_32_AS_8", 4, 32),
	Format32As8_8:                 packed("k_32_AS_8_8", 2, 32),
	Format16MPEG:                  uncompressed("k_16_MPEG", 16),
	Format16_16MPEG:               uncompressed("k_16_16_MPEG", 32),
	Format8Interlaced:             uncompressed("k_8_INTERLACED", 8),
	Format32As8Interlaced:         packed("k_32_AS_8_INTERLACED", 4, 32),
	Format32As8_8Interlaced:       packed("k_32_AS_8_8_INTERLACED", 2, 32),
	Format16Interlaced:            uncompressed("k_16_INTERLACED", 16),
	Format16MPEGInterlaced:        uncompressed("k_16_MPEG_INTERLACED", 16),
	Format16_16MPEGInterlaced:     uncompressed("k_16_16_MPEG_INTERLACED", 32),
	FormatDXN:                     compressed("k_DXN", 128),
	Format8_8_8_8As16_16_16_16:    uncompressed("k_8_8_8_8_AS_16_16_16_16", 32),
	FormatDXT1As16_16_16_16:       compressed("k_DXT1_AS_16_16_16_16", 64),
	FormatDXT2_3As16_16_16_16:     compressed("k_DXT2_3_AS_16_16_16_16", 128),
	FormatDXT4_5As16_16_16_16:     compressed("k_DXT4_5_AS_16_16_16_16", 128),
	Format2_10_10_10As16_16_16_16: uncompressed("k_2_10_10_10_AS_16_16_16_16", 32),
	Format10_11_11As16_16_16_16:   uncompressed("k_10_11_11_AS_16_16_16_16", 32),
	Format11_11_10As16_16_16_16:   uncompressed("k_11_11_10_AS_16_16_16_16", 32),
	Format32_32_32Float:           uncompressed("k_32_32_32_FLOAT", 96),
	FormatDXT3A:                   compressed("k_DXT3A", 64),
	FormatDXT5A:                   compressed("k_DXT5A", 64),
	FormatCTX1:                    compressed("k_CTX1", 64),
	FormatDXT3AAs1_1_1_1:          compressed("k_DXT3A_AS_1_1_1_1", 64),
	Format8_8_8_8GammaEDRAM:       uncompressed("k_8_8_8_8_GAMMA_EDRAM", 32),
	Format2_10_10_10FloatEDRAM:    uncompressed("k_2_10_10_10_FLOAT_EDRAM", 32),
}

// Info returns the storage geometry of the format.
func (f TextureFormat) Info() FormatInfo {
	return formatInfos[f&(FormatCount-1)]
}

// IsValid reports whether f fits in the 6-bit format field.
func (f TextureFormat) IsValid() bool {
	return f < FormatCount
}

func (f TextureFormat) String() string {
	if !f.IsValid() {
		return fmt.Sprintf("TextureFormat(%d)", uint8(f))
	}
	return formatInfos[f].Name
}
