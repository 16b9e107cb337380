package xenos

// PackedTailMaxSize is the largest mip dimension, in texels, that is
// stored inside the packed mip tail.
const PackedTailMaxSize = 16

// MipSize returns the size of level in texels for a base size. Levels
// above 0 are derived from the base size rounded up to a power of two, as
// the guest allocates them.
func MipSize(base, level uint32) uint32 {
	if level == 0 {
		return max(base, 1)
	}
	return max(NextPow2(base)>>level, 1)
}

// PackedMipLevel returns the first level stored in the packed mip tail
// for a texture of the given base size. All levels from the returned one
// onward share a single 32x32-block tile.
func PackedMipLevel(width, height uint32) uint32 {
	l := Log2Ceil(min(width, height))
	if l > 4 {
		return l - 4
	}
	return 0
}

// PackedMipOffset returns the offset, in blocks, of level inside the
// packed tail. packedLevel is the value returned by PackedMipLevel; width
// and height are the base size in texels. Wide textures stack tail levels
// vertically, tall and square ones horizontally. The first three tail
// levels sit 16, 8 and 4 texels in, the 2x2 and 1x1 levels 2 and 1.
func PackedMipOffset(width, height, level, packedLevel uint32, fi FormatInfo) (x, y uint32) {
	p := level - packedLevel
	var off uint32
	if p < 3 {
		off = PackedTailMaxSize >> p
	} else if p < 5 {
		off = 4 >> (p - 2)
	}
	if NextPow2(width) > NextPow2(height) {
		return 0, off / fi.BlockHeight
	}
	return off / fi.BlockWidth, 0
}
