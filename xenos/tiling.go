package xenos

// Tiled textures are laid out in 32x32-block macro tiles, each split into
// bank- and pipe-interleaved micro tiles. Offsets below are in bytes and
// bppLog2 is log2 of the bytes per block.

// TileWidthBlocks is the width and height of a macro tile in blocks.
const TileWidthBlocks = 32

// tiledOuter returns the row-dependent part of a tiled 2D offset.
func tiledOuter(y, pitchBlocks, bppLog2 uint32) uint32 {
	macro := ((y >> 5) * (pitchBlocks >> 5)) << (bppLog2 + 7)
	micro := ((y & 6) << 2) << bppLog2
	return macro + ((micro &^ 0xF) << 1) + (micro & 0xF) +
		((y & 8) << (3 + bppLog2)) + ((y & 1) << 4)
}

// tiledInner combines the column with the row part produced by tiledOuter.
func tiledInner(x, y, bppLog2, outer uint32) uint32 {
	macro := (x >> 5) << (bppLog2 + 7)
	micro := (x & 7) << bppLog2
	offset := outer + macro + ((micro &^ 0xF) << 1) + (micro & 0xF)
	return ((offset &^ 0x1FF) << 3) + ((offset & 0x1C0) << 2) + (offset & 0x3F) +
		((y & 16) << 7) + ((((y & 8) >> 2) + (x >> 3)) & 3 << 6)
}

// TiledOffset2D returns the byte offset of block (x, y) in a tiled level
// whose row pitch is pitchBlocks (a multiple of 32).
func TiledOffset2D(x, y, pitchBlocks, bppLog2 uint32) uint32 {
	return tiledInner(x, y, bppLog2, tiledOuter(y, pitchBlocks, bppLog2))
}

// TiledOffset3D returns the byte offset of block (x, y, z) in a tiled
// volume. The volume is a stack of slices, each tiled as a 2D level, so
// blocks never interleave across z; sliceBytes is the aligned size of one
// slice.
func TiledOffset3D(x, y, z, pitchBlocks, bppLog2, sliceBytes uint32) uint32 {
	return z*sliceBytes + TiledOffset2D(x, y, pitchBlocks, bppLog2)
}

// LinearOffset returns the byte offset of block (x, y, z) in an untiled
// level.
func LinearOffset(x, y, z, rowPitchBytes, sliceBytes, bppLog2 uint32) uint32 {
	return z*sliceBytes + y*rowPitchBytes + x<<bppLog2
}
