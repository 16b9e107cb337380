// Package xenos describes the guest GPU texture hardware: texture formats
// and their block geometry, the bit layout of texture fetch constants,
// sampler enums, endian swapping and the tiled memory address math.
//
// Everything in this package is pure data and pure functions. Tables are
// initialized at package load and never mutated, so they can be shared
// across goroutines without synchronization.
//
// # Fetch constants
//
// A texture fetch constant occupies six consecutive 32-bit registers
// starting at FetchConstantBase + index*FetchConstantStride:
//
//	regs := xenos.NewRegisterArray()
//	fetch := xenos.ReadTextureFetch(regs, 0)
//	w, h, d := fetch.Size()
//
// # Tiling
//
// Tiled textures are stored in 32x32-block macro tiles. TiledOffset2D and
// TiledOffset3D return the byte offset of a block within a tiled level.
package xenos
