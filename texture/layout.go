package texture

import (
	"github.com/gogpu/texcache/xenos"
)

// Guest storage alignment.
const (
	guestPageSize          = 4096
	guestLinearPitchAlign  = 256
	guestStorageHeightTile = xenos.TileWidthBlocks
)

// GuestLevel is the storage of one mip level in guest memory.
type GuestLevel struct {
	// WidthBlocks, HeightBlocks and Depth are the logical extent.
	WidthBlocks  uint32
	HeightBlocks uint32
	Depth        uint32

	// PitchBlocks is the storage row length; a multiple of 32 when tiled.
	PitchBlocks uint32
	// RowPitch is the linear row pitch in bytes.
	RowPitch uint32
	// StorageHeight is the storage height in blocks, a multiple of 32.
	StorageHeight uint32
	// SliceStride is the page-aligned size of one 2D slice.
	SliceStride uint32
	// Size is the size of the level over all slices.
	Size uint32

	// Offset is relative to the base page for level 0 and to the mip page
	// otherwise. Levels in a packed tail share the tail's offset.
	Offset uint32

	// Packed marks levels stored in the packed tail; OffsetX and OffsetY
	// locate them inside it, in blocks.
	Packed           bool
	OffsetX, OffsetY uint32
}

// GuestLayout is the guest memory layout of a texture.
type GuestLayout struct {
	Info       xenos.FormatInfo
	BppLog2    uint32
	Tiled      bool
	Dimension  xenos.DataDimension
	ArraySize  uint32 // slices per level; 1 for 3D
	Levels     []GuestLevel
	PackedTail bool
	// PackedLevel is the first level of the packed tail. Only meaningful
	// when PackedTail is set.
	PackedLevel uint32
	// TailInBase is set when the packed tail starts at level 0 and the
	// whole chain lives at the base page.
	TailInBase bool

	BaseSize uint32 // bytes at the base page
	MipsSize uint32 // bytes at the mip page
}

// TailExtent returns the bounding box, in blocks, of all packed tail
// levels up to maxLevel.
func (l *GuestLayout) TailExtent(maxLevel uint32) (w, h uint32) {
	for i := l.PackedLevel; i <= maxLevel && int(i) < len(l.Levels); i++ {
		lv := &l.Levels[i]
		w = max(w, lv.OffsetX+lv.WidthBlocks)
		h = max(h, lv.OffsetY+lv.HeightBlocks)
	}
	return w, h
}

// LevelAddress returns the guest address of level's storage.
func (l *GuestLayout) LevelAddress(key Key, level uint32) uint32 {
	if level == 0 || (l.TailInBase && l.Levels[level].Packed) {
		return key.BasePage<<12 + l.Levels[level].Offset
	}
	return key.MipPage<<12 + l.Levels[level].Offset
}

// GuestLayoutFor computes the guest layout of a key.
func GuestLayoutFor(key Key) GuestLayout {
	fi := key.Format.Info()
	layout := GuestLayout{
		Info:      fi,
		BppLog2:   fi.BytesPerBlockLog2(),
		Tiled:     key.Tiled,
		Dimension: key.Dimension,
		ArraySize: key.DepthOrArraySize(),
		Levels:    make([]GuestLevel, key.LevelCount()),
	}
	width, height := key.Width(), key.Height()
	depth := uint32(1)
	if key.Dimension == xenos.Dimension3D {
		depth = layout.ArraySize
		layout.ArraySize = 1
	}
	if key.PackedMips {
		layout.PackedTail = true
		layout.PackedLevel = xenos.PackedMipLevel(width, height)
		if layout.PackedLevel > key.MipMaxLevel {
			layout.PackedTail = false
		}
		layout.TailInBase = layout.PackedTail && layout.PackedLevel == 0
	}
	bpb := fi.BytesPerBlock()

	var mipOffset uint32
	for i := range layout.Levels {
		level := uint32(i)
		lv := &layout.Levels[i]
		w := xenos.MipSize(width, level)
		h := xenos.MipSize(height, level)
		lv.Depth = 1
		if key.Dimension == xenos.Dimension3D {
			lv.Depth = xenos.MipSize(depth, level)
		}
		lv.WidthBlocks = fi.WidthInBlocks(w)
		lv.HeightBlocks = fi.HeightInBlocks(h)

		if layout.PackedTail && level >= layout.PackedLevel {
			lv.Packed = true
			lv.OffsetX, lv.OffsetY = xenos.PackedMipOffset(width, height, level, layout.PackedLevel, fi)
			if level > layout.PackedLevel {
				tail := &layout.Levels[layout.PackedLevel]
				lv.PitchBlocks = tail.PitchBlocks
				lv.RowPitch = tail.RowPitch
				lv.StorageHeight = tail.StorageHeight
				lv.SliceStride = tail.SliceStride
				lv.Offset = tail.Offset
				continue
			}
		}

		pitch := lv.WidthBlocks
		if level == 0 {
			pitch = max(pitch, fi.WidthInBlocks(key.Pitch))
		}
		if lv.Packed || key.Tiled {
			pitch = xenos.AlignUp(pitch, xenos.TileWidthBlocks)
		}
		lv.RowPitch = xenos.AlignUp(pitch*bpb, guestLinearPitchAlign)
		if key.Tiled {
			lv.RowPitch = pitch * bpb
		}
		lv.PitchBlocks = pitch
		if !key.Tiled {
			lv.PitchBlocks = lv.RowPitch / bpb
		}
		lv.StorageHeight = xenos.AlignUp(lv.HeightBlocks, guestStorageHeightTile)
		lv.SliceStride = xenos.AlignUp(lv.RowPitch*lv.StorageHeight, guestPageSize)
		lv.Size = lv.SliceStride * lv.Depth * layout.ArraySize

		switch {
		case level == 0:
			layout.BaseSize = lv.Size
		case layout.TailInBase:
		default:
			lv.Offset = mipOffset
			mipOffset += lv.Size
		}
	}
	layout.MipsSize = mipOffset
	return layout
}
