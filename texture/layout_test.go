package texture

import (
	"fmt"
	"testing"

	"github.com/gogpu/texcache/xenos"
)

func key2D(format xenos.TextureFormat, w, h uint32, tiled bool) Key {
	return Key{
		BasePage:     0x100,
		Dimension:    xenos.Dimension2DOrStacked,
		WidthMinus1:  w - 1,
		HeightMinus1: h - 1,
		Pitch:        xenos.AlignUp(w, 32),
		Tiled:        tiled,
		Format:       format,
	}
}

func withMips(k Key, maxLevel uint32) Key {
	k.MipPage = 0x800
	k.MipMaxLevel = maxLevel
	return k
}

func TestGuestLayoutLinear(t *testing.T) {
	l := GuestLayoutFor(key2D(xenos.Format8_8_8_8, 100, 50, false))
	lv := l.Levels[0]
	if lv.WidthBlocks != 100 || lv.HeightBlocks != 50 {
		t.Errorf("extent = %dx%d", lv.WidthBlocks, lv.HeightBlocks)
	}
	if lv.RowPitch != 512 || lv.PitchBlocks != 128 {
		t.Errorf("RowPitch = %d PitchBlocks = %d, want 512 128", lv.RowPitch, lv.PitchBlocks)
	}
	if lv.StorageHeight != 64 || lv.SliceStride != 32768 {
		t.Errorf("StorageHeight = %d SliceStride = %d, want 64 32768", lv.StorageHeight, lv.SliceStride)
	}
	if l.BaseSize != 32768 || l.MipsSize != 0 {
		t.Errorf("BaseSize = %d MipsSize = %d", l.BaseSize, l.MipsSize)
	}
}

func TestGuestLayoutTiledMips(t *testing.T) {
	l := GuestLayoutFor(withMips(key2D(xenos.FormatDXT1, 256, 256, true), 8))
	want := []struct {
		w, h, pitch, size uint32
	}{
		{64, 64, 64, 32768},
		{32, 32, 32, 8192},
		{16, 16, 32, 8192},
		{8, 8, 32, 8192},
		{4, 4, 32, 8192},
		{2, 2, 32, 8192},
		{1, 1, 32, 8192},
		{1, 1, 32, 8192},
		{1, 1, 32, 8192},
	}
	var offset uint32
	for i, w := range want {
		lv := l.Levels[i]
		if lv.WidthBlocks != w.w || lv.HeightBlocks != w.h || lv.PitchBlocks != w.pitch || lv.Size != w.size {
			t.Errorf("level %d = %dx%d pitch %d size %d, want %dx%d pitch %d size %d",
				i, lv.WidthBlocks, lv.HeightBlocks, lv.PitchBlocks, lv.Size, w.w, w.h, w.pitch, w.size)
		}
		if i > 0 {
			if lv.Offset != offset {
				t.Errorf("level %d offset = %d, want %d", i, lv.Offset, offset)
			}
			offset += lv.Size
		}
	}
	if l.MipsSize != offset {
		t.Errorf("MipsSize = %d, want %d", l.MipsSize, offset)
	}
}

func TestGuestLayoutPackedTail(t *testing.T) {
	l := GuestLayoutFor(withMips(func() Key {
		k := key2D(xenos.Format8_8_8_8, 64, 64, true)
		k.PackedMips = true
		return k
	}(), 6))
	if !l.PackedTail || l.PackedLevel != 2 || l.TailInBase {
		t.Fatalf("PackedTail = %v PackedLevel = %d TailInBase = %v", l.PackedTail, l.PackedLevel, l.TailInBase)
	}
	for i := 2; i <= 6; i++ {
		lv := l.Levels[i]
		if !lv.Packed || lv.Offset != l.Levels[2].Offset {
			t.Errorf("level %d Packed = %v Offset = %d", i, lv.Packed, lv.Offset)
		}
	}
	if l.Levels[1].Packed {
		t.Error("level 1 packed")
	}
	if l.Levels[2].Offset != 4096 || l.MipsSize != 8192 {
		t.Errorf("tail offset = %d MipsSize = %d, want 4096 8192", l.Levels[2].Offset, l.MipsSize)
	}
	if w, h := l.TailExtent(6); w != 32 || h != 16 {
		t.Errorf("TailExtent(6) = %dx%d, want 32x16", w, h)
	}

	// Tail levels must not overlap inside the tile.
	for i := 2; i <= 6; i++ {
		for j := i + 1; j <= 6; j++ {
			a, b := l.Levels[i], l.Levels[j]
			if a.OffsetX < b.OffsetX+b.WidthBlocks && b.OffsetX < a.OffsetX+a.WidthBlocks &&
				a.OffsetY < b.OffsetY+b.HeightBlocks && b.OffsetY < a.OffsetY+a.HeightBlocks {
				t.Errorf("tail levels %d and %d overlap", i, j)
			}
		}
	}
}

func TestGuestLayoutTailInBase(t *testing.T) {
	k := key2D(xenos.Format8_8_8_8, 16, 16, true)
	k.PackedMips = true
	k.MipMaxLevel = 4
	l := GuestLayoutFor(k)
	if !l.TailInBase || l.PackedLevel != 0 {
		t.Fatalf("TailInBase = %v PackedLevel = %d", l.TailInBase, l.PackedLevel)
	}
	if l.MipsSize != 0 || l.BaseSize != 4096 {
		t.Errorf("BaseSize = %d MipsSize = %d, want 4096 0", l.BaseSize, l.MipsSize)
	}
	for i := range l.Levels {
		if got := l.LevelAddress(k, uint32(i)); got != k.BasePage<<12 {
			t.Errorf("LevelAddress(%d) = %#x, want base page", i, got)
		}
	}
}

// Every block of every level must address storage inside its level.
func TestGuestLayoutBlocksInsideStorage(t *testing.T) {
	formats := []xenos.TextureFormat{xenos.Format8, xenos.Format5_6_5, xenos.Format8_8_8_8, xenos.FormatDXT1, xenos.FormatDXT4_5, xenos.Format32_32_32_32Float}
	sizes := [][2]uint32{{1, 1}, {7, 3}, {33, 65}, {100, 50}, {256, 128}}
	for _, f := range formats {
		for _, sz := range sizes {
			for _, tiled := range []bool{false, true} {
				k := withMips(key2D(f, sz[0], sz[1], tiled), xenos.Log2Floor(max(sz[0], sz[1])))
				name := fmt.Sprintf("%s/%dx%d/tiled=%v", f, sz[0], sz[1], tiled)
				t.Run(name, func(t *testing.T) {
					checkLayoutBounds(t, k)
				})
			}
		}
	}
}

func checkLayoutBounds(t *testing.T, k Key) {
	t.Helper()
	l := GuestLayoutFor(k)
	bpb := uint32(1) << l.BppLog2
	var end uint32
	for i, lv := range l.Levels {
		if lv.SliceStride%guestPageSize != 0 {
			t.Errorf("level %d slice stride %d not page aligned", i, lv.SliceStride)
		}
		if lv.StorageHeight%32 != 0 || lv.StorageHeight < lv.HeightBlocks {
			t.Errorf("level %d storage height %d for %d rows", i, lv.StorageHeight, lv.HeightBlocks)
		}
		if lv.PitchBlocks < lv.WidthBlocks {
			t.Errorf("level %d pitch %d < width %d", i, lv.PitchBlocks, lv.WidthBlocks)
		}
		maxOff := uint32(0)
		for y := uint32(0); y < lv.HeightBlocks; y++ {
			for _, x := range []uint32{0, lv.WidthBlocks - 1} {
				var off uint32
				if l.Tiled {
					off = xenos.TiledOffset2D(x, y, lv.PitchBlocks, l.BppLog2)
				} else {
					off = xenos.LinearOffset(x, y, 0, lv.RowPitch, lv.SliceStride, l.BppLog2)
				}
				maxOff = max(maxOff, off)
			}
		}
		if maxOff+bpb > lv.SliceStride {
			t.Errorf("level %d block offset %d outside slice of %d", i, maxOff, lv.SliceStride)
		}
		if i > 0 {
			if lv.Offset < end && !lv.Packed {
				t.Errorf("level %d at %d overlaps previous end %d", i, lv.Offset, end)
			}
			end = max(end, lv.Offset+lv.Size)
		}
	}
	if end > l.MipsSize {
		t.Errorf("mips end %d past MipsSize %d", end, l.MipsSize)
	}
}
