package xenos

import "testing"

func TestDecodeTextureFetch(t *testing.T) {
	b := FetchBuilder{
		Format:      FormatDXT1,
		Dimension:   Dimension2DOrStacked,
		Width:       256,
		Height:      128,
		Tiled:       true,
		Endianness:  Endian8In32,
		BaseAddress: 0x12345,
		MipAddress:  0x23456,
		MipMaxLevel: 7,
		PackedMips:  true,
		Signs:       [4]TextureSign{SignSigned, SignUnsigned, SignGamma, SignUnsignedBiased},
		Clamp:       [3]ClampMode{ClampToBorder, ClampMirroredRepeat, ClampToHalfway},
		MagFilter:   FilterLinear,
		MinFilter:   FilterPoint,
		MipFilter:   FilterLinear,
		Aniso:       Aniso4To1,
		Border:      BorderABGRWhite,
	}
	f := DecodeTextureFetch(b.Build())

	if f.Type != FetchTypeTexture {
		t.Errorf("Type = %d, want %d", f.Type, FetchTypeTexture)
	}
	if f.Format != FormatDXT1 {
		t.Errorf("Format = %v, want k_DXT1", f.Format)
	}
	w, h, d := f.Size()
	if w != 256 || h != 128 || d != 1 {
		t.Errorf("Size() = %dx%dx%d, want 256x128x1", w, h, d)
	}
	if f.Pitch != 256 {
		t.Errorf("Pitch = %d, want 256", f.Pitch)
	}
	if !f.Tiled || !f.PackedMips {
		t.Errorf("Tiled = %v, PackedMips = %v, want both set", f.Tiled, f.PackedMips)
	}
	if f.Endianness != Endian8In32 {
		t.Errorf("Endianness = %v, want 8in32", f.Endianness)
	}
	if f.BaseAddress != 0x12345 || f.MipAddress != 0x23456 {
		t.Errorf("addresses = %#x/%#x, want 0x12345/0x23456", f.BaseAddress, f.MipAddress)
	}
	if f.MipMaxLevel != 7 {
		t.Errorf("MipMaxLevel = %d, want 7", f.MipMaxLevel)
	}
	if f.SignX != SignSigned || f.SignZ != SignGamma || f.SignW != SignUnsignedBiased {
		t.Errorf("signs = %d %d %d %d", f.SignX, f.SignY, f.SignZ, f.SignW)
	}
	if f.ClampX != ClampToBorder || f.ClampY != ClampMirroredRepeat || f.ClampZ != ClampToHalfway {
		t.Errorf("clamps = %v %v %v", f.ClampX, f.ClampY, f.ClampZ)
	}
	if f.MagFilter != FilterLinear || f.MinFilter != FilterPoint || f.MipFilter != FilterLinear {
		t.Errorf("filters = %v %v %v", f.MagFilter, f.MinFilter, f.MipFilter)
	}
	if f.AnisoFilter != Aniso4To1 {
		t.Errorf("AnisoFilter = %d, want %d", f.AnisoFilter, Aniso4To1)
	}
	if f.BorderColor != BorderABGRWhite {
		t.Errorf("BorderColor = %d, want %d", f.BorderColor, BorderABGRWhite)
	}
	if f.Swizzle != SwizzleXYZW {
		t.Errorf("Swizzle = %#x, want %#x", f.Swizzle, SwizzleXYZW)
	}
	if !f.IsSigned() {
		t.Error("IsSigned() = false, want true")
	}
}

func TestTextureFetchSize(t *testing.T) {
	tests := []struct {
		name    string
		b       FetchBuilder
		w, h, d uint32
	}{
		{"1D", FetchBuilder{Dimension: Dimension1D, Width: 4096}, 4096, 1, 1},
		{"2D", FetchBuilder{Dimension: Dimension2DOrStacked, Width: 640, Height: 480}, 640, 480, 1},
		{"stacked", FetchBuilder{Dimension: Dimension2DOrStacked, Width: 64, Height: 64, Depth: 12, Stacked: true}, 64, 64, 12},
		{"3D", FetchBuilder{Dimension: Dimension3D, Width: 32, Height: 16, Depth: 8}, 32, 16, 8},
		{"cube", FetchBuilder{Dimension: DimensionCube, Width: 128, Height: 128}, 128, 128, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DecodeTextureFetch(tt.b.Build())
			w, h, d := f.Size()
			if w != tt.w || h != tt.h || d != tt.d {
				t.Errorf("Size() = %dx%dx%d, want %dx%dx%d", w, h, d, tt.w, tt.h, tt.d)
			}
		})
	}
}

func TestTextureFetchMipLevels(t *testing.T) {
	f := DecodeTextureFetch(FetchBuilder{
		Dimension:   Dimension2DOrStacked,
		Width:       16,
		Height:      8,
		MipMaxLevel: 15,
	}.Build())
	lo, hi := f.MipLevels()
	if lo != 0 || hi != 4 {
		t.Errorf("MipLevels() = %d..%d, want 0..4", lo, hi)
	}
}

func TestReadTextureFetch(t *testing.T) {
	regs := NewRegisterArray()
	dwords := FetchBuilder{Format: Format8_8_8_8, Width: 32, Height: 32, Dimension: Dimension2DOrStacked}.Build()
	regs.SetFetch(5, dwords)

	if got := regs.Register(FetchConstantBase + 5*FetchConstantStride + 1); got != dwords[1] {
		t.Errorf("Register() = %#x, want %#x", got, dwords[1])
	}
	if got := regs.Register(0x100); got != 0 {
		t.Errorf("Register(0x100) = %#x, want 0", got)
	}

	f := ReadTextureFetch(regs, 5)
	if f.Raw != dwords {
		t.Errorf("Raw = %v, want %v", f.Raw, dwords)
	}
	if f.Format != Format8_8_8_8 {
		t.Errorf("Format = %v, want k_8_8_8_8", f.Format)
	}
	if empty := ReadTextureFetch(regs, 4); empty.Type != FetchTypeInvalid {
		t.Errorf("empty slot Type = %d, want invalid", empty.Type)
	}
}

func TestSignExtendedFields(t *testing.T) {
	var d [FetchConstantStride]uint32
	d[3] = 0x3F << 13  // exp_adjust = -1
	d[4] = 0x200 << 12 // lod_bias = -512
	f := DecodeTextureFetch(d)
	if f.ExpAdjust != -1 {
		t.Errorf("ExpAdjust = %d, want -1", f.ExpAdjust)
	}
	if f.LODBias != -512 {
		t.Errorf("LODBias = %d, want -512", f.LODBias)
	}
}
