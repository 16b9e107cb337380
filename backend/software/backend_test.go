package software

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/texture"
)

func texDesc(format gputypes.TextureFormat, w, h, layers, levels uint32) *gputypes.TextureDescriptor {
	return &gputypes.TextureDescriptor{
		Size:          gputypes.Extent3D{Width: w, Height: h, DepthOrArrayLayers: layers},
		MipLevelCount: levels,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
	}
}

func TestCreateTexture(t *testing.T) {
	b := New()
	id, err := b.CreateTexture(texDesc(gputypes.TextureFormatRGBA8Unorm, 16, 8, 2, 3))
	if err != nil {
		t.Fatal(err)
	}
	tex := b.Texture(id)
	if tex == nil {
		t.Fatal("texture not found")
	}
	if got := tex.RowPitch(0); got != 64 {
		t.Errorf("RowPitch(0) = %d, want 64", got)
	}
	if w, h := tex.LevelSize(2); w != 4 || h != 2 {
		t.Errorf("LevelSize(2) = %dx%d, want 4x2", w, h)
	}
	if got := len(tex.Image(1, 1)); got != 8*4*4 {
		t.Errorf("level 1 image size = %d", got)
	}
	if tex.Image(0, 2) != nil || tex.Image(3, 0) != nil {
		t.Error("out of range image returned")
	}
	want := uint64(2 * (16*8 + 8*4 + 4*2) * 4)
	if s := b.Stats(); s.Textures != 1 || s.TextureBytes != want {
		t.Errorf("stats = %+v, want 1 texture of %d bytes", s, want)
	}

	b.DestroyTexture(id)
	if s := b.Stats(); s.Textures != 0 || s.TextureBytes != 0 {
		t.Errorf("stats after destroy = %+v", s)
	}
}

func TestCreateTextureErrors(t *testing.T) {
	b := New()
	if _, err := b.CreateTexture(texDesc(gputypes.TextureFormatDepth32Float, 4, 4, 1, 1)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("depth format: err = %v", err)
	}
	if _, err := b.CreateTexture(texDesc(gputypes.TextureFormatRGBA8Unorm, 0, 4, 1, 1)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("empty texture: err = %v", err)
	}
}

func TestCompressedTextureGeometry(t *testing.T) {
	b := New()
	id, err := b.CreateTexture(texDesc(gputypes.TextureFormatBC1RGBAUnorm, 10, 6, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	tex := b.Texture(id)
	if got := tex.RowPitch(0); got != 3*8 {
		t.Errorf("RowPitch = %d, want 24", got)
	}
	if got := len(tex.Image(0, 0)); got != 3*8*2 {
		t.Errorf("image size = %d, want 48", got)
	}
}

func TestCopyBufferToTexture(t *testing.T) {
	b := New()
	id, _ := b.CreateTexture(texDesc(gputypes.TextureFormatR8Unorm, 4, 2, 2, 1))
	src := b.CreateBuffer(1024)
	data := b.BufferBytes(src)
	for i := range data {
		data[i] = byte(i)
	}

	regions := []texture.CopyRegion{{
		BufferOffset: 256,
		BytesPerRow:  16,
		RowsPerImage: 4,
		Width:        4,
		Height:       2,
		Depth:        2,
	}}
	if err := b.CopyBufferToTexture(src, id, regions); err != nil {
		t.Fatal(err)
	}
	tex := b.Texture(id)
	// Offset 256 wraps the byte pattern back to zero.
	want0 := []byte{0, 1, 2, 3, 16, 17, 18, 19}
	want1 := []byte{64, 65, 66, 67, 80, 81, 82, 83}
	if got := tex.Image(0, 0); string(got) != string(want0) {
		t.Errorf("layer 0 = %v", got)
	}
	if got := tex.Image(0, 1); string(got) != string(want1) {
		t.Errorf("layer 1 = %v", got)
	}
	if b.Stats().Copies != 1 {
		t.Errorf("Copies = %d, want 1", b.Stats().Copies)
	}
}

func TestCopyBufferToTextureSourceBox(t *testing.T) {
	b := New()
	id, _ := b.CreateTexture(texDesc(gputypes.TextureFormatRGBA8Unorm, 2, 1, 1, 1))
	src := b.CreateBuffer(512)
	data := b.BufferBytes(src)
	for i := range data {
		data[i] = byte(i)
	}
	regions := []texture.CopyRegion{{
		BytesPerRow:  256,
		RowsPerImage: 1,
		Width:        2,
		Height:       1,
		Depth:        1,
		SourceBox:    &texture.Box{X: 4, Y: 1, Width: 2, Height: 1},
	}}
	if err := b.CopyBufferToTexture(src, id, regions); err != nil {
		t.Fatal(err)
	}
	// Row 1 starts at 256, texel 4 at 16 more.
	if got := b.Texture(id).Image(0, 0)[0]; got != 16 {
		t.Errorf("first byte = %d, want 16", got)
	}
}

func TestCopyBufferToTextureErrors(t *testing.T) {
	b := New()
	id, _ := b.CreateTexture(texDesc(gputypes.TextureFormatRGBA8Unorm, 64, 64, 1, 1))
	small := b.CreateBuffer(64)
	tests := []struct {
		name    string
		src     gpucore.BufferID
		dst     gpucore.TextureID
		region  texture.CopyRegion
		wantErr error
	}{
		{"unknown buffer", 999, id, texture.CopyRegion{Width: 1, Height: 1, Depth: 1}, ErrUnknownResource},
		{"unknown texture", small, 999, texture.CopyRegion{Width: 1, Height: 1, Depth: 1}, ErrUnknownResource},
		{"source too small", small, id, texture.CopyRegion{BytesPerRow: 256, RowsPerImage: 64, Width: 64, Height: 64, Depth: 1}, ErrMissingScratchData},
		{"bad level", small, id, texture.CopyRegion{Level: 1, Width: 1, Height: 1, Depth: 1}, ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.CopyBufferToTexture(tt.src, tt.dst, []texture.CopyRegion{tt.region})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLinearBuffer(t *testing.T) {
	b := New()
	id := b.CreateBuffer(8)
	if err := b.WriteBuffer(id, 4, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 2)
	if err := b.ReadBuffer(id, 5, got); err != nil || got[0] != 2 || got[1] != 3 {
		t.Errorf("ReadBuffer = %v, %v", got, err)
	}
	if err := b.WriteBuffer(id, 6, []byte{1, 2, 3}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("overflowing write: err = %v", err)
	}
	b.DestroyBuffer(id)
	if err := b.WriteBuffer(id, 0, []byte{1}); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("destroyed buffer: err = %v", err)
	}
}

func TestSparseBuffer(t *testing.T) {
	const heapSize = 1 << 16
	b := New()
	buf, err := b.CreateSparseBuffer(1 << 30)
	if err != nil {
		t.Fatal(err)
	}
	heap, err := b.CreateHeap(heapSize)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.MapHeap(buf, heapSize, heap); err != nil {
		t.Fatal(err)
	}
	if err := b.WriteBuffer(buf, heapSize+10, []byte{7}); err != nil {
		t.Fatalf("write to mapped page: %v", err)
	}
	got := []byte{0}
	if err := b.ReadBuffer(buf, heapSize+10, got); err != nil || got[0] != 7 {
		t.Errorf("ReadBuffer = %v, %v", got, err)
	}
	if err := b.WriteBuffer(buf, 0, []byte{1}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("write to unmapped page: err = %v", err)
	}
	if err := b.WriteBuffer(buf, 2*heapSize-1, []byte{1, 2}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("write across heaps: err = %v", err)
	}
	if err := b.MapHeap(buf, 100, heap); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("misaligned map: err = %v", err)
	}
	other, _ := b.CreateHeap(2 * heapSize)
	if err := b.MapHeap(buf, 4*heapSize, other); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("mixed heap sizes: err = %v", err)
	}
	if s := b.Stats(); s.HeapBytes != 3*heapSize {
		t.Errorf("HeapBytes = %d", s.HeapBytes)
	}

	b.DestroyHeap(heap)
	if err := b.ReadBuffer(buf, heapSize+10, got); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("read after heap destroyed: err = %v", err)
	}
}

func TestSparseDisabled(t *testing.T) {
	caps := DefaultCapabilities
	caps.SparseBuffers = false
	b := New(WithCapabilities(caps))
	if _, err := b.CreateSparseBuffer(1 << 20); !errors.Is(err, ErrSparseUnsupported) {
		t.Errorf("err = %v, want ErrSparseUnsupported", err)
	}
}

func TestDescriptors(t *testing.T) {
	b := New()
	page, _ := b.CreateDescriptorPage(4)
	tex, _ := b.CreateTexture(texDesc(gputypes.TextureFormatRGBA8Unorm, 4, 4, 1, 1))
	h := func(i uint32) gpucore.DescriptorHandle { return gpucore.DescriptorHandle{Page: page, Index: i} }

	view := &texture.ViewDesc{TextureViewDescriptor: gputypes.TextureViewDescriptor{
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Dimension: gputypes.TextureViewDimension2DArray,
	}}
	if err := b.WriteTextureSRV(tex, view, h(0)); err != nil {
		t.Fatal(err)
	}
	b.WriteNullSRV(gputypes.TextureViewDimension3D, h(1))
	b.CopyDescriptor(h(0), h(2))
	if err := b.WriteSampler(texture.SamplerParameters{}, h(3)); err != nil {
		t.Fatal(err)
	}

	want := []struct {
		kind DescriptorKind
		dim  gputypes.TextureViewDimension
	}{
		{DescriptorTexture, gputypes.TextureViewDimension2DArray},
		{DescriptorNull, gputypes.TextureViewDimension3D},
		{DescriptorTexture, gputypes.TextureViewDimension2DArray},
		{DescriptorSampler, 0},
	}
	for i, w := range want {
		d, ok := b.Descriptor(h(uint32(i)))
		if !ok || d.Kind != w.kind || d.Dimension != w.dim {
			t.Errorf("slot %d = %+v, want kind %d dim %v", i, d, w.kind, w.dim)
		}
	}
	if d, _ := b.Descriptor(h(2)); d.Texture != tex {
		t.Errorf("copied descriptor texture = %d, want %d", d.Texture, tex)
	}

	if err := b.WriteTextureSRV(tex, view, h(4)); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("out of range slot: err = %v", err)
	}
	if err := b.WriteTextureSRV(999, view, h(0)); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("unknown texture: err = %v", err)
	}
	b.DestroyDescriptorPage(page)
	if _, ok := b.Descriptor(h(0)); ok {
		t.Error("descriptor of destroyed page still readable")
	}
}

func TestDispatchLoadShaderErrors(t *testing.T) {
	b := New()
	scratch := b.CreateBuffer(256)
	consts := b.CreateBuffer(256)
	tests := []struct {
		name    string
		cmd     texture.LoadCommand
		wantErr error
	}{
		{"unknown shader", texture.LoadCommand{Shader: texture.LoadShaderUnknown, Dest: scratch}, ErrNoKernel},
		{"unknown source", texture.LoadCommand{Shader: texture.LoadShader32bpb, Source: 999, Dest: scratch}, ErrUnknownResource},
		{"unknown constants", texture.LoadCommand{
			Shader:    texture.LoadShader32bpb,
			Constants: gpucore.BufferSlice{Buffer: 999, Size: 64},
		}, ErrUnknownResource},
		{"constants past buffer end", texture.LoadCommand{
			Shader:    texture.LoadShader32bpb,
			Constants: gpucore.BufferSlice{Buffer: consts, Offset: 240, Size: 64},
		}, ErrOutOfRange},
		{"constants smaller than parameters", texture.LoadCommand{
			Shader:    texture.LoadShader32bpb,
			Constants: gpucore.BufferSlice{Buffer: consts, Size: 4},
			Dest:      scratch,
		}, ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := b.DispatchLoadShader(&tt.cmd); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDispatchLoadShaderLinear(t *testing.T) {
	b := New()
	guest := NewGuestMemory(b, 4096)
	for i := uint32(0); i < 4; i++ {
		guest.Bytes()[i*256] = byte(i + 1) // first block of each row
	}
	scratch := b.CreateBuffer(1024)
	cmd := &texture.LoadCommand{
		Shader: texture.LoadShader32bpb,
		Params: texture.LoadConstants{
			GuestPitch: 256,
			SizeBlocks: [3]uint32{2, 4, 1},
			HostPitch:  256,
		},
		Source: guest.Buffer(),
		Dest:   scratch,
	}
	if err := b.DispatchLoadShader(cmd); err != nil {
		t.Fatal(err)
	}
	out := b.BufferBytes(scratch)
	for y := 0; y < 4; y++ {
		if out[y*256] != byte(y+1) {
			t.Errorf("row %d = %d, want %d", y, out[y*256], y+1)
		}
	}
	if b.Stats().Dispatches != 1 {
		t.Errorf("Dispatches = %d", b.Stats().Dispatches)
	}
}
