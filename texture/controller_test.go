package texture

import (
	"log/slog"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/xenos"
)

func fetch2D(format xenos.TextureFormat, w, h, base uint32) xenos.FetchBuilder {
	return xenos.FetchBuilder{
		Format:      format,
		Dimension:   xenos.Dimension2DOrStacked,
		Width:       w,
		Height:      h,
		Tiled:       true,
		BaseAddress: base,
	}
}

func TestRequestTextures(t *testing.T) {
	r := newRig(t, DefaultConfig(), defaultCaps())
	c := r.cache
	r.setFetch(0, fetch2D(xenos.Format8_8_8_8, 64, 64, 0x100))

	c.BeginSubmission(1)
	c.RequestTextures(1)
	b := c.Binding(0)
	if b.Texture == nil || b.TextureSigned != nil {
		t.Fatalf("binding = %+v", b)
	}
	tex := b.Texture
	if !tex.IsLoaded() || tex.ResourceState() != StateShaderResource || tex.LastUsedSubmission() != 1 {
		t.Errorf("loaded %v state %v last used %d", tex.IsLoaded(), tex.ResourceState(), tex.LastUsedSubmission())
	}
	if got := r.cp.textureTransitions(tex.ID()); len(got) == 0 || got[len(got)-1] != StateShaderResource {
		t.Errorf("transitions = %v", got)
	}
	if len(r.backend.dispatches) != 1 {
		t.Fatalf("%d dispatches", len(r.backend.dispatches))
	}

	c.BeginSubmission(2)
	c.RequestTextures(1)
	if len(r.backend.dispatches) != 1 {
		t.Error("unchanged binding reloaded")
	}
	if tex.LastUsedSubmission() != 2 {
		t.Errorf("LastUsedSubmission = %d, want 2", tex.LastUsedSubmission())
	}

	r.setFetch(0, fetch2D(xenos.Format8_8_8_8, 32, 32, 0x100))
	c.RequestTextures(1)
	if b.Texture == tex || b.Key.Width() != 32 {
		t.Errorf("binding not refreshed: %v", b.Key)
	}

	// Writes the cache was not told about are ignored until notified.
	r.regs.SetFetch(0, fetch2D(xenos.Format8_8_8_8, 16, 16, 0x100).Build())
	c.RequestTextures(1)
	if b.Key.Width() != 32 {
		t.Error("binding refreshed without a write notification")
	}
}

func TestRequestTexturesReloadsInvalidated(t *testing.T) {
	r := newRig(t, DefaultConfig(), defaultCaps())
	c := r.cache
	r.setFetch(3, fetch2D(xenos.Format8_8_8_8, 64, 64, 0x100))
	c.RequestTextures(1 << 3)
	c.InvalidateRange(0x100000, 4)
	c.RequestTextures(1 << 3)
	if len(r.backend.dispatches) != 2 {
		t.Errorf("%d dispatches, want reload after invalidation", len(r.backend.dispatches))
	}
	if !c.Binding(3).Texture.IsLoaded() {
		t.Error("texture not reloaded")
	}
}

func TestRequestTexturesSigned(t *testing.T) {
	tests := []struct {
		name     string
		format   xenos.TextureFormat
		separate bool
		snorm    bool
	}{
		{"separate resource", xenos.FormatDXN, true, false},
		{"shared resource", xenos.Format16Float, false, false},
		{"no signed format", xenos.Format5_6_5, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, DefaultConfig(), defaultCaps())
			c := r.cache
			f := fetch2D(tt.format, 64, 64, 0x100)
			f.Signs = [4]xenos.TextureSign{xenos.SignSigned, xenos.SignUnsigned, xenos.SignUnsigned, xenos.SignUnsigned}
			r.setFetch(0, f)
			c.RequestTextures(1)

			b := c.Binding(0)
			if !b.AnySigned() || !b.AnyUnsigned() {
				t.Fatalf("signs = %08b", b.SwizzledSigns)
			}
			if b.Texture == nil {
				t.Fatal("no unsigned texture")
			}
			switch {
			case tt.separate:
				if b.TextureSigned == nil || b.TextureSigned == b.Texture || !b.SignedKey.SignedSeparate {
					t.Errorf("signed texture %p unsigned %p", b.TextureSigned, b.Texture)
				}
			case tt.snorm:
				if b.TextureSigned != nil {
					t.Error("signed texture created without a signed format")
				}
				if c.UnsupportedFormatFeatures(tt.format)&UnsupportedSnorm == 0 {
					t.Error("snorm not recorded")
				}
			default:
				if b.TextureSigned != b.Texture {
					t.Error("shared signed resource not reused")
				}
			}
		})
	}
}

func TestUnsupportedFormatReportedOncePerFrame(t *testing.T) {
	h := &captureHandler{}
	SetLogger(slog.New(h))
	defer SetLogger(nil)

	r := newRig(t, DefaultConfig(), defaultCaps())
	c := r.cache
	c.BeginFrame()
	r.setFetch(0, fetch2D(xenos.Format1, 64, 64, 0x100))
	r.setFetch(1, fetch2D(xenos.Format1, 128, 64, 0x200))
	c.RequestTextures(0b11)
	if c.Binding(0).Texture != nil {
		t.Error("k_1 texture bound")
	}
	features := c.UnsupportedFormatFeatures(xenos.Format1)
	if features&UnsupportedResource == 0 || features&UnsupportedUnorm == 0 {
		t.Errorf("features = %v", features)
	}
	c.EndFrame()
	const msg = "texture: unsupported guest format"
	if n := h.count(slog.LevelWarn, msg); n != 1 {
		t.Fatalf("%d warnings, want exactly 1", n)
	}
	for _, rec := range h.records {
		if rec.Message != msg {
			continue
		}
		rec.Attrs(func(a slog.Attr) bool {
			if a.Key == "features" && a.Value.String() != "resource, unorm" {
				t.Errorf("features attr = %q", a.Value.String())
			}
			return true
		})
	}

	c.BeginFrame()
	c.EndFrame()
	if n := h.count(slog.LevelWarn, msg); n != 1 {
		t.Errorf("empty frame logged again: %d warnings", n)
	}
}

func TestWriteActiveTextureBindfulSRV(t *testing.T) {
	r := newRig(t, DefaultConfig(), defaultCaps())
	c := r.cache
	r.setFetch(0, fetch2D(xenos.Format8_8_8_8, 64, 64, 0x100))
	c.RequestTextures(1)

	dst := gpucore.DescriptorHandle{Page: 42, Index: 7}
	c.WriteActiveTextureBindfulSRV(TextureSRV{FetchConstant: 0, Dimension: xenos.Dimension2DOrStacked}, dst)
	if len(r.backend.copiedDesc) != 2 || r.backend.copiedDesc[1] != dst {
		t.Fatalf("copied = %v", r.backend.copiedDesc)
	}
	if _, ok := r.backend.views[r.backend.copiedDesc[0]]; !ok {
		t.Error("copied from a slot without a view")
	}

	tests := []struct {
		name string
		srv  TextureSRV
		want gputypes.TextureViewDimension
	}{
		{"empty slot", TextureSRV{FetchConstant: 5, Dimension: xenos.Dimension2DOrStacked}, gputypes.TextureViewDimension2DArray},
		{"dimension mismatch", TextureSRV{FetchConstant: 0, Dimension: xenos.DimensionCube}, gputypes.TextureViewDimensionCube},
		{"no signed texture", TextureSRV{FetchConstant: 0, Dimension: xenos.Dimension2DOrStacked, IsSigned: true}, gputypes.TextureViewDimension2DArray},
		{"out of range", TextureSRV{FetchConstant: 40, Dimension: xenos.Dimension3D}, gputypes.TextureViewDimension3D},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := gpucore.DescriptorHandle{Page: 43, Index: uint32(i)}
			c.WriteActiveTextureBindfulSRV(tt.srv, dst)
			if got, ok := r.backend.nullViews[dst]; !ok || got != tt.want {
				t.Errorf("null view = %v %v, want %v", got, ok, tt.want)
			}
		})
	}
}

func TestGetActiveTextureBindlessSRVIndex(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bindless = true
	caps := defaultCaps()
	caps.Bindless = true
	r := newRig(t, cfg, caps)
	c := r.cache
	r.setFetch(0, fetch2D(xenos.Format8_8_8_8, 64, 64, 0x100))
	c.RequestTextures(1)

	srv := TextureSRV{FetchConstant: 0, Dimension: xenos.Dimension2DOrStacked}
	i := c.GetActiveTextureBindlessSRVIndex(srv)
	if i < nullDescriptorCount {
		t.Fatalf("index %d is a null descriptor", i)
	}
	if j := c.GetActiveTextureBindlessSRVIndex(srv); j != i {
		t.Errorf("index changed %d -> %d", i, j)
	}

	nulls := map[xenos.DataDimension]uint32{
		xenos.Dimension1D:          nullDescriptor2DArray,
		xenos.Dimension2DOrStacked: nullDescriptor2DArray,
		xenos.Dimension3D:          nullDescriptor3D,
		xenos.DimensionCube:        nullDescriptorCube,
	}
	for dim, want := range nulls {
		if got := c.GetActiveTextureBindlessSRVIndex(TextureSRV{FetchConstant: 9, Dimension: dim}); got != want {
			t.Errorf("%s: null index %d, want %d", dim, got, want)
		}
	}
}

func TestActiveTextureSRVKeys(t *testing.T) {
	r := newRig(t, DefaultConfig(), defaultCaps())
	c := r.cache
	r.setFetch(0, fetch2D(xenos.Format8_8_8_8, 64, 64, 0x100))
	r.setFetch(1, fetch2D(xenos.FormatDXT1, 128, 128, 0x200))
	c.RequestTextures(0b11)

	srvs := []TextureSRV{
		{FetchConstant: 0, Dimension: xenos.Dimension2DOrStacked},
		{FetchConstant: 1, Dimension: xenos.Dimension2DOrStacked},
	}
	keys := make([]SRVKey, len(srvs))
	if c.AreActiveTextureSRVKeysUpToDate(keys, srvs) {
		t.Error("zero keys reported up to date")
	}
	c.WriteActiveTextureSRVKeys(keys, srvs)
	if !c.AreActiveTextureSRVKeysUpToDate(keys, srvs) {
		t.Error("written keys not up to date")
	}
	if c.AreActiveTextureSRVKeysUpToDate(keys[:1], srvs) {
		t.Error("length mismatch reported up to date")
	}

	f := fetch2D(xenos.Format8_8_8_8, 64, 64, 0x100)
	f.Swizzle = xenos.SwizzleY | xenos.SwizzleY<<3 | xenos.SwizzleY<<6 | xenos.SwizzleY<<9
	r.setFetch(0, f)
	c.RequestTextures(1)
	if c.AreActiveTextureSRVKeysUpToDate(keys, srvs) {
		t.Error("swizzle change not detected")
	}
}

func TestBindingDroppedWithTexture(t *testing.T) {
	r := newRig(t, DefaultConfig(), defaultCaps())
	c := r.cache
	r.setFetch(0, fetch2D(xenos.Format8_8_8_8, 64, 64, 0x100))
	c.RequestTextures(1)
	c.DestroyAllTextures(true)
	if c.Binding(0).Texture != nil {
		t.Fatal("binding kept a destroyed texture")
	}
	c.RequestTextures(1)
	if c.Binding(0).Texture == nil {
		t.Error("binding not rebuilt")
	}
}

func TestScaledBindingKey(t *testing.T) {
	r, _ := newScaledRig(t)
	c := r.cache
	r.setFetch(0, fetch2D(xenos.Format8_8_8_8, 64, 64, 0x100))
	c.RequestTextures(1)
	if c.Binding(0).Key.ScaledResolve {
		t.Fatal("unresolved range produced a scaled key")
	}
	c.MarkRangeScaledResolved(0x100000, 0x4000)
	c.RequestTextures(1)
	b := c.Binding(0)
	if !b.Key.ScaledResolve {
		t.Fatal("resolved range produced an unscaled key")
	}
	if w, h := b.Texture.Size(); w != 128 || h != 128 {
		t.Errorf("scaled texture %dx%d", w, h)
	}
}

func TestRequestSwapTexture(t *testing.T) {
	r := newRig(t, DefaultConfig(), defaultCaps())
	c := r.cache
	if _, ok := c.RequestSwapTexture(); ok {
		t.Error("swap texture from an empty fetch constant")
	}

	f := fetch2D(xenos.Format8_8_8_8, 320, 240, 0x10)
	f.MipAddress = 0x80
	f.MipMaxLevel = 3
	f.Swizzle = xenos.SwizzleZ | xenos.SwizzleY<<3 | xenos.SwizzleX<<6 | xenos.SwizzleW<<9
	r.setFetch(0, f)

	sw, ok := c.RequestSwapTexture()
	if !ok {
		t.Fatal("RequestSwapTexture failed")
	}
	var gt gpucontext.Texture = sw
	if gt.Width() != 320 || gt.Height() != 240 {
		t.Errorf("size %dx%d", gt.Width(), gt.Height())
	}
	k := sw.Texture().Key()
	if k.MipMaxLevel != 0 || k.MipPage != 0 || k.Dimension != xenos.Dimension2DOrStacked {
		t.Errorf("swap key = %v", k)
	}
	if !sw.Texture().IsLoaded() || sw.Texture().ResourceState() != StateShaderResource {
		t.Error("swap texture not ready")
	}
	if sw.Swizzle() != f.Swizzle {
		t.Errorf("Swizzle() = %#o, want %#o", sw.Swizzle(), f.Swizzle)
	}
}

func BenchmarkAreActiveTextureSRVKeysUpToDate(b *testing.B) {
	r := newRig(b, DefaultConfig(), defaultCaps())
	srvs := make([]TextureSRV, 16)
	for i := range srvs {
		r.setFetch(uint32(i), fetch2D(xenos.Format8_8_8_8, 64, 64, 0x100+uint32(i)*0x10))
		srvs[i] = TextureSRV{FetchConstant: uint32(i), Dimension: xenos.Dimension2DOrStacked}
	}
	r.cache.RequestTextures(0xFFFF)
	keys := make([]SRVKey, len(srvs))
	r.cache.WriteActiveTextureSRVKeys(keys, srvs)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !r.cache.AreActiveTextureSRVKeysUpToDate(keys, srvs) {
			b.Fatal("keys out of date")
		}
	}
}
