package wgpu

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/texture"
	"github.com/gogpu/texcache/xenos"
	"github.com/gogpu/wgpu/hal"
)

func TestAddressMode(t *testing.T) {
	tests := []struct {
		clamp xenos.ClampMode
		want  gputypes.AddressMode
	}{
		{xenos.ClampRepeat, gputypes.AddressModeRepeat},
		{xenos.ClampMirroredRepeat, gputypes.AddressModeMirrorRepeat},
		{xenos.ClampToEdge, gputypes.AddressModeClampToEdge},
		{xenos.ClampMirrorClampToEdge, gputypes.AddressModeMirrorRepeat},
		{xenos.ClampToHalfway, gputypes.AddressModeClampToEdge},
		{xenos.ClampMirrorClampToHalfway, gputypes.AddressModeMirrorRepeat},
		{xenos.ClampToBorder, gputypes.AddressModeClampToEdge},
		{xenos.ClampMirrorClampToBorder, gputypes.AddressModeMirrorRepeat},
	}
	for _, tt := range tests {
		t.Run(tt.clamp.String(), func(t *testing.T) {
			if got := addressMode(tt.clamp); got != tt.want {
				t.Errorf("addressMode(%s) = %v, want %v", tt.clamp, got, tt.want)
			}
		})
	}
}

func TestSamplerDescriptorFor(t *testing.T) {
	tests := []struct {
		name   string
		params texture.SamplerParameters
		check  func(t *testing.T, d *hal.SamplerDescriptor)
	}{
		{
			name:   "point",
			params: texture.SamplerParameters{MipMaxLevel: 3},
			check: func(t *testing.T, d *hal.SamplerDescriptor) {
				if d.MagFilter != gputypes.FilterModeNearest || d.MinFilter != gputypes.FilterModeNearest {
					t.Errorf("filters = %v/%v, want nearest", d.MagFilter, d.MinFilter)
				}
				if d.LodMinClamp != 0 || d.LodMaxClamp != 3 {
					t.Errorf("lod = [%v, %v], want [0, 3]", d.LodMinClamp, d.LodMaxClamp)
				}
				if d.Anisotropy != 1 {
					t.Errorf("Anisotropy = %d, want 1", d.Anisotropy)
				}
			},
		},
		{
			name: "trilinear",
			params: texture.SamplerParameters{
				MagLinear: true, MinLinear: true, MipLinear: true,
				MipMinLevel: 1, MipMaxLevel: 5,
			},
			check: func(t *testing.T, d *hal.SamplerDescriptor) {
				if d.MipmapFilter != gputypes.FilterModeLinear {
					t.Errorf("MipmapFilter = %v, want linear", d.MipmapFilter)
				}
				if d.LodMinClamp != 1 || d.LodMaxClamp != 5 {
					t.Errorf("lod = [%v, %v], want [1, 5]", d.LodMinClamp, d.LodMaxClamp)
				}
			},
		},
		{
			name: "base map",
			params: texture.SamplerParameters{
				MipLinear: true, MipBaseMap: true, MipMinLevel: 2, MipMaxLevel: 6,
			},
			check: func(t *testing.T, d *hal.SamplerDescriptor) {
				if d.MipmapFilter != gputypes.FilterModeNearest {
					t.Errorf("MipmapFilter = %v, want nearest", d.MipmapFilter)
				}
				if d.LodMinClamp != 2 || d.LodMaxClamp != 2.25 {
					t.Errorf("lod = [%v, %v], want [2, 2.25]", d.LodMinClamp, d.LodMaxClamp)
				}
			},
		},
		{
			name: "anisotropic",
			params: texture.SamplerParameters{
				MagLinear: true, MinLinear: true, MipLinear: true,
				Aniso: xenos.Aniso8To1,
			},
			check: func(t *testing.T, d *hal.SamplerDescriptor) {
				if d.Anisotropy != 8 {
					t.Errorf("Anisotropy = %d, want 8", d.Anisotropy)
				}
			},
		},
		{
			name: "anisotropic base map",
			params: texture.SamplerParameters{
				MagLinear: true, MinLinear: true, MipLinear: true,
				MipBaseMap: true, MipMinLevel: 1, MipMaxLevel: 4,
				Aniso: xenos.Aniso8To1,
			},
			check: func(t *testing.T, d *hal.SamplerDescriptor) {
				if d.Anisotropy != 8 {
					t.Errorf("Anisotropy = %d, want 8", d.Anisotropy)
				}
				if d.MagFilter != gputypes.FilterModeLinear || d.MinFilter != gputypes.FilterModeLinear ||
					d.MipmapFilter != gputypes.FilterModeLinear {
					t.Errorf("filters = %v/%v/%v, want linear", d.MagFilter, d.MinFilter, d.MipmapFilter)
				}
				if d.LodMinClamp != 1 || d.LodMaxClamp != 1 {
					t.Errorf("lod = [%v, %v], want [1, 1]", d.LodMinClamp, d.LodMaxClamp)
				}
			},
		},
		{
			name: "inverted mip range",
			params: texture.SamplerParameters{
				MipMinLevel: 4, MipMaxLevel: 1,
			},
			check: func(t *testing.T, d *hal.SamplerDescriptor) {
				if d.LodMaxClamp < d.LodMinClamp {
					t.Errorf("lod = [%v, %v], max below min", d.LodMinClamp, d.LodMaxClamp)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := SamplerDescriptorFor(tt.params)
			if d.Compare != gputypes.CompareFunctionUndefined {
				t.Errorf("Compare = %v, want undefined", d.Compare)
			}
			tt.check(t, &d)
		})
	}
}

func TestSamplerCache(t *testing.T) {
	b := newNoopBackend(t, WithSamplerCacheSize(2))
	page, err := b.CreateDescriptorPage(8)
	if err != nil {
		t.Fatal(err)
	}
	params := []texture.SamplerParameters{
		{ClampX: xenos.ClampRepeat},
		{ClampX: xenos.ClampToEdge},
		{ClampX: xenos.ClampMirroredRepeat},
	}
	for i, p := range params {
		if err := b.WriteSampler(p, gpucore.DescriptorHandle{Page: page, Index: uint32(i)}); err != nil {
			t.Fatalf("WriteSampler %d: %v", i, err)
		}
	}
	// The same state again is a cache hit.
	if err := b.WriteSampler(params[2], gpucore.DescriptorHandle{Page: page, Index: 3}); err != nil {
		t.Fatal(err)
	}
	s := b.Stats()
	if s.Samplers > 2 {
		t.Errorf("Samplers = %d, want at most 2", s.Samplers)
	}
	if s.SamplerMisses != 3 || s.SamplerHits != 1 || s.SamplerEvictions == 0 {
		t.Errorf("sampler cache stats = %+v, want 3 misses, 1 hit and some evictions", s)
	}

	// An evicted sampler is recreated when its slot is bound.
	if _, err := b.BindGroupEntry(gpucore.DescriptorHandle{Page: page, Index: 0}, 1); err != nil {
		t.Errorf("BindGroupEntry of evicted sampler: %v", err)
	}
}

func TestSamplerDescriptorForAnisotropicBaseMapFetch(t *testing.T) {
	fetch := &xenos.TextureFetch{
		Type:        xenos.FetchTypeTexture,
		MipFilter:   xenos.FilterBaseMap,
		AnisoFilter: xenos.Aniso8To1,
	}
	p := texture.SamplerParametersFor(fetch, texture.SamplerBinding{
		MagFilter:   xenos.FilterUseFetchConst,
		MinFilter:   xenos.FilterUseFetchConst,
		MipFilter:   xenos.FilterUseFetchConst,
		AnisoFilter: xenos.AnisoUseFetchConst,
	})
	d := SamplerDescriptorFor(p)
	if d.Anisotropy > 1 && (d.MagFilter != gputypes.FilterModeLinear ||
		d.MinFilter != gputypes.FilterModeLinear || d.MipmapFilter != gputypes.FilterModeLinear) {
		t.Errorf("anisotropy %d with filters %v/%v/%v", d.Anisotropy, d.MagFilter, d.MinFilter, d.MipmapFilter)
	}
	if d.LodMaxClamp != d.LodMinClamp {
		t.Errorf("lod = [%v, %v], want a single level", d.LodMinClamp, d.LodMaxClamp)
	}
}
