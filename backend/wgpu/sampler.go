package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/texture"
	"github.com/gogpu/texcache/xenos"
	"github.com/gogpu/wgpu/hal"
)

// addressMode maps a guest clamp mode to the closest WebGPU address mode.
// WebGPU has no border color and no mirror-once mode: border clamps fall
// back to edge clamping, mirror clamps to mirrored repeat.
func addressMode(m xenos.ClampMode) gputypes.AddressMode {
	switch m {
	case xenos.ClampRepeat:
		return gputypes.AddressModeRepeat
	case xenos.ClampMirroredRepeat,
		xenos.ClampMirrorClampToEdge,
		xenos.ClampMirrorClampToHalfway,
		xenos.ClampMirrorClampToBorder:
		return gputypes.AddressModeMirrorRepeat
	default:
		return gputypes.AddressModeClampToEdge
	}
}

func filterMode(linear bool) gputypes.FilterMode {
	if linear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

// SamplerDescriptorFor returns the host sampler of guest sampler state.
// LOD bias is not part of WebGPU samplers and is applied by the shader.
func SamplerDescriptorFor(p texture.SamplerParameters) hal.SamplerDescriptor {
	desc := hal.SamplerDescriptor{
		Label:        "texcache_sampler",
		AddressModeU: addressMode(p.ClampX),
		AddressModeV: addressMode(p.ClampY),
		AddressModeW: addressMode(p.ClampZ),
		MagFilter:    filterMode(p.MagLinear),
		MinFilter:    filterMode(p.MinLinear),
		MipmapFilter: filterMode(p.MipLinear),
		LodMinClamp:  float32(p.MipMinLevel),
		LodMaxClamp:  float32(max(p.MipMaxLevel, p.MipMinLevel)),
		Compare:      gputypes.CompareFunctionUndefined,
		Anisotropy:   1,
	}
	if n := p.Aniso.MaxAnisotropy(); n > 1 {
		// Anisotropic samplers must filter linearly everywhere.
		desc.Anisotropy = n
		desc.MagFilter = gputypes.FilterModeLinear
		desc.MinFilter = gputypes.FilterModeLinear
		desc.MipmapFilter = gputypes.FilterModeLinear
		if p.MipBaseMap {
			desc.LodMaxClamp = desc.LodMinClamp
		}
		return desc
	}
	if p.MipBaseMap {
		// A quarter level above the base map never selects the next level.
		desc.MipmapFilter = gputypes.FilterModeNearest
		desc.LodMaxClamp = desc.LodMinClamp + 0.25
	}
	return desc
}

// samplerLocked returns the host sampler of p, creating it on first use.
func (b *Backend) samplerLocked(p texture.SamplerParameters) (hal.Sampler, error) {
	return b.samplers.GetOrCreate(p, func() (hal.Sampler, error) {
		desc := SamplerDescriptorFor(p)
		desc.Label = b.cfg.label + "_sampler"
		s, err := b.device.CreateSampler(&desc)
		if err != nil {
			return nil, fmt.Errorf("wgpu: create sampler: %w", err)
		}
		if p.UsesBorder() {
			slogger().Debug("wgpu: border color approximated by edge clamp",
				"border", p.BorderColor, "rgba", texture.BorderColorRGBA(p.BorderColor))
		}
		return s, nil
	})
}
