package wgpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/wgpu/hal"
)

// Pool sizes used when no option overrides them.
const (
	DefaultConstantsSize    = 1 << 20
	DefaultDescriptorCount  = 4096
	DefaultSamplerCacheSize = 256
)

// constantsAlignment is the offset alignment of uniform uploads. It
// matches the largest MinUniformBufferOffsetAlignment WebGPU allows.
const constantsAlignment = 256

type config struct {
	label            string
	caps             *gpucore.Capabilities
	features         gputypes.Features
	limits           gputypes.Limits
	alignments       hal.Alignments
	constantsSize    uint64
	descriptorCount  uint32
	samplerCacheSize int
	wgslModules      bool
}

func defaultConfig() config {
	return config{
		label:            "texcache",
		limits:           gputypes.DefaultLimits(),
		alignments:       hal.Alignments{BufferCopyOffset: 4, BufferCopyPitch: 256},
		constantsSize:    DefaultConstantsSize,
		descriptorCount:  DefaultDescriptorCount,
		samplerCacheSize: DefaultSamplerCacheSize,
	}
}

// Option configures a Backend.
type Option func(*config)

// WithLabel sets the prefix of debug labels of created objects.
func WithLabel(label string) Option {
	return func(c *config) { c.label = label }
}

// WithCapabilities overrides the capabilities derived from the device.
func WithCapabilities(caps gpucore.Capabilities) Option {
	return func(c *config) { c.caps = &caps }
}

// WithFeatures sets the features the device was opened with.
func WithFeatures(f gputypes.Features) Option {
	return func(c *config) { c.features = f }
}

// WithLimits sets the limits the device was opened with.
func WithLimits(l gputypes.Limits) Option {
	return func(c *config) { c.limits = l }
}

// WithAlignments sets the buffer copy alignments of the adapter.
func WithAlignments(a hal.Alignments) Option {
	return func(c *config) { c.alignments = a }
}

// WithConstantsSize sets the size of the per-submission constant pool.
func WithConstantsSize(size uint64) Option {
	return func(c *config) {
		if size > 0 {
			c.constantsSize = size
		}
	}
}

// WithDescriptorCount sets the number of one-use descriptors per
// submission.
func WithDescriptorCount(n uint32) Option {
	return func(c *config) {
		if n > 0 {
			c.descriptorCount = n
		}
	}
}

// WithSamplerCacheSize sets the soft limit of the sampler cache.
func WithSamplerCacheSize(n int) Option {
	return func(c *config) { c.samplerCacheSize = n }
}

// WithWGSLModules hands WGSL to the device instead of SPIR-V compiled by
// naga. Backends that translate WGSL themselves, and the noop device in
// tests, use it.
func WithWGSLModules() Option {
	return func(c *config) { c.wgslModules = true }
}

func (c *config) capabilities() gpucore.Capabilities {
	if c.caps != nil {
		return c.caps.WithDefaults()
	}
	return gpucore.Capabilities{
		BCTextures:                    c.features.Contains(gputypes.FeatureTextureCompressionBC),
		TextureDataPitchAlignment:     uint32(max(c.alignments.BufferCopyPitch, gpucore.DefaultTextureDataPitchAlignment)),
		TextureDataPlacementAlignment: uint32(max(c.alignments.BufferCopyOffset, gpucore.DefaultTextureDataPlacementAlignment)),
		MaxTextureDimension2D:         c.limits.MaxTextureDimension2D,
	}.WithDefaults()
}
