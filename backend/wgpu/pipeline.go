package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/internal/cache"
	"github.com/gogpu/texcache/texture"
	"github.com/gogpu/wgpu/hal"
)

// Load kernel bindings, matching @group(0) of load_common.wgsl.
const (
	bindingConstants    = 0
	bindingSource       = 1
	bindingDest         = 2
	bindingSourceWindow = 3
)

// loadBindGroupLayoutEntries returns the layout shared by every load
// kernel.
func loadBindGroupLayoutEntries() []gputypes.BindGroupLayoutEntry {
	uniform := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}
	}
	return []gputypes.BindGroupLayoutEntry{
		uniform(bindingConstants),
		{
			Binding:    bindingSource,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		},
		{
			Binding:    bindingDest,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		},
		uniform(bindingSourceWindow),
	}
}

// loadPipeline is a compiled load kernel.
type loadPipeline struct {
	module   hal.ShaderModule
	pipeline hal.ComputePipeline
}

// pipelines holds the load kernel pipelines. The layouts are created with
// the first pipeline; each kernel is compiled on first dispatch.
type pipelines struct {
	bgLayout       hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	kernels        *cache.Cache[texture.LoadShaderIndex, loadPipeline]
}

// newPipelines never evicts: a kernel set is small and fixed.
func newPipelines(device hal.Device) pipelines {
	return pipelines{
		kernels: cache.NewWithEvict(0, func(_ texture.LoadShaderIndex, lp loadPipeline) {
			device.DestroyComputePipeline(lp.pipeline)
			device.DestroyShaderModule(lp.module)
		}),
	}
}

func (p *pipelines) count() int {
	return p.kernels.Len()
}

func (p *pipelines) initLayouts(device hal.Device, label string) error {
	if p.pipelineLayout != nil {
		return nil
	}
	bgLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_load_bgl",
		Entries: loadBindGroupLayoutEntries(),
	})
	if err != nil {
		return fmt.Errorf("wgpu: create load bind group layout: %w", err)
	}
	pipelineLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_load_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		device.DestroyBindGroupLayout(bgLayout)
		return fmt.Errorf("wgpu: create load pipeline layout: %w", err)
	}
	p.bgLayout, p.pipelineLayout = bgLayout, pipelineLayout
	return nil
}

// destroy releases every pipeline, module and layout.
func (p *pipelines) destroy(device hal.Device) {
	p.kernels.Clear()
	if p.pipelineLayout != nil {
		device.DestroyPipelineLayout(p.pipelineLayout)
		p.pipelineLayout = nil
	}
	if p.bgLayout != nil {
		device.DestroyBindGroupLayout(p.bgLayout)
		p.bgLayout = nil
	}
}

// shaderSourceFor returns the module source of a kernel.
func (b *Backend) shaderSourceFor(shader texture.LoadShaderIndex) (hal.ShaderSource, error) {
	wgsl, err := LoadShaderWGSL(shader)
	if err != nil {
		return hal.ShaderSource{}, err
	}
	if b.cfg.wgslModules {
		return hal.ShaderSource{WGSL: wgsl}, nil
	}
	spirv, err := CompileShaderToSPIRV(wgsl)
	if err != nil {
		return hal.ShaderSource{}, fmt.Errorf("wgpu: %s: %w", shader, err)
	}
	return hal.ShaderSource{SPIRV: spirv}, nil
}

// pipelineLocked returns the compute pipeline of a kernel, building it on
// first use.
func (b *Backend) pipelineLocked(shader texture.LoadShaderIndex) (hal.ComputePipeline, error) {
	if !hasKernel(shader) {
		return nil, fmt.Errorf("%w: %s", ErrNoKernel, shader)
	}
	p := &b.pipes
	if err := p.initLayouts(b.device, b.cfg.label); err != nil {
		return nil, err
	}
	lp, err := p.kernels.GetOrCreate(shader, func() (loadPipeline, error) {
		return b.createPipeline(shader, p.pipelineLayout)
	})
	if err != nil {
		return nil, err
	}
	return lp.pipeline, nil
}

func (b *Backend) createPipeline(shader texture.LoadShaderIndex, layout hal.PipelineLayout) (loadPipeline, error) {
	src, err := b.shaderSourceFor(shader)
	if err != nil {
		return loadPipeline{}, err
	}
	name := fmt.Sprintf("%s_%s", b.cfg.label, shader)
	module, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  name,
		Source: src,
	})
	if err != nil {
		return loadPipeline{}, fmt.Errorf("wgpu: create shader module for %s: %w", shader, err)
	}
	pipeline, err := b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  name,
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		b.device.DestroyShaderModule(module)
		return loadPipeline{}, fmt.Errorf("wgpu: create compute pipeline for %s: %w", shader, err)
	}

	slogger().Debug("wgpu: load pipeline created",
		"shader", shader.String(),
		"spirv", len(src.SPIRV) > 0,
		"wgsl_bytes", len(src.WGSL))
	return loadPipeline{module: module, pipeline: pipeline}, nil
}

// Precompile builds the pipelines of every available kernel. Without it
// pipelines are built on first dispatch.
func (b *Backend) Precompile() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := texture.LoadShaderIndex(0); s < texture.LoadShaderCount; s++ {
		if !hasKernel(s) {
			continue
		}
		if _, err := b.pipelineLocked(s); err != nil {
			return err
		}
	}
	slogger().Info("wgpu: load pipelines initialized", "pipelines", b.pipes.count())
	return nil
}
