// Package wgpu is a texture cache backend on the gogpu/wgpu HAL.
//
// Cache textures are HAL textures, descriptor slots record views and
// sampler state that become bind group entries when a bind group is
// built, and load shaders are WGSL compute kernels embedded in the
// package. Kernels are specialized per load shader by prepending
// constants, compiled to SPIR-V with naga and built into pipelines on
// first dispatch.
//
// Guest memory is one storage buffer. Storage bindings are limited in
// size, so each dispatch binds a window of the source buffer starting at
// the level it reads.
//
// WebGPU has neither reserved buffers nor border colors: draw-resolution
// scaling is unavailable and border clamps fall back to edge clamps.
//
// A backend either shares the device of a host application or opens its
// own:
//
//	b, err := wgpu.NewFromProvider(provider)
//	// or
//	b, err := wgpu.Open()
//	defer b.Close()
//
//	cp, err := wgpu.NewCommandProcessor(b)
//	mem, err := wgpu.NewGuestMemory(b, 512<<20)
//	cache, err := texture.New(texture.DefaultConfig(), b, cp, mem, regs)
//	...
//	cp.EndSubmission()
package wgpu
