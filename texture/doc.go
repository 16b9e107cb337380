// Package texture is the backend-agnostic guest texture cache.
//
// The cache turns guest texture fetch constants into host textures. It
// derives a Key from each fetch constant, finds or creates the host
// texture for that key, loads guest memory into it through a compute
// untile-and-convert step, and hands out shader-visible views and sampler
// parameters to the shader binding layer.
//
// # Architecture
//
//	register file ──► Binding ──► Key ──► Texture ──► host texture
//	                                          │
//	             SharedMemory / resolve ──► LoadPlan ──► Backend dispatch + copy
//
// The cache itself never talks to a graphics API. It consumes three
// interfaces:
//
//   - Backend creates textures, views, samplers and records load work
//   - CommandProcessor owns barriers, scratch buffers and constant uploads
//   - SharedMemory makes guest memory ranges resident on the GPU
//
// backend/software and backend/wgpu implement Backend.
//
// # Submission model
//
// All cache methods run on the goroutine building the command stream.
// Recency is tracked by submission index: BeginSubmission advances it, and
// a texture is only destroyed once CommandProcessor.CompletedSubmission
// has passed its last use.
//
// # Failure model
//
// Public operations never return errors. Failures are logged and reported
// as nil, false or InvalidDescriptor; the draw that needed the texture
// binds a null view instead.
package texture
