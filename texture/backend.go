package texture

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
)

// ViewDesc describes a shader-resource view of a cache texture.
type ViewDesc struct {
	gputypes.TextureViewDescriptor

	// Swizzle is the 12-bit host swizzle applied when sampling.
	Swizzle uint32
}

// LoadCommand is one load kernel dispatch handed to the backend.
type LoadCommand struct {
	Shader LoadShaderIndex

	// Params is the constant block; Constants is where it was uploaded.
	Params    LoadConstants
	Constants gpucore.BufferSlice

	// Source is guest memory or the scaled-resolve buffer, Dest the
	// scratch buffer.
	Source gpucore.BufferID
	Dest   gpucore.BufferID

	// Descriptors are the one-use views of Source and Dest.
	Descriptors []gpucore.DescriptorHandle

	Groups [3]uint32
}

// Backend is the host graphics API used by the cache.
//
// Resource lifecycle:
//   - Textures and descriptor pages are created and destroyed by the cache
//   - Load work and copies are recorded, not executed, by the calls below
//   - Destroying a texture still referenced by in-flight work is undefined
type Backend interface {
	// === Capabilities ===

	// Capabilities reports the optional host features.
	Capabilities() gpucore.Capabilities

	// LoadShaderAvailable reports whether the backend has the kernel.
	LoadShaderAvailable(shader LoadShaderIndex) bool

	// === Textures ===

	// CreateTexture creates a host texture. The cache always passes
	// CopyDst and TextureBinding usage.
	CreateTexture(desc *gputypes.TextureDescriptor) (gpucore.TextureID, error)

	// DestroyTexture releases a host texture.
	DestroyTexture(id gpucore.TextureID)

	// === Descriptors ===

	// CreateDescriptorPage creates a page of size view descriptors.
	CreateDescriptorPage(size uint32) (gpucore.DescriptorPageID, error)

	// DestroyDescriptorPage releases a descriptor page.
	DestroyDescriptorPage(page gpucore.DescriptorPageID)

	// WriteTextureSRV writes a view of tex into dst.
	WriteTextureSRV(tex gpucore.TextureID, view *ViewDesc, dst gpucore.DescriptorHandle) error

	// WriteNullSRV writes a view that samples zero into dst.
	WriteNullSRV(dim gputypes.TextureViewDimension, dst gpucore.DescriptorHandle)

	// CopyDescriptor copies a cached descriptor into a shader-visible slot.
	CopyDescriptor(src, dst gpucore.DescriptorHandle)

	// WriteSampler writes a sampler for params into dst.
	WriteSampler(params SamplerParameters, dst gpucore.DescriptorHandle) error

	// === Loading ===

	// DispatchLoadShader records one load kernel dispatch.
	DispatchLoadShader(cmd *LoadCommand) error

	// CopyBufferToTexture records copies from a scratch buffer.
	CopyBufferToTexture(src gpucore.BufferID, dst gpucore.TextureID, regions []CopyRegion) error
}

// CommandProcessor is the command stream the cache records into.
type CommandProcessor interface {
	gpucore.Barriers

	// CurrentSubmission is the index of the submission being recorded.
	CurrentSubmission() uint64

	// CompletedSubmission is the last submission the GPU has finished.
	CompletedSubmission() uint64

	// RequestScratchBuffer returns a buffer of at least size bytes in
	// state, valid until ReleaseScratchBuffer.
	RequestScratchBuffer(size uint64, state gputypes.BufferUsage) (gpucore.BufferID, bool)

	// ReleaseScratchBuffer returns the scratch buffer in its final state.
	ReleaseScratchBuffer(buf gpucore.BufferID, state gputypes.BufferUsage)

	// RequestOneUseSingleViewDescriptors returns count descriptors valid
	// for the current submission.
	RequestOneUseSingleViewDescriptors(count int) ([]gpucore.DescriptorHandle, bool)

	// RequestConstants returns mapped upload memory for the current frame.
	RequestConstants(size, alignment uint64) ([]byte, gpucore.BufferSlice, bool)
}

// SharedMemory is the GPU copy of guest memory.
type SharedMemory interface {
	// RequestRange makes [start, start+length) resident and current.
	RequestRange(start, length uint32) bool

	// Buffer returns the buffer holding guest memory at offset 0.
	Buffer() gpucore.BufferID
}

// States the cache moves textures and scratch buffers through.
const (
	StateCopyDest       = gputypes.TextureUsageCopyDst
	StateShaderResource = gputypes.TextureUsageTextureBinding

	scratchStateLoad = gputypes.BufferUsageStorage
	scratchStateCopy = gputypes.BufferUsageCopySrc
)
