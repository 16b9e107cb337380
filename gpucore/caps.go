package gpucore

// Host texture data alignment rules that every backend follows.
const (
	// DefaultTextureDataPitchAlignment is the row pitch alignment of
	// buffer-to-texture copies.
	DefaultTextureDataPitchAlignment = 256

	// DefaultTextureDataPlacementAlignment is the offset alignment of each
	// subresource inside a copy source buffer.
	DefaultTextureDataPlacementAlignment = 512
)

// Capabilities describes the optional features of a host backend that
// change how guest textures are stored.
type Capabilities struct {
	// BCTextures reports native sampling of BC1-BC5 compressed textures.
	BCTextures bool

	// UnalignedBCTextures reports support for compressed textures whose
	// size is not a multiple of the 4x4 block.
	UnalignedBCTextures bool

	// SparseBuffers reports reserved buffers whose pages can be backed by
	// heaps on demand. Required for draw-resolution scaling.
	SparseBuffers bool

	// Bindless reports a global shader-visible descriptor array.
	Bindless bool

	// Unorm16 and Snorm16 report filterable 16-bit normalized formats.
	Unorm16 bool
	Snorm16 bool

	// TextureDataPitchAlignment is the row pitch alignment, in bytes, of
	// buffer-to-texture copies.
	TextureDataPitchAlignment uint32

	// TextureDataPlacementAlignment is the offset alignment, in bytes, of
	// each subresource in a copy source buffer.
	TextureDataPlacementAlignment uint32

	// MaxTextureDimension2D limits host texture width and height.
	MaxTextureDimension2D uint32
}

// WithDefaults returns c with zero alignments and limits replaced by the
// defaults.
func (c Capabilities) WithDefaults() Capabilities {
	if c.TextureDataPitchAlignment == 0 {
		c.TextureDataPitchAlignment = DefaultTextureDataPitchAlignment
	}
	if c.TextureDataPlacementAlignment == 0 {
		c.TextureDataPlacementAlignment = DefaultTextureDataPlacementAlignment
	}
	if c.MaxTextureDimension2D == 0 {
		c.MaxTextureDimension2D = 8192
	}
	return c
}
