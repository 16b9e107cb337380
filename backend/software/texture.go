package software

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/texture"
)

// Texture is a host texture in CPU memory. Each level stores its images
// (array layers, or depth slices of a 3D texture) one after another as
// tightly packed rows of blocks.
type Texture struct {
	desc   gputypes.TextureDescriptor
	blockW uint32
	blockH uint32
	bpb    uint32
	levels [][]byte
}

func newTexture(desc *gputypes.TextureDescriptor) (*Texture, error) {
	bw, bh, bpb, ok := texture.HostFormatBlock(desc.Format)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, desc.Format)
	}
	if desc.Size.Width == 0 || desc.Size.Height == 0 || desc.Size.DepthOrArrayLayers == 0 {
		return nil, fmt.Errorf("%w: empty texture %v", ErrOutOfRange, desc.Size)
	}
	t := &Texture{desc: *desc, blockW: bw, blockH: bh, bpb: bpb}
	t.desc.MipLevelCount = max(desc.MipLevelCount, 1)
	t.levels = make([][]byte, t.desc.MipLevelCount)
	for level := range t.levels {
		t.levels[level] = make([]byte, t.imageSize(uint32(level))*t.Images(uint32(level)))
	}
	return t, nil
}

// Descriptor returns the creation parameters.
func (t *Texture) Descriptor() gputypes.TextureDescriptor { return t.desc }

// LevelSize returns the size in texels of a level.
func (t *Texture) LevelSize(level uint32) (w, h uint32) {
	return max(t.desc.Size.Width>>level, 1), max(t.desc.Size.Height>>level, 1)
}

// Images returns the number of 2D images of a level.
func (t *Texture) Images(level uint32) uint32 {
	if t.desc.Dimension == gputypes.TextureDimension3D {
		return max(t.desc.Size.DepthOrArrayLayers>>level, 1)
	}
	return t.desc.Size.DepthOrArrayLayers
}

// RowPitch returns the byte size of one row of blocks of a level.
func (t *Texture) RowPitch(level uint32) uint32 {
	w, _ := t.LevelSize(level)
	return (w + t.blockW - 1) / t.blockW * t.bpb
}

func (t *Texture) rows(level uint32) uint32 {
	_, h := t.LevelSize(level)
	return (h + t.blockH - 1) / t.blockH
}

func (t *Texture) imageSize(level uint32) uint32 {
	return t.RowPitch(level) * t.rows(level)
}

// Image returns the blocks of one array layer or depth slice of a level.
func (t *Texture) Image(level, image uint32) []byte {
	if level >= uint32(len(t.levels)) || image >= t.Images(level) {
		return nil
	}
	size := t.imageSize(level)
	return t.levels[level][image*size : (image+1)*size]
}

func (t *Texture) bytes() uint64 {
	var n uint64
	for _, l := range t.levels {
		n += uint64(len(l))
	}
	return n
}

func (t *Texture) copyRegion(src []byte, r *texture.CopyRegion) error {
	if r.Level >= uint32(len(t.levels)) {
		return fmt.Errorf("%w: level %d", ErrOutOfRange, r.Level)
	}
	blocksW := (r.Width + t.blockW - 1) / t.blockW
	blocksH := (r.Height + t.blockH - 1) / t.blockH
	rowBytes := uint64(blocksW * t.bpb)
	pitch := uint64(t.RowPitch(r.Level))
	base := r.SourceOffset(t.blockW, t.blockH, t.bpb)
	for z := uint32(0); z < max(r.Depth, 1); z++ {
		img := t.Image(r.Level, r.ArrayLayer+z)
		if img == nil {
			return fmt.Errorf("%w: image %d of level %d", ErrOutOfRange, r.ArrayLayer+z, r.Level)
		}
		for y := uint32(0); y < blocksH; y++ {
			from := base + uint64(z)*uint64(r.RowsPerImage)*uint64(r.BytesPerRow) + uint64(y)*uint64(r.BytesPerRow)
			if from+rowBytes > uint64(len(src)) {
				return ErrMissingScratchData
			}
			to := uint64(y) * pitch
			if to+rowBytes > uint64(len(img)) {
				return fmt.Errorf("%w: row %d of level %d", ErrOutOfRange, y, r.Level)
			}
			copy(img[to:to+rowBytes], src[from:from+rowBytes])
		}
	}
	return nil
}
