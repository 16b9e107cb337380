package texture

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/xenos"
)

// Load kernel workgroup size in invocations.
const (
	LoadGroupSizeX = 32
	LoadGroupSizeY = 8
)

// Load constant flags.
const (
	LoadFlagTiled       = 1 << 0
	LoadFlag3D          = 1 << 1
	LoadFlagEndianShift = 2
)

// Scale is a draw-resolution scale factor.
type Scale struct {
	X, Y uint32
}

// Area returns X*Y.
func (s Scale) Area() uint32 { return s.X * s.Y }

func (s Scale) normalized() Scale {
	return Scale{X: max(s.X, 1), Y: max(s.Y, 1)}
}

// LoadConstants is the constant block of one load dispatch. The layout is
// shared with the kernels: sixteen 32-bit words.
type LoadConstants struct {
	Flags uint32
	// GuestOffset is the byte offset of the source level in the source
	// buffer.
	GuestOffset uint32
	// GuestPitch is the row pitch: in blocks when tiled, in bytes when
	// linear.
	GuestPitch uint32
	// GuestHeight is the storage height in blocks.
	GuestHeight uint32
	// GuestSliceStride is the distance in bytes between 2D slices.
	GuestSliceStride uint32
	// SizeBlocks is the extent of the dispatch in guest blocks.
	SizeBlocks [3]uint32
	// HostOffset is the byte offset of the output in the scratch buffer.
	HostOffset    uint32
	HostPitch     uint32
	HostSliceSize uint32
	// ScaleX and ScaleY replicate guest blocks for resolution-scaled
	// sources.
	ScaleX uint32
	ScaleY uint32
	_      [3]uint32
}

// Endian returns the endian swap mode encoded in Flags.
func (c *LoadConstants) Endian() xenos.Endian {
	return xenos.Endian((c.Flags >> LoadFlagEndianShift) & 3)
}

// LoadDispatch is one recorded load kernel invocation.
type LoadDispatch struct {
	// Level is the level loaded, or the first tail level for Tail.
	Level      uint32
	Tail       bool
	Constants  LoadConstants
	Groups     [3]uint32
	ScratchEnd uint64
}

// Box is a rectangle of host texels inside a scratch image.
type Box struct {
	X, Y, Width, Height uint32
}

// CopyRegion copies one subresource from the scratch buffer.
type CopyRegion struct {
	BufferOffset uint64
	BytesPerRow  uint32
	RowsPerImage uint32 // in host blocks

	Level      uint32
	ArrayLayer uint32
	Width      uint32 // host texels
	Height     uint32
	Depth      uint32

	// SourceBox selects a sub-rectangle of the scratch image for levels
	// that came from a packed tail.
	SourceBox *Box
}

// SourceOffset returns the scratch offset of the first copied block,
// given the host block geometry.
func (r *CopyRegion) SourceOffset(blockWidth, blockHeight, bytesPerBlock uint32) uint64 {
	off := r.BufferOffset
	if r.SourceBox != nil {
		off += uint64(r.SourceBox.Y/blockHeight)*uint64(r.BytesPerRow) +
			uint64(r.SourceBox.X/blockWidth)*uint64(bytesPerBlock)
	}
	return off
}

// LoadPlan is everything needed to load some levels of a texture.
type LoadPlan struct {
	Key        Key
	Shader     LoadShaderIndex
	Info       LoadShaderInfo
	HostFormat gputypes.TextureFormat
	Layout     GuestLayout
	Scale      Scale

	Dispatches  []LoadDispatch
	Copies      []CopyRegion
	ScratchSize uint64

	// LoadBase and LoadMips are the requested parts that exist.
	LoadBase bool
	LoadMips bool
}

// BaseRange returns the guest byte range of the base level.
func (p *LoadPlan) BaseRange() (start, length uint32) {
	return p.Key.BasePage << 12, p.Layout.BaseSize
}

// MipsRange returns the guest byte range of the mip levels.
func (p *LoadPlan) MipsRange() (start, length uint32) {
	return p.Key.MipPage << 12, p.Layout.MipsSize
}

// HostBlockSize returns the block size in texels of a host format.
func HostBlockSize(f gputypes.TextureFormat) (w, h uint32) {
	if f >= gputypes.TextureFormatBC1RGBAUnorm && f <= gputypes.TextureFormatBC7RGBAUnormSrgb {
		return 4, 4
	}
	return 1, 1
}

// HostFormatBlock returns the block size in texels and bytes of the host
// formats the cache creates.
func HostFormatBlock(f gputypes.TextureFormat) (w, h, bytes uint32, ok bool) {
	switch f {
	case gputypes.TextureFormatR8Unorm, gputypes.TextureFormatR8Snorm:
		return 1, 1, 1, true
	case gputypes.TextureFormatRG8Unorm, gputypes.TextureFormatRG8Snorm,
		gputypes.TextureFormatR16Unorm, gputypes.TextureFormatR16Snorm, gputypes.TextureFormatR16Float:
		return 1, 1, 2, true
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8Snorm, gputypes.TextureFormatRGB10A2Unorm,
		gputypes.TextureFormatRG16Unorm, gputypes.TextureFormatRG16Snorm, gputypes.TextureFormatRG16Float,
		gputypes.TextureFormatR32Float:
		return 1, 1, 4, true
	case gputypes.TextureFormatRGBA16Unorm, gputypes.TextureFormatRGBA16Snorm, gputypes.TextureFormatRGBA16Float,
		gputypes.TextureFormatRG32Float:
		return 1, 1, 8, true
	case gputypes.TextureFormatRGBA32Float:
		return 1, 1, 16, true
	case gputypes.TextureFormatBC1RGBAUnorm, gputypes.TextureFormatBC4RUnorm, gputypes.TextureFormatBC4RSnorm:
		return 4, 4, 8, true
	case gputypes.TextureFormatBC2RGBAUnorm, gputypes.TextureFormatBC3RGBAUnorm,
		gputypes.TextureFormatBC5RGUnorm, gputypes.TextureFormatBC5RGSnorm:
		return 4, 4, 16, true
	}
	return 0, 0, 0, false
}

// HostLevelSize returns the size in texels of a host mip level.
func HostLevelSize(key Key, level uint32, scale Scale) (w, h, d uint32) {
	scale = scale.normalized()
	w = max((key.Width()*scale.X)>>level, 1)
	h = max((key.Height()*scale.Y)>>level, 1)
	d = 1
	if key.Dimension == xenos.Dimension3D {
		d = max(key.DepthOrArraySize()>>level, 1)
	}
	return w, h, d
}

// PlanLoad computes the dispatches and copies that load the base level
// and/or the mips of key. scale applies only to ScaledResolve keys.
func PlanLoad(key Key, loadBase, loadMips bool, caps gpucore.Capabilities, scale Scale) (*LoadPlan, error) {
	if !key.IsValid() {
		return nil, ErrInvalidKey
	}
	caps = caps.WithDefaults()
	format, shader := hostStorage(key, caps)
	if format == undef {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, key.Format)
	}
	if shader == LoadShaderUnknown {
		return nil, fmt.Errorf("%w: %s", ErrNoLoadShader, key.Format)
	}
	if !key.ScaledResolve {
		scale = Scale{1, 1}
	}
	scale = scale.normalized()

	p := &LoadPlan{
		Key:        key,
		Shader:     shader,
		Info:       shader.Info(),
		HostFormat: format,
		Layout:     GuestLayoutFor(key),
		Scale:      scale,
		LoadBase:   loadBase && key.BasePage != 0,
	}
	l := &p.Layout
	p.LoadMips = loadMips && key.MipMaxLevel > 0 && (key.MipPage != 0 || l.TailInBase)

	first, last := uint32(1), key.MipMaxLevel
	if p.LoadBase {
		first = 0
	}
	if !p.LoadMips {
		last = 0
	}
	if !p.LoadBase && !p.LoadMips {
		return p, nil
	}

	tailDone := false
	for level := first; level <= last; level++ {
		lv := &l.Levels[level]
		if lv.Packed {
			if !tailDone {
				p.addTail(last, caps)
				tailDone = true
			}
			p.addTailCopies(level)
			continue
		}
		p.addLevel(level, caps)
	}
	return p, nil
}

// slices returns the number of 2D images per level in the scratch buffer.
func (p *LoadPlan) slices(level uint32) uint32 {
	return p.Layout.Levels[level].Depth * p.Layout.ArraySize
}

// hostImage returns the scratch image geometry for an extent in guest
// blocks. Images are whole rows and start at placement-aligned offsets.
func (p *LoadPlan) hostImage(wBlocks, hBlocks uint32, caps gpucore.Capabilities) (pitch, rowsPerImage uint32) {
	info := p.Info
	hostW := (wBlocks * p.Scale.X) << info.HostBlockWidthLog2
	rows := (hBlocks * p.Scale.Y) << info.HostBlockHeightLog2
	pitch = xenos.AlignUp(hostW<<info.HostBytesPerBlockLog2, caps.TextureDataPitchAlignment)
	rowsPerImage = rows
	for (pitch*rowsPerImage)%caps.TextureDataPlacementAlignment != 0 {
		rowsPerImage++
	}
	return pitch, rowsPerImage
}

func (p *LoadPlan) dispatch(level uint32, tail bool, wBlocks, hBlocks uint32, caps gpucore.Capabilities) *LoadDispatch {
	l := &p.Layout
	lv := &l.Levels[level]
	pitch, rows := p.hostImage(wBlocks, hBlocks, caps)
	sliceSize := pitch * rows
	slices := p.slices(level)

	c := LoadConstants{
		Flags:            uint32(p.Key.Endianness) << LoadFlagEndianShift,
		GuestHeight:      lv.StorageHeight,
		GuestSliceStride: lv.SliceStride,
		SizeBlocks:       [3]uint32{wBlocks, hBlocks, slices},
		HostOffset:       uint32(p.ScratchSize),
		HostPitch:        pitch,
		HostSliceSize:    sliceSize,
		ScaleX:           p.Scale.X,
		ScaleY:           p.Scale.Y,
	}
	if l.Tiled {
		c.Flags |= LoadFlagTiled
		c.GuestPitch = lv.PitchBlocks
	} else {
		c.GuestPitch = lv.RowPitch
	}
	if l.Dimension == xenos.Dimension3D {
		c.Flags |= LoadFlag3D
	}

	threadsX := xenos.DivRoundUp(wBlocks*p.Scale.X, 1<<p.Info.GuestBlocksPerThreadLog2)
	d := LoadDispatch{
		Level:     level,
		Tail:      tail,
		Constants: c,
		Groups: [3]uint32{
			xenos.DivRoundUp(threadsX, LoadGroupSizeX),
			xenos.DivRoundUp(hBlocks*p.Scale.Y, LoadGroupSizeY),
			slices,
		},
	}
	p.ScratchSize += uint64(sliceSize) * uint64(slices)
	d.ScratchEnd = p.ScratchSize
	p.Dispatches = append(p.Dispatches, d)
	return &p.Dispatches[len(p.Dispatches)-1]
}

func (p *LoadPlan) addLevel(level uint32, caps gpucore.Capabilities) {
	lv := &p.Layout.Levels[level]
	d := p.dispatch(level, false, lv.WidthBlocks, lv.HeightBlocks, caps)
	p.addCopies(d, level, nil)
}

func (p *LoadPlan) addTail(last uint32, caps gpucore.Capabilities) {
	tailLevel := p.Layout.PackedLevel
	w, h := p.Layout.TailExtent(max(last, tailLevel))
	p.dispatch(tailLevel, true, w, h, caps)
}

func (p *LoadPlan) addTailCopies(level uint32) {
	d := &p.Dispatches[len(p.Dispatches)-1]
	lv := &p.Layout.Levels[level]
	blockW, blockH := HostBlockSize(p.HostFormat)
	texelsX := blockW << p.Info.HostBlockWidthLog2
	texelsY := blockH << p.Info.HostBlockHeightLog2
	box := &Box{
		X: lv.OffsetX * texelsX * p.Scale.X,
		Y: lv.OffsetY * texelsY * p.Scale.Y,
	}
	p.addCopies(d, level, box)
}

func (p *LoadPlan) addCopies(d *LoadDispatch, level uint32, box *Box) {
	w, h, depth := HostLevelSize(p.Key, level, p.Scale)
	c := &d.Constants
	rows := c.HostSliceSize / c.HostPitch
	if box != nil {
		box.Width, box.Height = w, h
	}
	if p.Layout.Dimension == xenos.Dimension3D {
		p.Copies = append(p.Copies, CopyRegion{
			BufferOffset: uint64(c.HostOffset),
			BytesPerRow:  c.HostPitch,
			RowsPerImage: rows,
			Level:        level,
			Width:        w,
			Height:       h,
			Depth:        depth,
			SourceBox:    box,
		})
		return
	}
	for layer := uint32(0); layer < p.Layout.ArraySize; layer++ {
		p.Copies = append(p.Copies, CopyRegion{
			BufferOffset: uint64(c.HostOffset) + uint64(layer)*uint64(c.HostSliceSize),
			BytesPerRow:  c.HostPitch,
			RowsPerImage: rows,
			Level:        level,
			ArrayLayer:   layer,
			Width:        w,
			Height:       h,
			Depth:        1,
			SourceBox:    box,
		})
	}
}
