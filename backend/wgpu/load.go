package wgpu

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/texture"
	"github.com/gogpu/wgpu/hal"
	"honnef.co/go/safeish"
)

// sourceWindow is the uniform at bindingSourceWindow: the byte range of
// the source buffer bound at bindingSource.
type sourceWindow struct {
	Base uint32
	Size uint32
	_    [2]uint32
}

const (
	loadConstantsSize = uint64(unsafe.Sizeof(texture.LoadConstants{}))
	sourceWindowSize  = uint64(unsafe.Sizeof(sourceWindow{}))
)

// sourceWindowFor picks the part of a size-byte source buffer bound for a
// dispatch reading from guestOffset. Storage bindings are limited in size
// and offset alignment, and guest memory is larger than the smallest
// binding limit.
func (b *Backend) sourceWindowFor(size uint64, guestOffset uint32) (sourceWindow, error) {
	if uint64(guestOffset) >= size {
		return sourceWindow{}, fmt.Errorf("%w: source offset %#x in %d bytes", ErrOutOfRange, guestOffset, size)
	}
	align := uint64(max(b.cfg.limits.MinStorageBufferOffsetAlignment, 4))
	base := uint64(guestOffset) / align * align
	n := size - base
	if limit := b.cfg.limits.MaxStorageBufferBindingSize; limit != 0 {
		n = min(n, limit)
	}
	n = min(n, math.MaxUint32) &^ 3
	return sourceWindow{Base: uint32(base), Size: uint32(n)}, nil
}

func (b *Backend) bufferEntryLocked(binding uint32, s gpucore.BufferSlice) (gputypes.BindGroupEntry, error) {
	buf, ok := b.buffers[s.Buffer]
	if !ok {
		return gputypes.BindGroupEntry{}, fmt.Errorf("%w: buffer %d", ErrUnknownResource, s.Buffer)
	}
	if s.Offset+s.Size > buf.size {
		return gputypes.BindGroupEntry{}, fmt.Errorf("%w: buffer %d [%d, +%d)", ErrOutOfRange, s.Buffer, s.Offset, s.Size)
	}
	return gputypes.BindGroupEntry{
		Binding:  binding,
		Resource: gputypes.BufferBinding{Buffer: buf.buf.NativeHandle(), Offset: s.Offset, Size: s.Size},
	}, nil
}

// DispatchLoadShader implements texture.Backend. The two one-use
// descriptors of the command become the source window and the scratch
// buffer bindings.
func (b *Backend) DispatchLoadShader(cmd *texture.LoadCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cp == nil {
		return ErrNotRecording
	}
	if len(cmd.Descriptors) < 2 {
		return fmt.Errorf("%w: load needs 2 descriptors, got %d", ErrInvalidDescriptor, len(cmd.Descriptors))
	}
	pipeline, err := b.pipelineLocked(cmd.Shader)
	if err != nil {
		return err
	}
	src, ok := b.buffers[cmd.Source]
	if !ok {
		return fmt.Errorf("%w: source buffer %d", ErrUnknownResource, cmd.Source)
	}
	dst, ok := b.buffers[cmd.Dest]
	if !ok {
		return fmt.Errorf("%w: scratch buffer %d", ErrUnknownResource, cmd.Dest)
	}

	consts := cmd.Constants
	if consts.Buffer == gpucore.InvalidID {
		mapped, slice, ok := b.cp.RequestConstantsLocked(loadConstantsSize, constantsAlignment)
		if !ok {
			return fmt.Errorf("%w: constant pool exhausted", ErrOutOfRange)
		}
		copy(mapped, safeish.SliceCast[[]byte]([]texture.LoadConstants{cmd.Params}))
		consts = slice
	}
	consts.Size = max(consts.Size, loadConstantsSize)

	win, err := b.sourceWindowFor(src.size, cmd.Params.GuestOffset)
	if err != nil {
		return err
	}
	winData, winSlice, ok := b.cp.RequestConstantsLocked(sourceWindowSize, constantsAlignment)
	if !ok {
		return fmt.Errorf("%w: constant pool exhausted", ErrOutOfRange)
	}
	copy(winData, safeish.SliceCast[[]byte]([]sourceWindow{win}))

	srcView := gpucore.BufferSlice{Buffer: cmd.Source, Offset: uint64(win.Base), Size: uint64(win.Size)}
	if err := b.writeBufferDescriptorLocked(cmd.Descriptors[0], srcView); err != nil {
		return err
	}
	dstView := gpucore.BufferSlice{Buffer: cmd.Dest, Size: dst.size}
	if err := b.writeBufferDescriptorLocked(cmd.Descriptors[1], dstView); err != nil {
		return err
	}

	entries := make([]gputypes.BindGroupEntry, 4)
	if entries[0], err = b.bufferEntryLocked(bindingConstants, consts); err != nil {
		return err
	}
	if entries[1], err = b.bindGroupEntryLocked(cmd.Descriptors[0], bindingSource); err != nil {
		return err
	}
	if entries[2], err = b.bindGroupEntryLocked(cmd.Descriptors[1], bindingDest); err != nil {
		return err
	}
	if entries[3], err = b.bufferEntryLocked(bindingSourceWindow, winSlice); err != nil {
		return err
	}

	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   fmt.Sprintf("%s_%s_bg", b.cfg.label, cmd.Shader),
		Layout:  b.pipes.bgLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group for %s: %w", cmd.Shader, err)
	}
	b.retireLocked(func() { b.device.DestroyBindGroup(bg) })

	encoder, err := b.cp.encoder()
	if err != nil {
		return err
	}
	g := cmd.Groups
	if g[0] == 0 || g[1] == 0 || g[2] == 0 {
		return nil
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{
		Label: fmt.Sprintf("%s_%s", b.cfg.label, cmd.Shader),
	})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(g[0], g[1], g[2])
	pass.End()
	b.stats.Dispatches++

	slogger().Debug("wgpu: load dispatched",
		"shader", cmd.Shader.String(),
		"groups", g,
		"window_base", win.Base,
		"window_size", win.Size)
	return nil
}

// copyRegions converts cache copy regions to HAL copies into a texture.
func copyRegions(t *hostTexture, regions []texture.CopyRegion) ([]hal.BufferTextureCopy, error) {
	bw, bh, bpb, ok := texture.HostFormatBlock(t.desc.Format)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, t.desc.Format)
	}
	is3D := t.desc.Dimension == gputypes.TextureDimension3D
	out := make([]hal.BufferTextureCopy, 0, len(regions))
	for i := range regions {
		r := &regions[i]
		if r.Level >= max(t.desc.MipLevelCount, 1) {
			return nil, fmt.Errorf("%w: level %d of %d", ErrOutOfRange, r.Level, t.desc.MipLevelCount)
		}
		c := hal.BufferTextureCopy{
			BufferLayout: hal.ImageDataLayout{
				Offset:       r.SourceOffset(bw, bh, bpb),
				BytesPerRow:  r.BytesPerRow,
				RowsPerImage: r.RowsPerImage,
			},
			TextureBase: hal.ImageCopyTexture{
				Texture:  t.tex,
				MipLevel: r.Level,
				Aspect:   gputypes.TextureAspectAll,
			},
			// Compressed copies cover whole blocks.
			Size: hal.Extent3D{
				Width:              (r.Width + bw - 1) / bw * bw,
				Height:             (r.Height + bh - 1) / bh * bh,
				DepthOrArrayLayers: max(r.Depth, 1),
			},
		}
		if !is3D {
			c.TextureBase.Origin.Z = r.ArrayLayer
		}
		out = append(out, c)
	}
	return out, nil
}

// CopyBufferToTexture implements texture.Backend.
func (b *Backend) CopyBufferToTexture(src gpucore.BufferID, dst gpucore.TextureID, regions []texture.CopyRegion) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cp == nil {
		return ErrNotRecording
	}
	buf, ok := b.buffers[src]
	if !ok {
		return fmt.Errorf("%w: buffer %d", ErrUnknownResource, src)
	}
	t, ok := b.textures[dst]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownResource, dst)
	}
	copies, err := copyRegions(t, regions)
	if err != nil {
		return fmt.Errorf("wgpu: copy to texture %d: %w", dst, err)
	}
	if len(copies) == 0 {
		return nil
	}
	encoder, err := b.cp.encoder()
	if err != nil {
		return err
	}
	encoder.CopyBufferToTexture(buf.buf, t.tex, copies)
	b.stats.Copies += len(copies)
	return nil
}
