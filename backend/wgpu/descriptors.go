package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/texture"
)

// DescriptorKind identifies what a descriptor slot holds.
type DescriptorKind uint8

// Descriptor kinds.
const (
	DescriptorEmpty DescriptorKind = iota
	DescriptorNull
	DescriptorTexture
	DescriptorSampler
	DescriptorBuffer
)

func (k DescriptorKind) String() string {
	switch k {
	case DescriptorEmpty:
		return "empty"
	case DescriptorNull:
		return "null"
	case DescriptorTexture:
		return "texture"
	case DescriptorSampler:
		return "sampler"
	case DescriptorBuffer:
		return "buffer"
	default:
		return fmt.Sprintf("DescriptorKind(%d)", k)
	}
}

// Descriptor is one slot of a descriptor page. WebGPU has no descriptor
// heaps: slots record what to bind and BindGroupEntry turns them into
// bind group entries when a bind group is built.
type Descriptor struct {
	Kind      DescriptorKind
	Texture   gpucore.TextureID
	View      texture.ViewDesc
	Dimension gputypes.TextureViewDimension
	Sampler   texture.SamplerParameters
	Buffer    gpucore.BufferSlice
}

// CreateDescriptorPage implements texture.Backend.
func (b *Backend) CreateDescriptorPage(size uint32) (gpucore.DescriptorPageID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return gpucore.InvalidID, ErrClosed
	}
	id := gpucore.DescriptorPageID(b.ids.Next())
	b.pages[id] = make([]Descriptor, size)
	return id, nil
}

// DestroyDescriptorPage implements texture.Backend.
func (b *Backend) DestroyDescriptorPage(page gpucore.DescriptorPageID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pages, page)
}

func (b *Backend) slot(h gpucore.DescriptorHandle) *Descriptor {
	page, ok := b.pages[h.Page]
	if !ok || h.Index >= uint32(len(page)) {
		return nil
	}
	return &page[h.Index]
}

// Descriptor returns the content of a descriptor slot.
func (b *Backend) Descriptor(h gpucore.DescriptorHandle) (Descriptor, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.slot(h)
	if d == nil {
		return Descriptor{}, false
	}
	return *d, true
}

// WriteTextureSRV implements texture.Backend. The host view is created
// here so invalid views fail at write time.
func (b *Backend) WriteTextureSRV(tex gpucore.TextureID, view *texture.ViewDesc, dst gpucore.DescriptorHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.textures[tex]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownResource, tex)
	}
	d := b.slot(dst)
	if d == nil {
		return fmt.Errorf("%w: %s", ErrInvalidDescriptor, dst)
	}
	if _, err := b.viewLocked(t, &view.TextureViewDescriptor); err != nil {
		return err
	}
	*d = Descriptor{Kind: DescriptorTexture, Texture: tex, View: *view, Dimension: view.Dimension}
	return nil
}

// WriteNullSRV implements texture.Backend.
func (b *Backend) WriteNullSRV(dim gputypes.TextureViewDimension, dst gpucore.DescriptorHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d := b.slot(dst); d != nil {
		*d = Descriptor{Kind: DescriptorNull, Dimension: dim}
	}
}

// CopyDescriptor implements texture.Backend.
func (b *Backend) CopyDescriptor(src, dst gpucore.DescriptorHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, d := b.slot(src), b.slot(dst)
	if s == nil || d == nil {
		slogger().Error("wgpu: descriptor copy out of range", "src", src.String(), "dst", dst.String())
		return
	}
	*d = *s
}

// WriteSampler implements texture.Backend.
func (b *Backend) WriteSampler(params texture.SamplerParameters, dst gpucore.DescriptorHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.slot(dst)
	if d == nil {
		return fmt.Errorf("%w: %s", ErrInvalidDescriptor, dst)
	}
	if _, err := b.samplerLocked(params); err != nil {
		return err
	}
	*d = Descriptor{Kind: DescriptorSampler, Sampler: params}
	return nil
}

// writeBufferDescriptorLocked points a slot at a buffer range.
func (b *Backend) writeBufferDescriptorLocked(dst gpucore.DescriptorHandle, s gpucore.BufferSlice) error {
	d := b.slot(dst)
	if d == nil {
		return fmt.Errorf("%w: %s", ErrInvalidDescriptor, dst)
	}
	*d = Descriptor{Kind: DescriptorBuffer, Buffer: s}
	return nil
}

// BindGroupEntry resolves a descriptor slot into a bind group entry for
// binding. Host objects a slot refers to are created on demand.
func (b *Backend) BindGroupEntry(h gpucore.DescriptorHandle, binding uint32) (gputypes.BindGroupEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bindGroupEntryLocked(h, binding)
}

func (b *Backend) bindGroupEntryLocked(h gpucore.DescriptorHandle, binding uint32) (gputypes.BindGroupEntry, error) {
	d := b.slot(h)
	if d == nil {
		return gputypes.BindGroupEntry{}, fmt.Errorf("%w: %s", ErrInvalidDescriptor, h)
	}
	entry := gputypes.BindGroupEntry{Binding: binding}
	switch d.Kind {
	case DescriptorNull:
		view, err := b.nullViewLocked(d.Dimension)
		if err != nil {
			return entry, err
		}
		entry.Resource = gputypes.TextureViewBinding{TextureView: view.NativeHandle()}
	case DescriptorTexture:
		t, ok := b.textures[d.Texture]
		if !ok {
			return entry, fmt.Errorf("%w: texture %d in %s", ErrUnknownResource, d.Texture, h)
		}
		view, err := b.viewLocked(t, &d.View.TextureViewDescriptor)
		if err != nil {
			return entry, err
		}
		entry.Resource = gputypes.TextureViewBinding{TextureView: view.NativeHandle()}
	case DescriptorSampler:
		s, err := b.samplerLocked(d.Sampler)
		if err != nil {
			return entry, err
		}
		entry.Resource = gputypes.SamplerBinding{Sampler: s.NativeHandle()}
	case DescriptorBuffer:
		buf, ok := b.buffers[d.Buffer.Buffer]
		if !ok {
			return entry, fmt.Errorf("%w: buffer %d in %s", ErrUnknownResource, d.Buffer.Buffer, h)
		}
		entry.Resource = gputypes.BufferBinding{
			Buffer: buf.buf.NativeHandle(),
			Offset: d.Buffer.Offset,
			Size:   d.Buffer.Size,
		}
	default:
		return entry, fmt.Errorf("%w: %s is %s", ErrInvalidDescriptor, h, d.Kind)
	}
	return entry, nil
}
