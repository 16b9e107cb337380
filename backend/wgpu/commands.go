package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/texture"
	"github.com/gogpu/texcache/xenos"
	"github.com/gogpu/wgpu/hal"
)

var _ texture.CommandProcessor = (*CommandProcessor)(nil)

// submission is a command buffer handed to the queue.
type submission struct {
	index      uint64
	queueIndex uint64
	cmdBuf     hal.CommandBuffer
	constants  gpucore.BufferID
}

// CommandProcessor records cache work into one HAL command encoder per
// submission. It is not safe for concurrent use.
//
// Submissions are numbered from 1. Objects the cache releases while a
// submission may still use them are destroyed once the queue reports it
// complete.
type CommandProcessor struct {
	*gpucore.BarrierQueue
	b *Backend

	current   uint64
	completed uint64
	enc       hal.CommandEncoder
	inFlight  []submission

	scratch      gpucore.BufferID
	scratchSize  uint64
	scratchBusy  bool
	scratchState gputypes.BufferUsage

	// Constants are staged in shadow and uploaded on EndSubmission. Each
	// submission takes its own constant buffer, returned once it
	// completes.
	constants     gpucore.BufferID
	constantsFree []gpucore.BufferID
	shadow        []byte
	constantsUsed uint64

	page     gpucore.DescriptorPageID
	pageSize uint32
	pageUsed uint32
}

// NewCommandProcessor creates the command processor of b. A backend
// records into one command processor at a time.
func NewCommandProcessor(b *Backend) (*CommandProcessor, error) {
	page, err := b.CreateDescriptorPage(b.cfg.descriptorCount)
	if err != nil {
		return nil, err
	}
	cp := &CommandProcessor{
		b:        b,
		current:  1,
		shadow:   make([]byte, b.cfg.constantsSize),
		page:     page,
		pageSize: b.cfg.descriptorCount,
	}
	cp.BarrierQueue = gpucore.NewBarrierQueue(cp.flush)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cp != nil {
		delete(b.pages, page)
		return nil, fmt.Errorf("wgpu: backend already has a command processor")
	}
	b.cp = cp
	return cp, nil
}

// encoder returns the encoder of the current submission, beginning it on
// first use.
func (cp *CommandProcessor) encoder() (hal.CommandEncoder, error) {
	if cp.enc != nil {
		return cp.enc, nil
	}
	label := fmt.Sprintf("%s_submission_%d", cp.b.cfg.label, cp.current)
	enc, err := cp.b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	cp.enc = enc
	return enc, nil
}

func fullRange(desc *gputypes.TextureDescriptor) hal.TextureRange {
	layers := max(desc.Size.DepthOrArrayLayers, 1)
	if desc.Dimension == gputypes.TextureDimension3D {
		layers = 1
	}
	return hal.TextureRange{
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   max(desc.MipLevelCount, 1),
		ArrayLayerCount: layers,
	}
}

// flush translates queued barriers into HAL transitions.
func (cp *CommandProcessor) flush(barriers []gpucore.Barrier) {
	b := cp.b
	b.mu.Lock()
	defer b.mu.Unlock()

	var textures []hal.TextureBarrier
	var buffers []hal.BufferBarrier
	for _, br := range barriers {
		switch br.Kind {
		case gpucore.BarrierTextureTransition:
			t, ok := b.textures[br.Texture]
			if !ok {
				slogger().Warn("wgpu: transition of unknown texture", "texture", br.Texture)
				continue
			}
			textures = append(textures, hal.TextureBarrier{
				Texture: t.tex,
				Range:   fullRange(&t.desc),
				Usage:   hal.TextureUsageTransition{OldUsage: br.OldTexture, NewUsage: br.NewTexture},
			})
		case gpucore.BarrierBufferTransition:
			buf, ok := b.buffers[br.Buffer]
			if !ok {
				slogger().Warn("wgpu: transition of unknown buffer", "buffer", br.Buffer)
				continue
			}
			buffers = append(buffers, hal.BufferBarrier{
				Buffer: buf.buf,
				Usage:  hal.BufferUsageTransition{OldUsage: br.OldBuffer, NewUsage: br.NewBuffer},
			})
		case gpucore.BarrierAliasing:
			// No sparse buffers, so nothing aliases.
			slogger().Debug("wgpu: aliasing barrier ignored", "before", br.Before, "after", br.Buffer)
		}
	}
	if len(textures) == 0 && len(buffers) == 0 {
		return
	}
	enc, err := cp.encoder()
	if err != nil {
		slogger().Error("wgpu: barriers dropped", "err", err)
		return
	}
	if len(buffers) > 0 {
		enc.TransitionBuffers(buffers)
	}
	if len(textures) > 0 {
		enc.TransitionTextures(textures)
	}
}

// CurrentSubmission implements texture.CommandProcessor.
func (cp *CommandProcessor) CurrentSubmission() uint64 { return cp.current }

// CompletedSubmission implements texture.CommandProcessor. It polls the
// queue and destroys objects retired by completed submissions.
func (cp *CommandProcessor) CompletedSubmission() uint64 {
	cp.b.mu.Lock()
	defer cp.b.mu.Unlock()
	cp.pollLocked()
	return cp.completed
}

func (cp *CommandProcessor) pollLocked() {
	done := cp.b.queue.PollCompleted()
	n := 0
	for _, s := range cp.inFlight {
		if s.queueIndex <= done {
			cp.b.device.FreeCommandBuffer(s.cmdBuf)
			if s.constants != gpucore.InvalidID {
				cp.constantsFree = append(cp.constantsFree, s.constants)
			}
			continue
		}
		cp.inFlight[n] = s
		n++
	}
	clear(cp.inFlight[n:])
	cp.inFlight = cp.inFlight[:n]
	if n == 0 {
		cp.completed = cp.current - 1
	} else {
		cp.completed = cp.inFlight[0].index - 1
	}
	cp.b.collectLocked(cp.completed)
}

// EndSubmission uploads the constants, submits the recorded commands and
// starts the next submission. It returns the new submission index.
func (cp *CommandProcessor) EndSubmission() (uint64, error) {
	cp.SubmitBarriers()
	b := cp.b
	b.mu.Lock()
	defer b.mu.Unlock()

	s := submission{index: cp.current, constants: cp.constants}
	var err error
	if cp.constantsUsed > 0 {
		err = b.writeBufferLocked(cp.constants, 0, cp.shadow[:xenos.AlignUp(cp.constantsUsed, 4)])
	}
	if cp.enc != nil {
		err = cp.submitLocked(&s, err)
	}
	if s.cmdBuf == nil && s.constants != gpucore.InvalidID {
		cp.constantsFree = append(cp.constantsFree, s.constants)
	}

	cp.current++
	cp.constants = gpucore.InvalidID
	cp.constantsUsed = 0
	cp.pageUsed = 0
	cp.pollLocked()
	return cp.current, err
}

func (cp *CommandProcessor) submitLocked(s *submission, uploadErr error) error {
	enc := cp.enc
	cp.enc = nil
	if uploadErr != nil {
		enc.DiscardEncoding()
		return uploadErr
	}
	cmdBuf, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	idx, err := cp.b.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		cp.b.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	s.cmdBuf, s.queueIndex = cmdBuf, idx
	cp.inFlight = append(cp.inFlight, *s)
	slogger().Debug("wgpu: submitted", "submission", s.index, "queue_index", idx)
	return nil
}

// Wait blocks until every submission has completed.
func (cp *CommandProcessor) Wait() error {
	if err := cp.b.device.WaitIdle(); err != nil {
		return fmt.Errorf("wgpu: wait idle: %w", err)
	}
	cp.CompletedSubmission()
	return nil
}

// releaseLocked drops unsubmitted work and command buffers on Close.
func (cp *CommandProcessor) releaseLocked() {
	if cp.enc != nil {
		cp.enc.DiscardEncoding()
		cp.enc = nil
	}
	for _, s := range cp.inFlight {
		cp.b.device.FreeCommandBuffer(s.cmdBuf)
	}
	cp.inFlight = nil
}

// RequestScratchBuffer implements texture.CommandProcessor. There is one
// scratch buffer, grown to the next power of two when too small.
func (cp *CommandProcessor) RequestScratchBuffer(size uint64, state gputypes.BufferUsage) (gpucore.BufferID, bool) {
	if cp.scratchBusy || size == 0 {
		return gpucore.InvalidID, false
	}
	if size > cp.scratchSize {
		newSize := uint64(xenos.NextPow2(uint32(min(size, 1<<31))))
		if newSize < size {
			newSize = size
		}
		id, err := cp.b.CreateBuffer(newSize,
			gputypes.BufferUsageStorage|gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst)
		if err != nil {
			slogger().Error("wgpu: scratch buffer", "size", newSize, "err", err)
			return gpucore.InvalidID, false
		}
		if cp.scratch != gpucore.InvalidID {
			cp.b.DestroyBuffer(cp.scratch)
		}
		cp.scratch, cp.scratchSize, cp.scratchState = id, newSize, state
	}
	cp.PushBufferTransition(cp.scratch, cp.scratchState, state)
	cp.scratchBusy = true
	return cp.scratch, true
}

// ReleaseScratchBuffer implements texture.CommandProcessor.
func (cp *CommandProcessor) ReleaseScratchBuffer(buf gpucore.BufferID, state gputypes.BufferUsage) {
	if buf != cp.scratch {
		return
	}
	cp.scratchBusy = false
	cp.scratchState = state
}

// RequestOneUseSingleViewDescriptors implements texture.CommandProcessor.
func (cp *CommandProcessor) RequestOneUseSingleViewDescriptors(count int) ([]gpucore.DescriptorHandle, bool) {
	if count < 0 || cp.pageUsed+uint32(count) > cp.pageSize {
		return nil, false
	}
	out := make([]gpucore.DescriptorHandle, count)
	for i := range out {
		out[i] = gpucore.DescriptorHandle{Page: cp.page, Index: cp.pageUsed}
		cp.pageUsed++
	}
	return out, true
}

// RequestConstants implements texture.CommandProcessor.
func (cp *CommandProcessor) RequestConstants(size, alignment uint64) ([]byte, gpucore.BufferSlice, bool) {
	cp.b.mu.Lock()
	defer cp.b.mu.Unlock()
	return cp.RequestConstantsLocked(size, alignment)
}

// RequestConstantsLocked is RequestConstants for callers holding the
// backend lock.
func (cp *CommandProcessor) RequestConstantsLocked(size, alignment uint64) ([]byte, gpucore.BufferSlice, bool) {
	offset := xenos.AlignUp(cp.constantsUsed, max(alignment, 1))
	if size == 0 || offset+size > uint64(len(cp.shadow)) {
		return nil, gpucore.BufferSlice{}, false
	}
	if cp.constants == gpucore.InvalidID {
		if n := len(cp.constantsFree); n > 0 {
			cp.constants = cp.constantsFree[n-1]
			cp.constantsFree = cp.constantsFree[:n-1]
		} else {
			id, err := cp.b.createBufferLocked(uint64(len(cp.shadow)),
				gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
			if err != nil {
				slogger().Error("wgpu: constant buffer", "err", err)
				return nil, gpucore.BufferSlice{}, false
			}
			cp.constants = id
		}
	}
	cp.constantsUsed = offset + size
	data := cp.shadow[offset : offset+size]
	clear(data)
	return data, gpucore.BufferSlice{Buffer: cp.constants, Offset: offset, Size: size}, true
}

// DescriptorPage returns the page one-use descriptors come from.
func (cp *CommandProcessor) DescriptorPage() gpucore.DescriptorPageID { return cp.page }
