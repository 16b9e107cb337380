package software

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/texture"
	"github.com/gogpu/texcache/xenos"
)

// Command processor pool sizes.
const (
	DefaultConstantsSize   = 1 << 20
	DefaultDescriptorCount = 4096
)

var _ texture.CommandProcessor = (*CommandProcessor)(nil)

// CommandProcessor is a texture.CommandProcessor whose work completes as
// soon as it is recorded. It checks that recorded transitions start from
// the state the previous transition left a resource in.
type CommandProcessor struct {
	*gpucore.BarrierQueue
	b *Backend

	current   uint64
	completed uint64
	submitted []gpucore.Barrier

	textureStates map[gpucore.TextureID]gputypes.TextureUsage
	bufferStates  map[gpucore.BufferID]gputypes.BufferUsage
	mismatches    int

	scratch      gpucore.BufferID
	scratchSize  uint64
	scratchBusy  bool
	scratchState gputypes.BufferUsage

	constants     gpucore.BufferID
	constantsUsed uint64

	page     gpucore.DescriptorPageID
	pageUsed uint32
}

// NewCommandProcessor creates a command processor recording into b.
func NewCommandProcessor(b *Backend) *CommandProcessor {
	cp := &CommandProcessor{
		b:             b,
		current:       1,
		textureStates: make(map[gpucore.TextureID]gputypes.TextureUsage),
		bufferStates:  make(map[gpucore.BufferID]gputypes.BufferUsage),
	}
	cp.BarrierQueue = gpucore.NewBarrierQueue(cp.flush)
	cp.constants = b.CreateBuffer(DefaultConstantsSize)
	cp.page, _ = b.CreateDescriptorPage(DefaultDescriptorCount)
	return cp
}

func (cp *CommandProcessor) flush(barriers []gpucore.Barrier) {
	for _, br := range barriers {
		switch br.Kind {
		case gpucore.BarrierTextureTransition:
			if s, ok := cp.textureStates[br.Texture]; ok && s != br.OldTexture {
				cp.mismatches++
				slogger().Error("software: texture transition from wrong state",
					"texture", br.Texture, "tracked", s, "old", br.OldTexture)
			}
			cp.textureStates[br.Texture] = br.NewTexture
		case gpucore.BarrierBufferTransition:
			if s, ok := cp.bufferStates[br.Buffer]; ok && s != br.OldBuffer {
				cp.mismatches++
				slogger().Error("software: buffer transition from wrong state",
					"buffer", br.Buffer, "tracked", s, "old", br.OldBuffer)
			}
			cp.bufferStates[br.Buffer] = br.NewBuffer
		}
	}
	cp.submitted = append(cp.submitted, barriers...)
}

// Submitted returns the barriers flushed during the current submission.
func (cp *CommandProcessor) Submitted() []gpucore.Barrier { return cp.submitted }

// Mismatches returns the number of transitions that did not start from
// the tracked state.
func (cp *CommandProcessor) Mismatches() int { return cp.mismatches }

// CurrentSubmission implements texture.CommandProcessor.
func (cp *CommandProcessor) CurrentSubmission() uint64 { return cp.current }

// CompletedSubmission implements texture.CommandProcessor.
func (cp *CommandProcessor) CompletedSubmission() uint64 { return cp.completed }

// EndSubmission flushes pending barriers, completes the current
// submission and starts the next one. It returns the new submission
// index.
func (cp *CommandProcessor) EndSubmission() uint64 {
	cp.SubmitBarriers()
	cp.completed = cp.current
	cp.current++
	cp.submitted = cp.submitted[:0]
	cp.constantsUsed = 0
	cp.pageUsed = 0
	return cp.current
}

// RequestScratchBuffer implements texture.CommandProcessor. There is one
// scratch buffer, grown to the next power of two when too small.
func (cp *CommandProcessor) RequestScratchBuffer(size uint64, state gputypes.BufferUsage) (gpucore.BufferID, bool) {
	if cp.scratchBusy || size == 0 {
		return gpucore.InvalidID, false
	}
	if size > cp.scratchSize {
		if cp.scratch != gpucore.InvalidID {
			cp.b.DestroyBuffer(cp.scratch)
			delete(cp.bufferStates, cp.scratch)
		}
		cp.scratchSize = uint64(xenos.NextPow2(uint32(min(size, 1<<31))))
		if cp.scratchSize < size {
			cp.scratchSize = size
		}
		cp.scratch = cp.b.CreateBuffer(cp.scratchSize)
		cp.scratchState = state
		cp.bufferStates[cp.scratch] = state
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
	if count < 0 || cp.pageUsed+uint32(count) > DefaultDescriptorCount {
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
	offset := xenos.AlignUp(cp.constantsUsed, max(alignment, 1))
	if offset+size > DefaultConstantsSize {
		return nil, gpucore.BufferSlice{}, false
	}
	cp.constantsUsed = offset + size
	data := cp.b.BufferBytes(cp.constants)[offset : offset+size]
	return data, gpucore.BufferSlice{Buffer: cp.constants, Offset: offset, Size: size}, true
}
