package gpucore

import "github.com/gogpu/gputypes"

// Barriers records resource synchronization commands. Implementations
// must preserve the order of calls, as GPU command lists execute barriers
// in program order.
type Barriers interface {
	// PushTextureTransition records a state change of a texture. It
	// returns false when old and new states are equal and nothing was
	// recorded.
	PushTextureTransition(tex TextureID, oldState, newState gputypes.TextureUsage) bool

	// PushBufferTransition records a state change of a buffer.
	PushBufferTransition(buf BufferID, oldState, newState gputypes.BufferUsage) bool

	// PushAliasingBarrier records an ownership transfer of memory shared
	// by two buffers. before may be InvalidID when the memory had no
	// previous owner. The barrier also acts as a full memory barrier for
	// the range.
	PushAliasingBarrier(before, after BufferID)

	// SubmitBarriers flushes pending barriers into the command stream.
	SubmitBarriers()
}

// BarrierKind identifies a recorded barrier.
type BarrierKind uint8

// Barrier kinds.
const (
	BarrierTextureTransition BarrierKind = iota
	BarrierBufferTransition
	BarrierAliasing
)

// Barrier is one recorded barrier. Backends queue these until
// SubmitBarriers.
type Barrier struct {
	Kind       BarrierKind
	Texture    TextureID
	Buffer     BufferID
	Before     BufferID
	OldTexture gputypes.TextureUsage
	NewTexture gputypes.TextureUsage
	OldBuffer  gputypes.BufferUsage
	NewBuffer  gputypes.BufferUsage
}

// BarrierQueue is a reusable Barriers implementation that accumulates
// barriers and hands them to a flush function.
type BarrierQueue struct {
	pending []Barrier
	flush   func([]Barrier)
}

// NewBarrierQueue creates a queue that calls flush with the pending
// barriers on SubmitBarriers. flush may be nil and must not retain the
// slice.
func NewBarrierQueue(flush func([]Barrier)) *BarrierQueue {
	return &BarrierQueue{flush: flush}
}

// PushTextureTransition implements Barriers.
func (q *BarrierQueue) PushTextureTransition(tex TextureID, oldState, newState gputypes.TextureUsage) bool {
	if oldState == newState {
		return false
	}
	q.pending = append(q.pending, Barrier{
		Kind:       BarrierTextureTransition,
		Texture:    tex,
		OldTexture: oldState,
		NewTexture: newState,
	})
	return true
}

// PushBufferTransition implements Barriers.
func (q *BarrierQueue) PushBufferTransition(buf BufferID, oldState, newState gputypes.BufferUsage) bool {
	if oldState == newState {
		return false
	}
	q.pending = append(q.pending, Barrier{
		Kind:      BarrierBufferTransition,
		Buffer:    buf,
		OldBuffer: oldState,
		NewBuffer: newState,
	})
	return true
}

// PushAliasingBarrier implements Barriers.
func (q *BarrierQueue) PushAliasingBarrier(before, after BufferID) {
	q.pending = append(q.pending, Barrier{Kind: BarrierAliasing, Before: before, Buffer: after})
}

// SubmitBarriers implements Barriers.
func (q *BarrierQueue) SubmitBarriers() {
	if len(q.pending) == 0 {
		return
	}
	if q.flush != nil {
		q.flush(q.pending)
	}
	q.pending = q.pending[:0]
}

// Pending returns the barriers not yet submitted.
func (q *BarrierQueue) Pending() []Barrier {
	return q.pending
}
