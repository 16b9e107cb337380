package texture

import (
	"fmt"
	"unsafe"

	"honnef.co/go/safeish"

	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/texcache/resolve"
)

// loadConstantsAlignment is the constant buffer offset alignment.
const loadConstantsAlignment = 256

// LoadTextureData loads the outdated parts of tex from guest memory. On
// failure the texture is not written, every acquired resource is released
// and the texture stays outdated.
func (c *Cache) LoadTextureData(tex *Texture) bool {
	if err := c.loadTextureData(tex); err != nil {
		slogger().Warn("texture: load failed", "key", tex.key.String(), "err", err)
		return false
	}
	return true
}

// constantSlot is upload memory reserved for one dispatch.
type constantSlot struct {
	mapped []byte
	slice  gpucore.BufferSlice
}

func (c *Cache) loadTextureData(tex *Texture) error {
	if tex.IsLoaded() {
		return nil
	}
	plan, err := PlanLoad(tex.key, tex.baseOutdated, tex.mipsOutdated, c.caps, tex.scale)
	if err != nil {
		return err
	}
	if len(plan.Dispatches) == 0 {
		tex.baseOutdated, tex.mipsOutdated = false, false
		return nil
	}
	if !c.backend.LoadShaderAvailable(plan.Shader) {
		return fmt.Errorf("%w: %s", ErrNoLoadShader, plan.Shader)
	}
	if err := c.prepareGuestRanges(plan); err != nil {
		return err
	}

	descriptors, ok := c.cp.RequestOneUseSingleViewDescriptors(2 * len(plan.Dispatches))
	if !ok {
		return fmt.Errorf("%w: one-use views", ErrDescriptorsExhausted)
	}

	// Constant space is reserved before anything is recorded so a full
	// pool fails the load without partial work.
	size := uint64(unsafe.Sizeof(LoadConstants{}))
	slots := make([]constantSlot, len(plan.Dispatches))
	for i := range slots {
		mapped, slice, ok := c.cp.RequestConstants(size, loadConstantsAlignment)
		if !ok || uint64(len(mapped)) < size {
			return fmt.Errorf("%w: dispatch %d", ErrConstantsUnavailable, i)
		}
		slots[i] = constantSlot{mapped: mapped, slice: slice}
	}

	scratch, ok := c.cp.RequestScratchBuffer(plan.ScratchSize, scratchStateLoad)
	if !ok {
		return fmt.Errorf("%w: %d bytes", ErrScratchUnavailable, plan.ScratchSize)
	}
	scratchState := scratchStateLoad
	defer func() { c.cp.ReleaseScratchBuffer(scratch, scratchState) }()

	if c.cp.PushTextureTransition(tex.id, tex.state, StateCopyDest) {
		tex.state = StateCopyDest
	}

	for i := range plan.Dispatches {
		d := &plan.Dispatches[i]
		src, offset, err := c.dispatchSource(plan, d)
		if err != nil {
			return err
		}
		d.Constants.GuestOffset = offset
		copy(slots[i].mapped, safeish.SliceCast[[]byte]([]LoadConstants{d.Constants}))
		c.cp.SubmitBarriers()

		cmd := &LoadCommand{
			Shader:      plan.Shader,
			Params:      d.Constants,
			Constants:   slots[i].slice,
			Source:      src,
			Dest:        scratch,
			Descriptors: descriptors[2*i : 2*i+2],
			Groups:      d.Groups,
		}
		if err := c.backend.DispatchLoadShader(cmd); err != nil {
			return fmt.Errorf("texture: dispatch %s: %w", plan.Shader, err)
		}
	}

	c.cp.PushBufferTransition(scratch, scratchStateLoad, scratchStateCopy)
	scratchState = scratchStateCopy
	c.cp.SubmitBarriers()
	if err := c.backend.CopyBufferToTexture(scratch, tex.id, plan.Copies); err != nil {
		return fmt.Errorf("texture: copy to texture: %w", err)
	}

	tex.baseOutdated, tex.mipsOutdated = false, false
	slogger().Debug("texture: loaded",
		"key", tex.key.String(),
		"shader", plan.Shader,
		"dispatches", len(plan.Dispatches),
		"copies", len(plan.Copies),
		"scratch", plan.ScratchSize)
	return nil
}

// prepareGuestRanges makes the guest ranges of the plan resident.
func (c *Cache) prepareGuestRanges(plan *LoadPlan) error {
	for _, r := range plan.guestRanges() {
		if plan.Key.ScaledResolve && c.scaled != nil {
			if !c.scaled.EnsureScaledResolveMemoryCommitted(r.start, r.length, 12) {
				return fmt.Errorf("%w: scaled [%#x, +%#x)", ErrGuestRange, r.start, r.length)
			}
			continue
		}
		if c.shared == nil || !c.shared.RequestRange(r.start, r.length) {
			return fmt.Errorf("%w: [%#x, +%#x)", ErrGuestRange, r.start, r.length)
		}
	}
	return nil
}

// dispatchSource returns the buffer and byte offset a dispatch reads.
// Scaled ranges are made current here, right before the dispatch that
// reads them is recorded.
func (c *Cache) dispatchSource(plan *LoadPlan, d *LoadDispatch) (gpucore.BufferID, uint32, error) {
	addr := plan.Layout.LevelAddress(plan.Key, d.Level)
	if !plan.Key.ScaledResolve || c.scaled == nil {
		return c.shared.Buffer(), addr, nil
	}
	r := plan.rangeOf(d.Level)
	if !c.scaled.MakeScaledResolveRangeCurrent(r.start, r.length, 12) {
		return gpucore.InvalidID, 0, fmt.Errorf("%w: scaled [%#x, +%#x) not addressable", ErrGuestRange, r.start, r.length)
	}
	c.scaled.TransitionCurrentBuffer(resolve.StateLoadSource)
	buf, offset, _ := c.scaled.CurrentBuffer()
	offset += uint64(addr-r.start) * uint64(plan.Scale.Area())
	return buf, uint32(offset), nil
}

type guestRange struct {
	start, length uint32
}

func (p *LoadPlan) guestRanges() []guestRange {
	var out []guestRange
	if p.LoadBase || (p.LoadMips && p.Layout.TailInBase) {
		s, l := p.BaseRange()
		out = append(out, guestRange{s, l})
	}
	if p.LoadMips && p.Layout.MipsSize != 0 {
		s, l := p.MipsRange()
		out = append(out, guestRange{s, l})
	}
	return out
}

func (p *LoadPlan) rangeOf(level uint32) guestRange {
	if level == 0 || (p.Layout.TailInBase && p.Layout.Levels[level].Packed) {
		s, l := p.BaseRange()
		return guestRange{s, l}
	}
	s, l := p.MipsRange()
	return guestRange{s, l}
}
