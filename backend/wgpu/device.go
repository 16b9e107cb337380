package wgpu

import (
	"fmt"

	"github.com/gogpu/texcache/backend"
	"github.com/gogpu/texcache/texture"
)

// init registers the wgpu backend on package import.
//
//	import _ "github.com/gogpu/texcache/backend/wgpu"
func init() {
	backend.Register(backend.BackendWGPU, func() backend.Device {
		return &Device{}
	})
}

// Device bundles a Backend that owns its GPU device with its command
// processor and guest memory. It implements backend.Device.
type Device struct {
	opts []Option

	b   *Backend
	cp  *CommandProcessor
	mem *GuestMemory
}

// NewDevice returns an uninitialized device; Init opens the GPU.
func NewDevice(opts ...Option) *Device {
	return &Device{opts: opts}
}

// Name implements backend.Device.
func (d *Device) Name() string { return backend.BackendWGPU }

// Init implements backend.Device.
func (d *Device) Init() error {
	if d.b != nil {
		return nil
	}
	b, err := Open(d.opts...)
	if err != nil {
		return err
	}
	if err := d.attach(b); err != nil {
		b.Close()
		return err
	}
	return nil
}

func (d *Device) attach(b *Backend) error {
	cp, err := NewCommandProcessor(b)
	if err != nil {
		return err
	}
	mem, err := NewGuestMemory(b, backend.DefaultGuestMemorySize)
	if err != nil {
		return err
	}
	d.b, d.cp, d.mem = b, cp, mem
	return nil
}

// Close implements backend.Device.
func (d *Device) Close() {
	if d.b == nil {
		return
	}
	d.b.Close()
	d.b, d.cp, d.mem = nil, nil, nil
}

// Backend implements backend.Device.
func (d *Device) Backend() texture.Backend {
	if d.b == nil {
		return nil
	}
	return d.b
}

// Commands implements backend.Device.
func (d *Device) Commands() texture.CommandProcessor {
	if d.cp == nil {
		return nil
	}
	return d.cp
}

// Memory implements backend.Device.
func (d *Device) Memory() texture.SharedMemory {
	if d.mem == nil {
		return nil
	}
	return d.mem
}

// WriteGuest implements backend.Device.
func (d *Device) WriteGuest(addr uint32, p []byte) error {
	if d.mem == nil {
		return backend.ErrNotInitialized
	}
	return d.mem.Write(addr, p)
}

// EndSubmission implements backend.Device.
func (d *Device) EndSubmission() error {
	if d.cp == nil {
		return backend.ErrNotInitialized
	}
	if _, err := d.cp.EndSubmission(); err != nil {
		return fmt.Errorf("wgpu: end submission: %w", err)
	}
	return nil
}

// Unwrap returns the underlying backend, nil before Init.
func (d *Device) Unwrap() *Backend { return d.b }
