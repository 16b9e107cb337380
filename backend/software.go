package backend

import (
	"github.com/gogpu/texcache/backend/software"
	"github.com/gogpu/texcache/texture"
)

// Backend name constants.
const (
	// BackendSoftware is the name of the CPU reference backend.
	BackendSoftware = "software"
	// BackendWGPU is the name of the GPU backend (gogpu/wgpu HAL).
	BackendWGPU = "wgpu"
)

// DefaultGuestMemorySize is the guest memory size of the software device.
const DefaultGuestMemorySize = 512 << 20

// SoftwareDevice runs the cache on the CPU reference backend.
type SoftwareDevice struct {
	opts []software.Option

	b   *software.Backend
	cp  *software.CommandProcessor
	mem *software.GuestMemory
}

// init registers the software backend on package import.
func init() {
	Register(BackendSoftware, func() Device {
		return NewSoftwareDevice(software.WithWorkers(0))
	})
}

// NewSoftwareDevice creates a new software device.
func NewSoftwareDevice(opts ...software.Option) *SoftwareDevice {
	return &SoftwareDevice{opts: opts}
}

// Name returns the backend identifier.
func (d *SoftwareDevice) Name() string {
	return BackendSoftware
}

// Init allocates the backend and guest memory.
func (d *SoftwareDevice) Init() error {
	if d.b != nil {
		return nil
	}
	d.b = software.New(d.opts...)
	d.cp = software.NewCommandProcessor(d.b)
	d.mem = software.NewGuestMemory(d.b, DefaultGuestMemorySize)
	return nil
}

// Close releases all backend resources.
func (d *SoftwareDevice) Close() {
	if d.b != nil {
		d.b.Close()
	}
	d.b, d.cp, d.mem = nil, nil, nil
}

// Backend returns the software backend, nil before Init.
func (d *SoftwareDevice) Backend() texture.Backend {
	if d.b == nil {
		return nil
	}
	return d.b
}

// Commands returns the command processor, nil before Init.
func (d *SoftwareDevice) Commands() texture.CommandProcessor {
	if d.cp == nil {
		return nil
	}
	return d.cp
}

// Memory returns guest memory, nil before Init.
func (d *SoftwareDevice) Memory() texture.SharedMemory {
	if d.mem == nil {
		return nil
	}
	return d.mem
}

// WriteGuest copies p to guest address addr.
func (d *SoftwareDevice) WriteGuest(addr uint32, p []byte) error {
	if d.mem == nil {
		return ErrNotInitialized
	}
	return d.mem.Write(addr, p)
}

// EndSubmission completes the current submission.
func (d *SoftwareDevice) EndSubmission() error {
	if d.cp == nil {
		return ErrNotInitialized
	}
	d.cp.EndSubmission()
	return nil
}

// Unwrap returns the underlying software backend for reading host
// texture contents. Returns nil before Init.
func (d *SoftwareDevice) Unwrap() *software.Backend {
	return d.b
}
