package backend

import (
	"errors"

	"github.com/gogpu/texcache/texture"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Device is a host backend together with the command processor that
// records into it and the GPU copy of guest memory. It is everything
// texture.New needs.
//
// Devices must be registered via Register() and are selected via
// Get() or Default().
type Device interface {
	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Init opens the host device. It must be called before any other
	// method except Name and Close.
	Init() error

	// Close releases all host resources.
	// The device should not be used after Close is called.
	Close()

	// Backend returns the host backend, nil before Init.
	Backend() texture.Backend

	// Commands returns the command processor, nil before Init.
	Commands() texture.CommandProcessor

	// Memory returns guest memory, nil before Init.
	Memory() texture.SharedMemory

	// WriteGuest copies p to guest address addr.
	WriteGuest(addr uint32, p []byte) error

	// EndSubmission submits the work recorded since the previous call.
	EndSubmission() error
}
