package backend

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Factory creates a new, uninitialized device.
type Factory func() Device

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	// The software backend is the fallback.
	backendPriority = []string{BackendWGPU, BackendSoftware}
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the sorted names of the registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := maps.Keys(backends)
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns an uninitialized device by name.
// Returns nil if the backend is not registered.
func Get(name string) Device {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := backends[name]
	if !ok {
		return nil
	}
	return factory()
}

// candidates returns the registered factories in selection order:
// backendPriority first, then the rest sorted by name.
func candidates() []Factory {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Factory, 0, len(backends))
	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			out = append(out, factory)
		}
	}
	rest := maps.Keys(backends)
	slices.Sort(rest)
	for _, name := range rest {
		if !slices.Contains(backendPriority, name) {
			out = append(out, backends[name])
		}
	}
	return out
}

// Default returns the best available device based on priority.
// Priority order: wgpu > software
// Returns nil if no backends are registered.
func Default() Device {
	for _, factory := range candidates() {
		if d := factory(); d != nil {
			return d
		}
	}
	return nil
}

// MustDefault returns the default device or panics.
func MustDefault() Device {
	d := Default()
	if d == nil {
		panic("backend: no backend available")
	}
	return d
}

// InitDefault initializes the best device that opens. A wgpu device that
// finds no adapter falls through to the software backend.
func InitDefault() (Device, error) {
	var firstErr error
	for _, factory := range candidates() {
		d := factory()
		if d == nil {
			continue
		}
		err := d.Init()
		if err == nil {
			slogger().Info("backend: initialized", "backend", d.Name())
			return d, nil
		}
		slogger().Warn("backend: init failed", "backend", d.Name(), "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, ErrBackendNotAvailable
}
