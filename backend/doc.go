// Package backend provides a registry of host devices for the texture
// cache.
//
// A Device bundles what texture.New needs: the host backend, the command
// processor recording into it and the GPU copy of guest memory.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// The software backend is automatically registered on import; the wgpu
// backend registers when its package is imported:
//
//	import _ "github.com/gogpu/texcache/backend/wgpu"
//
// # Backend Selection
//
// Use InitDefault() to open the best backend that works on this machine,
// or Get() to request a specific backend by name:
//
//	d, err := backend.InitDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer d.Close()
//
//	c, err := texture.New(texture.DefaultConfig(), d.Backend(), d.Commands(), d.Memory(), regs)
//
// # Available Backends
//
//   - "software": CPU reference backend (always available)
//   - "wgpu": gogpu/wgpu HAL device (Vulkan)
package backend
