// Package texcache emulates the Xenos GPU texture cache on a modern host GPU.
//
// # Overview
//
// Guest textures are described by six-dword fetch constants and live in
// guest memory in tiled, endian-swapped and often block-compressed layouts.
// The cache tracks which fetch constants the active shaders use, creates a
// host texture per distinct texture key, loads (untiles, swaps, decodes)
// guest data into it with compute load shaders and keeps it valid as guest
// memory is written.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/texcache"
//		"github.com/gogpu/texcache/backend"
//		"github.com/gogpu/texcache/texture"
//		"github.com/gogpu/texcache/xenos"
//	)
//
//	d, err := backend.InitDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer d.Close()
//
//	regs := xenos.NewRegisterArray()
//	c, err := texcache.NewCache(texture.DefaultConfig(), d, regs)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Shutdown()
//
//	// Per draw:
//	c.BeginSubmission(d.Commands().CurrentSubmission())
//	c.RequestTextures(usedFetchMask)
//	_ = d.EndSubmission()
//
// # Architecture
//
// The module is organized into:
//   - xenos: guest register, fetch constant and format definitions
//   - texture: keys, guest layouts, host formats, load planning and the cache
//   - resolve: resolution-scaled render target resolve memory
//   - descriptor: bindless descriptor arenas
//   - backend: device registry with software and wgpu implementations
//
// # Logging
//
// Nothing is logged by default. [SetLogger] enables logging for every
// package in the module.
package texcache

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
