// Package software is a CPU implementation of the texture cache backend.
//
// Textures, buffers and sparse heaps are Go byte slices. Load shaders are
// Go functions that replicate the compute kernels: they read the constant
// block the cache uploaded, untile and endian-swap guest blocks and
// convert them to the host format in the scratch buffer. Work runs
// immediately when it is recorded, so barriers only need to be ordered,
// not executed.
//
// The backend is a reference for GPU backends and drives tests and the
// texinfo tool:
//
//	b := software.New()
//	mem := software.NewGuestMemory(b, 64<<20)
//	cp := software.NewCommandProcessor(b)
//	cache, err := texture.New(texture.DefaultConfig(), b, cp, mem, regs)
package software
