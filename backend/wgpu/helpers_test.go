package wgpu

import (
	"testing"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texcache/gpucore"
	"github.com/gogpu/wgpu/hal/noop"
)

// newNoopBackend creates a backend on a noop device. Modules are passed
// as WGSL so tests do not depend on the SPIR-V compiler.
func newNoopBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	b, err := New(openDev.Device, openDev.Queue, append([]Option{WithWGSLModules()}, opts...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		b.Close()
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return b
}

// readBuffer maps a noop buffer and copies n bytes at off.
func readBuffer(t *testing.T, b *Backend, id gpucore.BufferID, off, n uint64) []byte {
	t.Helper()
	buf := b.HALBuffer(id)
	if buf == nil {
		t.Fatalf("unknown buffer %d", id)
	}
	m, err := b.Device().MapBuffer(buf, off, n)
	if err != nil {
		t.Fatalf("MapBuffer: %v", err)
	}
	defer func() { _ = b.Device().UnmapBuffer(buf) }()
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(m.Ptr), n))
	return out
}
