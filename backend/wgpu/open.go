package wgpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// NewFromProvider creates a backend on the device of a host application.
// The provider must expose the HAL device and queue through HalDevice()
// and HalQueue().
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALDevice)
	}
	info := provider.AdapterInfo()
	slogger().Info("wgpu: using provider device", "adapter", info.Name, "type", info.Type.String())
	return New(device, queue, opts...)
}

// Open creates a backend on a device of its own, opened on the best
// available HAL backend. The device is destroyed by Close.
func Open(opts ...Option) (*Backend, error) {
	backend, err := hal.SelectBestBackend()
	if err != nil {
		return nil, fmt.Errorf("wgpu: select backend: %w", err)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	var features gputypes.Features
	if selected.Features.Contains(gputypes.FeatureTextureCompressionBC) {
		features.Insert(gputypes.FeatureTextureCompressionBC)
	}
	limits := selected.Capabilities.Limits
	openDev, err := selected.Adapter.Open(features, limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	all := append([]Option{
		WithFeatures(features),
		WithLimits(limits),
		WithAlignments(selected.Capabilities.AlignmentsMask),
	}, opts...)
	b, err := New(openDev.Device, openDev.Queue, all...)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	b.instance = instance
	slogger().Info("wgpu: device opened",
		"adapter", selected.Info.Name,
		"backend", backend.Variant().String(),
		"bc", features.Contains(gputypes.FeatureTextureCompressionBC))
	return b, nil
}
