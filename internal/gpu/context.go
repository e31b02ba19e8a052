//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/pingpong"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// backendPreference is the order in which registered backends are tried.
var backendPreference = []gputypes.Backend{
	gputypes.BackendVulkan,
	gputypes.BackendMetal,
	gputypes.BackendDX12,
	gputypes.BackendGL,
}

// DeviceContext is the explicit GPU context every pass is created from:
// a device, its queue and, when known, the adapter it was opened on.
// Nothing in this package reaches for an ambient current context.
type DeviceContext struct {
	Device  hal.Device
	Queue   hal.Queue
	Adapter hal.Adapter // nil when the device came from a provider
	Info    gpucontext.AdapterInfo

	instance hal.Instance
	external bool // device owned by someone else; Release leaves it alone
}

// OpenDeviceContext opens a device on the first registered backend that
// exposes an adapter. Discrete and integrated GPUs are preferred. It
// returns an error wrapping pingpong.ErrNoDevice when nothing is found.
func OpenDeviceContext() (*DeviceContext, error) {
	var tried []string
	for _, variant := range backendPreference {
		backend, ok := hal.GetBackend(variant)
		if !ok {
			continue
		}
		ctx, err := openOnBackend(backend)
		if err == nil {
			return ctx, nil
		}
		slogger().Debug("gpu: backend unusable", "backend", variant.String(), "err", err)
		tried = append(tried, fmt.Sprintf("%s: %v", variant, err))
	}
	if len(tried) == 0 {
		return nil, fmt.Errorf("%w: no GPU backend registered", pingpong.ErrNoDevice)
	}
	return nil, fmt.Errorf("%w: %v", pingpong.ErrNoDevice, tried)
}

func openOnBackend(backend hal.Backend) (*DeviceContext, error) {
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("no GPU adapters found")
	}
	selected := selectAdapter(adapters)
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	slogger().Info("gpu: device opened",
		"adapter", selected.Info.Name,
		"type", adapterType(selected.Info.DeviceType).String(),
		"backend", backend.Variant().String())
	return &DeviceContext{
		Device:   openDev.Device,
		Queue:    openDev.Queue,
		Adapter:  selected.Adapter,
		Info:     gpucontext.AdapterInfo{Name: selected.Info.Name, Type: adapterType(selected.Info.DeviceType)},
		instance: instance,
	}, nil
}

func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return &adapters[i]
		}
	}
	return &adapters[0]
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

// NewDeviceContext wraps a device the caller already owns. adapter may be
// nil, in which case format support is checked on the device.
func NewDeviceContext(device hal.Device, queue hal.Queue, adapter hal.Adapter) (*DeviceContext, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("%w: nil device or queue", pingpong.ErrNoDevice)
	}
	return &DeviceContext{
		Device:   device,
		Queue:    queue,
		Adapter:  adapter,
		Info:     gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown},
		external: true,
	}, nil
}

// ContextFromProvider shares the device of an external provider (e.g.,
// gogpu). The provider must implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func ContextFromProvider(provider gpucontext.DeviceProvider) (*DeviceContext, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}
	return &DeviceContext{
		Device:   device,
		Queue:    queue,
		Info:     provider.AdapterInfo(),
		external: true,
	}, nil
}

// External reports whether the device is owned outside this context.
func (c *DeviceContext) External() bool { return c.external }

// Release destroys the device and instance unless they are external.
func (c *DeviceContext) Release() {
	if c == nil {
		return
	}
	if !c.external {
		if c.Device != nil {
			c.Device.Destroy()
		}
		if c.instance != nil {
			c.instance.Destroy()
		}
	}
	c.Device = nil
	c.Queue = nil
	c.Adapter = nil
	c.instance = nil
}
