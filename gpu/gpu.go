//go:build !nogpu

// Package gpu registers the GPU device for the ping-pong counter.
//
// Import this package to run ticks on the GPU through wgpu/hal. The
// device opens the first Vulkan (or other registered) adapter it finds.
// If none is available, pingpong.OpenDevice with BackendAuto falls back
// to the software device.
//
// Usage:
//
//	import _ "github.com/gogpu/pingpong/gpu" // enable the GPU device
package gpu

import (
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/pingpong"
	gpuimpl "github.com/gogpu/pingpong/internal/gpu"
)

var (
	providerMu sync.RWMutex
	provider   gpucontext.DeviceProvider
)

func init() {
	if err := pingpong.RegisterDevice("gpu", newDevice); err != nil {
		pingpong.Logger().Warn("GPU device not available", "err", err)
	}
}

func newDevice() pingpong.Device {
	d := gpuimpl.NewDevice()

	providerMu.RLock()
	p := provider
	providerMu.RUnlock()

	if p != nil {
		if err := d.SetDeviceProvider(p); err != nil {
			pingpong.Logger().Warn("shared GPU device rejected, opening own device", "err", err)
		}
	}
	return d
}

// SetDeviceProvider makes devices opened afterwards share the GPU device
// of an external provider (e.g., gogpu) instead of creating their own.
// The provider must also expose HalDevice() and HalQueue().
//
// Pass nil to go back to standalone devices.
func SetDeviceProvider(p gpucontext.DeviceProvider) error {
	if p != nil {
		if _, err := gpuimpl.ContextFromProvider(p); err != nil {
			return err
		}
	}
	providerMu.Lock()
	provider = p
	providerMu.Unlock()
	return nil
}
