package pingpong

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Frame is the host-visible result of one completed tick.
type Frame struct {
	// Tick is the number of committed ticks including this one.
	Tick uint64

	// State is the readback of the state-mirroring texture: one value per
	// vector component, record i at texel (i, 0), channels RGBA in order.
	State []float32

	// Colors is the readback of the visualization target, four values
	// (RGBA) per plotted point.
	Colors []float32

	// Format names the pixel format the visualization target was read in.
	Format string
}

// Device executes the tick protocol on one execution backend.
//
// The Scheduler calls the step methods strictly in order, once each per
// tick: IssueCompute, AwaitCapture, SyncTexture, Present, Readback, then
// Swap to commit. If any step fails the tick is abandoned before Swap, so
// the next tick recomputes from the same current buffer.
//
// Implementations are provided by SoftwareDevice (host memory) and by the
// GPU backend package:
//
//	import _ "github.com/gogpu/pingpong/gpu" // registers the GPU device
type Device interface {
	// Name returns the device name (e.g., "software", "gpu").
	Name() string

	// Open creates every resource and builds every pass. Errors wrapping
	// ErrCapability or ErrPipelineBuild are fatal configuration errors.
	Open(cfg Config) error

	// Ready reports whether Open succeeded and all passes are valid.
	Ready() bool

	// IssueCompute submits the compute pass reading the current buffer and
	// writing the next buffer.
	IssueCompute(ctx context.Context) error

	// AwaitCapture blocks until the compute output has landed in the next buffer.
	AwaitCapture(ctx context.Context) error

	// SyncTexture copies the next buffer into the sampled state texture.
	SyncTexture(ctx context.Context) error

	// Present draws one point per scalar into the visualization target.
	Present(ctx context.Context) error

	// Readback copies the state texture and the visualization target to host memory.
	// It blocks until all prior work affecting them has completed.
	Readback(ctx context.Context) (Frame, error)

	// Swap exchanges the current and next buffer roles. It never fails.
	Swap()

	// Close releases all device resources.
	Close()
}

// DeviceFactory creates an unopened Device.
type DeviceFactory func() Device

var (
	deviceMu      sync.RWMutex
	deviceFactory DeviceFactory
	deviceName    string
	lastDevice    Device
)

// RegisterDevice registers the factory used by OpenDevice for the GPU backend.
//
// Only one factory can be registered. Subsequent calls replace the previous one.
//
// Typical usage via blank import in GPU backend packages:
//
//	func init() {
//	    pingpong.RegisterDevice("gpu", func() pingpong.Device { return gpuimpl.NewDevice() })
//	}
func RegisterDevice(name string, f DeviceFactory) error {
	if f == nil {
		return errors.New("pingpong: device factory must not be nil")
	}
	deviceMu.Lock()
	deviceFactory = f
	deviceName = name
	deviceMu.Unlock()
	return nil
}

// RegisteredDevice returns the name of the registered GPU device factory,
// or an empty string if none is registered.
func RegisteredDevice() string {
	deviceMu.RLock()
	defer deviceMu.RUnlock()
	return deviceName
}

// resetDevices clears the registry (test helper).
func resetDevices() {
	deviceMu.Lock()
	deviceFactory = nil
	deviceName = ""
	lastDevice = nil
	deviceMu.Unlock()
}

func currentDevice() Device {
	deviceMu.RLock()
	defer deviceMu.RUnlock()
	return lastDevice
}

// OpenDevice creates and opens a device according to cfg.Backend.
//
//   - BackendSoftware always opens a SoftwareDevice.
//   - BackendGPU opens the registered GPU device; any failure is returned.
//   - BackendAuto opens the registered GPU device and falls back to the
//     SoftwareDevice when no GPU is present (ErrNoDevice). Capability and
//     pipeline build errors are still returned: they are fatal.
func OpenDevice(cfg Config) (Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Backend == BackendSoftware {
		return openTracked(NewSoftwareDevice(), cfg)
	}

	deviceMu.RLock()
	f, name := deviceFactory, deviceName
	deviceMu.RUnlock()

	if f == nil {
		if cfg.Backend == BackendGPU {
			return nil, fmt.Errorf("%w: no GPU device registered", ErrNoDevice)
		}
		Logger().Warn("pingpong: no GPU device registered, using software device")
		return openTracked(NewSoftwareDevice(), cfg)
	}

	d, err := openTracked(f(), cfg)
	if err == nil {
		return d, nil
	}
	if cfg.Backend == BackendAuto && errors.Is(err, ErrNoDevice) {
		Logger().Warn("pingpong: GPU device unavailable, using software device",
			"device", name, "err", err)
		return openTracked(NewSoftwareDevice(), cfg)
	}
	return nil, err
}

func openTracked(d Device, cfg Config) (Device, error) {
	propagateLogger(d, Logger())
	if err := d.Open(cfg); err != nil {
		d.Close()
		return nil, fmt.Errorf("pingpong: open %s device: %w", d.Name(), err)
	}
	deviceMu.Lock()
	lastDevice = d
	deviceMu.Unlock()
	Logger().Info("pingpong: device opened",
		"device", d.Name(),
		"length", cfg.VectorLength,
		"records", cfg.Records())
	return d, nil
}
