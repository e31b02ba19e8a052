package pingpong

import "errors"

// Startup errors. These are fatal: the device is unusable and the
// scheduler refuses to run.
var (
	// ErrCapability is returned when the device lacks a required feature,
	// such as sampling 32-bit float RGBA textures.
	ErrCapability = errors.New("pingpong: required device capability missing")

	// ErrPipelineBuild is returned when a pass cannot be built
	// (shader module, layout or pipeline creation failed).
	ErrPipelineBuild = errors.New("pingpong: pipeline build failed")

	// ErrNoDevice is returned when no GPU backend or adapter is available.
	ErrNoDevice = errors.New("pingpong: no device available")

	// ErrDeviceNotReady is returned when ticking a device whose Open failed
	// or that has been closed.
	ErrDeviceNotReady = errors.New("pingpong: device not ready")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("pingpong: invalid configuration")
)

// Per-tick errors. The tick is abandoned without swapping buffers and the
// scheduler continues with the next period.
var (
	// ErrIncompleteTarget is returned when the state texture or the
	// visualization target does not match the state buffer layout.
	ErrIncompleteTarget = errors.New("pingpong: render target incomplete")

	// ErrAliasedBinding is returned when a pass would read and write the
	// same physical buffer.
	ErrAliasedBinding = errors.New("pingpong: buffer bound for both read and write")

	// ErrStageOrder is returned when a device step is invoked out of order.
	ErrStageOrder = errors.New("pingpong: tick stage out of order")

	// ErrTickInFlight is returned when a tick is requested while another
	// tick has not completed its readback.
	ErrTickInFlight = errors.New("pingpong: tick already in flight")
)
