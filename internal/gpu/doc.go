//go:build !nogpu

// Package gpu runs the ping-pong counter on a WebGPU HAL device.
//
// It talks to github.com/gogpu/wgpu/hal directly: buffers, textures,
// pipelines and command encoders are created on a hal.Device and work is
// submitted to its hal.Queue. Registered backends are tried in the order
// Vulkan, Metal, DX12, GL. When none opens, pingpong.OpenDevice falls back
// to pingpong.SoftwareDevice.
//
// # Resources
//
// A Device owns one ResourceSet for the process lifetime:
//
//   - two storage buffers holding the state vector (current and next)
//   - a uniform buffer per pass (StepParams, PresentParams)
//   - the state texture, RGBA32Float, width = records, height = 1
//   - the visualization target, one pixel per scalar, in the checked format
//   - two MapRead staging buffers for readback
//
// # Tick
//
//	IssueCompute  step.wgsl reads current, writes next
//	AwaitCapture  wait until the compute submission completes
//	SyncTexture   copy next buffer -> state texture
//	Present       present.wgsl draws one point per scalar
//	Readback      copy state texture and target -> staging, map, decode
//
// Both buffer orientations have a pre-built bind group, so the swap after
// readback only flips a parity bit.
//
// # Usage
//
// The package is registered with pingpong by importing
// github.com/gogpu/pingpong/gpu. To share a device with a host
// application, pass its gpucontext.DeviceProvider to SetDeviceProvider
// before opening.
package gpu
