//go:build !nogpu

package gpu

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/pingpong"
	"github.com/gogpu/wgpu/hal"
)

// Device runs the tick protocol on a GPU through wgpu/hal.
//
// Every tick submits three command buffers (compute, texture sync,
// present) and one readback. AwaitCapture waits on the compute
// submission; Readback waits on everything. Queue order covers the
// dependencies in between.
type Device struct {
	mu sync.Mutex

	dc      *DeviceContext
	ownsCtx bool

	cfg     pingpong.Config
	res     *ResourceSet
	compute *ComputePass
	present *PresentPass
	sub     *submitter

	stage        pingpong.Stage
	computeIndex uint64
	ready        bool
}

var _ pingpong.Device = (*Device)(nil)

// NewDevice returns an unopened device. Open creates its own GPU context
// unless one was supplied with SetDeviceContext or SetDeviceProvider.
func NewDevice() *Device {
	return &Device{}
}

// Name returns "gpu".
func (d *Device) Name() string { return "gpu" }

// SetLogger sets the logger for the GPU backend.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

// SetDeviceContext makes the device use dc instead of opening its own.
// An already opened device is rebuilt on dc with the same configuration.
func (d *Device) SetDeviceContext(dc *DeviceContext) error {
	if dc == nil || dc.Device == nil || dc.Queue == nil {
		return fmt.Errorf("%w: incomplete device context", pingpong.ErrNoDevice)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	wasReady := d.ready
	d.release()
	d.dropContext()
	d.dc = dc
	d.ownsCtx = false
	if !wasReady {
		return nil
	}
	if err := d.build(); err != nil {
		d.release()
		return fmt.Errorf("gpu: rebuild on shared device: %w", err)
	}
	slogger().Info("gpu: switched to shared GPU device", "adapter", dc.Info.Name)
	return nil
}

// SetDeviceProvider shares the GPU device of an external provider.
func (d *Device) SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	dc, err := ContextFromProvider(provider)
	if err != nil {
		return err
	}
	return d.SetDeviceContext(dc)
}

// AdapterInfo describes the adapter the device runs on.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dc == nil {
		return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
	}
	return d.dc.Info
}

// Open creates the resources and builds both passes.
//
// It fails with pingpong.ErrNoDevice when no adapter is available,
// pingpong.ErrCapability when RGBA32Float textures cannot be sampled,
// and pingpong.ErrPipelineBuild when a pass cannot be built.
func (d *Device) Open(cfg pingpong.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.release()
	d.cfg = cfg
	if d.dc == nil {
		dc, err := OpenDeviceContext()
		if err != nil {
			return err
		}
		d.dc = dc
		d.ownsCtx = true
	}
	if err := d.build(); err != nil {
		d.release()
		d.dropContext()
		return err
	}
	return nil
}

// build creates everything on d.dc. Caller holds mu.
func (d *Device) build() error {
	formats := formatSupport{adapter: d.dc.Adapter, device: d.dc.Device}
	if err := formats.checkStateFormat(); err != nil {
		return err
	}
	target, err := formats.selectTargetFormat()
	if err != nil {
		return err
	}

	res, err := newResourceSet(d.dc.Device, d.cfg, target)
	if err != nil {
		return err
	}
	d.res = res
	if err := res.initialize(d.dc.Queue, d.cfg); err != nil {
		return err
	}

	if d.compute, err = newComputePass(d.dc.Device, res); err != nil {
		return err
	}
	if d.present, err = newPresentPass(d.dc.Device, res); err != nil {
		return err
	}
	d.sub = newSubmitter(d.dc.Device, d.dc.Queue)

	d.stage = pingpong.StageIdle
	d.ready = d.compute.Valid() && d.present.Valid()
	if !d.ready {
		return fmt.Errorf("%w: pass incomplete", pingpong.ErrPipelineBuild)
	}
	slogger().Info("gpu: counter ready",
		"length", d.cfg.VectorLength,
		"target", FormatName(target))
	return nil
}

// Ready reports whether Open succeeded and both passes are valid.
func (d *Device) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

// TargetFormat names the visualization target format in use.
func (d *Device) TargetFormat() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.res == nil {
		return ""
	}
	return FormatName(d.res.TargetFormat)
}

// Parity returns which buffer currently holds the committed state.
func (d *Device) Parity() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.res == nil {
		return 0
	}
	return d.res.Buffers.Parity()
}

// expect checks the stage before a step. Caller holds mu.
func (d *Device) expect(ctx context.Context, from, to pingpong.Stage) error {
	if !d.ready {
		return pingpong.ErrDeviceNotReady
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.stage != from {
		return fmt.Errorf("%w: %s requires %s, device is in %s", pingpong.ErrStageOrder, to, from, d.stage)
	}
	return nil
}

// IssueCompute submits the compute pass. It always starts a new tick,
// abandoning any partially completed one.
func (d *Device) IssueCompute(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ready {
		return pingpong.ErrDeviceNotReady
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.stage = pingpong.StageIdle
	index, err := d.submitTracked("step", func(enc hal.CommandEncoder) error {
		return d.compute.Encode(enc, d.res)
	})
	if err != nil {
		return err
	}
	d.computeIndex = index
	d.stage = pingpong.StageComputeIssued
	return nil
}

// AwaitCapture blocks until the compute submission has completed.
func (d *Device) AwaitCapture(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.expect(ctx, pingpong.StageComputeIssued, pingpong.StageFeedbackCaptured); err != nil {
		return err
	}
	if err := d.sub.wait(ctx, d.computeIndex); err != nil {
		return err
	}
	d.stage = pingpong.StageFeedbackCaptured
	return nil
}

// SyncTexture submits the copy of the next buffer into the state texture.
func (d *Device) SyncTexture(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.expect(ctx, pingpong.StageFeedbackCaptured, pingpong.StageTextureSynced); err != nil {
		return err
	}
	if _, err := d.submitTracked("sync", func(enc hal.CommandEncoder) error {
		return encodeTextureSync(enc, d.res)
	}); err != nil {
		return err
	}
	d.stage = pingpong.StageTextureSynced
	return nil
}

// submitTracked submits one step and commits the state buffer usages it
// recorded. Caller holds mu.
func (d *Device) submitTracked(label string, record func(hal.CommandEncoder) error) (uint64, error) {
	index, err := d.sub.submit(label, record)
	if err != nil {
		d.res.dropUsage()
		return 0, err
	}
	d.res.commitUsage()
	return index, nil
}

// Present submits the draw of one point per scalar.
func (d *Device) Present(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.expect(ctx, pingpong.StageTextureSynced, pingpong.StageRendered); err != nil {
		return err
	}
	if _, err := d.sub.submit("present", func(enc hal.CommandEncoder) error {
		return d.present.Encode(enc, d.res)
	}); err != nil {
		return err
	}
	d.stage = pingpong.StageRendered
	return nil
}

// Readback copies the state texture and the target to host memory.
func (d *Device) Readback(ctx context.Context) (pingpong.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.expect(ctx, pingpong.StageRendered, pingpong.StageReadBack); err != nil {
		return pingpong.Frame{}, err
	}
	frame, err := readback(ctx, d.dc.Device, d.sub, d.res)
	if err != nil {
		return pingpong.Frame{}, err
	}
	d.stage = pingpong.StageReadBack
	return frame, nil
}

// Swap exchanges the buffer roles and returns the device to Idle.
func (d *Device) Swap() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.res == nil {
		return
	}
	d.res.Buffers.Swap()
	d.stage = pingpong.StageIdle
}

// Close waits for outstanding work and releases every resource. A device
// context opened by Open is destroyed; a supplied one is left alone.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.release()
	d.dropContext()
}

// release destroys passes and resources. Caller holds mu.
func (d *Device) release() {
	d.ready = false
	if d.sub != nil {
		d.sub.release()
		d.sub = nil
	}
	d.present.Destroy()
	d.present = nil
	d.compute.Destroy()
	d.compute = nil
	d.res.Release()
	d.res = nil
	d.stage = pingpong.StageIdle
}

func (d *Device) dropContext() {
	if d.ownsCtx {
		d.dc.Release()
		d.dc = nil
		d.ownsCtx = false
	}
}
