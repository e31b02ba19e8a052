package pingpong

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// SoftwareDevice runs the tick protocol in host memory.
//
// It keeps the same resource set as the GPU device (two ping-pong state
// buffers, an RGBA32Float state texture and a visualization target) and
// performs each step with the same arithmetic as the shaders. It is the
// fallback when no GPU is available and the reference the GPU device is
// tested against.
type SoftwareDevice struct {
	cfg    Config
	bufs   *Swapper[Vector]
	tex    []float32 // Records() texels x 4 channels
	target []float32 // VectorLength points x RGBA
	stage  Stage
	ready  bool
	logger atomic.Pointer[slog.Logger]
}

// NewSoftwareDevice returns an unopened software device.
func NewSoftwareDevice() *SoftwareDevice {
	d := &SoftwareDevice{}
	d.logger.Store(newNopLogger())
	return d
}

// Name returns "software".
func (d *SoftwareDevice) Name() string { return "software" }

// SetLogger sets the device logger.
func (d *SoftwareDevice) SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	d.logger.Store(l)
}

// Open allocates and initializes the buffers: the current buffer and the
// texture receive the initial vector, the next buffer is zeroed.
func (d *SoftwareDevice) Open(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.cfg = cfg
	initial := cfg.InitialVector()
	d.bufs = NewSwapper(initial, make(Vector, cfg.VectorLength))
	d.tex = initial.Clone()
	d.target = make([]float32, cfg.VectorLength*4)
	d.stage = StageIdle
	d.ready = true
	d.logger.Load().Debug("software: opened",
		"length", cfg.VectorLength,
		"texture_width", cfg.Records())
	return nil
}

// Ready reports whether Open succeeded and Close has not been called.
func (d *SoftwareDevice) Ready() bool { return d.ready }

func (d *SoftwareDevice) enter(from, to Stage) error {
	if !d.ready {
		return ErrDeviceNotReady
	}
	if d.stage != from {
		return fmt.Errorf("%w: %s requires %s, device is in %s", ErrStageOrder, to, from, d.stage)
	}
	d.stage = to
	return nil
}

// IssueCompute advances the current buffer into the next buffer, one
// record per invocation. It always starts a new tick, abandoning any
// partially completed one.
func (d *SoftwareDevice) IssueCompute(ctx context.Context) error {
	if !d.ready {
		return ErrDeviceNotReady
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	src, dst := d.bufs.Current(), d.bufs.Next()
	if &src[0] == &dst[0] {
		return ErrAliasedBinding
	}
	for r := range d.cfg.Records() {
		base := r * ComponentsPerRecord
		AdvanceInto(dst[base:base+ComponentsPerRecord], src[base:base+ComponentsPerRecord], d.cfg.Modulus)
	}
	d.stage = StageComputeIssued
	return nil
}

// AwaitCapture is immediate: host writes are complete when IssueCompute returns.
func (d *SoftwareDevice) AwaitCapture(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.enter(StageComputeIssued, StageFeedbackCaptured)
}

// SyncTexture copies the next buffer into the state texture.
func (d *SoftwareDevice) SyncTexture(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.enter(StageFeedbackCaptured, StageTextureSynced); err != nil {
		return err
	}
	next := d.bufs.Next()
	if len(next) != len(d.tex) {
		return fmt.Errorf("%w: buffer has %d values, texture holds %d", ErrIncompleteTarget, len(next), len(d.tex))
	}
	copy(d.tex, next)
	return nil
}

// Present maps every scalar to a red point in the visualization target.
func (d *SoftwareDevice) Present(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.enter(StageTextureSynced, StageRendered); err != nil {
		return err
	}
	for id := range d.cfg.VectorLength {
		x, ch := TexelOf(id)
		v := d.tex[x*ComponentsPerRecord+ch]
		px := d.target[id*4 : id*4+4]
		px[0] = Red(v, d.cfg.NormalizationMax)
		px[1], px[2], px[3] = 0, 0, 1
	}
	return nil
}

// Readback copies the state texture and the visualization target.
func (d *SoftwareDevice) Readback(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if err := d.enter(StageRendered, StageReadBack); err != nil {
		return Frame{}, err
	}
	state := make([]float32, len(d.tex))
	copy(state, d.tex)
	colors := make([]float32, len(d.target))
	copy(colors, d.target)
	return Frame{State: state, Colors: colors, Format: "RGBA32Float"}, nil
}

// Swap exchanges the buffer roles and returns the device to Idle.
func (d *SoftwareDevice) Swap() {
	if d.bufs == nil {
		return
	}
	d.bufs.Swap()
	d.stage = StageIdle
}

// Current returns a copy of the current buffer (test and debug helper).
func (d *SoftwareDevice) Current() Vector {
	if d.bufs == nil {
		return nil
	}
	return d.bufs.Current().Clone()
}

// Close releases the buffers.
func (d *SoftwareDevice) Close() {
	d.ready = false
	d.bufs = nil
	d.tex = nil
	d.target = nil
}
