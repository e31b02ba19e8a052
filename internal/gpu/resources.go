//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/pingpong"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the required alignment of BytesPerRow in
// texture-to-buffer copies.
const copyPitchAlignment = 256

const (
	stateBufferUsage   = gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	uniformUsage       = gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	stagingUsage       = gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	stateTextureUsage  = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc
	targetTextureUsage = gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc
)

// ResourceSet holds every device resource of the counter. Resources are
// created once by newResourceSet and live until Release; only their
// contents change per tick.
type ResourceSet struct {
	device hal.Device

	// Buffers are the two state buffers. The swapper owns them exclusively.
	Buffers *pingpong.Swapper[hal.Buffer]

	StepParams    hal.Buffer
	PresentParams hal.Buffer

	StateTexture hal.Texture
	StateView    hal.TextureView

	Target       hal.Texture
	TargetView   hal.TextureView
	TargetFormat gputypes.TextureFormat

	StateStaging  hal.Buffer
	TargetStaging hal.Buffer

	length  int
	records int

	// Texture widths as created, checked before every sync.
	stateWidth  uint32
	targetWidth uint32

	// Last usage of each state buffer slot (A, B) as seen by the queue,
	// and the usages recorded into the command buffer being built.
	bufferUsage [2]gputypes.BufferUsage
	staged      [2]gputypes.BufferUsage
	stagedMask  [2]bool
}

// slot returns the swapper slot of the current (next == false) or next
// buffer.
func (r *ResourceSet) slot(next bool) int {
	p := r.Buffers.Parity()
	if next {
		return 1 - p
	}
	return p
}

// bufferBarrier moves a state buffer to usage to, starting from its last
// recorded usage. The change is staged until commitUsage.
func (r *ResourceSet) bufferBarrier(next bool, to gputypes.BufferUsage) hal.BufferBarrier {
	i := r.slot(next)
	from := r.bufferUsage[i]
	if r.stagedMask[i] {
		from = r.staged[i]
	}
	r.staged[i] = to
	r.stagedMask[i] = true
	buf := r.Buffers.Current()
	if next {
		buf = r.Buffers.Next()
	}
	return hal.BufferBarrier{Buffer: buf, Usage: hal.BufferUsageTransition{OldUsage: from, NewUsage: to}}
}

// commitUsage makes staged usages current once their command buffer has
// been submitted. dropUsage forgets them when it was not.
func (r *ResourceSet) commitUsage() {
	for i := range r.staged {
		if r.stagedMask[i] {
			r.bufferUsage[i] = r.staged[i]
		}
	}
	r.dropUsage()
}

func (r *ResourceSet) dropUsage() {
	r.stagedMask = [2]bool{}
}

func alignPitch(n uint32) uint32 {
	return (n + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// BufferSize is the byte size of one state buffer.
func (r *ResourceSet) BufferSize() uint64 { return uint64(r.records) * 16 }

// StateRowBytes is the tight byte size of the state texture row.
func (r *ResourceSet) StateRowBytes() uint32 { return uint32(r.records) * 16 } //nolint:gosec // bounded by texture limits

// TargetRowBytes is the tight byte size of the target row.
func (r *ResourceSet) TargetRowBytes() uint32 {
	return uint32(r.length) * bytesPerTexel(r.TargetFormat) //nolint:gosec // bounded by texture limits
}

func newResourceSet(device hal.Device, cfg pingpong.Config, targetFormat gputypes.TextureFormat) (*ResourceSet, error) {
	r := &ResourceSet{
		device:       device,
		TargetFormat: targetFormat,
		length:       cfg.VectorLength,
		records:      cfg.Records(),
	}
	if err := r.create(); err != nil {
		r.Release()
		return nil, err
	}
	slogger().Debug("gpu: resources created",
		"buffer_bytes", r.BufferSize(),
		"state_texture", fmt.Sprintf("%dx1 %s", r.records, FormatName(stateFormat)),
		"target", fmt.Sprintf("%dx1 %s", r.length, FormatName(targetFormat)))
	return r, nil
}

func (r *ResourceSet) create() error {
	a, err := r.buffer("state_a", r.BufferSize(), stateBufferUsage)
	if err != nil {
		return err
	}
	b, err := r.buffer("state_b", r.BufferSize(), stateBufferUsage)
	if err != nil {
		r.device.DestroyBuffer(a)
		return err
	}
	r.Buffers = pingpong.NewSwapper(a, b)

	if r.StepParams, err = r.buffer("step_params", stepParamsSize, uniformUsage); err != nil {
		return err
	}
	if r.PresentParams, err = r.buffer("present_params", presentParamsSize, uniformUsage); err != nil {
		return err
	}

	r.stateWidth = uint32(r.records) //nolint:gosec // validated config
	if r.StateTexture, r.StateView, err = r.texture("state_texture", r.stateWidth, stateFormat, stateTextureUsage); err != nil {
		return err
	}
	r.targetWidth = uint32(r.length) //nolint:gosec // validated config
	if r.Target, r.TargetView, err = r.texture("target", r.targetWidth, r.TargetFormat, targetTextureUsage); err != nil {
		return err
	}

	if r.StateStaging, err = r.buffer("state_staging", uint64(alignPitch(r.StateRowBytes())), stagingUsage); err != nil {
		return err
	}
	if r.TargetStaging, err = r.buffer("target_staging", uint64(alignPitch(r.TargetRowBytes())), stagingUsage); err != nil {
		return err
	}
	return nil
}

func (r *ResourceSet) buffer(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create buffer %s: %w", label, err)
	}
	return buf, nil
}

func (r *ResourceSet) texture(label string, width uint32, format gputypes.TextureFormat, usage gputypes.TextureUsage) (hal.Texture, hal.TextureView, error) {
	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: create texture %s: %w", label, err)
	}
	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           label + "_view",
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		r.device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("gpu: create texture view %s: %w", label, err)
	}
	return tex, view, nil
}

// initialize writes the starting contents: the initial vector into the
// current buffer and the state texture, zeros into the next buffer, and
// both uniform blocks. Nothing is left undefined.
func (r *ResourceSet) initialize(queue hal.Queue, cfg pingpong.Config) error {
	initial := cfg.InitialVector().Bytes()
	writes := []struct {
		label string
		buf   hal.Buffer
		data  []byte
	}{
		{"current", r.Buffers.Current(), initial},
		{"next", r.Buffers.Next(), make([]byte, r.BufferSize())},
		{"step_params", r.StepParams, StepParams{Modulus: cfg.Modulus, Records: uint32(r.records)}.bytes()},                  //nolint:gosec // validated config
		{"present_params", r.PresentParams, PresentParams{Count: uint32(r.length), NormMax: cfg.NormalizationMax}.bytes()}, //nolint:gosec // validated config
	}
	for _, w := range writes {
		if err := queue.WriteBuffer(w.buf, 0, w.data); err != nil {
			return fmt.Errorf("gpu: write %s buffer: %w", w.label, err)
		}
	}
	r.bufferUsage = [2]gputypes.BufferUsage{gputypes.BufferUsageCopyDst, gputypes.BufferUsageCopyDst}
	r.dropUsage()

	err := queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: r.StateTexture, Aspect: gputypes.TextureAspectAll},
		initial,
		&hal.ImageDataLayout{BytesPerRow: r.StateRowBytes(), RowsPerImage: 1},
		&hal.Extent3D{Width: uint32(r.records), Height: 1, DepthOrArrayLayers: 1}, //nolint:gosec // validated config
	)
	if err != nil {
		return fmt.Errorf("gpu: write state texture: %w", err)
	}
	return nil
}

// Release destroys every resource. It is safe on a partially created set.
func (r *ResourceSet) Release() {
	if r == nil || r.device == nil {
		return
	}
	d := r.device
	for _, view := range []hal.TextureView{r.StateView, r.TargetView} {
		if view != nil {
			d.DestroyTextureView(view)
		}
	}
	for _, tex := range []hal.Texture{r.StateTexture, r.Target} {
		if tex != nil {
			d.DestroyTexture(tex)
		}
	}
	bufs := []hal.Buffer{r.StepParams, r.PresentParams, r.StateStaging, r.TargetStaging}
	if r.Buffers != nil {
		a, b := r.Buffers.Slots()
		bufs = append(bufs, a, b)
	}
	for _, buf := range bufs {
		if buf != nil {
			d.DestroyBuffer(buf)
		}
	}
	*r = ResourceSet{}
}
