//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"testing"
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/x448/float16"
)

var errInjected = errors.New("injected failure")

// emuDevice is a hal.Device that executes the counter's dispatches, draws
// and copies on host memory, following step.wgsl and present.wgsl.
// Methods it does not override fall through to the noop backend.
// It is not safe for concurrent use.
type emuDevice struct {
	hal.Device

	handles uintptr
	buffers map[uintptr]*emuBuffer
	views   map[uintptr]*emuView

	// live counts created minus destroyed objects.
	live int

	unsupported map[gputypes.TextureFormat]bool
	fail        map[string]bool

	dispatches int
	draws      int
	aliased    int

	// barriers lists buffer transitions in the order the queue executed them.
	barriers []hal.BufferBarrier
}

func newEmuDevice() *emuDevice {
	return &emuDevice{
		Device:      &noop.Device{},
		buffers:     make(map[uintptr]*emuBuffer),
		views:       make(map[uintptr]*emuView),
		unsupported: make(map[gputypes.TextureFormat]bool),
		fail:        make(map[string]bool),
	}
}

func (d *emuDevice) nextHandle() uintptr {
	d.handles++
	return d.handles
}

func (d *emuDevice) failing(op string) error {
	if d.fail[op] {
		return fmt.Errorf("emu: %s: %w", op, errInjected)
	}
	return nil
}

type emuBuffer struct {
	handle uintptr
	label  string
	usage  gputypes.BufferUsage
	data   []byte
}

func (b *emuBuffer) Destroy()              {}
func (b *emuBuffer) NativeHandle() uintptr { return b.handle }

type emuTexture struct {
	label  string
	format gputypes.TextureFormat
	width  uint32
	usage  gputypes.TextureUsage
	data   []byte
}

func (t *emuTexture) Destroy()                            {}
func (t *emuTexture) NativeHandle() uintptr               { return 0 }
func (t *emuTexture) CurrentUsage() gputypes.TextureUsage { return t.usage }
func (t *emuTexture) AddPendingRef()                      {}
func (t *emuTexture) DecPendingRef()                      {}

type emuView struct {
	handle uintptr
	tex    *emuTexture
}

func (v *emuView) Destroy()              {}
func (v *emuView) NativeHandle() uintptr { return v.handle }

type emuObject struct{ label string }

func (o *emuObject) Destroy() {}

type emuBindGroup struct {
	label   string
	entries []gputypes.BindGroupEntry
}

func (g *emuBindGroup) Destroy() {}

type emuComputePipeline struct{ entry string }

func (p *emuComputePipeline) Destroy() {}

type emuRenderPipeline struct {
	format   gputypes.TextureFormat
	topology gputypes.PrimitiveTopology
}

func (p *emuRenderPipeline) Destroy() {}

type emuCommands struct{ ops []func() }

func (c *emuCommands) Destroy() {}

func (d *emuDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if err := d.failing("buffer:" + desc.Label); err != nil {
		return nil, err
	}
	b := &emuBuffer{handle: d.nextHandle(), label: desc.Label, usage: desc.Usage, data: make([]byte, desc.Size)}
	d.buffers[b.handle] = b
	d.live++
	return b, nil
}

func (d *emuDevice) DestroyBuffer(buf hal.Buffer) {
	delete(d.buffers, buf.NativeHandle())
	d.live--
}

func (d *emuDevice) MapBuffer(buf hal.Buffer, offset, size uint64) (hal.BufferMapping, error) {
	b, ok := buf.(*emuBuffer)
	if !ok || b.usage&gputypes.BufferUsageMapRead == 0 || offset+size > uint64(len(b.data)) {
		return hal.BufferMapping{}, hal.ErrInvalidMapRange
	}
	return hal.BufferMapping{Ptr: unsafe.Pointer(&b.data[offset]), IsCoherent: true}, nil
}

func (d *emuDevice) UnmapBuffer(hal.Buffer) error { return nil }

func (d *emuDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if d.unsupported[desc.Format] {
		return nil, fmt.Errorf("emu: format %s unsupported", FormatName(desc.Format))
	}
	d.live++
	return &emuTexture{
		label:  desc.Label,
		format: desc.Format,
		width:  desc.Size.Width,
		usage:  desc.Usage,
		data:   make([]byte, desc.Size.Width*bytesPerTexel(desc.Format)),
	}, nil
}

func (d *emuDevice) DestroyTexture(hal.Texture) { d.live-- }

func (d *emuDevice) CreateTextureView(tex hal.Texture, _ *hal.TextureViewDescriptor) (hal.TextureView, error) {
	v := &emuView{handle: d.nextHandle(), tex: tex.(*emuTexture)}
	d.views[v.handle] = v
	d.live++
	return v, nil
}

func (d *emuDevice) DestroyTextureView(view hal.TextureView) {
	delete(d.views, view.NativeHandle())
	d.live--
}

func (d *emuDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if err := d.failing("shader:" + desc.Label); err != nil {
		return nil, err
	}
	d.live++
	return &emuObject{label: desc.Label}, nil
}

func (d *emuDevice) DestroyShaderModule(hal.ShaderModule) { d.live-- }

func (d *emuDevice) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	d.live++
	return &emuObject{label: desc.Label}, nil
}

func (d *emuDevice) DestroyBindGroupLayout(hal.BindGroupLayout) { d.live-- }

func (d *emuDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	if err := d.failing("bind_group"); err != nil {
		return nil, err
	}
	d.live++
	return &emuBindGroup{label: desc.Label, entries: desc.Entries}, nil
}

func (d *emuDevice) DestroyBindGroup(hal.BindGroup) { d.live-- }

func (d *emuDevice) CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	d.live++
	return &emuObject{label: desc.Label}, nil
}

func (d *emuDevice) DestroyPipelineLayout(hal.PipelineLayout) { d.live-- }

func (d *emuDevice) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	if err := d.failing("compute_pipeline"); err != nil {
		return nil, err
	}
	d.live++
	return &emuComputePipeline{entry: desc.Compute.EntryPoint}, nil
}

func (d *emuDevice) DestroyComputePipeline(hal.ComputePipeline) { d.live-- }

func (d *emuDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if err := d.failing("render_pipeline"); err != nil {
		return nil, err
	}
	d.live++
	return &emuRenderPipeline{format: desc.Fragment.Targets[0].Format, topology: desc.Primitive.Topology}, nil
}

func (d *emuDevice) DestroyRenderPipeline(hal.RenderPipeline) { d.live-- }

func (d *emuDevice) CreateCommandEncoder(*hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	d.live++
	return &emuEncoder{CommandEncoder: &noop.CommandEncoder{}, dev: d}, nil
}

func (d *emuDevice) FreeCommandBuffer(hal.CommandBuffer) { d.live-- }

func (d *emuDevice) bufferAt(g *emuBindGroup, binding uint32) *emuBuffer {
	for _, e := range g.entries {
		if e.Binding == binding {
			if bb, ok := e.Resource.(gputypes.BufferBinding); ok {
				return d.buffers[bb.Buffer]
			}
		}
	}
	return nil
}

func (d *emuDevice) viewAt(g *emuBindGroup, binding uint32) *emuView {
	for _, e := range g.entries {
		if e.Binding == binding {
			if vb, ok := e.Resource.(gputypes.TextureViewBinding); ok {
				return d.views[vb.TextureView]
			}
		}
	}
	return nil
}

// runStep executes step.wgsl for the given invocation count.
func (d *emuDevice) runStep(g *emuBindGroup, invocations uint32) {
	src, dst, params := d.bufferAt(g, 0), d.bufferAt(g, 1), d.bufferAt(g, 2)
	if src == dst {
		d.aliased++
	}
	modulus := f32At(params.data, 0)
	records := binary.LittleEndian.Uint32(params.data[4:])
	for i := uint32(0); i < invocations && i < records; i++ {
		for c := uint32(0); c < 4; c++ {
			off := (i*4 + c) * 4
			putF32(dst.data, off, math32.Mod(f32At(src.data, off)+1, modulus))
		}
	}
	d.dispatches++
}

// runPresent executes present.wgsl as a point list.
func (d *emuDevice) runPresent(target *emuTexture, g *emuBindGroup, vertices uint32, viewportW float32) {
	state := d.viewAt(g, 0).tex
	params := d.bufferAt(g, 1)
	count := binary.LittleEndian.Uint32(params.data)
	normMax := f32At(params.data, 4)
	for id := uint32(0); id < vertices; id++ {
		value := f32At(state.data, ((id/4)*4+id%4)*4)
		x := (float32(id)+0.5)/float32(count)*2 - 1
		px := int((x + 1) / 2 * viewportW)
		if px < 0 || px >= int(target.width) {
			continue
		}
		writeTexel(target, uint32(px), [4]float32{value / normMax, 0, 0, 1})
	}
	d.draws++
}

type emuEncoder struct {
	*noop.CommandEncoder
	dev *emuDevice
	ops []func()
}

func (e *emuEncoder) EndEncoding() (hal.CommandBuffer, error) {
	e.dev.live++
	cb := &emuCommands{ops: e.ops}
	e.ops = nil
	return cb, nil
}

func (e *emuEncoder) DiscardEncoding() { e.ops = nil }

func (e *emuEncoder) Destroy() { e.dev.live-- }

func (e *emuEncoder) TransitionBuffers(barriers []hal.BufferBarrier) {
	recorded := append([]hal.BufferBarrier(nil), barriers...)
	e.ops = append(e.ops, func() {
		e.dev.barriers = append(e.dev.barriers, recorded...)
	})
}

func (e *emuEncoder) CopyBufferToTexture(src hal.Buffer, dst hal.Texture, regions []hal.BufferTextureCopy) {
	b, t := src.(*emuBuffer), dst.(*emuTexture)
	e.ops = append(e.ops, func() {
		for _, r := range regions {
			n := uint64(r.Size.Width * bytesPerTexel(t.format))
			at := r.TextureBase.Origin.X * bytesPerTexel(t.format)
			copy(t.data[at:], b.data[r.BufferLayout.Offset:r.BufferLayout.Offset+n])
		}
	})
}

func (e *emuEncoder) CopyTextureToBuffer(src hal.Texture, dst hal.Buffer, regions []hal.BufferTextureCopy) {
	t, b := src.(*emuTexture), dst.(*emuBuffer)
	e.ops = append(e.ops, func() {
		for _, r := range regions {
			n := r.Size.Width * bytesPerTexel(t.format)
			at := r.TextureBase.Origin.X * bytesPerTexel(t.format)
			copy(b.data[r.BufferLayout.Offset:], t.data[at:at+n])
		}
	})
}

func (e *emuEncoder) BeginComputePass(*hal.ComputePassDescriptor) hal.ComputePassEncoder {
	return &emuComputePass{ComputePassEncoder: &noop.ComputePassEncoder{}, enc: e}
}

func (e *emuEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	att := desc.ColorAttachments[0]
	target := att.View.(*emuView).tex
	if att.LoadOp == gputypes.LoadOpClear {
		c := att.ClearValue
		e.ops = append(e.ops, func() {
			for x := range target.width {
				writeTexel(target, x, [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)})
			}
		})
	}
	return &emuRenderPass{RenderPassEncoder: &noop.RenderPassEncoder{}, enc: e, target: target}
}

type emuComputePass struct {
	*noop.ComputePassEncoder
	enc      *emuEncoder
	pipeline *emuComputePipeline
	group    *emuBindGroup
}

func (p *emuComputePass) SetPipeline(pl hal.ComputePipeline) { p.pipeline = pl.(*emuComputePipeline) }

func (p *emuComputePass) SetBindGroup(_ uint32, g hal.BindGroup, _ []uint32) {
	p.group = g.(*emuBindGroup)
}

func (p *emuComputePass) Dispatch(x, _, _ uint32) {
	dev, group := p.enc.dev, p.group
	p.enc.ops = append(p.enc.ops, func() { dev.runStep(group, x*stepWorkgroupSize) })
}

type emuRenderPass struct {
	*noop.RenderPassEncoder
	enc       *emuEncoder
	target    *emuTexture
	pipeline  *emuRenderPipeline
	group     *emuBindGroup
	viewportW float32
}

func (p *emuRenderPass) SetPipeline(pl hal.RenderPipeline) { p.pipeline = pl.(*emuRenderPipeline) }

func (p *emuRenderPass) SetBindGroup(_ uint32, g hal.BindGroup, _ []uint32) {
	p.group = g.(*emuBindGroup)
}

func (p *emuRenderPass) SetViewport(_, _, w, _, _, _ float32) { p.viewportW = w }

func (p *emuRenderPass) Draw(vertexCount, _, _, _ uint32) {
	dev, target, group, w := p.enc.dev, p.target, p.group, p.viewportW
	p.enc.ops = append(p.enc.ops, func() { dev.runPresent(target, group, vertexCount, w) })
}

// emuQueue runs submitted work when completion is polled, so results are
// only visible to a caller that waited. With deferred false it runs work
// at submission.
type emuQueue struct {
	hal.Queue
	dev      *emuDevice
	deferred bool

	submitted uint64
	completed uint64
	polls     int
	pending   []*emuCommands
}

func (q *emuQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	if err := q.dev.failing("submit"); err != nil {
		return 0, err
	}
	for _, c := range cmds {
		q.pending = append(q.pending, c.(*emuCommands))
	}
	q.submitted++
	if !q.deferred {
		q.flush()
	}
	return q.submitted, nil
}

func (q *emuQueue) PollCompleted() uint64 {
	q.polls++
	q.flush()
	return q.completed
}

func (q *emuQueue) flush() {
	for _, c := range q.pending {
		for _, op := range c.ops {
			op()
		}
	}
	q.pending = nil
	q.completed = q.submitted
}

func (q *emuQueue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) error {
	q.flush()
	copy(buf.(*emuBuffer).data[offset:], data)
	return nil
}

func (q *emuQueue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	q.flush()
	t := dst.Texture.(*emuTexture)
	n := uint64(size.Width * bytesPerTexel(t.format))
	copy(t.data[dst.Origin.X*bytesPerTexel(t.format):], data[layout.Offset:layout.Offset+n])
	return nil
}

// emuAdapter reports per-format capabilities; formats not listed get the
// noop backend's full set.
type emuAdapter struct {
	*noop.Adapter
	caps map[gputypes.TextureFormat]hal.TextureFormatCapabilityFlags
}

func (a *emuAdapter) TextureFormatCapabilities(f gputypes.TextureFormat) hal.TextureFormatCapabilities {
	if flags, ok := a.caps[f]; ok {
		return hal.TextureFormatCapabilities{Flags: flags}
	}
	return a.Adapter.TextureFormatCapabilities(f)
}

func f32At(b []byte, off uint32) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func putF32(b []byte, off uint32, v float32) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
}

// writeTexel stores an RGBA color at texel x, encoded in the texture format.
func writeTexel(t *emuTexture, x uint32, c [4]float32) {
	at := x * bytesPerTexel(t.format)
	for i, v := range c {
		switch t.format {
		case gputypes.TextureFormatRGBA32Float:
			putF32(t.data, at+uint32(i)*4, v)
		case gputypes.TextureFormatRGBA16Float:
			binary.LittleEndian.PutUint16(t.data[at+uint32(i)*2:], float16.Fromfloat32(v).Bits())
		default:
			t.data[at+uint32(i)] = uint8(math32.Round(math32.Min(math32.Max(v, 0), 1) * 255))
		}
	}
}

type emuHarness struct {
	dev   *emuDevice
	queue *emuQueue
	dc    *DeviceContext
}

func newEmuHarness(t *testing.T) *emuHarness {
	t.Helper()
	dev := newEmuDevice()
	queue := &emuQueue{Queue: &noop.Queue{}, dev: dev, deferred: true}
	dc, err := NewDeviceContext(dev, queue, nil)
	if err != nil {
		t.Fatalf("NewDeviceContext() = %v", err)
	}
	return &emuHarness{dev: dev, queue: queue, dc: dc}
}
