//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/pingpong"
	"github.com/gogpu/wgpu/hal"
)

// PresentPass plots one point per scalar into the visualization target.
// Vertex i fetches its value from texel (i/4, 0), channel i%4, of the
// state texture and lands at x = (i + 0.5) / N * 2 - 1. The fragment
// color is (value / normMax, 0, 0, 1) on a black background.
type PresentPass struct {
	device hal.Device

	shader         hal.ShaderModule
	bindLayout     hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	pipeline       hal.RenderPipeline
	group          hal.BindGroup

	points uint32
}

func newPresentPass(device hal.Device, res *ResourceSet) (*PresentPass, error) {
	p := &PresentPass{device: device, points: res.targetWidth}
	if err := p.createPipeline(res.TargetFormat); err != nil {
		p.Destroy()
		return nil, err
	}

	group, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "present_bind",
		Layout: p.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: res.StateView.NativeHandle()}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: res.PresentParams.NativeHandle(), Offset: 0, Size: presentParamsSize}},
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("%w: create present bind group: %w", pingpong.ErrPipelineBuild, err)
	}
	p.group = group

	slogger().Debug("gpu: present pass ready", "points", p.points, "target", FormatName(res.TargetFormat))
	return p, nil
}

func (p *PresentPass) createPipeline(target gputypes.TextureFormat) error {
	shader, err := createShaderModule(p.device, ShaderSource{Label: "present", WGSL: presentShaderSource})
	if err != nil {
		return err
	}
	p.shader = shader

	p.bindLayout, err = p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "present_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create present bind group layout: %w", pingpong.ErrPipelineBuild, err)
	}

	p.pipelineLayout, err = p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "present_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("%w: create present pipeline layout: %w", pingpong.ErrPipelineBuild, err)
	}

	p.pipeline, err = p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "present_pipeline",
		Layout: p.pipelineLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: presentVSEntry,
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: presentFSEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    target,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyPointList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create present pipeline: %w", pingpong.ErrPipelineBuild, err)
	}
	return nil
}

// Valid reports whether the pipeline and bind group exist.
func (p *PresentPass) Valid() bool {
	return p != nil && p.pipeline != nil && p.group != nil
}

// Encode records the draw. The target is cleared to black first.
func (p *PresentPass) Encode(enc hal.CommandEncoder, res *ResourceSet) error {
	if !p.Valid() {
		return pingpong.ErrDeviceNotReady
	}
	if err := res.checkComplete(); err != nil {
		return err
	}

	rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "present",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       res.TargetView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rp.SetViewport(0, 0, float32(res.targetWidth), 1, 0, 1)
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.group, nil)
	rp.Draw(p.points, 1, 0, 0)
	rp.End()
	return nil
}

// Destroy releases the pass resources.
func (p *PresentPass) Destroy() {
	if p == nil || p.device == nil {
		return
	}
	if p.group != nil {
		p.device.DestroyBindGroup(p.group)
		p.group = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipelineLayout != nil {
		p.device.DestroyPipelineLayout(p.pipelineLayout)
		p.pipelineLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
