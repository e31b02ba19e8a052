//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/pingpong"
	"github.com/gogpu/wgpu/hal"
)

// ComputePass advances the state vector: it reads the current buffer and
// writes (v + 1) mod M into the next buffer, one record per invocation.
//
// One bind group is built per buffer orientation, so a tick only selects
// the group matching the swapper parity. Neither group binds the same
// buffer for reading and writing.
type ComputePass struct {
	device hal.Device

	shader         hal.ShaderModule
	bindLayout     hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	pipeline       hal.ComputePipeline

	groups  [2]hal.BindGroup
	records uint32
}

func newComputePass(device hal.Device, res *ResourceSet) (*ComputePass, error) {
	p := &ComputePass{device: device, records: uint32(res.records)} //nolint:gosec // validated config
	if err := p.createPipeline(); err != nil {
		p.Destroy()
		return nil, err
	}
	if err := p.createBindGroups(res); err != nil {
		p.Destroy()
		return nil, err
	}
	slogger().Debug("gpu: compute pass ready", "records", p.records, "workgroups", workgroups(int(p.records)))
	return p, nil
}

func (p *ComputePass) createPipeline() error {
	shader, err := createShaderModule(p.device, ShaderSource{Label: "step", WGSL: stepShaderSource})
	if err != nil {
		return err
	}
	p.shader = shader

	p.bindLayout, err = p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "step_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create step bind group layout: %w", pingpong.ErrPipelineBuild, err)
	}

	p.pipelineLayout, err = p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "step_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("%w: create step pipeline layout: %w", pingpong.ErrPipelineBuild, err)
	}

	p.pipeline, err = p.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "step_pipeline", Layout: p.pipelineLayout,
		Compute: hal.ComputeState{Module: p.shader, EntryPoint: stepEntryPoint},
	})
	if err != nil {
		return fmt.Errorf("%w: create step compute pipeline: %w", pingpong.ErrPipelineBuild, err)
	}
	return nil
}

// createBindGroups builds group 0 (slot A read, slot B write) and group 1
// (slot B read, slot A write).
func (p *ComputePass) createBindGroups(res *ResourceSet) error {
	a, b := res.Buffers.Slots()
	size := res.BufferSize()
	for parity, pair := range [2][2]hal.Buffer{{a, b}, {b, a}} {
		src, dst := pair[0], pair[1]
		if src == dst {
			return fmt.Errorf("%w: step bind group %d", pingpong.ErrAliasedBinding, parity)
		}
		group, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  fmt.Sprintf("step_bind_%d", parity),
			Layout: p.bindLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: src.NativeHandle(), Offset: 0, Size: size}},
				{Binding: 1, Resource: gputypes.BufferBinding{Buffer: dst.NativeHandle(), Offset: 0, Size: size}},
				{Binding: 2, Resource: gputypes.BufferBinding{Buffer: res.StepParams.NativeHandle(), Offset: 0, Size: stepParamsSize}},
			},
		})
		if err != nil {
			return fmt.Errorf("%w: create step bind group %d: %w", pingpong.ErrPipelineBuild, parity, err)
		}
		p.groups[parity] = group
	}
	return nil
}

// Valid reports whether the pipeline and both bind groups exist.
func (p *ComputePass) Valid() bool {
	return p != nil && p.pipeline != nil && p.groups[0] != nil && p.groups[1] != nil
}

// Encode records the dispatch for the current buffer orientation.
func (p *ComputePass) Encode(enc hal.CommandEncoder, res *ResourceSet) error {
	if !p.Valid() {
		return pingpong.ErrDeviceNotReady
	}
	src, dst := res.Buffers.Current(), res.Buffers.Next()
	if src == dst {
		return pingpong.ErrAliasedBinding
	}

	enc.TransitionBuffers([]hal.BufferBarrier{
		res.bufferBarrier(false, gputypes.BufferUsageStorage),
		res.bufferBarrier(true, gputypes.BufferUsageStorage),
	})

	pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "step"})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.groups[res.Buffers.Parity()], nil)
	pass.Dispatch(workgroups(int(p.records)), 1, 1)
	pass.End()
	return nil
}

// Destroy releases the pass resources.
func (p *ComputePass) Destroy() {
	if p == nil || p.device == nil {
		return
	}
	for i, g := range p.groups {
		if g != nil {
			p.device.DestroyBindGroup(g)
			p.groups[i] = nil
		}
	}
	if p.pipeline != nil {
		p.device.DestroyComputePipeline(p.pipeline)
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
