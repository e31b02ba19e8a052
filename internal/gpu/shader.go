//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/pingpong"
	"github.com/gogpu/wgpu/hal"
)

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(wgsl string) ([]uint32, error) {
	b, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words, nil
}

// createShaderModule hands WGSL to the device. When the device rejects
// it, the source is run through naga to attach a compiler diagnostic.
func createShaderModule(device hal.Device, src ShaderSource) (hal.ShaderModule, error) {
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  src.Label,
		Source: hal.ShaderSource{WGSL: src.WGSL},
	})
	if err == nil {
		return module, nil
	}

	if _, diag := CompileSPIRV(src.WGSL); diag != nil {
		slogger().Error("gpu: shader rejected",
			"shader", src.Label,
			"err", err,
			"diagnostic", diag.Error())
		return nil, fmt.Errorf("%w: shader %s: %w (%v)", pingpong.ErrPipelineBuild, src.Label, err, diag)
	}
	slogger().Error("gpu: shader rejected by device", "shader", src.Label, "err", err)
	return nil, fmt.Errorf("%w: shader %s: %w", pingpong.ErrPipelineBuild, src.Label, err)
}
