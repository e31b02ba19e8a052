//go:build !nogpu

package gpu

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// Embedded WGSL shader sources.

//go:embed shaders/step.wgsl
var stepShaderSource string

//go:embed shaders/present.wgsl
var presentShaderSource string

// Entry points.
const (
	stepEntryPoint    = "main"
	presentVSEntry    = "vs_main"
	presentFSEntry    = "fs_main"
	stepWorkgroupSize = 64
)

// ShaderSource names one embedded WGSL program.
type ShaderSource struct {
	Label string
	WGSL  string
}

// Shaders returns the embedded shader programs in pipeline order.
func Shaders() []ShaderSource {
	return []ShaderSource{
		{Label: "step", WGSL: stepShaderSource},
		{Label: "present", WGSL: presentShaderSource},
	}
}

// StepParams is the uniform block of step.wgsl.
type StepParams struct {
	Modulus float32
	Records uint32
	_       [2]uint32
}

// PresentParams is the uniform block of present.wgsl.
type PresentParams struct {
	Count   uint32
	NormMax float32
	_       [2]uint32
}

const (
	stepParamsSize    = uint64(unsafe.Sizeof(StepParams{}))
	presentParamsSize = uint64(unsafe.Sizeof(PresentParams{}))
)

func (p StepParams) bytes() []byte {
	b := make([]byte, stepParamsSize)
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(p.Modulus))
	binary.LittleEndian.PutUint32(b[4:], p.Records)
	return b
}

func (p PresentParams) bytes() []byte {
	b := make([]byte, presentParamsSize)
	binary.LittleEndian.PutUint32(b[0:], p.Count)
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(p.NormMax))
	return b
}

// workgroups returns the dispatch size covering n invocations.
func workgroups(n int) uint32 {
	return uint32((n + stepWorkgroupSize - 1) / stepWorkgroupSize) //nolint:gosec // record count fits uint32
}
