//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/pingpong"
	"github.com/gogpu/wgpu/hal"
	"github.com/x448/float16"
)

// stateFormat is the format of the state texture. The device must be able
// to sample it; there is no fallback.
const stateFormat = gputypes.TextureFormatRGBA32Float

// targetFormats lists the visualization target formats in preference
// order. The first one the device can render to and copy from is used.
var targetFormats = []gputypes.TextureFormat{
	gputypes.TextureFormatRGBA32Float,
	gputypes.TextureFormatRGBA16Float,
	gputypes.TextureFormatRGBA8Unorm,
}

// FormatName returns the name used in pingpong.Frame.Format.
func FormatName(f gputypes.TextureFormat) string {
	switch f {
	case gputypes.TextureFormatRGBA32Float:
		return "RGBA32Float"
	case gputypes.TextureFormatRGBA16Float:
		return "RGBA16Float"
	case gputypes.TextureFormatRGBA8Unorm:
		return "RGBA8Unorm"
	default:
		return fmt.Sprintf("TextureFormat(%d)", uint32(f))
	}
}

// bytesPerTexel returns the size of one RGBA texel in f.
func bytesPerTexel(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatRGBA32Float:
		return 16
	case gputypes.TextureFormatRGBA16Float:
		return 8
	default:
		return 4
	}
}

// formatSupport reports whether a format supports a texture usage.
// With an adapter the capability flags are consulted; without one (a
// device handed over by a provider) a 1x1 check texture is created.
type formatSupport struct {
	adapter hal.Adapter
	device  hal.Device
}

func (s formatSupport) supports(f gputypes.TextureFormat, usage gputypes.TextureUsage) bool {
	if s.adapter != nil {
		var need hal.TextureFormatCapabilityFlags
		if usage&gputypes.TextureUsageTextureBinding != 0 {
			need |= hal.TextureFormatCapabilitySampled
		}
		if usage&gputypes.TextureUsageRenderAttachment != 0 {
			need |= hal.TextureFormatCapabilityRenderAttachment
		}
		return s.adapter.TextureFormatCapabilities(f).Flags&need == need
	}

	tex, err := s.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "format_check",
		Size:          hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        f,
		Usage:         usage,
	})
	if err != nil {
		return false
	}
	s.device.DestroyTexture(tex)
	return true
}

// checkStateFormat fails with pingpong.ErrCapability when RGBA32Float
// textures cannot be sampled.
func (s formatSupport) checkStateFormat() error {
	if !s.supports(stateFormat, stateTextureUsage) {
		return fmt.Errorf("%w: %s textures cannot be sampled", pingpong.ErrCapability, FormatName(stateFormat))
	}
	return nil
}

// selectTargetFormat returns the first entry of targetFormats usable as
// a render attachment and copy source.
func (s formatSupport) selectTargetFormat() (gputypes.TextureFormat, error) {
	for _, f := range targetFormats {
		if s.supports(f, targetTextureUsage) {
			return f, nil
		}
		slogger().Debug("gpu: target format unsupported", "format", FormatName(f))
	}
	return 0, fmt.Errorf("%w: no renderable RGBA target format", pingpong.ErrCapability)
}

// decodeTexels converts n tightly packed texels of format f to float32
// RGBA values.
func decodeTexels(f gputypes.TextureFormat, data []byte, n int) []float32 {
	out := make([]float32, n*4)
	switch f {
	case gputypes.TextureFormatRGBA32Float:
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	case gputypes.TextureFormatRGBA16Float:
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(data[i*2:])).Float32()
		}
	default:
		for i := range out {
			out[i] = float32(data[i]) / 255
		}
	}
	return out
}
