//go:build !nogpu

package gpu

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/pingpong"
	"github.com/gogpu/wgpu/hal"
)

// encodeReadback records the copies of the state texture and the
// visualization target into their staging buffers.
func encodeReadback(enc hal.CommandEncoder, res *ResourceSet) {
	enc.TransitionTextures([]hal.TextureBarrier{
		stateBarrier(res.StateTexture, gputypes.TextureUsageTextureBinding, gputypes.TextureUsageCopySrc),
		stateBarrier(res.Target, gputypes.TextureUsageRenderAttachment, gputypes.TextureUsageCopySrc),
	})

	enc.CopyTextureToBuffer(res.StateTexture, res.StateStaging, []hal.BufferTextureCopy{
		readbackRegion(res.StateTexture, res.stateWidth, alignPitch(res.StateRowBytes())),
	})
	enc.CopyTextureToBuffer(res.Target, res.TargetStaging, []hal.BufferTextureCopy{
		readbackRegion(res.Target, res.targetWidth, alignPitch(res.TargetRowBytes())),
	})

	enc.TransitionTextures([]hal.TextureBarrier{
		stateBarrier(res.StateTexture, gputypes.TextureUsageCopySrc, gputypes.TextureUsageTextureBinding),
		stateBarrier(res.Target, gputypes.TextureUsageCopySrc, gputypes.TextureUsageRenderAttachment),
	})
}

func readbackRegion(tex hal.Texture, width, pitch uint32) hal.BufferTextureCopy {
	return hal.BufferTextureCopy{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: pitch, RowsPerImage: 1},
		TextureBase: hal.ImageCopyTexture{
			Texture: tex,
			Aspect:  gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{Width: width, Height: 1, DepthOrArrayLayers: 1},
	}
}

// readStaging maps a staging buffer and copies out its first n bytes.
func readStaging(device hal.Device, buf hal.Buffer, n uint32) ([]byte, error) {
	mapping, err := device.MapBuffer(buf, 0, uint64(n))
	if err != nil {
		return nil, fmt.Errorf("gpu: map staging buffer: %w", err)
	}
	if mapping.Ptr == nil {
		_ = device.UnmapBuffer(buf)
		return nil, fmt.Errorf("gpu: staging buffer mapped to nil")
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(mapping.Ptr), n)) //nolint:gosec // mapping covers n bytes
	if err := device.UnmapBuffer(buf); err != nil {
		return nil, fmt.Errorf("gpu: unmap staging buffer: %w", err)
	}
	return out, nil
}

// readback submits the copies, blocks until they have completed along
// with every earlier submission, and decodes both images.
func readback(ctx context.Context, device hal.Device, sub *submitter, res *ResourceSet) (pingpong.Frame, error) {
	index, err := sub.submit("readback", func(enc hal.CommandEncoder) error {
		encodeReadback(enc, res)
		return nil
	})
	if err != nil {
		return pingpong.Frame{}, err
	}
	if err := sub.wait(ctx, index); err != nil {
		return pingpong.Frame{}, err
	}

	stateBytes, err := readStaging(device, res.StateStaging, res.StateRowBytes())
	if err != nil {
		return pingpong.Frame{}, err
	}
	targetBytes, err := readStaging(device, res.TargetStaging, res.TargetRowBytes())
	if err != nil {
		return pingpong.Frame{}, err
	}

	state := decodeTexels(stateFormat, stateBytes, int(res.stateWidth))
	return pingpong.Frame{
		State:  state[:res.length],
		Colors: decodeTexels(res.TargetFormat, targetBytes, int(res.targetWidth)),
		Format: FormatName(res.TargetFormat),
	}, nil
}
