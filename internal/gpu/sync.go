//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/pingpong"
	"github.com/gogpu/wgpu/hal"
)

// checkComplete verifies that the state texture holds exactly one texel
// per record of a state buffer and that the target has one texel per
// scalar.
func (r *ResourceSet) checkComplete() error {
	if r.StateTexture == nil || r.Target == nil || r.Buffers == nil {
		return fmt.Errorf("%w: resources released", pingpong.ErrIncompleteTarget)
	}
	if uint64(r.stateWidth)*16 != r.BufferSize() {
		return fmt.Errorf("%w: state texture is %d texels wide, buffer holds %d bytes",
			pingpong.ErrIncompleteTarget, r.stateWidth, r.BufferSize())
	}
	if int(r.targetWidth) != r.length {
		return fmt.Errorf("%w: target is %d texels wide, vector has %d values",
			pingpong.ErrIncompleteTarget, r.targetWidth, r.length)
	}
	return nil
}

// encodeTextureSync records the copy of the next buffer into the state
// texture. The whole buffer is one texture row, record i landing at
// texel (i, 0).
func encodeTextureSync(enc hal.CommandEncoder, res *ResourceSet) error {
	if err := res.checkComplete(); err != nil {
		return err
	}
	next := res.Buffers.Next()

	enc.TransitionBuffers([]hal.BufferBarrier{
		res.bufferBarrier(true, gputypes.BufferUsageCopySrc),
	})
	enc.TransitionTextures([]hal.TextureBarrier{
		stateBarrier(res.StateTexture, gputypes.TextureUsageTextureBinding, gputypes.TextureUsageCopyDst),
	})

	enc.CopyBufferToTexture(next, res.StateTexture, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: res.StateRowBytes(), RowsPerImage: 1},
		TextureBase: hal.ImageCopyTexture{
			Texture:  res.StateTexture,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: 0, Y: 0, Z: 0},
			Aspect:   gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{Width: res.stateWidth, Height: 1, DepthOrArrayLayers: 1},
	}})

	enc.TransitionTextures([]hal.TextureBarrier{
		stateBarrier(res.StateTexture, gputypes.TextureUsageCopyDst, gputypes.TextureUsageTextureBinding),
	})
	return nil
}

func stateBarrier(tex hal.Texture, from, to gputypes.TextureUsage) hal.TextureBarrier {
	return hal.TextureBarrier{
		Texture: tex,
		Range: hal.TextureRange{
			Aspect:          gputypes.TextureAspectAll,
			MipLevelCount:   1,
			ArrayLayerCount: 1,
		},
		Usage: hal.TextureUsageTransition{OldUsage: from, NewUsage: to},
	}
}
