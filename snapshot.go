package pingpong

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultSnapshotHeight is the displayed height of the N x 1 visualization.
const DefaultSnapshotHeight = 20

// captionHeight fits one line of basicfont.Face7x13 plus padding.
const captionHeight = 16

// PNGSink writes every frame's visualization target to a PNG file.
//
// The N x 1 target is scaled up with nearest-neighbour filtering so each
// point becomes a Height x Height square, keeping the pixelated look.
// A caption with the tick number is drawn below the strip.
type PNGSink struct {
	// Dir receives one file per tick, named tick-NNNNNN.png.
	Dir string

	// Height is the strip height in pixels. Zero means DefaultSnapshotHeight.
	Height int

	// NoCaption disables the caption line.
	NoCaption bool
}

// Report writes f to Dir. Errors are logged and otherwise ignored.
func (s PNGSink) Report(f Frame) {
	path := filepath.Join(s.Dir, fmt.Sprintf("tick-%06d.png", f.Tick))
	if err := s.write(path, f); err != nil {
		Logger().Warn("pingpong: snapshot failed", "path", path, "err", err)
		return
	}
	Logger().Debug("pingpong: snapshot written", "path", path)
}

func (s PNGSink) write(path string, f Frame) (err error) {
	img := RenderSnapshot(f, s.Height, !s.NoCaption)
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(out, img)
}

// RenderSnapshot converts the visualization target of f to an image.
// height is the strip height (zero means DefaultSnapshotHeight).
func RenderSnapshot(f Frame, height int, caption bool) *image.NRGBA {
	if height <= 0 {
		height = DefaultSnapshotHeight
	}
	n := len(f.Colors) / 4

	strip := image.NewNRGBA(image.Rect(0, 0, n, 1))
	for i := range n {
		px := f.Colors[i*4 : i*4+4]
		strip.SetNRGBA(i, 0, color.NRGBA{
			R: unitToByte(px[0]),
			G: unitToByte(px[1]),
			B: unitToByte(px[2]),
			A: unitToByte(px[3]),
		})
	}

	h := height
	if caption {
		h += captionHeight
	}
	dst := image.NewNRGBA(image.Rect(0, 0, n*height, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.NearestNeighbor.Scale(dst, image.Rect(0, 0, n*height, height), strip, strip.Bounds(), draw.Src, nil)

	if caption {
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(color.White),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(2, height+12),
		}
		d.DrawString(fmt.Sprintf("tick %d", f.Tick))
	}
	return dst
}

func unitToByte(v float32) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
