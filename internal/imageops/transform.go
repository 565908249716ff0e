// Package imageops implements the pixel operations performed locally on
// snapshots: crop extraction, quarter turns, mirroring, resampling and
// encoding.
package imageops

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	xdraw "golang.org/x/image/draw"

	"github.com/example/pixshop/internal/viewport"
)

// ErrEmptySelection is returned when a crop selection has no area inside the image.
var ErrEmptySelection = errors.New("crop selection is empty")

// Direction is a quarter-turn direction.
type Direction int

const (
	Left  Direction = -90
	Right Direction = 90
)

// ParseDirection accepts left/right, ccw/cw and -90/90.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "ccw", "-90":
		return Left, nil
	case "right", "cw", "90", "+90":
		return Right, nil
	}
	return 0, fmt.Errorf("invalid rotation %q", s)
}

func (d Direction) String() string {
	if d == Left {
		return "left"
	}
	return "right"
}

// Axis is a mirror axis.
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

// ParseAxis accepts h/horizontal and v/vertical.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h", "horizontal", "x":
		return Horizontal, nil
	case "v", "vertical", "y":
		return Vertical, nil
	}
	return 0, fmt.Errorf("invalid flip axis %q", s)
}

func (a Axis) String() string {
	if a == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Rotate turns src a quarter turn about its centre. Width and height swap.
// Right is clockwise. Pixels are remapped exactly, without resampling.
func Rotate(src image.Image, dir Direction) *image.RGBA {
	in := ToRGBA(src)
	w, h := in.Bounds().Dx(), in.Bounds().Dy()
	out := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		row := in.Pix[y*in.Stride:]
		for x := 0; x < w; x++ {
			dx, dy := h-1-y, x
			if dir == Left {
				dx, dy = y, w-1-x
			}
			copy(out.Pix[dy*out.Stride+dx*4:dy*out.Stride+dx*4+4], row[x*4:x*4+4])
		}
	}
	return out
}

// Flip mirrors src across the given axis.
func Flip(src image.Image, axis Axis) *image.RGBA {
	if axis == Vertical {
		return transform.FlipV(src)
	}
	return transform.FlipH(src)
}

// Upscale resamples src by factor with a Lanczos filter.
func Upscale(src image.Image, factor float64) (*image.RGBA, error) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("invalid upscale factor %v", factor)
	}
	b := src.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	h := int(math.Round(float64(b.Dy()) * factor))
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("upscale factor %v collapses image", factor)
	}
	return transform.Resize(src, w, h, transform.Lanczos), nil
}

// Crop extracts the natural-resolution region under sel, a selection in
// displayed coordinates of a display-sized element. ratio is the
// natural-to-displayed size ratio per axis. The output canvas is the
// selection size multiplied by dpr.
func Crop(src image.Image, sel viewport.Rect, display viewport.Point, ratio viewport.Point, dpr float64) (*image.RGBA, error) {
	if dpr <= 0 {
		dpr = 1
	}
	sel = sel.Intersect(viewport.Rect{Max: display})
	if sel.Empty() {
		return nil, ErrEmptySelection
	}
	b := src.Bounds()
	nat := image.Rect(
		b.Min.X+int(math.Floor(sel.Min.X*ratio.X)),
		b.Min.Y+int(math.Floor(sel.Min.Y*ratio.Y)),
		b.Min.X+int(math.Ceil(sel.Max.X*ratio.X)),
		b.Min.Y+int(math.Ceil(sel.Max.Y*ratio.Y)),
	).Intersect(b)
	if nat.Empty() {
		return nil, ErrEmptySelection
	}
	w := int(math.Round(sel.Dx() * dpr))
	h := int(math.Round(sel.Dy() * dpr))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if nat.Dx() == w && nat.Dy() == h {
		draw.Draw(dst, dst.Bounds(), src, nat.Min, draw.Src)
		return dst, nil
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, nat, draw.Src, nil)
	return dst, nil
}
