package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/blur"
)

// ShadowOptions configures the drop shadow placed behind exported previews.
type ShadowOptions struct {
	Radius  float64
	Offset  image.Point
	Opacity float64
}

// DefaultShadowOptions returns a soft shadow offset down and to the right.
func DefaultShadowOptions() ShadowOptions {
	return ShadowOptions{
		Radius:  18,
		Offset:  image.Pt(12, 12),
		Opacity: 0.5,
	}
}

// WithShadow returns img on a transparent canvas large enough to hold a
// blurred drop shadow. The second result is where the top-left corner of img
// ended up on the new canvas.
func WithShadow(img *image.RGBA, opts ShadowOptions) (*image.RGBA, image.Point) {
	if img == nil || img.Bounds().Empty() || opts.Opacity <= 0 {
		return img, image.Point{}
	}
	opacity := opts.Opacity
	if opacity > 1 {
		opacity = 1
	}
	pad := int(opts.Radius*2 + 0.5)
	if pad < 0 {
		pad = 0
	}

	src := img.Bounds()
	spread := src.Inset(-pad)
	shadow := spread.Add(opts.Offset)
	union := src.Union(shadow)
	canvas := union.Sub(union.Min)
	shift := src.Min.Sub(union.Min)

	// Shadow silhouette from the image alpha, shifted into the canvas.
	silhouette := image.NewRGBA(canvas)
	tint := color.RGBA{A: uint8(opacity*255 + 0.5)}
	draw.DrawMask(silhouette, src.Add(opts.Offset).Sub(union.Min), image.NewUniform(tint), image.Point{}, img, src.Min, draw.Src)
	if opts.Radius > 0 {
		silhouette = blur.Gaussian(silhouette, opts.Radius)
	}

	out := image.NewRGBA(canvas)
	draw.Draw(out, canvas, silhouette, image.Point{}, draw.Src)
	draw.Draw(out, src.Sub(union.Min), img, src.Min, draw.Over)
	return out, shift
}
