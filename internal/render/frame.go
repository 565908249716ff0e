// Package render composes the on-screen preview of an editing session: the
// image under its pan and zoom, and the tool overlays drawn on top of it.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/example/pixshop/internal/mask"
	"github.com/example/pixshop/internal/theme"
	"github.com/example/pixshop/internal/viewport"
)

var (
	hotspotCore  = color.RGBA{255, 255, 255, 255}
	dashDark     = color.RGBA{0, 0, 0, 255}
	selectionDim = color.RGBA{A: 110}
)

// Style holds the colors used for the backdrop and overlays.
type Style struct {
	CheckerLight color.RGBA
	CheckerDark  color.RGBA
	Stroke       color.RGBA
	Hotspot      color.RGBA
	Selection    color.RGBA
}

// ThemeStyle takes the frame colors from t. A nil theme gives the default theme.
func ThemeStyle(t *theme.Theme) Style {
	if t == nil {
		t = theme.Default()
	}
	return Style{
		CheckerLight: t.CheckerLight,
		CheckerDark:  t.CheckerDark,
		Stroke:       t.Stroke,
		Hotspot:      t.Hotspot,
		Selection:    t.Selection,
	}
}

// Overlay is the tool state drawn over the image.
type Overlay struct {
	// Strokes are mask strokes in displayed coordinates.
	Strokes []mask.Stroke
	// BrushWidth is the stroke diameter in displayed pixels.
	BrushWidth float64
	// Hotspot is the retouch point in natural pixels.
	Hotspot *viewport.Point
	// Selection is the crop rectangle in displayed coordinates.
	Selection viewport.Rect
	// Style overrides the default theme colors.
	Style *Style
}

func (ov Overlay) style() Style {
	if ov.Style != nil {
		return *ov.Style
	}
	return ThemeStyle(nil)
}

// Frame draws img into dst as described by v: a checkerboard backdrop, the
// image placed at the element origin with the pan and zoom transform, and
// the overlays.
func Frame(dst *image.RGBA, img image.Image, v viewport.Viewport, ov Overlay) {
	st := ov.style()
	drawCheckerboard(dst, dst.Bounds(), 8, st.CheckerLight, st.CheckerDark)
	if img == nil {
		return
	}
	target := clientRect(v, viewport.Rect{Max: v.Display})
	if !target.Empty() {
		scaler := xdraw.Interpolator(xdraw.ApproxBiLinear)
		if target.Dx() > img.Bounds().Dx() {
			scaler = xdraw.NearestNeighbor
		}
		scaler.Scale(dst, target, img, img.Bounds(), draw.Over, nil)
	}

	if len(ov.Strokes) > 0 {
		brush := ov.BrushWidth
		if brush <= 0 {
			brush = mask.DefaultBrushWidth
		}
		scale := v.Scale
		if scale <= 0 {
			scale = 1
		}
		b := dst.Bounds()
		cover := mask.Paint(b.Size(), ov.Strokes, func(p viewport.Point) viewport.Point {
			return v.DisplayToClient(p).Sub(viewport.Pt(float64(b.Min.X), float64(b.Min.Y)))
		}, brush*scale/2)
		draw.DrawMask(dst, b, image.NewUniform(st.Stroke), image.Point{}, cover, image.Point{}, draw.Over)
	}

	if !ov.Selection.Empty() {
		sel := clientRect(v, ov.Selection)
		dimOutside(dst, target, sel)
		drawDashedRect(dst, sel, 6, 2, st.Selection, dashDark)
	}

	if ov.Hotspot != nil {
		c := v.NaturalToClient(*ov.Hotspot)
		cx, cy := int(math.Round(c.X)), int(math.Round(c.Y))
		drawDisc(dst, cx, cy, 9, st.Hotspot)
		drawDisc(dst, cx, cy, 5, hotspotCore)
		drawDisc(dst, cx, cy, 3, st.Hotspot)
	}
}

// Compose renders a frame of the given size for v.
func Compose(size image.Point, img image.Image, v viewport.Viewport, ov Overlay) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	Frame(dst, img, v, ov)
	return dst
}

func clientRect(v viewport.Viewport, r viewport.Rect) image.Rectangle {
	a := v.DisplayToClient(r.Min)
	b := v.DisplayToClient(r.Max)
	return image.Rect(
		int(math.Round(a.X)), int(math.Round(a.Y)),
		int(math.Round(b.X)), int(math.Round(b.Y)),
	)
}

// drawCheckerboard fills rect of dst with a checkerboard of the given
// colors. size is the square edge length.
func drawCheckerboard(dst *image.RGBA, rect image.Rectangle, size int, light, dark color.RGBA) {
	rect = rect.Intersect(dst.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if ((x/size)+(y/size))%2 == 0 {
				dst.SetRGBA(x, y, light)
			} else {
				dst.SetRGBA(x, y, dark)
			}
		}
	}
}

// dimOutside darkens the part of image that lies outside sel.
func dimOutside(dst *image.RGBA, img, sel image.Rectangle) {
	shade := image.NewUniform(selectionDim)
	sel = sel.Intersect(img)
	for _, r := range []image.Rectangle{
		image.Rect(img.Min.X, img.Min.Y, img.Max.X, sel.Min.Y),
		image.Rect(img.Min.X, sel.Max.Y, img.Max.X, img.Max.Y),
		image.Rect(img.Min.X, sel.Min.Y, sel.Min.X, sel.Max.Y),
		image.Rect(sel.Max.X, sel.Min.Y, img.Max.X, sel.Max.Y),
	} {
		if r.Empty() {
			continue
		}
		draw.Draw(dst, r, shade, image.Point{}, draw.Over)
	}
}

// drawDashedRect outlines rect with dashes alternating between c1 and c2.
func drawDashedRect(dst *image.RGBA, rect image.Rectangle, dash, thickness int, c1, c2 color.RGBA) {
	drawDashedLine(dst, rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y, dash, thickness, c1, c2)
	drawDashedLine(dst, rect.Max.X-thickness, rect.Min.Y, rect.Max.X-thickness, rect.Max.Y, dash, thickness, c1, c2)
	drawDashedLine(dst, rect.Min.X, rect.Max.Y-thickness, rect.Max.X, rect.Max.Y-thickness, dash, thickness, c1, c2)
	drawDashedLine(dst, rect.Min.X, rect.Min.Y, rect.Min.X, rect.Max.Y, dash, thickness, c1, c2)
}

// drawDashedLine draws an axis-aligned dashed line starting at (x0,y0).
func drawDashedLine(dst *image.RGBA, x0, y0, x1, y1, dash, thickness int, c1, c2 color.RGBA) {
	horiz := y0 == y1
	length := x1 - x0
	if !horiz {
		length = y1 - y0
	}
	b := dst.Bounds()
	for i := 0; i < length; i++ {
		col := c1
		if (i/dash)%2 == 1 {
			col = c2
		}
		for t := 0; t < thickness; t++ {
			p := image.Pt(x0+i, y0+t)
			if !horiz {
				p = image.Pt(x0+t, y0+i)
			}
			if p.In(b) {
				dst.SetRGBA(p.X, p.Y, col)
			}
		}
	}
}

func drawDisc(dst *image.RGBA, cx, cy, r int, col color.RGBA) {
	b := dst.Bounds()
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			p := image.Pt(cx+dx, cy+dy)
			if p.In(b) {
				dst.SetRGBA(p.X, p.Y, col)
			}
		}
	}
}
