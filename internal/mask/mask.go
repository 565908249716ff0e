// Package mask records freehand brush gestures in displayed image space and
// rasterizes them into binary masks at the image's natural resolution.
package mask

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/vector"

	"github.com/example/pixshop/internal/viewport"
)

// DefaultBrushWidth is the brush diameter in displayed pixels.
const DefaultBrushWidth = 30

var (
	// ErrEmpty is returned when a mask is requested without any strokes.
	ErrEmpty = errors.New("mask has no strokes")
	// ErrBadSize is returned for zero sized natural or displayed dimensions.
	ErrBadSize = errors.New("mask size must be positive")
)

// Stroke is a polyline in displayed coordinates.
type Stroke []viewport.Point

// Recorder collects strokes while a draw gesture is active.
type Recorder struct {
	strokes []Stroke
	active  bool
}

// Begin starts a new stroke at p.
func (r *Recorder) Begin(p viewport.Point) {
	r.strokes = append(r.strokes, Stroke{p})
	r.active = true
}

// Add extends the active stroke. It is ignored when no gesture is active.
func (r *Recorder) Add(p viewport.Point) {
	if !r.active || len(r.strokes) == 0 {
		return
	}
	last := len(r.strokes) - 1
	r.strokes[last] = append(r.strokes[last], p)
}

// End finishes the active stroke.
func (r *Recorder) End() { r.active = false }

// Active reports whether a gesture is in progress.
func (r *Recorder) Active() bool { return r.active }

// Empty reports whether nothing has been drawn.
func (r *Recorder) Empty() bool { return len(r.strokes) == 0 }

// Clear drops every stroke.
func (r *Recorder) Clear() {
	r.strokes = nil
	r.active = false
}

// Strokes returns a copy of the recorded strokes.
func (r *Recorder) Strokes() []Stroke {
	out := make([]Stroke, len(r.strokes))
	for i, s := range r.strokes {
		out[i] = append(Stroke(nil), s...)
	}
	return out
}

// Options controls rasterization.
type Options struct {
	// BrushWidth is the stroke diameter in displayed pixels.
	BrushWidth float64
}

// Rasterize draws strokes onto a black canvas of the natural size with a
// white round-capped, round-joined brush. Displayed points and the brush
// width are scaled by the natural-to-displayed ratio.
func Rasterize(strokes []Stroke, natural image.Point, display viewport.Point, opts Options) (*image.Gray, error) {
	if natural.X <= 0 || natural.Y <= 0 || display.X <= 0 || display.Y <= 0 {
		return nil, ErrBadSize
	}
	brush := opts.BrushWidth
	if brush <= 0 {
		brush = DefaultBrushWidth
	}
	kx := float64(natural.X) / display.X
	ky := float64(natural.Y) / display.Y
	radius := brush * kx / 2

	pad := int(math.Ceil(radius)) + 2
	w, h := natural.X+2*pad, natural.Y+2*pad
	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Src

	off := viewport.Pt(float64(pad), float64(pad))
	for _, s := range strokes {
		pts := make([]viewport.Point, 0, len(s))
		for _, p := range s {
			pts = append(pts, p.Scale(kx, ky).Add(off))
		}
		addClipped(z, pts, radius, w, h)
	}

	cover := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(cover, cover.Bounds(), image.Opaque, image.Point{})

	out := image.NewGray(image.Rect(0, 0, natural.X, natural.Y))
	for y := 0; y < natural.Y; y++ {
		src := cover.Pix[(y+pad)*cover.Stride+pad:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < natural.X; x++ {
			if src[x] >= 0x80 {
				dst[x] = 0xff
			}
		}
	}
	return out, nil
}

// Paint rasterizes strokes into an anti-aliased coverage image of size,
// mapping every point through project first. It is used for on-screen
// overlays where the mask is shown under the current zoom.
func Paint(size image.Point, strokes []Stroke, project func(viewport.Point) viewport.Point, radius float64) *image.Alpha {
	cover := image.NewAlpha(image.Rect(0, 0, size.X, size.Y))
	if size.X <= 0 || size.Y <= 0 || len(strokes) == 0 {
		return cover
	}
	z := vector.NewRasterizer(size.X, size.Y)
	for _, s := range strokes {
		pts := make([]viewport.Point, len(s))
		for i, p := range s {
			pts[i] = project(p)
		}
		addClipped(z, pts, radius, size.X, size.Y)
	}
	z.Draw(cover, cover.Bounds(), image.Opaque, image.Point{})
	return cover
}

// Encode returns the PNG encoding of m.
func Encode(m image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Coverage returns the fraction of white pixels in m.
func Coverage(m *image.Gray) float64 {
	b := m.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	white := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if m.GrayAt(x, y) == (color.Gray{Y: 0xff}) {
				white++
			}
		}
	}
	return float64(white) / float64(total)
}


// addClipped draws the parts of pts that can reach a w by h canvas. Points
// far outside would overflow the rasterizer's fixed-point math, so segments
// are cut at a box one brush width around the canvas. The pieces kept are
// part of the original path and their end caps stay outside the canvas.
func addClipped(z *vector.Rasterizer, pts []viewport.Point, radius float64, w, h int) {
	m := 2*radius + 2
	box := viewport.R(-m, -m, float64(w)+m, float64(h)+m)
	for _, run := range clipStroke(pts, box) {
		addStroke(z, run, radius)
	}
}

// clipStroke splits a polyline into the runs that lie inside box. Non-finite
// points are dropped.
func clipStroke(pts []viewport.Point, box viewport.Rect) [][]viewport.Point {
	in := make([]viewport.Point, 0, len(pts))
	for _, p := range pts {
		if !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0) {
			in = append(in, p)
		}
	}
	var runs [][]viewport.Point
	if len(in) == 1 {
		p := in[0]
		if p.X >= box.Min.X && p.X <= box.Max.X && p.Y >= box.Min.Y && p.Y <= box.Max.Y {
			runs = append(runs, in)
		}
		return runs
	}
	var cur []viewport.Point
	flush := func() {
		if len(cur) > 0 {
			runs = append(runs, cur)
			cur = nil
		}
	}
	for i := 1; i < len(in); i++ {
		a, b, ok := clipSegment(in[i-1], in[i], box)
		if !ok {
			flush()
			continue
		}
		if len(cur) == 0 || cur[len(cur)-1] != a {
			flush()
			cur = []viewport.Point{a}
		}
		cur = append(cur, b)
		if b != in[i] {
			flush()
		}
	}
	flush()
	return runs
}

// clipSegment clips a-b to box (Liang-Barsky). Unclipped ends are returned
// unchanged.
func clipSegment(a, b viewport.Point, box viewport.Rect) (viewport.Point, viewport.Point, bool) {
	d := b.Sub(a)
	t0, t1 := 0.0, 1.0
	for _, e := range [4][2]float64{
		{-d.X, a.X - box.Min.X},
		{d.X, box.Max.X - a.X},
		{-d.Y, a.Y - box.Min.Y},
		{d.Y, box.Max.Y - a.Y},
	} {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return a, b, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return a, b, false
			}
			t1 = math.Min(t1, r)
		}
	}
	ca, cb := a, b
	if t0 > 0 {
		ca = a.Add(d.Mul(t0))
	}
	if t1 < 1 {
		cb = a.Add(d.Mul(t1))
	}
	return ca, cb, true
}

// addStroke emits one polygon per segment and one disc per vertex. All
// polygons share the same winding so overlaps accumulate instead of cancel.
func addStroke(z *vector.Rasterizer, pts []viewport.Point, radius float64) {
	if len(pts) == 0 || radius <= 0 {
		return
	}
	for i, p := range pts {
		addPolygon(z, disc(p, radius))
		if i == 0 {
			continue
		}
		q := pts[i-1]
		d := p.Sub(q)
		l := math.Hypot(d.X, d.Y)
		if l == 0 {
			continue
		}
		n := viewport.Pt(-d.Y/l*radius, d.X/l*radius)
		addPolygon(z, []viewport.Point{q.Add(n), p.Add(n), p.Sub(n), q.Sub(n)})
	}
}

func disc(c viewport.Point, r float64) []viewport.Point {
	n := int(math.Ceil(math.Pi * r))
	if n < 16 {
		n = 16
	}
	if n > 256 {
		n = 256
	}
	out := make([]viewport.Point, n)
	for i := range out {
		a := 2 * math.Pi * float64(i) / float64(n)
		out[i] = viewport.Pt(c.X+r*math.Cos(a), c.Y+r*math.Sin(a))
	}
	return out
}

func addPolygon(z *vector.Rasterizer, poly []viewport.Point) {
	if signedArea(poly) < 0 {
		for i, j := 0, len(poly)-1; i < j; i, j = i+1, j-1 {
			poly[i], poly[j] = poly[j], poly[i]
		}
	}
	z.MoveTo(float32(poly[0].X), float32(poly[0].Y))
	for _, p := range poly[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
}

func signedArea(poly []viewport.Point) float64 {
	var a float64
	for i := range poly {
		p, q := poly[i], poly[(i+1)%len(poly)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}
