// Package viewport maps pointer positions between the client space of a
// zoomed and panned image element, its displayed (layout) space and the
// natural pixel space of the underlying image.
//
// The element is transformed with a pan offset followed by a uniform scale
// about its top-left corner, so a displayed point d appears on screen at
// Origin + Pan + Scale*d.
package viewport

import "math"

const (
	MinScale = 1.0
	MaxScale = 10.0

	// WheelStep is the zoom factor applied per wheel notch.
	WheelStep = 1.1
	// ButtonStep is the zoom factor applied by the zoom in/out buttons.
	ButtonStep = 1.2
)

// Point is a position in one of the coordinate spaces.
type Point struct {
	X, Y float64
}

func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Mul(k float64) Point { return Point{p.X * k, p.Y * k} }
func (p Point) Div(k float64) Point { return Point{p.X / k, p.Y / k} }
func (p Point) Scale(kx, ky float64) Point { return Point{p.X * kx, p.Y * ky} }

// Rect is an axis aligned rectangle. Min is inclusive, Max exclusive.
type Rect struct {
	Min, Max Point
}

// R returns the rectangle spanned by the two corners in any order.
func R(x0, y0, x1, y1 float64) Rect {
	return Rect{
		Min: Point{math.Min(x0, x1), math.Min(y0, y1)},
		Max: Point{math.Max(x0, x1), math.Max(y0, y1)},
	}
}

func (r Rect) Dx() float64 { return r.Max.X - r.Min.X }
func (r Rect) Dy() float64 { return r.Max.Y - r.Min.Y }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Dx() <= 0 || r.Dy() <= 0 }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point { return Point{(r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2} }

// Intersect returns the overlap of r and s, or the zero Rect.
func (r Rect) Intersect(s Rect) Rect {
	out := Rect{
		Min: Point{math.Max(r.Min.X, s.Min.X), math.Max(r.Min.Y, s.Min.Y)},
		Max: Point{math.Min(r.Max.X, s.Max.X), math.Min(r.Max.Y, s.Max.Y)},
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Viewport holds the geometry of a displayed image.
type Viewport struct {
	// Natural is the pixel size of the image data.
	Natural Point
	// Display is the laid out size of the element before pan and zoom.
	Display Point
	// Origin is the client position of the untransformed element.
	Origin Point
	// Container is the client rectangle the element is shown in. Zoom buttons
	// anchor to its center.
	Container Rect

	Pan              Point
	Scale            float64
	DevicePixelRatio float64
}

// New returns a viewport that shows an image of the given natural size at
// its natural size.
func New(naturalW, naturalH int) *Viewport {
	n := Point{float64(naturalW), float64(naturalH)}
	return &Viewport{
		Natural:          n,
		Display:          n,
		Container:        Rect{Max: n},
		Scale:            MinScale,
		DevicePixelRatio: 1,
	}
}

// Fit lays the image out inside container keeping its aspect ratio and
// centering it, then resets zoom and pan.
func (v *Viewport) Fit(container Rect) {
	v.Container = container
	cw, ch := container.Dx(), container.Dy()
	if v.Natural.X <= 0 || v.Natural.Y <= 0 || cw <= 0 || ch <= 0 {
		v.Display = v.Natural
		v.Origin = container.Min
		v.resetZoom()
		return
	}
	k := math.Min(cw/v.Natural.X, ch/v.Natural.Y)
	v.Display = v.Natural.Mul(k)
	v.Origin = container.Min.Add(Point{(cw - v.Display.X) / 2, (ch - v.Display.Y) / 2})
	v.resetZoom()
}

// SetNatural updates the natural size after an edit changed the image
// dimensions and lays it out again.
func (v *Viewport) SetNatural(w, h int) {
	v.Natural = Point{float64(w), float64(h)}
	if v.Container.Empty() {
		v.Display = v.Natural
		v.resetZoom()
		return
	}
	v.Fit(v.Container)
}

func (v *Viewport) resetZoom() {
	v.Scale = MinScale
	v.Pan = Point{}
}

// Ratio returns the natural-to-displayed size ratio on each axis.
func (v *Viewport) Ratio() (float64, float64) {
	rx, ry := 1.0, 1.0
	if v.Display.X > 0 {
		rx = v.Natural.X / v.Display.X
	}
	if v.Display.Y > 0 {
		ry = v.Natural.Y / v.Display.Y
	}
	return rx, ry
}

func (v *Viewport) scale() float64 {
	if v.Scale <= 0 {
		return MinScale
	}
	return v.Scale
}

// ClientToDisplay inverts the pan and zoom transform. ok is false when the
// result falls outside the displayed element.
func (v *Viewport) ClientToDisplay(c Point) (Point, bool) {
	d := c.Sub(v.Origin).Sub(v.Pan).Div(v.scale())
	return d, v.InDisplay(d)
}

// DisplayToClient applies the pan and zoom transform.
func (v *Viewport) DisplayToClient(d Point) Point {
	return v.Origin.Add(v.Pan).Add(d.Mul(v.scale()))
}

// InDisplay reports whether d lies within [0,w]x[0,h].
func (v *Viewport) InDisplay(d Point) bool {
	return d.X >= 0 && d.Y >= 0 && d.X <= v.Display.X && d.Y <= v.Display.Y
}

// DisplayToNatural scales a displayed point to natural pixels.
func (v *Viewport) DisplayToNatural(d Point) Point {
	rx, ry := v.Ratio()
	return d.Scale(rx, ry)
}

// NaturalToDisplay scales natural pixels to a displayed point.
func (v *Viewport) NaturalToDisplay(n Point) Point {
	rx, ry := v.Ratio()
	return n.Scale(1/rx, 1/ry)
}

// ClientToNatural maps a pointer position straight to natural pixels.
func (v *Viewport) ClientToNatural(c Point) (Point, bool) {
	d, ok := v.ClientToDisplay(c)
	if !ok {
		return Point{}, false
	}
	return v.DisplayToNatural(d), true
}

// NaturalToClient maps natural pixels to the pointer position showing them.
func (v *Viewport) NaturalToClient(n Point) Point {
	return v.DisplayToClient(v.NaturalToDisplay(n))
}

// SetScale clamps s to [MinScale, MaxScale]. At MinScale the pan is reset.
func (v *Viewport) SetScale(s float64) {
	v.Scale = ClampScale(s)
	if v.Scale <= MinScale {
		v.Pan = Point{}
	}
}

// ClampScale limits s to the supported zoom range.
func ClampScale(s float64) float64 {
	if math.IsNaN(s) || s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}

// ZoomAt multiplies the scale by factor keeping the displayed point under
// the client position anchor fixed on screen.
func (v *Viewport) ZoomAt(anchor Point, factor float64) {
	old := v.scale()
	next := ClampScale(old * factor)
	if next <= MinScale {
		v.Scale = MinScale
		v.Pan = Point{}
		return
	}
	rel := anchor.Sub(v.Origin)
	v.Pan = rel.Sub(rel.Sub(v.Pan).Mul(next / old))
	v.Scale = next
}

// Wheel zooms in for negative deltaY and out for positive deltaY around the
// cursor position.
func (v *Viewport) Wheel(cursor Point, deltaY float64) {
	switch {
	case deltaY < 0:
		v.ZoomAt(cursor, WheelStep)
	case deltaY > 0:
		v.ZoomAt(cursor, 1/WheelStep)
	}
}

// ZoomIn zooms in one button step around the container center.
func (v *Viewport) ZoomIn() { v.ZoomAt(v.anchor(), ButtonStep) }

// ZoomOut zooms out one button step around the container center.
func (v *Viewport) ZoomOut() { v.ZoomAt(v.anchor(), 1/ButtonStep) }

func (v *Viewport) anchor() Point {
	if v.Container.Empty() {
		return v.Origin.Add(v.Display.Div(2))
	}
	return v.Container.Center()
}

// PanBy moves the image by a client delta. Panning is disabled when not zoomed.
func (v *Viewport) PanBy(dx, dy float64) {
	if v.scale() <= MinScale {
		v.Pan = Point{}
		return
	}
	v.Pan = v.Pan.Add(Point{dx, dy})
}

// ResetZoom returns to scale 1 with no pan.
func (v *Viewport) ResetZoom() { v.resetZoom() }

// DisplayToNaturalRect maps a displayed selection to natural pixels.
func (v *Viewport) DisplayToNaturalRect(r Rect) Rect {
	return Rect{Min: v.DisplayToNatural(r.Min), Max: v.DisplayToNatural(r.Max)}
}
