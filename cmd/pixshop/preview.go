package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/example/pixshop/internal/render"
	"github.com/example/pixshop/internal/theme"
	"github.com/example/pixshop/internal/viewport"
)

// previewCmd renders the editor frame, with overlays, to a PNG.
type previewCmd struct {
	in         imageIO
	sizeSpec   string
	size       image.Point
	hotspot    string
	selection  string
	strokes    strokeFlags
	zoom       float64
	shadow     bool
	background string
	bg         *color.RGBA
	*root
	fs *flag.FlagSet
}

func (p *previewCmd) FlagSet() *flag.FlagSet {
	return p.fs
}

func parsePreviewCmd(args []string, r *root) (*previewCmd, error) {
	fs := newFlagSet("preview")
	p := &previewCmd{root: r, fs: fs}
	fs.Usage = usageFunc(p)
	p.in.bind(fs)
	fs.StringVar(&p.sizeSpec, "size", "", "frame size WxH (default: the image size)")
	fs.StringVar(&p.hotspot, "hotspot", "", "draw the retouch marker at x,y in image pixels")
	fs.StringVar(&p.selection, "rect", "", "draw a crop selection x0,y0,x1,y1 in display pixels")
	fs.StringVar(&p.strokes.stroke, "stroke", "", `draw mask strokes in display pixels, "x,y x,y;x,y ..."`)
	fs.Float64Var(&p.strokes.brush, "brush", 0, "brush diameter in display pixels (default from config)")
	fs.Float64Var(&p.zoom, "zoom", 1, "zoom level between 1 and 10")
	fs.BoolVar(&p.shadow, "shadow", false, "add a drop shadow around the frame")
	fs.StringVar(&p.background, "background", "", "color behind the shadow: a color name or #RRGGBB[AA]")
	if err := parseFlags(p, args); err != nil {
		return nil, err
	}
	if p.in.output == "" {
		return nil, errors.New("preview requires -output (use view to open a window)")
	}
	p.in.toClipboard = false
	if err := p.in.validate(); err != nil {
		return nil, err
	}
	if p.sizeSpec != "" {
		size, err := parseSize(p.sizeSpec)
		if err != nil {
			return nil, err
		}
		p.size = size
	}
	if p.strokes.stroke != "" {
		if err := p.strokes.parse(); err != nil {
			return nil, err
		}
	}
	if p.background != "" {
		c, err := parseColor(p.background)
		if err != nil {
			return nil, err
		}
		p.bg = &c
	}
	return p, nil
}

func parseSize(s string) (image.Point, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return image.Point{}, fmt.Errorf("invalid size %q: want WxH", s)
	}
	x, err1 := strconv.Atoi(w)
	y, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil || x <= 0 || y <= 0 {
		return image.Point{}, fmt.Errorf("invalid size %q: want WxH", s)
	}
	return image.Pt(x, y), nil
}

// parseColor accepts an SVG color name or a hex value.
func parseColor(s string) (color.RGBA, error) {
	spec := strings.ToLower(strings.TrimSpace(s))
	if spec == "" {
		return color.RGBA{}, fmt.Errorf("color cannot be empty")
	}
	if c, ok := colornames.Map[spec]; ok {
		return c, nil
	}
	if strings.HasPrefix(spec, "#") {
		if c, err := theme.ParseColor(spec); err == nil {
			return c, nil
		}
	}
	return color.RGBA{}, fmt.Errorf("invalid color %q", s)
}

func (p *previewCmd) Run() error {
	snap, err := p.in.load(context.Background())
	if err != nil {
		return err
	}
	sess, err := p.newSession(false, p.strokes.options()...)
	if err != nil {
		return err
	}
	if err := sess.Open(snap); err != nil {
		return err
	}
	size := p.size
	if size == (image.Point{}) {
		size = sess.Image().Bounds().Size()
	}
	sess.Layout(viewport.R(0, 0, float64(size.X), float64(size.Y)))
	if p.zoom != 1 {
		sess.View(func(v *viewport.Viewport) { v.SetScale(p.zoom) })
	}

	if p.hotspot != "" {
		pt, err := parsePoint(p.hotspot)
		if err != nil {
			return err
		}
		if err := sess.SetHotspot(pt); err != nil {
			return fmt.Errorf("preview: %w", err)
		}
	}
	if p.selection != "" {
		rect, err := parseRect(p.selection)
		if err != nil {
			return err
		}
		sess.SetSelection(rect)
	}
	p.strokes.record(sess)

	style := render.ThemeStyle(p.theme)
	ov := render.Overlay{
		Strokes:    sess.Strokes(),
		BrushWidth: sess.BrushWidth(),
		Selection:  sess.Selection(),
		Style:      &style,
	}
	if hs, ok := sess.Hotspot(); ok {
		ov.Hotspot = &hs
	}
	out := render.Compose(size, sess.Image(), sess.Viewport(), ov)
	if p.shadow {
		out, _ = render.WithShadow(out, render.DefaultShadowOptions())
	}
	if p.bg != nil {
		canvas := image.NewRGBA(out.Bounds())
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(*p.bg), image.Point{}, draw.Src)
		draw.Draw(canvas, canvas.Bounds(), out, out.Bounds().Min, draw.Over)
		out = canvas
	}
	if err := writePNG(p.in.output, out); err != nil {
		return err
	}
	fmt.Fprintf(p.stdout, "saved %s\n", p.in.output)
	return nil
}
