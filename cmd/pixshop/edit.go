package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/example/pixshop/internal/editor"
	"github.com/example/pixshop/internal/imageops"
	"github.com/example/pixshop/internal/mask"
	"github.com/example/pixshop/internal/prompts"
	"github.com/example/pixshop/internal/viewport"
)

// editJob describes one non-interactive edit: load, apply, write.
type editJob struct {
	in           *imageIO
	generative   bool
	displayWidth float64
	opts         []editor.Option
	apply        func(ctx context.Context, sess *editor.Session) error
}

func (r *root) runEdit(job editJob) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	snap, err := job.in.load(ctx)
	if err != nil {
		return err
	}
	sess, err := r.newSession(job.generative, job.opts...)
	if err != nil {
		return err
	}
	if err := sess.Open(snap); err != nil {
		return err
	}
	if job.displayWidth > 0 {
		layoutAt(sess, job.displayWidth)
	}
	if err := job.apply(ctx, sess); err != nil {
		return err
	}
	if job.generative {
		entries, pos := sess.Entries()
		if pos >= 0 {
			r.notifier.Edit(entries[pos].Label, sess.Image())
		}
	}
	return r.emit(job.in, sess)
}

// layoutAt lays the image out as if it were shown width pixels wide, so that
// display coordinates given on the command line match a rendered page.
func layoutAt(sess *editor.Session, width float64) {
	img := sess.Image()
	if img == nil || img.Bounds().Dx() == 0 {
		return
	}
	b := img.Bounds()
	height := width * float64(b.Dy()) / float64(b.Dx())
	sess.Layout(viewport.R(0, 0, width, height))
}

// parseStrokes reads strokes written as "x,y x,y;x,y". Strokes are separated
// by semicolons and points by spaces.
func parseStrokes(s string) ([]mask.Stroke, error) {
	var out []mask.Stroke
	for _, part := range strings.Split(s, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		st := make(mask.Stroke, 0, len(fields))
		for _, f := range fields {
			p, err := parsePoint(f)
			if err != nil {
				return nil, err
			}
			st = append(st, p)
		}
		out = append(out, st)
	}
	if len(out) == 0 {
		return nil, errors.New("stroke requires at least one point")
	}
	return out, nil
}

func parsePoint(s string) (viewport.Point, error) {
	vals, err := parseFloats(s, 2)
	if err != nil {
		return viewport.Point{}, fmt.Errorf("invalid point %q: want x,y", s)
	}
	return viewport.Pt(vals[0], vals[1]), nil
}

func parseRect(s string) (viewport.Rect, error) {
	vals, err := parseFloats(s, 4)
	if err != nil {
		return viewport.Rect{}, fmt.Errorf("invalid rectangle %q: want x0,y0,x1,y1", s)
	}
	return viewport.R(vals[0], vals[1], vals[2], vals[3]), nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d values", n)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		if !finite(v) {
			return nil, fmt.Errorf("value %q is not a finite number", p)
		}
		out[i] = v
	}
	return out, nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// retouchCmd edits the area around a point.
type retouchCmd struct {
	in     imageIO
	x, y   int
	prompt string
	*root
	fs *flag.FlagSet
}

func (c *retouchCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseRetouchCmd(args []string, r *root) (*retouchCmd, error) {
	fs := newFlagSet("retouch")
	c := &retouchCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	c.in.bind(fs)
	fs.IntVar(&c.x, "x", -1, "hotspot x in image pixels")
	fs.IntVar(&c.y, "y", -1, "hotspot y in image pixels")
	if err := parseFlags(c, args); err != nil {
		return nil, err
	}
	c.prompt = strings.TrimSpace(strings.Join(fs.Args(), " "))
	if c.prompt == "" {
		return nil, &UsageError{of: c}
	}
	if c.x < 0 || c.y < 0 {
		return nil, errors.New("retouch requires -x and -y")
	}
	if err := c.in.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *retouchCmd) Run() error {
	return c.runEdit(editJob{
		in:         &c.in,
		generative: true,
		apply: func(ctx context.Context, sess *editor.Session) error {
			if err := sess.SetHotspot(viewport.Pt(float64(c.x), float64(c.y))); err != nil {
				return fmt.Errorf("retouch: %w", err)
			}
			return sess.Retouch(ctx, c.prompt)
		},
	})
}

// strokeFlags holds the mask flags shared by erase and mask.
type strokeFlags struct {
	stroke       string
	displayWidth float64
	brush        float64
	strokes      []mask.Stroke
}

func (s *strokeFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&s.stroke, "stroke", "", `mask strokes in display pixels, "x,y x,y;x,y ..."`)
	fs.Float64Var(&s.displayWidth, "display-width", 0, "width the image was shown at when the strokes were drawn (default: natural width)")
	fs.Float64Var(&s.brush, "brush", 0, "brush diameter in display pixels (default from config)")
}

func (s *strokeFlags) parse() error {
	if s.stroke == "" {
		return errors.New("-stroke is required")
	}
	if !finite(s.displayWidth, s.brush) || s.displayWidth < 0 || s.brush < 0 {
		return errors.New("-display-width and -brush must be finite and not negative")
	}
	var err error
	s.strokes, err = parseStrokes(s.stroke)
	return err
}

func (s *strokeFlags) options() []editor.Option {
	if s.brush > 0 {
		return []editor.Option{editor.WithBrushWidth(s.brush)}
	}
	return nil
}

func (s *strokeFlags) record(sess *editor.Session) {
	for _, st := range s.strokes {
		sess.AddStroke(st)
	}
}

// eraseCmd removes the painted area.
type eraseCmd struct {
	in      imageIO
	strokes strokeFlags
	prompt  string
	*root
	fs *flag.FlagSet
}

func (c *eraseCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseEraseCmd(args []string, r *root) (*eraseCmd, error) {
	fs := newFlagSet("erase")
	c := &eraseCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	c.in.bind(fs)
	c.strokes.bind(fs)
	if err := parseFlags(c, args); err != nil {
		return nil, err
	}
	c.prompt = strings.TrimSpace(strings.Join(fs.Args(), " "))
	if err := c.strokes.parse(); err != nil {
		return nil, err
	}
	if err := c.in.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *eraseCmd) Run() error {
	return c.runEdit(editJob{
		in:           &c.in,
		generative:   true,
		displayWidth: c.strokes.displayWidth,
		opts:         c.strokes.options(),
		apply: func(ctx context.Context, sess *editor.Session) error {
			c.strokes.record(sess)
			return sess.Erase(ctx, c.prompt)
		},
	})
}

// maskCmd writes the rasterized erase mask without editing the image.
type maskCmd struct {
	in      imageIO
	strokes strokeFlags
	*root
	fs *flag.FlagSet
}

func (c *maskCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseMaskCmd(args []string, r *root) (*maskCmd, error) {
	fs := newFlagSet("mask")
	c := &maskCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	c.in.bind(fs)
	c.strokes.bind(fs)
	if err := parseFlags(c, args); err != nil {
		return nil, err
	}
	if err := c.strokes.parse(); err != nil {
		return nil, err
	}
	if c.in.output == "" {
		return nil, errors.New("mask requires -output")
	}
	if err := c.in.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *maskCmd) Run() error {
	snap, err := c.in.load(context.Background())
	if err != nil {
		return err
	}
	sess, err := c.newSession(false, c.strokes.options()...)
	if err != nil {
		return err
	}
	if err := sess.Open(snap); err != nil {
		return err
	}
	if c.strokes.displayWidth > 0 {
		layoutAt(sess, c.strokes.displayWidth)
	}
	c.strokes.record(sess)
	m, err := sess.Mask()
	if err != nil {
		return fmt.Errorf("mask: %w", err)
	}
	if err := writePNG(c.in.output, m); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "saved %s (%.1f%% masked)\n", c.in.output, mask.Coverage(m)*100)
	return nil
}

// styleCmd runs a filter or an adjustment, from a preset or a free prompt.
type styleCmd struct {
	in     imageIO
	kind   prompts.Kind
	preset string
	style  prompts.Preset
	*root
	fs *flag.FlagSet
}

func (c *styleCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseStyleCmd(args []string, r *root, kind prompts.Kind) (*styleCmd, error) {
	fs := newFlagSet(string(kind))
	c := &styleCmd{root: r, fs: fs, kind: kind}
	fs.Usage = usageFunc(c)
	c.in.bind(fs)
	fs.StringVar(&c.preset, "preset", "", "named preset (see: pixshop presets)")
	if err := parseFlags(c, args); err != nil {
		return nil, err
	}
	custom := strings.TrimSpace(strings.Join(fs.Args(), " "))
	switch {
	case c.preset != "" && custom != "":
		return nil, fmt.Errorf("%s: use either -preset or a prompt, not both", kind)
	case c.preset != "":
		p, err := prompts.Lookup(kind, c.preset)
		if err != nil {
			return nil, err
		}
		c.style = p
	case custom != "":
		c.style = prompts.Preset{Kind: kind, Prompt: custom}
	default:
		return nil, &UsageError{of: c}
	}
	if err := c.in.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *styleCmd) Run() error {
	return c.runEdit(editJob{
		in:         &c.in,
		generative: true,
		apply: func(ctx context.Context, sess *editor.Session) error {
			if c.kind == prompts.KindAdjust {
				return sess.Adjust(ctx, c.style)
			}
			return sess.Filter(ctx, c.style)
		},
	})
}

// upscaleCmd enlarges the image.
type upscaleCmd struct {
	in     imageIO
	factor float64
	*root
	fs *flag.FlagSet
}

func (c *upscaleCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseUpscaleCmd(args []string, r *root) (*upscaleCmd, error) {
	fs := newFlagSet("upscale")
	c := &upscaleCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	c.in.bind(fs)
	fs.Float64Var(&c.factor, "factor", 2, "scale factor greater than 1")
	if err := parseFlags(c, args); err != nil {
		return nil, err
	}
	if !finite(c.factor) || c.factor <= 1 {
		return nil, fmt.Errorf("upscale factor must be greater than 1, got %g", c.factor)
	}
	if err := c.in.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *upscaleCmd) Run() error {
	return c.runEdit(editJob{
		in:         &c.in,
		generative: true,
		apply: func(ctx context.Context, sess *editor.Session) error {
			return sess.Upscale(ctx, c.factor)
		},
	})
}

// cropCmd keeps a rectangle given in display coordinates.
type cropCmd struct {
	in           imageIO
	rectSpec     string
	rect         viewport.Rect
	displayWidth float64
	dpr          float64
	*root
	fs *flag.FlagSet
}

func (c *cropCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseCropCmd(args []string, r *root) (*cropCmd, error) {
	fs := newFlagSet("crop")
	c := &cropCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	c.in.bind(fs)
	fs.StringVar(&c.rectSpec, "rect", "", "selection x0,y0,x1,y1 in display pixels")
	fs.Float64Var(&c.displayWidth, "display-width", 0, "width the image was shown at when selecting (default: natural width)")
	fs.Float64Var(&c.dpr, "dpr", 0, "device pixel ratio applied to the output size (default from config)")
	if err := parseFlags(c, args); err != nil {
		return nil, err
	}
	if c.rectSpec == "" {
		return nil, &UsageError{of: c}
	}
	rect, err := parseRect(c.rectSpec)
	if err != nil {
		return nil, err
	}
	if rect.Empty() {
		return nil, fmt.Errorf("crop: %w", editor.ErrNoSelection)
	}
	c.rect = rect
	if !finite(c.dpr, c.displayWidth) || c.dpr < 0 || c.displayWidth < 0 {
		return nil, errors.New("-dpr and -display-width must be finite and not negative")
	}
	if err := c.in.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *cropCmd) Run() error {
	var opts []editor.Option
	if c.dpr > 0 {
		opts = append(opts, editor.WithDevicePixelRatio(c.dpr))
	}
	return c.runEdit(editJob{
		in:           &c.in,
		displayWidth: c.displayWidth,
		opts:         opts,
		apply: func(ctx context.Context, sess *editor.Session) error {
			sess.SetSelection(c.rect)
			return sess.Crop()
		},
	})
}

// rotateCmd turns the image a quarter turn.
type rotateCmd struct {
	in  imageIO
	dir imageops.Direction
	*root
	fs *flag.FlagSet
}

func (c *rotateCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseRotateCmd(args []string, r *root) (*rotateCmd, error) {
	fs := newFlagSet("rotate")
	c := &rotateCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	c.in.bind(fs)
	dir := fs.String("dir", "right", "rotation: left (counter-clockwise) or right (clockwise)")
	if err := parseFlags(c, args); err != nil {
		return nil, err
	}
	d, err := imageops.ParseDirection(*dir)
	if err != nil {
		return nil, err
	}
	c.dir = d
	if err := c.in.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *rotateCmd) Run() error {
	return c.runEdit(editJob{
		in: &c.in,
		apply: func(ctx context.Context, sess *editor.Session) error {
			return sess.Rotate(c.dir)
		},
	})
}

// flipCmd mirrors the image.
type flipCmd struct {
	in   imageIO
	axis imageops.Axis
	*root
	fs *flag.FlagSet
}

func (c *flipCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseFlipCmd(args []string, r *root) (*flipCmd, error) {
	fs := newFlagSet("flip")
	c := &flipCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	c.in.bind(fs)
	axis := fs.String("axis", "h", "mirror axis: h (horizontal) or v (vertical)")
	if err := parseFlags(c, args); err != nil {
		return nil, err
	}
	a, err := imageops.ParseAxis(*axis)
	if err != nil {
		return nil, err
	}
	c.axis = a
	if err := c.in.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *flipCmd) Run() error {
	return c.runEdit(editJob{
		in: &c.in,
		apply: func(ctx context.Context, sess *editor.Session) error {
			return sess.Flip(c.axis)
		},
	})
}
