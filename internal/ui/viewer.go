// Package ui shows an editing session in a desktop window and maps pointer
// and keyboard input onto the session's tools.
package ui

import (
	"image"
	"image/draw"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/pixshop/internal/editor"
	"github.com/example/pixshop/internal/logging"
	"github.com/example/pixshop/internal/notify"
	"github.com/example/pixshop/internal/render"
	"github.com/example/pixshop/internal/theme"
	"github.com/example/pixshop/internal/viewport"
)

const (
	minWidth  = 480
	minHeight = 320
	maxWidth  = 1400
	maxHeight = 900
)

// Viewer is the desktop window for a session.
type Viewer struct {
	c      *controller
	theme  *theme.Theme
	title  string
	logger *logging.Logger

	updateCh chan struct{}
	onClose  func()
}

// Option modifies a Viewer during creation.
type Option func(*Viewer)

// WithTheme sets the window colors.
func WithTheme(t *theme.Theme) Option { return func(v *Viewer) { v.theme = t } }

// WithNotifier sets the notifier used after saves, copies and edits.
func WithNotifier(n *notify.Notifier) Option { return func(v *Viewer) { v.c.notifier = n } }

// WithLogger sets the viewer logger.
func WithLogger(l *logging.Logger) Option { return func(v *Viewer) { v.logger = l } }

// WithOutput sets the file the save shortcut writes.
func WithOutput(path string) Option { return func(v *Viewer) { v.c.output = path } }

// WithSaveDir sets where saves go when no output file is set.
func WithSaveDir(dir string) Option { return func(v *Viewer) { v.c.saveDir = dir } }

// WithFormat sets the MIME type used for saves.
func WithFormat(mime string) Option { return func(v *Viewer) { v.c.format = mime } }

// WithUpscaleFactor sets the factor used by the upscale shortcut.
func WithUpscaleFactor(f float64) Option { return func(v *Viewer) { v.c.factor = f } }

// WithTitle sets the window title.
func WithTitle(title string) Option { return func(v *Viewer) { v.title = title } }

// WithOnClose registers a callback run once the window is gone.
func WithOnClose(fn func()) Option { return func(v *Viewer) { v.onClose = fn } }

// New creates a viewer for sess. The session should already hold an image.
func New(sess *editor.Session, opts ...Option) *Viewer {
	v := &Viewer{
		c:        newController(sess),
		title:    "Pixshop",
		updateCh: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(v)
	}
	if v.theme == nil {
		v.theme = theme.Default()
	}
	v.logger = logging.OrDiscard(v.logger)
	v.c.logger = v.logger
	v.c.repaint = v.NotifyChanged
	return v
}

// NotifyChanged asks the window to repaint. It is safe to call from any
// goroutine, before or after the window opens.
func (v *Viewer) NotifyChanged() {
	select {
	case v.updateCh <- struct{}{}:
	default:
	}
}

// Run executes the UI loop using shiny's driver.
func (v *Viewer) Run() { driver.Main(v.Main) }

// frameState is everything needed to draw one frame.
type frameState struct {
	width, height int
	img           image.Image
	view          viewport.Viewport
	overlay       render.Overlay
	status        status
}

func (v *Viewer) Main(s screen.Screen) {
	defer func() {
		v.c.cancel()
		if v.onClose != nil {
			v.onClose()
		}
	}()

	width, height := windowSize(v.c.sess.Image())
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: width, Height: height, Title: v.title})
	if err != nil {
		v.logger.Error().Err(err).Msg("new window")
		return
	}
	defer w.Release()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-v.updateCh:
				w.Send(paint.Event{})
			case <-done:
				return
			}
		}
	}()

	paintCh := make(chan frameState, 1)
	defer close(paintCh)
	go func() {
		for st := range paintCh {
			v.drawFrame(s, w, st)
		}
	}()

	style := render.ThemeStyle(v.theme)
	layout := func() {
		v.c.sess.Layout(viewport.R(0, 0, float64(width), float64(height-statusHeight)))
	}
	layout()

	for {
		switch e := w.NextEvent().(type) {
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				return
			}
		case size.Event:
			width, height = e.WidthPx, e.HeightPx
			layout()
			w.Send(paint.Event{})
		case paint.Event:
			sess := v.c.sess
			hs, hasHotspot := sess.Hotspot()
			ov := render.Overlay{
				Strokes:    sess.Strokes(),
				BrushWidth: sess.BrushWidth(),
				Selection:  sess.Selection(),
				Style:      &style,
			}
			if hasHotspot {
				ov.Hotspot = &hs
			}
			st := frameState{
				width:   width,
				height:  height,
				img:     sess.Image(),
				view:    sess.Viewport(),
				overlay: ov,
				status:  v.c.status(),
			}
			select {
			case paintCh <- st:
			default:
				select {
				case <-paintCh:
				default:
				}
				paintCh <- st
			}
		case mouse.Event:
			if int(e.Y) >= height-statusHeight && e.Direction == mouse.DirPress {
				continue
			}
			if v.c.onMouse(e) {
				w.Send(paint.Event{})
			}
		case key.Event:
			if v.c.onKey(e) {
				return
			}
			if e.Direction != key.DirRelease {
				w.Send(paint.Event{})
			}
		}
	}
}

func (v *Viewer) drawFrame(s screen.Screen, w screen.Window, st frameState) {
	if st.width <= 0 || st.height <= 0 {
		return
	}
	b, err := s.NewBuffer(image.Point{st.width, st.height})
	if err != nil {
		v.logger.Error().Err(err).Msg("new buffer")
		return
	}
	defer b.Release()

	dst := b.RGBA()
	draw.Draw(dst, dst.Bounds(), image.NewUniform(v.theme.Background), image.Point{}, draw.Src)
	area := image.Rect(0, 0, st.width, st.height-statusHeight)
	if !area.Empty() {
		render.Frame(dst.SubImage(area).(*image.RGBA), st.img, st.view, st.overlay)
	}
	drawStatus(dst, image.Rect(0, st.height-statusHeight, st.width, st.height), v.theme, st.status)

	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}

// windowSize picks an initial window size that shows img at its natural
// size when it fits.
func windowSize(img image.Image) (int, int) {
	w, h := 800, 600
	if img != nil {
		w, h = img.Bounds().Dx(), img.Bounds().Dy()
	}
	h += statusHeight
	return clampInt(w, minWidth, maxWidth), clampInt(h, minHeight, maxHeight)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
