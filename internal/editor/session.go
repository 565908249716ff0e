// Package editor ties the edit history, the viewport geometry, mask strokes
// and a generative provider into one editing session.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/pixshop/internal/genai"
	"github.com/example/pixshop/internal/history"
	"github.com/example/pixshop/internal/imageops"
	"github.com/example/pixshop/internal/logging"
	"github.com/example/pixshop/internal/mask"
	"github.com/example/pixshop/internal/prompts"
	"github.com/example/pixshop/internal/viewport"
)

var (
	ErrNoImage     = errors.New("no image is open")
	ErrBusy        = errors.New("a generative edit is already running")
	ErrNoHotspot   = errors.New("select a point to retouch first")
	ErrNoMask      = errors.New("paint over the area to erase first")
	ErrNoSelection = errors.New("select an area to crop first")
	ErrOutside     = errors.New("point is outside the image")
	ErrNoProvider  = errors.New("no provider configured")
)

// Session is a single image being edited.
type Session struct {
	mu       sync.Mutex
	hist     *history.History
	img      *image.RGBA
	view     *viewport.Viewport
	frame    viewport.Rect
	mode     Mode
	hotspot  *viewport.Point
	strokes  mask.Recorder
	sel      viewport.Rect
	provider genai.Provider
	logger   *logging.Logger
	brush    float64
	dpr      float64
	format   string
	onChange func()

	// busy is held by whichever edit or history move is running. reserved
	// marks a hold taken by Reserve that the next generative call inherits.
	busy     atomic.Bool
	reserved atomic.Bool
}

// Option modifies a Session during creation.
type Option func(*Session)

// WithProvider sets the provider used for generative edits.
func WithProvider(p genai.Provider) Option { return func(s *Session) { s.provider = p } }

// WithLogger sets the session logger.
func WithLogger(l *logging.Logger) Option { return func(s *Session) { s.logger = l } }

// WithBrushWidth sets the erase brush diameter in displayed pixels.
func WithBrushWidth(w float64) Option { return func(s *Session) { s.brush = w } }

// WithDevicePixelRatio sets the ratio used when sizing crops.
func WithDevicePixelRatio(r float64) Option { return func(s *Session) { s.dpr = r } }

// WithFormat sets the MIME type locally produced snapshots are encoded as.
func WithFormat(mime string) Option { return func(s *Session) { s.format = mime } }

// WithOnChange registers a callback invoked after the current image or the
// transient state changes.
func WithOnChange(fn func()) Option { return func(s *Session) { s.onChange = fn } }

func New(opts ...Option) *Session {
	s := &Session{
		brush:  mask.DefaultBrushWidth,
		dpr:    1,
		format: imageops.MIMEPNG,
		mode:   ModeRetouch,
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = logging.OrDiscard(s.logger)
	if s.brush <= 0 {
		s.brush = mask.DefaultBrushWidth
	}
	if s.dpr <= 0 {
		s.dpr = 1
	}
	return s
}

// Open starts a new history from snap.
func (s *Session) Open(snap history.Snapshot) error {
	img, err := imageops.Load(snap)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	s.mu.Lock()
	s.hist = history.New(snap)
	s.img = img
	b := img.Bounds()
	s.view = viewport.New(b.Dx(), b.Dy())
	s.view.DevicePixelRatio = s.dpr
	if !s.frame.Empty() {
		s.view.Fit(s.frame)
	}
	s.clearTransient()
	s.mu.Unlock()

	s.logger.Info().Str("id", snap.ID).Int("width", b.Dx()).Int("height", b.Dy()).Str("label", snap.Label).Msg("image opened")
	s.changed()
	return nil
}

// Loaded reports whether an image is open.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist != nil
}

// Layout fits the image into container. The container is remembered for
// images opened later.
func (s *Session) Layout(container viewport.Rect) {
	s.mu.Lock()
	s.frame = container
	if s.view != nil {
		s.view.Fit(container)
	}
	s.mu.Unlock()
}

// View runs fn with the viewport while holding the session lock.
func (s *Session) View(fn func(v *viewport.Viewport)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != nil {
		fn(s.view)
	}
}

// Viewport returns a copy of the current viewport.
func (s *Session) Viewport() viewport.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return viewport.Viewport{}
	}
	return *s.view
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches tools and drops the previous tool's transient state.
func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	if s.mode != m {
		s.mode = m
		s.clearTransient()
	}
	s.mu.Unlock()
	s.changed()
}

// BrushWidth is the erase brush diameter in displayed pixels.
func (s *Session) BrushWidth() float64 { return s.brush }

// Busy reports whether a generative edit is running.
func (s *Session) Busy() bool { return s.busy.Load() }

func (s *Session) Provider() genai.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider
}

// SetHotspotFromClient maps a client point to natural pixels and stores it
// as the retouch location. Points outside the image are rejected.
func (s *Session) SetHotspotFromClient(c viewport.Point) (viewport.Point, error) {
	s.mu.Lock()
	if s.view == nil {
		s.mu.Unlock()
		return viewport.Point{}, ErrNoImage
	}
	n, ok := s.view.ClientToNatural(c)
	if !ok {
		s.mu.Unlock()
		return viewport.Point{}, ErrOutside
	}
	s.hotspot = &n
	s.mu.Unlock()
	s.changed()
	return n, nil
}

// SetHotspot stores a hotspot given in natural pixels.
func (s *Session) SetHotspot(n viewport.Point) error {
	s.mu.Lock()
	if s.view == nil {
		s.mu.Unlock()
		return ErrNoImage
	}
	if n.X < 0 || n.Y < 0 || n.X > s.view.Natural.X || n.Y > s.view.Natural.Y {
		s.mu.Unlock()
		return ErrOutside
	}
	s.hotspot = &n
	s.mu.Unlock()
	s.changed()
	return nil
}

// Hotspot returns the retouch location in natural pixels.
func (s *Session) Hotspot() (viewport.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hotspot == nil {
		return viewport.Point{}, false
	}
	return *s.hotspot, true
}

// BeginStroke starts a mask stroke at a client point.
func (s *Session) BeginStroke(c viewport.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return false
	}
	d, ok := s.view.ClientToDisplay(c)
	if !ok {
		return false
	}
	s.strokes.Begin(d)
	return true
}

// ExtendStroke adds a client point to the active stroke. Points outside the
// image are dropped.
func (s *Session) ExtendStroke(c viewport.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil || !s.strokes.Active() {
		return false
	}
	d, ok := s.view.ClientToDisplay(c)
	if !ok {
		return false
	}
	s.strokes.Add(d)
	return true
}

// EndStroke finishes the active stroke.
func (s *Session) EndStroke() {
	s.mu.Lock()
	s.strokes.End()
	s.mu.Unlock()
	s.changed()
}

// AddStroke records a complete stroke given in displayed coordinates.
func (s *Session) AddStroke(st mask.Stroke) {
	if len(st) == 0 {
		return
	}
	s.mu.Lock()
	s.strokes.Begin(st[0])
	for _, p := range st[1:] {
		s.strokes.Add(p)
	}
	s.strokes.End()
	s.mu.Unlock()
	s.changed()
}

// Strokes returns the recorded mask strokes in displayed coordinates.
func (s *Session) Strokes() []mask.Stroke {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strokes.Strokes()
}

// ClearStrokes drops every recorded stroke.
func (s *Session) ClearStrokes() {
	s.mu.Lock()
	s.strokes.Clear()
	s.mu.Unlock()
	s.changed()
}

// SelectFromClient sets the crop selection from two client corners. The
// rectangle is clipped to the displayed image.
func (s *Session) SelectFromClient(a, b viewport.Point) {
	s.mu.Lock()
	if s.view == nil {
		s.mu.Unlock()
		return
	}
	da, _ := s.view.ClientToDisplay(a)
	db, _ := s.view.ClientToDisplay(b)
	s.sel = viewport.R(da.X, da.Y, db.X, db.Y).Intersect(viewport.Rect{Max: s.view.Display})
	s.mu.Unlock()
	s.changed()
}

// SetSelection sets the crop selection in displayed coordinates.
func (s *Session) SetSelection(r viewport.Rect) {
	s.mu.Lock()
	s.sel = r
	s.mu.Unlock()
	s.changed()
}

// Selection returns the crop selection in displayed coordinates.
func (s *Session) Selection() viewport.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// Current returns the snapshot at the history position.
func (s *Session) Current() (history.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hist == nil {
		return history.Snapshot{}, ErrNoImage
	}
	return s.hist.Current(), nil
}

// Image returns the decoded current image. Callers must not modify it.
func (s *Session) Image() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img
}

// Entries lists the history with the current position.
func (s *Session) Entries() ([]history.Snapshot, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hist == nil {
		return nil, -1
	}
	return s.hist.Entries(), s.hist.Position()
}

// CanUndo reports whether Undo would move.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist != nil && s.hist.CanUndo()
}

// CanRedo reports whether Redo would move.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist != nil && s.hist.CanRedo()
}

func (s *Session) Undo() (history.Snapshot, error) {
	return s.move("undo", func(h *history.History) (history.Snapshot, error) { return h.Undo() })
}

func (s *Session) Redo() (history.Snapshot, error) {
	return s.move("redo", func(h *history.History) (history.Snapshot, error) { return h.Redo() })
}

// Reset returns to the original image. Later entries stay available to Redo.
func (s *Session) Reset() (history.Snapshot, error) {
	return s.move("reset", func(h *history.History) (history.Snapshot, error) { return h.Reset(), nil })
}

func (s *Session) move(op string, fn func(*history.History) (history.Snapshot, error)) (history.Snapshot, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return history.Snapshot{}, ErrBusy
	}
	defer s.busy.Store(false)
	s.mu.Lock()
	if s.hist == nil {
		s.mu.Unlock()
		return history.Snapshot{}, ErrNoImage
	}
	snap, err := fn(s.hist)
	if err != nil {
		s.mu.Unlock()
		return history.Snapshot{}, err
	}
	if err := s.showLocked(snap); err != nil {
		s.mu.Unlock()
		return history.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	pos := s.hist.Position()
	s.mu.Unlock()

	s.logger.Debug().Str("op", op).Int("position", pos).Str("label", snap.Label).Msg("history moved")
	s.changed()
	return snap, nil
}

// Export writes the current image to w. An empty mime keeps the stored
// encoding; other types re-encode.
func (s *Session) Export(w io.Writer, mime string) (string, error) {
	s.mu.Lock()
	if s.hist == nil {
		s.mu.Unlock()
		return "", ErrNoImage
	}
	snap := s.hist.Current()
	img := s.img
	s.mu.Unlock()

	data := snap.Bytes()
	outMIME := snap.MIME
	if mime != "" && mime != snap.MIME {
		var err error
		data, outMIME, err = imageops.Encode(img, mime)
		if err != nil {
			return "", fmt.Errorf("export: %w", err)
		}
	}
	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return outMIME, nil
}

// Clear drops the hotspot, the mask strokes and the crop selection.
func (s *Session) Clear() {
	s.mu.Lock()
	s.clearTransient()
	s.mu.Unlock()
	s.changed()
}

// clearTransient drops the hotspot, strokes and selection. Callers hold mu.
func (s *Session) clearTransient() {
	s.hotspot = nil
	s.strokes.Clear()
	s.sel = viewport.Rect{}
}

// showLocked makes snap the displayed image. Callers hold mu.
func (s *Session) showLocked(snap history.Snapshot) error {
	img, err := imageops.Load(snap)
	if err != nil {
		return err
	}
	s.img = img
	b := img.Bounds()
	if s.view.Natural != viewport.Pt(float64(b.Dx()), float64(b.Dy())) {
		s.view.SetNatural(b.Dx(), b.Dy())
	}
	s.clearTransient()
	return nil
}

// commit pushes snap and shows it.
func (s *Session) commit(snap history.Snapshot, started time.Time) error {
	s.mu.Lock()
	if s.hist == nil {
		s.mu.Unlock()
		return ErrNoImage
	}
	if err := s.showLocked(snap); err != nil {
		s.mu.Unlock()
		return err
	}
	s.hist.Push(snap)
	pos, n := s.hist.Position(), s.hist.Len()
	s.mu.Unlock()

	s.logger.Info().
		Str("op", snap.Label).
		Str("id", snap.ID).
		Int("width", snap.Width).
		Int("height", snap.Height).
		Int("position", pos).
		Int("entries", n).
		Dur("elapsed", time.Since(started)).
		Msg("edit applied")
	s.changed()
	return nil
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Reserve holds the session for a generative edit that will be started on
// another goroutine, so that edits arriving in between are refused with
// ErrBusy. The next generative call takes the hold over. release frees it
// when no such call happened and is a no-op otherwise.
func (s *Session) Reserve() (release func(), err error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	s.reserved.Store(true)
	s.changed()
	return func() {
		if s.reserved.CompareAndSwap(true, false) {
			s.busy.Store(false)
			s.changed()
		}
	}, nil
}

func (s *Session) acquireGenerative() bool {
	return s.busy.CompareAndSwap(false, true) || s.reserved.CompareAndSwap(true, false)
}

// generate runs a provider call with the busy flag held. Only one call may
// run at a time.
func (s *Session) generate(ctx context.Context, label string, call func(genai.Provider, genai.Image) (genai.Image, error)) error {
	if !s.acquireGenerative() {
		return ErrBusy
	}
	defer func() {
		s.busy.Store(false)
		s.changed()
	}()
	s.changed()

	s.mu.Lock()
	if s.hist == nil {
		s.mu.Unlock()
		return ErrNoImage
	}
	provider := s.provider
	cur := s.hist.Current()
	s.mu.Unlock()
	if provider == nil {
		return ErrNoProvider
	}

	started := time.Now()
	s.logger.Debug().Str("op", label).Str("provider", provider.Name()).Msg("generative edit started")
	out, err := call(provider, genai.Image{Data: cur.Bytes(), MIME: cur.MIME})
	if err != nil {
		s.logger.Warn().Err(err).Str("op", label).Str("provider", provider.Name()).Msg("generative edit failed")
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	snap, err := imageops.FromBlob(out.Data, label)
	if err != nil {
		return fmt.Errorf("%s: result: %w", label, err)
	}
	return s.commit(snap, started)
}

// Retouch edits the area around the hotspot.
func (s *Session) Retouch(ctx context.Context, request string) error {
	at, ok := s.Hotspot()
	if !ok {
		return ErrNoHotspot
	}
	hs := prompts.Hotspot{X: int(at.X), Y: int(at.Y)}
	return s.generate(ctx, "retouch", func(p genai.Provider, img genai.Image) (genai.Image, error) {
		return p.Retouch(ctx, img, request, hs)
	})
}

// Erase removes the painted area. The mask is rasterized at natural size.
func (s *Session) Erase(ctx context.Context, request string) error {
	s.mu.Lock()
	if s.view == nil {
		s.mu.Unlock()
		return ErrNoImage
	}
	strokes := s.strokes.Strokes()
	natural := image.Pt(int(s.view.Natural.X), int(s.view.Natural.Y))
	display := s.view.Display
	brush := s.brush
	s.mu.Unlock()
	if len(strokes) == 0 {
		return ErrNoMask
	}
	m, err := mask.Rasterize(strokes, natural, display, mask.Options{BrushWidth: brush})
	if err != nil {
		return fmt.Errorf("erase: mask: %w", err)
	}
	data, err := mask.Encode(m)
	if err != nil {
		return fmt.Errorf("erase: mask: %w", err)
	}
	s.logger.Debug().Int("strokes", len(strokes)).Float64("coverage", mask.Coverage(m)).Msg("mask rasterized")
	return s.generate(ctx, "erase", func(p genai.Provider, img genai.Image) (genai.Image, error) {
		return p.Erase(ctx, img, genai.Image{Data: data, MIME: imageops.MIMEPNG}, request)
	})
}

// Mask rasterizes the recorded strokes at natural size.
func (s *Session) Mask() (*image.Gray, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return nil, ErrNoImage
	}
	strokes := s.strokes.Strokes()
	if len(strokes) == 0 {
		return nil, ErrNoMask
	}
	natural := image.Pt(int(s.view.Natural.X), int(s.view.Natural.Y))
	return mask.Rasterize(strokes, natural, s.view.Display, mask.Options{BrushWidth: s.brush})
}

// Filter applies a stylistic preset or free-form filter.
func (s *Session) Filter(ctx context.Context, style prompts.Preset) error {
	return s.generate(ctx, label("filter", style), func(p genai.Provider, img genai.Image) (genai.Image, error) {
		return p.Filter(ctx, img, style)
	})
}

// Adjust applies a global adjustment preset or free-form adjustment.
func (s *Session) Adjust(ctx context.Context, style prompts.Preset) error {
	return s.generate(ctx, label("adjust", style), func(p genai.Provider, img genai.Image) (genai.Image, error) {
		return p.Adjust(ctx, img, style)
	})
}

// Upscale asks the provider for a larger version of the image.
func (s *Session) Upscale(ctx context.Context, factor float64) error {
	return s.generate(ctx, fmt.Sprintf("upscale x%g", factor), func(p genai.Provider, img genai.Image) (genai.Image, error) {
		return p.Upscale(ctx, img, factor)
	})
}

func label(op string, style prompts.Preset) string {
	if style.Name == "" {
		return op
	}
	return op + ": " + style.Name
}

// Crop keeps the selected area.
func (s *Session) Crop() error {
	return s.local("crop", func(img *image.RGBA, v *viewport.Viewport, sel viewport.Rect) (*image.RGBA, error) {
		if sel.Empty() {
			return nil, ErrNoSelection
		}
		rx, ry := v.Ratio()
		return imageops.Crop(img, sel, v.Display, viewport.Pt(rx, ry), v.DevicePixelRatio)
	})
}

// Rotate turns the image a quarter turn.
func (s *Session) Rotate(dir imageops.Direction) error {
	return s.local("rotate "+dir.String(), func(img *image.RGBA, _ *viewport.Viewport, _ viewport.Rect) (*image.RGBA, error) {
		return imageops.Rotate(img, dir), nil
	})
}

// Flip mirrors the image.
func (s *Session) Flip(axis imageops.Axis) error {
	return s.local("flip "+axis.String(), func(img *image.RGBA, _ *viewport.Viewport, _ viewport.Rect) (*image.RGBA, error) {
		return imageops.Flip(img, axis), nil
	})
}

// local runs fn on the current image with the busy flag held from the read
// of the image until the result is committed.
func (s *Session) local(label string, fn func(*image.RGBA, *viewport.Viewport, viewport.Rect) (*image.RGBA, error)) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)
	started := time.Now()
	s.mu.Lock()
	if s.hist == nil {
		s.mu.Unlock()
		return ErrNoImage
	}
	img, v, sel, format := s.img, *s.view, s.sel, s.format
	s.mu.Unlock()

	out, err := fn(img, &v, sel)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	snap, err := imageops.Snapshot(out, format, label)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	return s.commit(snap, started)
}
