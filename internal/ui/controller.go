package ui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"

	"github.com/example/pixshop/internal/clipboard"
	"github.com/example/pixshop/internal/editor"
	"github.com/example/pixshop/internal/history"
	"github.com/example/pixshop/internal/imageops"
	"github.com/example/pixshop/internal/logging"
	"github.com/example/pixshop/internal/notify"
	"github.com/example/pixshop/internal/prompts"
	"github.com/example/pixshop/internal/viewport"
)

const (
	// messageTTL is how long a status message stays visible.
	messageTTL = 4 * time.Second
	// panStep is the client distance moved per arrow key press.
	panStep = 20
)

type dragKind int

const (
	dragNone dragKind = iota
	dragPan
	dragStroke
	dragSelect
)

// promptInput is the text line opened for free-form requests.
type promptInput struct {
	active  bool
	purpose editor.Mode
	text    []rune
}

// controller translates window events into session operations. It has no
// dependency on the window itself so it can be driven directly.
type controller struct {
	sess     *editor.Session
	notifier *notify.Notifier
	logger   *logging.Logger

	output  string
	saveDir string
	format  string
	factor  float64

	ctx    context.Context
	cancel context.CancelFunc

	keys    *keymap
	drag    dragKind
	start   viewport.Point
	last    viewport.Point
	prompt  promptInput
	presets map[prompts.Kind]int
	quit    bool

	mu           sync.Mutex
	message      string
	messageErr   bool
	messageUntil time.Time

	// Replaceable for tests.
	now       func() time.Time
	goAsync   func(func())
	repaint   func()
	copyImage func(image.Image) error
}

func newController(sess *editor.Session) *controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &controller{
		sess:      sess,
		logger:    logging.Discard(),
		format:    imageops.MIMEPNG,
		factor:    2,
		ctx:       ctx,
		cancel:    cancel,
		presets:   map[prompts.Kind]int{},
		now:       time.Now,
		goAsync:   func(fn func()) { go fn() },
		repaint:   func() {},
		copyImage: clipboard.WriteImage,
	}
	c.keys = c.bindings()
	return c
}

func (c *controller) bindings() *keymap {
	m := newKeymap()
	for i, mode := range []editor.Mode{editor.ModeView, editor.ModeRetouch, editor.ModeErase, editor.ModeCrop, editor.ModeAdjust, editor.ModeFilter} {
		mode := mode
		m.register("mode "+mode.String(), shortcutList{{Rune: rune('1' + i)}}, func() { c.setMode(mode) })
	}
	m.register("undo", shortcutList{{Rune: 'u'}, {Rune: 'z', Modifiers: key.ModControl}}, func() { c.step(c.sess.Undo) })
	m.register("redo", shortcutList{{Rune: 'r'}, {Rune: 'y', Modifiers: key.ModControl}}, func() { c.step(c.sess.Redo) })
	m.register("reset", shortcutList{{Rune: '0'}}, func() { c.step(c.sess.Reset) })
	m.register("rotate left", shortcutList{{Rune: '['}}, func() { c.local(c.sess.Rotate(imageops.Left)) })
	m.register("rotate right", shortcutList{{Rune: ']'}}, func() { c.local(c.sess.Rotate(imageops.Right)) })
	m.register("flip horizontal", shortcutList{{Rune: 'h'}}, func() { c.local(c.sess.Flip(imageops.Horizontal)) })
	m.register("flip vertical", shortcutList{{Rune: 'v'}}, func() { c.local(c.sess.Flip(imageops.Vertical)) })
	m.register("zoom in", shortcutList{{Rune: '+'}, {Rune: '='}}, func() { c.sess.View((*viewport.Viewport).ZoomIn) })
	m.register("zoom out", shortcutList{{Rune: '-'}}, func() { c.sess.View((*viewport.Viewport).ZoomOut) })
	m.register("zoom reset", shortcutList{{Rune: 'z'}}, func() { c.sess.View((*viewport.Viewport).ResetZoom) })
	m.register("pan left", shortcutList{{Code: key.CodeLeftArrow}}, func() { c.pan(panStep, 0) })
	m.register("pan right", shortcutList{{Code: key.CodeRightArrow}}, func() { c.pan(-panStep, 0) })
	m.register("pan up", shortcutList{{Code: key.CodeUpArrow}}, func() { c.pan(0, panStep) })
	m.register("pan down", shortcutList{{Code: key.CodeDownArrow}}, func() { c.pan(0, -panStep) })
	m.register("apply", shortcutList{{Code: key.CodeReturnEnter}}, c.apply)
	m.register("erase", shortcutList{{Rune: 'e'}}, c.eraseNow)
	m.register("prompt", shortcutList{{Rune: '/'}, {Rune: 't'}}, func() { c.openPrompt(c.sess.Mode()) })
	m.register("next preset", shortcutList{{Code: key.CodeTab}}, func() { c.cyclePreset(1) })
	m.register("previous preset", shortcutList{{Code: key.CodeTab, Modifiers: key.ModShift}}, func() { c.cyclePreset(-1) })
	m.register("clear", shortcutList{{Code: key.CodeEscape}}, c.sess.Clear)
	m.register("upscale", shortcutList{{Rune: 'u', Modifiers: key.ModControl}}, c.upscale)
	m.register("copy", shortcutList{{Rune: 'c'}, {Rune: 'c', Modifiers: key.ModControl}}, c.copy)
	m.register("save", shortcutList{{Rune: 's'}, {Rune: 's', Modifiers: key.ModControl}}, c.save)
	m.register("quit", shortcutList{{Rune: 'q'}}, func() { c.quit = true })
	return m
}

// onKey handles a key event and reports whether the window should close.
func (c *controller) onKey(e key.Event) bool {
	if e.Direction == key.DirRelease {
		return c.quit
	}
	if c.prompt.active {
		c.promptKey(e)
		return false
	}
	if name, ok := c.keys.lookup(e); ok {
		c.keys.run(name)
	}
	if c.quit {
		c.cancel()
	}
	return c.quit
}

func (c *controller) promptKey(e key.Event) {
	switch e.Code {
	case key.CodeReturnEnter:
		text := strings.TrimSpace(string(c.prompt.text))
		purpose := c.prompt.purpose
		c.prompt = promptInput{}
		c.submit(purpose, text)
		return
	case key.CodeEscape:
		c.prompt = promptInput{}
		return
	case key.CodeDeleteBackspace:
		if n := len(c.prompt.text); n > 0 {
			c.prompt.text = c.prompt.text[:n-1]
		}
		return
	}
	if unicode.IsPrint(e.Rune) && e.Modifiers&(key.ModControl|key.ModMeta) == 0 {
		c.prompt.text = append(c.prompt.text, e.Rune)
	}
}

// onMouse handles a pointer event and reports whether a repaint is needed.
func (c *controller) onMouse(e mouse.Event) bool {
	p := viewport.Pt(float64(e.X), float64(e.Y))
	switch e.Button {
	case mouse.ButtonWheelUp:
		c.sess.View(func(v *viewport.Viewport) { v.Wheel(p, -1) })
		return true
	case mouse.ButtonWheelDown:
		c.sess.View(func(v *viewport.Viewport) { v.Wheel(p, 1) })
		return true
	}

	switch e.Direction {
	case mouse.DirPress:
		c.start, c.last = p, p
		if e.Button == mouse.ButtonRight || e.Button == mouse.ButtonMiddle {
			c.drag = dragPan
			return false
		}
		if e.Button != mouse.ButtonLeft {
			return false
		}
		return c.press(p)
	case mouse.DirRelease:
		kind := c.drag
		c.drag = dragNone
		switch kind {
		case dragStroke:
			c.sess.EndStroke()
		case dragSelect:
			c.sess.SelectFromClient(c.start, p)
		}
		return kind != dragNone
	case mouse.DirNone:
		return c.move(p)
	}
	return false
}

func (c *controller) press(p viewport.Point) bool {
	switch c.sess.Mode() {
	case editor.ModeView:
		c.drag = dragPan
	case editor.ModeRetouch:
		if _, err := c.sess.SetHotspotFromClient(p); err != nil {
			c.fail(err)
		}
	case editor.ModeErase:
		if c.sess.BeginStroke(p) {
			c.drag = dragStroke
		}
	case editor.ModeCrop:
		c.drag = dragSelect
		c.sess.SetSelection(viewport.Rect{})
	default:
		return false
	}
	return true
}

func (c *controller) move(p viewport.Point) bool {
	delta := p.Sub(c.last)
	c.last = p
	switch c.drag {
	case dragPan:
		c.sess.View(func(v *viewport.Viewport) { v.PanBy(delta.X, delta.Y) })
	case dragStroke:
		c.sess.ExtendStroke(p)
	case dragSelect:
		c.sess.SelectFromClient(c.start, p)
	default:
		return false
	}
	return true
}

func (c *controller) setMode(m editor.Mode) {
	c.drag = dragNone
	c.sess.SetMode(m)
	c.info(fmt.Sprintf("%s mode", m))
}

func (c *controller) pan(dx, dy float64) {
	c.sess.View(func(v *viewport.Viewport) { v.PanBy(dx, dy) })
}

// apply runs the primary action of the current tool.
func (c *controller) apply() {
	switch m := c.sess.Mode(); m {
	case editor.ModeCrop:
		c.local(c.sess.Crop())
	case editor.ModeRetouch:
		if _, ok := c.sess.Hotspot(); !ok {
			c.fail(editor.ErrNoHotspot)
			return
		}
		c.openPrompt(m)
	case editor.ModeErase:
		if len(c.sess.Strokes()) == 0 {
			c.fail(editor.ErrNoMask)
			return
		}
		c.openPrompt(m)
	case editor.ModeFilter, editor.ModeAdjust:
		style, ok := c.currentPreset()
		if !ok {
			c.fail(prompts.ErrUnknownPreset)
			return
		}
		c.style(m, style)
	}
}

// eraseNow removes the painted area with the default request.
func (c *controller) eraseNow() {
	if len(c.sess.Strokes()) == 0 {
		c.fail(editor.ErrNoMask)
		return
	}
	c.submit(editor.ModeErase, "")
}

func (c *controller) openPrompt(m editor.Mode) {
	if m == editor.ModeView || m == editor.ModeCrop {
		return
	}
	c.prompt = promptInput{active: true, purpose: m}
}

func (c *controller) submit(m editor.Mode, text string) {
	switch m {
	case editor.ModeRetouch:
		if text == "" {
			c.fail(prompts.ErrEmptyPrompt)
			return
		}
		c.async("retouch", func(ctx context.Context) error { return c.sess.Retouch(ctx, text) })
	case editor.ModeErase:
		c.async("erase", func(ctx context.Context) error { return c.sess.Erase(ctx, text) })
	case editor.ModeFilter, editor.ModeAdjust:
		if text == "" {
			c.fail(prompts.ErrEmptyPrompt)
			return
		}
		c.style(m, prompts.Preset{Kind: kindFor(m), Prompt: text})
	}
}

func (c *controller) style(m editor.Mode, style prompts.Preset) {
	name := style.Name
	if name == "" {
		name = "custom"
	}
	if m == editor.ModeFilter {
		c.async("filter: "+name, func(ctx context.Context) error { return c.sess.Filter(ctx, style) })
		return
	}
	c.async("adjust: "+name, func(ctx context.Context) error { return c.sess.Adjust(ctx, style) })
}

func (c *controller) upscale() {
	factor := c.factor
	c.async(fmt.Sprintf("upscale x%g", factor), func(ctx context.Context) error { return c.sess.Upscale(ctx, factor) })
}

func kindFor(m editor.Mode) prompts.Kind {
	if m == editor.ModeFilter {
		return prompts.KindFilter
	}
	return prompts.KindAdjust
}

func (c *controller) cyclePreset(step int) {
	m := c.sess.Mode()
	if m != editor.ModeFilter && m != editor.ModeAdjust {
		return
	}
	kind := kindFor(m)
	list := prompts.Presets(kind)
	if len(list) == 0 {
		return
	}
	i := (c.presets[kind] + step + len(list)) % len(list)
	c.presets[kind] = i
	c.info(fmt.Sprintf("%s preset: %s", kind, list[i].Name))
}

func (c *controller) currentPreset() (prompts.Preset, bool) {
	kind := kindFor(c.sess.Mode())
	list := prompts.Presets(kind)
	if len(list) == 0 {
		return prompts.Preset{}, false
	}
	i := c.presets[kind] % len(list)
	return list[i], true
}

// async runs a generative edit off the event loop.
func (c *controller) async(label string, fn func(context.Context) error) {
	release, err := c.sess.Reserve()
	if err != nil {
		c.fail(err)
		return
	}
	c.info(label + "...")
	c.goAsync(func() {
		defer release()
		err := fn(c.ctx)
		switch {
		case errors.Is(err, context.Canceled):
		case err != nil:
			c.fail(err)
		default:
			c.info(label + " done")
			c.notifier.Edit(label, c.sess.Image())
		}
		c.repaint()
	})
}

func (c *controller) step(fn func() (history.Snapshot, error)) {
	if _, err := fn(); err != nil {
		c.fail(err)
	}
}

func (c *controller) local(err error) {
	if err != nil {
		c.fail(err)
	}
}

func (c *controller) copy() {
	img := c.sess.Image()
	if img == nil {
		c.fail(editor.ErrNoImage)
		return
	}
	if err := c.copyImage(img); err != nil {
		c.fail(fmt.Errorf("copy: %w", err))
		return
	}
	c.info("image copied to clipboard")
	c.notifier.Copy("image")
}

// save writes the current image to the output path, or to a timestamped
// file in the save directory.
func (c *controller) save() {
	path := c.output
	if path == "" {
		name := "pixshop-" + c.now().Format("20060102-150405") + imageops.Extension(c.format)
		path = filepath.Join(c.saveDir, name)
	}
	if err := c.saveTo(path); err != nil {
		c.fail(err)
		return
	}
	c.info("saved " + path)
	c.logger.Info().Str("path", path).Msg("image saved")
	c.notifier.Save(path)
}

func (c *controller) saveTo(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if _, err := c.sess.Export(f, c.format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func (c *controller) info(msg string) { c.setMessage(msg, false) }

func (c *controller) fail(err error) {
	c.logger.Warn().Err(err).Msg("viewer")
	c.setMessage(err.Error(), true)
}

func (c *controller) setMessage(msg string, isErr bool) {
	c.mu.Lock()
	c.message, c.messageErr = msg, isErr
	c.messageUntil = c.now().Add(messageTTL)
	c.mu.Unlock()
}

// status is the state shown in the status bar.
type status struct {
	text  string
	busy  bool
	isErr bool
}

func (c *controller) status() status {
	if c.prompt.active {
		return status{text: fmt.Sprintf("%s> %s_", c.prompt.purpose, string(c.prompt.text))}
	}
	v := c.sess.Viewport()
	entries, pos := c.sess.Entries()
	parts := []string{c.sess.Mode().String(), fmt.Sprintf("%.0f%%", v.Scale*100)}
	if pos >= 0 {
		parts = append(parts, fmt.Sprintf("%d/%d %s", pos+1, len(entries), entries[pos].Label))
	}
	if m := c.sess.Mode(); m == editor.ModeFilter || m == editor.ModeAdjust {
		if p, ok := c.currentPreset(); ok {
			parts = append(parts, "preset: "+p.Name)
		}
	}
	st := status{busy: c.sess.Busy()}
	c.mu.Lock()
	if c.message != "" && c.now().Before(c.messageUntil) {
		parts = append(parts, c.message)
		st.isErr = c.messageErr
	}
	c.mu.Unlock()
	st.text = strings.Join(parts, " | ")
	return st
}
