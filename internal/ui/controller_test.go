package ui

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"

	"github.com/example/pixshop/internal/editor"
	"github.com/example/pixshop/internal/genai"
	"github.com/example/pixshop/internal/imageops"
	"github.com/example/pixshop/internal/prompts"
	"github.com/example/pixshop/internal/viewport"
)

type retouchProvider struct {
	*genai.Local
	request string
	at      prompts.Hotspot
}

func (p *retouchProvider) Retouch(ctx context.Context, img genai.Image, request string, at prompts.Hotspot) (genai.Image, error) {
	p.request, p.at = request, at
	data, mime, err := imageops.Encode(fill(40, 20, color.RGBA{G: 255, A: 255}), imageops.MIMEPNG)
	return genai.Image{Data: data, MIME: mime}, err
}

func fill(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// newTestController opens a 40x20 image shown at natural size.
func newTestController(t *testing.T, p genai.Provider) *controller {
	t.Helper()
	sess := editor.New(editor.WithProvider(p))
	sess.Layout(viewport.R(0, 0, 40, 20))
	snap, err := imageops.Snapshot(fill(40, 20, color.RGBA{R: 255, A: 255}), imageops.MIMEPNG, "original")
	require.NoError(t, err)
	require.NoError(t, sess.Open(snap))

	c := newController(sess)
	c.goAsync = func(fn func()) { fn() }
	return c
}

func press(c *controller, r rune) bool {
	return c.onKey(key.Event{Rune: r, Direction: key.DirPress})
}

func pressCode(c *controller, code key.Code, mods key.Modifiers) bool {
	return c.onKey(key.Event{Rune: -1, Code: code, Modifiers: mods, Direction: key.DirPress})
}

func typeText(c *controller, s string) {
	for _, r := range s {
		press(c, r)
	}
}

func click(c *controller, dir mouse.Direction, x, y float32) bool {
	return c.onMouse(mouse.Event{X: x, Y: y, Button: mouse.ButtonLeft, Direction: dir})
}

func TestKeymapLookup(t *testing.T) {
	c := newTestController(t, genai.NewLocal(nil))
	tests := []struct {
		ev   key.Event
		want string
	}{
		{key.Event{Rune: '+', Modifiers: key.ModShift}, "zoom in"},
		{key.Event{Rune: 'U', Modifiers: key.ModShift}, "undo"},
		{key.Event{Rune: 'u', Modifiers: key.ModControl}, "upscale"},
		{key.Event{Rune: -1, Code: key.CodeEscape}, "clear"},
		{key.Event{Rune: '\r', Code: key.CodeReturnEnter}, "apply"},
		{key.Event{Rune: '\t', Code: key.CodeTab, Modifiers: key.ModShift}, "previous preset"},
	}
	for _, tc := range tests {
		got, ok := c.keys.lookup(tc.ev)
		assert.True(t, ok, "%+v", tc.ev)
		assert.Equal(t, tc.want, got)
	}
	_, ok := c.keys.lookup(key.Event{Rune: 'k'})
	assert.False(t, ok)
}

func TestRotateAndUndo(t *testing.T) {
	c := newTestController(t, genai.NewLocal(nil))
	press(c, ']')
	assert.Equal(t, image.Pt(20, 40), c.sess.Image().Bounds().Size())
	press(c, 'u')
	assert.Equal(t, image.Pt(40, 20), c.sess.Image().Bounds().Size())
	press(c, 'r')
	assert.Equal(t, image.Pt(20, 40), c.sess.Image().Bounds().Size())
	press(c, '0')
	assert.Equal(t, image.Pt(40, 20), c.sess.Image().Bounds().Size())
}

func TestCropFromDrag(t *testing.T) {
	c := newTestController(t, genai.NewLocal(nil))
	press(c, '4')
	require.Equal(t, editor.ModeCrop, c.sess.Mode())

	assert.True(t, click(c, mouse.DirPress, 5, 5))
	assert.True(t, click(c, mouse.DirNone, 12, 12))
	assert.True(t, click(c, mouse.DirRelease, 15, 15))
	assert.Equal(t, viewport.R(5, 5, 15, 15), c.sess.Selection())

	pressCode(c, key.CodeReturnEnter, 0)
	assert.Equal(t, image.Pt(10, 10), c.sess.Image().Bounds().Size())
	entries, _ := c.sess.Entries()
	assert.Equal(t, "crop", entries[len(entries)-1].Label)
}

func TestRetouchThroughPrompt(t *testing.T) {
	p := &retouchProvider{Local: genai.NewLocal(nil)}
	c := newTestController(t, p)
	require.Equal(t, editor.ModeRetouch, c.sess.Mode())

	pressCode(c, key.CodeReturnEnter, 0)
	assert.True(t, c.status().isErr, "enter without a hotspot reports an error")
	assert.Contains(t, c.status().text, editor.ErrNoHotspot.Error())

	click(c, mouse.DirPress, 10, 5)
	click(c, mouse.DirRelease, 10, 5)
	pressCode(c, key.CodeReturnEnter, 0)
	require.True(t, c.prompt.active)

	typeText(c, "add a hatt")
	pressCode(c, key.CodeDeleteBackspace, 0)
	assert.Equal(t, "retouch> add a hat_", c.status().text)
	assert.False(t, press(c, 'q'), "q is text while the prompt is open")
	pressCode(c, key.CodeDeleteBackspace, 0)
	pressCode(c, key.CodeReturnEnter, 0)

	assert.Equal(t, "add a hat", p.request)
	assert.Equal(t, prompts.Hotspot{X: 10, Y: 5}, p.at)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, c.sess.Image().RGBAAt(0, 0))
	st := c.status()
	assert.False(t, st.isErr)
	assert.Contains(t, st.text, "retouch done")
}

func TestPromptEscapeCancels(t *testing.T) {
	c := newTestController(t, genai.NewLocal(nil))
	press(c, '6')
	press(c, '/')
	require.True(t, c.prompt.active)
	typeText(c, "neon")
	pressCode(c, key.CodeEscape, 0)
	assert.False(t, c.prompt.active)
	entries, _ := c.sess.Entries()
	assert.Len(t, entries, 1)
}

func TestFilterPresetCycle(t *testing.T) {
	c := newTestController(t, genai.NewLocal(nil))
	press(c, '6')
	require.Equal(t, editor.ModeFilter, c.sess.Mode())

	filters := prompts.Presets(prompts.KindFilter)
	require.GreaterOrEqual(t, len(filters), 2)
	pressCode(c, key.CodeTab, 0)
	assert.Contains(t, c.status().text, "preset: "+filters[1].Name)
	pressCode(c, key.CodeTab, key.ModShift)
	pressCode(c, key.CodeTab, key.ModShift)
	assert.Contains(t, c.status().text, "preset: "+filters[len(filters)-1].Name)

	pressCode(c, key.CodeTab, 0)
	pressCode(c, key.CodeTab, 0)
	pressCode(c, key.CodeReturnEnter, 0)
	entries, pos := c.sess.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "filter: "+filters[1].Name, entries[pos].Label)
}

func TestEraseStrokeAndOfflineError(t *testing.T) {
	c := newTestController(t, genai.NewLocal(nil))
	press(c, '3')
	click(c, mouse.DirPress, 5, 5)
	click(c, mouse.DirNone, 20, 5)
	click(c, mouse.DirRelease, 20, 5)
	require.Len(t, c.sess.Strokes(), 1)

	pressCode(c, key.CodeReturnEnter, 0)
	require.True(t, c.prompt.active)
	pressCode(c, key.CodeReturnEnter, 0)
	st := c.status()
	assert.True(t, st.isErr)
	assert.Contains(t, st.text, genai.ErrOffline.Error())

	press(c, 'e')
	st = c.status()
	assert.True(t, st.isErr)
	assert.Contains(t, st.text, genai.ErrOffline.Error())
}

func TestWheelAndPan(t *testing.T) {
	c := newTestController(t, genai.NewLocal(nil))
	assert.True(t, c.onMouse(mouse.Event{X: 20, Y: 10, Button: mouse.ButtonWheelUp, Direction: mouse.DirStep}))
	v := c.sess.Viewport()
	assert.InDelta(t, viewport.WheelStep, v.Scale, 1e-9)

	c.onMouse(mouse.Event{X: 20, Y: 10, Button: mouse.ButtonRight, Direction: mouse.DirPress})
	c.onMouse(mouse.Event{X: 25, Y: 12, Direction: mouse.DirNone})
	c.onMouse(mouse.Event{X: 25, Y: 12, Button: mouse.ButtonRight, Direction: mouse.DirRelease})
	moved := c.sess.Viewport()
	assert.InDelta(t, v.Pan.X+5, moved.Pan.X, 1e-9)
	assert.InDelta(t, v.Pan.Y+2, moved.Pan.Y, 1e-9)

	press(c, 'z')
	assert.Equal(t, viewport.MinScale, c.sess.Viewport().Scale)
}

func TestSaveAndCopy(t *testing.T) {
	c := newTestController(t, genai.NewLocal(nil))
	c.saveDir = t.TempDir()
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	var copied image.Image
	c.copyImage = func(img image.Image) error { copied = img; return nil }

	press(c, 's')
	path := filepath.Join(c.saveDir, "pixshop-20260102-030405.png")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	mime, err := imageops.Sniff(data)
	require.NoError(t, err)
	assert.Equal(t, imageops.MIMEPNG, mime)
	assert.True(t, strings.HasSuffix(c.status().text, "saved "+path))

	press(c, 'c')
	require.NotNil(t, copied)
	assert.Equal(t, image.Pt(40, 20), copied.Bounds().Size())
}

func TestQuitCancelsContext(t *testing.T) {
	c := newTestController(t, genai.NewLocal(nil))
	assert.True(t, press(c, 'q'))
	assert.ErrorIs(t, c.ctx.Err(), context.Canceled)
}

func TestMessagesExpire(t *testing.T) {
	c := newTestController(t, genai.NewLocal(nil))
	now := time.Now()
	c.now = func() time.Time { return now }
	c.info("hello")
	assert.Contains(t, c.status().text, "hello")
	now = now.Add(messageTTL + time.Second)
	assert.NotContains(t, c.status().text, "hello")
}

func TestWindowSize(t *testing.T) {
	w, h := windowSize(fill(100, 100, color.RGBA{}))
	assert.Equal(t, minWidth, w)
	assert.Equal(t, minHeight, h)
	w, h = windowSize(fill(2000, 600, color.RGBA{}))
	assert.Equal(t, maxWidth, w)
	assert.Equal(t, 600+statusHeight, h)
}

func TestEditsRefusedWhileGenerativeQueued(t *testing.T) {
	c := newTestController(t, genai.NewLocal(nil))
	var queued func()
	c.goAsync = func(fn func()) { queued = fn }

	c.onKey(key.Event{Rune: 'u', Modifiers: key.ModControl, Direction: key.DirPress})
	require.NotNil(t, queued)
	assert.True(t, c.sess.Busy())

	press(c, ']')
	assert.Equal(t, image.Pt(40, 20), c.sess.Image().Bounds().Size())
	assert.Contains(t, c.status().text, editor.ErrBusy.Error())
	press(c, 'u')
	entries, pos := c.sess.Entries()
	assert.Len(t, entries, 1)
	assert.Equal(t, 0, pos)

	queued()
	assert.False(t, c.sess.Busy())
	assert.Equal(t, image.Pt(80, 40), c.sess.Image().Bounds().Size())
}
