package editor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pixshop/internal/genai"
	"github.com/example/pixshop/internal/history"
	"github.com/example/pixshop/internal/imageops"
	"github.com/example/pixshop/internal/mask"
	"github.com/example/pixshop/internal/prompts"
	"github.com/example/pixshop/internal/viewport"
)

type fakeProvider struct {
	mu      sync.Mutex
	calls   []string
	hotspot prompts.Hotspot
	mask    []byte
	result  image.Image
	err     error
	block   chan struct{}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) record(op string) (genai.Image, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
	if f.err != nil {
		return genai.Image{}, f.err
	}
	data, mime, err := imageops.Encode(f.result, imageops.MIMEPNG)
	return genai.Image{Data: data, MIME: mime}, err
}

func (f *fakeProvider) Retouch(ctx context.Context, img genai.Image, request string, at prompts.Hotspot) (genai.Image, error) {
	f.hotspot = at
	return f.record("retouch")
}

func (f *fakeProvider) Erase(ctx context.Context, img genai.Image, m genai.Image, request string) (genai.Image, error) {
	f.mask = m.Data
	return f.record("erase")
}

func (f *fakeProvider) Filter(ctx context.Context, img genai.Image, style prompts.Preset) (genai.Image, error) {
	return f.record("filter")
}

func (f *fakeProvider) Adjust(ctx context.Context, img genai.Image, style prompts.Preset) (genai.Image, error) {
	return f.record("adjust")
}

func (f *fakeProvider) Upscale(ctx context.Context, img genai.Image, factor float64) (genai.Image, error) {
	return f.record("upscale")
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

func snapshotOf(t *testing.T, img image.Image) history.Snapshot {
	t.Helper()
	s, err := imageops.Snapshot(img, imageops.MIMEPNG, "original")
	require.NoError(t, err)
	return s
}

func newSession(t *testing.T, p genai.Provider) *Session {
	t.Helper()
	s := New(WithProvider(p))
	s.Layout(viewport.R(0, 0, 100, 50))
	require.NoError(t, s.Open(snapshotOf(t, fill(200, 100, color.RGBA{200, 0, 0, 255}))))
	return s
}

func TestOpenFitsContainer(t *testing.T) {
	s := newSession(t, &fakeProvider{})
	v := s.Viewport()
	assert.Equal(t, viewport.Pt(100, 50), v.Display)
	assert.Equal(t, viewport.Pt(200, 100), v.Natural)
	assert.True(t, s.Loaded())
}

func TestRetouchRequiresHotspot(t *testing.T) {
	fp := &fakeProvider{result: fill(200, 100, color.RGBA{0, 200, 0, 255})}
	s := newSession(t, fp)

	err := s.Retouch(context.Background(), "add a bird")
	assert.ErrorIs(t, err, ErrNoHotspot)

	_, err = s.SetHotspotFromClient(viewport.Pt(150, 10))
	assert.ErrorIs(t, err, ErrOutside)

	n, err := s.SetHotspotFromClient(viewport.Pt(25, 10))
	require.NoError(t, err)
	assert.InDelta(t, 50, n.X, 1e-9)
	assert.InDelta(t, 20, n.Y, 1e-9)

	require.NoError(t, s.Retouch(context.Background(), "add a bird"))
	assert.Equal(t, prompts.Hotspot{X: 50, Y: 20}, fp.hotspot)

	_, ok := s.Hotspot()
	assert.False(t, ok, "hotspot cleared after edit")
	entries, pos := s.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, pos)
	assert.Equal(t, "retouch", entries[1].Label)
	assert.Equal(t, color.RGBA{0, 200, 0, 255}, s.Image().RGBAAt(0, 0))
}

func TestEraseSendsNaturalSizedMask(t *testing.T) {
	fp := &fakeProvider{result: fill(200, 100, color.RGBA{0, 0, 200, 255})}
	s := newSession(t, fp)
	s.SetMode(ModeErase)

	assert.ErrorIs(t, s.Erase(context.Background(), ""), ErrNoMask)

	require.True(t, s.BeginStroke(viewport.Pt(10, 10)))
	assert.True(t, s.ExtendStroke(viewport.Pt(40, 10)))
	assert.False(t, s.ExtendStroke(viewport.Pt(400, 10)))
	s.EndStroke()
	require.Len(t, s.Strokes(), 1)

	require.NoError(t, s.Erase(context.Background(), ""))
	m, _, err := imageops.Decode(fp.mask)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), m.Bounds())
	assert.Empty(t, s.Strokes())
}

func TestMaskUsesDisplayScale(t *testing.T) {
	s := newSession(t, &fakeProvider{})
	s.AddStroke(mask.Stroke{viewport.Pt(50, 25)})
	m, err := s.Mask()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), m.Bounds())
	assert.Equal(t, uint8(0xff), m.GrayAt(100, 50).Y)
	assert.Equal(t, uint8(0), m.GrayAt(0, 0).Y)
}

func TestUndoRedoReset(t *testing.T) {
	s := newSession(t, &fakeProvider{})
	require.NoError(t, s.Rotate(imageops.Right))
	require.NoError(t, s.Flip(imageops.Horizontal))
	assert.Equal(t, viewport.Pt(100, 200), s.Viewport().Natural)

	snap, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, "rotate right", snap.Label)

	snap, err = s.Reset()
	require.NoError(t, err)
	assert.Equal(t, "original", snap.Label)
	assert.Equal(t, viewport.Pt(200, 100), s.Viewport().Natural)

	_, err = s.Undo()
	assert.ErrorIs(t, err, history.ErrNothingToUndo)

	snap, err = s.Redo()
	require.NoError(t, err)
	assert.Equal(t, "rotate right", snap.Label)
	snap, err = s.Redo()
	require.NoError(t, err)
	assert.Equal(t, "flip horizontal", snap.Label)
	_, err = s.Redo()
	assert.ErrorIs(t, err, history.ErrNothingToRedo)
}

func TestCropUsesSelection(t *testing.T) {
	s := newSession(t, &fakeProvider{})
	assert.ErrorIs(t, s.Crop(), ErrNoSelection)

	s.SelectFromClient(viewport.Pt(60, 40), viewport.Pt(10, 10))
	assert.Equal(t, viewport.R(10, 10, 60, 40), s.Selection())
	require.NoError(t, s.Crop())

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, 50, cur.Width)
	assert.Equal(t, 30, cur.Height)
	assert.True(t, s.Selection().Empty())
}

func TestCropHonorsDevicePixelRatio(t *testing.T) {
	s := New(WithDevicePixelRatio(2))
	s.Layout(viewport.R(0, 0, 100, 50))
	require.NoError(t, s.Open(snapshotOf(t, fill(200, 100, color.RGBA{1, 2, 3, 255}))))
	s.SetSelection(viewport.R(0, 0, 50, 25))
	require.NoError(t, s.Crop())
	img := s.Image()
	assert.Equal(t, image.Rect(0, 0, 100, 50), img.Bounds())
}

func TestGenerativeEditIsExclusive(t *testing.T) {
	fp := &fakeProvider{result: fill(200, 100, color.RGBA{A: 255}), block: make(chan struct{})}
	s := newSession(t, fp)

	done := make(chan error, 1)
	go func() { done <- s.Filter(context.Background(), prompts.Preset{Name: "Anime", Prompt: "anime"}) }()
	require.Eventually(t, s.Busy, timeout, tick)

	assert.ErrorIs(t, s.Adjust(context.Background(), prompts.Preset{Prompt: "warmer"}), ErrBusy)
	_, err := s.Undo()
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, s.Rotate(imageops.Left), ErrBusy)

	close(fp.block)
	require.NoError(t, <-done)
	assert.False(t, s.Busy())
	entries, _ := s.Entries()
	assert.Equal(t, "filter: Anime", entries[len(entries)-1].Label)
}

// sizedProvider answers every filter with a white image of the input's size.
type sizedProvider struct {
	fakeProvider
}

func (p *sizedProvider) Filter(ctx context.Context, img genai.Image, style prompts.Preset) (genai.Image, error) {
	src, _, err := imageops.Decode(img.Data)
	if err != nil {
		return genai.Image{}, err
	}
	b := src.Bounds()
	data, mime, err := imageops.Encode(fill(b.Dx(), b.Dy(), color.RGBA{255, 255, 255, 255}), imageops.MIMEPNG)
	return genai.Image{Data: data, MIME: mime}, err
}

func TestLocalEditExcludesGenerativeEdit(t *testing.T) {
	for i := 0; i < 5; i++ {
		s := New(WithProvider(&sizedProvider{}))
		s.Layout(viewport.R(0, 0, 300, 100))
		require.NoError(t, s.Open(snapshotOf(t, fill(3000, 1000, color.RGBA{10, 20, 30, 255}))))

		rotated := make(chan error, 1)
		go func() { rotated <- s.Rotate(imageops.Right) }()
		for !s.Busy() {
			if entries, _ := s.Entries(); len(entries) > 1 {
				break
			}
		}
		filterErr := s.Filter(context.Background(), prompts.Preset{Name: "x", Prompt: "x"})
		require.NoError(t, <-rotated)

		entries, _ := s.Entries()
		var labels []string
		for _, e := range entries {
			labels = append(labels, e.Label)
		}
		if filterErr != nil {
			require.ErrorIs(t, filterErr, ErrBusy)
			assert.Equal(t, []string{"original", "rotate right"}, labels)
		} else {
			assert.Equal(t, []string{"original", "rotate right", "filter: x"}, labels)
		}
		assert.Equal(t, image.Pt(1000, 3000), s.Image().Bounds().Size())
	}
}

func TestReserveHandsOverToGenerativeEdit(t *testing.T) {
	fp := &fakeProvider{result: fill(200, 100, color.RGBA{A: 255})}
	s := newSession(t, fp)

	release, err := s.Reserve()
	require.NoError(t, err)
	assert.True(t, s.Busy())
	_, err = s.Reserve()
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, s.Flip(imageops.Horizontal), ErrBusy)
	_, err = s.Undo()
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, s.Filter(context.Background(), prompts.Preset{Prompt: "anime"}))
	assert.False(t, s.Busy())
	release()
	assert.False(t, s.Busy())

	release, err = s.Reserve()
	require.NoError(t, err)
	release()
	assert.False(t, s.Busy())
	require.NoError(t, s.Rotate(imageops.Left))
}

func TestProviderErrorKeepsHistory(t *testing.T) {
	boom := errors.New("boom")
	s := newSession(t, &fakeProvider{err: boom})
	err := s.Upscale(context.Background(), 2)
	assert.ErrorIs(t, err, boom)
	entries, pos := s.Entries()
	assert.Len(t, entries, 1)
	assert.Equal(t, 0, pos)
}

func TestExport(t *testing.T) {
	s := newSession(t, &fakeProvider{})
	var buf bytes.Buffer
	mime, err := s.Export(&buf, imageops.MIMEJPEG)
	require.NoError(t, err)
	assert.Equal(t, imageops.MIMEJPEG, mime)
	got, err := imageops.Sniff(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, imageops.MIMEJPEG, got)
}

func TestSetModeClearsTransientState(t *testing.T) {
	s := newSession(t, &fakeProvider{})
	require.NoError(t, s.SetHotspot(viewport.Pt(10, 10)))
	s.SetMode(ModeCrop)
	_, ok := s.Hotspot()
	assert.False(t, ok)
	assert.Equal(t, ModeCrop, s.Mode())
	assert.ErrorIs(t, s.SetHotspot(viewport.Pt(500, 10)), ErrOutside)
}

func TestNoImage(t *testing.T) {
	s := New()
	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNoImage)
	assert.ErrorIs(t, s.Rotate(imageops.Left), ErrNoImage)
	assert.ErrorIs(t, s.Filter(context.Background(), prompts.Preset{}), ErrNoImage)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Erase")
	require.NoError(t, err)
	assert.Equal(t, ModeErase, m)
	_, err = ParseMode("paint")
	assert.Error(t, err)
	assert.Equal(t, "crop", ModeCrop.String())
}
