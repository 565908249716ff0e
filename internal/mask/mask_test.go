package mask

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pixshop/internal/viewport"
)

func TestRasterizeMatchesNaturalSize(t *testing.T) {
	stroke := Stroke{viewport.Pt(10, 10), viewport.Pt(90, 40)}
	for _, tc := range []struct {
		name    string
		natural image.Point
		display viewport.Point
	}{
		{"downscaled", image.Pt(1600, 1200), viewport.Pt(400, 300)},
		{"native", image.Pt(400, 300), viewport.Pt(400, 300)},
		{"upscaled", image.Pt(200, 150), viewport.Pt(800, 600)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Rasterize([]Stroke{stroke}, tc.natural, tc.display, Options{})
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, tc.natural.X, tc.natural.Y), m.Bounds())
			assert.Greater(t, Coverage(m), 0.0)
		})
	}
}

func TestRasterizeScalesPointsAndBrush(t *testing.T) {
	stroke := Stroke{viewport.Pt(50, 50)}
	m, err := Rasterize([]Stroke{stroke}, image.Pt(400, 400), viewport.Pt(100, 100), Options{BrushWidth: 10})
	require.NoError(t, err)
	// centre moves to (200,200), radius becomes 20
	assert.Equal(t, uint8(0xff), m.GrayAt(200, 200).Y)
	assert.Equal(t, uint8(0xff), m.GrayAt(215, 200).Y)
	assert.Equal(t, uint8(0x00), m.GrayAt(225, 200).Y)
	assert.Equal(t, uint8(0x00), m.GrayAt(0, 0).Y)
}

func TestRasterizeRoundCaps(t *testing.T) {
	stroke := Stroke{viewport.Pt(20, 50), viewport.Pt(80, 50)}
	m, err := Rasterize([]Stroke{stroke}, image.Pt(100, 100), viewport.Pt(100, 100), Options{BrushWidth: 20})
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), m.GrayAt(50, 45).Y, "body")
	assert.Equal(t, uint8(0xff), m.GrayAt(12, 50).Y, "cap extends past the endpoint")
	assert.Equal(t, uint8(0x00), m.GrayAt(12, 42).Y, "cap is round, not square")
}

func TestSelfOverlapDoesNotCancel(t *testing.T) {
	stroke := Stroke{viewport.Pt(10, 50), viewport.Pt(90, 50), viewport.Pt(10, 50)}
	m, err := Rasterize([]Stroke{stroke}, image.Pt(100, 100), viewport.Pt(100, 100), Options{BrushWidth: 10})
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), m.GrayAt(50, 50).Y)
}

func TestStrokesOffImageAreClipped(t *testing.T) {
	natural, display := image.Pt(200, 100), viewport.Pt(100, 50)
	// A vertical stroke well to the right of the image paints nothing.
	m, err := Rasterize([]Stroke{{viewport.Pt(150, 5), viewport.Pt(150, 45)}}, natural, display, Options{BrushWidth: 10})
	require.NoError(t, err)
	assert.Zero(t, Coverage(m))

	// A stroke leaving the image keeps its shape up to the edge.
	m, err = Rasterize([]Stroke{{viewport.Pt(50, 25), viewport.Pt(300, 25)}}, natural, display, Options{BrushWidth: 10})
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), m.GrayAt(199, 50).Y)
	assert.Equal(t, uint8(0x00), m.GrayAt(199, 10).Y)
	assert.Equal(t, uint8(0x00), m.GrayAt(199, 90).Y)

	// Far away points leave the visible part untouched.
	m, err = Rasterize([]Stroke{{viewport.Pt(50, 25), viewport.Pt(1e9, 25)}}, natural, display, Options{BrushWidth: 10})
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), m.GrayAt(150, 50).Y)
	assert.Equal(t, uint8(0xff), m.GrayAt(199, 50).Y)
	assert.Equal(t, uint8(0x00), m.GrayAt(150, 10).Y)
}

func TestClipStroke(t *testing.T) {
	box := viewport.R(0, 0, 10, 10)
	runs := clipStroke([]viewport.Point{viewport.Pt(5, 5), viewport.Pt(15, 5), viewport.Pt(15, 8), viewport.Pt(5, 8), viewport.Pt(6, 9)}, box)
	require.Len(t, runs, 2)
	assert.Equal(t, []viewport.Point{viewport.Pt(5, 5), viewport.Pt(10, 5)}, runs[0])
	assert.Equal(t, []viewport.Point{viewport.Pt(10, 8), viewport.Pt(5, 8), viewport.Pt(6, 9)}, runs[1])

	assert.Empty(t, clipStroke([]viewport.Point{viewport.Pt(-5, 3)}, box))
	assert.Len(t, clipStroke([]viewport.Point{viewport.Pt(math.NaN(), 3), viewport.Pt(4, 4)}, box), 1)
}

func TestRecorderGesture(t *testing.T) {
	var r Recorder
	r.Add(viewport.Pt(1, 1))
	assert.True(t, r.Empty())
	r.Begin(viewport.Pt(0, 0))
	r.Add(viewport.Pt(1, 1))
	r.End()
	r.Add(viewport.Pt(2, 2))
	assert.False(t, r.Active())
	require.Len(t, r.Strokes(), 1)
	assert.Len(t, r.Strokes()[0], 2)
	r.Clear()
	assert.True(t, r.Empty())
}

func TestRasterizeRejectsZeroSize(t *testing.T) {
	_, err := Rasterize(nil, image.Pt(0, 10), viewport.Pt(10, 10), Options{})
	assert.ErrorIs(t, err, ErrBadSize)
}

func TestEncodeProducesPNG(t *testing.T) {
	m, err := Rasterize([]Stroke{{viewport.Pt(5, 5)}}, image.Pt(32, 16), viewport.Pt(32, 16), Options{})
	require.NoError(t, err)
	data, err := Encode(m)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 16, cfg.Height)
}

func TestPaintProjectsPoints(t *testing.T) {
	shift := func(p viewport.Point) viewport.Point { return p.Add(viewport.Pt(20, 0)) }
	cover := Paint(image.Pt(40, 20), []Stroke{{viewport.Pt(0, 10)}}, shift, 4)
	assert.Equal(t, uint8(0xff), cover.AlphaAt(20, 10).A)
	assert.Equal(t, uint8(0), cover.AlphaAt(2, 10).A)
}
