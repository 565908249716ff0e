package genai

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pixshop/internal/imageops"
	"github.com/example/pixshop/internal/prompts"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func encoded(t *testing.T, img image.Image) Image {
	t.Helper()
	data, mime, err := imageops.Encode(img, imageops.MIMEPNG)
	require.NoError(t, err)
	return Image{Data: data, MIME: mime}
}

func TestLocalRefusesGenerativeEdits(t *testing.T) {
	l := NewLocal(nil)
	in := encoded(t, solid(4, 4, color.RGBA{10, 20, 30, 255}))
	_, err := l.Retouch(context.Background(), in, "hat", prompts.Hotspot{})
	assert.ErrorIs(t, err, ErrOffline)
	_, err = l.Erase(context.Background(), in, in, "")
	assert.ErrorIs(t, err, ErrOffline)
	_, err = l.Filter(context.Background(), in, prompts.Preset{Name: "custom", Prompt: "make it moody"})
	assert.ErrorIs(t, err, ErrOffline)
}

func TestLocalFilterGrayscale(t *testing.T) {
	l := NewLocal(nil)
	in := encoded(t, solid(3, 2, color.RGBA{200, 40, 90, 255}))
	out, err := l.Filter(context.Background(), in, prompts.Preset{Name: "noir", Local: []prompts.Step{{Op: "grayscale"}}})
	require.NoError(t, err)
	img, _, err := imageops.Decode(out.Data)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	px := img.RGBAAt(1, 1)
	assert.Equal(t, px.R, px.G)
	assert.Equal(t, px.G, px.B)
}

func TestLocalUpscale(t *testing.T) {
	l := NewLocal(nil)
	in := encoded(t, solid(5, 3, color.RGBA{1, 2, 3, 255}))
	out, err := l.Upscale(context.Background(), in, 2)
	require.NoError(t, err)
	img, _, err := imageops.Decode(out.Data)
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())
}

func TestApplyUnknownStep(t *testing.T) {
	_, err := Apply(solid(1, 1, color.RGBA{A: 255}), []prompts.Step{{Op: "teleport"}})
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestWarmShiftsBalance(t *testing.T) {
	out, err := Apply(solid(1, 1, color.RGBA{100, 100, 100, 255}), []prompts.Step{{Op: "warm", Amount: 0.5}})
	require.NoError(t, err)
	px := out.RGBAAt(0, 0)
	assert.Greater(t, px.R, uint8(100))
	assert.Less(t, px.B, uint8(100))
}

func TestBuiltinRecipesRun(t *testing.T) {
	src := solid(8, 8, color.RGBA{120, 80, 60, 255})
	for _, p := range prompts.Presets("") {
		_, err := Apply(src, p.Local)
		assert.NoError(t, err, p.Name)
	}
}
