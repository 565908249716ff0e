package imageops

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/example/pixshop/internal/viewport"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 0x40, 0xff})
		}
	}
	return img
}

func TestRotateRoundTripDimensions(t *testing.T) {
	img := gradient(64, 24)
	for _, order := range [][2]Direction{{Left, Right}, {Right, Left}} {
		once := Rotate(img, order[0])
		if got, want := once.Bounds().Size(), image.Pt(24, 64); got != want {
			t.Fatalf("after first turn size %v, want %v", got, want)
		}
		back := Rotate(once, order[1])
		if got, want := back.Bounds().Size(), img.Bounds().Size(); got != want {
			t.Fatalf("round trip size %v, want %v", got, want)
		}
	}
}

func TestFlip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	mark := color.RGBA{255, 0, 0, 255}
	img.Set(0, 0, mark)

	h := Flip(img, Horizontal)
	if h.RGBAAt(3, 0) != mark {
		t.Fatalf("horizontal flip lost marker: %+v", h.RGBAAt(3, 0))
	}
	v := Flip(img, Vertical)
	if v.RGBAAt(0, 2) != mark {
		t.Fatalf("vertical flip lost marker: %+v", v.RGBAAt(0, 2))
	}
	if v.Bounds() != img.Bounds() {
		t.Fatalf("flip changed bounds: %v", v.Bounds())
	}
}

func TestCropScalesByDevicePixelRatio(t *testing.T) {
	img := gradient(800, 600)
	display := viewport.Pt(400, 300)
	ratio := viewport.Pt(2, 2)
	tests := []struct {
		name string
		sel  viewport.Rect
		dpr  float64
		want image.Point
	}{
		{"dpr1", viewport.R(10, 10, 110, 60), 1, image.Pt(100, 50)},
		{"dpr2", viewport.R(10, 10, 110, 60), 2, image.Pt(200, 100)},
		{"clamped", viewport.R(350, 250, 500, 400), 1, image.Pt(50, 50)},
		{"default dpr", viewport.R(0, 0, 40, 30), 0, image.Pt(40, 30)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Crop(img, tc.sel, display, ratio, tc.dpr)
			if err != nil {
				t.Fatalf("crop: %v", err)
			}
			if got := out.Bounds().Size(); got != tc.want {
				t.Fatalf("size %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCropNativeCopyIsExact(t *testing.T) {
	img := gradient(100, 100)
	out, err := Crop(img, viewport.R(20, 30, 40, 50), viewport.Pt(100, 100), viewport.Pt(1, 1), 1)
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if out.RGBAAt(0, 0) != img.RGBAAt(20, 30) {
		t.Fatalf("top-left %+v, want %+v", out.RGBAAt(0, 0), img.RGBAAt(20, 30))
	}
}

func TestCropEmptySelection(t *testing.T) {
	img := gradient(10, 10)
	_, err := Crop(img, viewport.R(20, 20, 30, 30), viewport.Pt(10, 10), viewport.Pt(1, 1), 1)
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestUpscale(t *testing.T) {
	out, err := Upscale(gradient(30, 20), 2)
	if err != nil {
		t.Fatalf("upscale: %v", err)
	}
	if got := out.Bounds().Size(); got != image.Pt(60, 40) {
		t.Fatalf("size %v", got)
	}
	if _, err := Upscale(gradient(3, 3), 0); err == nil {
		t.Fatal("expected error for zero factor")
	}
}

func TestCodecRoundTripAndSniff(t *testing.T) {
	img := gradient(16, 8)
	for _, mime := range []string{MIMEPNG, MIMEJPEG} {
		data, got, err := Encode(img, mime)
		if err != nil {
			t.Fatalf("encode %s: %v", mime, err)
		}
		if got != mime {
			t.Fatalf("encoded as %s, want %s", got, mime)
		}
		sniffed, err := Sniff(data)
		if err != nil || sniffed != mime {
			t.Fatalf("sniff = %q, %v", sniffed, err)
		}
		dec, _, err := Decode(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if dec.Bounds().Size() != image.Pt(16, 8) {
			t.Fatalf("decoded size %v", dec.Bounds())
		}
	}
	if _, err := Sniff([]byte("plain text, not an image")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSnapshotCarriesDimensions(t *testing.T) {
	s, err := Snapshot(gradient(12, 7), "", "upload")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if s.Width != 12 || s.Height != 7 || s.MIME != MIMEPNG || s.Label != "upload" {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	blob, err := FromBlob(s.Bytes(), "copy")
	if err != nil {
		t.Fatalf("from blob: %v", err)
	}
	if blob.Width != 12 || blob.Height != 7 {
		t.Fatalf("blob dims %dx%d", blob.Width, blob.Height)
	}
}

func TestRotateMovesCorners(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	mark := color.RGBA{0, 0, 255, 255}
	img.Set(0, 0, mark)
	if got := Rotate(img, Right).RGBAAt(1, 0); got != mark {
		t.Fatalf("clockwise turn: top-left should land top-right, got %+v", got)
	}
	if got := Rotate(img, Left).RGBAAt(0, 2); got != mark {
		t.Fatalf("counter-clockwise turn: top-left should land bottom-left, got %+v", got)
	}
	back := Rotate(Rotate(img, Left), Right)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			if back.RGBAAt(x, y) != img.RGBAAt(x, y) {
				t.Fatalf("round trip differs at %d,%d", x, y)
			}
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": MIMEPNG, "PNG": MIMEPNG, "jpg": MIMEJPEG, "image/jpeg": MIMEJPEG} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("tiff"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if Extension(MIMEJPEG) != ".jpg" || Extension("") != ".png" {
		t.Fatal("unexpected extensions")
	}
}
