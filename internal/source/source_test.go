package source

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/pixshop/internal/imageops"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.png")
	if err := os.WriteFile(path, pngBytes(t, 7, 3), 0o644); err != nil {
		t.Fatal(err)
	}
	snap, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if snap.Width != 7 || snap.Height != 3 || snap.MIME != imageops.MIMEPNG {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Label != "in.png" {
		t.Fatalf("label = %q", snap.Label)
	}
}

func TestFromFileMissing(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "nope.png")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestFromReaderRejectsText(t *testing.T) {
	_, err := FromReader(strings.NewReader("hello, not a picture"), "stdin")
	if !errors.Is(err, imageops.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
