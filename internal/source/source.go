// Package source loads the image a session starts from.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/example/pixshop/internal/clipboard"
	"github.com/example/pixshop/internal/history"
	"github.com/example/pixshop/internal/imageops"
)

// MaxSize bounds how much image data is read from files and stdin.
const MaxSize = 64 << 20

// FromFile reads and validates an image file. "-" reads standard input.
func FromFile(path string) (history.Snapshot, error) {
	if path == "-" {
		return FromReader(os.Stdin, "stdin")
	}
	f, err := os.Open(path)
	if err != nil {
		return history.Snapshot{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return FromReader(f, filepath.Base(path))
}

// FromReader reads an encoded image from r.
func FromReader(r io.Reader, label string) (history.Snapshot, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return history.Snapshot{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxSize {
		return history.Snapshot{}, fmt.Errorf("read image: larger than %d bytes", MaxSize)
	}
	snap, err := imageops.FromBlob(data, label)
	if err != nil {
		return history.Snapshot{}, fmt.Errorf("load %s: %w", label, err)
	}
	return snap, nil
}

// FromClipboard loads the image currently on the clipboard.
func FromClipboard() (history.Snapshot, error) {
	data, err := clipboard.ReadImage()
	if err != nil {
		return history.Snapshot{}, fmt.Errorf("clipboard: %w", err)
	}
	return imageops.FromBlob(data, "clipboard")
}

// ScreenOptions controls desktop screenshots.
type ScreenOptions struct {
	// Interactive lets the user pick the area in the portal dialog.
	Interactive bool
	// IncludeCursor embeds the pointer in the screenshot.
	IncludeCursor bool
	// Monitor limits the X11 fallback to one output, counting from 1.
	// Zero grabs the whole screen.
	Monitor int
}

// FromScreen takes a screenshot through the desktop portal. When the portal
// is unavailable and an X display is set, the root window is grabbed
// directly. A dismissed portal dialog is not retried.
func FromScreen(ctx context.Context, opts ScreenOptions) (history.Snapshot, error) {
	data, err := portalScreenshot(ctx, opts)
	if err == nil {
		return imageops.FromBlob(data, "screenshot")
	}
	if errors.Is(err, ErrCancelled) || ctx.Err() != nil || !x11Available() {
		return history.Snapshot{}, err
	}
	img, xerr := x11Screenshot(opts.Monitor)
	if xerr != nil {
		return history.Snapshot{}, fmt.Errorf("%w; x11 fallback: %v", err, xerr)
	}
	return imageops.Snapshot(img, imageops.MIMEPNG, "screenshot")
}
