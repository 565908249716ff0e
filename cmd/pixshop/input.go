package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/example/pixshop/internal/clipboard"
	"github.com/example/pixshop/internal/editor"
	"github.com/example/pixshop/internal/history"
	"github.com/example/pixshop/internal/imageops"
	"github.com/example/pixshop/internal/source"
)

var (
	readFileFn       = source.FromFile
	readClipboardFn  = source.FromClipboard
	captureScreenFn  = source.FromScreen
	writeClipboardFn = clipboard.WriteImage
)

// imageIO holds the flags shared by every command that loads an image and
// writes a result.
type imageIO struct {
	file          string
	fromClipboard bool
	fromScreen    bool
	interactive   bool
	monitor       int
	output        string
	toClipboard   bool
	format        string
}

func (in *imageIO) bind(fs *flag.FlagSet) {
	fs.StringVar(&in.file, "file", "", "input image file (- reads standard input)")
	fs.BoolVar(&in.fromClipboard, "from-clipboard", false, "read the input image from the clipboard")
	fs.BoolVar(&in.fromClipboard, "from-clip", false, "read the input image from the clipboard (alias)")
	fs.BoolVar(&in.fromScreen, "from-screen", false, "start from a desktop screenshot")
	fs.BoolVar(&in.interactive, "select", false, "let the screenshot dialog pick an area (with -from-screen)")
	fs.IntVar(&in.monitor, "monitor", 0, "monitor to grab when the X11 fallback is used, counting from 1 (0: all)")
	fs.StringVar(&in.output, "output", "", "output file path (defaults to the input file)")
	fs.BoolVar(&in.toClipboard, "to-clipboard", false, "copy the result to the clipboard")
	fs.BoolVar(&in.toClipboard, "to-clip", false, "copy the result to the clipboard (alias)")
	fs.StringVar(&in.format, "format", "", "output format: png or jpeg (defaults to the output extension)")
}

// validate checks that exactly one source is named and that the result has
// somewhere to go.
func (in *imageIO) validate() error {
	sources := 0
	for _, set := range []bool{in.file != "", in.fromClipboard, in.fromScreen} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return errors.New("an input is required: -file, -from-clipboard or -from-screen")
	case sources > 1:
		return errors.New("-file, -from-clipboard and -from-screen are mutually exclusive")
	}
	if in.output == "" && !in.toClipboard {
		switch {
		case in.fromClipboard:
			return errors.New("output file is required when reading from the clipboard")
		case in.fromScreen:
			return errors.New("output file is required when capturing the screen")
		case in.file == "-":
			return errors.New("output file is required when reading standard input")
		}
	}
	return nil
}

// load reads the input image.
func (in *imageIO) load(ctx context.Context) (history.Snapshot, error) {
	switch {
	case in.fromClipboard:
		snap, err := readClipboardFn()
		if err != nil {
			return history.Snapshot{}, fmt.Errorf("failed to read clipboard: %w", err)
		}
		return snap, nil
	case in.fromScreen:
		snap, err := captureScreenFn(ctx, source.ScreenOptions{Interactive: in.interactive, Monitor: in.monitor})
		if err != nil {
			return history.Snapshot{}, fmt.Errorf("failed to capture screen: %w", err)
		}
		return snap, nil
	}
	return readFileFn(in.file)
}

// target returns the output path, or "" when only the clipboard is written.
func (in *imageIO) target() string {
	if in.output != "" {
		return in.output
	}
	if in.toClipboard || in.file == "-" {
		return ""
	}
	return in.file
}

// outputFormat picks the MIME type for path: -format first, then the file
// extension, then the configured default.
func (in *imageIO) outputFormat(path, fallback string) (string, error) {
	if in.format != "" {
		return imageops.ParseFormat(in.format)
	}
	switch filepath.Ext(path) {
	case ".png":
		return imageops.MIMEPNG, nil
	case ".jpg", ".jpeg":
		return imageops.MIMEJPEG, nil
	}
	return imageops.ParseFormat(fallback)
}

// emit writes the current image of sess to the output file and the
// clipboard, as requested.
func (r *root) emit(in *imageIO, sess *editor.Session) error {
	if path := in.target(); path != "" {
		mime, err := in.outputFormat(path, r.config.Editor.Format)
		if err != nil {
			return err
		}
		if err := writeImageFile(path, sess, mime); err != nil {
			return err
		}
		fmt.Fprintf(r.stdout, "saved %s\n", path)
		r.notifier.Save(path)
	}
	if in.toClipboard {
		if err := writeClipboardFn(sess.Image()); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Fprintln(r.stdout, "copied to clipboard")
		r.notifier.Copy("image")
	}
	return nil
}

func writeImageFile(path string, sess *editor.Session, mime string) error {
	var buf bytes.Buffer
	if _, err := sess.Export(&buf, mime); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writePNG writes img as PNG to path.
func writePNG(path string, img image.Image) error {
	data, _, err := imageops.Encode(img, imageops.MIMEPNG)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
