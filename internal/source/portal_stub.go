//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package source

import (
	"context"
	"errors"
	"image"
)

// ErrCancelled is returned when the user dismissed the screenshot dialog.
var ErrCancelled = errors.New("screenshot cancelled")

func portalScreenshot(context.Context, ScreenOptions) ([]byte, error) {
	return nil, errors.New("portal screenshot is not supported on this platform")
}

func x11Available() bool { return false }

func x11Screenshot(int) (*image.RGBA, error) {
	return nil, errors.New("X11 capture is not supported on this platform")
}
