package imageops

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/image/webp"

	"github.com/example/pixshop/internal/history"
)

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEGIF  = "image/gif"
	MIMEWebP = "image/webp"
)

// JPEGQuality is used when exporting JPEG snapshots.
const JPEGQuality = 92

// ErrUnsupportedFormat is returned for payloads that are not a decodable image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Sniff returns the MIME type detected from the leading bytes of data.
func Sniff(data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if kind == filetype.Unknown || !filetype.IsImage(data) {
		return "", ErrUnsupportedFormat
	}
	return kind.MIME.Value, nil
}

// Decode sniffs and decodes data into an RGBA image with a zero origin.
func Decode(data []byte) (*image.RGBA, string, error) {
	mime, err := Sniff(data)
	if err != nil {
		return nil, "", err
	}
	var img image.Image
	r := bytes.NewReader(data)
	switch mime {
	case MIMEPNG:
		img, err = png.Decode(r)
	case MIMEJPEG:
		img, err = jpeg.Decode(r)
	case MIMEGIF:
		img, err = gif.Decode(r)
	case MIMEWebP:
		img, err = webp.Decode(r)
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime)
	}
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", mime, err)
	}
	return ToRGBA(img), mime, nil
}

// ToRGBA copies img into a new RGBA image whose bounds start at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// ParseFormat maps a short name or MIME type to one of the encodable MIME types.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png", MIMEPNG:
		return MIMEPNG, nil
	case "jpg", "jpeg", MIMEJPEG:
		return MIMEJPEG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Extension returns the file extension, with its dot, for mime.
func Extension(mime string) string {
	switch mime {
	case MIMEJPEG:
		return ".jpg"
	case MIMEGIF:
		return ".gif"
	case MIMEWebP:
		return ".webp"
	}
	return ".png"
}

// Encode writes img as mime. PNG is used for anything other than JPEG.
func Encode(img image.Image, mime string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch mime {
	case MIMEJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		mime = MIMEPNG
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
	}
	return buf.Bytes(), mime, nil
}

// Snapshot encodes img and wraps it as a history entry labelled label.
func Snapshot(img image.Image, mime, label string) (history.Snapshot, error) {
	data, mime, err := Encode(img, mime)
	if err != nil {
		return history.Snapshot{}, err
	}
	b := img.Bounds()
	return history.NewSnapshot(data, mime, b.Dx(), b.Dy(), label), nil
}

// FromBlob validates an encoded image and wraps it as a history entry
// without re-encoding it.
func FromBlob(data []byte, label string) (history.Snapshot, error) {
	mime, err := Sniff(data)
	if err != nil {
		return history.Snapshot{}, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		img, _, derr := Decode(data)
		if derr != nil {
			return history.Snapshot{}, derr
		}
		return history.NewSnapshot(data, mime, img.Bounds().Dx(), img.Bounds().Dy(), label), nil
	}
	return history.NewSnapshot(data, mime, cfg.Width, cfg.Height, label), nil
}

// Load decodes the image held by s.
func Load(s history.Snapshot) (*image.RGBA, error) {
	img, _, err := Decode(s.Bytes())
	return img, err
}
