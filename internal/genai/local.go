package genai

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"

	"github.com/example/pixshop/internal/imageops"
	"github.com/example/pixshop/internal/logging"
	"github.com/example/pixshop/internal/prompts"
)

// ErrOffline is returned by Local for edits that need the remote model.
var ErrOffline = errors.New("operation needs the gemini provider")

// ErrUnknownStep is returned for recipe operations Local cannot perform.
var ErrUnknownStep = errors.New("unknown local step")

// Local applies deterministic approximations of presets without a network.
type Local struct {
	logger *logging.Logger
}

var _ Provider = (*Local)(nil)

// NewLocal returns an offline provider.
func NewLocal(logger *logging.Logger) *Local {
	return &Local{logger: logging.OrDiscard(logger)}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Retouch(ctx context.Context, img Image, request string, at prompts.Hotspot) (Image, error) {
	return Image{}, fmt.Errorf("retouch: %w", ErrOffline)
}

func (l *Local) Erase(ctx context.Context, img Image, mask Image, request string) (Image, error) {
	return Image{}, fmt.Errorf("erase: %w", ErrOffline)
}

func (l *Local) Filter(ctx context.Context, img Image, style prompts.Preset) (Image, error) {
	return l.apply(ctx, "filter", img, style)
}

func (l *Local) Adjust(ctx context.Context, img Image, style prompts.Preset) (Image, error) {
	return l.apply(ctx, "adjust", img, style)
}

func (l *Local) Upscale(ctx context.Context, img Image, factor float64) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	src, _, err := imageops.Decode(img.Data)
	if err != nil {
		return Image{}, fmt.Errorf("upscale: %w", err)
	}
	out, err := imageops.Upscale(src, factor)
	if err != nil {
		return Image{}, fmt.Errorf("upscale: %w", err)
	}
	return encodeLike(out, img.MIME)
}

func (l *Local) apply(ctx context.Context, op string, img Image, style prompts.Preset) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	if len(style.Local) == 0 {
		return Image{}, fmt.Errorf("%s %q: no local recipe: %w", op, style.Name, ErrOffline)
	}
	src, _, err := imageops.Decode(img.Data)
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w", op, err)
	}
	out, err := Apply(src, style.Local)
	if err != nil {
		return Image{}, fmt.Errorf("%s %q: %w", op, style.Name, err)
	}
	l.logger.Debug().Str("op", op).Str("preset", style.Name).Int("steps", len(style.Local)).Msg("local: recipe applied")
	return encodeLike(out, img.MIME)
}

// Apply runs recipe steps over src in order.
func Apply(src image.Image, steps []prompts.Step) (*image.RGBA, error) {
	cur := imageops.ToRGBA(src)
	for _, s := range steps {
		switch strings.ToLower(strings.TrimSpace(s.Op)) {
		case "brightness":
			cur = adjust.Brightness(cur, s.Amount)
		case "contrast":
			cur = adjust.Contrast(cur, s.Amount)
		case "saturation":
			cur = adjust.Saturation(cur, s.Amount)
		case "gamma":
			g := s.Amount
			if g <= 0 {
				g = 1
			}
			cur = adjust.Gamma(cur, g)
		case "hue":
			cur = adjust.Hue(cur, int(s.Amount))
		case "warm":
			cur = warm(cur, s.Amount)
		case "grayscale":
			cur = imageops.ToRGBA(effect.Grayscale(cur))
		case "sepia":
			cur = effect.Sepia(cur)
		case "invert":
			cur = effect.Invert(cur)
		case "sharpen":
			cur = effect.Sharpen(cur)
		case "emboss":
			cur = effect.Emboss(cur)
		case "median":
			cur = effect.Median(cur, radius(s.Amount, 1))
		case "blur":
			cur = blur.Gaussian(cur, radius(s.Amount, 2))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownStep, s.Op)
		}
	}
	return cur, nil
}

func radius(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

// warm shifts the colour balance towards red and away from blue by amount
// in [0,1].
func warm(src *image.RGBA, amount float64) *image.RGBA {
	shift := amount * 40
	return adjust.Apply(src, func(c color.RGBA) color.RGBA {
		c.R = clamp8(float64(c.R) + shift)
		c.G = clamp8(float64(c.G) + shift/3)
		c.B = clamp8(float64(c.B) - shift)
		return c
	})
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func encodeLike(img image.Image, mime string) (Image, error) {
	data, mime, err := imageops.Encode(img, mime)
	if err != nil {
		return Image{}, err
	}
	return Image{Data: data, MIME: mime}, nil
}
