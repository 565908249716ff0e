package genai

import (
	"context"
	"fmt"

	"github.com/example/pixshop/internal/prompts"
)

// Provider performs the generative edits. Every method returns the new
// image or an error; the input is never modified.
type Provider interface {
	Name() string
	Retouch(ctx context.Context, img Image, request string, at prompts.Hotspot) (Image, error)
	Erase(ctx context.Context, img Image, mask Image, request string) (Image, error)
	Filter(ctx context.Context, img Image, style prompts.Preset) (Image, error)
	Adjust(ctx context.Context, img Image, style prompts.Preset) (Image, error)
	Upscale(ctx context.Context, img Image, factor float64) (Image, error)
}

var _ Provider = (*Client)(nil)

// Name identifies the provider in logs and status output.
func (c *Client) Name() string { return "gemini" }

func (c *Client) Retouch(ctx context.Context, img Image, request string, at prompts.Hotspot) (Image, error) {
	text, err := prompts.Retouch(request, at)
	if err != nil {
		return Image{}, err
	}
	return c.edit(ctx, "retouch", Request{Prompt: text, Image: img})
}

func (c *Client) Erase(ctx context.Context, img Image, mask Image, request string) (Image, error) {
	return c.edit(ctx, "erase", Request{Prompt: prompts.Erase(request), Image: img, Mask: &mask})
}

func (c *Client) Filter(ctx context.Context, img Image, style prompts.Preset) (Image, error) {
	text, err := prompts.Filter(style.Prompt)
	if err != nil {
		return Image{}, err
	}
	return c.edit(ctx, "filter", Request{Prompt: text, Image: img})
}

func (c *Client) Adjust(ctx context.Context, img Image, style prompts.Preset) (Image, error) {
	text, err := prompts.Adjust(style.Prompt)
	if err != nil {
		return Image{}, err
	}
	return c.edit(ctx, "adjust", Request{Prompt: text, Image: img})
}

func (c *Client) Upscale(ctx context.Context, img Image, factor float64) (Image, error) {
	if factor <= 1 {
		return Image{}, fmt.Errorf("upscale: factor %v must be greater than 1", factor)
	}
	return c.edit(ctx, "upscale", Request{Prompt: prompts.Upscale(factor), Image: img})
}

func (c *Client) edit(ctx context.Context, op string, req Request) (Image, error) {
	res, err := c.Generate(ctx, req)
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w", op, err)
	}
	return res.Image, nil
}
