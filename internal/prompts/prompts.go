// Package prompts builds the text instructions sent alongside images to the
// generative service.
package prompts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPrompt is returned when the user request is blank.
var ErrEmptyPrompt = errors.New("prompt is empty")

const safetyPolicy = `Safety and ethics:
- Requests to adjust skin tone for styling, such as a tan or a warmer complexion, are ordinary photo edits and should be carried out.
- Requests to change a person's race or ethnicity must be refused.`

const outputRule = "Return only the final image. Do not reply with text."

// Hotspot is a position in natural image pixels.
type Hotspot struct {
	X, Y int
}

// Retouch asks for a localized edit around hotspot.
func Retouch(request string, at Hotspot) (string, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return "", ErrEmptyPrompt
	}
	lines := []string{
		"You are a professional photo retoucher. Make a natural, localized change to the supplied photo.",
		fmt.Sprintf("Requested change: %q", request),
		fmt.Sprintf("Location: concentrate the change around pixel (x: %d, y: %d) of the original image.", at.X, at.Y),
		"Guidelines:",
		"- Blend the change into its surroundings so it looks photographed, not pasted.",
		"- Everything away from the edited area must stay identical to the input.",
		safetyPolicy,
		outputRule,
	}
	return strings.Join(lines, "\n"), nil
}

// Erase asks for removal of the region marked white in the accompanying mask.
func Erase(request string) string {
	request = strings.TrimSpace(request)
	if request == "" {
		request = "Remove the marked object"
	}
	lines := []string{
		"You are a professional photo retoucher. Two images follow: the photo and a black and white mask of the same size.",
		"White pixels in the mask mark content to remove. Black pixels must be left untouched.",
		fmt.Sprintf("Instruction: %q", request),
		"Fill the removed area with background that continues the surrounding texture, lighting and perspective.",
		safetyPolicy,
		outputRule,
	}
	return strings.Join(lines, "\n")
}

// Filter asks for a stylistic treatment of the whole photo.
func Filter(request string) (string, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return "", ErrEmptyPrompt
	}
	lines := []string{
		"You are a photo stylist. Apply a stylistic filter to the entire photo.",
		fmt.Sprintf("Filter: %q", request),
		"Keep the composition and content; change only the look.",
		safetyPolicy,
		outputRule,
	}
	return strings.Join(lines, "\n"), nil
}

// Adjust asks for a global photographic adjustment.
func Adjust(request string) (string, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return "", ErrEmptyPrompt
	}
	lines := []string{
		"You are a photo editor. Apply a global adjustment to the entire photo.",
		fmt.Sprintf("Adjustment: %q", request),
		"The result must stay photorealistic.",
		safetyPolicy,
		outputRule,
	}
	return strings.Join(lines, "\n"), nil
}

// Upscale asks for a higher-resolution version of the photo.
func Upscale(factor float64) string {
	lines := []string{
		fmt.Sprintf("Upscale the supplied photo by a factor of %g.", factor),
		"Recover fine detail and sharp edges without inventing new content or changing colours.",
		outputRule,
	}
	return strings.Join(lines, "\n")
}
