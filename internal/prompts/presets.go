package prompts

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Kind distinguishes filter presets from adjustment presets.
type Kind string

const (
	KindFilter Kind = "filter"
	KindAdjust Kind = "adjust"
)

// Step is one operation of the local fallback recipe for a preset.
type Step struct {
	Op     string  `yaml:"op"`
	Amount float64 `yaml:"amount,omitempty"`
}

// Preset is a named prompt with an offline approximation.
type Preset struct {
	Name   string `yaml:"name"`
	Kind   Kind   `yaml:"-"`
	Prompt string `yaml:"prompt"`
	Local  []Step `yaml:"local,omitempty"`
}

// ErrUnknownPreset is returned by Lookup for names that are not registered.
var ErrUnknownPreset = errors.New("unknown preset")

var builtin = []Preset{
	{Name: "Synthwave", Kind: KindFilter,
		Prompt: "Apply a vibrant 80s synthwave aesthetic with neon magenta and cyan glows and subtle scan lines.",
		Local:  []Step{{Op: "saturation", Amount: 0.6}, {Op: "hue", Amount: -30}, {Op: "contrast", Amount: 0.2}}},
	{Name: "Anime", Kind: KindFilter,
		Prompt: "Give the image a vibrant Japanese anime style with bold outlines, cel shading and saturated colours.",
		Local:  []Step{{Op: "median", Amount: 2}, {Op: "saturation", Amount: 0.5}, {Op: "sharpen"}}},
	{Name: "Lomo", Kind: KindFilter,
		Prompt: "Apply a Lomography-style cross-processing film effect with high-contrast, oversaturated colours and dark vignetting.",
		Local:  []Step{{Op: "contrast", Amount: 0.4}, {Op: "saturation", Amount: 0.4}, {Op: "gamma", Amount: 0.9}}},
	{Name: "Glitch", Kind: KindFilter,
		Prompt: "Transform the image into a futuristic holographic projection with digital glitch effects and chromatic aberration.",
		Local:  []Step{{Op: "hue", Amount: 90}, {Op: "invert"}, {Op: "contrast", Amount: 0.3}}},
	{Name: "Noir", Kind: KindFilter,
		Prompt: "Render the photo as a high-contrast black and white film noir still.",
		Local:  []Step{{Op: "grayscale"}, {Op: "contrast", Amount: 0.35}}},
	{Name: "Blur Background", Kind: KindAdjust,
		Prompt: "Apply a realistic depth-of-field effect, blurring the background while keeping the main subject in sharp focus.",
		Local:  []Step{{Op: "blur", Amount: 3}}},
	{Name: "Enhance Details", Kind: KindAdjust,
		Prompt: "Slightly enhance the sharpness and details of the image without making it look unnatural.",
		Local:  []Step{{Op: "sharpen"}, {Op: "contrast", Amount: 0.05}}},
	{Name: "Warmer Lighting", Kind: KindAdjust,
		Prompt: "Adjust the colour temperature to give the image warmer, golden-hour style lighting.",
		Local:  []Step{{Op: "warm", Amount: 0.25}, {Op: "brightness", Amount: 0.05}}},
	{Name: "Studio Light", Kind: KindAdjust,
		Prompt: "Add dramatic, professional studio lighting to the main subject.",
		Local:  []Step{{Op: "brightness", Amount: 0.1}, {Op: "contrast", Amount: 0.25}}},
}

var (
	registryMu sync.RWMutex
	registry   = append([]Preset(nil), builtin...)
)

// Presets returns the registered presets of kind, or all presets when kind is empty.
func Presets(kind Kind) []Preset {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var out []Preset
	for _, p := range registry {
		if kind == "" || p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// Lookup finds a preset of kind by case-insensitive name.
func Lookup(kind Kind, name string) (Preset, error) {
	name = strings.TrimSpace(name)
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, p := range registry {
		if p.Kind == kind && strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %s %q", ErrUnknownPreset, kind, name)
}

// File is the YAML layout of a user preset file.
type File struct {
	Filters     []Preset `yaml:"filters"`
	Adjustments []Preset `yaml:"adjustments"`
}

var titler = cases.Title(language.English)

// Parse decodes a preset file.
func Parse(data []byte) ([]Preset, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	var out []Preset
	add := func(list []Preset, kind Kind) error {
		for _, p := range list {
			p.Name = strings.TrimSpace(p.Name)
			if p.Name == "" {
				return fmt.Errorf("parse presets: %s preset without a name", kind)
			}
			if strings.TrimSpace(p.Prompt) == "" {
				return fmt.Errorf("parse presets: %s preset %q has no prompt", kind, p.Name)
			}
			if strings.ToLower(p.Name) == p.Name {
				p.Name = titler.String(p.Name)
			}
			p.Kind = kind
			out = append(out, p)
		}
		return nil
	}
	if err := add(f.Filters, KindFilter); err != nil {
		return nil, err
	}
	if err := add(f.Adjustments, KindAdjust); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadFile reads a preset file and registers its entries. Entries replace
// presets of the same kind and name. A missing file is not an error.
func LoadFile(path string) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read presets: %w", err)
	}
	list, err := Parse(data)
	if err != nil {
		return 0, err
	}
	Register(list...)
	return len(list), nil
}

// Register adds or replaces presets.
func Register(list ...Preset) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, p := range list {
		replaced := false
		for i, existing := range registry {
			if existing.Kind == p.Kind && strings.EqualFold(existing.Name, p.Name) {
				registry[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			registry = append(registry, p)
		}
	}
	sort.SliceStable(registry, func(i, j int) bool { return registry[i].Kind > registry[j].Kind })
}
