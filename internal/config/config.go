package config

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	"github.com/example/pixshop/internal/theme"
)

const (
	ProviderGemini = "gemini"
	ProviderLocal  = "local"
)

// Gemini holds the remote provider settings.
type Gemini struct {
	APIKey         string
	Model          string
	BaseURL        string
	TimeoutSeconds int
}

// Editor holds editing defaults.
type Editor struct {
	BrushWidth       float64
	DevicePixelRatio float64
	// Format is the MIME type or short name ("png", "jpeg") used for saves.
	Format string
}

// Notify holds notification settings.
type Notify struct {
	Save bool
	Copy bool
	Edit bool
}

// Config holds the application configuration.
type Config struct {
	Provider    string
	SaveDir     string
	PresetsFile string
	LogLevel    string
	Theme       string
	Gemini      Gemini
	Editor      Editor
	Notify      Notify
	Themes      map[string]*theme.Theme
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Gemini: Gemini{TimeoutSeconds: 120},
		Editor: Editor{BrushWidth: 30, DevicePixelRatio: 1, Format: "png"},
		Themes: make(map[string]*theme.Theme),
	}
}

// ResolvedProvider returns the provider to use when none was named: gemini
// when an API key is available, local otherwise.
func (c *Config) ResolvedProvider() string {
	if p := strings.ToLower(strings.TrimSpace(c.Provider)); p != "" {
		return p
	}
	if c.Gemini.APIKey != "" {
		return ProviderGemini
	}
	return ProviderLocal
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case "", ProviderGemini, ProviderLocal:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Editor.BrushWidth < 0 {
		return fmt.Errorf("editor brush_width must not be negative")
	}
	if c.Editor.DevicePixelRatio < 0 {
		return fmt.Errorf("editor device_pixel_ratio must not be negative")
	}
	if c.Gemini.TimeoutSeconds < 0 {
		return fmt.Errorf("gemini timeout_seconds must not be negative")
	}
	return nil
}

// String returns the configuration in RC format. The API key is written
// only when redact is false.
func (c *Config) String() string { return c.format(false) }

// Redacted returns the RC form with the API key masked.
func (c *Config) Redacted() string { return c.format(true) }

func (c *Config) format(redact bool) string {
	var sb strings.Builder

	for _, kv := range [][2]string{
		{"provider", c.Provider},
		{"save_dir", c.SaveDir},
		{"presets_file", c.PresetsFile},
		{"log_level", c.LogLevel},
		{"theme", c.Theme},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&sb, "%s = %s\n", kv[0], kv[1])
		}
	}
	sb.WriteString("\n")

	sb.WriteString("[gemini]\n")
	if key := c.Gemini.APIKey; key != "" {
		if redact {
			key = mask(key)
		}
		fmt.Fprintf(&sb, "api_key = %s\n", key)
	}
	if c.Gemini.Model != "" {
		fmt.Fprintf(&sb, "model = %s\n", c.Gemini.Model)
	}
	if c.Gemini.BaseURL != "" {
		fmt.Fprintf(&sb, "base_url = %s\n", c.Gemini.BaseURL)
	}
	fmt.Fprintf(&sb, "timeout_seconds = %d\n", c.Gemini.TimeoutSeconds)
	sb.WriteString("\n")

	sb.WriteString("[editor]\n")
	fmt.Fprintf(&sb, "brush_width = %g\n", c.Editor.BrushWidth)
	fmt.Fprintf(&sb, "device_pixel_ratio = %g\n", c.Editor.DevicePixelRatio)
	if c.Editor.Format != "" {
		fmt.Fprintf(&sb, "format = %s\n", c.Editor.Format)
	}
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	fmt.Fprintf(&sb, "edit = %v\n", c.Notify.Edit)
	sb.WriteString("\n")

	names := make([]string, 0, len(c.Themes))
	for name := range c.Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		for _, f := range theme.Fields() {
			fmt.Fprintf(&sb, "%s: %s\n", f, toHex(t.Color(f)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func toHex(c color.RGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}
