package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `
provider = gemini
save_dir = /tmp/edits
presets_file = "~/presets.yaml"
log_level = debug

[gemini]
api_key = abc123
model = gemini-test
timeout_seconds = 30

[editor]
brush_width = 42.5
device_pixel_ratio = 2
format = JPEG

[notify]
save = true
copy = false
edit = true

[theme.night]
Background = #111111
Stroke: #FF000080
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Provider != "gemini" || cfg.SaveDir != "/tmp/edits" || cfg.LogLevel != "debug" {
		t.Errorf("root fields not parsed: %+v", cfg)
	}
	if cfg.PresetsFile != "~/presets.yaml" {
		t.Errorf("presets_file = %q, quotes should be stripped", cfg.PresetsFile)
	}
	if cfg.Gemini.APIKey != "abc123" || cfg.Gemini.Model != "gemini-test" || cfg.Gemini.TimeoutSeconds != 30 {
		t.Errorf("gemini section: %+v", cfg.Gemini)
	}
	if cfg.Editor.BrushWidth != 42.5 || cfg.Editor.DevicePixelRatio != 2 || cfg.Editor.Format != "jpeg" {
		t.Errorf("editor section: %+v", cfg.Editor)
	}
	if !cfg.Notify.Save || cfg.Notify.Copy || !cfg.Notify.Edit {
		t.Errorf("notify section: %+v", cfg.Notify)
	}
	th, ok := cfg.Themes["night"]
	if !ok {
		t.Fatal("expected theme 'night' to be loaded")
	}
	if th.Background.R != 0x11 || th.Stroke.A != 0x80 {
		t.Errorf("theme colors: %+v", th)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad bool", "[notify]\nsave = maybe\n", "section [notify]"},
		{"bad number", "[editor]\nbrush_width = wide\n", "brush_width"},
		{"bad timeout", "[gemini]\ntimeout_seconds = soon\n", "line 2"},
		{"bad color", "[theme.x]\nStroke = red\n", "Stroke"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestCircular(t *testing.T) {
	input := `provider = local
save_dir = /home/user/edits

[gemini]
api_key = key-value
model = m

[editor]
brush_width = 12
device_pixel_ratio = 1.5
format = png

[notify]
save = true
copy = false
edit = true

[theme.custom]
Name = custom
Background = #000000
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Initial parse failed: %v", err)
	}
	cfg2, err := Parse(strings.NewReader(cfg.String()))
	if err != nil {
		t.Fatalf("Circular parse failed: %v", err)
	}
	if cfg.Provider != cfg2.Provider || cfg.SaveDir != cfg2.SaveDir {
		t.Errorf("root mismatch: %+v vs %+v", cfg, cfg2)
	}
	if cfg.Gemini != cfg2.Gemini {
		t.Errorf("Gemini mismatch: %+v vs %+v", cfg.Gemini, cfg2.Gemini)
	}
	if cfg.Editor != cfg2.Editor {
		t.Errorf("Editor mismatch: %+v vs %+v", cfg.Editor, cfg2.Editor)
	}
	if cfg.Notify != cfg2.Notify {
		t.Errorf("Notify mismatch: %+v vs %+v", cfg.Notify, cfg2.Notify)
	}
	t1, t2 := cfg.Themes["custom"], cfg2.Themes["custom"]
	if t1 == nil || t2 == nil || *t1 != *t2 {
		t.Errorf("theme mismatch: %+v vs %+v", t1, t2)
	}
}

func TestRedacted(t *testing.T) {
	cfg := New()
	cfg.Gemini.APIKey = "secret-1234"
	out := cfg.Redacted()
	if strings.Contains(out, "secret") || !strings.Contains(out, "1234") {
		t.Fatalf("api key not masked:\n%s", out)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAPIKey:   " from-env ",
		EnvModel:    "env-model",
		EnvProvider: "LOCAL",
		EnvTimeout:  "5",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }
	cfg := New()
	cfg.Gemini.Model = "file-model"
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.Gemini.APIKey != "from-env" || cfg.Gemini.Model != "env-model" || cfg.Provider != "local" || cfg.Gemini.TimeoutSeconds != 5 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	env[EnvTimeout] = "never"
	if err := ApplyEnv(cfg, lookup); err == nil {
		t.Fatal("expected error for bad timeout")
	}
}

func TestResolvedProvider(t *testing.T) {
	cfg := New()
	if got := cfg.ResolvedProvider(); got != ProviderLocal {
		t.Fatalf("no key: got %q", got)
	}
	cfg.Gemini.APIKey = "k"
	if got := cfg.ResolvedProvider(); got != ProviderGemini {
		t.Fatalf("with key: got %q", got)
	}
	cfg.Provider = "local"
	if got := cfg.ResolvedProvider(); got != ProviderLocal {
		t.Fatalf("explicit: got %q", got)
	}
	cfg.Provider = "dall-e"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown provider error")
	}
}

func TestLoaderOverrideAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	rc := filepath.Join(dir, "pixshop.rc")
	if err := os.WriteFile(rc, []byte("[gemini]\nmodel = from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("PIXSHOP_TEST_ONLY_KEY=dot\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PIXSHOP_TEST_ONLY_KEY") })

	l := NewLoader("dev", rc)
	l.EnvFile = envFile
	l.Lookup = func(k string) (string, bool) {
		if k == EnvAPIKey {
			return os.LookupEnv("PIXSHOP_TEST_ONLY_KEY")
		}
		return "", false
	}
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gemini.Model != "from-file" {
		t.Errorf("model = %q", cfg.Gemini.Model)
	}
	if cfg.Gemini.APIKey != "dot" {
		t.Errorf("api key from .env = %q", cfg.Gemini.APIKey)
	}
}

func TestLoaderMissingOverride(t *testing.T) {
	l := NewLoader("v1", filepath.Join(t.TempDir(), "missing.rc"))
	l.EnvFile = ""
	if _, err := l.Load(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.rc")
	cfg := New()
	cfg.Provider = "local"
	if err := Save(cfg, path); err != nil {
		t.Fatal(err)
	}
	l := NewLoader("v1", path)
	l.EnvFile = ""
	l.Lookup = func(string) (string, bool) { return "", false }
	got, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Provider != "local" {
		t.Fatalf("provider = %q", got.Provider)
	}
}
