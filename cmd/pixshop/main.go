package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/example/pixshop/internal/config"
	"github.com/example/pixshop/internal/editor"
	"github.com/example/pixshop/internal/genai"
	"github.com/example/pixshop/internal/imageops"
	"github.com/example/pixshop/internal/logging"
	"github.com/example/pixshop/internal/notify"
	"github.com/example/pixshop/internal/prompts"
	"github.com/example/pixshop/internal/theme"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

type runnable interface{ Run() error }

type root struct {
	fs      *flag.FlagSet
	program string

	configPath   string
	providerName string
	model        string
	logLevel     string
	logJSON      bool
	themeName    string
	notifySave   bool
	notifyCopy   bool
	notifyEdit   bool

	config   *config.Config
	logger   *logging.Logger
	notifier *notify.Notifier
	theme    *theme.Theme

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (r *root) Program() string {
	return r.program
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot() *root {
	r := &root{
		fs:      flag.NewFlagSet("pixshop", flag.ContinueOnError),
		program: "pixshop",
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	r.fs.SetOutput(io.Discard)
	r.fs.StringVar(&r.configPath, "config", "", "configuration file to load instead of the default search path")
	r.fs.StringVar(&r.providerName, "provider", "", "edit provider: gemini or local (default: gemini when an API key is set)")
	r.fs.StringVar(&r.model, "model", "", "Gemini model name")
	r.fs.StringVar(&r.logLevel, "log-level", "", "log level: debug, info, warn or error")
	r.fs.BoolVar(&r.logJSON, "log-json", false, "write logs as JSON")
	r.fs.StringVar(&r.themeName, "theme", "", "viewer color theme (light, dark or a theme file)")
	r.fs.BoolVar(&r.notifySave, "notify-save", false, "show a desktop notification after saving an image")
	r.fs.BoolVar(&r.notifyCopy, "notify-copy", false, "show a desktop notification after copying to the clipboard")
	r.fs.BoolVar(&r.notifyEdit, "notify-edit", false, "show a desktop notification when a generative edit finishes")
	return r
}

// subcommand returns a copy of r for a nested command line.
func (r *root) subcommand(name string) *root {
	child := *r
	child.program = strings.TrimSpace(r.program + " " + name)
	return &child
}

func (r *root) Run(args []string) error {
	if err := parseFlags(r, args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	name, rest := r.fs.Arg(0), r.fs.Args()[1:]
	if name != "help" && name != "version" {
		if err := r.setup(); err != nil {
			return err
		}
	}
	return r.dispatch(name, rest)
}

// setup loads configuration and applies flag overrides.
// Precedence: CLI > env > config > default.
func (r *root) setup() error {
	if r.config == nil {
		cfg, err := config.NewLoader(version, r.configPath).Load()
		if err != nil {
			if r.configPath != "" {
				return fmt.Errorf("load config: %w", err)
			}
			fmt.Fprintf(r.stderr, "warning: failed to load config: %v\n", err)
			cfg = config.New()
		}
		r.config = cfg
	}
	cfg := r.config
	if r.providerName != "" {
		cfg.Provider = strings.ToLower(r.providerName)
	}
	if r.model != "" {
		cfg.Gemini.Model = r.model
	}
	if r.logLevel != "" {
		cfg.LogLevel = r.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if r.logger == nil {
		l := logging.New(r.stderr, cfg.LogLevel, r.logJSON)
		r.logger = &l
	}

	if cfg.PresetsFile != "" {
		n, err := prompts.LoadFile(expandHome(cfg.PresetsFile))
		if err != nil {
			return fmt.Errorf("load presets: %w", err)
		}
		r.logger.Debug().Int("presets", n).Str("file", cfg.PresetsFile).Msg("presets loaded")
	}

	if r.notifier == nil {
		r.notifier = notify.New(notify.LoadPreferences(os.LookupEnv), notify.WithLogger(r.logger))
	}
	r.notifier.Enable(notify.EventSave, r.notifySave || cfg.Notify.Save)
	r.notifier.Enable(notify.EventCopy, r.notifyCopy || cfg.Notify.Copy)
	r.notifier.Enable(notify.EventEdit, r.notifyEdit || cfg.Notify.Edit)

	name := r.themeName
	if name == "" {
		name = os.Getenv("PIXSHOP_THEME")
	}
	if name == "" {
		name = cfg.Theme
	}
	t, err := theme.NewLoader(cfg.Themes).Load(name)
	if err != nil {
		r.logger.Warn().Err(err).Str("theme", name).Msg("using default theme")
		t = theme.Default()
	}
	r.theme = t
	return nil
}

func (r *root) dispatch(name string, args []string) error {
	var (
		cmd runnable
		err error
	)
	switch name {
	case "retouch":
		cmd, err = parseRetouchCmd(args, r)
	case "erase":
		cmd, err = parseEraseCmd(args, r)
	case "mask":
		cmd, err = parseMaskCmd(args, r)
	case "filter":
		cmd, err = parseStyleCmd(args, r, prompts.KindFilter)
	case "adjust":
		cmd, err = parseStyleCmd(args, r, prompts.KindAdjust)
	case "upscale":
		cmd, err = parseUpscaleCmd(args, r)
	case "crop":
		cmd, err = parseCropCmd(args, r)
	case "rotate":
		cmd, err = parseRotateCmd(args, r)
	case "flip":
		cmd, err = parseFlipCmd(args, r)
	case "preview":
		cmd, err = parsePreviewCmd(args, r)
	case "presets":
		cmd, err = parsePresetsCmd(args, r)
	case "interactive":
		cmd, err = parseInteractiveCmd(args, r)
	case "view":
		cmd, err = parseViewCmd(args, r)
	case "config":
		cmd, err = parseConfigCmd(args, r)
	case "version":
		cmd, err = parseVersionCmd(args, r)
	case "help":
		return r.help(args)
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

// newProviderFn builds the edit provider. Tests replace it.
var newProviderFn = func(r *root) (genai.Provider, error) {
	cfg := r.config
	if cfg.ResolvedProvider() == config.ProviderLocal {
		return genai.NewLocal(r.logger), nil
	}
	return genai.NewClient(genai.Options{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		Logger:  r.logger,
		Timeout: time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second,
	})
}

// newSession builds an editing session from the configured defaults. The
// provider is only created for sessions that run generative edits.
func (r *root) newSession(generative bool, opts ...editor.Option) (*editor.Session, error) {
	var base []editor.Option
	if generative {
		p, err := newProviderFn(r)
		if err != nil {
			return nil, err
		}
		base = append(base, editor.WithProvider(p))
	}
	mime, err := r.format()
	if err != nil {
		return nil, err
	}
	base = append(base,
		editor.WithLogger(r.logger),
		editor.WithBrushWidth(r.config.Editor.BrushWidth),
		editor.WithDevicePixelRatio(r.config.Editor.DevicePixelRatio),
		editor.WithFormat(mime),
	)
	return editor.New(append(base, opts...)...), nil
}

func (r *root) format() (string, error) {
	return imageops.ParseFormat(r.config.Editor.Format)
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return home + string(os.PathSeparator) + rest
		}
	}
	return path
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
