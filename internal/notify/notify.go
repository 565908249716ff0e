// Package notify turns editing events into desktop notifications.
package notify

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/pixshop/internal/logging"
	"github.com/example/pixshop/internal/platform"
)

// Event identifies a notification trigger.
type Event string

const (
	// EventSave emits a notification when an image is persisted to disk.
	EventSave Event = "save"
	// EventCopy emits a notification when an image is copied to the clipboard.
	EventCopy Event = "copy"
	// EventEdit emits a notification when a generative edit finishes.
	EventEdit Event = "edit"
)

// sendTimeout bounds a single call into the notification service.
const sendTimeout = 5 * time.Second

// EventPreference describes formatting for a notification event.
type EventPreference struct {
	Template string
}

// Preferences describes notification behaviour loaded from configuration.
type Preferences struct {
	Title  string
	Events map[Event]EventPreference
}

// DefaultPreferences returns the default notification settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Title: "Pixshop",
		Events: map[Event]EventPreference{
			EventSave: {Template: "Saved %s"},
			EventCopy: {Template: "Copied %s to clipboard"},
			EventEdit: {Template: "Finished %s"},
		},
	}
}

// LoadPreferences applies PIXSHOP_NOTIFY_* overrides from lookup.
func LoadPreferences(lookup func(string) (string, bool)) Preferences {
	prefs := DefaultPreferences()
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	if v := get("PIXSHOP_NOTIFY_TITLE"); v != "" {
		prefs.Title = v
	}
	for key, event := range map[string]Event{
		"PIXSHOP_NOTIFY_SAVE_TEXT": EventSave,
		"PIXSHOP_NOTIFY_COPY_TEXT": EventCopy,
		"PIXSHOP_NOTIFY_EDIT_TEXT": EventEdit,
	} {
		if v := get(key); v != "" {
			prefs.Events[event] = EventPreference{Template: v}
		}
	}
	return prefs
}

// Sender delivers one notification. platform.Notify is used by default.
type Sender func(ctx context.Context, title, body string, opts platform.Options) error

// Notifier sends OS-level notifications based on the configured preferences.
type Notifier struct {
	prefs   Preferences
	enabled map[Event]bool
	send    Sender
	logger  *logging.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithSender replaces the platform sender.
func WithSender(s Sender) Option {
	return func(n *Notifier) { n.send = s }
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *logging.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// New creates a new Notifier using the provided preferences. Every event
// starts disabled.
func New(prefs Preferences, opts ...Option) *Notifier {
	cloned := Preferences{Title: prefs.Title, Events: make(map[Event]EventPreference, len(prefs.Events))}
	for k, v := range prefs.Events {
		cloned.Events[k] = v
	}
	n := &Notifier{prefs: cloned, enabled: make(map[Event]bool), send: platform.Notify}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = logging.OrDiscard(n.logger)
	return n
}

// Enable toggles the notifier for the provided event.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	n.enabled[event] = enabled
}

// Save sends a save notification including the written filename when available.
func (n *Notifier) Save(path string) {
	if !n.enabledFor(EventSave) {
		return
	}
	detail := strings.TrimSpace(path)
	opts := platform.Options{}
	if abs, err := filepath.Abs(path); err == nil {
		detail = abs
		if _, statErr := os.Stat(abs); statErr == nil {
			opts.IconPath = abs
		}
	}
	n.dispatch(EventSave, detail, opts)
}

// Copy sends a clipboard notification.
func (n *Notifier) Copy(detail string) {
	if !n.enabledFor(EventCopy) {
		return
	}
	if strings.TrimSpace(detail) == "" {
		detail = "image"
	}
	n.dispatch(EventCopy, detail, platform.Options{})
}

// Edit reports a finished edit labelled label, with an optional preview of the result.
func (n *Notifier) Edit(label string, img image.Image) {
	if !n.enabledFor(EventEdit) {
		return
	}
	opts := platform.Options{}
	if img != nil {
		path, cleanup, err := createPreview(img)
		if err != nil {
			n.logger.Warn().Err(err).Msg("notification preview")
		} else {
			defer cleanup()
			opts.IconPath = path
		}
	}
	n.dispatch(EventEdit, label, opts)
}

func (n *Notifier) enabledFor(event Event) bool {
	return n != nil && n.enabled[event]
}

func (n *Notifier) dispatch(event Event, detail string, opts platform.Options) {
	template := strings.TrimSpace(n.prefs.Events[event].Template)
	if template == "" {
		return
	}
	body := template
	if strings.Contains(template, "%") {
		body = fmt.Sprintf(template, strings.TrimSpace(detail))
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := n.send(ctx, n.prefs.Title, body, opts); err != nil {
		n.logger.Warn().Err(err).Str("event", string(event)).Msg("notification failed")
	}
}

func createPreview(img image.Image) (string, func(), error) {
	f, err := os.CreateTemp("", "pixshop-preview-*.png")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(path) }
	return path, cleanup, nil
}
