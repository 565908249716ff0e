package notify

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pixshop/internal/platform"
)

type sent struct {
	title, body string
	opts        platform.Options
}

func recorder(out *[]sent) Option {
	return WithSender(func(_ context.Context, title, body string, opts platform.Options) error {
		*out = append(*out, sent{title, body, opts})
		return nil
	})
}

func TestDisabledEventsAreSilent(t *testing.T) {
	var got []sent
	n := New(DefaultPreferences(), recorder(&got))
	n.Copy("photo")
	n.Save("x.png")
	n.Edit("retouch", nil)
	assert.Empty(t, got)

	var nilNotifier *Notifier
	nilNotifier.Copy("photo")
}

func TestCopyAndEdit(t *testing.T) {
	var got []sent
	n := New(DefaultPreferences(), recorder(&got))
	n.Enable(EventCopy, true)
	n.Enable(EventEdit, true)

	n.Copy("")
	n.Edit("filter: Noir", image.NewRGBA(image.Rect(0, 0, 2, 2)))

	require.Len(t, got, 2)
	assert.Equal(t, "Pixshop", got[0].title)
	assert.Equal(t, "Copied image to clipboard", got[0].body)
	assert.Equal(t, "Finished filter: Noir", got[1].body)
	require.NotEmpty(t, got[1].opts.IconPath)
	_, err := os.Stat(got[1].opts.IconPath)
	assert.True(t, os.IsNotExist(err), "preview should be removed after sending")
}

func TestSaveUsesAbsolutePathAsIcon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))

	var got []sent
	n := New(DefaultPreferences(), recorder(&got))
	n.Enable(EventSave, true)
	n.Save(path)

	require.Len(t, got, 1)
	assert.Equal(t, "Saved "+path, got[0].body)
	assert.Equal(t, path, got[0].opts.IconPath)
}

func TestLoadPreferences(t *testing.T) {
	env := map[string]string{
		"PIXSHOP_NOTIFY_TITLE":     "Edits",
		"PIXSHOP_NOTIFY_EDIT_TEXT": "Done",
	}
	prefs := LoadPreferences(func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	assert.Equal(t, "Edits", prefs.Title)
	assert.Equal(t, "Done", prefs.Events[EventEdit].Template)
	assert.Equal(t, "Saved %s", prefs.Events[EventSave].Template)

	var got []sent
	n := New(prefs, recorder(&got))
	n.Enable(EventEdit, true)
	n.Edit("crop", nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Done", got[0].body)
}
