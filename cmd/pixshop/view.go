package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/example/pixshop/internal/editor"
	"github.com/example/pixshop/internal/ui"
)

// runViewerFn opens the window. Tests replace it.
var runViewerFn = func(v *ui.Viewer) { v.Run() }

// viewCmd opens an image in the editor window.
type viewCmd struct {
	in      imageIO
	mode    string
	factor  float64
	saveDir string
	*root
	fs *flag.FlagSet
}

func (v *viewCmd) FlagSet() *flag.FlagSet {
	return v.fs
}

func parseViewCmd(args []string, r *root) (*viewCmd, error) {
	fs := newFlagSet("view")
	v := &viewCmd{root: r, fs: fs}
	fs.Usage = usageFunc(v)
	v.in.bind(fs)
	fs.StringVar(&v.mode, "mode", "retouch", "starting tool: view, retouch, erase, crop, adjust or filter")
	fs.Float64Var(&v.factor, "factor", 2, "factor used by the upscale shortcut")
	fs.StringVar(&v.saveDir, "save-dir", "", "directory for timestamped saves when no -output is set (default from config)")
	if err := parseFlags(v, args); err != nil {
		return nil, err
	}
	if _, err := editor.ParseMode(v.mode); err != nil {
		return nil, err
	}
	// The window saves on demand, so a missing output is not an error here.
	v.in.toClipboard = true
	if err := v.in.validate(); err != nil {
		return nil, err
	}
	v.in.toClipboard = false
	return v, nil
}

func (v *viewCmd) Run() error {
	snap, err := v.in.load(context.Background())
	if err != nil {
		return err
	}
	sess, err := v.newSession(true)
	if err != nil {
		return err
	}
	if err := sess.Open(snap); err != nil {
		return err
	}
	mode, _ := editor.ParseMode(v.mode)
	sess.SetMode(mode)

	mime, err := v.format()
	if err != nil {
		return err
	}
	saveDir := v.saveDir
	if saveDir == "" {
		saveDir = expandHome(v.config.SaveDir)
	}
	if saveDir == "" {
		saveDir = "."
	}
	output := v.in.output

	viewer := ui.New(sess,
		ui.WithTheme(v.theme),
		ui.WithNotifier(v.notifier),
		ui.WithLogger(v.logger),
		ui.WithOutput(output),
		ui.WithSaveDir(saveDir),
		ui.WithFormat(mime),
		ui.WithUpscaleFactor(v.factor),
		ui.WithTitle(fmt.Sprintf("Pixshop - %s", title(snap.Label, output))),
	)
	runViewerFn(viewer)
	return nil
}

func title(label, output string) string {
	if output != "" {
		return filepath.Base(output)
	}
	return label
}
