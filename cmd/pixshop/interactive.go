package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/example/pixshop/internal/editor"
	"github.com/example/pixshop/internal/history"
	"github.com/example/pixshop/internal/imageops"
	"github.com/example/pixshop/internal/mask"
	"github.com/example/pixshop/internal/prompts"
	"github.com/example/pixshop/internal/source"
	"github.com/example/pixshop/internal/ui"
	"github.com/example/pixshop/internal/viewport"
)

var errNoSession = errors.New("no image open: use open <file>")

// commandList collects repeated -e flags.
type commandList []string

func (c *commandList) String() string {
	return strings.Join(*c, "; ")
}

func (c *commandList) Set(v string) error {
	*c = append(*c, v)
	return nil
}

// interactiveCmd reads editing commands line by line against one session.
type interactiveCmd struct {
	execs commandList
	file  string
	sess  *editor.Session
	*root
	fs *flag.FlagSet
}

func (i *interactiveCmd) FlagSet() *flag.FlagSet {
	return i.fs
}

func parseInteractiveCmd(args []string, r *root) (*interactiveCmd, error) {
	fs := newFlagSet("interactive")
	i := &interactiveCmd{root: r, fs: fs}
	fs.Usage = usageFunc(i)
	fs.Var(&i.execs, "e", "execute a command and exit (may be specified multiple times)")
	fs.StringVar(&i.file, "file", "", "image to open on start")
	if err := parseFlags(i, args); err != nil {
		return nil, err
	}
	return i, nil
}

func (i *interactiveCmd) Run() error {
	if i.file != "" {
		if _, err := i.executeLine("open " + i.file); err != nil {
			return err
		}
	}
	if len(i.execs) > 0 {
		for _, line := range i.execs {
			done, err := i.executeLine(line)
			if err != nil {
				return err
			}
			if done {
				break
			}
		}
		return nil
	}

	fmt.Fprintln(i.stdout, "Enter commands (type 'help' for a list, 'exit' to quit)")
	scanner := bufio.NewScanner(i.stdin)
	for {
		fmt.Fprint(i.stdout, "> ")
		if !scanner.Scan() {
			break
		}
		done, err := i.executeLine(scanner.Text())
		if err != nil {
			fmt.Fprintln(i.stderr, err)
		}
		if done {
			break
		}
	}
	return scanner.Err()
}

// executeLine runs one command. It reports true when the session should end.
func (i *interactiveCmd) executeLine(line string) (bool, error) {
	args := strings.Fields(line)
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return false, nil
	}
	name, rest := strings.ToLower(args[0]), args[1:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch name {
	case "exit", "quit":
		return true, nil
	case "help", "?":
		fmt.Fprint(i.stdout, interactiveHelp)
		return false, nil
	case "presets":
		for _, kind := range []prompts.Kind{prompts.KindFilter, prompts.KindAdjust} {
			for _, p := range prompts.Presets(kind) {
				fmt.Fprintf(i.stdout, "%s\t%s\n", kind, p.Name)
			}
		}
		return false, nil
	case "open":
		return false, i.open(ctx, rest)
	}

	if i.sess == nil {
		return false, errNoSession
	}
	sess := i.sess
	var err error
	switch name {
	case "retouch":
		err = i.retouch(ctx, rest)
	case "hotspot":
		err = i.setHotspot(rest)
	case "stroke":
		err = i.stroke(rest)
	case "erase":
		err = i.generated(sess.Erase(ctx, strings.Join(rest, " ")))
	case "clear":
		sess.Clear()
	case "select":
		err = i.selectRect(rest)
	case "crop":
		if len(rest) > 0 {
			if err = i.selectRect(rest); err != nil {
				break
			}
		}
		err = i.edited(sess.Crop())
	case "filter", "adjust":
		err = i.style(ctx, prompts.Kind(name), rest)
	case "upscale":
		err = i.upscale(ctx, rest)
	case "rotate":
		err = i.rotate(rest)
	case "flip":
		err = i.flip(rest)
	case "undo":
		err = i.moved(sess.Undo())
	case "redo":
		err = i.moved(sess.Redo())
	case "reset":
		err = i.moved(sess.Reset())
	case "history":
		i.printHistory()
	case "zoom":
		err = i.zoom(rest)
	case "pan":
		err = i.pan(rest)
	case "layout":
		err = i.layout(rest)
	case "mode":
		err = i.setMode(rest)
	case "mask":
		err = i.writeMask(rest)
	case "save":
		err = i.save(rest)
	case "copy":
		err = i.copyImage()
	case "status":
		i.printStatus()
	case "view":
		i.view()
	default:
		err = fmt.Errorf("unknown command %q (type 'help')", name)
	}
	return false, err
}

const interactiveHelp = `Commands:
  open <file> | open -clipboard | open -screen
  retouch <x> <y> <prompt>     edit around a point in image pixels
  hotspot <x> <y>              set the retouch point
  stroke <x,y> [x,y ...]       add a mask stroke in display pixels
  erase [prompt]               remove the masked area
  select <x0,y0,x1,y1>         set the crop selection in display pixels
  crop [x0,y0,x1,y1]           crop to the selection
  filter <preset|prompt>       apply a stylistic filter
  adjust <preset|prompt>       apply a global adjustment
  upscale [factor]             enlarge the image (default 2)
  rotate left|right            turn a quarter turn
  flip h|v                     mirror the image
  undo | redo | reset | history
  zoom in|out|reset|<scale>    change the zoom level
  pan <dx> <dy>                move the zoomed image
  layout <width> <height>      fit the image into a display area
  mode <name>                  view, retouch, erase, crop, adjust or filter
  clear                        drop the hotspot, strokes and selection
  mask <file>                  write the erase mask as PNG
  save [file]                  write the current image
  copy                         copy the current image to the clipboard
  status | presets | view | help | exit
`

func (i *interactiveCmd) open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: open <file> | open -clipboard | open -screen")
	}
	var (
		snap history.Snapshot
		err  error
	)
	file := ""
	switch args[0] {
	case "-clipboard", "clipboard":
		snap, err = readClipboardFn()
	case "-screen", "screen":
		snap, err = captureScreenFn(ctx, source.ScreenOptions{})
	default:
		file = expandHome(args[0])
		snap, err = readFileFn(file)
	}
	if err != nil {
		return err
	}
	if i.sess == nil {
		i.sess, err = i.newSession(true)
		if err != nil {
			return err
		}
	}
	if err := i.sess.Open(snap); err != nil {
		return err
	}
	i.file = file
	fmt.Fprintf(i.stdout, "opened %s (%dx%d)\n", snap.Label, snap.Width, snap.Height)
	return nil
}

func (i *interactiveCmd) edited(err error) error {
	if err != nil {
		return err
	}
	entries, pos := i.sess.Entries()
	cur := entries[pos]
	fmt.Fprintf(i.stdout, "%s: %dx%d (%d/%d)\n", cur.Label, cur.Width, cur.Height, pos+1, len(entries))
	return nil
}

func (i *interactiveCmd) generated(err error) error {
	if err != nil {
		return err
	}
	entries, pos := i.sess.Entries()
	i.notifier.Edit(entries[pos].Label, i.sess.Image())
	return i.edited(nil)
}

func (i *interactiveCmd) moved(snap history.Snapshot, err error) error {
	if err != nil {
		return err
	}
	_, pos := i.sess.Entries()
	fmt.Fprintf(i.stdout, "at %d: %s\n", pos, snap.Label)
	return nil
}

func parseXY(args []string) (viewport.Point, error) {
	if len(args) < 2 {
		return viewport.Point{}, errors.New("expected x and y")
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil || !finite(x) {
		return viewport.Point{}, fmt.Errorf("invalid x %q", args[0])
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil || !finite(y) {
		return viewport.Point{}, fmt.Errorf("invalid y %q", args[1])
	}
	return viewport.Pt(x, y), nil
}

func (i *interactiveCmd) setHotspot(args []string) error {
	pt, err := parseXY(args)
	if err != nil {
		return err
	}
	return i.sess.SetHotspot(pt)
}

func (i *interactiveCmd) retouch(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: retouch <x> <y> <prompt>")
	}
	if err := i.setHotspot(args[:2]); err != nil {
		return err
	}
	return i.generated(i.sess.Retouch(ctx, strings.Join(args[2:], " ")))
}

func (i *interactiveCmd) stroke(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: stroke <x,y> [x,y ...]")
	}
	strokes, err := parseStrokes(strings.Join(args, " "))
	if err != nil {
		return err
	}
	for _, st := range strokes {
		i.sess.AddStroke(st)
	}
	fmt.Fprintf(i.stdout, "%d stroke(s) recorded\n", len(i.sess.Strokes()))
	return nil
}

func (i *interactiveCmd) selectRect(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: select <x0,y0,x1,y1>")
	}
	r, err := parseRect(args[0])
	if err != nil {
		return err
	}
	i.sess.SetSelection(r)
	return nil
}

func (i *interactiveCmd) style(ctx context.Context, kind prompts.Kind, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s <preset|prompt>", kind)
	}
	text := strings.Join(args, " ")
	p, err := prompts.Lookup(kind, text)
	if errors.Is(err, prompts.ErrUnknownPreset) {
		p, err = prompts.Preset{Kind: kind, Prompt: text}, nil
	}
	if err != nil {
		return err
	}
	if kind == prompts.KindAdjust {
		return i.generated(i.sess.Adjust(ctx, p))
	}
	return i.generated(i.sess.Filter(ctx, p))
}

func (i *interactiveCmd) upscale(ctx context.Context, args []string) error {
	factor := 2.0
	if len(args) > 0 {
		f, err := strconv.ParseFloat(strings.TrimPrefix(args[0], "x"), 64)
		if err != nil || !finite(f) || f <= 1 {
			return fmt.Errorf("invalid upscale factor %q", args[0])
		}
		factor = f
	}
	return i.generated(i.sess.Upscale(ctx, factor))
}

func (i *interactiveCmd) rotate(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: rotate left|right")
	}
	d, err := imageops.ParseDirection(args[0])
	if err != nil {
		return err
	}
	return i.edited(i.sess.Rotate(d))
}

func (i *interactiveCmd) flip(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: flip h|v")
	}
	a, err := imageops.ParseAxis(args[0])
	if err != nil {
		return err
	}
	return i.edited(i.sess.Flip(a))
}

func (i *interactiveCmd) printHistory() {
	entries, pos := i.sess.Entries()
	for n, e := range entries {
		marker := " "
		if n == pos {
			marker = "*"
		}
		fmt.Fprintf(i.stdout, "%s %2d %-24s %dx%d %s\n", marker, n, e.Label, e.Width, e.Height, e.MIME)
	}
}

func (i *interactiveCmd) zoom(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: zoom in|out|reset|<scale>")
	}
	var err error
	i.sess.View(func(v *viewport.Viewport) {
		switch args[0] {
		case "in", "+":
			v.ZoomIn()
		case "out", "-":
			v.ZoomOut()
		case "reset", "0":
			v.ResetZoom()
		default:
			var s float64
			s, err = strconv.ParseFloat(args[0], 64)
			if err != nil {
				err = fmt.Errorf("invalid zoom %q", args[0])
				return
			}
			v.SetScale(s)
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(i.stdout, "zoom %.0f%%\n", i.sess.Viewport().Scale*100)
	return nil
}

func (i *interactiveCmd) pan(args []string) error {
	d, err := parseXY(args)
	if err != nil {
		return err
	}
	i.sess.View(func(v *viewport.Viewport) { v.PanBy(d.X, d.Y) })
	p := i.sess.Viewport().Pan
	fmt.Fprintf(i.stdout, "pan %.0f,%.0f\n", p.X, p.Y)
	return nil
}

func (i *interactiveCmd) layout(args []string) error {
	size, err := parseXY(args)
	if err != nil {
		return err
	}
	if size.X <= 0 || size.Y <= 0 {
		return errors.New("layout size must be positive")
	}
	i.sess.Layout(viewport.R(0, 0, size.X, size.Y))
	d := i.sess.Viewport().Display
	fmt.Fprintf(i.stdout, "displayed at %.0fx%.0f\n", d.X, d.Y)
	return nil
}

func (i *interactiveCmd) setMode(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: mode <name>")
	}
	m, err := editor.ParseMode(args[0])
	if err != nil {
		return err
	}
	i.sess.SetMode(m)
	return nil
}

func (i *interactiveCmd) writeMask(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: mask <file>")
	}
	m, err := i.sess.Mask()
	if err != nil {
		return err
	}
	if err := writePNG(args[0], m); err != nil {
		return err
	}
	fmt.Fprintf(i.stdout, "saved %s (%.1f%% masked)\n", args[0], mask.Coverage(m)*100)
	return nil
}

func (i *interactiveCmd) save(args []string) error {
	path := i.file
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return errors.New("usage: save <file>")
	}
	out := &imageIO{output: path}
	mime, err := out.outputFormat(path, i.config.Editor.Format)
	if err != nil {
		return err
	}
	if err := writeImageFile(path, i.sess, mime); err != nil {
		return err
	}
	fmt.Fprintf(i.stdout, "saved %s\n", path)
	i.notifier.Save(path)
	return nil
}

func (i *interactiveCmd) copyImage() error {
	if err := writeClipboardFn(i.sess.Image()); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	fmt.Fprintln(i.stdout, "copied to clipboard")
	i.notifier.Copy("image")
	return nil
}

func (i *interactiveCmd) printStatus() {
	sess := i.sess
	entries, pos := sess.Entries()
	v := sess.Viewport()
	fmt.Fprintf(i.stdout, "mode %s, zoom %.0f%%, %d/%d %s", sess.Mode(), v.Scale*100, pos+1, len(entries), entries[pos].Label)
	if hs, ok := sess.Hotspot(); ok {
		fmt.Fprintf(i.stdout, ", hotspot %.0f,%.0f", hs.X, hs.Y)
	}
	if n := len(sess.Strokes()); n > 0 {
		fmt.Fprintf(i.stdout, ", %d stroke(s)", n)
	}
	if sel := sess.Selection(); !sel.Empty() {
		fmt.Fprintf(i.stdout, ", selection %.0f,%.0f,%.0f,%.0f", sel.Min.X, sel.Min.Y, sel.Max.X, sel.Max.Y)
	}
	fmt.Fprintln(i.stdout)
}

// view opens the window on the current session and returns when it closes.
func (i *interactiveCmd) view() {
	mime, _ := i.format()
	saveDir := expandHome(i.config.SaveDir)
	if saveDir == "" {
		saveDir = "."
	}
	runViewerFn(ui.New(i.sess,
		ui.WithTheme(i.theme),
		ui.WithNotifier(i.notifier),
		ui.WithLogger(i.logger),
		ui.WithOutput(i.file),
		ui.WithSaveDir(saveDir),
		ui.WithFormat(mime),
	))
}
