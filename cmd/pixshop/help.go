package main

import (
	"bytes"
	"embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync"
	"text/template"
)

//go:embed templates/*.txt
var helpFS embed.FS

var (
	helpOnce sync.Once
	helpTmpl *template.Template
)

func parseHelpTemplates() {
	helpTmpl = template.Must(template.New("").Funcs(map[string]any{
		"flags": func(fs *flag.FlagSet) []flagInfo {
			result := []flagInfo{}
			if fs == nil {
				return result
			}
			fs.VisitAll(func(f *flag.Flag) {
				result = append(result, flagInfo{f.Name, f.DefValue, f.Usage})
			})
			return result
		},
	}).ParseFS(helpFS, "templates/*.txt"))
}

type flagInfo struct {
	Name     string
	DefValue string
	Usage    string
}

type HelpData interface {
	Program() string
	Template() string
	FlagSet() *flag.FlagSet
}

type UsageError struct {
	of HelpData
}

func (e *UsageError) Error() string {
	help, err := e.renderHelp()
	if err != nil {
		return err.Error()
	}
	return help
}

func (e *UsageError) renderHelp() (string, error) {
	helpOnce.Do(parseHelpTemplates)
	var buf bytes.Buffer
	err := helpTmpl.ExecuteTemplate(&buf, e.of.Template(), e.of)
	if err != nil {
		log.Printf("error rendering help template: %v", err)
		return "", err
	}
	return buf.String(), nil
}

// usageFunc renders the command help to the flag set output.
func usageFunc(of HelpData) func() {
	return func() {
		if fs := of.FlagSet(); fs != nil {
			fmt.Fprint(fs.Output(), (&UsageError{of: of}).Error())
		}
	}
}

// parseFlags parses args into the flag set of c. -h and -help become a
// UsageError for c.
func parseFlags(c HelpData, args []string) error {
	err := c.FlagSet().Parse(args)
	if err == nil {
		return nil
	}
	if errors.Is(err, flag.ErrHelp) {
		return &UsageError{of: c}
	}
	return fmt.Errorf("%s: %w", c.Program(), err)
}

// help prints help for a named command or for the whole program.
func (r *root) help(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(r.stdout, (&UsageError{of: r}).Error())
		return nil
	}
	err := r.dispatch(args[0], []string{"-h"})
	var uerr *UsageError
	if errors.As(err, &uerr) {
		fmt.Fprint(r.stdout, uerr.Error())
		return nil
	}
	if err == nil {
		return nil
	}
	return err
}

func (r *root) Template() string {
	return "root.txt"
}

func (c *retouchCmd) Template() string {
	return "retouch.txt"
}

func (c *eraseCmd) Template() string {
	return "erase.txt"
}

func (c *maskCmd) Template() string {
	return "mask.txt"
}

func (c *styleCmd) Template() string {
	return string(c.kind) + ".txt"
}

func (c *upscaleCmd) Template() string {
	return "upscale.txt"
}

func (c *cropCmd) Template() string {
	return "crop.txt"
}

func (c *rotateCmd) Template() string {
	return "rotate.txt"
}

func (c *flipCmd) Template() string {
	return "flip.txt"
}

func (p *previewCmd) Template() string {
	return "preview.txt"
}

func (p *presetsCmd) Template() string {
	return "presets.txt"
}

func (i *interactiveCmd) Template() string {
	return "interactive.txt"
}

func (v *viewCmd) Template() string {
	return "view.txt"
}

func (c *configCmd) Template() string {
	return "config.txt"
}

func (v *versionCmd) Template() string {
	return "version.txt"
}
