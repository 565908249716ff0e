package main

import (
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/example/pixshop/internal/prompts"
)

// presetsCmd lists the filter and adjustment presets.
type presetsCmd struct {
	kind    string
	verbose bool
	*root
	fs *flag.FlagSet
}

func (p *presetsCmd) FlagSet() *flag.FlagSet {
	return p.fs
}

func parsePresetsCmd(args []string, r *root) (*presetsCmd, error) {
	fs := newFlagSet("presets")
	p := &presetsCmd{root: r, fs: fs}
	fs.Usage = usageFunc(p)
	fs.StringVar(&p.kind, "kind", "", "only list filter or adjust presets")
	fs.BoolVar(&p.verbose, "v", false, "print the full prompts")
	if err := parseFlags(p, args); err != nil {
		return nil, err
	}
	switch prompts.Kind(p.kind) {
	case "", prompts.KindFilter, prompts.KindAdjust:
	default:
		return nil, fmt.Errorf("unknown preset kind %q: want filter or adjust", p.kind)
	}
	return p, nil
}

func (p *presetsCmd) kinds() []prompts.Kind {
	if p.kind != "" {
		return []prompts.Kind{prompts.Kind(p.kind)}
	}
	return []prompts.Kind{prompts.KindFilter, prompts.KindAdjust}
}

func (p *presetsCmd) Run() error {
	tw := tabwriter.NewWriter(p.stdout, 0, 4, 2, ' ', 0)
	for _, kind := range p.kinds() {
		for _, preset := range prompts.Presets(kind) {
			text := preset.Prompt
			if !p.verbose {
				text = summary(text, 60)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", kind, preset.Name, text)
		}
	}
	return tw.Flush()
}

func summary(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= limit {
		return s
	}
	return string([]rune(s)[:limit-1]) + "…"
}
