package main

import (
	"flag"
	"fmt"

	"github.com/example/pixshop/internal/config"
)

type configCmd struct {
	*root
	fs     *flag.FlagSet
	output string
	reveal bool
}

func (c *configCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseConfigCmd(args []string, r *root) (*configCmd, error) {
	fs := newFlagSet("config")
	c := &configCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.output, "output", "", "file written by save (default: the loaded config file)")
	fs.BoolVar(&c.reveal, "show-secrets", false, "print the API key instead of masking it")
	if err := parseFlags(c, args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *configCmd) Run() error {
	args := c.fs.Args()
	if len(args) < 1 {
		return &UsageError{of: c}
	}

	switch args[0] {
	case "print":
		return c.runPrint()
	case "save":
		return c.runSave()
	case "path":
		fmt.Fprintln(c.stdout, c.path())
		return nil
	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}

func (c *configCmd) runPrint() error {
	if c.reveal {
		fmt.Fprint(c.stdout, c.config.String())
		return nil
	}
	fmt.Fprint(c.stdout, c.config.Redacted())
	return nil
}

// path is where save writes: -output, then the file that was loaded, then
// the default location.
func (c *configCmd) path() string {
	if c.output != "" {
		return c.output
	}
	if p := config.NewLoader(version, c.configPath).GetConfigPath(); p != "" {
		return p
	}
	if c.configPath != "" {
		return c.configPath
	}
	return config.DefaultPath()
}

func (c *configCmd) runSave() error {
	path := c.path()
	if path == "" {
		return fmt.Errorf("no config path: set -output")
	}
	if err := config.Save(c.config, path); err != nil {
		return err
	}
	fmt.Fprintf(c.stderr, "Configuration saved to %s\n", path)
	return nil
}
