package main

import (
	"flag"
	"fmt"
)

type versionCmd struct {
	*root
	fs *flag.FlagSet
}

func (v *versionCmd) FlagSet() *flag.FlagSet {
	return v.fs
}

func parseVersionCmd(args []string, r *root) (*versionCmd, error) {
	fs := newFlagSet("version")
	v := &versionCmd{root: r, fs: fs}
	fs.Usage = usageFunc(v)
	if err := parseFlags(v, args); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *versionCmd) Run() error {
	fmt.Fprintf(v.stdout, "%s version %s", v.program, version)
	if commit != "" {
		fmt.Fprintf(v.stdout, " (%s", commit)
		if date != "" {
			fmt.Fprintf(v.stdout, ", %s", date)
		}
		fmt.Fprint(v.stdout, ")")
	}
	fmt.Fprintln(v.stdout)
	return nil
}
