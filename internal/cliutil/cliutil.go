// internal/cliutil/cliutil.go
package cliutil

import (
	"flag"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// boolFlags returns the names of flags that take no value.
func boolFlags(fs *flag.FlagSet) map[string]bool {
	m := map[string]bool{}
	fs.VisitAll(func(f *flag.Flag) {
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			m[f.Name] = true
		}
	})
	return m
}

// SplitFlagsAndPositionals lets flags and positionals interleave: flag.Parse
// stops at the first positional, so flags are pulled out first. "-" is a
// positional (stdin); everything after "--" is positional.
func SplitFlagsAndPositionals(fs *flag.FlagSet, argv []string) (flagArgs, posArgs []string) {
	noValue := boolFlags(fs)
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--":
			return flagArgs, append(posArgs, argv[i+1:]...)
		case arg == "-" || !strings.HasPrefix(arg, "-"):
			posArgs = append(posArgs, arg)
		case strings.Contains(arg, "="):
			flagArgs = append(flagArgs, arg)
		default:
			flagArgs = append(flagArgs, arg)
			if !noValue[strings.TrimLeft(arg, "-")] && i+1 < len(argv) {
				flagArgs = append(flagArgs, argv[i+1])
				i++
			}
		}
	}
	return flagArgs, posArgs
}

// ExpandGlob expands a path pattern. Plain paths and "-" pass through.
// A pattern that matches nothing is an error.
func ExpandGlob(p string) ([]string, error) {
	if p == "-" || !strings.ContainsAny(p, "*?[") {
		return []string{p}, nil
	}
	m, err := filepath.Glob(p)
	if err != nil {
		return nil, fmt.Errorf("bad glob %q: %v", p, err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("no input matched %q", p)
	}
	sort.Strings(m)
	return m, nil
}

// ExpandPositionals expands any globs among path-like positionals.
func ExpandPositionals(posArgs []string) ([]string, error) {
	var out []string
	for _, a := range posArgs {
		m, err := ExpandGlob(a)
		if err != nil {
			return nil, err
		}
		out = append(out, m...)
	}
	return out, nil
}

// ForceInput is one trajectory recorded at a clamp force.
type ForceInput struct {
	Force float64 // pN
	Path  string
}

// ParseForceSpecs parses repeated FORCE:PATH arguments (PATH may be a glob;
// every match becomes its own ensemble at that force).
func ParseForceSpecs(specs []string) ([]ForceInput, error) {
	var out []ForceInput
	for _, s := range specs {
		k := strings.IndexByte(s, ':')
		if k <= 0 || k == len(s)-1 {
			return nil, fmt.Errorf("bad --force %q (want FORCE:PATH)", s)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s[:k]), 64)
		if err != nil {
			return nil, fmt.Errorf("bad force in %q: %v", s, err)
		}
		paths, err := ExpandGlob(strings.TrimSpace(s[k+1:]))
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			out = append(out, ForceInput{Force: f, Path: p})
		}
	}
	return out, nil
}
