package drift

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// HeaderSet describes the C declarations visible to the native package:
// the preamble lines of its cgo comment followed by its headers and
// everything they include.
type HeaderSet struct {
	Headers     []string // paths, or names looked up in IncludeDirs
	IncludeDirs []string
	Preamble    []string
}

type include struct {
	name   string
	system bool // <name> rather than "name"
}

func parseInclude(spec string) (include, bool) {
	spec = strings.TrimSpace(spec)
	if len(spec) < 2 {
		return include{}, false
	}
	switch {
	case spec[0] == '"' && spec[len(spec)-1] == '"':
		return include{name: spec[1 : len(spec)-1]}, true
	case spec[0] == '<' && spec[len(spec)-1] == '>':
		return include{name: spec[1 : len(spec)-1], system: true}, true
	}
	return include{}, false
}

// IncludeDirs returns the -I and -isystem directories of cflags.
func IncludeDirs(cflags string) []string {
	var dirs []string
	fields := strings.Fields(cflags)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		switch {
		case f == "-I" || f == "-isystem":
			if i+1 < len(fields) {
				i++
				dirs = append(dirs, fields[i])
			}
		case strings.HasPrefix(f, "-isystem"):
			dirs = append(dirs, f[len("-isystem"):])
		case strings.HasPrefix(f, "-I"):
			dirs = append(dirs, f[2:])
		}
	}
	return dirs
}

// ScanHeaders scans the preamble, then each header and, recursively, the
// files it includes. Includes not found in the including file's directory
// or in IncludeDirs are recorded in Unresolved and skipped.
func ScanHeaders(ctx context.Context, hs *HeaderSet) (*Symbols, error) {
	syms := NewSymbols()
	if len(hs.Preamble) > 0 {
		src := []byte(strings.Join(hs.Preamble, "\n") + "\n")
		if _, err := scanC(ctx, syms, src); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	unresolved := make(map[string]bool)
	var visit func(file string) error
	visit = func(file string) error {
		if seen[file] {
			return nil
		}
		seen[file] = true
		src, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		incs, err := scanC(ctx, syms, src)
		if err != nil {
			return err
		}
		for _, inc := range incs {
			dir := filepath.Dir(file)
			if inc.system {
				dir = ""
			}
			found, ok := lookup(inc.name, dir, hs.IncludeDirs)
			if !ok {
				if !unresolved[inc.name] {
					unresolved[inc.name] = true
					syms.Unresolved = append(syms.Unresolved, inc.name)
				}
				continue
			}
			if err := visit(found); err != nil {
				return err
			}
		}
		return nil
	}
	for _, header := range hs.Headers {
		found, ok := lookup(header, ".", hs.IncludeDirs)
		if !ok {
			return nil, fmt.Errorf("header %s: %w", header, fs.ErrNotExist)
		}
		if err := visit(found); err != nil {
			return nil, err
		}
	}
	return syms, nil
}

// lookup finds name in dir, when not empty, then in each include dir.
func lookup(name, dir string, includeDirs []string) (string, bool) {
	if filepath.IsAbs(name) {
		return name, isFile(name)
	}
	var dirs []string
	if dir != "" {
		dirs = append(dirs, dir)
	}
	for _, d := range append(dirs, includeDirs...) {
		file := filepath.Clean(filepath.Join(d, name))
		if isFile(file) {
			return file, true
		}
	}
	return "", false
}

func isFile(name string) bool {
	fi, err := os.Stat(name)
	return err == nil && !fi.IsDir()
}
