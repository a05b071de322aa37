package drift

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goplus/abitestgen/internal/names"
	"github.com/goplus/abitestgen/manifest"
)

type Entry struct {
	Name   string
	Kind   manifest.Kind
	GoName string
}

type Report struct {
	MissingInHeader  []Entry // listed but not declared by the header
	Untracked        []Entry // declared by the header with a tracked prefix but not listed
	MissingInBinding []Entry // listed but the binding does not declare the Go name
}

func (r *Report) Clean() bool {
	return len(r.MissingInHeader) == 0 && len(r.Untracked) == 0 && len(r.MissingInBinding) == 0
}

// Compare checks m against the header and binding declarations. A nil
// header or binding skips the checks that need it.
func Compare(m *manifest.Manifest, header, binding *Symbols, mapper *names.Mapper, trackPrefixes []string) *Report {
	r := &Report{}
	listed := make(map[string]bool)
	for _, sym := range m.Symbols() {
		listed[sym.Name] = true
		if header != nil && !header.has(sym.Kind, sym.Name) {
			r.MissingInHeader = append(r.MissingInHeader, Entry{Name: sym.Name, Kind: sym.Kind})
		}
		if binding != nil {
			goName := mapper.GoName(sym)
			if !binding.has(sym.Kind, goName) {
				r.MissingInBinding = append(r.MissingInBinding, Entry{Name: sym.Name, Kind: sym.Kind, GoName: goName})
			}
		}
	}
	if header != nil {
		for _, name := range sortedKeys(header.Types) {
			if !listed[name] && tracked(name, trackPrefixes) {
				r.Untracked = append(r.Untracked, Entry{Name: name, Kind: manifest.Type})
			}
		}
		for _, name := range sortedKeys(header.Consts) {
			if !listed[name] && tracked(name, trackPrefixes) {
				r.Untracked = append(r.Untracked, Entry{Name: name, Kind: manifest.Constant})
			}
		}
		sort.SliceStable(r.Untracked, func(i, j int) bool {
			return r.Untracked[i].Name < r.Untracked[j].Name
		})
	}
	return r
}

// has reports whether name is declared. Kinds other than Type and
// Constant are not scanned and always match.
func (s *Symbols) has(kind manifest.Kind, name string) bool {
	switch kind {
	case manifest.Type:
		return s.Types[name] || s.Aliases[name]
	case manifest.Constant:
		return s.Consts[name]
	}
	return true
}

func tracked(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// WriteTo prints the report, one line per finding.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, e := range r.MissingInHeader {
		fmt.Fprintf(&b, "missing in header: %s %s\n", e.Kind, e.Name)
	}
	for _, e := range r.Untracked {
		fmt.Fprintf(&b, "untracked: %s %s\n", e.Kind, e.Name)
	}
	for _, e := range r.MissingInBinding {
		fmt.Fprintf(&b, "missing in binding: %s %s (%s)\n", e.Kind, e.Name, e.GoName)
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
