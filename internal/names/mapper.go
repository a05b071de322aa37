package names

import (
	"fmt"

	"github.com/goplus/abitestgen/manifest"
)

// Mode selects how a C spelling becomes a Go spelling when neither the
// manifest nor the type map names it.
type Mode string

const (
	ModeNone   Mode = "none"   // keep the C spelling
	ModeExport Mode = "export" // ExportName for every kind
	ModeLLCppg Mode = "llcppg" // PubName for types, ExportName for the rest
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return ModeNone, nil
	case ModeNone, ModeExport, ModeLLCppg:
		return m, nil
	}
	return "", fmt.Errorf("unknown naming mode %q", s)
}

// Mapper resolves the Go spelling of a manifest symbol in the binding.
type Mapper struct {
	Mode         Mode
	TrimPrefixes []string
	TypeMap      map[string]string // C name -> Go name, an empty value keeps the C name
}

// GoName resolves, in order: the symbol's explicit GoName, the type map,
// then Mode applied after trimming prefixes.
func (m *Mapper) GoName(sym manifest.SymbolRef) string {
	if sym.GoName != "" {
		return sym.GoName
	}
	if m == nil {
		return sym.Name
	}
	if defined, ok := m.TypeMap[sym.Name]; ok {
		if defined == "" {
			return sym.Name
		}
		return defined
	}
	name := RemovePrefixedName(sym.Name, m.TrimPrefixes)
	switch m.Mode {
	case ModeExport:
		return ExportName(name)
	case ModeLLCppg:
		if sym.Kind == manifest.Type {
			return PubName(name)
		}
		return ExportName(name)
	}
	return name
}
