// Package names spells C identifiers the way llcppg spells them in the
// bindings it generates, so a conformance test refers to the binding's
// own Go names. llcppg keeps these rules under _xtool, which is not an
// importable package, so they are restated here and pinned by tests.
package names

import (
	"strings"
	"unicode"
)

// RemovePrefixedName strips the first matching prefix of trimPrefixes.
func RemovePrefixedName(name string, trimPrefixes []string) string {
	for _, prefix := range trimPrefixes {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return name
}

// PubName turns a C name into an exported camel-case Go name:
// zuint8 -> Zuint8, z80_model -> Z80Model, _private -> X_private.
func PubName(name string) string {
	base := strings.Trim(name, "_")
	switch {
	case name == "":
		return name
	case base == "":
		return "X" + name
	}
	lead := name[:len(name)-len(strings.TrimLeft(name, "_"))]
	trail := name[len(lead)+len(base):]
	if lead != "" || unicode.IsDigit(rune(base[0])) {
		return "X" + lead + ToCamelCase(base, false) + trail
	}
	return ToCamelCase(base, true) + trail
}

// ToCamelCase joins the underscore separated parts of s, upper-casing
// the first letter of each part but the first unless firstPartUpper.
func ToCamelCase(s string, firstPartUpper bool) string {
	var b strings.Builder
	for i, part := range strings.Split(s, "_") {
		if i == 0 && !firstPartUpper {
			b.WriteString(part)
		} else if part != "" {
			b.WriteString(UpperFirst(part))
		}
	}
	return b.String()
}

// ExportName only makes name public, keeping underscores:
// Z80_SF -> Z80_SF, z80_hook -> Z80_hook, _x -> X_x.
func ExportName(name string) string {
	if name == "" {
		return name
	}
	if c := rune(name[0]); c == '_' || unicode.IsDigit(c) {
		return "X" + name
	}
	return UpperFirst(name)
}

func UpperFirst(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
