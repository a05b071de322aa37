package emit

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/goplus/abitestgen/internal/gowrite"
	"github.com/goplus/abitestgen/manifest"
	"go.uber.org/zap"
)

// RenderGodefs writes the cgo input from which
//
//	go tool cgo -godefs <file> > <native package>/abi.go
//
// produces the native operands referenced by the conformance test: one
// constant per manifest entry, computed by the C compiler from the header.
func RenderGodefs(w io.Writer, m *manifest.Manifest, conf *Config) error {
	conf = conf.normalize()
	return gowrite.WriteTo(w, gowrite.GeneratedHeader, renderGodefs(m, conf))
}

// GenerateGodefs writes the RenderGodefs output to outputPath.
func GenerateGodefs(outputPath string, m *manifest.Manifest, conf *Config) error {
	conf = conf.normalize()
	if err := gowrite.WriteFile(outputPath, gowrite.GeneratedHeader, renderGodefs(m, conf)); err != nil {
		return unwritable(outputPath, err)
	}
	conf.Logger.Debug("generated godefs input", zap.String("path", outputPath))
	return nil
}

func renderGodefs(m *manifest.Manifest, conf *Config) []byte {
	var buf bytes.Buffer
	buf.WriteString("//go:build ignore\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", conf.NativeName)

	buf.WriteString("/*\n")
	if conf.CFlags != "" {
		fmt.Fprintf(&buf, "#cgo CFLAGS: %s\n", conf.CFlags)
	}
	for _, line := range conf.Preamble {
		buf.WriteString(line + "\n")
	}
	for _, inc := range conf.Include {
		fmt.Fprintf(&buf, "#include %s\n", includeSpec(inc))
	}
	buf.WriteString("*/\nimport \"C\"\n\n")

	buf.WriteString("const (\n")
	if m != nil {
		for _, sec := range m.Sections {
			if sec.Header != "" {
				fmt.Fprintf(&buf, "\t// %s\n", sec.Header)
			}
			for _, sym := range sec.Symbols {
				fam, ok := FamilyOf(sym.Kind)
				if !ok || fam.Godefs == nil {
					conf.Logger.Warn("no godefs for check family, symbol skipped",
						zap.String("symbol", sym.Name), zap.Stringer("kind", sym.Kind))
					continue
				}
				fmt.Fprintf(&buf, "\t%s\n", fam.Godefs(sym))
			}
		}
	}
	buf.WriteString(")\n")
	return buf.Bytes()
}

// Z80.h -> <Z80.h>; "local.h" and <sys.h> are kept.
func includeSpec(inc string) string {
	if strings.HasPrefix(inc, "\"") || strings.HasPrefix(inc, "<") {
		return inc
	}
	return "<" + inc + ">"
}
