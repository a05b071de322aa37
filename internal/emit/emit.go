// Package emit compiles a manifest into a Go test asserting that a binding
// agrees with the native library on type sizes and constant values.
package emit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/goplus/abitestgen/internal/gowrite"
	"github.com/goplus/abitestgen/internal/names"
	"github.com/goplus/abitestgen/manifest"
	"go.uber.org/zap"
)

// ErrPathUnwritable is returned when the output file cannot be written.
var ErrPathUnwritable = errors.New("output path unwritable")

// Style selects how the generated comparison helper reports a mismatch.
type Style string

const (
	StyleTesting Style = "testing"
	StyleTestify Style = "testify"
)

const (
	DefaultTestName = "TestABI"
	BindingAlias    = "sut"
	NativeAlias     = "native"
	helperName      = "expectABI"
	testifyAssert   = "github.com/stretchr/testify/assert"
)

type Config struct {
	PkgName  string // package name of the binding, the test lives in PkgName_test
	Binding  string // import path of the binding under test
	Native   string // import path of the package built from RenderGodefs output
	TestName string
	Style    Style
	Names    *names.Mapper

	// Left and Right default to BindingOperands and NativeOperands.
	Left, Right Operands

	// used by RenderGodefs
	NativeName string
	CFlags     string
	Include    []string
	Preamble   []string

	Logger *zap.Logger
}

func (c *Config) normalize() *Config {
	ret := Config{}
	if c != nil {
		ret = *c
	}
	if ret.PkgName == "" {
		ret.PkgName = "binding"
	}
	if ret.TestName == "" {
		ret.TestName = DefaultTestName
	}
	if ret.Style == "" {
		ret.Style = StyleTesting
	}
	if ret.Left == nil {
		ret.Left = &BindingOperands{Alias: BindingAlias, Path: ret.Binding, Names: ret.Names}
	}
	if ret.Right == nil {
		ret.Right = &NativeOperands{Alias: NativeAlias, Path: ret.Native}
	}
	if ret.NativeName == "" {
		ret.NativeName = NativeAlias
	}
	if ret.Logger == nil {
		ret.Logger = zap.NewNop()
	}
	return &ret
}

// Generate writes the conformance test for m to outputPath. The file is
// rendered completely before it is opened, so on failure nothing is left
// on disk. Manifest content never makes Generate fail.
func Generate(outputPath string, m *manifest.Manifest, conf *Config) error {
	conf = conf.normalize()
	src := render(m, conf)
	if err := gowrite.WriteFile(outputPath, gowrite.GeneratedHeader, src); err != nil {
		return unwritable(outputPath, err)
	}
	conf.Logger.Debug("generated conformance test",
		zap.String("path", outputPath), zap.Int("checks", m.Len()))
	return nil
}

func unwritable(path string, err error) error {
	if errors.Is(err, gowrite.ErrFormat) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrPathUnwritable, path, err)
}

// Render writes the conformance test for m to w.
func Render(w io.Writer, m *manifest.Manifest, conf *Config) error {
	conf = conf.normalize()
	return gowrite.WriteTo(w, gowrite.GeneratedHeader, render(m, conf))
}

// Bytes returns the conformance test for m.
func Bytes(m *manifest.Manifest, conf *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, m, conf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func render(m *manifest.Manifest, conf *Config) []byte {
	log := conf.Logger
	var body bytes.Buffer
	imports := map[Import]bool{{Path: "testing"}: true}
	checks := 0
	total := m.Len()
	if m != nil {
		for _, sec := range m.Sections {
			if sec.Header != "" {
				fmt.Fprintf(&body, "\t// %s\n", sec.Header)
			}
			for _, sym := range sec.Symbols {
				fam, ok := FamilyOf(sym.Kind)
				if !ok {
					log.Warn("no check family, symbol skipped",
						zap.String("symbol", sym.Name), zap.Stringer("kind", sym.Kind))
					continue
				}
				checks++
				log.Debug("emit check",
					zap.String("family", fam.Name), zap.String("symbol", sym.Name),
					zap.Int("index", checks), zap.Int("total", total))
				fmt.Fprintf(&body, "\t%s(t, %s, %s, %s)\n", helperName,
					strconv.Quote(fam.Label(sym)), fam.Operand(conf.Left, sym), fam.Operand(conf.Right, sym))
				for _, imp := range conf.Left.Uses(sym.Kind) {
					imports[imp] = true
				}
				for _, imp := range conf.Right.Uses(sym.Kind) {
					imports[imp] = true
				}
			}
		}
	}
	if checks == 0 {
		// keep the binding and native packages referenced by the prologue
		for _, path := range []string{conf.Binding, conf.Native} {
			if path != "" {
				imports[Import{Name: "_", Path: path}] = true
			}
		}
	}
	if conf.Style == StyleTestify {
		imports[Import{Path: testifyAssert}] = true
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "package %s_test\n\n", conf.PkgName)
	writeImports(&buf, imports)
	fmt.Fprintf(&buf, "func %s(t *testing.T) {\n", conf.TestName)
	buf.Write(body.Bytes())
	buf.WriteString("}\n\n")
	writeHelper(&buf, conf.Style)
	return buf.Bytes()
}

func writeImports(buf *bytes.Buffer, set map[Import]bool) {
	var std, others []Import
	for imp := range set {
		if imp.Path == "" {
			continue
		}
		if isStd(imp.Path) {
			std = append(std, imp)
		} else {
			others = append(others, imp)
		}
	}
	sortImports(std)
	sortImports(others)

	buf.WriteString("import (\n")
	for _, imp := range std {
		writeImport(buf, imp)
	}
	if len(std) > 0 && len(others) > 0 {
		buf.WriteString("\n")
	}
	for _, imp := range others {
		writeImport(buf, imp)
	}
	buf.WriteString(")\n\n")
}

func writeImport(buf *bytes.Buffer, imp Import) {
	buf.WriteString("\t")
	if imp.Name != "" {
		buf.WriteString(imp.Name + " ")
	}
	buf.WriteString(strconv.Quote(imp.Path) + "\n")
}

func sortImports(imps []Import) {
	sort.Slice(imps, func(i, j int) bool {
		if imps[i].Path != imps[j].Path {
			return imps[i].Path < imps[j].Path
		}
		return imps[i].Name < imps[j].Name
	})
}

// standard library paths have no dot in their first element
func isStd(path string) bool {
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}

func writeHelper(buf *bytes.Buffer, style Style) {
	fmt.Fprintf(buf, "func %s[T comparable](t *testing.T, what string, got, want T) {\n", helperName)
	buf.WriteString("\tt.Helper()\n")
	if style == StyleTestify {
		buf.WriteString("\tassert.Equalf(t, want, got, \"%s\", what)\n")
	} else {
		buf.WriteString("\tif got != want {\n\t\tt.Errorf(\"%s = %v, want %v\", what, got, want)\n\t}\n")
	}
	buf.WriteString("}\n")
}
