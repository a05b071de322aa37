package emit

import (
	"errors"
	"fmt"
	"go/token"

	"github.com/goplus/abitestgen/internal/names"
	"github.com/goplus/abitestgen/manifest"
	qerrors "github.com/qiniu/x/errors"
)

// Import is one import spec of the generated file.
type Import struct {
	Name string // alias, empty for none
	Path string
}

// Operands produces one side of every comparison as Go source. The
// binding side is computed by the Go compiler from the binding's own
// declarations, the native side by the C compiler from the header.
type Operands interface {
	Size(sym manifest.SymbolRef) string
	Value(sym manifest.SymbolRef) string
	// Uses reports the imports the operands for kind k refer to.
	Uses(k manifest.Kind) []Import
}

// BindingOperands refers to the Go binding under test.
type BindingOperands struct {
	Alias string
	Path  string
	Names *names.Mapper
}

func (p *BindingOperands) Size(sym manifest.SymbolRef) string {
	return "unsafe.Sizeof(*new(" + p.Alias + "." + p.Names.GoName(sym) + "))"
}

func (p *BindingOperands) Value(sym manifest.SymbolRef) string {
	return p.Alias + "." + p.Names.GoName(sym)
}

func (p *BindingOperands) Uses(k manifest.Kind) []Import {
	ret := []Import{{Name: p.Alias, Path: p.Path}}
	if k == manifest.Type {
		ret = append(ret, Import{Path: "unsafe"})
	}
	return ret
}

// ErrUnexported reports a binding name the external test package cannot
// refer to.
var ErrUnexported = errors.New("binding name is not exported")

// CheckExported reports every checked symbol of m whose Go name under
// mapper is unexported. The conformance test lives in <pkg>_test, so such
// a name can never compile.
func CheckExported(m *manifest.Manifest, mapper *names.Mapper) error {
	var errs qerrors.List
	for _, sym := range m.Symbols() {
		if _, ok := FamilyOf(sym.Kind); !ok {
			continue
		}
		if goName := mapper.GoName(sym); !token.IsExported(goName) {
			errs.Add(fmt.Errorf("%s (%s %s)", goName, sym.Kind, sym.Name))
		}
	}
	if err := errs.ToError(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexported, err)
	}
	return nil
}

// SizePrefix prefixes the native constant holding the size of a type.
const SizePrefix = "Sizeof_"

// NativeOperands refers to constants the surrounding build computes with
// go tool cgo -godefs, see RenderGodefs.
type NativeOperands struct {
	Alias string
	Path  string
}

func (p *NativeOperands) Size(sym manifest.SymbolRef) string {
	return p.Alias + "." + nativeSizeName(sym)
}

func (p *NativeOperands) Value(sym manifest.SymbolRef) string {
	return p.Alias + "." + nativeValueName(sym)
}

func (p *NativeOperands) Uses(k manifest.Kind) []Import {
	return []Import{{Name: p.Alias, Path: p.Path}}
}

func nativeSizeName(sym manifest.SymbolRef) string {
	return SizePrefix + sym.Name
}

func nativeValueName(sym manifest.SymbolRef) string {
	return names.ExportName(sym.Name)
}
