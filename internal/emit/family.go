package emit

import "github.com/goplus/abitestgen/manifest"

// Family is one kind of check. Each manifest kind maps to exactly one
// family; a family decides what label a failure reports and which operand
// of each side is compared.
type Family struct {
	Name    string
	Label   func(sym manifest.SymbolRef) string
	Operand func(ops Operands, sym manifest.SymbolRef) string

	// Godefs returns the const spec RenderGodefs emits for sym, such as
	// Sizeof_Z80 = C.sizeof_Z80. A family without one has no native side
	// there and its symbols are skipped with a warning.
	Godefs func(sym manifest.SymbolRef) string
}

var families = map[manifest.Kind]*Family{
	manifest.Type: {
		Name:  "size",
		Label: func(sym manifest.SymbolRef) string { return "sizeof(" + sym.Name + ")" },
		Operand: func(ops Operands, sym manifest.SymbolRef) string {
			return ops.Size(sym)
		},
		Godefs: func(sym manifest.SymbolRef) string {
			return nativeSizeName(sym) + " = C.sizeof_" + sym.Name
		},
	},
	manifest.Constant: {
		Name:  "value",
		Label: func(sym manifest.SymbolRef) string { return sym.Name },
		Operand: func(ops Operands, sym manifest.SymbolRef) string {
			return ops.Value(sym)
		},
		Godefs: func(sym manifest.SymbolRef) string {
			return nativeValueName(sym) + " = C." + sym.Name
		},
	},
}

// RegisterFamily maps kind k to f. Operand providers used with a new family
// may implement more than Operands; f.Operand can type-assert for it.
func RegisterFamily(k manifest.Kind, f *Family) {
	families[k] = f
}

// FamilyOf returns the family checking symbols of kind k.
func FamilyOf(k manifest.Kind) (*Family, bool) {
	f, ok := families[k]
	return f, ok
}
