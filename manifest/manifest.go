// Package manifest declares the native symbols whose ABI-visible
// properties are checked against a Go binding.
package manifest

import "fmt"

// Kind selects the check family a symbol is verified with.
type Kind int

const (
	Type Kind = iota + 1
	Constant
)

var kindNames = map[Kind]string{
	Type:     "type",
	Constant: "const",
}

// RegisterKind adds a new symbol kind spelled name in manifest files.
// Registering an existing spelling returns the existing kind.
func RegisterKind(name string) Kind {
	if k, ok := ParseKind(name); ok {
		return k
	}
	k := Kind(len(kindNames) + 1)
	kindNames[k] = name
	return k
}

func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// SymbolRef names one native symbol.
type SymbolRef struct {
	Name   string // spelling in the native header
	Kind   Kind
	GoName string // spelling in the Go binding, empty to derive it
}

func TypeRef(name string) SymbolRef {
	return SymbolRef{Name: name, Kind: Type}
}

func ConstRef(name string) SymbolRef {
	return SymbolRef{Name: name, Kind: Constant}
}

// Section groups the symbols declared by one native header.
type Section struct {
	Header  string
	Symbols []SymbolRef
}

// Manifest is an ordered list of sections. The zero value is an empty,
// legal manifest.
type Manifest struct {
	Sections []Section
}

func New(sections ...Section) *Manifest {
	return &Manifest{Sections: sections}
}

// Symbols returns every symbol in manifest order.
func (m *Manifest) Symbols() []SymbolRef {
	if m == nil {
		return nil
	}
	var ret []SymbolRef
	for _, s := range m.Sections {
		ret = append(ret, s.Symbols...)
	}
	return ret
}

// Count returns the number of symbols of kind k.
func (m *Manifest) Count(k Kind) int {
	n := 0
	for _, sym := range m.Symbols() {
		if sym.Kind == k {
			n++
		}
	}
	return n
}

func (m *Manifest) Len() int {
	return len(m.Symbols())
}
