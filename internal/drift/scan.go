// Package drift reports disagreement between a manifest, the native header
// it was written against and the Go binding it checks.
package drift

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/golang"
)

// Symbols is the set of declarations found by a scanner.
type Symbols struct {
	Types   map[string]bool
	Consts  map[string]bool
	Aliases map[string]bool // macros standing for a type name

	Unresolved []string // #include paths not found, usually system headers
}

func NewSymbols() *Symbols {
	return &Symbols{
		Types:   make(map[string]bool),
		Consts:  make(map[string]bool),
		Aliases: make(map[string]bool),
	}
}

func (s *Symbols) addType(name string) {
	if name != "" {
		s.Types[name] = true
	}
}

func (s *Symbols) addConst(name string) {
	if name != "" && name != "_" {
		s.Consts[name] = true
	}
}

var cIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func sortedKeys(set map[string]bool) []string {
	ret := make([]string, 0, len(set))
	for k := range set {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

func parse(ctx context.Context, lang *sitter.Language, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)
	return parser.ParseCtx(ctx, nil, src)
}

// ScanHeader collects the constants and types a C header declares:
// object-like macros with a value and enumerators as constants, typedef
// names and struct, union or enum tags as types. A macro whose value is a
// single identifier also names a type, as in #define zint16 ZInt16.
func ScanHeader(ctx context.Context, src []byte) (*Symbols, error) {
	syms := NewSymbols()
	if _, err := scanC(ctx, syms, src); err != nil {
		return nil, err
	}
	return syms, nil
}

// scanC adds the declarations of src to syms and returns its #include
// directives in order.
func scanC(ctx context.Context, syms *Symbols, src []byte) ([]include, error) {
	tree, err := parse(ctx, c.GetLanguage(), src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var incs []include
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "preproc_include":
			if inc, ok := parseInclude(content(n.ChildByFieldName("path"), src)); ok {
				incs = append(incs, inc)
			}
			return
		case "preproc_def":
			// include guards and empty markers have no value
			if value := n.ChildByFieldName("value"); value != nil {
				name := content(n.ChildByFieldName("name"), src)
				syms.addConst(name)
				if cIdent.MatchString(strings.TrimSpace(value.Content(src))) {
					syms.Aliases[name] = true
				}
			}
			return
		case "preproc_function_def", "compound_statement":
			return
		case "enumerator":
			syms.addConst(content(n.ChildByFieldName("name"), src))
			return
		case "struct_specifier", "union_specifier", "enum_specifier":
			if n.ChildByFieldName("body") != nil {
				syms.addType(content(n.ChildByFieldName("name"), src))
			}
		case "type_definition":
			for i := 0; i < int(n.ChildCount()); i++ {
				if n.FieldNameForChild(i) == "declarator" {
					syms.addType(declaratorName(n.Child(i), src))
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())
	return incs, nil
}

// typedef zuint8 (* Z80Read)(void *context, zuint16 address); -> Z80Read
func declaratorName(n *sitter.Node, src []byte) string {
	for n != nil {
		switch n.Type() {
		case "type_identifier", "identifier":
			return content(n, src)
		}
		next := n.ChildByFieldName("declarator")
		if next == nil && n.NamedChildCount() > 0 {
			next = n.NamedChild(0)
		}
		n = next
	}
	return ""
}

func content(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(src)
}

// ScanBinding collects the package level constants and types declared by
// the given Go sources.
func ScanBinding(ctx context.Context, files ...[]byte) (*Symbols, error) {
	syms := NewSymbols()
	for _, src := range files {
		if err := scanGo(ctx, syms, src); err != nil {
			return nil, err
		}
	}
	return syms, nil
}

// ScanBindingDir scans the non-test Go files of dir.
func ScanBindingDir(ctx context.Context, dir string) (*Symbols, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return nil, err
	}
	var files [][]byte
	for _, file := range matches {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		files = append(files, data)
	}
	return ScanBinding(ctx, files...)
}

func scanGo(ctx context.Context, syms *Symbols, src []byte) error {
	tree, err := parse(ctx, golang.GetLanguage(), src)
	if err != nil {
		return err
	}
	defer tree.Close()

	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		decl := root.NamedChild(i)
		switch decl.Type() {
		case "const_declaration":
			for j := 0; j < int(decl.NamedChildCount()); j++ {
				spec := decl.NamedChild(j)
				if spec.Type() != "const_spec" {
					continue
				}
				for k := 0; k < int(spec.ChildCount()); k++ {
					if spec.FieldNameForChild(k) == "name" {
						syms.addConst(spec.Child(k).Content(src))
					}
				}
			}
		case "type_declaration":
			for j := 0; j < int(decl.NamedChildCount()); j++ {
				spec := decl.NamedChild(j)
				switch spec.Type() {
				case "type_spec", "type_alias":
					syms.addType(content(spec.ChildByFieldName("name"), src))
				}
			}
		}
	}
	return nil
}
