package manifest

import (
	"bytes"
	"fmt"
	"go/token"
	"io"
	"os"
	"regexp"

	"github.com/qiniu/x/errors"
	"gopkg.in/yaml.v3"
)

// A manifest file lists sections of symbols:
//
//	sections:
//	  - header: Z80.h
//	    symbols:
//	      - type: Z80
//	      - const: Z80_SF
//	        go: SF
//
// The long form {name: Z80_SF, kind: const} is accepted as well; the two
// forms cannot be mixed in one entry.
type fileManifest struct {
	Sections []fileSection `yaml:"sections"`
}

type fileSection struct {
	Header  string      `yaml:"header"`
	Symbols []yaml.Node `yaml:"symbols"`
}

var cIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parse decodes and validates a YAML manifest. Every problem found is
// reported, each prefixed with its line number.
func Parse(data []byte) (*Manifest, error) {
	var fm fileManifest
	if err := yaml.Unmarshal(data, &fm); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	var errs errors.List
	seen := make(map[string]int)
	m := &Manifest{}
	for _, fs := range fm.Sections {
		sec := Section{Header: fs.Header}
		for i := range fs.Symbols {
			node := &fs.Symbols[i]
			sym, err := parseSymbol(node)
			if err != nil {
				errs.Add(err)
				continue
			}
			if prev, ok := seen[sym.Name]; ok {
				errs.Add(fmt.Errorf("line %d: duplicate symbol %s (first at line %d)", node.Line, sym.Name, prev))
				continue
			}
			seen[sym.Name] = node.Line
			sec.Symbols = append(sec.Symbols, sym)
		}
		m.Sections = append(m.Sections, sec)
	}
	if err := errs.ToError(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseSymbol(node *yaml.Node) (sym SymbolRef, err error) {
	if node.Kind != yaml.MappingNode {
		return sym, fmt.Errorf("line %d: symbol entry must be a mapping", node.Line)
	}
	var kindName string
	var named, short bool
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1].Value
		switch key {
		case "name":
			sym.Name, named = val, true
		case "kind":
			kindName = val
		case "go":
			sym.GoName = val
		default:
			k, ok := ParseKind(key)
			if !ok {
				return sym, fmt.Errorf("line %d: unknown key %q", node.Content[i].Line, key)
			}
			if sym.Kind != 0 {
				return sym, fmt.Errorf("line %d: symbol has more than one kind", node.Line)
			}
			sym.Kind, sym.Name, short = k, val, true
		}
	}
	if short && (named || kindName != "") {
		return sym, fmt.Errorf("line %d: symbol entry mixes the short form with name or kind", node.Line)
	}
	if kindName != "" {
		k, ok := ParseKind(kindName)
		if !ok {
			return sym, fmt.Errorf("line %d: unknown kind %q", node.Line, kindName)
		}
		sym.Kind = k
	}
	switch {
	case sym.Kind == 0:
		return sym, fmt.Errorf("line %d: symbol %q has no kind", node.Line, sym.Name)
	case !cIdent.MatchString(sym.Name):
		return sym, fmt.Errorf("line %d: %q is not a C identifier", node.Line, sym.Name)
	case sym.GoName != "" && !token.IsIdentifier(sym.GoName):
		return sym, fmt.Errorf("line %d: %q is not a Go identifier", node.Line, sym.GoName)
	}
	return sym, nil
}

func Load(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Marshal encodes m in the short manifest form accepted by Parse.
func Marshal(m *Manifest) ([]byte, error) {
	sections := &yaml.Node{Kind: yaml.SequenceNode}
	for _, sec := range m.Sections {
		syms := &yaml.Node{Kind: yaml.SequenceNode}
		for _, sym := range sec.Symbols {
			entry := &yaml.Node{Kind: yaml.MappingNode}
			entry.Content = append(entry.Content, scalar(sym.Kind.String()), scalar(sym.Name))
			if sym.GoName != "" {
				entry.Content = append(entry.Content, scalar("go"), scalar(sym.GoName))
			}
			syms.Content = append(syms.Content, entry)
		}
		s := &yaml.Node{Kind: yaml.MappingNode}
		if sec.Header != "" {
			s.Content = append(s.Content, scalar("header"), scalar(sec.Header))
		}
		s.Content = append(s.Content, scalar("symbols"), syms)
		sections.Content = append(sections.Content, s)
	}
	doc := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{scalar("sections"), sections}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
