package config

import (
	"errors"
	"fmt"
	"go/token"
	"os"

	"github.com/goplus/abitestgen/internal/names"
	"github.com/goplus/llgo/xtool/env"
	"sigs.k8s.io/yaml"
)

const (
	ABITESTGEN_CFG = "abitestgen.cfg"
)

var ErrConfig = errors.New("config error")

// Config is the content of abitestgen.cfg. The file may be written as JSON
// or YAML; field names follow the JSON tags.
type Config struct {
	Name       string `json:"name"`                 // package name of the binding
	Binding    string `json:"binding,omitempty"`    // import path of the binding, read from go.mod when empty
	BindingDir string `json:"bindingDir,omitempty"` // directory of the binding sources
	Native     string `json:"native,omitempty"`     // import path of the godefs package, Binding/NativeName when empty
	NativeName string `json:"nativeName,omitempty"`
	TestName   string `json:"testName,omitempty"`
	Style      string `json:"style,omitempty"` // testing or testify

	Naming       string            `json:"naming,omitempty"` // none, export or llcppg
	TrimPrefixes []string          `json:"trimPrefixes,omitempty"`
	TypeMap      map[string]string `json:"typeMap,omitempty"`

	Manifest string `json:"manifest,omitempty"` // manifest file, the built-in Z80 manifest when empty

	Include  []string `json:"include,omitempty"`
	CFlags   string   `json:"cflags,omitempty"`
	Preamble []string `json:"preamble,omitempty"`

	// headers scanned by the drift report, the include entries when empty;
	// their #include directives are followed through the -I dirs of cflags
	Headers       []string `json:"headers,omitempty"`
	TrackPrefixes []string `json:"trackPrefixes,omitempty"`
}

// NewDefault returns the configuration of the Z80 core binding.
func NewDefault() *Config {
	return &Config{
		Name:       "z80",
		BindingDir: ".",
		NativeName: "abi",
		TestName:   "TestABI",
		Style:      "testing",
		Naming:     "export",
		Include:    []string{"Z80.h"},
		Preamble: []string{
			"#define zint16 ZInt16",
			"#define zint32 ZInt32",
			"typedef void *zcontext;",
		},
		TrackPrefixes: []string{"Z80_"},
	}
}

// GetConfFromFile reads cfgFile over the defaults. A missing file is
// returned as is so callers can fall back to NewDefault.
func GetConfFromFile(cfgFile string) (*Config, error) {
	data, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, err
	}
	return GetConfByByte(data, cfgFile)
}

func GetConfByByte(data []byte, name string) (*Config, error) {
	conf := NewDefault()
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, name, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, name, err)
	}
	return conf, nil
}

func (c *Config) Validate() error {
	if !token.IsIdentifier(c.Name) {
		return fmt.Errorf("name %q is not a Go package name", c.Name)
	}
	if c.NativeName != "" && !token.IsIdentifier(c.NativeName) {
		return fmt.Errorf("nativeName %q is not a Go package name", c.NativeName)
	}
	if c.TestName != "" && !token.IsIdentifier(c.TestName) {
		return fmt.Errorf("testName %q is not a Go identifier", c.TestName)
	}
	switch c.Style {
	case "", "testing", "testify":
	default:
		return fmt.Errorf("unknown style %q", c.Style)
	}
	if _, err := names.ParseMode(c.Naming); err != nil {
		return err
	}
	return nil
}

// ExpandEnv expands $(pkg-config ...) style substitutions in the fields
// handed to the C toolchain.
func (c *Config) ExpandEnv() {
	c.CFlags = env.ExpandEnv(c.CFlags)
	for i, inc := range c.Include {
		c.Include[i] = env.ExpandEnv(inc)
	}
	for i, header := range c.Headers {
		c.Headers[i] = env.ExpandEnv(header)
	}
}

func (c *Config) Mapper() *names.Mapper {
	mode, _ := names.ParseMode(c.Naming)
	return &names.Mapper{
		Mode:         mode,
		TrimPrefixes: c.TrimPrefixes,
		TypeMap:      c.TypeMap,
	}
}
