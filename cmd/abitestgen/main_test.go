package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goplus/abitestgen/config"
	"github.com/goplus/abitestgen/internal/emit"
	"github.com/goplus/abitestgen/manifest"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("os/signal.loop"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{logger: zap.NewNop()}
	cmd := a.rootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func writeFile(t *testing.T, file, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
}

const z80Cfg = `{
  "name": "z80",
  "binding": "example.com/z80",
  "native": "example.com/z80/internal/abi"
}`

func TestGenMissingOutput(t *testing.T) {
	out, err := execute(t, "gen")
	require.Error(t, err)
	require.Contains(t, out, "Usage:")
	require.Contains(t, out, "gen <output-file>")
}

func TestGen(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "abitestgen.cfg")
	writeFile(t, cfg, z80Cfg)
	outFile := filepath.Join(dir, "abi_test.go")

	out, err := execute(t, "gen", "--cfg", cfg, outFile)
	require.NoError(t, err)
	require.Equal(t, "Writing "+outFile+"\n", out)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	got := string(data)
	require.True(t, strings.HasPrefix(got, "// Code generated by abitestgen; DO NOT EDIT.\n"))
	require.Contains(t, got, "package z80_test\n")
	require.Contains(t, got, "\tnative \"example.com/z80/internal/abi\"\n")
	require.Contains(t, got, "\tsut \"example.com/z80\"\n")
	require.Equal(t, 39, strings.Count(got, "\texpectABI(t, "))

	// --check passes on a fresh file and fails without writing on a stale one
	_, err = execute(t, "gen", "--cfg", cfg, "--check", outFile)
	require.NoError(t, err)

	writeFile(t, outFile, "stale")
	_, err = execute(t, "gen", "--cfg", cfg, "--check", outFile)
	require.ErrorContains(t, err, "out of date")
	data, err = os.ReadFile(outFile)
	require.NoError(t, err)
	require.Equal(t, "stale", string(data))
}

func TestGenBindingFromGoMod(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), "module example.com/z80\n\ngo 1.23\n")
	cfg := filepath.Join(dir, "abitestgen.cfg")
	writeFile(t, cfg, "name: z80\nstyle: testify\n")
	outFile := filepath.Join(dir, "abi_test.go")

	_, err := execute(t, "gen", "--cfg", cfg, outFile)
	require.NoError(t, err)
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "\tnative \"example.com/z80/abi\"\n")
	require.Contains(t, string(data), "\tsut \"example.com/z80\"\n")
	require.Contains(t, string(data), "assert.Equalf(t, want, got, \"%s\", what)")
}

func TestGenManifestFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "abitestgen.cfg")
	writeFile(t, cfg, z80Cfg)
	abi := filepath.Join(dir, "abi.yaml")
	writeFile(t, abi, "sections:\n  - header: Z80.h\n    symbols:\n      - const: Z80_SF\n")
	outFile := filepath.Join(dir, "abi_test.go")

	_, err := execute(t, "gen", "--cfg", cfg, "--manifest", abi, outFile)
	require.NoError(t, err)
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "\t// Z80.h\n\texpectABI(t, \"Z80_SF\", sut.Z80_SF, native.Z80_SF)\n}\n")
	require.NotContains(t, string(data), "unsafe")

	writeFile(t, abi, "sections:\n  - symbols:\n      - const: Z80_SF\n      - const: Z80_SF\n")
	_, err = execute(t, "gen", "--cfg", cfg, "--manifest", abi, outFile)
	require.ErrorContains(t, err, "duplicate symbol Z80_SF")
}

func TestGenConfigErrors(t *testing.T) {
	dir := t.TempDir()
	outFile := filepath.Join(dir, "abi_test.go")

	_, err := execute(t, "gen", "--cfg", filepath.Join(dir, "missing.cfg"), outFile)
	require.True(t, os.IsNotExist(err), "got %v", err)

	cfg := filepath.Join(dir, "abitestgen.cfg")
	writeFile(t, cfg, z80Cfg)
	_, err = execute(t, "gen", "--cfg", cfg, filepath.Join(dir, "missing", "abi_test.go"))
	require.True(t, errors.Is(err, emit.ErrPathUnwritable), "got %v", err)
	_, err = os.Stat(outFile)
	require.True(t, os.IsNotExist(err))
}

func TestGodefs(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "abitestgen.cfg")
	writeFile(t, cfg, `{"name": "z80", "cflags": "-I/opt/z80/include"}`)
	outFile := filepath.Join(dir, "abi.go")

	out, err := execute(t, "godefs", "--cfg", cfg, outFile)
	require.NoError(t, err)
	require.Equal(t, "Writing "+outFile+"\n", out)
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	got := string(data)
	require.Contains(t, got, "//go:build ignore\n")
	require.Contains(t, got, "package abi\n")
	require.Contains(t, got, "#cgo CFLAGS: -I/opt/z80/include\n")
	require.Contains(t, got, "#include <Z80.h>\n")
	require.Equal(t, 39, strings.Count(got, "= C."))
}

const checkHeader = `#define Z80_SF 128
#define Z80_ZF 64
typedef unsigned char zuint8;
`

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Z80.h"), checkHeader)
	writeFile(t, filepath.Join(dir, "z80.go"), "package z80\n\ntype Zuint8 = uint8\n\nconst Z80_SF = 128\n")
	writeFile(t, filepath.Join(dir, "abi.yaml"),
		"sections:\n  - symbols:\n      - type: zuint8\n        go: Zuint8\n      - const: Z80_SF\n")
	cfg := filepath.Join(dir, "abitestgen.cfg")
	writeFile(t, cfg, "name: z80\nmanifest: abi.yaml\nheaders: [Z80.h]\ntrackPrefixes: [Z80_]\n")

	out, err := execute(t, "check", "--cfg", cfg)
	require.ErrorIs(t, err, errDrift)
	require.Equal(t, "untracked: const Z80_ZF\n", out)

	writeFile(t, filepath.Join(dir, "Z80.h"), "#define Z80_SF 128\ntypedef unsigned char zuint8;\n")
	out, err = execute(t, "check", "--cfg", cfg)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestCheckNoHeader(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "abitestgen.cfg")
	writeFile(t, cfg, `{"name": "z80", "include": []}`)
	_, err := execute(t, "check", "--cfg", cfg)
	require.ErrorContains(t, err, "no headers configured")

	writeFile(t, cfg, `{"name": "z80", "headers": ["Z80.h"]}`)
	_, err = execute(t, "check", "--cfg", cfg)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// The built-in manifest against a header that takes its integral types
// from an included file and the config preamble, and a binding declaring
// every name the default naming produces.
func TestCheckZ80Defaults(t *testing.T) {
	dir := t.TempDir()
	zeta := filepath.Join(dir, "zeta")
	require.NoError(t, os.MkdirAll(filepath.Join(zeta, "Z", "types"), 0755))
	writeFile(t, filepath.Join(zeta, "Z", "types", "integral.h"), `#include <stddef.h>
typedef size_t zusize;
typedef unsigned char zuint8;
typedef unsigned short zuint16;
typedef unsigned int zuint32;
typedef short ZInt16;
typedef int ZInt32;
typedef unsigned char zboolean;
`)

	mapper := config.NewDefault().Mapper()
	var header, binding strings.Builder
	header.WriteString("#include <Z/types/integral.h>\n")
	binding.WriteString("package z80\n\n")
	for _, sym := range manifest.Z80().Symbols() {
		switch sym.Kind {
		case manifest.Type:
			binding.WriteString("type " + mapper.GoName(sym) + " uintptr\n")
		case manifest.Constant:
			header.WriteString("#define " + sym.Name + " 1\n")
			binding.WriteString("const " + mapper.GoName(sym) + " = 1\n")
		}
	}
	header.WriteString("typedef struct { zuint16 pc; } Z80;\n")
	writeFile(t, filepath.Join(dir, "Z80.h"), header.String())
	writeFile(t, filepath.Join(dir, "z80.go"), binding.String())
	cfg := filepath.Join(dir, "abitestgen.cfg")
	writeFile(t, cfg, `{"name": "z80", "cflags": "-I`+dir+` -I`+zeta+`"}`)

	out, err := execute(t, "check", "--cfg", cfg)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestGenRejectsUnexportedNames(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "abitestgen.cfg")
	writeFile(t, cfg, `{"name": "z80", "binding": "example.com/z80", "native": "example.com/z80/abi", "naming": "none"}`)
	outFile := filepath.Join(dir, "abi_test.go")

	_, err := execute(t, "gen", "--cfg", cfg, outFile)
	require.ErrorIs(t, err, emit.ErrUnexported)
	require.ErrorContains(t, err, "zusize")
	_, err = os.Stat(outFile)
	require.True(t, os.IsNotExist(err))
}

func TestManifestCmd(t *testing.T) {
	// an explicit config file must exist
	_, err := execute(t, "manifest", "--cfg", filepath.Join(t.TempDir(), "abitestgen.cfg"))
	require.Error(t, err)

	dir := t.TempDir()
	cfg := filepath.Join(dir, "abitestgen.cfg")
	writeFile(t, cfg, z80Cfg)
	out, err := execute(t, "manifest", "--cfg", cfg)
	require.NoError(t, err)
	m, err := manifest.Parse([]byte(out))
	require.NoError(t, err)
	require.Equal(t, manifest.Z80().Symbols(), m.Symbols())
}

func TestShouldRegenerate(t *testing.T) {
	dir := t.TempDir()
	abi := filepath.Join(dir, "abi.yaml")
	watched := watchSet(abi, "", "-")
	require.Len(t, watched, 1)

	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: abi, Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: abi, Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: abi, Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: abi, Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: abi, Op: fsnotify.Remove}, false},
		{fsnotify.Event{Name: filepath.Join(dir, "abi_test.go"), Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, shouldRegenerate(tt.event, watched), "%v", tt.event)
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "abitestgen.cfg")
	writeFile(t, cfg, `{"name": "z80", "binding": "example.com/z80", "native": "example.com/z80/abi", "manifest": "abi.yaml"}`)
	abi := filepath.Join(dir, "abi.yaml")
	writeFile(t, abi, "sections:\n  - symbols:\n      - const: Z80_SF\n")
	outFile := filepath.Join(dir, "abi_test.go")

	a := &app{logger: zap.NewNop()}
	cmd := a.rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"watch", "--cfg", cfg, outFile})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() {
		errc <- cmd.ExecuteContext(ctx)
	}()

	waitFor := func(cond func(string) bool, touch func()) {
		t.Helper()
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			if data, err := os.ReadFile(outFile); err == nil && cond(string(data)) {
				return
			}
			if touch != nil {
				touch()
			}
			time.Sleep(50 * time.Millisecond)
		}
		t.Fatal("timeout waiting for regeneration")
	}
	waitFor(func(s string) bool { return strings.Contains(s, "sut.Z80_SF") }, nil)

	waitFor(func(s string) bool { return strings.Contains(s, "sut.Z80_ZF") }, func() {
		writeFile(t, abi, "sections:\n  - symbols:\n      - const: Z80_ZF\n")
	})

	cancel()
	require.NoError(t, <-errc)
}
