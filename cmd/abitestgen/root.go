package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/goplus/abitestgen/config"
	"github.com/goplus/abitestgen/internal/emit"
	"github.com/goplus/abitestgen/manifest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type app struct {
	cfgFile      string
	manifestFile string
	verbose      bool
	logger       *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "abitestgen",
		Short: "Generate ABI conformance tests for a Go binding of a C library",
		Long: `abitestgen compiles a manifest of native types and constants into a Go
test that compares every size and value seen through the binding with the
one computed by the C compiler.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				return nil
			}
			conf := zap.NewDevelopmentConfig()
			conf.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if a.verbose {
				conf.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := conf.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "cfg", config.ABITESTGEN_CFG, "Config file, the built-in Z80 defaults when the default file is absent")
	root.PersistentFlags().StringVar(&a.manifestFile, "manifest", "", "Manifest file (- for stdin), overrides the config")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(a.genCmd())
	root.AddCommand(a.godefsCmd())
	root.AddCommand(a.checkCmd())
	root.AddCommand(a.watchCmd())
	root.AddCommand(a.manifestCmd())
	return root
}

// requireOutput accepts exactly one output file and prints the usage to
// stdout otherwise.
func requireOutput(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
	return fmt.Errorf("%s: expected exactly one <output-file>, got %d arguments", cmd.Name(), len(args))
}

func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	conf, err := config.GetConfFromFile(a.cfgFile)
	switch {
	case err == nil:
		resolvePaths(conf, filepath.Dir(a.cfgFile))
	case os.IsNotExist(err) && !cmd.Flag("cfg").Changed:
		a.logger.Debug("no config file, using defaults", zap.String("cfg", a.cfgFile))
		conf = config.NewDefault()
	default:
		return nil, err
	}
	if a.manifestFile != "" {
		conf.Manifest = a.manifestFile
	}
	conf.ExpandEnv()
	a.logger.Debug("config loaded", zap.Any("config", conf))
	return conf, nil
}

// paths in a config file are relative to the file
func resolvePaths(conf *config.Config, dir string) {
	rel := func(p string) string {
		if p == "" || p == "-" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	conf.Manifest = rel(conf.Manifest)
	for i, header := range conf.Headers {
		conf.Headers[i] = rel(header)
	}
	conf.BindingDir = rel(conf.BindingDir)
}

func (a *app) loadManifest(conf *config.Config) (*manifest.Manifest, error) {
	if conf.Manifest == "" {
		return manifest.Z80(), nil
	}
	data, err := config.ReadManifestFile(conf.Manifest)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", conf.Manifest, err)
	}
	a.logger.Debug("manifest loaded", zap.String("file", conf.Manifest),
		zap.Int("types", m.Count(manifest.Type)), zap.Int("consts", m.Count(manifest.Constant)))
	return m, nil
}

// prepare loads the manifest and the emitter config of a conformance test
// and rejects binding names the test package could not refer to.
func (a *app) prepare(conf *config.Config) (*manifest.Manifest, *emit.Config, error) {
	m, err := a.loadManifest(conf)
	if err != nil {
		return nil, nil, err
	}
	econf, err := a.emitConfig(conf)
	if err != nil {
		return nil, nil, err
	}
	if err := emit.CheckExported(m, econf.Names); err != nil {
		return nil, nil, fmt.Errorf("naming %q: %w", conf.Naming, err)
	}
	return m, econf, nil
}

func (a *app) godefsConfig(conf *config.Config) *emit.Config {
	return &emit.Config{
		PkgName:    conf.Name,
		TestName:   conf.TestName,
		Style:      emit.Style(conf.Style),
		Names:      conf.Mapper(),
		NativeName: conf.NativeName,
		CFlags:     conf.CFlags,
		Include:    conf.Include,
		Preamble:   conf.Preamble,
		Logger:     a.logger,
	}
}

// emitConfig also resolves the import paths of the binding and of the
// native package.
func (a *app) emitConfig(conf *config.Config) (*emit.Config, error) {
	ret := a.godefsConfig(conf)
	ret.Binding = conf.Binding
	if ret.Binding == "" {
		binding, err := config.ImportPath(conf.BindingDir)
		if err != nil {
			return nil, err
		}
		ret.Binding = binding
	}
	ret.Native = conf.Native
	if ret.Native == "" {
		ret.Native = path.Join(ret.Binding, conf.NativeName)
	}
	return ret, nil
}
