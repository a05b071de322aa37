package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/goplus/abitestgen/internal/emit"
	"github.com/goplus/abitestgen/manifest"
	"github.com/spf13/cobra"
)

func (a *app) genCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "gen <output-file>",
		Short: "Write the conformance test",
		Args:  requireOutput,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFile := args[0]
			conf, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			m, econf, err := a.prepare(conf)
			if err != nil {
				return err
			}
			if check {
				return checkUpToDate(outFile, m, econf)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Writing", outFile)
			return emit.Generate(outFile, m, econf)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Fail if the output file differs from a fresh render, write nothing")
	return cmd
}

func checkUpToDate(outFile string, m *manifest.Manifest, conf *emit.Config) error {
	want, err := emit.Bytes(m, conf)
	if err != nil {
		return err
	}
	got, err := os.ReadFile(outFile)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("%s is out of date, run abitestgen gen %s", outFile, outFile)
	}
	return nil
}

func (a *app) godefsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "godefs <output-file>",
		Short: "Write the cgo -godefs input of the native package",
		Long: `godefs writes the input of

	go tool cgo -godefs <output-file>

whose output is the native package the conformance test compares against.`,
		Args: requireOutput,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFile := args[0]
			conf, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			m, err := a.loadManifest(conf)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Writing", outFile)
			return emit.GenerateGodefs(outFile, m, a.godefsConfig(conf))
		},
	}
}
