package main

import (
	"errors"

	"github.com/goplus/abitestgen/internal/drift"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errDrift = errors.New("manifest drifted from the header or the binding")

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report manifest entries missing from the header or the binding, and untracked header symbols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			headers := conf.Headers
			if len(headers) == 0 {
				headers = conf.Include
			}
			if len(headers) == 0 {
				return errors.New("check: no headers configured")
			}
			m, err := a.loadManifest(conf)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			header, err := drift.ScanHeaders(ctx, &drift.HeaderSet{
				Headers:     headers,
				IncludeDirs: drift.IncludeDirs(conf.CFlags),
				Preamble:    conf.Preamble,
			})
			if err != nil {
				return err
			}
			if len(header.Unresolved) > 0 {
				a.logger.Debug("includes not found", zap.Strings("includes", header.Unresolved))
			}
			binding, err := drift.ScanBindingDir(ctx, conf.BindingDir)
			if err != nil {
				return err
			}
			a.logger.Debug("scanned declarations",
				zap.Int("headerTypes", len(header.Types)), zap.Int("headerConsts", len(header.Consts)),
				zap.Int("bindingTypes", len(binding.Types)), zap.Int("bindingConsts", len(binding.Consts)))

			report := drift.Compare(m, header, binding, conf.Mapper(), conf.TrackPrefixes)
			if _, err := report.WriteTo(cmd.OutOrStdout()); err != nil {
				return err
			}
			if !report.Clean() {
				return errDrift
			}
			return nil
		},
	}
}
