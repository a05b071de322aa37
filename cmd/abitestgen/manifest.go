package main

import (
	"github.com/goplus/abitestgen/manifest"
	"github.com/spf13/cobra"
)

func (a *app) manifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Print the manifest in use as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			m, err := a.loadManifest(conf)
			if err != nil {
				return err
			}
			data, err := manifest.Marshal(m)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
