package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/syssam/tabula/compiler"
	"github.com/syssam/tabula/schema/load"
)

func genCmd() *cobra.Command {
	var target, header string
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate per-entity metadata packages from the schema directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fsys := afero.NewOsFs()
			schemas, err := load.LoadDir(fsys, viper.GetString("schema.dir"))
			if err != nil {
				return err
			}
			if err := compiler.Generate(cmd.Context(), compiler.Config{
				Fs:     fsys,
				Target: target,
				Header: header,
			}, schemas...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d package(s) in %s\n", len(schemas), target)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "gen", "output directory for generated packages")
	cmd.Flags().StringVar(&header, "header", "", "extra header comment for generated files")
	return cmd
}
