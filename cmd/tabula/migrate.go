package main

import (
	"fmt"

	atlasmigrate "ariga.io/atlas/sql/migrate"
	"github.com/spf13/cobra"

	"github.com/syssam/tabula/dialect/sql/schema"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(migrateApplyCmd(), migrateDiffCmd(), migrateStatusCmd())
	return cmd
}

func migrateApplyCmd() *cobra.Command {
	var dropColumns, dropIndexes bool
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the pending schema changes to the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := buildManager()
			if err != nil {
				return err
			}
			return m.CreateSchema(cmd.Context(),
				schema.WithDropColumn(dropColumns),
				schema.WithDropIndex(dropIndexes),
			)
		},
	}
	cmd.Flags().BoolVar(&dropColumns, "drop-columns", false, "drop columns removed from the schema")
	cmd.Flags().BoolVar(&dropIndexes, "drop-indexes", false, "drop indexes removed from the schema")
	return cmd
}

func migrateDiffCmd() *cobra.Command {
	var toDir, name string
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Write the pending schema changes as versioned migration files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := buildManager()
			if err != nil {
				return err
			}
			dir, err := atlasmigrate.NewLocalDir(toDir)
			if err != nil {
				return fmt.Errorf("open migration directory %s: %w", toDir, err)
			}
			return m.DiffSchema(cmd.Context(), name, schema.WithDir(dir))
		},
	}
	cmd.Flags().StringVar(&toDir, "to-dir", "migrations", "migration directory to write plan files into")
	cmd.Flags().StringVar(&name, "name", "changes", "name of the migration")
	return cmd
}

func migrateStatusCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Validate the migration directory and list its files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			local, err := atlasmigrate.NewLocalDir(dir)
			if err != nil {
				return fmt.Errorf("open migration directory %s: %w", dir, err)
			}
			if err := atlasmigrate.Validate(local); err != nil {
				return fmt.Errorf("migration directory %s is out of sync: %w", dir, err)
			}
			files, err := local.Files()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d migration file(s)\n", dir, len(files))
			for _, f := range files {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", f.Name())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "migration directory to inspect")
	return cmd
}
