package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/schema/load"
	"github.com/syssam/tabula/server"
)

// buildManager opens the configured database, loads the schema
// directory and registers everything on a fresh manager.
func buildManager() (*tabula.EntityManager, error) {
	drv, err := sql.Open(viper.GetString("database.driver"), viper.GetString("database.dsn"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	var driver dialect.Driver = drv
	if viper.GetBool("database.debug") {
		driver = sql.NewDebugDriver(drv, slog.Default())
	} else if slow := viper.GetDuration("database.slow_query_threshold"); slow > 0 {
		driver = sql.NewStatsDriver(drv, sql.WithSlowQueryThreshold(slow))
	}
	opts := []tabula.ManagerOption{tabula.WithLogger(slog.Default())}
	if ttl := viper.GetDuration("cache.ttl"); ttl > 0 {
		opts = append(opts, tabula.WithCache(tabula.NewMemoryCache(ttl)))
	}
	m := tabula.NewEntityManager(driver, opts...)
	schemas, err := load.LoadDir(afero.NewOsFs(), viper.GetString("schema.dir"))
	if err != nil {
		return nil, err
	}
	if err := load.Apply(m, schemas...); err != nil {
		return nil, err
	}
	slog.Info("schema loaded", "dir", viper.GetString("schema.dir"), "entities", len(schemas))
	return m, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and serve the REST API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := buildManager()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := autoMigrate(ctx, m); err != nil {
				return err
			}
			srv := server.New(m, server.WithLogger(slog.Default()))
			return srv.Run(ctx, viper.GetString("server.addr"))
		},
	}
}

func autoMigrate(ctx context.Context, m *tabula.EntityManager) error {
	start := time.Now()
	if err := m.CreateSchema(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	slog.Info("schema migrated", "duration", time.Since(start))
	return nil
}
