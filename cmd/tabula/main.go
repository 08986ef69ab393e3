// Command tabula serves and maintains a declarative entity store: it
// loads entity config files, migrates the database schema and exposes
// the generic REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	// Database drivers selectable through database.driver.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// version is set by the build.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tabula",
		Short:         "Schema-driven data service",
		Long:          "tabula turns declarative entity definitions into a migrated database schema and a generic REST API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd)
		},
	}
	root.PersistentFlags().String("config", "", "config file (default tabula.yaml in the working directory)")
	root.AddCommand(serveCmd(), migrateCmd(), genCmd(), versionCmd())
	return root
}

// initConfig wires viper: config file, TABULA_* environment overrides
// and the defaults.
func initConfig(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("tabula")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("TABULA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "file:tabula.db?_pragma=foreign_keys(1)")
	viper.SetDefault("database.debug", false)
	viper.SetDefault("database.slow_query_threshold", "250ms")
	viper.SetDefault("schema.dir", "schemas")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("cache.ttl", "0s")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tabula", version)
		},
	}
}
