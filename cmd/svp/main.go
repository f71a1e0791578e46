package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/welldanyogia/svp-backend/internal/config"
	"github.com/welldanyogia/svp-backend/internal/database"
	"github.com/welldanyogia/svp-backend/internal/logger"
	"gorm.io/gorm"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "svp",
		Short:         "SVP collections back office",
		Long:          "Correlates inbound e-mail with collection threads and serves the operator API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "optional YAML config file (defaults to $"+config.ConfigFileEnv+")")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newMigrateCmd(&configPath))
	cmd.AddCommand(newSweepCmd(&configPath))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "svp %s (commit: %s)\n", Version, Commit)
		},
	}
}

// bootstrap loads configuration, installs the default logger and opens the database
func bootstrap(configPath string) (*config.Config, *slog.Logger, *gorm.DB, error) {
	cfg, err := config.LoadWithValidation(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	db, err := database.Connect(database.Options{
		URL:        cfg.DatabaseURL,
		Production: cfg.IsProduction(),
		Debug:      cfg.LogLevel == "debug",
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
