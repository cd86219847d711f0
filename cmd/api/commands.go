package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"canary/internal/config"
	"canary/internal/database"
	"canary/internal/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func newRootCommand(out io.Writer, build buildInfo) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "canary",
		Short:         "Items CRUD service over SQLite",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, build)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default $CONFIG_PATH or configs/config.yaml)")

	cmd.AddCommand(newServeCommand(&configPath, build))
	cmd.AddCommand(newSchemaCommand(&configPath, out))
	cmd.AddCommand(newBackupCommand(&configPath, out))
	cmd.AddCommand(newVersionCommand(out, build))
	return cmd
}

func newServeCommand(configPath *string, build buildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath, build)
		},
	}
}

func newSchemaCommand(configPath *string, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the items table if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closer, err := loadConfigAndLogger(*configPath, "schema")
			if err != nil {
				return err
			}
			defer closeQuietly(closer)

			db, err := database.NewDB(cfg.Database.Path, &logger)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			_, err = fmt.Fprintf(out, "schema ready at %s\n", db.Path())
			return err
		},
	}
}

func newBackupCommand(configPath *string, out io.Writer) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Take a single database snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closer, err := loadConfigAndLogger(*configPath, "backup")
			if err != nil {
				return err
			}
			defer closeQuietly(closer)

			backupCfg := cfg.Backup
			if dir != "" {
				backupCfg.StoragePath = dir
			}
			if backupCfg.StoragePath == "" {
				return errors.New("backup directory is required: set backup.storage_path or --dir")
			}

			path, err := database.NewBackupService(cfg.Database.Path, backupCfg, &logger).PerformBackup(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, path)
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "backup directory, overrides backup.storage_path")
	return cmd
}

func newVersionCommand(out io.Writer, build buildInfo) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(build)
			}

			_, err := fmt.Fprintf(out, "version=%s commit=%s build_time=%s\n", build.Version, build.Commit, build.BuildTime)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version as JSON")
	return cmd
}

func loadConfigAndLogger(configPath, component string) (*config.Config, zerolog.Logger, io.Closer, error) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", component).Logger()

	return cfg, logger, closer, nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
