// Package cli provides the command-line interface for contextuse.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/contextuse-go/internal/config"
	"github.com/raphaelgruber/contextuse-go/internal/storage"
	"github.com/raphaelgruber/contextuse-go/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	cfgFile string
	verbose bool

	// Global config and backends, wired in PersistentPreRunE
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	st         store.Store
	blobs      storage.Backend
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "contextuse",
	Short: "Personal data archive ingestion",
	Long: `Contextuse ingests personal data exports (ChatGPT conversations,
Instagram activity) and normalizes them into a uniform, content-addressed
record stream backed by a relational store and a blob store.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip backend wiring for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if cfgFile != "" {
			if err := cfg.MergeFile(cfgFile); err != nil {
				return err
			}
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)

		ctx := context.Background()
		var err error
		st, err = openStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect to store: %w", err)
		}
		if err := st.Init(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		blobs, err = openStorage(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open blob storage: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			if err := st.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		return store.NewPostgres(ctx, cfg.PostgresDSN)
	default:
		return store.NewSQLite(cfg.SQLitePath)
	}
}

func openStorage(ctx context.Context, cfg config.Config) (storage.Backend, error) {
	switch cfg.Storage {
	case config.StorageGCS:
		return storage.NewGCS(ctx, cfg.GCSBucket)
	default:
		return storage.NewDisk(cfg.DataDir)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(archivesCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(initCmd)
}
