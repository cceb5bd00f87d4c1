package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/firstuse/dialogue/cmd/dialogue/internal/config"
	"github.com/firstuse/dialogue/pkg/kv"
	"github.com/firstuse/dialogue/pkg/progress"
)

var (
	// Global flags
	verbose   bool
	configDir string

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dialogue",
	Short: "Speaking practice from the command line",
	Long: `dialogue - daily speaking practice against a live voice partner.

The practice sequence alternates everyday sentences with dialogue/action
beats. Sentences are personalized to your profession by the generate
command; progress is kept locally and survives restarts.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/dialogue/
  Linux:   ~/.config/dialogue/
  Windows: %AppData%/dialogue/

Examples:
  # First session: create an identity and practice
  dialogue run --user amy --profession Engineer

  # Personalize the priority sentences
  dialogue generate Engineer

  # See what you have said out loud so far
  dialogue progress`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "override the configuration directory")
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	var (
		cfg *config.Config
		err error
	)
	if configDir != "" {
		cfg, err = config.LoadFrom(configDir)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		// Deferred: commands that need config get a clear error via
		// GetConfig(). Commands like 'dialogue version' still work.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// openStore opens the progress store over the badger database in the
// config directory. The caller must invoke the returned closer.
func openStore(cmd *cobra.Command) (*progress.Store, func(), error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(cfg.DatabaseDir(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := kv.NewBadger(kv.BadgerOptions{Dir: cfg.DatabaseDir()})
	if err != nil {
		return nil, nil, fmt.Errorf("open progress database: %w", err)
	}
	store := progress.NewStore(db)
	store.Load(cmd.Context())
	return store, func() {
		if err := db.Close(); err != nil {
			slog.Warn("progress database close failed", "err", err)
		}
	}, nil
}
