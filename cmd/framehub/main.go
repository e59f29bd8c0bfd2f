// FrameHub Core - home hub mirror and control service.
//
// This is the main entry point. FrameHub mirrors the accessories of a
// home-automation hub, groups them into categories and rooms, and serves
// a small HTTP API that reads the mirror and sends commands back to the
// hub.
//
//	framehub serve --config /etc/framehub/config.yaml
//	framehub version
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/framehub-core/internal/infrastructure/config"
	"github.com/nerrad567/framehub-core/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// defaultConfigPath is read when it exists and neither --config nor
// FRAMEHUB_CONFIG is set.
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. The root command runs serve.
func newRootCmd() *cobra.Command {
	var configPath string

	serve := func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), getConfigPath(configPath))
	}

	root := &cobra.Command{
		Use:           "framehub",
		Short:         "Mirror and control a home-automation hub",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default $FRAMEHUB_CONFIG, then "+defaultConfigPath+" if present)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the hub mirror and HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "framehub %s (commit %s, built %s)\n", version, commit, date)
		},
	})

	return root
}

// run loads configuration, builds the application and serves until ctx is
// cancelled.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: YAML file to load, or "" for defaults and environment only
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting FrameHub Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "hub_backend", cfg.Hub.Backend)

	log = logging.New(cfg.Logging, version)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.run(ctx)
}

// getConfigPath returns the configuration file path: the --config flag,
// then FRAMEHUB_CONFIG, then defaultConfigPath when that file exists.
// An empty result loads defaults and environment overrides only.
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("FRAMEHUB_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return defaultConfigPath
}
