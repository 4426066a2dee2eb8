package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/msalah0e/kgx/internal/config"
	"github.com/msalah0e/kgx/internal/logger"
	"github.com/msalah0e/kgx/internal/telemetry"
	"github.com/msalah0e/kgx/internal/ui"
)

var version = "0.3.0"

var (
	cfg        *config.Config
	log        *logger.Logger
	shutdownFn telemetry.Shutdown

	configPath  string
	backendURL  string
	sourceFlag  string
	logLevel    string
	verboseMode bool
)

var rootCmd = &cobra.Command{
	Use:   "kgx",
	Short: "kgx — explore a knowledge graph from the terminal",
	Long: ui.Brand.Sprint(ui.Glyph+" kgx") + " — query a knowledge graph and expand it node by node\n" +
		ui.Subtle.Sprint("Ask in plain language, click through associations, view the layout in a browser"),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

func init() {
	rootCmd.SetVersionTemplate("kgx {{ .Version }}\n")
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/kgx/config.toml)")
	pf.StringVar(&backendURL, "backend", "", "Backend base URL (overrides config)")
	pf.StringVar(&sourceFlag, "source", "", "Graph source: backend or neo4j (overrides config)")
	pf.StringVar(&logLevel, "log-level", "", "Diagnostic log level: debug, info, warn, error")
	pf.BoolVarP(&verboseMode, "verbose", "v", false, "Shorthand for --log-level debug")

	rootCmd.AddCommand(
		chatCmd(),
		askCmd(),
		queryCmd(),
		expandCmd(),
		uploadCmd(),
		exploreCmd(),
		viewCmd(),
		configCmd(),
		historyCmd(),
		pageCmd(),
		experimentCmd(),
		cacheCmd(),
		healthCmd(),
		completionCmd(),
	)
}

// setup loads configuration and builds the shared logger and tracer.
func setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if configPath != "" {
		c, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		cfg = c
	} else {
		cfg = config.Load()
	}
	if backendURL != "" {
		cfg.Backend.URL = backendURL
	}
	if sourceFlag != "" {
		cfg.Backend.Source = sourceFlag
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if verboseMode {
		cfg.Log.Level = "debug"
	}
	ui.Configure(cfg.UI.Emoji, cfg.UI.Color)

	l, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	log = l

	shutdownFn, err = telemetry.Init(ctx, log, cfg.TelemetrySettings(version))
	if err != nil {
		log.Warn("tracing disabled", "error", err)
	}
	return nil
}

func teardown() {
	if shutdownFn != nil {
		if err := shutdownFn(context.Background()); err != nil {
			log.Warn("flushing traces failed", "error", err)
		}
		shutdownFn = nil
	}
	if log != nil {
		log.Sync()
	}
}

// fail prints a user-facing error and exits.
func fail(format string, args ...any) {
	ui.Bad.Printf("  "+format+"\n", args...)
	teardown()
	os.Exit(1)
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		ui.Bad.Fprintf(os.Stderr, "kgx: %v\n", err)
	}
	return err
}
