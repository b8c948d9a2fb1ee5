// Package main is the entry point for the telega-server CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/flemzord/telega-server/internal/bridge"
	"github.com/flemzord/telega-server/internal/config"
	"github.com/flemzord/telega-server/internal/core"
	_ "github.com/flemzord/telega-server/internal/cron"
	_ "github.com/flemzord/telega-server/internal/gateway"
	"github.com/flemzord/telega-server/internal/metrics"
	"github.com/flemzord/telega-server/internal/security"
	_ "github.com/flemzord/telega-server/internal/telemetry"
	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	json      bool
	plist     bool
	jsonc     bool
	logFile   string
	verbosity int
	config    string
	logLevel  string
}

func rootCmd() *cobra.Command {
	var f rootFlags
	root := &cobra.Command{
		Use:   "telega-server",
		Short: "Bridge between the telega Emacs client and TDLib",
		Long: `telega-server reads send frames from stdin, converts their plist payload
to JSON for TDLib, and writes TDLib updates back to stdout as event frames.

With -j or -p it converts a single document read from stdin and exits.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case f.json && f.plist:
				return errors.New("-j and -p are mutually exclusive")
			case f.json:
				return convert(modeJSON, f.jsonc, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			case f.plist:
				return convert(modePlist, false, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			}
			return serve(cmd, &f)
		},
	}

	flags := root.Flags()
	flags.BoolVarP(&f.json, "json", "j", false, "Parse JSON from stdin, print plist and exit")
	flags.BoolVarP(&f.plist, "plist", "p", false, "Parse plist from stdin, print JSON and exit")
	flags.BoolVar(&f.jsonc, "jsonc", false, "Accept comments and trailing commas in JSON input")
	flags.StringVarP(&f.logFile, "log-file", "l", "", "TDLib log file (default: stderr)")
	flags.IntVarP(&f.verbosity, "verbosity", "v", 5, "TDLib log verbosity level")
	flags.StringVarP(&f.config, "config", "c", "", "Path to configuration file")
	flags.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(versionCmd(), convertCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "telega-server %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range mods {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

// serve runs the bridge and every other configured module until stdin is
// closed or the process is signalled.
func serve(cmd *cobra.Command, f *rootFlags) error {
	cfg, err := loadConfig(f.config)
	if err != nil {
		return err
	}

	overrides := make(map[string]any)
	if cmd.Flags().Changed("verbosity") {
		overrides["tdlib_verbosity"] = f.verbosity
	}
	if f.logFile != "" {
		overrides["tdlib_log_file"] = f.logFile
	}
	if len(overrides) > 0 {
		if err := cfg.Override(bridgeModule(cfg), overrides); err != nil {
			return err
		}
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	redactor := security.NewRedactor()
	logger := newLogger(cmd.ErrOrStderr(), level, redactor)
	app, ids, err := newApp(cfg, logger, redactor, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	logger.Debug("modules loaded", "modules", ids)

	return app.Run(cmd.Context())
}

// newApp builds the application context shared by every module and loads
// the configured modules in resolution order.
func newApp(cfg *config.Config, logger *slog.Logger, redactor *security.Redactor, stdin io.Reader, stdout io.Writer) (*core.App, []string, error) {
	appCtx := core.NewAppContext(logger, stdin, stdout).WithModuleConfigs(cfg.Modules)
	appCtx.RegisterService(core.ServiceMetrics, metrics.New())
	appCtx.RegisterService(core.ServiceConfig, cfg)
	appCtx.RegisterService(core.ServiceRedactor, redactor)

	app := core.NewApp(appCtx)
	ids := config.Resolve(cfg)
	if err := app.LoadModules(ids); err != nil {
		return nil, nil, err
	}
	return app, ids, nil
}

// bridgeModule returns the configured bridge module ID, or bridge.stdio when
// none is configured yet.
func bridgeModule(cfg *config.Config) string {
	for id := range cfg.Modules {
		if core.ModuleID(id).Namespace() == "bridge" {
			return id
		}
	}
	return "bridge.stdio"
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if resolved, ok := resolveConfigPath(); ok {
		return config.Load(resolved)
	}
	return config.Default(), nil
}

// resolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/telega/telega-server.yaml, then
// ./telega-server.yaml.
func resolveConfigPath() (string, bool) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "telega", "telega-server.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "telega", "telega-server.yaml"))
	}

	candidates = append(candidates, "telega-server.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
