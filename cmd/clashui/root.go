// Package main provides the CLI entrypoint for clashui.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/clashui/internal/adapter/output"
	"github.com/jmylchreest/clashui/internal/config"
	"github.com/jmylchreest/clashui/internal/gateway"
	"github.com/jmylchreest/clashui/internal/repl"
	"github.com/jmylchreest/clashui/internal/session"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose     bool
		configPath  string
		writeConfig bool
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "clashui",
	Short: "Interactive client for the Clash controller API",
	Long: `clashui is an interactive command-line client for a running Clash daemon.

It connects to the daemon's external controller, loads the proxy list and
opens a prompt for inspecting selectors and switching their active proxy.
Type "h" at the prompt for the list of commands.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Debug("config loaded", "controller", cfg.Controller.URL, "format", cfg.Output.Format)
		return nil
	},
	RunE: runClient,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/clashui/config.toml)")
	rootCmd.Flags().BoolVar(&globalOpts.writeConfig, "write-config", false,
		"Write the effective configuration to the config file and exit")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func runClient(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if globalOpts.writeConfig {
		return writeConfig(cfg, globalOpts.configPath, out)
	}

	a, err := startApp(ctx, cfg, out, logger)
	if err != nil {
		return err
	}

	reg := a.registry()
	reg.WriteHelp(out)

	reader, err := newLineReader(cfg, reg.Names(), out)
	if err != nil {
		return fmt.Errorf("failed to open prompt: %w", err)
	}
	defer reader.Close()

	return repl.NewDispatcher(reg, out, logger).Run(ctx, reader)
}

// startApp connects to the controller, loads the first proxy snapshot and
// prints the version banner.
func startApp(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) (*app, error) {
	client := gateway.NewClient(nil, cfg.Controller.URL, cfg.Controller.Secret)
	client.SetDelayTest(cfg.Delay.URL, cfg.Delay.Timeout.Milliseconds())
	client.SetLogger(logger)

	// Reported as "clash API is not available: <reason>"
	if err := client.CheckAvailable(ctx); err != nil {
		return nil, err
	}

	opts := output.DefaultFormatterOptions()
	opts.Color = cfg.Output.Color
	formatter := output.NewFormatter(cfg.FormatType(), opts)

	sess := session.New(client, formatter, logger)
	if err := sess.Refresh(ctx); err != nil {
		return nil, err
	}

	v, err := client.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get clash version: %w", err)
	}
	fmt.Fprintf(out, "Clash Version: %s\n", v.Version)
	fmt.Fprintf(out, "Client Version: %s\n", version)

	return &app{
		client:    client,
		session:   sess,
		formatter: formatter,
		out:       out,
	}, nil
}

// writeConfig saves cfg to path, or the default config path when empty.
func writeConfig(cfg *config.Config, path string, out io.Writer) error {
	if path == "" {
		path = config.ConfigPath()
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(out, "Wrote config to %s\n", path)
	return nil
}

// newLineReader opens an interactive editor on a terminal and falls back to
// plain line reading when stdin is piped.
func newLineReader(cfg *config.Config, names []string, out io.Writer) (repl.LineReader, error) {
	if !readline.DefaultIsTerminal() {
		return pipedReader(cfg, os.Stdin, out), nil
	}

	historyFile := cfg.HistoryFile()
	var err error
	if cfg.REPL.HistoryFile == "" {
		err = config.EnsureDataDir()
	} else {
		err = os.MkdirAll(filepath.Dir(historyFile), 0755)
	}
	if err != nil {
		logger.Warn("prompt history disabled", "error", err)
		historyFile = ""
	}

	return repl.NewReadline(cfg.REPL.Prompt, historyFile, names)
}

// pipedReader reads commands from a non-terminal, still showing the prompt.
func pipedReader(cfg *config.Config, in io.Reader, out io.Writer) repl.LineReader {
	return repl.NewScannerReader(in, cfg.REPL.Prompt, out)
}
