package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"visitcheck/internal/serviceutil"
	"visitcheck/internal/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath   *string
	debug        *bool
	outputDir    *string
	holidaysPath *string
	project      *int
	wave         *int
	workers      *int
)

// cfg is loaded before any subcommand runs.
var cfg Config
var otelState telemetry.Telemetry

var tel telemetry.API = telemetry.SlogAPI{}

func init() {
	flags := rootCmd.PersistentFlags()
	configPath = flags.String("config", "config.json5", "The config file, config.local.json5 next to it overrides it.")
	debug = flags.Bool("debug", false, "Log debug output.")
	outputDir = flags.String("output-dir", "", "The directory records and reports are written to.")
	holidaysPath = flags.String("holidays", "", "A file with one holiday date per line.")
	project = flags.Int("project", 0, "The portal project id.")
	wave = flags.Int("wave", 0, "The portal wave id.")
	workers = flags.Int("workers", 0, "The number of works crawled concurrently.")
}

var rootCmd = &cobra.Command{
	Use:   "visitcheck",
	Short: "visitcheck is a CLI for crawling survey visit records and checking them for fieldwork problems.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = readConfig(*configPath, !cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("debug") {
			cfg.Debug = *debug
		}
		if flags.Changed("output-dir") {
			cfg.OutputDir = *outputDir
		}
		if flags.Changed("holidays") {
			cfg.HolidaysPath = *holidaysPath
		}
		if flags.Changed("project") {
			cfg.Project = *project
		}
		if flags.Changed("wave") {
			cfg.Wave = *wave
		}
		if flags.Changed("workers") {
			cfg.Workers = *workers
		}

		telemetry.InitSlog(cfg.Debug)

		otelState, err = telemetry.Setup(cmd.Context(), "visitcheck", cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// flushTelemetry exports the spans and metrics still buffered.
var flushTelemetry = func(ctx context.Context) error {
	return otelState.Shutdown(ctx)
}

// execute runs the command line given by args (os.Args when nil). Telemetry
// is flushed whether or not the command failed.
func execute(ctx context.Context, args []string) error {
	if args != nil {
		rootCmd.SetArgs(args)
	}
	runErr := rootCmd.ExecuteContext(ctx)

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := flushTelemetry(flushCtx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
	return runErr
}

func ExecuteContext(ctx context.Context) {
	err := execute(ctx, nil)
	if err != nil {
		serviceutil.Fatal("command failed", err)
	}
}
