package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pnadon/producer-consumer/internal/infrastructure/config"
	"github.com/pnadon/producer-consumer/internal/infrastructure/logging"
	"github.com/pnadon/producer-consumer/internal/infrastructure/monitoring"
	"github.com/pnadon/producer-consumer/internal/infrastructure/server"
	"github.com/pnadon/producer-consumer/internal/pipeline"
	"github.com/pnadon/producer-consumer/internal/source"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "tokenizer",
		Short: "Split text files into one token per line using parallel producers and consumers",
		Long: `tokenizer reads every source with its own producer, hands lines (or bytes)
to a fixed set of bounded queues, and has one consumer per queue write each
token on its own line: to stdout in line mode, to <out-dir>/<index>.txt in
byte mode.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.yaml, .toml or .json)")
	bindFlags(rootCmd)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, configPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	bindFlags(configCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tokenizer",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tokenizer version %s\n", version)
		},
	}

	rootCmd.AddCommand(configCmd, versionCmd)
	return rootCmd
}

// loadConfig layers defaults, the config file, the environment and the
// flags the user actually set, then validates the result
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logCfg.Level = cfg.Logging.Level
	if cfg.Output.Events {
		logCfg.Level = "debug"
	}
	return logging.New(logCfg)
}

func resolveSources(ctx context.Context, cfg *config.Config) ([]string, error) {
	switch {
	case cfg.Input.Glob != "":
		return source.Glob(cfg.Input.Dir, cfg.Input.Glob)
	case cfg.Input.Walk:
		return source.Walk(ctx, cfg.Input.Dir, cfg.Input.Extensions)
	default:
		return source.Indexed(cfg.Input.Dir, cfg.Input.Sources), nil
	}
}

func pipelineConfig(cfg *config.Config, sources []string) pipeline.Config {
	return pipeline.Config{
		Sources:      sources,
		Queues:       cfg.Queues(len(sources)),
		Capacity:     cfg.Queue.Capacity,
		Mode:         pipeline.Mode(cfg.Input.Mode),
		Assignment:   pipeline.Assignment(cfg.AssignmentPolicy()),
		MaxItemSize:  cfg.Input.MaxItemSize,
		AllowBinary:  cfg.Input.AllowBinary,
		Separator:    cfg.SeparatorByte(),
		ProbeLimit:   cfg.Queue.ProbeLimit,
		Seed:         cfg.Queue.Seed,
		RateLimit:    cfg.Input.RateLimit,
		OutDir:       cfg.Output.Dir,
		Events:       cfg.Output.Events,
		DrainTimeout: cfg.Queue.DrainTimeout.Std(),
	}
}

// run executes one pipeline. Tokens go to stdout; the timing line goes to
// stderr next to the logs.
func run(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	sources, err := resolveSources(ctx, cfg)
	if err != nil {
		return err
	}

	metrics := monitoring.NewMetrics()
	p, err := pipeline.New(pipelineConfig(cfg, sources),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(metrics),
		pipeline.WithStdout(stdout),
	)
	if err != nil {
		return err
	}

	if cfg.Server.Addr != "" {
		srv := server.New(p, metrics, logger, cfg.Logging.Development)
		if err := srv.Start(cfg.Server.Addr); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("HTTP server shutdown failed", zap.Error(err))
			}
		}()
	}

	report, runErr := p.Run(ctx)
	if report != nil {
		logger.Info("Run complete", report.Fields()...)
		if cfg.Output.Timing {
			fmt.Fprintf(stderr, "Time taken: %.6f seconds\n", report.Seconds)
		}
		if cfg.Output.Report != "" {
			if err := report.WriteFile(cfg.Output.Report); err != nil {
				logger.Error("Failed to write report", zap.Error(err))
				if runErr == nil {
					runErr = err
				}
			}
		}
	}
	return runErr
}
