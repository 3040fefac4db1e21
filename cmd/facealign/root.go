package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dudu/facealign/internal/pipeline"
	"github.com/dudu/facealign/internal/raster"
	"github.com/dudu/facealign/internal/raster/cvraster"
)

// Version is the application version.
const Version = "0.1.0"

var (
	configPath string
	logLevel   string
	ortLibrary string
	modelPath  string
	backend    string
	useCoreML  bool
	numThreads int

	// cfg and logger are set up by the root PersistentPreRunE for every subcommand
	cfg    pipeline.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "facealign",
	Short:         "SCRFD face detection and 5-point face alignment",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(logLevel)
		if err != nil {
			return err
		}

		cfg = pipeline.DefaultConfig()
		if configPath != "" {
			if cfg, err = pipeline.LoadConfig(configPath); err != nil {
				return err
			}
		}

		// flags given explicitly win over the config file
		flags := cmd.Flags()
		if flags.Changed("ort-lib") {
			cfg.ORTLibrary = ortLibrary
		}
		if flags.Changed("model") {
			cfg.DetectorModel = modelPath
		}
		if flags.Changed("backend") {
			b, err := pipeline.ParseBackend(backend)
			if err != nil {
				return err
			}
			cfg.Backend = b
		}
		if flags.Changed("coreml") {
			cfg.CoreML = useCoreML
		}
		if flags.Changed("threads") {
			cfg.NumThreads = numThreads
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML configuration file")
	flags.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&ortLibrary, "ort-lib", "", "Path to the ONNX Runtime shared library")
	flags.StringVarP(&modelPath, "model", "m", "", "SCRFD model path (default from config)")
	flags.StringVarP(&backend, "backend", "b", string(pipeline.BackendImaging), "Raster backend: imaging or opencv")
	flags.BoolVar(&useCoreML, "coreml", false, "Enable the CoreML execution provider")
	flags.IntVar(&numThreads, "threads", 0, "ONNX Runtime intra-op threads (0 = default)")
}

// newLogger builds a console logger writing to stderr
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.DisableStacktrace = true
	return zc.Build()
}

// rasterOps returns the raster backend selected in the configuration
func rasterOps() raster.Ops {
	if cfg.Backend == pipeline.BackendOpenCV {
		return cvraster.New(logger.Named("raster"))
	}
	return raster.NewImaging()
}

// openPipeline loads the detector model and returns a ready pipeline
func openPipeline() (*pipeline.Pipeline, error) {
	p, err := pipeline.Open(cfg, rasterOps(), logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("pipeline ready",
		zap.String("model", cfg.DetectorModel),
		zap.String("backend", string(cfg.Backend)))
	return p, nil
}
