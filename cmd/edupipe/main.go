package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mitodl/edupipe/internal/pipeline"
	"github.com/mitodl/edupipe/pkg/config"
	"github.com/mitodl/edupipe/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var configFile string
	var timeout time.Duration

	root := &cobra.Command{
		Use:   "edupipe",
		Short: "edupipe - Open edX data extraction pipelines",
		Long: `edupipe extracts institutional learning data: per-course-run user data
from the BigQuery warehouse into columnar files, and the course catalog
from the Open edX API into JSON Lines.`,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "edupipe.yaml", "Path to YAML configuration file")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Hour, "Run timeout")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("edupipe v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "datasets",
		Short: "List warehouse datasets eligible for extraction",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configFile)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			datasets, err := pipeline.NewUserDataPipeline(cfg).ListDatasets(ctx)
			if err != nil {
				return err
			}
			for _, ds := range datasets {
				fmt.Printf("%s.%s\n", ds.ProjectID, ds.DatasetID)
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "extract",
		Short: "Extract user data from eligible warehouse datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configFile)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			start := time.Now()
			materializations, outputRoot, err := pipeline.NewUserDataPipeline(cfg).Run(ctx)
			if err != nil {
				return err
			}

			logger.Info("extraction completed",
				zap.String("root", outputRoot),
				zap.Int("files", len(materializations)),
				zap.Duration("duration", time.Since(start)))
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "courses",
		Short: "Fetch the course catalog into a JSON Lines file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configFile)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			start := time.Now()
			path, err := pipeline.NewCatalogPipeline(cfg).Run(ctx)
			if err != nil {
				return err
			}

			logger.Info("catalog fetch completed",
				zap.String("path", path),
				zap.Duration("duration", time.Since(start)))
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and initializes the logger from it.
func setup(configFile string) (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Encoding:    cfg.Logging.Encoding,
		Development: cfg.Logging.Development,
	}); err != nil {
		return nil, err
	}

	return cfg, nil
}
