package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rsclarke/ingestcam/internal/config"
	"github.com/rsclarke/ingestcam/internal/logging"
)

var (
	logger *zap.Logger
	cfg    *config.Config

	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "ingestcam",
	Short: "Capture labelled photos and upload them to Edge Impulse",
	Long: `ingestcam logs in to Edge Impulse Studio, resolves a project's API key
and uploads labelled camera frames to the ingestion service as training
data.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine.
		_ = godotenv.Load()

		var err error
		logger, err = logging.New(logging.FromEnv())
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		path := configPath
		if path == "" {
			path = os.Getenv("INGESTCAM_CONFIG")
		}
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		applyRootFlags(cmd, cfg)
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logging.Sync(logger)
		}
	},
}

var rootFlags struct {
	studioURL    string
	ingestionURL string
	timeout      string
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to a TOML config file (env: INGESTCAM_CONFIG)")
	pf.StringVar(&rootFlags.studioURL, "studio-url", "", "Studio API base URL")
	pf.StringVar(&rootFlags.ingestionURL, "ingestion-url", "", "ingestion API base URL")
	pf.StringVar(&rootFlags.timeout, "http-timeout", "", "per-request timeout, e.g. 30s (default none)")
}

func applyRootFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("studio-url") {
		c.StudioURL = rootFlags.studioURL
	}
	if flags.Changed("ingestion-url") {
		c.IngestionURL = rootFlags.ingestionURL
	}
	if flags.Changed("http-timeout") {
		c.HTTPTimeout = rootFlags.timeout
	}
}
