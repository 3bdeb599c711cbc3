package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/trafficwatch/internal/config"
	"github.com/crimson-sun/trafficwatch/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	logLevel   string
	logFormat  string

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "trafficwatch",
	Short: "Edge traffic-violation detection and model lifecycle",
	Long: `trafficwatch captures intersection footage, classifies it for traffic
violations and submits confirmed violations to a central server. A separate
lifecycle check reads human review feedback and triggers retraining and
deployment when the misclassification rate drifts above a threshold.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file (env TRAFFICWATCH_* overrides it)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "log format: json, text")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(lifecycleCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.Version = version
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Load()
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config:\n%w", err)
	}
	logger = logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	return nil
}
