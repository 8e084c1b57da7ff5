package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/label-compliance/internal/common"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "labelcheck",
	Short: "Check product labels for mandatory declarations",
	Long: `labelcheck reads label images (JPEG, PNG, WebP) and PDFs, recognizes their
text and reports which mandatory declarations were found, with a 0-100 score
and a pass/partial/fail status.

Configuration is read from the environment (and an optional .env file):
  LABEL_RULES_FILE, LABEL_RULES_PRESET, LABEL_OCR_ENGINE, LABEL_OCR_LANG,
  LABEL_OCR_PSM, LABEL_OCR_PSM_MODES, TESSDATA_PREFIX, LABEL_TESSERACT_BIN,
  LABEL_PDFTOPPM_BIN, LABEL_DPI, LABEL_MAX_PAGES, LABEL_MAX_DIMENSION,
  LABEL_MIN_DIMENSION, LABEL_MAX_IMAGE_BYTES, LABEL_RECOGNITION_TIMEOUT,
  LABEL_RASTERIZATION_TIMEOUT, LABEL_GRAYSCALE, LABEL_CONTRAST,
  LABEL_MORPHOLOGY, LABEL_LOG_LEVEL, LABEL_LOG_FORMAT`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("rules", "", "rule file (default: built-in rules or LABEL_RULES_FILE)")
	rootCmd.PersistentFlags().String("preset", "", "built-in rules when no rule file is given: default, extended")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("env-file", ".env", "optional .env file to load")
}

// loadConfig reads the environment and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*common.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := common.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}
	cfg := common.LoadConfig()
	if v, _ := cmd.Flags().GetString("rules"); v != "" {
		cfg.RulesFile = v
	}
	if v, _ := cmd.Flags().GetString("preset"); v != "" {
		cfg.RulesPreset = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	logger := common.NewLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
