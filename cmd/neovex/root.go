package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/neovex/internal/filter"
	"github.com/inodb/neovex/internal/gtex"
	"github.com/inodb/neovex/internal/score"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile string
	logPath string
	verbose bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "neovex",
		Short: "Somatic variant expression pipeline for vaccine target selection",
		Long: `neovex filters VEP-annotated somatic variants down to expressed genes,
predicts the expression impact of each variant with a remote model,
scores and classifies the predictions, and validates the results
against the patient's RNA-seq data and GTEx tissue baselines.

Stages are run as subcommands, each reading the previous stage's output:

  filter -> predict -> score -> validate -> gtex -> report`,
		Version:      fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.neovex.yaml)")
	cmd.PersistentFlags().StringVar(&logPath, "log-file", "", "also write logs to this file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newFilterCmd())
	cmd.AddCommand(newPredictCmd())
	cmd.AddCommand(newScoreCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newGtexCmd())
	cmd.AddCommand(newSomaticCmd())
	cmd.AddCommand(newHighconfCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".neovex")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("NEOVEX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("api.tissue", "UBERON:0002048")
	viper.SetDefault("gtex.tissue", gtex.DefaultTissue)
	viper.SetDefault("tumor_sample", filter.DefaultTumorSample)
	viper.SetDefault("thresholds.gain", 1.0)
	viper.SetDefault("thresholds.loss", -1.0)
	viper.SetDefault("thresholds.tpm_expressed", 1.0)
	viper.SetDefault("thresholds.vaf_clonal", 0.2)
	viper.SetDefault("thresholds.overexpression_fold", 4.0)

	// Missing config file is fine; env vars and flags still apply.
	_ = viper.ReadInConfig()
}

// buildLogger constructs the zap logger shared by all subcommands. Logs go
// to stderr so stage outputs on stdout stay machine-readable.
func buildLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.OutputPaths = []string{"stderr"}
	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating log directory: %w", err)
			}
		}
		cfg.OutputPaths = append(cfg.OutputPaths, logPath)
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func thresholdsFromConfig() score.Thresholds {
	t := score.DefaultThresholds()
	t.Gain = viper.GetFloat64("thresholds.gain")
	t.Loss = viper.GetFloat64("thresholds.loss")
	t.TPMExpressed = viper.GetFloat64("thresholds.tpm_expressed")
	t.VAFClonal = viper.GetFloat64("thresholds.vaf_clonal")
	return t
}

// settingString resolves a string option: an explicitly set flag wins,
// then the config/env value, then the flag default.
func settingString(cmd *cobra.Command, flag, key string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	if s := viper.GetString(key); s != "" {
		return s
	}
	v, _ := cmd.Flags().GetString(flag)
	return v
}
