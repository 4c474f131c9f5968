package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/neovex/internal/duckdb"
	"github.com/inodb/neovex/internal/predict"
	"github.com/inodb/neovex/internal/vcf"
)

func newPredictCmd() *cobra.Command {
	var (
		vcfPath    string
		outPath    string
		apiURL     string
		tissue     string
		cachePath  string
		resume     bool
		refresh    bool
		rateLimit  time.Duration
		maxRetries int
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Fetch expression predictions for filtered variants",
		Long: `Predict sends each PASS variant from the filtered VCF to the remote
expression-prediction API and records the gene-level ref and alt
expression scores in a TSV.

Responses are cached in a local DuckDB database keyed by variant and
tissue, so interrupted runs can be resumed (--resume picks up after the
last checkpointed row) and repeated runs skip the API entirely for
variants already predicted. Requests are rate limited and retried with
exponential backoff.

The API key is never taken from a flag; set NEOVEX_API_KEY or api.key
in the config file.`,
		Example: `  NEOVEX_API_KEY=... neovex predict --vcf high_impact_variants.vcf --api-url https://api.example.com
  neovex predict --vcf high_impact_variants.vcf --resume
  neovex predict --vcf high_impact_variants.vcf --refresh --tissue UBERON:0002367`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			apiKey := viper.GetString("api.key")
			if apiKey == "" {
				return fmt.Errorf("api key not set (NEOVEX_API_KEY or api.key in config)")
			}
			url := settingString(cmd, "api-url", "api.url")
			if url == "" {
				return fmt.Errorf("api url not set (--api-url, NEOVEX_API_URL, or api.url in config)")
			}
			tis := settingString(cmd, "tissue", "api.tissue")

			return runPredict(logger, predictOptions{
				vcfPath:    vcfPath,
				outPath:    outPath,
				apiURL:     url,
				apiKey:     apiKey,
				tissue:     tis,
				cachePath:  cachePath,
				resume:     resume,
				refresh:    refresh,
				rateLimit:  rateLimit,
				maxRetries: maxRetries,
			})
		},
	}

	cmd.Flags().StringVar(&vcfPath, "vcf", "", "filtered VCF from the filter stage (required)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "raw_predictions.tsv", "predictions TSV path")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "prediction API base URL")
	cmd.Flags().StringVar(&tissue, "tissue", "", "UBERON tissue term (default lung, UBERON:0002048)")
	cmd.Flags().StringVar(&cachePath, "cache", "neovex.duckdb", "prediction cache database, empty to disable")
	cmd.Flags().BoolVar(&resume, "resume", false, "skip variants already present in the output TSV")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "drop cached predictions for the tissue before running")
	cmd.Flags().DurationVar(&rateLimit, "rate-limit", predict.DefaultRateLimit, "pause between API calls")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 3, "attempts per variant before recording a failure")
	cmd.MarkFlagRequired("vcf")

	return cmd
}

type predictOptions struct {
	vcfPath    string
	outPath    string
	apiURL     string
	apiKey     string
	tissue     string
	cachePath  string
	resume     bool
	refresh    bool
	rateLimit  time.Duration
	maxRetries int
}

func runPredict(logger *zap.Logger, opts predictOptions) error {
	client := predict.NewClient(opts.apiURL, opts.apiKey)
	client.SetLogger(logger)
	client.SetRetry(opts.maxRetries, 2*time.Second)

	runner := predict.NewRunner(client, opts.tissue)
	runner.SetLogger(logger)
	runner.SetRateLimit(opts.rateLimit)

	if opts.cachePath != "" {
		store, err := duckdb.Open(opts.cachePath)
		if err != nil {
			logger.Warn("prediction cache unavailable, calling API for every variant",
				zap.String("path", opts.cachePath),
				zap.Error(err))
		} else {
			defer store.Close()
			if opts.refresh {
				if err := store.ClearPredictions(opts.tissue); err != nil {
					return fmt.Errorf("clearing cached predictions: %w", err)
				}
				logger.Info("cached predictions cleared", zap.String("tissue", opts.tissue))
			}
			runner.SetStore(store)
		}
	}

	p, err := vcf.NewParser(opts.vcfPath)
	if err != nil {
		return fmt.Errorf("opening VCF: %w", err)
	}
	defer p.Close()

	stats, err := runner.Run(p, opts.outPath, opts.resume)
	if err != nil {
		return err
	}
	if stats.Errors > 0 {
		logger.Warn("some variants could not be predicted",
			zap.Int("errors", stats.Errors),
			zap.Int("total", stats.Total))
	}
	return nil
}
