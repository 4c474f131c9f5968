package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/neovex/internal/duckdb"
	"github.com/inodb/neovex/internal/gtex"
	"github.com/inodb/neovex/internal/output"
)

func newGtexCmd() *cobra.Command {
	var (
		tablePath   string
		outPath     string
		tissue      string
		cachePath   string
		cacheMaxAge time.Duration
	)

	cmd := &cobra.Command{
		Use:   "gtex",
		Short: "Compare tumour expression against GTEx tissue baselines",
		Long: `Gtex fetches the median healthy-tissue TPM for every gene in the
validation table from the GTEx Portal API and classifies each gene by
how the tumour expresses it relative to that baseline: silenced,
downregulated, comparable, overexpressed, or no data.

Baselines are cached in the local DuckDB database, including negative
lookups for genes GTEx does not know, so repeated runs avoid the API.`,
		Example: `  neovex gtex --table validation_table.csv
  neovex gtex --table validation_table.csv --tissue Thyroid --cache-max-age 168h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			tis := settingString(cmd, "tissue", "gtex.tissue")
			return runGtex(logger, tablePath, outPath, tis, cachePath, cacheMaxAge)
		},
	}

	cmd.Flags().StringVar(&tablePath, "table", "", "validation table from the validate stage (required)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "gtex_comparison.csv", "comparison table CSV path")
	cmd.Flags().StringVar(&tissue, "tissue", "", "GTEx tissue site (default Lung)")
	cmd.Flags().StringVar(&cachePath, "cache", "neovex.duckdb", "baseline cache database, empty to disable")
	cmd.Flags().DurationVar(&cacheMaxAge, "cache-max-age", 720*time.Hour, "refetch baselines older than this, 0 to keep forever")
	cmd.MarkFlagRequired("table")

	return cmd
}

func runGtex(logger *zap.Logger, tablePath, outPath, tissue, cachePath string, cacheMaxAge time.Duration) error {
	rows, err := output.ReadValidationTable(tablePath)
	if err != nil {
		return fmt.Errorf("reading validation table: %w", err)
	}

	geneIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.GeneID != "" {
			geneIDs = append(geneIDs, r.GeneID)
		}
	}

	client := gtex.NewClient()
	client.SetLogger(logger)

	fetcher := gtex.NewFetcher(client)
	fetcher.SetLogger(logger)

	if cachePath != "" {
		store, err := duckdb.Open(cachePath)
		if err != nil {
			logger.Warn("baseline cache unavailable, calling GTEx for every gene",
				zap.String("path", cachePath),
				zap.Error(err))
		} else {
			defer store.Close()
			fetcher.SetStore(store, cacheMaxAge)
		}
	}

	baselines := fetcher.FetchAll(geneIDs, tissue)

	classifier := gtex.Classifier{
		TPMExpressed:       viper.GetFloat64("thresholds.tpm_expressed"),
		OverexpressionFold: viper.GetFloat64("thresholds.overexpression_fold"),
	}
	compared := gtex.Compare(rows, baselines, classifier)

	if err := output.WriteComparison(outPath, compared); err != nil {
		return fmt.Errorf("writing comparison table: %w", err)
	}
	logger.Info("comparison table written",
		zap.Int("rows", len(compared)),
		zap.String("tissue", tissue),
		zap.String("output", outPath))

	output.ComparisonSummary(os.Stdout, compared, tissue)
	return nil
}
