package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/neovex/internal/output"
)

func newReportCmd() *cobra.Command {
	var (
		scoredPath     string
		comparisonPath string
		outPath        string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Bundle pipeline outputs into an Excel workbook",
		Long: `Report collects the scored variants and, when present, the GTEx
comparison table into a single xlsx workbook for sharing with the
tumor board. The comparison sheet is skipped when the gtex stage has
not been run.`,
		Example: `  neovex report
  neovex report --scored scored_variants.tsv --comparison gtex_comparison.csv -o patient42.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			return runReport(logger, scoredPath, comparisonPath, outPath)
		},
	}

	cmd.Flags().StringVar(&scoredPath, "scored", "scored_variants.tsv", "scored variants TSV from the score stage")
	cmd.Flags().StringVar(&comparisonPath, "comparison", "gtex_comparison.csv", "GTEx comparison table from the gtex stage")
	cmd.Flags().StringVarP(&outPath, "output", "o", "report.xlsx", "workbook path")

	return cmd
}

func runReport(logger *zap.Logger, scoredPath, comparisonPath, outPath string) error {
	scored, err := output.ReadScored(scoredPath)
	if err != nil {
		return fmt.Errorf("reading scored variants: %w", err)
	}

	var comparison []output.ComparisonRow
	if _, err := os.Stat(comparisonPath); err != nil {
		logger.Debug("comparison table not present, writing scored sheet only",
			zap.String("path", comparisonPath))
	} else {
		comparison, err = output.ReadComparison(comparisonPath)
		if err != nil {
			logger.Warn("comparison table unreadable, writing scored sheet only",
				zap.String("path", comparisonPath),
				zap.Error(err))
			comparison = nil
		}
	}

	if err := output.WriteReport(outPath, scored, comparison); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	logger.Info("report written",
		zap.Int("scored", len(scored)),
		zap.Int("comparison", len(comparison)),
		zap.String("output", outPath))
	return nil
}
