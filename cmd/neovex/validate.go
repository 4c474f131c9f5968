package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/neovex/internal/output"
	"github.com/inodb/neovex/internal/rnaseq"
	"github.com/inodb/neovex/internal/validate"
)

func newValidateCmd() *cobra.Command {
	var (
		scoredPath string
		rnaPath    string
		tablePath  string
		corrPath   string
		plotPath   string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compare predicted expression against observed RNA-seq",
		Long: `Validate joins the scored variants with the patient's RNA table into a
per-variant validation table, cross-checks the OBSERVED_TPM column
against the table, and computes Pearson and Spearman correlations
between predicted and observed expression.

The correlation summary is printed to stdout; an optional scatter plot
of predicted versus observed expression can be written as PNG.`,
		Example: `  neovex validate --scored scored_variants.tsv --rna rna_counts.csv
  neovex validate --scored scored_variants.tsv --rna rna_counts.csv --plot validation_scatter.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			return runValidate(logger, scoredPath, rnaPath, tablePath, corrPath, plotPath)
		},
	}

	cmd.Flags().StringVar(&scoredPath, "scored", "", "scored variants TSV from the score stage (required)")
	cmd.Flags().StringVar(&rnaPath, "rna", "", "RNA-seq gene quantification table (required)")
	cmd.Flags().StringVar(&tablePath, "table", "validation_table.csv", "validation table CSV path")
	cmd.Flags().StringVar(&corrPath, "correlations", "validation_correlations.csv", "correlation table CSV path")
	cmd.Flags().StringVar(&plotPath, "plot", "", "scatter plot PNG path, empty to skip")
	cmd.MarkFlagRequired("scored")
	cmd.MarkFlagRequired("rna")

	return cmd
}

func runValidate(logger *zap.Logger, scoredPath, rnaPath, tablePath, corrPath, plotPath string) error {
	scored, err := output.ReadScored(scoredPath)
	if err != nil {
		return fmt.Errorf("reading scored variants: %w", err)
	}
	table, err := rnaseq.Load(rnaPath)
	if err != nil {
		return fmt.Errorf("loading RNA table: %w", err)
	}

	rows := validate.Join(scored, table)
	if err := output.WriteValidationTable(tablePath, rows); err != nil {
		return fmt.Errorf("writing validation table: %w", err)
	}
	logger.Info("validation table written",
		zap.Int("rows", len(rows)),
		zap.String("output", tablePath))

	mismatches := validate.CrossCheckTPM(scored, table.TPMLookup(), 0.01)
	if len(mismatches) == 0 {
		logger.Info("TPM cross-check passed", zap.Int("variants", len(scored)))
	} else {
		for _, m := range mismatches {
			logger.Warn("TPM mismatch between scored output and RNA table",
				zap.String("gene_id", m.GeneID),
				zap.Float64("scored", m.Scored),
				zap.Float64("table", m.Table))
		}
	}

	corrs := validate.Correlations(rows, viper.GetFloat64("thresholds.tpm_expressed"))
	if err := output.WriteCorrelations(corrPath, corrs); err != nil {
		return fmt.Errorf("writing correlations: %w", err)
	}
	output.CorrelationSummary(os.Stdout, corrs)

	if plotPath != "" {
		if err := validate.ScatterPlot(plotPath, rows); err != nil {
			return fmt.Errorf("writing scatter plot: %w", err)
		}
		logger.Info("scatter plot written", zap.String("output", plotPath))
	}
	return nil
}
