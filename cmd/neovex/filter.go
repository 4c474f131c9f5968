package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/neovex/internal/filter"
	"github.com/inodb/neovex/internal/rnaseq"
	"github.com/inodb/neovex/internal/vcf"
)

func newFilterCmd() *cobra.Command {
	var (
		vcfPath     string
		rnaPath     string
		outPath     string
		impacts     string
		tumorSample string
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Select somatic variants with target impact in expressed genes",
		Long: `Filter streams a VEP-annotated VCF and keeps only records that pass
all admission checks: FILTER is PASS, the tumor sample carries an alt
allele, and at least one CSQ transcript has a target impact class in a
gene present in the RNA-seq counts table.

An unreadable RNA table is not fatal: it yields an empty expressed-gene
set, so no variants are kept.`,
		Example: `  neovex filter --vcf annotated.vcf --rna rna_counts.csv
  neovex filter --vcf annotated.vcf.gz --rna rna_counts.csv --impact HIGH,MODERATE -o candidates.vcf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			tumor := settingString(cmd, "tumor-sample", "tumor_sample")
			return runFilter(logger, vcfPath, rnaPath, outPath, impacts, tumor)
		},
	}

	cmd.Flags().StringVar(&vcfPath, "vcf", "", "VEP-annotated VCF, plain or gzipped (required)")
	cmd.Flags().StringVar(&rnaPath, "rna", "", "RNA-seq gene quantification table (required)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "high_impact_variants.vcf", "filtered VCF path")
	cmd.Flags().StringVar(&impacts, "impact", "HIGH", "comma-separated VEP impact classes to keep")
	cmd.Flags().StringVar(&tumorSample, "tumor-sample", filter.DefaultTumorSample, "tumor sample name in the VCF header")
	cmd.MarkFlagRequired("vcf")
	cmd.MarkFlagRequired("rna")

	return cmd
}

func runFilter(logger *zap.Logger, vcfPath, rnaPath, outPath, impacts, tumorSample string) error {
	genes := loadGeneSet(logger, rnaPath)

	p, err := vcf.NewParser(vcfPath)
	if err != nil {
		return fmt.Errorf("opening VCF: %w", err)
	}
	defer p.Close()

	w, err := vcf.NewWriter(outPath, p.Header())
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}

	f := filter.New(filter.ParseImpactList(impacts), genes)
	f.SetTumorSample(tumorSample)
	f.SetLogger(logger)

	stats, err := f.Run(p, w)
	if err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}

	logger.Info("filtering complete",
		zap.Int("scanned", stats.Scanned),
		zap.Int("kept", stats.Kept),
		zap.String("output", outPath))
	return nil
}

// loadGeneSet builds the expressed-gene set from the RNA table. An
// unreadable table is reported and produces an empty set, meaning no
// gene counts as expressed.
func loadGeneSet(logger *zap.Logger, rnaPath string) map[string]bool {
	table, err := rnaseq.Load(rnaPath)
	if err != nil {
		logger.Error("RNA table unreadable, no genes count as expressed",
			zap.String("path", rnaPath),
			zap.Error(err))
		return map[string]bool{}
	}
	genes := table.GeneSet()
	logger.Info("expressed gene set loaded",
		zap.String("path", rnaPath),
		zap.Int("genes", len(genes)))
	return genes
}
