package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/neovex/internal/output"
	"github.com/inodb/neovex/internal/rnaseq"
	"github.com/inodb/neovex/internal/score"
)

func newScoreCmd() *cobra.Command {
	var (
		predPath    string
		vcfPath     string
		rnaPath     string
		outPath     string
		tumorSample string
		tumorIndex  int
		histogram   bool
		workers     int
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score predictions and assign vaccine priorities",
		Long: `Score computes the log2 fold change between alt and ref expression for
every prediction, classifies it as gain, loss, or neutral, and assigns
a vaccine priority from the observed tumour TPM, the tumor variant
allele fraction, and NMD annotations.

The VCF supplies per-variant VAF and NMD facts; the RNA table supplies
observed TPM per gene. Either being unavailable degrades the affected
columns to NA instead of failing the run.`,
		Example: `  neovex score --predictions raw_predictions.tsv --vcf high_impact_variants.vcf --rna rna_counts.csv
  neovex score --predictions raw_predictions.tsv --vcf high_impact_variants.vcf --rna rna_counts.csv --histogram`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			tumor := score.TumorSample{Index: tumorIndex}
			if tumorSample != "" {
				tumor = score.TumorSample{Name: tumorSample}
			}
			return runScore(logger, predPath, vcfPath, rnaPath, outPath, tumor, workers, histogram)
		},
	}

	cmd.Flags().StringVar(&predPath, "predictions", "", "predictions TSV from the predict stage (required)")
	cmd.Flags().StringVar(&vcfPath, "vcf", "", "filtered VCF supplying VAF and NMD facts (required)")
	cmd.Flags().StringVar(&rnaPath, "rna", "", "RNA-seq gene quantification table (required)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "scored_variants.tsv", "scored variants TSV path")
	cmd.Flags().StringVar(&tumorSample, "tumor-sample", "", "tumor sample name, overrides --tumor-index")
	cmd.Flags().IntVar(&tumorIndex, "tumor-index", 1, "tumor sample column index")
	cmd.Flags().BoolVar(&histogram, "histogram", false, "print an ascii chart of sorted log2 fold changes")
	cmd.Flags().IntVar(&workers, "workers", 0, "scoring goroutines, 0 for GOMAXPROCS")
	cmd.MarkFlagRequired("predictions")
	cmd.MarkFlagRequired("vcf")
	cmd.MarkFlagRequired("rna")

	return cmd
}

func runScore(logger *zap.Logger, predPath, vcfPath, rnaPath, outPath string, tumor score.TumorSample, workers int, histogram bool) error {
	s := score.NewScorer(thresholdsFromConfig())
	s.SetLogger(logger)

	if table, err := rnaseq.Load(rnaPath); err != nil {
		logger.Warn("RNA table unreadable, observed TPM will be unknown",
			zap.String("path", rnaPath),
			zap.Error(err))
	} else {
		s.SetTPMLookup(table.TPMLookup())
	}

	if err := s.LoadIndex(vcfPath, tumor); err != nil {
		logger.Warn("VCF facts unavailable, VAF and NMD will be unknown",
			zap.String("path", vcfPath),
			zap.Error(err))
	}

	preds, err := output.ReadPredictions(predPath)
	if err != nil {
		return fmt.Errorf("reading predictions: %w", err)
	}
	if len(preds) == 0 {
		logger.Warn("no predictions to score", zap.String("path", predPath))
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	w := output.NewScoredWriter(f)
	if err := w.WriteHeader(); err != nil {
		return err
	}

	var log2FCs []float64
	err = s.ScoreAll(preds, workers, func(sv output.ScoredVariant) error {
		log2FCs = append(log2FCs, sv.Log2FC)
		return w.Write(sv)
	})
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	logger.Info("scoring complete",
		zap.Int("variants", len(log2FCs)),
		zap.String("output", outPath))

	if histogram && len(log2FCs) > 0 {
		sort.Float64s(log2FCs)
		fmt.Println(asciigraph.Plot(log2FCs,
			asciigraph.Height(10),
			asciigraph.Caption("sorted LOG2_FC per variant")))
	}
	return nil
}
