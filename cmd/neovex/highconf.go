package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/neovex/internal/vcf"
)

func newHighconfCmd() *cobra.Command {
	var (
		vcfPath    string
		outPath    string
		minTLOD    float64
		minDepth   float64
		limit      int
		tumorIndex int
	)

	cmd := &cobra.Command{
		Use:   "highconf",
		Short: "Pick a high-confidence subset of somatic calls",
		Long: `Highconf streams a Mutect2-style VCF and keeps PASS variants whose
TLOD and tumor read depth clear the given thresholds, stopping after
the requested number of records. Useful for building a small trusted
set to spot-check the prediction stages with.`,
		Example: `  neovex highconf --vcf somatic.vcf
  neovex highconf --vcf somatic.vcf --tlod 10 --min-depth 30 --limit 25`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			return runHighconf(logger, vcfPath, outPath, minTLOD, minDepth, limit, tumorIndex)
		},
	}

	cmd.Flags().StringVar(&vcfPath, "vcf", "", "somatic VCF with TLOD annotations (required)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "high_confidence.vcf", "high-confidence VCF path")
	cmd.Flags().Float64Var(&minTLOD, "tlod", 6.3, "minimum TLOD score")
	cmd.Flags().Float64Var(&minDepth, "min-depth", 20, "minimum tumor sample read depth")
	cmd.Flags().IntVar(&limit, "limit", 10, "stop after this many variants, 0 for all")
	cmd.Flags().IntVar(&tumorIndex, "tumor-index", 1, "tumor sample column index")
	cmd.MarkFlagRequired("vcf")

	return cmd
}

func runHighconf(logger *zap.Logger, vcfPath, outPath string, minTLOD, minDepth float64, limit, tumorIndex int) error {
	p, err := vcf.NewParser(vcfPath)
	if err != nil {
		return fmt.Errorf("opening VCF: %w", err)
	}
	defer p.Close()

	w, err := vcf.NewWriter(outPath, p.Header())
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}

	scanned, kept := 0, 0
	for {
		v, err := p.Next()
		if err != nil {
			return fmt.Errorf("read variant: %w", err)
		}
		if v == nil {
			break
		}
		scanned++

		if !v.IsPass() {
			continue
		}
		tlod, ok := v.InfoFloat("TLOD")
		if !ok || tlod < minTLOD {
			continue
		}
		depths := v.SampleFloats("DP", tumorIndex)
		if len(depths) == 0 || math.IsNaN(depths[0]) || depths[0] < minDepth {
			continue
		}

		if err := w.Write(v); err != nil {
			return err
		}
		kept++
		if limit > 0 && kept >= limit {
			break
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}

	logger.Info("high-confidence selection complete",
		zap.Int("scanned", scanned),
		zap.Int("kept", kept),
		zap.String("output", outPath))
	return nil
}
