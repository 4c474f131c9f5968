package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/neovex/internal/csq"
	"github.com/inodb/neovex/internal/vcf"
)

func newSomaticCmd() *cobra.Command {
	var (
		vcfPath      string
		outPath      string
		genesPath    string
		normalSample string
		tumorSample  string
	)

	cmd := &cobra.Command{
		Use:   "somatic",
		Short: "Extract somatic variants from a paired tumor-normal VCF",
		Long: `Somatic walks a paired VCF and keeps variants where the normal sample
is homozygous reference and the tumor sample carries an alt allele.
It writes a genotype table plus a deduplicated list of the affected
gene symbols, one per line, in first-seen order.`,
		Example: `  neovex somatic --vcf paired.vcf
  neovex somatic --vcf paired.vcf --normal-sample BLOOD --tumor-sample BIOPSY`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			return runSomatic(logger, vcfPath, outPath, genesPath, normalSample, tumorSample)
		},
	}

	cmd.Flags().StringVar(&vcfPath, "vcf", "", "paired tumor-normal VCF (required)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "somatic_variants.tsv", "somatic genotype table path")
	cmd.Flags().StringVar(&genesPath, "genes", "gene_names.txt", "affected gene symbols path")
	cmd.Flags().StringVar(&normalSample, "normal-sample", "NORMAL", "normal sample name in the VCF header")
	cmd.Flags().StringVar(&tumorSample, "tumor-sample", "TUMOR", "tumor sample name in the VCF header")
	cmd.MarkFlagRequired("vcf")

	return cmd
}

func runSomatic(logger *zap.Logger, vcfPath, outPath, genesPath, normalSample, tumorSample string) error {
	p, err := vcf.NewParser(vcfPath)
	if err != nil {
		return fmt.Errorf("opening VCF: %w", err)
	}
	defer p.Close()

	normalIdx, ok := p.SampleIndex(normalSample)
	if !ok {
		return fmt.Errorf("sample %q not found in VCF header", normalSample)
	}
	tumorIdx, ok := p.SampleIndex(tumorSample)
	if !ok {
		return fmt.Errorf("sample %q not found in VCF header", tumorSample)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "CHROM\tPOS\tREF\tALT\tNormal_GT\tTumor_GT")

	var genes []string
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

		a, b := v.Genotype(normalIdx)
		if a != 0 || b != 0 || !v.HasAltAllele(tumorIdx) {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			v.Chrom, v.Pos, v.Ref, v.Alt,
			v.GenotypeString(normalIdx), v.GenotypeString(tumorIdx))
		kept++

		if raw, ok := v.InfoString(csq.Key); ok {
			if g := csq.FirstGeneSymbol(raw); g != "." && g != "" {
				genes = append(genes, g)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	unique := lo.Uniq(genes)
	list := strings.Join(unique, "\n")
	if list != "" {
		list += "\n"
	}
	if err := os.WriteFile(genesPath, []byte(list), 0o644); err != nil {
		return fmt.Errorf("writing gene list: %w", err)
	}

	logger.Info("somatic extraction complete",
		zap.Int("scanned", scanned),
		zap.Int("somatic", kept),
		zap.Int("genes", len(unique)),
		zap.String("output", outPath))
	return nil
}
