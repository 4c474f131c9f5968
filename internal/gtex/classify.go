package gtex

import (
	"math"

	"github.com/inodb/neovex/internal/output"
)

// Silencing class labels.
const (
	ClassNoData         = "no GTEx data"
	ClassNormalSilence  = "tissue-normal silence"
	ClassTumourSilenced = "tumour-specific silencing"
	ClassOverexpressed  = "tumour over-expression"
	ClassComparable     = "comparable"
)

// Classifier compares tumour expression against a population baseline.
type Classifier struct {
	TPMExpressed       float64 // TPM at or above which a gene counts as expressed
	OverexpressionFold float64 // tumour/baseline ratio at or above which expression is elevated
}

// DefaultClassifier returns the standard cutoffs.
func DefaultClassifier() Classifier {
	return Classifier{TPMExpressed: 1.0, OverexpressionFold: 4.0}
}

// Classify labels one gene's tumour TPM against its baseline median. A NaN
// baseline means the lookup came back empty. The ratio check is skipped
// when the baseline is exactly zero: an expressed gene over a silent
// baseline reads as comparable rather than dividing by zero.
func (c Classifier) Classify(tumourTPM, baselineTPM float64) string {
	if math.IsNaN(baselineTPM) {
		return ClassNoData
	}

	tumourExpressed := tumourTPM >= c.TPMExpressed
	baselineExpressed := baselineTPM >= c.TPMExpressed

	switch {
	case !tumourExpressed && !baselineExpressed:
		return ClassNormalSilence
	case !tumourExpressed:
		return ClassTumourSilenced
	case baselineTPM > 0 && tumourTPM/baselineTPM >= c.OverexpressionFold:
		return ClassOverexpressed
	default:
		return ClassComparable
	}
}

// Compare joins validation rows with their baselines into the comparison
// table, one row per input row. The ratio is rounded to two decimals and
// left empty when either side is unknown or the baseline is zero.
func Compare(rows []output.ValidationRow, baselines map[string]Baseline, c Classifier) []output.ComparisonRow {
	out := make([]output.ComparisonRow, 0, len(rows))
	for _, row := range rows {
		baselineTPM := math.NaN()
		if b, ok := baselines[row.GeneID]; ok {
			baselineTPM = b.TPM()
		}
		tumourTPM := output.FloatOrNaN(row.ObservedTPM)

		ratio := math.NaN()
		if !math.IsNaN(tumourTPM) && !math.IsNaN(baselineTPM) && baselineTPM > 0 {
			ratio = math.Round(tumourTPM/baselineTPM*100) / 100
		}

		out = append(out, output.ComparisonRow{
			Gene:              row.Gene,
			GeneID:            row.GeneID,
			ObservedTPM:       row.ObservedTPM,
			GtexTPM:           output.NullFloat(baselineTPM),
			TumourVsGtexRatio: output.NullFloat(ratio),
			SilencingClass:    c.Classify(tumourTPM, baselineTPM),
			Log2FC:            row.Log2FC,
			VAF:               row.VAF,
			NMDFlag:           row.NMDFlag,
			VaccinePriority:   row.VaccinePriority,
		})
	}
	return out
}
