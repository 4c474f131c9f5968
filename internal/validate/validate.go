// Package validate checks predicted expression against the measured
// RNA-seq evidence: a joined per-variant table, a TPM consistency check,
// and a set of predicted-versus-observed correlations.
package validate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inodb/neovex/internal/output"
	"github.com/inodb/neovex/internal/rnaseq"
)

// Join merges scored variants with the RNA table on version-stripped gene
// ID. Raw count and FPKM columns stay empty for genes the table lacks.
func Join(scored []output.ScoredVariant, rna *rnaseq.Table) []output.ValidationRow {
	byGene := rna.ByGeneID()

	rows := make([]output.ValidationRow, 0, len(scored))
	for _, sv := range scored {
		row := output.ValidationRow{
			Chrom:           sv.Chrom,
			Pos:             sv.Pos,
			Ref:             sv.Ref,
			Alt:             sv.Alt,
			Gene:            sv.Gene,
			GeneID:          sv.GeneID,
			RefExpr:         sv.RefExpr,
			AltExpr:         sv.AltExpr,
			Log2FC:          sv.Log2FC,
			Status:          sv.Status,
			VAF:             output.NullFloat(sv.VAF),
			ObservedTPM:     output.NullFloat(sv.ObservedTPM),
			Expressed:       sv.Expressed,
			NMDFlag:         sv.NMDFlag,
			VaccinePriority: sv.VaccinePriority,
		}
		if r, ok := byGene[sv.GeneID]; ok {
			row.Unstranded = r.Unstranded
			row.FPKMUnstranded = r.FPKMUnstranded
		}
		rows = append(rows, row)
	}
	return rows
}

// TPMMismatch is one gene whose scored TPM disagrees with the RNA table.
type TPMMismatch struct {
	GeneID string
	Scored float64
	Table  float64
}

// CrossCheckTPM compares each scored variant's OBSERVED_TPM against the
// RNA table's TPM for the same gene. Unknown values on either side compare
// as zero, so "absent in both" agrees and "absent in one" shows up.
func CrossCheckTPM(scored []output.ScoredVariant, tpm map[string]float64, tol float64) []TPMMismatch {
	var mismatches []TPMMismatch
	for _, sv := range scored {
		a := sv.ObservedTPM
		if math.IsNaN(a) {
			a = 0
		}
		b := tpm[sv.GeneID]
		if math.Abs(a-b) > tol {
			mismatches = append(mismatches, TPMMismatch{
				GeneID: sv.GeneID, Scored: a, Table: b,
			})
		}
	}
	return mismatches
}

// TransformLog10 marks a correlation computed over log10(x+1) values.
const TransformLog10 = "log10"

type comparison struct {
	name      string
	x, y      string
	transform string
	getX      func(output.ValidationRow) float64
	getY      func(output.ValidationRow) float64
}

func altExpr(r output.ValidationRow) float64 { return r.AltExpr }
func refExpr(r output.ValidationRow) float64 { return r.RefExpr }
func log2FC(r output.ValidationRow) float64  { return r.Log2FC }
func observedTPM(r output.ValidationRow) float64 {
	return output.FloatOrNaN(r.ObservedTPM)
}
func unstranded(r output.ValidationRow) float64 {
	return output.FloatOrNaN(r.Unstranded)
}

// Correlations computes the predicted-versus-observed correlation set.
// Statistics stay empty when fewer than three paired values survive the
// NaN mask. The raw-count comparisons appear only when the RNA table
// carried counts; the expressed-only comparison only when at least three
// genes clear tpmExpressed.
func Correlations(rows []output.ValidationRow, tpmExpressed float64) []output.CorrelationRow {
	comparisons := []comparison{
		{"ALT_EXPR vs OBSERVED_TPM", "ALT_EXPR", "OBSERVED_TPM", "none", altExpr, observedTPM},
		{"ALT_EXPR vs OBSERVED_TPM", "ALT_EXPR", "OBSERVED_TPM", TransformLog10, altExpr, observedTPM},
		{"REF_EXPR vs OBSERVED_TPM", "REF_EXPR", "OBSERVED_TPM", "none", refExpr, observedTPM},
		{"REF_EXPR vs OBSERVED_TPM", "REF_EXPR", "OBSERVED_TPM", TransformLog10, refExpr, observedTPM},
		{"LOG2_FC vs OBSERVED_TPM", "LOG2_FC", "OBSERVED_TPM", "none", log2FC, observedTPM},
	}

	hasCounts := false
	for _, row := range rows {
		if row.Unstranded.Valid {
			hasCounts = true
			break
		}
	}
	if hasCounts {
		comparisons = append(comparisons,
			comparison{"ALT_EXPR vs unstranded", "ALT_EXPR", "unstranded", "none", altExpr, unstranded},
			comparison{"ALT_EXPR vs unstranded", "ALT_EXPR", "unstranded", TransformLog10, altExpr, unstranded},
		)
	}

	out := make([]output.CorrelationRow, 0, len(comparisons)+1)
	for _, c := range comparisons {
		out = append(out, correlate(c, rows))
	}

	var expressed []output.ValidationRow
	for _, row := range rows {
		if tpm := observedTPM(row); !math.IsNaN(tpm) && tpm >= tpmExpressed {
			expressed = append(expressed, row)
		}
	}
	if len(expressed) >= 3 {
		out = append(out, correlate(comparison{
			"ALT_EXPR vs OBSERVED_TPM (expressed only)",
			"ALT_EXPR", "OBSERVED_TPM", "none", altExpr, observedTPM,
		}, expressed))
	}

	return out
}

func correlate(c comparison, rows []output.ValidationRow) output.CorrelationRow {
	var xs, ys []float64
	for _, row := range rows {
		x, y := c.getX(row), c.getY(row)
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		if c.transform == TransformLog10 {
			x = math.Log10(x + 1)
			y = math.Log10(y + 1)
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}

	row := output.CorrelationRow{
		Comparison: c.name,
		X:          c.x,
		Y:          c.y,
		Transform:  c.transform,
		N:          len(xs),
	}
	if len(xs) < 3 {
		return row
	}

	pearson := stat.Correlation(xs, ys, nil)
	spearman := stat.Correlation(ranks(xs), ranks(ys), nil)

	row.PearsonR = output.NullFloat(pearson)
	row.PearsonP = output.NullFloat(pValue(pearson, len(xs)))
	row.SpearmanRho = output.NullFloat(spearman)
	row.SpearmanP = output.NullFloat(pValue(spearman, len(xs)))
	return row
}

// ranks assigns 1-based ranks with ties averaged.
func ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	r := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		avg := float64(i+j) / 2
		for k := i; k <= j; k++ {
			r[idx[k]] = avg + 1
		}
		i = j + 1
	}
	return r
}

// pValue is the two-sided p-value for a correlation coefficient under the
// t approximation with n-2 degrees of freedom.
func pValue(r float64, n int) float64 {
	den := 1 - r*r
	if den <= 0 {
		return 0
	}
	t := r * math.Sqrt(float64(n-2)/den)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	return 2 * dist.CDF(-math.Abs(t))
}
