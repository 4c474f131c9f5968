package validate

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/neovex/internal/output"
	"github.com/inodb/neovex/internal/rnaseq"
)

func loadRNATable(t *testing.T, content string) *rnaseq.Table {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rna.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	table, err := rnaseq.Load(path)
	require.NoError(t, err)
	return table
}

func scoredVariant(gene, geneID string, altExpr, tpm float64) output.ScoredVariant {
	return output.ScoredVariant{
		Prediction: output.Prediction{
			Chrom: "12", Pos: 25245351, Ref: "C", Alt: "A",
			Gene: gene, GeneID: geneID,
			RefExpr: 100.0, AltExpr: altExpr,
		},
		Log2FC:      1.5,
		Status:      "Gain_of_Expression",
		VAF:         0.433,
		ObservedTPM: tpm,
	}
}

func TestJoin(t *testing.T) {
	rna := loadRNATable(t,
		"gene_id,gene_name,gene_type,unstranded,fpkm_unstranded,tpm_unstranded\n"+
			"ENSG00000133703.13,KRAS,protein_coding,1200,12.5,54.3\n")

	scored := []output.ScoredVariant{
		scoredVariant("KRAS", "ENSG00000133703", 420.0, 54.3),
		scoredVariant("NOVEL", "ENSG00000999999", 10.0, math.NaN()),
	}

	rows := Join(scored, rna)
	require.Len(t, rows, 2)

	kras := rows[0]
	assert.Equal(t, "KRAS", kras.Gene)
	require.True(t, kras.Unstranded.Valid)
	assert.InDelta(t, 1200.0, kras.Unstranded.Float64, 1e-9)
	require.True(t, kras.FPKMUnstranded.Valid)
	assert.InDelta(t, 12.5, kras.FPKMUnstranded.Float64, 1e-9)
	require.True(t, kras.ObservedTPM.Valid)
	assert.InDelta(t, 54.3, kras.ObservedTPM.Float64, 1e-9)

	novel := rows[1]
	assert.False(t, novel.Unstranded.Valid, "gene absent from the RNA table")
	assert.False(t, novel.FPKMUnstranded.Valid)
	assert.False(t, novel.ObservedTPM.Valid, "NaN TPM becomes an empty cell")
}

func TestCrossCheckTPM(t *testing.T) {
	scored := []output.ScoredVariant{
		scoredVariant("KRAS", "ENSG00000133703", 420.0, 54.3),
		scoredVariant("TP53", "ENSG00000141510", 10.0, 21.6),
	}
	tpm := map[string]float64{
		"ENSG00000133703": 54.3,
		"ENSG00000141510": 21.7,
	}

	mismatches := CrossCheckTPM(scored, tpm, 0.01)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "ENSG00000141510", mismatches[0].GeneID)
	assert.InDelta(t, 21.6, mismatches[0].Scored, 1e-9)
	assert.InDelta(t, 21.7, mismatches[0].Table, 1e-9)
}

func TestCrossCheckTPM_UnknownMatchesAbsent(t *testing.T) {
	// NaN in the scored rows and absence from the lookup both mean "no
	// measurement" and must agree.
	scored := []output.ScoredVariant{
		scoredVariant("NOVEL", "ENSG00000999999", 10.0, math.NaN()),
	}
	assert.Empty(t, CrossCheckTPM(scored, map[string]float64{}, 0.01))

	// NaN against a real measurement is a mismatch.
	mismatches := CrossCheckTPM(scored, map[string]float64{"ENSG00000999999": 5.0}, 0.01)
	require.Len(t, mismatches, 1)
	assert.InDelta(t, 0.0, mismatches[0].Scored, 1e-9)
}

func TestCrossCheckTPM_WithinTolerance(t *testing.T) {
	scored := []output.ScoredVariant{
		scoredVariant("KRAS", "ENSG00000133703", 420.0, 54.304),
	}
	tpm := map[string]float64{"ENSG00000133703": 54.3}
	assert.Empty(t, CrossCheckTPM(scored, tpm, 0.01))
}

// validationRow builds a minimal row for correlation tests.
func validationRow(altExpr, tpm float64) output.ValidationRow {
	return output.ValidationRow{
		RefExpr:     altExpr / 2,
		AltExpr:     altExpr,
		Log2FC:      1.0,
		ObservedTPM: output.NullFloat(tpm),
	}
}

func findCorrelation(t *testing.T, rows []output.CorrelationRow, comparison, transform string) output.CorrelationRow {
	t.Helper()
	for _, r := range rows {
		if r.Comparison == comparison && r.Transform == transform {
			return r
		}
	}
	t.Fatalf("correlation %q (%s) not found", comparison, transform)
	return output.CorrelationRow{}
}

func TestCorrelations_Perfect(t *testing.T) {
	rows := []output.ValidationRow{
		validationRow(10, 1), validationRow(20, 2),
		validationRow(30, 3), validationRow(40, 4),
	}

	out := Correlations(rows, 1.0)

	alt := findCorrelation(t, out, "ALT_EXPR vs OBSERVED_TPM", "none")
	assert.Equal(t, 4, alt.N)
	require.True(t, alt.PearsonR.Valid)
	assert.InDelta(t, 1.0, alt.PearsonR.Float64, 1e-9)
	require.True(t, alt.SpearmanRho.Valid)
	assert.InDelta(t, 1.0, alt.SpearmanRho.Float64, 1e-9)
	require.True(t, alt.PearsonP.Valid)
	assert.InDelta(t, 0.0, alt.PearsonP.Float64, 1e-9)
}

func TestCorrelations_TooFewPairs(t *testing.T) {
	rows := []output.ValidationRow{
		validationRow(10, 1), validationRow(20, 2),
	}

	out := Correlations(rows, 1.0)

	alt := findCorrelation(t, out, "ALT_EXPR vs OBSERVED_TPM", "none")
	assert.Equal(t, 2, alt.N)
	assert.False(t, alt.PearsonR.Valid)
	assert.False(t, alt.PearsonP.Valid)
	assert.False(t, alt.SpearmanRho.Valid)
	assert.False(t, alt.SpearmanP.Valid)
}

func TestCorrelations_NaNPairsExcluded(t *testing.T) {
	rows := []output.ValidationRow{
		validationRow(10, 1), validationRow(20, 2),
		validationRow(30, 3), validationRow(40, 4),
		validationRow(50, math.NaN()),
	}

	out := Correlations(rows, 1.0)
	alt := findCorrelation(t, out, "ALT_EXPR vs OBSERVED_TPM", "none")
	assert.Equal(t, 4, alt.N, "the unknown-TPM row is masked out")
}

func TestCorrelations_SpearmanInvariantUnderLog(t *testing.T) {
	rows := []output.ValidationRow{
		validationRow(10, 2), validationRow(20, 1),
		validationRow(30, 4), validationRow(40, 3),
		validationRow(50, 6),
	}

	out := Correlations(rows, 1.0)
	raw := findCorrelation(t, out, "ALT_EXPR vs OBSERVED_TPM", "none")
	logged := findCorrelation(t, out, "ALT_EXPR vs OBSERVED_TPM", TransformLog10)

	require.True(t, raw.SpearmanRho.Valid)
	require.True(t, logged.SpearmanRho.Valid)
	assert.InDelta(t, raw.SpearmanRho.Float64, logged.SpearmanRho.Float64, 1e-12,
		"rank correlation is invariant under a monotone transform")
	assert.InDelta(t, 0.8, raw.SpearmanRho.Float64, 1e-9)

	// Pearson moves under the transform.
	assert.InDelta(t, 0.822, raw.PearsonR.Float64, 0.001)
	assert.NotEqual(t, raw.PearsonR.Float64, logged.PearsonR.Float64)
}

func TestCorrelations_CountColumnsOptional(t *testing.T) {
	noCounts := []output.ValidationRow{
		validationRow(10, 1), validationRow(20, 2), validationRow(30, 3),
	}
	out := Correlations(noCounts, 1.0)
	for _, r := range out {
		assert.NotEqual(t, "unstranded", r.Y, "no raw-count comparisons without counts")
	}

	withCounts := make([]output.ValidationRow, len(noCounts))
	copy(withCounts, noCounts)
	for i := range withCounts {
		withCounts[i].Unstranded = output.NullFloat(float64(100 * (i + 1)))
	}
	out = Correlations(withCounts, 1.0)
	counts := findCorrelation(t, out, "ALT_EXPR vs unstranded", "none")
	assert.Equal(t, 3, counts.N)
	findCorrelation(t, out, "ALT_EXPR vs unstranded", TransformLog10)
}

func TestCorrelations_ExpressedOnlySubset(t *testing.T) {
	rows := []output.ValidationRow{
		validationRow(10, 0.1), validationRow(20, 0.2),
		validationRow(30, 3), validationRow(40, 4), validationRow(50, 5),
	}

	out := Correlations(rows, 1.0)
	expr := findCorrelation(t, out, "ALT_EXPR vs OBSERVED_TPM (expressed only)", "none")
	assert.Equal(t, 3, expr.N, "only genes with TPM >= 1")
}

func TestCorrelations_ExpressedOnlyOmittedWhenSparse(t *testing.T) {
	rows := []output.ValidationRow{
		validationRow(10, 0.1), validationRow(20, 0.2),
		validationRow(30, 3), validationRow(40, 4),
	}

	out := Correlations(rows, 1.0)
	for _, r := range out {
		assert.NotContains(t, r.Comparison, "expressed only",
			"fewer than three expressed genes")
	}
}

func TestRanks(t *testing.T) {
	assert.Equal(t, []float64{3, 1.5, 4, 1.5, 5}, ranks([]float64{3, 1, 4, 1, 5}))
	assert.Equal(t, []float64{1, 2, 3}, ranks([]float64{10, 20, 30}))
	assert.Equal(t, []float64{2, 2, 2}, ranks([]float64{7, 7, 7}))
}

func TestPValue(t *testing.T) {
	// Perfect correlation pins the p-value to zero.
	assert.Equal(t, 0.0, pValue(1.0, 10))
	assert.Equal(t, 0.0, pValue(-1.0, 10))

	// r=0.5, n=10: t = 1.633 on 8 degrees of freedom.
	assert.InDelta(t, 0.141, pValue(0.5, 10), 0.005)

	// No correlation: p = 1.
	assert.InDelta(t, 1.0, pValue(0.0, 10), 1e-9)
}
