package output

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/guregu/null.v3"
)

func TestWriteReport(t *testing.T) {
	scored := sampleScored()
	unknowns := sampleScored()
	unknowns.Pos = 7675088
	unknowns.VAF = math.NaN()
	unknowns.ObservedTPM = math.NaN()

	comparison := []ComparisonRow{
		{Gene: "KRAS", GeneID: "ENSG00000133703",
			ObservedTPM: null.FloatFrom(15.5), GtexTPM: null.FloatFrom(3.2),
			TumourVsGtexRatio: null.FloatFrom(4.84),
			SilencingClass:    "tumour over-expression", Log2FC: 0.0719,
			VAF: null.FloatFrom(0.433), VaccinePriority: "HIGH"},
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteReport(path, []ScoredVariant{scored, unknowns}, comparison))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{scoredSheet, comparisonSheet}, f.GetSheetList())

	header, err := f.GetCellValue(scoredSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "CHROM", header)

	gene, err := f.GetCellValue(scoredSheet, "E2")
	require.NoError(t, err)
	assert.Equal(t, "KRAS", gene)

	// Unknown VAF is an empty cell, not a textual marker
	vaf, err := f.GetCellValue(scoredSheet, "K3")
	require.NoError(t, err)
	assert.Equal(t, "", vaf)

	class, err := f.GetCellValue(comparisonSheet, "F2")
	require.NoError(t, err)
	assert.Equal(t, "tumour over-expression", class)
}

func TestWriteReport_NoComparison(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteReport(path, []ScoredVariant{sampleScored()}, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{scoredSheet}, f.GetSheetList())
}
