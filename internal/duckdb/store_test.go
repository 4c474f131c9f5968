package duckdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/neovex/internal/output"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func krasPrediction() output.Prediction {
	return output.Prediction{
		Chrom: "12", Pos: 25245351, Ref: "C", Alt: "A",
		Gene: "KRAS", GeneID: "ENSG00000133703",
		RefExpr: 1523.481203, AltExpr: 1601.207731,
	}
}

func tp53Prediction() output.Prediction {
	return output.Prediction{
		Chrom: "17", Pos: 7675088, Ref: "C", Alt: "T",
		Gene: "TP53", GeneID: "ENSG00000141510",
		RefExpr: 880.5, AltExpr: 0.0,
	}
}

// --- Prediction cache tests ---

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

func TestWriteAndLookupPredictions(t *testing.T) {
	s := openInMemory(t)

	n, err := s.WritePredictions("UBERON:0002048", []output.Prediction{
		krasPrediction(), tp53Prediction(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, ok, err := s.LookupPrediction("UBERON:0002048", krasPrediction().Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "KRAS", p.Gene)
	assert.Equal(t, "ENSG00000133703", p.GeneID)
	assert.InDelta(t, 1523.481203, p.RefExpr, 1e-9)
	assert.InDelta(t, 1601.207731, p.AltExpr, 1e-9)

	_, ok, err = s.LookupPrediction("UBERON:0002048",
		output.VariantKey{Chrom: "12", Pos: 99999, Ref: "C", Alt: "A"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWritePredictions_SkipsCached(t *testing.T) {
	s := openInMemory(t)

	n, err := s.WritePredictions("UBERON:0002048", []output.Prediction{krasPrediction()})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Same key again plus one new row: only the new row lands.
	n, err = s.WritePredictions("UBERON:0002048", []output.Prediction{
		krasPrediction(), tp53Prediction(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	keys, err := s.PredictionKeys("UBERON:0002048")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestWritePredictions_InBatchDuplicates(t *testing.T) {
	s := openInMemory(t)

	n, err := s.WritePredictions("UBERON:0002048", []output.Prediction{
		krasPrediction(), krasPrediction(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWritePredictions_Empty(t *testing.T) {
	s := openInMemory(t)

	n, err := s.WritePredictions("UBERON:0002048", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPredictions_TissueScoped(t *testing.T) {
	s := openInMemory(t)

	_, err := s.WritePredictions("UBERON:0002048", []output.Prediction{krasPrediction()})
	require.NoError(t, err)

	// Same variant, different tissue: a separate cache entry.
	_, ok, err := s.LookupPrediction("UBERON:0002367", krasPrediction().Key())
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.WritePredictions("UBERON:0002367", []output.Prediction{krasPrediction()})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestClearPredictions(t *testing.T) {
	s := openInMemory(t)

	_, err := s.WritePredictions("UBERON:0002048", []output.Prediction{krasPrediction()})
	require.NoError(t, err)
	_, err = s.WritePredictions("UBERON:0002367", []output.Prediction{tp53Prediction()})
	require.NoError(t, err)

	require.NoError(t, s.ClearPredictions("UBERON:0002048"))

	keys, err := s.PredictionKeys("UBERON:0002048")
	require.NoError(t, err)
	assert.Empty(t, keys)

	// Other tissues are untouched.
	keys, err = s.PredictionKeys("UBERON:0002367")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

// --- GTEx baseline cache tests ---

func TestUpsertAndLookupBaseline(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.UpsertBaseline(BaselineRow{
		GeneID: "ENSG00000133703", Tissue: "Lung",
		GencodeID: "ENSG00000133703.13", MedianTPM: 14.25, Found: true,
	}))

	row, ok, err := s.LookupBaseline("ENSG00000133703", "Lung", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ENSG00000133703.13", row.GencodeID)
	assert.InDelta(t, 14.25, row.MedianTPM, 1e-9)
	assert.True(t, row.Found)
	assert.False(t, row.FetchedAt.IsZero())

	_, ok, err = s.LookupBaseline("ENSG00000999999", "Lung", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsertBaseline_Replaces(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.UpsertBaseline(BaselineRow{
		GeneID: "ENSG00000141510", Tissue: "Lung", Found: false,
	}))
	require.NoError(t, s.UpsertBaseline(BaselineRow{
		GeneID: "ENSG00000141510", Tissue: "Lung",
		GencodeID: "ENSG00000141510.18", MedianTPM: 21.6, Found: true,
	}))

	row, ok, err := s.LookupBaseline("ENSG00000141510", "Lung", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, row.Found)
	assert.InDelta(t, 21.6, row.MedianTPM, 1e-9)
}

func TestLookupBaseline_NotFoundCached(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.UpsertBaseline(BaselineRow{
		GeneID: "ENSG00000999999", Tissue: "Lung", Found: false,
	}))

	row, ok, err := s.LookupBaseline("ENSG00000999999", "Lung", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, row.Found)
}

func TestLookupBaseline_MaxAge(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.UpsertBaseline(BaselineRow{
		GeneID: "ENSG00000133703", Tissue: "Lung",
		MedianTPM: 14.25, Found: true,
		FetchedAt: time.Now().UTC().Add(-48 * time.Hour),
	}))

	_, ok, err := s.LookupBaseline("ENSG00000133703", "Lung", 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "stale entry must be treated as absent")

	_, ok, err = s.LookupBaseline("ENSG00000133703", "Lung", 72*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = s.LookupBaseline("ENSG00000133703", "Lung", 0)
	require.NoError(t, err)
	assert.True(t, ok, "zero maxAge disables the age check")
}
