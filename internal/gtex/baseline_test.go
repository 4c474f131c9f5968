package gtex

import (
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/neovex/internal/duckdb"
)

func newTestFetcher(srv *httptest.Server) *Fetcher {
	f := NewFetcher(newTestClient(srv))
	f.SetDelay(0)
	return f
}

func openStore(t *testing.T) *duckdb.Store {
	t.Helper()
	s, err := duckdb.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBaselineTPM(t *testing.T) {
	found := Baseline{MedianTPM: 14.25, Outcome: Found}
	assert.InDelta(t, 14.25, found.TPM(), 1e-9)

	assert.True(t, math.IsNaN(Baseline{MedianTPM: 14.25, Outcome: NotFound}.TPM()))
	assert.True(t, math.IsNaN(Baseline{Outcome: Failed}.TPM()))
}

func TestFetchAll(t *testing.T) {
	var calls atomic.Int32
	f := newTestFetcher(portalServer(t, &calls))

	out := f.FetchAll([]string{"ENSG00000133703", "ENSG00000999999"}, "Lung")
	require.Len(t, out, 2)

	kras := out["ENSG00000133703"]
	assert.Equal(t, Found, kras.Outcome)
	assert.Equal(t, "ENSG00000133703.13", kras.GencodeID)
	assert.InDelta(t, 14.25, kras.MedianTPM, 1e-9)

	assert.Equal(t, NotFound, out["ENSG00000999999"].Outcome)
}

func TestFetchAll_DeduplicatesAndDropsBlank(t *testing.T) {
	var calls atomic.Int32
	f := newTestFetcher(portalServer(t, &calls))

	out := f.FetchAll([]string{
		"ENSG00000133703", "ENSG00000133703", "", ".", "ENSG00000133703",
	}, "Lung")
	require.Len(t, out, 1)
	// One resolve plus one expression call for the single unique gene.
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchAll_CacheReuse(t *testing.T) {
	var calls atomic.Int32
	srv := portalServer(t, &calls)
	store := openStore(t)

	f := newTestFetcher(srv)
	f.SetStore(store, 0)
	out := f.FetchAll([]string{"ENSG00000133703"}, "Lung")
	require.Equal(t, Found, out["ENSG00000133703"].Outcome)
	apiCalls := calls.Load()
	require.Greater(t, apiCalls, int32(0))

	// A fresh fetcher over the same store answers without the portal.
	f2 := newTestFetcher(srv)
	f2.SetStore(store, 0)
	out = f2.FetchAll([]string{"ENSG00000133703"}, "Lung")
	require.Equal(t, Found, out["ENSG00000133703"].Outcome)
	assert.InDelta(t, 14.25, out["ENSG00000133703"].MedianTPM, 1e-9)
	assert.Equal(t, apiCalls, calls.Load(), "cached baseline must not hit the portal")
}

func TestFetchAll_NegativeResultCached(t *testing.T) {
	var calls atomic.Int32
	srv := portalServer(t, &calls)
	store := openStore(t)

	f := newTestFetcher(srv)
	f.SetStore(store, 0)
	out := f.FetchAll([]string{"ENSG00000999999"}, "Lung")
	require.Equal(t, NotFound, out["ENSG00000999999"].Outcome)
	apiCalls := calls.Load()

	out = f.FetchAll([]string{"ENSG00000999999"}, "Lung")
	assert.Equal(t, NotFound, out["ENSG00000999999"].Outcome)
	assert.Equal(t, apiCalls, calls.Load(), "negative answers are cached too")
}

func TestFetchAll_FailureNotCached(t *testing.T) {
	var healthy atomic.Bool
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !healthy.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/reference/gene":
			w.Write([]byte(`{"data":[{"gencodeId":"ENSG00000133703.13"}]}`))
		case "/expression/medianGeneExpression":
			w.Write([]byte(`{"data":[{"median":14.25}]}`))
		}
	}))
	t.Cleanup(srv.Close)
	store := openStore(t)

	f := newTestFetcher(srv)
	f.SetStore(store, 0)
	out := f.FetchAll([]string{"ENSG00000133703"}, "Lung")
	require.Equal(t, Failed, out["ENSG00000133703"].Outcome)

	// Once the portal recovers, the gene is fetched rather than served
	// from a cached failure.
	healthy.Store(true)
	out = f.FetchAll([]string{"ENSG00000133703"}, "Lung")
	assert.Equal(t, Found, out["ENSG00000133703"].Outcome)
}

func TestFetchAll_StaleCacheRefetched(t *testing.T) {
	var calls atomic.Int32
	srv := portalServer(t, &calls)
	store := openStore(t)

	require.NoError(t, store.UpsertBaseline(duckdb.BaselineRow{
		GeneID: "ENSG00000133703", Tissue: "Lung",
		GencodeID: "ENSG00000133703.13", MedianTPM: 99.0, Found: true,
		FetchedAt: time.Now().UTC().Add(-48 * time.Hour),
	}))

	f := newTestFetcher(srv)
	f.SetStore(store, 24*time.Hour)
	out := f.FetchAll([]string{"ENSG00000133703"}, "Lung")

	require.Equal(t, Found, out["ENSG00000133703"].Outcome)
	assert.InDelta(t, 14.25, out["ENSG00000133703"].MedianTPM, 1e-9,
		"stale entry must be refetched from the portal")
	assert.Greater(t, calls.Load(), int32(0))
}
