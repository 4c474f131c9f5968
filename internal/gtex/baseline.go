package gtex

import (
	"math"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/inodb/neovex/internal/duckdb"
)

// DefaultDelay is the politeness pause after each portal round-trip.
const DefaultDelay = 300 * time.Millisecond

// Outcome distinguishes a resolved baseline from an absent one and from a
// lookup that failed outright.
type Outcome int

const (
	Found Outcome = iota
	NotFound
	Failed
)

// Baseline is the resolved population median for one gene.
type Baseline struct {
	GeneID    string
	GencodeID string
	MedianTPM float64
	Outcome   Outcome
}

// TPM returns the median as a NaN-sentinel value: NaN unless the baseline
// was found.
func (b Baseline) TPM() float64 {
	if b.Outcome != Found {
		return math.NaN()
	}
	return b.MedianTPM
}

// Fetcher resolves baselines for a set of genes, caching results in DuckDB
// when a store is attached. Negative portal answers are cached too; only
// failed lookups are retried on the next run.
type Fetcher struct {
	client *Client
	store  *duckdb.Store
	maxAge time.Duration
	delay  time.Duration
	logger *zap.Logger
}

// NewFetcher creates a Fetcher without a cache.
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{
		client: client,
		delay:  DefaultDelay,
		logger: zap.NewNop(),
	}
}

// SetStore attaches a DuckDB cache. Entries older than maxAge are
// refetched; maxAge <= 0 keeps them forever.
func (f *Fetcher) SetStore(s *duckdb.Store, maxAge time.Duration) {
	f.store = s
	f.maxAge = maxAge
}

// SetDelay overrides the politeness pause between portal calls.
func (f *Fetcher) SetDelay(d time.Duration) {
	f.delay = d
}

// SetLogger replaces the default no-op logger.
func (f *Fetcher) SetLogger(l *zap.Logger) {
	if l != nil {
		f.logger = l
	}
}

// FetchAll resolves a baseline per unique gene ID, blank IDs dropped.
func (f *Fetcher) FetchAll(geneIDs []string, tissue string) map[string]Baseline {
	ids := lo.Uniq(geneIDs)

	out := make(map[string]Baseline, len(ids))
	for _, id := range ids {
		if id == "" || id == "." {
			continue
		}
		out[id] = f.fetch(id, tissue)
	}

	return out
}

func (f *Fetcher) fetch(geneID, tissue string) Baseline {
	if f.store != nil {
		row, ok, err := f.store.LookupBaseline(geneID, tissue, f.maxAge)
		if err != nil {
			f.logger.Warn("baseline cache lookup failed", zap.Error(err))
		} else if ok {
			if !row.Found {
				return Baseline{GeneID: geneID, GencodeID: row.GencodeID, Outcome: NotFound}
			}
			return Baseline{
				GeneID:    geneID,
				GencodeID: row.GencodeID,
				MedianTPM: row.MedianTPM,
				Outcome:   Found,
			}
		}
	}

	b := f.fetchRemote(geneID, tissue)
	if f.store != nil && b.Outcome != Failed {
		err := f.store.UpsertBaseline(duckdb.BaselineRow{
			GeneID:    geneID,
			Tissue:    tissue,
			GencodeID: b.GencodeID,
			MedianTPM: b.MedianTPM,
			Found:     b.Outcome == Found,
		})
		if err != nil {
			f.logger.Warn("baseline cache write failed", zap.Error(err))
		}
	}
	return b
}

func (f *Fetcher) fetchRemote(geneID, tissue string) Baseline {
	defer time.Sleep(f.delay)

	gencodeID, ok, err := f.client.ResolveGencodeID(geneID)
	if err != nil {
		f.logger.Warn("gencode lookup failed",
			zap.String("gene_id", geneID), zap.Error(err))
		return Baseline{GeneID: geneID, Outcome: Failed}
	}
	if !ok {
		f.logger.Info("gene not in GTEx", zap.String("gene_id", geneID))
		return Baseline{GeneID: geneID, Outcome: NotFound}
	}

	tpm, ok, err := f.client.MedianExpression(gencodeID, tissue)
	if err != nil {
		f.logger.Warn("median expression lookup failed",
			zap.String("gene_id", geneID),
			zap.String("gencode_id", gencodeID),
			zap.Error(err))
		return Baseline{GeneID: geneID, GencodeID: gencodeID, Outcome: Failed}
	}
	if !ok {
		f.logger.Info("no expression record for tissue",
			zap.String("gencode_id", gencodeID),
			zap.String("tissue", tissue))
		return Baseline{GeneID: geneID, GencodeID: gencodeID, Outcome: NotFound}
	}

	return Baseline{
		GeneID:    geneID,
		GencodeID: gencodeID,
		MedianTPM: tpm,
		Outcome:   Found,
	}
}
