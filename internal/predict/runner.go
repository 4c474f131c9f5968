package predict

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/neovex/internal/csq"
	"github.com/inodb/neovex/internal/duckdb"
	"github.com/inodb/neovex/internal/output"
	"github.com/inodb/neovex/internal/vcf"
)

// DefaultRateLimit is the pause between consecutive API calls.
const DefaultRateLimit = 500 * time.Millisecond

// Runner walks a filtered VCF, scores each passing variant through the
// prediction client, and streams rows to a TSV. Rows are flushed one at a
// time so an interrupted run can resume from the file, and a DuckDB store,
// when present, serves previously fetched variants without an API call.
type Runner struct {
	client    *Client
	store     *duckdb.Store
	tissue    string
	rateLimit time.Duration
	logger    *zap.Logger
}

// Stats summarizes one prediction run.
type Stats struct {
	Total   int // eligible variants in the VCF
	Saved   int // fetched from the API this run
	Cached  int // served from the DuckDB store
	Skipped int // already present in the output from a previous run
	Errors  int // variants that failed after all retries
}

// NewRunner creates a Runner for the given client and tissue term.
func NewRunner(client *Client, tissue string) *Runner {
	return &Runner{
		client:    client,
		tissue:    tissue,
		rateLimit: DefaultRateLimit,
		logger:    zap.NewNop(),
	}
}

// SetStore attaches a DuckDB cache. Without one every variant goes to the
// API.
func (r *Runner) SetStore(s *duckdb.Store) {
	r.store = s
}

// SetRateLimit overrides the pause between API calls.
func (r *Runner) SetRateLimit(d time.Duration) {
	r.rateLimit = d
}

// SetLogger replaces the default no-op logger.
func (r *Runner) SetLogger(l *zap.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Run predicts expression for every passing variant in the VCF and writes
// the rows to outPath. With resume set, variants already present in
// outPath are kept and skipped; otherwise the file is truncated. Variants
// that fail after all retries are logged and left out so one bad call
// cannot sink an overnight run.
func (r *Runner) Run(p *vcf.Parser, outPath string, resume bool) (Stats, error) {
	var stats Stats

	done := make(map[output.VariantKey]bool)
	if resume {
		var err error
		done, err = output.ReadCheckpoint(outPath)
		if err != nil {
			r.logger.Warn("checkpoint unreadable, starting fresh", zap.Error(err))
			done = make(map[output.VariantKey]bool)
		}
	}
	appendMode := len(done) > 0

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(outPath, flags, 0644)
	if err != nil {
		return stats, fmt.Errorf("open output: %w", err)
	}
	defer f.Close()

	w := output.NewPredictionWriter(f)
	if !appendMode {
		if err := w.WriteHeader(); err != nil {
			return stats, fmt.Errorf("write header: %w", err)
		}
	}

	var cached map[output.VariantKey]bool
	if r.store != nil {
		cached, err = r.store.PredictionKeys(r.tissue)
		if err != nil {
			r.logger.Warn("prediction cache unavailable", zap.Error(err))
			cached = nil
		}
	}

	var fresh []output.Prediction
	for {
		v, err := p.Next()
		if err != nil {
			return stats, err
		}
		if v == nil {
			break
		}
		if !v.IsPass() {
			continue
		}
		alt := v.FirstAlt()
		if alt == "" || alt == "." {
			r.logger.Warn("variant has no alternate allele, skipping",
				zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos))
			continue
		}
		stats.Total++

		key := output.VariantKey{Chrom: v.Chrom, Pos: v.Pos, Ref: v.Ref, Alt: alt}
		if done[key] {
			stats.Skipped++
			continue
		}

		raw, _ := v.InfoString(csq.Key)
		row := output.Prediction{
			Chrom:  v.Chrom,
			Pos:    v.Pos,
			Ref:    v.Ref,
			Alt:    alt,
			Gene:   csq.FirstGeneSymbol(raw),
			GeneID: csq.FirstGeneID(raw, true),
		}

		if cached[key] {
			hit, ok, err := r.store.LookupPrediction(r.tissue, key)
			if err != nil {
				r.logger.Warn("cache lookup failed", zap.Error(err))
			} else if ok {
				row.RefExpr = hit.RefExpr
				row.AltExpr = hit.AltExpr
				if err := r.writeRow(w, row); err != nil {
					return stats, err
				}
				stats.Cached++
				continue
			}
		}

		res, err := r.client.PredictVariant(Request{
			Chrom: v.Chrom, Pos: v.Pos, Ref: v.Ref, Alt: alt, Tissue: r.tissue,
		})
		if err != nil {
			stats.Errors++
			r.logger.Error("variant prediction failed",
				zap.String("chrom", v.Chrom),
				zap.Int64("pos", v.Pos),
				zap.Error(err))
			time.Sleep(r.rateLimit)
			continue
		}

		row.RefExpr = res.RefSum
		row.AltExpr = res.AltSum
		if err := r.writeRow(w, row); err != nil {
			return stats, err
		}
		fresh = append(fresh, row)
		stats.Saved++
		r.logger.Info("variant predicted",
			zap.String("chrom", row.Chrom),
			zap.Int64("pos", row.Pos),
			zap.String("gene", row.Gene),
			zap.Float64("ref_expr", row.RefExpr),
			zap.Float64("alt_expr", row.AltExpr))
		time.Sleep(r.rateLimit)
	}

	if r.store != nil && len(fresh) > 0 {
		if n, err := r.store.WritePredictions(r.tissue, fresh); err != nil {
			r.logger.Warn("saving predictions to cache failed", zap.Error(err))
		} else {
			r.logger.Info("predictions cached", zap.Int("rows", n))
		}
	}

	r.logger.Info("prediction run complete",
		zap.Int("total", stats.Total),
		zap.Int("saved", stats.Saved),
		zap.Int("cached", stats.Cached),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

// writeRow writes and flushes one row so progress survives a kill.
func (r *Runner) writeRow(w *output.PredictionWriter, row output.Prediction) error {
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write prediction: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush prediction: %w", err)
	}
	return nil
}
