package score

import (
	"math"

	"go.uber.org/zap"

	"github.com/inodb/neovex/internal/output"
	"github.com/inodb/neovex/internal/vcf"
)

// Scorer turns predictions into scored variants using the configured
// thresholds, an observed-TPM lookup, and a VCF facts index. A Scorer with
// empty lookups still scores; TPM and VAF simply come out as NaN.
type Scorer struct {
	thresholds Thresholds
	tpm        map[string]float64
	index      Index
	logger     *zap.Logger
}

// NewScorer returns a Scorer with the given thresholds and no lookups.
func NewScorer(t Thresholds) *Scorer {
	return &Scorer{
		thresholds: t,
		logger:     zap.NewNop(),
	}
}

// SetLogger replaces the default no-op logger.
func (s *Scorer) SetLogger(l *zap.Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetTPMLookup installs the observed-expression table, keyed by
// version-stripped gene ID.
func (s *Scorer) SetTPMLookup(tpm map[string]float64) {
	s.tpm = tpm
}

// SetIndex installs the VCF facts index.
func (s *Scorer) SetIndex(idx Index) {
	s.index = idx
}

// LoadIndex builds the facts index from a filtered VCF and installs it.
func (s *Scorer) LoadIndex(path string, tumor TumorSample) error {
	p, err := vcf.NewParser(path)
	if err != nil {
		return err
	}
	defer p.Close()

	idx, err := BuildIndex(p, tumor)
	if err != nil {
		return err
	}
	s.index = idx
	s.logger.Info("loaded variant facts from VCF",
		zap.String("path", path),
		zap.Int("variants", len(idx)))
	return nil
}

// ObservedTPM looks up the measured expression for a version-stripped gene
// ID, NaN when the gene is absent.
func (s *Scorer) ObservedTPM(geneID string) float64 {
	if tpm, ok := s.tpm[geneID]; ok {
		return tpm
	}
	return math.NaN()
}

// Score computes the full scored record for one prediction.
func (s *Scorer) Score(p output.Prediction) output.ScoredVariant {
	log2FC := ComputeLog2FC(p.RefExpr, p.AltExpr)
	facts, ok := s.index[p.Key()]
	if !ok {
		facts = Facts{VAF: math.NaN()}
	}
	tpm := s.ObservedTPM(p.GeneID)

	return output.ScoredVariant{
		Prediction:      p,
		Log2FC:          log2FC,
		Status:          s.thresholds.Classify(log2FC),
		VAF:             facts.VAF,
		ObservedTPM:     tpm,
		Expressed:       s.thresholds.Expressed(tpm),
		NMDFlag:         facts.NMD,
		VaccinePriority: s.thresholds.VaccinePriority(log2FC, tpm, facts.VAF, facts.NMD),
	}
}

// ScoreAll scores every prediction across a worker pool and hands results
// to fn in input order. workers <= 0 means one per CPU.
func (s *Scorer) ScoreAll(preds []output.Prediction, workers int, fn func(output.ScoredVariant) error) error {
	items := make(chan WorkItem, len(preds))
	for i, p := range preds {
		items <- WorkItem{Seq: i, Pred: p}
	}
	close(items)

	results := s.ParallelScore(items, workers)
	return OrderedCollect(results, func(r WorkResult) error {
		return fn(r.Scored)
	})
}
