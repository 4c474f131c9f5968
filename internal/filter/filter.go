// Package filter implements the somatic-variant admission filter. Variants
// survive only when they pass call quality, carry an alternate allele in the
// tumor sample, and have a consequence of a target impact level on a gene
// expressed in the patient's RNA-seq.
package filter

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/neovex/internal/csq"
	"github.com/inodb/neovex/internal/vcf"
)

// DefaultTumorSample is the sample column consulted for somatic genotypes.
const DefaultTumorSample = "TUMOR"

// progressInterval controls how often kept-variant progress is logged.
const progressInterval = 100

// DefaultImpacts returns the default target impact set.
func DefaultImpacts() map[string]bool {
	return map[string]bool{csq.ImpactHigh: true}
}

// ParseImpactList parses a comma-separated impact list into a set. Members
// are trimmed and uppercased but never validated; a stray comma yields an
// empty-string member that simply matches nothing.
func ParseImpactList(s string) map[string]bool {
	impacts := make(map[string]bool)
	for _, member := range strings.Split(s, ",") {
		impacts[strings.ToUpper(strings.TrimSpace(member))] = true
	}
	return impacts
}

// Filter decides which variants are admitted for expression prediction.
type Filter struct {
	impacts     map[string]bool
	genes       map[string]bool
	tumorSample string
	logger      *zap.Logger
}

// New creates a filter for the given target impact set and expressed-gene
// set. An empty gene set is permitted and rejects every variant at the
// annotation-match stage rather than failing.
func New(impacts, genes map[string]bool) *Filter {
	return &Filter{
		impacts:     impacts,
		genes:       genes,
		tumorSample: DefaultTumorSample,
		logger:      zap.NewNop(),
	}
}

// SetTumorSample overrides the sample name used for the somatic stage.
func (f *Filter) SetTumorSample(name string) {
	f.tumorSample = name
}

// SetLogger sets the logger for progress messages.
func (f *Filter) SetLogger(logger *zap.Logger) {
	f.logger = logger
}

// Admit reports whether a variant passes all three stages, short-circuiting
// on the first failure. tumorIdx is the 0-based sample column index of the
// tumor.
func (f *Filter) Admit(v *vcf.Variant, tumorIdx int) bool {
	if !v.IsPass() {
		return false
	}
	if !v.HasAltAllele(tumorIdx) {
		return false
	}
	return len(f.Matches(v)) > 0
}

// Matches returns the CSQ transcripts whose impact is in the target set and
// whose stripped gene id is in the expressed-gene set. One matching
// transcript keeps the whole variant, whatever the others say.
func (f *Filter) Matches(v *vcf.Variant) []csq.Transcript {
	raw, _ := v.InfoString(csq.Key)

	var matches []csq.Transcript
	for _, t := range csq.Parse(raw) {
		if f.impacts[t.Impact] && f.genes[t.GeneIDStripped] {
			matches = append(matches, t)
		}
	}
	return matches
}

// Stats summarizes one filtering pass.
type Stats struct {
	Scanned int
	Kept    int
}

// Run streams variants from the parser and writes admitted records to the
// writer verbatim, preserving input order.
func (f *Filter) Run(p *vcf.Parser, w *vcf.Writer) (Stats, error) {
	var stats Stats

	tumorIdx, ok := p.SampleIndex(f.tumorSample)
	if !ok {
		return stats, fmt.Errorf("sample %q not found in VCF header", f.tumorSample)
	}

	for {
		v, err := p.Next()
		if err != nil {
			return stats, fmt.Errorf("read variant: %w", err)
		}
		if v == nil {
			break
		}
		stats.Scanned++

		if !f.Admit(v, tumorIdx) {
			continue
		}
		if err := w.Write(v); err != nil {
			return stats, err
		}
		stats.Kept++

		if stats.Kept%progressInterval == 0 {
			f.logger.Info("filtering progress",
				zap.Int("kept", stats.Kept),
				zap.Int("scanned", stats.Scanned))
		}
	}

	return stats, nil
}
