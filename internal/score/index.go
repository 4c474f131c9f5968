package score

import (
	"fmt"
	"math"

	"github.com/inodb/neovex/internal/csq"
	"github.com/inodb/neovex/internal/output"
	"github.com/inodb/neovex/internal/vcf"
)

// Facts holds the per-variant evidence scoring needs from the VCF that the
// prediction table does not carry.
type Facts struct {
	VAF float64 // tumor allele fraction, NaN when the sample has no AF
	NMD bool    // any annotated transcript is NMD-tagged
}

// Index maps variant coordinates to their VCF-derived facts.
type Index map[output.VariantKey]Facts

// TumorSample selects the tumor sample column, by name when Name is set,
// otherwise by position.
type TumorSample struct {
	Name  string
	Index int
}

// DefaultTumorSample returns the conventional tumor position in a paired
// normal/tumor VCF: the second sample column.
func DefaultTumorSample() TumorSample {
	return TumorSample{Index: 1}
}

func (t TumorSample) resolve(p *vcf.Parser) (int, error) {
	if t.Name == "" {
		return t.Index, nil
	}
	idx, ok := p.SampleIndex(t.Name)
	if !ok {
		return 0, fmt.Errorf("sample %q not found in VCF header", t.Name)
	}
	return idx, nil
}

// VAF extracts the tumor allele fraction from the AF format field. Absent
// or unparseable values come back as NaN.
func VAF(v *vcf.Variant, tumorIdx int) float64 {
	afs := v.SampleFloats("AF", tumorIdx)
	if len(afs) == 0 {
		return math.NaN()
	}
	return afs[0]
}

// BuildIndex reads a filtered VCF and collects the scoring facts for every
// passing variant with a concrete alternate allele. Keys use the first
// alternate allele to match the prediction table.
func BuildIndex(p *vcf.Parser, tumor TumorSample) (Index, error) {
	tumorIdx, err := tumor.resolve(p)
	if err != nil {
		return nil, err
	}

	idx := make(Index)
	for {
		v, err := p.Next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			break
		}
		if !v.IsPass() {
			continue
		}
		alt := v.FirstAlt()
		if alt == "" || alt == "." {
			continue
		}
		key := output.VariantKey{Chrom: v.Chrom, Pos: v.Pos, Ref: v.Ref, Alt: alt}
		raw, _ := v.InfoString(csq.Key)
		idx[key] = Facts{
			VAF: VAF(v, tumorIdx),
			NMD: csq.HasNMD(raw),
		}
	}
	return idx, nil
}
