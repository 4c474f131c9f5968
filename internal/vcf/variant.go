// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"math"
	"strconv"
	"strings"
)

// Variant represents a single genomic variant from a VCF file.
type Variant struct {
	Chrom   string            // Chromosome name (e.g., "12", "chr12")
	Pos     int64             // 1-based genomic position
	ID      string            // Variant identifier (e.g., rs ID)
	Ref     string            // Reference allele
	Alt     string            // Alternate allele(s), comma-separated as written
	Qual    float64           // Quality score
	Filter  string            // Filter status (PASS, ".", or failing filter names)
	Info    map[string]string // INFO key/value pairs; flag keys map to ""
	Format  []string          // FORMAT column keys, nil if no sample columns
	Samples [][]string        // per-sample values, each parallel to Format
	Raw     string            // verbatim source line without trailing newline
}

// IsPass reports whether the variant passed all filters.
// Both "PASS" and the missing value "." count as passing.
func (v *Variant) IsPass() bool {
	return v.Filter == "PASS" || v.Filter == "." || v.Filter == ""
}

// AltAlleles returns the individual alternate alleles.
func (v *Variant) AltAlleles() []string {
	if v.Alt == "" || v.Alt == "." {
		return nil
	}
	return strings.Split(v.Alt, ",")
}

// FirstAlt returns the first alternate allele, or "" if there is none.
// Multi-allelic sites beyond the first alternate are not processed separately.
func (v *Variant) FirstAlt() string {
	alts := v.AltAlleles()
	if len(alts) == 0 {
		return ""
	}
	return alts[0]
}

// InfoString returns the raw INFO value for key.
// The second return is false when the key is absent.
func (v *Variant) InfoString(key string) (string, bool) {
	val, ok := v.Info[key]
	return val, ok
}

// InfoFloat returns the first numeric INFO value for key.
// Comma-separated lists (Number=A fields like TLOD) yield their first entry.
func (v *Variant) InfoFloat(key string) (float64, bool) {
	val, ok := v.Info[key]
	if !ok || val == "" {
		return 0, false
	}
	if i := strings.IndexByte(val, ','); i >= 0 {
		val = val[:i]
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// SampleValue returns the raw value of a FORMAT field for the given sample.
// The second return is false when the field or sample is absent.
func (v *Variant) SampleValue(field string, sample int) (string, bool) {
	if sample < 0 || sample >= len(v.Samples) {
		return "", false
	}
	for i, key := range v.Format {
		if key != field {
			continue
		}
		if i >= len(v.Samples[sample]) {
			return "", false
		}
		return v.Samples[sample][i], true
	}
	return "", false
}

// SampleFloats parses a comma-separated numeric FORMAT field for the given
// sample (e.g. AF, which carries one value per alternate allele).
// Returns nil when the field or sample is absent; entries that do not parse
// (the missing value ".") become NaN.
func (v *Variant) SampleFloats(field string, sample int) []float64 {
	raw, ok := v.SampleValue(field, sample)
	if !ok || raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	vals := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			f = math.NaN()
		}
		vals[i] = f
	}
	return vals
}

// Genotype returns the two allele indices of the given sample's GT field.
// 0 is the reference allele, n>=1 the nth alternate, -1 a missing allele.
// A haploid call yields (allele, -1); an absent GT field yields (-1, -1).
func (v *Variant) Genotype(sample int) (int, int) {
	raw, ok := v.SampleValue("GT", sample)
	if !ok || raw == "" {
		return -1, -1
	}

	// GT separators are "/" (unphased) or "|" (phased); phasing is irrelevant here.
	sep := strings.IndexAny(raw, "/|")
	if sep < 0 {
		return parseAllele(raw), -1
	}
	return parseAllele(raw[:sep]), parseAllele(raw[sep+1:])
}

func parseAllele(s string) int {
	if s == "" || s == "." {
		return -1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// HasAltAllele reports whether the given sample carries at least one
// alternate allele. Missing alleles do not count.
func (v *Variant) HasAltAllele(sample int) bool {
	a, b := v.Genotype(sample)
	return a > 0 || b > 0
}

// GenotypeString renders the sample's genotype as "a/b" allele indices,
// with "." for each missing allele.
func (v *Variant) GenotypeString(sample int) string {
	a, b := v.Genotype(sample)
	return formatAllele(a) + "/" + formatAllele(b)
}

func formatAllele(n int) string {
	if n < 0 {
		return "."
	}
	return strconv.Itoa(n)
}
