// Package score converts raw expression predictions into biological calls:
// log2 fold-change, expression status, and vaccine-target priority. Scoring
// is pure computation over lookups built once, so it can be re-run freely
// while tuning thresholds without touching the prediction service.
package score

// Thresholds carries the classification cutoffs. Values are fixed at
// construction and never mutated, so one value may be shared across workers.
type Thresholds struct {
	Gain         float64 // log2 FC above which expression is gained (strict)
	Loss         float64 // log2 FC below which expression is lost (strict)
	TPMExpressed float64 // TPM at or above which a gene counts as expressed
	VAFClonal    float64 // VAF at or above which a variant counts as clonal
}

// DefaultThresholds returns the standard cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Gain:         1.0,
		Loss:         -1.0,
		TPMExpressed: 1.0,
		VAFClonal:    0.2,
	}
}
