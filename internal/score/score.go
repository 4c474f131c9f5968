package score

import "math"

// Expression status labels.
const (
	StatusGain    = "Gain_of_Expression"
	StatusLoss    = "Loss_of_Expression"
	StatusNeutral = "Neutral"
)

// Vaccine priority tiers.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// epsilon guards the log2 ratio against zero expression sums.
const epsilon = 1e-9

// ComputeLog2FC returns log2((alt+eps)/(ref+eps)). Two exactly-zero sums
// mean the model saw no signal either way, which reports as 0.0 rather
// than the log of an epsilon ratio.
func ComputeLog2FC(refExpr, altExpr float64) float64 {
	if refExpr == 0 && altExpr == 0 {
		return 0.0
	}
	return math.Log2((altExpr + epsilon) / (refExpr + epsilon))
}

// Classify maps a log2 fold-change onto an expression status. Both cutoffs
// are strict: a value equal to the threshold stays Neutral.
func (t Thresholds) Classify(log2FC float64) string {
	switch {
	case log2FC > t.Gain:
		return StatusGain
	case log2FC < t.Loss:
		return StatusLoss
	default:
		return StatusNeutral
	}
}

// Expressed reports whether the observed TPM clears the expression cutoff.
// NaN (gene absent from the RNA table) is never expressed.
func (t Thresholds) Expressed(tpm float64) bool {
	return !math.IsNaN(tpm) && tpm >= t.TPMExpressed
}

// Clonal reports whether the variant allele fraction clears the clonality
// cutoff. NaN (no AF in the VCF) is never clonal.
func (t Thresholds) Clonal(vaf float64) bool {
	return !math.IsNaN(vaf) && vaf >= t.VAFClonal
}

// VaccinePriority ranks a scored variant as a vaccine target. NMD-tagged
// transcripts and lost expression disqualify outright; expressed and clonal
// variants rank highest; everything else lands in the middle, including
// variants where TPM or VAF is unknown.
func (t Thresholds) VaccinePriority(log2FC, tpm, vaf float64, nmd bool) string {
	if nmd || log2FC < t.Loss {
		return PriorityLow
	}
	if t.Expressed(tpm) && t.Clonal(vaf) {
		return PriorityHigh
	}
	return PriorityMedium
}
