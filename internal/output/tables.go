package output

import (
	"fmt"
	"math"
	"os"

	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"
)

// NullFloat converts a NaN-sentinel float into a nullable CSV cell.
func NullFloat(f float64) null.Float {
	if math.IsNaN(f) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// FloatOrNaN converts a nullable cell back into the NaN-sentinel form.
func FloatOrNaN(n null.Float) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

// ValidationRow is one scored variant joined with its RNA-seq evidence.
// Expression columns from the RNA table stay empty when the gene is absent.
type ValidationRow struct {
	Chrom           string     `csv:"CHROM"`
	Pos             int64      `csv:"POS"`
	Ref             string     `csv:"REF"`
	Alt             string     `csv:"ALT"`
	Gene            string     `csv:"GENE"`
	GeneID          string     `csv:"GENE_ID"`
	RefExpr         float64    `csv:"REF_EXPR"`
	AltExpr         float64    `csv:"ALT_EXPR"`
	Log2FC          float64    `csv:"LOG2_FC"`
	Status          string     `csv:"STATUS"`
	VAF             null.Float `csv:"VAF"`
	ObservedTPM     null.Float `csv:"OBSERVED_TPM"`
	Expressed       bool       `csv:"EXPRESSED"`
	NMDFlag         bool       `csv:"NMD_FLAG"`
	VaccinePriority string     `csv:"VACCINE_PRIORITY"`
	Unstranded      null.Float `csv:"unstranded"`
	FPKMUnstranded  null.Float `csv:"fpkm_unstranded"`
}

// CorrelationRow is one predicted-versus-observed comparison. Statistics
// stay empty when fewer than three paired values were available.
type CorrelationRow struct {
	Comparison  string     `csv:"comparison"`
	X           string     `csv:"x"`
	Y           string     `csv:"y"`
	Transform   string     `csv:"transform"`
	N           int        `csv:"n"`
	PearsonR    null.Float `csv:"pearson_r"`
	PearsonP    null.Float `csv:"pearson_p"`
	SpearmanRho null.Float `csv:"spearman_rho"`
	SpearmanP   null.Float `csv:"spearman_p"`
}

// ComparisonRow is one gene's tumor expression against its GTEx baseline.
type ComparisonRow struct {
	Gene              string     `csv:"GENE"`
	GeneID            string     `csv:"GENE_ID"`
	ObservedTPM       null.Float `csv:"OBSERVED_TPM"`
	GtexTPM           null.Float `csv:"GTEX_TPM"`
	TumourVsGtexRatio null.Float `csv:"TUMOUR_VS_GTEX_RATIO"`
	SilencingClass    string     `csv:"SILENCING_CLASS"`
	Log2FC            float64    `csv:"LOG2_FC"`
	VAF               null.Float `csv:"VAF"`
	NMDFlag           bool       `csv:"NMD_FLAG"`
	VaccinePriority   string     `csv:"VACCINE_PRIORITY"`
}

// comparisonColumns mirrors the ComparisonRow csv tags for the Excel report.
var comparisonColumns = []string{
	"GENE", "GENE_ID", "OBSERVED_TPM", "GTEX_TPM", "TUMOUR_VS_GTEX_RATIO",
	"SILENCING_CLASS", "LOG2_FC", "VAF", "NMD_FLAG", "VACCINE_PRIORITY",
}

// WriteValidationTable writes the per-variant validation table CSV.
func WriteValidationTable(path string, rows []ValidationRow) error {
	return writeCSV(path, &rows)
}

// ReadValidationTable loads a validation table CSV.
func ReadValidationTable(path string) ([]ValidationRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open validation table: %w", err)
	}
	defer f.Close()

	var rows []ValidationRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse validation table: %w", err)
	}
	return rows, nil
}

// WriteCorrelations writes the correlation summary CSV.
func WriteCorrelations(path string, rows []CorrelationRow) error {
	return writeCSV(path, &rows)
}

// WriteComparison writes the GTEx comparison CSV.
func WriteComparison(path string, rows []ComparisonRow) error {
	return writeCSV(path, &rows)
}

// ReadComparison loads a GTEx comparison CSV.
func ReadComparison(path string) ([]ComparisonRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gtex comparison: %w", err)
	}
	defer f.Close()

	var rows []ComparisonRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse gtex comparison: %w", err)
	}
	return rows, nil
}

func writeCSV(path string, rows interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
