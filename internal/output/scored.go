package output

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ScoredVariant is one fully scored pipeline row: a raw prediction enriched
// with fold-change classification and patient context. Unknown VAF and TPM
// values are NaN in memory and "." on disk.
type ScoredVariant struct {
	Prediction
	Log2FC          float64
	Status          string
	VAF             float64
	ObservedTPM     float64
	Expressed       bool
	NMDFlag         bool
	VaccinePriority string
}

var scoredColumns = []string{
	"CHROM", "POS", "REF", "ALT", "GENE", "GENE_ID",
	"REF_EXPR", "ALT_EXPR", "LOG2_FC", "STATUS",
	"VAF", "OBSERVED_TPM", "EXPRESSED", "NMD_FLAG", "VACCINE_PRIORITY",
}

// ScoredWriter writes scored variants in tab-delimited format.
type ScoredWriter struct {
	w *bufio.Writer
}

// NewScoredWriter creates a writer that writes to w.
func NewScoredWriter(w io.Writer) *ScoredWriter {
	return &ScoredWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the column header line.
func (sw *ScoredWriter) WriteHeader() error {
	_, err := sw.w.WriteString(strings.Join(scoredColumns, "\t") + "\n")
	return err
}

// Write writes a single scored row.
func (sw *ScoredWriter) Write(v ScoredVariant) error {
	values := []string{
		v.Chrom,
		strconv.FormatInt(v.Pos, 10),
		v.Ref,
		v.Alt,
		v.Gene,
		v.GeneID,
		strconv.FormatFloat(v.RefExpr, 'f', 6, 64),
		strconv.FormatFloat(v.AltExpr, 'f', 6, 64),
		strconv.FormatFloat(v.Log2FC, 'f', 4, 64),
		v.Status,
		formatMissing(v.VAF, 3),
		formatMissing(v.ObservedTPM, 2),
		strconv.FormatBool(v.Expressed),
		strconv.FormatBool(v.NMDFlag),
		v.VaccinePriority,
	}
	_, err := sw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes buffered rows to the underlying writer.
func (sw *ScoredWriter) Flush() error {
	return sw.w.Flush()
}

// formatMissing renders a float with fixed precision, or "." for NaN.
func formatMissing(f float64, prec int) string {
	if math.IsNaN(f) {
		return "."
	}
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// ReadScored loads a scored TSV written by ScoredWriter. The missing-value
// marker "." re-parses to NaN; booleans accept any strconv.ParseBool form.
func ReadScored(path string) ([]ScoredVariant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scored variants: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read scored variants: %w", err)
		}
		return nil, nil
	}

	cols, err := columnIndex(scanner.Text(), scoredColumns)
	if err != nil {
		return nil, fmt.Errorf("scored variants %s: %w", path, err)
	}

	var rows []ScoredVariant
	line := 1
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")

		v := ScoredVariant{
			Prediction: Prediction{
				Chrom:  field(fields, cols, "CHROM"),
				Ref:    field(fields, cols, "REF"),
				Alt:    field(fields, cols, "ALT"),
				Gene:   field(fields, cols, "GENE"),
				GeneID: field(fields, cols, "GENE_ID"),
			},
			Status:          field(fields, cols, "STATUS"),
			VaccinePriority: field(fields, cols, "VACCINE_PRIORITY"),
		}

		v.Pos, err = strconv.ParseInt(field(fields, cols, "POS"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("scored variants line %d: invalid POS %q", line, field(fields, cols, "POS"))
		}
		floats := []struct {
			name string
			dst  *float64
		}{
			{"REF_EXPR", &v.RefExpr},
			{"ALT_EXPR", &v.AltExpr},
			{"LOG2_FC", &v.Log2FC},
			{"VAF", &v.VAF},
			{"OBSERVED_TPM", &v.ObservedTPM},
		}
		for _, fl := range floats {
			*fl.dst, err = parseMissing(field(fields, cols, fl.name))
			if err != nil {
				return nil, fmt.Errorf("scored variants line %d: invalid %s %q", line, fl.name, field(fields, cols, fl.name))
			}
		}
		bools := []struct {
			name string
			dst  *bool
		}{
			{"EXPRESSED", &v.Expressed},
			{"NMD_FLAG", &v.NMDFlag},
		}
		for _, b := range bools {
			*b.dst, err = strconv.ParseBool(field(fields, cols, b.name))
			if err != nil {
				return nil, fmt.Errorf("scored variants line %d: invalid %s %q", line, b.name, field(fields, cols, b.name))
			}
		}

		rows = append(rows, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read scored variants: %w", err)
	}
	return rows, nil
}

// parseMissing parses a float cell where "." or "" means unknown.
func parseMissing(s string) (float64, error) {
	if s == "." || s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
