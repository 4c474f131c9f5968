// Package output reads and writes the pipeline's tabular artifacts: the raw
// prediction and scored TSVs, the validation and comparison CSVs, console
// summaries, and the Excel report.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// VariantKey identifies one variant call across pipeline stages.
type VariantKey struct {
	Chrom string
	Pos   int64
	Ref   string
	Alt   string
}

// Prediction is one raw expression-prediction row.
type Prediction struct {
	Chrom   string
	Pos     int64
	Ref     string
	Alt     string
	Gene    string  // first-transcript gene symbol, "." when unannotated
	GeneID  string  // first-transcript gene id, version-stripped
	RefExpr float64 // aggregate predicted signal, reference allele
	AltExpr float64 // aggregate predicted signal, alternate allele
}

// Key returns the variant identity of the row.
func (p Prediction) Key() VariantKey {
	return VariantKey{Chrom: p.Chrom, Pos: p.Pos, Ref: p.Ref, Alt: p.Alt}
}

var predictionColumns = []string{
	"CHROM", "POS", "REF", "ALT", "GENE", "GENE_ID", "REF_EXPR", "ALT_EXPR",
}

// PredictionWriter writes raw predictions in tab-delimited format.
type PredictionWriter struct {
	w *bufio.Writer
}

// NewPredictionWriter creates a writer that writes to w.
func NewPredictionWriter(w io.Writer) *PredictionWriter {
	return &PredictionWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the column header line.
func (pw *PredictionWriter) WriteHeader() error {
	_, err := pw.w.WriteString(strings.Join(predictionColumns, "\t") + "\n")
	return err
}

// Write writes a single prediction row.
func (pw *PredictionWriter) Write(p Prediction) error {
	values := []string{
		p.Chrom,
		strconv.FormatInt(p.Pos, 10),
		p.Ref,
		p.Alt,
		p.Gene,
		p.GeneID,
		strconv.FormatFloat(p.RefExpr, 'f', 6, 64),
		strconv.FormatFloat(p.AltExpr, 'f', 6, 64),
	}
	_, err := pw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes buffered rows to the underlying writer.
func (pw *PredictionWriter) Flush() error {
	return pw.w.Flush()
}

// ReadPredictions loads a raw predictions TSV written by PredictionWriter.
// An empty file yields no rows.
func ReadPredictions(path string) ([]Prediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open predictions: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read predictions: %w", err)
		}
		return nil, nil
	}

	cols, err := columnIndex(scanner.Text(), predictionColumns)
	if err != nil {
		return nil, fmt.Errorf("predictions %s: %w", path, err)
	}

	var rows []Prediction
	line := 1
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")

		p := Prediction{
			Chrom:  field(fields, cols, "CHROM"),
			Ref:    field(fields, cols, "REF"),
			Alt:    field(fields, cols, "ALT"),
			Gene:   field(fields, cols, "GENE"),
			GeneID: field(fields, cols, "GENE_ID"),
		}
		p.Pos, err = strconv.ParseInt(field(fields, cols, "POS"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("predictions line %d: invalid POS %q", line, field(fields, cols, "POS"))
		}
		p.RefExpr, err = strconv.ParseFloat(field(fields, cols, "REF_EXPR"), 64)
		if err != nil {
			return nil, fmt.Errorf("predictions line %d: invalid REF_EXPR %q", line, field(fields, cols, "REF_EXPR"))
		}
		p.AltExpr, err = strconv.ParseFloat(field(fields, cols, "ALT_EXPR"), 64)
		if err != nil {
			return nil, fmt.Errorf("predictions line %d: invalid ALT_EXPR %q", line, field(fields, cols, "ALT_EXPR"))
		}
		rows = append(rows, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read predictions: %w", err)
	}
	return rows, nil
}

// ReadCheckpoint returns the variant keys already present in a predictions
// or scored TSV, for resuming interrupted runs. A missing file yields an
// empty set; a corrupt one an error so the caller can start fresh.
func ReadCheckpoint(path string) (map[VariantKey]bool, error) {
	done := make(map[VariantKey]bool)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return done, nil
		}
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "CHROM") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			continue
		}
		pos, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("checkpoint %s: invalid position %q", path, fields[1])
		}
		done[VariantKey{Chrom: fields[0], Pos: pos, Ref: fields[2], Alt: fields[3]}] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	return done, nil
}

// columnIndex maps header names to their positions, verifying that all
// required columns are present.
func columnIndex(header string, required []string) (map[string]int, error) {
	cols := make(map[string]int)
	for i, name := range strings.Split(header, "\t") {
		cols[name] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %s", name)
		}
	}
	return cols, nil
}

// field returns the named column's value, or "" when the row is short.
func field(fields []string, cols map[string]int, name string) string {
	i := cols[name]
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}
