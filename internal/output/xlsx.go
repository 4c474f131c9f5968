package output

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"
	"gopkg.in/guregu/null.v3"
)

// Sheet names in the report workbook.
const (
	scoredSheet     = "Scored Variants"
	comparisonSheet = "GTEx Comparison"
)

// WriteReport writes an Excel workbook holding the scored variants and,
// when rows are provided, the GTEx comparison on a second sheet.
func WriteReport(path string, scored []ScoredVariant, comparison []ComparisonRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", scoredSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSheetHeader(f, scoredSheet, scoredColumns); err != nil {
		return err
	}
	for i, v := range scored {
		row := []interface{}{
			v.Chrom, v.Pos, v.Ref, v.Alt, v.Gene, v.GeneID,
			v.RefExpr, v.AltExpr, v.Log2FC, v.Status,
			floatCell(v.VAF), floatCell(v.ObservedTPM),
			v.Expressed, v.NMDFlag, v.VaccinePriority,
		}
		if err := f.SetSheetRow(scoredSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write scored row %d: %w", i+1, err)
		}
	}

	if len(comparison) > 0 {
		if _, err := f.NewSheet(comparisonSheet); err != nil {
			return fmt.Errorf("create comparison sheet: %w", err)
		}
		if err := writeSheetHeader(f, comparisonSheet, comparisonColumns); err != nil {
			return err
		}
		for i, c := range comparison {
			row := []interface{}{
				c.Gene, c.GeneID,
				nullCell(c.ObservedTPM), nullCell(c.GtexTPM), nullCell(c.TumourVsGtexRatio),
				c.SilencingClass, c.Log2FC, nullCell(c.VAF), c.NMDFlag, c.VaccinePriority,
			}
			if err := f.SetSheetRow(comparisonSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
				return fmt.Errorf("write comparison row %d: %w", i+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func writeSheetHeader(f *excelize.File, sheet string, columns []string) error {
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	return nil
}

// floatCell renders unknown values as empty cells.
func floatCell(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func nullCell(n null.Float) interface{} {
	if !n.Valid {
		return nil
	}
	return n.Float64
}
