package output

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"gopkg.in/guregu/null.v3"
)

// CorrelationSummary prints the correlation set as an aligned console table.
func CorrelationSummary(w io.Writer, rows []CorrelationRow) {
	fmt.Fprintf(w, "\nPredicted vs observed expression\n")
	fmt.Fprintf(w, "================================\n\n")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Comparison\tTransform\tN\tPearson r\tp\tSpearman rho\tp")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			row.Comparison,
			row.Transform,
			row.N,
			cell(row.PearsonR, 4),
			cell(row.PearsonP, 4),
			cell(row.SpearmanRho, 4),
			cell(row.SpearmanP, 4),
		)
	}
	tw.Flush()
}

// ComparisonSummary prints the GTEx comparison as an aligned console table
// followed by per-class counts.
func ComparisonSummary(w io.Writer, rows []ComparisonRow, tissue string) {
	fmt.Fprintf(w, "\nGTEx baseline comparison (%s)\n", tissue)
	fmt.Fprintf(w, "=============================\n\n")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Gene\tTumour TPM\tGTEx TPM\tTumour/GTEx\tClassification")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			row.Gene,
			cell(row.ObservedTPM, 2),
			cell(row.GtexTPM, 2),
			cell(row.TumourVsGtexRatio, 2),
			row.SilencingClass,
		)
	}
	tw.Flush()

	// Count classes in first-seen order so the summary is deterministic
	var order []string
	counts := make(map[string]int)
	for _, row := range rows {
		if counts[row.SilencingClass] == 0 {
			order = append(order, row.SilencingClass)
		}
		counts[row.SilencingClass]++
	}

	fmt.Fprintf(w, "\nClassification counts:\n")
	for _, class := range order {
		fmt.Fprintf(w, "  %-28s %d\n", class, counts[class])
	}
}

// cell renders a nullable float at fixed precision, "-" when unknown.
func cell(n null.Float, prec int) string {
	if !n.Valid {
		return "-"
	}
	return strconv.FormatFloat(n.Float64, 'f', prec, 64)
}
