package validate

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/inodb/neovex/internal/output"
)

// ScatterPlot writes a predicted-versus-observed scatter to path, one
// point per row with a known TPM, both axes log10(x+1). The format
// follows the file extension.
func ScatterPlot(path string, rows []output.ValidationRow) error {
	pts := make(plotter.XYs, 0, len(rows))
	for _, row := range rows {
		tpm := output.FloatOrNaN(row.ObservedTPM)
		if math.IsNaN(tpm) {
			continue
		}
		pts = append(pts, plotter.XY{
			X: math.Log10(row.AltExpr + 1),
			Y: math.Log10(tpm + 1),
		})
	}
	if len(pts) == 0 {
		return fmt.Errorf("no rows with observed TPM to plot")
	}

	p := plot.New()
	p.Title.Text = "Predicted vs observed expression"
	p.X.Label.Text = "log10(ALT_EXPR + 1)"
	p.Y.Label.Text = "log10(OBSERVED_TPM + 1)"
	p.Add(plotter.NewGrid())

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("build scatter: %w", err)
	}
	s.GlyphStyle.Radius = vg.Points(2)
	p.Add(s)

	if err := p.Save(15*vg.Centimeter, 12*vg.Centimeter, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
