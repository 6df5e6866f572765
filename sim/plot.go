package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// NewStepPlot creates new plot of the simulation from the trace columns:
// setpoint:  reference rate
// rate:      true plant rate
// estimate:  estimated rate
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * trace is nil
// * trace has less than 2 samples
// * gonum plot fails to be created
func NewStepPlot(t *Trace) (*plot.Plot, error) {
	if t == nil {
		return nil, fmt.Errorf("invalid trace supplied")
	}

	if t.Len() < 2 {
		return nil, fmt.Errorf("invalid trace length: %d", t.Len())
	}

	p := plot.New()

	p.Title.Text = "Step response"
	p.X.Label.Text = "time [s]"
	p.Y.Label.Text = "rate"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	for _, l := range []struct {
		name  string
		col   int
		color color.Color
		dash  []vg.Length
	}{
		{name: "setpoint", col: Setpoint, color: color.RGBA{R: 169, G: 169, B: 169, A: 255}, dash: []vg.Length{vg.Points(4), vg.Points(2)}},
		{name: "rate", col: Rate, color: color.RGBA{R: 255, B: 128, A: 255}},
		{name: "estimate", col: EstRate, color: color.RGBA{G: 160, A: 255}},
	} {
		line, err := plotter.NewLine(makePoints(t, l.col))
		if err != nil {
			return nil, fmt.Errorf("failed to create line: %v", err)
		}
		line.LineStyle.Color = l.color
		line.LineStyle.Width = vg.Points(1)
		line.LineStyle.Dashes = l.dash

		p.Add(line)
		p.Legend.Add(l.name, line)
	}

	p.Add(plotter.NewGrid())

	return p, nil
}

// NewCommandPlot creates new plot of the issued command over time.
// It returns error if trace is nil or has less than 2 samples.
func NewCommandPlot(t *Trace) (*plot.Plot, error) {
	if t == nil || t.Len() < 2 {
		return nil, fmt.Errorf("invalid trace supplied")
	}

	p := plot.New()

	p.Title.Text = "Command"
	p.X.Label.Text = "time [s]"
	p.Y.Label.Text = "u"

	scatter, err := plotter.NewScatter(makePoints(t, Command))
	if err != nil {
		return nil, fmt.Errorf("failed to create scatter: %v", err)
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	scatter.Shape = draw.CrossGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(1)

	p.Add(scatter)

	return p, nil
}

func makePoints(t *Trace, col int) plotter.XYs {
	n := t.Len()
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i].X = t.data.At(i, Time)
		pts[i].Y = t.data.At(i, col)
	}

	return pts
}
