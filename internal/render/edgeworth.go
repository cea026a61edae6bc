package render

import (
	"fmt"
	"image/color"
	"io"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/MikeSquared-Agency/Edgeworth/internal/economy"
)

var (
	colorA       = color.RGBA{R: 255, G: 165, A: 255}
	colorB       = color.RGBA{B: 255, A: 255}
	colorLens    = color.NRGBA{R: 128, G: 128, B: 128, A: 128}
	colorBox     = color.Black
	colorMarkerA = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	colorMarkerB = color.RGBA{G: 130, B: 60, A: 255}
)

// Formats accepted by Figure.Render.
var Formats = []string{"png", "svg", "pdf"}

// Options selects what goes into the box.
type Options struct {
	Title     string
	Grid      economy.Grid
	Dictators bool
	Solver    economy.SolverOptions
}

// DefaultOptions draws both dictator allocations on the default grid.
func DefaultOptions() Options {
	return Options{
		Title:     "Edgeworth box",
		Grid:      economy.DefaultGrid(),
		Dictators: true,
		Solver:    economy.DefaultSolverOptions(),
	}
}

// Figure is a drawn Edgeworth box. Legend lists the merged legend labels in
// the order they appear: A's entries first, then B's.
type Figure struct {
	Plot   *plot.Plot
	Legend []string
}

type entry struct {
	label string
	thumb plot.Thumbnailer
}

// EdgeworthBox draws the economy in A's coordinates. B's curve is mapped with
// (1-x1B, 1-x2B).
func EdgeworthBox(m *economy.Model, opts Options) (*Figure, error) {
	if opts.Grid.Points == 0 {
		opts.Grid = economy.DefaultGrid()
	}
	par := m.Params()

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "x1A"
	p.Y.Label.Text = "x2A"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	box, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}})
	if err != nil {
		return nil, fmt.Errorf("box outline: %w", err)
	}
	box.LineStyle.Color = colorBox
	box.LineStyle.Width = vg.Points(1.5)
	p.Add(box)

	set, err := m.ImprovementSet(opts.Grid)
	if err != nil {
		return nil, fmt.Errorf("improvement set: %w", err)
	}
	if set.Len() > 1 {
		poly, err := plotter.NewPolygon(lensOutline(set))
		if err != nil {
			return nil, fmt.Errorf("improvement set polygon: %w", err)
		}
		poly.Color = colorLens
		poly.LineStyle.Width = 0
		p.Add(poly)
	}

	var sideA, sideB []entry

	curveA, err := m.IndifferenceCurveA(par.W1A, par.W2A, opts.Grid)
	if err != nil {
		return nil, fmt.Errorf("indifference curve A: %w", err)
	}
	lineA, err := curveLine(curveA.X1, curveA.X2, colorA)
	if err != nil {
		return nil, err
	}
	p.Add(lineA)
	sideA = append(sideA, entry{"A", lineA})

	endowment := par.EndowmentA()
	endow, err := marker(endowment, color.Black, draw.CircleGlyph{})
	if err != nil {
		return nil, err
	}
	p.Add(endow)
	sideA = append(sideA, entry{"endowment", endow})

	wB := par.EndowmentB()
	curveB, err := m.IndifferenceCurveB(wB.X1, wB.X2, opts.Grid)
	if err != nil {
		return nil, fmt.Errorf("indifference curve B: %w", err)
	}
	xs := make([]float64, curveB.Len())
	ys := make([]float64, curveB.Len())
	for i := range xs {
		xs[i], ys[i] = 1-curveB.X1[i], 1-curveB.X2[i]
	}
	lineB, err := curveLine(xs, ys, colorB)
	if err != nil {
		return nil, err
	}
	p.Add(lineB)
	sideB = append(sideB, entry{"B", lineB})

	if opts.Dictators {
		resA, err := m.SolveDictatorA(opts.Solver)
		if err != nil {
			return nil, fmt.Errorf("dictator A: %w", err)
		}
		mA, err := marker(resA.Bundle, colorMarkerA, draw.TriangleGlyph{})
		if err != nil {
			return nil, err
		}
		p.Add(mA)
		sideA = append(sideA, entry{"dictator A", mA})

		resB, err := m.SolveDictatorB(opts.Solver)
		if err != nil {
			return nil, fmt.Errorf("dictator B: %w", err)
		}
		// B's bundle is drawn where A holds the rest.
		mB, err := marker(resB.Other, colorMarkerB, draw.SquareGlyph{})
		if err != nil {
			return nil, err
		}
		p.Add(mB)
		sideB = append(sideB, entry{"dictator B", mB})
	}

	fig := &Figure{Plot: p}
	for _, e := range append(sideA, sideB...) {
		p.Legend.Add(e.label, e.thumb)
		fig.Legend = append(fig.Legend, e.label)
	}
	p.Legend.Left = true
	p.Legend.Top = false
	p.Legend.Padding = vg.Points(4)

	return fig, nil
}

// Render writes the figure in the given format.
func (f *Figure) Render(w io.Writer, format string, width, height vg.Length) error {
	format = strings.ToLower(format)
	if !ValidFormat(format) {
		return fmt.Errorf("unsupported format %q", format)
	}
	wt, err := f.Plot.WriterTo(width, height, format)
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// ValidFormat reports whether format is one of Formats.
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == strings.ToLower(format) {
			return true
		}
	}
	return false
}

// ContentType maps a format to its MIME type.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "png":
		return "image/png"
	case "pdf":
		return "application/pdf"
	}
	return "image/svg+xml"
}

func lensOutline(set *economy.ImprovementSet) plotter.XYs {
	n := set.Len()
	pts := make(plotter.XYs, 0, 2*n)
	for i := 0; i < n; i++ {
		pts = append(pts, plotter.XY{X: set.X1[i], Y: set.Lower[i]})
	}
	for i := n - 1; i >= 0; i-- {
		pts = append(pts, plotter.XY{X: set.X1[i], Y: set.Upper[i]})
	}
	return pts
}

func curveLine(xs, ys []float64, c color.Color) (*plotter.Line, error) {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("curve: %w", err)
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(1.5)
	return l, nil
}

func marker(b economy.Bundle, c color.Color, shape draw.GlyphDrawer) (*plotter.Scatter, error) {
	s, err := plotter.NewScatter(plotter.XYs{{X: b.X1, Y: b.X2}})
	if err != nil {
		return nil, fmt.Errorf("marker: %w", err)
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Shape = shape
	s.GlyphStyle.Radius = vg.Points(4)
	return s, nil
}
