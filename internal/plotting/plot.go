// Package plotting renders a PMF with error bars to PNG using gonum/plot.
package plotting

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"forcepmf/core/pmf"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Options controls the figure.
type Options struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length // default 6 in
	Height vg.Length // default 4 in
	DPI    int       // default 150
}

func (o Options) withDefaults() Options {
	if o.XLabel == "" {
		o.XLabel = "extension (nm)"
	}
	if o.YLabel == "" {
		o.YLabel = "PMF (kT)"
	}
	if o.Width == 0 {
		o.Width = 6 * vg.Inch
	}
	if o.Height == 0 {
		o.Height = 4 * vg.Inch
	}
	if o.DPI == 0 {
		o.DPI = 150
	}
	return o
}

// ErrNothingToPlot is returned when a profile has no defined bins.
var ErrNothingToPlot = errors.New("plotting: profile has no defined points")

// pmfPoints carries x, F and the symmetric error for plotter.YErrorBars.
type pmfPoints struct {
	plotter.XYs
	plotter.YErrors
}

// points uses the percentile band for the error bars when the profile has one.
func points(p *pmf.Profile) pmfPoints {
	var pts pmfPoints
	for i, b := range p.Bins {
		if !b.Defined || math.IsNaN(b.F) {
			continue
		}
		pts.XYs = append(pts.XYs, plotter.XY{X: b.Center, Y: b.F})
		lo, hi := b.DF, b.DF
		if p.Band != nil && i < len(p.Band.Low) {
			lo, hi = b.F-p.Band.Low[i], p.Band.High[i]-b.F
		}
		pts.YErrors = append(pts.YErrors, struct{ Low, High float64 }{nonNeg(lo), nonNeg(hi)})
	}
	return pts
}

func nonNeg(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// New builds the plot: a line through defined bins plus error bars.
// Undefined bins are gaps, not zeros.
func New(p *pmf.Profile, opts Options) (*plot.Plot, error) {
	opts = opts.withDefaults()
	pts := points(p)
	if len(pts.XYs) == 0 {
		return nil, ErrNothingToPlot
	}
	pl := plot.New()
	pl.Title.Text = opts.Title
	pl.X.Label.Text = opts.XLabel
	pl.Y.Label.Text = opts.YLabel
	pl.Title.TextStyle.Font.Size = vg.Points(14)
	pl.X.Label.TextStyle.Font.Size = vg.Points(12)
	pl.Y.Label.TextStyle.Font.Size = vg.Points(12)
	pl.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts.XYs)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(1.5)
	pl.Add(line)

	if hasErrors(pts.YErrors) {
		bars, err := plotter.NewYErrorBars(pts)
		if err != nil {
			return nil, err
		}
		bars.LineStyle.Width = vg.Points(1)
		bars.CapWidth = vg.Points(4)
		pl.Add(bars)
	}
	return pl, nil
}

func hasErrors(es plotter.YErrors) bool {
	for _, e := range es {
		if e.Low > 0 || e.High > 0 {
			return true
		}
	}
	return false
}

// WritePNG draws p onto a PNG canvas and writes it to w.
func WritePNG(w io.Writer, p *pmf.Profile, opts Options) error {
	opts = opts.withDefaults()
	pl, err := New(p, opts)
	if err != nil {
		return err
	}
	c := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(opts.DPI))
	pl.Draw(draw.New(c))
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return nil
}

// SavePNG writes the figure to path, creating parent directories.
func SavePNG(path string, p *pmf.Profile, opts Options) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := WritePNG(bw, p, opts); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
