// Package plot renders converted tracks: static PNGs for reports and an
// interactive HTML scatter for quick inspection in a browser.
package plot

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/trackframe/internal/pipeline"
)

// SaveTrackPNG writes an east/north ground-track plot to the given path. The
// axes share the same range so distances are not distorted.
func SaveTrackPNG(points []pipeline.TrackPoint, path string) error {
	if len(points) == 0 {
		return fmt.Errorf("no points to plot")
	}

	p := plot.New()
	p.Title.Text = "Ground Track"
	p.X.Label.Text = "East (m)"
	p.Y.Label.Text = "North (m)"

	xys := make(plotter.XYs, 0, len(points))
	maxAbs := 0.0
	for _, pt := range points {
		xys = append(xys, plotter.XY{X: pt.Aligned.X, Y: pt.Aligned.Y})
		if v := math.Abs(pt.Aligned.X); v > maxAbs {
			maxAbs = v
		}
		if v := math.Abs(pt.Aligned.Y); v > maxAbs {
			maxAbs = v
		}
	}

	line, pts, err := plotter.NewLinePoints(xys)
	if err != nil {
		return fmt.Errorf("failed to build track series: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line, pts)

	// Symmetric square axes with a little padding so edge points stay
	// visible.
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	p.X.Min, p.X.Max = -pad, pad
	p.Y.Min, p.Y.Max = -pad, pad

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save track plot: %w", err)
	}
	return nil
}

// SaveProfilePNG writes an up-axis profile over point sequence to the given
// path, useful for spotting altitude outliers in a converted track.
func SaveProfilePNG(points []pipeline.TrackPoint, path string) error {
	if len(points) == 0 {
		return fmt.Errorf("no points to plot")
	}

	p := plot.New()
	p.Title.Text = "Vertical Profile"
	p.X.Label.Text = "Point"
	p.Y.Label.Text = "Up (m)"

	xys := make(plotter.XYs, 0, len(points))
	for i, pt := range points {
		xys = append(xys, plotter.XY{X: float64(i), Y: pt.Aligned.Z})
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("failed to build profile series: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(14*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save profile plot: %w", err)
	}
	return nil
}
