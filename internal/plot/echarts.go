package plot

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/trackframe/internal/pipeline"
)

// RenderTrackHTML writes an interactive east/north scatter of the run to w.
// Points are coloured by their up value so altitude excursions stand out.
func RenderTrackHTML(w io.Writer, res *pipeline.Result) error {
	if len(res.Points) == 0 {
		return fmt.Errorf("no points to plot")
	}

	data := make([]opts.ScatterData, 0, len(res.Points))
	maxAbs := 0.0
	minUp, maxUp := math.Inf(1), math.Inf(-1)
	for _, pt := range res.Points {
		x, y, z := pt.Aligned.X, pt.Aligned.Y, pt.Aligned.Z
		if math.Abs(x) > maxAbs {
			maxAbs = math.Abs(x)
		}
		if math.Abs(y) > maxAbs {
			maxAbs = math.Abs(y)
		}
		if z < minUp {
			minUp = z
		}
		if z > maxUp {
			maxUp = z
		}
		data = append(data, opts.ScatterData{Value: []interface{}{x, y, z}})
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if maxUp == minUp {
		maxUp = minUp + 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Track", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Aligned Track",
			Subtitle: fmt.Sprintf("run=%s ellipsoid=%s points=%d", res.RunID, res.Ellipsoid, len(res.Points)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "East (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "North (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minUp),
			Max:        float32(maxUp),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#b5de2b", "#fde725"}},
		}),
	)

	scatter.AddSeries("track", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
