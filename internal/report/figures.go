package report

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/camillabonomo02/CSS-project/internal/dataset"
	"github.com/camillabonomo02/CSS-project/internal/model"
)

const rollingWindow = 7

var bandColor = color.RGBA{R: 120, G: 160, B: 220, A: 90}

// RollingMean smooths a series with a centered window, averaging whatever
// falls inside the window near the edges. Nil values are skipped.
func RollingMean(vals []*float64, window int) []float64 {
	half := window / 2
	out := make([]float64, len(vals))
	for i := range vals {
		sum, n := 0.0, 0
		for j := i - half; j <= i+half; j++ {
			if j < 0 || j >= len(vals) || vals[j] == nil {
				continue
			}
			sum += *vals[j]
			n++
		}
		if n > 0 {
			out[i] = sum / float64(n)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// timeSeriesFigure draws the 7-day rolling mean of each target over the year.
func timeSeriesFigure(path string, rows []dataset.TemporalRow, targets []string) error {
	p := plot.New()
	p.Title.Text = "Mobility change, 7-day rolling mean"
	p.X.Label.Text = "date"
	p.Y.Label.Text = "% change from baseline"
	p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 2006"}

	for ti, target := range targets {
		vals := make([]*float64, len(rows))
		for i, row := range rows {
			v, err := row.Mobility(target)
			if err != nil {
				return err
			}
			vals[i] = v
		}
		smooth := RollingMean(vals, rollingWindow)
		var xys plotter.XYs
		for i, row := range rows {
			if math.IsNaN(smooth[i]) {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(row.Date.Unix()), Y: smooth[i]})
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("time series line for %s: %w", target, err)
		}
		line.Color = plotutil.Color(ti)
		p.Add(line)
		p.Legend.Add(target, line)
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

// BinnedMeans averages y within nBins even bins of x, returning bin centers
// and means for the non-empty bins in x order.
func BinnedMeans(x, y []float64, nBins int) (centers, means []float64) {
	if len(x) == 0 || nBins < 1 {
		return nil, nil
	}
	lo, hi := x[0], x[0]
	for _, v := range x {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []float64{lo}, []float64{meanOf(y)}
	}
	width := (hi - lo) / float64(nBins)
	sums := make([]float64, nBins)
	counts := make([]int, nBins)
	for i, v := range x {
		b := int((v - lo) / width)
		if b >= nBins {
			b = nBins - 1
		}
		sums[b] += y[i]
		counts[b]++
	}
	for b := 0; b < nBins; b++ {
		if counts[b] == 0 {
			continue
		}
		centers = append(centers, lo+width*(float64(b)+0.5))
		means = append(means, sums[b]/float64(counts[b]))
	}
	return centers, means
}

// tempScatterFigure draws the target against daily maximum temperature with
// binned means overlaid.
func tempScatterFigure(path string, rows []dataset.TemporalRow, target string) error {
	var xs, ys []float64
	for _, row := range rows {
		v, err := row.Mobility(target)
		if err != nil {
			return err
		}
		if v == nil || row.TempMax == nil {
			continue
		}
		xs = append(xs, *row.TempMax)
		ys = append(ys, *v)
	}
	if len(xs) == 0 {
		return fmt.Errorf("no complete rows for %s temperature figure", target)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs daily max temperature", target)
	p.X.Label.Text = "temp_max (°C)"
	p.Y.Label.Text = "% change from baseline"

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("temperature scatter for %s: %w", target, err)
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = color.RGBA{R: 150, G: 150, B: 150, A: 160}
	p.Add(scatter)

	centers, means := BinnedMeans(xs, ys, 10)
	binned := make(plotter.XYs, len(centers))
	for i := range centers {
		binned[i] = plotter.XY{X: centers[i], Y: means[i]}
	}
	line, err := plotter.NewLine(binned)
	if err != nil {
		return fmt.Errorf("binned means for %s: %w", target, err)
	}
	line.Color = plotutil.Color(0)
	line.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add("binned mean", line)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// rainComparisonFigure compares group means on dry, rainy and heavy-rain days.
func rainComparisonFigure(path string, rows []dataset.TemporalRow, target string) error {
	var dry, rain, heavy []float64
	for _, row := range rows {
		v, err := row.Mobility(target)
		if err != nil {
			return err
		}
		if v == nil || row.RainBinary == nil {
			continue
		}
		switch {
		case row.RainHeavy != nil && *row.RainHeavy == 1:
			heavy = append(heavy, *v)
		case *row.RainBinary == 1:
			rain = append(rain, *v)
		default:
			dry = append(dry, *v)
		}
	}
	if len(dry)+len(rain)+len(heavy) == 0 {
		return fmt.Errorf("no complete rows for %s rain figure", target)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s by precipitation group", target)
	p.Y.Label.Text = "mean % change from baseline"

	bars, err := plotter.NewBarChart(plotter.Values{meanOf(dry), meanOf(rain), meanOf(heavy)}, vg.Points(30))
	if err != nil {
		return fmt.Errorf("rain comparison for %s: %w", target, err)
	}
	bars.Color = plotutil.Color(1)
	p.Add(bars)
	p.NominalX("dry", "rain", "heavy rain")
	return p.Save(5*vg.Inch, 4*vg.Inch, path)
}

// indexHistogramFigure draws the distribution of station intermodality scores.
func indexHistogramFigure(path string, stations []StationIndex) error {
	if len(stations) == 0 {
		return fmt.Errorf("no stations for index histogram")
	}
	vals := make(plotter.Values, len(stations))
	for i, s := range stations {
		vals[i] = s.Index
	}
	p := plot.New()
	p.Title.Text = "Intermodality index distribution"
	p.X.Label.Text = "index"
	p.Y.Label.Text = "stations"

	hist, err := plotter.NewHist(vals, 16)
	if err != nil {
		return fmt.Errorf("index histogram: %w", err)
	}
	p.Add(hist)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// gamEffectFigure draws a partial-effect curve with its confidence band.
func gamEffectFigure(path string, curve *model.PartialCurve, target string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Smooth effect of %s on %s", curve.Name, target)
	p.X.Label.Text = curve.Name
	p.Y.Label.Text = "partial effect"

	// Band polygon: upper bound left to right, then lower bound back.
	band := make(plotter.XYs, 0, 2*len(curve.X))
	for i := range curve.X {
		band = append(band, plotter.XY{X: curve.X[i], Y: curve.Upper[i]})
	}
	for i := len(curve.X) - 1; i >= 0; i-- {
		band = append(band, plotter.XY{X: curve.X[i], Y: curve.Lower[i]})
	}
	poly, err := plotter.NewPolygon(band)
	if err != nil {
		return fmt.Errorf("confidence band for %s: %w", target, err)
	}
	poly.Color = bandColor
	poly.LineStyle.Width = 0
	p.Add(poly)

	fit := make(plotter.XYs, len(curve.X))
	for i := range curve.X {
		fit[i] = plotter.XY{X: curve.X[i], Y: curve.Fit[i]}
	}
	line, err := plotter.NewLine(fit)
	if err != nil {
		return fmt.Errorf("effect curve for %s: %w", target, err)
	}
	line.Width = vg.Points(2)
	line.Color = plotutil.Color(0)
	p.Add(line)
	p.Legend.Add("fit with 95% band", line)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// stationMapFigure draws stations at their coordinates, glyph size scaled by
// intermodality index.
func stationMapFigure(path string, rows []dataset.SpatialRow, index map[string]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("no stations for map figure")
	}
	maxIdx := 0.0
	for _, v := range index {
		maxIdx = math.Max(maxIdx, v)
	}

	p := plot.New()
	p.Title.Text = "Stations by intermodality index"
	p.X.Label.Text = "longitude"
	p.Y.Label.Text = "latitude"

	// One scatter per size class keeps the legend readable.
	classes := []struct {
		label string
		lo    float64
		hi    float64
	}{
		{"low", 0, 1.0 / 3.0},
		{"mid", 1.0 / 3.0, 2.0 / 3.0},
		{"high", 2.0 / 3.0, math.Inf(1)},
	}
	for ci, cl := range classes {
		var pts plotter.XYs
		for _, row := range rows {
			frac := 0.0
			if maxIdx > 0 {
				frac = index[row.StationID] / maxIdx
			}
			if frac >= cl.lo && frac < cl.hi {
				pts = append(pts, plotter.XY{X: row.Lon, Y: row.Lat})
			}
		}
		if len(pts) == 0 {
			continue
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("station map class %s: %w", cl.label, err)
		}
		scatter.GlyphStyle.Radius = vg.Points(2 + 2*float64(ci))
		scatter.GlyphStyle.Color = plotutil.Color(ci)
		p.Add(scatter)
		p.Legend.Add(cl.label, scatter)
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

// silhouetteFigure draws the mean silhouette per candidate k.
func silhouetteFigure(path string, scores map[int]float64, chosen int) error {
	if len(scores) == 0 {
		return fmt.Errorf("no silhouette scores to plot")
	}
	ks := make([]int, 0, len(scores))
	for k := range scores {
		ks = append(ks, k)
	}
	sort.Ints(ks)

	vals := make(plotter.Values, len(ks))
	labels := make([]string, len(ks))
	for i, k := range ks {
		vals[i] = scores[k]
		labels[i] = fmt.Sprintf("%d", k)
		if k == chosen {
			labels[i] += "*"
		}
	}

	p := plot.New()
	p.Title.Text = "Mean silhouette by k (* = chosen)"
	p.X.Label.Text = "k"
	p.Y.Label.Text = "mean silhouette"

	bars, err := plotter.NewBarChart(vals, vg.Points(25))
	if err != nil {
		return fmt.Errorf("silhouette bars: %w", err)
	}
	bars.Color = plotutil.Color(2)
	p.Add(bars)
	p.NominalX(labels...)
	return p.Save(5*vg.Inch, 4*vg.Inch, path)
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}
