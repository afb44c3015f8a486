// Package visualize renders the analysis charts as PNG files: tree locations
// colored by legal status, caretaker frequency bars, cross-validation metric
// curves, and feature importances.
package visualize

import (
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/grvsrm/sftrees/dataset"
	"github.com/grvsrm/sftrees/modelselection"
	sferrors "github.com/grvsrm/sftrees/pkg/errors"
)

// palette cycles for per-class series.
var palette = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
}

// ClassScatter plots xCol against yCol with one colored series per level of
// classCol. Rows with a missing coordinate are skipped.
func ClassScatter(t *dataset.Table, xCol, yCol, classCol, title string) (*plot.Plot, error) {
	x, err := t.Column(xCol)
	if err != nil {
		return nil, err
	}
	y, err := t.Column(yCol)
	if err != nil {
		return nil, err
	}
	class, err := t.Column(classCol)
	if err != nil {
		return nil, err
	}
	if x.Kind != dataset.Numeric || y.Kind != dataset.Numeric {
		return nil, sferrors.NewValueError("ClassScatter", "coordinate columns must be numeric")
	}
	if class.Kind != dataset.String {
		return nil, sferrors.NewValueError("ClassScatter", "class column must be a string column")
	}

	byClass := make(map[string]plotter.XYs)
	for i := 0; i < t.NumRows(); i++ {
		if x.IsMissing(i) || y.IsMissing(i) || class.IsMissing(i) {
			continue
		}
		level := class.Strs[i]
		byClass[level] = append(byClass[level], plotter.XY{X: x.Nums[i], Y: y.Nums[i]})
	}

	levels := make([]string, 0, len(byClass))
	for level := range byClass {
		levels = append(levels, level)
	}
	sort.Strings(levels)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xCol
	p.Y.Label.Text = yCol

	for i, level := range levels {
		scatter, err := plotter.NewScatter(byClass[level])
		if err != nil {
			return nil, sferrors.Wrapf(err, "scatter series %q", level)
		}
		scatter.GlyphStyle.Color = palette[i%len(palette)]
		scatter.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(scatter)
		p.Legend.Add(level, scatter)
	}
	p.Legend.Top = true

	return p, nil
}

// CategoryBars plots the count of each level of col, most frequent first,
// truncated to the topN levels. topN <= 0 keeps all levels.
func CategoryBars(t *dataset.Table, col, title string, topN int) (*plot.Plot, error) {
	levels, err := t.Levels(col)
	if err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return nil, sferrors.NewValueError("CategoryBars", "no observed levels to plot")
	}

	type levelCount struct {
		level string
		count int
	}
	counts := make([]levelCount, 0, len(levels))
	for level, n := range levels {
		counts = append(counts, levelCount{level, n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].level < counts[j].level
	})
	if topN > 0 && len(counts) > topN {
		counts = counts[:topN]
	}

	values := make(plotter.Values, len(counts))
	names := make([]string, len(counts))
	for i, lc := range counts {
		values[i] = float64(lc.count)
		names[i] = lc.level
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, sferrors.Wrap(err, "bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = palette[0]

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "count"
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = -0.6
	p.X.Tick.Label.XAlign = -0.8

	return p, nil
}

// TuningCurves plots the mean of the chosen metric against mtry, one line
// per min_n value. Candidates with no successful fold are skipped.
func TuningCurves(results []modelselection.CandidateResult, metric string) (*plot.Plot, error) {
	if metric != modelselection.MetricAccuracy && metric != modelselection.MetricROCAUC {
		return nil, sferrors.NewValueError("TuningCurves", "unknown metric "+metric)
	}

	byMinN := make(map[int]plotter.XYs)
	for _, r := range results {
		if r.Successes == 0 {
			continue
		}
		v := r.MeanROCAUC
		if metric == modelselection.MetricAccuracy {
			v = r.MeanAccuracy
		}
		byMinN[r.Candidate.MinN] = append(byMinN[r.Candidate.MinN],
			plotter.XY{X: float64(r.Candidate.Mtry), Y: v})
	}
	if len(byMinN) == 0 {
		return nil, sferrors.NewValueError("TuningCurves", "no successful candidates to plot")
	}

	minNs := make([]int, 0, len(byMinN))
	for minN := range byMinN {
		minNs = append(minNs, minN)
	}
	sort.Ints(minNs)

	p := plot.New()
	p.Title.Text = "Cross-validation results"
	p.X.Label.Text = "mtry"
	p.Y.Label.Text = metric

	for i, minN := range minNs {
		pts := byMinN[minN]
		sort.Slice(pts, func(a, b int) bool { return pts[a].X < pts[b].X })

		line, scatter, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, sferrors.Wrap(err, "tuning curve")
		}
		line.Color = palette[i%len(palette)]
		scatter.GlyphStyle.Color = palette[i%len(palette)]
		p.Add(line, scatter)
		p.Legend.Add("min_n="+strconv.Itoa(minN), line, scatter)
	}
	p.Legend.Top = true

	return p, nil
}

// ImportanceBars plots feature importances, largest first, truncated to the
// topN features. topN <= 0 keeps all features.
func ImportanceBars(names []string, importances []float64, topN int) (*plot.Plot, error) {
	if len(names) != len(importances) {
		return nil, sferrors.NewDimensionError("ImportanceBars", len(names), len(importances), 0)
	}
	if len(names) == 0 {
		return nil, sferrors.NewValueError("ImportanceBars", "no features to plot")
	}

	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if importances[order[a]] != importances[order[b]] {
			return importances[order[a]] > importances[order[b]]
		}
		return names[order[a]] < names[order[b]]
	})
	if topN > 0 && len(order) > topN {
		order = order[:topN]
	}

	values := make(plotter.Values, len(order))
	labels := make([]string, len(order))
	for i, idx := range order {
		values[i] = importances[idx]
		labels[i] = names[idx]
	}

	bars, err := plotter.NewBarChart(values, vg.Points(15))
	if err != nil {
		return nil, sferrors.Wrap(err, "importance chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = palette[2]

	p := plot.New()
	p.Title.Text = "Feature importance"
	p.Y.Label.Text = "mean decrease in impurity"
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = -0.6
	p.X.Tick.Label.XAlign = -0.8

	return p, nil
}

// SavePNG writes the plot to path, creating parent directories as needed.
func SavePNG(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return sferrors.Wrap(err, "create plot directory")
	}
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return sferrors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
