// Package model fits the temporal regression suite: a penalized-spline
// additive model with GCV smoothing selection, an OLS baseline and log-link
// count models. All variants are reported side by side; nothing is
// auto-selected.
package model

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/camillabonomo02/CSS-project/internal/config"
	"github.com/camillabonomo02/CSS-project/internal/csvio"
	"github.com/camillabonomo02/CSS-project/internal/dataset"
)

// Output files under <processed>/model/.
const (
	SummaryFile      = "model_summary.csv"
	CoefficientsFile = "model_coefficients.csv"
)

// EffectFile names the partial-effect grid written for one target.
func EffectFile(target string) string {
	return fmt.Sprintf("gam_effect_%s.csv", target)
}

// Runner drives the model stage for every configured target.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

// fitInput is the complete-case design for one target: rows with weather and
// a non-nil response.
type fitInput struct {
	y       []float64
	tempMax []float64
	tempSq  []float64
	rain    []float64
	weekend []float64
	holiday []float64
}

type summaryRow struct {
	target, model, metric string
	value                 float64
}

type coefRow struct {
	target, model, term string
	estimate, stderr    float64
}

// Run reads the temporal table and fits the model suite per target. A
// degenerate input fails only that fit; the failure is logged and recorded,
// the stage continues.
func (r *Runner) Run() error {
	rows, err := dataset.ReadTemporal(filepath.Join(r.cfg.Paths.ProcessedDir, dataset.TemporalFile))
	if err != nil {
		return fmt.Errorf("model stage: %w", err)
	}

	outDir := filepath.Join(r.cfg.Paths.ProcessedDir, "model")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("model stage: %w", err)
	}

	var summaries []summaryRow
	var coefs []coefRow
	for _, target := range r.cfg.Model.Targets {
		in, err := completeCases(rows, target)
		if err != nil {
			return fmt.Errorf("model stage: target %s: %w", target, err)
		}
		r.logger.Info("fitting target", "target", target, "rows", len(in.y))

		s, c, err := r.fitGAM(target, in, outDir)
		if err != nil {
			r.logger.Warn("gam fit failed", "target", target, "error", err)
		} else {
			summaries = append(summaries, s...)
			coefs = append(coefs, c...)
		}

		s, c, err = r.fitOLS(target, in)
		if err != nil {
			r.logger.Warn("ols fit failed", "target", target, "error", err)
		} else {
			summaries = append(summaries, s...)
			coefs = append(coefs, c...)
		}

		s, c, err = r.fitCounts(target, in)
		if err != nil {
			r.logger.Warn("count fit failed", "target", target, "error", err)
		} else {
			summaries = append(summaries, s...)
			coefs = append(coefs, c...)
		}
	}
	if len(summaries) == 0 {
		return fmt.Errorf("model stage: no target produced a valid fit")
	}

	if err := writeSummary(filepath.Join(outDir, SummaryFile), summaries); err != nil {
		return fmt.Errorf("model stage: %w", err)
	}
	if err := writeCoefficients(filepath.Join(outDir, CoefficientsFile), coefs); err != nil {
		return fmt.Errorf("model stage: %w", err)
	}
	r.logger.Info("model stage done", "summaries", len(summaries), "coefficients", len(coefs))
	return nil
}

func completeCases(rows []dataset.TemporalRow, target string) (*fitInput, error) {
	in := &fitInput{}
	for _, row := range rows {
		yv, err := row.Mobility(target)
		if err != nil {
			return nil, err
		}
		if yv == nil || !row.HasWeather || row.TempMax == nil || row.TempMaxSq == nil || row.RainBinary == nil {
			continue
		}
		in.y = append(in.y, *yv)
		in.tempMax = append(in.tempMax, *row.TempMax)
		in.tempSq = append(in.tempSq, *row.TempMaxSq)
		in.rain = append(in.rain, *row.RainBinary)
		in.weekend = append(in.weekend, b2f(row.IsWeekend))
		in.holiday = append(in.holiday, b2f(row.IsHoliday))
	}
	return in, nil
}

func (r *Runner) fitGAM(target string, in *fitInput, outDir string) ([]summaryRow, []coefRow, error) {
	g, err := FitGAM(in.y,
		[]SmoothSpec{{Name: "temp_max", X: in.tempMax, DF: r.cfg.Model.SplineDF}},
		[]LinearSpec{
			{Name: "rain_binary", X: in.rain},
			{Name: "is_weekend", X: in.weekend},
			{Name: "is_holiday", X: in.holiday},
		},
		r.cfg.Model.LambdaGrid)
	if err != nil {
		return nil, nil, err
	}

	curve, err := g.PartialEffect("temp_max", r.cfg.Model.GridPoints)
	if err != nil {
		return nil, nil, err
	}
	if err := writeEffect(filepath.Join(outDir, EffectFile(target)), curve); err != nil {
		return nil, nil, err
	}

	sum := []summaryRow{
		{target, "gam", "n", float64(g.N())},
		{target, "gam", "lambda", g.Lambda()},
		{target, "gam", "gcv", g.GCV()},
		{target, "gam", "edf", g.EDF()},
		{target, "gam", "r2", g.R2()},
	}
	var coefs []coefRow
	for _, name := range []string{"rain_binary", "is_weekend", "is_holiday"} {
		est, se, err := g.Coef(name)
		if err != nil {
			return nil, nil, err
		}
		coefs = append(coefs, coefRow{target, "gam", name, est, se})
	}
	return sum, coefs, nil
}

func (r *Runner) fitOLS(target string, in *fitInput) ([]summaryRow, []coefRow, error) {
	names := []string{"temp_max", "temp_max_sq", "rain_binary", "is_weekend", "is_holiday"}
	cols := [][]float64{in.tempMax, in.tempSq, in.rain, in.weekend, in.holiday}
	res, err := FitOLS(in.y, names, cols)
	if err != nil {
		return nil, nil, err
	}
	sum := []summaryRow{
		{target, "ols", "n", float64(res.N)},
		{target, "ols", "r2", res.R2},
		{target, "ols", "adj_r2", res.AdjR2},
		{target, "ols", "sigma2", res.Sigma2},
	}
	coefs := make([]coefRow, 0, len(res.Names))
	for i, name := range res.Names {
		coefs = append(coefs, coefRow{target, "ols", name, res.Coef[i], res.StdErr[i]})
	}
	return sum, coefs, nil
}

// fitCounts refits on the baseline index 100 + pct, the mobility metric
// re-expressed as a non-negative activity level, so a log-link count family
// applies. Values below -100% cannot occur in the source data; if one does,
// the count fit is the only casualty.
func (r *Runner) fitCounts(target string, in *fitInput) ([]summaryRow, []coefRow, error) {
	counts := make([]float64, len(in.y))
	for i, v := range in.y {
		c := math.Round(100 + v)
		if c < 0 {
			return nil, nil, fmt.Errorf("baseline index negative (%g) at row %d, count family inapplicable", c, i)
		}
		counts[i] = c
	}
	names := []string{"temp_max", "rain_binary", "is_weekend", "is_holiday"}
	cols := [][]float64{in.tempMax, in.rain, in.weekend, in.holiday}

	pois, err := FitPoisson(counts, names, cols)
	if err != nil {
		return nil, nil, err
	}
	sum := []summaryRow{
		{target, "poisson", "n", float64(pois.N)},
		{target, "poisson", "deviance", pois.Deviance},
		{target, "poisson", "aic", pois.AIC},
		{target, "poisson", "overdispersion", pois.Overdispersion},
	}
	coefs := make([]coefRow, 0, 2*len(pois.Names))
	for i, name := range pois.Names {
		coefs = append(coefs, coefRow{target, "poisson", name, pois.Coef[i], pois.StdErr[i]})
	}

	nb, err := FitNegBinomial(counts, names, cols)
	if err != nil {
		return nil, nil, err
	}
	if nb.Family == FamilyNegBin {
		sum = append(sum,
			summaryRow{target, "negbin", "n", float64(nb.N)},
			summaryRow{target, "negbin", "theta", nb.Theta},
			summaryRow{target, "negbin", "deviance", nb.Deviance},
			summaryRow{target, "negbin", "aic", nb.AIC},
			summaryRow{target, "negbin", "overdispersion", nb.Overdispersion},
		)
		for i, name := range nb.Names {
			coefs = append(coefs, coefRow{target, "negbin", name, nb.Coef[i], nb.StdErr[i]})
		}
	}
	return sum, coefs, nil
}

func writeSummary(path string, rows []summaryRow) error {
	out := make([][]string, len(rows))
	for i, s := range rows {
		out[i] = []string{s.target, s.model, s.metric, fmtFloat(s.value)}
	}
	return csvio.WriteFile(path, []string{"target", "model", "metric", "value"}, out)
}

func writeCoefficients(path string, rows []coefRow) error {
	out := make([][]string, len(rows))
	for i, c := range rows {
		out[i] = []string{c.target, c.model, c.term, fmtFloat(c.estimate), fmtFloat(c.stderr)}
	}
	return csvio.WriteFile(path, []string{"target", "model", "term", "estimate", "std_error"}, out)
}

func writeEffect(path string, curve *PartialCurve) error {
	out := make([][]string, len(curve.X))
	for i := range curve.X {
		out[i] = []string{
			curve.Name,
			fmtFloat(curve.X[i]),
			fmtFloat(curve.Fit[i]),
			fmtFloat(curve.Lower[i]),
			fmtFloat(curve.Upper[i]),
		}
	}
	return csvio.WriteFile(path, []string{"covariate", "x", "fit", "lower", "upper"}, out)
}

// ReadEffect loads a partial-effect grid written by the model stage.
func ReadEffect(path string) (*PartialCurve, error) {
	type effectRow struct {
		Covariate string `csv:"covariate"`
		X         string `csv:"x"`
		Fit       string `csv:"fit"`
		Lower     string `csv:"lower"`
		Upper     string `csv:"upper"`
	}
	rows, err := csvio.ReadFile[effectRow](path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty effect file", path)
	}
	curve := &PartialCurve{Name: rows[0].Covariate}
	for i, row := range rows {
		vals := make([]float64, 4)
		for j, s := range []string{row.X, row.Fit, row.Lower, row.Upper} {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: %w", path, i+1, err)
			}
			vals[j] = v
		}
		curve.X = append(curve.X, vals[0])
		curve.Fit = append(curve.Fit, vals[1])
		curve.Lower = append(curve.Lower, vals[2])
		curve.Upper = append(curve.Upper, vals[3])
	}
	return curve, nil
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
