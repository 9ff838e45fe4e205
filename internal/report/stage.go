// Package report renders the analysis outputs: ranking and summary tables
// as CSV and the figure set as PNG.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/camillabonomo02/CSS-project/internal/cluster"
	"github.com/camillabonomo02/CSS-project/internal/config"
	"github.com/camillabonomo02/CSS-project/internal/csvio"
	"github.com/camillabonomo02/CSS-project/internal/dataset"
	"github.com/camillabonomo02/CSS-project/internal/model"
	"github.com/camillabonomo02/CSS-project/internal/proximity"
)

// Runner drives the report stage.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

// Run writes every table and figure the upstream outputs support. The
// temporal, accessibility and proximity tables are required; model and
// cluster outputs are included when their stages have run.
func (r *Runner) Run() error {
	processed := r.cfg.Paths.ProcessedDir
	tablesDir := filepath.Join(r.cfg.Paths.ReportsDir, "tables")
	figuresDir := filepath.Join(r.cfg.Paths.ReportsDir, "figures")
	for _, dir := range []string{tablesDir, figuresDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report stage: %w", err)
		}
	}

	temporal, err := dataset.ReadTemporal(filepath.Join(processed, dataset.TemporalFile))
	if err != nil {
		return fmt.Errorf("report stage: %w", err)
	}
	spatial, err := dataset.ReadSpatial(filepath.Join(processed, dataset.SpatialFile))
	if err != nil {
		return fmt.Errorf("report stage: %w", err)
	}
	stations, err := ReadStationIndex(filepath.Join(processed, "proximity", proximity.StationIndexFile))
	if err != nil {
		return fmt.Errorf("report stage: %w", err)
	}

	targets := r.cfg.Model.Targets

	// Tables.
	if err := summaryStats(filepath.Join(tablesDir, "summary_stats.csv"), temporal, targets); err != nil {
		return fmt.Errorf("report stage: summary stats: %w", err)
	}
	top, bottom := RankStations(stations, r.cfg.Proximity.RankN)
	if err := writeRanking(filepath.Join(tablesDir, "top_intermodality.csv"), top); err != nil {
		return fmt.Errorf("report stage: %w", err)
	}
	if err := writeRanking(filepath.Join(tablesDir, "bottom_intermodality.csv"), bottom); err != nil {
		return fmt.Errorf("report stage: %w", err)
	}
	// Surface the per-unit coverage table alongside the other report tables
	// when the boundaries source was present.
	coveragePath := filepath.Join(processed, "proximity", proximity.UnitCoverageFile)
	if data, err := os.ReadFile(coveragePath); err == nil {
		if err := os.WriteFile(filepath.Join(tablesDir, "unit_coverage.csv"), data, 0o644); err != nil {
			return fmt.Errorf("report stage: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("report stage: %w", err)
	}

	// Figures from the required inputs.
	if err := timeSeriesFigure(filepath.Join(figuresDir, "mobility_timeseries.png"), temporal, targets); err != nil {
		return fmt.Errorf("report stage: %w", err)
	}
	for _, target := range targets {
		if err := tempScatterFigure(filepath.Join(figuresDir, "temp_scatter_"+target+".png"), temporal, target); err != nil {
			return fmt.Errorf("report stage: %w", err)
		}
		if err := rainComparisonFigure(filepath.Join(figuresDir, "rain_comparison_"+target+".png"), temporal, target); err != nil {
			return fmt.Errorf("report stage: %w", err)
		}
	}
	if err := indexHistogramFigure(filepath.Join(figuresDir, "intermodality_hist.png"), stations); err != nil {
		return fmt.Errorf("report stage: %w", err)
	}

	index := make(map[string]float64, len(stations))
	for _, s := range stations {
		index[s.StationID] = s.Index
	}
	if err := stationMapFigure(filepath.Join(figuresDir, "station_map.png"), spatial, index); err != nil {
		return fmt.Errorf("report stage: %w", err)
	}

	// Model partial effects, when the model stage has run.
	for _, target := range targets {
		effectPath := filepath.Join(processed, "model", model.EffectFile(target))
		if _, err := os.Stat(effectPath); os.IsNotExist(err) {
			r.logger.Info("no partial effect output, skipping figure", "target", target)
			continue
		}
		curve, err := model.ReadEffect(effectPath)
		if err != nil {
			return fmt.Errorf("report stage: %w", err)
		}
		if err := gamEffectFigure(filepath.Join(figuresDir, "gam_effect_"+target+".png"), curve, target); err != nil {
			return fmt.Errorf("report stage: %w", err)
		}
	}

	// Silhouette sweep, when the cluster stage has run.
	silPath := filepath.Join(processed, "cluster", cluster.SilhouetteFile)
	if _, err := os.Stat(silPath); os.IsNotExist(err) {
		r.logger.Info("no cluster output, skipping silhouette figure")
	} else {
		scores, chosen, err := readSilhouettes(silPath)
		if err != nil {
			return fmt.Errorf("report stage: %w", err)
		}
		if err := silhouetteFigure(filepath.Join(figuresDir, "silhouette_by_k.png"), scores, chosen); err != nil {
			return fmt.Errorf("report stage: %w", err)
		}
	}

	r.logger.Info("report stage done", "tables_dir", tablesDir, "figures_dir", figuresDir)
	return nil
}

type silhouetteRow struct {
	K      string `csv:"k"`
	Score  string `csv:"mean_silhouette"`
	Chosen string `csv:"chosen"`
}

func readSilhouettes(path string) (map[int]float64, int, error) {
	rows, err := csvio.ReadFile[silhouetteRow](path)
	if err != nil {
		return nil, 0, err
	}
	scores := make(map[int]float64, len(rows))
	chosen := 0
	for i, row := range rows {
		k, err := strconv.Atoi(row.K)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: row %d: k: %w", path, i+1, err)
		}
		s, err := strconv.ParseFloat(row.Score, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: row %d: mean_silhouette: %w", path, i+1, err)
		}
		scores[k] = s
		if row.Chosen == "1" {
			chosen = k
		}
	}
	return scores, chosen, nil
}
