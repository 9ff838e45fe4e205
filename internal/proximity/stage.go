package proximity

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/camillabonomo02/CSS-project/internal/clean"
	"github.com/camillabonomo02/CSS-project/internal/config"
	"github.com/camillabonomo02/CSS-project/internal/csvio"
)

// Output files under <processed>/proximity/.
const (
	StationIndexFile = "station_index.csv"
	UnitIndexFile    = "unit_index.csv"
	UnitCoverageFile = "unit_coverage.csv"
)

// Runner drives the proximity stage: the station intermodality index at the
// configured radius, its aggregation over circoscrizioni and the household
// coverage estimate.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

func (r *Runner) Run() error {
	interim := r.cfg.Paths.InterimDir
	stations, err := clean.ReadStations(filepath.Join(interim, clean.StationsFile))
	if err != nil {
		return fmt.Errorf("proximity stage: %w", err)
	}
	stops, err := clean.ReadStops(filepath.Join(interim, clean.StopsFile))
	if err != nil {
		return fmt.Errorf("proximity stage: %w", err)
	}

	radius := r.cfg.Proximity.IndexRadius
	index := make(map[string]float64, len(stations))
	results := make([]Result, len(stations))
	for i, s := range stations {
		res := Compute(s, stops, radius)
		results[i] = res
		index[s.ID] = Index(res)
	}
	r.logger.Info("station indices computed", "stations", len(stations), "radius_m", radius)

	outDir := filepath.Join(r.cfg.Paths.ProcessedDir, "proximity")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("proximity stage: %w", err)
	}
	if err := writeStationIndex(filepath.Join(outDir, StationIndexFile), stations, results, index); err != nil {
		return fmt.Errorf("proximity stage: %w", err)
	}

	// Unit aggregation is optional: the boundaries source may be absent.
	unitsPath := filepath.Join(interim, clean.BoundariesFile)
	if _, err := os.Stat(unitsPath); os.IsNotExist(err) {
		r.logger.Info("no boundaries table, skipping unit aggregation")
		return nil
	}
	units, err := clean.ReadUnits(unitsPath)
	if err != nil {
		return fmt.Errorf("proximity stage: %w", err)
	}

	stats := AggregateUnits(units, stations, index)
	if err := writeUnitIndex(filepath.Join(outDir, UnitIndexFile), stats); err != nil {
		return fmt.Errorf("proximity stage: %w", err)
	}

	if err := r.writeCoverage(filepath.Join(outDir, UnitCoverageFile), units, stations); err != nil {
		return fmt.Errorf("proximity stage: %w", err)
	}
	r.logger.Info("proximity stage done", "units", len(units))
	return nil
}

func writeStationIndex(path string, stations []clean.Station, results []Result, index map[string]float64) error {
	header := []string{
		"station_id", "name", "stop_count", "route_count",
		"nearest_stop_id", "nearest_distance_m", "intermodality_index",
	}
	out := make([][]string, len(stations))
	for i, s := range stations {
		res := results[i]
		dist := ""
		if !math.IsInf(res.NearestDistance, 1) {
			dist = fmtFloat(res.NearestDistance)
		}
		out[i] = []string{
			s.ID, s.Name,
			strconv.Itoa(res.StopCount), strconv.Itoa(res.RouteCount),
			res.NearestStopID, dist,
			fmtFloat(index[s.ID]),
		}
	}
	return csvio.WriteFile(path, header, out)
}

func writeUnitIndex(path string, stats []UnitStats) error {
	header := []string{"unit_id", "name", "station_count", "sum_index", "mean_index"}
	out := make([][]string, len(stats))
	for i, u := range stats {
		out[i] = []string{
			u.UnitID, u.Name,
			strconv.Itoa(u.StationCount),
			fmtFloat(u.SumIndex), fmtFloat(u.MeanIndex),
		}
	}
	return csvio.WriteFile(path, header, out)
}

// writeCoverage reports the share of each unit within the coverage radius of
// any station and, when household counts are present, the implied number of
// covered families.
func (r *Runner) writeCoverage(path string, units []clean.Unit, stations []clean.Station) error {
	header := []string{"unit_id", "name", "coverage_share", "families", "families_covered"}
	out := make([][]string, len(units))
	for i, u := range units {
		share := CoverageShare(u, stations, r.cfg.Proximity.CoverageRadius)
		families, covered := "", ""
		if u.Families != nil {
			families = fmtFloat(*u.Families)
			covered = fmtFloat(*u.Families * share)
		}
		out[i] = []string{u.ID, u.Name, fmtFloat(share), families, covered}
	}
	return csvio.WriteFile(path, header, out)
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
