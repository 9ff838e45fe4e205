// Package dataset joins the cleaned sources into the two analytical tables:
// a temporal table (mobility + weather + calendar, 2022) and a spatial table
// (station accessibility against the 2025 transit network). The two tables
// deliberately stay separate: the three-year gap between the mobility and
// transit data is a stated methodological limitation, and the temporal and
// structural analyses must never be merged into one model.
package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/camillabonomo02/CSS-project/internal/clean"
	"github.com/camillabonomo02/CSS-project/internal/config"
)

// Processed file names produced by the stage.
const (
	TemporalFile   = "temporal.csv"
	SpatialFile    = "station_accessibility.csv"
	SpatialGeoFile = "station_accessibility.geojson"
)

// Builder runs the interim-to-processed stage.
type Builder struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(cfg *config.Config, logger *slog.Logger) *Builder {
	return &Builder{cfg: cfg, logger: logger}
}

// Run reads the interim tables and writes the temporal and spatial datasets.
func (b *Builder) Run() error {
	interim := b.cfg.Paths.InterimDir
	processed := b.cfg.Paths.ProcessedDir
	if err := os.MkdirAll(processed, 0o755); err != nil {
		return fmt.Errorf("build stage: create %s: %w", processed, err)
	}

	mobility, err := clean.ReadMobility(filepath.Join(interim, clean.MobilityFile))
	if err != nil {
		return fmt.Errorf("build stage: %w", err)
	}
	weather, err := clean.ReadWeather(filepath.Join(interim, clean.WeatherFile))
	if err != nil {
		return fmt.Errorf("build stage: %w", err)
	}
	stations, err := clean.ReadStations(filepath.Join(interim, clean.StationsFile))
	if err != nil {
		return fmt.Errorf("build stage: %w", err)
	}
	stops, err := clean.ReadStops(filepath.Join(interim, clean.StopsFile))
	if err != nil {
		return fmt.Errorf("build stage: %w", err)
	}

	temporal := buildTemporal(mobility, weather, b.cfg.Build.Year)
	if err := WriteTemporal(filepath.Join(processed, TemporalFile), temporal); err != nil {
		return fmt.Errorf("build stage: %w", err)
	}

	spatial := buildSpatial(stations, stops,
		b.cfg.Build.CenterLat, b.cfg.Build.CenterLon, b.cfg.Build.BufferRadii)
	if err := WriteSpatial(
		filepath.Join(processed, SpatialFile),
		filepath.Join(processed, SpatialGeoFile),
		spatial, b.cfg.Build.BufferRadii,
	); err != nil {
		return fmt.Errorf("build stage: %w", err)
	}

	var noWeather int
	for _, r := range temporal {
		if !r.HasWeather {
			noWeather++
		}
	}
	b.logger.Info("build stage complete",
		"temporal_rows", len(temporal),
		"rows_without_weather", noWeather,
		"spatial_rows", len(spatial),
		"buffer_radii", b.cfg.Build.BufferRadii,
	)
	return nil
}
