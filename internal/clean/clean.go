// Package clean canonicalizes the raw inputs into a single coordinate system
// (WGS84), a single calendar representation (UTC days) and a fixed column
// scheme. Malformed rows are dropped with a recorded reason, never fatally.
// Downstream stages read the interim tables written here and may assume
// well-formed data.
package clean

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/camillabonomo02/CSS-project/internal/config"
	"github.com/camillabonomo02/CSS-project/internal/csvio"
)

// Interim file names produced by the stage.
const (
	WeatherFile    = "weather_daily.csv"
	MobilityFile   = "mobility_daily.csv"
	StationsFile   = "stations_clean.csv"
	StationsGeo    = "stations_clean.geojson"
	StopsFile      = "gtfs_stops.csv"
	StopsGeo       = "gtfs_stops.geojson"
	BoundariesFile = "boundaries.geojson"
	DropLogFile    = "drop_log.csv"
)

// Drop records one discarded input row and why.
type Drop struct {
	Source string
	Key    string
	Reason string
}

// Cleaner runs the raw-to-interim stage.
type Cleaner struct {
	cfg    *config.Config
	logger *slog.Logger
	drops  []Drop
}

// New creates a Cleaner.
func New(cfg *config.Config, logger *slog.Logger) *Cleaner {
	return &Cleaner{cfg: cfg, logger: logger}
}

// Run cleans every raw source and writes the interim tables. A missing
// required file is fatal for the stage; a malformed row is not.
func (c *Cleaner) Run() error {
	raw := c.cfg.Paths.RawDir
	interim := c.cfg.Paths.InterimDir
	if err := os.MkdirAll(interim, 0o755); err != nil {
		return fmt.Errorf("clean stage: create %s: %w", interim, err)
	}

	weather, err := c.cleanWeather(filepath.Join(raw, c.cfg.Clean.WeatherFile))
	if err != nil {
		return fmt.Errorf("clean stage: weather: %w", err)
	}
	if err := WriteWeather(filepath.Join(interim, WeatherFile), weather); err != nil {
		return fmt.Errorf("clean stage: %w", err)
	}

	mobility, err := c.cleanMobility(filepath.Join(raw, c.cfg.Clean.MobilityFile))
	if err != nil {
		return fmt.Errorf("clean stage: mobility: %w", err)
	}
	if err := WriteMobility(filepath.Join(interim, MobilityFile), mobility); err != nil {
		return fmt.Errorf("clean stage: %w", err)
	}

	stations, err := c.cleanStations(filepath.Join(raw, c.cfg.Clean.StationsFile))
	if err != nil {
		return fmt.Errorf("clean stage: stations: %w", err)
	}
	if err := WriteStations(interim, stations); err != nil {
		return fmt.Errorf("clean stage: %w", err)
	}

	stops, err := c.cleanStops(filepath.Join(raw, c.cfg.Clean.GTFSDir))
	if err != nil {
		return fmt.Errorf("clean stage: gtfs: %w", err)
	}
	if err := WriteStops(interim, stops); err != nil {
		return fmt.Errorf("clean stage: %w", err)
	}

	units, err := c.cleanBoundaries(
		filepath.Join(raw, c.cfg.Clean.BoundariesFile),
		filepath.Join(raw, c.cfg.Clean.PopulationFile),
	)
	if err != nil {
		return fmt.Errorf("clean stage: boundaries: %w", err)
	}
	if units != nil {
		if err := WriteUnits(filepath.Join(interim, BoundariesFile), units); err != nil {
			return fmt.Errorf("clean stage: %w", err)
		}
	}

	if err := c.writeDropLog(filepath.Join(interim, DropLogFile)); err != nil {
		return fmt.Errorf("clean stage: %w", err)
	}

	c.logger.Info("clean stage complete",
		"weather_days", len(weather),
		"mobility_days", len(mobility),
		"stations", len(stations),
		"stops", len(stops),
		"units", len(units),
		"dropped_rows", len(c.drops),
	)
	return nil
}

// Drops returns the rows discarded so far, in input order.
func (c *Cleaner) Drops() []Drop { return c.drops }

func (c *Cleaner) drop(source, key, reason string) {
	c.drops = append(c.drops, Drop{Source: source, Key: key, Reason: reason})
	c.logger.Warn("row dropped", "source", source, "key", key, "reason", reason)
}

func (c *Cleaner) writeDropLog(path string) error {
	rows := make([][]string, 0, len(c.drops))
	for _, d := range c.drops {
		rows = append(rows, []string{d.Source, d.Key, d.Reason})
	}
	return csvio.WriteFile(path, []string{"source", "key", "reason"}, rows)
}
