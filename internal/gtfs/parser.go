package gtfs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/camillabonomo02/CSS-project/internal/csvio"
)

// requiredTables are the GTFS files the pipeline cannot run without.
var requiredTables = []string{"stops.txt", "routes.txt", "trips.txt", "stop_times.txt"}

// LoadDir parses the GTFS text tables from a directory of .txt files.
// stops/routes/trips/stop_times are required; calendar and shapes are
// optional and left empty if absent.
func LoadDir(dir string, logger *slog.Logger) (*Feed, error) {
	for _, name := range requiredTables {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return nil, fmt.Errorf("gtfs table %s: %w", filepath.Join(dir, name), err)
		}
	}

	feed := &Feed{}
	var err error
	if feed.Stops, err = csvio.ReadFile[Stop](filepath.Join(dir, "stops.txt")); err != nil {
		return nil, err
	}
	if feed.Routes, err = csvio.ReadFile[Route](filepath.Join(dir, "routes.txt")); err != nil {
		return nil, err
	}
	if feed.Trips, err = csvio.ReadFile[Trip](filepath.Join(dir, "trips.txt")); err != nil {
		return nil, err
	}
	if feed.StopTimes, err = csvio.ReadFile[StopTime](filepath.Join(dir, "stop_times.txt")); err != nil {
		return nil, err
	}
	if feed.Calendar, err = optional[CalendarEntry](filepath.Join(dir, "calendar.txt")); err != nil {
		return nil, err
	}
	if feed.Shapes, err = optional[ShapePoint](filepath.Join(dir, "shapes.txt")); err != nil {
		return nil, err
	}

	logger.Info("GTFS feed parsed",
		"dir", dir,
		"routes", len(feed.Routes),
		"stops", len(feed.Stops),
		"trips", len(feed.Trips),
		"stop_times", len(feed.StopTimes),
		"calendar", len(feed.Calendar),
	)
	return feed, nil
}

func optional[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return csvio.ReadFile[T](path)
}
