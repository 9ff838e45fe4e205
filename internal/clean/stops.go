package clean

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/camillabonomo02/CSS-project/internal/csvio"
	"github.com/camillabonomo02/CSS-project/internal/geo"
	"github.com/camillabonomo02/CSS-project/internal/gtfs"
)

// Stop is a canonical transit stop with the distinct routes serving it.
type Stop struct {
	ID     string
	Name   string
	Lat    float64
	Lon    float64
	Routes []string // sorted distinct route ids
}

func (c *Cleaner) cleanStops(gtfsDir string) ([]Stop, error) {
	feed, err := gtfs.LoadDir(gtfsDir, c.logger)
	if err != nil {
		return nil, err
	}
	routesPerStop := feed.RoutesPerStop()

	// Data-quality signal only: a declared route with no trips serves no
	// stop and silently vanishes from every route count downstream.
	tripsPerRoute := feed.TripsPerRoute()
	for _, r := range feed.Routes {
		if len(tripsPerRoute[r.RouteID]) == 0 {
			c.logger.Warn("route has no trips", "route_id", r.RouteID)
		}
	}

	seen := make(map[string]bool)
	var stops []Stop
	for _, s := range feed.Stops {
		if s.StopID == "" {
			c.drop("gtfs_stops", s.StopName, "missing stop id")
			continue
		}
		if seen[s.StopID] {
			c.drop("gtfs_stops", s.StopID, "duplicate stop id, first occurrence kept")
			continue
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(s.StopLat), 64)
		lon, err2 := strconv.ParseFloat(strings.TrimSpace(s.StopLon), 64)
		if err1 != nil || err2 != nil {
			c.drop("gtfs_stops", s.StopID, "non-numeric coordinate")
			continue
		}
		seen[s.StopID] = true
		stops = append(stops, Stop{
			ID:     s.StopID,
			Name:   strings.TrimSpace(s.StopName),
			Lat:    lat,
			Lon:    lon,
			Routes: routesPerStop[s.StopID],
		})
	}
	if len(stops) == 0 {
		return nil, fmt.Errorf("%s: no usable stops", gtfsDir)
	}
	return stops, nil
}

var stopHeader = []string{"stop_id", "stop_name", "lat", "lon", "routes"}

// WriteStops writes the canonical stop table as CSV and GeoJSON. Route sets
// are pipe-joined in the CSV cell.
func WriteStops(dir string, stops []Stop) error {
	rows := make([][]string, 0, len(stops))
	fc := geo.NewFeatureCollection()
	for _, s := range stops {
		rows = append(rows, []string{
			s.ID, s.Name, fmtFloat(s.Lat), fmtFloat(s.Lon), strings.Join(s.Routes, "|"),
		})
		fc.AppendPoint(s.Lon, s.Lat, map[string]any{
			"stop_id":   s.ID,
			"stop_name": s.Name,
			"n_routes":  len(s.Routes),
		})
	}
	if err := csvio.WriteFile(filepath.Join(dir, StopsFile), stopHeader, rows); err != nil {
		return err
	}
	return writeGeoJSON(filepath.Join(dir, StopsGeo), fc)
}

type stopCleanRow struct {
	ID     string `csv:"stop_id"`
	Name   string `csv:"stop_name"`
	Lat    string `csv:"lat"`
	Lon    string `csv:"lon"`
	Routes string `csv:"routes"`
}

// ReadStops loads the interim stop table.
func ReadStops(path string) ([]Stop, error) {
	raw, err := csvio.ReadFile[stopCleanRow](path)
	if err != nil {
		return nil, err
	}
	stops := make([]Stop, 0, len(raw))
	for _, r := range raw {
		lat, err1 := strconv.ParseFloat(r.Lat, 64)
		lon, err2 := strconv.ParseFloat(r.Lon, 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%s: bad coordinates for stop %s", path, r.ID)
		}
		var routes []string
		if r.Routes != "" {
			routes = strings.Split(r.Routes, "|")
		}
		stops = append(stops, Stop{ID: r.ID, Name: r.Name, Lat: lat, Lon: lon, Routes: routes})
	}
	return stops, nil
}
