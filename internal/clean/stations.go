package clean

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/camillabonomo02/CSS-project/internal/csvio"
	"github.com/camillabonomo02/CSS-project/internal/geo"
)

// Station is a canonical bike-sharing station in WGS84.
type Station struct {
	ID       string
	Name     string
	Desc     string
	Capacity int
	Type     string
	Lat      float64
	Lon      float64
}

// stationRow mirrors the municipal export: ';' separated, WKT point geometry
// in UTM coordinates.
type stationRow struct {
	WKT      string `csv:"WKT"`
	ID       string `csv:"id"`
	Name     string `csv:"fumetto"`
	Desc     string `csv:"desc"`
	Capacity string `csv:"cicloposteggi"`
	Type     string `csv:"tipologia"`
}

func (c *Cleaner) cleanStations(path string) ([]Station, error) {
	raw, err := csvio.ReadFileSep[stationRow](path, ';')
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var stations []Station
	for _, r := range raw {
		if r.ID == "" {
			c.drop("stations", r.Name, "missing station id")
			continue
		}
		if seen[r.ID] {
			c.drop("stations", r.ID, "duplicate station id, first occurrence kept")
			continue
		}
		east, north, err := parseWKTPoint(r.WKT)
		if err != nil {
			c.drop("stations", r.ID, err.Error())
			continue
		}
		lat, lon, err := geo.UTMToWGS84(east, north, c.cfg.Clean.StationUTMZone)
		if err != nil {
			c.drop("stations", r.ID, err.Error())
			continue
		}
		capacity, _ := strconv.Atoi(strings.TrimSpace(r.Capacity)) // optional, 0 when absent
		seen[r.ID] = true
		stations = append(stations, Station{
			ID:       r.ID,
			Name:     strings.TrimSpace(r.Name),
			Desc:     strings.TrimSpace(r.Desc),
			Capacity: capacity,
			Type:     strings.TrimSpace(r.Type),
			Lat:      lat,
			Lon:      lon,
		})
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("%s: no usable station rows", path)
	}
	return stations, nil
}

// parseWKTPoint extracts easting/northing from a `POINT (x y)` literal.
func parseWKTPoint(wkt string) (x, y float64, err error) {
	s := strings.TrimSpace(wkt)
	if !strings.HasPrefix(strings.ToUpper(s), "POINT") {
		return 0, 0, fmt.Errorf("geometry %q is not a WKT point", wkt)
	}
	open := strings.IndexByte(s, '(')
	end := strings.IndexByte(s, ')')
	if open < 0 || end <= open {
		return 0, 0, fmt.Errorf("malformed WKT point %q", wkt)
	}
	fields := strings.Fields(s[open+1 : end])
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("malformed WKT point %q", wkt)
	}
	if x, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return 0, 0, fmt.Errorf("non-numeric coordinate in %q", wkt)
	}
	if y, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return 0, 0, fmt.Errorf("non-numeric coordinate in %q", wkt)
	}
	return x, y, nil
}

var stationHeader = []string{"station_id", "name", "desc", "capacity", "type", "lat", "lon"}

// WriteStations writes the canonical station table as CSV and GeoJSON.
func WriteStations(dir string, stations []Station) error {
	rows := make([][]string, 0, len(stations))
	fc := geo.NewFeatureCollection()
	for _, s := range stations {
		rows = append(rows, []string{
			s.ID, s.Name, s.Desc, strconv.Itoa(s.Capacity), s.Type,
			fmtFloat(s.Lat), fmtFloat(s.Lon),
		})
		fc.AppendPoint(s.Lon, s.Lat, map[string]any{
			"station_id": s.ID,
			"name":       s.Name,
			"capacity":   s.Capacity,
			"type":       s.Type,
		})
	}
	if err := csvio.WriteFile(filepath.Join(dir, StationsFile), stationHeader, rows); err != nil {
		return err
	}
	return writeGeoJSON(filepath.Join(dir, StationsGeo), fc)
}

type stationCleanRow struct {
	ID       string `csv:"station_id"`
	Name     string `csv:"name"`
	Desc     string `csv:"desc"`
	Capacity string `csv:"capacity"`
	Type     string `csv:"type"`
	Lat      string `csv:"lat"`
	Lon      string `csv:"lon"`
}

// ReadStations loads the interim station table.
func ReadStations(path string) ([]Station, error) {
	raw, err := csvio.ReadFile[stationCleanRow](path)
	if err != nil {
		return nil, err
	}
	stations := make([]Station, 0, len(raw))
	for _, r := range raw {
		lat, err1 := strconv.ParseFloat(r.Lat, 64)
		lon, err2 := strconv.ParseFloat(r.Lon, 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%s: bad coordinates for station %s", path, r.ID)
		}
		capacity, _ := strconv.Atoi(r.Capacity)
		stations = append(stations, Station{
			ID: r.ID, Name: r.Name, Desc: r.Desc,
			Capacity: capacity, Type: r.Type, Lat: lat, Lon: lon,
		})
	}
	return stations, nil
}
