package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/camillabonomo02/CSS-project/internal/clean"
	"github.com/camillabonomo02/CSS-project/internal/csvio"
	"github.com/camillabonomo02/CSS-project/internal/geo"
	"github.com/camillabonomo02/CSS-project/internal/proximity"
)

// BufferMetric holds the counts at one precomputed buffer radius.
type BufferMetric struct {
	Radius     float64
	StopCount  int
	RouteCount int
}

// SpatialRow is the accessibility record for one station: exactly one row per
// station. Buffer metrics are labelled with their radius, so the table stays
// recomputable under different radii without changing row semantics.
type SpatialRow struct {
	StationID string
	Name      string
	Capacity  int
	Lat       float64
	Lon       float64

	NearestStopID   string   // empty when the feed has no stops
	NearestDistance *float64 // nil when the feed has no stops
	DistToCenter    float64

	Buffers []BufferMetric // ordered as configured
}

// BufferAt returns the metric for an exact radius.
func (r SpatialRow) BufferAt(radius float64) (BufferMetric, bool) {
	for _, b := range r.Buffers {
		if b.Radius == radius {
			return b, true
		}
	}
	return BufferMetric{}, false
}

// buildSpatial computes one accessibility row per station against the
// transit stops, for every configured buffer radius.
func buildSpatial(stations []clean.Station, stops []clean.Stop, centerLat, centerLon float64, radii []float64) []SpatialRow {
	rows := make([]SpatialRow, 0, len(stations))
	for _, st := range stations {
		row := SpatialRow{
			StationID:    st.ID,
			Name:         st.Name,
			Capacity:     st.Capacity,
			Lat:          st.Lat,
			Lon:          st.Lon,
			DistToCenter: geo.Haversine(st.Lat, st.Lon, centerLat, centerLon),
		}
		for _, radius := range radii {
			res := proximity.Compute(st, stops, radius)
			row.Buffers = append(row.Buffers, BufferMetric{
				Radius:     radius,
				StopCount:  res.StopCount,
				RouteCount: res.RouteCount,
			})
			if row.NearestStopID == "" && res.NearestStopID != "" {
				d := res.NearestDistance
				row.NearestStopID = res.NearestStopID
				row.NearestDistance = &d
			}
		}
		if len(radii) == 0 {
			if res := proximity.Compute(st, stops, 0); res.NearestStopID != "" {
				d := res.NearestDistance
				row.NearestStopID = res.NearestStopID
				row.NearestDistance = &d
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func spatialHeader(radii []float64) []string {
	h := []string{
		"station_id", "name", "capacity", "lat", "lon",
		"nearest_stop_id", "dist_to_stop_m", "dist_to_center_m",
	}
	for _, r := range radii {
		h = append(h, fmt.Sprintf("stops_%dm", int(r)), fmt.Sprintf("routes_%dm", int(r)))
	}
	return h
}

// WriteSpatial writes the processed accessibility table as CSV and GeoJSON.
func WriteSpatial(csvPath, geoPath string, rows []SpatialRow, radii []float64) error {
	out := make([][]string, 0, len(rows))
	fc := geo.NewFeatureCollection()
	for _, r := range rows {
		rec := []string{
			r.StationID, r.Name, strconv.Itoa(r.Capacity),
			fmtFloat(r.Lat), fmtFloat(r.Lon),
			r.NearestStopID, fmtOpt(r.NearestDistance), fmtFloat(r.DistToCenter),
		}
		props := map[string]any{
			"station_id":       r.StationID,
			"name":             r.Name,
			"dist_to_center_m": r.DistToCenter,
		}
		if r.NearestDistance != nil {
			props["dist_to_stop_m"] = *r.NearestDistance
		}
		for _, radius := range radii {
			b, ok := r.BufferAt(radius)
			if !ok {
				return fmt.Errorf("station %s: missing buffer metric at %v m", r.StationID, radius)
			}
			rec = append(rec, strconv.Itoa(b.StopCount), strconv.Itoa(b.RouteCount))
			props[fmt.Sprintf("stops_%dm", int(radius))] = b.StopCount
			props[fmt.Sprintf("routes_%dm", int(radius))] = b.RouteCount
		}
		out = append(out, rec)
		fc.AppendPoint(r.Lon, r.Lat, props)
	}
	if err := csvio.WriteFile(csvPath, spatialHeader(radii), out); err != nil {
		return err
	}
	return geo.WriteFeatureCollection(geoPath, fc)
}

// ReadSpatial loads the processed accessibility table. Buffer columns are
// discovered from the header, so the reader works for any configured radii.
func ReadSpatial(path string) ([]SpatialRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	col := make(map[string]int, len(header))
	var radii []float64
	for i, name := range header {
		col[name] = i
		if strings.HasPrefix(name, "stops_") && strings.HasSuffix(name, "m") {
			v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimPrefix(name, "stops_"), "m"), 64)
			if err == nil {
				radii = append(radii, v)
			}
		}
	}

	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []SpatialRow
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		lat, err1 := strconv.ParseFloat(get(rec, "lat"), 64)
		lon, err2 := strconv.ParseFloat(get(rec, "lon"), 64)
		distCenter, err3 := strconv.ParseFloat(get(rec, "dist_to_center_m"), 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("%s: bad numeric fields for station %s", path, get(rec, "station_id"))
		}
		capacity, _ := strconv.Atoi(get(rec, "capacity"))
		row := SpatialRow{
			StationID:       get(rec, "station_id"),
			Name:            get(rec, "name"),
			Capacity:        capacity,
			Lat:             lat,
			Lon:             lon,
			NearestStopID:   get(rec, "nearest_stop_id"),
			NearestDistance: parseOpt(get(rec, "dist_to_stop_m")),
			DistToCenter:    distCenter,
		}
		for _, radius := range radii {
			stops, err1 := strconv.Atoi(get(rec, fmt.Sprintf("stops_%dm", int(radius))))
			routes, err2 := strconv.Atoi(get(rec, fmt.Sprintf("routes_%dm", int(radius))))
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("%s: bad buffer counts for station %s at %vm", path, row.StationID, radius)
			}
			row.Buffers = append(row.Buffers, BufferMetric{Radius: radius, StopCount: stops, RouteCount: routes})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ServiceDensity is the stop density within the radius, stops per km².
func (r SpatialRow) ServiceDensity(radius float64) float64 {
	b, ok := r.BufferAt(radius)
	if !ok || radius == 0 {
		return 0
	}
	areaKm2 := math.Pi * radius * radius / 1e6
	return float64(b.StopCount) / areaKm2
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
