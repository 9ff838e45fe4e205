// Package proximity computes buffer-based accessibility metrics between
// bike-sharing stations and transit stops, and aggregates them to
// administrative units.
package proximity

import (
	"math"

	"github.com/camillabonomo02/CSS-project/internal/clean"
	"github.com/camillabonomo02/CSS-project/internal/geo"
)

// Result holds the buffer metrics for one station at one radius. Nearest stop
// and distance are unconditional: they are populated even when nothing falls
// inside the radius. NearestStopID is empty only when there are no stops at
// all, in which case NearestDistance is +Inf.
type Result struct {
	StationID       string
	StopCount       int
	RouteCount      int // distinct route ids among stops within the radius
	NearestStopID   string
	NearestDistance float64
}

// Compute returns the proximity metrics for a station at the given buffer
// radius in meters. The radius is explicit: rerunning with 200/500/800 m is
// the designed robustness check.
func Compute(station clean.Station, stops []clean.Stop, radius float64) Result {
	res := Result{
		StationID:       station.ID,
		NearestDistance: math.Inf(1),
	}
	routes := make(map[string]struct{})
	for _, stop := range stops {
		d := geo.Haversine(station.Lat, station.Lon, stop.Lat, stop.Lon)
		if d < res.NearestDistance ||
			(d == res.NearestDistance && res.NearestStopID != "" && stop.ID < res.NearestStopID) {
			res.NearestDistance = d
			res.NearestStopID = stop.ID
		}
		if d <= radius {
			res.StopCount++
			for _, r := range stop.Routes {
				routes[r] = struct{}{}
			}
		}
	}
	res.RouteCount = len(routes)
	return res
}

// Index is the intermodality score at a radius: stop count plus half the
// distinct route count, monotonically non-decreasing in the radius.
func Index(r Result) float64 {
	return float64(r.StopCount) + 0.5*float64(r.RouteCount)
}

// UnitStats aggregates station-level indices over an administrative unit.
type UnitStats struct {
	UnitID       string
	Name         string
	StationCount int
	SumIndex     float64
	MeanIndex    float64
}

// AggregateUnits assigns each station to the first unit whose boundary
// contains it (input order, so a station on a shared boundary lands in
// exactly one unit) and sums/averages the station indices per unit.
func AggregateUnits(units []clean.Unit, stations []clean.Station, index map[string]float64) []UnitStats {
	stats := make([]UnitStats, len(units))
	for i, u := range units {
		stats[i] = UnitStats{UnitID: u.ID, Name: u.Name}
	}
	for _, s := range stations {
		for i, u := range units {
			if u.Boundary.Contains(s.Lon, s.Lat) {
				stats[i].StationCount++
				stats[i].SumIndex += index[s.ID]
				break
			}
		}
	}
	for i := range stats {
		if stats[i].StationCount > 0 {
			stats[i].MeanIndex = stats[i].SumIndex / float64(stats[i].StationCount)
		}
	}
	return stats
}

// coverageGrid is the sampling resolution per axis for CoverageShare.
const coverageGrid = 96

// CoverageShare estimates the share of a unit's area lying within radius
// meters of any of the given stations, by even-grid sampling over the unit's
// bounding box. Deterministic for fixed inputs. Returns 0 for degenerate
// boundaries.
func CoverageShare(unit clean.Unit, stations []clean.Station, radius float64) float64 {
	minLon, minLat, maxLon, maxLat := unit.Boundary.BoundingBox()
	if maxLon <= minLon || maxLat <= minLat {
		return 0
	}
	var inside, covered int
	for i := 0; i < coverageGrid; i++ {
		lat := minLat + (maxLat-minLat)*(float64(i)+0.5)/coverageGrid
		latDeg, lonDeg := geo.BoundingBoxRadius(lat, radius)
		for j := 0; j < coverageGrid; j++ {
			lon := minLon + (maxLon-minLon)*(float64(j)+0.5)/coverageGrid
			if !unit.Boundary.Contains(lon, lat) {
				continue
			}
			inside++
			for _, s := range stations {
				// Degree-box prefilter before the exact haversine.
				if math.Abs(lat-s.Lat) > latDeg || math.Abs(lon-s.Lon) > lonDeg {
					continue
				}
				if geo.Haversine(lat, lon, s.Lat, s.Lon) <= radius {
					covered++
					break
				}
			}
		}
	}
	if inside == 0 {
		return 0
	}
	return float64(covered) / float64(inside)
}
