package proximity

import (
	"math"
	"testing"

	"github.com/camillabonomo02/CSS-project/internal/clean"
	"github.com/camillabonomo02/CSS-project/internal/geo"
)

// Offsets around Trento: ~0.0009° lat ≈ 100 m.
var testStation = clean.Station{ID: "b1", Lat: 46.0700, Lon: 11.1200}

func testStops() []clean.Stop {
	return []clean.Stop{
		{ID: "s1", Lat: 46.0709, Lon: 11.1200, Routes: []string{"r1", "r2"}}, // ~100 m
		{ID: "s2", Lat: 46.0736, Lon: 11.1200, Routes: []string{"r2"}},       // ~400 m
		{ID: "s3", Lat: 46.0790, Lon: 11.1200, Routes: []string{"r3"}},       // ~1000 m
	}
}

func TestComputeCounts(t *testing.T) {
	stops := testStops()

	tests := []struct {
		name       string
		radius     float64
		wantStops  int
		wantRoutes int
	}{
		{"zero radius", 0, 0, 0},
		{"200m", 200, 1, 2},
		{"500m", 500, 2, 2}, // r2 shared across s1 and s2 counts once
		{"2km", 2000, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Compute(testStation, stops, tt.radius)
			if res.StopCount != tt.wantStops {
				t.Errorf("stop count = %d, want %d", res.StopCount, tt.wantStops)
			}
			if res.RouteCount != tt.wantRoutes {
				t.Errorf("route count = %d, want %d", res.RouteCount, tt.wantRoutes)
			}
			// nearest is unconditional, independent of radius
			if res.NearestStopID != "s1" {
				t.Errorf("nearest = %q, want s1", res.NearestStopID)
			}
		})
	}
}

func TestComputeMonotoneInRadius(t *testing.T) {
	stops := testStops()
	radii := []float64{0, 50, 100, 200, 300, 500, 800, 1500, 3000}
	prev := Compute(testStation, stops, radii[0])
	for _, r := range radii[1:] {
		cur := Compute(testStation, stops, r)
		if cur.StopCount < prev.StopCount {
			t.Errorf("stop count decreased at radius %v", r)
		}
		if cur.RouteCount < prev.RouteCount {
			t.Errorf("route count decreased at radius %v", r)
		}
		if Index(cur) < Index(prev) {
			t.Errorf("index decreased at radius %v", r)
		}
		prev = cur
	}
}

func TestComputeNearestWithinBuffer(t *testing.T) {
	// nearest distance is a lower bound on the distance to any in-buffer stop
	stops := testStops()
	res := Compute(testStation, stops, 500)
	for _, s := range stops {
		d := geo.Haversine(testStation.Lat, testStation.Lon, s.Lat, s.Lon)
		if d <= 500 && res.NearestDistance > d {
			t.Errorf("nearest %.1f m exceeds in-buffer stop %s at %.1f m", res.NearestDistance, s.ID, d)
		}
	}
}

func TestComputeCoincidentStopAtZeroRadius(t *testing.T) {
	stops := []clean.Stop{{ID: "s0", Lat: testStation.Lat, Lon: testStation.Lon, Routes: []string{"r9"}}}
	res := Compute(testStation, stops, 0)
	if res.StopCount != 1 || res.RouteCount != 1 {
		t.Errorf("coincident stop at radius 0: stops=%d routes=%d, want 1/1", res.StopCount, res.RouteCount)
	}
	if res.NearestDistance != 0 {
		t.Errorf("nearest distance = %v, want 0", res.NearestDistance)
	}
}

func TestComputeNoStops(t *testing.T) {
	res := Compute(testStation, nil, 500)
	if res.StopCount != 0 || res.RouteCount != 0 {
		t.Errorf("empty stop set: %+v", res)
	}
	if res.NearestStopID != "" || !math.IsInf(res.NearestDistance, 1) {
		t.Errorf("no-stop marker wrong: %+v", res)
	}
}

func TestComputeTieBreakLowestStopID(t *testing.T) {
	// two stops at the same point, listed high id first
	stops := []clean.Stop{
		{ID: "s9", Lat: 46.0709, Lon: 11.1200},
		{ID: "s2", Lat: 46.0709, Lon: 11.1200},
	}
	res := Compute(testStation, stops, 500)
	if res.NearestStopID != "s2" {
		t.Errorf("tie should go to lowest stop id, got %q", res.NearestStopID)
	}
}

func squareUnit(id string, minLon, minLat, maxLon, maxLat float64) clean.Unit {
	return clean.Unit{
		ID:   id,
		Name: id,
		Boundary: geo.MultiPolygon{{Outer: geo.Ring{
			{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
		}}},
	}
}

func TestAggregateUnits(t *testing.T) {
	units := []clean.Unit{
		squareUnit("u1", 11.10, 46.06, 11.12, 46.08),
		squareUnit("u2", 11.12, 46.06, 11.14, 46.08),
	}
	stations := []clean.Station{
		{ID: "a", Lon: 11.11, Lat: 46.07},
		{ID: "b", Lon: 11.13, Lat: 46.07},
		{ID: "edge", Lon: 11.12, Lat: 46.07}, // exactly on the shared boundary
		{ID: "outside", Lon: 11.20, Lat: 46.07},
	}
	index := map[string]float64{"a": 2, "b": 4, "edge": 6, "outside": 8}

	stats := AggregateUnits(units, stations, index)

	total := 0
	for _, s := range stats {
		total += s.StationCount
	}
	if total != 3 {
		t.Fatalf("assigned stations = %d, want 3 (edge in exactly one unit, outside in none)", total)
	}
	if stats[0].StationCount != 2 { // a + edge (first unit wins the boundary point)
		t.Errorf("u1 stations = %d, want 2", stats[0].StationCount)
	}
	if stats[0].SumIndex != 8 || stats[0].MeanIndex != 4 {
		t.Errorf("u1 sum/mean = %v/%v, want 8/4", stats[0].SumIndex, stats[0].MeanIndex)
	}
	if stats[1].StationCount != 1 || stats[1].SumIndex != 4 {
		t.Errorf("u2 = %+v", stats[1])
	}
}

func TestCoverageShare(t *testing.T) {
	unit := squareUnit("u1", 11.10, 46.06, 11.12, 46.08)

	// no stations: nothing covered
	if got := CoverageShare(unit, nil, 300); got != 0 {
		t.Errorf("coverage with no stations = %v, want 0", got)
	}

	// one station in the middle with a huge radius covers everything
	center := []clean.Station{{ID: "c", Lon: 11.11, Lat: 46.07}}
	if got := CoverageShare(unit, center, 50_000); got != 1 {
		t.Errorf("coverage with dominating radius = %v, want 1", got)
	}

	// mid radius covers strictly between 0 and 1
	got := CoverageShare(unit, center, 600)
	if got <= 0 || got >= 1 {
		t.Errorf("coverage = %v, want in (0,1)", got)
	}

	// and grows with radius
	if more := CoverageShare(unit, center, 1200); more < got {
		t.Errorf("coverage should be non-decreasing in radius: %v then %v", got, more)
	}

	// a station far outside the unit contributes nothing
	far := []clean.Station{{ID: "f", Lon: 11.5, Lat: 46.5}}
	if got := CoverageShare(unit, far, 300); got != 0 {
		t.Errorf("coverage from a distant station = %v, want 0", got)
	}

	// a station just east of the unit still covers the near edge
	edge := []clean.Station{{ID: "e", Lon: 11.125, Lat: 46.07}}
	if got := CoverageShare(unit, edge, 600); got <= 0 {
		t.Errorf("coverage from an adjacent station = %v, want > 0", got)
	}
}
