package dataset

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/camillabonomo02/CSS-project/internal/clean"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d.UTC()
}

func f(v float64) *float64 { return &v }

func TestBuildTemporalJoin(t *testing.T) {
	mobility := []clean.MobilityDay{
		{Date: day("2022-01-03"), Transit: f(-20), Work: f(-15)},
		{Date: day("2022-01-04"), Transit: f(-18)},
	}
	weather := []clean.WeatherDay{
		{Date: day("2022-01-03"), TempMax: f(6), PrecipMM: f(0)},
		{Date: day("2021-01-04"), TempMax: f(99)}, // wrong year, must not join
	}

	rows := buildTemporal(mobility, weather, 2022)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	matched := rows[0]
	if !matched.HasWeather || matched.TempMax == nil || *matched.TempMax != 6 {
		t.Errorf("weather join failed: %+v", matched)
	}
	if matched.TempMaxSq == nil || *matched.TempMaxSq != 36 {
		t.Errorf("temp_max_sq = %v, want 36", matched.TempMaxSq)
	}
	if matched.RainBinary == nil || *matched.RainBinary != 0 {
		t.Errorf("rain_binary = %v, want 0", matched.RainBinary)
	}

	// A mobility date with no weather match is retained with nil weather
	// fields and flagged, not dropped.
	unmatched := rows[1]
	if unmatched.HasWeather {
		t.Error("row without weather match should be flagged HasWeather=false")
	}
	if unmatched.TempMax != nil || unmatched.PrecipMM != nil {
		t.Errorf("weather fields should be nil: %+v", unmatched)
	}
	if unmatched.Transit == nil || *unmatched.Transit != -18 {
		t.Errorf("mobility value lost: %+v", unmatched)
	}
}

func TestBuildTemporalCalendarFlags(t *testing.T) {
	mobility := []clean.MobilityDay{
		{Date: day("2022-01-03")}, // Monday
		{Date: day("2022-01-08")}, // Saturday
		{Date: day("2022-04-18")}, // Easter Monday 2022
		{Date: day("2022-08-15")}, // Ferragosto
	}
	rows := buildTemporal(mobility, nil, 2022)

	if rows[0].DOW != 0 || rows[0].IsWeekend || rows[0].IsHoliday {
		t.Errorf("monday flags wrong: %+v", rows[0])
	}
	if rows[1].DOW != 5 || !rows[1].IsWeekend {
		t.Errorf("saturday flags wrong: %+v", rows[1])
	}
	if !rows[2].IsHoliday {
		t.Error("Easter Monday 2022 should be a holiday")
	}
	if !rows[3].IsHoliday {
		t.Error("Ferragosto should be a holiday")
	}
}

func TestEasterSunday(t *testing.T) {
	tests := []struct {
		year int
		want string
	}{
		{2020, "2020-04-12"},
		{2021, "2021-04-04"},
		{2022, "2022-04-17"},
		{2025, "2025-04-20"},
	}
	for _, tt := range tests {
		if got := easterSunday(tt.year).Format("2006-01-02"); got != tt.want {
			t.Errorf("easterSunday(%d) = %s, want %s", tt.year, got, tt.want)
		}
	}
}

func testStationsStops() ([]clean.Station, []clean.Stop) {
	stations := []clean.Station{
		{ID: "b1", Name: "Piazza Dante", Lat: 46.0700, Lon: 11.1200},
		{ID: "b2", Name: "Periferia", Lat: 46.1200, Lon: 11.2000},
	}
	stops := []clean.Stop{
		{ID: "s1", Lat: 46.0709, Lon: 11.1200, Routes: []string{"r1", "r2"}}, // ~100 m from b1
		{ID: "s2", Lat: 46.0736, Lon: 11.1200, Routes: []string{"r2"}},       // ~400 m from b1
	}
	return stations, stops
}

func TestBuildSpatialOneRowPerStation(t *testing.T) {
	stations, stops := testStationsStops()
	rows := buildSpatial(stations, stops, 46.0679, 11.1211, []float64{300, 500})

	if len(rows) != len(stations) {
		t.Fatalf("rows = %d, want exactly one per station", len(rows))
	}

	b1 := rows[0]
	if b1.NearestStopID != "s1" || b1.NearestDistance == nil {
		t.Fatalf("nearest for b1 = %+v", b1)
	}
	if *b1.NearestDistance > 150 {
		t.Errorf("nearest distance = %.1f, want ~100 m", *b1.NearestDistance)
	}
	m300, _ := b1.BufferAt(300)
	m500, _ := b1.BufferAt(500)
	if m300.StopCount != 1 || m300.RouteCount != 2 {
		t.Errorf("300m metrics = %+v", m300)
	}
	if m500.StopCount != 2 || m500.RouteCount != 2 {
		t.Errorf("500m metrics = %+v", m500)
	}

	// remote station still gets an unconditional nearest stop
	b2 := rows[1]
	m300b, _ := b2.BufferAt(300)
	if m300b.StopCount != 0 || m300b.RouteCount != 0 {
		t.Errorf("remote station 300m metrics = %+v", m300b)
	}
	if b2.NearestStopID == "" || b2.NearestDistance == nil {
		t.Error("nearest stop must be populated even with zero stops in buffer")
	}
	if b2.DistToCenter <= b1.DistToCenter {
		t.Error("remote station should be farther from center")
	}
}

func TestSpatialRoundTrip(t *testing.T) {
	stations, stops := testStationsStops()
	radii := []float64{300, 500}
	rows := buildSpatial(stations, stops, 46.0679, 11.1211, radii)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, SpatialFile)
	geoPath := filepath.Join(dir, SpatialGeoFile)
	if err := WriteSpatial(csvPath, geoPath, rows, radii); err != nil {
		t.Fatal(err)
	}

	back, err := ReadSpatial(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != len(rows) {
		t.Fatalf("round trip rows = %d, want %d", len(back), len(rows))
	}
	for i := range rows {
		if back[i].StationID != rows[i].StationID {
			t.Errorf("row %d id = %q, want %q", i, back[i].StationID, rows[i].StationID)
		}
		for _, radius := range radii {
			a, _ := rows[i].BufferAt(radius)
			b, ok := back[i].BufferAt(radius)
			if !ok || a != b {
				t.Errorf("row %d buffer %vm = %+v, want %+v", i, radius, b, a)
			}
		}
	}
}

func TestTemporalRoundTrip(t *testing.T) {
	mobility := []clean.MobilityDay{
		{Date: day("2022-01-03"), Transit: f(-20), Work: f(-15)},
		{Date: day("2022-01-04"), Transit: f(-18)},
	}
	weather := []clean.WeatherDay{
		{Date: day("2022-01-03"), TempMax: f(6.5), PrecipMM: f(12)},
	}
	rows := buildTemporal(mobility, weather, 2022)

	path := filepath.Join(t.TempDir(), TemporalFile)
	if err := WriteTemporal(path, rows); err != nil {
		t.Fatal(err)
	}
	back, err := ReadTemporal(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 {
		t.Fatalf("rows = %d, want 2", len(back))
	}
	if !back[0].HasWeather || back[0].RainHeavy == nil || *back[0].RainHeavy != 1 {
		t.Errorf("row 0 = %+v", back[0])
	}
	if back[1].HasWeather || back[1].TempMax != nil {
		t.Errorf("row 1 should have nil weather: %+v", back[1])
	}
}

func TestServiceDensity(t *testing.T) {
	row := SpatialRow{Buffers: []BufferMetric{{Radius: 300, StopCount: 3}}}
	// 3 stops in a 300m disc ≈ 10.6 stops/km²
	got := row.ServiceDensity(300)
	if got < 10 || got > 11 {
		t.Errorf("density = %f, want ~10.6", got)
	}
	if row.ServiceDensity(999) != 0 {
		t.Error("unknown radius should yield zero density")
	}
}
