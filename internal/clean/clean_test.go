package clean

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/camillabonomo02/CSS-project/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeRawFixtures(t *testing.T, raw string) {
	t.Helper()
	files := map[string]string{
		"trento_era5_daily_2020_2022.json": `{"daily":{
			"time":["2022-01-01","2022-01-02","not-a-date"],
			"temperature_2m_max":[5.1,6.2,7.0],
			"temperature_2m_min":[-2.0,-1.5,0.1],
			"temperature_2m_mean":[1.5,2.0,3.0],
			"precipitation_sum":[0,12.5,1],
			"windspeed_10m_max":[10,null,12]}}`,
		"2022_IT_Region_Mobility_Report.csv": "sub_region_1,sub_region_2,date,retail_and_recreation_percent_change_from_baseline,transit_stations_percent_change_from_baseline,workplaces_percent_change_from_baseline\n" +
			"Trentino-South Tyrol,Autonomous Province of Trento,2022-01-01,-12,-20,-15\n" +
			"Trentino-South Tyrol,Autonomous Province of Trento,2022-01-02,,-18,-10\n" +
			"Trentino-South Tyrol,Autonomous Province of Bolzano,2022-01-01,-5,-6,-7\n" +
			"Trentino-South Tyrol,Autonomous Province of Trento,bad-date,-1,-2,-3\n",
		"stazioni_trento.csv": "WKT;id;fumetto;desc;cicloposteggi;tipologia\n" +
			"POINT (663132.53 5104569.75);b1;Piazza Dante;front;20;std\n" +
			"POINT (663300.00 5104100.00);b2;Duomo;side;16;std\n" +
			"POINT (663132.53 5104569.75);b1;Piazza Dante bis;dup;10;std\n" +
			"not-a-point;b3;Broken;x;5;std\n",
		"circoscrizioni.geojson": `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{"nome":"Centro Storico","numero":1},
			 "geometry":{"type":"Polygon","coordinates":[[[11.10,46.05],[11.14,46.05],[11.14,46.09],[11.10,46.09],[11.10,46.05]]]}}]}`,
		"famiglie_circoscrizioni_2024.csv": "Circumscription,Families_2024\nCentro Storico,5200\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(raw, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	gtfsDir := filepath.Join(raw, "gtfs")
	if err := os.MkdirAll(gtfsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	gtfsFiles := map[string]string{
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"s1,Stazione FS,46.0722,11.1193\n" +
			"s2,Duomo,46.0672,11.1217\n" +
			"s3,Broken,abc,11.1\n",
		"routes.txt":     "route_id,route_short_name,route_type\nr1,5,3\nr2,A,3\n",
		"trips.txt":      "route_id,service_id,trip_id\nr1,wk,t1\nr2,wk,t2\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\nt1,08:00:00,08:00:00,s1,1\nt2,08:05:00,08:05:00,s1,1\nt2,08:15:00,08:15:00,s2,2\n",
	}
	for name, content := range gtfsFiles {
		if err := os.WriteFile(filepath.Join(gtfsDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.RawDir = filepath.Join(base, "raw")
	cfg.Paths.InterimDir = filepath.Join(base, "interim")
	cfg.Paths.ProcessedDir = filepath.Join(base, "processed")
	cfg.Paths.ReportsDir = filepath.Join(base, "reports")
	if err := os.MkdirAll(cfg.Paths.RawDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeRawFixtures(t, cfg.Paths.RawDir)
	return cfg
}

func TestCleanerRun(t *testing.T) {
	cfg := testConfig(t)
	c := New(cfg, testLogger())
	if err := c.Run(); err != nil {
		t.Fatal(err)
	}

	stations, err := ReadStations(filepath.Join(cfg.Paths.InterimDir, StationsFile))
	if err != nil {
		t.Fatal(err)
	}
	// b1 kept once (first occurrence), b2 kept, duplicate and broken dropped.
	if len(stations) != 2 {
		t.Fatalf("stations = %d, want 2", len(stations))
	}
	if stations[0].ID != "b1" || stations[0].Name != "Piazza Dante" {
		t.Errorf("first-occurrence rule violated: %+v", stations[0])
	}
	// reprojected into Trento's WGS84 neighborhood
	if stations[0].Lat < 46.0 || stations[0].Lat > 46.2 || stations[0].Lon < 11.0 || stations[0].Lon > 11.3 {
		t.Errorf("station b1 reprojection out of range: lat=%f lon=%f", stations[0].Lat, stations[0].Lon)
	}

	stops, err := ReadStops(filepath.Join(cfg.Paths.InterimDir, StopsFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(stops) != 2 {
		t.Fatalf("stops = %d, want 2 (broken coordinate dropped)", len(stops))
	}
	if len(stops[0].Routes) != 2 {
		t.Errorf("s1 routes = %v, want two distinct routes", stops[0].Routes)
	}

	weather, err := ReadWeather(filepath.Join(cfg.Paths.InterimDir, WeatherFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(weather) != 2 {
		t.Fatalf("weather days = %d, want 2 (bad date dropped)", len(weather))
	}
	if weather[1].WindMax != nil {
		t.Error("null wind value should stay nil")
	}

	mobility, err := ReadMobility(filepath.Join(cfg.Paths.InterimDir, MobilityFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(mobility) != 2 {
		t.Fatalf("mobility days = %d, want 2 (other region and bad date excluded)", len(mobility))
	}
	if mobility[1].Retail != nil {
		t.Error("empty mobility cell should stay nil")
	}

	units, err := ReadUnits(filepath.Join(cfg.Paths.InterimDir, BoundariesFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 1 || units[0].Families == nil || *units[0].Families != 5200 {
		t.Errorf("units = %+v", units)
	}

	// every dropped row carries a reason
	for _, d := range c.Drops() {
		if d.Reason == "" {
			t.Errorf("drop without reason: %+v", d)
		}
	}
	if len(c.Drops()) == 0 {
		t.Error("fixtures contain malformed rows, drops expected")
	}
}

func TestCleanerIdempotent(t *testing.T) {
	cfg := testConfig(t)

	if err := New(cfg, testLogger()).Run(); err != nil {
		t.Fatal(err)
	}
	first := readAll(t, cfg.Paths.InterimDir)

	if err := New(cfg, testLogger()).Run(); err != nil {
		t.Fatal(err)
	}
	second := readAll(t, cfg.Paths.InterimDir)

	if len(first) != len(second) {
		t.Fatalf("file sets differ: %d vs %d", len(first), len(second))
	}
	for name, content := range first {
		if second[name] != content {
			t.Errorf("%s changed between identical runs", name)
		}
	}
}

func TestCleanerMissingRequiredFile(t *testing.T) {
	cfg := testConfig(t)
	if err := os.Remove(filepath.Join(cfg.Paths.RawDir, cfg.Clean.StationsFile)); err != nil {
		t.Fatal(err)
	}
	err := New(cfg, testLogger()).Run()
	if err == nil {
		t.Fatal("missing stations file must be fatal for the stage")
	}
}

func readAll(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		out[e.Name()] = string(data)
	}
	return out
}
