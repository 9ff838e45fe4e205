package gtfs

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFeedDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testFeedFiles() map[string]string {
	return map[string]string{
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"s1,Duomo,46.0672,11.1217\n" +
			"s2,Stazione FS,46.0722,11.1193\n",
		"routes.txt": "route_id,route_short_name,route_type\n" +
			"r1,5,3\n" +
			"r2,A,3\n",
		"trips.txt": "route_id,service_id,trip_id\n" +
			"r1,wk,t1\n" +
			"r1,wk,t2\n" +
			"r2,wk,t3\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"t1,08:00:00,08:00:00,s1,1\n" +
			"t2,09:00:00,09:00:00,s1,1\n" +
			"t3,08:10:00,08:10:00,s1,1\n" +
			"t3,08:20:00,08:20:00,s2,2\n",
	}
}

func TestLoadDir(t *testing.T) {
	dir := writeFeedDir(t, testFeedFiles())
	feed, err := LoadDir(dir, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Stops) != 2 || len(feed.Routes) != 2 || len(feed.Trips) != 3 {
		t.Errorf("feed sizes: stops=%d routes=%d trips=%d", len(feed.Stops), len(feed.Routes), len(feed.Trips))
	}
	if feed.Stops[0].StopName != "Duomo" {
		t.Errorf("stop name = %q", feed.Stops[0].StopName)
	}
	// optional tables absent, not an error
	if feed.Calendar != nil || feed.Shapes != nil {
		t.Error("missing optional tables should stay nil")
	}
}

func TestLoadDirMissingRequired(t *testing.T) {
	files := testFeedFiles()
	delete(files, "stop_times.txt")
	dir := writeFeedDir(t, files)
	if _, err := LoadDir(dir, slog.New(slog.NewTextHandler(os.Stderr, nil))); err == nil {
		t.Fatal("expected error for missing stop_times.txt")
	}
}

func TestRoutesPerStop(t *testing.T) {
	dir := writeFeedDir(t, testFeedFiles())
	feed, err := LoadDir(dir, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		t.Fatal(err)
	}

	rps := feed.RoutesPerStop()

	// s1 is served by t1,t2 (both r1) and t3 (r2): distinct routes {r1, r2}.
	if got, want := rps["s1"], []string{"r1", "r2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("routes at s1 = %v, want %v", got, want)
	}
	// s2 only sees t3 → r2.
	if got, want := rps["s2"], []string{"r2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("routes at s2 = %v, want %v", got, want)
	}
}

func TestTripsPerRoute(t *testing.T) {
	dir := writeFeedDir(t, testFeedFiles())
	feed, err := LoadDir(dir, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		t.Fatal(err)
	}
	tpr := feed.TripsPerRoute()
	if got, want := tpr["r1"], []string{"t1", "t2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("trips on r1 = %v, want %v", got, want)
	}
}
