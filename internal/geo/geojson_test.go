package geo

import (
	"encoding/json"
	"testing"
)

func TestGeometryPoint(t *testing.T) {
	raw := `{"type":"Feature","properties":{"stop_id":"s1"},"geometry":{"type":"Point","coordinates":[11.12,46.07]}}`
	var f Feature
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatal(err)
	}
	lon, lat, err := f.Geometry.Point()
	if err != nil {
		t.Fatal(err)
	}
	if lon != 11.12 || lat != 46.07 {
		t.Errorf("point = (%v, %v), want (11.12, 46.07)", lon, lat)
	}
	if f.Properties["stop_id"] != "s1" {
		t.Errorf("properties = %v", f.Properties)
	}
}

func TestGeometryMultiPolygon(t *testing.T) {
	tests := []struct {
		name      string
		geom      string
		wantPolys int
		inside    [2]float64
	}{
		{
			name:      "polygon",
			geom:      `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`,
			wantPolys: 1,
			inside:    [2]float64{0.5, 0.5},
		},
		{
			name: "multipolygon",
			geom: `{"type":"MultiPolygon","coordinates":[
				[[[0,0],[1,0],[1,1],[0,1],[0,0]]],
				[[[2,2],[3,2],[3,3],[2,3],[2,2]]]]}`,
			wantPolys: 2,
			inside:    [2]float64{2.5, 2.5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Geometry
			if err := json.Unmarshal([]byte(tt.geom), &g); err != nil {
				t.Fatal(err)
			}
			mp, err := g.MultiPolygon()
			if err != nil {
				t.Fatal(err)
			}
			if len(mp) != tt.wantPolys {
				t.Fatalf("polygons = %d, want %d", len(mp), tt.wantPolys)
			}
			if !mp.Contains(tt.inside[0], tt.inside[1]) {
				t.Errorf("point %v should be inside", tt.inside)
			}
		})
	}
}

func TestGeometryTypeMismatch(t *testing.T) {
	var g Geometry
	if err := json.Unmarshal([]byte(`{"type":"Point","coordinates":[1,2]}`), &g); err != nil {
		t.Fatal(err)
	}
	if _, err := g.MultiPolygon(); err == nil {
		t.Error("MultiPolygon() on a Point should fail")
	}
}

func TestAppendPointRoundTrip(t *testing.T) {
	fc := NewFeatureCollection()
	fc.AppendPoint(11.12, 46.07, map[string]any{"station_id": "b1"})

	data, err := json.Marshal(fc)
	if err != nil {
		t.Fatal(err)
	}
	var back FeatureCollection
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back.Features) != 1 {
		t.Fatalf("features = %d, want 1", len(back.Features))
	}
	lon, lat, err := back.Features[0].Geometry.Point()
	if err != nil {
		t.Fatal(err)
	}
	if lon != 11.12 || lat != 46.07 {
		t.Errorf("round-trip point = (%v, %v)", lon, lat)
	}
}
