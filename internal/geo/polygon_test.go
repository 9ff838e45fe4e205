package geo

import (
	"math"
	"testing"
)

func unitSquare() Polygon {
	return Polygon{Outer: Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
}

func TestRingContains(t *testing.T) {
	sq := unitSquare()

	tests := []struct {
		name     string
		lon, lat float64
		want     bool
	}{
		{"center", 0.5, 0.5, true},
		{"outside right", 1.5, 0.5, false},
		{"outside above", 0.5, 1.5, false},
		{"on edge", 1.0, 0.5, true},
		{"on vertex", 0, 0, true},
		{"just inside", 0.999, 0.999, true},
		{"just outside", 1.001, 0.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sq.Contains(tt.lon, tt.lat); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.lon, tt.lat, got, tt.want)
			}
		})
	}
}

func TestPolygonHole(t *testing.T) {
	p := unitSquare()
	p.Holes = []Ring{{{0.4, 0.4}, {0.6, 0.4}, {0.6, 0.6}, {0.4, 0.6}, {0.4, 0.4}}}

	if p.Contains(0.5, 0.5) {
		t.Error("point inside hole should not be contained")
	}
	if !p.Contains(0.2, 0.2) {
		t.Error("point outside hole should be contained")
	}
}

func TestContainsUnclosedRing(t *testing.T) {
	// Same square without the closing vertex.
	open := Polygon{Outer: Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}
	if !open.Contains(0.5, 0.5) {
		t.Error("unclosed ring should still contain its center")
	}
	if open.Contains(2, 2) {
		t.Error("unclosed ring should not contain an exterior point")
	}
}

func TestContainsDegenerateEdges(t *testing.T) {
	// A duplicated interior vertex adds a zero-length edge. It must match
	// only its own vertex, never the whole plane.
	dup := Ring{{0, 0}, {1, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	if dup.Contains(5, 5) {
		t.Error("point far outside should not be contained")
	}
	if !dup.Contains(1, 0) {
		t.Error("the duplicated vertex itself should be contained")
	}
	if !dup.Contains(0.5, 0.5) {
		t.Error("interior point should be contained")
	}
}

func TestContainsOrderIndependence(t *testing.T) {
	// Point-in-polygon depends only on geometry: reversing vertex order must
	// not change the result.
	fwd := Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	rev := Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}
	pts := [][2]float64{{0.5, 0.5}, {1.5, 0.5}, {1.0, 0.5}, {0.25, 0.75}}
	for _, pt := range pts {
		if fwd.Contains(pt[0], pt[1]) != rev.Contains(pt[0], pt[1]) {
			t.Errorf("containment of %v differs with vertex order", pt)
		}
	}
}

func TestCentroid(t *testing.T) {
	mp := MultiPolygon{unitSquare()}
	lon, lat := mp.Centroid()
	if math.Abs(lon-0.5) > 1e-9 || math.Abs(lat-0.5) > 1e-9 {
		t.Errorf("centroid = (%f, %f), want (0.5, 0.5)", lon, lat)
	}
}

func TestBoundingBox(t *testing.T) {
	mp := MultiPolygon{
		unitSquare(),
		{Outer: Ring{{2, 2}, {3, 2}, {3, 4}, {2, 4}, {2, 2}}},
	}
	minLon, minLat, maxLon, maxLat := mp.BoundingBox()
	if minLon != 0 || minLat != 0 || maxLon != 3 || maxLat != 4 {
		t.Errorf("bbox = (%v,%v,%v,%v), want (0,0,3,4)", minLon, minLat, maxLon, maxLat)
	}
}
