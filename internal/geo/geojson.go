package geo

import (
	"encoding/json"
	"fmt"
	"os"
)

// FeatureCollection is a minimal typed GeoJSON document: enough for point
// exports and administrative boundary polygons, nothing more.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature pairs a geometry with free-form properties.
type Feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   Geometry       `json:"geometry"`
}

// Geometry keeps coordinates raw until the caller asks for a concrete shape.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// NewFeatureCollection returns an empty collection ready for appending.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// AppendPoint adds a point feature with the given properties.
func (fc *FeatureCollection) AppendPoint(lon, lat float64, props map[string]any) {
	coords, _ := json.Marshal([2]float64{lon, lat})
	fc.Features = append(fc.Features, Feature{
		Type:       "Feature",
		Properties: props,
		Geometry:   Geometry{Type: "Point", Coordinates: coords},
	})
}

// WriteFeatureCollection marshals the collection to a GeoJSON file.
// encoding/json sorts property keys, so output is deterministic.
func WriteFeatureCollection(path string, fc *FeatureCollection) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Point decodes a Point geometry into lon/lat.
func (g Geometry) Point() (lon, lat float64, err error) {
	if g.Type != "Point" {
		return 0, 0, fmt.Errorf("geometry type %q is not a Point", g.Type)
	}
	var c [2]float64
	if err := json.Unmarshal(g.Coordinates, &c); err != nil {
		return 0, 0, fmt.Errorf("decode point coordinates: %w", err)
	}
	return c[0], c[1], nil
}

// MultiPolygon decodes a Polygon or MultiPolygon geometry.
func (g Geometry) MultiPolygon() (MultiPolygon, error) {
	switch g.Type {
	case "Polygon":
		var rings [][][2]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("decode polygon coordinates: %w", err)
		}
		return MultiPolygon{polygonFromRings(rings)}, nil
	case "MultiPolygon":
		var polys [][][][2]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("decode multipolygon coordinates: %w", err)
		}
		mp := make(MultiPolygon, 0, len(polys))
		for _, rings := range polys {
			mp = append(mp, polygonFromRings(rings))
		}
		return mp, nil
	default:
		return nil, fmt.Errorf("geometry type %q is not polygonal", g.Type)
	}
}

func polygonFromRings(rings [][][2]float64) Polygon {
	var p Polygon
	for i, r := range rings {
		ring := make(Ring, len(r))
		for j, v := range r {
			ring[j] = v
		}
		if i == 0 {
			p.Outer = ring
		} else {
			p.Holes = append(p.Holes, ring)
		}
	}
	return p
}
