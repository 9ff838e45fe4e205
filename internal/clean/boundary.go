package clean

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/camillabonomo02/CSS-project/internal/csvio"
	"github.com/camillabonomo02/CSS-project/internal/geo"
)

// Unit is an administrative subdivision (circoscrizione) with its boundary
// and, when the population file is present, the 2024 household count.
type Unit struct {
	ID       string
	Name     string
	Families *float64
	Boundary geo.MultiPolygon

	// feature keeps the original geometry bytes so the interim GeoJSON is a
	// faithful, byte-stable re-export.
	feature geo.Feature
}

type populationRow struct {
	Name     string `csv:"Circumscription"`
	Families string `csv:"Families_2024"`
}

// cleanBoundaries joins the boundary GeoJSON with the household population CSV
// by normalized unit name. Both files are optional; with no boundary file the
// unit-level aggregation downstream is skipped.
func (c *Cleaner) cleanBoundaries(geoPath, popPath string) ([]Unit, error) {
	if c.cfg.Clean.BoundariesFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(geoPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Info("boundaries file not found, skipping unit aggregation", "path", geoPath)
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", geoPath, err)
	}
	var fc geo.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", geoPath, err)
	}

	families := make(map[string]*float64)
	if c.cfg.Clean.PopulationFile != "" {
		if _, err := os.Stat(popPath); err == nil {
			rows, err := csvio.ReadFile[populationRow](popPath)
			if err != nil {
				return nil, err
			}
			for _, r := range rows {
				families[normName(r.Name)] = parseOpt(r.Families)
			}
		}
	}

	var units []Unit
	for i, f := range fc.Features {
		name, _ := f.Properties["nome"].(string)
		if name == "" {
			name, _ = f.Properties["name"].(string)
		}
		if name == "" {
			c.drop("boundaries", fmt.Sprintf("feature %d", i), "missing unit name")
			continue
		}
		mp, err := f.Geometry.MultiPolygon()
		if err != nil {
			c.drop("boundaries", name, err.Error())
			continue
		}
		id := unitID(f.Properties, i)
		units = append(units, Unit{
			ID:       id,
			Name:     name,
			Families: families[normName(name)],
			Boundary: mp,
			feature:  f,
		})
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("%s: no usable boundary features", geoPath)
	}
	return units, nil
}

// normName canonicalizes unit names for the population join: the two sources
// disagree on case and dash variants.
func normName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "–", "-")
	s = strings.ReplaceAll(s, "—", "-")
	return s
}

func unitID(props map[string]any, idx int) string {
	for _, key := range []string{"numero", "id", "cod"} {
		switch v := props[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.Itoa(int(v))
		}
	}
	return strconv.Itoa(idx + 1)
}

// WriteUnits re-exports the boundaries with canonical properties.
func WriteUnits(path string, units []Unit) error {
	fc := geo.NewFeatureCollection()
	for _, u := range units {
		props := map[string]any{
			"unit_id": u.ID,
			"name":    u.Name,
		}
		if u.Families != nil {
			props["families_2024"] = *u.Families
		}
		fc.Features = append(fc.Features, geo.Feature{
			Type:       "Feature",
			Properties: props,
			Geometry:   u.feature.Geometry,
		})
	}
	return writeGeoJSON(path, fc)
}

// ReadUnits loads the interim boundary table. A missing file yields no units
// and no error: the boundary source is optional.
func ReadUnits(path string) ([]Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var fc geo.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	var units []Unit
	for i, f := range fc.Features {
		mp, err := f.Geometry.MultiPolygon()
		if err != nil {
			return nil, fmt.Errorf("%s: feature %d: %w", path, i, err)
		}
		name, _ := f.Properties["name"].(string)
		id, _ := f.Properties["unit_id"].(string)
		var fam *float64
		if v, ok := f.Properties["families_2024"].(float64); ok {
			fam = &v
		}
		units = append(units, Unit{ID: id, Name: name, Families: fam, Boundary: mp, feature: f})
	}
	return units, nil
}

func writeGeoJSON(path string, fc *geo.FeatureCollection) error {
	return geo.WriteFeatureCollection(path, fc)
}
