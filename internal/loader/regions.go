package loader

import (
	"encoding/json"
	"fmt"
	"os"
)

// RegionLayer is the auxiliary risk-region polygon layer used to assign
// subregions by point-in-polygon lookup. Loaded from a GeoJSON
// FeatureCollection of Polygon/MultiPolygon features with a "name" (or
// "subregion") property.
type RegionLayer struct {
	Regions []Region
}

// Region is one named area, possibly with multiple rings.
type Region struct {
	Name string
	// Polygons holds outer rings as [][lon, lat]; interior holes are
	// not modeled, the risk regions have none.
	Polygons [][][2]float64
}

type geoFeatureCollection struct {
	Features []struct {
		Properties map[string]any `json:"properties"`
		Geometry   struct {
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// LoadRegions parses a GeoJSON file into a RegionLayer.
func LoadRegions(path string) (*RegionLayer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region layer: %w", err)
	}
	var fc geoFeatureCollection
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("parse region layer: %w", err)
	}
	layer := &RegionLayer{}
	for i, f := range fc.Features {
		name := featureName(f.Properties)
		if name == "" {
			return nil, fmt.Errorf("region feature %d has no name property", i)
		}
		r := Region{Name: name}
		switch f.Geometry.Type {
		case "Polygon":
			var rings [][][2]float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &rings); err != nil {
				return nil, fmt.Errorf("region %s: %w", name, err)
			}
			if len(rings) > 0 {
				r.Polygons = append(r.Polygons, rings[0])
			}
		case "MultiPolygon":
			var polys [][][][2]float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &polys); err != nil {
				return nil, fmt.Errorf("region %s: %w", name, err)
			}
			for _, rings := range polys {
				if len(rings) > 0 {
					r.Polygons = append(r.Polygons, rings[0])
				}
			}
		default:
			return nil, fmt.Errorf("region %s: unsupported geometry %q", name, f.Geometry.Type)
		}
		layer.Regions = append(layer.Regions, r)
	}
	return layer, nil
}

func featureName(props map[string]any) string {
	for _, key := range []string{"name", "Name", "subregion", "Subregion"} {
		if v, ok := props[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Lookup returns the first region containing the point, in layer order.
// Regions do not overlap, so order only breaks boundary ties.
func (l *RegionLayer) Lookup(lat, lon float64) (string, bool) {
	for _, r := range l.Regions {
		for _, ring := range r.Polygons {
			if pointInRing(lon, lat, ring) {
				return r.Name, true
			}
		}
	}
	return "", false
}

// pointInRing is the even-odd ray-casting test against one outer ring.
func pointInRing(x, y float64, ring [][2]float64) bool {
	inside := false
	n := len(ring)
	if n < 3 {
		return false
	}
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
