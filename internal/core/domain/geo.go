package domain

import (
	"fmt"
	"math"
)

// GeoCoordinate represents a geographic coordinate (WGS 84) in degrees.
type GeoCoordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports whether the coordinate holds finite, in-range degrees.
func (g GeoCoordinate) Validate() error {
	if math.IsNaN(g.Lat) || math.IsInf(g.Lat, 0) || math.IsNaN(g.Lng) || math.IsInf(g.Lng, 0) {
		return fmt.Errorf("coordinate must be finite, got (%v, %v)", g.Lat, g.Lng)
	}
	if g.Lat < -90 || g.Lat > 90 {
		return fmt.Errorf("lat must be within [-90, 90], got %v", g.Lat)
	}
	if g.Lng < -180 || g.Lng > 180 {
		return fmt.Errorf("lng must be within [-180, 180], got %v", g.Lng)
	}
	return nil
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// BoundsOf returns the smallest box containing every coordinate.
// An empty slice yields the zero box.
func BoundsOf(coords []GeoCoordinate) Bounds {
	if len(coords) == 0 {
		return Bounds{}
	}
	b := Bounds{MinLat: coords[0].Lat, MinLng: coords[0].Lng, MaxLat: coords[0].Lat, MaxLng: coords[0].Lng}
	for _, c := range coords[1:] {
		b.MinLat = math.Min(b.MinLat, c.Lat)
		b.MinLng = math.Min(b.MinLng, c.Lng)
		b.MaxLat = math.Max(b.MaxLat, c.Lat)
		b.MaxLng = math.Max(b.MaxLng, c.Lng)
	}
	return b
}
