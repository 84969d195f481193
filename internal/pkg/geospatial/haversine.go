package geospatial

import (
	"math"

	"github.com/samirrijal/ridemetrics/internal/core/domain"
)

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

// HaversineKm calculates the great-circle distance in kilometers between two coordinates.
func HaversineKm(from, to domain.GeoCoordinate) float64 {
	lat1 := toRad(from.Lat)
	lat2 := toRad(to.Lat)
	dLat := lat2 - lat1
	dLng := toRad(to.Lng - from.Lng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	// Rounding can push a just outside [0, 1] for near-antipodal points.
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
