package market

import (
	"math"

	"github.com/yourorg/flipdash/harvest"
)

const earthRadiusMiles = 3959.87433

// haversineMiles is the great-circle distance between two points.
func haversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	lat1, lon1, lat2, lon2 = rad(lat1), rad(lon1), rad(lat2), rad(lon2)
	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return earthRadiusMiles * 2 * math.Asin(math.Sqrt(a))
}

// nearbyProperties returns the comparables with valid coordinates within
// radiusMiles of the target.
func nearbyProperties(target harvest.Property, comps []harvest.Property, radiusMiles float64) []harvest.Property {
	out := make([]harvest.Property, 0, len(comps))
	for _, c := range comps {
		if !c.HasValidCoords() {
			continue
		}
		d := haversineMiles(target.Latitude, target.Longitude, c.Latitude, c.Longitude)
		if d <= radiusMiles {
			out = append(out, c)
		}
	}
	return out
}
