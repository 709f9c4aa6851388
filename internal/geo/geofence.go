package geo

import "math"

const earthRadiusM = 6371000.0

// DistanceMeters returns the great-circle distance between two coordinates
// using the haversine formula.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// IsWithinHomeRadius reports whether the current location is within radiusM
// of home. Callers treat home (0,0) as "no home set" and must not arrive-detect.
func IsWithinHomeRadius(curLat, curLng, homeLat, homeLng, radiusM float64) bool {
	return DistanceMeters(curLat, curLng, homeLat, homeLng) <= radiusM
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
