package server

import (
	"math"
	"math/rand"
)

// metersPerDegree is the approximate length of one degree of latitude.
const metersPerDegree = 111111.0

// SamplePoints generates count random points on the local tangent plane
// around center, each between minDist and maxDist meters away. Distance
// and bearing are sampled uniformly; the longitude offset corrects for
// meridian convergence at the center's latitude.
func SamplePoints(center [2]float64, minDist, maxDist float64, count int) ([][2]float64, error) {
	if minDist > maxDist {
		return nil, ValidationError("minDistance must not exceed maxDistance")
	}

	points := make([][2]float64, 0, count)
	for i := 0; i < count; i++ {
		dist := minDist + rand.Float64()*(maxDist-minDist)
		angle := rand.Float64() * 2 * math.Pi

		latOffset := dist * math.Cos(angle) / metersPerDegree
		lonOffset := dist * math.Sin(angle) / (metersPerDegree * math.Cos(center[0]*math.Pi/180))

		points = append(points, [2]float64{
			center[0] + latOffset,
			center[1] + lonOffset,
		})
	}
	return points, nil
}

// haversine calculates distance between two points in meters
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000 // Earth's radius in meters
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
