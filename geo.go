// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim

import "math"

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// minSpeedKmph floors the divisor in travel-time calculations so a zero or
// negative speed yields a finite, very large duration instead of dividing by
// zero.
const minSpeedKmph = 1e-6

// Haversine returns the great-circle distance in kilometers between two
// points given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dphi := (lat2 - lat1) * math.Pi / 180
	dlambda := (lon2 - lon1) * math.Pi / 180
	sinPhi := math.Sin(dphi / 2)
	sinLambda := math.Sin(dlambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// TravelMinutes returns the time in minutes to cover distKm at speedKmph.
func TravelMinutes(distKm, speedKmph float64) float64 {
	return distKm / math.Max(speedKmph, minSpeedKmph) * 60
}
