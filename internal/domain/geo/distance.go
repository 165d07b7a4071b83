package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle (haversine) distance in kilometers.
// A NaN in any argument stands for a missing value and yields 0.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	if anyNaN(lat1, lng1, lat2, lng2) {
		return 0
	}

	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lng2 - lng1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// BearingDeg returns the initial bearing from point 1 to point 2 in [0, 360).
// A NaN in any argument yields 0.
func BearingDeg(lat1, lng1, lat2, lng2 float64) float64 {
	if anyNaN(lat1, lng1, lat2, lng2) {
		return 0
	}

	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dLambda := toRadians(lng2 - lng1)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	bearing := math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
	// float rounding can land exactly on 360 for tiny negative angles
	if bearing >= 360 {
		bearing = 0
	}
	return bearing
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
