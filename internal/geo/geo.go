// Package geo provides great-circle distance math shared by the gazetteer,
// clusterer and route provider. Distances use the Haversine formula on
// WGS-84 coordinates; travel time estimation assumes a constant average
// driving speed suitable for Sri Lankan roads.
package geo

import "math"

const (
	// EarthRadiusKm is the mean radius of Earth in kilometers.
	EarthRadiusKm = 6371.0

	// AvgDrivingSpeedKmh is the assumed average driving speed used when
	// converting great-circle distance into minutes (traffic, stops).
	AvgDrivingSpeedKmh = 40.0
)

// Haversine returns the great-circle distance in kilometers between two
// (lat, lng) points given in decimal degrees.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rLat1 := degToRad(lat1)
	rLat2 := degToRad(lat2)
	dLat := degToRad(lat2 - lat1)
	dLng := degToRad(lng2 - lng1)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	a := sinLat*sinLat + math.Cos(rLat1)*math.Cos(rLat2)*sinLng*sinLng
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// TravelMinutes converts a distance in kilometers into estimated driving
// minutes at AvgDrivingSpeedKmh.
func TravelMinutes(distanceKm float64) float64 {
	return distanceKm / AvgDrivingSpeedKmh * 60.0
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
