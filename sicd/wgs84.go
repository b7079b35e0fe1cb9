package sicd

import "math"

// WGS 84 ellipsoid
const (
	wgs84SemiMajor    = 6378137.0
	wgs84Flattening   = 1.0 / 298.257223563
	wgs84Eccentricity = wgs84Flattening * (2 - wgs84Flattening) // first eccentricity squared
)

// geodeticToECEF converts latitude/longitude (degrees) and height above the
// ellipsoid (meters) to earth-centered earth-fixed coordinates (meters).
func geodeticToECEF(lat, lon, hae float64) [3]float64 {
	latRad := lat * math.Pi / 180
	lonRad := lon * math.Pi / 180
	sinLat, cosLat := math.Sincos(latRad)
	sinLon, cosLon := math.Sincos(lonRad)

	// prime vertical radius of curvature
	n := wgs84SemiMajor / math.Sqrt(1-wgs84Eccentricity*sinLat*sinLat)

	return [3]float64{
		(n + hae) * cosLat * cosLon,
		(n + hae) * cosLat * sinLon,
		(n*(1-wgs84Eccentricity) + hae) * sinLat,
	}
}

// ecefToGeodetic converts earth-centered earth-fixed coordinates (meters) to
// latitude/longitude (degrees) and height above the ellipsoid (meters),
// iterating Bowring's method to sub-millimeter convergence.
func ecefToGeodetic(p [3]float64) (lat, lon, hae float64) {
	x, y, z := p[0], p[1], p[2]
	lon = math.Atan2(y, x) * 180 / math.Pi

	r := math.Hypot(x, y)
	if r == 0 {
		if z >= 0 {
			return 90, lon, z - wgs84SemiMajor*math.Sqrt(1-wgs84Eccentricity)
		}
		return -90, lon, -z - wgs84SemiMajor*math.Sqrt(1-wgs84Eccentricity)
	}

	latRad := math.Atan2(z, r*(1-wgs84Eccentricity))
	for i := 0; i < 10; i++ {
		sinLat := math.Sin(latRad)
		n := wgs84SemiMajor / math.Sqrt(1-wgs84Eccentricity*sinLat*sinLat)
		hae = r/math.Cos(latRad) - n
		next := math.Atan2(z, r*(1-wgs84Eccentricity*n/(n+hae)))
		if math.Abs(next-latRad) < 1e-12 {
			latRad = next
			break
		}
		latRad = next
	}

	sinLat := math.Sin(latRad)
	n := wgs84SemiMajor / math.Sqrt(1-wgs84Eccentricity*sinLat*sinLat)
	hae = r/math.Cos(latRad) - n

	return latRad * 180 / math.Pi, lon, hae
}
