package sicd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeodeticECEFRoundTrip(t *testing.T) {
	cases := []struct {
		name          string
		lat, lon, hae float64
	}{
		{"equator prime meridian", 0, 0, 0},
		{"mid latitude", 38.87, -77.02, 120.5},
		{"southern hemisphere", -33.86, 151.21, -12.0},
		{"high latitude", 78.22, 15.65, 450.0},
		{"date line", 10.0, 179.999, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := geodeticToECEF(tc.lat, tc.lon, tc.hae)
			lat, lon, hae := ecefToGeodetic(p)
			require.InDelta(t, tc.lat, lat, 1e-9)
			require.InDelta(t, tc.lon, lon, 1e-9)
			require.InDelta(t, tc.hae, hae, 1e-5)
		})
	}
}

func TestGeodeticToECEFKnownPoints(t *testing.T) {
	// equator/prime meridian sits on the semi-major axis
	p := geodeticToECEF(0, 0, 0)
	require.InDelta(t, 6378137.0, p[0], 1e-6)
	require.InDelta(t, 0.0, p[1], 1e-6)
	require.InDelta(t, 0.0, p[2], 1e-6)

	// the pole sits on the semi-minor axis
	p = geodeticToECEF(90, 0, 0)
	semiMinor := wgs84SemiMajor * (1 - wgs84Flattening)
	require.InDelta(t, 0.0, math.Hypot(p[0], p[1]), 1e-6)
	require.InDelta(t, semiMinor, p[2], 1e-6)
}

func TestECEFToGeodeticPole(t *testing.T) {
	semiMinor := wgs84SemiMajor * (1 - wgs84Flattening)
	lat, _, hae := ecefToGeodetic([3]float64{0, 0, semiMinor + 100})
	require.InDelta(t, 90.0, lat, 1e-9)
	require.InDelta(t, 100.0, hae, 1e-5)
}
