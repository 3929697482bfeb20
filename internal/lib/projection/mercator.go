package projection

import "math"

// LonToX converts a longitude to a continuous Web Mercator tile x
// coordinate. Longitudes outside [-180, 180] wrap around.
func LonToX(lon float64, zoom int) float64 {
	if lon < -180 || lon > 180 {
		lon = floorMod(lon+180, 360) - 180
	}
	return ((lon + 180) / 360) * math.Pow(2, float64(zoom))
}

// LatToY converts a latitude to a continuous Web Mercator tile y
// coordinate. Latitudes outside [-90, 90] wrap around.
func LatToY(lat float64, zoom int) float64 {
	if lat < -90 || lat > 90 {
		lat = floorMod(lat+90, 180) - 90
	}
	rad := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2 * math.Pow(2, float64(zoom))
}

// XToLon is the inverse of LonToX.
func XToLon(x float64, zoom int) float64 {
	return x/math.Pow(2, float64(zoom))*360 - 180
}

// YToLat is the inverse of LatToY.
func YToLat(y float64, zoom int) float64 {
	return math.Atan(math.Sinh(math.Pi*(1-2*y/math.Pow(2, float64(zoom))))) / math.Pi * 180
}

// floorMod is a modulo whose result takes the sign of the divisor.
func floorMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m < 0 {
		m += b
	}
	return m
}
