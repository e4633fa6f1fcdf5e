package geo

import "math"

// Krasovsky 1940 ellipsoid, the datum GCJ-02 is defined against.
const (
	semiMajorAxis  = 6378245.0
	eccentricitySq = 0.00669342162296594323
)

// The GCJ-02 offset only applies inside this bounding region; coordinates
// outside it pass through unchanged.
const (
	regionLonMin = 72.004
	regionLonMax = 137.8347
	regionLatMin = 0.8293
	regionLatMax = 55.8271
)

// ToGCJ02 converts a WGS-84 point to GCJ-02 for map display. Points outside
// the offset region are returned unchanged.
func ToGCJ02(p Point) Point {
	if outsideRegion(p) {
		return p
	}
	dLat, dLon := delta(p.Lat, p.Lon)
	return Point{Lat: p.Lat + dLat, Lon: p.Lon + dLon}
}

// ToWGS84 inverts ToGCJ02. The transform has no closed-form inverse, so the
// estimate is refined by fixed-point iteration: apply the forward transform,
// subtract the residual, repeat. The near-identity Jacobian guarantees
// convergence well inside the iteration cap.
func ToWGS84(p Point) Point {
	if outsideRegion(p) {
		return p
	}

	est := p
	for i := 0; i < 10; i++ {
		fwd := ToGCJ02(est)
		resLat := fwd.Lat - p.Lat
		resLon := fwd.Lon - p.Lon
		est.Lat -= resLat
		est.Lon -= resLon
		if math.Abs(resLat) < 1e-9 && math.Abs(resLon) < 1e-9 {
			break
		}
	}
	return est
}

func outsideRegion(p Point) bool {
	return p.Lon < regionLonMin || p.Lon > regionLonMax ||
		p.Lat < regionLatMin || p.Lat > regionLatMax
}

// delta returns the (lat, lon) offset in degrees for an in-region point.
func delta(lat, lon float64) (float64, float64) {
	dLat := transformLat(lon-105.0, lat-35.0)
	dLon := transformLon(lon-105.0, lat-35.0)

	radLat := lat / 180.0 * math.Pi
	magic := math.Sin(radLat)
	magic = 1 - eccentricitySq*magic*magic
	sqrtMagic := math.Sqrt(magic)

	dLat = (dLat * 180.0) / ((semiMajorAxis * (1 - eccentricitySq)) / (magic * sqrtMagic) * math.Pi)
	dLon = (dLon * 180.0) / (semiMajorAxis / sqrtMagic * math.Cos(radLat) * math.Pi)
	return dLat, dLon
}

func transformLat(x, y float64) float64 {
	ret := -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(y*math.Pi) + 40.0*math.Sin(y/3.0*math.Pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(y/12.0*math.Pi) + 320.0*math.Sin(y*math.Pi/30.0)) * 2.0 / 3.0
	return ret
}

func transformLon(x, y float64) float64 {
	ret := 300.0 + x + 2.0*y + 0.1*x*x + 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(x*math.Pi) + 40.0*math.Sin(x/3.0*math.Pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(x/12.0*math.Pi) + 300.0*math.Sin(x/30.0*math.Pi)) * 2.0 / 3.0
	return ret
}
