package geo

import "math"

const earthRadiusM = 6371000.0

// PointInPolygon reports whether p lies strictly inside the polygon using the
// standard ray-casting test (horizontal ray toward +longitude, odd crossing
// count means inside). Polygons with fewer than 3 vertices contain nothing.
//
// Points exactly on a polygon edge are undefined: the ray cast may report them
// as either side depending on floating-point rounding. Callers must not rely
// on boundary points being in or out.
func PointInPolygon(p Point, polygon []Point) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	j := len(polygon) - 1
	for i := 0; i < len(polygon); i++ {
		pi, pj := polygon[i], polygon[j]
		if (pi.Lat > p.Lat) != (pj.Lat > p.Lat) {
			crossLon := (pj.Lon-pi.Lon)*(p.Lat-pi.Lat)/(pj.Lat-pi.Lat) + pi.Lon
			if p.Lon < crossLon {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DetectClosure reports whether a recorded path has returned to its start:
// the last point is within toleranceM meters of the first and the path has at
// least minPoints points. A closed path needs 3 distinct vertices plus the
// returning point, so minPoints below 4 is clamped to 4.
func DetectClosure(path []Point, toleranceM float64, minPoints int) bool {
	if minPoints < 4 {
		minPoints = 4
	}
	if len(path) < minPoints {
		return false
	}
	return Haversine(path[0], path[len(path)-1]) <= toleranceM
}

// Area returns the polygon area in square meters via the shoelace formula on
// an equirectangular projection around the polygon's mean latitude. The
// planar approximation is within a fraction of a percent at territory scales
// (up to a few km across) — gameplay-grade, not surveying-grade.
func Area(boundary []Point) float64 {
	if len(boundary) < 3 {
		return 0
	}

	var latSum float64
	for _, p := range boundary {
		latSum += p.Lat
	}
	cosLat := math.Cos(latSum / float64(len(boundary)) * math.Pi / 180)

	// Project to meters on the tangent plane.
	xs := make([]float64, len(boundary))
	ys := make([]float64, len(boundary))
	for i, p := range boundary {
		xs[i] = p.Lon * math.Pi / 180 * earthRadiusM * cosLat
		ys[i] = p.Lat * math.Pi / 180 * earthRadiusM
	}

	var sum float64
	j := len(boundary) - 1
	for i := 0; i < len(boundary); i++ {
		sum += xs[j]*ys[i] - xs[i]*ys[j]
		j = i
	}
	return math.Abs(sum) / 2
}

// BoundingBox folds the boundary into min/max lat/lon.
func BoundingBox(boundary []Point) (BBox, error) {
	if len(boundary) == 0 {
		return BBox{}, ErrInsufficientPoints
	}

	box := BBox{
		MinLat: boundary[0].Lat, MaxLat: boundary[0].Lat,
		MinLon: boundary[0].Lon, MaxLon: boundary[0].Lon,
	}
	for _, p := range boundary[1:] {
		box.MinLat = math.Min(box.MinLat, p.Lat)
		box.MaxLat = math.Max(box.MaxLat, p.Lat)
		box.MinLon = math.Min(box.MinLon, p.Lon)
		box.MaxLon = math.Max(box.MaxLon, p.Lon)
	}
	return box, nil
}

// Centroid returns the arithmetic mean of the boundary points. Good enough
// for placing a map annotation; not the polygon's true center of mass.
func Centroid(boundary []Point) (Point, error) {
	if len(boundary) == 0 {
		return Point{}, ErrInsufficientPoints
	}
	var lat, lon float64
	for _, p := range boundary {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(boundary))
	return Point{Lat: lat / n, Lon: lon / n}, nil
}

// PathDistance returns the total walked distance along the path in meters.
func PathDistance(path []Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += Haversine(path[i-1], path[i])
	}
	return total
}

// DistinctPoints counts points that differ from their predecessor. Consecutive
// duplicate GPS fixes are legal in a recorded path but contribute nothing to
// the polygon.
func DistinctPoints(path []Point) int {
	if len(path) == 0 {
		return 0
	}
	n := 1
	for i := 1; i < len(path); i++ {
		if path[i] != path[i-1] {
			n++
		}
	}
	return n
}
