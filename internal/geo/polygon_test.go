package geo

import (
	"math"
	"testing"
)

func TestPointInPolygonUnitSquare(t *testing.T) {
	square := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 1, Lon: 0},
		{Lat: 1, Lon: 1},
		{Lat: 0, Lon: 1},
	}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", Point{Lat: 0.5, Lon: 0.5}, true},
		{"outside", Point{Lat: 2, Lon: 2}, false},
		{"outside west", Point{Lat: 0.5, Lon: -0.5}, false},
		{"near corner inside", Point{Lat: 0.001, Lon: 0.001}, true},
	}

	for _, tt := range tests {
		if got := PointInPolygon(tt.p, square); got != tt.want {
			t.Errorf("%s: PointInPolygon(%v) = %v, want %v", tt.name, tt.p, got, tt.want)
		}
	}

	// A point exactly on an edge is undefined by the ray cast; we only pin
	// down that the call does not panic and returns a bool deterministically.
	edge := Point{Lat: 0.5, Lon: 0}
	first := PointInPolygon(edge, square)
	for i := 0; i < 3; i++ {
		if PointInPolygon(edge, square) != first {
			t.Fatal("edge point result is not deterministic")
		}
	}
}

func TestPointInPolygonDegenerate(t *testing.T) {
	if PointInPolygon(Point{}, nil) {
		t.Error("nil polygon should contain nothing")
	}
	if PointInPolygon(Point{}, []Point{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}) {
		t.Error("two-point polygon should contain nothing")
	}
}

func TestAreaHundredMeterSquare(t *testing.T) {
	// ~100m x 100m square at the equator: 100m ≈ 0.000899 degrees.
	d := 100.0 / earthRadiusM * 180 / math.Pi
	square := []Point{
		{Lat: 0, Lon: 0},
		{Lat: d, Lon: 0},
		{Lat: d, Lon: d},
		{Lat: 0, Lon: d},
	}

	got := Area(square)
	want := 10000.0
	if math.Abs(got-want)/want > 0.05 {
		t.Errorf("Area = %v, want %v within 5%%", got, want)
	}
}

func TestAreaDegenerate(t *testing.T) {
	if got := Area([]Point{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}); got != 0 {
		t.Errorf("Area of 2 points = %v, want 0", got)
	}
}

func TestDetectClosure(t *testing.T) {
	// Roughly a 200m square walk near Berlin, last fix back at the start.
	path := []Point{
		{Lat: 52.5200, Lon: 13.4050},
		{Lat: 52.5218, Lon: 13.4050},
		{Lat: 52.5218, Lon: 13.4080},
		{Lat: 52.5200, Lon: 13.4080},
		{Lat: 52.52001, Lon: 13.40501}, // ~1.3m from start
	}

	if !DetectClosure(path, 30, 4) {
		t.Error("expected closure for a path returning to its start")
	}

	// Same walk but the last fix ~50m away.
	open := append(append([]Point{}, path[:4]...), Point{Lat: 52.52045, Lon: 13.4050})
	if DetectClosure(open, 30, 4) {
		t.Error("expected no closure when the last fix is 50m from the start")
	}

	// Too few points even when start == end.
	short := []Point{{Lat: 52.52, Lon: 13.405}, {Lat: 52.5201, Lon: 13.4051}, {Lat: 52.52, Lon: 13.405}}
	if DetectClosure(short, 30, 4) {
		t.Error("expected no closure for a 3-point path")
	}
}

func TestHaversine(t *testing.T) {
	// One degree of latitude ≈ 111.2 km.
	d := Haversine(Point{Lat: 0, Lon: 0}, Point{Lat: 1, Lon: 0})
	if math.Abs(d-111195) > 200 {
		t.Errorf("Haversine = %v, want ≈111195", d)
	}
	if Haversine(Point{Lat: 5, Lon: 5}, Point{Lat: 5, Lon: 5}) != 0 {
		t.Error("distance from a point to itself should be 0")
	}
}

func TestBoundingBox(t *testing.T) {
	box, err := BoundingBox([]Point{
		{Lat: 1, Lon: 10},
		{Lat: -2, Lon: 12},
		{Lat: 3, Lon: 8},
	})
	if err != nil {
		t.Fatalf("BoundingBox: %v", err)
	}
	want := BBox{MinLat: -2, MaxLat: 3, MinLon: 8, MaxLon: 12}
	if box != want {
		t.Errorf("BoundingBox = %+v, want %+v", box, want)
	}

	if _, err := BoundingBox(nil); err != ErrInsufficientPoints {
		t.Errorf("BoundingBox(nil) err = %v, want ErrInsufficientPoints", err)
	}
}

func TestPathDistance(t *testing.T) {
	path := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 1, Lon: 0},
		{Lat: 2, Lon: 0},
	}
	d := PathDistance(path)
	if math.Abs(d-2*111195) > 500 {
		t.Errorf("PathDistance = %v, want ≈%v", d, 2*111195)
	}
	if PathDistance(path[:1]) != 0 {
		t.Error("single-point path should have zero distance")
	}
}

func TestDistinctPoints(t *testing.T) {
	path := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0}, // duplicate fix
		{Lat: 1, Lon: 0},
		{Lat: 1, Lon: 1},
	}
	if got := DistinctPoints(path); got != 3 {
		t.Errorf("DistinctPoints = %d, want 3", got)
	}
	if got := DistinctPoints(nil); got != 0 {
		t.Errorf("DistinctPoints(nil) = %d, want 0", got)
	}
}

func TestCentroid(t *testing.T) {
	square := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 2},
		{Lat: 2, Lon: 2},
		{Lat: 2, Lon: 0},
	}
	c, err := Centroid(square)
	if err != nil {
		t.Fatalf("Centroid: %v", err)
	}
	if c.Lat != 1 || c.Lon != 1 {
		t.Errorf("Centroid = %+v, want (1, 1)", c)
	}

	if _, err := Centroid(nil); err != ErrInsufficientPoints {
		t.Errorf("Centroid(nil) err = %v, want ErrInsufficientPoints", err)
	}
}
