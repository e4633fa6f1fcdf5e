// Package geo implements the coordinate math the territory game is built on:
// WGS-84/GCJ-02 conversion, point-in-polygon tests, and the geometry derived
// from a recorded GPS path (closure detection, area, bounding box, WKT).
package geo

import "errors"

// ErrInsufficientPoints is returned when a polygon operation is attempted on
// fewer than the minimum number of points it needs.
var ErrInsufficientPoints = errors.New("insufficient points for polygon")

// Point is a WGS-84 coordinate unless a function documents otherwise.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BBox is an axis-aligned bounding box in degrees.
type BBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
}
