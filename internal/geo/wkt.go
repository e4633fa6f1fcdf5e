package geo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// WKTPolygon serializes a boundary as `POLYGON((lon lat, ...))`, longitude
// first, with the ring explicitly closed. If the input already repeats the
// first point at the end the closing point is not appended twice.
func WKTPolygon(boundary []Point) (string, error) {
	ring, err := closedRing(boundary)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("POLYGON((")
	for i, p := range ring {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(p.Lon, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.Lat, 'f', -1, 64))
	}
	b.WriteString("))")
	return b.String(), nil
}

// EWKTPolygon is WKTPolygon with the storage-layer SRID prefix.
func EWKTPolygon(boundary []Point) (string, error) {
	wkt, err := WKTPolygon(boundary)
	if err != nil {
		return "", err
	}
	return "SRID=4326;" + wkt, nil
}

// ParseWKTPolygon parses the output of WKTPolygon or EWKTPolygon back into an
// open boundary (the repeated closing point is dropped).
func ParseWKTPolygon(s string) ([]Point, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "SRID=4326;"); ok {
		s = rest
	}
	inner, ok := strings.CutPrefix(s, "POLYGON((")
	if !ok {
		return nil, fmt.Errorf("not a polygon: %q", truncate(s, 40))
	}
	inner, ok = strings.CutSuffix(inner, "))")
	if !ok {
		return nil, fmt.Errorf("unterminated polygon: %q", truncate(s, 40))
	}

	parts := strings.Split(inner, ",")
	pts := make([]Point, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(part)
		if len(fields) != 2 {
			return nil, fmt.Errorf("bad coordinate pair %q", part)
		}
		lon, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("bad longitude %q: %w", fields[0], err)
		}
		lat, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad latitude %q: %w", fields[1], err)
		}
		pts = append(pts, Point{Lat: lat, Lon: lon})
	}

	// Drop the closing repeat so storage and JSON round-trip to the same
	// open sequence.
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return nil, ErrInsufficientPoints
	}
	return pts, nil
}

// MarshalPath serializes a path as a JSON array of {"lat":..,"lon":..}
// objects, the display-layer wire format.
func MarshalPath(path []Point) (string, error) {
	if path == nil {
		path = []Point{}
	}
	b, err := json.Marshal(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalPath is the inverse of MarshalPath.
func UnmarshalPath(s string) ([]Point, error) {
	var pts []Point
	if err := json.Unmarshal([]byte(s), &pts); err != nil {
		return nil, fmt.Errorf("parsing path json: %w", err)
	}
	return pts, nil
}

// closedRing validates the boundary and returns it with the first point
// appended at the end exactly once.
func closedRing(boundary []Point) ([]Point, error) {
	open := boundary
	if len(open) > 1 && open[0] == open[len(open)-1] {
		open = open[:len(open)-1]
	}
	if DistinctPoints(open) < 3 {
		return nil, ErrInsufficientPoints
	}
	ring := make([]Point, 0, len(open)+1)
	ring = append(ring, open...)
	ring = append(ring, open[0])
	return ring, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
