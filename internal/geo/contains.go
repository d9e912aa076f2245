package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Contains reports whether coord lies inside g. Points on the outer boundary
// count as inside; points in or on a hole do not. Only polygonal geometries contain
// anything.
func Contains(g geom.T, coord geom.Coord) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, coord)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), coord) {
				return true
			}
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, coord geom.Coord) bool {
	if p == nil || p.NumLinearRings() == 0 {
		return false
	}
	layout := p.Layout()
	if !xy.IsPointInRing(layout, coord, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(layout, coord, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

// Center returns the center of g's bounding box.
func Center(g geom.T) (geom.Coord, bool) {
	if g == nil {
		return nil, false
	}
	b := g.Bounds()
	if b == nil || b.IsEmpty() {
		return nil, false
	}
	return geom.Coord{(b.Min(0) + b.Max(0)) / 2, (b.Min(1) + b.Max(1)) / 2}, true
}
