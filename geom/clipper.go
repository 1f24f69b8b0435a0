package geom

import (
	"math"

	clipper "github.com/ctessum/go.clipper"
)

// clipperScale converts meters into the integer grid used by the clipping
// library. 1000 keeps millimeter precision.
const clipperScale = 1000

// toPath converts a ring to a scaled integer clipper path.
func toPath(r Ring) clipper.Path {

	path := make(clipper.Path, 0, len(r))

	for _, pt := range r {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(math.Round(pt.X * clipperScale)),
			Y: clipper.CInt(math.Round(pt.Y * clipperScale)),
		})
	}

	return path
}

// fromPath converts a clipper path back to a ring in meters.
func fromPath(p clipper.Path) Ring {

	r := make(Ring, 0, len(p))

	for _, pt := range p {
		r = append(r, Point{
			X: float64(pt.X) / clipperScale,
			Y: float64(pt.Y) / clipperScale,
		})
	}

	return r
}

// reversePath flips the winding order of a path in place.
func reversePath(p clipper.Path) {
	for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
		p[i], p[j] = p[j], p[i]
	}
}

// polygonPaths converts a polygon to clipper paths with the exterior ring
// wound positive and holes wound negative, as non zero filling expects.
func polygonPaths(p Polygon) clipper.Paths {

	paths := make(clipper.Paths, 0, len(p))

	for i, ring := range p {

		path := toPath(ring)

		if len(path) < 3 {
			continue
		}

		outer := i == 0

		if clipper.Orientation(path) != outer {
			reversePath(path)
		}

		paths = append(paths, path)
	}

	return paths
}

// assemblePolygons splits a clipper solution into single part polygons,
// assigning each hole to the outer ring that contains it.
func assemblePolygons(paths clipper.Paths) []Polygon {

	var polys []Polygon
	var outers []clipper.Path
	var holes []clipper.Path

	for _, path := range paths {

		if len(path) < 3 {
			continue
		}

		if clipper.Orientation(path) {
			polys = append(polys, Polygon{fromPath(path)})
			outers = append(outers, path)
		} else {
			holes = append(holes, path)
		}
	}

	for _, hole := range holes {
		for i := range outers {
			if clipper.PointInPolygon(hole[0], outers[i]) != 0 {
				polys[i] = append(polys[i], fromPath(hole))
				break
			}
		}
	}

	return polys
}

// ContainsPoint reports whether the point lies inside the polygon, with
// holes excluded. Points on the exterior boundary count as inside.
func (p Polygon) ContainsPoint(pt Point) bool {

	if len(p) == 0 {
		return false
	}

	ip := &clipper.IntPoint{
		X: clipper.CInt(math.Round(pt.X * clipperScale)),
		Y: clipper.CInt(math.Round(pt.Y * clipperScale)),
	}

	if clipper.PointInPolygon(ip, toPath(p[0])) == 0 {
		return false
	}

	// a point strictly inside a hole is outside the polygon, a point on
	// a hole boundary still touches the polygon
	for _, hole := range p[1:] {
		if clipper.PointInPolygon(ip, toPath(hole)) > 0 {
			return false
		}
	}

	return true
}

// Overlaps reports whether the two polygons share any area.
func Overlaps(a, b Polygon) bool {

	if len(a) == 0 || len(b) == 0 {
		return false
	}

	c := clipper.NewClipper(clipper.IoNone)
	c.AddPaths(polygonPaths(a), clipper.PtSubject, true)
	c.AddPaths(polygonPaths(b), clipper.PtClip, true)

	solution, ok := c.Execute1(clipper.CtIntersection,
		clipper.PftNonZero, clipper.PftNonZero)

	return ok && len(solution) > 0
}

// Buffer grows the polygon outward by distance meters using round joins
// so corners become arcs. Holes shrink by the same distance. The offset
// can split or merge rings so the result is a set of polygons.
func Buffer(p Polygon, distance float64) []Polygon {

	paths := polygonPaths(p)

	if len(paths) == 0 {
		return nil
	}

	co := clipper.NewClipperOffset()

	for _, path := range paths {
		co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)
	}

	solution := co.Execute(distance * clipperScale)

	return assemblePolygons(solution)
}

// Union dissolves the polygons into the minimal set of single part
// polygons covering the same area.
func Union(polys []Polygon) []Polygon {

	if len(polys) == 0 {
		return nil
	}

	c := clipper.NewClipper(clipper.IoNone)

	for _, p := range polys {
		c.AddPaths(polygonPaths(p), clipper.PtSubject, true)
	}

	solution, ok := c.Execute1(clipper.CtUnion,
		clipper.PftNonZero, clipper.PftNonZero)

	if !ok {
		return nil
	}

	return assemblePolygons(solution)
}

// Intersects reports whether two features spatially intersect. Point
// against polygon tests containment, polygon against polygon tests area
// overlap and two points intersect only when equal.
func Intersects(a, b *Feature) bool {

	switch {
	case a.Type == GeometryPoint && b.Type == GeometryPoint:
		return a.Point == b.Point

	case a.Type == GeometryPoint:
		return b.Polygon.ContainsPoint(a.Point)

	case b.Type == GeometryPoint:
		return a.Polygon.ContainsPoint(b.Point)

	default:
		if !a.Bounds().Intersects(b.Bounds()) {
			return false
		}
		return Overlaps(a.Polygon, b.Polygon)
	}
}
