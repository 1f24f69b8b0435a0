package geom

import (
	"math"
)

// Point is a location in projected planar coordinates, in meters.
type Point struct {
	X float64
	Y float64
}

// Ring is a closed sequence of vertices. The closing edge from the last
// vertex back to the first is implicit, the first vertex is not repeated.
type Ring []Point

// Polygon is one exterior ring optionally followed by interior rings
// describing holes.
type Polygon []Ring

// Rect is an axis aligned bounding rectangle in world coordinates.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Contains reports whether the point lies inside or on the edge of the
// rectangle.
func (r Rect) Contains(pt Point) bool {
	return pt.X >= r.MinX && pt.X <= r.MaxX &&
		pt.Y >= r.MinY && pt.Y <= r.MaxY
}

// ContainsRect reports whether other lies fully inside the rectangle.
func (r Rect) ContainsRect(other Rect) bool {
	return other.MinX >= r.MinX && other.MaxX <= r.MaxX &&
		other.MinY >= r.MinY && other.MaxY <= r.MaxY
}

// Intersects reports whether the two rectangles share any area or edge.
func (r Rect) Intersects(other Rect) bool {
	return r.MinX <= other.MaxX && other.MinX <= r.MaxX &&
		r.MinY <= other.MaxY && other.MinY <= r.MaxY
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 {
	return r.MaxX - r.MinX
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 {
	return r.MaxY - r.MinY
}

// extend grows the rectangle to include pt.
func (r Rect) extend(pt Point) Rect {
	if pt.X < r.MinX {
		r.MinX = pt.X
	}
	if pt.X > r.MaxX {
		r.MaxX = pt.X
	}
	if pt.Y < r.MinY {
		r.MinY = pt.Y
	}
	if pt.Y > r.MaxY {
		r.MaxY = pt.Y
	}
	return r
}

// emptyRect is the identity for extend, any real point replaces it.
func emptyRect() Rect {
	return Rect{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
}

// Area returns the area enclosed by the ring using the shoelace sum. The
// result is always non negative regardless of winding order.
func (r Ring) Area() float64 {

	n := len(r)

	if n < 3 {
		return 0
	}

	sum := 0.0

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += r[i].X*r[j].Y - r[i].Y*r[j].X
	}

	return math.Abs(sum / 2)
}

// Bounds returns the bounding rectangle of the ring.
func (r Ring) Bounds() Rect {

	b := emptyRect()

	for _, pt := range r {
		b = b.extend(pt)
	}

	return b
}

// Clone returns a deep copy of the ring.
func (r Ring) Clone() Ring {
	out := make(Ring, len(r))
	copy(out, r)
	return out
}

// Area returns the polygon area, the exterior ring area minus the hole
// areas.
func (p Polygon) Area() float64 {

	if len(p) == 0 {
		return 0
	}

	a := p[0].Area()

	for _, hole := range p[1:] {
		a -= hole.Area()
	}

	if a < 0 {
		return 0
	}

	return a
}

// Bounds returns the bounding rectangle of the exterior ring.
func (p Polygon) Bounds() Rect {

	if len(p) == 0 {
		return Rect{}
	}

	return p[0].Bounds()
}

// Centroid returns the vertex average of the exterior ring, used for label
// placement rather than exact geometry.
func (p Polygon) Centroid() Point {

	if len(p) == 0 || len(p[0]) == 0 {
		return Point{}
	}

	var c Point

	for _, pt := range p[0] {
		c.X += pt.X
		c.Y += pt.Y
	}

	n := float64(len(p[0]))
	return Point{X: c.X / n, Y: c.Y / n}
}

// Clone returns a deep copy of the polygon.
func (p Polygon) Clone() Polygon {

	out := make(Polygon, len(p))

	for i, ring := range p {
		out[i] = ring.Clone()
	}

	return out
}
