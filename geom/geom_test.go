package geom

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// square returns a counter clockwise square ring with the given corner
// and side length.
func square(x, y, side float64) Ring {
	return Ring{
		{X: x, Y: y},
		{X: x + side, Y: y},
		{X: x + side, Y: y + side},
		{X: x, Y: y + side},
	}
}

func TestRingArea(t *testing.T) {

	tests := []struct {
		name string
		ring Ring
		want float64
	}{
		{"unit square", square(0, 0, 1), 1},
		{"ten by ten", square(5, 5, 10), 100},
		{"clockwise winding", Ring{{0, 0}, {0, 2}, {2, 2}, {2, 0}}, 4},
		{"triangle", Ring{{0, 0}, {4, 0}, {0, 3}}, 6},
		{"degenerate", Ring{{0, 0}, {1, 1}}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.ring.Area()

			if !almostEqual(got, tc.want, 1e-9) {
				t.Errorf("Area() = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestPolygonAreaWithHole(t *testing.T) {

	p := Polygon{
		square(0, 0, 10),
		square(2, 2, 3),
	}

	if got := p.Area(); !almostEqual(got, 91, 1e-9) {
		t.Errorf("Area() = %v; want 91", got)
	}
}

func TestRectContainsAndIntersects(t *testing.T) {

	r := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 5}

	if !r.Contains(Point{X: 5, Y: 2}) {
		t.Error("Contains(interior point) = false; want true")
	}

	if !r.Contains(Point{X: 10, Y: 5}) {
		t.Error("Contains(corner point) = false; want true")
	}

	if r.Contains(Point{X: 10.1, Y: 2}) {
		t.Error("Contains(outside point) = true; want false")
	}

	if !r.Intersects(Rect{MinX: 9, MinY: 4, MaxX: 12, MaxY: 8}) {
		t.Error("Intersects(overlapping rect) = false; want true")
	}

	if r.Intersects(Rect{MinX: 11, MinY: 0, MaxX: 12, MaxY: 5}) {
		t.Error("Intersects(disjoint rect) = true; want false")
	}
}

func TestFeatureSetSelect(t *testing.T) {

	fs := NewFeatureSet(
		NewPolygonFeature(Polygon{square(0, 0, 1)}),
		NewPolygonFeature(Polygon{square(0, 0, 3)}),
		NewPolygonFeature(Polygon{square(0, 0, 5)}),
	)

	fs.CalculateArea()

	big := fs.Select(func(f *Feature) bool {
		return f.Attr(FieldArea) > 2
	})

	if big.Count() != 2 {
		t.Fatalf("Select() count = %d; want 2", big.Count())
	}

	// selection must copy, mutating the selection may not touch the source
	big.Features[0].SetAttr(FieldArea, -1)

	if fs.Features[1].Attr(FieldArea) == -1 {
		t.Error("Select() returned shared attribute tables; want deep copies")
	}
}

func TestFeatureSetWithin(t *testing.T) {

	fs := NewFeatureSet(
		NewPointFeature(Point{X: 1, Y: 1}),
		NewPointFeature(Point{X: 50, Y: 50}),
		NewPolygonFeature(Polygon{square(2, 2, 2)}),
		NewPolygonFeature(Polygon{square(8, 8, 5)}),
	)

	in := fs.Within(Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10})

	if in.Count() != 2 {
		t.Fatalf("Within() count = %d; want 2", in.Count())
	}

	if in.Features[0].Type != GeometryPoint {
		t.Error("Within() dropped the inside point")
	}

	if in.Features[1].Type != GeometryPolygon {
		t.Error("Within() dropped the inside polygon")
	}
}

func TestFeatureSetBounds(t *testing.T) {

	fs := NewFeatureSet(
		NewPointFeature(Point{X: -2, Y: 7}),
		NewPolygonFeature(Polygon{square(0, 0, 4)}),
	)

	b := fs.Bounds()
	want := Rect{MinX: -2, MinY: 0, MaxX: 4, MaxY: 7}

	if b != want {
		t.Errorf("Bounds() = %+v; want %+v", b, want)
	}
}

func TestFeatureClone(t *testing.T) {

	f := NewPolygonFeature(Polygon{square(0, 0, 2)})
	f.SetAttr(FieldGridCode, 7)

	c := f.Clone()
	c.Polygon[0][0].X = 99
	c.SetAttr(FieldGridCode, 8)

	if f.Polygon[0][0].X == 99 {
		t.Error("Clone() shares ring storage with the source")
	}

	if f.Attr(FieldGridCode) != 7 {
		t.Error("Clone() shares the attribute table with the source")
	}
}
